// Package savestate implements the versioned binary snapshot format
// used by the emulator's save-state/load-state surface. Every
// subsystem (CPU, PPU, APU, DMA arbiter, mapper) encodes its state
// into a shared Encoder and decodes from a shared Decoder; the whole
// blob is prefixed with a magic number and format version so that a
// foreign or corrupt blob is rejected before any live state is
// touched, per the "no observable half-loaded state" requirement.
package savestate

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

var magic = [4]byte{'N', 'E', 'S', 'S'}

const formatVersion = 1

// ErrBadMagic is returned by Open when the blob doesn't start with
// the save-state magic number.
var ErrBadMagic = errors.New("savestate: bad magic")

// ErrVersion is returned by Open when the blob's format version isn't
// one this build understands.
var ErrVersion = errors.New("savestate: unsupported format version")

// Encoder accumulates a flat binary encoding of emulator state.
// Components serialize their own fields into it via the U8/U16/etc
// helpers; there is no reflection or tagging, matching the explicit,
// hand-rolled style of the rest of this module.
type Encoder struct {
	buf bytes.Buffer
}

func NewEncoder() *Encoder {
	e := &Encoder{}
	e.buf.Write(magic[:])
	e.buf.WriteByte(formatVersion)
	return e
}

func (e *Encoder) Bytes() []byte { return e.buf.Bytes() }

func (e *Encoder) U8(v uint8)   { e.buf.WriteByte(v) }
func (e *Encoder) Bool(v bool) {
	if v {
		e.buf.WriteByte(1)
	} else {
		e.buf.WriteByte(0)
	}
}

func (e *Encoder) U16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	e.buf.Write(b[:])
}

func (e *Encoder) U32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	e.buf.Write(b[:])
}

func (e *Encoder) U64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	e.buf.Write(b[:])
}

func (e *Encoder) F32(v float32) {
	e.U32(math.Float32bits(v))
}

// Raw writes a fixed-size byte slice verbatim, with no length prefix.
// Use for buffers whose size is a compile-time constant known to both
// sides (RAM, OAM, palette, pattern shift registers, ...).
func (e *Encoder) Raw(b []byte) { e.buf.Write(b) }

// Slice writes a variable-length byte slice with a uint32 length
// prefix. Use for mapper-owned PRG-RAM/CHR-RAM whose size depends on
// the loaded ROM.
func (e *Encoder) Slice(b []byte) {
	e.U32(uint32(len(b)))
	e.buf.Write(b)
}

// Decoder mirrors Encoder, reading back in the same field order. It
// is error-sticky: once a read fails, every subsequent read becomes a
// no-op and Err reports the first failure. This lets callers decode a
// whole subsystem's worth of fields without checking an error after
// every single call, while still refusing to commit a partially
// decoded tree.
type Decoder struct {
	r   *bytes.Reader
	err error
}

// Open validates the magic/version header and returns a Decoder
// positioned at the first field.
func Open(data []byte) (*Decoder, error) {
	if len(data) < 5 {
		return nil, fmt.Errorf("savestate: short blob (%d bytes): %w", len(data), ErrBadMagic)
	}
	if !bytes.Equal(data[0:4], magic[:]) {
		return nil, ErrBadMagic
	}
	if data[4] != formatVersion {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrVersion, data[4], formatVersion)
	}
	return &Decoder{r: bytes.NewReader(data[5:])}, nil
}

// Err returns the first decode error encountered, if any.
func (d *Decoder) Err() error { return d.err }

func (d *Decoder) fail(err error) {
	if d.err == nil {
		d.err = err
	}
}

func (d *Decoder) U8() uint8 {
	if d.err != nil {
		return 0
	}
	b, err := d.r.ReadByte()
	if err != nil {
		d.fail(err)
		return 0
	}
	return b
}

func (d *Decoder) Bool() bool { return d.U8() != 0 }

func (d *Decoder) U16() uint16 {
	var b [2]byte
	d.readN(b[:])
	return binary.LittleEndian.Uint16(b[:])
}

func (d *Decoder) U32() uint32 {
	var b [4]byte
	d.readN(b[:])
	return binary.LittleEndian.Uint32(b[:])
}

func (d *Decoder) U64() uint64 {
	var b [8]byte
	d.readN(b[:])
	return binary.LittleEndian.Uint64(b[:])
}

func (d *Decoder) F32() float32 {
	return math.Float32frombits(d.U32())
}

func (d *Decoder) readN(b []byte) {
	if d.err != nil {
		return
	}
	if _, err := io.ReadFull(d.r, b); err != nil {
		d.fail(err)
	}
}

// Raw reads len(dst) bytes into dst in place.
func (d *Decoder) Raw(dst []byte) {
	d.readN(dst)
}

// Slice reads a uint32-length-prefixed byte slice.
func (d *Decoder) Slice() []byte {
	n := d.U32()
	if d.err != nil {
		return nil
	}
	out := make([]byte, n)
	d.readN(out)
	return out
}
