// Package mapper implements the cartridge memory-mapper abstraction:
// window-based CPU/PPU address translation and bank switching, plus
// the four concrete mappers (000, 001, 002, 004) this core supports.
package mapper

import (
	"fmt"

	"nescore/internal/rom"
	"nescore/internal/savestate"
)

// Mapper is implemented by every concrete cartridge mapper. The CPU
// and PPU only ever talk to a cartridge through this interface; the
// console bus resolves 0x4020-0xFFFF and 0x0000-0x2FFF addresses by
// calling straight through.
type Mapper interface {
	// CPURead/CPUWrite serve CPU addresses 0x4020-0xFFFF. Addresses
	// below PRG-RAM's base are unmapped (open bus, returns 0; writes
	// ignored) unless the concrete mapper claims them.
	CPURead(addr uint16) uint8
	CPUWrite(addr uint16, val uint8)

	// PPURead/PPUWrite serve PPU addresses 0x0000-0x2FFF: pattern
	// tables and nametables, both mapper-resolved per spec.
	PPURead(addr uint16) uint8
	PPUWrite(addr uint16, val uint8)

	// NotifyA12 is called by the PPU on every internal VRAM address
	// change (every background/sprite pattern fetch) so mappers that
	// derive scanline timing from the PPU address bus (MMC3) can
	// detect the rising edge on address line 12.
	NotifyA12(addr uint16)

	// IRQ reports whether the mapper currently asserts the CPU's IRQ
	// line (only mapper 004 ever does).
	IRQ() bool

	EncodeState(e *savestate.Encoder)
	DecodeState(d *savestate.Decoder)
}

// bankKind identifies which backing array a map table entry resolves
// against.
type bankKind uint8

const (
	bankNone bankKind = iota
	bankPRGROM
	bankPRGRAM
	bankCHR
	bankNametable
)

// attr is the access policy for a map table entry, per spec section
// 4.6: reads of a write-only entry return zero, writes to a read-only
// entry are silently dropped.
type attr uint8

const (
	attrRO attr = iota
	attrWO
	attrRW
)

type tableEntry struct {
	kind   bankKind
	offset int
	attr   attr
}

const (
	cpuGranule = 0x2000 // 8 KB CPU windows, starting at 0x6000
	ppuGranule = 0x0400 // 1 KB PPU windows, starting at 0x0000
	cpuBase    = 0x6000
	cpuSlots   = 5 // 0x6000-0x7FFF .. 0xE000-0xFFFF
	ppuSlots   = 12
)

// base is embedded by every concrete mapper and implements the shared
// bank-window bookkeeping and nametable mirroring helpers described in
// spec section 4.6.
type base struct {
	prg    []byte
	prgRAM []byte
	chr    []byte // CHR-ROM or CHR-RAM
	chrRAM bool

	// nametables is always a 4KB backing store: two 1KB chunks (H0,
	// H1) used by every two-screen mirroring mode, plus two more
	// (H2, H3) used only in four-screen mode (the cartridge's 2KB
	// nametable RAM expansion named in spec section 4.6).
	nametables [4096]byte

	cpuTable [cpuSlots]tableEntry
	ppuTable [ppuSlots]tableEntry
}

func newBase(r *rom.ROM, prgRAMSize int) base {
	b := base{
		prg:    r.PRG,
		prgRAM: make([]byte, prgRAMSize),
	}
	if len(r.CHR) > 0 {
		b.chr = r.CHR
	} else {
		b.chr = make([]byte, 8192)
		b.chrRAM = true
	}
	return b
}

func bankArray(b *base, kind bankKind) []byte {
	switch kind {
	case bankPRGROM:
		return b.prg
	case bankPRGRAM:
		return b.prgRAM
	case bankCHR:
		return b.chr
	case bankNametable:
		return b.nametables[:]
	}
	return nil
}

// mapCPURange fills the CPU lookup table for the window
// [addrStart, addrStart+windowSize) with consecutive slices of the
// bank array selected by kind, starting at bank index `selector`
// counted in windowSize units. selector is reduced modulo the number
// of banks of that size so no mapper can address past its own ROM.
func (b *base) mapCPURange(addrStart uint16, kind bankKind, selector int, windowSize int, a attr) {
	arr := bankArray(b, kind)
	banks := len(arr) / windowSize
	if banks <= 0 {
		banks = 1
	}
	selector = ((selector % banks) + banks) % banks
	base := selector * windowSize

	granules := windowSize / cpuGranule
	start := int(addrStart-cpuBase) / cpuGranule
	for i := 0; i < granules; i++ {
		b.cpuTable[start+i] = tableEntry{kind: kind, offset: base + i*cpuGranule, attr: a}
	}
}

// mapPPURange is mapCPURange's analogue for the 1KB-granule PPU table.
func (b *base) mapPPURange(addrStart uint16, kind bankKind, selector int, windowSize int, a attr) {
	arr := bankArray(b, kind)
	banks := len(arr) / windowSize
	if banks <= 0 {
		banks = 1
	}
	selector = ((selector % banks) + banks) % banks
	base := selector * windowSize

	granules := windowSize / ppuGranule
	start := int(addrStart) / ppuGranule
	for i := 0; i < granules; i++ {
		b.ppuTable[start+i] = tableEntry{kind: kind, offset: base + i*ppuGranule, attr: a}
	}
}

func (b *base) cpuRead(addr uint16) uint8 {
	if addr < cpuBase {
		return 0
	}
	e := b.cpuTable[(addr-cpuBase)/cpuGranule]
	if e.kind == bankNone || e.attr == attrWO {
		return 0
	}
	arr := bankArray(b, e.kind)
	off := e.offset + int(addr-cpuBase)%cpuGranule
	if off < 0 || off >= len(arr) {
		return 0
	}
	return arr[off]
}

func (b *base) cpuWrite(addr uint16, val uint8) {
	if addr < cpuBase {
		return
	}
	e := b.cpuTable[(addr-cpuBase)/cpuGranule]
	if e.kind == bankNone || e.attr == attrRO {
		return
	}
	arr := bankArray(b, e.kind)
	off := e.offset + int(addr-cpuBase)%cpuGranule
	if off < 0 || off >= len(arr) {
		return
	}
	arr[off] = val
}

func (b *base) ppuRead(addr uint16) uint8 {
	addr &= 0x2FFF
	e := b.ppuTable[addr/ppuGranule]
	if e.kind == bankNone || e.attr == attrWO {
		return 0
	}
	arr := bankArray(b, e.kind)
	off := e.offset + int(addr%ppuGranule)
	if off < 0 || off >= len(arr) {
		return 0
	}
	return arr[off]
}

func (b *base) ppuWrite(addr uint16, val uint8) {
	addr &= 0x2FFF
	e := b.ppuTable[addr/ppuGranule]
	if e.kind == bankNone || e.attr == attrRO {
		return
	}
	arr := bankArray(b, e.kind)
	off := e.offset + int(addr%ppuGranule)
	if off < 0 || off >= len(arr) {
		return
	}
	arr[off] = val
}

// Nametable mirroring helpers. The four slots correspond to
// 0x2000/0x2400/0x2800/0x2C00.
func (b *base) setMirrorHorizontal() {
	b.setNametableSlots(0, 0, 1, 1)
}

func (b *base) setMirrorVertical() {
	b.setNametableSlots(0, 1, 0, 1)
}

func (b *base) setMirrorOneScreenLower() {
	b.setNametableSlots(0, 0, 0, 0)
}

func (b *base) setMirrorOneScreenUpper() {
	b.setNametableSlots(1, 1, 1, 1)
}

func (b *base) setMirrorFourScreen() {
	b.setNametableSlots(0, 1, 2, 3)
}

func (b *base) setNametableSlots(h0, h1, h2, h3 int) {
	slots := [4]int{h0, h1, h2, h3}
	for i, h := range slots {
		b.mapPPURange(uint16(0x2000+i*0x400), bankNametable, h, 0x400, attrRW)
	}
}

func (b *base) encodeState(e *savestate.Encoder) {
	if b.chrRAM {
		e.Slice(b.chr)
	}
	e.Slice(b.prgRAM)
	e.Raw(b.nametables[:])
}

func (b *base) decodeState(d *savestate.Decoder) {
	if b.chrRAM {
		copy(b.chr, d.Slice())
	}
	copy(b.prgRAM, d.Slice())
	d.Raw(b.nametables[:])
}

// New constructs the mapper named by r's header mapper id, or returns
// an *rom.UnsupportedMapperError.
func New(r *rom.ROM) (Mapper, error) {
	switch r.MapperID {
	case 0:
		return newMapper000(r), nil
	case 1:
		return newMapper001(r), nil
	case 2:
		return newMapper002(r), nil
	case 4:
		return newMapper004(r), nil
	default:
		return nil, &rom.UnsupportedMapperError{ID: r.MapperID}
	}
}

func mirroringName(m rom.Mirroring) string {
	switch m {
	case rom.MirrorHorizontal:
		return "horizontal"
	case rom.MirrorVertical:
		return "vertical"
	case rom.MirrorFourScreen:
		return "four-screen"
	default:
		return fmt.Sprintf("mirroring(%d)", m)
	}
}
