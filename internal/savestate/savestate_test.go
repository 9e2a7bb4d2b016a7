package savestate

import (
	"errors"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	e := NewEncoder()
	e.U8(0x42)
	e.U16(0xBEEF)
	e.U32(0xDEADBEEF)
	e.Bool(true)
	e.F32(3.5)
	e.Slice([]byte{1, 2, 3})

	d, err := Open(e.Bytes())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	if got := d.U8(); got != 0x42 {
		t.Errorf("U8 = %#x, want 0x42", got)
	}
	if got := d.U16(); got != 0xBEEF {
		t.Errorf("U16 = %#x, want 0xBEEF", got)
	}
	if got := d.U32(); got != 0xDEADBEEF {
		t.Errorf("U32 = %#x, want 0xDEADBEEF", got)
	}
	if got := d.Bool(); !got {
		t.Errorf("Bool = %v, want true", got)
	}
	if got := d.F32(); got != 3.5 {
		t.Errorf("F32 = %v, want 3.5", got)
	}
	if got := d.Slice(); string(got) != "\x01\x02\x03" {
		t.Errorf("Slice = %v, want [1 2 3]", got)
	}
	if d.Err() != nil {
		t.Errorf("Err() = %v, want nil", d.Err())
	}
}

func TestOpenBadMagic(t *testing.T) {
	if _, err := Open([]byte("nope!")); !errors.Is(err, ErrBadMagic) {
		t.Errorf("error = %v, want ErrBadMagic", err)
	}
}

func TestOpenShort(t *testing.T) {
	if _, err := Open([]byte{1, 2}); err == nil {
		t.Errorf("expected error for short blob")
	}
}

func TestDecoderSticksOnFirstError(t *testing.T) {
	e := NewEncoder()
	e.U8(1)
	d, err := Open(e.Bytes())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	d.U8()    // consumes the only byte
	d.U32()   // fails: nothing left
	v := d.U8() // must not panic, returns zero value
	if v != 0 {
		t.Errorf("U8 after error = %d, want 0", v)
	}
	if d.Err() == nil {
		t.Errorf("Err() = nil, want non-nil after short read")
	}
}
