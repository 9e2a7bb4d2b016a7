package console

import (
	"testing"

	"nescore/internal/rom"
)

// buildMapper000ROM assembles a minimal iNES v1 image: one 16KB PRG
// bank holding prog at CPU address 0xC000 (mirrored from 0x8000), an
// 8KB CHR-RAM bank (CHRBanks=0 in the header), and a reset vector
// pointing at 0xC000.
func buildMapper000ROM(prog []uint8) []byte {
	const prgSize = 16384
	prg := make([]byte, prgSize)
	// 0xC000 mirrors PRG offset (0xC000-0x8000) mod 16384 = 0.
	copy(prg, prog)
	resetVecOff := 0xFFFC - 0xC000 // = 0x3FFC, within the one 16KB bank
	prg[resetVecOff] = 0x00
	prg[resetVecOff+1] = 0xC0

	hdr := []byte{'N', 'E', 'S', 0x1A, 1, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}
	out := make([]byte, 0, len(hdr)+len(prg))
	out = append(out, hdr...)
	out = append(out, prg...)
	return out
}

func mustLoad(t *testing.T, data []byte) *Console {
	t.Helper()
	c, err := Load(data)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return c
}

// TestPowerOnAndResetMapper000 drives spec.md section 8's scenario:
// SEI; CLD; LDX #$FF; TXS; LDA #$42; STA $0200; JMP * at 0xC000, reset
// vector pointing at 0xC000. After reset and one frame, RAM[0x0200]
// must be 0x42 and PC must sit at the JMP's own address, 0xC00A. SP is
// asserted as 0xFF, not the 0xFD spec.md's scenario text names: TXS
// unconditionally loads SP from X, and the program loads X with 0xFF
// immediately beforehand, so 0xFD (the reset-only default) can never
// survive past that instruction. Treated as a spec transcription slip
// per the Open Questions in DESIGN.md, not a behavior to reproduce.
func TestPowerOnAndResetMapper000(t *testing.T) {
	prog := []uint8{
		0x78,                   // SEI
		0xD8,                   // CLD
		0xA2, 0xFF,             // LDX #$FF
		0x9A,                   // TXS
		0xA9, 0x42,             // LDA #$42
		0x8D, 0x00, 0x02,       // STA $0200
		0x4C, 0x0A, 0xC0,       // JMP $C00A
	}
	c := mustLoad(t, buildMapper000ROM(prog))

	c.Reset()
	c.RunOneFrame()

	if got := c.ram[0x0200]; got != 0x42 {
		t.Errorf("RAM[0x0200] = %#02x, want 0x42", got)
	}
	if c.cpu.SP != 0xFF {
		t.Errorf("SP = %#02x, want 0xFF", c.cpu.SP)
	}
	if c.cpu.PC != 0xC00A {
		t.Errorf("PC = %#04x, want 0xC00A", c.cpu.PC)
	}
}

// TestRunOneFrameProducesFullFramebuffer covers testable property 5:
// after run-one-frame the framebuffer has exactly 256x240 pixels.
func TestRunOneFrameProducesFullFramebuffer(t *testing.T) {
	prog := []uint8{0x4C, 0x00, 0xC0} // JMP $C000, spin forever
	c := mustLoad(t, buildMapper000ROM(prog))

	c.RunOneFrame()

	fb := c.Framebuffer()
	if len(fb) != FrameWidth*FrameHeight {
		t.Fatalf("len(Framebuffer()) = %d, want %d", len(fb), FrameWidth*FrameHeight)
	}
}

// TestSaveLoadFixedPoint covers testable property 4: save(load(save(s)))
// must equal save(s) for any reachable state.
func TestSaveLoadFixedPoint(t *testing.T) {
	prog := []uint8{
		0xA9, 0x10, // LDA #$10
		0x8D, 0x00, 0x03, // STA $0300
		0x4C, 0x05, 0xC0, // JMP $C005
	}
	c := mustLoad(t, buildMapper000ROM(prog))
	c.RunOneFrame()

	s1 := c.SaveState()
	if err := c.LoadState(s1); err != nil {
		t.Fatalf("LoadState() error = %v", err)
	}
	s2 := c.SaveState()

	if !bytesEqual(s1, s2) {
		t.Errorf("save(load(save(s))) != save(s)")
	}
}

// TestLoadStateRejectsBadMagic covers spec.md section 7: a failed
// decode must not mutate live state.
func TestLoadStateRejectsBadMagic(t *testing.T) {
	prog := []uint8{0x4C, 0x00, 0xC0}
	c := mustLoad(t, buildMapper000ROM(prog))
	c.RunOneFrame()

	before := c.SaveState()
	if err := c.LoadState([]byte("not a savestate")); err == nil {
		t.Fatalf("LoadState() with garbage data: expected error, got nil")
	}
	after := c.SaveState()
	if !bytesEqual(before, after) {
		t.Errorf("live state changed after a rejected LoadState()")
	}
}

func TestLoadRejectsBadMagicHeader(t *testing.T) {
	if _, err := Load([]byte("not an nes rom")); err == nil {
		t.Fatalf("Load() with bad magic: expected error, got nil")
	}
}

func TestLoadRejectsUnsupportedMapper(t *testing.T) {
	data := buildMapper000ROM([]uint8{0xEA})
	data[6] = 0xF0 // mapper id 255 hi nibble
	data[7] = 0xF0
	if _, err := Load(data); err == nil {
		t.Fatalf("Load() with unsupported mapper: expected error, got nil")
	} else if _, ok := asUnsupportedMapper(err); !ok {
		t.Errorf("error = %v, want *rom.UnsupportedMapperError", err)
	}
}

func asUnsupportedMapper(err error) (*rom.UnsupportedMapperError, bool) {
	e, ok := err.(*rom.UnsupportedMapperError)
	return e, ok
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
