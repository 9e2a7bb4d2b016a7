package ppu

import "testing"

type fakeCart struct {
	chr  [0x2000]uint8
	nt   [0x1000]uint8
	a12s int
}

func (c *fakeCart) PPURead(addr uint16) uint8 {
	if addr < 0x2000 {
		return c.chr[addr]
	}
	return c.nt[addr&0x0FFF]
}

func (c *fakeCart) PPUWrite(addr uint16, val uint8) {
	if addr < 0x2000 {
		c.chr[addr] = val
		return
	}
	c.nt[addr&0x0FFF] = val
}

func (c *fakeCart) NotifyA12(addr uint16) {
	if addr&0x1000 != 0 {
		c.a12s++
	}
}

func tickN(p *PPU, n int) {
	for i := 0; i < n; i++ {
		p.Tick()
	}
}

func TestPPUADDRWriteTogglesAndSetsV(t *testing.T) {
	p := New(&fakeCart{})
	p.WriteRegister(RegPPUADDR, 0x21)
	p.WriteRegister(RegPPUADDR, 0x08)
	if p.v.data != 0x2108 {
		t.Errorf("v = %#x, want 0x2108", p.v.data)
	}
}

func TestPPUDATAReadIsBufferedExceptPalette(t *testing.T) {
	c := &fakeCart{}
	c.nt[0x108] = 0x42
	p := New(c)
	p.WriteRegister(RegPPUADDR, 0x21)
	p.WriteRegister(RegPPUADDR, 0x08)

	first := p.ReadRegister(RegPPUDATA)
	if first != 0 {
		t.Errorf("first buffered read = %#x, want 0", first)
	}
	second := p.ReadRegister(RegPPUDATA)
	if second != 0x42 {
		t.Errorf("second read = %#x, want 0x42", second)
	}
}

func TestVBlankFlagSetAtScanline241(t *testing.T) {
	p := New(&fakeCart{})
	// Advance past scanline 241 dot 1: scanlines -1..241 is 243 lines.
	want := 243*dotsPerScanline + 2
	tickN(p, want)
	if p.status&statusVBlank == 0 {
		t.Errorf("expected vblank flag set at scanline 241")
	}
	if p.ConsumeNMI() {
		// NMI is only raised when the ctrl enable bit is set; it
		// wasn't here.
		t.Errorf("NMI raised with NMI generation disabled")
	}
}

func TestStatusReadClearsVBlankAndResetsToggle(t *testing.T) {
	p := New(&fakeCart{})
	p.status |= statusVBlank
	p.writeToggle = true
	v := p.ReadRegister(RegPPUSTATUS)
	if v&statusVBlank == 0 {
		t.Errorf("expected vblank bit in read value")
	}
	if p.status&statusVBlank != 0 {
		t.Errorf("expected vblank flag cleared after read")
	}
	if p.writeToggle {
		t.Errorf("expected write toggle reset after status read")
	}
}

// TestVBlankSuppressedByReadOneDotEarly covers spec.md section 4.3's
// documented PPUSTATUS/VBlank race: a status read landing one dot
// before scanline 241 dot 1 suppresses both the flag and the NMI that
// dot would otherwise raise.
func TestVBlankSuppressedByReadOneDotEarly(t *testing.T) {
	p := New(&fakeCart{})
	p.WriteRegister(RegPPUCTRL, ctrlNMIEnable)
	// scanlines -1..240 is 242 full lines; stop one dot short of 241/1.
	tickN(p, 242*dotsPerScanline)
	if p.scanline != 241 || p.dot != 0 {
		t.Fatalf("positioning bug: at scanline %d dot %d, want 241/0", p.scanline, p.dot)
	}

	p.ReadRegister(RegPPUSTATUS)
	p.Tick() // dot 0 -> 1, reaches the (now-suppressed) edge
	p.Tick() // dot 1 -> 2

	if p.status&statusVBlank != 0 {
		t.Errorf("VBlank flag set despite coincident early read")
	}
	if p.ConsumeNMI() {
		t.Errorf("NMI raised despite coincident early read")
	}
}

// TestVBlankSuppressReadRightAtEdgeCancelsQueuedNMI covers the other
// half of the race: a read arriving just after the edge already fired
// (as seen from outside the PPU, since Tick and the register read
// can't interleave mid-CPU-cycle) still reports suppression so the
// bus layer can unwind the NMI it already latched.
func TestVBlankSuppressReadRightAtEdgeCancelsQueuedNMI(t *testing.T) {
	p := New(&fakeCart{})
	p.WriteRegister(RegPPUCTRL, ctrlNMIEnable)
	tickN(p, 242*dotsPerScanline+1)
	if p.scanline != 241 || p.dot != 1 {
		t.Fatalf("positioning bug: at scanline %d dot %d, want 241/1", p.scanline, p.dot)
	}
	if !p.ConsumeNMI() {
		t.Fatalf("expected NMI already latched by the dot 1 edge")
	}

	p.ReadRegister(RegPPUSTATUS)
	if !p.ConsumeVBlankSuppress() {
		t.Errorf("expected ConsumeVBlankSuppress to report the race")
	}
}

func TestPaletteMirroring(t *testing.T) {
	p := New(&fakeCart{})
	p.writePalette(0x3F00, 0x10)
	if p.readPalette(0x3F10) != 0x10 {
		t.Errorf("expected $3F10 to mirror $3F00")
	}
}

func TestLoopyIncrementCoarseXWraps(t *testing.T) {
	var l loopyAddr
	l.setCoarseX(31)
	l.incrementCoarseX()
	if l.coarseX() != 0 {
		t.Errorf("coarseX = %d, want 0 after wrap", l.coarseX())
	}
	if l.nametableX() != 1 {
		t.Errorf("expected nametable X toggled on coarse X wrap")
	}
}
