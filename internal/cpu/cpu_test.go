package cpu

import "testing"

// fakeBus is a flat 64KB RAM image with no interrupts, enough to
// drive the instruction-level tests below.
type fakeBus struct {
	mem     [65536]byte
	nmi     bool
	irq     bool
	ackedNM bool
	ticks   int
}

func (b *fakeBus) Read(addr uint16) uint8 {
	b.ticks++
	return b.mem[addr]
}

func (b *fakeBus) Write(addr uint16, val uint8) {
	b.ticks++
	b.mem[addr] = val
}

func (b *fakeBus) NMIPending() bool { return b.nmi }
func (b *fakeBus) IRQPending() bool { return b.irq }
func (b *fakeBus) AckNMI()          { b.nmi = false; b.ackedNM = true }

func newTestCPU(prog ...uint8) (*CPU, *fakeBus) {
	bus := &fakeBus{}
	copy(bus.mem[0x8000:], prog)
	bus.mem[0xFFFC] = 0x00
	bus.mem[0xFFFD] = 0x80
	c := New(bus)
	c.Reset()
	return c, bus
}

func TestResetVector(t *testing.T) {
	c, _ := newTestCPU(0xEA)
	if c.PC != 0x8000 {
		t.Errorf("PC after reset = %#x, want 0x8000", c.PC)
	}
}

func TestLDAImmediateSetsFlags(t *testing.T) {
	c, _ := newTestCPU(0xA9, 0x00, 0xA9, 0x80)
	c.Step()
	if !c.flag(FlagZero) || c.A != 0 {
		t.Errorf("LDA #0: A=%#x Z=%v", c.A, c.flag(FlagZero))
	}
	c.Step()
	if !c.flag(FlagNegative) || c.A != 0x80 {
		t.Errorf("LDA #$80: A=%#x N=%v", c.A, c.flag(FlagNegative))
	}
}

func TestADCCarryAndOverflow(t *testing.T) {
	c, _ := newTestCPU(0xA9, 0x7F, 0x69, 0x01) // LDA #$7F; ADC #$01
	c.Step()
	c.Step()
	if c.A != 0x80 {
		t.Errorf("A = %#x, want 0x80", c.A)
	}
	if !c.flag(FlagOverflow) {
		t.Errorf("expected overflow flag set")
	}
	if c.flag(FlagCarry) {
		t.Errorf("expected carry clear")
	}
}

func TestJSRRTSRoundTrip(t *testing.T) {
	c, bus := newTestCPU(
		0x20, 0x06, 0x80, // JSR $8006
		0xA9, 0xAA, // (skipped) LDA #$AA
		0xEA,       // filler at 0x8005
		0xA9, 0x42, // $8006: LDA #$42
		0x60, // RTS
	)
	_ = bus
	c.Step() // JSR
	if c.PC != 0x8006 {
		t.Fatalf("PC after JSR = %#x, want 0x8006", c.PC)
	}
	c.Step() // LDA #$42
	if c.A != 0x42 {
		t.Fatalf("A after subroutine LDA = %#x, want 0x42", c.A)
	}
	c.Step() // RTS
	if c.PC != 0x8003 {
		t.Fatalf("PC after RTS = %#x, want 0x8003", c.PC)
	}
}

func TestBranchTakenCostsExtraCycle(t *testing.T) {
	c, bus := newTestCPU(0x38, 0xB0, 0x02, 0xEA, 0xEA, 0xEA) // SEC; BCS +2
	c.Step()                                                 // SEC
	before := bus.ticks
	c.Step() // BCS, taken, same page
	after := bus.ticks
	if after-before != 3 {
		t.Errorf("BCS taken same-page ticks = %d, want 3", after-before)
	}
	if c.PC != 0x8005 {
		t.Errorf("PC after branch = %#x, want 0x8005", c.PC)
	}
}

func TestStackPushPull(t *testing.T) {
	c, _ := newTestCPU(0xA9, 0x37, 0x48, 0xA9, 0x00, 0x68) // LDA #$37; PHA; LDA #0; PLA
	c.Step()
	c.Step()
	c.Step()
	c.Step()
	if c.A != 0x37 {
		t.Errorf("A after PLA = %#x, want 0x37", c.A)
	}
}

func TestJamHalts(t *testing.T) {
	c, _ := newTestCPU(0x02)
	c.Step()
	if !c.Halted() {
		t.Fatal("expected CPU halted after JAM opcode")
	}
	pc := c.PC
	c.Step()
	if c.PC != pc {
		t.Errorf("PC moved after halt: %#x -> %#x", pc, c.PC)
	}
}

func TestNMITakesPriorityOverIRQ(t *testing.T) {
	c, bus := newTestCPU(0xEA)
	bus.mem[0xFFFA] = 0x00
	bus.mem[0xFFFB] = 0x90
	bus.nmi = true
	bus.irq = true
	c.Step()
	if c.PC != 0x9000 {
		t.Errorf("PC after NMI dispatch = %#x, want 0x9000", c.PC)
	}
	if !bus.ackedNM {
		t.Errorf("expected AckNMI to have been called")
	}
}
