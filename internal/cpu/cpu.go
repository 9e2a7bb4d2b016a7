// Package cpu implements the 2A03's 6502-derived CPU core: registers,
// the full 256-entry opcode table (official and unofficial), and
// cycle-stepped execution in which every single bus cycle the real
// chip performs - including dummy reads and dummy writes - issues
// exactly one Bus access, so a driving console can tick the PPU/APU/
// DMA arbiter from inside Bus.Read and Bus.Write with no separate
// cycle-counting loop.
package cpu

import (
	"nescore/internal/savestate"
)

// Processor status flags. https://www.nesdev.org/obelisk-6502-guide/registers.html
const (
	FlagCarry     uint8 = 1 << 0
	FlagZero      uint8 = 1 << 1
	FlagIRQDis    uint8 = 1 << 2
	FlagDecimal   uint8 = 1 << 3
	FlagBreak     uint8 = 1 << 4
	FlagUnused    uint8 = 1 << 5
	FlagOverflow  uint8 = 1 << 6
	FlagNegative  uint8 = 1 << 7
)

const stackPage = 0x0100

// Interrupt vectors.
const (
	vecNMI   = 0xFFFA
	vecReset = 0xFFFC
	vecIRQ   = 0xFFFE
)

// Bus is the memory and timing interface the CPU drives. Read and
// Write perform one bus cycle each; a driving console's Bus.Read and
// Bus.Write implementations must call through to the PPU/APU/mapper
// dispatch AND advance those subsystems by one CPU cycle (three PPU
// dots and one APU tick; this module's console advances its DMA
// arbiter only while the arbiter holds the bus ahead of a CPU read,
// not on every cycle) before returning, so that
// every dummy read a real 6502 performs has the same side effects it
// would have on hardware.
type Bus interface {
	Read(addr uint16) uint8
	Write(addr uint16, val uint8)

	// NMIPending and IRQPending report the current state of the two
	// interrupt lines, polled once per instruction per spec section
	// 4.2's interrupt-priority rule (NMI always wins, edge-triggered;
	// IRQ is level-triggered and masked by the I flag).
	NMIPending() bool
	IRQPending() bool

	// AckNMI clears the bus's latched NMI edge once the CPU commits
	// to servicing it.
	AckNMI()
}

// CPU holds the 6502 register file and drives instruction decode and
// execution against a Bus.
type CPU struct {
	A, X, Y uint8
	SP      uint8
	PC      uint16
	P       uint8

	bus Bus

	halted bool // set by a JAM/KIL opcode: the real chip locks up

	pendingNMI   bool
	nmiEdgeQueue bool
}

func New(bus Bus) *CPU {
	c := &CPU{bus: bus}
	c.P = FlagUnused | FlagIRQDis
	return c
}

// SetBus rebinds the CPU to a new Bus. Used when swapping in a
// scratch CPU decoded from a save-state, whose bus field starts nil
// since Bus values aren't serialized.
func (c *CPU) SetBus(bus Bus) { c.bus = bus }

// Reset performs the power-up/reset sequence: three dummy stack
// reads (nothing actually written), SP set to 0xFD, the I flag set,
// and a load of PC from the reset vector, spending the 7 cycles of
// the hardware sequence.
func (c *CPU) Reset() {
	c.read(c.PC)
	c.read(c.PC)
	c.read(stackPage | uint16(c.SP))
	c.SP--
	c.read(stackPage | uint16(c.SP))
	c.SP--
	c.read(stackPage | uint16(c.SP))
	c.SP = 0xFD
	c.P |= FlagIRQDis
	lo := c.read(vecReset)
	hi := c.read(vecReset + 1)
	c.PC = uint16(hi)<<8 | uint16(lo)
	c.halted = false
}

func (c *CPU) read(addr uint16) uint8 {
	return c.bus.Read(addr)
}

func (c *CPU) write(addr uint16, val uint8) {
	c.bus.Write(addr, val)
}

func (c *CPU) push(val uint8) {
	c.write(stackPage|uint16(c.SP), val)
	c.SP--
}

func (c *CPU) pop() uint8 {
	c.SP++
	return c.read(stackPage | uint16(c.SP))
}

func (c *CPU) setZN(v uint8) {
	if v == 0 {
		c.P |= FlagZero
	} else {
		c.P &^= FlagZero
	}
	if v&0x80 != 0 {
		c.P |= FlagNegative
	} else {
		c.P &^= FlagNegative
	}
}

func (c *CPU) setFlag(mask uint8, set bool) {
	if set {
		c.P |= mask
	} else {
		c.P &^= mask
	}
}

func (c *CPU) flag(mask uint8) bool { return c.P&mask != 0 }

// Halted reports whether the CPU has executed a JAM/KIL opcode and
// locked up, matching real hardware's fatal-halt behavior for the
// undocumented 0x02/0x12/... family.
func (c *CPU) Halted() bool { return c.halted }

// Step decodes and fully executes one instruction, first servicing
// any pending interrupt. It returns the opcode byte that was
// executed (0 if an interrupt was serviced instead).
func (c *CPU) Step() uint8 {
	if c.halted {
		c.read(c.PC)
		return 0
	}

	if c.bus.NMIPending() {
		c.serviceInterrupt(vecNMI)
		c.bus.AckNMI()
		return 0
	}
	if c.bus.IRQPending() && !c.flag(FlagIRQDis) {
		c.serviceInterrupt(vecIRQ)
		return 0
	}

	op := c.read(c.PC)
	c.PC++
	return c.execute(op)
}

// serviceInterrupt performs the hardware NMI/IRQ sequence: two filler
// reads of PC (no dispatch has happened yet, so nothing to fetch),
// then the usual push-PC/push-P/jump-through-vector sequence with the
// break flag clear, distinguishing it from a software BRK.
func (c *CPU) serviceInterrupt(vec uint16) {
	c.read(c.PC)
	c.read(c.PC)
	c.push(uint8(c.PC >> 8))
	c.push(uint8(c.PC))
	c.push((c.P | FlagUnused) &^ FlagBreak)
	c.P |= FlagIRQDis
	lo := c.read(vec)
	hi := c.read(vec + 1)
	c.PC = uint16(hi)<<8 | uint16(lo)
}

func (c *CPU) EncodeState(e *savestate.Encoder) {
	e.U8(c.A)
	e.U8(c.X)
	e.U8(c.Y)
	e.U8(c.SP)
	e.U16(c.PC)
	e.U8(c.P)
	e.Bool(c.halted)
}

func (c *CPU) DecodeState(d *savestate.Decoder) {
	c.A = d.U8()
	c.X = d.U8()
	c.Y = d.U8()
	c.SP = d.U8()
	c.PC = d.U16()
	c.P = d.U8()
	c.halted = d.Bool()
}
