package mapper

import (
	"nescore/internal/rom"
	"nescore/internal/savestate"
)

// mapper001 is MMC1: CPU writes to 0x8000-0xFFFF feed a 5-bit serial
// shift register, one bit per write (LSB first); on the fifth write
// the accumulated value latches into one of four internal registers
// selected by bits 13-14 of the write address. A write with bit 7 set
// resets the shift register and forces PRG mode 3, independent of how
// many bits had been shifted in.
type mapper001 struct {
	base

	shift      uint8
	shiftCount uint8

	control uint8 // mirroring (1:0), PRG mode (3:2), CHR mode (4)
	chrBank [2]uint8
	prgBank uint8

	prgBanks16k int
	chrBanks4k  int
}

func newMapper001(r *rom.ROM) *mapper001 {
	m := &mapper001{
		base:        newBase(r, 8192),
		control:     0x0C, // PRG mode 3 (fixed last bank) on power-up
		prgBanks16k: len(r.PRG) / 0x4000,
	}
	if m.chrRAM {
		m.chrBanks4k = len(m.chr) / 0x1000
	} else {
		m.chrBanks4k = len(r.CHR) / 0x1000
	}
	if m.prgBanks16k == 0 {
		m.prgBanks16k = 1
	}
	if m.chrBanks4k == 0 {
		m.chrBanks4k = 1
	}

	m.mapCPURange(0x6000, bankPRGRAM, 0, 0x2000, attrRW)
	m.applyMirroring()
	m.applyPRGBanks()
	m.applyCHRBanks()
	return m
}

func (m *mapper001) applyMirroring() {
	switch m.control & 0x03 {
	case 0:
		m.setMirrorOneScreenLower()
	case 1:
		m.setMirrorOneScreenUpper()
	case 2:
		m.setMirrorVertical()
	case 3:
		m.setMirrorHorizontal()
	}
}

func (m *mapper001) applyPRGBanks() {
	bank := int(m.prgBank & 0x0F)
	switch (m.control >> 2) & 0x03 {
	case 0, 1:
		// 32KB mode: ignore the low bit of the bank selector and
		// switch both halves together.
		m.mapCPURange(0x8000, bankPRGROM, bank>>1, 0x8000, attrRO)
	case 2:
		// Fixed first bank, switchable 16KB at 0xC000.
		m.mapCPURange(0x8000, bankPRGROM, 0, 0x4000, attrRO)
		m.mapCPURange(0xC000, bankPRGROM, bank, 0x4000, attrRO)
	case 3:
		// Switchable 16KB at 0x8000, fixed last bank.
		m.mapCPURange(0x8000, bankPRGROM, bank, 0x4000, attrRO)
		m.mapCPURange(0xC000, bankPRGROM, m.prgBanks16k-1, 0x4000, attrRO)
	}
}

func (m *mapper001) applyCHRBanks() {
	chrAttr := attrRO
	if m.chrRAM {
		chrAttr = attrRW
	}
	if m.control&0x10 == 0 {
		// 8KB mode: CHR bank 0 selects an 8KB unit, low bit ignored.
		m.mapPPURange(0x0000, bankCHR, int(m.chrBank[0]>>1), 0x2000, chrAttr)
	} else {
		m.mapPPURange(0x0000, bankCHR, int(m.chrBank[0]), 0x1000, chrAttr)
		m.mapPPURange(0x1000, bankCHR, int(m.chrBank[1]), 0x1000, chrAttr)
	}
}

func (m *mapper001) CPURead(addr uint16) uint8 { return m.cpuRead(addr) }

func (m *mapper001) CPUWrite(addr uint16, val uint8) {
	if addr < 0x8000 {
		m.cpuWrite(addr, val)
		return
	}

	if val&0x80 != 0 {
		m.shift = 0
		m.shiftCount = 0
		m.control |= 0x0C
		m.applyPRGBanks()
		return
	}

	m.shift |= (val & 1) << m.shiftCount
	m.shiftCount++
	if m.shiftCount < 5 {
		return
	}

	result := m.shift
	m.shift = 0
	m.shiftCount = 0

	switch {
	case addr < 0xA000:
		m.control = result
		m.applyMirroring()
		m.applyPRGBanks()
		m.applyCHRBanks()
	case addr < 0xC000:
		m.chrBank[0] = result
		m.applyCHRBanks()
	case addr < 0xE000:
		m.chrBank[1] = result
		m.applyCHRBanks()
	default:
		m.prgBank = result
		m.applyPRGBanks()
	}
}

func (m *mapper001) PPURead(addr uint16) uint8       { return m.ppuRead(addr) }
func (m *mapper001) PPUWrite(addr uint16, val uint8) { m.ppuWrite(addr, val) }
func (m *mapper001) NotifyA12(addr uint16)           {}
func (m *mapper001) IRQ() bool                       { return false }

func (m *mapper001) EncodeState(e *savestate.Encoder) {
	e.U8(m.shift)
	e.U8(m.shiftCount)
	e.U8(m.control)
	e.U8(m.chrBank[0])
	e.U8(m.chrBank[1])
	e.U8(m.prgBank)
	m.encodeState(e)
}

func (m *mapper001) DecodeState(d *savestate.Decoder) {
	m.shift = d.U8()
	m.shiftCount = d.U8()
	m.control = d.U8()
	m.chrBank[0] = d.U8()
	m.chrBank[1] = d.U8()
	m.prgBank = d.U8()
	m.decodeState(d)
	m.applyMirroring()
	m.applyPRGBanks()
	m.applyCHRBanks()
}
