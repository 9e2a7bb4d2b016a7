package mapper

import (
	"nescore/internal/rom"
	"nescore/internal/savestate"
)

// mapper002 is UxROM: a bank register selects one of the 16KB PRG-ROM
// banks into 0x8000-0xBFFF; 0xC000-0xFFFF is permanently wired to the
// last PRG bank. CHR is always 8KB of CHR-RAM. Any CPU write in
// 0x8000-0xFFFF (register range) latches the low bits of the written
// value as the new bank select, per spec section 4.6.
type mapper002 struct {
	base
	bankSelect uint8
	prgBanks   int
}

func newMapper002(r *rom.ROM) *mapper002 {
	m := &mapper002{base: newBase(r, 8192), prgBanks: len(r.PRG) / 0x4000}

	m.mapCPURange(0x6000, bankPRGRAM, 0, 0x2000, attrRW)
	m.mapPPURange(0x0000, bankCHR, 0, 0x2000, attrRW)

	switch r.Mirroring {
	case rom.MirrorVertical:
		m.setMirrorVertical()
	case rom.MirrorFourScreen:
		m.setMirrorFourScreen()
	default:
		m.setMirrorHorizontal()
	}

	m.applyBanks()
	return m
}

func (m *mapper002) applyBanks() {
	m.mapCPURange(0x8000, bankPRGROM, int(m.bankSelect), 0x4000, attrRO)
	m.mapCPURange(0xC000, bankPRGROM, m.prgBanks-1, 0x4000, attrRO)
}

func (m *mapper002) CPURead(addr uint16) uint8 { return m.cpuRead(addr) }

func (m *mapper002) CPUWrite(addr uint16, val uint8) {
	if addr >= 0x8000 {
		m.bankSelect = val & 0x0F
		m.applyBanks()
		return
	}
	m.cpuWrite(addr, val)
}

func (m *mapper002) PPURead(addr uint16) uint8       { return m.ppuRead(addr) }
func (m *mapper002) PPUWrite(addr uint16, val uint8) { m.ppuWrite(addr, val) }
func (m *mapper002) NotifyA12(addr uint16)           {}
func (m *mapper002) IRQ() bool                       { return false }

func (m *mapper002) EncodeState(e *savestate.Encoder) {
	e.U8(m.bankSelect)
	m.encodeState(e)
}

func (m *mapper002) DecodeState(d *savestate.Decoder) {
	m.bankSelect = d.U8()
	m.decodeState(d)
	m.applyBanks()
}
