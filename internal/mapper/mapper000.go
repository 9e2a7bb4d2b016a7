package mapper

import (
	"nescore/internal/rom"
	"nescore/internal/savestate"
)

// mapper000 is NROM: no bank switching at all. PRG-ROM is either a
// single 16KB bank mirrored into both halves of 0x8000-0xFFFF, or a
// single fixed 32KB bank. CHR is a fixed 8KB bank, RAM if the
// cartridge has none.
type mapper000 struct {
	base
}

func newMapper000(r *rom.ROM) *mapper000 {
	m := &mapper000{base: newBase(r, 8192)}

	m.mapCPURange(0x6000, bankPRGRAM, 0, 0x2000, attrRW)
	if r.PRGBanks <= 1 {
		// 16KB of PRG-ROM mirrored across both halves.
		m.mapCPURange(0x8000, bankPRGROM, 0, 0x4000, attrRO)
		m.mapCPURange(0xC000, bankPRGROM, 0, 0x4000, attrRO)
	} else {
		m.mapCPURange(0x8000, bankPRGROM, 0, 0x8000, attrRO)
	}

	chrAttr := attrRO
	if m.chrRAM {
		chrAttr = attrRW
	}
	m.mapPPURange(0x0000, bankCHR, 0, 0x2000, chrAttr)

	switch r.Mirroring {
	case rom.MirrorVertical:
		m.setMirrorVertical()
	case rom.MirrorFourScreen:
		m.setMirrorFourScreen()
	default:
		m.setMirrorHorizontal()
	}

	return m
}

func (m *mapper000) CPURead(addr uint16) uint8       { return m.cpuRead(addr) }
func (m *mapper000) CPUWrite(addr uint16, val uint8) { m.cpuWrite(addr, val) }
func (m *mapper000) PPURead(addr uint16) uint8       { return m.ppuRead(addr) }
func (m *mapper000) PPUWrite(addr uint16, val uint8) { m.ppuWrite(addr, val) }
func (m *mapper000) NotifyA12(addr uint16)           {}
func (m *mapper000) IRQ() bool                       { return false }

func (m *mapper000) EncodeState(e *savestate.Encoder) { m.encodeState(e) }
func (m *mapper000) DecodeState(d *savestate.Decoder) { m.decodeState(d) }
