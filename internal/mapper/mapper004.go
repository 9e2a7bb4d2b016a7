package mapper

import (
	"nescore/internal/rom"
	"nescore/internal/savestate"
)

// mapper004 is MMC3: two bank-select/bank-data registers pick which
// of eight internal bank registers (R0-R7) is updated, one PRG mode
// bit swaps which 8KB PRG window is fixed to the second-to-last bank,
// one CHR mode bit swaps the 2KB/1KB CHR windows, and a scanline
// counter clocked from PPU address line A12 drives an IRQ used for
// split-screen and status-bar effects.
type mapper004 struct {
	base

	bankSelect uint8
	bankReg    [8]uint8
	mirrorVert bool

	irqLatch   uint8
	irqCounter uint8
	irqReload  bool
	irqEnabled bool
	irqPending bool

	lastA12    uint16
	a12LowSince int // crude low-pulse filter, counted in NotifyA12 calls

	prgBanks8k int
}

func newMapper004(r *rom.ROM) *mapper004 {
	m := &mapper004{base: newBase(r, 8192), prgBanks8k: len(r.PRG) / 0x2000}
	if m.prgBanks8k == 0 {
		m.prgBanks8k = 1
	}

	m.mapCPURange(0x6000, bankPRGRAM, 0, 0x2000, attrRW)

	switch r.Mirroring {
	case rom.MirrorFourScreen:
		m.setMirrorFourScreen()
	case rom.MirrorVertical:
		m.mirrorVert = true
		m.setMirrorVertical()
	default:
		m.setMirrorHorizontal()
	}

	m.applyPRGBanks()
	m.applyCHRBanks()
	return m
}

func (m *mapper004) applyPRGBanks() {
	last := m.prgBanks8k - 1
	r6 := int(m.bankReg[6])
	r7 := int(m.bankReg[7])

	if m.bankSelect&0x40 == 0 {
		m.mapCPURange(0x8000, bankPRGROM, r6, 0x2000, attrRO)
		m.mapCPURange(0xA000, bankPRGROM, r7, 0x2000, attrRO)
		m.mapCPURange(0xC000, bankPRGROM, last-1, 0x2000, attrRO)
	} else {
		m.mapCPURange(0x8000, bankPRGROM, last-1, 0x2000, attrRO)
		m.mapCPURange(0xA000, bankPRGROM, r7, 0x2000, attrRO)
		m.mapCPURange(0xC000, bankPRGROM, r6, 0x2000, attrRO)
	}
	m.mapCPURange(0xE000, bankPRGROM, last, 0x2000, attrRO)
}

func (m *mapper004) applyCHRBanks() {
	chrAttr := attrRO
	if m.chrRAM {
		chrAttr = attrRW
	}
	r := m.bankReg

	if m.bankSelect&0x80 == 0 {
		m.mapPPURange(0x0000, bankCHR, int(r[0])>>1, 0x0800, chrAttr)
		m.mapPPURange(0x0800, bankCHR, int(r[1])>>1, 0x0800, chrAttr)
		m.mapPPURange(0x1000, bankCHR, int(r[2]), 0x0400, chrAttr)
		m.mapPPURange(0x1400, bankCHR, int(r[3]), 0x0400, chrAttr)
		m.mapPPURange(0x1800, bankCHR, int(r[4]), 0x0400, chrAttr)
		m.mapPPURange(0x1C00, bankCHR, int(r[5]), 0x0400, chrAttr)
	} else {
		m.mapPPURange(0x0000, bankCHR, int(r[2]), 0x0400, chrAttr)
		m.mapPPURange(0x0400, bankCHR, int(r[3]), 0x0400, chrAttr)
		m.mapPPURange(0x0800, bankCHR, int(r[4]), 0x0400, chrAttr)
		m.mapPPURange(0x0C00, bankCHR, int(r[5]), 0x0400, chrAttr)
		m.mapPPURange(0x1000, bankCHR, int(r[0])>>1, 0x0800, chrAttr)
		m.mapPPURange(0x1800, bankCHR, int(r[1])>>1, 0x0800, chrAttr)
	}
}

func (m *mapper004) CPURead(addr uint16) uint8 { return m.cpuRead(addr) }

func (m *mapper004) CPUWrite(addr uint16, val uint8) {
	switch {
	case addr < 0x8000:
		m.cpuWrite(addr, val)
	case addr < 0xA000:
		if addr&1 == 0 {
			m.bankSelect = val
		} else {
			m.bankReg[m.bankSelect&0x07] = val
		}
		m.applyPRGBanks()
		m.applyCHRBanks()
	case addr < 0xC000:
		if addr&1 == 0 {
			if val&1 == 0 {
				m.setMirrorVertical()
			} else {
				m.setMirrorHorizontal()
			}
		}
		// odd address (PRG-RAM protect) carries no behavior this
		// core's games rely on; left unimplemented.
	case addr < 0xE000:
		if addr&1 == 0 {
			m.irqLatch = val
		} else {
			m.irqCounter = 0
			m.irqReload = true
		}
	default:
		if addr&1 == 0 {
			m.irqEnabled = false
			m.irqPending = false
		} else {
			m.irqEnabled = true
		}
	}
}

func (m *mapper004) PPURead(addr uint16) uint8 {
	v := m.ppuRead(addr)
	m.NotifyA12(addr)
	return v
}

func (m *mapper004) PPUWrite(addr uint16, val uint8) {
	m.ppuWrite(addr, val)
	m.NotifyA12(addr)
}

// NotifyA12 implements the filtered scanline counter clock: the
// counter ticks on a rising edge of address line 12 only after it has
// been held low for several consecutive PPU fetches, which rejects
// the spurious mid-scanline edges sprite fetches would otherwise
// generate.
func (m *mapper004) NotifyA12(addr uint16) {
	a12 := addr & 0x1000
	if a12 == 0 {
		m.a12LowSince++
		m.lastA12 = 0
		return
	}
	if m.lastA12 == 0 && m.a12LowSince >= 8 {
		m.clockIRQCounter()
	}
	m.lastA12 = a12
	m.a12LowSince = 0
}

func (m *mapper004) clockIRQCounter() {
	if m.irqCounter == 0 || m.irqReload {
		m.irqCounter = m.irqLatch
		m.irqReload = false
	} else {
		m.irqCounter--
	}
	if m.irqCounter == 0 && m.irqEnabled {
		m.irqPending = true
	}
}

func (m *mapper004) IRQ() bool { return m.irqPending }

func (m *mapper004) EncodeState(e *savestate.Encoder) {
	e.U8(m.bankSelect)
	e.Raw(m.bankReg[:])
	e.Bool(m.mirrorVert)
	e.U8(m.irqLatch)
	e.U8(m.irqCounter)
	e.Bool(m.irqReload)
	e.Bool(m.irqEnabled)
	e.Bool(m.irqPending)
	e.U16(m.lastA12)
	e.U32(uint32(m.a12LowSince))
	m.encodeState(e)
}

func (m *mapper004) DecodeState(d *savestate.Decoder) {
	m.bankSelect = d.U8()
	d.Raw(m.bankReg[:])
	m.mirrorVert = d.Bool()
	m.irqLatch = d.U8()
	m.irqCounter = d.U8()
	m.irqReload = d.Bool()
	m.irqEnabled = d.Bool()
	m.irqPending = d.Bool()
	m.lastA12 = d.U16()
	m.a12LowSince = int(d.U32())
	m.decodeState(d)
	m.applyPRGBanks()
	m.applyCHRBanks()
}
