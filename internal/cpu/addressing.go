package cpu

// Addressing-mode resolvers. Each issues exactly the bus cycles real
// 6502 hardware performs for that mode, including the dummy reads a
// page-crossing indexed access or an indexed zero-page access always
// triggers, since those dummy reads matter: a dummy read of a PPU
// register has side effects.

func (c *CPU) fetch() uint8 {
	v := c.read(c.PC)
	c.PC++
	return v
}

func (c *CPU) fetch16() uint16 {
	lo := c.fetch()
	hi := c.fetch()
	return uint16(hi)<<8 | uint16(lo)
}

// dummyReadPC re-reads the current PC without consuming it, the
// filler cycle implied/accumulator-mode instructions spend after the
// opcode fetch.
func (c *CPU) dummyReadPC() { c.read(c.PC) }

func (c *CPU) addrZeroPage() uint16 {
	return uint16(c.fetch())
}

func (c *CPU) addrZeroPageIndexed(index uint8) uint16 {
	base := c.fetch()
	c.read(uint16(base))
	return uint16(base + index)
}

func (c *CPU) addrAbsolute() uint16 {
	return c.fetch16()
}

// addrAbsoluteIndexed resolves an absolute,X/Y operand. forceFixed is
// set by read-modify-write and store instructions, which always spend
// the extra cycle regardless of whether the page actually changes.
func (c *CPU) addrAbsoluteIndexed(index uint8, forceFixed bool) (addr uint16, pageCrossed bool) {
	lo := c.fetch()
	hi := c.fetch()
	base := uint16(hi)<<8 | uint16(lo)
	addr = base + uint16(index)
	pageCrossed = (base & 0xFF00) != (addr & 0xFF00)
	if pageCrossed || forceFixed {
		wrong := (base & 0xFF00) | (addr & 0x00FF)
		c.read(wrong)
	}
	return addr, pageCrossed
}

func (c *CPU) addrIndirectX() uint16 {
	base := c.fetch()
	c.read(uint16(base))
	ptr := base + c.X
	lo := c.read(uint16(ptr))
	hi := c.read(uint16(ptr + 1))
	return uint16(hi)<<8 | uint16(lo)
}

func (c *CPU) addrIndirectY(forceFixed bool) (addr uint16, pageCrossed bool) {
	base := c.fetch()
	lo := c.read(uint16(base))
	hi := c.read(uint16(base + 1))
	baseAddr := uint16(hi)<<8 | uint16(lo)
	addr = baseAddr + uint16(c.Y)
	pageCrossed = (baseAddr & 0xFF00) != (addr & 0xFF00)
	if pageCrossed || forceFixed {
		wrong := (baseAddr & 0xFF00) | (addr & 0x00FF)
		c.read(wrong)
	}
	return addr, pageCrossed
}

// addrIndirect resolves JMP (indirect)'s operand, reproducing the
// famous page-wrap bug: if the pointer's low byte is 0xFF, the high
// byte is fetched from the start of the same page rather than the
// next one.
func (c *CPU) addrIndirect() uint16 {
	ptr := c.fetch16()
	lo := c.read(ptr)
	hiAddr := (ptr & 0xFF00) | uint16(uint8(ptr)+1)
	hi := c.read(hiAddr)
	return uint16(hi)<<8 | uint16(lo)
}

func (c *CPU) branch(cond bool) {
	offset := int8(c.fetch())
	if !cond {
		return
	}
	c.read(c.PC)
	newPC := uint16(int32(c.PC) + int32(offset))
	if newPC&0xFF00 != c.PC&0xFF00 {
		wrong := (c.PC & 0xFF00) | (newPC & 0x00FF)
		c.read(wrong)
	}
	c.PC = newPC
}
