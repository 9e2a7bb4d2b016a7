package cpu

// execute dispatches a fetched opcode byte to its handler. Handlers
// perform their own operand fetch via the addressing helpers in
// addressing.go, so the bus cycles they issue are exactly the ones
// real hardware spends on that opcode/mode pair.
func (c *CPU) execute(op uint8) uint8 {
	if fn := opTable[op]; fn != nil {
		fn(c)
	} else {
		c.jam()
	}
	return op
}

func b2u(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

// --- flag-setting arithmetic primitives ---

func (c *CPU) adc(v uint8) {
	sum := uint16(c.A) + uint16(v) + uint16(b2u(c.flag(FlagCarry)))
	result := uint8(sum)
	c.setFlag(FlagCarry, sum > 0xFF)
	c.setFlag(FlagOverflow, (c.A^v)&0x80 == 0 && (c.A^result)&0x80 != 0)
	c.A = result
	c.setZN(c.A)
}

func (c *CPU) sbc(v uint8) { c.adc(v ^ 0xFF) }

func (c *CPU) cmp(reg, v uint8) {
	c.setFlag(FlagCarry, reg >= v)
	c.setZN(reg - v)
}

func (c *CPU) asl(v uint8) uint8 {
	c.setFlag(FlagCarry, v&0x80 != 0)
	r := v << 1
	c.setZN(r)
	return r
}

func (c *CPU) lsr(v uint8) uint8 {
	c.setFlag(FlagCarry, v&1 != 0)
	r := v >> 1
	c.setZN(r)
	return r
}

func (c *CPU) rol(v uint8) uint8 {
	carryIn := b2u(c.flag(FlagCarry))
	c.setFlag(FlagCarry, v&0x80 != 0)
	r := (v << 1) | carryIn
	c.setZN(r)
	return r
}

func (c *CPU) ror(v uint8) uint8 {
	carryIn := b2u(c.flag(FlagCarry))
	c.setFlag(FlagCarry, v&1 != 0)
	r := (v >> 1) | (carryIn << 7)
	c.setZN(r)
	return r
}

func (c *CPU) bit(v uint8) {
	c.setFlag(FlagZero, c.A&v == 0)
	c.setFlag(FlagOverflow, v&0x40 != 0)
	c.setFlag(FlagNegative, v&0x80 != 0)
}

// rmw reads addr, writes the unmodified value back (the dummy write
// every read-modify-write instruction performs), computes f(old) and
// writes that back, returning it for instructions that also combine
// the result with the accumulator (SLO/RLA/SRE/RRA/DCP/ISC).
func (c *CPU) rmw(addr uint16, f func(uint8) uint8) uint8 {
	old := c.read(addr)
	c.write(addr, old)
	nv := f(old)
	c.write(addr, nv)
	return nv
}

// --- stack / control flow ---

func (c *CPU) php() {
	c.dummyReadPC()
	c.push(c.P | FlagBreak | FlagUnused)
}

func (c *CPU) plp() {
	c.dummyReadPC()
	c.read(stackPage | uint16(c.SP))
	c.P = (c.pop() &^ FlagBreak) | FlagUnused
}

func (c *CPU) pha() {
	c.dummyReadPC()
	c.push(c.A)
}

func (c *CPU) pla() {
	c.dummyReadPC()
	c.read(stackPage | uint16(c.SP))
	c.A = c.pop()
	c.setZN(c.A)
}

func (c *CPU) jsr() {
	lo := c.fetch()
	c.read(stackPage | uint16(c.SP)) // internal delay cycle
	ret := c.PC                      // already points at the high-address byte
	hi := c.read(c.PC)
	c.push(uint8(ret >> 8))
	c.push(uint8(ret))
	c.PC = uint16(hi)<<8 | uint16(lo)
}

func (c *CPU) rts() {
	c.dummyReadPC()
	c.read(stackPage | uint16(c.SP))
	lo := c.pop()
	hi := c.pop()
	c.PC = uint16(hi)<<8 | uint16(lo)
	c.read(c.PC)
	c.PC++
}

func (c *CPU) rti() {
	c.dummyReadPC()
	c.read(stackPage | uint16(c.SP))
	c.P = (c.pop() &^ FlagBreak) | FlagUnused
	lo := c.pop()
	hi := c.pop()
	c.PC = uint16(hi)<<8 | uint16(lo)
}

func (c *CPU) brk() {
	c.read(c.PC)
	c.PC++
	c.push(uint8(c.PC >> 8))
	c.push(uint8(c.PC))
	c.push(c.P | FlagBreak | FlagUnused)
	c.P |= FlagIRQDis
	lo := c.read(vecIRQ)
	hi := c.read(vecIRQ + 1)
	c.PC = uint16(hi)<<8 | uint16(lo)
}

func (c *CPU) jam() {
	c.halted = true
	c.PC--
}

// opTable maps each opcode byte to its handler. Gaps (no official or
// widely-emulated unofficial meaning) fall through to jam(), matching
// the real chip's behavior for the true illegal-opcode holes.
var opTable [256]func(*CPU)

func init() {
	t := &opTable

	// Loads.
	t[0xA9] = func(c *CPU) { c.A = c.fetch(); c.setZN(c.A) }
	t[0xA5] = func(c *CPU) { c.A = c.read(c.addrZeroPage()); c.setZN(c.A) }
	t[0xB5] = func(c *CPU) { c.A = c.read(c.addrZeroPageIndexed(c.X)); c.setZN(c.A) }
	t[0xAD] = func(c *CPU) { c.A = c.read(c.addrAbsolute()); c.setZN(c.A) }
	t[0xBD] = func(c *CPU) { a, _ := c.addrAbsoluteIndexed(c.X, false); c.A = c.read(a); c.setZN(c.A) }
	t[0xB9] = func(c *CPU) { a, _ := c.addrAbsoluteIndexed(c.Y, false); c.A = c.read(a); c.setZN(c.A) }
	t[0xA1] = func(c *CPU) { c.A = c.read(c.addrIndirectX()); c.setZN(c.A) }
	t[0xB1] = func(c *CPU) { a, _ := c.addrIndirectY(false); c.A = c.read(a); c.setZN(c.A) }

	t[0xA2] = func(c *CPU) { c.X = c.fetch(); c.setZN(c.X) }
	t[0xA6] = func(c *CPU) { c.X = c.read(c.addrZeroPage()); c.setZN(c.X) }
	t[0xB6] = func(c *CPU) { c.X = c.read(c.addrZeroPageIndexed(c.Y)); c.setZN(c.X) }
	t[0xAE] = func(c *CPU) { c.X = c.read(c.addrAbsolute()); c.setZN(c.X) }
	t[0xBE] = func(c *CPU) { a, _ := c.addrAbsoluteIndexed(c.Y, false); c.X = c.read(a); c.setZN(c.X) }

	t[0xA0] = func(c *CPU) { c.Y = c.fetch(); c.setZN(c.Y) }
	t[0xA4] = func(c *CPU) { c.Y = c.read(c.addrZeroPage()); c.setZN(c.Y) }
	t[0xB4] = func(c *CPU) { c.Y = c.read(c.addrZeroPageIndexed(c.X)); c.setZN(c.Y) }
	t[0xAC] = func(c *CPU) { c.Y = c.read(c.addrAbsolute()); c.setZN(c.Y) }
	t[0xBC] = func(c *CPU) { a, _ := c.addrAbsoluteIndexed(c.X, false); c.Y = c.read(a); c.setZN(c.Y) }

	// Stores.
	t[0x85] = func(c *CPU) { c.write(c.addrZeroPage(), c.A) }
	t[0x95] = func(c *CPU) { c.write(c.addrZeroPageIndexed(c.X), c.A) }
	t[0x8D] = func(c *CPU) { c.write(c.addrAbsolute(), c.A) }
	t[0x9D] = func(c *CPU) { a, _ := c.addrAbsoluteIndexed(c.X, true); c.write(a, c.A) }
	t[0x99] = func(c *CPU) { a, _ := c.addrAbsoluteIndexed(c.Y, true); c.write(a, c.A) }
	t[0x81] = func(c *CPU) { c.write(c.addrIndirectX(), c.A) }
	t[0x91] = func(c *CPU) { a, _ := c.addrIndirectY(true); c.write(a, c.A) }

	t[0x86] = func(c *CPU) { c.write(c.addrZeroPage(), c.X) }
	t[0x96] = func(c *CPU) { c.write(c.addrZeroPageIndexed(c.Y), c.X) }
	t[0x8E] = func(c *CPU) { c.write(c.addrAbsolute(), c.X) }

	t[0x84] = func(c *CPU) { c.write(c.addrZeroPage(), c.Y) }
	t[0x94] = func(c *CPU) { c.write(c.addrZeroPageIndexed(c.X), c.Y) }
	t[0x8C] = func(c *CPU) { c.write(c.addrAbsolute(), c.Y) }

	// Transfers.
	t[0xAA] = func(c *CPU) { c.dummyReadPC(); c.X = c.A; c.setZN(c.X) }
	t[0xA8] = func(c *CPU) { c.dummyReadPC(); c.Y = c.A; c.setZN(c.Y) }
	t[0xBA] = func(c *CPU) { c.dummyReadPC(); c.X = c.SP; c.setZN(c.X) }
	t[0x8A] = func(c *CPU) { c.dummyReadPC(); c.A = c.X; c.setZN(c.A) }
	t[0x9A] = func(c *CPU) { c.dummyReadPC(); c.SP = c.X }
	t[0x98] = func(c *CPU) { c.dummyReadPC(); c.A = c.Y; c.setZN(c.A) }

	// Stack.
	t[0x48] = func(c *CPU) { c.pha() }
	t[0x68] = func(c *CPU) { c.pla() }
	t[0x08] = func(c *CPU) { c.php() }
	t[0x28] = func(c *CPU) { c.plp() }

	// ADC/SBC.
	t[0x69] = func(c *CPU) { c.adc(c.fetch()) }
	t[0x65] = func(c *CPU) { c.adc(c.read(c.addrZeroPage())) }
	t[0x75] = func(c *CPU) { c.adc(c.read(c.addrZeroPageIndexed(c.X))) }
	t[0x6D] = func(c *CPU) { c.adc(c.read(c.addrAbsolute())) }
	t[0x7D] = func(c *CPU) { a, _ := c.addrAbsoluteIndexed(c.X, false); c.adc(c.read(a)) }
	t[0x79] = func(c *CPU) { a, _ := c.addrAbsoluteIndexed(c.Y, false); c.adc(c.read(a)) }
	t[0x61] = func(c *CPU) { c.adc(c.read(c.addrIndirectX())) }
	t[0x71] = func(c *CPU) { a, _ := c.addrIndirectY(false); c.adc(c.read(a)) }

	t[0xE9] = func(c *CPU) { c.sbc(c.fetch()) }
	t[0xE5] = func(c *CPU) { c.sbc(c.read(c.addrZeroPage())) }
	t[0xF5] = func(c *CPU) { c.sbc(c.read(c.addrZeroPageIndexed(c.X))) }
	t[0xED] = func(c *CPU) { c.sbc(c.read(c.addrAbsolute())) }
	t[0xFD] = func(c *CPU) { a, _ := c.addrAbsoluteIndexed(c.X, false); c.sbc(c.read(a)) }
	t[0xF9] = func(c *CPU) { a, _ := c.addrAbsoluteIndexed(c.Y, false); c.sbc(c.read(a)) }
	t[0xE1] = func(c *CPU) { c.sbc(c.read(c.addrIndirectX())) }
	t[0xF1] = func(c *CPU) { a, _ := c.addrIndirectY(false); c.sbc(c.read(a)) }
	t[0xEB] = t[0xE9] // unofficial SBC immediate duplicate

	// Logical.
	t[0x29] = func(c *CPU) { c.A &= c.fetch(); c.setZN(c.A) }
	t[0x25] = func(c *CPU) { c.A &= c.read(c.addrZeroPage()); c.setZN(c.A) }
	t[0x35] = func(c *CPU) { c.A &= c.read(c.addrZeroPageIndexed(c.X)); c.setZN(c.A) }
	t[0x2D] = func(c *CPU) { c.A &= c.read(c.addrAbsolute()); c.setZN(c.A) }
	t[0x3D] = func(c *CPU) { a, _ := c.addrAbsoluteIndexed(c.X, false); c.A &= c.read(a); c.setZN(c.A) }
	t[0x39] = func(c *CPU) { a, _ := c.addrAbsoluteIndexed(c.Y, false); c.A &= c.read(a); c.setZN(c.A) }
	t[0x21] = func(c *CPU) { c.A &= c.read(c.addrIndirectX()); c.setZN(c.A) }
	t[0x31] = func(c *CPU) { a, _ := c.addrIndirectY(false); c.A &= c.read(a); c.setZN(c.A) }

	t[0x49] = func(c *CPU) { c.A ^= c.fetch(); c.setZN(c.A) }
	t[0x45] = func(c *CPU) { c.A ^= c.read(c.addrZeroPage()); c.setZN(c.A) }
	t[0x55] = func(c *CPU) { c.A ^= c.read(c.addrZeroPageIndexed(c.X)); c.setZN(c.A) }
	t[0x4D] = func(c *CPU) { c.A ^= c.read(c.addrAbsolute()); c.setZN(c.A) }
	t[0x5D] = func(c *CPU) { a, _ := c.addrAbsoluteIndexed(c.X, false); c.A ^= c.read(a); c.setZN(c.A) }
	t[0x59] = func(c *CPU) { a, _ := c.addrAbsoluteIndexed(c.Y, false); c.A ^= c.read(a); c.setZN(c.A) }
	t[0x41] = func(c *CPU) { c.A ^= c.read(c.addrIndirectX()); c.setZN(c.A) }
	t[0x51] = func(c *CPU) { a, _ := c.addrIndirectY(false); c.A ^= c.read(a); c.setZN(c.A) }

	t[0x09] = func(c *CPU) { c.A |= c.fetch(); c.setZN(c.A) }
	t[0x05] = func(c *CPU) { c.A |= c.read(c.addrZeroPage()); c.setZN(c.A) }
	t[0x15] = func(c *CPU) { c.A |= c.read(c.addrZeroPageIndexed(c.X)); c.setZN(c.A) }
	t[0x0D] = func(c *CPU) { c.A |= c.read(c.addrAbsolute()); c.setZN(c.A) }
	t[0x1D] = func(c *CPU) { a, _ := c.addrAbsoluteIndexed(c.X, false); c.A |= c.read(a); c.setZN(c.A) }
	t[0x19] = func(c *CPU) { a, _ := c.addrAbsoluteIndexed(c.Y, false); c.A |= c.read(a); c.setZN(c.A) }
	t[0x01] = func(c *CPU) { c.A |= c.read(c.addrIndirectX()); c.setZN(c.A) }
	t[0x11] = func(c *CPU) { a, _ := c.addrIndirectY(false); c.A |= c.read(a); c.setZN(c.A) }

	// Compare.
	t[0xC9] = func(c *CPU) { c.cmp(c.A, c.fetch()) }
	t[0xC5] = func(c *CPU) { c.cmp(c.A, c.read(c.addrZeroPage())) }
	t[0xD5] = func(c *CPU) { c.cmp(c.A, c.read(c.addrZeroPageIndexed(c.X))) }
	t[0xCD] = func(c *CPU) { c.cmp(c.A, c.read(c.addrAbsolute())) }
	t[0xDD] = func(c *CPU) { a, _ := c.addrAbsoluteIndexed(c.X, false); c.cmp(c.A, c.read(a)) }
	t[0xD9] = func(c *CPU) { a, _ := c.addrAbsoluteIndexed(c.Y, false); c.cmp(c.A, c.read(a)) }
	t[0xC1] = func(c *CPU) { c.cmp(c.A, c.read(c.addrIndirectX())) }
	t[0xD1] = func(c *CPU) { a, _ := c.addrIndirectY(false); c.cmp(c.A, c.read(a)) }

	t[0xE0] = func(c *CPU) { c.cmp(c.X, c.fetch()) }
	t[0xE4] = func(c *CPU) { c.cmp(c.X, c.read(c.addrZeroPage())) }
	t[0xEC] = func(c *CPU) { c.cmp(c.X, c.read(c.addrAbsolute())) }

	t[0xC0] = func(c *CPU) { c.cmp(c.Y, c.fetch()) }
	t[0xC4] = func(c *CPU) { c.cmp(c.Y, c.read(c.addrZeroPage())) }
	t[0xCC] = func(c *CPU) { c.cmp(c.Y, c.read(c.addrAbsolute())) }

	// BIT.
	t[0x24] = func(c *CPU) { c.bit(c.read(c.addrZeroPage())) }
	t[0x2C] = func(c *CPU) { c.bit(c.read(c.addrAbsolute())) }

	// Shifts/rotates: accumulator and memory forms.
	t[0x0A] = func(c *CPU) { c.dummyReadPC(); c.A = c.asl(c.A) }
	t[0x06] = func(c *CPU) { c.rmw(c.addrZeroPage(), c.asl) }
	t[0x16] = func(c *CPU) { c.rmw(c.addrZeroPageIndexed(c.X), c.asl) }
	t[0x0E] = func(c *CPU) { c.rmw(c.addrAbsolute(), c.asl) }
	t[0x1E] = func(c *CPU) { a, _ := c.addrAbsoluteIndexed(c.X, true); c.rmw(a, c.asl) }

	t[0x4A] = func(c *CPU) { c.dummyReadPC(); c.A = c.lsr(c.A) }
	t[0x46] = func(c *CPU) { c.rmw(c.addrZeroPage(), c.lsr) }
	t[0x56] = func(c *CPU) { c.rmw(c.addrZeroPageIndexed(c.X), c.lsr) }
	t[0x4E] = func(c *CPU) { c.rmw(c.addrAbsolute(), c.lsr) }
	t[0x5E] = func(c *CPU) { a, _ := c.addrAbsoluteIndexed(c.X, true); c.rmw(a, c.lsr) }

	t[0x2A] = func(c *CPU) { c.dummyReadPC(); c.A = c.rol(c.A) }
	t[0x26] = func(c *CPU) { c.rmw(c.addrZeroPage(), c.rol) }
	t[0x36] = func(c *CPU) { c.rmw(c.addrZeroPageIndexed(c.X), c.rol) }
	t[0x2E] = func(c *CPU) { c.rmw(c.addrAbsolute(), c.rol) }
	t[0x3E] = func(c *CPU) { a, _ := c.addrAbsoluteIndexed(c.X, true); c.rmw(a, c.rol) }

	t[0x6A] = func(c *CPU) { c.dummyReadPC(); c.A = c.ror(c.A) }
	t[0x66] = func(c *CPU) { c.rmw(c.addrZeroPage(), c.ror) }
	t[0x76] = func(c *CPU) { c.rmw(c.addrZeroPageIndexed(c.X), c.ror) }
	t[0x6E] = func(c *CPU) { c.rmw(c.addrAbsolute(), c.ror) }
	t[0x7E] = func(c *CPU) { a, _ := c.addrAbsoluteIndexed(c.X, true); c.rmw(a, c.ror) }

	// INC/DEC.
	inc := func(v uint8) uint8 { return v + 1 }
	dec := func(v uint8) uint8 { return v - 1 }
	t[0xE6] = func(c *CPU) { c.rmw(c.addrZeroPage(), inc) }
	t[0xF6] = func(c *CPU) { c.rmw(c.addrZeroPageIndexed(c.X), inc) }
	t[0xEE] = func(c *CPU) { c.rmw(c.addrAbsolute(), inc) }
	t[0xFE] = func(c *CPU) { a, _ := c.addrAbsoluteIndexed(c.X, true); c.rmw(a, inc) }
	t[0xC6] = func(c *CPU) { c.rmw(c.addrZeroPage(), dec) }
	t[0xD6] = func(c *CPU) { c.rmw(c.addrZeroPageIndexed(c.X), dec) }
	t[0xCE] = func(c *CPU) { c.rmw(c.addrAbsolute(), dec) }
	t[0xDE] = func(c *CPU) { a, _ := c.addrAbsoluteIndexed(c.X, true); c.rmw(a, dec) }

	t[0xE8] = func(c *CPU) { c.dummyReadPC(); c.X++; c.setZN(c.X) }
	t[0xC8] = func(c *CPU) { c.dummyReadPC(); c.Y++; c.setZN(c.Y) }
	t[0xCA] = func(c *CPU) { c.dummyReadPC(); c.X--; c.setZN(c.X) }
	t[0x88] = func(c *CPU) { c.dummyReadPC(); c.Y--; c.setZN(c.Y) }

	// Flags.
	t[0x18] = func(c *CPU) { c.dummyReadPC(); c.setFlag(FlagCarry, false) }
	t[0x38] = func(c *CPU) { c.dummyReadPC(); c.setFlag(FlagCarry, true) }
	t[0x58] = func(c *CPU) { c.dummyReadPC(); c.setFlag(FlagIRQDis, false) }
	t[0x78] = func(c *CPU) { c.dummyReadPC(); c.setFlag(FlagIRQDis, true) }
	t[0xB8] = func(c *CPU) { c.dummyReadPC(); c.setFlag(FlagOverflow, false) }
	t[0xD8] = func(c *CPU) { c.dummyReadPC(); c.setFlag(FlagDecimal, false) }
	t[0xF8] = func(c *CPU) { c.dummyReadPC(); c.setFlag(FlagDecimal, true) }

	// Branches.
	t[0x90] = func(c *CPU) { c.branch(!c.flag(FlagCarry)) }
	t[0xB0] = func(c *CPU) { c.branch(c.flag(FlagCarry)) }
	t[0xF0] = func(c *CPU) { c.branch(c.flag(FlagZero)) }
	t[0xD0] = func(c *CPU) { c.branch(!c.flag(FlagZero)) }
	t[0x30] = func(c *CPU) { c.branch(c.flag(FlagNegative)) }
	t[0x10] = func(c *CPU) { c.branch(!c.flag(FlagNegative)) }
	t[0x50] = func(c *CPU) { c.branch(!c.flag(FlagOverflow)) }
	t[0x70] = func(c *CPU) { c.branch(c.flag(FlagOverflow)) }

	// Jumps/calls.
	t[0x4C] = func(c *CPU) { c.PC = c.addrAbsolute() }
	t[0x6C] = func(c *CPU) { c.PC = c.addrIndirect() }
	t[0x20] = func(c *CPU) { c.jsr() }
	t[0x60] = func(c *CPU) { c.rts() }
	t[0x40] = func(c *CPU) { c.rti() }
	t[0x00] = func(c *CPU) { c.brk() }

	// NOP (official).
	t[0xEA] = func(c *CPU) { c.dummyReadPC() }

	installUnofficial(t)
}

// installUnofficial wires the undocumented opcodes NES software and
// test ROMs commonly rely on: combined read-modify-write ops
// (SLO/RLA/SRE/RRA/DCP/ISC), LAX/SAX, a handful of immediate
// combination ops (ANC/ALR/ARR/SBX), the padding NOPs of every
// addressing-mode width, and the JAM family that locks the CPU up.
func installUnofficial(t *[256]func(*CPU)) {
	slo := func(c *CPU, addr uint16) { c.A |= c.rmw(addr, c.asl); c.setZN(c.A) }
	rla := func(c *CPU, addr uint16) { c.A &= c.rmw(addr, c.rol); c.setZN(c.A) }
	sre := func(c *CPU, addr uint16) { c.A ^= c.rmw(addr, c.lsr); c.setZN(c.A) }
	rra := func(c *CPU, addr uint16) { c.adc(c.rmw(addr, c.ror)) }
	dcp := func(c *CPU, addr uint16) { v := c.rmw(addr, func(v uint8) uint8 { return v - 1 }); c.cmp(c.A, v) }
	isc := func(c *CPU, addr uint16) { v := c.rmw(addr, func(v uint8) uint8 { return v + 1 }); c.sbc(v) }

	t[0x07] = func(c *CPU) { slo(c, c.addrZeroPage()) }
	t[0x17] = func(c *CPU) { slo(c, c.addrZeroPageIndexed(c.X)) }
	t[0x0F] = func(c *CPU) { slo(c, c.addrAbsolute()) }
	t[0x1F] = func(c *CPU) { a, _ := c.addrAbsoluteIndexed(c.X, true); slo(c, a) }
	t[0x1B] = func(c *CPU) { a, _ := c.addrAbsoluteIndexed(c.Y, true); slo(c, a) }
	t[0x03] = func(c *CPU) { slo(c, c.addrIndirectX()) }
	t[0x13] = func(c *CPU) { a, _ := c.addrIndirectY(true); slo(c, a) }

	t[0x27] = func(c *CPU) { rla(c, c.addrZeroPage()) }
	t[0x37] = func(c *CPU) { rla(c, c.addrZeroPageIndexed(c.X)) }
	t[0x2F] = func(c *CPU) { rla(c, c.addrAbsolute()) }
	t[0x3F] = func(c *CPU) { a, _ := c.addrAbsoluteIndexed(c.X, true); rla(c, a) }
	t[0x3B] = func(c *CPU) { a, _ := c.addrAbsoluteIndexed(c.Y, true); rla(c, a) }
	t[0x23] = func(c *CPU) { rla(c, c.addrIndirectX()) }
	t[0x33] = func(c *CPU) { a, _ := c.addrIndirectY(true); rla(c, a) }

	t[0x47] = func(c *CPU) { sre(c, c.addrZeroPage()) }
	t[0x57] = func(c *CPU) { sre(c, c.addrZeroPageIndexed(c.X)) }
	t[0x4F] = func(c *CPU) { sre(c, c.addrAbsolute()) }
	t[0x5F] = func(c *CPU) { a, _ := c.addrAbsoluteIndexed(c.X, true); sre(c, a) }
	t[0x5B] = func(c *CPU) { a, _ := c.addrAbsoluteIndexed(c.Y, true); sre(c, a) }
	t[0x43] = func(c *CPU) { sre(c, c.addrIndirectX()) }
	t[0x53] = func(c *CPU) { a, _ := c.addrIndirectY(true); sre(c, a) }

	t[0x67] = func(c *CPU) { rra(c, c.addrZeroPage()) }
	t[0x77] = func(c *CPU) { rra(c, c.addrZeroPageIndexed(c.X)) }
	t[0x6F] = func(c *CPU) { rra(c, c.addrAbsolute()) }
	t[0x7F] = func(c *CPU) { a, _ := c.addrAbsoluteIndexed(c.X, true); rra(c, a) }
	t[0x7B] = func(c *CPU) { a, _ := c.addrAbsoluteIndexed(c.Y, true); rra(c, a) }
	t[0x63] = func(c *CPU) { rra(c, c.addrIndirectX()) }
	t[0x73] = func(c *CPU) { a, _ := c.addrIndirectY(true); rra(c, a) }

	t[0xC7] = func(c *CPU) { dcp(c, c.addrZeroPage()) }
	t[0xD7] = func(c *CPU) { dcp(c, c.addrZeroPageIndexed(c.X)) }
	t[0xCF] = func(c *CPU) { dcp(c, c.addrAbsolute()) }
	t[0xDF] = func(c *CPU) { a, _ := c.addrAbsoluteIndexed(c.X, true); dcp(c, a) }
	t[0xDB] = func(c *CPU) { a, _ := c.addrAbsoluteIndexed(c.Y, true); dcp(c, a) }
	t[0xC3] = func(c *CPU) { dcp(c, c.addrIndirectX()) }
	t[0xD3] = func(c *CPU) { a, _ := c.addrIndirectY(true); dcp(c, a) }

	t[0xE7] = func(c *CPU) { isc(c, c.addrZeroPage()) }
	t[0xF7] = func(c *CPU) { isc(c, c.addrZeroPageIndexed(c.X)) }
	t[0xEF] = func(c *CPU) { isc(c, c.addrAbsolute()) }
	t[0xFF] = func(c *CPU) { a, _ := c.addrAbsoluteIndexed(c.X, true); isc(c, a) }
	t[0xFB] = func(c *CPU) { a, _ := c.addrAbsoluteIndexed(c.Y, true); isc(c, a) }
	t[0xE3] = func(c *CPU) { isc(c, c.addrIndirectX()) }
	t[0xF3] = func(c *CPU) { a, _ := c.addrIndirectY(true); isc(c, a) }

	t[0xA7] = func(c *CPU) { v := c.read(c.addrZeroPage()); c.A, c.X = v, v; c.setZN(v) }
	t[0xB7] = func(c *CPU) { v := c.read(c.addrZeroPageIndexed(c.Y)); c.A, c.X = v, v; c.setZN(v) }
	t[0xAF] = func(c *CPU) { v := c.read(c.addrAbsolute()); c.A, c.X = v, v; c.setZN(v) }
	t[0xBF] = func(c *CPU) { a, _ := c.addrAbsoluteIndexed(c.Y, false); v := c.read(a); c.A, c.X = v, v; c.setZN(v) }
	t[0xA3] = func(c *CPU) { v := c.read(c.addrIndirectX()); c.A, c.X = v, v; c.setZN(v) }
	t[0xB3] = func(c *CPU) { a, _ := c.addrIndirectY(false); v := c.read(a); c.A, c.X = v, v; c.setZN(v) }

	sax := func(c *CPU) uint8 { return c.A & c.X }
	t[0x87] = func(c *CPU) { c.write(c.addrZeroPage(), sax(c)) }
	t[0x97] = func(c *CPU) { c.write(c.addrZeroPageIndexed(c.Y), sax(c)) }
	t[0x8F] = func(c *CPU) { c.write(c.addrAbsolute(), sax(c)) }
	t[0x83] = func(c *CPU) { c.write(c.addrIndirectX(), sax(c)) }

	t[0x0B] = func(c *CPU) { c.A &= c.fetch(); c.setZN(c.A); c.setFlag(FlagCarry, c.A&0x80 != 0) }
	t[0x2B] = t[0x0B]
	t[0x4B] = func(c *CPU) { c.A &= c.fetch(); c.A = c.lsr(c.A) }
	t[0x6B] = func(c *CPU) {
		c.A &= c.fetch()
		c.A = c.ror(c.A)
		c.setFlag(FlagCarry, c.A&0x40 != 0)
		c.setFlag(FlagOverflow, (c.A>>6)&1 != (c.A>>5)&1)
	}
	t[0xCB] = func(c *CPU) {
		v := c.fetch()
		r := (c.A & c.X) - v
		c.setFlag(FlagCarry, (c.A&c.X) >= v)
		c.X = r
		c.setZN(c.X)
	}

	// Unofficial NOPs of every remaining addressing-mode width.
	nop1 := func(c *CPU) { c.dummyReadPC() }
	nopImm := func(c *CPU) { c.fetch() }
	nopZP := func(c *CPU) { c.read(c.addrZeroPage()) }
	nopZPX := func(c *CPU) { c.read(c.addrZeroPageIndexed(c.X)) }
	nopAbs := func(c *CPU) { c.read(c.addrAbsolute()) }
	nopAbsX := func(c *CPU) { a, _ := c.addrAbsoluteIndexed(c.X, false); c.read(a) }
	for _, op := range []uint8{0x1A, 0x3A, 0x5A, 0x7A, 0xDA, 0xFA} {
		t[op] = nop1
	}
	for _, op := range []uint8{0x80, 0x82, 0x89, 0xC2, 0xE2} {
		t[op] = nopImm
	}
	for _, op := range []uint8{0x04, 0x44, 0x64} {
		t[op] = nopZP
	}
	for _, op := range []uint8{0x14, 0x34, 0x54, 0x74, 0xD4, 0xF4} {
		t[op] = nopZPX
	}
	t[0x0C] = nopAbs
	for _, op := range []uint8{0x1C, 0x3C, 0x5C, 0x7C, 0xDC, 0xFC} {
		t[op] = nopAbsX
	}

	for _, op := range []uint8{0x02, 0x12, 0x22, 0x32, 0x42, 0x52, 0x62, 0x72, 0x92, 0xB2, 0xD2, 0xF2} {
		t[op] = func(c *CPU) { c.jam() }
	}

	// Highly unstable combined-register opcodes. Real silicon ANDs in
	// an open-bus term that varies by chip revision and temperature;
	// we follow the common stable approximation of dropping that term
	// rather than modeling it, which still satisfies the decode-never-
	// fails rule without inventing non-deterministic behavior.
	t[0x8B] = func(c *CPU) { c.A = c.X & c.fetch(); c.setZN(c.A) } // ANE/XAA
	t[0xAB] = func(c *CPU) { c.A = c.fetch(); c.X = c.A; c.setZN(c.A) } // LXA/LAX-imm
	t[0xBB] = func(c *CPU) {
		a, _ := c.addrAbsoluteIndexed(c.Y, false)
		v := c.read(a) & c.SP
		c.A, c.X, c.SP = v, v, v
		c.setZN(v)
	} // LAS/LAR
	shx := func(c *CPU, addr, hi uint8) uint8 { return c.X & (hi + 1) }
	shy := func(c *CPU, addr, hi uint8) uint8 { return c.Y & (hi + 1) }
	sha := func(c *CPU, addr, hi uint8) uint8 { return c.A & c.X & (hi + 1) }
	t[0x9C] = func(c *CPU) {
		a, _ := c.addrAbsoluteIndexed(c.X, true)
		c.write(a, shy(c, 0, uint8(a>>8)))
	} // SHY/SYA
	t[0x9E] = func(c *CPU) {
		a, _ := c.addrAbsoluteIndexed(c.Y, true)
		c.write(a, shx(c, 0, uint8(a>>8)))
	} // SHX/SXA
	t[0x9F] = func(c *CPU) {
		a, _ := c.addrAbsoluteIndexed(c.Y, true)
		c.write(a, sha(c, 0, uint8(a>>8)))
	} // SHA/AHX absolute,Y
	t[0x93] = func(c *CPU) {
		a, _ := c.addrIndirectY(true)
		c.write(a, sha(c, 0, uint8(a>>8)))
	} // SHA/AHX (zp),Y
	t[0x9B] = func(c *CPU) {
		a, _ := c.addrAbsoluteIndexed(c.Y, true)
		c.SP = c.A & c.X
		c.write(a, c.SP&(uint8(a>>8)+1))
	} // TAS/SHS
}
