// Package ppu implements the 2C02 picture processing unit: the
// 262x341 dot/scanline pipeline, background and sprite shift-register
// rendering, the "loopy" scroll address registers, sprite evaluation,
// and the 64-color NTSC palette.
package ppu

import (
	"nescore/internal/savestate"
)

const (
	Width  = 256
	Height = 240

	scanlinesPerFrame = 262
	dotsPerScanline   = 341
)

// Cart is the narrow cartridge interface the PPU needs: pattern-table
// and nametable access, plus the A12 notification MMC3-class mappers
// use to derive their scanline IRQ.
type Cart interface {
	PPURead(addr uint16) uint8
	PPUWrite(addr uint16, val uint8)
	NotifyA12(addr uint16)
}

// PPU holds all rendering state for one picture processing unit.
type PPU struct {
	cart Cart

	framebuffer [Width * Height]rgb

	ctrl, mask, status uint8
	oamAddr            uint8
	oam                [256]uint8
	paletteRAM         [32]uint8

	v, t        loopyAddr
	fineX       uint8
	writeToggle bool
	openBus     uint8
	readBuffer  uint8

	scanline int
	dot      int
	oddFrame bool

	nametableLatch, attrLatch, patternLoLatch, patternHiLatch uint8
	bgShiftPatternLo, bgShiftPatternHi                        uint16
	bgShiftAttrLo, bgShiftAttrHi                               uint16

	secondaryOAM          [8]spriteAttr
	secondaryCount        int
	spriteZeroInSecondary bool
	spriteZeroHitPossible bool

	evalPhase      evalState
	oamEvalN       int
	oamEvalM       int
	oamReadLatch   uint8
	pendingOAM     [8]spriteAttr
	pendingCount   int
	pendingSprite0 bool
	spriteFetchIdx int

	nmiLine bool
	// vblankSuppressed is latched by a PPUSTATUS read that coincides
	// with the scanline 241 dot 1 VBlank/NMI edge, racing it: the read
	// either beats the edge (caught one dot early) or arrives just
	// after it, in which case the console un-latches the NMI it
	// already queued. Either way the edge itself is skipped.
	vblankSuppressed bool

	frameDone bool
}

func New(cart Cart) *PPU {
	p := &PPU{cart: cart, scanline: -1, dot: 0}
	return p
}

// SetCart rebinds the PPU to a new Cart. Used when swapping in a
// scratch PPU decoded from a save-state, whose cart field starts nil
// since Cart values aren't serialized.
func (p *PPU) SetCart(cart Cart) { p.cart = cart }

// Framebuffer returns the most recently completed frame as packed
// 0xRRGGBB pixels, row-major, 256x240.
func (p *PPU) Framebuffer() []uint32 {
	out := make([]uint32, len(p.framebuffer))
	for i, c := range p.framebuffer {
		out[i] = uint32(c)
	}
	return out
}

// FrameDone reports whether a full frame has completed since the last
// call, clearing the flag.
func (p *PPU) FrameDone() bool {
	v := p.frameDone
	p.frameDone = false
	return v
}

// ConsumeNMI reports and clears a pending NMI edge.
func (p *PPU) ConsumeNMI() bool {
	v := p.nmiLine
	p.nmiLine = false
	return v
}

// ConsumeVBlankSuppress reports and clears whether a PPUSTATUS read
// has raced the scanline 241 dot 1 VBlank/NMI edge since the last
// call. Console.Read checks this after ticking to unwind an NMI that
// was already latched by the time the race was detected.
func (p *PPU) ConsumeVBlankSuppress() bool {
	v := p.vblankSuppressed
	p.vblankSuppressed = false
	return v
}

func (p *PPU) renderingEnabled() bool {
	return p.mask&(maskShowBG|maskShowSprites) != 0
}

// Tick advances the PPU by exactly one dot (1/3 of a CPU cycle).
func (p *PPU) Tick() {
	prerender := p.scanline == -1
	visible := p.scanline >= 0 && p.scanline < Height

	if prerender && p.dot == 1 {
		p.status &^= statusVBlank | statusSprite0Hit | statusSpriteOverflow
	}

	if (visible || prerender) && p.renderingEnabled() {
		p.tickBackground()
		p.tickSpriteEval()
		if prerender && p.dot >= 280 && p.dot <= 304 {
			p.v.copyVert(p.t)
		}
	}

	if visible && p.dot >= 1 && p.dot <= Width {
		p.renderPixel(p.dot-1, p.scanline)
	}

	p.advance()

	// The VBlank/NMI edge lands on the tick that reaches scanline 241
	// dot 1, so a PPUSTATUS read made while the PPU sits at dot 1 sees
	// it as already fired, and one made at dot 0 can still suppress it.
	if p.scanline == 241 && p.dot == 1 {
		if !p.vblankSuppressed {
			p.status |= statusVBlank
			if p.ctrl&ctrlNMIEnable != 0 {
				p.nmiLine = true
			}
		}
		p.vblankSuppressed = false
		p.frameDone = true
	}
}

func (p *PPU) advance() {
	p.dot++
	if p.dot > 340 {
		p.dot = 0
		p.scanline++
		if p.scanline > 260 {
			p.scanline = -1
			p.oddFrame = !p.oddFrame
		}
	}
	// Odd-frame dot skip: with rendering (background or sprites)
	// enabled, an odd frame's pre-render line starts at dot 1 instead
	// of dot 0, making that frame one dot shorter.
	if p.scanline == -1 && p.dot == 0 && p.oddFrame && p.renderingEnabled() {
		p.dot = 1
	}
}

func (p *PPU) tickBackground() {
	if (p.dot >= 2 && p.dot <= 257) || (p.dot >= 322 && p.dot <= 337) {
		p.shiftRegisters()

		switch (p.dot - 1) % 8 {
		case 0:
			p.reloadShifters()
			p.nametableLatch = p.busRead(p.v.nametableAddr())
		case 2:
			p.attrLatch = p.busRead(p.v.attributeAddr())
			shift := ((p.v.coarseY() & 2) << 1) | (p.v.coarseX() & 2)
			p.attrLatch = (p.attrLatch >> shift) & 0x03
		case 4:
			p.patternLoLatch = p.busRead(p.bgPatternAddr(0))
		case 6:
			addr := p.bgPatternAddr(8)
			p.patternHiLatch = p.busRead(addr)
			p.cart.NotifyA12(addr)
		case 7:
			p.v.incrementCoarseX()
		}
	}

	if p.dot == 256 {
		p.v.incrementFineY()
	}
	if p.dot == 257 {
		p.v.copyHoriz(p.t)
	}
}

func (p *PPU) bgPatternAddr(plane uint16) uint16 {
	table := uint16(0)
	if p.ctrl&ctrlBGPattern != 0 {
		table = 0x1000
	}
	return table + uint16(p.nametableLatch)*16 + p.v.fineY() + plane
}

func (p *PPU) reloadShifters() {
	p.bgShiftPatternLo = (p.bgShiftPatternLo &^ 0x00FF) | uint16(p.patternLoLatch)
	p.bgShiftPatternHi = (p.bgShiftPatternHi &^ 0x00FF) | uint16(p.patternHiLatch)

	var lo, hi uint16
	if p.attrLatch&1 != 0 {
		lo = 0x00FF
	}
	if p.attrLatch&2 != 0 {
		hi = 0x00FF
	}
	p.bgShiftAttrLo = (p.bgShiftAttrLo &^ 0x00FF) | lo
	p.bgShiftAttrHi = (p.bgShiftAttrHi &^ 0x00FF) | hi
}

func (p *PPU) shiftRegisters() {
	if p.mask&maskShowBG == 0 {
		return
	}
	p.bgShiftPatternLo <<= 1
	p.bgShiftPatternHi <<= 1
	p.bgShiftAttrLo <<= 1
	p.bgShiftAttrHi <<= 1
}

func (p *PPU) renderPixel(x, y int) {
	bgPixel, bgPalette := p.backgroundPixel(x)
	sprPixel, sprPalette, sprPriority, isSpriteZero := p.spritePixel(x)

	var finalPixel, finalPalette uint8
	switch {
	case bgPixel == 0 && sprPixel == 0:
		finalPixel, finalPalette = 0, 0
	case bgPixel == 0 && sprPixel != 0:
		finalPixel, finalPalette = sprPixel, sprPalette+4
	case bgPixel != 0 && sprPixel == 0:
		finalPixel, finalPalette = bgPixel, bgPalette
	default:
		if isSpriteZero && x != 255 && p.mask&(maskShowBG|maskShowSprites) == maskShowBG|maskShowSprites {
			p.status |= statusSprite0Hit
		}
		if sprPriority == priorityFront {
			finalPixel, finalPalette = sprPixel, sprPalette+4
		} else {
			finalPixel, finalPalette = bgPixel, bgPalette
		}
	}

	idx := paletteIndex(0x3F00 | uint16(finalPalette)<<2 | uint16(finalPixel))
	c := systemPalette[p.paletteRAM[idx]&0x3F]
	c = emphasize(c, p.mask)
	p.framebuffer[y*Width+x] = c
}

func (p *PPU) backgroundPixel(x int) (pixel, palette uint8) {
	if p.mask&maskShowBG == 0 || (x < 8 && p.mask&maskShowBGLeft == 0) {
		return 0, 0
	}
	bit := uint16(0x8000) >> p.fineX
	lo := b2u16(p.bgShiftPatternLo&bit != 0)
	hi := b2u16(p.bgShiftPatternHi&bit != 0)
	pixel = uint8(hi<<1 | lo)
	aLo := b2u16(p.bgShiftAttrLo&bit != 0)
	aHi := b2u16(p.bgShiftAttrHi&bit != 0)
	palette = uint8(aHi<<1 | aLo)
	return pixel, palette
}

func (p *PPU) spritePixel(x int) (pixel, palette uint8, prio spritePriority, spriteZero bool) {
	if p.mask&maskShowSprites == 0 || (x < 8 && p.mask&maskShowSpritesLeft == 0) {
		return 0, 0, priorityFront, false
	}
	for i := 0; i < p.secondaryCount; i++ {
		s := &p.secondaryOAM[i]
		offset := x - int(s.x)
		if offset < 0 || offset > 7 {
			continue
		}
		bit := uint(7 - offset)
		lo := (s.patternLo >> bit) & 1
		hi := (s.patternHi >> bit) & 1
		px := hi<<1 | lo
		if px == 0 {
			continue
		}
		return px, s.palette, s.priority, s.index == 0 && p.spriteZeroInSecondary
	}
	return 0, 0, priorityFront, false
}

func b2u16(b bool) uint16 {
	if b {
		return 1
	}
	return 0
}

func (p *PPU) EncodeState(e *savestate.Encoder) {
	e.U8(p.ctrl)
	e.U8(p.mask)
	e.U8(p.status)
	e.U8(p.oamAddr)
	e.Raw(p.oam[:])
	e.Raw(p.paletteRAM[:])
	e.U16(p.v.data)
	e.U16(p.t.data)
	e.U8(p.fineX)
	e.Bool(p.writeToggle)
	e.U8(p.openBus)
	e.U8(p.readBuffer)
	e.U32(uint32(p.scanline))
	e.U32(uint32(p.dot))
	e.Bool(p.oddFrame)
	e.Bool(p.vblankSuppressed)
	e.U8(uint8(p.evalPhase))
	e.U32(uint32(p.oamEvalN))
	e.U32(uint32(p.oamEvalM))
	e.U8(p.oamReadLatch)
	e.U32(uint32(p.pendingCount))
	e.Bool(p.pendingSprite0)
	e.U32(uint32(p.spriteFetchIdx))
	for i := range p.pendingOAM {
		encodeSpriteAttr(e, &p.pendingOAM[i])
	}
	for i := range p.secondaryOAM {
		encodeSpriteAttr(e, &p.secondaryOAM[i])
	}
	e.U32(uint32(p.secondaryCount))
	e.Bool(p.spriteZeroInSecondary)
}

func (p *PPU) DecodeState(d *savestate.Decoder) {
	p.ctrl = d.U8()
	p.mask = d.U8()
	p.status = d.U8()
	p.oamAddr = d.U8()
	d.Raw(p.oam[:])
	d.Raw(p.paletteRAM[:])
	p.v.data = d.U16()
	p.t.data = d.U16()
	p.fineX = d.U8()
	p.writeToggle = d.Bool()
	p.openBus = d.U8()
	p.readBuffer = d.U8()
	p.scanline = int(int32(d.U32()))
	p.dot = int(int32(d.U32()))
	p.oddFrame = d.Bool()
	p.vblankSuppressed = d.Bool()
	p.evalPhase = evalState(d.U8())
	p.oamEvalN = int(int32(d.U32()))
	p.oamEvalM = int(int32(d.U32()))
	p.oamReadLatch = d.U8()
	p.pendingCount = int(int32(d.U32()))
	p.pendingSprite0 = d.Bool()
	p.spriteFetchIdx = int(int32(d.U32()))
	for i := range p.pendingOAM {
		decodeSpriteAttr(d, &p.pendingOAM[i])
	}
	for i := range p.secondaryOAM {
		decodeSpriteAttr(d, &p.secondaryOAM[i])
	}
	p.secondaryCount = int(int32(d.U32()))
	p.spriteZeroInSecondary = d.Bool()
}
