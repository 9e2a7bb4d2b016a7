package ppu

import "nescore/internal/savestate"

// spritePriority selects whether a sprite draws in front of or
// behind the background layer.
type spritePriority uint8

const (
	priorityFront spritePriority = iota
	priorityBehind
)

// spriteAttr is one entry of secondary OAM, decoded from the raw
// 4-byte primary OAM record during sprite evaluation.
type spriteAttr struct {
	index     uint8 // original OAM index, needed for sprite-zero detection
	y         uint8
	tile      uint8
	palette   uint8
	priority  spritePriority
	flipH     bool
	flipV     bool
	x         uint8
	patternLo uint8
	patternHi uint8
}

func decodeSpriteByte2(b uint8) (palette uint8, prio spritePriority, flipH, flipV bool) {
	palette = b & 0x03
	prio = spritePriority((b >> 5) & 1)
	flipH = b&0x40 != 0
	flipV = b&0x80 != 0
	return
}

// evalState names the three phases of the hardware's sprite
// evaluation pipeline, driven one dot at a time from Tick via
// tickSpriteEval: evalClear covers dots 1-64 (pendingOAM is reset to
// zero values in one step at dot 1), evalSearch covers dots 65-256 (primary OAM scanned, up to 8
// in-range sprites copied), and evalIdle covers dots 257-340 (pattern
// fetch already runs off p.dot directly; evalIdle just means "nothing
// left to search this line").
type evalState uint8

const (
	evalIdle evalState = iota
	evalClear
	evalSearch
)

// tickSpriteEval advances one dot of sprite evaluation for the
// scanline that is about to be rendered (p.scanline+1). Results build
// up in pendingOAM across dots 1-320 of the *current* line and are
// swapped into secondaryOAM at dot 1 of the *next* line, matching the
// one-line pipeline delay real sprite rendering hardware has: the
// shift registers for line N are loaded during line N-1, so clearing
// pendingOAM to start line N+1's search can't disturb what line N is
// still drawing from secondaryOAM.
func (p *PPU) tickSpriteEval() {
	switch {
	case p.dot == 1:
		p.secondaryOAM = p.pendingOAM
		p.secondaryCount = p.pendingCount
		p.spriteZeroInSecondary = p.pendingSprite0
		p.pendingOAM = [8]spriteAttr{}
		p.pendingCount = 0
		p.pendingSprite0 = false
		p.oamEvalN, p.oamEvalM = 0, 0
		p.evalPhase = evalClear
	case p.dot == 65:
		p.evalPhase = evalSearch
		p.evalSpriteDot()
	case p.dot >= 65 && p.dot <= 256:
		p.evalSpriteDot()
	case p.dot == 257:
		p.evalPhase = evalIdle
		p.spriteFetchIdx = 0
	case p.dot >= 257 && p.dot <= 320 && (p.dot-257)%8 == 7:
		p.fetchSpritePattern(p.spriteFetchIdx)
		p.spriteFetchIdx++
	}
}

// evalSpriteDot runs one read/evaluate step of the dots 65-256 search.
// Odd dots latch a primary OAM byte; even dots act on it, mirroring
// the hardware's read-then-decide cadence. Once eight sprites are
// found it keeps walking OAM with the same odd/even cadence solely to
// reproduce the diagonal-read overflow bug: the evaluator doesn't
// re-align to byte 0 of each sprite once in the overflow search, so
// it sets the overflow flag on some false positives too.
func (p *PPU) evalSpriteDot() {
	if p.oamEvalN >= 64 {
		return
	}

	spriteHeight := 8
	if p.ctrl&ctrlSpriteSize8x16 != 0 {
		spriteHeight = 16
	}

	odd := (p.dot-65)%2 == 0
	n, m := p.oamEvalN, p.oamEvalM

	if odd {
		p.oamReadLatch = p.oam[n*4+m]
		return
	}

	row := int(p.scanline) + 1 - int(p.oamReadLatch)
	inRange := row >= 0 && row < spriteHeight

	if p.pendingCount < 8 {
		if m == 0 {
			if !inRange {
				p.oamEvalN++
				return
			}
			pal, prio, flipH, flipV := decodeSpriteByte2(p.oam[n*4+2])
			p.pendingOAM[p.pendingCount] = spriteAttr{
				index:    uint8(n),
				y:        p.oamReadLatch,
				tile:     p.oam[n*4+1],
				palette:  pal,
				priority: prio,
				flipH:    flipH,
				flipV:    flipV,
				x:        p.oam[n*4+3],
			}
			if n == 0 {
				p.pendingSprite0 = true
			}
			p.oamEvalM = 1
			return
		}
		p.oamEvalM++
		if p.oamEvalM == 4 {
			p.pendingCount++
			p.oamEvalM = 0
			p.oamEvalN++
		}
		return
	}

	if inRange {
		p.status |= statusSpriteOverflow
		p.oamEvalM++
		if p.oamEvalM == 4 {
			p.oamEvalM = 0
			p.oamEvalN++
		}
		return
	}
	p.oamEvalN++
	p.oamEvalM = (p.oamEvalM + 1) % 4
}

// fetchSpritePattern loads the pattern-table bytes for the i'th
// sprite pendingOAM has found so far, one sprite per 8 dots across
// dots 257-320, and flips rows/columns in place.
func (p *PPU) fetchSpritePattern(i int) {
	if i >= p.pendingCount {
		return
	}

	spriteHeight := 8
	if p.ctrl&ctrlSpriteSize8x16 != 0 {
		spriteHeight = 16
	}

	s := &p.pendingOAM[i]
	row := int(p.scanline) + 1 - int(s.y)
	if s.flipV {
		row = spriteHeight - 1 - row
	}

	var base uint16
	var tile uint8
	if spriteHeight == 16 {
		table := uint16(s.tile&1) * 0x1000
		tile = s.tile &^ 1
		if row >= 8 {
			tile++
			row -= 8
		}
		base = table + uint16(tile)*16
	} else {
		table := uint16(0)
		if p.ctrl&ctrlSpritePattern != 0 {
			table = 0x1000
		}
		tile = s.tile
		base = table + uint16(tile)*16
	}

	addr := base + uint16(row)
	lo := p.busRead(addr)
	hi := p.busRead(addr + 8)
	p.cart.NotifyA12(addr)
	if s.flipH {
		lo = reverseBits(lo)
		hi = reverseBits(hi)
	}
	s.patternLo = lo
	s.patternHi = hi
}

func encodeSpriteAttr(e *savestate.Encoder, s *spriteAttr) {
	e.U8(s.index)
	e.U8(s.y)
	e.U8(s.tile)
	e.U8(s.palette)
	e.U8(uint8(s.priority))
	e.Bool(s.flipH)
	e.Bool(s.flipV)
	e.U8(s.x)
	e.U8(s.patternLo)
	e.U8(s.patternHi)
}

func decodeSpriteAttr(d *savestate.Decoder, s *spriteAttr) {
	s.index = d.U8()
	s.y = d.U8()
	s.tile = d.U8()
	s.palette = d.U8()
	s.priority = spritePriority(d.U8())
	s.flipH = d.Bool()
	s.flipV = d.Bool()
	s.x = d.U8()
	s.patternLo = d.U8()
	s.patternHi = d.U8()
}

func reverseBits(b uint8) uint8 {
	b = (b&0xF0)>>4 | (b&0x0F)<<4
	b = (b&0xCC)>>2 | (b&0x33)<<2
	b = (b&0xAA)>>1 | (b&0x55)<<1
	return b
}
