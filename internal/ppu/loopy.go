package ppu

// loopyAddr packs the PPU's internal VRAM address register, per
// Loopy's famous scrolling writeup:
//
//	yyy NN YYYYY XXXXX
//	||| || ||||| +++++-- coarse X scroll
//	||| || +++++-------- coarse Y scroll
//	||| ++-------------- nametable select
//	+++----------------- fine Y scroll
type loopyAddr struct {
	data uint16 // only 15 bits used
}

func (l *loopyAddr) coarseX() uint16 { return l.data & 0x001F }

func (l *loopyAddr) setCoarseX(n uint16) {
	l.data = (l.data &^ 0x001F) | (n & 0x001F)
}

// incrementCoarseX wraps at 31 into the horizontal nametable bit,
// rather than overflowing into coarse Y the way a plain add would.
func (l *loopyAddr) incrementCoarseX() {
	if l.coarseX() == 31 {
		l.data &^= 0x001F
		l.data ^= 0x0400
	} else {
		l.data++
	}
}

func (l *loopyAddr) coarseY() uint16 { return (l.data & 0x03E0) >> 5 }

func (l *loopyAddr) setCoarseY(n uint16) {
	l.data = (l.data &^ 0x03E0) | ((n & 0x001F) << 5)
}

// incrementCoarseY wraps at row 29 (the last real tile row) into the
// vertical nametable bit; rows 30-31 are used by some games for
// unrelated storage, and row 31 wraps to 0 without switching
// nametables when read back through this increment.
func (l *loopyAddr) incrementCoarseY() {
	y := l.coarseY()
	switch {
	case y == 29:
		l.data &^= 0x03E0
		l.data ^= 0x0800
	case y == 31:
		l.data &^= 0x03E0
	default:
		l.data = (l.data &^ 0x03E0) | ((y + 1) << 5)
	}
}

func (l *loopyAddr) nametableX() uint16 { return (l.data & 0x0400) >> 10 }
func (l *loopyAddr) nametableY() uint16 { return (l.data & 0x0800) >> 11 }

func (l *loopyAddr) copyHoriz(from loopyAddr) {
	l.data = (l.data &^ 0x041F) | (from.data & 0x041F)
}

func (l *loopyAddr) copyVert(from loopyAddr) {
	l.data = (l.data &^ 0x7BE0) | (from.data & 0x7BE0)
}

func (l *loopyAddr) fineY() uint16 { return (l.data & 0x7000) >> 12 }

func (l *loopyAddr) setFineY(n uint16) {
	l.data = (l.data &^ 0x7000) | ((n & 0x07) << 12)
}

func (l *loopyAddr) incrementFineY() {
	if l.fineY() == 7 {
		l.data &^= 0x7000
		l.incrementCoarseY()
	} else {
		l.data = (l.data &^ 0x7000) | ((l.fineY() + 1) << 12)
	}
}

// nametableAddr returns the full $2000-$2FFF address this register
// currently names, used for background tile/attribute fetches.
func (l *loopyAddr) nametableAddr() uint16 {
	return 0x2000 | (l.data & 0x0FFF)
}

func (l *loopyAddr) attributeAddr() uint16 {
	return 0x23C0 | (l.data & 0x0C00) | ((l.coarseY() >> 2) << 3) | (l.coarseX() >> 2)
}
