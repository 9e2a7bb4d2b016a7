package ppu

// rgb is a packed 0xRRGGBB color, the framebuffer's native pixel
// format.
type rgb uint32

func newRGB(r, g, b uint8) rgb {
	return rgb(uint32(r)<<16 | uint32(g)<<8 | uint32(b))
}

// systemPalette is the 64-entry NTSC 2C02 palette. Indices 0x0D,
// 0x0E, 0x0F and their high-nibble-1/2/3 siblings that NESdev flags
// as "blacker than black"/sync-breaking are reproduced faithfully
// rather than clamped, matching how the chip actually outputs them.
var systemPalette = [64]rgb{
	newRGB(0x80, 0x80, 0x80), newRGB(0x00, 0x3D, 0xA6), newRGB(0x00, 0x12, 0xB0), newRGB(0x44, 0x00, 0x96), newRGB(0xA1, 0x00, 0x5E),
	newRGB(0xC7, 0x00, 0x28), newRGB(0xBA, 0x06, 0x00), newRGB(0x8C, 0x17, 0x00), newRGB(0x5C, 0x2F, 0x00), newRGB(0x10, 0x45, 0x00),
	newRGB(0x05, 0x4A, 0x00), newRGB(0x00, 0x47, 0x2E), newRGB(0x00, 0x41, 0x66), newRGB(0x00, 0x00, 0x00), newRGB(0x05, 0x05, 0x05), newRGB(0x05, 0x05, 0x05),
	newRGB(0xC7, 0xC7, 0xC7), newRGB(0x00, 0x77, 0xFF), newRGB(0x21, 0x55, 0xFF), newRGB(0x82, 0x37, 0xFA), newRGB(0xEB, 0x2F, 0xB5),
	newRGB(0xFF, 0x29, 0x50), newRGB(0xFF, 0x22, 0x00), newRGB(0xD6, 0x32, 0x00), newRGB(0xC4, 0x62, 0x00), newRGB(0x35, 0x80, 0x00),
	newRGB(0x05, 0x8F, 0x00), newRGB(0x00, 0x8A, 0x55), newRGB(0x00, 0x99, 0xCC), newRGB(0x21, 0x21, 0x21), newRGB(0x09, 0x09, 0x09), newRGB(0x09, 0x09, 0x09),
	newRGB(0xFF, 0xFF, 0xFF), newRGB(0x0F, 0xD7, 0xFF), newRGB(0x69, 0xA2, 0xFF), newRGB(0xD4, 0x80, 0xFF), newRGB(0xFF, 0x45, 0xF3),
	newRGB(0xFF, 0x61, 0x8B), newRGB(0xFF, 0x88, 0x33), newRGB(0xFF, 0x9C, 0x12), newRGB(0xFA, 0xBC, 0x20), newRGB(0x9F, 0xE3, 0x0E),
	newRGB(0x2B, 0xF0, 0x35), newRGB(0x0C, 0xF0, 0xA4), newRGB(0x05, 0xFB, 0xFF), newRGB(0x5E, 0x5E, 0x5E), newRGB(0x0D, 0x0D, 0x0D), newRGB(0x0D, 0x0D, 0x0D),
	newRGB(0xFF, 0xFF, 0xFF), newRGB(0xA6, 0xFC, 0xFF), newRGB(0xB3, 0xEC, 0xFF), newRGB(0xDA, 0xAB, 0xEB), newRGB(0xFF, 0xA8, 0xF9),
	newRGB(0xFF, 0xAB, 0xB3), newRGB(0xFF, 0xD2, 0xB0), newRGB(0xFF, 0xEF, 0xA6), newRGB(0xFF, 0xF7, 0x9C), newRGB(0xD7, 0xE8, 0x95),
	newRGB(0xA6, 0xED, 0xAF), newRGB(0xA2, 0xF2, 0xDA), newRGB(0x99, 0xFF, 0xFC), newRGB(0xDD, 0xDD, 0xDD), newRGB(0x11, 0x11, 0x11), newRGB(0x11, 0x11, 0x11),
}

// emphasize applies the color-emphasis bits of PPUMASK by the common
// approximation of scaling the de-emphasized channels, rather than
// the chip's true analog NTSC encoder behavior.
func emphasize(c rgb, mask uint8) rgb {
	r := uint32(c>>16) & 0xFF
	g := uint32(c>>8) & 0xFF
	b := uint32(c) & 0xFF

	scale := func(v uint32, dim bool) uint32 {
		if !dim {
			return v
		}
		return v * 3 / 4
	}

	red := mask&maskEmphasizeRed != 0
	green := mask&maskEmphasizeGreen != 0
	blue := mask&maskEmphasizeBlue != 0

	r = scale(r, green || blue)
	g = scale(g, red || blue)
	b = scale(b, red || green)
	return rgb(r<<16 | g<<8 | b)
}
