package hal

// packRGB565 encodes a color as rrrrrggggggbbbbb.
func packRGB565(r, g, b uint8) uint16 {
	return uint16(r>>3)<<11 | uint16(g>>2)<<5 | uint16(b>>3)
}

// expandRGB565 converts little-endian RGB565 pixels in src into opaque RGBA
// pixels in dst, stopping when either runs out.
func expandRGB565(dst, src []byte) {
	for i, j := 0, 0; i+1 < len(src) && j+3 < len(dst); i, j = i+2, j+4 {
		p := uint16(src[i]) | uint16(src[i+1])<<8
		dst[j+0] = widen(p>>11&0x1F, 31)
		dst[j+1] = widen(p>>5&0x3F, 63)
		dst[j+2] = widen(p&0x1F, 31)
		dst[j+3] = 0xFF
	}
}

func widen(v, top uint16) uint8 { return uint8(v * 255 / top) }
