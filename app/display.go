package app

import (
	"image/color"
	"unicode/utf8"

	"rtk/hal"

	"tinygo.org/x/drivers"
	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/proggy"
)

var (
	screenFont = &proggy.TinySZ8pt7b

	colorBlack = color.RGBA{A: 0xFF}
	colorWhite = color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}
	colorGreen = color.RGBA{R: 0x40, G: 0xE0, B: 0x40, A: 0xFF}
	colorRed   = color.RGBA{R: 0xC0, A: 0xFF}
)

var _ drivers.Displayer = (*fbDisplay)(nil)

// fbDisplay draws into an RGB565 hal.Framebuffer. A framebuffer without
// memory turns every call into a no-op.
type fbDisplay struct {
	fb hal.Framebuffer
}

func newFBDisplay(h hal.HAL) *fbDisplay {
	if h == nil {
		return nil
	}
	disp := h.Display()
	if disp == nil {
		return nil
	}
	fb := disp.Framebuffer()
	if fb == nil || fb.Format() != hal.PixelFormatRGB565 || fb.Buffer() == nil {
		return nil
	}
	return &fbDisplay{fb: fb}
}

func (d *fbDisplay) Size() (x, y int16) {
	return int16(d.fb.Width()), int16(d.fb.Height())
}

func (d *fbDisplay) SetPixel(x, y int16, c color.RGBA) {
	buf := d.fb.Buffer()
	ix, iy := int(x), int(y)
	if ix < 0 || ix >= d.fb.Width() || iy < 0 || iy >= d.fb.Height() {
		return
	}
	off := iy*d.fb.StrideBytes() + ix*2
	if off+1 >= len(buf) {
		return
	}
	pixel := rgb565(c)
	buf[off] = byte(pixel)
	buf[off+1] = byte(pixel >> 8)
}

func (d *fbDisplay) Display() error {
	return d.fb.Present()
}

func (d *fbDisplay) FillRectangle(x, y, width, height int16, c color.RGBA) error {
	w, h := d.fb.Width(), d.fb.Height()
	x0 := clampInt(int(x), 0, w)
	y0 := clampInt(int(y), 0, h)
	x1 := clampInt(int(x)+int(width), 0, w)
	y1 := clampInt(int(y)+int(height), 0, h)
	if x0 >= x1 || y0 >= y1 {
		return nil
	}

	pixel := rgb565(c)
	lo, hi := byte(pixel), byte(pixel>>8)
	buf := d.fb.Buffer()
	stride := d.fb.StrideBytes()
	for py := y0; py < y1; py++ {
		row := py * stride
		for px := x0; px < x1; px++ {
			buf[row+px*2] = lo
			buf[row+px*2+1] = hi
		}
	}
	return nil
}

// textRows writes lines top-down from row, wrapping at the screen width, and
// returns how many rows it used. At most limit rows are written (the whole
// screen when limit <= 0); lines that do not fit are dropped.
func (d *fbDisplay) textRows(lines []string, row, limit int, fg color.RGBA) int {
	lineH := int16(screenFont.YAdvance)
	_, outbox := tinyfont.LineWidth(screenFont, "0")
	charW := int16(outbox)
	if lineH <= 0 || charW <= 0 {
		return 0
	}
	w, h := d.Size()
	cols := w / charW
	rows := int(h / lineH)
	if limit > 0 && row+limit < rows {
		rows = row + limit
	}
	if cols <= 0 {
		return 0
	}

	used := 0
	for _, line := range lines {
		for {
			if row+used >= rows {
				return used
			}
			chunk, rest := takeRunes(line, cols)
			y := int16(row+used)*lineH + lineH - 2
			tinyfont.WriteLine(d, screenFont, 0, y, chunk, fg)
			used++
			if rest == "" {
				break
			}
			line = rest
		}
	}
	return used
}

func rgb565(c color.RGBA) uint16 {
	return uint16(c.R>>3)<<11 | uint16(c.G>>2)<<5 | uint16(c.B>>3)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func takeRunes(s string, n int16) (prefix, rest string) {
	if n <= 0 || s == "" {
		return "", s
	}
	if int64(len(s)) <= int64(n) {
		return s, ""
	}
	var i int
	var count int16
	for i < len(s) && count < n {
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
		count++
	}
	if i >= len(s) {
		return s, ""
	}
	return s[:i], s[i:]
}
