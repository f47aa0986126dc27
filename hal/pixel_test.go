package hal

import (
	"slices"
	"testing"
)

func TestPackRGB565(t *testing.T) {
	cases := []struct {
		r, g, b uint8
		want    uint16
	}{
		{0, 0, 0, 0x0000},
		{0xFF, 0xFF, 0xFF, 0xFFFF},
		{0xFF, 0, 0, 0xF800},
		{0, 0xFF, 0, 0x07E0},
		{0, 0, 0xFF, 0x001F},
	}
	for _, c := range cases {
		if got := packRGB565(c.r, c.g, c.b); got != c.want {
			t.Fatalf("packRGB565(%d, %d, %d) = %#04x, want %#04x", c.r, c.g, c.b, got, c.want)
		}
	}
}

func TestExpandRGB565(t *testing.T) {
	src := []byte{0x00, 0xF8, 0xE0, 0x07, 0x1F, 0x00}
	dst := make([]byte, 8)
	expandRGB565(dst, src)

	want := []byte{0xFF, 0, 0, 0xFF, 0, 0xFF, 0, 0xFF}
	if !slices.Equal(dst, want) {
		t.Fatalf("expandRGB565() = % x, want % x", dst, want)
	}
}
