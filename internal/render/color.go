package render

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// ParseHex parses #rgb or #rrggbb into an opaque color.
func ParseHex(s string) (color.NRGBA, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) != 6 {
		return color.NRGBA{}, fmt.Errorf("invalid hex color %q", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid hex color %q", s)
	}
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}

// blend composites c with opacity alpha over the pixel at (x, y).
func (c *canvas) blend(x, y int, col color.NRGBA, alpha float64) {
	if x < 0 || y < 0 || x >= c.w || y >= c.h {
		return
	}
	i := c.img.PixOffset(x, y)
	p := c.img.Pix[i : i+4 : i+4]
	a := alpha * float64(col.A) / 255
	p[0] = mix(p[0], col.R, a)
	p[1] = mix(p[1], col.G, a)
	p[2] = mix(p[2], col.B, a)
	p[3] = 0xff
}

func mix(dst, src uint8, a float64) uint8 {
	return uint8(float64(src)*a + float64(dst)*(1-a) + 0.5)
}
