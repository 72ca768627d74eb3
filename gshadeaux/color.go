package gshadeaux

import (
	math "github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/glgl/math/ms1"
)

// HSV conversion and interpolation follow Esme Lamb's (@dedelala) color
// manipulation work presented at Gophercon AU 2024.
// https://github.com/dedelala/disco/tree/main/color

// LerpColorHSV interpolates between RGB colors c0 and c1 through HSV space
// along the shortest hue arc. Components are clamped to [0,1].
func LerpColorHSV(c0, c1 ms3.Vec, t float32) ms3.Vec {
	h0, s0, v0 := rgbToHSV(clampRGB(c0))
	h1, s1, v1 := rgbToHSV(clampRGB(c1))
	h, s, v := interpHSV(h0, s0, v0, h1, s1, v1, ms1.Clamp(t, 0, 1))
	if h > 1 {
		h -= 1
	}
	r, g, b := hsvToRGB(h, s, v)
	return ms3.Vec{X: r, Y: g, Z: b}
}

// HueCycle returns a fully saturated color whose hue advances one full turn
// per unit of t, useful for animating light colors.
func HueCycle(t, value float32) ms3.Vec {
	h := t - math.Floor(t)
	r, g, b := hsvToRGB(h, 1, ms1.Clamp(value, 0, 1))
	return ms3.Vec{X: r, Y: g, Z: b}
}

func clampRGB(c ms3.Vec) (r, g, b float32) {
	return ms1.Clamp(c.X, 0, 1), ms1.Clamp(c.Y, 0, 1), ms1.Clamp(c.Z, 0, 1)
}

func interpHSV(h0, s0, v0, h1, s1, v1, t float32) (h, s, v float32) {
	switch {
	case h1-h0 > 0.5:
		h0 += 1.0
	case h1-h0 < -0.5:
		h1 += 1.0
	}
	h = ms1.Interp(h0, h1, t)
	s = ms1.Interp(s0, s1, t)
	v = ms1.Interp(v0, v1, t)
	return h, s, v
}

// cToRGB converts a 24 bit RGB value stored in the least significant bits.
func cToRGB(c uint32) (r, g, b float32) {
	r = float32(uint8(c>>16)) / math.MaxUint8
	g = float32(uint8(c>>8)) / math.MaxUint8
	b = float32(uint8(c)) / math.MaxUint8
	return r, g, b
}

// hsvToRGB converts hue, saturation and brightness values on the range of 0.0
// to 1.0 to RGB floating point values on the range of 0.0 to 1.0
func hsvToRGB(h, s, v float32) (r, g, b float32) {
	var (
		c = s * v
		x = c * (1 - math.Abs(math.Mod(h*6, 2)-1))
		m = v - c
	)
	switch {
	case h >= 0 && h <= 1.0/6:
		r, g, b = c, x, 0
	case h > 1.0/6 && h <= 2.0/6:
		r, g, b = x, c, 0
	case h > 2.0/6 && h <= 3.0/6:
		r, g, b = 0, c, x
	case h > 3.0/6 && h <= 4.0/6:
		r, g, b = 0, x, c
	case h > 4.0/6 && h <= 5.0/6:
		r, g, b = x, 0, c
	case h > 5.0/6 && h <= 1.0:
		r, g, b = c, 0, x
	}
	return r + m, g + m, b + m
}

// rgbToHSV converts red, green, and blue floating point values on the range
// 0.0 to 1.0 to hue, saturation and brightness values on the range 0.0 to 1.0
func rgbToHSV(r, g, b float32) (h, s, v float32) {
	var (
		xmax = max(r, g, b)
		xmin = min(r, g, b)
		c    = xmax - xmin
	)
	v = xmax
	switch {
	case c == 0:
		h = 0
	case v == r:
		h = (g - b) / (c * 6)
	case v == g:
		h = 1.0/3 + (b-r)/(c*6)
	case v == b:
		h = 2.0/3 + (r-g)/(c*6)
	}
	if h < 0 {
		h += 1
	}
	if xmax > 0 {
		s = c / xmax
	}
	return h, s, v
}
