// Package colorutil provides shared color utilities for the color counter.
package colorutil

import (
	"image/color"
	"math"
	"strings"
)

// Overlay colors used by the annotator. gocv converts color.RGBA to BGR scalars itself.
var (
	Black  = color.RGBA{R: 0, G: 0, B: 0, A: 255}
	White  = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	Red    = color.RGBA{R: 255, G: 0, B: 0, A: 255}
	Green  = color.RGBA{R: 0, G: 255, B: 0, A: 255}
	Blue   = color.RGBA{R: 0, G: 0, B: 255, A: 255}
	Yellow = color.RGBA{R: 255, G: 255, B: 0, A: 255}
	Gray   = color.RGBA{R: 128, G: 128, B: 128, A: 255}
)

// Swatch returns a display color for a signature name, falling back to gray
// for names that are not plain color words.
func Swatch(name string) color.RGBA {
	switch strings.ToLower(name) {
	case "red":
		return Red
	case "green":
		return Green
	case "blue":
		return Blue
	case "yellow":
		return Yellow
	case "white":
		return White
	case "black":
		return Black
	default:
		return Gray
	}
}

// RGBToHSV converts RGB (0-255) to HSV (OpenCV convention: H 0-180, S 0-255, V 0-255).
func RGBToHSV(r, g, b float64) (h, s, v float64) {
	r /= 255.0
	g /= 255.0
	b /= 255.0

	maxC := math.Max(r, math.Max(g, b))
	minC := math.Min(r, math.Min(g, b))
	diff := maxC - minC

	v = maxC * 255.0

	if maxC == 0 {
		s = 0
	} else {
		s = (diff / maxC) * 255.0
	}

	if diff == 0 {
		h = 0
	} else if maxC == r {
		h = 60 * math.Mod((g-b)/diff, 6)
	} else if maxC == g {
		h = 60 * ((b-r)/diff + 2)
	} else {
		h = 60 * ((r-g)/diff + 4)
	}

	if h < 0 {
		h += 360
	}

	h = h / 2

	return h, s, v
}

// BGRToHSV converts one 8-bit BGR pixel to 8-bit HSV the way
// cv::cvtColor(COLOR_BGR2HSV) does, rounding each channel. Hue wraps 180 to 0.
func BGRToHSV(b, g, r uint8) [3]uint8 {
	h, s, v := RGBToHSV(float64(r), float64(g), float64(b))
	hh := int(math.Round(h))
	if hh >= 180 {
		hh -= 180
	}
	return [3]uint8{uint8(hh), uint8(math.Round(s)), uint8(math.Round(v))}
}
