package raster

import (
	"math"

	"github.com/anthonynsimon/bild/parallel"
	"github.com/lucasb-eyer/go-colorful"
)

// Rec. 709 luminance weights.
const (
	lumaR = 0.2126
	lumaG = 0.7152
	lumaB = 0.0722
)

// sepiaMatrix maps (R,G,B) rows to output R, G, B.
var sepiaMatrix = [3][3]float64{
	{0.393, 0.769, 0.189},
	{0.349, 0.686, 0.168},
	{0.272, 0.534, 0.131},
}

// mapRGB applies fn to every pixel's color channels and copies alpha through.
func mapRGB(img *Buffer, fn func(r, g, b uint8) (uint8, uint8, uint8)) (*Buffer, error) {
	if err := img.Validate(); err != nil {
		return nil, err
	}
	out := derive(img, img.Width, img.Height)
	w := img.Width
	parallel.Line(img.Height, func(start, end int) {
		for i := start * w * 4; i < end*w*4; i += 4 {
			out.Pix[i], out.Pix[i+1], out.Pix[i+2] = fn(img.Pix[i], img.Pix[i+1], img.Pix[i+2])
			out.Pix[i+3] = img.Pix[i+3]
		}
	})
	return out, nil
}

func luminance(r, g, b uint8) float64 {
	return lumaR*float64(r) + lumaG*float64(g) + lumaB*float64(b)
}

// Grayscale writes Rec. 709 luminance to R, G and B.
func Grayscale(img *Buffer) (*Buffer, error) {
	return mapRGB(img, func(r, g, b uint8) (uint8, uint8, uint8) {
		y := clampByte(luminance(r, g, b))
		return y, y, y
	})
}

// Sepia applies the classic sepia mixing matrix. Each output channel is
// clamped on its own.
func Sepia(img *Buffer) (*Buffer, error) {
	return mapRGB(img, func(r, g, b uint8) (uint8, uint8, uint8) {
		in := [3]float64{float64(r), float64(g), float64(b)}
		var o [3]uint8
		for c, row := range sepiaMatrix {
			o[c] = clampByte(row[0]*in[0] + row[1]*in[1] + row[2]*in[2])
		}
		return o[0], o[1], o[2]
	})
}

// Invert replaces each color channel c with 255-c.
func Invert(img *Buffer) (*Buffer, error) {
	return mapRGB(img, func(r, g, b uint8) (uint8, uint8, uint8) {
		return 255 - r, 255 - g, 255 - b
	})
}

// Brightness scales the color channels by factor: 0 gives black, 1 leaves
// the image unchanged.
func Brightness(img *Buffer, factor float64) (*Buffer, error) {
	if err := requireFinite("brightness factor", factor); err != nil {
		return nil, err
	}
	return mapRGB(img, func(r, g, b uint8) (uint8, uint8, uint8) {
		return clampByte(float64(r) * factor), clampByte(float64(g) * factor), clampByte(float64(b) * factor)
	})
}

// Contrast stretches the color channels around mid-gray:
// (c-128)*factor+128. A factor of 0 gives flat gray.
func Contrast(img *Buffer, factor float64) (*Buffer, error) {
	if err := requireFinite("contrast factor", factor); err != nil {
		return nil, err
	}
	adjust := func(c uint8) uint8 {
		return clampByte((float64(c)-128)*factor + 128)
	}
	return mapRGB(img, func(r, g, b uint8) (uint8, uint8, uint8) {
		return adjust(r), adjust(g), adjust(b)
	})
}

// Hue rotates each pixel's HSV hue by degrees. Saturation and value are
// unchanged.
func Hue(img *Buffer, degrees float64) (*Buffer, error) {
	if err := requireFinite("hue rotation", degrees); err != nil {
		return nil, err
	}
	return mapRGB(img, func(r, g, b uint8) (uint8, uint8, uint8) {
		h, s, v := toHSV(r, g, b)
		return fromHSV(wrapHue(h+degrees), s, v)
	})
}

// Saturate multiplies each pixel's HSV saturation by factor, clamped to
// [0,1]. Hue and value are unchanged.
func Saturate(img *Buffer, factor float64) (*Buffer, error) {
	if err := requireFinite("saturation factor", factor); err != nil {
		return nil, err
	}
	return mapRGB(img, func(r, g, b uint8) (uint8, uint8, uint8) {
		h, s, v := toHSV(r, g, b)
		s = math.Max(0, math.Min(1, s*factor))
		return fromHSV(h, s, v)
	})
}

func toHSV(r, g, b uint8) (h, s, v float64) {
	c := colorful.Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}
	return c.Hsv()
}

func fromHSV(h, s, v float64) (uint8, uint8, uint8) {
	c := colorful.Hsv(h, s, v)
	return clampByte(c.R * 255), clampByte(c.G * 255), clampByte(c.B * 255)
}

// wrapHue folds any angle into [0,360).
func wrapHue(h float64) float64 {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	if h >= 360 {
		h -= 360
	}
	return h
}
