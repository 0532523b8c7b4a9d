package raster

import (
	"fmt"

	"github.com/lucasb-eyer/go-colorful"
)

// ColorSample is the color of one pixel in several notations.
type ColorSample struct {
	X   int    `json:"x"`
	Y   int    `json:"y"`
	Hex string `json:"hex"` // "#rrggbb", alpha excluded

	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
	A uint8 `json:"a"`

	// HSV as used by Hue and Saturate: H in [0,360), S and V in [0,1].
	H float64 `json:"h"`
	S float64 `json:"s"`
	V float64 `json:"v"`
}

// Sample reads the pixel at (x, y). Coordinates outside the buffer are an
// error rather than being clamped.
func Sample(img *Buffer, x, y int) (*ColorSample, error) {
	if err := img.Validate(); err != nil {
		return nil, err
	}
	if x < 0 || y < 0 || x >= img.Width || y >= img.Height {
		return nil, fmt.Errorf("%w: (%d,%d) outside %dx%d image", ErrInvalidArgument, x, y, img.Width, img.Height)
	}

	r, g, b, a := img.At(x, y)
	h, s, v := toHSV(r, g, b)
	return &ColorSample{
		X: x, Y: y,
		Hex: colorful.Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}.Hex(),
		R:   r, G: g, B: b, A: a,
		H: h, S: s, V: v,
	}, nil
}
