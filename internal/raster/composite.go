package raster

import (
	"fmt"
	"math"

	"github.com/anthonynsimon/bild/parallel"
)

// BlendMode selects the per-channel rule used by Blend. Channels are
// normalized to [0,1]; a is the base value and b the other.
type BlendMode string

const (
	Multiply   BlendMode = "multiply"   // a*b
	Screen     BlendMode = "screen"     // 1-(1-a)(1-b)
	Overlay    BlendMode = "overlay"    // a<0.5 ? 2ab : 1-2(1-a)(1-b)
	Add        BlendMode = "add"        // min(1, a+b)
	Subtract   BlendMode = "subtract"   // max(0, a-b)
	Darken     BlendMode = "darken"     // min(a, b)
	Lighten    BlendMode = "lighten"    // max(a, b)
	Difference BlendMode = "difference" // |a-b|
)

var blendFuncs = map[BlendMode]func(a, b float64) float64{
	Multiply: func(a, b float64) float64 { return a * b },
	Screen:   func(a, b float64) float64 { return 1 - (1-a)*(1-b) },
	Overlay: func(a, b float64) float64 {
		if a < 0.5 {
			return 2 * a * b
		}
		return 1 - 2*(1-a)*(1-b)
	},
	Add:        func(a, b float64) float64 { return math.Min(1, a+b) },
	Subtract:   func(a, b float64) float64 { return math.Max(0, a-b) },
	Darken:     math.Min,
	Lighten:    math.Max,
	Difference: func(a, b float64) float64 { return math.Abs(a - b) },
}

// ParseBlendMode validates a blend mode name.
func ParseBlendMode(name string) (BlendMode, error) {
	mode := BlendMode(name)
	if _, ok := blendFuncs[mode]; !ok {
		return "", fmt.Errorf("%w: unknown blend mode %q", ErrInvalidArgument, name)
	}
	return mode, nil
}

// OverlayImage composites over onto base with its top-left corner at (x, y).
//
// For every overlay pixel that lands inside base, with
// ea = (overlay alpha/255)·alpha:
//
//	color = overlay·ea + base·(1-ea)
//	alpha = 255·ea + baseAlpha·(1-ea)
//
// Overlay pixels outside base are skipped. alpha is clamped to [0,1].
func OverlayImage(base, over *Buffer, x, y int, alpha float64) (*Buffer, error) {
	if err := base.Validate(); err != nil {
		return nil, err
	}
	if err := over.Validate(); err != nil {
		return nil, err
	}
	if math.IsNaN(alpha) {
		return nil, fmt.Errorf("%w: overlay alpha must be a number", ErrInvalidArgument)
	}
	alpha = math.Max(0, math.Min(1, alpha))
	out := base.Clone()

	// Overlay rows that intersect base.
	oy0, oy1 := max(0, -y), min(over.Height, base.Height-y)
	ox0, ox1 := max(0, -x), min(over.Width, base.Width-x)
	if oy1 <= oy0 || ox1 <= ox0 {
		return out, nil
	}

	parallel.Line(oy1-oy0, func(start, end int) {
		for oy := oy0 + start; oy < oy0+end; oy++ {
			for ox := ox0; ox < ox1; ox++ {
				s := over.PixOffset(ox, oy)
				d := out.PixOffset(x+ox, y+oy)
				ea := float64(over.Pix[s+3]) / 255 * alpha
				for c := 0; c < 3; c++ {
					out.Pix[d+c] = clampByte(float64(over.Pix[s+c])*ea + float64(out.Pix[d+c])*(1-ea))
				}
				out.Pix[d+3] = clampByte(255*ea + float64(out.Pix[d+3])*(1-ea))
			}
		}
	})
	return out, nil
}

// Blend combines base and other channel by channel over their overlapping
// rectangle. Alpha, and every pixel outside the overlap, come from base.
func Blend(base, other *Buffer, mode BlendMode) (*Buffer, error) {
	if err := base.Validate(); err != nil {
		return nil, err
	}
	if err := other.Validate(); err != nil {
		return nil, err
	}
	fn, ok := blendFuncs[mode]
	if !ok {
		return nil, fmt.Errorf("%w: unknown blend mode %q", ErrInvalidArgument, mode)
	}
	out := base.Clone()
	w, h := min(base.Width, other.Width), min(base.Height, other.Height)

	parallel.Line(h, func(start, end int) {
		for y := start; y < end; y++ {
			for x := 0; x < w; x++ {
				d, s := out.PixOffset(x, y), other.PixOffset(x, y)
				for c := 0; c < 3; c++ {
					a := float64(out.Pix[d+c]) / 255
					b := float64(other.Pix[s+c]) / 255
					out.Pix[d+c] = clampByte(fn(a, b) * 255)
				}
			}
		}
	})
	return out, nil
}
