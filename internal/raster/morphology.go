package raster

import (
	"fmt"

	"github.com/anthonynsimon/bild/parallel"
)

// Dilate replaces each color channel with the maximum over a square window of
// half-width pixels. Neighbors outside the image are skipped, not clamped.
// Alpha is copied from the source pixel.
func Dilate(img *Buffer, pixels int) (*Buffer, error) {
	return morph(img, pixels, func(a, b uint8) bool { return a > b })
}

// Erode is the minimum counterpart of Dilate.
func Erode(img *Buffer, pixels int) (*Buffer, error) {
	return morph(img, pixels, func(a, b uint8) bool { return a < b })
}

// Open erodes and then dilates with the same window.
func Open(img *Buffer, pixels int) (*Buffer, error) {
	eroded, err := Erode(img, pixels)
	if err != nil {
		return nil, err
	}
	return Dilate(eroded, pixels)
}

// Close dilates and then erodes with the same window.
func Close(img *Buffer, pixels int) (*Buffer, error) {
	dilated, err := Dilate(img, pixels)
	if err != nil {
		return nil, err
	}
	return Erode(dilated, pixels)
}

// morph sweeps the window keeping, per channel, the sample for which better
// reports true against the current pick.
func morph(img *Buffer, pixels int, better func(a, b uint8) bool) (*Buffer, error) {
	if err := img.Validate(); err != nil {
		return nil, err
	}
	if pixels < 0 {
		return nil, fmt.Errorf("%w: morphology window %d must not be negative", ErrInvalidArgument, pixels)
	}
	w, h := img.Width, img.Height
	out := derive(img, w, h)

	parallel.Line(h, func(start, end int) {
		for y := start; y < end; y++ {
			y0, y1 := max(y-pixels, 0), min(y+pixels, h-1)
			for x := 0; x < w; x++ {
				x0, x1 := max(x-pixels, 0), min(x+pixels, w-1)
				o := img.PixOffset(x, y)
				r, g, b := img.Pix[o], img.Pix[o+1], img.Pix[o+2]
				for ny := y0; ny <= y1; ny++ {
					for nx := x0; nx <= x1; nx++ {
						i := img.PixOffset(nx, ny)
						if better(img.Pix[i], r) {
							r = img.Pix[i]
						}
						if better(img.Pix[i+1], g) {
							g = img.Pix[i+1]
						}
						if better(img.Pix[i+2], b) {
							b = img.Pix[i+2]
						}
					}
				}
				out.Pix[o] = r
				out.Pix[o+1] = g
				out.Pix[o+2] = b
				out.Pix[o+3] = img.Pix[o+3]
			}
		}
	})
	return out, nil
}
