package raster

import (
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/anthonynsimon/bild/math/f64"
	"github.com/disintegration/imaging"
)

// ErrInvalidArgument is returned for malformed buffers and out-of-range
// parameters.
var ErrInvalidArgument = errors.New("invalid argument")

// Buffer is a fixed-size raster of 8-bit RGBA pixels.
//
// Pix holds Width*Height*4 bytes, row-major, with no padding between rows.
type Buffer struct {
	// Path is an informational origin/destination hint. Transforms carry it
	// over but never read it.
	Path string

	Width  int
	Height int
	Pix    []uint8
}

// New allocates a zeroed (transparent black) buffer.
//
// Negative dimensions are treated as zero.
func New(width, height int) *Buffer {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Buffer{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, width*height*4),
	}
}

// Validate reports whether the buffer satisfies the length invariant.
func (b *Buffer) Validate() error {
	if b == nil {
		return fmt.Errorf("%w: nil buffer", ErrInvalidArgument)
	}
	if b.Width < 0 || b.Height < 0 {
		return fmt.Errorf("%w: negative dimensions %dx%d", ErrInvalidArgument, b.Width, b.Height)
	}
	if want := b.Width * b.Height * 4; len(b.Pix) != want {
		return fmt.Errorf("%w: pixel data is %d bytes, want %d for %dx%d",
			ErrInvalidArgument, len(b.Pix), want, b.Width, b.Height)
	}
	return nil
}

// Clone returns a deep copy of the buffer.
func (b *Buffer) Clone() *Buffer {
	pix := make([]uint8, len(b.Pix))
	copy(pix, b.Pix)
	return &Buffer{Path: b.Path, Width: b.Width, Height: b.Height, Pix: pix}
}

// Empty reports whether the buffer has zero area.
func (b *Buffer) Empty() bool {
	return b.Width == 0 || b.Height == 0
}

// PixOffset returns the index of the first byte of pixel (x, y).
func (b *Buffer) PixOffset(x, y int) int {
	return (y*b.Width + x) * 4
}

// At returns the four channels of pixel (x, y). The caller must keep the
// coordinates in bounds.
func (b *Buffer) At(x, y int) (r, g, bl, a uint8) {
	i := b.PixOffset(x, y)
	return b.Pix[i], b.Pix[i+1], b.Pix[i+2], b.Pix[i+3]
}

// Set writes the four channels of pixel (x, y).
func (b *Buffer) Set(x, y int, r, g, bl, a uint8) {
	i := b.PixOffset(x, y)
	b.Pix[i], b.Pix[i+1], b.Pix[i+2], b.Pix[i+3] = r, g, bl, a
}

// NRGBA returns an *image.NRGBA view sharing the buffer's pixel storage.
func (b *Buffer) NRGBA() *image.NRGBA {
	return &image.NRGBA{
		Pix:    b.Pix,
		Stride: b.Width * 4,
		Rect:   image.Rect(0, 0, b.Width, b.Height),
	}
}

// rawRGBA exposes the bytes as *image.RGBA without premultiplying them.
// Only valid for consumers that count or copy bytes.
func (b *Buffer) rawRGBA() *image.RGBA {
	return &image.RGBA{
		Pix:    b.Pix,
		Stride: b.Width * 4,
		Rect:   image.Rect(0, 0, b.Width, b.Height),
	}
}

// FromImage converts any image.Image into a Buffer with
// non-premultiplied RGBA pixels.
func FromImage(img image.Image) *Buffer {
	nrgba := imaging.Clone(img)
	w, h := nrgba.Rect.Dx(), nrgba.Rect.Dy()
	out := New(w, h)
	for y := 0; y < h; y++ {
		src := nrgba.Pix[y*nrgba.Stride : y*nrgba.Stride+w*4]
		copy(out.Pix[y*w*4:(y+1)*w*4], src)
	}
	return out
}

// derive allocates an output buffer of the given size that inherits the
// source path.
func derive(src *Buffer, width, height int) *Buffer {
	out := New(width, height)
	out.Path = src.Path
	return out
}

// clampByte rounds v half away from zero and clamps it into [0,255].
func clampByte(v float64) uint8 {
	if math.IsNaN(v) {
		return 0
	}
	return uint8(f64.Clamp(math.Round(v), 0, 255))
}

// requireFinite rejects NaN and infinite scalar parameters.
func requireFinite(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: %s must be finite, got %v", ErrInvalidArgument, name, v)
	}
	return nil
}

// clamp constrains an integer value to the range [min, max].
// Used for edge-replicated sampling.
func clamp(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
