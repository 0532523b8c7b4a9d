package raster

import (
	"fmt"
	"image"
	"math"

	"github.com/anthonynsimon/bild/parallel"
	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
)

// ResizeAlgorithm selects the resampling used by Resize.
type ResizeAlgorithm string

const (
	// Nearest maps each destination pixel to floor(x*width/newWidth).
	Nearest ResizeAlgorithm = "nearest"
	// Bilinear interpolates the four nearest source pixels, alpha included.
	// It is the default.
	Bilinear ResizeAlgorithm = "bilinear"
	// Lanczos uses disintegration/imaging's Lanczos filter.
	Lanczos ResizeAlgorithm = "lanczos"
	// Mitchell uses nfnt/resize's Mitchell-Netravali filter.
	Mitchell ResizeAlgorithm = "mitchell"
)

// ParseResizeAlgorithm maps a name to a ResizeAlgorithm. The empty string
// selects Bilinear.
func ParseResizeAlgorithm(name string) (ResizeAlgorithm, error) {
	switch ResizeAlgorithm(name) {
	case "", Bilinear:
		return Bilinear, nil
	case Nearest, Lanczos, Mitchell:
		return ResizeAlgorithm(name), nil
	default:
		return "", fmt.Errorf("%w: unknown resize algorithm %q", ErrInvalidArgument, name)
	}
}

// sizeEpsilon absorbs float noise from sin/cos before ceil, so a quarter
// turn of a 2x1 image is 1x2 rather than 2x2.
const sizeEpsilon = 1e-9

// Crop extracts the rectangle at (x, y) of size w×h, clamped to the buffer.
// The result may be smaller than requested and is zero-sized when the
// rectangle misses the image entirely.
func Crop(img *Buffer, x, y, w, h int) (*Buffer, error) {
	if err := img.Validate(); err != nil {
		return nil, err
	}
	x0, y0 := clamp(x, 0, img.Width), clamp(y, 0, img.Height)
	x1, y1 := clamp(addSat(x, max(w, 0)), 0, img.Width), clamp(addSat(y, max(h, 0)), 0, img.Height)
	cw, ch := max(x1-x0, 0), max(y1-y0, 0)

	out := derive(img, cw, ch)
	for row := 0; row < ch; row++ {
		src := img.PixOffset(x0, y0+row)
		copy(out.Pix[row*cw*4:(row+1)*cw*4], img.Pix[src:src+cw*4])
	}
	return out, nil
}

// addSat adds a non-negative n to v, stopping at math.MaxInt.
func addSat(v, n int) int {
	if v > math.MaxInt-n {
		return math.MaxInt
	}
	return v + n
}

// Flip mirrors the image horizontally, vertically, or both.
func Flip(img *Buffer, horizontal, vertical bool) (*Buffer, error) {
	if err := img.Validate(); err != nil {
		return nil, err
	}
	w, h := img.Width, img.Height
	out := derive(img, w, h)
	parallel.Line(h, func(start, end int) {
		for y := start; y < end; y++ {
			sy := y
			if vertical {
				sy = h - 1 - y
			}
			for x := 0; x < w; x++ {
				sx := x
				if horizontal {
					sx = w - 1 - x
				}
				s, d := img.PixOffset(sx, sy), out.PixOffset(x, y)
				copy(out.Pix[d:d+4], img.Pix[s:s+4])
			}
		}
	})
	return out, nil
}

// Rotate turns the image clockwise by degrees about its center.
//
// The canvas grows to the bounding box of the rotated rectangle:
// ceil(|w·cos|+|h·sin|) by ceil(|w·sin|+|h·cos|). Each destination pixel
// center is mapped back through the inverse rotation and the source pixel
// containing it (floor) is copied. Destinations that map outside the source
// stay transparent black. There is no interpolation.
func Rotate(img *Buffer, degrees float64) (*Buffer, error) {
	if err := img.Validate(); err != nil {
		return nil, err
	}
	if err := requireFinite("rotation", degrees); err != nil {
		return nil, err
	}
	w, h := img.Width, img.Height
	rad := degrees * math.Pi / 180
	sin, cos := math.Sin(rad), math.Cos(rad)
	fw, fh := float64(w), float64(h)

	newW := int(math.Ceil(math.Abs(fw*cos) + math.Abs(fh*sin) - sizeEpsilon))
	newH := int(math.Ceil(math.Abs(fw*sin) + math.Abs(fh*cos) - sizeEpsilon))
	out := derive(img, newW, newH)
	if img.Empty() {
		return out, nil
	}

	cx, cy := fw/2, fh/2
	ncx, ncy := float64(newW)/2, float64(newH)/2
	parallel.Line(newH, func(start, end int) {
		for y := start; y < end; y++ {
			dy := float64(y) + 0.5 - ncy
			for x := 0; x < newW; x++ {
				dx := float64(x) + 0.5 - ncx
				sx := int(math.Floor(dx*cos + dy*sin + cx))
				sy := int(math.Floor(-dx*sin + dy*cos + cy))
				if sx < 0 || sx >= w || sy < 0 || sy >= h {
					continue
				}
				s, d := img.PixOffset(sx, sy), out.PixOffset(x, y)
				copy(out.Pix[d:d+4], img.Pix[s:s+4])
			}
		}
	})
	return out, nil
}

// Resize scales the image to newWidth×newHeight.
//
// A zero target dimension yields a zero-sized buffer. Resizing a zero-area
// source yields a transparent canvas of the requested size.
func Resize(img *Buffer, newWidth, newHeight int, algorithm ResizeAlgorithm) (*Buffer, error) {
	if err := img.Validate(); err != nil {
		return nil, err
	}
	if newWidth < 0 || newHeight < 0 {
		return nil, fmt.Errorf("%w: resize target %dx%d must not be negative", ErrInvalidArgument, newWidth, newHeight)
	}
	algorithm, err := ParseResizeAlgorithm(string(algorithm))
	if err != nil {
		return nil, err
	}
	if newWidth == 0 || newHeight == 0 || img.Empty() {
		return derive(img, newWidth, newHeight), nil
	}
	Logger().Debug("raster: resize", "from_w", img.Width, "from_h", img.Height,
		"to_w", newWidth, "to_h", newHeight, "algorithm", string(algorithm))

	switch algorithm {
	case Nearest:
		return resizeNearest(img, newWidth, newHeight), nil
	case Lanczos:
		return fromLibrary(img, imaging.Resize(img.NRGBA(), newWidth, newHeight, imaging.Lanczos)), nil
	case Mitchell:
		scaled := resize.Resize(uint(newWidth), uint(newHeight), img.NRGBA(), resize.MitchellNetravali)
		return fromLibrary(img, scaled), nil
	default:
		return resizeBilinear(img, newWidth, newHeight), nil
	}
}

func fromLibrary(src *Buffer, img image.Image) *Buffer {
	out := FromImage(img)
	out.Path = src.Path
	return out
}

func resizeNearest(img *Buffer, nw, nh int) *Buffer {
	out := derive(img, nw, nh)
	parallel.Line(nh, func(start, end int) {
		for y := start; y < end; y++ {
			sy := y * img.Height / nh
			for x := 0; x < nw; x++ {
				sx := x * img.Width / nw
				s, d := img.PixOffset(sx, sy), out.PixOffset(x, y)
				copy(out.Pix[d:d+4], img.Pix[s:s+4])
			}
		}
	})
	return out
}

// resizeBilinear samples at x*(width-1)/newWidth, so the last destination
// column stops short of the last source column.
func resizeBilinear(img *Buffer, nw, nh int) *Buffer {
	out := derive(img, nw, nh)
	xRatio := float64(img.Width-1) / float64(nw)
	yRatio := float64(img.Height-1) / float64(nh)

	parallel.Line(nh, func(start, end int) {
		for y := start; y < end; y++ {
			fy := float64(y) * yRatio
			y0 := int(fy)
			y1 := min(y0+1, img.Height-1)
			wy := fy - float64(y0)
			for x := 0; x < nw; x++ {
				fx := float64(x) * xRatio
				x0 := int(fx)
				x1 := min(x0+1, img.Width-1)
				wx := fx - float64(x0)

				i00, i10 := img.PixOffset(x0, y0), img.PixOffset(x1, y0)
				i01, i11 := img.PixOffset(x0, y1), img.PixOffset(x1, y1)
				d := out.PixOffset(x, y)
				for c := 0; c < 4; c++ {
					top := float64(img.Pix[i00+c])*(1-wx) + float64(img.Pix[i10+c])*wx
					bottom := float64(img.Pix[i01+c])*(1-wx) + float64(img.Pix[i11+c])*wx
					out.Pix[d+c] = clampByte(top*(1-wy) + bottom*wy)
				}
			}
		}
	})
	return out
}
