package raster

import (
	"fmt"
	"math"
	"slices"

	"github.com/anthonynsimon/bild/histogram"
	"github.com/anthonynsimon/bild/parallel"
)

// Histogram holds one 256-bucket frequency count per color channel.
type Histogram struct {
	R [256]int `json:"r"`
	G [256]int `json:"g"`
	B [256]int `json:"b"`
}

// Threshold converts to grayscale and sets every color channel to 255 where
// the luminance is at least value, and to 0 elsewhere.
func Threshold(img *Buffer, value int) (*Buffer, error) {
	gray, err := Grayscale(img)
	if err != nil {
		return nil, err
	}
	for i := 0; i < len(gray.Pix); i += 4 {
		v := uint8(0)
		if int(gray.Pix[i+1]) >= value {
			v = 255
		}
		gray.Pix[i], gray.Pix[i+1], gray.Pix[i+2] = v, v, v
	}
	return gray, nil
}

// AdaptiveThreshold binarizes each pixel against the mean luminance of the
// blockSize×blockSize window around it, sampled with edge clamping. A pixel
// at or above its local mean becomes white.
//
// The window spans blockSize/2 pixels on each side, so even sizes behave
// like the next odd size.
func AdaptiveThreshold(img *Buffer, blockSize int) (*Buffer, error) {
	if blockSize < 1 {
		return nil, fmt.Errorf("%w: block size %d must be positive", ErrInvalidArgument, blockSize)
	}
	gray, err := Grayscale(img)
	if err != nil {
		return nil, err
	}
	w, h := gray.Width, gray.Height
	half := blockSize / 2
	count := float64((2*half + 1) * (2*half + 1))
	out := derive(gray, w, h)

	parallel.Line(h, func(start, end int) {
		for y := start; y < end; y++ {
			for x := 0; x < w; x++ {
				sum := 0
				for ky := -half; ky <= half; ky++ {
					py := clamp(y+ky, 0, h-1)
					for kx := -half; kx <= half; kx++ {
						px := clamp(x+kx, 0, w-1)
						sum += int(gray.Pix[gray.PixOffset(px, py)+1])
					}
				}
				o := gray.PixOffset(x, y)
				v := uint8(0)
				if float64(gray.Pix[o+1]) >= float64(sum)/count {
					v = 255
				}
				out.Pix[o], out.Pix[o+1], out.Pix[o+2] = v, v, v
				out.Pix[o+3] = gray.Pix[o+3]
			}
		}
	})
	return out, nil
}

// MedianFilter replaces each color channel with the median of the
// (2·radius+1)² edge-clamped window. Alpha is copied from the source.
func MedianFilter(img *Buffer, radius int) (*Buffer, error) {
	if err := img.Validate(); err != nil {
		return nil, err
	}
	if radius < 0 {
		return nil, fmt.Errorf("%w: median radius %d must not be negative", ErrInvalidArgument, radius)
	}
	w, h := img.Width, img.Height
	out := derive(img, w, h)
	size := (2*radius + 1) * (2*radius + 1)

	parallel.Line(h, func(start, end int) {
		samples := make([]uint8, size)
		for y := start; y < end; y++ {
			for x := 0; x < w; x++ {
				o := img.PixOffset(x, y)
				for c := 0; c < 3; c++ {
					n := 0
					for ky := -radius; ky <= radius; ky++ {
						py := clamp(y+ky, 0, h-1)
						for kx := -radius; kx <= radius; kx++ {
							px := clamp(x+kx, 0, w-1)
							samples[n] = img.Pix[img.PixOffset(px, py)+c]
							n++
						}
					}
					slices.Sort(samples)
					out.Pix[o+c] = samples[size/2]
				}
				out.Pix[o+3] = img.Pix[o+3]
			}
		}
	})
	return out, nil
}

// BilateralFilter smooths while preserving edges. Each neighbor within
// ceil(2·spatialSigma) pixels is weighted by
//
//	exp(-d²/(2·spatialSigma²) - c²/(2·rangeSigma²))
//
// where d is the pixel offset length and c the Euclidean RGB distance to the
// center pixel. Neighbors outside the image are skipped. A non-positive sigma
// returns an unmodified copy and a non-finite one is an error. Alpha is copied
// from the source.
func BilateralFilter(img *Buffer, spatialSigma, rangeSigma float64) (*Buffer, error) {
	if err := img.Validate(); err != nil {
		return nil, err
	}
	if err := requireFinite("spatial sigma", spatialSigma); err != nil {
		return nil, err
	}
	if err := requireFinite("range sigma", rangeSigma); err != nil {
		return nil, err
	}
	if spatialSigma <= 0 || rangeSigma <= 0 {
		return img.Clone(), nil
	}
	w, h := img.Width, img.Height
	out := derive(img, w, h)
	// A window wider than the image reaches nothing more.
	radius := int(math.Ceil(math.Min(spatialSigma*2, float64(max(w, h)))))
	spatialDen := 2 * spatialSigma * spatialSigma
	rangeDen := 2 * rangeSigma * rangeSigma

	parallel.Line(h, func(start, end int) {
		for y := start; y < end; y++ {
			for x := 0; x < w; x++ {
				o := img.PixOffset(x, y)
				cr, cg, cb := float64(img.Pix[o]), float64(img.Pix[o+1]), float64(img.Pix[o+2])
				var sumR, sumG, sumB, sumW float64
				for ky := -radius; ky <= radius; ky++ {
					py := y + ky
					if py < 0 || py >= h {
						continue
					}
					for kx := -radius; kx <= radius; kx++ {
						px := x + kx
						if px < 0 || px >= w {
							continue
						}
						i := img.PixOffset(px, py)
						r, g, b := float64(img.Pix[i]), float64(img.Pix[i+1]), float64(img.Pix[i+2])
						spatial := float64(kx*kx + ky*ky)
						colorDist := (r-cr)*(r-cr) + (g-cg)*(g-cg) + (b-cb)*(b-cb)
						weight := math.Exp(-spatial/spatialDen - colorDist/rangeDen)
						sumR += r * weight
						sumG += g * weight
						sumB += b * weight
						sumW += weight
					}
				}
				if sumW == 0 || math.IsNaN(sumW) || math.IsInf(sumW, 0) {
					copy(out.Pix[o:o+4], img.Pix[o:o+4])
					continue
				}
				out.Pix[o] = clampByte(sumR / sumW)
				out.Pix[o+1] = clampByte(sumG / sumW)
				out.Pix[o+2] = clampByte(sumB / sumW)
				out.Pix[o+3] = img.Pix[o+3]
			}
		}
	})
	return out, nil
}

// ComputeHistogram counts the occurrences of every value of R, G and B over
// the whole buffer.
func ComputeHistogram(img *Buffer) (*Histogram, error) {
	if err := img.Validate(); err != nil {
		return nil, err
	}
	counts := histogram.NewRGBAHistogram(img.rawRGBA())
	var out Histogram
	copy(out.R[:], counts.R.Bins)
	copy(out.G[:], counts.G.Bins)
	copy(out.B[:], counts.B.Bins)
	return &out, nil
}

// AutoLevel stretches each color channel from its own [min,max] range to
// [0,255]. A channel whose min equals its max is left unchanged.
func AutoLevel(img *Buffer) (*Buffer, error) {
	if err := img.Validate(); err != nil {
		return nil, err
	}
	lo := [3]int{255, 255, 255}
	hi := [3]int{0, 0, 0}
	for i := 0; i < len(img.Pix); i += 4 {
		for c := 0; c < 3; c++ {
			v := int(img.Pix[i+c])
			lo[c] = min(lo[c], v)
			hi[c] = max(hi[c], v)
		}
	}

	var lut [3][256]uint8
	for c := 0; c < 3; c++ {
		span := hi[c] - lo[c]
		for v := 0; v < 256; v++ {
			if span == 0 {
				lut[c][v] = uint8(v)
				continue
			}
			lut[c][v] = clampByte(float64(v-lo[c]) * 255 / float64(span))
		}
	}

	out := derive(img, img.Width, img.Height)
	for i := 0; i < len(img.Pix); i += 4 {
		out.Pix[i] = lut[0][img.Pix[i]]
		out.Pix[i+1] = lut[1][img.Pix[i+1]]
		out.Pix[i+2] = lut[2][img.Pix[i+2]]
		out.Pix[i+3] = img.Pix[i+3]
	}
	return out, nil
}
