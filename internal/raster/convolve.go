package raster

import (
	"fmt"
	"math"

	"github.com/anthonynsimon/bild/parallel"
)

// Preset kernels. Only these two Gaussian sizes exist; there is no
// continuous-sigma blur.
var (
	gaussian3x3 = normalize([]float64{
		1, 2, 1,
		2, 4, 2,
		1, 2, 1,
	}, 16)

	gaussian5x5 = normalize([]float64{
		1, 4, 7, 4, 1,
		4, 16, 26, 16, 4,
		7, 26, 41, 26, 7,
		4, 16, 26, 16, 4,
		1, 4, 7, 4, 1,
	}, 273)

	sharpen3x3 = []float64{
		0, -1, 0,
		-1, 5, -1,
		0, -1, 0,
	}

	sobelX = []float64{
		-1, 0, 1,
		-2, 0, 2,
		-1, 0, 1,
	}
	sobelY = []float64{
		-1, -2, -1,
		0, 0, 0,
		1, 2, 1,
	}
)

func normalize(k []float64, sum float64) []float64 {
	for i := range k {
		k[i] /= sum
	}
	return k
}

// Convolve applies a square kernel to the R, G and B channels.
//
// kernel is row-major with kernelWidth*kernelWidth entries and kernelWidth
// must be odd. Samples outside the image are replaced by the nearest edge
// pixel. Alpha is copied from the source pixel under the kernel center.
func Convolve(img *Buffer, kernel []float64, kernelWidth int) (*Buffer, error) {
	if err := img.Validate(); err != nil {
		return nil, err
	}
	if kernelWidth < 1 || kernelWidth%2 == 0 {
		return nil, fmt.Errorf("%w: kernel width %d must be odd and positive", ErrInvalidArgument, kernelWidth)
	}
	if len(kernel) != kernelWidth*kernelWidth {
		return nil, fmt.Errorf("%w: kernel has %d entries, want %d",
			ErrInvalidArgument, len(kernel), kernelWidth*kernelWidth)
	}
	return convolve(img, kernel, kernelWidth), nil
}

func convolve(img *Buffer, kernel []float64, kw int) *Buffer {
	w, h := img.Width, img.Height
	out := derive(img, w, h)
	half := kw / 2

	parallel.Line(h, func(start, end int) {
		for y := start; y < end; y++ {
			for x := 0; x < w; x++ {
				var r, g, b float64
				for ky := 0; ky < kw; ky++ {
					py := clamp(y+ky-half, 0, h-1)
					for kx := 0; kx < kw; kx++ {
						px := clamp(x+kx-half, 0, w-1)
						k := kernel[ky*kw+kx]
						i := img.PixOffset(px, py)
						r += k * float64(img.Pix[i])
						g += k * float64(img.Pix[i+1])
						b += k * float64(img.Pix[i+2])
					}
				}
				o := img.PixOffset(x, y)
				out.Pix[o] = clampByte(r)
				out.Pix[o+1] = clampByte(g)
				out.Pix[o+2] = clampByte(b)
				out.Pix[o+3] = img.Pix[o+3]
			}
		}
	})
	return out
}

// GaussianBlur blurs with a fixed preset: radius 1 selects the 3x3 kernel
// (sum 16), any radius of 2 or more the 5x5 kernel (sum 273). A radius below
// 1 returns an unmodified copy.
func GaussianBlur(img *Buffer, radius int) (*Buffer, error) {
	if err := img.Validate(); err != nil {
		return nil, err
	}
	switch {
	case radius < 1:
		return img.Clone(), nil
	case radius == 1:
		return convolve(img, gaussian3x3, 3), nil
	default:
		return convolve(img, gaussian5x5, 5), nil
	}
}

// Sharpen applies the 3x3 kernel [0,-1,0,-1,5,-1,0,-1,0].
func Sharpen(img *Buffer) (*Buffer, error) {
	if err := img.Validate(); err != nil {
		return nil, err
	}
	return convolve(img, sharpen3x3, 3), nil
}

// Sobel computes the gradient magnitude of the grayscale image.
//
// The magnitude sqrt(Gx²+Gy²), capped at 255, is written to R, G and B and
// alpha is forced to 255. The outermost one-pixel border is not processed
// and keeps the grayscale values, including their original alpha.
func Sobel(img *Buffer) (*Buffer, error) {
	gray, err := Grayscale(img)
	if err != nil {
		return nil, err
	}
	w, h := gray.Width, gray.Height
	out := gray.Clone()
	if w < 3 || h < 3 {
		return out, nil
	}

	parallel.Line(h-2, func(start, end int) {
		for y := start + 1; y < end+1; y++ {
			for x := 1; x < w-1; x++ {
				var gx, gy float64
				for ky := 0; ky < 3; ky++ {
					for kx := 0; kx < 3; kx++ {
						// R=G=B after grayscale; green carries luminance.
						v := float64(gray.Pix[gray.PixOffset(x+kx-1, y+ky-1)+1])
						gx += sobelX[ky*3+kx] * v
						gy += sobelY[ky*3+kx] * v
					}
				}
				mag := clampByte(math.Min(math.Sqrt(gx*gx+gy*gy), 255))
				o := out.PixOffset(x, y)
				out.Pix[o] = mag
				out.Pix[o+1] = mag
				out.Pix[o+2] = mag
				out.Pix[o+3] = 255
			}
		}
	})
	return out, nil
}
