package raster

// Processor holds one Buffer and replaces it with the result of each call,
// giving a fluent chain over the package functions:
//
//	out, err := raster.NewProcessor(img).
//		Grayscale().
//		GaussianBlur(1).
//		Resize(64, 64, raster.Nearest).
//		Result()
//
// The first error stops the chain; later calls are no-ops and Result reports
// that error. A Processor is not safe for concurrent use.
type Processor struct {
	img *Buffer
	err error
}

// NewProcessor starts a chain at img. img itself is never modified.
func NewProcessor(img *Buffer) *Processor {
	return &Processor{img: img}
}

// Result returns the current buffer, or the error that stopped the chain.
func (p *Processor) Result() (*Buffer, error) {
	if p.err != nil {
		return nil, p.err
	}
	if err := p.img.Validate(); err != nil {
		return nil, err
	}
	return p.img, nil
}

// Err returns the error that stopped the chain, if any.
func (p *Processor) Err() error {
	return p.err
}

func (p *Processor) apply(name string, fn func(*Buffer) (*Buffer, error)) *Processor {
	if p.err != nil {
		return p
	}
	out, err := fn(p.img)
	if err != nil {
		Logger().Warn("raster: chain stopped", "op", name, "error", err)
		p.err = err
		return p
	}
	Logger().Debug("raster: applied", "op", name, "width", out.Width, "height", out.Height)
	p.img = out
	return p
}

func (p *Processor) Convolve(kernel []float64, kernelWidth int) *Processor {
	return p.apply("convolve", func(b *Buffer) (*Buffer, error) { return Convolve(b, kernel, kernelWidth) })
}

func (p *Processor) GaussianBlur(radius int) *Processor {
	return p.apply("gaussian_blur", func(b *Buffer) (*Buffer, error) { return GaussianBlur(b, radius) })
}

func (p *Processor) Sharpen() *Processor {
	return p.apply("sharpen", Sharpen)
}

func (p *Processor) Sobel() *Processor {
	return p.apply("sobel", Sobel)
}

func (p *Processor) Dilate(pixels int) *Processor {
	return p.apply("dilate", func(b *Buffer) (*Buffer, error) { return Dilate(b, pixels) })
}

func (p *Processor) Erode(pixels int) *Processor {
	return p.apply("erode", func(b *Buffer) (*Buffer, error) { return Erode(b, pixels) })
}

func (p *Processor) Open(pixels int) *Processor {
	return p.apply("open", func(b *Buffer) (*Buffer, error) { return Open(b, pixels) })
}

func (p *Processor) Close(pixels int) *Processor {
	return p.apply("close", func(b *Buffer) (*Buffer, error) { return Close(b, pixels) })
}

func (p *Processor) Grayscale() *Processor {
	return p.apply("grayscale", Grayscale)
}

func (p *Processor) Sepia() *Processor {
	return p.apply("sepia", Sepia)
}

func (p *Processor) Invert() *Processor {
	return p.apply("invert", Invert)
}

func (p *Processor) Brightness(factor float64) *Processor {
	return p.apply("brightness", func(b *Buffer) (*Buffer, error) { return Brightness(b, factor) })
}

func (p *Processor) Contrast(factor float64) *Processor {
	return p.apply("contrast", func(b *Buffer) (*Buffer, error) { return Contrast(b, factor) })
}

func (p *Processor) Hue(degrees float64) *Processor {
	return p.apply("hue", func(b *Buffer) (*Buffer, error) { return Hue(b, degrees) })
}

func (p *Processor) Saturate(factor float64) *Processor {
	return p.apply("saturate", func(b *Buffer) (*Buffer, error) { return Saturate(b, factor) })
}

func (p *Processor) Crop(x, y, w, h int) *Processor {
	return p.apply("crop", func(b *Buffer) (*Buffer, error) { return Crop(b, x, y, w, h) })
}

func (p *Processor) Flip(horizontal, vertical bool) *Processor {
	return p.apply("flip", func(b *Buffer) (*Buffer, error) { return Flip(b, horizontal, vertical) })
}

func (p *Processor) Rotate(degrees float64) *Processor {
	return p.apply("rotate", func(b *Buffer) (*Buffer, error) { return Rotate(b, degrees) })
}

func (p *Processor) Resize(width, height int, algorithm ResizeAlgorithm) *Processor {
	return p.apply("resize", func(b *Buffer) (*Buffer, error) { return Resize(b, width, height, algorithm) })
}

func (p *Processor) Threshold(value int) *Processor {
	return p.apply("threshold", func(b *Buffer) (*Buffer, error) { return Threshold(b, value) })
}

func (p *Processor) AdaptiveThreshold(blockSize int) *Processor {
	return p.apply("adaptive_threshold", func(b *Buffer) (*Buffer, error) { return AdaptiveThreshold(b, blockSize) })
}

func (p *Processor) MedianFilter(radius int) *Processor {
	return p.apply("median", func(b *Buffer) (*Buffer, error) { return MedianFilter(b, radius) })
}

func (p *Processor) BilateralFilter(spatialSigma, rangeSigma float64) *Processor {
	return p.apply("bilateral", func(b *Buffer) (*Buffer, error) { return BilateralFilter(b, spatialSigma, rangeSigma) })
}

func (p *Processor) AutoLevel() *Processor {
	return p.apply("auto_level", AutoLevel)
}

// Overlay composites over onto the current buffer.
func (p *Processor) Overlay(over *Buffer, x, y int, alpha float64) *Processor {
	return p.apply("overlay", func(b *Buffer) (*Buffer, error) { return OverlayImage(b, over, x, y, alpha) })
}

// Blend combines the current buffer with other.
func (p *Processor) Blend(other *Buffer, mode BlendMode) *Processor {
	return p.apply("blend", func(b *Buffer) (*Buffer, error) { return Blend(b, other, mode) })
}
