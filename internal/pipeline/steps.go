package pipeline

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/ironsheep/pixel-tools-mcp/internal/raster"
)

// Loader resolves the path argument of the overlay and blend steps.
type Loader func(path string) (*raster.Buffer, error)

type stepFunc func(p *raster.Processor, load Loader) error

type stepDef struct {
	minArgs int
	maxArgs int
	usage   string
	build   func(args []string) (stepFunc, error)
}

// chain wraps a step that cannot fail outside the Processor.
func chain(fn func(p *raster.Processor)) stepFunc {
	return func(p *raster.Processor, _ Loader) error {
		fn(p)
		return nil
	}
}

func noArgs(fn func(p *raster.Processor)) func([]string) (stepFunc, error) {
	return func([]string) (stepFunc, error) { return chain(fn), nil }
}

// intStep builds a step taking one optional integer with a default.
func intStep(def int, fn func(p *raster.Processor, n int)) func([]string) (stepFunc, error) {
	return func(args []string) (stepFunc, error) {
		n := def
		if len(args) > 0 {
			v, err := parseInt(args[0])
			if err != nil {
				return nil, err
			}
			n = v
		}
		return chain(func(p *raster.Processor) { fn(p, n) }), nil
	}
}

func floatStep(fn func(p *raster.Processor, f float64)) func([]string) (stepFunc, error) {
	return func(args []string) (stepFunc, error) {
		f, err := parseFloat(args[0])
		if err != nil {
			return nil, err
		}
		return chain(func(p *raster.Processor) { fn(p, f) }), nil
	}
}

var registry = map[string]stepDef{
	"grayscale":  {0, 0, "grayscale", noArgs(func(p *raster.Processor) { p.Grayscale() })},
	"sepia":      {0, 0, "sepia", noArgs(func(p *raster.Processor) { p.Sepia() })},
	"invert":     {0, 0, "invert", noArgs(func(p *raster.Processor) { p.Invert() })},
	"sharpen":    {0, 0, "sharpen", noArgs(func(p *raster.Processor) { p.Sharpen() })},
	"sobel":      {0, 0, "sobel", noArgs(func(p *raster.Processor) { p.Sobel() })},
	"auto_level": {0, 0, "auto_level", noArgs(func(p *raster.Processor) { p.AutoLevel() })},

	"blur":   {0, 1, "blur[:radius]", intStep(1, func(p *raster.Processor, n int) { p.GaussianBlur(n) })},
	"dilate": {0, 1, "dilate[:pixels]", intStep(1, func(p *raster.Processor, n int) { p.Dilate(n) })},
	"erode":  {0, 1, "erode[:pixels]", intStep(1, func(p *raster.Processor, n int) { p.Erode(n) })},
	"open":   {0, 1, "open[:pixels]", intStep(1, func(p *raster.Processor, n int) { p.Open(n) })},
	"close":  {0, 1, "close[:pixels]", intStep(1, func(p *raster.Processor, n int) { p.Close(n) })},
	"median": {0, 1, "median[:radius]", intStep(1, func(p *raster.Processor, n int) { p.MedianFilter(n) })},

	"threshold":          {0, 1, "threshold[:value]", intStep(128, func(p *raster.Processor, n int) { p.Threshold(n) })},
	"adaptive_threshold": {0, 1, "adaptive_threshold[:block]", intStep(11, func(p *raster.Processor, n int) { p.AdaptiveThreshold(n) })},

	"brightness": {1, 1, "brightness:factor", floatStep(func(p *raster.Processor, f float64) { p.Brightness(f) })},
	"contrast":   {1, 1, "contrast:factor", floatStep(func(p *raster.Processor, f float64) { p.Contrast(f) })},
	"hue":        {1, 1, "hue:degrees", floatStep(func(p *raster.Processor, f float64) { p.Hue(f) })},
	"saturate":   {1, 1, "saturate:factor", floatStep(func(p *raster.Processor, f float64) { p.Saturate(f) })},
	"rotate":     {1, 1, "rotate:degrees", floatStep(func(p *raster.Processor, f float64) { p.Rotate(f) })},

	"bilateral": {0, 2, "bilateral[:spatial_sigma[:range_sigma]]", buildBilateral},
	"flip":      {1, 1, "flip:h|v|hv", buildFlip},
	"crop":      {4, 4, "crop:x:y:width:height", buildCrop},
	"resize":    {1, 2, "resize:WxH[:algorithm]", buildResize},
	"convolve":  {2, 2, "convolve:width:k1,k2,...", buildConvolve},
	"overlay":   {1, 4, "overlay:path[:x:y[:alpha]]", buildOverlay},
	"blend":     {2, 2, "blend:path:mode", buildBlend},
}

// Names returns every step name with its argument syntax, sorted.
func Names() []string {
	out := make([]string, 0, len(registry))
	for _, def := range registry {
		out = append(out, def.usage)
	}
	sort.Strings(out)
	return out
}

func buildBilateral(args []string) (stepFunc, error) {
	spatial, rng := 3.0, 50.0
	var err error
	if len(args) > 0 {
		if spatial, err = parseFloat(args[0]); err != nil {
			return nil, err
		}
	}
	if len(args) > 1 {
		if rng, err = parseFloat(args[1]); err != nil {
			return nil, err
		}
	}
	return chain(func(p *raster.Processor) { p.BilateralFilter(spatial, rng) }), nil
}

func buildFlip(args []string) (stepFunc, error) {
	var h, v bool
	switch strings.ToLower(args[0]) {
	case "h":
		h = true
	case "v":
		v = true
	case "hv", "vh":
		h, v = true, true
	default:
		return nil, fmt.Errorf("flip direction %q is not h, v or hv", args[0])
	}
	return chain(func(p *raster.Processor) { p.Flip(h, v) }), nil
}

func buildCrop(args []string) (stepFunc, error) {
	var vals [4]int
	for i, a := range args {
		n, err := parseInt(a)
		if err != nil {
			return nil, err
		}
		vals[i] = n
	}
	return chain(func(p *raster.Processor) { p.Crop(vals[0], vals[1], vals[2], vals[3]) }), nil
}

func buildResize(args []string) (stepFunc, error) {
	w, h, err := parseSize(args[0])
	if err != nil {
		return nil, err
	}
	var alg raster.ResizeAlgorithm
	if len(args) > 1 {
		if alg, err = raster.ParseResizeAlgorithm(args[1]); err != nil {
			return nil, err
		}
	}
	return chain(func(p *raster.Processor) { p.Resize(w, h, alg) }), nil
}

func buildConvolve(args []string) (stepFunc, error) {
	width, err := parseInt(args[0])
	if err != nil {
		return nil, err
	}
	parts := strings.Split(args[1], ",")
	kernel := make([]float64, len(parts))
	for i, s := range parts {
		if kernel[i], err = parseFloat(s); err != nil {
			return nil, err
		}
	}
	if width < 1 || width%2 == 0 || len(kernel) != width*width {
		return nil, fmt.Errorf("kernel needs an odd width and width*width values, got width %d with %d values", width, len(kernel))
	}
	return chain(func(p *raster.Processor) { p.Convolve(kernel, width) }), nil
}

func buildOverlay(args []string) (stepFunc, error) {
	path := args[0]
	var x, y int
	alpha := 1.0
	var err error
	switch len(args) {
	case 2:
		return nil, fmt.Errorf("overlay needs both x and y")
	case 3, 4:
		if x, err = parseInt(args[1]); err != nil {
			return nil, err
		}
		if y, err = parseInt(args[2]); err != nil {
			return nil, err
		}
	}
	if len(args) == 4 {
		if alpha, err = parseFloat(args[3]); err != nil {
			return nil, err
		}
	}
	return func(p *raster.Processor, load Loader) error {
		over, err := resolve(load, path)
		if err != nil {
			return err
		}
		p.Overlay(over, x, y, alpha)
		return nil
	}, nil
}

func buildBlend(args []string) (stepFunc, error) {
	path := args[0]
	mode, err := raster.ParseBlendMode(args[1])
	if err != nil {
		return nil, err
	}
	return func(p *raster.Processor, load Loader) error {
		other, err := resolve(load, path)
		if err != nil {
			return err
		}
		p.Blend(other, mode)
		return nil
	}, nil
}

func resolve(load Loader, path string) (*raster.Buffer, error) {
	if load == nil {
		return nil, fmt.Errorf("%w: no image loader for %q", raster.ErrInvalidArgument, path)
	}
	return load(path)
}

func parseInt(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%q is not an integer", s)
	}
	return n, nil
}

func parseFloat(s string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", s)
	}
	return f, nil
}

// parseSize reads "WxH".
func parseSize(s string) (int, int, error) {
	ws, hs, ok := strings.Cut(strings.ToLower(s), "x")
	if !ok {
		return 0, 0, fmt.Errorf("size %q is not WIDTHxHEIGHT", s)
	}
	w, err := parseInt(ws)
	if err != nil {
		return 0, 0, err
	}
	h, err := parseInt(hs)
	if err != nil {
		return 0, 0, err
	}
	return w, h, nil
}
