package server

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ironsheep/pixel-tools-mcp/internal/codec"
	"github.com/ironsheep/pixel-tools-mcp/internal/pipeline"
	"github.com/ironsheep/pixel-tools-mcp/internal/raster"
)

// errUnknownTool is reported with code -32602.
var errUnknownTool = errors.New("unknown tool")

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "image_load", "image_resize").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Bad arguments, including engine parameter errors, return code -32602; any
// other failure returns -32000.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, codeInvalidParams, "Invalid params", err.Error())
	}

	start := time.Now()
	result, err := s.executeTool(params.Name, params.Arguments)
	if err != nil {
		s.logger.Warn("tool failed", "tool", params.Name, "error", err)
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		switch {
		case errors.Is(err, raster.ErrInvalidArgument), errors.Is(err, errUnknownTool),
			errors.As(err, &syntaxErr), errors.As(err, &typeErr):
			return s.errorResponse(req.ID, codeInvalidParams, "Invalid params", err.Error())
		default:
			return s.errorResponse(req.ID, codeToolFailed, "Tool execution failed", err.Error())
		}
	}
	s.logger.Debug("tool done", "tool", params.Name, "duration", time.Since(start))

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
//
// Each tool handler:
//  1. Unmarshals arguments from JSON
//  2. Applies default values for optional parameters
//  3. Loads images from cache as needed
//  4. Calls the raster engine
//  5. Returns the image inline or writes it to output_path
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	if len(args) == 0 {
		args = json.RawMessage(`{}`)
	}

	switch name {
	// Image Information
	case "image_load":
		return s.handleImageLoad(args)
	case "image_dimensions":
		return s.handleImageDimensions(args)
	case "image_histogram":
		return s.handleImageHistogram(args)
	case "image_sample_color":
		return s.handleImageSampleColor(args)

	// Geometry
	case "image_crop":
		return s.handleImageCrop(args)
	case "image_flip":
		return s.handleImageFlip(args)
	case "image_rotate":
		return s.handleImageRotate(args)
	case "image_resize":
		return s.handleImageResize(args)

	// Color
	case "image_adjust":
		return s.handleImageAdjust(args)
	case "image_auto_level":
		return s.handleImageAutoLevel(args)

	// Filters
	case "image_convolve":
		return s.handleImageConvolve(args)
	case "image_morphology":
		return s.handleImageMorphology(args)
	case "image_threshold":
		return s.handleImageThreshold(args)
	case "image_denoise":
		return s.handleImageDenoise(args)

	// Compositing
	case "image_overlay":
		return s.handleImageOverlay(args)
	case "image_blend":
		return s.handleImageBlend(args)

	// Chains
	case "image_pipeline":
		return s.handleImagePipeline(args)

	default:
		return nil, fmt.Errorf("%w: %s", errUnknownTool, name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	mcpErr := &MCPError{
		Code:    code,
		Message: message,
	}
	if data != "" {
		mcpErr.Data = data
	}
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error:   mcpErr,
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// ImageResult is returned by every tool that produces an image. At most one
// of ImageBase64 and OutputPath is set.
type ImageResult struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64,omitempty"`
	MimeType    string `json:"mime_type,omitempty"`
	OutputPath  string `json:"output_path,omitempty"`
}

// emit returns buf inline as base64 PNG, or saves it when outputPath is set.
// A zero-area result has no pixels to encode and is reported by size only.
func (s *Server) emit(buf *raster.Buffer, outputPath string) (*ImageResult, error) {
	res := &ImageResult{Width: buf.Width, Height: buf.Height}
	if buf.Empty() {
		return res, nil
	}

	if outputPath != "" {
		if err := codec.SaveFile(outputPath, buf, 0); err != nil {
			return nil, err
		}
		// The file may have been loaded before; drop the stale copy.
		s.cache.Evict(outputPath)
		res.OutputPath = outputPath
		return res, nil
	}

	var out bytes.Buffer
	if err := codec.Encode(&out, buf, "png", 0); err != nil {
		return nil, err
	}
	res.ImageBase64 = base64.StdEncoding.EncodeToString(out.Bytes())
	res.MimeType = "image/png"
	return res, nil
}

// imageArgs are shared by every tool working on one file.
type imageArgs struct {
	Path       string `json:"path"`
	OutputPath string `json:"output_path"`
}

func (a imageArgs) load(s *Server) (*raster.Buffer, error) {
	if a.Path == "" {
		return nil, fmt.Errorf("%w: path is required", raster.ErrInvalidArgument)
	}
	return s.cache.Load(a.Path)
}

// run loads the input image, applies op and emits the result.
func (s *Server) run(a imageArgs, op func(*raster.Buffer) (*raster.Buffer, error)) (interface{}, error) {
	img, err := a.load(s)
	if err != nil {
		return nil, err
	}
	out, err := op(img)
	if err != nil {
		return nil, err
	}
	return s.emit(out, a.OutputPath)
}

// === Image Information Handlers ===

func (s *Server) handleImageLoad(args json.RawMessage) (interface{}, error) {
	var a imageArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if _, err := a.load(s); err != nil {
		return nil, err
	}
	return codec.LoadInfo(s.cache, a.Path)
}

func (s *Server) handleImageDimensions(args json.RawMessage) (interface{}, error) {
	var a imageArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if _, err := a.load(s); err != nil {
		return nil, err
	}
	return codec.GetDimensions(s.cache, a.Path)
}

func (s *Server) handleImageHistogram(args json.RawMessage) (interface{}, error) {
	var a imageArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := a.load(s)
	if err != nil {
		return nil, err
	}
	return raster.ComputeHistogram(img)
}

type imageSampleColorArgs struct {
	imageArgs
	Points []struct {
		X int `json:"x"`
		Y int `json:"y"`
	} `json:"points"`
}

// SampleResult lists sampled colors in request order.
type SampleResult struct {
	Samples []*raster.ColorSample `json:"samples"`
}

func (s *Server) handleImageSampleColor(args json.RawMessage) (interface{}, error) {
	var a imageSampleColorArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if len(a.Points) == 0 {
		return nil, fmt.Errorf("%w: points is empty", raster.ErrInvalidArgument)
	}
	img, err := a.load(s)
	if err != nil {
		return nil, err
	}

	res := &SampleResult{Samples: make([]*raster.ColorSample, len(a.Points))}
	for i, p := range a.Points {
		if res.Samples[i], err = raster.Sample(img, p.X, p.Y); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// === Geometry Handlers ===

type imageCropArgs struct {
	imageArgs
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (s *Server) handleImageCrop(args json.RawMessage) (interface{}, error) {
	var a imageCropArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return s.run(a.imageArgs, func(img *raster.Buffer) (*raster.Buffer, error) {
		return raster.Crop(img, a.X, a.Y, a.Width, a.Height)
	})
}

type imageFlipArgs struct {
	imageArgs
	Horizontal bool `json:"horizontal"`
	Vertical   bool `json:"vertical"`
}

func (s *Server) handleImageFlip(args json.RawMessage) (interface{}, error) {
	var a imageFlipArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return s.run(a.imageArgs, func(img *raster.Buffer) (*raster.Buffer, error) {
		return raster.Flip(img, a.Horizontal, a.Vertical)
	})
}

type imageRotateArgs struct {
	imageArgs
	Degrees float64 `json:"degrees"`
}

func (s *Server) handleImageRotate(args json.RawMessage) (interface{}, error) {
	var a imageRotateArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return s.run(a.imageArgs, func(img *raster.Buffer) (*raster.Buffer, error) {
		return raster.Rotate(img, a.Degrees)
	})
}

type imageResizeArgs struct {
	imageArgs
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Algorithm string `json:"algorithm"`
}

func (s *Server) handleImageResize(args json.RawMessage) (interface{}, error) {
	var a imageResizeArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	alg, err := raster.ParseResizeAlgorithm(a.Algorithm)
	if err != nil {
		return nil, err
	}
	return s.run(a.imageArgs, func(img *raster.Buffer) (*raster.Buffer, error) {
		return raster.Resize(img, a.Width, a.Height, alg)
	})
}

// === Color Handlers ===

type imageAdjustArgs struct {
	imageArgs
	Operation string   `json:"operation"`
	Amount    *float64 `json:"amount"`
}

func (s *Server) handleImageAdjust(args json.RawMessage) (interface{}, error) {
	var a imageAdjustArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}

	var op func(*raster.Buffer) (*raster.Buffer, error)
	switch a.Operation {
	case "grayscale":
		op = raster.Grayscale
	case "sepia":
		op = raster.Sepia
	case "invert":
		op = raster.Invert
	case "brightness", "contrast", "hue", "saturate":
		if a.Amount == nil {
			return nil, fmt.Errorf("%w: %s needs amount", raster.ErrInvalidArgument, a.Operation)
		}
		amount := *a.Amount
		adjust := map[string]func(*raster.Buffer, float64) (*raster.Buffer, error){
			"brightness": raster.Brightness,
			"contrast":   raster.Contrast,
			"hue":        raster.Hue,
			"saturate":   raster.Saturate,
		}[a.Operation]
		op = func(img *raster.Buffer) (*raster.Buffer, error) { return adjust(img, amount) }
	default:
		return nil, fmt.Errorf("%w: unknown adjustment %q", raster.ErrInvalidArgument, a.Operation)
	}
	return s.run(a.imageArgs, op)
}

func (s *Server) handleImageAutoLevel(args json.RawMessage) (interface{}, error) {
	var a imageArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return s.run(a, raster.AutoLevel)
}

// === Filter Handlers ===

type imageConvolveArgs struct {
	imageArgs
	Preset      string    `json:"preset"`
	Radius      *int      `json:"radius"`
	Kernel      []float64 `json:"kernel"`
	KernelWidth int       `json:"kernel_width"`
}

func (s *Server) handleImageConvolve(args json.RawMessage) (interface{}, error) {
	var a imageConvolveArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}

	var op func(*raster.Buffer) (*raster.Buffer, error)
	switch a.Preset {
	case "gaussian_blur":
		radius := 1
		if a.Radius != nil {
			radius = *a.Radius
		}
		op = func(img *raster.Buffer) (*raster.Buffer, error) { return raster.GaussianBlur(img, radius) }
	case "sharpen":
		op = raster.Sharpen
	case "sobel":
		op = raster.Sobel
	case "":
		if len(a.Kernel) == 0 {
			return nil, fmt.Errorf("%w: give a preset or a kernel", raster.ErrInvalidArgument)
		}
		op = func(img *raster.Buffer) (*raster.Buffer, error) {
			return raster.Convolve(img, a.Kernel, a.KernelWidth)
		}
	default:
		return nil, fmt.Errorf("%w: unknown preset %q", raster.ErrInvalidArgument, a.Preset)
	}
	return s.run(a.imageArgs, op)
}

type imageMorphologyArgs struct {
	imageArgs
	Operation string `json:"operation"`
	Pixels    *int   `json:"pixels"`
}

func (s *Server) handleImageMorphology(args json.RawMessage) (interface{}, error) {
	var a imageMorphologyArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	pixels := 1
	if a.Pixels != nil {
		pixels = *a.Pixels
	}

	morph, ok := map[string]func(*raster.Buffer, int) (*raster.Buffer, error){
		"dilate": raster.Dilate,
		"erode":  raster.Erode,
		"open":   raster.Open,
		"close":  raster.Close,
	}[a.Operation]
	if !ok {
		return nil, fmt.Errorf("%w: unknown morphology operation %q", raster.ErrInvalidArgument, a.Operation)
	}
	return s.run(a.imageArgs, func(img *raster.Buffer) (*raster.Buffer, error) { return morph(img, pixels) })
}

type imageThresholdArgs struct {
	imageArgs
	Method    string `json:"method"`
	Value     *int   `json:"value"`
	BlockSize *int   `json:"block_size"`
}

func (s *Server) handleImageThreshold(args json.RawMessage) (interface{}, error) {
	var a imageThresholdArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}

	switch a.Method {
	case "", "global":
		value := 128
		if a.Value != nil {
			value = *a.Value
		}
		return s.run(a.imageArgs, func(img *raster.Buffer) (*raster.Buffer, error) {
			return raster.Threshold(img, value)
		})
	case "adaptive":
		blockSize := 11
		if a.BlockSize != nil {
			blockSize = *a.BlockSize
		}
		return s.run(a.imageArgs, func(img *raster.Buffer) (*raster.Buffer, error) {
			return raster.AdaptiveThreshold(img, blockSize)
		})
	default:
		return nil, fmt.Errorf("%w: unknown threshold method %q", raster.ErrInvalidArgument, a.Method)
	}
}

type imageDenoiseArgs struct {
	imageArgs
	Method       string   `json:"method"`
	Radius       *int     `json:"radius"`
	SpatialSigma *float64 `json:"spatial_sigma"`
	RangeSigma   *float64 `json:"range_sigma"`
}

func (s *Server) handleImageDenoise(args json.RawMessage) (interface{}, error) {
	var a imageDenoiseArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}

	switch a.Method {
	case "", "median":
		radius := 1
		if a.Radius != nil {
			radius = *a.Radius
		}
		return s.run(a.imageArgs, func(img *raster.Buffer) (*raster.Buffer, error) {
			return raster.MedianFilter(img, radius)
		})
	case "bilateral":
		spatial, rng := 3.0, 50.0
		if a.SpatialSigma != nil {
			spatial = *a.SpatialSigma
		}
		if a.RangeSigma != nil {
			rng = *a.RangeSigma
		}
		return s.run(a.imageArgs, func(img *raster.Buffer) (*raster.Buffer, error) {
			return raster.BilateralFilter(img, spatial, rng)
		})
	default:
		return nil, fmt.Errorf("%w: unknown denoise method %q", raster.ErrInvalidArgument, a.Method)
	}
}

// === Compositing Handlers ===

type imageOverlayArgs struct {
	imageArgs
	OverlayPath string   `json:"overlay_path"`
	X           int      `json:"x"`
	Y           int      `json:"y"`
	Alpha       *float64 `json:"alpha"`
}

func (s *Server) handleImageOverlay(args json.RawMessage) (interface{}, error) {
	var a imageOverlayArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	alpha := 1.0
	if a.Alpha != nil {
		alpha = *a.Alpha
	}
	over, err := imageArgs{Path: a.OverlayPath}.load(s)
	if err != nil {
		return nil, err
	}
	return s.run(a.imageArgs, func(img *raster.Buffer) (*raster.Buffer, error) {
		return raster.OverlayImage(img, over, a.X, a.Y, alpha)
	})
}

type imageBlendArgs struct {
	imageArgs
	OtherPath string `json:"other_path"`
	Mode      string `json:"mode"`
}

func (s *Server) handleImageBlend(args json.RawMessage) (interface{}, error) {
	var a imageBlendArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	mode, err := raster.ParseBlendMode(a.Mode)
	if err != nil {
		return nil, err
	}
	other, err := imageArgs{Path: a.OtherPath}.load(s)
	if err != nil {
		return nil, err
	}
	return s.run(a.imageArgs, func(img *raster.Buffer) (*raster.Buffer, error) {
		return raster.Blend(img, other, mode)
	})
}

// === Chain Handlers ===

type imagePipelineArgs struct {
	imageArgs
	Steps string `json:"steps"`
}

func (s *Server) handleImagePipeline(args json.RawMessage) (interface{}, error) {
	var a imagePipelineArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	steps, err := pipeline.Parse(a.Steps)
	if err != nil {
		return nil, err
	}
	return s.run(a.imageArgs, func(img *raster.Buffer) (*raster.Buffer, error) {
		return pipeline.Apply(img, steps, s.cache.Load)
	})
}
