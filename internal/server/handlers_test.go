package server

import (
	"encoding/base64"
	"encoding/json"
	"image/color"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ironsheep/pixel-tools-mcp/internal/codec"
	"github.com/ironsheep/pixel-tools-mcp/internal/raster"
)

// createTestImageFile writes a solid-color PNG into a temp dir and returns its path.
func createTestImageFile(t *testing.T, width, height int, c color.NRGBA) string {
	t.Helper()

	buf := raster.New(width, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			buf.Set(x, y, c.R, c.G, c.B, c.A)
		}
	}

	path := filepath.Join(t.TempDir(), "handler-test.png")
	if err := codec.SaveFile(path, buf, 0); err != nil {
		t.Fatalf("failed to write test image: %v", err)
	}
	return path
}

// callTool sends a tools/call request through handleRequest.
func callTool(t *testing.T, s *Server, name string, args map[string]interface{}) *MCPResponse {
	t.Helper()
	params := map[string]interface{}{
		"name":      name,
		"arguments": args,
	}
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		t.Fatalf("failed to marshal params: %v", err)
	}

	resp := s.handleRequest(&MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  paramsJSON,
	})
	if resp == nil {
		t.Fatal("handleRequest returned nil")
	}
	return resp
}

// decodeResult unpacks the JSON text of a successful tool response into v.
func decodeResult(t *testing.T, resp *MCPResponse, v interface{}) {
	t.Helper()
	if resp.Error != nil {
		t.Fatalf("Unexpected error: %+v", resp.Error)
	}
	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatal("Result should be a map")
	}
	content, ok := result["content"].([]map[string]interface{})
	if !ok || len(content) != 1 {
		t.Fatalf("content: got %#v", result["content"])
	}
	text, _ := content[0]["text"].(string)
	if err := json.Unmarshal([]byte(text), v); err != nil {
		t.Fatalf("result text is not JSON: %v", err)
	}
}

// decodeImage decodes the inline PNG of an ImageResult.
func decodeImage(t *testing.T, res ImageResult) *raster.Buffer {
	t.Helper()
	if res.MimeType != "image/png" {
		t.Fatalf("MimeType: got %q", res.MimeType)
	}
	data, err := base64.StdEncoding.DecodeString(res.ImageBase64)
	if err != nil {
		t.Fatalf("invalid base64: %v", err)
	}
	buf, err := codec.Decode(strings.NewReader(string(data)), "png")
	if err != nil {
		t.Fatalf("invalid PNG: %v", err)
	}
	return buf
}

func expectErrorCode(t *testing.T, resp *MCPResponse, code int) {
	t.Helper()
	if resp.Error == nil {
		t.Fatalf("expected error %d, got result %v", code, resp.Result)
	}
	if resp.Error.Code != code {
		t.Errorf("Error code: got %d, want %d (%v)", resp.Error.Code, code, resp.Error.Data)
	}
}

func TestHandleToolsCall_ImageLoad(t *testing.T) {
	s := New()
	imgPath := createTestImageFile(t, 100, 80, color.NRGBA{255, 0, 0, 255})

	var info codec.Info
	decodeResult(t, callTool(t, s, "image_load", map[string]interface{}{"path": imgPath}), &info)

	if info.Width != 100 || info.Height != 80 {
		t.Errorf("dimensions: got %dx%d, want 100x80", info.Width, info.Height)
	}
	if info.Format != "png" || info.HasAlpha {
		t.Errorf("got format %q has_alpha %v", info.Format, info.HasAlpha)
	}
}

func TestHandleToolsCall_ImageDimensions(t *testing.T) {
	s := New()
	imgPath := createTestImageFile(t, 200, 150, color.NRGBA{0, 255, 0, 255})

	var dims codec.Dimensions
	decodeResult(t, callTool(t, s, "image_dimensions", map[string]interface{}{"path": imgPath}), &dims)
	if dims.Width != 200 || dims.Height != 150 {
		t.Errorf("got %dx%d, want 200x150", dims.Width, dims.Height)
	}
}

func TestHandleToolsCall_Histogram(t *testing.T) {
	s := New()
	imgPath := createTestImageFile(t, 4, 5, color.NRGBA{10, 20, 30, 255})

	var h raster.Histogram
	decodeResult(t, callTool(t, s, "image_histogram", map[string]interface{}{"path": imgPath}), &h)
	if h.R[10] != 20 || h.G[20] != 20 || h.B[30] != 20 {
		t.Errorf("got R[10]=%d G[20]=%d B[30]=%d, want 20 each", h.R[10], h.G[20], h.B[30])
	}
}

func TestHandleToolsCall_SampleColor(t *testing.T) {
	s := New()
	imgPath := createTestImageFile(t, 3, 3, color.NRGBA{255, 0, 0, 255})

	var res SampleResult
	decodeResult(t, callTool(t, s, "image_sample_color", map[string]interface{}{
		"path":   imgPath,
		"points": []map[string]interface{}{{"x": 0, "y": 0}, {"x": 2, "y": 1}},
	}), &res)
	if len(res.Samples) != 2 {
		t.Fatalf("got %d samples, want 2", len(res.Samples))
	}
	if res.Samples[1].X != 2 || res.Samples[1].Y != 1 || res.Samples[1].Hex != "#ff0000" {
		t.Errorf("sample: got %+v", res.Samples[1])
	}

	expectErrorCode(t, callTool(t, s, "image_sample_color", map[string]interface{}{
		"path": imgPath, "points": []map[string]interface{}{{"x": 3, "y": 0}},
	}), -32602)
	expectErrorCode(t, callTool(t, s, "image_sample_color", map[string]interface{}{
		"path": imgPath,
	}), -32602)
}

func TestHandleToolsCall_Crop(t *testing.T) {
	s := New()
	imgPath := createTestImageFile(t, 10, 10, color.NRGBA{1, 2, 3, 255})

	var res ImageResult
	decodeResult(t, callTool(t, s, "image_crop", map[string]interface{}{
		"path": imgPath, "x": 5, "y": 5, "width": 10, "height": 10,
	}), &res)
	if res.Width != 5 || res.Height != 5 {
		t.Errorf("dimensions: got %dx%d, want 5x5", res.Width, res.Height)
	}
	img := decodeImage(t, res)
	if img.Width != 5 || img.Height != 5 {
		t.Errorf("decoded: got %dx%d, want 5x5", img.Width, img.Height)
	}
}

func TestHandleToolsCall_Crop_Outside(t *testing.T) {
	s := New()
	imgPath := createTestImageFile(t, 10, 10, color.NRGBA{1, 2, 3, 255})

	var res ImageResult
	decodeResult(t, callTool(t, s, "image_crop", map[string]interface{}{
		"path": imgPath, "x": 50, "y": 50, "width": 5, "height": 5,
	}), &res)
	if res.Width != 0 || res.Height != 0 || res.ImageBase64 != "" {
		t.Errorf("got %+v, want an empty 0x0 result", res)
	}
}

func TestHandleToolsCall_Adjust(t *testing.T) {
	s := New()
	imgPath := createTestImageFile(t, 2, 2, color.NRGBA{100, 150, 200, 255})

	var res ImageResult
	decodeResult(t, callTool(t, s, "image_adjust", map[string]interface{}{
		"path": imgPath, "operation": "invert",
	}), &res)
	if r, g, b, a := decodeImage(t, res).At(1, 1); r != 155 || g != 105 || b != 55 || a != 255 {
		t.Errorf("inverted: got (%d,%d,%d,%d)", r, g, b, a)
	}

	decodeResult(t, callTool(t, s, "image_adjust", map[string]interface{}{
		"path": imgPath, "operation": "brightness", "amount": 0,
	}), &res)
	if r, g, b, _ := decodeImage(t, res).At(0, 0); r != 0 || g != 0 || b != 0 {
		t.Errorf("brightness 0: got (%d,%d,%d), want black", r, g, b)
	}

	expectErrorCode(t, callTool(t, s, "image_adjust", map[string]interface{}{
		"path": imgPath, "operation": "hue",
	}), -32602)
	expectErrorCode(t, callTool(t, s, "image_adjust", map[string]interface{}{
		"path": imgPath, "operation": "posterize",
	}), -32602)
}

func TestHandleToolsCall_Resize_OutputPath(t *testing.T) {
	s := New()
	imgPath := createTestImageFile(t, 8, 8, color.NRGBA{9, 9, 9, 255})
	outPath := filepath.Join(t.TempDir(), "sub", "small.jpg")

	var res ImageResult
	decodeResult(t, callTool(t, s, "image_resize", map[string]interface{}{
		"path": imgPath, "width": 4, "height": 2, "algorithm": "nearest", "output_path": outPath,
	}), &res)
	if res.OutputPath != outPath || res.ImageBase64 != "" {
		t.Errorf("got %+v, want only output_path set", res)
	}

	written, err := codec.LoadFile(outPath)
	if err != nil {
		t.Fatalf("output not readable: %v", err)
	}
	if written.Width != 4 || written.Height != 2 {
		t.Errorf("written: got %dx%d, want 4x2", written.Width, written.Height)
	}

	expectErrorCode(t, callTool(t, s, "image_resize", map[string]interface{}{
		"path": imgPath, "width": 4, "height": 2, "algorithm": "cubic",
	}), -32602)
}

func TestHandleToolsCall_OutputPathEvictsCache(t *testing.T) {
	s := New()
	imgPath := createTestImageFile(t, 6, 6, color.NRGBA{9, 9, 9, 255})

	var dims codec.Dimensions
	decodeResult(t, callTool(t, s, "image_dimensions", map[string]interface{}{"path": imgPath}), &dims)

	var res ImageResult
	decodeResult(t, callTool(t, s, "image_rotate", map[string]interface{}{
		"path": imgPath, "degrees": 0, "output_path": imgPath,
	}), &res)
	decodeResult(t, callTool(t, s, "image_crop", map[string]interface{}{
		"path": imgPath, "x": 0, "y": 0, "width": 3, "height": 2, "output_path": imgPath,
	}), &res)

	decodeResult(t, callTool(t, s, "image_dimensions", map[string]interface{}{"path": imgPath}), &dims)
	if dims.Width != 3 || dims.Height != 2 {
		t.Errorf("after overwrite: got %dx%d, want 3x2", dims.Width, dims.Height)
	}
}

func TestHandleToolsCall_OverlayAndBlend(t *testing.T) {
	s := New()
	base := createTestImageFile(t, 4, 4, color.NRGBA{0, 0, 0, 255})
	top := createTestImageFile(t, 2, 2, color.NRGBA{255, 255, 255, 255})

	var res ImageResult
	decodeResult(t, callTool(t, s, "image_overlay", map[string]interface{}{
		"path": base, "overlay_path": top, "x": 2, "y": 2,
	}), &res)
	img := decodeImage(t, res)
	if r, _, _, _ := img.At(3, 3); r != 255 {
		t.Errorf("overlaid corner: got %d, want 255", r)
	}
	if r, _, _, _ := img.At(0, 0); r != 0 {
		t.Errorf("untouched corner: got %d, want 0", r)
	}

	decodeResult(t, callTool(t, s, "image_blend", map[string]interface{}{
		"path": base, "other_path": top, "mode": "screen",
	}), &res)
	if r, _, _, _ := decodeImage(t, res).At(0, 0); r != 255 {
		t.Errorf("screen with white: got %d, want 255", r)
	}

	expectErrorCode(t, callTool(t, s, "image_blend", map[string]interface{}{
		"path": base, "other_path": top, "mode": "dodge",
	}), -32602)
	expectErrorCode(t, callTool(t, s, "image_overlay", map[string]interface{}{
		"path": base, "overlay_path": filepath.Join(t.TempDir(), "missing.png"),
	}), -32000)
}

func TestHandleToolsCall_Pipeline(t *testing.T) {
	s := New()
	imgPath := createTestImageFile(t, 12, 12, color.NRGBA{200, 40, 40, 255})

	var res ImageResult
	decodeResult(t, callTool(t, s, "image_pipeline", map[string]interface{}{
		"path": imgPath, "steps": "grayscale|resize:6x3:nearest|invert",
	}), &res)
	img := decodeImage(t, res)
	if img.Width != 6 || img.Height != 3 {
		t.Fatalf("dimensions: got %dx%d, want 6x3", img.Width, img.Height)
	}
	// luminance 0.2126*200 + 0.7874*40 = 74.016 -> 74; inverted 181
	if r, g, b, _ := img.At(0, 0); r != 181 || g != 181 || b != 181 {
		t.Errorf("got (%d,%d,%d), want 181", r, g, b)
	}

	expectErrorCode(t, callTool(t, s, "image_pipeline", map[string]interface{}{
		"path": imgPath, "steps": "grayscale|explode",
	}), -32602)
}

func TestHandleToolsCall_ParameterErrors(t *testing.T) {
	s := New()
	imgPath := createTestImageFile(t, 4, 4, color.NRGBA{1, 1, 1, 255})

	tests := []struct {
		name string
		tool string
		args map[string]interface{}
	}{
		{"negative window", "image_morphology", map[string]interface{}{"path": imgPath, "operation": "erode", "pixels": -1}},
		{"unknown morphology", "image_morphology", map[string]interface{}{"path": imgPath, "operation": "thin"}},
		{"even kernel", "image_convolve", map[string]interface{}{"path": imgPath, "kernel": []float64{1, 1, 1, 1}, "kernel_width": 2}},
		{"no kernel", "image_convolve", map[string]interface{}{"path": imgPath}},
		{"bad block size", "image_threshold", map[string]interface{}{"path": imgPath, "method": "adaptive", "block_size": -3}},
		{"zero block size", "image_threshold", map[string]interface{}{"path": imgPath, "method": "adaptive", "block_size": 0}},
		{"unknown denoise", "image_denoise", map[string]interface{}{"path": imgPath, "method": "wavelet"}},
		{"negative size", "image_resize", map[string]interface{}{"path": imgPath, "width": -1, "height": 2}},
		{"wrong type", "image_resize", map[string]interface{}{"path": imgPath, "width": "ten", "height": 2}},
		{"missing path", "image_flip", map[string]interface{}{"horizontal": true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectErrorCode(t, callTool(t, s, tt.tool, tt.args), -32602)
		})
	}
}

func TestHandleToolsCall_DenoiseExplicitZeroSigma(t *testing.T) {
	src := raster.New(5, 5)
	for i := range src.Pix {
		src.Pix[i] = uint8(i * 37)
	}
	for i := 3; i < len(src.Pix); i += 4 {
		src.Pix[i] = 255
	}
	imgPath := filepath.Join(t.TempDir(), "noise.png")
	if err := codec.SaveFile(imgPath, src, 0); err != nil {
		t.Fatalf("failed to write test image: %v", err)
	}

	s := New()
	for _, args := range []map[string]interface{}{
		{"path": imgPath, "method": "bilateral", "spatial_sigma": 0},
		{"path": imgPath, "method": "bilateral", "range_sigma": 0},
	} {
		var res ImageResult
		decodeResult(t, callTool(t, s, "image_denoise", args), &res)
		got := decodeImage(t, res)
		if string(got.Pix) != string(src.Pix) {
			t.Errorf("%v: a zero sigma should leave the image unchanged", args)
		}
	}

	// The defaults smooth the same image.
	var res ImageResult
	decodeResult(t, callTool(t, s, "image_denoise", map[string]interface{}{"path": imgPath, "method": "bilateral"}), &res)
	if got := decodeImage(t, res); string(got.Pix) == string(src.Pix) {
		t.Error("default sigmas should change a noisy image")
	}
}

func TestHandleToolsCall_NonExistentFile(t *testing.T) {
	s := New()
	resp := callTool(t, s, "image_load", map[string]interface{}{
		"path": filepath.Join(t.TempDir(), "nonexistent.png"),
	})
	expectErrorCode(t, resp, -32000)
	if resp.Error.Message != "Tool execution failed" {
		t.Errorf("Message: got %q", resp.Error.Message)
	}
}

func TestHandleToolsCall_InvalidTool(t *testing.T) {
	s := New()
	expectErrorCode(t, callTool(t, s, "image_ocr_full", map[string]interface{}{}), -32602)
}

func TestHandleToolsCall_InvalidParams(t *testing.T) {
	s := New()
	resp := s.handleRequest(&MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  json.RawMessage(`"not an object"`),
	})
	expectErrorCode(t, resp, -32602)
}

func TestExecuteTool_AllTools(t *testing.T) {
	s := New()
	imgPath := createTestImageFile(t, 20, 20, color.NRGBA{128, 128, 128, 255})
	otherPath := createTestImageFile(t, 5, 5, color.NRGBA{10, 200, 30, 255})

	// Test each tool to ensure executeTool correctly dispatches
	toolTests := []struct {
		name string
		args map[string]interface{}
	}{
		{"image_load", map[string]interface{}{"path": imgPath}},
		{"image_dimensions", map[string]interface{}{"path": imgPath}},
		{"image_histogram", map[string]interface{}{"path": imgPath}},
		{"image_sample_color", map[string]interface{}{"path": imgPath, "points": []map[string]interface{}{{"x": 3, "y": 4}}}},
		{"image_crop", map[string]interface{}{"path": imgPath, "x": 2, "y": 2, "width": 5, "height": 5}},
		{"image_flip", map[string]interface{}{"path": imgPath, "horizontal": true, "vertical": true}},
		{"image_rotate", map[string]interface{}{"path": imgPath, "degrees": 33}},
		{"image_resize", map[string]interface{}{"path": imgPath, "width": 7, "height": 9, "algorithm": "lanczos"}},
		{"image_adjust", map[string]interface{}{"path": imgPath, "operation": "saturate", "amount": 1.5}},
		{"image_auto_level", map[string]interface{}{"path": imgPath}},
		{"image_convolve", map[string]interface{}{"path": imgPath, "preset": "gaussian_blur", "radius": 2}},
		{"image_convolve", map[string]interface{}{"path": imgPath, "preset": "sobel"}},
		{"image_convolve", map[string]interface{}{"path": imgPath, "kernel": []float64{0, 0, 0, 0, 1, 0, 0, 0, 0}, "kernel_width": 3}},
		{"image_morphology", map[string]interface{}{"path": imgPath, "operation": "close"}},
		{"image_threshold", map[string]interface{}{"path": imgPath}},
		{"image_threshold", map[string]interface{}{"path": imgPath, "method": "adaptive", "block_size": 5}},
		{"image_denoise", map[string]interface{}{"path": imgPath}},
		{"image_denoise", map[string]interface{}{"path": imgPath, "method": "bilateral"}},
		{"image_overlay", map[string]interface{}{"path": imgPath, "overlay_path": otherPath, "x": -2, "y": 17, "alpha": 0.3}},
		{"image_blend", map[string]interface{}{"path": imgPath, "other_path": otherPath, "mode": "difference"}},
		{"image_pipeline", map[string]interface{}{"path": imgPath, "steps": "sepia|median:1|rotate:90"}},
	}

	for _, tt := range toolTests {
		t.Run(tt.name, func(t *testing.T) {
			argsJSON, _ := json.Marshal(tt.args)
			result, err := s.executeTool(tt.name, argsJSON)
			if err != nil {
				t.Fatalf("executeTool(%s) failed: %v", tt.name, err)
			}
			if result == nil {
				t.Errorf("executeTool(%s) returned nil result", tt.name)
			}
		})
	}
}

func TestExecuteTool_UnknownTool(t *testing.T) {
	s := New()

	_, err := s.executeTool("unknown_tool", json.RawMessage(`{}`))
	if err == nil {
		t.Error("executeTool should fail for unknown tool")
	}
}

func TestExecuteTool_InvalidJSON(t *testing.T) {
	s := New()

	_, err := s.executeTool("image_load", json.RawMessage(`{invalid`))
	if err == nil {
		t.Error("executeTool should fail for invalid JSON")
	}
}
