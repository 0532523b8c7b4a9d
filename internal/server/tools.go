package server

import "github.com/ironsheep/pixel-tools-mcp/internal/pipeline"

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func prop(typ, description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        typ,
		"description": description,
	}
}

func propDefault(typ, description string, def interface{}) map[string]interface{} {
	p := prop(typ, description)
	p["default"] = def
	return p
}

func enumProp(description string, values ...string) map[string]interface{} {
	p := prop("string", description)
	p["enum"] = values
	return p
}

// imageSchema builds an object schema with path and output_path plus extra
// properties. path is always required.
func imageSchema(extra map[string]interface{}, required ...string) map[string]interface{} {
	props := map[string]interface{}{
		"path":        prop("string", "Absolute path to the image file"),
		"output_path": prop("string", "Optional file to write the result to (format from extension). When omitted the result is returned as base64 PNG"),
	}
	for k, v := range extra {
		props[k] = v
	}
	return map[string]interface{}{
		"type":       "object",
		"properties": props,
		"required":   append([]string{"path"}, required...),
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Image Information
		{
			Name:        "image_load",
			Description: "Load an image file and return its dimensions, format, alpha presence and file size. The decoded image is cached for later calls.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": prop("string", "Absolute path to the image file"),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_dimensions",
			Description: "Get the width and height of an image file.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": prop("string", "Absolute path to the image file"),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_histogram",
			Description: "Count pixels per 0-255 value in the red, green and blue channels. Alpha is ignored.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": prop("string", "Absolute path to the image file"),
				},
				"required": []string{"path"},
			},
		},

		{
			Name:        "image_sample_color",
			Description: "Read exact pixel colors (RGBA, hex and HSV) at one or more coordinates, e.g. to check the result of a transform.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": prop("string", "Absolute path to the image file"),
					"points": map[string]interface{}{
						"type":        "array",
						"description": "Pixel coordinates to sample (0-based, origin top-left)",
						"items": map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"x": map[string]interface{}{"type": "integer"},
								"y": map[string]interface{}{"type": "integer"},
							},
							"required": []string{"x", "y"},
						},
					},
				},
				"required": []string{"path", "points"},
			},
		},

		// Geometry
		{
			Name:        "image_crop",
			Description: "Extract a rectangle. The rectangle is clipped to the image; a rectangle entirely outside yields a 0x0 result.",
			InputSchema: imageSchema(map[string]interface{}{
				"x":      prop("integer", "Left edge X coordinate (0-based)"),
				"y":      prop("integer", "Top edge Y coordinate (0-based)"),
				"width":  prop("integer", "Width of the rectangle in pixels"),
				"height": prop("integer", "Height of the rectangle in pixels"),
			}, "x", "y", "width", "height"),
		},
		{
			Name:        "image_flip",
			Description: "Mirror the image horizontally, vertically or both.",
			InputSchema: imageSchema(map[string]interface{}{
				"horizontal": propDefault("boolean", "Mirror left to right", false),
				"vertical":   propDefault("boolean", "Mirror top to bottom", false),
			}),
		},
		{
			Name:        "image_rotate",
			Description: "Rotate clockwise by any angle. The canvas grows to fit the rotated image and uncovered corners are transparent.",
			InputSchema: imageSchema(map[string]interface{}{
				"degrees": prop("number", "Clockwise rotation in degrees"),
			}, "degrees"),
		},
		{
			Name:        "image_resize",
			Description: "Resample to an exact width and height.",
			InputSchema: imageSchema(map[string]interface{}{
				"width":     prop("integer", "Target width in pixels"),
				"height":    prop("integer", "Target height in pixels"),
				"algorithm": enumProp("Resampling filter. Default bilinear", "nearest", "bilinear", "lanczos", "mitchell"),
			}, "width", "height"),
		},

		// Color
		{
			Name:        "image_adjust",
			Description: "Apply a color adjustment. brightness, contrast and saturate take a factor (1 = unchanged); hue takes degrees.",
			InputSchema: imageSchema(map[string]interface{}{
				"operation": enumProp("Adjustment to apply", "grayscale", "sepia", "invert", "brightness", "contrast", "hue", "saturate"),
				"amount":    prop("number", "Factor or hue rotation in degrees; required for brightness, contrast, hue and saturate"),
			}, "operation"),
		},
		{
			Name:        "image_auto_level",
			Description: "Stretch each color channel so its darkest value maps to 0 and its brightest to 255.",
			InputSchema: imageSchema(nil),
		},

		// Filters
		{
			Name:        "image_convolve",
			Description: "Apply a preset filter or a custom square kernel. Pixels past the border repeat the nearest edge pixel.",
			InputSchema: imageSchema(map[string]interface{}{
				"preset":       enumProp("Built-in filter; omit to use kernel", "gaussian_blur", "sharpen", "sobel"),
				"radius":       propDefault("integer", "Blur radius for gaussian_blur: 1 = 3x3, 2 or more = 5x5", 1),
				"kernel":       map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "number"}, "description": "Row-major kernel weights"},
				"kernel_width": prop("integer", "Odd kernel side length; kernel must hold kernel_width^2 values"),
			}),
		},
		{
			Name:        "image_morphology",
			Description: "Grow (dilate) or shrink (erode) bright regions per channel, or combine them (open, close).",
			InputSchema: imageSchema(map[string]interface{}{
				"operation": enumProp("Morphological operation", "dilate", "erode", "open", "close"),
				"pixels":    propDefault("integer", "Window half-width", 1),
			}, "operation"),
		},
		{
			Name:        "image_threshold",
			Description: "Convert to black and white by luminance, against a fixed value or the local mean.",
			InputSchema: imageSchema(map[string]interface{}{
				"method":     enumProp("global or adaptive. Default global", "global", "adaptive"),
				"value":      propDefault("integer", "Global threshold; luminance >= value is white", 128),
				"block_size": propDefault("integer", "Adaptive window size", 11),
			}),
		},
		{
			Name:        "image_denoise",
			Description: "Reduce noise with a median filter or an edge-preserving bilateral filter.",
			InputSchema: imageSchema(map[string]interface{}{
				"method":        enumProp("median or bilateral. Default median", "median", "bilateral"),
				"radius":        propDefault("integer", "Median window radius", 1),
				"spatial_sigma": propDefault("number", "Bilateral spatial sigma in pixels", 3),
				"range_sigma":   propDefault("number", "Bilateral color-distance sigma", 50),
			}),
		},

		// Compositing
		{
			Name:        "image_overlay",
			Description: "Draw another image over this one at (x, y) with alpha blending. Parts outside the base are skipped.",
			InputSchema: imageSchema(map[string]interface{}{
				"overlay_path": prop("string", "Absolute path to the image drawn on top"),
				"x":            propDefault("integer", "Left position of the overlay; may be negative", 0),
				"y":            propDefault("integer", "Top position of the overlay; may be negative", 0),
				"alpha":        propDefault("number", "Global opacity from 0 to 1", 1.0),
			}, "overlay_path"),
		},
		{
			Name:        "image_blend",
			Description: "Combine two images channel by channel over their overlapping area. The base keeps its size and alpha.",
			InputSchema: imageSchema(map[string]interface{}{
				"other_path": prop("string", "Absolute path to the second image"),
				"mode":       enumProp("Blend mode", "multiply", "screen", "overlay", "add", "subtract", "darken", "lighten", "difference"),
			}, "other_path", "mode"),
		},

		// Chains
		{
			Name:        "image_pipeline",
			Description: "Run several operations in one call, e.g. \"grayscale|blur:2|resize:64x64:nearest\".",
			InputSchema: imageSchema(map[string]interface{}{
				"steps": map[string]interface{}{
					"type":        "string",
					"description": "Steps separated by |, arguments by :",
					"examples":    pipeline.Names(),
				},
			}, "steps"),
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
