// Package server implements the MCP (Model Context Protocol) server for pixel processing tools.
//
// This package provides a JSON-RPC 2.0 server that exposes the raster engine
// through the MCP protocol, so MCP clients can transform image files one
// operation at a time or as a pipeline.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Image Information:
//   - image_load: Load image and get metadata
//   - image_dimensions: Get width and height
//   - image_histogram: Per-channel value counts
//   - image_sample_color: Exact pixel colors at given coordinates
//
// Geometry:
//   - image_crop, image_flip, image_rotate, image_resize
//
// Color:
//   - image_adjust: grayscale, sepia, invert, brightness, contrast, hue, saturate
//   - image_auto_level: Per-channel level stretch
//
// Filters:
//   - image_convolve: Gaussian blur, sharpen, Sobel or a custom kernel
//   - image_morphology: dilate, erode, open, close
//   - image_threshold: Global or adaptive
//   - image_denoise: Median or bilateral
//
// Compositing:
//   - image_overlay: Alpha-blend one image onto another
//   - image_blend: multiply, screen, overlay, add, subtract, darken, lighten, difference
//
// Chains:
//   - image_pipeline: Several steps in one call (see package pipeline)
//
// Image results are returned as base64 PNG unless output_path is given, in
// which case the file is written in the format its extension names.
//
// # Image Caching
//
// Input images are decoded once and cached by path for the lifetime of the
// server. Writing to a path through output_path evicts that path.
//
// # Error Handling
//
//   - -32700: the request line is not valid JSON
//   - -32601: unknown method
//   - -32602: malformed arguments, unknown tool, or a parameter the engine rejects
//   - -32000: any other tool failure, such as a missing or undecodable file
//
// The error's data field carries the Go error string.
package server
