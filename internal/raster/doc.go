// Package raster implements the pixel-buffer processing engine.
//
// Every operation is a deterministic function over a [Buffer] plus scalar
// parameters. Inputs are never modified; each call allocates one fresh output
// buffer sized to its result dimensions, so calls compose freely:
//
//	gray, err := raster.Grayscale(img)
//	edges, err := raster.Sobel(gray)
//
// [Processor] wraps the same functions in a fluent chain for callers that
// prefer it.
//
// # Pixel Layout
//
// Pixels are stored row-major, top-to-bottom, left-to-right, 4 bytes per
// pixel in the order R, G, B, A (the layout of [image.NRGBA]). Colors are not
// premultiplied. All RGB-specific math (Rec. 709 luminance, HSV, sepia, the
// bilateral color distance) reads channel 0 as red, 1 as green, 2 as blue.
//
// # Coordinate System
//
// (0,0) is the top-left corner, X increases rightward and Y downward.
//
// # Edge Policies
//
// Two border policies coexist and are not interchangeable:
//   - Edge-clamp: convolution, adaptive threshold and the median filter
//     replace out-of-bounds samples with the nearest in-bounds pixel.
//   - Exclusion: dilate, erode and the bilateral filter drop out-of-bounds
//     neighbors from the window.
//
// # Numeric Rules
//
// Float results are rounded half away from zero and clamped to [0,255]
// before they are stored. Nothing relies on integer wraparound.
//
// # Error Handling
//
// A buffer whose pixel slice does not hold exactly Width*Height*4 bytes, or an
// out-of-range parameter, yields an error wrapping [ErrInvalidArgument] before
// any pixel is touched. Zero-area buffers are valid inputs and outputs.
//
// # Concurrency
//
// Operations share no mutable state. Row loops are split across goroutines
// with bild's parallel.Line; each output row depends only on the read-only
// input, so results are identical to a sequential run.
package raster
