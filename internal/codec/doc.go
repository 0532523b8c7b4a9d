// Package codec converts between encoded image files and raster.Buffer.
//
// Decoding accepts PNG, JPEG, GIF, BMP, TIFF and WebP; encoding writes every
// one of those except WebP. JPEG files are rotated according to their EXIF
// orientation tag on load, so buffers are always upright.
//
// Decoded images are converted to non-premultiplied 8-bit RGBA regardless of
// their source color model (paletted, grayscale, 16-bit, YCbCr).
//
// Cache holds decoded buffers by path for the server, which typically runs
// several tools against the same file.
package codec
