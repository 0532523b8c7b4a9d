package codec

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // Register WebP format decoder

	"github.com/ironsheep/pixel-tools-mcp/internal/raster"
)

// DefaultJPEGQuality is used when Encode is given a quality of 0.
const DefaultJPEGQuality = 95

// formats maps accepted names and extensions to the name image.Decode reports.
var formats = map[string]string{
	"png":  "png",
	"jpg":  "jpeg",
	"jpeg": "jpeg",
	"gif":  "gif",
	"bmp":  "bmp",
	"tif":  "tiff",
	"tiff": "tiff",
	"webp": "webp",
}

// NormalizeFormat maps a format name or file extension (with or without the
// leading dot, any case) to its canonical name: png, jpeg, gif, bmp, tiff or
// webp.
func NormalizeFormat(name string) (string, error) {
	key := strings.ToLower(strings.TrimPrefix(name, "."))
	if f, ok := formats[key]; ok {
		return f, nil
	}
	return "", fmt.Errorf("%w: unsupported image format %q", raster.ErrInvalidArgument, name)
}

// FormatFromPath returns the canonical format for a file path's extension.
func FormatFromPath(path string) (string, error) {
	ext := filepath.Ext(path)
	if ext == "" {
		return "", fmt.Errorf("%w: %q has no file extension", raster.ErrInvalidArgument, path)
	}
	return NormalizeFormat(ext)
}

// Decode reads an encoded image and converts it to a raster.Buffer.
//
// EXIF orientation in JPEG files is applied. formatHint may be empty; when set,
// it must match the format found in the data.
func Decode(r io.Reader, formatHint string) (*raster.Buffer, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}

	_, found, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	if formatHint != "" {
		want, err := NormalizeFormat(formatHint)
		if err != nil {
			return nil, err
		}
		if want != found {
			return nil, fmt.Errorf("failed to decode image: data is %s, expected %s", found, want)
		}
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return raster.FromImage(img), nil
}

// Encode writes buf in the named format. quality applies to JPEG only; 0
// selects DefaultJPEGQuality. WebP is decode-only.
func Encode(w io.Writer, buf *raster.Buffer, format string, quality int) error {
	if err := buf.Validate(); err != nil {
		return err
	}
	if buf.Empty() {
		return fmt.Errorf("%w: cannot encode a %dx%d image", raster.ErrInvalidArgument, buf.Width, buf.Height)
	}
	name, err := NormalizeFormat(format)
	if err != nil {
		return err
	}
	f, err := imaging.FormatFromExtension(name)
	if err != nil {
		return fmt.Errorf("%w: %s encoding is not supported", raster.ErrInvalidArgument, name)
	}

	if quality == 0 {
		quality = DefaultJPEGQuality
	}
	if quality < 1 || quality > 100 {
		return fmt.Errorf("%w: JPEG quality %d outside 1..100", raster.ErrInvalidArgument, quality)
	}

	if err := imaging.Encode(w, buf.NRGBA(), f, imaging.JPEGQuality(quality)); err != nil {
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}
	return nil
}

// LoadFile decodes the file at path. The result's Path is set to path.
func LoadFile(path string) (*raster.Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	buf, err := Decode(f, "")
	if err != nil {
		return nil, err
	}
	buf.Path = path
	return buf, nil
}

// SaveFile encodes buf to path, choosing the format from the extension.
// Missing parent directories are created.
func SaveFile(path string, buf *raster.Buffer, quality int) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}

	var out bytes.Buffer
	if err := Encode(&out, buf, format, quality); err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, out.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write image: %w", err)
	}
	return nil
}
