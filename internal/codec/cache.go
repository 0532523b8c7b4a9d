package codec

import (
	"fmt"
	"os"
	"sync"

	"github.com/ironsheep/pixel-tools-mcp/internal/raster"
)

// Cache keeps decoded buffers keyed by file path so repeated tool calls on the
// same file skip disk I/O.
//
// Cache is safe for concurrent use. Buffers it returns are shared between
// callers and must be treated as read-only; every raster operation already
// allocates its output, so this only matters for code that calls Set.
//
// Entries stay in memory until Evict or Clear.
type Cache struct {
	mu      sync.RWMutex
	buffers map[string]*raster.Buffer
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{
		buffers: make(map[string]*raster.Buffer),
	}
}

// Load returns the cached buffer for path, decoding the file on a miss.
//
// The key is the exact path string; a relative and an absolute path to the
// same file are cached separately.
func (c *Cache) Load(path string) (*raster.Buffer, error) {
	c.mu.RLock()
	if buf, ok := c.buffers[path]; ok {
		c.mu.RUnlock()
		return buf, nil
	}
	c.mu.RUnlock()

	buf, err := LoadFile(path)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.buffers[path] = buf
	c.mu.Unlock()

	return buf, nil
}

// Len returns the number of cached buffers.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.buffers)
}

// Clear drops every cached buffer.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.buffers = make(map[string]*raster.Buffer)
	c.mu.Unlock()
}

// Evict drops the buffer cached for path. Unknown paths are ignored.
func (c *Cache) Evict(path string) {
	c.mu.Lock()
	delete(c.buffers, path)
	c.mu.Unlock()
}

// Info describes an image file.
type Info struct {
	Width  int `json:"width"`
	Height int `json:"height"`

	// Format is the canonical format name taken from the file extension, or
	// "unknown".
	Format string `json:"format"`

	// HasAlpha is true when at least one pixel is not fully opaque.
	HasAlpha bool `json:"has_alpha"`

	FileSizeBytes int64 `json:"file_size_bytes"`
}

// LoadInfo loads path through the cache and reports its metadata.
func LoadInfo(cache *Cache, path string) (*Info, error) {
	buf, err := cache.Load(path)
	if err != nil {
		return nil, err
	}

	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	format, err := FormatFromPath(path)
	if err != nil {
		format = "unknown"
	}

	return &Info{
		Width:         buf.Width,
		Height:        buf.Height,
		Format:        format,
		HasAlpha:      !buf.NRGBA().Opaque(),
		FileSizeBytes: stat.Size(),
	}, nil
}

// Dimensions is the width and height of an image.
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// GetDimensions loads path through the cache and returns its size.
func GetDimensions(cache *Cache, path string) (*Dimensions, error) {
	buf, err := cache.Load(path)
	if err != nil {
		return nil, err
	}
	return &Dimensions{Width: buf.Width, Height: buf.Height}, nil
}
