package codec

import (
	"path/filepath"
	"sync"
	"testing"
)

// writeTestImage saves a buffer as PNG in a temp dir and returns its path.
func writeTestImage(t *testing.T, w, h int, transparent bool) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cached.png")
	if err := SaveFile(path, newTestBuffer(w, h, transparent), 0); err != nil {
		t.Fatalf("failed to write test image: %v", err)
	}
	return path
}

func TestCache_LoadReusesEntry(t *testing.T) {
	path := writeTestImage(t, 4, 3, false)
	cache := NewCache()

	first, err := cache.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	second, err := cache.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if first != second {
		t.Error("second Load should return the cached buffer")
	}
	if cache.Len() != 1 {
		t.Errorf("Len: got %d, want 1", cache.Len())
	}
}

func TestCache_EvictAndClear(t *testing.T) {
	path := writeTestImage(t, 2, 2, false)
	cache := NewCache()

	first, err := cache.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	cache.Evict(path)
	if cache.Len() != 0 {
		t.Fatalf("Len after Evict: got %d, want 0", cache.Len())
	}
	reloaded, err := cache.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if reloaded == first {
		t.Error("Load after Evict should decode again")
	}

	cache.Evict("/not/cached.png")
	cache.Clear()
	if cache.Len() != 0 {
		t.Errorf("Len after Clear: got %d, want 0", cache.Len())
	}
}

func TestCache_LoadError(t *testing.T) {
	cache := NewCache()
	if _, err := cache.Load(filepath.Join(t.TempDir(), "nope.png")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
	if cache.Len() != 0 {
		t.Error("failed loads must not be cached")
	}
}

func TestCache_Concurrent(t *testing.T) {
	path := writeTestImage(t, 8, 8, false)
	cache := NewCache()

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := cache.Load(path); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent Load failed: %v", err)
	}
	if cache.Len() != 1 {
		t.Errorf("Len: got %d, want 1", cache.Len())
	}
}

func TestLoadInfo(t *testing.T) {
	tests := []struct {
		name        string
		transparent bool
	}{
		{"opaque", false},
		{"transparent", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeTestImage(t, 6, 4, tt.transparent)
			info, err := LoadInfo(NewCache(), path)
			if err != nil {
				t.Fatalf("LoadInfo failed: %v", err)
			}
			if info.Width != 6 || info.Height != 4 {
				t.Errorf("dimensions: got %dx%d, want 6x4", info.Width, info.Height)
			}
			if info.Format != "png" {
				t.Errorf("Format: got %q, want png", info.Format)
			}
			if info.HasAlpha != tt.transparent {
				t.Errorf("HasAlpha: got %v, want %v", info.HasAlpha, tt.transparent)
			}
			if info.FileSizeBytes <= 0 {
				t.Errorf("FileSizeBytes: got %d, want > 0", info.FileSizeBytes)
			}
		})
	}
}

func TestGetDimensions(t *testing.T) {
	path := writeTestImage(t, 11, 3, false)
	dims, err := GetDimensions(NewCache(), path)
	if err != nil {
		t.Fatalf("GetDimensions failed: %v", err)
	}
	if dims.Width != 11 || dims.Height != 3 {
		t.Errorf("got %dx%d, want 11x3", dims.Width, dims.Height)
	}
}
