package main

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ironsheep/pixel-tools-mcp/internal/codec"
	"github.com/ironsheep/pixel-tools-mcp/internal/raster"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{" INFO ", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelWarn},
		{"verbose", slog.LevelWarn},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q): got %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewLogger(t *testing.T) {
	var out bytes.Buffer
	logger := newLogger("info", &out)
	logger.Debug("hidden")
	logger.Info("shown", "k", 1)

	if strings.Contains(out.String(), "hidden") {
		t.Error("debug record written at info level")
	}
	if !strings.Contains(out.String(), "msg=shown") || !strings.Contains(out.String(), "k=1") {
		t.Errorf("unexpected output: %q", out.String())
	}
}

func TestWorkersFromEnv(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"4", 4},
		{" 2 ", 2},
		{"", 0},
		{"-3", 0},
		{"many", 0},
	}
	for _, tt := range tests {
		if got := workersFromEnv(tt.in); got != tt.want {
			t.Errorf("workersFromEnv(%q): got %d, want %d", tt.in, got, tt.want)
		}
	}
}

// writeImage saves a small opaque image; the format follows the extension.
func writeImage(t *testing.T, path string, w, h int) {
	t.Helper()
	buf := raster.New(w, h)
	for i := range buf.Pix {
		buf.Pix[i] = uint8(i * 7)
	}
	for i := 3; i < len(buf.Pix); i += 4 {
		buf.Pix[i] = 255
	}
	if err := codec.SaveFile(path, buf, 0); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

func TestBuildJobs(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.png", "b.png", "c.gif"} {
		writeImage(t, filepath.Join(dir, name), 3, 3)
	}

	jobs, err := buildJobs([]string{filepath.Join(dir, "*.png"), filepath.Join(dir, "a.png"), "missing.bmp"}, "out", "jpg")
	if err != nil {
		t.Fatalf("buildJobs failed: %v", err)
	}
	want := map[string]string{
		filepath.Join(dir, "a.png"): filepath.Join("out", "a.jpg"),
		filepath.Join(dir, "b.png"): filepath.Join("out", "b.jpg"),
		"missing.bmp":               filepath.Join("out", "missing.jpg"),
	}
	if len(jobs) != len(want) {
		t.Fatalf("got %d jobs, want %d: %+v", len(jobs), len(want), jobs)
	}
	for _, job := range jobs {
		if want[job.Input] != job.Output {
			t.Errorf("%s -> %s, want %s", job.Input, job.Output, want[job.Input])
		}
	}

	jobs, err = buildJobs([]string{filepath.Join(dir, "c.gif")}, "out", "")
	if err != nil {
		t.Fatalf("buildJobs failed: %v", err)
	}
	if len(jobs) != 1 || jobs[0].Output != filepath.Join("out", "c.gif") {
		t.Errorf("extension should be kept: %+v", jobs)
	}

	if _, err := buildJobs([]string{"[bad"}, "out", ""); err == nil {
		t.Error("malformed pattern should fail")
	}
}

func TestBuildJobs_OutputCollision(t *testing.T) {
	tests := []struct {
		name   string
		inputs []string
		ext    string
	}{
		{"same name in two dirs", []string{filepath.Join("a", "x.png"), filepath.Join("b", "x.png")}, ""},
		{"extension replaced", []string{"x.png", "x.gif"}, ".jpg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := buildJobs(tt.inputs, "out", tt.ext)
			if err == nil {
				t.Fatal("inputs sharing an output should fail")
			}
			if !strings.Contains(err.Error(), filepath.Join("out", "x")) {
				t.Errorf("error %q should name the output", err)
			}
		})
	}
}

func TestRunApply(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.png")
	out := filepath.Join(dir, "out.png")
	writeImage(t, in, 10, 6)

	if err := runApply([]string{"-in", in, "-out", out, "-steps", "grayscale|resize:5x3:nearest"}); err != nil {
		t.Fatalf("runApply failed: %v", err)
	}
	buf, err := codec.LoadFile(out)
	if err != nil {
		t.Fatalf("output unreadable: %v", err)
	}
	if buf.Width != 5 || buf.Height != 3 {
		t.Errorf("got %dx%d, want 5x3", buf.Width, buf.Height)
	}

	if err := runApply([]string{"-in", in, "-out", out}); err == nil {
		t.Error("missing -steps should fail")
	}
	if err := runApply([]string{"-in", in, "-out", out, "-steps", "melt"}); err == nil {
		t.Error("unknown step should fail")
	}
}

func TestRunBatch(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"one.png", "two.png"} {
		writeImage(t, filepath.Join(dir, name), 4, 4)
	}
	outDir := filepath.Join(dir, "out")

	err := runBatch([]string{"-out", outDir, "-steps", "invert|flip:h", "-ext", ".bmp", "-workers", "2", filepath.Join(dir, "*.png")})
	if err != nil {
		t.Fatalf("runBatch failed: %v", err)
	}
	for _, name := range []string{"one.bmp", "two.bmp"} {
		if _, err := os.Stat(filepath.Join(outDir, name)); err != nil {
			t.Errorf("%s not written: %v", name, err)
		}
	}

	err = runBatch([]string{"-out", outDir, "-steps", "invert", filepath.Join(dir, "nope.png")})
	if err == nil || !strings.Contains(err.Error(), "1 of 1 files failed") {
		t.Errorf("missing input: got %v", err)
	}
}
