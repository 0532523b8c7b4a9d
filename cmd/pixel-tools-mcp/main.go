package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/ironsheep/pixel-tools-mcp/internal/codec"
	"github.com/ironsheep/pixel-tools-mcp/internal/pipeline"
	"github.com/ironsheep/pixel-tools-mcp/internal/raster"
	"github.com/ironsheep/pixel-tools-mcp/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	logger := newLogger(os.Getenv("PIXEL_MCP_LOG_LEVEL"), os.Stderr)
	raster.SetLogger(logger)

	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("pixel-tools-mcp %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			usage()
			return
		case "apply":
			if err := runApply(os.Args[2:]); err != nil {
				fail(err)
			}
			return
		case "batch":
			if err := runBatch(os.Args[2:]); err != nil {
				fail(err)
			}
			return
		case "serve":
		default:
			usage()
			os.Exit(2)
		}
	}

	logger.Debug("starting server", "version", Version, "built", BuildTime, "commit", GitCommit)

	srv := server.New(server.WithLogger(logger), server.WithVersion(Version))
	if err := srv.Run(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("pixel-tools-mcp - MCP server and CLI for pixel-level image processing")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  pixel-tools-mcp [serve]                          Run the MCP server on stdin/stdout")
	fmt.Println("  pixel-tools-mcp apply -in a.png -out b.png -steps \"grayscale|blur:2\" [-q 95]")
	fmt.Println("  pixel-tools-mcp batch -out dir -steps \"...\" [-ext .png] [-workers N] [-q 95] inputs...")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --version, -v    Print version information")
	fmt.Println("  --help, -h       Print this help message")
	fmt.Println()
	fmt.Println("Steps:")
	for _, name := range pipeline.Names() {
		fmt.Printf("  %s\n", name)
	}
	fmt.Println()
	fmt.Println("Environment variables:")
	fmt.Println("  PIXEL_MCP_LOG_LEVEL=debug|info|warn|error    Log level (stderr), default warn")
	fmt.Println("  PIXEL_MCP_WORKERS=N                          Default batch concurrency")
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}

func runApply(args []string) error {
	fs := flag.NewFlagSet("apply", flag.ContinueOnError)
	inPath := fs.String("in", "", "input image")
	outPath := fs.String("out", "", "output image; format from extension")
	spec := fs.String("steps", "", "pipeline, e.g. \"grayscale|resize:64x64:nearest\"")
	quality := fs.Int("q", codec.DefaultJPEGQuality, "JPEG quality")
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *inPath == "" || *outPath == "" || *spec == "" {
		return errors.New("apply needs -in, -out and -steps")
	}

	steps, err := pipeline.Parse(*spec)
	if err != nil {
		return err
	}
	src, err := codec.LoadFile(*inPath)
	if err != nil {
		return err
	}
	out, err := pipeline.Apply(src, steps, codec.NewCache().Load)
	if err != nil {
		return err
	}
	if err := codec.SaveFile(*outPath, out, *quality); err != nil {
		return err
	}
	fmt.Printf("%s -> %s (%dx%d)\n", *inPath, *outPath, out.Width, out.Height)
	return nil
}

func runBatch(args []string) error {
	fs := flag.NewFlagSet("batch", flag.ContinueOnError)
	outDir := fs.String("out", "", "output directory")
	spec := fs.String("steps", "", "pipeline applied to every input")
	ext := fs.String("ext", "", "output extension, e.g. .jpg; default keeps the input's")
	workers := fs.Int("workers", workersFromEnv(os.Getenv("PIXEL_MCP_WORKERS")), "files processed at once")
	quality := fs.Int("q", codec.DefaultJPEGQuality, "JPEG quality")
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *outDir == "" || *spec == "" || fs.NArg() == 0 {
		return errors.New("batch needs -out, -steps and at least one input")
	}

	steps, err := pipeline.Parse(*spec)
	if err != nil {
		return err
	}
	jobs, err := buildJobs(fs.Args(), *outDir, *ext)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	b := &pipeline.Batch{Steps: steps, Workers: *workers, Quality: *quality}
	results, err := b.Run(ctx, jobs)

	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "%s: %v\n", res.Job.Input, res.Err)
			continue
		}
		fmt.Printf("%s -> %s (%dx%d, %s)\n", res.Job.Input, res.Job.Output, res.Width, res.Height, res.Duration)
	}
	if err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(results))
	}
	return nil
}

// buildJobs expands glob patterns and maps each input to outDir. ext, when
// set, replaces the input's extension. Two inputs that map to the same output
// file are an error.
func buildJobs(patterns []string, outDir, ext string) ([]pipeline.Job, error) {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	var jobs []pipeline.Job
	seen := make(map[string]bool)
	outputs := make(map[string]string)
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", pattern, err)
		}
		if matches == nil {
			// Not a glob, or nothing matched; let the job report the missing file.
			matches = []string{pattern}
		}
		for _, in := range matches {
			if seen[in] {
				continue
			}
			seen[in] = true

			name := filepath.Base(in)
			if ext != "" {
				name = strings.TrimSuffix(name, filepath.Ext(name)) + ext
			}
			out := filepath.Join(outDir, name)
			if prev, ok := outputs[out]; ok {
				return nil, fmt.Errorf("%s and %s would both write %s", prev, in, out)
			}
			outputs[out] = in
			jobs = append(jobs, pipeline.Job{Input: in, Output: out})
		}
	}
	return jobs, nil
}
