package pipeline

import (
	"context"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ironsheep/pixel-tools-mcp/internal/codec"
	"github.com/ironsheep/pixel-tools-mcp/internal/raster"
)

// Job is one file to run through a batch.
type Job struct {
	Input  string
	Output string
}

// Result reports how a Job went. Err is nil on success.
type Result struct {
	Job      Job
	Width    int
	Height   int
	Duration time.Duration
	Err      error
}

// Batch applies one pipeline to many files.
type Batch struct {
	Steps []Step

	// Workers bounds the number of files processed at once. Values below 1
	// mean runtime.GOMAXPROCS(0).
	Workers int

	// Quality is passed to codec.SaveFile for JPEG outputs.
	Quality int
}

// Run processes jobs concurrently and returns one Result per job, in the
// order given. A failing job does not stop the others. The returned error is
// non-nil only when ctx is cancelled; jobs not started by then carry ctx's
// error.
//
// Overlay and blend paths are loaded through a shared codec.Cache, so a
// watermark used by every job is decoded once.
func (b *Batch) Run(ctx context.Context, jobs []Job) ([]Result, error) {
	workers := b.Workers
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}

	cache := codec.NewCache()
	results := make([]Result, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, job := range jobs {
		results[i].Job = job
		if err := gctx.Err(); err != nil {
			results[i].Err = err
			continue
		}
		i, job := i, job // per-iteration copies; go.mod targets go1.21
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i].Err = err
				return err
			}
			results[i] = b.runOne(job, cache.Load)
			return nil
		})
	}

	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	raster.Logger().Info("pipeline: batch finished", "jobs", len(jobs), "workers", workers, "steps", Format(b.Steps))
	return results, err
}

func (b *Batch) runOne(job Job, load Loader) Result {
	start := time.Now()
	res := Result{Job: job}

	src, err := codec.LoadFile(job.Input)
	if err != nil {
		res.Err = err
		return res
	}
	out, err := Apply(src, b.Steps, load)
	if err != nil {
		res.Err = err
		return res
	}
	if err := codec.SaveFile(job.Output, out, b.Quality); err != nil {
		res.Err = err
		return res
	}

	res.Width, res.Height = out.Width, out.Height
	res.Duration = time.Since(start)
	raster.Logger().Debug("pipeline: job done", "input", job.Input, "output", job.Output, "duration", res.Duration)
	return res
}

// RunBatch is shorthand for a Batch with default JPEG quality.
func RunBatch(ctx context.Context, jobs []Job, steps []Step, workers int) ([]Result, error) {
	b := &Batch{Steps: steps, Workers: workers}
	return b.Run(ctx, jobs)
}
