// Package batch converts many jobs in parallel.
package batch

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Faultbox/cryconv/pkg/cgf"
	"github.com/Faultbox/cryconv/pkg/gltfexport"
	"github.com/Faultbox/cryconv/pkg/material"
	"github.com/Faultbox/cryconv/pkg/scene"
)

// Config holds all shared resources for a batch run.
type Config struct {
	Source         scene.Source
	Registry       *cgf.Registry      // shared, immutable
	Materials      *material.Resolver // shared cache; nil disables materials
	OutputDir      string
	Binary         bool
	KeepLODs       bool
	SkipAnimations bool
	TextureExt     string
	Workers        int
	Logger         *zap.Logger
	// Progress is the progress log interval. Zero disables it.
	Progress time.Duration
}

// Result holds the outcome of one job.
type Result struct {
	Job      string
	Output   string
	Success  bool
	Error    string
	Stats    scene.Stats
	Warnings int
	Duration time.Duration
}

// Failed counts unsuccessful results.
func Failed(results []Result) int {
	n := 0
	for _, r := range results {
		if !r.Success {
			n++
		}
	}
	return n
}

func (cfg Config) withDefaults() Config {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Registry == nil {
		cfg.Registry = cgf.DefaultRegistry()
	}
	return cfg
}

// Run processes all jobs using a worker pool. A failed job never stops
// its siblings; the returned error combines every job error. Jobs not
// started before ctx is cancelled fail with the context error.
func Run(ctx context.Context, cfg Config, jobs []Job) ([]Result, error) {
	cfg = cfg.withDefaults()
	log := cfg.Logger
	total := len(jobs)
	results := make([]Result, total)
	var processed atomic.Int64

	start := time.Now()

	// Progress reporter
	done := make(chan struct{})
	if cfg.Progress > 0 {
		go func() {
			ticker := time.NewTicker(cfg.Progress)
			defer ticker.Stop()
			for {
				select {
				case <-done:
					return
				case <-ticker.C:
					p := processed.Load()
					if p > 0 {
						elapsed := time.Since(start).Seconds()
						log.Info("progress",
							zap.Int64("done", p),
							zap.Int("total", total),
							zap.Float64("jobs_per_sec", float64(p)/elapsed))
					}
				}
			}
		}()
	}

	// Worker pool
	jobChan := make(chan int, cfg.Workers*2)
	var wg sync.WaitGroup

	for w := 0; w < cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobChan {
				results[idx] = Convert(ctx, cfg, jobs[idx])
				processed.Add(1)
			}
		}()
	}

	// Send work
	sent := 0
send:
	for ; sent < total; sent++ {
		select {
		case jobChan <- sent:
		case <-ctx.Done():
			break send
		}
	}
	close(jobChan)

	wg.Wait()
	close(done)

	for i := sent; i < total; i++ {
		results[i] = Result{Job: jobs[i].Name, Error: ctx.Err().Error()}
	}

	var err error
	for _, r := range results {
		if !r.Success {
			err = multierr.Append(err, fmt.Errorf("%s: %s", r.Job, r.Error))
		}
	}
	log.Info("batch finished",
		zap.Int("jobs", total),
		zap.Int("failed", Failed(results)),
		zap.Duration("elapsed", time.Since(start)))
	return results, err
}

// Convert assembles and writes one job.
func Convert(ctx context.Context, cfg Config, job Job) Result {
	cfg = cfg.withDefaults()
	log := cfg.Logger.With(zap.String("job", job.Name))
	start := time.Now()
	res := Result{Job: job.Name}
	fail := func(err error) Result {
		res.Error = err.Error()
		res.Duration = time.Since(start)
		log.Error("job failed", zap.Error(err))
		return res
	}

	a := scene.NewAssembler(cfg.Source, scene.Options{
		Registry:  cfg.Registry,
		Logger:    log,
		Materials: cfg.Materials,
		KeepLODs:  cfg.KeepLODs,
	})
	for _, inst := range job.SceneInstances(cfg.SkipAnimations) {
		if _, err := a.Add(ctx, inst); err != nil {
			res.Stats = a.Stats()
			return fail(err)
		}
	}
	res.Stats = a.Stats()
	res.Warnings = len(a.Warnings())

	doc, err := gltfexport.Build(a.Graph(), gltfexport.Options{TextureExt: cfg.TextureExt, Logger: log})
	if err != nil {
		return fail(fmt.Errorf("export: %w", err))
	}

	ext := ".gltf"
	if cfg.Binary {
		ext = ".glb"
	}
	res.Output = filepath.Join(cfg.OutputDir, job.Name+ext)
	if err := gltfexport.Save(doc, res.Output); err != nil {
		res.Output = ""
		return fail(err)
	}

	res.Success = true
	res.Duration = time.Since(start)
	log.Info("job converted",
		zap.String("output", res.Output),
		zap.Int("instances", res.Stats.Instances),
		zap.Int("reused", res.Stats.Reused),
		zap.Int("warnings", res.Warnings),
		zap.Duration("elapsed", res.Duration))
	return res
}
