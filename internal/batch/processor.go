package batch

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"mdl2obj/internal/convert"
	"mdl2obj/internal/logger"
)

// DefaultProgressInterval is how often Run logs a progress line.
const DefaultProgressInterval = 2 * time.Second

// Config holds all shared settings for a batch run.
type Config struct {
	OutputDir        string
	Workers          int
	ProgressInterval time.Duration

	// Options is the per-file template; OutputDir is replaced per input.
	Options convert.Options
}

// Result holds the outcome of converting one file.
type Result struct {
	Input   string              `json:"input"`
	Output  string              `json:"output"`
	Success bool                `json:"success"`
	Error   string              `json:"error,omitempty"`
	LODs    []convert.LODResult `json:"lods,omitempty"`
}

// Discover returns the .mdl files directly inside dir, sorted by name.
func Discover(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".mdl") {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// OutputFor returns the per-input output directory under root.
func OutputFor(root, input string) string {
	base := filepath.Base(input)
	return filepath.Join(root, strings.TrimSuffix(base, filepath.Ext(base)))
}

// Run converts every path using a bounded pool of workers. A failing file
// is recorded in its Result and never stops the others. Once ctx is done no
// new files are started; the remaining ones are reported as failed.
func Run(ctx context.Context, cfg Config, paths []string) []Result {
	log := logger.FromContext(ctx)
	total := len(paths)
	results := make([]Result, total)
	var processed atomic.Int64

	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	interval := cfg.ProgressInterval
	if interval <= 0 {
		interval = DefaultProgressInterval
	}

	start := time.Now()

	// Progress reporter
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				p := processed.Load()
				if p > 0 {
					rate := float64(p) / time.Since(start).Seconds()
					log.Info("progress", "done", p, "total", total, "files_per_sec", rate)
				}
			}
		}
	}()

	var g errgroup.Group
	g.SetLimit(workers)

	for i, path := range paths {
		out := OutputFor(cfg.OutputDir, path)
		if err := ctx.Err(); err != nil {
			results[i] = Result{Input: path, Output: out, Error: err.Error()}
			continue
		}
		g.Go(func() error {
			results[i] = processFile(ctx, cfg, path, out)
			processed.Add(1)
			return nil
		})
	}

	_ = g.Wait()
	close(done)

	log.Info("batch finished", "files", total, "elapsed", time.Since(start).Round(time.Millisecond))
	return results
}

func processFile(ctx context.Context, cfg Config, path, out string) Result {
	opts := cfg.Options
	opts.OutputDir = out

	res, err := convert.File(ctx, path, opts)
	r := Result{Input: path, Output: out, LODs: res.LODs}
	if err != nil {
		logger.FromContext(ctx).Warn("conversion failed", "input", path, "error", err)
		r.Error = err.Error()
		return r
	}
	r.Success = true
	return r
}
