// Package batch scans extracted archive entries in parallel, identifying
// and decoding each one through the dispatcher.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MeKo-Tech/datpeek/internal/dispatch"
)

// ErrNoFiles is returned when discovery finds nothing to scan.
var ErrNoFiles = errors.New("no files found")

// ReasonIO labels entries that could not be read at all.
const ReasonIO = "io_error"

// Run discovers the files named by args and processes them with a worker
// pool. Entry failures are reported per entry; only discovery errors and
// cancellation fail the whole scan.
func Run(ctx context.Context, d *dispatch.Dispatcher, args []string, cfg *Config) (*Result, error) {
	if d == nil {
		return nil, errors.New("dispatcher not initialized")
	}
	files, err := discoverFiles(args, cfg.Recursive, cfg.IncludePatterns, cfg.ExcludePatterns)
	if err != nil {
		return nil, fmt.Errorf("failed to discover files: %w", err)
	}
	if len(files) == 0 {
		return nil, ErrNoFiles
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	workers = min(workers, len(files))

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	id := uuid.NewString()
	logger = logger.With("scan_id", id)
	logger.Debug("scan starting", "files", len(files), "workers", workers)

	start := time.Now()
	entries, err := processParallel(ctx, d, files, cfg, workers, logger)
	if err != nil {
		return nil, err
	}
	res := &Result{
		ID:          id,
		Entries:     entries,
		Paths:       files,
		Duration:    time.Since(start),
		WorkerCount: workers,
	}
	stats := res.Stats()
	logger.Info("scan finished", "total", stats.Total, "failed", stats.Failed,
		"duration", res.Duration.Round(time.Millisecond))

	if cfg.MetricsFile != "" {
		if err := dispatch.WriteMetrics(cfg.MetricsFile); err != nil {
			return res, err
		}
	}
	return res, nil
}

type job struct {
	index int
	path  string
}

type jobResult struct {
	index  int
	report *EntryReport
}

// processParallel keeps results in input order.
func processParallel(ctx context.Context, d *dispatch.Dispatcher, files []string, cfg *Config,
	workers int, logger *slog.Logger,
) ([]*EntryReport, error) {
	progress := cfg.Progress
	if progress != nil {
		progress.OnStart(len(files))
		defer progress.OnComplete()
	}

	jobs := make(chan job, len(files))
	results := make(chan jobResult, len(files))

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go worker(ctx, d, cfg, jobs, results, &wg, logger)
	}

	go func() {
		defer close(jobs)
		for i, path := range files {
			select {
			case jobs <- job{index: i, path: path}:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	entries := make([]*EntryReport, len(files))
	processed := 0
	for r := range results {
		entries[r.index] = r.report
		processed++
		if progress != nil {
			if !r.report.OK() {
				progress.OnError(r.report.Path, errors.New(r.report.Error))
			}
			progress.OnProgress(processed, len(files))
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func worker(ctx context.Context, d *dispatch.Dispatcher, cfg *Config,
	jobs <-chan job, results chan<- jobResult, wg *sync.WaitGroup, logger *slog.Logger,
) {
	defer wg.Done()

	for {
		select {
		case j, ok := <-jobs:
			if !ok {
				return
			}
			report, err := processEntry(d, j.path, cfg)
			if err != nil {
				logger.Warn("entry unreadable", "path", j.path, "error", err)
				report = &EntryReport{Path: j.path, Error: err.Error(), Reason: ReasonIO}
			}
			select {
			case results <- jobResult{index: j.index, report: report}:
			case <-ctx.Done():
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
