package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dupefind/dupefind/internal/cache"
	"github.com/dupefind/dupefind/internal/config"
	"github.com/dupefind/dupefind/internal/grouper"
	"github.com/dupefind/dupefind/internal/log"
	"github.com/dupefind/dupefind/internal/progress"
	"github.com/dupefind/dupefind/internal/reference"
	"github.com/dupefind/dupefind/internal/results"
	"github.com/dupefind/dupefind/internal/scanner"
	"github.com/dupefind/dupefind/internal/stats"
)

// pipelineResult is everything one end-to-end run produces, enough for a
// caller to print it, persist it, or both.
type pipelineResult struct {
	startedAt  time.Time
	finishedAt time.Time
	report     results.Report
	cancelled  bool
}

// runPipeline executes the scan -> group -> reference -> stats -> results
// stages, driving reporter with per-stage progress so a concurrent
// /api/status request and a terminal progress bar see the same counters.
func runPipeline(ctx context.Context, cfg *config.Config, logger *log.Logger, reporter *progress.Reporter) (pipelineResult, error) {
	startedAt := time.Now()

	mode, err := cfg.ResolveMode()
	if err != nil {
		return pipelineResult{}, err
	}
	algo, err := cfg.ResolveAlgorithm()
	if err != nil {
		return pipelineResult{}, err
	}

	errCh := make(chan error, 100)
	go drainErrors(logger, errCh)
	defer close(errCh)

	if reporter != nil {
		reporter.StartStage(progress.StageScan, -1, -1)
	}
	files, scanErr := scanner.New(cfg.Paths, cfg.MinSize, cfg.Excludes, cfg.Workers, false, errCh).Run(ctx)
	if reporter != nil {
		reporter.Advance(int64(len(files)), 0)
	}
	if scanErr != nil && ctx.Err() != nil {
		return pipelineResult{
			startedAt:  startedAt,
			finishedAt: time.Now(),
			report:     results.Build(mode, algo, time.Now(), stats.Compute(mode, time.Now(), nil, nil), nil, nil, 0),
			cancelled:  true,
		}, scanErr
	}

	if len(files) == 0 {
		st := stats.Compute(mode, time.Now(), nil, nil)
		report := results.Build(mode, algo, time.Now(), st, nil, nil, 0)
		return pipelineResult{startedAt: startedAt, finishedAt: time.Now(), report: report}, nil
	}

	prehashCache, err := cache.Open(cacheDirIf(cfg.UsePrehashCache, cfg.CacheDir), cache.Prehash, algo, cfg.MinPrehashCacheSizeBytes)
	if err != nil {
		return pipelineResult{}, fmt.Errorf("open prehash cache: %w", err)
	}
	defer func() { _ = prehashCache.Close() }()

	fullHashCache, err := cache.Open(cacheDirIf(cfg.UseFullHashCache, cfg.CacheDir), cache.FullHash, algo, cfg.MinCacheSizeBytes)
	if err != nil {
		return pipelineResult{}, fmt.Errorf("open full-hash cache: %w", err)
	}
	defer func() { _ = fullHashCache.Close() }()

	if reporter != nil {
		reporter.StartStage(progress.StagePrehashCacheLoad, int64(len(files)), 0)
	}
	prehashCache.Load(files, cfg.DeleteOutdatedCacheEntries)

	if reporter != nil {
		reporter.StartStage(progress.StageFullHashCacheLoad, int64(len(files)), 0)
	}
	fullHashCache.Load(files, cfg.DeleteOutdatedCacheEntries)

	engine := grouper.New(grouper.Config{
		Mode:                  mode,
		CaseFoldNames:         !cfg.CaseSensitiveNames,
		ApplyHardLinkFilter:   cfg.IgnoreHardLinks,
		TrustDeviceBoundaries: cfg.TrustDeviceBoundaries,
		Algorithm:             algo,
		Workers:               cfg.Workers,
		PrehashCache:          prehashCache,
		FullHashCache:         fullHashCache,
		ErrCh:                 errCh,
		OnProgress: func(n int64) {
			if reporter != nil {
				reporter.Advance(0, n)
			}
		},
	})

	if reporter != nil {
		reporter.StartStage(progress.StagePrehash, int64(len(files)), 0)
	}
	groups, runErr := engine.Run(ctx, files)
	cancelled := runErr != nil && ctx.Err() != nil

	if reporter != nil {
		reporter.StartStage(progress.StageReference, int64(len(groups)), 0)
	}
	referenced, ordinary := reference.Partition(groups, cfg.ReferenceDirectories)

	st := stats.Compute(mode, time.Now(), ordinary, referenced)
	report := results.Build(mode, algo, time.Now(), st, ordinary, referenced, 0)

	result := pipelineResult{
		startedAt:  startedAt,
		finishedAt: time.Now(),
		report:     report,
		cancelled:  cancelled,
	}
	return result, runErr
}

// cacheDirIf returns dir when the cache kind is enabled, or "" to disable
// it — cache.Open("") is the documented way to turn a cache off entirely.
func cacheDirIf(enabled bool, dir string) string {
	if !enabled {
		return ""
	}
	return dir
}

// drainErrors consumes non-fatal errors from a channel and logs them to the
// structured logger.
func drainErrors(logger *log.Logger, errs <-chan error) {
	for err := range errs {
		if logger != nil {
			logger.Warn("pipeline error", log.Error(err))
		} else {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
	}
}
