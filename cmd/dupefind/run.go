package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dupefind/dupefind/internal/config"
	"github.com/dupefind/dupefind/internal/log"
	"github.com/dupefind/dupefind/internal/progress"
	"github.com/dupefind/dupefind/internal/store"
)

// runOptions holds the CLI flags for the one-shot "run" command.
type runOptions struct {
	configFile string
	minSizeStr string
	excludes   []string
	workers    int
	mode       string
	algorithm  string
	jsonOutput bool
	dbPath     string
	noProgress bool
}

func newRunCmd() *cobra.Command {
	opts := &runOptions{minSizeStr: "1"}

	cmd := &cobra.Command{
		Use:   "run [paths...]",
		Short: "Run one duplicate-detection pass and print the results",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configFile, "config", "c", "", "Path to YAML config file")
	cmd.Flags().StringVarP(&opts.minSizeStr, "min-size", "m", opts.minSizeStr, "Minimum file size (e.g., 100, 1K, 10M, 1G)")
	cmd.Flags().StringSliceVarP(&opts.excludes, "exclude", "e", nil, "doublestar glob patterns to exclude")
	cmd.Flags().IntVarP(&opts.workers, "workers", "w", 0, "Number of parallel workers (0 = config default)")
	cmd.Flags().StringVar(&opts.mode, "mode", "", "Grouping mode: name, size+name, size, or hash")
	cmd.Flags().StringVar(&opts.algorithm, "algorithm", "", "Hash algorithm: fast-streaming-64, fast-checksum-32, or cryptographic")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Print the report as JSON instead of text")
	cmd.Flags().StringVar(&opts.dbPath, "db", "", "Persist this run to a sqlite database at the given path")
	cmd.Flags().BoolVar(&opts.noProgress, "no-progress", false, "Disable the progress bar")

	return cmd
}

func runOnce(cmd *cobra.Command, paths []string, opts *runOptions) error {
	minSize, err := parseSize(opts.minSizeStr)
	if err != nil {
		return fmt.Errorf("invalid --min-size: %w", err)
	}
	if err := validateGlobPatterns(opts.excludes); err != nil {
		return fmt.Errorf("invalid --exclude: %w", err)
	}

	cfg, err := config.Load(opts.configFile, cmd)
	if err != nil {
		return err
	}
	cfg.Paths = paths
	cfg.Excludes = opts.excludes
	cfg.MinSize = minSize
	if opts.workers > 0 {
		cfg.Workers = opts.workers
	}
	if opts.mode != "" {
		cfg.Mode = opts.mode
	}
	if opts.algorithm != "" {
		cfg.HashAlgorithm = opts.algorithm
	}

	logger := log.New(cfg.LogLevel)
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Warn("received interrupt, cancelling run")
		cancel()
	}()

	var reporter *progress.Reporter
	var bar *progress.Bar
	if !opts.noProgress {
		reporter = progress.NewReporter()
		bar = progress.New(true, -1)
		done := make(chan struct{})
		defer close(done)
		go watchReporter(reporter, bar, done)
	}

	result, runErr := runPipeline(ctx, cfg, logger, reporter)
	if bar != nil {
		bar.Finish(progressDescriber(reporter.Snapshot()))
	}
	if runErr != nil && ctx.Err() == nil {
		return fmt.Errorf("run: %w", runErr)
	}

	if opts.jsonOutput {
		if err := result.report.WriteJSON(os.Stdout); err != nil {
			return fmt.Errorf("write json report: %w", err)
		}
	} else {
		if err := result.report.WriteText(os.Stdout); err != nil {
			return fmt.Errorf("write text report: %w", err)
		}
	}

	if opts.dbPath != "" {
		if err := persistRun(opts.dbPath, paths, result); err != nil {
			logger.Error("persist run", log.Error(err))
		}
	}

	if result.cancelled {
		return fmt.Errorf("run cancelled")
	}
	return nil
}

func persistRun(dbPath string, paths []string, result pipelineResult) error {
	db, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() { _ = db.Close() }()

	if err := store.RunMigrations(db); err != nil {
		return fmt.Errorf("migrate store: %w", err)
	}

	_, err = store.SaveRun(db, result.startedAt, result.finishedAt, paths, result.cancelled, result.report)
	return err
}

// watchReporter polls a Reporter and drives a terminal Bar, decoupling the
// hashing workers (which only ever call Advance) from display refresh rate.
func watchReporter(reporter *progress.Reporter, bar *progress.Bar, done <-chan struct{}) {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			bar.Describe(progressDescriber(reporter.Snapshot()))
		case <-done:
			return
		}
	}
}

// eventStringer renders a progress.Event for the terminal bar's description.
type eventStringer progress.Event

func (e eventStringer) String() string {
	if e.ItemsTotal < 0 {
		return fmt.Sprintf("%s: %d items", e.Stage, e.ItemsDone)
	}
	return fmt.Sprintf("%s: %d/%d items", e.Stage, e.ItemsDone, e.ItemsTotal)
}

func progressDescriber(ev progress.Event) eventStringer { return eventStringer(ev) }
