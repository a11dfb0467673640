package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dupefind/dupefind/internal/api"
	"github.com/dupefind/dupefind/internal/api/handlers"
	"github.com/dupefind/dupefind/internal/config"
	"github.com/dupefind/dupefind/internal/log"
	"github.com/dupefind/dupefind/internal/scheduler"
	"github.com/dupefind/dupefind/internal/store"
)

// serveOptions holds the CLI flags for the long-running "serve" daemon.
type serveOptions struct {
	configFile string
	schedule   string
	httpAddr   string
	dbPath     string
}

func newServeCmd() *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve [paths...]",
		Short: "Run on a schedule and expose a read-only HTTP status API",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configFile, "config", "c", "", "Path to YAML config file")
	cmd.Flags().StringVar(&opts.schedule, "schedule", "", "Cron expression for the scheduled run (config default if empty)")
	cmd.Flags().StringVar(&opts.httpAddr, "http-addr", "", "HTTP listen address (config default if empty)")
	cmd.Flags().StringVar(&opts.dbPath, "db", "", "Path to the sqlite run store (config default if empty)")

	return cmd
}

func serve(cmd *cobra.Command, paths []string, opts *serveOptions) error {
	cfg, err := config.Load(opts.configFile, cmd)
	if err != nil {
		return err
	}
	cfg.Paths = paths
	if opts.schedule != "" {
		cfg.Schedule = opts.schedule
	}
	if opts.httpAddr != "" {
		cfg.HTTPAddr = opts.httpAddr
	}
	if opts.dbPath != "" {
		cfg.DBPath = opts.dbPath
	}

	logger := log.New(cfg.LogLevel)
	defer func() { _ = logger.Sync() }()

	db, err := store.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() { _ = db.Close() }()
	if err := store.RunMigrations(db); err != nil {
		return fmt.Errorf("migrate store: %w", err)
	}

	runState := handlers.NewRunState()
	sched := scheduler.New(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	trigger := func() {
		reporter, done := runState.Begin()
		defer done()

		logger.Info("scheduled run starting", log.String("paths", fmt.Sprint(cfg.Paths)))
		result, err := runPipeline(ctx, cfg, logger, reporter)
		if err != nil && ctx.Err() == nil {
			logger.Error("scheduled run failed", log.Error(err))
			return
		}
		if _, err := store.SaveRun(db, result.startedAt, result.finishedAt, cfg.Paths, result.cancelled, result.report); err != nil {
			logger.Error("persist scheduled run", log.Error(err))
			return
		}
		logger.Info("scheduled run finished", log.Int("groups", result.report.Stats.Groups))
	}

	if err := sched.SetJob(cfg.Schedule, trigger); err != nil {
		return fmt.Errorf("schedule: %w", err)
	}
	sched.Start()
	defer sched.Stop()

	srv := api.New(cfg.HTTPAddr, db, runState, sched, version, logger)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutting down")
		cancel()
	}()

	logger.Info("serving", log.String("addr", cfg.HTTPAddr), log.String("schedule", cfg.Schedule))
	return srv.Run(ctx)
}
