package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/or4cl3-ai-1/Chatron9/internal/archive"
	"github.com/or4cl3-ai-1/Chatron9/internal/config"
	"github.com/or4cl3-ai-1/Chatron9/internal/ethics"
	"github.com/or4cl3-ai-1/Chatron9/internal/generator"
	"github.com/or4cl3-ai-1/Chatron9/internal/logging"
	"github.com/or4cl3-ai-1/Chatron9/internal/orchestrator"
)

// #region main
func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// #endregion main

// #region root
type rootOptions struct {
	configPath string
	logLevel   string

	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "chatron",
		Short: "Chatron - affect-aware, constraint-gated plan selection",
	}
	root.SilenceUsage = true
	root.PersistentPreRunE = func(*cobra.Command, []string) error {
		return opts.init()
	}
	root.PersistentPostRun = func(*cobra.Command, []string) {
		if opts.logger != nil {
			_ = opts.logger.Sync()
		}
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to a .toml or .yaml config file")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override logging.level (debug, info, warn, error, off)")

	root.AddCommand(
		newPlanCmd(opts),
		newReplCmd(opts),
		newServeCmd(opts),
		newHistoryCmd(opts),
		newReplayCmd(opts),
	)
	return root
}

func (o *rootOptions) init() error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.File)
	if err != nil {
		return err
	}
	o.cfg = cfg
	o.logger = logger
	return nil
}

// #endregion root

// #region wiring
// buildOrchestrator wires the configured planner. The returned cleanup closes
// the archive when one is enabled.
func (o *rootOptions) buildOrchestrator() (*orchestrator.Orchestrator, func(), error) {
	extra, err := o.cfg.BuildConstraints()
	if err != nil {
		return nil, nil, err
	}

	genOpts := []generator.Option{}
	if o.cfg.Planner.Seed != 0 {
		genOpts = append(genOpts, generator.WithSource(generator.NewSeededSource(o.cfg.Planner.Seed)))
	}

	opts := orchestrator.Options{
		Generator:       generator.New(genOpts...),
		Council:         ethics.NewCouncil(o.logger.Named("ethics"), extra...),
		Logger:          o.logger.Named("orchestrator"),
		FanOut:          o.cfg.Planner.FanOut,
		HistoryCapacity: o.cfg.Planner.HistoryCapacity,
	}

	cleanup := func() {}
	if o.cfg.Archive.Enabled {
		store, err := openArchive(o.cfg.Archive.Path, o.cfg.Archive.Retain, o.logger.Named("archive"))
		if err != nil {
			return nil, nil, err
		}
		opts.Recorder = store
		cleanup = func() { store.Close() }
	}

	return orchestrator.NewOrchestrator(opts), cleanup, nil
}

func openArchive(path string, retain int, logger *zap.Logger) (*archive.Store, error) {
	store, err := archive.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open archive %s: %w", path, err)
	}
	if n, err := store.Prune(context.Background(), retain); err != nil {
		logger.Warn("archive prune failed", zap.Error(err))
	} else if n > 0 {
		logger.Info("archive pruned", zap.Int64("deleted", n), zap.Int("retain", retain))
	}
	return store, nil
}

// #endregion wiring
