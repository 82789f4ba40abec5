package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"driftwatch/internal/alerts"
	"driftwatch/internal/api"
	"driftwatch/internal/bus"
	"driftwatch/internal/config"
	"driftwatch/internal/learner"
	"driftwatch/internal/logging"
	"driftwatch/internal/metrics"
	"driftwatch/internal/monitor"
	"driftwatch/internal/publisher"
	"driftwatch/internal/storage"
)

// Version is set via ldflags during build.
var Version = "dev"

var configPath string

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "driftwatch",
	Short: "Streaming online-learning pipeline with metric drift alerts",
	Long: `Driftwatch streams labeled text records through an incremental
classifier, publishes precision/recall after every prediction, and
warns when either metric falls below a threshold.

The three run modes communicate only through two bus topics:

  publish -> [input topic] -> learn -> [metrics topic] -> monitor`,
	Version: Version,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "driftwatch.yaml", "path to config file (defaults used when absent)")
	rootCmd.AddCommand(publishCmd)
	rootCmd.AddCommand(learnCmd)
	rootCmd.AddCommand(monitorCmd)
}

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish the labeled dataset onto the input topic",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadOrDefault(configPath)
		if err != nil {
			return err
		}
		logger := logging.NewLogger(cfg.LogLevel, cfg.LogFormat)
		b, err := bus.New(cfg.Bus, logger)
		if err != nil {
			return err
		}
		defer b.Close()
		ctx, stop := signalContext()
		defer stop()

		pub := publisher.New(b, *cfg, logger)
		count, err := pub.Run(ctx)
		if err != nil {
			return err
		}
		logger.Info("publisher finished", "records", count)
		return nil
	},
}

var learnCmd = &cobra.Command{
	Use:     "learn",
	Aliases: []string{"subscribe"},
	Short:   "Run the online learner against the input topic",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadOrDefault(configPath)
		if err != nil {
			return err
		}
		logger := logging.NewLogger(cfg.LogLevel, cfg.LogFormat)
		b, err := bus.New(cfg.Bus, logger)
		if err != nil {
			return err
		}
		defer b.Close()
		ctx, stop := signalContext()
		defer stop()

		history := metrics.NewStore(cfg.Metrics.StoreLimit)
		store, err := openStorage(ctx, cfg, logger)
		if err != nil {
			return err
		}
		if store != nil {
			defer store.Close()
		}
		api.Start(ctx, cfg, history, nil, logger, Version)

		l := learner.New(b, *cfg, logger, history, store)
		logger.Info("learner started",
			"input_topic", cfg.Bus.InputTopic,
			"metrics_topic", cfg.Bus.MetricsTopic,
			"positive_class", cfg.Learner.PositiveClass,
		)
		return l.Run(ctx)
	},
}

var monitorCmd = &cobra.Command{
	Use:     "monitor",
	Aliases: []string{"metrics"},
	Short:   "Watch the metrics topic and alert on threshold breaches",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, mgr, err := loadConfig()
		if err != nil {
			return err
		}
		logger := logging.NewLogger(cfg.LogLevel, cfg.LogFormat)
		b, err := bus.New(cfg.Bus, logger)
		if err != nil {
			return err
		}
		defer b.Close()
		ctx, stop := signalContext()
		defer stop()

		alertStore := alerts.NewStore(cfg.Alerts.StoreLimit)
		store, err := openStorage(ctx, cfg, logger)
		if err != nil {
			return err
		}
		if store != nil {
			defer store.Close()
		}
		mon := monitor.New(b, cfg, logger, alertStore, store)
		if mgr != nil {
			go mgr.Watch(3*time.Second,
				func(next *config.Config) {
					logger.Info("config reloaded", "threshold", next.Monitor.Threshold)
					mon.UpdateConfig(next)
				},
				func(err error) {
					logger.Warn("config reload failed", "err", err)
				},
				ctx.Done(),
			)
		}
		api.Start(ctx, cfg, nil, alertStore, logger, Version)

		logger.Info("monitor started",
			"metrics_topic", cfg.Bus.MetricsTopic,
			"threshold", cfg.Monitor.Threshold,
		)
		return mon.Run(ctx)
	},
}

// loadConfig reads the config file when it exists and falls back to
// defaults otherwise. The Manager is non-nil only for file-backed
// configs; the monitor uses it to pick up threshold edits live.
func loadConfig() (*config.Config, *config.Manager, error) {
	if _, err := os.Stat(configPath); err == nil {
		mgr, err := config.NewManager(configPath)
		if err != nil {
			return nil, nil, err
		}
		return mgr.Get(), mgr, nil
	}
	return config.DefaultConfig(), nil, nil
}

func openStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Store, error) {
	store, err := storage.NewStore(cfg.Storage)
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, nil
	}
	if err := store.Init(ctx); err != nil {
		return nil, err
	}
	logger.Info("storage enabled", "driver", cfg.Storage.Driver)
	return store, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
