package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/sentriage/sentriage/internal/config"
	"github.com/sentriage/sentriage/internal/trust"
)

var cfgFile string

func NewRoot() *cobra.Command {
	root := &cobra.Command{
		Use:   "sentriage",
		Short: "Behavioral triage for authentication logs",
		Long:  "Sentriage — Rule-based triage of authentication/activity logs with interval anomaly detection. Tunable, explainable, single binary.",
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "sentriage.yaml", "config file path")

	root.AddCommand(
		newTriageCmd(),
		newScoreCmd(),
		newReportCmd(),
		newServeCmd(),
		newInitCmd(),
		newVersionCmd(),
	)

	return root
}

// loadConfig reads the config file, falling back to defaults when the
// file is absent.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg = config.Defaults()
		} else {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger builds the process logger from the configured level.
func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Server.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// loadTrusted resolves the trusted-user set from whichever provider the
// config names: inline list, file, or redis. Sources combine.
func loadTrusted(ctx context.Context, cfg *config.Config) (trust.Set, error) {
	set := trust.New(cfg.TrustedUsers.Inline...)

	if cfg.TrustedUsers.File != "" {
		fromFile, err := trust.LoadFile(cfg.TrustedUsers.File)
		if err != nil {
			return nil, fmt.Errorf("loading trusted users: %w", err)
		}
		for name := range fromFile {
			set[name] = struct{}{}
		}
	}

	if cfg.TrustedUsers.RedisAddr != "" {
		fromRedis, err := trust.LoadRedis(ctx, cfg.TrustedUsers.RedisAddr, cfg.TrustedUsers.RedisKey)
		if err != nil {
			return nil, fmt.Errorf("loading trusted users: %w", err)
		}
		for name := range fromRedis {
			set[name] = struct{}{}
		}
	}

	return set, nil
}
