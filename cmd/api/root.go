package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/furima/checkout/internal/config"
)

const configEnv = "CHECKOUT_CONFIG"

func newRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "checkout-api",
		Short:         "Marketplace checkout API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&configPath, "config", os.Getenv(configEnv), "path to a YAML config file")

	serve := newServeCmd(&configPath)
	cmd.AddCommand(serve)
	cmd.AddCommand(newMigrateCmd(&configPath))
	// Bare invocation serves, as the container entrypoint expects.
	cmd.RunE = serve.RunE
	return cmd
}

// loadConfig resolves .env, the config file and the environment, and returns
// the logger built from the result.
func loadConfig(path string) (config.Config, *slog.Logger, error) {
	envPath, envErr := config.LoadEnvFile()

	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, nil, err
	}
	logger, err := newLogger(cfg.Log)
	if err != nil {
		return config.Config{}, nil, err
	}

	switch {
	case envErr != nil:
		logger.Warn("failed to load .env", "path", envPath, "error", envErr)
	case envPath == "":
		logger.Debug(".env not found in current or parent directories")
	default:
		logger.Info("loaded env", "path", envPath)
	}
	return cfg, logger, nil
}

func newLogger(cfg config.LogConfig) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, fmt.Errorf("log level %q: %w", cfg.Level, err)
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "text":
		handler = slog.NewTextHandler(os.Stderr, opts)
	default:
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger, nil
}
