package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/nao1215/blockphrase/internal/config"
	"github.com/nao1215/blockphrase/internal/log"
	"github.com/nao1215/blockphrase/internal/store"
)

// loadConfig builds the configuration from the defaults, the configuration
// file and the flags the user set, in that order.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	path, err := flags.GetString("config")
	if err != nil {
		return nil, err
	}
	cfg.ConfigFilePath = path

	// A missing file is only an error when the user named one.
	if found := config.FindConfigFile(path); found != "" {
		file, err := config.LoadConfigFile(found)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", found, err)
		}
		file.ApplyTo(cfg)
	} else if path != "" {
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, path)
	}

	if err := applyFlags(flags, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyFlags copies changed flags onto cfg. Flags a command does not define
// are ignored.
func applyFlags(flags *pflag.FlagSet, cfg *config.Config) error {
	strs := map[string]*string{
		"store":      &cfg.Store,
		"db-dir":     &cfg.DBDir,
		"redis-url":  &cfg.RedisURL,
		"mode":       &cfg.Mode,
		"provider":   &cfg.Provider,
		"model":      &cfg.Model,
		"base-url":   &cfg.BaseURL,
		"selector":   &cfg.Selector,
		"proxy":      &cfg.ProxyAddress,
		"user-agent": &cfg.UserAgent,
		"output":     &cfg.OutputDir,
		"report":     &cfg.ReportFile,
	}
	for name, dst := range strs {
		if !flags.Changed(name) {
			continue
		}
		v, err := flags.GetString(name)
		if err != nil {
			return err
		}
		*dst = v
	}

	ints := map[string]*int{
		"min-chars":   &cfg.MinCharacters,
		"concurrency": &cfg.Concurrency,
		"batch":       &cfg.BatchSize,
	}
	for name, dst := range ints {
		if !flags.Changed(name) {
			continue
		}
		v, err := flags.GetInt(name)
		if err != nil {
			return err
		}
		*dst = v
	}

	var err error
	if flags.Changed("min-similarity") {
		if cfg.MinSimilarity, err = flags.GetFloat64("min-similarity"); err != nil {
			return err
		}
	}
	if flags.Changed("max-body-size") {
		if cfg.MaxBodySize, err = flags.GetInt64("max-body-size"); err != nil {
			return err
		}
	}
	if flags.Changed("request-timeout") {
		if cfg.RequestTimeout, err = flags.GetDuration("request-timeout"); err != nil {
			return err
		}
	}
	if flags.Changed("timeout") {
		if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
			return err
		}
	}
	for name, dst := range map[string]*bool{
		"verbose":  &cfg.Verbose,
		"json":     &cfg.JSONReport,
		"markdown": &cfg.MarkdownReport,
	} {
		if !flags.Changed(name) {
			continue
		}
		if *dst, err = flags.GetBool(name); err != nil {
			return err
		}
	}
	return nil
}

// newLogger creates the secure logger writing to the command's stderr.
func newLogger(cmd *cobra.Command, cfg *config.Config) *slog.Logger {
	return log.NewSecureLogger(cmd.ErrOrStderr(), cfg.Verbose)
}

// openStorage opens the configured settings store.
func openStorage(ctx context.Context, cfg *config.Config) (*store.Storage, error) {
	kv, err := store.Open(ctx, store.OpenOptions{
		Backend:  cfg.Store,
		DBDir:    cfg.DBDir,
		RedisURL: cfg.RedisURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.Store, err)
	}
	return store.New(kv), nil
}

// closeStorage closes s and logs a failure.
func closeStorage(s *store.Storage, logger *slog.Logger) {
	if err := s.Close(); err != nil && !errors.Is(err, store.ErrClosed) {
		logger.Warn("failed to close settings store", "error", err)
	}
}
