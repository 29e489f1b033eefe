package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/spf13/cobra"

	"github.com/menulive/menulive/config"
	"github.com/menulive/menulive/server"
	"github.com/menulive/menulive/store"
	"github.com/menulive/menulive/sync"
	"github.com/menulive/menulive/template"
)

func serveCmd(configPath, logLevel *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the sync controller and HTTP API",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runServe(*configPath, *logLevel)
		},
	}
}

func seedCmd(configPath, logLevel *string) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Populate the document store with sample data (development only)",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runSeed(*configPath, *logLevel)
		},
	}
}

// setup loads config, builds the logger, and connects to NATS.
func setup(configPath, logLevel string) (*config.Config, *slog.Logger, *nats.Conn, *store.NATS, error) {
	bootLogger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	cfg, err := config.NewLoader(bootLogger).Load(configPath)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("load config: %w", err)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
		if err := cfg.Validate(); err != nil {
			return nil, nil, nil, nil, err
		}
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLevel(cfg.Log.Level),
	}))

	nc, err := nats.Connect(cfg.NATS.URL,
		nats.Name(appName),
		nats.Timeout(cfg.NATS.ConnectTimeout),
	)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("connect to NATS at %s: %w", cfg.NATS.URL, err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, nil, nil, nil, fmt.Errorf("open JetStream context: %w", err)
	}

	return cfg, logger, nc, store.NewNATS(js, logger), nil
}

func runServe(configPath, logLevel string) error {
	cfg, logger, nc, src, err := setup(configPath, logLevel)
	if err != nil {
		return err
	}
	defer nc.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := src.EnsureBuckets(ctx); err != nil {
		return err
	}

	registry := template.NewRegistry(logger)
	if cfg.Templates.Overrides != "" {
		if err := registry.LoadOverrides(cfg.Templates.Overrides); err != nil {
			logger.Warn("Loading template overrides failed, using built-in table", "error", err)
		} else if err := registry.WatchOverrides(ctx, cfg.Templates.Overrides); err != nil {
			logger.Warn("Watching template overrides failed", "error", err)
		}
	}

	controller := sync.New(src, logger, sync.WithTemplateRegistry(registry))

	var cache *server.Cache
	if cfg.Redis.Addr != "" {
		cache = server.NewCache(cfg.Redis.Addr, cfg.Redis.TTL, logger)
		defer func() { _ = cache.Close() }()
		logger.Info("View cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.TTL)
	}

	srv := server.New(controller, registry, cache, cfg.HTTP, logger)

	errCh := make(chan error, 2)
	go func() { errCh <- controller.Run(ctx) }()
	go func() { errCh <- srv.Run(ctx) }()

	err = <-errCh
	cancel()
	<-errCh
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("Shut down cleanly")
	return nil
}

func runSeed(configPath, logLevel string) error {
	_, logger, nc, src, err := setup(configPath, logLevel)
	if err != nil {
		return err
	}
	defer nc.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := src.Seed(ctx); err != nil {
		return fmt.Errorf("seed sample data: %w", err)
	}
	logger.Info("Seed complete")
	return nil
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
