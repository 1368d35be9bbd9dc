package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/KilimcininKorOglu/obamem/internal/config"
	"github.com/KilimcininKorOglu/obamem/internal/directory"
	"github.com/KilimcininKorOglu/obamem/internal/logging"
	"github.com/KilimcininKorOglu/obamem/internal/metrics"
	"github.com/KilimcininKorOglu/obamem/internal/server"
)

// serveCmd handles the serve command.
func serveCmd(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	configFile := fs.String("config", "", "Path to configuration file")
	address := fs.String("address", "", "Listen address (overrides config)")
	logLevel := fs.String("log-level", "", "Log level: debug, info, warn, error (overrides config)")
	metricsAddress := fs.String("metrics-address", "", "Metrics listen address (overrides config)")
	help := fs.Bool("h", false, "Show help message")
	helpLong := fs.Bool("help", false, "Show help message")

	if err := fs.Parse(args); err != nil {
		return 1
	}

	if *help || *helpLong {
		printServeUsage(os.Stdout)
		return 0
	}

	cfg, err := loadConfig(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	// Apply command-line overrides (higher priority than config file)
	if *address != "" {
		cfg.Server.Address = *address
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	if *metricsAddress != "" {
		cfg.Metrics.Enabled = true
		cfg.Metrics.Address = *metricsAddress
	}

	// Apply environment variable overrides (highest priority)
	applyEnvOverrides(cfg)

	if errs := config.ValidateConfig(cfg); len(errs) > 0 {
		fmt.Fprintln(os.Stderr, "Configuration errors:")
		for _, e := range errs {
			fmt.Fprintf(os.Stderr, "  - %s\n", e)
		}
		return 1
	}

	logger := logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := runServer(ctx, cfg, logger); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		return 1
	}
	return 0
}

// runServer builds the directory and server from cfg and serves until ctx
// is cancelled.
func runServer(ctx context.Context, cfg *config.Config, logger logging.Logger) error {
	dir, err := directory.NewFromConfig(&cfg.Directory)
	if err != nil {
		return fmt.Errorf("load directory: %w", err)
	}
	logger.Info("directory loaded",
		"base_dn", cfg.Directory.BaseDN,
		"entries", dir.Len())

	recorder := metrics.Init(cfg.Metrics.Enabled)
	var metricsHandler http.Handler
	if m, ok := recorder.(*metrics.Metrics); ok {
		metricsHandler = m.Handler()
	}

	srv, err := server.New(server.Options{
		Config:         cfg,
		Directory:      dir,
		Logger:         logger,
		Metrics:        recorder,
		MetricsHandler: metricsHandler,
	})
	if err != nil {
		return err
	}

	err = srv.Serve(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
