package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"

	"tradecal/internal/backend"
	"tradecal/internal/cache"
	"tradecal/internal/calendar"
	"tradecal/internal/cli"
	"tradecal/internal/config"
	"tradecal/internal/log"
)

var (
	backendFlag = flag.String("backend", "", "Data backend ("+strings.Join(backend.GetBackendTypeStrings(), ", ")+"); defaults to DATA_BACKEND")
	dataFile    = flag.String("data-file", "", "JSON month file for the memory backend; defaults to DATA_FILE or the embedded data")
	verbose     = flag.Bool("v", false, "Enable debug logging")
)

// app bundles what every subcommand needs to read the calendar.
type app struct {
	cfg     *config.Config
	logger  *log.Logger
	store   *cache.Store
	svc     *calendar.Service
	cleanup backend.CleanupFunc
}

// openApp loads configuration, applies global flags and opens the backend.
// Simulated read latency is disabled for interactive use.
func openApp(ctx context.Context) (*app, error) {
	cfg := config.Load()
	if *backendFlag != "" {
		cfg.DataBackend = *backendFlag
	}
	if *dataFile != "" {
		cfg.DataFile = *dataFile
	}
	level := "warn"
	if *verbose {
		level = "debug"
	}
	cfg.LogLevel = level
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := cli.SetupLogger(level).WithComponent(log.ComponentCLI)
	backendCfg, err := backend.FromAppConfig(cfg, cfg.DataBackend)
	if err != nil {
		return nil, err
	}
	result, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		return nil, err
	}

	store := cache.New(cache.WithLogger(logger))
	svc := calendar.NewService(store, result.Reader,
		calendar.WithLatency(0),
		calendar.WithLogger(logger))
	return &app{cfg: cfg, logger: logger, store: store, svc: svc, cleanup: result.Cleanup}, nil
}

func (a *app) Close() {
	if a.cleanup != nil {
		if err := a.cleanup(); err != nil {
			a.logger.Warn("Backend cleanup error", log.FieldError, err)
		}
	}
}

// printMarkdown renders md for the terminal, falling back to the raw text
// when rendering fails.
func printMarkdown(md string, raw bool) {
	if raw {
		fmt.Print(md)
		return
	}
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(120))
	if err == nil {
		var out string
		if out, err = r.Render(md); err == nil {
			fmt.Print(out)
			return
		}
	}
	fmt.Fprintf(os.Stderr, "warning: markdown rendering failed: %v\n", err)
	fmt.Print(md)
}
