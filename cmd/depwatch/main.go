package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"depwatch/internal/config"
	"depwatch/internal/shared/observability"
	"depwatch/internal/shared/util"
	"depwatch/internal/watcher"
)

var (
	configPath = flag.String("config", "./depwatch.toml", "Path to config file")
	watch      = flag.Bool("watch", false, "Keep running and re-check on file changes")
	once       = flag.Bool("once", false, "Run a single scan and exit, even when --watch is set")
	tsvOut     = flag.String("tsv", "", "Write a TSV report to this path (overrides config)")
	sarifOut   = flag.String("sarif", "", "Write a SARIF report to this path (overrides config)")
	verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	version    = flag.Bool("version", false, "Print version and exit")
)

const Version = "1.0.0"

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("depwatch v%s\n", Version)
		os.Exit(0)
	}

	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		if *configPath == "./depwatch.toml" {
			cfg, err = config.Load("./depwatch.example.toml")
		}
		if err != nil {
			slog.Error("failed to load config", "error", err)
			os.Exit(2)
		}
	}

	// Positional args override configured scan paths.
	if flag.NArg() > 0 {
		cfg.Paths = flag.Args()
	}
	applyOutputFlags(cfg, *tsvOut, *sarifOut)

	os.Exit(run(cfg))
}

func run(cfg *config.Config) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(ctx, cfg.Observability.OTLPEndpoint, Version)
	if err != nil {
		slog.Error("failed to init tracing", "error", err)
		return 2
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			slog.Warn("trace shutdown failed", "error", err)
		}
	}()

	app, err := NewApp(cfg)
	if err != nil {
		slog.Error("failed to initialize", "error", err)
		return 2
	}
	defer app.Close()

	projectRoot, err := os.Getwd()
	if err != nil {
		projectRoot = "."
	}

	count, err := app.RunScan(ctx)
	if err != nil {
		slog.Error("scan failed", "error", err)
		return 2
	}
	if err := app.WriteReports(projectRoot); err != nil {
		slog.Error("failed to write reports", "error", err)
		return 2
	}

	if !*watch || *once {
		if count > 0 {
			return 1
		}
		return 0
	}

	return runWatch(ctx, cfg, app, projectRoot)
}

// applyOutputFlags lets command-line report targets win over the
// config file.
func applyOutputFlags(cfg *config.Config, tsv, sarif string) {
	if tsv != "" {
		cfg.Output.TSV = tsv
	}
	if sarif != "" {
		cfg.Output.SARIF = sarif
	}
}

func runWatch(ctx context.Context, cfg *config.Config, app *App, projectRoot string) int {
	if cfg.Observability.Addr != "" {
		server := observability.NewServer(cfg.Observability.Addr, Version)
		if err := server.Start(ctx); err != nil {
			slog.Error("failed to start observability server", "error", err)
			return 2
		}
		defer server.Stop(context.Background())
	}

	// At most one full rescan per second even if the debounce window
	// keeps firing.
	limiter := util.NewLimiter(1, 1)

	changes := make(chan []string, 16)
	w, err := watcher.NewWatcher(cfg.Watch.Debounce.Duration, cfg.Exclude.Dirs, cfg.Exclude.Files, func(paths []string) {
		select {
		case changes <- paths:
		default:
			slog.Warn("change queue full, dropping batch", "count", len(paths))
		}
	})
	if err != nil {
		slog.Error("failed to create watcher", "error", err)
		return 2
	}
	defer w.Close()

	absPaths := make([]string, 0, len(cfg.Paths))
	for _, p := range cfg.Paths {
		if abs, err := filepath.Abs(p); err == nil {
			absPaths = append(absPaths, abs)
		} else {
			absPaths = append(absPaths, p)
		}
	}
	if err := w.Watch(absPaths); err != nil {
		slog.Error("failed to watch paths", "error", err)
		return 2
	}

	slog.Info("watching for changes", "paths", absPaths)

	for {
		select {
		case <-ctx.Done():
			slog.Info("shutting down")
			return 0
		case paths := <-changes:
			if err := limiter.Wait(ctx, 1); err != nil {
				return 0
			}
			count, err := app.Rescan(ctx, paths)
			if err != nil {
				slog.Error("rescan failed", "error", err)
				continue
			}
			if err := app.WriteReports(projectRoot); err != nil {
				slog.Error("failed to write reports", "error", err)
			}
			slog.Info("rescan complete", "changed", len(paths), "diagnostics", count)
		}
	}
}
