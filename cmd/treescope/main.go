// # cmd/treescope/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"treescope/internal/core/config"
	"treescope/internal/shared/observability"
)

var (
	configPath = flag.String("config", "./treescope.toml", "Path to config file")
	file       = flag.String("file", "", "Parse a single file and print its tree as JSON")
	cst        = flag.Bool("cst", false, "With -file, emit the full concrete syntax tree")
	once       = flag.Bool("once", false, "Run single scan and exit")
	ui         = flag.Bool("ui", false, "Enable terminal UI mode")
	verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	version    = flag.Bool("version", false, "Print version and exit")
)

const VERSION = "1.0.0"

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("treescope v%s\n", VERSION)
		os.Exit(0)
	}

	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}

	output := os.Stdout
	if *ui {
		// In UI mode, avoid stdout logs corrupting the TUI.
		logPath := resolveLogPath()
		if err := os.MkdirAll(filepath.Dir(logPath), 0700); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to create log dir for %s: %v\n", logPath, err)
		} else {
			if fi, err := os.Lstat(logPath); err == nil && (fi.Mode()&os.ModeSymlink) != 0 {
				fmt.Fprintf(os.Stderr, "warning: refusing to write logs to symlink path %s\n", logPath)
			} else {
				f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
				if err == nil {
					output = f
				} else {
					fmt.Fprintf(os.Stderr, "warning: failed to open log file %s: %v\n", logPath, err)
				}
			}
		}
	}

	logger := slog.New(slog.NewTextHandler(output, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		if *configPath == "./treescope.toml" {
			cfg, err = config.Load("./treescope.example.toml")
		}
		if err != nil {
			slog.Error("failed to load config", "error", err)
			os.Exit(1)
		}
	}

	if flag.NArg() > 0 {
		cfg.WatchPaths = []string{flag.Arg(0)}
	}

	ctx := context.Background()

	if cfg.Tracing.Enabled {
		shutdown, err := observability.InitTracing(ctx, cfg.Tracing.Endpoint)
		if err != nil {
			slog.Warn("failed to initialize tracing", "error", err)
		} else {
			defer func() { _ = shutdown(ctx) }()
		}
	}

	if cfg.Metrics.Enabled {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(cfg.Metrics.Address, mux); err != nil {
				slog.Error("metrics server stopped", "error", err)
			}
		}()
	}

	app, err := NewApp(cfg)
	if err != nil {
		slog.Error("failed to initialize", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	if *file != "" {
		out, err := app.ParseOne(ctx, *file, *cst)
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(1)
		}
		fmt.Println(string(out))
		return
	}

	if err := app.InitialScan(ctx); err != nil {
		slog.Error("initial scan failed", "error", err)
		os.Exit(1)
	}

	if !*ui {
		app.PrintSummary(0)
	}

	if *once {
		return
	}

	if err := app.StartWatcher(); err != nil {
		slog.Error("failed to start watcher", "error", err)
		os.Exit(1)
	}

	if *ui {
		if err := app.RunUI(); err != nil {
			slog.Error("failed to run UI", "error", err)
			os.Exit(1)
		}
	} else {
		select {}
	}
}

func resolveLogPath() string {
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, "treescope", "treescope.log")
	}

	home, err := os.UserHomeDir()
	if err == nil && home != "" {
		return filepath.Join(home, ".local", "state", "treescope", "treescope.log")
	}

	return "treescope.log"
}
