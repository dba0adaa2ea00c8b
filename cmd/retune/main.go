package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"retune/internal/config"
	"retune/internal/history"
	"retune/internal/observability"
)

var (
	configPath = flag.String("config", "./retune.toml", "Path to config file")
	listOnly   = flag.Bool("list", false, "List discovered tweak sites and exit")
	ui         = flag.Bool("ui", false, "Enable terminal UI mode")
	verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	version    = flag.Bool("version", false, "Print version and exit")
)

const VERSION = "1.0.0"

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("retune v%s\n", VERSION)
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
		if err := os.MkdirAll(filepath.Dir(logPath), 0700); err == nil {
			if f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600); err == nil {
				output = f
			}
		}
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(output, &slog.HandlerOptions{Level: logLevel})))

	cfg, err := config.Load(loadablePath(*configPath))
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if flag.NArg() > 0 {
		cfg.Watch.Paths = flag.Args()
	}

	ctx := context.Background()

	if cfg.Observability.Enabled {
		NewObservabilityServer(cfg.Observability.Addr).Start()
		if cfg.Observability.EnableTracing && cfg.Observability.OTLPEndpoint != "" {
			shutdown, err := observability.InitTracing(ctx, cfg.Observability.OTLPEndpoint)
			if err != nil {
				slog.Warn("tracing disabled", "error", err)
			} else {
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
					defer cancel()
					_ = shutdown(shutdownCtx)
				}()
			}
		}
	}

	app, err := NewApp(cfg)
	if err != nil {
		slog.Error("failed to initialize", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	if err := app.Discover(ctx); err != nil {
		slog.Error("discovery failed", "error", err)
		os.Exit(1)
	}

	if *listOnly {
		printSites(app.Sites())
		return
	}

	if *ui {
		if err := RunUI(app); err != nil {
			slog.Error("ui failed", "error", err)
			os.Exit(1)
		}
		return
	}

	printSites(app.Sites())
	if err := app.StartWatcher(func(changes []history.Change) {
		for _, c := range changes {
			slog.Info("literal edited",
				"file", c.File, "line", c.Line, "ordinal", c.Ordinal,
				"old", c.OldValue, "new", c.NewValue)
		}
	}); err != nil {
		slog.Error("failed to start watcher", "error", err)
		os.Exit(1)
	}

	select {}
}

func printSites(views []SiteView) {
	if len(views) == 0 {
		fmt.Println("no tweak sites found")
		return
	}
	for _, v := range views {
		marker := v.Marker
		if v.Override {
			marker += " (override)"
		}
		state := ""
		if !v.Live {
			state = "  [not tracked]"
		}
		fmt.Printf("%s:%d\t%s = %s%s\n", v.File, v.Line, marker, v.Value, state)
	}
}

// loadablePath returns path when it exists, otherwise "" so defaults
// apply; an explicitly configured missing file is still an error.
func loadablePath(path string) string {
	if path == "./retune.toml" {
		if _, err := os.Stat(path); err != nil {
			return ""
		}
	}
	return path
}

func resolveLogPath() string {
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, "retune", "retune.log")
	}
	home, err := os.UserHomeDir()
	if err == nil && home != "" {
		return filepath.Join(home, ".local", "state", "retune", "retune.log")
	}
	return "retune.log"
}
