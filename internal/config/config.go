package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Markers       []string      `toml:"markers"`
	Intervals     Intervals     `toml:"intervals"`
	Watch         Watch         `toml:"watch"`
	Exclude       Exclude       `toml:"exclude"`
	History       History       `toml:"history"`
	Observability Observability `toml:"observability"`
}

type Intervals struct {
	Check time.Duration `toml:"check"`
	Poll  time.Duration `toml:"poll"`
}

type Watch struct {
	Paths    []string      `toml:"paths"`
	Debounce time.Duration `toml:"debounce"`
}

type Exclude struct {
	Dirs  []string `toml:"dirs"`
	Files []string `toml:"files"`
}

type History struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

type Observability struct {
	Enabled       bool   `toml:"enabled"`
	Addr          string `toml:"addr"`
	OTLPEndpoint  string `toml:"otlp_endpoint"`
	EnableTracing bool   `toml:"enable_tracing"`
}

func Default() Config {
	return Config{
		Markers: []string{"retune.V", "retune.Expr", "V", "Expr"},
		Intervals: Intervals{
			Check: 250 * time.Millisecond,
			Poll:  50 * time.Millisecond,
		},
		Watch: Watch{
			Paths:    []string{"."},
			Debounce: 100 * time.Millisecond,
		},
		Exclude: Exclude{
			Dirs:  []string{".git", "vendor", "node_modules"},
			Files: []string{},
		},
		History: History{
			Path: "./data/retune-history.db",
		},
		Observability: Observability{
			Addr: ":9190",
		},
	}
}

// Load reads a TOML config file, fills unset fields with defaults and
// applies environment overrides last. An empty path yields defaults
// plus overrides.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return Config{}, fmt.Errorf("config file %q: %w", path, err)
		}
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %q: %w", path, err)
		}
	}
	normalize(&cfg)
	ApplyEnvOverrides(&cfg)
	return cfg, nil
}

func normalize(cfg *Config) {
	def := Default()
	if len(cfg.Markers) == 0 {
		cfg.Markers = def.Markers
	}
	if cfg.Intervals.Check <= 0 {
		cfg.Intervals.Check = def.Intervals.Check
	}
	if cfg.Intervals.Poll <= 0 {
		cfg.Intervals.Poll = def.Intervals.Poll
	}
	if cfg.Watch.Debounce <= 0 {
		cfg.Watch.Debounce = def.Watch.Debounce
	}
	if len(cfg.Watch.Paths) == 0 {
		cfg.Watch.Paths = def.Watch.Paths
	}
	if cfg.History.Path == "" {
		cfg.History.Path = def.History.Path
	}
	if cfg.Observability.Addr == "" {
		cfg.Observability.Addr = def.Observability.Addr
	}
}
