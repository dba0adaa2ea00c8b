package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvOverrides applies environment variable overrides to the
// configuration. Pattern: RETUNE_[SECTION]_[KEY]
// (e.g. RETUNE_INTERVALS_CHECK=100ms).
func ApplyEnvOverrides(cfg *Config) {
	setEnvStrings(&cfg.Markers, "RETUNE_MARKERS")

	setEnvDuration(&cfg.Intervals.Check, "RETUNE_INTERVALS_CHECK")
	setEnvDuration(&cfg.Intervals.Poll, "RETUNE_INTERVALS_POLL")

	setEnvStrings(&cfg.Watch.Paths, "RETUNE_WATCH_PATHS")
	setEnvDuration(&cfg.Watch.Debounce, "RETUNE_WATCH_DEBOUNCE")

	setEnvBool(&cfg.History.Enabled, "RETUNE_HISTORY_ENABLED")
	setEnvString(&cfg.History.Path, "RETUNE_HISTORY_PATH")

	setEnvBool(&cfg.Observability.Enabled, "RETUNE_OBSERVABILITY_ENABLED")
	setEnvString(&cfg.Observability.Addr, "RETUNE_OBSERVABILITY_ADDR")
	setEnvString(&cfg.Observability.OTLPEndpoint, "RETUNE_OBSERVABILITY_OTLP_ENDPOINT")
	setEnvBool(&cfg.Observability.EnableTracing, "RETUNE_OBSERVABILITY_ENABLE_TRACING")
}

func setEnvString(target *string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		slog.Debug("applying env override", "key", key, "value", val)
		*target = val
	}
}

func setEnvStrings(target *[]string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		parts := strings.Split(val, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		if len(out) > 0 {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = out
		}
	}
}

func setEnvBool(target *bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseBool(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = parsed
		} else {
			slog.Warn("invalid bool in env override", "key", key, "value", val)
		}
	}
}

func setEnvDuration(target *time.Duration, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := time.ParseDuration(val); err == nil && parsed > 0 {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = parsed
		} else {
			slog.Warn("invalid duration in env override", "key", key, "value", val)
		}
	}
}
