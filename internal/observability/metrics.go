package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	ResolvesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "retune_resolves_total",
		Help: "Total number of tweak value lookups.",
	})

	FallbacksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "retune_fallbacks_total",
		Help: "Total number of lookups answered with the compiled-in fallback value.",
	})

	StatChecksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "retune_stat_checks_total",
		Help: "Total number of real file metadata queries issued by the stat cache.",
	})

	ReparsesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "retune_reparses_total",
		Help: "Total number of file re-parses triggered by detected changes.",
	})

	ParseDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "retune_parse_seconds",
		Help:    "Time spent scanning a source file for literal occurrences.",
		Buckets: prometheus.DefBuckets,
	})

	TrackedFiles = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "retune_tracked_files",
		Help: "Number of distinct files the registry currently tracks.",
	})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "retune_watcher_events_total",
		Help: "Total number of file system events received by the notify assist.",
	})
)
