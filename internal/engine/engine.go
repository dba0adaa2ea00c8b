// Package engine is the runtime core: it turns a call site into the
// current value of the literal written at that site, re-reading the
// source file when it changes on disk. In the steady state a lookup is
// one throttled stat-cache check plus two read-locked map reads.
package engine

import (
	"time"

	"retune/internal/literal"
	"retune/internal/observability"
	"retune/internal/registry"
	"retune/internal/statcache"
)

// Site identifies a lookup request. It is produced once per call-site
// origin and never changes, even when the literal it refers to moves
// around inside the file.
type Site struct {
	File   string
	Line   int
	Column int
}

type Options struct {
	// CheckInterval throttles real file metadata queries per path.
	CheckInterval time.Duration
	// PollInterval is the sleep used by BlockUntilChanged.
	PollInterval time.Duration
	// Markers are the invocation names the scanner recognizes.
	Markers []string
}

// DefaultMarkers match the public helpers in the root package.
var DefaultMarkers = []string{"retune.V", "retune.Expr", "V", "Expr"}

type Engine struct {
	stats    *statcache.Cache
	registry *registry.Registry
	poll     time.Duration

	bindings *bindingMap
}

func New(opts Options) *Engine {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 50 * time.Millisecond
	}
	markers := opts.Markers
	if len(markers) == 0 {
		markers = DefaultMarkers
	}
	stats := statcache.New(opts.CheckInterval)
	return &Engine{
		stats:    stats,
		registry: registry.New(stats, markers),
		poll:     opts.PollInterval,
		bindings: newBindingMap(),
	}
}

// Registry exposes the per-file snapshots, for callers that present
// tracked state (the watch CLI).
func (e *Engine) Registry() *registry.Registry { return e.registry }

// Resolve returns the current value of the literal bound to site,
// coerced to want, or fallback when the site cannot be served (file
// unreadable, literal deleted, kind mismatch). It never fails.
func (e *Engine) Resolve(site Site, want literal.Kind, fallback literal.Value) literal.Value {
	if v, ok := e.Lookup(site, want); ok {
		return v
	}
	observability.FallbacksTotal.Inc()
	return fallback
}

// Lookup is Resolve without a fallback: the second return is false
// whenever Resolve would have returned the caller's compiled-in value.
func (e *Engine) Lookup(site Site, want literal.Kind) (literal.Value, bool) {
	observability.ResolvesTotal.Inc()

	entry := e.registry.GetOrRefresh(site.File)
	if entry == nil {
		return literal.Value{}, false
	}

	ordinal, ok := e.bindings.resolve(site, entry)
	if !ok {
		return literal.Value{}, false
	}
	if ordinal >= len(entry.Occurrences) {
		// The literal was deleted or the file shrank under us.
		return literal.Value{}, false
	}
	return entry.Occurrences[ordinal].Value.Coerce(want)
}

// Invalidate forces the next lookup touching path to bypass the stat
// throttle. Wired to the fsnotify assist.
func (e *Engine) Invalidate(path string) {
	e.stats.Expire(path)
}

// BlockUntilChanged suspends the calling goroutine until path's change
// stamp moves. It polls on a fixed short interval and carries no
// cancellation; callers needing one must layer it outside.
func (e *Engine) BlockUntilChanged(path string) {
	for {
		if e.stats.Changed(path) {
			// The check above consumed the change stamp; re-parse now so
			// the next lookup serves the edited values instead of waiting
			// for a second edit.
			e.registry.Refresh(path)
			return
		}
		time.Sleep(e.poll)
	}
}
