package main

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"retune/internal/config"
	"retune/internal/engine"
	"retune/internal/history"
	"retune/internal/literal"
	"retune/internal/notify"
	"retune/internal/observability"
	"retune/internal/registry"
	"retune/internal/sitescan"
)

// App ties the runtime engine to the discovery scanner, the fsnotify
// assist and the optional history log for the CLI's list/watch modes.
type App struct {
	cfg     config.Config
	eng     *engine.Engine
	scanner *sitescan.Scanner
	store   *history.Store
	watcher *notify.Watcher

	mu    sync.Mutex
	sites []sitescan.Site
}

// SiteView is one discovered call site paired with its current live
// value from the engine's registry.
type SiteView struct {
	File     string
	Line     int
	Marker   string
	Value    string
	Override bool
	Live     bool // false when the registry has no occurrence for it
}

func NewApp(cfg config.Config) (*App, error) {
	scanner, err := sitescan.New(cfg.Markers, cfg.Exclude.Dirs, cfg.Exclude.Files)
	if err != nil {
		return nil, err
	}

	app := &App{
		cfg: cfg,
		eng: engine.New(engine.Options{
			CheckInterval: cfg.Intervals.Check,
			PollInterval:  cfg.Intervals.Poll,
			Markers:       cfg.Markers,
		}),
		scanner: scanner,
	}

	if cfg.History.Enabled {
		store, err := history.Open(cfg.History.Path)
		if err != nil {
			return nil, err
		}
		if _, err := store.BeginRun(strings.Join(cfg.Watch.Paths, ",")); err != nil {
			_ = store.Close()
			return nil, err
		}
		app.store = store
	}

	return app, nil
}

// Discover scans the configured paths for call sites and primes the
// engine's registry for every file that has at least one.
func (a *App) Discover(ctx context.Context) error {
	ctx, span := observability.Tracer.Start(ctx, "app.Discover")
	defer span.End()
	_ = ctx

	var sites []sitescan.Site
	for _, root := range a.cfg.Watch.Paths {
		found, err := a.scanner.ScanProject(root)
		if err != nil {
			return err
		}
		sites = append(sites, found...)
	}

	seen := make(map[string]bool)
	for _, s := range sites {
		if !seen[s.File] {
			seen[s.File] = true
			a.eng.Registry().GetOrRefresh(s.File)
		}
	}

	a.mu.Lock()
	a.sites = sites
	a.mu.Unlock()

	slog.Info("discovered tweak sites", "sites", len(sites), "files", len(seen))
	return nil
}

// Sites pairs each discovered call site with the registry's current
// value. Discovery lists every marker call, including ones whose
// argument is not a literal; the registry only holds decodable
// occurrences, so pairing goes by line and column rather than by
// position in the file.
func (a *App) Sites() []SiteView {
	a.mu.Lock()
	sites := make([]sitescan.Site, len(a.sites))
	copy(sites, a.sites)
	a.mu.Unlock()

	views := make([]SiteView, 0, len(sites))
	for _, s := range sites {
		view := SiteView{
			File:     s.File,
			Line:     s.Line,
			Marker:   s.Marker,
			Override: s.Override,
			Value:    s.Literal,
		}
		if s.Decoded {
			if entry := a.eng.Registry().Snapshot(s.File); entry != nil {
				if occ, ok := matchOccurrence(entry, s.Line, s.Column); ok {
					view.Value = occ.Value.String()
					view.Live = true
				}
			}
		}
		views = append(views, view)
	}
	return views
}

// matchOccurrence applies the engine's binding rule to a discovered
// site: the first occurrence on the site's line at or past its column
// wins, falling back to the first occurrence on the line.
func matchOccurrence(entry *registry.FileEntry, line, column int) (literal.Occurrence, bool) {
	first := -1
	for i, occ := range entry.Occurrences {
		if occ.Line != line {
			continue
		}
		if first < 0 {
			first = i
		}
		if occ.Column >= column {
			return occ, true
		}
	}
	if first >= 0 {
		return entry.Occurrences[first], true
	}
	return literal.Occurrence{}, false
}

// HandleChanges refreshes the changed files, diffs old and new
// occurrence snapshots and returns (and records) the observed literal
// edits.
func (a *App) HandleChanges(paths []string) []history.Change {
	var changes []history.Change
	for _, path := range paths {
		if !strings.HasSuffix(path, ".go") {
			continue
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			abs = path
		}

		prev := a.eng.Registry().Snapshot(abs)
		if prev == nil {
			continue // not a tracked file
		}
		a.eng.Invalidate(abs)
		next := a.eng.Registry().GetOrRefresh(abs)
		if next == nil || next.Generation == prev.Generation {
			continue
		}

		changes = append(changes, diffOccurrences(abs, prev.Occurrences, next.Occurrences)...)
		a.rediscoverFile(abs)
	}

	if a.store != nil {
		for _, c := range changes {
			if err := a.store.RecordChange(c); err != nil {
				slog.Warn("failed to record change", "file", c.File, "error", err)
			}
		}
	}
	return changes
}

func diffOccurrences(path string, prev, next []literal.Occurrence) []history.Change {
	var out []history.Change
	for i := range next {
		if i < len(prev) && prev[i].Raw == next[i].Raw {
			continue
		}
		c := history.Change{
			File:     path,
			Ordinal:  next[i].Ordinal,
			Line:     next[i].Line,
			Kind:     next[i].Kind.String(),
			NewValue: next[i].Value.String(),
		}
		if i < len(prev) {
			c.OldValue = prev[i].Value.String()
		}
		out = append(out, c)
	}
	return out
}

// rediscoverFile replaces the cached sites for one file so line numbers
// in the views track edits.
func (a *App) rediscoverFile(path string) {
	found, err := a.scanner.ScanFile(path)
	if err != nil {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	kept := a.sites[:0]
	for _, s := range a.sites {
		if s.File != path {
			kept = append(kept, s)
		}
	}
	a.sites = append(kept, found...)
}

// StartWatcher begins the fsnotify assist; onUpdate runs after each
// debounced batch with the observed changes (possibly empty when only
// non-literal edits happened).
func (a *App) StartWatcher(onUpdate func([]history.Change)) error {
	w, err := notify.NewWatcher(a.cfg.Watch.Debounce, a.cfg.Exclude.Dirs, a.cfg.Exclude.Files, func(paths []string) {
		changes := a.HandleChanges(paths)
		if onUpdate != nil {
			onUpdate(changes)
		}
	})
	if err != nil {
		return err
	}
	if err := w.Watch(a.cfg.Watch.Paths); err != nil {
		_ = w.Close()
		return err
	}
	a.watcher = w
	return nil
}

func (a *App) Close() {
	if a.watcher != nil {
		_ = a.watcher.Close()
	}
	if a.store != nil {
		_ = a.store.Close()
	}
}
