// Package registry owns the per-file parse state: for every file ever
// looked up it keeps the latest occurrence snapshot and a generation
// counter. Snapshots are immutable; a re-parse builds a fresh entry off
// to the side and swaps it in whole, so readers never see a partially
// replaced occurrence list.
package registry

import (
	"log/slog"
	"os"
	"sync"
	"time"

	"retune/internal/literal"
	"retune/internal/observability"
	"retune/internal/scan"
	"retune/internal/statcache"
)

// FileEntry is one parsed snapshot of a file. Never mutated after
// publication.
type FileEntry struct {
	Path        string
	ModTime     time.Time
	Generation  uint64
	Occurrences []literal.Occurrence
}

type Registry struct {
	stats   *statcache.Cache
	markers []string

	mu    sync.RWMutex
	files map[string]*FileEntry
}

func New(stats *statcache.Cache, markers []string) *Registry {
	return &Registry{
		stats:   stats,
		markers: markers,
		files:   make(map[string]*FileEntry),
	}
}

// GetOrRefresh returns the current snapshot for path, parsing it on
// first sight and re-parsing when the stat cache has seen a change.
// When the file cannot be read the previous snapshot is kept, so the
// program continues on last-known-good values. Returns nil only when
// the file has never been readable.
func (r *Registry) GetOrRefresh(path string) *FileEntry {
	r.mu.RLock()
	entry := r.files[path]
	r.mu.RUnlock()

	if entry != nil && !r.stats.Changed(path) {
		return entry
	}
	if entry == nil {
		// Establish the stat baseline alongside the first parse.
		r.stats.Changed(path)
	}
	return r.refresh(path, entry)
}

// Refresh re-parses path unconditionally, bypassing the stat cache.
// Callers that detect a change through their own stat check use this;
// GetOrRefresh would see the already-consumed stamp as unchanged and
// keep serving the old snapshot.
func (r *Registry) Refresh(path string) *FileEntry {
	r.mu.RLock()
	prev := r.files[path]
	r.mu.RUnlock()
	return r.refresh(path, prev)
}

// Snapshot returns the current entry without triggering any refresh.
func (r *Registry) Snapshot(path string) *FileEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.files[path]
}

// Paths lists every file the registry currently tracks.
func (r *Registry) Paths() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.files))
	for p := range r.files {
		out = append(out, p)
	}
	return out
}

func (r *Registry) refresh(path string, prev *FileEntry) *FileEntry {
	src, err := os.ReadFile(path)
	if err != nil {
		if prev != nil {
			slog.Debug("keeping last-known-good tweak snapshot", "path", path, "error", err)
			return prev
		}
		return nil
	}

	start := time.Now()
	occs := scan.Scan(src, r.markers)
	observability.ParseDuration.Observe(time.Since(start).Seconds())
	observability.ReparsesTotal.Inc()

	mod := time.Time{}
	if info, statErr := os.Stat(path); statErr == nil {
		mod = info.ModTime()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	current := r.files[path]
	var generation uint64 = 1
	if current != nil {
		generation = current.Generation + 1
	}
	next := &FileEntry{
		Path:        path,
		ModTime:     mod,
		Generation:  generation,
		Occurrences: occs,
	}
	r.files[path] = next
	observability.TrackedFiles.Set(float64(len(r.files)))
	return next
}
