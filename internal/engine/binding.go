package engine

import (
	"sync"

	"retune/internal/registry"
)

// bindingMap caches which ordinal each call site resolved to. Binding
// happens once, by line/column against the snapshot current at first
// sight; afterwards the ordinal alone is the matching key, which is what
// lets a literal drift to another line and still resolve.
type bindingMap struct {
	mu    sync.RWMutex
	sites map[Site]binding
}

type binding struct {
	ordinal int
	ok      bool
	// generation of the snapshot a miss was recorded against. A miss is
	// retried once the file is re-parsed, so a literal added after the
	// first lookup still gets picked up.
	generation uint64
}

func newBindingMap() *bindingMap {
	return &bindingMap{sites: make(map[Site]binding)}
}

func (m *bindingMap) resolve(site Site, entry *registry.FileEntry) (int, bool) {
	m.mu.RLock()
	b, seen := m.sites[site]
	m.mu.RUnlock()

	if seen {
		if b.ok {
			return b.ordinal, true
		}
		if b.generation == entry.Generation {
			return 0, false
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if b, seen = m.sites[site]; seen && (b.ok || b.generation == entry.Generation) {
		return b.ordinal, b.ok
	}

	b = bind(site, entry)
	m.sites[site] = b
	return b.ordinal, b.ok
}

// bind matches a never-seen call site against the current snapshot: the
// first occurrence on the site's line at or past the site's column wins,
// falling back to the first occurrence on the line. Duplicated lines can
// therefore bind to the duplicate until the process restarts.
func bind(site Site, entry *registry.FileEntry) binding {
	first := -1
	for _, occ := range entry.Occurrences {
		if occ.Line != site.Line {
			continue
		}
		if first < 0 {
			first = occ.Ordinal
		}
		if occ.Column >= site.Column {
			return binding{ordinal: occ.Ordinal, ok: true}
		}
	}
	if first >= 0 {
		return binding{ordinal: first, ok: true}
	}
	return binding{generation: entry.Generation}
}
