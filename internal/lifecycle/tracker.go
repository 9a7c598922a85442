// Package lifecycle guarantees every texture handle is released exactly once
// and tracks each block's display state for the rendering layer.
//
// Three cleanup paths race to free the same handles: the video-ready
// transition superseding a thumbnail, block unmount, and a source URL change
// forcing a fresh load. Instead of scattering release-if-not-nil checks across
// those call sites, every disposal routes through a single gate that remembers
// which handles it has already freed.
package lifecycle

import (
	"log"
	"sync"

	"github.com/canvasgrid/texload/internal/texture"
)

// Tracker is the disposal gate. The zero value is not usable; call NewTracker.
type Tracker struct {
	mu       sync.Mutex
	disposed map[uint64]struct{}
	states   map[string]State
}

func NewTracker() *Tracker {
	return &Tracker{
		disposed: make(map[uint64]struct{}),
		states:   make(map[string]State),
	}
}

// MarkAndDispose releases t unless it was already released through this gate.
// Returns true when this call performed the release. Safe under concurrent
// racing cleanup paths; a nil texture is a no-op.
func (tr *Tracker) MarkAndDispose(t *texture.Texture) bool {
	if t == nil {
		return false
	}
	tr.mu.Lock()
	if _, done := tr.disposed[t.ID()]; done {
		tr.mu.Unlock()
		return false
	}
	tr.disposed[t.ID()] = struct{}{}
	tr.mu.Unlock()

	if err := t.Release(); err != nil {
		// Release bypassed the gate somewhere; the gate still absorbed the
		// double-free, but it is worth surfacing in the log.
		log.Printf("lifecycle: release texture=%d: %v", t.ID(), err)
		return false
	}
	return true
}

// Forget drops bookkeeping for handles that no longer exist. Called when a
// block's records are removed so the disposed set cannot grow without bound.
func (tr *Tracker) Forget(ids ...uint64) {
	tr.mu.Lock()
	for _, id := range ids {
		delete(tr.disposed, id)
	}
	tr.mu.Unlock()
}

// DisposedCount reports how many handles the gate is still remembering.
// Diagnostic; after every cleanup path for a block has run the count should
// return to zero.
func (tr *Tracker) DisposedCount() int {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return len(tr.disposed)
}
