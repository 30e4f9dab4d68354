// Package history keeps the bounded FIFO window of recently shown assets and
// performs anti-repeat random selection against it.
package history

import (
	"math/rand"
	"sync"

	"github.com/driftwall/driftwall/pkg/pool"
)

// History is a fixed-capacity FIFO of recently selected entries. It is safe
// for concurrent use; the prefetcher reads a snapshot while the shuffle cycle
// appends.
type History struct {
	mu      sync.Mutex
	max     int
	entries []pool.Entry
	rng     *rand.Rand
}

// New returns a History holding at most max entries. A max of zero or less
// disables anti-repeat entirely.
func New(max int, seed int64) *History {
	return &History{
		max: max,
		rng: rand.New(rand.NewSource(seed)),
	}
}

// Select picks a uniformly random entry from candidates that is not in the
// history window. When every candidate is in the window (pool smaller than
// the window, or exactly covering it), it falls back to the full candidate
// set so rotation never stalls. Returns nil only for an empty candidate set.
func (h *History) Select(candidates []pool.Entry) *pool.Entry {
	if len(candidates) == 0 {
		return nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	fresh := make([]pool.Entry, 0, len(candidates))
	for _, c := range candidates {
		if !h.containsLocked(c) {
			fresh = append(fresh, c)
		}
	}
	if len(fresh) == 0 {
		fresh = candidates
	}
	picked := fresh[h.rng.Intn(len(fresh))]
	return &picked
}

// Add appends an entry, dropping the oldest when the window is full.
func (h *History) Add(e pool.Entry) {
	if h.max <= 0 {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries = append(h.entries, e)
	if len(h.entries) > h.max {
		h.entries = h.entries[len(h.entries)-h.max:]
	}
}

// Contains reports whether the entry is in the current window.
func (h *History) Contains(e pool.Entry) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.containsLocked(e)
}

func (h *History) containsLocked(e pool.Entry) bool {
	for _, have := range h.entries {
		if have.Source == e.Source && have.ID == e.ID {
			return true
		}
	}
	return false
}

// Snapshot returns a copy of the window, oldest first.
func (h *History) Snapshot() []pool.Entry {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]pool.Entry, len(h.entries))
	copy(out, h.entries)
	return out
}

// Len returns the number of entries currently in the window.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}
