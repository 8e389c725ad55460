package seat

import (
	"sort"
	"sync"
)

// Arena owns an instance's seats, indexed by their opaque ID. Both the
// contract side and the ledger side refer to seats through these IDs; the
// arena is the only place holding the actual records, so no seat ever
// references another.
type Arena struct {
	mu    sync.RWMutex
	seats map[string]*Seat
}

// NewArena creates an empty arena.
func NewArena() *Arena {
	return &Arena{seats: make(map[string]*Seat)}
}

// Add registers a seat under its ID.
func (a *Arena) Add(s *Seat) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.seats[s.ID()] = s
}

// Get resolves a seat ID.
func (a *Arena) Get(id string) (*Seat, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	s, ok := a.seats[id]
	return s, ok
}

// IDs returns every seat ID, sorted.
func (a *Arena) IDs() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]string, 0, len(a.seats))
	for id := range a.seats {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Active returns every seat currently in the Active state, sorted by ID.
func (a *Arena) Active() []*Seat {
	a.mu.RLock()
	defer a.mu.RUnlock()
	ids := make([]string, 0, len(a.seats))
	for id, s := range a.seats {
		if s.State() == Active {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	out := make([]*Seat, 0, len(ids))
	for _, id := range ids {
		out = append(out, a.seats[id])
	}
	return out
}

// Len returns the number of seats in the arena.
func (a *Arena) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.seats)
}
