package seatstore

import (
	"context"
	"sort"
	"sync"

	"github.com/dropDatabas3/escrowcore/internal/seat"
)

// Memory es el backend in-process. Para desarrollo y tests.
type Memory struct {
	mu    sync.RWMutex
	snaps map[string]seat.Snapshot
}

// NewMemory crea un store vacío.
func NewMemory() *Memory {
	return &Memory{snaps: make(map[string]seat.Snapshot)}
}

func (m *Memory) Save(ctx context.Context, snap seat.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snaps[snap.ID] = snap
	return nil
}

func (m *Memory) Load(ctx context.Context, seatID string) (seat.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap, ok := m.snaps[seatID]
	if !ok {
		return seat.Snapshot{}, ErrNotFound
	}
	return snap, nil
}

func (m *Memory) List(ctx context.Context) ([]seat.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.snaps))
	for id := range m.snaps {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]seat.Snapshot, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.snaps[id])
	}
	return out, nil
}

func (m *Memory) Delete(ctx context.Context, seatID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.snaps, seatID)
	return nil
}

func (m *Memory) Close() error { return nil }
