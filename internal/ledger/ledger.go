// Package ledger defines the downstream notification boundary of the
// clearing core. After every committed rearrangement the engine pushes the
// new allocations outward; a failure to propagate them is fatal to the
// instance, because local and downstream state must never diverge.
package ledger

import (
	"context"
	"sync"

	"github.com/dropDatabas3/escrowcore/internal/amount"
)

// SeatAllocation is one seat's committed allocation, in wire form.
type SeatAllocation struct {
	SeatID     string                   `json:"seat_id"`
	Allocation map[string]amount.Record `json:"allocation"`
}

// Notifier receives committed allocations. Invoked once per committed batch,
// after the local commit.
type Notifier interface {
	ReplaceAllocations(ctx context.Context, updates []SeatAllocation) error
}

// Memory records every batch it receives. For tests and dry runs. FailWith
// makes subsequent notifications fail, to exercise the fatal path.
type Memory struct {
	mu      sync.Mutex
	batches [][]SeatAllocation
	failErr error
}

// NewMemory creates an in-memory notifier.
func NewMemory() *Memory { return &Memory{} }

// ReplaceAllocations implements Notifier.
func (m *Memory) ReplaceAllocations(ctx context.Context, updates []SeatAllocation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return m.failErr
	}
	batch := make([]SeatAllocation, len(updates))
	copy(batch, updates)
	m.batches = append(m.batches, batch)
	return nil
}

// FailWith makes every later notification return err (nil restores normal
// operation).
func (m *Memory) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failErr = err
}

// Batches returns a copy of the received batches.
func (m *Memory) Batches() [][]SeatAllocation {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]SeatAllocation, len(m.batches))
	copy(out, m.batches)
	return out
}
