package ledger

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Fanout notifica a varios sinks en paralelo. Falla si cualquiera falla: un
// sink desincronizado es tan fatal como todos.
type Fanout struct {
	sinks []Notifier
}

// NewFanout agrupa varios notifiers en uno.
func NewFanout(sinks ...Notifier) *Fanout {
	return &Fanout{sinks: sinks}
}

// ReplaceAllocations implements Notifier.
func (f *Fanout) ReplaceAllocations(ctx context.Context, updates []SeatAllocation) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, sink := range f.sinks {
		sink := sink
		g.Go(func() error {
			return sink.ReplaceAllocations(ctx, updates)
		})
	}
	return g.Wait()
}
