package seat

import (
	"fmt"

	"github.com/dropDatabas3/escrowcore/internal/alloc"
	"github.com/dropDatabas3/escrowcore/internal/amount"
	"github.com/dropDatabas3/escrowcore/internal/proposal"
	"github.com/dropDatabas3/escrowcore/internal/timer"
)

// Snapshot es la forma serializable de un seat. Todo estado que el seat
// necesita para reconstruirse vive acá; lo que no aparece (timers armados,
// callbacks) se vuelve a derivar en la restauración.
type Snapshot struct {
	ID         string                   `json:"id"`
	Proposal   proposal.Record          `json:"proposal"`
	Allocation map[string]amount.Record `json:"allocation,omitempty"`
	State      string                   `json:"state"`
	FailReason string                   `json:"failReason,omitempty"`
}

// Snapshot captures the seat's full reconstructible state.
func (s *Seat) Snapshot() Snapshot {
	snap := Snapshot{
		ID:       s.id,
		Proposal: s.proposal.Record(),
		State:    s.state.String(),
	}
	if s.reason != nil {
		snap.FailReason = s.reason.Error()
	}
	if len(s.current) > 0 {
		snap.Allocation = make(map[string]amount.Record, len(s.current))
		for kw, amt := range s.current {
			snap.Allocation[kw] = amt.Record()
		}
	}
	return snap
}

// FromSnapshot rebuilds a seat against the live brand registry and timer
// authority. Brands referenced by the snapshot must already exist in reg.
func FromSnapshot(reg *amount.Registry, auth timer.Authority, snap Snapshot) (*Seat, error) {
	p, err := proposal.FromRecord(reg, auth, snap.Proposal)
	if err != nil {
		return nil, fmt.Errorf("seat %s: proposal: %w", snap.ID, err)
	}
	st, err := parseState(snap.State)
	if err != nil {
		return nil, fmt.Errorf("seat %s: %w", snap.ID, err)
	}
	cur := make(alloc.Allocation, len(snap.Allocation))
	for kw, rec := range snap.Allocation {
		amt, err := amount.FromRecord(reg, rec)
		if err != nil {
			return nil, fmt.Errorf("seat %s: allocation %q: %w", snap.ID, kw, err)
		}
		cur[kw] = amt
	}
	s := &Seat{
		id:       snap.ID,
		proposal: p,
		state:    st,
	}
	if st == Active {
		s.current = cur
	}
	if snap.FailReason != "" {
		s.reason = fmt.Errorf("%s", snap.FailReason)
	}
	return s, nil
}

func parseState(name string) (State, error) {
	switch name {
	case "active":
		return Active, nil
	case "exited":
		return Exited, nil
	case "failed":
		return Failed, nil
	}
	return 0, fmt.Errorf("unknown seat state %q", name)
}
