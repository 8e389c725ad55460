// Package seat models a participant's live position: their canonical
// proposal, the allocation they currently hold in escrow, and a lifecycle
// state. Seats are owned exclusively by the engine's instance while Active;
// callers hold only the opaque seat ID.
package seat

import (
	"errors"
	"fmt"

	"github.com/dropDatabas3/escrowcore/internal/alloc"
	"github.com/dropDatabas3/escrowcore/internal/proposal"
)

// State es el estado de ciclo de vida de un seat.
type State int

const (
	// Active participa en rearrangements.
	Active State = iota
	// Exited salió normalmente. Terminal.
	Exited
	// Failed salió por error. Terminal.
	Failed
)

// String returns the wire name of the state.
func (s State) String() string {
	switch s {
	case Active:
		return "active"
	case Exited:
		return "exited"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// ErrSeatNotActive indicates an operation that requires an Active seat.
var ErrSeatNotActive = errors.New("seat not active")

// View is the read-only facet of a seat, safe to hand to contract logic.
type View interface {
	ID() string
	Proposal() proposal.Proposal
	State() State
	CurrentAllocation() (alloc.Allocation, error)
}

// Admin is the mutating facet, reserved for the owning instance. One
// concrete Seat implements both facets; which one a caller holds decides at
// compile time what it may do.
type Admin interface {
	View
	PeekAllocation() alloc.Allocation
	Commit(next alloc.Allocation)
	Exit() (alloc.Allocation, bool)
	Fail(reason error) (alloc.Allocation, bool)
}

// Seat is one participant's position. Not safe for concurrent use on its
// own: all mutation goes through the owning instance, which serializes it.
type Seat struct {
	id       string
	proposal proposal.Proposal
	current  alloc.Allocation
	state    State
	reason   error // set on Failed
}

// New creates an Active seat holding the initial allocation.
func New(id string, p proposal.Proposal, initial alloc.Allocation) *Seat {
	return &Seat{
		id:       id,
		proposal: p,
		current:  initial.Clone(),
		state:    Active,
	}
}

// ID returns the seat's opaque identifier.
func (s *Seat) ID() string { return s.id }

// Proposal returns the immutable proposal the seat was opened against.
func (s *Seat) Proposal() proposal.Proposal { return s.proposal }

// State returns the current lifecycle state.
func (s *Seat) State() State { return s.state }

// FailReason returns the reason recorded by Fail, nil otherwise.
func (s *Seat) FailReason() error { return s.reason }

// CurrentAllocation returns a copy of the seat's holdings. Fails with
// ErrSeatNotActive once the seat is terminal: a terminated seat's value is
// already on its way out through the payout boundary.
func (s *Seat) CurrentAllocation() (alloc.Allocation, error) {
	if s.state != Active {
		return nil, fmt.Errorf("seat %s is %s: %w", s.id, s.state, ErrSeatNotActive)
	}
	return s.current.Clone(), nil
}

// PeekAllocation is the admin-side read used while validating a
// rearrangement; the Active check happens earlier in the batch validation.
func (s *Seat) PeekAllocation() alloc.Allocation {
	return s.current.Clone()
}

// Commit replaces the seat's allocation wholesale. Admin-side; only called
// at a rearrangement's commit point, on an Active seat.
func (s *Seat) Commit(next alloc.Allocation) {
	s.current = next
}

// Exit moves an Active seat to Exited and hands back the allocation to pay
// out. The boolean is false when the seat was already terminal: re-entrant
// termination is a no-op, never an error, so a deadline wakeup racing a
// contract-driven exit resolves quietly.
func (s *Seat) Exit() (alloc.Allocation, bool) {
	if s.state != Active {
		return nil, false
	}
	s.state = Exited
	payout := s.current
	s.current = nil
	return payout, true
}

// Fail moves an Active seat to Failed, recording the reason. Payout still
// happens with whatever the seat held; the only penalty is forfeiting
// further participation. Idempotent like Exit.
func (s *Seat) Fail(reason error) (alloc.Allocation, bool) {
	if s.state != Active {
		return nil, false
	}
	s.state = Failed
	s.reason = reason
	payout := s.current
	s.current = nil
	return payout, true
}
