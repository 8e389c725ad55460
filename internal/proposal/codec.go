package proposal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dropDatabas3/escrowcore/internal/amount"
	"github.com/dropDatabas3/escrowcore/internal/timer"
)

// Record is the storage/wire form of a Proposal. The exit timer authority
// does not serialize; it is re-attached on decode.
type Record struct {
	Give map[string]amount.Record `json:"give,omitempty"`
	Want map[string]amount.Record `json:"want,omitempty"`
	Exit ExitRecord               `json:"exit"`
}

// ExitRecord is the storage form of an ExitRule. Exactly one variant field
// may be populated.
type ExitRecord struct {
	OnDemand      *struct{}           `json:"onDemand,omitempty"`
	Waived        *struct{}           `json:"waived,omitempty"`
	AfterDeadline *AfterDeadlineParts `json:"afterDeadline,omitempty"`
}

// AfterDeadlineParts carries the deadline of an afterDeadline exit.
type AfterDeadlineParts struct {
	Deadline time.Time `json:"deadline"`
}

// Record returns the storage form of the proposal.
func (p Proposal) Record() Record {
	rec := Record{
		Give: make(map[string]amount.Record, len(p.give)),
		Want: make(map[string]amount.Record, len(p.want)),
	}
	for kw, amt := range p.give {
		rec.Give[kw] = amt.Record()
	}
	for kw, amt := range p.want {
		rec.Want[kw] = amt.Record()
	}
	switch p.exit.Kind {
	case ExitWaived:
		rec.Exit.Waived = &struct{}{}
	case ExitAfterDeadline:
		rec.Exit.AfterDeadline = &AfterDeadlineParts{Deadline: p.exit.Deadline}
	default:
		rec.Exit.OnDemand = &struct{}{}
	}
	return rec
}

// FromRecord rebuilds a proposal from its storage form. The authority is
// attached to afterDeadline exits; it may be nil for the other variants.
func FromRecord(reg *amount.Registry, auth timer.Authority, rec Record) (Proposal, error) {
	raw := Raw{}
	var err error
	if raw.Give, err = decodeEntries(reg, rec.Give); err != nil {
		return Proposal{}, fmt.Errorf("give: %w", err)
	}
	if raw.Want, err = decodeEntries(reg, rec.Want); err != nil {
		return Proposal{}, fmt.Errorf("want: %w", err)
	}

	exit, err := decodeExit(auth, rec.Exit)
	if err != nil {
		return Proposal{}, err
	}
	raw.Exit = &exit

	return Build(raw)
}

// Decode parses an untrusted JSON proposal. Unknown top-level keys and
// unknown exit variants are rejected, per the offer rules.
func Decode(reg *amount.Registry, auth timer.Authority, data []byte) (Proposal, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var rec Record
	if err := dec.Decode(&rec); err != nil {
		return Proposal{}, fmt.Errorf("decode proposal: %v: %w", err, ErrInvalidProposal)
	}
	return FromRecord(reg, auth, rec)
}

func decodeEntries(reg *amount.Registry, in map[string]amount.Record) (map[string]amount.Amount, error) {
	out := make(map[string]amount.Amount, len(in))
	for kw, rec := range in {
		amt, err := amount.FromRecord(reg, rec)
		if err != nil {
			return nil, fmt.Errorf("%s: %v: %w", kw, err, ErrInvalidProposal)
		}
		out[kw] = amt
	}
	return out, nil
}

func decodeExit(auth timer.Authority, rec ExitRecord) (ExitRule, error) {
	populated := 0
	if rec.OnDemand != nil {
		populated++
	}
	if rec.Waived != nil {
		populated++
	}
	if rec.AfterDeadline != nil {
		populated++
	}
	if populated > 1 {
		return ExitRule{}, fmt.Errorf("exit has %d variants populated, want at most one: %w", populated, ErrInvalidProposal)
	}

	switch {
	case rec.Waived != nil:
		return Waived(), nil
	case rec.AfterDeadline != nil:
		if auth == nil {
			return ExitRule{}, fmt.Errorf("afterDeadline exit needs a timer authority: %w", ErrInvalidProposal)
		}
		return AfterDeadline(auth, rec.AfterDeadline.Deadline), nil
	default:
		return OnDemand(), nil
	}
}
