// Package proposal builds and validates the declared trade terms of a
// participant: what they escrow (give), what they require in return (want)
// and under which rule they may leave (exit). A built Proposal is canonical
// and immutable; every later safety decision about the participant's seat is
// made against it.
package proposal

import (
	"errors"
	"fmt"
	"time"

	"github.com/dropDatabas3/escrowcore/internal/amount"
	"github.com/dropDatabas3/escrowcore/internal/keyword"
	"github.com/dropDatabas3/escrowcore/internal/timer"
)

// ErrInvalidProposal indicates a raw proposal that failed validation. The
// wrapping message names the offending keyword or field.
var ErrInvalidProposal = errors.New("invalid proposal")

// ExitKind discrimina la variante de la regla de salida.
type ExitKind int

const (
	// ExitOnDemand permite salir unilateralmente en cualquier momento.
	ExitOnDemand ExitKind = iota
	// ExitWaived renuncia a la salida anticipada.
	ExitWaived
	// ExitAfterDeadline sale automáticamente al vencer el plazo.
	ExitAfterDeadline
)

// String returns the wire name of the exit kind.
func (k ExitKind) String() string {
	switch k {
	case ExitOnDemand:
		return "onDemand"
	case ExitWaived:
		return "waived"
	case ExitAfterDeadline:
		return "afterDeadline"
	}
	return fmt.Sprintf("exitKind(%d)", int(k))
}

// ExitRule is the tagged exit variant of a proposal. Timer and Deadline are
// only meaningful for ExitAfterDeadline.
type ExitRule struct {
	Kind     ExitKind
	Timer    timer.Authority
	Deadline time.Time
}

// OnDemand builds the default exit rule.
func OnDemand() ExitRule { return ExitRule{Kind: ExitOnDemand} }

// Waived builds the no-early-exit rule.
func Waived() ExitRule { return ExitRule{Kind: ExitWaived} }

// AfterDeadline builds a deadline exit rule bound to a time authority.
func AfterDeadline(auth timer.Authority, deadline time.Time) ExitRule {
	return ExitRule{Kind: ExitAfterDeadline, Timer: auth, Deadline: deadline}
}

// Raw is the untrusted input to Build. Nil maps default to empty, a nil Exit
// defaults to OnDemand.
type Raw struct {
	Give map[string]amount.Amount
	Want map[string]amount.Amount
	Exit *ExitRule
}

// Proposal is a participant's canonical declared terms. Immutable once built:
// accessors hand out copies.
type Proposal struct {
	give map[string]amount.Amount
	want map[string]amount.Amount
	exit ExitRule
}

// Build validates and normalizes a raw proposal per the offer rules:
// keywords must pass the keyword name rule, every amount must carry a live
// brand, no keyword may appear in both give and want, and the exit rule must
// be exactly one well-formed variant.
func Build(raw Raw) (Proposal, error) {
	give, err := cleanEntries("give", raw.Give)
	if err != nil {
		return Proposal{}, err
	}
	want, err := cleanEntries("want", raw.Want)
	if err != nil {
		return Proposal{}, err
	}

	for kw := range give {
		if _, dup := want[kw]; dup {
			return Proposal{}, fmt.Errorf("keyword %q present in both give and want: %w", kw, ErrInvalidProposal)
		}
	}

	exit := OnDemand()
	if raw.Exit != nil {
		exit = *raw.Exit
	}
	if err := checkExit(exit); err != nil {
		return Proposal{}, err
	}

	return Proposal{give: give, want: want, exit: exit}, nil
}

func cleanEntries(side string, in map[string]amount.Amount) (map[string]amount.Amount, error) {
	out := make(map[string]amount.Amount, len(in))
	for kw, amt := range in {
		if err := keyword.Check(kw); err != nil {
			return nil, fmt.Errorf("%s: %v: %w", side, err, ErrInvalidProposal)
		}
		if amt.Brand() == nil {
			return nil, fmt.Errorf("%s[%s]: amount has no brand: %w", side, kw, ErrInvalidProposal)
		}
		out[kw] = amt
	}
	return out, nil
}

func checkExit(exit ExitRule) error {
	switch exit.Kind {
	case ExitOnDemand, ExitWaived:
		if exit.Timer != nil || !exit.Deadline.IsZero() {
			return fmt.Errorf("exit %s must not carry timer or deadline: %w", exit.Kind, ErrInvalidProposal)
		}
	case ExitAfterDeadline:
		if exit.Timer == nil {
			return fmt.Errorf("exit afterDeadline requires a timer authority: %w", ErrInvalidProposal)
		}
		if exit.Deadline.IsZero() {
			return fmt.Errorf("exit afterDeadline requires a deadline: %w", ErrInvalidProposal)
		}
	default:
		return fmt.Errorf("unknown exit kind %d: %w", int(exit.Kind), ErrInvalidProposal)
	}
	return nil
}

// Give returns a copy of the give side.
func (p Proposal) Give() map[string]amount.Amount { return copyEntries(p.give) }

// Want returns a copy of the want side.
func (p Proposal) Want() map[string]amount.Amount { return copyEntries(p.want) }

// GiveAmount looks up a give entry.
func (p Proposal) GiveAmount(kw string) (amount.Amount, bool) {
	a, ok := p.give[kw]
	return a, ok
}

// WantAmount looks up a want entry.
func (p Proposal) WantAmount(kw string) (amount.Amount, bool) {
	a, ok := p.want[kw]
	return a, ok
}

// Exit returns the exit rule.
func (p Proposal) Exit() ExitRule { return p.exit }

// Keywords returns the union of give and want keywords.
func (p Proposal) Keywords() []string {
	seen := make(map[string]bool, len(p.give)+len(p.want))
	out := make([]string, 0, len(p.give)+len(p.want))
	for kw := range p.give {
		if !seen[kw] {
			seen[kw] = true
			out = append(out, kw)
		}
	}
	for kw := range p.want {
		if !seen[kw] {
			seen[kw] = true
			out = append(out, kw)
		}
	}
	return out
}

func copyEntries(in map[string]amount.Amount) map[string]amount.Amount {
	out := make(map[string]amount.Amount, len(in))
	for kw, amt := range in {
		out[kw] = amt
	}
	return out
}
