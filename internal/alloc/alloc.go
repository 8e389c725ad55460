// Package alloc implements keyword-wise arithmetic over whole allocations.
// An Allocation maps keywords to the amounts a seat currently holds in
// escrow. Operations are pure: they never mutate their inputs and return a
// fresh Allocation, which the engine swaps in wholesale at commit time.
package alloc

import (
	"errors"
	"fmt"
	"sort"

	"github.com/dropDatabas3/escrowcore/internal/amount"
)

// ErrInsufficientAllocation indicates a subtraction that exceeds the held
// amount for some keyword. The wrapping message names the keyword.
var ErrInsufficientAllocation = errors.New("insufficient allocation")

// Allocation maps keyword -> held amount.
type Allocation map[string]amount.Amount

// Clone returns an independent copy.
func (a Allocation) Clone() Allocation {
	out := make(Allocation, len(a))
	for kw, amt := range a {
		out[kw] = amt
	}
	return out
}

// Keywords returns the allocation's keywords in sorted order.
func (a Allocation) Keywords() []string {
	out := make([]string, 0, len(a))
	for kw := range a {
		out = append(out, kw)
	}
	sort.Strings(out)
	return out
}

// Amounts returns the allocation's amounts, ordered by keyword.
func (a Allocation) Amounts() []amount.Amount {
	out := make([]amount.Amount, 0, len(a))
	for _, kw := range a.Keywords() {
		out = append(out, a[kw])
	}
	return out
}

// Add combines base and delta keyword-wise. A keyword present on only one
// side passes through unchanged.
func Add(base, delta Allocation) (Allocation, error) {
	out := base.Clone()
	for kw, amt := range delta {
		cur, ok := out[kw]
		if !ok {
			out[kw] = amt
			continue
		}
		sum, err := amount.Add(cur, amt)
		if err != nil {
			return nil, fmt.Errorf("add keyword %q: %w", kw, err)
		}
		out[kw] = sum
	}
	return out, nil
}

// Subtract removes delta from base keyword-wise. Every delta entry must be
// covered by the base (an absent base entry counts as empty); otherwise it
// fails with ErrInsufficientAllocation naming the keyword. Subtracting an
// empty or absent delta is a no-op.
func Subtract(base, delta Allocation) (Allocation, error) {
	out := base.Clone()
	for kw, amt := range delta {
		cur, ok := out[kw]
		if !ok {
			cur = amount.MakeEmpty(amt.Brand())
		}
		gte, err := amount.IsGTE(cur, amt)
		if err != nil {
			return nil, fmt.Errorf("subtract keyword %q: %w", kw, err)
		}
		if !gte {
			return nil, fmt.Errorf("keyword %q: have %v, need %v: %w", kw, cur, amt, ErrInsufficientAllocation)
		}
		rest, err := amount.Subtract(cur, amt)
		if err != nil {
			return nil, fmt.Errorf("subtract keyword %q: %w", kw, err)
		}
		out[kw] = rest
	}
	return out, nil
}

// Equal reports whether two allocations hold equal amounts under the same
// keywords. Brand-mismatched entries are simply unequal.
func Equal(a, b Allocation) bool {
	if len(a) != len(b) {
		return false
	}
	for kw, amtA := range a {
		amtB, ok := b[kw]
		if !ok {
			return false
		}
		eq, err := amount.IsEqual(amtA, amtB)
		if err != nil || !eq {
			return false
		}
	}
	return true
}

// Flatten concatenates the amounts of several allocations, the shape the
// conservation check consumes.
func Flatten(allocs ...Allocation) []amount.Amount {
	var out []amount.Amount
	for _, a := range allocs {
		out = append(out, a.Amounts()...)
	}
	return out
}
