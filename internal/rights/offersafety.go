// Package rights holds the two pure predicates the clearing core trusts:
// offer safety (a seat's outcome is a refund, a payout, or a combination
// reaching its required multiple, never neither) and rights conservation
// (value entering a rearrangement equals value leaving it, per brand).
package rights

import (
	"fmt"
	"math"

	"github.com/dropDatabas3/escrowcore/internal/alloc"
	"github.com/dropDatabas3/escrowcore/internal/amount"
	"github.com/dropDatabas3/escrowcore/internal/proposal"
)

// Unbounded is the multiplicity of an empty requirement: it is satisfied any
// number of times.
const Unbounded = math.MaxUint64

// Multiplicity reports how many whole multiples of the requirement the
// allocation covers. Zero means the requirement is not met at all. For each
// requirement keyword the allocation entry (absent counts as empty) must
// cover the required amount; the multiplicity is then the minimum over the
// capping keywords: floor(held/required) for nonzero nat requirements, 1 for
// nonempty set requirements. A requirement with no capping keyword is
// satisfied an unbounded number of times.
func Multiplicity(requirement map[string]amount.Amount, a alloc.Allocation) (uint64, error) {
	mult := uint64(Unbounded)
	for kw, req := range requirement {
		cur, ok := a[kw]
		if !ok {
			cur = amount.MakeEmpty(req.Brand())
		}
		gte, err := amount.IsGTE(cur, req)
		if err != nil {
			return 0, fmt.Errorf("keyword %q: %w", kw, err)
		}
		if !gte {
			return 0, nil
		}
		switch {
		case req.IsEmpty():
			// no cap
		case req.Brand().Kind() == amount.KindNat:
			if m := cur.Nat() / req.Nat(); m < mult {
				mult = m
			}
		default:
			// non-fungible requirements cover at most one multiple
			if mult > 1 {
				mult = 1
			}
		}
	}
	return mult, nil
}

// IsOfferSafe reports whether the allocation satisfies the proposal at the
// default required multiple of 1.
func IsOfferSafe(p proposal.Proposal, a alloc.Allocation) (bool, error) {
	return IsOfferSafeWithMultiples(p, a, 1)
}

// IsOfferSafeWithMultiples reports whether the give-side multiplicity plus
// the want-side multiplicity reaches requiredMultiples. The participant is
// protected if the outcome is a refund, a payout, or any mixture reaching the
// required count.
func IsOfferSafeWithMultiples(p proposal.Proposal, a alloc.Allocation, requiredMultiples uint64) (bool, error) {
	giveMult, err := Multiplicity(p.Give(), a)
	if err != nil {
		return false, fmt.Errorf("give side: %w", err)
	}
	if giveMult >= requiredMultiples {
		return true, nil
	}
	wantMult, err := Multiplicity(p.Want(), a)
	if err != nil {
		return false, fmt.Errorf("want side: %w", err)
	}
	if wantMult >= requiredMultiples-giveMult {
		return true, nil
	}
	return false, nil
}
