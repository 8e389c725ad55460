package rights

import (
	"errors"
	"fmt"
	"sort"

	"github.com/dropDatabas3/escrowcore/internal/amount"
)

// ErrConservationViolation indicates that a brand's total before a
// rearrangement differs from its total after. The wrapping message names the
// brand.
var ErrConservationViolation = errors.New("rights not conserved")

// AssertConserved sums each list per brand and fails if any brand's
// before-sum differs from its after-sum. A brand absent from one side is
// compared against its empty amount. This runs once per rearrangement over
// the flattened union of every amount touched in the batch.
func AssertConserved(before, after []amount.Amount) error {
	sumBefore, err := sumByBrand(before)
	if err != nil {
		return fmt.Errorf("sum before: %w", err)
	}
	sumAfter, err := sumByBrand(after)
	if err != nil {
		return fmt.Errorf("sum after: %w", err)
	}

	for _, b := range unionBrands(sumBefore, sumAfter) {
		prev, ok := sumBefore[b]
		if !ok {
			prev = amount.MakeEmpty(b)
		}
		next, ok := sumAfter[b]
		if !ok {
			next = amount.MakeEmpty(b)
		}
		eq, err := amount.IsEqual(prev, next)
		if err != nil {
			return fmt.Errorf("compare brand %s: %w", b.Name(), err)
		}
		if !eq {
			return fmt.Errorf("brand %s: before %v, after %v: %w", b.Name(), prev, next, ErrConservationViolation)
		}
	}
	return nil
}

func sumByBrand(amounts []amount.Amount) (map[*amount.Brand]amount.Amount, error) {
	sums := make(map[*amount.Brand]amount.Amount)
	for _, a := range amounts {
		b := a.Brand()
		if b == nil {
			return nil, errors.New("amount without brand")
		}
		cur, ok := sums[b]
		if !ok {
			sums[b] = a
			continue
		}
		sum, err := amount.Add(cur, a)
		if err != nil {
			return nil, fmt.Errorf("brand %s: %w", b.Name(), err)
		}
		sums[b] = sum
	}
	return sums, nil
}

func unionBrands(a, b map[*amount.Brand]amount.Amount) []*amount.Brand {
	seen := make(map[*amount.Brand]bool, len(a)+len(b))
	out := make([]*amount.Brand, 0, len(a)+len(b))
	for br := range a {
		if !seen[br] {
			seen[br] = true
			out = append(out, br)
		}
	}
	for br := range b {
		if !seen[br] {
			seen[br] = true
			out = append(out, br)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}
