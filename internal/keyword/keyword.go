// Package keyword validates the line-item labels used by proposals and
// allocations.
package keyword

import (
	"fmt"
	"regexp"
)

// Keyword name rules:
// - ASCII identifier.
// - First character uppercase [A-Z].
// - Remaining characters [A-Za-z0-9].
// - Length 1..100.
//
// Examples valid: Price, Item, Bonus2, CollateralA
// Examples invalid: "", price, _Price, Pri-ce, Pricé, 101+ chars.
var nameRe = regexp.MustCompile(`^[A-Z][A-Za-z0-9]{0,99}$`)

// Valid returns true if the provided keyword matches the allowed pattern.
func Valid(name string) bool {
	return nameRe.MatchString(name)
}

// Check returns a descriptive error for an invalid keyword, nil otherwise.
func Check(name string) error {
	if !Valid(name) {
		return fmt.Errorf("keyword %q must be an ASCII identifier starting with a capital letter, at most 100 chars", name)
	}
	return nil
}
