// Package amount implements the per-brand asset algebra the clearing core
// runs on: brand-tagged quantities that add, subtract and compare only
// against the same brand.
//
// Two asset kinds are supported:
//   - Nat: fungible natural-number quantities (e.g. 100 BLD).
//   - Set: non-fungible collections of distinct element identifiers.
//
// Amounts are immutable values. Every operation returns a fresh Amount and
// fails with ErrBrandMismatch when the operands carry different brands.
package amount

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Kind identifica la aritmética de un brand.
type Kind int

const (
	// KindNat aritmética de naturales (fungible).
	KindNat Kind = iota
	// KindSet conjuntos de elementos distintos (no fungible).
	KindSet
)

// String returns the wire name of the kind.
func (k Kind) String() string {
	switch k {
	case KindNat:
		return "nat"
	case KindSet:
		return "set"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

var (
	// ErrBrandMismatch indicates arithmetic between amounts of different brands.
	ErrBrandMismatch = errors.New("brand mismatch")
	// ErrUnderflow indicates a subtraction whose minuend does not cover the subtrahend.
	ErrUnderflow = errors.New("amount underflow")
	// ErrDuplicateElement indicates a set operation that would duplicate an element.
	ErrDuplicateElement = errors.New("duplicate set element")
)

// Brand is the opaque identity of an asset type. Brands are created through a
// Registry and compared by pointer identity: two brands are the same asset
// only if they are the same *Brand.
type Brand struct {
	name string
	kind Kind
}

// Name returns the display name of the brand.
func (b *Brand) Name() string { return b.name }

// Kind returns the arithmetic kind of the brand.
func (b *Brand) Kind() Kind { return b.kind }

func (b *Brand) String() string { return b.name }

// Amount is a brand-tagged quantity. The zero Amount is invalid; build
// amounts with NewNat, NewSet or MakeEmpty.
type Amount struct {
	brand *Brand
	nat   uint64
	set   []string // sorted, distinct; only for KindSet
}

// NewNat builds a fungible amount of the given brand.
func NewNat(b *Brand, value uint64) (Amount, error) {
	if b == nil {
		return Amount{}, errors.New("nil brand")
	}
	if b.kind != KindNat {
		return Amount{}, fmt.Errorf("brand %s is not nat-kind", b.name)
	}
	return Amount{brand: b, nat: value}, nil
}

// MustNat is NewNat that panics on error. For tests and static tables.
func MustNat(b *Brand, value uint64) Amount {
	a, err := NewNat(b, value)
	if err != nil {
		panic(err)
	}
	return a
}

// NewSet builds a non-fungible amount holding the given distinct elements.
func NewSet(b *Brand, elements ...string) (Amount, error) {
	if b == nil {
		return Amount{}, errors.New("nil brand")
	}
	if b.kind != KindSet {
		return Amount{}, fmt.Errorf("brand %s is not set-kind", b.name)
	}
	set := make([]string, len(elements))
	copy(set, elements)
	sort.Strings(set)
	for i := 1; i < len(set); i++ {
		if set[i] == set[i-1] {
			return Amount{}, fmt.Errorf("element %q in %s: %w", set[i], b.name, ErrDuplicateElement)
		}
	}
	return Amount{brand: b, set: set}, nil
}

// MustSet is NewSet that panics on error. For tests and static tables.
func MustSet(b *Brand, elements ...string) Amount {
	a, err := NewSet(b, elements...)
	if err != nil {
		panic(err)
	}
	return a
}

// MakeEmpty returns the additive identity for the brand's kind.
func MakeEmpty(b *Brand) Amount {
	return Amount{brand: b}
}

// Brand returns the brand the amount is denominated in.
func (a Amount) Brand() *Brand { return a.brand }

// Nat returns the fungible value. Zero for set-kind amounts.
func (a Amount) Nat() uint64 { return a.nat }

// Set returns a copy of the element set. Nil for nat-kind amounts.
func (a Amount) Set() []string {
	if a.set == nil {
		return nil
	}
	out := make([]string, len(a.set))
	copy(out, a.set)
	return out
}

// IsEmpty reports whether the amount equals the brand's empty element.
func (a Amount) IsEmpty() bool {
	return a.nat == 0 && len(a.set) == 0
}

func (a Amount) String() string {
	if a.brand == nil {
		return "<invalid amount>"
	}
	if a.brand.kind == KindSet {
		return fmt.Sprintf("%s{%s}", a.brand.name, strings.Join(a.set, ","))
	}
	return fmt.Sprintf("%s:%d", a.brand.name, a.nat)
}

func sameBrand(a, b Amount) error {
	if a.brand == nil || b.brand == nil {
		return errors.New("nil brand")
	}
	if a.brand != b.brand {
		return fmt.Errorf("%s vs %s: %w", a.brand.name, b.brand.name, ErrBrandMismatch)
	}
	return nil
}

// Add combines two amounts of the same brand. Nat amounts add numerically;
// set amounts union and fail on overlapping elements (an element cannot be
// escrowed twice).
func Add(a, b Amount) (Amount, error) {
	if err := sameBrand(a, b); err != nil {
		return Amount{}, fmt.Errorf("add: %w", err)
	}
	if a.brand.kind == KindNat {
		sum := a.nat + b.nat
		if sum < a.nat {
			return Amount{}, fmt.Errorf("add %s: nat overflow", a.brand.name)
		}
		return Amount{brand: a.brand, nat: sum}, nil
	}
	merged := make([]string, 0, len(a.set)+len(b.set))
	merged = append(merged, a.set...)
	merged = append(merged, b.set...)
	sort.Strings(merged)
	for i := 1; i < len(merged); i++ {
		if merged[i] == merged[i-1] {
			return Amount{}, fmt.Errorf("add %s element %q: %w", a.brand.name, merged[i], ErrDuplicateElement)
		}
	}
	return Amount{brand: a.brand, set: merged}, nil
}

// Subtract removes b from a. Fails with ErrUnderflow when a does not cover b.
func Subtract(a, b Amount) (Amount, error) {
	if err := sameBrand(a, b); err != nil {
		return Amount{}, fmt.Errorf("subtract: %w", err)
	}
	if a.brand.kind == KindNat {
		if b.nat > a.nat {
			return Amount{}, fmt.Errorf("subtract %d from %d %s: %w", b.nat, a.nat, a.brand.name, ErrUnderflow)
		}
		return Amount{brand: a.brand, nat: a.nat - b.nat}, nil
	}
	have := make(map[string]bool, len(a.set))
	for _, el := range a.set {
		have[el] = true
	}
	for _, el := range b.set {
		if !have[el] {
			return Amount{}, fmt.Errorf("subtract %s element %q not held: %w", a.brand.name, el, ErrUnderflow)
		}
		delete(have, el)
	}
	rest := make([]string, 0, len(have))
	for el := range have {
		rest = append(rest, el)
	}
	sort.Strings(rest)
	return Amount{brand: a.brand, set: rest}, nil
}

// IsGTE reports whether a covers b: numerically for nat, superset for set.
func IsGTE(a, b Amount) (bool, error) {
	if err := sameBrand(a, b); err != nil {
		return false, fmt.Errorf("isGTE: %w", err)
	}
	if a.brand.kind == KindNat {
		return a.nat >= b.nat, nil
	}
	have := make(map[string]bool, len(a.set))
	for _, el := range a.set {
		have[el] = true
	}
	for _, el := range b.set {
		if !have[el] {
			return false, nil
		}
	}
	return true, nil
}

// IsEqual reports whether two amounts of the same brand hold the same value.
func IsEqual(a, b Amount) (bool, error) {
	if err := sameBrand(a, b); err != nil {
		return false, fmt.Errorf("isEqual: %w", err)
	}
	if a.brand.kind == KindNat {
		return a.nat == b.nat, nil
	}
	if len(a.set) != len(b.set) {
		return false, nil
	}
	for i := range a.set {
		if a.set[i] != b.set[i] {
			return false, nil
		}
	}
	return true, nil
}
