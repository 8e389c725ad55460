package amount

import "fmt"

// Record is the serialized wire/storage form of an Amount. Brands travel by
// name and are rebound through a Registry on decode.
type Record struct {
	Brand string   `json:"brand"`
	Kind  string   `json:"kind"`
	Nat   uint64   `json:"nat,omitempty"`
	Set   []string `json:"set,omitempty"`
}

// Record returns the storage form of the amount.
func (a Amount) Record() Record {
	rec := Record{Brand: a.brand.Name(), Kind: a.brand.Kind().String()}
	if a.brand.Kind() == KindSet {
		rec.Set = a.Set()
	} else {
		rec.Nat = a.nat
	}
	return rec
}

// FromRecord rebinds a stored record to a live brand from the registry.
func FromRecord(reg *Registry, rec Record) (Amount, error) {
	b, ok := reg.Lookup(rec.Brand)
	if !ok {
		return Amount{}, fmt.Errorf("decode amount: unknown brand %q", rec.Brand)
	}
	if b.Kind().String() != rec.Kind {
		return Amount{}, fmt.Errorf("decode amount: brand %q is %s-kind, record says %s", rec.Brand, b.Kind(), rec.Kind)
	}
	if b.Kind() == KindSet {
		return NewSet(b, rec.Set...)
	}
	return NewNat(b, rec.Nat)
}
