package amount

import (
	"errors"
	"testing"
)

func testBrands(t *testing.T) (*Registry, *Brand, *Brand, *Brand) {
	t.Helper()
	reg := NewRegistry()
	bld, err := reg.NewBrand("BLD", KindNat)
	if err != nil {
		t.Fatalf("new brand BLD: %v", err)
	}
	atom, err := reg.NewBrand("ATOM", KindNat)
	if err != nil {
		t.Fatalf("new brand ATOM: %v", err)
	}
	nft, err := reg.NewBrand("NFT", KindSet)
	if err != nil {
		t.Fatalf("new brand NFT: %v", err)
	}
	return reg, bld, atom, nft
}

func TestAddSubtractNat(t *testing.T) {
	_, bld, _, _ := testBrands(t)

	a := MustNat(bld, 70)
	b := MustNat(bld, 30)

	sum, err := Add(a, b)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if sum.Nat() != 100 {
		t.Fatalf("sum = %d, want 100", sum.Nat())
	}

	diff, err := Subtract(sum, b)
	if err != nil {
		t.Fatalf("subtract: %v", err)
	}
	if eq, _ := IsEqual(diff, a); !eq {
		t.Fatalf("subtract(add(a,b),b) = %v, want %v", diff, a)
	}
}

func TestSubtractUnderflow(t *testing.T) {
	_, bld, _, nft := testBrands(t)

	if _, err := Subtract(MustNat(bld, 10), MustNat(bld, 11)); !errors.Is(err, ErrUnderflow) {
		t.Fatalf("nat underflow: got %v, want ErrUnderflow", err)
	}
	if _, err := Subtract(MustSet(nft, "x"), MustSet(nft, "y")); !errors.Is(err, ErrUnderflow) {
		t.Fatalf("set underflow: got %v, want ErrUnderflow", err)
	}
}

func TestBrandMismatch(t *testing.T) {
	_, bld, atom, _ := testBrands(t)

	if _, err := Add(MustNat(bld, 1), MustNat(atom, 1)); !errors.Is(err, ErrBrandMismatch) {
		t.Fatalf("add: got %v, want ErrBrandMismatch", err)
	}
	if _, err := IsGTE(MustNat(bld, 1), MustNat(atom, 1)); !errors.Is(err, ErrBrandMismatch) {
		t.Fatalf("isGTE: got %v, want ErrBrandMismatch", err)
	}
}

func TestSetAlgebra(t *testing.T) {
	_, _, _, nft := testBrands(t)

	xy := MustSet(nft, "y", "x") // constructor sorts
	x := MustSet(nft, "x")

	if got := xy.Set(); got[0] != "x" || got[1] != "y" {
		t.Fatalf("set not sorted: %v", got)
	}

	gte, err := IsGTE(xy, x)
	if err != nil || !gte {
		t.Fatalf("isGTE({x,y},{x}) = %v, %v", gte, err)
	}
	gte, err = IsGTE(x, xy)
	if err != nil || gte {
		t.Fatalf("isGTE({x},{x,y}) = %v, %v", gte, err)
	}

	rest, err := Subtract(xy, x)
	if err != nil {
		t.Fatalf("subtract: %v", err)
	}
	if eq, _ := IsEqual(rest, MustSet(nft, "y")); !eq {
		t.Fatalf("rest = %v, want {y}", rest)
	}

	if _, err := Add(x, x); !errors.Is(err, ErrDuplicateElement) {
		t.Fatalf("add overlapping sets: got %v, want ErrDuplicateElement", err)
	}
	if _, err := NewSet(nft, "x", "x"); !errors.Is(err, ErrDuplicateElement) {
		t.Fatalf("duplicate constructor: got %v, want ErrDuplicateElement", err)
	}
}

func TestEmpty(t *testing.T) {
	_, bld, _, nft := testBrands(t)

	for _, a := range []Amount{MakeEmpty(bld), MakeEmpty(nft)} {
		if !a.IsEmpty() {
			t.Fatalf("%v should be empty", a)
		}
	}
	if MustNat(bld, 1).IsEmpty() {
		t.Fatal("1 BLD reported empty")
	}

	// Empty is the additive identity.
	a := MustNat(bld, 42)
	sum, err := Add(a, MakeEmpty(bld))
	if err != nil {
		t.Fatalf("add empty: %v", err)
	}
	if eq, _ := IsEqual(sum, a); !eq {
		t.Fatalf("a + empty = %v, want %v", sum, a)
	}
}

func TestRegistryUniqueNames(t *testing.T) {
	reg, _, _, _ := testBrands(t)
	if _, err := reg.NewBrand("BLD", KindNat); err == nil {
		t.Fatal("expected duplicate brand name to fail")
	}
	if b, ok := reg.Lookup("NFT"); !ok || b.Kind() != KindSet {
		t.Fatalf("lookup NFT: %v %v", b, ok)
	}
}

func TestRecordRoundTrip(t *testing.T) {
	reg, bld, _, nft := testBrands(t)

	for _, a := range []Amount{MustNat(bld, 77), MustSet(nft, "a", "b"), MakeEmpty(bld)} {
		back, err := FromRecord(reg, a.Record())
		if err != nil {
			t.Fatalf("from record %v: %v", a, err)
		}
		if eq, _ := IsEqual(back, a); !eq {
			t.Fatalf("round trip %v -> %v", a, back)
		}
	}

	if _, err := FromRecord(reg, Record{Brand: "nope", Kind: "nat"}); err == nil {
		t.Fatal("unknown brand should fail")
	}
}
