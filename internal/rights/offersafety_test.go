package rights

import (
	"testing"

	"github.com/dropDatabas3/escrowcore/internal/alloc"
	"github.com/dropDatabas3/escrowcore/internal/amount"
	"github.com/dropDatabas3/escrowcore/internal/proposal"
)

func testBrands(t *testing.T) (*amount.Brand, *amount.Brand) {
	t.Helper()
	reg := amount.NewRegistry()
	bld, err := reg.NewBrand("BLD", amount.KindNat)
	if err != nil {
		t.Fatalf("new brand: %v", err)
	}
	nft, err := reg.NewBrand("NFT", amount.KindSet)
	if err != nil {
		t.Fatalf("new brand: %v", err)
	}
	return bld, nft
}

func mustProposal(t *testing.T, give, want map[string]amount.Amount) proposal.Proposal {
	t.Helper()
	p, err := proposal.Build(proposal.Raw{Give: give, Want: want})
	if err != nil {
		t.Fatalf("build proposal: %v", err)
	}
	return p
}

func TestOfferSafeRefund(t *testing.T) {
	bld, nft := testBrands(t)
	p := mustProposal(t,
		map[string]amount.Amount{"Price": amount.MustNat(bld, 100)},
		map[string]amount.Amount{"Item": amount.MustSet(nft, "x")},
	)

	// full refund of the escrowed give
	safe, err := IsOfferSafe(p, alloc.Allocation{"Price": amount.MustNat(bld, 100)})
	if err != nil || !safe {
		t.Fatalf("refund: safe=%v err=%v, want true", safe, err)
	}
}

func TestOfferSafePayout(t *testing.T) {
	bld, nft := testBrands(t)
	p := mustProposal(t,
		map[string]amount.Amount{"Price": amount.MustNat(bld, 100)},
		map[string]amount.Amount{"Item": amount.MustSet(nft, "x")},
	)

	// full delivery of the want, give fully spent
	safe, err := IsOfferSafe(p, alloc.Allocation{
		"Price": amount.MakeEmpty(bld),
		"Item":  amount.MustSet(nft, "x"),
	})
	if err != nil || !safe {
		t.Fatalf("payout: safe=%v err=%v, want true", safe, err)
	}
}

func TestOfferUnsafeNeither(t *testing.T) {
	bld, nft := testBrands(t)
	p := mustProposal(t,
		map[string]amount.Amount{"Price": amount.MustNat(bld, 100)},
		map[string]amount.Amount{"Item": amount.MustSet(nft, "x")},
	)

	// half the refund and none of the want: shortchanged on both sides
	safe, err := IsOfferSafe(p, alloc.Allocation{"Price": amount.MustNat(bld, 50)})
	if err != nil {
		t.Fatalf("offer safety: %v", err)
	}
	if safe {
		t.Fatal("partial refund with no payout must not be offer safe")
	}
}

func TestOfferSafeEmptyProposal(t *testing.T) {
	bld, _ := testBrands(t)
	p := mustProposal(t, nil, nil)

	for _, a := range []alloc.Allocation{nil, {"Anything": amount.MustNat(bld, 7)}} {
		safe, err := IsOfferSafe(p, a)
		if err != nil || !safe {
			t.Fatalf("empty proposal with %v: safe=%v err=%v, want true", a, safe, err)
		}
	}
}

func TestMultiplicityNat(t *testing.T) {
	bld, _ := testBrands(t)
	req := map[string]amount.Amount{"Price": amount.MustNat(bld, 100)}

	cases := []struct {
		held uint64
		want uint64
	}{
		{0, 0},
		{99, 0},
		{100, 1},
		{250, 2},
		{1000, 10},
	}
	for _, tc := range cases {
		got, err := Multiplicity(req, alloc.Allocation{"Price": amount.MustNat(bld, tc.held)})
		if err != nil {
			t.Fatalf("held=%d: %v", tc.held, err)
		}
		if got != tc.want {
			t.Fatalf("held=%d: multiplicity=%d, want %d", tc.held, got, tc.want)
		}
	}
}

func TestMultiplicitySetCapsAtOne(t *testing.T) {
	_, nft := testBrands(t)
	req := map[string]amount.Amount{"Item": amount.MustSet(nft, "x")}

	got, err := Multiplicity(req, alloc.Allocation{"Item": amount.MustSet(nft, "x", "y", "z")})
	if err != nil {
		t.Fatalf("multiplicity: %v", err)
	}
	if got != 1 {
		t.Fatalf("set multiplicity = %d, want 1", got)
	}
}

func TestMultiplicityEmptyRequirementUnbounded(t *testing.T) {
	bld, _ := testBrands(t)

	got, err := Multiplicity(nil, alloc.Allocation{"Price": amount.MustNat(bld, 1)})
	if err != nil {
		t.Fatalf("multiplicity: %v", err)
	}
	if got != uint64(Unbounded) {
		t.Fatalf("empty requirement multiplicity = %d, want unbounded", got)
	}

	// zero-valued nat requirement imposes no cap either
	got, err = Multiplicity(map[string]amount.Amount{"Price": amount.MakeEmpty(bld)}, nil)
	if err != nil {
		t.Fatalf("multiplicity: %v", err)
	}
	if got != uint64(Unbounded) {
		t.Fatalf("zero requirement multiplicity = %d, want unbounded", got)
	}
}

func TestOfferSafetyRequiredMultiples(t *testing.T) {
	bld, _ := testBrands(t)
	p := mustProposal(t,
		map[string]amount.Amount{"Price": amount.MustNat(bld, 100)},
		map[string]amount.Amount{"Payout": amount.MustNat(bld, 50)},
	)

	// one whole refund plus one whole payout reaches two multiples
	a := alloc.Allocation{
		"Price":  amount.MustNat(bld, 100),
		"Payout": amount.MustNat(bld, 50),
	}
	safe, err := IsOfferSafeWithMultiples(p, a, 2)
	if err != nil || !safe {
		t.Fatalf("two multiples: safe=%v err=%v, want true", safe, err)
	}
	safe, err = IsOfferSafeWithMultiples(p, a, 3)
	if err != nil {
		t.Fatalf("three multiples: %v", err)
	}
	if safe {
		t.Fatal("three multiples should not be reached")
	}
}

func TestOfferSafetyMonotonicUnderGains(t *testing.T) {
	bld, nft := testBrands(t)
	p := mustProposal(t,
		map[string]amount.Amount{"Price": amount.MustNat(bld, 100)},
		map[string]amount.Amount{"Item": amount.MustSet(nft, "x")},
	)

	a := alloc.Allocation{"Item": amount.MustSet(nft, "x")}
	safe, err := IsOfferSafe(p, a)
	if err != nil || !safe {
		t.Fatalf("base: safe=%v err=%v", safe, err)
	}

	// only adding to a satisfied allocation can never break safety
	gains := []alloc.Allocation{
		{"Price": amount.MustNat(bld, 1)},
		{"Item": amount.MustSet(nft, "y")},
		{"Bonus": amount.MustNat(bld, 9)},
	}
	grown := a
	for _, g := range gains {
		var addErr error
		grown, addErr = alloc.Add(grown, g)
		if addErr != nil {
			t.Fatalf("add gains: %v", addErr)
		}
		safe, err = IsOfferSafe(p, grown)
		if err != nil || !safe {
			t.Fatalf("after gains %v: safe=%v err=%v", g, safe, err)
		}
	}
}
