package engine

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/dropDatabas3/escrowcore/internal/alloc"
	"github.com/dropDatabas3/escrowcore/internal/amount"
	"github.com/dropDatabas3/escrowcore/internal/cache"
	"github.com/dropDatabas3/escrowcore/internal/payout"
	"github.com/dropDatabas3/escrowcore/internal/proposal"
)

func newMintHarness(t *testing.T) (*harness, *amount.Brand, *Mint, string) {
	t.Helper()
	h := newHarness(t)
	tok, err := h.reg.NewBrand("T", amount.KindNat)
	if err != nil {
		t.Fatalf("NewBrand T: %v", err)
	}
	m, err := h.inst.NewMint(MintOptions{
		Brand:     tok,
		Authority: payout.NewPoolMint(h.pool),
	})
	if err != nil {
		t.Fatalf("NewMint: %v", err)
	}
	seatID, err := h.inst.OpenEmptySeat(context.Background())
	if err != nil {
		t.Fatalf("OpenEmptySeat: %v", err)
	}
	return h, tok, m, seatID
}

func TestMintGainsIncreasesPoolAsymmetrically(t *testing.T) {
	h, tok, m, seatID := newMintHarness(t)
	ctx := context.Background()

	err := m.MintGains(ctx, "", seatID, alloc.Allocation{"Bonus": amount.MustNat(tok, 50)})
	if err != nil {
		t.Fatalf("MintGains: %v", err)
	}

	a, err := h.inst.CurrentAllocation(seatID)
	if err != nil {
		t.Fatalf("CurrentAllocation: %v", err)
	}
	if got := a["Bonus"].Nat(); got != 50 {
		t.Fatalf("Bonus = %d, want 50", got)
	}
	// El pool sube 50 T sin decremento en ningún otro lado: la asimetría es
	// el punto del camino mint.
	if got := h.pool.Balance(tok).Nat(); got != 50 {
		t.Fatalf("pool T balance = %d, want 50", got)
	}
}

func TestBurnLossesMirrors(t *testing.T) {
	h, tok, m, seatID := newMintHarness(t)
	ctx := context.Background()

	if err := m.MintGains(ctx, "", seatID, alloc.Allocation{"Bonus": amount.MustNat(tok, 50)}); err != nil {
		t.Fatalf("MintGains: %v", err)
	}
	if err := m.BurnLosses(ctx, "", seatID, alloc.Allocation{"Bonus": amount.MustNat(tok, 20)}); err != nil {
		t.Fatalf("BurnLosses: %v", err)
	}

	a, err := h.inst.CurrentAllocation(seatID)
	if err != nil {
		t.Fatalf("CurrentAllocation: %v", err)
	}
	if got := a["Bonus"].Nat(); got != 30 {
		t.Fatalf("Bonus = %d, want 30", got)
	}
	if got := h.pool.Balance(tok).Nat(); got != 30 {
		t.Fatalf("pool T balance = %d, want 30", got)
	}

	// Quemar más de lo que el seat tiene falla antes de tocar nada.
	err = m.BurnLosses(ctx, "", seatID, alloc.Allocation{"Bonus": amount.MustNat(tok, 100)})
	if !errors.Is(err, alloc.ErrInsufficientAllocation) {
		t.Fatalf("BurnLosses over balance = %v, want ErrInsufficientAllocation", err)
	}
	if got := h.pool.Balance(tok).Nat(); got != 30 {
		t.Fatalf("pool T balance after rejected burn = %d, want 30", got)
	}
}

func TestMintRejectsForeignBrand(t *testing.T) {
	h, _, m, seatID := newMintHarness(t)
	ctx := context.Background()

	err := m.MintGains(ctx, "", seatID, alloc.Allocation{"Bonus": amount.MustNat(h.bld, 5)})
	if !errors.Is(err, amount.ErrBrandMismatch) {
		t.Fatalf("MintGains foreign brand = %v, want ErrBrandMismatch", err)
	}
}

func TestMintKeepsOfferSafety(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	tok, err := h.reg.NewBrand("T", amount.KindNat)
	if err != nil {
		t.Fatalf("NewBrand: %v", err)
	}
	m, err := h.inst.NewMint(MintOptions{Brand: tok, Authority: payout.NewPoolMint(h.pool)})
	if err != nil {
		t.Fatalf("NewMint: %v", err)
	}

	// El seat dio 40 T y todavía no recibió nada de su want; quemarle 25 lo
	// dejaría sin refund completo y sin payout: ni un múltiplo de cada lado.
	p, err := proposal.Build(proposal.Raw{
		Give: map[string]amount.Amount{"Stake": amount.MustNat(tok, 40)},
		Want: map[string]amount.Amount{"Reward": amount.MustNat(h.bld, 100)},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	seatID, err := h.inst.OpenSeat(ctx, p)
	if err != nil {
		t.Fatalf("OpenSeat: %v", err)
	}

	err = m.BurnLosses(ctx, "", seatID, alloc.Allocation{"Stake": amount.MustNat(tok, 25)})
	if !errors.Is(err, ErrOfferSafetyViolation) {
		t.Fatalf("BurnLosses = %v, want ErrOfferSafetyViolation", err)
	}
	a, err := h.inst.CurrentAllocation(seatID)
	if err != nil {
		t.Fatalf("CurrentAllocation: %v", err)
	}
	if got := a["Stake"].Nat(); got != 40 {
		t.Fatalf("Stake = %d, want 40 (rejected burn must not mutate)", got)
	}
}

// flakyAuthority falla las primeras n llamadas y después funciona,
// registrando cada operation ID visto.
type flakyAuthority struct {
	mu       sync.Mutex
	failures int
	calls    []string
	inner    *payout.PoolMint
}

func (f *flakyAuthority) Mint(ctx context.Context, opID string, total amount.Amount) error {
	f.mu.Lock()
	f.calls = append(f.calls, opID)
	fail := f.failures > 0
	if fail {
		f.failures--
	}
	f.mu.Unlock()
	if fail {
		return errors.New("authority unavailable")
	}
	return f.inner.Mint(ctx, opID, total)
}

func (f *flakyAuthority) Burn(ctx context.Context, opID string, total amount.Amount) error {
	return f.inner.Burn(ctx, opID, total)
}

func TestMintRetriesPhysicalStep(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	tok, err := h.reg.NewBrand("T", amount.KindNat)
	if err != nil {
		t.Fatalf("NewBrand: %v", err)
	}
	auth := &flakyAuthority{failures: 2, inner: payout.NewPoolMint(h.pool)}
	m, err := h.inst.NewMint(MintOptions{Brand: tok, Authority: auth, Retries: 3})
	if err != nil {
		t.Fatalf("NewMint: %v", err)
	}
	seatID, err := h.inst.OpenEmptySeat(ctx)
	if err != nil {
		t.Fatalf("OpenEmptySeat: %v", err)
	}

	if err := m.MintGains(ctx, "", seatID, alloc.Allocation{"Bonus": amount.MustNat(tok, 10)}); err != nil {
		t.Fatalf("MintGains: %v", err)
	}
	if got := h.pool.Balance(tok).Nat(); got != 10 {
		t.Fatalf("pool T balance = %d, want 10 after retries", got)
	}
	// Todos los intentos comparten el mismo operation ID.
	auth.mu.Lock()
	defer auth.mu.Unlock()
	if len(auth.calls) != 3 {
		t.Fatalf("authority calls = %d, want 3", len(auth.calls))
	}
	for _, id := range auth.calls[1:] {
		if id != auth.calls[0] {
			t.Fatalf("retry used a different operation ID: %v", auth.calls)
		}
	}
}

func TestMintJournalSkipsReplay(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	tok, err := h.reg.NewBrand("T", amount.KindNat)
	if err != nil {
		t.Fatalf("NewBrand: %v", err)
	}
	journal := cache.NewMemory("mint:")
	auth := &flakyAuthority{inner: payout.NewPoolMint(h.pool)}
	opts := MintOptions{Brand: tok, Authority: auth, Journal: journal}
	m, err := h.inst.NewMint(opts)
	if err != nil {
		t.Fatalf("NewMint: %v", err)
	}
	seatID, err := h.inst.OpenEmptySeat(ctx)
	if err != nil {
		t.Fatalf("OpenEmptySeat: %v", err)
	}

	gains := alloc.Allocation{"Bonus": amount.MustNat(tok, 10)}
	for i := 0; i < 3; i++ {
		if err := m.MintGains(ctx, "op-1", seatID, gains); err != nil {
			t.Fatalf("MintGains replay %d: %v", i, err)
		}
	}
	a, err := h.inst.CurrentAllocation(seatID)
	if err != nil {
		t.Fatalf("CurrentAllocation: %v", err)
	}
	if got := a["Bonus"].Nat(); got != 10 {
		t.Fatalf("Bonus after replays = %d, want 10", got)
	}
	if got := h.pool.Balance(tok).Nat(); got != 10 {
		t.Fatalf("pool T balance after replays = %d, want 10", got)
	}
	auth.mu.Lock()
	calls := len(auth.calls)
	auth.mu.Unlock()
	if calls != 1 {
		t.Fatalf("authority calls = %d, want 1 (replays must hit the journal)", calls)
	}

	// Un mint nuevo sobre el mismo journal, como después de un reinicio del
	// proceso, también encuentra la marca.
	m2, err := h.inst.NewMint(opts)
	if err != nil {
		t.Fatalf("NewMint: %v", err)
	}
	if err := m2.MintGains(ctx, "op-1", seatID, gains); err != nil {
		t.Fatalf("MintGains post-restart replay: %v", err)
	}
	a, err = h.inst.CurrentAllocation(seatID)
	if err != nil {
		t.Fatalf("CurrentAllocation: %v", err)
	}
	if got := a["Bonus"].Nat(); got != 10 {
		t.Fatalf("Bonus after cross-mint replay = %d, want 10", got)
	}

	// Un operation ID vacío genera uno fresco: la operación corre de nuevo.
	if err := m.MintGains(ctx, "", seatID, gains); err != nil {
		t.Fatalf("MintGains fresh op: %v", err)
	}
	a, err = h.inst.CurrentAllocation(seatID)
	if err != nil {
		t.Fatalf("CurrentAllocation: %v", err)
	}
	if got := a["Bonus"].Nat(); got != 20 {
		t.Fatalf("Bonus after fresh op = %d, want 20", got)
	}
}

func TestMintBookkeepingSurvivesPhysicalFailure(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	tok, err := h.reg.NewBrand("T", amount.KindNat)
	if err != nil {
		t.Fatalf("NewBrand: %v", err)
	}
	auth := &flakyAuthority{failures: 10, inner: payout.NewPoolMint(h.pool)}
	m, err := h.inst.NewMint(MintOptions{Brand: tok, Authority: auth, Retries: 2})
	if err != nil {
		t.Fatalf("NewMint: %v", err)
	}
	seatID, err := h.inst.OpenEmptySeat(ctx)
	if err != nil {
		t.Fatalf("OpenEmptySeat: %v", err)
	}

	// El paso físico agota los reintentos; el bookkeeping igual quedó
	// commiteado, y el pool sub-colateralizado (el riesgo aceptado).
	if err := m.MintGains(ctx, "", seatID, alloc.Allocation{"Bonus": amount.MustNat(tok, 10)}); err != nil {
		t.Fatalf("MintGains: %v", err)
	}
	a, err := h.inst.CurrentAllocation(seatID)
	if err != nil {
		t.Fatalf("CurrentAllocation: %v", err)
	}
	if got := a["Bonus"].Nat(); got != 10 {
		t.Fatalf("Bonus = %d, want 10", got)
	}
	if got := h.pool.Balance(tok).Nat(); got != 0 {
		t.Fatalf("pool T balance = %d, want 0", got)
	}
}
