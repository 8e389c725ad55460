// Package payout defines the escrow boundary of the clearing core: deposits
// when a seat opens, and the exactly-once withdrawal of a seat's terminal
// allocation into per-keyword payments. The pool-backed implementation here
// doubles as the value-issuing authority used by the mint/burn path.
package payout

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dropDatabas3/escrowcore/internal/alloc"
	"github.com/dropDatabas3/escrowcore/internal/amount"
)

// Escrow is the boundary the engine talks to. Withdraw is guaranteed by the
// engine to be attempted exactly once per terminated seat, with the seat's
// allocation at termination time.
type Escrow interface {
	// Deposit records escrowed value entering the pool when a seat opens.
	Deposit(ctx context.Context, seatID string, a alloc.Allocation) error

	// Withdraw converts a terminated seat's allocation into payments.
	Withdraw(ctx context.Context, seatID string, a alloc.Allocation) error
}

// Payment is one keyword's payout for a terminated seat.
type Payment struct {
	SeatID  string
	Keyword string
	Amount  amount.Amount
}

// ErrPoolUnderflow indicates a withdrawal or burn exceeding the pool's
// balance, i.e. bookkeeping and physical holdings have diverged.
var ErrPoolUnderflow = errors.New("escrow pool underflow")

// Pool acumula el valor físicamente custodiado, por brand. Es la contraparte
// "real" contra la que el bookkeeping del engine debe cuadrar.
type Pool struct {
	mu       sync.Mutex
	balances map[*amount.Brand]amount.Amount
}

// NewPool crea un pool vacío.
func NewPool() *Pool {
	return &Pool{balances: make(map[*amount.Brand]amount.Amount)}
}

// Deposit suma un amount al balance de su brand.
func (p *Pool) Deposit(a amount.Amount) error {
	if a.Brand() == nil {
		return errors.New("deposit: amount without brand")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	cur, ok := p.balances[a.Brand()]
	if !ok {
		cur = amount.MakeEmpty(a.Brand())
	}
	sum, err := amount.Add(cur, a)
	if err != nil {
		return fmt.Errorf("pool deposit: %w", err)
	}
	p.balances[a.Brand()] = sum
	return nil
}

// Withdraw resta un amount del balance de su brand.
func (p *Pool) Withdraw(a amount.Amount) error {
	if a.Brand() == nil {
		return errors.New("withdraw: amount without brand")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	cur, ok := p.balances[a.Brand()]
	if !ok {
		cur = amount.MakeEmpty(a.Brand())
	}
	gte, err := amount.IsGTE(cur, a)
	if err != nil {
		return fmt.Errorf("pool withdraw: %w", err)
	}
	if !gte {
		return fmt.Errorf("pool withdraw %v, have %v: %w", a, cur, ErrPoolUnderflow)
	}
	rest, err := amount.Subtract(cur, a)
	if err != nil {
		return fmt.Errorf("pool withdraw: %w", err)
	}
	p.balances[a.Brand()] = rest
	return nil
}

// Balance retorna el balance actual del brand (vacío si nunca depositado).
func (p *Pool) Balance(b *amount.Brand) amount.Amount {
	p.mu.Lock()
	defer p.mu.Unlock()
	cur, ok := p.balances[b]
	if !ok {
		return amount.MakeEmpty(b)
	}
	return cur
}

// Recorder is a pool-backed Escrow that keeps every payment it makes, for
// participants (and tests) to inspect.
type Recorder struct {
	pool *Pool

	mu       sync.Mutex
	payments []Payment
}

// NewRecorder builds an Escrow around the given pool.
func NewRecorder(pool *Pool) *Recorder {
	return &Recorder{pool: pool}
}

// Deposit implements Escrow.
func (r *Recorder) Deposit(ctx context.Context, seatID string, a alloc.Allocation) error {
	for _, kw := range a.Keywords() {
		if err := r.pool.Deposit(a[kw]); err != nil {
			return fmt.Errorf("seat %s keyword %s: %w", seatID, kw, err)
		}
	}
	return nil
}

// Withdraw implements Escrow: one payment per keyword, drawn from the pool.
func (r *Recorder) Withdraw(ctx context.Context, seatID string, a alloc.Allocation) error {
	for _, kw := range a.Keywords() {
		amt := a[kw]
		if amt.IsEmpty() {
			continue
		}
		if err := r.pool.Withdraw(amt); err != nil {
			return fmt.Errorf("seat %s keyword %s: %w", seatID, kw, err)
		}
		r.mu.Lock()
		r.payments = append(r.payments, Payment{SeatID: seatID, Keyword: kw, Amount: amt})
		r.mu.Unlock()
	}
	return nil
}

// Payments returns a copy of every payment made so far.
func (r *Recorder) Payments() []Payment {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Payment, len(r.payments))
	copy(out, r.payments)
	return out
}

// PaymentsFor returns the payments made for one seat.
func (r *Recorder) PaymentsFor(seatID string) []Payment {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Payment
	for _, p := range r.payments {
		if p.SeatID == seatID {
			out = append(out, p)
		}
	}
	return out
}

// PoolMint is the pool-backed value-issuing authority: minting deposits new
// value into the shared pool, burning withdraws it.
type PoolMint struct {
	pool *Pool

	mu   sync.Mutex
	done map[string]bool // processed operation IDs
}

// NewPoolMint builds a mint authority over the given pool.
func NewPoolMint(pool *Pool) *PoolMint {
	return &PoolMint{pool: pool, done: make(map[string]bool)}
}

// Mint deposits newly issued value into the pool. Repeated calls with the
// same operation ID are no-ops, so the engine may retry safely.
func (m *PoolMint) Mint(ctx context.Context, opID string, total amount.Amount) error {
	m.mu.Lock()
	if m.done[opID] {
		m.mu.Unlock()
		return nil
	}
	m.done[opID] = true
	m.mu.Unlock()
	return m.pool.Deposit(total)
}

// Burn withdraws value from the pool and destroys it. Idempotent per
// operation ID, like Mint.
func (m *PoolMint) Burn(ctx context.Context, opID string, total amount.Amount) error {
	m.mu.Lock()
	if m.done[opID] {
		m.mu.Unlock()
		return nil
	}
	m.done[opID] = true
	m.mu.Unlock()
	return m.pool.Withdraw(total)
}
