package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dropDatabas3/escrowcore/internal/alloc"
	"github.com/dropDatabas3/escrowcore/internal/amount"
	"github.com/dropDatabas3/escrowcore/internal/cache"
	"github.com/dropDatabas3/escrowcore/internal/metrics"
	"github.com/dropDatabas3/escrowcore/internal/rights"
	"github.com/dropDatabas3/escrowcore/internal/seat"
)

// Authority es la autoridad emisora de valor contra la que el mint ejecuta
// el paso físico. Mint y Burn deben ser idempotentes por operation ID.
type Authority interface {
	Mint(ctx context.Context, opID string, total amount.Amount) error
	Burn(ctx context.Context, opID string, total amount.Amount) error
}

// MintOptions configura un mint sobre una instancia.
type MintOptions struct {
	// Brand es el único brand que este mint puede emitir o quemar.
	Brand *amount.Brand

	// Authority ejecuta el paso físico contra el pool de escrow.
	Authority Authority

	// Journal registra operation IDs completados: un reintento que llegue
	// con el mismo operation ID, incluso cruzando un reinicio, encuentra
	// la marca y no vuelve a ejecutar ni el bookkeeping ni el paso físico.
	// Opcional.
	Journal cache.Client

	// JournalTTL es la vida de cada marca en el journal. Default 24h.
	JournalTTL time.Duration

	// Retries acota los reintentos del paso físico. Default 3.
	Retries int
}

// Mint es el camino restringido de reallocación para un brand emitible:
// saltea conservación (es la fuente sancionada de valor nuevo) pero mantiene
// offer safety sobre el seat afectado.
type Mint struct {
	inst       *Instance
	brand      *amount.Brand
	authority  Authority
	journal    cache.Client
	journalTTL time.Duration
	retries    int
	log        *zap.Logger
}

// NewMint crea un mint para el brand dado.
func (e *Instance) NewMint(opts MintOptions) (*Mint, error) {
	if opts.Brand == nil {
		return nil, fmt.Errorf("mint: nil brand")
	}
	if opts.Authority == nil {
		return nil, fmt.Errorf("mint: nil authority")
	}
	if opts.Retries <= 0 {
		opts.Retries = 3
	}
	if opts.JournalTTL <= 0 {
		opts.JournalTTL = 24 * time.Hour
	}
	return &Mint{
		inst:       e,
		brand:      opts.Brand,
		authority:  opts.Authority,
		journal:    opts.Journal,
		journalTTL: opts.JournalTTL,
		retries:    opts.Retries,
		log:        e.log.Named("mint").With(zap.String("brand", opts.Brand.Name())),
	}, nil
}

// MintGains suma gains a la allocation de un seat, chequeando solo offer
// safety, y después instruye a la autoridad a emitir el mismo total hacia el
// pool compartido. El bookkeeping commitea primero: una falla del paso
// físico deja el pool sub-colateralizado, nunca un balance lógico sin
// registrar.
//
// opID identifica la operación ante el journal y la autoridad. El caller que
// quiera reintentos idempotentes pasa el mismo opID en cada intento; vacío
// genera uno nuevo y la operación corre exactamente una vez sin replay.
func (m *Mint) MintGains(ctx context.Context, opID, seatID string, gains alloc.Allocation) error {
	opID = ensureOpID(opID)
	if m.completed(ctx, "mint", opID) {
		metrics.MintOps.WithLabelValues("mint", "replayed").Inc()
		return nil
	}
	total, err := m.apply(ctx, seatID, gains, false)
	if err != nil {
		metrics.MintOps.WithLabelValues("mint", "rejected").Inc()
		return err
	}
	m.physical(ctx, "mint", opID, total)
	return nil
}

// BurnLosses es el espejo: resta losses (fallando InsufficientAllocation si
// no alcanzan), chequea offer safety, commitea y quema del pool. opID opera
// igual que en MintGains.
func (m *Mint) BurnLosses(ctx context.Context, opID, seatID string, losses alloc.Allocation) error {
	opID = ensureOpID(opID)
	if m.completed(ctx, "burn", opID) {
		metrics.MintOps.WithLabelValues("burn", "replayed").Inc()
		return nil
	}
	total, err := m.apply(ctx, seatID, losses, true)
	if err != nil {
		metrics.MintOps.WithLabelValues("burn", "rejected").Inc()
		return err
	}
	m.physical(ctx, "burn", opID, total)
	return nil
}

func ensureOpID(opID string) string {
	if opID == "" {
		return uuid.NewString()
	}
	return opID
}

// completed consulta el journal por una marca de operación ya terminada bajo
// el mismo operation ID. Un hit significa que bookkeeping y paso físico ya
// corrieron en un intento anterior.
func (m *Mint) completed(ctx context.Context, op, opID string) bool {
	if m.journal == nil {
		return false
	}
	_, err := m.journal.Get(ctx, op+":"+opID)
	return err == nil
}

// apply valida y commitea el lado bookkeeping, retornando el total del brand
// a emitir o quemar.
func (m *Mint) apply(ctx context.Context, seatID string, delta alloc.Allocation, subtract bool) (amount.Amount, error) {
	e := m.inst
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.terminated {
		return amount.Amount{}, e.terminatedErr()
	}

	total := amount.MakeEmpty(m.brand)
	for _, kw := range delta.Keywords() {
		amt := delta[kw]
		if amt.Brand() != m.brand {
			return amount.Amount{}, fmt.Errorf("keyword %s carries brand %s, mint issues %s: %w",
				kw, amt.Brand(), m.brand, amount.ErrBrandMismatch)
		}
		sum, err := amount.Add(total, amt)
		if err != nil {
			return amount.Amount{}, err
		}
		total = sum
	}

	s, ok := e.arena.Get(seatID)
	if !ok {
		return amount.Amount{}, fmt.Errorf("seat %s: %w", seatID, ErrUnknownSeat)
	}
	if s.State() != seat.Active {
		return amount.Amount{}, fmt.Errorf("seat %s is %s: %w", seatID, s.State(), seat.ErrSeatNotActive)
	}

	var (
		next alloc.Allocation
		err  error
	)
	if subtract {
		next, err = alloc.Subtract(s.PeekAllocation(), delta)
	} else {
		next, err = alloc.Add(s.PeekAllocation(), delta)
	}
	if err != nil {
		return amount.Amount{}, fmt.Errorf("seat %s: %w", seatID, err)
	}

	safe, err := rights.IsOfferSafe(s.Proposal(), next)
	if err != nil {
		return amount.Amount{}, fmt.Errorf("seat %s: %w", seatID, err)
	}
	if !safe {
		return amount.Amount{}, fmt.Errorf("seat %s: %w", seatID, ErrOfferSafetyViolation)
	}

	s.Commit(next)
	if err := e.store.Save(ctx, s.Snapshot()); err != nil {
		e.log.Warn("seat snapshot save failed", zap.String("seat_id", seatID), zap.Error(err))
	}
	return total, nil
}

// physical ejecuta mint o burn contra la autoridad, con reintentos acotados
// bajo un único operation ID. La falla final se registra y nada más: el
// bookkeeping ya está commiteado y no se revierte.
func (m *Mint) physical(ctx context.Context, op, opID string, total amount.Amount) {
	key := op + ":" + opID
	if total.IsEmpty() {
		m.record(ctx, key, total)
		metrics.MintOps.WithLabelValues(op, "ok").Inc()
		return
	}

	var err error
	for attempt := 0; attempt < m.retries; attempt++ {
		if op == "mint" {
			err = m.authority.Mint(ctx, key, total)
		} else {
			err = m.authority.Burn(ctx, key, total)
		}
		if err == nil {
			m.record(ctx, key, total)
			metrics.MintOps.WithLabelValues(op, "ok").Inc()
			return
		}
		m.log.Warn("physical step failed, retrying",
			zap.String("op_id", key),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
	}
	metrics.MintOps.WithLabelValues(op, "failed").Inc()
	m.log.Error("physical step exhausted retries, pool under-collateralized",
		zap.String("op_id", key),
		zap.String("total", total.String()),
		zap.Error(err),
	)
}

// record deja la marca de completitud en el journal. Una operación que agotó
// reintentos no se marca: un replay posterior corre la operación entera de
// nuevo.
func (m *Mint) record(ctx context.Context, key string, total amount.Amount) {
	if m.journal == nil {
		return
	}
	if err := m.journal.Set(ctx, key, total.String(), m.journalTTL); err != nil {
		m.log.Warn("journal write failed", zap.String("op_id", key), zap.Error(err))
	}
}
