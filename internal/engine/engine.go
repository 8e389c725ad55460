// Package engine implementa el motor de rearrangement: valida un batch de
// transfers contra conservación de derechos y offer safety, y lo commitea de
// forma atómica sobre los seats de una instancia. Es el único dueño de los
// seats Activos; el resto del sistema los referencia por ID.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dropDatabas3/escrowcore/internal/alloc"
	"github.com/dropDatabas3/escrowcore/internal/amount"
	"github.com/dropDatabas3/escrowcore/internal/ledger"
	"github.com/dropDatabas3/escrowcore/internal/metrics"
	"github.com/dropDatabas3/escrowcore/internal/observability/logger"
	"github.com/dropDatabas3/escrowcore/internal/payout"
	"github.com/dropDatabas3/escrowcore/internal/proposal"
	"github.com/dropDatabas3/escrowcore/internal/rights"
	"github.com/dropDatabas3/escrowcore/internal/seat"
	"github.com/dropDatabas3/escrowcore/internal/seatstore"
	"github.com/dropDatabas3/escrowcore/internal/timer"
)

// notifyTimeout acota la notificación post-commit al ledger.
const notifyTimeout = 30 * time.Second

// Options configura una instancia del engine. Registry, Ledger y Escrow son
// obligatorios; Store default memoria, Timer default reloj de pared.
type Options struct {
	Registry *amount.Registry
	Ledger   ledger.Notifier
	Escrow   payout.Escrow
	Store    seatstore.Store
	Timer    timer.Authority
	Logger   *zap.Logger
}

// Instance es una instancia viva del clearing core. Toda mutación de seats
// pasa por su mutex: el modelo es el de un solo turno a la vez, la ventana
// validate-then-commit nunca se suspende.
type Instance struct {
	mu       sync.Mutex
	registry *amount.Registry
	arena    *seat.Arena
	ledger   ledger.Notifier
	escrow   payout.Escrow
	store    seatstore.Store
	auth     timer.Authority
	log      *zap.Logger

	terminated bool
	termReason error

	notifyWG sync.WaitGroup
}

// New crea una instancia vacía.
func New(opts Options) (*Instance, error) {
	if opts.Registry == nil {
		return nil, fmt.Errorf("engine: nil registry")
	}
	if opts.Ledger == nil {
		return nil, fmt.Errorf("engine: nil ledger notifier")
	}
	if opts.Escrow == nil {
		return nil, fmt.Errorf("engine: nil escrow boundary")
	}
	if opts.Store == nil {
		opts.Store = seatstore.NewMemory()
	}
	if opts.Timer == nil {
		opts.Timer = timer.Clock{}
	}
	if opts.Logger == nil {
		opts.Logger = logger.Named("engine")
	}
	return &Instance{
		registry: opts.Registry,
		arena:    seat.NewArena(),
		ledger:   opts.Ledger,
		escrow:   opts.Escrow,
		store:    opts.Store,
		auth:     opts.Timer,
		log:      opts.Logger,
	}, nil
}

// OpenSeat deposita el give de una proposal y crea el seat Activo que lo
// custodia. La allocation inicial es el give más una entrada vacía por cada
// keyword del want. Retorna el ID opaco del seat.
func (e *Instance) OpenSeat(ctx context.Context, p proposal.Proposal) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.terminated {
		return "", e.terminatedErr()
	}

	initial := make(alloc.Allocation)
	for kw, amt := range p.Give() {
		initial[kw] = amt
	}
	for kw, amt := range p.Want() {
		if _, ok := initial[kw]; !ok {
			initial[kw] = amount.MakeEmpty(amt.Brand())
		}
	}

	id := uuid.NewString()
	if err := e.escrow.Deposit(ctx, id, initial); err != nil {
		return "", fmt.Errorf("open seat: deposit: %w", err)
	}

	s := seat.New(id, p, initial)
	e.arena.Add(s)
	if err := e.store.Save(ctx, s.Snapshot()); err != nil {
		e.log.Warn("seat snapshot save failed", zap.String("seat_id", id), zap.Error(err))
	}
	metrics.ActiveSeats.Inc()

	e.armDeadline(s)

	e.log.Info("seat opened",
		zap.String("seat_id", id),
		zap.String("exit", p.Exit().Kind.String()),
	)
	return id, nil
}

// OpenEmptySeat crea un seat Activo sin give ni want. Lo usan contratos que
// acumulan valor de a poco (fees, premios minteados) antes de pagarlo.
func (e *Instance) OpenEmptySeat(ctx context.Context) (string, error) {
	p, err := proposal.Build(proposal.Raw{})
	if err != nil {
		return "", err
	}
	return e.OpenSeat(ctx, p)
}

// armDeadline suscribe el auto-exit de un seat AfterDeadline. El wakeup
// dispara un exit normal; si el seat ya terminó por otra vía, el exit es un
// no-op idempotente.
func (e *Instance) armDeadline(s *seat.Seat) {
	rule := s.Proposal().Exit()
	if rule.Kind != proposal.ExitAfterDeadline {
		return
	}
	auth := rule.Timer
	if auth == nil {
		auth = e.auth
	}
	ch := auth.Wake(rule.Deadline)
	id := s.ID()
	go func() {
		<-ch
		if err := e.ExitSeat(context.Background(), id); err != nil {
			e.log.Debug("deadline exit skipped", zap.String("seat_id", id), zap.Error(err))
		}
	}()
}

// CurrentAllocation retorna la allocation actual de un seat Activo.
func (e *Instance) CurrentAllocation(seatID string) (alloc.Allocation, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.arena.Get(seatID)
	if !ok {
		return nil, fmt.Errorf("seat %s: %w", seatID, ErrUnknownSeat)
	}
	return s.CurrentAllocation()
}

// SeatSnapshot retorna el snapshot actual de un seat, en cualquier estado.
// Es la superficie de consulta que expone el server HTTP.
func (e *Instance) SeatSnapshot(seatID string) (seat.Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.arena.Get(seatID)
	if !ok {
		return seat.Snapshot{}, fmt.Errorf("seat %s: %w", seatID, ErrUnknownSeat)
	}
	return s.Snapshot(), nil
}

// SeatIDs retorna todos los seat IDs de la instancia, ordenados.
func (e *Instance) SeatIDs() []string {
	return e.arena.IDs()
}

// TryExit es la salida unilateral del participante, sujeta a su exit rule:
// OnDemand sale siempre, Waived nunca, AfterDeadline solo cuando el plazo ya
// venció según la autoridad de tiempo (el watcher lo hace solo, esto cubre
// el pedido explícito).
func (e *Instance) TryExit(ctx context.Context, seatID string) error {
	e.mu.Lock()
	s, ok := e.arena.Get(seatID)
	if !ok {
		e.mu.Unlock()
		return fmt.Errorf("seat %s: %w", seatID, ErrUnknownSeat)
	}
	rule := s.Proposal().Exit()
	var err error
	switch rule.Kind {
	case proposal.ExitOnDemand:
		// permitido
	case proposal.ExitWaived:
		err = fmt.Errorf("seat %s waived early exit: %w", seatID, ErrExitNotAllowed)
	case proposal.ExitAfterDeadline:
		// Consulta puntual, sin suscribir: el watcher de armDeadline ya
		// tiene la única suscripción viva del seat.
		if rule.Deadline.After(rule.Timer.Now()) {
			err = fmt.Errorf("seat %s deadline not reached: %w", seatID, ErrExitNotAllowed)
		}
	}
	if err != nil {
		e.mu.Unlock()
		return err
	}
	return e.terminateSeatLocked(ctx, s, nil)
}

// ExitSeat es la salida dirigida por la lógica del contrato, sin restricción
// de exit rule.
func (e *Instance) ExitSeat(ctx context.Context, seatID string) error {
	e.mu.Lock()
	s, ok := e.arena.Get(seatID)
	if !ok {
		e.mu.Unlock()
		return fmt.Errorf("seat %s: %w", seatID, ErrUnknownSeat)
	}
	return e.terminateSeatLocked(ctx, s, nil)
}

// FailSeat mueve un seat a Failed con el motivo dado. El payout ocurre igual
// con lo que el seat tuviera.
func (e *Instance) FailSeat(ctx context.Context, seatID string, reason error) error {
	e.mu.Lock()
	s, ok := e.arena.Get(seatID)
	if !ok {
		e.mu.Unlock()
		return fmt.Errorf("seat %s: %w", seatID, ErrUnknownSeat)
	}
	if reason == nil {
		reason = fmt.Errorf("seat failed")
	}
	return e.terminateSeatLocked(ctx, s, reason)
}

// terminateSeatLocked termina un seat y entrega su payout. Entra con e.mu
// tomado y lo libera antes de tocar el escrow boundary. La terminación
// repetida es un no-op silencioso.
func (e *Instance) terminateSeatLocked(ctx context.Context, s *seat.Seat, reason error) error {
	var (
		pay alloc.Allocation
		ok  bool
	)
	if reason == nil {
		pay, ok = s.Exit()
	} else {
		pay, ok = s.Fail(reason)
	}
	if !ok {
		e.mu.Unlock()
		return nil
	}
	if err := e.store.Save(ctx, s.Snapshot()); err != nil {
		e.log.Warn("seat snapshot save failed", zap.String("seat_id", s.ID()), zap.Error(err))
	}
	metrics.ActiveSeats.Dec()
	e.mu.Unlock()

	if err := e.escrow.Withdraw(ctx, s.ID(), pay); err != nil {
		e.log.Error("payout withdrawal failed",
			zap.String("seat_id", s.ID()),
			zap.Error(err),
		)
		return fmt.Errorf("seat %s payout: %w", s.ID(), err)
	}
	metrics.PayoutsTotal.Inc()
	e.log.Info("seat terminated",
		zap.String("seat_id", s.ID()),
		zap.String("state", s.State().String()),
	)
	return nil
}

// Rearrange valida y commitea un batch de transfer parts de forma atómica.
// Cualquier falla de validación deja todos los seats exactamente como
// estaban; pasado el punto de commit, todas las allocations nuevas quedan
// escritas en un solo paso ininterrumpible y la notificación al ledger sale
// en segundo plano.
func (e *Instance) Rearrange(ctx context.Context, parts []TransferPart) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.terminated {
		return e.terminatedErr()
	}
	start := time.Now()

	// Paso 1: forma de cada part.
	norm := make([]TransferPart, len(parts))
	for i, p := range parts {
		np, err := p.normalize(i)
		if err != nil {
			metrics.RearrangementsRejected.WithLabelValues("malformed").Inc()
			return err
		}
		norm[i] = np
	}

	// Paso 2: seats distintos referenciados, en orden de aparición.
	var order []string
	seen := make(map[string]bool)
	for _, p := range norm {
		for _, id := range []string{p.FromSeat, p.ToSeat} {
			if id != "" && !seen[id] {
				seen[id] = true
				order = append(order, id)
			}
		}
	}
	if len(order) < 2 {
		metrics.RearrangementsRejected.WithLabelValues("too_few_seats").Inc()
		return fmt.Errorf("%d seat(s) referenced: %w", len(order), ErrTooFewSeats)
	}

	// Paso 3: resolución y chequeo de estado.
	seats := make(map[string]*seat.Seat, len(order))
	for _, id := range order {
		s, ok := e.arena.Get(id)
		if !ok {
			metrics.RearrangementsRejected.WithLabelValues("unknown_seat").Inc()
			return fmt.Errorf("seat %s: %w", id, ErrUnknownSeat)
		}
		if s.State() != seat.Active {
			metrics.RearrangementsRejected.WithLabelValues("inactive_seat").Inc()
			return fmt.Errorf("seat %s is %s: %w", id, s.State(), ErrInactiveSeat)
		}
		seats[id] = s
	}

	// Paso 4: allocations propuestas sobre snapshots consistentes.
	proposed := make(map[string]alloc.Allocation, len(order))
	for _, id := range order {
		proposed[id] = seats[id].PeekAllocation()
	}
	for i, p := range norm {
		if p.FromSeat != "" {
			next, err := alloc.Subtract(proposed[p.FromSeat], p.FromAmounts)
			if err != nil {
				metrics.RearrangementsRejected.WithLabelValues("insufficient").Inc()
				return fmt.Errorf("part %d from seat %s: %w", i, p.FromSeat, err)
			}
			proposed[p.FromSeat] = next
		}
		if p.ToSeat != "" {
			next, err := alloc.Add(proposed[p.ToSeat], p.ToAmounts)
			if err != nil {
				metrics.RearrangementsRejected.WithLabelValues("brand_mismatch").Inc()
				return fmt.Errorf("part %d to seat %s: %w", i, p.ToSeat, err)
			}
			proposed[p.ToSeat] = next
		}
	}

	// Paso 5: conservación de derechos sobre el batch aplanado.
	var froms, tos []alloc.Allocation
	for _, p := range norm {
		if p.FromSeat != "" {
			froms = append(froms, p.FromAmounts)
		}
		if p.ToSeat != "" {
			tos = append(tos, p.ToAmounts)
		}
	}
	if err := rights.AssertConserved(alloc.Flatten(froms...), alloc.Flatten(tos...)); err != nil {
		metrics.RearrangementsRejected.WithLabelValues("conservation").Inc()
		return err
	}

	// Paso 6: offer safety por seat sobre la allocation propuesta.
	for _, id := range order {
		ok, err := rights.IsOfferSafe(seats[id].Proposal(), proposed[id])
		if err != nil {
			metrics.RearrangementsRejected.WithLabelValues("brand_mismatch").Inc()
			return fmt.Errorf("seat %s: %w", id, err)
		}
		if !ok {
			metrics.RearrangementsRejected.WithLabelValues("offer_safety").Inc()
			return fmt.Errorf("seat %s: %w", id, ErrOfferSafetyViolation)
		}
	}

	// Paso 7: punto de commit. De acá en adelante no hay vuelta atrás.
	for _, id := range order {
		seats[id].Commit(proposed[id])
	}
	for _, id := range order {
		if err := e.store.Save(ctx, seats[id].Snapshot()); err != nil {
			e.log.Warn("seat snapshot save failed", zap.String("seat_id", id), zap.Error(err))
		}
	}
	metrics.RearrangementsCommitted.Inc()
	metrics.RearrangementParts.Observe(float64(len(parts)))
	metrics.CommitLatency.Observe(float64(time.Since(start).Microseconds()))

	// Paso 8: notificación al ledger, fire-and-forget. Si falla, la
	// instancia entera cae: estado local y downstream no pueden divergir.
	updates := make([]ledger.SeatAllocation, 0, len(order))
	for _, id := range order {
		updates = append(updates, ledger.SeatAllocation{
			SeatID:     id,
			Allocation: recordAllocation(proposed[id]),
		})
	}
	e.notifyWG.Add(1)
	go e.notify(updates)

	e.log.Debug("rearrangement committed",
		zap.Int("parts", len(parts)),
		zap.Int("seats", len(order)),
	)
	return nil
}

func recordAllocation(a alloc.Allocation) map[string]amount.Record {
	out := make(map[string]amount.Record, len(a))
	for kw, amt := range a {
		out[kw] = amt.Record()
	}
	return out
}

func (e *Instance) notify(updates []ledger.SeatAllocation) {
	defer e.notifyWG.Done()
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()
	if err := e.ledger.ReplaceAllocations(ctx, updates); err != nil {
		metrics.NotifyFailures.Inc()
		e.log.Error("ledger notification failed, terminating instance", zap.Error(err))
		e.Terminate(context.Background(), fmt.Errorf("ledger notification failed: %w", err))
	}
}

// Shutdown cierra la instancia de forma ordenada: marca el drenaje bajo el
// mutex (ninguna operación nueva puede colarse detrás del barrido), sale
// todo seat Activo con payout y espera las notificaciones pendientes.
func (e *Instance) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	if !e.terminated {
		e.terminated = true
		e.termReason = ErrInstanceShutDown
	}
	active := e.arena.Active()
	e.mu.Unlock()

	var firstErr error
	for _, s := range active {
		if err := e.ExitSeat(ctx, s.ID()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	e.notifyWG.Wait()
	e.log.Info("instance shut down", zap.Int("seats", e.arena.Len()))
	return firstErr
}

// Terminate es el fail-stop de la instancia: todo seat Activo pasa a Failed
// con el motivo dado y cobra su última allocation conocida. Después de esto
// ninguna operación nueva es aceptada. Idempotente.
func (e *Instance) Terminate(ctx context.Context, reason error) {
	e.mu.Lock()
	if e.terminated {
		e.mu.Unlock()
		return
	}
	e.terminated = true
	e.termReason = reason
	active := e.arena.Active()
	e.mu.Unlock()

	e.log.Error("instance terminating", zap.Error(reason), zap.Int("active_seats", len(active)))
	for _, s := range active {
		e.mu.Lock()
		if err := e.terminateSeatLocked(ctx, s, reason); err != nil {
			e.log.Error("payout during termination failed",
				zap.String("seat_id", s.ID()),
				zap.Error(err),
			)
		}
	}
}

// Terminated reporta si la instancia cayó y con qué motivo.
func (e *Instance) Terminated() (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.terminated, e.termReason
}

func (e *Instance) terminatedErr() error {
	if e.termReason != nil {
		return fmt.Errorf("%w: %v", ErrInstanceTerminated, e.termReason)
	}
	return ErrInstanceTerminated
}

// Restore recarga los seats persistidos en el store y rearma los watchers de
// deadline de los que siguen Activos. Se llama una vez, antes de aceptar
// operaciones.
func (e *Instance) Restore(ctx context.Context) error {
	snaps, err := e.store.List(ctx)
	if err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, snap := range snaps {
		s, err := seat.FromSnapshot(e.registry, e.auth, snap)
		if err != nil {
			return fmt.Errorf("restore: %w", err)
		}
		e.arena.Add(s)
		if s.State() == seat.Active {
			metrics.ActiveSeats.Inc()
			e.armDeadline(s)
		}
	}
	e.log.Info("instance restored", zap.Int("seats", len(snaps)))
	return nil
}
