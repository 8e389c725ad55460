package engine

import (
	"errors"
	"fmt"

	"github.com/dropDatabas3/escrowcore/internal/alloc"
)

// Errores de validación de un rearrangement. Todos se detectan antes del
// punto de commit y dejan los seats intactos.
var (
	// ErrMalformedTransfer indica un transfer part con forma inválida.
	ErrMalformedTransfer = errors.New("malformed transfer part")

	// ErrTooFewSeats indica un batch que referencia menos de dos seats
	// distintos. Un rearrangement mueve valor entre partes, no reescribe
	// los holdings de una sola.
	ErrTooFewSeats = errors.New("rearrangement references fewer than two seats")

	// ErrUnknownSeat indica un seat ID que la instancia no conoce.
	ErrUnknownSeat = errors.New("unknown seat")

	// ErrInactiveSeat indica un seat referenciado que ya no está Active.
	ErrInactiveSeat = errors.New("seat not active in rearrangement")

	// ErrOfferSafetyViolation indica un seat cuya allocation propuesta
	// dejaría de satisfacer su proposal.
	ErrOfferSafetyViolation = errors.New("offer safety violated")

	// ErrExitNotAllowed indica un intento de salida unilateral contra una
	// exit rule que no lo permite.
	ErrExitNotAllowed = errors.New("exit not allowed by exit rule")

	// ErrInstanceTerminated indica una instancia ya terminada (fail-stop).
	ErrInstanceTerminated = errors.New("instance terminated")

	// ErrInstanceShutDown es el motivo de terminación de un cierre ordenado.
	ErrInstanceShutDown = errors.New("instance shutting down")
)

// TransferPart is one step of a rearrangement: value leaving FromSeat and
// value arriving at ToSeat. Either seat may be absent, but not both; a
// present FromSeat requires FromAmounts, and a present ToSeat with no
// explicit ToAmounts reuses FromAmounts.
type TransferPart struct {
	FromSeat    string
	ToSeat      string
	FromAmounts alloc.Allocation
	ToAmounts   alloc.Allocation
}

// Move builds the common part: the same amounts leave one seat and arrive at
// another.
func Move(fromSeat, toSeat string, amounts alloc.Allocation) TransferPart {
	return TransferPart{FromSeat: fromSeat, ToSeat: toSeat, FromAmounts: amounts}
}

// FromOnly builds a part that only drains a seat.
func FromOnly(fromSeat string, amounts alloc.Allocation) TransferPart {
	return TransferPart{FromSeat: fromSeat, FromAmounts: amounts}
}

// ToOnly builds a part that only credits a seat.
func ToOnly(toSeat string, amounts alloc.Allocation) TransferPart {
	return TransferPart{ToSeat: toSeat, ToAmounts: amounts}
}

// normalize validates a part's shape and fills in the ToAmounts shorthand.
// The index is only used to name the part in errors.
func (p TransferPart) normalize(idx int) (TransferPart, error) {
	if p.FromSeat == "" && p.ToSeat == "" {
		return p, fmt.Errorf("part %d: no seat referenced: %w", idx, ErrMalformedTransfer)
	}
	if p.FromSeat == "" && len(p.FromAmounts) > 0 {
		return p, fmt.Errorf("part %d: fromAmounts without fromSeat: %w", idx, ErrMalformedTransfer)
	}
	if p.FromSeat != "" && len(p.FromAmounts) == 0 {
		return p, fmt.Errorf("part %d: fromSeat without fromAmounts: %w", idx, ErrMalformedTransfer)
	}
	if p.ToSeat == "" && len(p.ToAmounts) > 0 {
		return p, fmt.Errorf("part %d: toAmounts without toSeat: %w", idx, ErrMalformedTransfer)
	}
	if p.ToSeat != "" && len(p.ToAmounts) == 0 {
		if len(p.FromAmounts) == 0 {
			return p, fmt.Errorf("part %d: toSeat with no amounts on either side: %w", idx, ErrMalformedTransfer)
		}
		p.ToAmounts = p.FromAmounts
	}
	return p, nil
}
