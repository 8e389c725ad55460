package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/escrowcore/internal/engine"
)

type handlers struct {
	inst *engine.Instance
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// readyz reporta no-listo cuando la instancia ya cayó (fail-stop).
func (h *handlers) readyz(w http.ResponseWriter, _ *http.Request) {
	if done, reason := h.inst.Terminated(); done {
		msg := "instance terminated"
		if reason != nil {
			msg = reason.Error()
		}
		writeError(w, http.StatusServiceUnavailable, msg)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// GET /v1/seats
func (h *handlers) listSeats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"seats": h.inst.SeatIDs()})
}

// GET /v1/seats/{seatID}
func (h *handlers) getSeat(w http.ResponseWriter, r *http.Request) {
	seatID := chi.URLParam(r, "seatID")
	snap, err := h.inst.SeatSnapshot(seatID)
	if err != nil {
		if errors.Is(err, engine.ErrUnknownSeat) {
			writeError(w, http.StatusNotFound, "seat not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, snap)
}
