// Package seatstore persiste snapshots de seats para poder restaurar una
// instancia después de un reinicio. Tres backends: memoria (testing), fs
// (JSON por seat, escritura atómica) y postgres (jsonb).
package seatstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/dropDatabas3/escrowcore/internal/seat"
)

// ErrNotFound indica que no hay snapshot para ese seat ID.
var ErrNotFound = errors.New("seatstore: snapshot not found")

// Store es el boundary de persistencia de snapshots.
type Store interface {
	// Save guarda (o reemplaza) el snapshot de un seat.
	Save(ctx context.Context, snap seat.Snapshot) error

	// Load carga el snapshot de un seat. ErrNotFound si no existe.
	Load(ctx context.Context, seatID string) (seat.Snapshot, error)

	// List carga todos los snapshots guardados.
	List(ctx context.Context) ([]seat.Snapshot, error)

	// Delete elimina el snapshot de un seat. No falla si no existe.
	Delete(ctx context.Context, seatID string) error

	// Close libera recursos del backend.
	Close() error
}

// Config selecciona e inicializa un backend.
type Config struct {
	Driver string // "memory" | "fs" | "postgres"
	Root   string // fs: directorio raíz
	DSN    string // postgres: connection string
}

// New crea un Store según la configuración.
func New(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case "", "memory":
		return NewMemory(), nil
	case "fs":
		return NewFS(cfg.Root)
	case "postgres":
		return NewPG(ctx, cfg.DSN)
	}
	return nil, fmt.Errorf("seatstore: unknown driver %q", cfg.Driver)
}
