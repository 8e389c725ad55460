package seatstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dropDatabas3/escrowcore/internal/seat"
	"github.com/dropDatabas3/escrowcore/internal/util/atomicwrite"
)

// FS guarda un archivo JSON por seat bajo root/seats/. Las escrituras son
// atómicas, así un crash a mitad de Save nunca deja un snapshot corrupto.
type FS struct {
	root string
}

// NewFS crea (si hace falta) el directorio raíz y retorna el store.
func NewFS(root string) (*FS, error) {
	if root == "" {
		root = "data"
	}
	dir := filepath.Join(root, "seats")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("seatstore fs: mkdir %s: %w", dir, err)
	}
	return &FS{root: root}, nil
}

func (f *FS) path(seatID string) string {
	return filepath.Join(f.root, "seats", seatID+".json")
}

func (f *FS) Save(ctx context.Context, snap seat.Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("seatstore fs: marshal %s: %w", snap.ID, err)
	}
	if err := atomicwrite.AtomicWriteFile(f.path(snap.ID), data, 0644); err != nil {
		return fmt.Errorf("seatstore fs: write %s: %w", snap.ID, err)
	}
	return nil
}

func (f *FS) Load(ctx context.Context, seatID string) (seat.Snapshot, error) {
	data, err := os.ReadFile(f.path(seatID))
	if err != nil {
		if os.IsNotExist(err) {
			return seat.Snapshot{}, ErrNotFound
		}
		return seat.Snapshot{}, fmt.Errorf("seatstore fs: read %s: %w", seatID, err)
	}
	var snap seat.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return seat.Snapshot{}, fmt.Errorf("seatstore fs: decode %s: %w", seatID, err)
	}
	return snap, nil
}

func (f *FS) List(ctx context.Context) ([]seat.Snapshot, error) {
	dir := filepath.Join(f.root, "seats")
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("seatstore fs: readdir: %w", err)
	}
	var out []seat.Snapshot
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		snap, err := f.Load(ctx, strings.TrimSuffix(name, ".json"))
		if err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	return out, nil
}

func (f *FS) Delete(ctx context.Context, seatID string) error {
	err := os.Remove(f.path(seatID))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("seatstore fs: delete %s: %w", seatID, err)
	}
	return nil
}

func (f *FS) Close() error { return nil }
