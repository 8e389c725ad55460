package seatstore

import (
	"context"
	"errors"
	"testing"

	"github.com/dropDatabas3/escrowcore/internal/amount"
	"github.com/dropDatabas3/escrowcore/internal/proposal"
	"github.com/dropDatabas3/escrowcore/internal/seat"
)

func sampleSnapshot(t *testing.T, id string) seat.Snapshot {
	t.Helper()
	reg := amount.NewRegistry()
	moola, err := reg.NewBrand("moola", amount.KindNat)
	if err != nil {
		t.Fatalf("NewBrand: %v", err)
	}
	p, err := proposal.Build(proposal.Raw{
		Give: map[string]amount.Amount{"Price": amount.MustNat(moola, 7)},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	s := seat.New(id, p, map[string]amount.Amount{"Price": amount.MustNat(moola, 7)})
	return s.Snapshot()
}

func testStore(t *testing.T, st Store) {
	t.Helper()
	ctx := context.Background()

	if _, err := st.Load(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Load missing = %v, want ErrNotFound", err)
	}

	snap := sampleSnapshot(t, "seat-a")
	if err := st.Save(ctx, snap); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := st.Load(ctx, "seat-a")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.ID != "seat-a" || got.State != "active" {
		t.Fatalf("Load = %+v", got)
	}
	if got.Allocation["Price"].Nat != 7 {
		t.Fatalf("Allocation Price = %+v, want nat 7", got.Allocation["Price"])
	}

	// Save vuelve a escribir el mismo seat, no duplica.
	if err := st.Save(ctx, snap); err != nil {
		t.Fatalf("Save again: %v", err)
	}
	if err := st.Save(ctx, sampleSnapshot(t, "seat-b")); err != nil {
		t.Fatalf("Save seat-b: %v", err)
	}

	all, err := st.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("List = %d snapshots, want 2", len(all))
	}
	if all[0].ID != "seat-a" || all[1].ID != "seat-b" {
		t.Fatalf("List order = %s, %s", all[0].ID, all[1].ID)
	}

	if err := st.Delete(ctx, "seat-a"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := st.Load(ctx, "seat-a"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Load after delete = %v, want ErrNotFound", err)
	}
	if err := st.Delete(ctx, "seat-a"); err != nil {
		t.Fatalf("Delete again should be a no-op, got %v", err)
	}
}

func TestMemoryStore(t *testing.T) {
	testStore(t, NewMemory())
}

func TestFSStore(t *testing.T) {
	st, err := NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	testStore(t, st)
}

func TestNewUnknownDriver(t *testing.T) {
	if _, err := New(context.Background(), Config{Driver: "oracle"}); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}
