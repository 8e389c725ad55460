package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemoryGetSetDelete(t *testing.T) {
	ctx := context.Background()
	c := NewMemory("test:")

	if _, err := c.Get(ctx, "missing"); !IsNotFound(err) {
		t.Fatalf("get missing: %v, want ErrNotFound", err)
	}

	if err := c.Set(ctx, "op-1", "done", time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	v, err := c.Get(ctx, "op-1")
	if err != nil || v != "done" {
		t.Fatalf("get: %q %v", v, err)
	}

	if err := c.Delete(ctx, "op-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := c.Get(ctx, "op-1"); !IsNotFound(err) {
		t.Fatalf("get deleted: %v, want ErrNotFound", err)
	}
}

func TestNewDefaultsToMemory(t *testing.T) {
	c, err := New(Config{})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, ok := c.(*Memory); !ok {
		t.Fatalf("default backend = %T, want *Memory", c)
	}
}
