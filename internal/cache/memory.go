package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Memory es el backend in-process.
type Memory struct {
	c      *gocache.Cache
	prefix string
}

// NewMemory crea un cache en memoria.
func NewMemory(prefix string) *Memory {
	return &Memory{c: gocache.New(gocache.NoExpiration, time.Minute), prefix: prefix}
}

func (m *Memory) key(k string) string { return m.prefix + k }

// Get implements Client.
func (m *Memory) Get(ctx context.Context, key string) (string, error) {
	v, ok := m.c.Get(m.key(key))
	if !ok {
		return "", ErrNotFound
	}
	s, _ := v.(string)
	return s, nil
}

// Set implements Client.
func (m *Memory) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	m.c.Set(m.key(key), value, ttl)
	return nil
}

// Delete implements Client.
func (m *Memory) Delete(ctx context.Context, key string) error {
	m.c.Delete(m.key(key))
	return nil
}

// Ping implements Client.
func (m *Memory) Ping(ctx context.Context) error { return nil }

// Close implements Client.
func (m *Memory) Close() error { return nil }
