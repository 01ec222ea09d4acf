package cache

import (
	"context"

	gocache "github.com/patrickmn/go-cache"

	"gold-rate/internal/rates"
)

// MemoryStore keeps everything in process; used for tests and --cache memory.
// Payloads are stored as decoded values: they are immutable once received.
type MemoryStore struct {
	c *gocache.Cache
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{c: gocache.New(gocache.NoExpiration, 0)}
}

func (m *MemoryStore) Get(_ context.Context, location string) (*rates.PricePayload, error) {
	v, ok := m.c.Get(Key(location))
	if !ok {
		return nil, nil
	}
	return v.(*rates.PricePayload), nil
}

func (m *MemoryStore) Put(_ context.Context, p *rates.PricePayload) error {
	m.c.Set(Key(p.Location), p, gocache.NoExpiration)
	return nil
}

func (m *MemoryStore) Meta(_ context.Context, key string) (string, error) {
	v, ok := m.c.Get("meta:" + key)
	if !ok {
		return "", nil
	}
	return v.(string), nil
}

func (m *MemoryStore) SetMeta(_ context.Context, key, value string) error {
	m.c.Set("meta:"+key, value, gocache.NoExpiration)
	return nil
}

func (m *MemoryStore) Close() error {
	m.c.Flush()
	return nil
}
