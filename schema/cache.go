package schema

import (
	"context"
	"sync"
)

// Loader fetches the raw schema document of a database.
type Loader func(ctx context.Context, db string) ([]byte, error)

// Cache holds parsed schemas keyed by database name. It is read-mostly:
// many concurrent readers, a single writer on schema re-import. Entries are
// dropped only through Invalidate.
type Cache struct {
	load Loader

	mu   sync.RWMutex
	byDB map[string]Schema
}

// NewCache builds a cache backed by the given loader.
func NewCache(load Loader) *Cache {
	return &Cache{load: load, byDB: make(map[string]Schema)}
}

// Get returns the parsed schema of db, loading and parsing it on a miss.
func (c *Cache) Get(ctx context.Context, db string) (Schema, error) {
	c.mu.RLock()
	s, ok := c.byDB[db]
	c.mu.RUnlock()
	if ok {
		return s, nil
	}

	raw, err := c.load(ctx, db)
	if err != nil {
		return nil, err
	}
	s, err = Parse(raw)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// A racing loader may have won; keep the first entry so readers see a
	// single parse of the same document.
	if prev, ok := c.byDB[db]; ok {
		return prev, nil
	}
	c.byDB[db] = s
	return s, nil
}

// Invalidate drops the cached schema of db. Called on schema re-import.
func (c *Cache) Invalidate(db string) {
	c.mu.Lock()
	delete(c.byDB, db)
	c.mu.Unlock()
}
