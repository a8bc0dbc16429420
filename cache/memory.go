package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// DefaultSize caps the memory store when created with a non positive size
const DefaultSize = 10_000

// Memory is a thread-safe in-process LRU with a TTL per entry
type Memory struct {
	lru  *expirable.LRU[string, Entry]
	ttl  time.Duration
	size int
}

// NewMemory creates a memory store holding up to size entries for ttl.
// The least recently used entry is evicted once the store is full.
func NewMemory(ttl time.Duration, size int) *Memory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if size <= 0 {
		size = DefaultSize
	}
	return &Memory{
		lru:  expirable.NewLRU[string, Entry](size, nil, ttl),
		ttl:  ttl,
		size: size,
	}
}

// Get retrieves a copy of the cached entry
func (c *Memory) Get(_ context.Context, key string) (*Entry, bool) {
	entry, ok := c.lru.Get(key)
	if !ok {
		return nil, false
	}
	return &entry, true
}

// Set stores entry under key
func (c *Memory) Set(_ context.Context, key string, entry Entry) error {
	c.lru.Add(key, entry)
	return nil
}

// Delete evicts key
func (c *Memory) Delete(_ context.Context, key string) error {
	c.lru.Remove(key)
	return nil
}

// Len returns the number of stored entries
func (c *Memory) Len() int {
	return c.lru.Len()
}

// Close drops every entry
func (c *Memory) Close() error {
	c.lru.Purge()
	return nil
}
