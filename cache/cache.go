// Package cache stores resolved sessions keyed by a digest of the session
// token so repeated requests skip the user lookup.
package cache

import (
	"context"
	"time"
)

// Entry is the cached identity of a resolved session
type Entry struct {
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name,omitempty"`
	Role      string `json:"role"`
}

// Store is implemented by Memory and Redis
type Store interface {
	Get(ctx context.Context, key string) (*Entry, bool)
	Set(ctx context.Context, key string, entry Entry) error
	Delete(ctx context.Context, key string) error
}

// DefaultTTL is used when a store is created with a non positive TTL
const DefaultTTL = 5 * time.Minute

// Nop never hits, used when caching is disabled
type Nop struct{}

func (Nop) Get(context.Context, string) (*Entry, bool) { return nil, false }
func (Nop) Set(context.Context, string, Entry) error   { return nil }
func (Nop) Delete(context.Context, string) error       { return nil }

var (
	_ Store = Nop{}
	_ Store = (*Memory)(nil)
	_ Store = (*Redis)(nil)
)
