// Package stats mirrors a user's coin and streak counters for display.
package stats

import (
	"context"
	"sync"

	"deepfake_shield/internal/domain"
)

// UserReader is the slice of the store the cache reads from.
type UserReader interface {
	GetUserByID(ctx context.Context, id uint) (domain.User, error)
}

// Stats are the counters shown in the header.
type Stats struct {
	Coins  int `json:"coins"`
	Streak int `json:"streak"`
}

// Cache holds the latest counters for one user. Refresh is always explicit.
type Cache struct {
	reader UserReader
	userID uint

	mu      sync.RWMutex
	current Stats
	loaded  bool
	nextID  int
	subs    map[int]func(Stats)
}

// New returns a cache for userID with zero counters until the first Refresh.
func New(reader UserReader, userID uint) *Cache {
	return &Cache{reader: reader, userID: userID, subs: make(map[int]func(Stats))}
}

// UserID returns the user the cache mirrors.
func (c *Cache) UserID() uint {
	return c.userID
}

// Refresh re-reads the user row and republishes the counters. On error the
// previous value is kept.
func (c *Cache) Refresh(ctx context.Context) (Stats, error) {
	u, err := c.reader.GetUserByID(ctx, c.userID)
	if err != nil {
		return c.Current(), err
	}
	s := Stats{Coins: u.Coins, Streak: u.Streak}

	c.mu.Lock()
	c.current = s
	c.loaded = true
	subs := make([]func(Stats), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.mu.Unlock()

	for _, fn := range subs {
		fn(s)
	}
	return s, nil
}

// Load returns the cached counters, refreshing first if the cache has never
// been filled.
func (c *Cache) Load(ctx context.Context) (Stats, error) {
	c.mu.RLock()
	s, loaded := c.current, c.loaded
	c.mu.RUnlock()
	if loaded {
		return s, nil
	}
	return c.Refresh(ctx)
}

// Current returns the latest refreshed counters.
func (c *Cache) Current() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// Subscribe calls fn after every successful Refresh until cancel is called.
func (c *Cache) Subscribe(fn func(Stats)) (cancel func()) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.subs[id] = fn
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, id)
			c.mu.Unlock()
		})
	}
}
