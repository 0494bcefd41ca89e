package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"
)

type memoryEntry struct {
	body    []byte
	expires time.Time
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expires.IsZero() && e.expires.Before(now)
}

// Memory is an in-process Cache used by tests and the one-shot CLI
// commands when no redis instance is configured.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

func NewMemory() *Memory {
	return &Memory{entries: map[string]memoryEntry{}}
}

func (c *Memory) Has(_ context.Context, key string) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, found := c.entries[key]

	return found && !entry.expired(time.Now()), nil
}

func (c *Memory) Get(_ context.Context, key string, dest any) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, found := c.entries[key]
	if !found || entry.expired(time.Now()) {
		return ErrMiss
	}

	if errDecode := json.Unmarshal(entry.body, dest); errDecode != nil {
		return errors.Join(errDecode, ErrDecode)
	}

	return nil
}

func (c *Memory) Put(_ context.Context, key string, value any, ttl time.Duration) error {
	body, errEncode := json.Marshal(value)
	if errEncode != nil {
		return errors.Join(errEncode, ErrEncode)
	}

	var expires time.Time
	if ttl > 0 {
		expires = time.Now().Add(ttl)
	}

	c.mu.Lock()
	c.entries[key] = memoryEntry{body: body, expires: expires}
	c.mu.Unlock()

	return nil
}

func (c *Memory) Forever(ctx context.Context, key string, value any) error {
	return c.Put(ctx, key, value, 0)
}

func (c *Memory) Forget(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()

	return nil
}

// Keys returns the live keys, sorted insertion-independent. Test helper.
func (c *Memory) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var keys []string

	now := time.Now()
	for key, entry := range c.entries {
		if entry.expired(now) {
			continue
		}

		keys = append(keys, key)
	}

	return keys
}
