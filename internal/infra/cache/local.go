package cache

import (
	"context"
	"sync"
	"time"

	"suggestion-bot/internal/domain"
)

// Local: кэш в памяти процесса, используется без Redis.
type Local struct {
	mu      sync.Mutex
	entries map[string]localEntry
	now     func() time.Time
}

type localEntry struct {
	value   []byte
	expires time.Time
}

var _ domain.Cache = (*Local)(nil)

// NewLocal создаёт пустой кэш.
func NewLocal() *Local {
	return &Local{entries: make(map[string]localEntry), now: time.Now}
}

func (c *Local) getLocked(key string) (localEntry, bool) {
	e, ok := c.entries[key]
	if !ok {
		return localEntry{}, false
	}
	if !e.expires.IsZero() && !c.now().Before(e.expires) {
		delete(c.entries, key)
		return localEntry{}, false
	}
	return e, true
}

func (c *Local) setLocked(key string, value []byte, ttl time.Duration) {
	e := localEntry{value: value}
	if ttl > 0 {
		e.expires = c.now().Add(ttl)
	}
	c.entries[key] = e
}

// Once выполняет функцию, если ключ ещё не задан.
func (c *Local) Once(_ context.Context, key string, ttl time.Duration, fn func() error) error {
	c.mu.Lock()
	if _, ok := c.getLocked(key); ok {
		c.mu.Unlock()
		return nil
	}
	c.setLocked(key, []byte("1"), ttl)
	c.mu.Unlock()

	if err := fn(); err != nil {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return err
	}
	return nil
}

// Set задаёт значение.
func (c *Local) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setLocked(key, value, ttl)
	return nil
}

// Get возвращает значение или ErrMiss.
func (c *Local) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.getLocked(key)
	if !ok {
		return nil, ErrMiss
	}
	return e.value, nil
}

// Del удаляет ключ.
func (c *Local) Del(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}
