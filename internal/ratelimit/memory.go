package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Memory is a process-local limiter. Counters vanish on restart and are not
// shared between instances.
type Memory struct {
	cfg      Config
	mu       sync.Mutex
	counters map[string]*counter
	now      func() time.Time
}

func NewMemory(cfg Config) *Memory {
	return &Memory{
		cfg:      cfg.withDefaults(),
		counters: make(map[string]*counter),
		now:      time.Now,
	}
}

// WithClock swaps the time source, for tests.
func (m *Memory) WithClock(now func() time.Time) *Memory {
	m.now = now
	return m
}

func (m *Memory) Allow(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.counters[key]
	if !ok {
		c = &counter{}
		m.counters[key] = c
	}
	return c.hit(m.now(), m.cfg), nil
}

func (m *Memory) Cleanup(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for key, c := range m.counters {
		if !now.Before(c.ResetAt) {
			delete(m.counters, key)
		}
	}
	return nil
}

func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.counters)
}
