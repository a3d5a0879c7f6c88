package cache

import (
	"context"
	"sync"
	"time"
)

// MemorySet is a process-local Set whose entries expire a fixed duration
// after they were last added. It is safe for concurrent use.
type MemorySet struct {
	expiresAfter time.Duration
	clock        Clock

	mu        sync.Mutex
	expiries  map[string]time.Time
	lastSweep time.Time
}

// MemoryOption configures a MemorySet.
type MemoryOption func(*MemorySet)

// WithClock replaces the clock used to compute expiries.
func WithClock(c Clock) MemoryOption {
	return func(m *MemorySet) { m.clock = c }
}

// NewMemorySet creates a MemorySet. Entries expire expiresAfter after Add.
func NewMemorySet(expiresAfter time.Duration, opts ...MemoryOption) *MemorySet {
	m := &MemorySet{
		expiresAfter: expiresAfter,
		clock:        realClock{},
		expiries:     make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.lastSweep = m.clock.Now()
	return m
}

func (m *MemorySet) Add(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	m.maybeSweep(now)
	m.expiries[key] = now.Add(m.expiresAfter)
	return nil
}

func (m *MemorySet) Discard(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.expiries, key)
	return nil
}

func (m *MemorySet) Exists(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	m.maybeSweep(now)

	expiry, ok := m.expiries[key]
	if !ok {
		return false, nil
	}
	if !now.Before(expiry) {
		delete(m.expiries, key)
		return false, nil
	}
	return true, nil
}

// Sweep drops every expired entry and returns how many were removed.
func (m *MemorySet) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.sweep(m.clock.Now())
}

// Len returns the number of stored entries, expired or not.
func (m *MemorySet) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.expiries)
}

func (m *MemorySet) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.expiries = make(map[string]time.Time)
	return nil
}

// maybeSweep runs the integrity sweep at most once per expiresAfter.
// Callers must hold m.mu.
func (m *MemorySet) maybeSweep(now time.Time) {
	if now.Sub(m.lastSweep) < m.expiresAfter {
		return
	}
	m.sweep(now)
}

func (m *MemorySet) sweep(now time.Time) int {
	removed := 0
	for key, expiry := range m.expiries {
		if !now.Before(expiry) {
			delete(m.expiries, key)
			removed++
		}
	}
	m.lastSweep = now
	return removed
}
