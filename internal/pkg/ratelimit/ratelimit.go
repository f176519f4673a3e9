// Package ratelimit provides fixed-window request limiters keyed by an
// arbitrary string, such as a mobile number.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

type window struct {
	count   int
	resetAt time.Time
}

// Memory keeps windows in process memory. It is used when Redis is not
// configured and only limits a single instance.
type Memory struct {
	limit  int
	period time.Duration
	now    func() time.Time

	mu      sync.Mutex
	windows map[string]window
}

func NewMemory(limit int, period time.Duration) *Memory {
	return &Memory{
		limit:   limit,
		period:  period,
		now:     time.Now,
		windows: make(map[string]window),
	}
}

// Allow counts one request for key. When the limit is exceeded it returns
// false and the time left until the window resets.
func (m *Memory) Allow(_ context.Context, key string) (bool, time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.sweep(now)

	w, ok := m.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = window{resetAt: now.Add(m.period)}
	}
	w.count++
	m.windows[key] = w

	if w.count > m.limit {
		return false, w.resetAt.Sub(now), nil
	}

	return true, 0, nil
}

func (m *Memory) sweep(now time.Time) {
	for key, w := range m.windows {
		if !now.Before(w.resetAt) {
			delete(m.windows, key)
		}
	}
}
