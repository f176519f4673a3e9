package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_Allow(t *testing.T) {
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	m := NewMemory(3, time.Minute)
	m.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, _, err := m.Allow(ctx, "09120000000")
		require.NoError(t, err)
		assert.True(t, ok)
	}

	ok, retry, err := m.Allow(ctx, "09120000000")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, time.Minute, retry)

	// Other keys have their own window.
	ok, _, err = m.Allow(ctx, "09120000001")
	require.NoError(t, err)
	assert.True(t, ok)

	now = now.Add(61 * time.Second)
	ok, _, err = m.Allow(ctx, "09120000000")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemory_RetryAfterShrinks(t *testing.T) {
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	m := NewMemory(1, time.Minute)
	m.now = func() time.Time { return now }
	ctx := context.Background()

	ok, _, _ := m.Allow(ctx, "k")
	require.True(t, ok)

	now = now.Add(20 * time.Second)
	ok, retry, _ := m.Allow(ctx, "k")
	assert.False(t, ok)
	assert.Equal(t, 40*time.Second, retry)
}

func TestMemory_SweepsExpiredWindows(t *testing.T) {
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	m := NewMemory(1, time.Minute)
	m.now = func() time.Time { return now }
	ctx := context.Background()

	_, _, _ = m.Allow(ctx, "a")
	_, _, _ = m.Allow(ctx, "b")
	assert.Len(t, m.windows, 2)

	now = now.Add(2 * time.Minute)
	_, _, _ = m.Allow(ctx, "c")
	assert.Len(t, m.windows, 1)
}
