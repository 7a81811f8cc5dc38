// Copyright (C) 2025 KaziPath Ltd (eng@kazipath.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ratelimit

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock lets tests move time forward deterministically.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestLimiter(policy Policy) (*Limiter, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)}
	l := New(policy)
	l.now = clock.Now
	return l, clock
}

func TestAllow_TwentyFirstRequestRejected(t *testing.T) {
	l, _ := newTestLimiter(Policy{Limit: 20, Window: time.Hour})

	for i := 1; i <= 20; i++ {
		d := l.Allow("chat:user-1")
		require.True(t, d.Allowed, "request %d should be allowed", i)
		assert.Equal(t, 20-i, d.Remaining)
	}

	d := l.Allow("chat:user-1")
	assert.False(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)
	assert.Greater(t, d.RetryAfter, time.Duration(0))
	assert.LessOrEqual(t, d.RetryAfter, time.Hour)
}

func TestAllow_WindowReset(t *testing.T) {
	l, clock := newTestLimiter(Policy{Limit: 2, Window: time.Hour})

	require.True(t, l.Allow("chat:user-1").Allowed)
	require.True(t, l.Allow("chat:user-1").Allowed)
	require.False(t, l.Allow("chat:user-1").Allowed)

	clock.Advance(time.Hour)
	d := l.Allow("chat:user-1")
	assert.True(t, d.Allowed)
	assert.Equal(t, 1, d.Remaining)
}

func TestAllow_IdentitiesIndependent(t *testing.T) {
	l, _ := newTestLimiter(Policy{Limit: 1, Window: time.Hour})

	require.True(t, l.Allow("chat:user-1").Allowed)
	require.False(t, l.Allow("chat:user-1").Allowed)

	// A different identity has its own window.
	assert.True(t, l.Allow("chat:user-2").Allowed)
}

func TestAllow_ConcurrentRequestsCannotExceedQuota(t *testing.T) {
	const limit = 50
	const callers = 200
	l, _ := newTestLimiter(Policy{Limit: limit, Window: time.Hour})

	var wg sync.WaitGroup
	allowed := make(chan bool, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			allowed <- l.Allow("chat:user-1").Allowed
		}()
	}
	wg.Wait()
	close(allowed)

	count := 0
	for ok := range allowed {
		if ok {
			count++
		}
	}
	assert.Equal(t, limit, count)
}

func TestNew_InvalidPolicyFallsBackToDefaults(t *testing.T) {
	l := New(Policy{Limit: 0, Window: -1})
	def := DefaultPolicy()
	assert.Equal(t, def.Limit, l.policy.Limit)
	assert.Equal(t, def.Window, l.policy.Window)
}

func TestSweep_EvictsExpiredWindows(t *testing.T) {
	l, clock := newTestLimiter(Policy{Limit: 5, Window: time.Minute})

	l.Allow("chat:user-1")
	l.Allow("chat:user-2")
	require.Len(t, l.windows, 2)

	clock.Advance(2 * time.Minute)
	l.sweep()
	assert.Empty(t, l.windows)
}
