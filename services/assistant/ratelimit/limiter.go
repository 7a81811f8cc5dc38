// Copyright (C) 2025 KaziPath Ltd (eng@kazipath.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package ratelimit implements the per-identity fixed-window counter that
// gates every assistant request before any expensive work happens.
//
// Rejection is a designed soft outcome, not an error: callers receive a
// Decision with retry information and turn it into conversational copy.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Policy is a fixed quota per fixed time window.
type Policy struct {
	// Limit is the number of requests allowed per window. Must be >= 1.
	Limit int

	// Window is the quota window length (e.g., one hour).
	Window time.Duration
}

// DefaultPolicy matches the chat endpoint class: 20 requests per hour.
func DefaultPolicy() Policy {
	return Policy{Limit: 20, Window: time.Hour}
}

// Decision is the outcome of an Allow call.
type Decision struct {
	// Allowed reports whether the request may proceed.
	Allowed bool

	// Remaining is the quota left in the current window after this call.
	Remaining int

	// RetryAfter is how long until the window resets. Only meaningful when
	// Allowed is false.
	RetryAfter time.Duration
}

// window is the mutable per-identity counter state.
type window struct {
	start time.Time
	count int
}

// Limiter tracks fixed-window counters keyed by namespaced identity strings
// (e.g., "chat:<userID>"). Entries are created lazily and evicted by a
// janitor goroutine once their window has long expired.
//
// Thread Safety: safe for concurrent use. The check-and-increment is atomic
// under the mutex, so concurrent requests from one identity cannot bypass
// the quota.
type Limiter struct {
	policy Policy
	now    func() time.Time

	mu      sync.Mutex
	windows map[string]*window

	janitorCancel context.CancelFunc
	janitorDone   chan struct{}
}

// New creates a Limiter for the given policy. Zero or negative policy fields
// fall back to DefaultPolicy values.
func New(policy Policy) *Limiter {
	def := DefaultPolicy()
	if policy.Limit < 1 {
		policy.Limit = def.Limit
	}
	if policy.Window <= 0 {
		policy.Window = def.Window
	}
	return &Limiter{
		policy:  policy,
		now:     time.Now,
		windows: make(map[string]*window),
	}
}

// Allow records one request for identity and reports whether it fits the
// quota. The counter mutation and the decision are a single atomic step.
func (l *Limiter) Allow(identity string) Decision {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[identity]
	if !ok || now.Sub(w.start) >= l.policy.Window {
		// New identity or elapsed window: reset.
		w = &window{start: now}
		l.windows[identity] = w
	}

	if w.count >= l.policy.Limit {
		return Decision{
			Allowed:    false,
			Remaining:  0,
			RetryAfter: w.start.Add(l.policy.Window).Sub(now),
		}
	}

	w.count++
	return Decision{Allowed: true, Remaining: l.policy.Limit - w.count}
}

// StartJanitor launches a background sweep that drops windows whose reset
// time has passed. Stop it by cancelling ctx; Close waits for it to exit.
func (l *Limiter) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = l.policy.Window
	}
	ctx, cancel := context.WithCancel(ctx)
	l.janitorCancel = cancel
	l.janitorDone = make(chan struct{})

	go func() {
		defer close(l.janitorDone)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				l.sweep()
			}
		}
	}()
}

// Close stops the janitor if one is running.
func (l *Limiter) Close() {
	if l.janitorCancel != nil {
		l.janitorCancel()
		<-l.janitorDone
	}
}

func (l *Limiter) sweep() {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	for id, w := range l.windows {
		if now.Sub(w.start) >= l.policy.Window {
			delete(l.windows, id)
		}
	}
}
