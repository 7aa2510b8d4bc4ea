// Copyright 2026 The Procboard Authors
// SPDX-License-Identifier: Apache-2.0

package throttle

import (
	"sync"
	"time"

	"github.com/procboard/procboard/lib/clock"
)

// DefaultWindow is the debounce interval used when none is configured.
// 500ms coalesces supervisor event storms (a fleet restart, a crash
// loop) while keeping the dashboard feeling live.
const DefaultWindow = 500 * time.Millisecond

// Gate coalesces repeated triggers into one action per burst. The gate
// is either idle or pending; a trigger while pending cancels the
// scheduled action and re-arms the timer, so the action fires once the
// triggers stop for a full window.
//
// Safe for concurrent use: triggers may arrive from the supervisor
// event goroutine and RPC reply paths at once.
type Gate struct {
	clock  clock.Clock
	window time.Duration

	mu      sync.Mutex
	pending *clock.Timer

	// generation guards against a stale timer firing after it lost a
	// race with a concurrent Trigger: Stop on an already-fired timer
	// returns false, its callback still runs, and without the guard
	// that callback would clear the record of the newer timer. Every
	// arm and Stop bumps the generation; the fire handler acts only
	// when its captured generation is still current.
	generation uint64
}

// Option configures a Gate.
type Option func(*Gate)

// WithWindow overrides the debounce window.
func WithWindow(window time.Duration) Option {
	return func(g *Gate) { g.window = window }
}

// WithClock substitutes the scheduling clock. Tests inject
// clock.Fake() for deterministic firing.
func WithClock(c clock.Clock) Option {
	return func(g *Gate) { g.clock = c }
}

// NewGate returns an idle Gate with the default 500ms window.
func NewGate(options ...Option) *Gate {
	g := &Gate{
		clock:  clock.Real(),
		window: DefaultWindow,
	}
	for _, option := range options {
		option(g)
	}
	return g
}

// Trigger schedules action to run one window from now, replacing any
// previously scheduled action. N triggers inside a window yield
// exactly one invocation, no earlier than window after the last of
// them. The action runs on the timer goroutine; it must not call
// Trigger synchronously on a fake clock (see clock.FakeClock).
func (g *Gate) Trigger(action func()) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.pending != nil {
		g.pending.Stop()
	}
	g.generation++
	generation := g.generation
	g.pending = g.clock.AfterFunc(g.window, func() {
		g.fire(generation, action)
	})
}

// fire runs a timer's scheduled action, unless the arming it belongs
// to has been superseded. A timer that lost the Stop race with a
// Trigger still gets its callback invoked; the generation check turns
// that stale callback into a no-op instead of letting it clear the
// newer timer's pending record.
func (g *Gate) fire(generation uint64, action func()) {
	g.mu.Lock()
	if generation != g.generation {
		g.mu.Unlock()
		return
	}
	g.pending = nil
	g.mu.Unlock()

	action()
}

// Stop cancels any pending action and returns the gate to idle.
func (g *Gate) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.pending != nil {
		g.pending.Stop()
		g.pending = nil
	}
	g.generation++
}
