// Copyright 2026 The Procboard Authors
// SPDX-License-Identifier: Apache-2.0

package dashboard

import (
	"testing"
)

func countEvents(frames []frameRecord, event string) int {
	var n int
	for _, frame := range frames {
		if frame.Event == event {
			n++
		}
	}
	return n
}

func TestHeartbeatTicksWhileWatched(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.dashboard.startHeartbeat()

	f.clock.Advance(DefaultHeartbeatInterval)
	f.clock.Advance(DefaultHeartbeatInterval)

	if got := countEvents(f.system.broadcasts(), "system"); got != 2 {
		t.Errorf("system frames = %d, want 2", got)
	}
	if got := f.sysProbe.snapshots(); got != 2 {
		t.Errorf("probe sampled %d times, want 2", got)
	}

	// The latest snapshot is cached for replay to new subscribers.
	if _, _, cached := f.dashboard.cachedState(); cached == nil {
		t.Error("no cached system snapshot after ticking")
	}
}

func TestHeartbeatStartIdempotent(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.dashboard.startHeartbeat()
	f.dashboard.startHeartbeat()
	f.dashboard.startHeartbeat()

	f.clock.Advance(DefaultHeartbeatInterval)

	if got := countEvents(f.system.broadcasts(), "system"); got != 1 {
		t.Errorf("system frames = %d, want 1 despite repeated starts", got)
	}
}

func TestHeartbeatStopsWhenUnwatched(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.dashboard.startHeartbeat()

	f.clock.Advance(DefaultHeartbeatInterval)
	if got := f.sysProbe.snapshots(); got != 1 {
		t.Fatalf("probe sampled %d times, want 1", got)
	}

	// Last subscriber leaves: the next tick must do nothing and end
	// the chain.
	f.system.setCount(0)
	f.clock.Advance(DefaultHeartbeatInterval)
	f.clock.Advance(DefaultHeartbeatInterval)

	if got := f.sysProbe.snapshots(); got != 1 {
		t.Errorf("probe sampled %d times after all subscribers left, want 1", got)
	}
	if got := countEvents(f.system.broadcasts(), "system"); got != 1 {
		t.Errorf("system frames = %d after all subscribers left, want 1", got)
	}
}

func TestHeartbeatRestartsOnReconnect(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.dashboard.startHeartbeat()
	f.clock.Advance(DefaultHeartbeatInterval)

	f.system.setCount(0)
	f.clock.Advance(DefaultHeartbeatInterval)

	// A new subscriber arrives: a fresh chain begins.
	f.system.setCount(1)
	f.dashboard.startHeartbeat()
	f.clock.Advance(DefaultHeartbeatInterval)

	if got := f.sysProbe.snapshots(); got != 2 {
		t.Errorf("probe sampled %d times across stop/restart, want 2", got)
	}
}
