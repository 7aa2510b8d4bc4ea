// Copyright 2026 The Procboard Authors
// SPDX-License-Identifier: Apache-2.0

package dashboard

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/procboard/procboard/lib/testutil"
)

func TestEnsureTailIdempotent(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.seedProcs(t)

	f.dashboard.ensureTail(101, false)
	f.dashboard.ensureTail(101, false)
	f.dashboard.ensureTail(101, true)

	if got := f.tails.startCount(); got != 1 {
		t.Errorf("tail started %d times, want 1", got)
	}
	if got := f.dashboard.tailCount(); got != 1 {
		t.Errorf("live tails = %d, want 1", got)
	}
}

func TestTailLineEscapedToHTML(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.seedProcs(t)
	f.dashboard.ensureTail(101, false)

	f.tails.stream(0).lines <- "hello"

	frame := testutil.RequireReceive(t, f.log.notify, time.Second, "log line")
	payload := frame.Payload.(logPayload)
	if payload.PID != 101 {
		t.Errorf("pid = %d, want 101", payload.PID)
	}
	if payload.Message != "<span>hello</span>" {
		t.Errorf("message = %q, want %q", payload.Message, "<span>hello</span>")
	}
}

func TestTailLineRawWithKeepANSI(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.seedProcs(t)
	f.dashboard.ensureTail(202, true)

	raw := "\x1b[31mred\x1b[0m"
	f.tails.stream(0).lines <- raw

	frame := testutil.RequireReceive(t, f.log.notify, time.Second, "log line")
	if got := frame.Payload.(logPayload).Message; got != raw {
		t.Errorf("message = %q, want raw passthrough %q", got, raw)
	}
}

func TestTailUnknownPID(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	// No process cache: the pid has no known log path.
	f.dashboard.ensureTail(999, false)

	if got := f.tails.startCount(); got != 0 {
		t.Fatalf("tail started %d times for unknown pid", got)
	}
	frames := f.log.broadcasts()
	if len(frames) != 1 || frames[0].Event != "log" {
		t.Fatalf("log frames = %+v, want one error line", frames)
	}
	if payload := frames[0].Payload.(logPayload); payload.PID != 999 || payload.Message == "" {
		t.Errorf("error payload = %+v", payload)
	}
}

func TestTailStartFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.seedProcs(t)
	f.tails.mu.Lock()
	f.tails.err = errors.New("no such file")
	f.tails.mu.Unlock()

	f.dashboard.ensureTail(101, false)

	if got := f.dashboard.tailCount(); got != 0 {
		t.Errorf("live tails = %d after start failure, want 0", got)
	}
	frames := f.log.broadcasts()
	if len(frames) != 1 {
		t.Fatalf("log frames = %+v, want one error line", frames)
	}
	if message := frames[0].Payload.(logPayload).Message; !strings.Contains(message, "tail failed") {
		t.Errorf("error message = %q", message)
	}
}

func TestKillTail(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.seedProcs(t)
	f.dashboard.ensureTail(101, false)

	f.dashboard.killTail(101)

	if got := f.dashboard.tailCount(); got != 0 {
		t.Errorf("live tails = %d after kill, want 0", got)
	}
	testutil.RequireClosed(t, f.tails.stream(0).stopped, time.Second, "stream not stopped")

	// Killing again is harmless.
	f.dashboard.killTail(101)
}

func TestSweepTailsKeepsClaimedPIDs(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.seedProcs(t)
	f.dashboard.ensureTail(101, false)
	f.dashboard.ensureTail(202, false)

	// One viewer remains, watching pid 101.
	f.log.setPIDs(101)
	f.dashboard.sweepTails()

	if got := f.dashboard.tailCount(); got != 1 {
		t.Fatalf("live tails = %d after sweep, want 1", got)
	}
	testutil.RequireClosed(t, f.tails.stream(1).stopped, time.Second, "unclaimed stream not stopped")

	// Last viewer leaves: everything goes.
	f.log.setPIDs()
	f.dashboard.sweepTails()
	if got := f.dashboard.tailCount(); got != 0 {
		t.Errorf("live tails = %d after final sweep, want 0", got)
	}
}
