// Copyright 2026 The Procboard Authors
// SPDX-License-Identifier: Apache-2.0

// Package usageprobe samples CPU and memory usage of individual
// processes from /proc/<pid>/stat and /proc/<pid>/statm.
//
// CPU utilization is a delta between consecutive readings of the
// process's cumulative user+system jiffies against wall-clock time, so
// the first sample for a pid always reports 0%. Memory is the resident
// set in bytes; the caller normalizes it against total system memory.
//
// Unlike sysprobe, sampling here does fail: the pid under observation
// can exit at any moment, and a vanished /proc entry is how the usage
// lifecycle learns to tear the sampler down.
package usageprobe

import (
	"sync"
	"time"

	"github.com/procboard/procboard/lib/clock"
)

// Sample is one per-process reading.
type Sample struct {
	CPUPercent  float64 `json:"cpu"`
	MemoryBytes uint64  `json:"memory"`
}

// Prober samples processes by pid. It keeps the previous CPU reading
// per pid for delta computation; call Forget when a pid is no longer
// observed so the map does not accumulate dead entries.
type Prober struct {
	procRoot   string
	clock      clock.Clock
	pageSize   uint64
	clockTicks float64

	mu       sync.Mutex
	previous map[int]cpuTimes
}

// cpuTimes is one cumulative CPU reading with its wall-clock moment.
type cpuTimes struct {
	jiffies uint64
	at      time.Time
}

// New returns a Prober reading the live /proc filesystem.
func New() *Prober {
	return newProber("/proc", clock.Real())
}

// newProber is the testable constructor: tests point procRoot at a
// synthetic tree and inject a fake clock.
func newProber(procRoot string, clk clock.Clock) *Prober {
	return &Prober{
		procRoot:   procRoot,
		clock:      clk,
		pageSize:   pageSize(),
		clockTicks: clockTicksPerSecond,
		previous:   make(map[int]cpuTimes),
	}
}

// Forget drops the stored CPU reading for pid. The next Sample for the
// same pid starts a fresh delta (reporting 0% once).
func (p *Prober) Forget(pid int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.previous, pid)
}
