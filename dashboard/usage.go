// Copyright 2026 The Procboard Authors
// SPDX-License-Identifier: Apache-2.0

package dashboard

import (
	"sync"

	"github.com/procboard/procboard/lib/clock"
)

// usagePayload is the process-namespace frame body. Error is set on a
// failed sample; the usage figures are zero in that case.
type usagePayload struct {
	PID   int          `json:"pid"`
	Time  int64        `json:"time"`
	Usage usageFigures `json:"usage"`
	Error string       `json:"error,omitempty"`
}

// usageFigures are both percentages: CPU of one core, memory of total
// system memory.
type usageFigures struct {
	CPU    float64 `json:"cpu"`
	Memory float64 `json:"memory"`
}

// usageEntry is one pid's repeating sampler.
type usageEntry struct {
	ticker   *clock.Ticker
	done     chan struct{}
	stopOnce sync.Once
}

func (e *usageEntry) stop() {
	e.stopOnce.Do(func() {
		e.ticker.Stop()
		close(e.done)
	})
}

// ensureUsage starts sampling the pid unless a sampler already
// exists. The first sample happens immediately; a failed first sample
// broadcasts the error and arms nothing.
func (d *Dashboard) ensureUsage(pid int) {
	d.usageMu.Lock()
	if _, exists := d.usage[pid]; exists {
		d.usageMu.Unlock()
		return
	}

	if !d.sampleUsage(pid) {
		d.usageMu.Unlock()
		return
	}

	entry := &usageEntry{
		ticker: d.clock.NewTicker(d.usageInterval),
		done:   make(chan struct{}),
	}
	d.usage[pid] = entry
	d.usageMu.Unlock()

	d.logger.Debug("usage sampler started", "pid", pid)
	go d.pumpUsage(pid, entry)
}

// pumpUsage drives one pid's tick loop. A failed sample tears the
// sampler down; the viewer re-requests to resume.
func (d *Dashboard) pumpUsage(pid int, entry *usageEntry) {
	for {
		select {
		case <-entry.done:
			return
		case <-entry.ticker.C:
			if !d.sampleUsage(pid) {
				d.killUsage(pid)
				return
			}
		}
	}
}

// sampleUsage takes one sample and broadcasts it. Reports false when
// the process cannot be sampled, after broadcasting the error.
func (d *Dashboard) sampleUsage(pid int) bool {
	now := d.clock.Now().UnixMilli()

	sample, err := d.usageProbe.Sample(pid)
	if err != nil {
		d.logger.Debug("usage sample failed", "pid", pid, "error", err)
		d.broadcast(d.process, "usage", usagePayload{PID: pid, Time: now, Error: err.Error()})
		return false
	}

	var memoryPercent float64
	if total, err := d.usageProbe.TotalMemoryBytes(); err == nil && total > 0 {
		memoryPercent = float64(sample.MemoryBytes) * 100 / float64(total)
	}

	d.broadcast(d.process, "usage", usagePayload{
		PID:  pid,
		Time: now,
		Usage: usageFigures{
			CPU:    sample.CPUPercent,
			Memory: memoryPercent,
		},
	})
	return true
}

// killUsage stops and removes one pid's sampler.
func (d *Dashboard) killUsage(pid int) {
	d.usageMu.Lock()
	entry, exists := d.usage[pid]
	delete(d.usage, pid)
	d.usageMu.Unlock()

	if exists {
		entry.stop()
		d.usageProbe.Forget(pid)
		d.logger.Debug("usage sampler stopped", "pid", pid)
	}
}

// sweepUsage kills every sampler whose pid is no longer claimed by a
// connected process-namespace viewer.
func (d *Dashboard) sweepUsage() {
	claimed := make(map[int]struct{})
	for _, pid := range d.process.PIDs() {
		claimed[pid] = struct{}{}
	}

	d.usageMu.Lock()
	victims := make(map[int]*usageEntry)
	for pid, entry := range d.usage {
		if _, keep := claimed[pid]; keep {
			continue
		}
		victims[pid] = entry
		delete(d.usage, pid)
	}
	d.usageMu.Unlock()

	for pid, entry := range victims {
		entry.stop()
		d.usageProbe.Forget(pid)
		d.logger.Debug("usage sampler swept", "pid", pid)
	}
}

// usageCount reports live samplers, for tests and introspection.
func (d *Dashboard) usageCount() int {
	d.usageMu.Lock()
	defer d.usageMu.Unlock()
	return len(d.usage)
}
