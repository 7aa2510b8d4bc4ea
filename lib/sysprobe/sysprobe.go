// Copyright 2026 The Procboard Authors
// SPDX-License-Identifier: Apache-2.0

// Package sysprobe samples system-wide statistics for the dashboard's
// heartbeat: CPU utilization, architecture, hostname, kernel release,
// uptime, and memory. Sampling never fails — fields that cannot be
// read come back zero-valued, because a dashboard that renders "0%"
// beats one that renders nothing.
//
// CPU utilization is a delta between consecutive /proc/stat readings,
// so the first snapshot after startup always reports 0%.
package sysprobe

import "sync"

// Memory describes system memory at snapshot time, in bytes.
type Memory struct {
	TotalBytes uint64 `json:"total"`
	FreeBytes  uint64 `json:"free"`
	UsedBytes  uint64 `json:"used"`
}

// Snapshot is one reading of system-wide statistics. Broadcast to the
// system namespace on every heartbeat tick and replayed from cache to
// newly connected subscribers.
type Snapshot struct {
	CPUPercent    float64 `json:"cpu"`
	Arch          string  `json:"arch"`
	Hostname      string  `json:"hostname"`
	Platform      string  `json:"platform"`
	Release       string  `json:"release"`
	UptimeSeconds uint64  `json:"uptime"`
	Memory        Memory  `json:"memory"`
}

// Prober produces Snapshots. It keeps the previous /proc/stat reading
// between calls for CPU delta computation, so one Prober should live
// for the process lifetime.
type Prober struct {
	statPath string

	mu       sync.Mutex
	previous *cpuReading
}

// New returns a Prober reading from the live /proc filesystem.
func New() *Prober {
	return &Prober{statPath: "/proc/stat"}
}
