// Copyright 2026 The Procboard Authors
// SPDX-License-Identifier: Apache-2.0

package sysprobe

import (
	"bufio"
	"os"
	"runtime"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// Snapshot takes one reading. Unreadable sources produce zero-valued
// fields, never errors.
func (p *Prober) Snapshot() Snapshot {
	snapshot := Snapshot{
		Arch:     runtime.GOARCH,
		Platform: runtime.GOOS,
	}

	snapshot.Hostname, _ = os.Hostname()
	snapshot.Release = kernelRelease()

	var info unix.Sysinfo_t
	if err := unix.Sysinfo(&info); err == nil {
		snapshot.UptimeSeconds = uint64(info.Uptime)
		total := uint64(info.Totalram) * uint64(info.Unit)
		free := uint64(info.Freeram) * uint64(info.Unit)
		snapshot.Memory = Memory{
			TotalBytes: total,
			FreeBytes:  free,
		}
		if total >= free {
			snapshot.Memory.UsedBytes = total - free
		}
	}

	current := readCPUStatsFrom(p.statPath)
	p.mu.Lock()
	snapshot.CPUPercent = cpuPercent(p.previous, current)
	p.previous = current
	p.mu.Unlock()

	return snapshot
}

// kernelRelease returns the release string from uname(2), or "" when
// the syscall fails.
func kernelRelease() string {
	var utsname unix.Utsname
	if err := unix.Uname(&utsname); err != nil {
		return ""
	}
	return unix.ByteSliceToString(utsname.Release[:])
}

// cpuReading captures cumulative CPU time from /proc/stat for delta
// computation. The first line aggregates all CPUs:
//
//	cpu  user nice system idle iowait irq softirq steal guest guest_nice
//
// busy = user + nice + system + irq + softirq + steal
// idle = idle + iowait
//
// guest and guest_nice are already folded into user/nice by the
// kernel's accounting, so they are not added separately.
type cpuReading struct {
	busy uint64
	idle uint64
}

// readCPUStatsFrom parses the first line of a /proc/stat-format file.
// Returns nil on any parse failure; the caller treats nil as "no
// reading available, report 0%".
func readCPUStatsFrom(path string) *cpuReading {
	file, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	if !scanner.Scan() {
		return nil
	}

	fields := strings.Fields(scanner.Text())
	if len(fields) < 9 || fields[0] != "cpu" {
		return nil
	}

	values := make([]uint64, len(fields)-1)
	for i := 1; i < len(fields); i++ {
		parsed, err := strconv.ParseUint(fields[i], 10, 64)
		if err != nil {
			return nil
		}
		values[i-1] = parsed
	}

	// 0=user, 1=nice, 2=system, 3=idle, 4=iowait, 5=irq, 6=softirq, 7=steal
	return &cpuReading{
		busy: values[0] + values[1] + values[2] + values[5] + values[6] + values[7],
		idle: values[3] + values[4],
	}
}

// cpuPercent computes utilization from two sequential readings.
// Returns 0 when either reading is missing or no time has passed.
func cpuPercent(previous, current *cpuReading) float64 {
	if previous == nil || current == nil {
		return 0
	}
	busyDelta := current.busy - previous.busy
	idleDelta := current.idle - previous.idle
	totalDelta := busyDelta + idleDelta
	if totalDelta == 0 {
		return 0
	}
	return float64(busyDelta) / float64(totalDelta) * 100
}
