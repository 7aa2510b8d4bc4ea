// Copyright 2026 The Procboard Authors
// SPDX-License-Identifier: Apache-2.0

package usageprobe

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// clockTicksPerSecond is USER_HZ, the unit of utime/stime in
// /proc/<pid>/stat. Fixed at 100 on Linux regardless of the kernel's
// actual tick rate.
const clockTicksPerSecond = 100

func pageSize() uint64 {
	return uint64(os.Getpagesize())
}

// TotalMemoryBytes returns total system memory, used to normalize
// per-process resident sizes into percentages.
func (p *Prober) TotalMemoryBytes() (uint64, error) {
	var info unix.Sysinfo_t
	if err := unix.Sysinfo(&info); err != nil {
		return 0, fmt.Errorf("sysinfo: %w", err)
	}
	return uint64(info.Totalram) * uint64(info.Unit), nil
}

// Sample reads one CPU/memory reading for pid. Fails when the process
// has exited (its /proc entry is gone) or its stat files are
// malformed.
func (p *Prober) Sample(pid int) (Sample, error) {
	jiffies, err := readProcessJiffies(filepath.Join(p.procRoot, strconv.Itoa(pid), "stat"))
	if err != nil {
		return Sample{}, fmt.Errorf("sampling pid %d: %w", pid, err)
	}

	resident, err := readResidentBytes(filepath.Join(p.procRoot, strconv.Itoa(pid), "statm"), p.pageSize)
	if err != nil {
		return Sample{}, fmt.Errorf("sampling pid %d: %w", pid, err)
	}

	now := p.clock.Now()
	current := cpuTimes{jiffies: jiffies, at: now}

	p.mu.Lock()
	previous, seen := p.previous[pid]
	p.previous[pid] = current
	p.mu.Unlock()

	sample := Sample{MemoryBytes: resident}
	if seen {
		elapsed := now.Sub(previous.at).Seconds()
		if elapsed > 0 && current.jiffies >= previous.jiffies {
			cpuSeconds := float64(current.jiffies-previous.jiffies) / p.clockTicks
			sample.CPUPercent = cpuSeconds / elapsed * 100
		}
	}
	return sample, nil
}

// readProcessJiffies parses utime+stime from a /proc/<pid>/stat line.
// The comm field (2nd) may contain spaces and parentheses, so parsing
// starts after the last ')': from there, utime and stime are the 12th
// and 13th space-separated fields.
func readProcessJiffies(path string) (uint64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}

	line := string(data)
	closing := strings.LastIndexByte(line, ')')
	if closing < 0 {
		return 0, fmt.Errorf("malformed stat line in %s", path)
	}

	fields := strings.Fields(line[closing+1:])
	// After ')': state ppid pgrp session tty_nr tpgid flags minflt
	// cminflt majflt cmajflt utime stime ... (utime at index 11).
	if len(fields) < 13 {
		return 0, fmt.Errorf("truncated stat line in %s", path)
	}

	utime, err := strconv.ParseUint(fields[11], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing utime in %s: %w", path, err)
	}
	stime, err := strconv.ParseUint(fields[12], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing stime in %s: %w", path, err)
	}
	return utime + stime, nil
}

// readResidentBytes parses the resident page count (2nd field) from
// /proc/<pid>/statm and converts it to bytes.
func readResidentBytes(path string, pageSize uint64) (uint64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}

	fields := strings.Fields(string(data))
	if len(fields) < 2 {
		return 0, fmt.Errorf("truncated statm in %s", path)
	}

	pages, err := strconv.ParseUint(fields[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing resident pages in %s: %w", path, err)
	}
	return pages * pageSize, nil
}
