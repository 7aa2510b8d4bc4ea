// Copyright 2026 The Procboard Authors
// SPDX-License-Identifier: Apache-2.0

package sysprobe

import (
	"os"
	"path/filepath"
	"testing"
)

func writeStat(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stat")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing stat file: %v", err)
	}
	return path
}

func TestReadCPUStats(t *testing.T) {
	t.Parallel()

	path := writeStat(t, "cpu  100 20 30 400 50 6 7 8 0 0\ncpu0 1 2 3 4 5 6 7 8 0 0\n")
	reading := readCPUStatsFrom(path)
	if reading == nil {
		t.Fatal("readCPUStatsFrom returned nil for valid input")
	}

	// busy = 100+20+30+6+7+8, idle = 400+50
	if reading.busy != 171 {
		t.Errorf("busy = %d, want 171", reading.busy)
	}
	if reading.idle != 450 {
		t.Errorf("idle = %d, want 450", reading.idle)
	}
}

func TestReadCPUStatsMalformed(t *testing.T) {
	t.Parallel()

	for name, content := range map[string]string{
		"empty":       "",
		"wrong label": "intr 1 2 3 4 5 6 7 8 9\n",
		"short line":  "cpu 1 2 3\n",
		"non-numeric": "cpu a b c d e f g h\n",
	} {
		if reading := readCPUStatsFrom(writeStat(t, content)); reading != nil {
			t.Errorf("%s: got %+v, want nil", name, reading)
		}
	}
}

func TestReadCPUStatsMissingFile(t *testing.T) {
	t.Parallel()

	if reading := readCPUStatsFrom(filepath.Join(t.TempDir(), "absent")); reading != nil {
		t.Errorf("missing file: got %+v, want nil", reading)
	}
}

func TestCPUPercent(t *testing.T) {
	t.Parallel()

	previous := &cpuReading{busy: 100, idle: 300}
	current := &cpuReading{busy: 150, idle: 350}

	// busy delta 50 of total delta 100.
	if got := cpuPercent(previous, current); got != 50 {
		t.Errorf("cpuPercent = %v, want 50", got)
	}
}

func TestCPUPercentDegenerateCases(t *testing.T) {
	t.Parallel()

	reading := &cpuReading{busy: 10, idle: 10}
	if got := cpuPercent(nil, reading); got != 0 {
		t.Errorf("nil previous: got %v, want 0", got)
	}
	if got := cpuPercent(reading, nil); got != 0 {
		t.Errorf("nil current: got %v, want 0", got)
	}
	if got := cpuPercent(reading, reading); got != 0 {
		t.Errorf("zero delta: got %v, want 0", got)
	}
}

func TestSnapshotFirstCallReportsZeroCPU(t *testing.T) {
	t.Parallel()

	prober := &Prober{statPath: writeStat(t, "cpu  100 0 0 100 0 0 0 0 0 0\n")}
	snapshot := prober.Snapshot()

	if snapshot.CPUPercent != 0 {
		t.Errorf("first CPUPercent = %v, want 0", snapshot.CPUPercent)
	}
	if snapshot.Platform == "" || snapshot.Arch == "" {
		t.Errorf("Platform/Arch missing: %+v", snapshot)
	}
	if snapshot.Memory.TotalBytes == 0 {
		t.Error("Memory.TotalBytes = 0, expected live sysinfo reading")
	}
}

func TestSnapshotDeltaCPU(t *testing.T) {
	t.Parallel()

	path := writeStat(t, "cpu  100 0 0 100 0 0 0 0 0 0\n")
	prober := &Prober{statPath: path}
	prober.Snapshot()

	// Second reading: busy advanced by 100, idle by 100 — 50% busy.
	if err := os.WriteFile(path, []byte("cpu  200 0 0 200 0 0 0 0 0 0\n"), 0o644); err != nil {
		t.Fatalf("rewriting stat: %v", err)
	}

	snapshot := prober.Snapshot()
	if snapshot.CPUPercent != 50 {
		t.Errorf("CPUPercent = %v, want 50", snapshot.CPUPercent)
	}
}
