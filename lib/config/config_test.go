// Copyright 2026 The Procboard Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "procboard.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestDefaultValidates(t *testing.T) {
	t.Parallel()
	if err := Default().Validate(); err != nil {
		t.Errorf("Default config invalid: %v", err)
	}
}

func TestLoadFileOverlaysDefaults(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, `
listen: "0.0.0.0:9000"
secret: hunter2
heartbeat_interval: 10s
supervisor:
  rpc_socket: /tmp/sup/rpc.sock
  event_socket: /tmp/sup/pub.sock
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	if cfg.Listen != "0.0.0.0:9000" {
		t.Errorf("Listen = %q", cfg.Listen)
	}
	if cfg.Secret != "hunter2" {
		t.Errorf("Secret = %q", cfg.Secret)
	}
	if cfg.HeartbeatInterval.Std() != 10*time.Second {
		t.Errorf("HeartbeatInterval = %v", cfg.HeartbeatInterval.Std())
	}
	// Unset fields keep their defaults.
	if cfg.UsageInterval.Std() != 3*time.Second {
		t.Errorf("UsageInterval = %v, want default 3s", cfg.UsageInterval.Std())
	}
	if cfg.TailLines != 20 {
		t.Errorf("TailLines = %d, want default 20", cfg.TailLines)
	}
}

func TestLoadFileBadDuration(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "heartbeat_interval: soon\n")

	if _, err := LoadFile(path); err == nil {
		t.Error("LoadFile should reject an unparseable duration")
	}
}

func TestLoadFileMissing(t *testing.T) {
	t.Parallel()
	if _, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("LoadFile of a missing file should fail")
	}
}

func TestValidateRejectsZeroIntervals(t *testing.T) {
	t.Parallel()
	cfg := Default()
	cfg.HeartbeatInterval = 0
	if err := cfg.Validate(); err == nil {
		t.Error("Validate should reject zero heartbeat_interval")
	}
}

func TestValidateRejectsEmptySockets(t *testing.T) {
	t.Parallel()
	cfg := Default()
	cfg.Supervisor.RPCSocket = ""
	if err := cfg.Validate(); err == nil {
		t.Error("Validate should reject empty rpc_socket")
	}
}
