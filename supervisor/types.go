// Copyright 2026 The Procboard Authors
// SPDX-License-Identifier: Apache-2.0

package supervisor

import "strings"

// Process is one supervised process as reported by the supervisor's
// list operation. The dashboard replaces its cached set wholesale on
// every refresh; snapshots are never patched in place.
type Process struct {
	// PID is the OS process id.
	PID int `json:"pid"`

	// Name is the supervisor's display name for the process.
	Name string `json:"name"`

	// ID is the supervisor-assigned stable id, distinct from the PID,
	// which changes across restarts.
	ID int `json:"pm_id"`

	// Status is the supervisor's lifecycle state ("online",
	// "stopped", "errored", ...). Untyped: the dashboard displays it
	// verbatim.
	Status string `json:"status"`

	// LogPath is the file the process's output is written to, used
	// to start tails.
	LogPath string `json:"log_path"`

	// Environment is the filtered environment map (see
	// FilterEnvironment).
	Environment map[string]string `json:"env"`
}

// Event is one message from the supervisor's publication socket. The
// shape beyond this is intentionally untyped — the dashboard treats
// every event identically.
type Event struct {
	// Event names the transition ("start", "stop", "restart",
	// "exit", "online", ...).
	Event string `json:"event"`

	// Process identifies the affected process.
	Process EventProcess `json:"process"`
}

// EventProcess is the process identification carried in an Event.
type EventProcess struct {
	Name string `json:"name"`
	ID   int    `json:"pm_id"`
}

// droppedKeys are environment keys excluded by name.
var droppedKeys = map[string]bool{
	"versioning": true,
	"command":    true,
}

// FilterEnvironment reduces a raw process environment to the keys a
// dashboard viewer cares about. A key is dropped when it starts with
// "_", starts with "axm_", is on the denylist, or its first byte is <=
// 'Z' — which cuts every ALL-CAPS system variable in one stroke. The
// raw USER value survives as a synthesized lowercase "user" entry.
func FilterEnvironment(raw map[string]string) map[string]string {
	filtered := make(map[string]string)

	if user, ok := raw["USER"]; ok {
		filtered["user"] = user
	}

	for key, value := range raw {
		if key == "" || droppedKeys[key] {
			continue
		}
		if strings.HasPrefix(key, "_") || strings.HasPrefix(key, "axm_") {
			continue
		}
		if key[0] <= 'Z' {
			continue
		}
		filtered[key] = value
	}

	return filtered
}
