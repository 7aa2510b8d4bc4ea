// Copyright 2026 The Procboard Authors
// SPDX-License-Identifier: Apache-2.0

package dashboard

import (
	"context"
	"time"

	"github.com/procboard/procboard/lib/sysprobe"
	"github.com/procboard/procboard/supervisor"
	"github.com/procboard/procboard/transport"
)

// versionFallback is what the dashboard reports when the supervisor's
// version cannot be fetched. Version display is best-effort.
const versionFallback = "0.0.0"

// rpcTimeout bounds supervisor calls made on behalf of a subscriber.
const rpcTimeout = 10 * time.Second

// actionResult is broadcast on the system namespace after an action
// request. Error is set when the supervisor rejected or the call
// failed.
type actionResult struct {
	Name  string `json:"name"`
	ID    int    `json:"id"`
	Error string `json:"error,omitempty"`
}

// infoMessage is broadcast on the system namespace when there is no
// process list to send. Subscribers distinguish it from procs by event
// name.
type infoMessage struct {
	Message string `json:"msg"`
}

// dispatchAction forwards a lifecycle action to the supervisor and
// answers the requesting session directly: the outcome of an action is
// request-local, unlike the process-list refresh it may warrant, which
// every viewer sees. A successful refresh-warranting reply schedules a
// debounced refresh.
func (d *Dashboard) dispatchAction(session transport.Session, name string, id int) {
	ctx, cancel := context.WithTimeout(context.Background(), rpcTimeout)
	defer cancel()

	refresh, err := d.client.Action(ctx, name, id)
	if err != nil {
		d.logger.Warn("supervisor action failed", "action", name, "id", id, "error", err)
		session.Send("action", actionResult{Name: name, ID: id, Error: err.Error()})
		return
	}

	session.Send("action", actionResult{Name: name, ID: id})
	if refresh {
		d.gate.Trigger(d.refreshFromGate)
	}
}

// refreshFromGate is the debounced refresh entry point shared by
// action replies and supervisor events.
func (d *Dashboard) refreshFromGate() {
	ctx, cancel := context.WithTimeout(context.Background(), rpcTimeout)
	defer cancel()
	d.RefreshProcesses(ctx)
}

// RefreshProcesses lists the supervisor's processes, filters each
// environment, replaces the cached snapshot set wholesale, and
// broadcasts procs to the system namespace. A listing failure
// broadcasts info instead; the stale cache is kept.
func (d *Dashboard) RefreshProcesses(ctx context.Context) {
	processes, err := d.client.List(ctx)
	if err != nil {
		d.logger.Warn("listing processes failed", "error", err)
		d.broadcast(d.system, "info", infoMessage{Message: "listing processes failed: " + err.Error()})
		return
	}

	for i := range processes {
		processes[i].Environment = supervisor.FilterEnvironment(processes[i].Environment)
	}

	d.mu.Lock()
	d.procs = processes
	d.procsKnown = true
	d.mu.Unlock()

	d.logger.Debug("process cache replaced", "processes", len(processes))
	d.broadcast(d.system, "procs", processes)
}

// FetchVersion asks the supervisor for its version. Any failure or an
// empty answer degrades to "0.0.0".
func (d *Dashboard) FetchVersion(ctx context.Context) {
	version, err := d.client.Version(ctx)
	if err != nil || version == "" {
		d.logger.Warn("supervisor version unavailable", "error", err)
		version = versionFallback
	}

	d.mu.Lock()
	d.version = version
	d.mu.Unlock()
}

// Version returns the last fetched supervisor version, or "0.0.0".
func (d *Dashboard) Version() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.version
}

// ConsumeEvents debounces supervisor events into process refreshes
// until the channel closes or ctx ends. Every event kind counts as a
// change signal.
func (d *Dashboard) ConsumeEvents(ctx context.Context, events <-chan supervisor.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, open := <-events:
			if !open {
				return
			}
			d.logger.Debug("supervisor event",
				"event", event.Event, "process", event.Process.Name, "id", event.Process.ID)
			d.gate.Trigger(d.refreshFromGate)
		}
	}
}

// logPathFor resolves a pid to its log path from the process cache.
func (d *Dashboard) logPathFor(pid int) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, process := range d.procs {
		if process.PID == pid {
			return process.LogPath, process.LogPath != ""
		}
	}
	return "", false
}

// cachedState returns the current process and system caches for replay
// to a new system subscriber.
func (d *Dashboard) cachedState() ([]supervisor.Process, bool, *sysprobe.Snapshot) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.procs, d.procsKnown, d.sysCache
}
