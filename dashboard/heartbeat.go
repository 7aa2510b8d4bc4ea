// Copyright 2026 The Procboard Authors
// SPDX-License-Identifier: Apache-2.0

package dashboard

// startHeartbeat begins the system-stats tick chain unless one is
// already running. Called on every system-namespace connect; the chain
// itself winds down when the namespace empties, so reconnecting
// viewers restart it here.
func (d *Dashboard) startHeartbeat() {
	d.heartbeatMu.Lock()
	defer d.heartbeatMu.Unlock()
	if d.heartbeatRunning {
		return
	}
	d.heartbeatRunning = true
	d.clock.AfterFunc(d.heartbeatInterval, d.heartbeatTick)
	d.logger.Debug("heartbeat started", "interval", d.heartbeatInterval)
}

// heartbeatTick is one beat: stop if nobody is watching, otherwise
// snapshot, cache, broadcast, and schedule the next beat.
func (d *Dashboard) heartbeatTick() {
	d.heartbeatMu.Lock()
	if d.system.Count() == 0 {
		d.heartbeatRunning = false
		d.heartbeatMu.Unlock()
		d.logger.Debug("heartbeat stopped, no system subscribers")
		return
	}
	d.heartbeatMu.Unlock()

	snapshot := d.systemProbe.Snapshot()
	d.mu.Lock()
	d.sysCache = &snapshot
	d.mu.Unlock()

	d.broadcast(d.system, "system", snapshot)

	d.heartbeatMu.Lock()
	defer d.heartbeatMu.Unlock()
	if d.heartbeatRunning {
		d.clock.AfterFunc(d.heartbeatInterval, d.heartbeatTick)
	}
}
