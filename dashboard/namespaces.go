// Copyright 2026 The Procboard Authors
// SPDX-License-Identifier: Apache-2.0

package dashboard

import (
	"encoding/json"

	"github.com/procboard/procboard/transport"
)

// actionRequest is the system-namespace action frame body.
type actionRequest struct {
	Name string `json:"name"`
	ID   int    `json:"id"`
}

// tailRequest is the log-namespace tail frame body.
type tailRequest struct {
	PID      int  `json:"pid"`
	KeepANSI bool `json:"keepANSI"`
}

// pidRequest is the body of frames that only pick a process.
type pidRequest struct {
	PID int `json:"pid"`
}

// bindNamespaces registers every connect, disconnect, and frame
// handler on the three topics. Called once from New, before the
// transport accepts connections.
func (d *Dashboard) bindNamespaces() {
	d.bindSystem()
	d.bindLog()
	d.bindProcess()
}

func (d *Dashboard) bindSystem() {
	d.system.OnConnect(func(session transport.Session) {
		procs, known, system := d.cachedState()
		if known {
			session.Send("procs", procs)
		} else {
			session.Send("info", infoMessage{Message: "process list pending"})
		}
		if system != nil {
			session.Send("system", *system)
		}
		d.startHeartbeat()
	})

	d.system.HandleFunc("action", func(session transport.Session, payload json.RawMessage) {
		var request actionRequest
		if err := json.Unmarshal(payload, &request); err != nil || request.Name == "" {
			d.logger.Debug("ignoring malformed action frame", "error", err)
			return
		}
		// The RPC can block for seconds; keep the reader loop free.
		go d.dispatchAction(session, request.Name, request.ID)
	})

	d.system.HandleFunc("procs", func(session transport.Session, payload json.RawMessage) {
		procs, known, _ := d.cachedState()
		if known {
			session.Send("procs", procs)
		} else {
			session.Send("info", infoMessage{Message: "process list pending"})
		}
	})

	// Presence is recomputed from the live connection count on every
	// broadcast and heartbeat tick; nothing to tear down here.
	d.system.OnDisconnect(func(transport.Session) {
		d.logger.Debug("system subscriber left", "remaining", d.system.Count())
	})
}

func (d *Dashboard) bindLog() {
	d.log.HandleFunc("tail", func(session transport.Session, payload json.RawMessage) {
		var request tailRequest
		if err := json.Unmarshal(payload, &request); err != nil || request.PID == 0 {
			d.logger.Debug("ignoring malformed tail frame", "error", err)
			return
		}
		session.SetPID(request.PID)
		d.ensureTail(request.PID, request.KeepANSI)
	})

	d.log.HandleFunc("tail_kill", func(session transport.Session, payload json.RawMessage) {
		var request pidRequest
		if err := json.Unmarshal(payload, &request); err != nil || request.PID == 0 {
			return
		}
		if session.PID() == request.PID {
			session.SetPID(0)
		}
		d.killTail(request.PID)
	})

	d.log.OnDisconnect(func(transport.Session) {
		d.sweepTails()
	})
}

func (d *Dashboard) bindProcess() {
	d.process.HandleFunc("proc", func(session transport.Session, payload json.RawMessage) {
		var request pidRequest
		if err := json.Unmarshal(payload, &request); err != nil || request.PID == 0 {
			d.logger.Debug("ignoring malformed proc frame", "error", err)
			return
		}
		session.SetPID(request.PID)
		d.ensureUsage(request.PID)
	})

	d.process.OnDisconnect(func(transport.Session) {
		d.sweepUsage()
	})
}
