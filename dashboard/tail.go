// Copyright 2026 The Procboard Authors
// SPDX-License-Identifier: Apache-2.0

package dashboard

import (
	"fmt"

	"github.com/procboard/procboard/lib/logline"
)

// TailStream is one live tail of a process's log file. Lines are
// delivered until Stop is called or the underlying source ends, after
// which the channel closes.
type TailStream interface {
	Lines() <-chan string
	Stop()
}

// TailStarter opens tail streams. Production wiring uses
// ExecTailStarter; tests substitute fakes.
type TailStarter interface {
	Start(path string, lines int) (TailStream, error)
}

// logPayload is the log-namespace frame body.
type logPayload struct {
	PID     int    `json:"pid"`
	Message string `json:"msg"`
}

// ensureTail starts tailing the pid's log file unless a tail already
// exists. Lines are formatted per keepANSI and broadcast on the log
// namespace. Failure to start broadcasts a styled error line for the
// pid and stores nothing.
func (d *Dashboard) ensureTail(pid int, keepANSI bool) {
	d.tailMu.Lock()
	if _, exists := d.tails[pid]; exists {
		d.tailMu.Unlock()
		return
	}

	logPath, ok := d.logPathFor(pid)
	if !ok {
		d.tailMu.Unlock()
		d.broadcast(d.log, "log", logPayload{
			PID:     pid,
			Message: logline.FormatError(fmt.Sprintf("no log path known for pid %d", pid), keepANSI),
		})
		return
	}

	stream, err := d.tailStarter.Start(logPath, d.tailLines)
	if err != nil {
		d.tailMu.Unlock()
		d.logger.Warn("starting tail failed", "pid", pid, "path", logPath, "error", err)
		d.broadcast(d.log, "log", logPayload{
			PID:     pid,
			Message: logline.FormatError("tail failed: "+err.Error(), keepANSI),
		})
		return
	}

	d.tails[pid] = stream
	d.tailMu.Unlock()

	d.logger.Debug("tail started", "pid", pid, "path", logPath)
	go d.pumpTail(pid, stream, keepANSI)
}

// pumpTail forwards one stream's lines to the log namespace. A single
// goroutine per pid keeps that pid's line order intact.
func (d *Dashboard) pumpTail(pid int, stream TailStream, keepANSI bool) {
	for line := range stream.Lines() {
		d.broadcast(d.log, "log", logPayload{PID: pid, Message: logline.Format(line, keepANSI)})
	}
}

// killTail stops and removes one tail. Stopping an already-dead tail
// is not an error.
func (d *Dashboard) killTail(pid int) {
	d.tailMu.Lock()
	stream, exists := d.tails[pid]
	delete(d.tails, pid)
	d.tailMu.Unlock()

	if exists {
		stream.Stop()
		d.logger.Debug("tail stopped", "pid", pid)
	}
}

// sweepTails kills every tail whose pid is no longer claimed by a
// connected log-namespace viewer. Runs on each log disconnect.
func (d *Dashboard) sweepTails() {
	claimed := make(map[int]struct{})
	for _, pid := range d.log.PIDs() {
		claimed[pid] = struct{}{}
	}

	d.tailMu.Lock()
	var victims []TailStream
	for pid, stream := range d.tails {
		if _, keep := claimed[pid]; keep {
			continue
		}
		victims = append(victims, stream)
		delete(d.tails, pid)
		d.logger.Debug("tail swept", "pid", pid)
	}
	d.tailMu.Unlock()

	for _, stream := range victims {
		stream.Stop()
	}
}

// tailCount reports live tails, for tests and introspection.
func (d *Dashboard) tailCount() int {
	d.tailMu.Lock()
	defer d.tailMu.Unlock()
	return len(d.tails)
}
