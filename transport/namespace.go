// Copyright 2026 The Procboard Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// HandlerFunc handles one inbound frame on a namespace. The payload is
// the raw JSON the client sent, possibly nil.
type HandlerFunc func(session Session, payload json.RawMessage)

// Topic is the namespace surface the dashboard publishes to and
// observes. Implemented by *Namespace; tests substitute fakes.
type Topic interface {
	// Broadcast sends {event, payload} to every connection.
	Broadcast(event string, payload any)

	// Count reports how many connections are currently subscribed.
	Count() int

	// PIDs returns the distinct nonzero PID tags across connections.
	PIDs() []int

	// HandleFunc registers the handler for an inbound event name.
	HandleFunc(event string, handler HandlerFunc)

	// OnConnect and OnDisconnect register lifecycle callbacks. The
	// disconnect callback receives the session after it has already
	// left the namespace.
	OnConnect(callback func(session Session))
	OnDisconnect(callback func(session Session))
}

// Namespace is one WebSocket topic. Connections join on upgrade and
// leave when their read loop ends.
type Namespace struct {
	name   string
	logger *slog.Logger

	mu           sync.Mutex
	conns        map[*Conn]struct{}
	handlers     map[string]HandlerFunc
	onConnect    func(Session)
	onDisconnect func(Session)
}

func newNamespace(name string, logger *slog.Logger) *Namespace {
	return &Namespace{
		name:     name,
		logger:   logger.With("namespace", name),
		conns:    make(map[*Conn]struct{}),
		handlers: make(map[string]HandlerFunc),
	}
}

// Name returns the namespace's path segment.
func (n *Namespace) Name() string { return n.name }

// HandleFunc registers the handler invoked for inbound frames whose
// event matches. Registration happens at wiring time, before the
// server accepts connections.
func (n *Namespace) HandleFunc(event string, handler HandlerFunc) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.handlers[event] = handler
}

// OnConnect registers the callback run after each connection joins.
func (n *Namespace) OnConnect(callback func(Session)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.onConnect = callback
}

// OnDisconnect registers the callback run after each connection
// leaves.
func (n *Namespace) OnDisconnect(callback func(Session)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.onDisconnect = callback
}

// Broadcast encodes the frame once and queues it on every connection.
// Enqueueing happens under the namespace lock so concurrent broadcasts
// arrive in the same order on every subscriber.
func (n *Namespace) Broadcast(event string, payload any) {
	data, err := marshalFrame(event, payload)
	if err != nil {
		n.logger.Error("encoding broadcast", "event", event, "error", err)
		return
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	for conn := range n.conns {
		conn.enqueue(data)
	}
}

// Count reports the number of live connections.
func (n *Namespace) Count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.conns)
}

// PIDs returns the distinct nonzero PID tags across live connections.
func (n *Namespace) PIDs() []int {
	n.mu.Lock()
	conns := make([]*Conn, 0, len(n.conns))
	for conn := range n.conns {
		conns = append(conns, conn)
	}
	n.mu.Unlock()

	// PID() takes the connection's own lock, so collect outside ours.
	seen := make(map[int]struct{})
	var pids []int
	for _, conn := range conns {
		pid := conn.PID()
		if pid == noPID {
			continue
		}
		if _, duplicate := seen[pid]; duplicate {
			continue
		}
		seen[pid] = struct{}{}
		pids = append(pids, pid)
	}
	return pids
}

// add registers the connection and fires the connect callback.
func (n *Namespace) add(conn *Conn) {
	n.mu.Lock()
	n.conns[conn] = struct{}{}
	callback := n.onConnect
	count := len(n.conns)
	n.mu.Unlock()

	n.logger.Debug("connection joined", "connections", count)
	if callback != nil {
		callback(conn)
	}
}

// drop unregisters the connection, closes its queue, and fires the
// disconnect callback. Safe to call more than once.
func (n *Namespace) drop(conn *Conn) {
	n.mu.Lock()
	_, present := n.conns[conn]
	delete(n.conns, conn)
	callback := n.onDisconnect
	count := len(n.conns)
	n.mu.Unlock()

	if !present {
		return
	}

	conn.close()
	n.logger.Debug("connection left", "connections", count)
	if callback != nil {
		callback(conn)
	}
}

// dispatch routes one inbound frame to its handler.
func (n *Namespace) dispatch(conn *Conn, frame Frame) {
	n.mu.Lock()
	handler := n.handlers[frame.Event]
	n.mu.Unlock()

	if handler == nil {
		n.logger.Debug("no handler for frame", "event", frame.Event)
		return
	}
	handler(conn, frame.Payload)
}
