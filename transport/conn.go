// Copyright 2026 The Procboard Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// writeWait caps a single frame write to the peer.
	writeWait = 10 * time.Second

	// pongWait is how long a connection may stay silent before it is
	// considered dead. Pings go out at pingPeriod to keep healthy
	// peers inside the window.
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// maxFrameSize bounds inbound frames. Browsers only send small
	// control messages.
	maxFrameSize = 16 * 1024

	// sendQueueSize is the per-connection outbound buffer. A viewer
	// that cannot drain a full queue loses frames rather than
	// stalling every other subscriber.
	sendQueueSize = 256
)

// Frame is the wire shape of every message, in both directions.
type Frame struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Session is one subscriber's connection as seen by frame handlers.
// Send never blocks; SetPID tags the connection with the process the
// viewer is watching.
type Session interface {
	Send(event string, payload any)
	SetPID(pid int)
	PID() int
}

// noPID marks a connection that has not been tagged with a process.
const noPID = 0

// Conn is one WebSocket subscriber in a namespace.
type Conn struct {
	ws        *websocket.Conn
	namespace *Namespace
	logger    *slog.Logger

	send      chan []byte
	closeOnce sync.Once

	mu  sync.Mutex
	pid int
}

// Send marshals {event, payload} and queues it. Frames to a
// slow-draining peer are dropped.
func (c *Conn) Send(event string, payload any) {
	data, err := marshalFrame(event, payload)
	if err != nil {
		c.logger.Error("encoding frame", "event", event, "error", err)
		return
	}
	c.enqueue(data)
}

// SetPID tags the connection with the watched process.
func (c *Conn) SetPID(pid int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pid = pid
}

// PID returns the watched process, or zero when untagged.
func (c *Conn) PID() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pid
}

// enqueue hands a pre-encoded frame to the writer. Drops when the
// queue is full so one stuck peer cannot back-pressure broadcasts.
func (c *Conn) enqueue(data []byte) {
	defer func() {
		// The queue may close between the namespace snapshot and this
		// send; a frame to a dying connection is droppable.
		recover()
	}()

	select {
	case c.send <- data:
	default:
		c.logger.Warn("dropping frame, send queue full")
	}
}

// close shuts the send queue exactly once, which ends writeLoop.
func (c *Conn) close() {
	c.closeOnce.Do(func() { close(c.send) })
}

// readLoop decodes inbound frames and dispatches them to the
// namespace's handlers until the peer goes away.
func (c *Conn) readLoop() {
	defer c.namespace.drop(c)

	c.ws.SetReadLimit(maxFrameSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var frame Frame
		if err := c.ws.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("read failed", "error", err)
			}
			return
		}
		c.namespace.dispatch(c, frame)
	}
}

// writeLoop drains the send queue onto the socket and keeps the peer
// alive with pings. Returns when the queue closes or a write fails.
func (c *Conn) writeLoop() {
	pinger := time.NewTicker(pingPeriod)
	defer pinger.Stop()
	defer c.ws.Close()

	for {
		select {
		case data, open := <-c.send:
			if !open {
				c.ws.SetWriteDeadline(time.Now().Add(writeWait))
				c.ws.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-pinger.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func marshalFrame(event string, payload any) ([]byte, error) {
	frame := struct {
		Event   string `json:"event"`
		Payload any    `json:"payload,omitempty"`
	}{Event: event, Payload: payload}
	return json.Marshal(frame)
}
