// Copyright 2026 The Procboard Authors
// SPDX-License-Identifier: Apache-2.0

package supervisor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/procboard/procboard/lib/codec"
)

// Subscription is a live connection to the supervisor's event
// publication socket. Events arrive on [Subscription.Events] until the
// context is cancelled or the supervisor closes the stream; the
// channel is closed when the subscription ends.
type Subscription struct {
	conn   net.Conn
	events chan Event
	done   chan struct{}

	// err holds the terminal read error, if any. Valid after done is
	// closed.
	err error
}

// Subscribe opens the event stream at socketPath. Cancelling ctx tears
// the subscription down.
func Subscribe(ctx context.Context, socketPath string) (*Subscription, error) {
	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("connecting to event socket %s: %w", socketPath, err)
	}

	s := &Subscription{
		conn:   conn,
		events: make(chan Event, 16),
		done:   make(chan struct{}),
	}

	// Closing the connection is the only way to unblock a pending
	// Decode, so context cancellation maps to conn.Close.
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-s.done:
		}
	}()

	go s.read(ctx)
	return s, nil
}

// Events returns the channel delivering supervisor events. Closed when
// the subscription ends.
func (s *Subscription) Events() <-chan Event {
	return s.events
}

// Err reports why the subscription ended: nil for a context cancel or
// clean EOF, the read error otherwise. Only meaningful after Events is
// closed.
func (s *Subscription) Err() error {
	select {
	case <-s.done:
		return s.err
	default:
		return nil
	}
}

// read decodes the CBOR event stream until it fails or ctx ends.
func (s *Subscription) read(ctx context.Context) {
	defer close(s.events)
	defer close(s.done)
	defer s.conn.Close()

	decoder := codec.NewDecoder(s.conn)
	for {
		var event Event
		if err := decoder.Decode(&event); err != nil {
			if ctx.Err() == nil && !errors.Is(err, io.EOF) {
				s.err = fmt.Errorf("reading event stream: %w", err)
			}
			return
		}

		select {
		case s.events <- event:
		case <-ctx.Done():
			return
		}
	}
}
