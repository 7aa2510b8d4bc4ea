// Copyright 2026 The Procboard Authors
// SPDX-License-Identifier: Apache-2.0

package supervisor

import (
	"context"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/procboard/procboard/lib/codec"
)

// dialTimeout caps the connect phase of each RPC call, separate from
// the response deadline.
const dialTimeout = 5 * time.Second

// responseReadTimeout is how long the client waits for the supervisor
// to answer after the request is written.
const responseReadTimeout = 30 * time.Second

// maxResponseSize bounds a single CBOR response. Process lists for
// large fleets fit comfortably within a megabyte.
const maxResponseSize = 1024 * 1024

// Error is returned by RPC calls when the supervisor answers ok=false.
// Callers distinguish it from connection and encoding failures to
// decide whether the supervisor itself rejected the request.
type Error struct {
	Action  string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("supervisor error on %q: %s", e.Action, e.Message)
}

// response is the wire envelope for every RPC reply.
type response struct {
	OK    bool             `cbor:"ok"`
	Error string           `cbor:"error,omitempty"`
	Data  codec.RawMessage `cbor:"data,omitempty"`
}

// Client issues RPC calls to the supervisor's request/response socket.
// Each call opens a fresh connection, matching the supervisor's
// one-request-per-connection model.
type Client struct {
	socketPath string
}

// NewClient returns a Client for the RPC socket at socketPath.
func NewClient(socketPath string) *Client {
	return &Client{socketPath: socketPath}
}

// actionReply carries the supervisor's answer to an action request.
type actionReply struct {
	// Refresh is set when the action changed process state and the
	// dashboard should re-list.
	Refresh bool `cbor:"refresh"`
}

// Action asks the supervisor to apply a lifecycle action ("restart",
// "stop", ...) to the process with the given supervisor id. Returns
// whether the supervisor signalled that a process-list refresh is
// warranted.
func (c *Client) Action(ctx context.Context, name string, id int) (bool, error) {
	var reply actionReply
	err := c.call(ctx, "action", map[string]any{"name": name, "id": id}, &reply)
	if err != nil {
		return false, err
	}
	return reply.Refresh, nil
}

// listReply carries the supervisor's process list.
type listReply struct {
	Processes []Process `cbor:"processes"`
}

// List returns every supervised process. The environments come back
// raw; callers filter with FilterEnvironment.
func (c *Client) List(ctx context.Context) ([]Process, error) {
	var reply listReply
	if err := c.call(ctx, "list", nil, &reply); err != nil {
		return nil, err
	}
	return reply.Processes, nil
}

// versionReply carries the supervisor's version string.
type versionReply struct {
	Version string `cbor:"version"`
}

// Version returns the supervisor's version string, or an error when
// the call fails. The caller decides what a missing version degrades
// to — this method reports failures honestly.
func (c *Client) Version(ctx context.Context) (string, error) {
	var reply versionReply
	if err := c.call(ctx, "version", nil, &reply); err != nil {
		return "", err
	}
	return reply.Version, nil
}

// call connects, writes {action, ...fields}, and decodes the reply's
// data into result (when non-nil). A reply with ok=false becomes an
// *Error.
func (c *Client) call(ctx context.Context, action string, fields map[string]any, result any) error {
	request := make(map[string]any, len(fields)+1)
	for key, value := range fields {
		request[key] = value
	}
	request["action"] = action

	reply, err := c.send(ctx, request)
	if err != nil {
		return fmt.Errorf("calling %q on %s: %w", action, c.socketPath, err)
	}

	if !reply.OK {
		return &Error{Action: action, Message: reply.Error}
	}

	if result != nil && len(reply.Data) > 0 {
		if err := codec.Unmarshal(reply.Data, result); err != nil {
			return fmt.Errorf("decoding %q response: %w", action, err)
		}
	}
	return nil
}

// send performs one connection's request/response cycle.
func (c *Client) send(ctx context.Context, request any) (*response, error) {
	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		return nil, fmt.Errorf("connecting: %w", err)
	}
	defer conn.Close()

	if err := codec.NewEncoder(conn).Encode(request); err != nil {
		return nil, fmt.Errorf("writing request: %w", err)
	}

	// Half-close the write side so the supervisor's read loop sees a
	// clean EOF. CBOR is self-delimiting, but not every server reads
	// incrementally.
	if unixConn, ok := conn.(*net.UnixConn); ok {
		unixConn.CloseWrite()
	}

	deadline := time.Now().Add(responseReadTimeout)
	if contextDeadline, ok := ctx.Deadline(); ok && contextDeadline.Before(deadline) {
		deadline = contextDeadline
	}
	conn.SetReadDeadline(deadline)

	var reply response
	if err := codec.NewDecoder(io.LimitReader(conn, maxResponseSize)).Decode(&reply); err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	return &reply, nil
}
