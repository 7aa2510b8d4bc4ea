// Copyright 2026 The Procboard Authors
// SPDX-License-Identifier: Apache-2.0

// Package supervisor is the client side of the process-supervisor
// daemon's two Unix sockets.
//
// The RPC socket speaks a CBOR request/response protocol, one request
// per connection: the client writes {action, ...fields}, the server
// replies {ok, error, data}. [Client.Action], [Client.List], and
// [Client.Version] wrap the three operations the dashboard uses.
//
// The event socket is a publication stream: [Subscribe] opens a
// long-lived connection and delivers every CBOR-encoded lifecycle
// event ({event, process:{name, pm_id}}) on a channel until the
// context is cancelled or the supervisor closes the stream. The
// dashboard does not care which kind of event arrived — any event
// means the process list is stale.
//
// [FilterEnvironment] reduces a process's raw environment to the keys
// meaningful to a dashboard viewer, dropping supervisor-internal and
// system-level entries.
package supervisor
