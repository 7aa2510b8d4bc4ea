// Copyright 2026 The Procboard Authors
// SPDX-License-Identifier: Apache-2.0

// Package transport hosts the dashboard's WebSocket endpoints. Each
// namespace (system, log, process) is an independent topic: browsers
// connect to one namespace, receive broadcasts published to it, and
// send small JSON frames that are dispatched to registered handlers.
//
// A frame on the wire is {"event": ..., "payload": ...} in both
// directions. Connections carry an optional PID tag so the log and
// process namespaces can tell which process each viewer is watching.
package transport
