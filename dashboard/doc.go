// Copyright 2026 The Procboard Authors
// SPDX-License-Identifier: Apache-2.0

// Package dashboard is the telemetry core: it bridges the supervisor's
// RPC and event sockets to the WebSocket namespaces, runs the
// system-stats heartbeat, and manages demand-keyed log tails and
// per-process usage samplers.
//
// Everything here is driven by subscriber demand. The heartbeat runs
// only while the system namespace has connections; a tail or usage
// sampler exists only while some viewer's last request claims its pid;
// and no broadcast is delivered anywhere while the system namespace is
// empty.
package dashboard
