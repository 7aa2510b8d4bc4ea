// Copyright 2026 The Procboard Authors
// SPDX-License-Identifier: Apache-2.0

// Package throttle coalesces bursts of triggers into a single action.
//
// The supervisor emits one event per process transition, and a restart
// of a dozen processes arrives as a dozen events within milliseconds.
// Refreshing the process list once per event would hammer the
// supervisor's RPC socket for identical results, so the bridge routes
// every event through a [Gate]: each trigger re-arms a debounce timer,
// and the action runs exactly once, a full window after the burst's
// last trigger.
package throttle
