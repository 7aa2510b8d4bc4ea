// Copyright 2026 The Procboard Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock abstracts timers and tickers behind an injectable
// interface. The throttle gate, heartbeat loop, and usage samplers all
// schedule work through a [Clock]; production code injects [Real] and
// tests inject [Fake], which advances only under explicit test control
// so timer-driven behavior is deterministic.
package clock
