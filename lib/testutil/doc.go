// Copyright 2026 The Procboard Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for procboard packages.
//
// [RequireReceive] and [RequireClosed] encapsulate the timeout safety
// valve pattern (select with time.After fallback) so individual tests
// do not need direct time.After calls — these are the only wall-clock
// timeouts in the test suite; everything timer-driven runs on a fake
// clock.
//
// [SocketDir] creates a short-pathed temporary directory for Unix
// domain sockets, which are limited to 108-byte paths (sun_path in
// sockaddr_un) and so cannot always live under t.TempDir().
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
//
// This package has no procboard-internal dependencies.
package testutil
