// Copyright 2026 The Procboard Authors
// SPDX-License-Identifier: Apache-2.0

// Package logline renders tailed log lines for display.
//
// A viewer that renders into a terminal asks for raw lines and gets
// them byte-for-byte, escape sequences included. A browser viewer gets
// HTML: text is entity-escaped and SGR color/attribute sequences are
// translated into styled spans, so colored supervisor output survives
// the trip into a web dashboard. Non-SGR escape sequences (cursor
// movement, screen clearing) carry no meaning in a log pane and are
// dropped.
package logline
