// Copyright 2026 The Procboard Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides CBOR encoding and decoding for the supervisor
// wire protocol. Encoding uses Core Deterministic Encoding so the same
// logical request always produces identical bytes; decoding ignores
// unknown fields for forward compatibility with newer supervisors.
package codec
