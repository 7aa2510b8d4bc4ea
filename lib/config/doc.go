// Copyright 2026 The Procboard Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for procboard.
//
// Configuration comes from a single file passed via --config. There
// are no fallbacks, no ~/.config discovery, and no automatic file
// search: deterministic, auditable configuration with no hidden
// overrides. Flags set on the command line win over file values;
// [Default] supplies the values for everything left unset.
package config
