// Copyright 2026 The Procboard Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML values can be written in the
// human form ("500ms", "5s") instead of nanosecond integers.
type Duration time.Duration

// UnmarshalYAML parses a duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var text string
	if err := value.Decode(&text); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(text)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the procboardd configuration.
type Config struct {
	// Listen is the TCP address the dashboard serves WebSocket
	// namespaces on.
	Listen string `yaml:"listen"`

	// Secret is the shared-secret token required from every incoming
	// connection. Empty disables the access gate.
	Secret string `yaml:"secret"`

	// Supervisor locates the supervisor daemon's sockets.
	Supervisor SupervisorConfig `yaml:"supervisor"`

	// HeartbeatInterval is the system-stats refresh period.
	HeartbeatInterval Duration `yaml:"heartbeat_interval"`

	// UsageInterval is the per-process sampling period.
	UsageInterval Duration `yaml:"usage_interval"`

	// DebounceWindow coalesces supervisor event bursts into one
	// process-list refresh.
	DebounceWindow Duration `yaml:"debounce_window"`

	// TailLines is how much history a fresh tail replays before
	// following.
	TailLines int `yaml:"tail_lines"`
}

// SupervisorConfig locates the supervisor daemon.
type SupervisorConfig struct {
	// RPCSocket is the Unix socket for request/response calls
	// (action, list, version).
	RPCSocket string `yaml:"rpc_socket"`

	// EventSocket is the Unix socket publishing lifecycle events.
	EventSocket string `yaml:"event_socket"`
}

// Default returns the configuration procboardd runs with when no file
// and no flags are given.
func Default() Config {
	return Config{
		Listen: "127.0.0.1:8088",
		Supervisor: SupervisorConfig{
			RPCSocket:   "/run/supervisor/rpc.sock",
			EventSocket: "/run/supervisor/pub.sock",
		},
		HeartbeatInterval: Duration(5 * time.Second),
		UsageInterval:     Duration(3 * time.Second),
		DebounceWindow:    Duration(500 * time.Millisecond),
		TailLines:         20,
	}
}

// LoadFile reads path into a Config layered over Default. Unset fields
// keep their defaults.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects configurations the daemon cannot run with.
func (c Config) Validate() error {
	if c.Listen == "" {
		return fmt.Errorf("listen address is required")
	}
	if c.Supervisor.RPCSocket == "" {
		return fmt.Errorf("supervisor rpc_socket is required")
	}
	if c.Supervisor.EventSocket == "" {
		return fmt.Errorf("supervisor event_socket is required")
	}
	if c.HeartbeatInterval <= 0 {
		return fmt.Errorf("heartbeat_interval must be positive")
	}
	if c.UsageInterval <= 0 {
		return fmt.Errorf("usage_interval must be positive")
	}
	if c.DebounceWindow <= 0 {
		return fmt.Errorf("debounce_window must be positive")
	}
	if c.TailLines < 0 {
		return fmt.Errorf("tail_lines must not be negative")
	}
	return nil
}
