// Copyright 2026 The Procboard Authors
// SPDX-License-Identifier: Apache-2.0

// Procboardd is the dashboard telemetry daemon. It bridges a process
// supervisor's Unix sockets to WebSocket namespaces (system, log,
// process) serving live process lists, log tails, per-process usage
// samples, and a system-stats heartbeat.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/procboard/procboard/dashboard"
	"github.com/procboard/procboard/lib/config"
	"github.com/procboard/procboard/lib/endpoint"
	"github.com/procboard/procboard/lib/sysprobe"
	"github.com/procboard/procboard/lib/usageprobe"
	"github.com/procboard/procboard/lib/version"
	"github.com/procboard/procboard/supervisor"
	"github.com/procboard/procboard/transport"
)

// reconnectDelay paces event-socket redial attempts after the stream
// drops.
const reconnectDelay = 2 * time.Second

// shutdownTimeout bounds the HTTP server's drain on exit.
const shutdownTimeout = 5 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	flagSet := newFlagSet()
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	if showVersion, _ := flagSet.GetBool("version"); showVersion {
		fmt.Printf("procboardd %s\n", version.Full())
		return nil
	}

	cfg := config.Default()
	if configPath, _ := flagSet.GetString("config"); configPath != "" {
		loaded, err := config.LoadFile(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if err := applyFlags(&cfg, flagSet); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	debug, _ := flagSet.GetBool("debug")

	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	// The supervisor must already be running: a missing socket is a
	// configuration problem, not something to retry through.
	for _, socketPath := range []string{cfg.Supervisor.RPCSocket, cfg.Supervisor.EventSocket} {
		if _, err := os.Stat(socketPath); err != nil {
			return fmt.Errorf("supervisor socket unavailable: %w", err)
		}
	}

	logger.Info("starting procboardd",
		"version", version.Info(),
		"listen", cfg.Listen,
		"rpc_socket", cfg.Supervisor.RPCSocket,
		"event_socket", cfg.Supervisor.EventSocket,
		"secured", cfg.Secret != "",
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hub := transport.NewHub(cfg.Secret, logger.With("component", "transport"))

	board := dashboard.New(dashboard.Options{
		Logger:            logger.With("component", "dashboard"),
		Client:            supervisor.NewClient(cfg.Supervisor.RPCSocket),
		SystemProbe:       sysprobe.New(),
		UsageProbe:        usageprobe.New(),
		Tails:             dashboard.ExecTailStarter{},
		System:            hub.System(),
		Log:               hub.Log(),
		Process:           hub.Process(),
		HeartbeatInterval: cfg.HeartbeatInterval.Std(),
		UsageInterval:     cfg.UsageInterval.Std(),
		DebounceWindow:    cfg.DebounceWindow.Std(),
		TailLines:         cfg.TailLines,
	})
	defer board.Close()

	board.FetchVersion(ctx)
	logger.Info("supervisor reachable", "supervisor_version", board.Version())
	board.RefreshProcesses(ctx)

	go consumeEvents(ctx, logger, cfg.Supervisor.EventSocket, board)

	listener, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", cfg.Listen, err)
	}

	server := &http.Server{Handler: hub}
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Serve(listener)
	}()

	// The published connection string deliberately omits the secret.
	logger.Info("serving namespaces",
		"address", listener.Addr().String(),
		"endpoint", publishedEndpoint(listener.Addr().String()),
	)

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("server shutdown incomplete", "error", err)
		}
		return nil
	case err := <-serveErr:
		return fmt.Errorf("serving: %w", err)
	}
}

// newFlagSet declares the daemon's command-line flags.
func newFlagSet() *pflag.FlagSet {
	flagSet := pflag.NewFlagSet("procboardd", pflag.ContinueOnError)
	flagSet.String("config", "", "path to YAML config file")
	flagSet.String("endpoint", "", "connection string selecting address and secret, e.g. mytoken@http://127.0.0.1:8088")
	flagSet.String("listen", "", "TCP address to serve WebSocket namespaces on")
	flagSet.String("supervisor-socket", "", "path to the supervisor's RPC socket")
	flagSet.String("event-socket", "", "path to the supervisor's event socket")
	flagSet.String("secret", "", "shared secret required from connecting viewers")
	flagSet.Duration("heartbeat-interval", 0, "system-stats refresh period")
	flagSet.Bool("debug", false, "log at debug level")
	flagSet.Bool("version", false, "print version information and exit")
	return flagSet
}

// applyFlags overlays explicitly set flags onto the configuration.
// Flags win over the config file, and the discrete --listen and
// --secret flags win over the combined --endpoint string.
func applyFlags(cfg *config.Config, flagSet *pflag.FlagSet) error {
	if flagSet.Changed("endpoint") {
		text, _ := flagSet.GetString("endpoint")
		parsed, err := endpoint.Parse(text)
		if err != nil {
			return fmt.Errorf("invalid --endpoint: %w", err)
		}
		cfg.Listen = net.JoinHostPort(parsed.Hostname, strconv.Itoa(parsed.Port))
		if parsed.Authorization != "" {
			cfg.Secret = parsed.Authorization
		}
	}
	if flagSet.Changed("listen") {
		cfg.Listen, _ = flagSet.GetString("listen")
	}
	if flagSet.Changed("supervisor-socket") {
		cfg.Supervisor.RPCSocket, _ = flagSet.GetString("supervisor-socket")
	}
	if flagSet.Changed("event-socket") {
		cfg.Supervisor.EventSocket, _ = flagSet.GetString("event-socket")
	}
	if flagSet.Changed("secret") {
		cfg.Secret, _ = flagSet.GetString("secret")
	}
	if flagSet.Changed("heartbeat-interval") {
		interval, _ := flagSet.GetDuration("heartbeat-interval")
		cfg.HeartbeatInterval = config.Duration(interval)
	}
	return nil
}

// publishedEndpoint renders the listener address as a connection
// string viewers can dial.
func publishedEndpoint(address string) string {
	host, portText, err := net.SplitHostPort(address)
	if err != nil {
		return address
	}
	port, err := strconv.Atoi(portText)
	if err != nil {
		return address
	}
	return endpoint.Endpoint{Hostname: host, Port: port}.String()
}

// consumeEvents keeps a subscription to the supervisor's event socket
// alive until ctx ends, redialing with a fixed delay when the stream
// drops.
func consumeEvents(ctx context.Context, logger *slog.Logger, socketPath string, board *dashboard.Dashboard) {
	for ctx.Err() == nil {
		subscription, err := supervisor.Subscribe(ctx, socketPath)
		if err != nil {
			logger.Warn("event subscription failed", "error", err)
		} else {
			logger.Info("subscribed to supervisor events")
			board.ConsumeEvents(ctx, subscription.Events())
			if err := subscription.Err(); err != nil {
				logger.Warn("event stream ended", "error", err)
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectDelay):
		}
	}
}
