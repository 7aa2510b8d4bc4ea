// Copyright 2026 The Procboard Authors
// SPDX-License-Identifier: Apache-2.0

package dashboard

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/procboard/procboard/lib/clock"
	"github.com/procboard/procboard/lib/sysprobe"
	"github.com/procboard/procboard/lib/throttle"
	"github.com/procboard/procboard/lib/usageprobe"
	"github.com/procboard/procboard/supervisor"
	"github.com/procboard/procboard/transport"
)

// Defaults applied by New when the corresponding option is zero.
const (
	DefaultHeartbeatInterval = 5 * time.Second
	DefaultUsageInterval     = 3 * time.Second
	DefaultTailLines         = 20
)

// SupervisorClient is the RPC surface the dashboard needs from the
// supervisor. Implemented by *supervisor.Client.
type SupervisorClient interface {
	Action(ctx context.Context, name string, id int) (bool, error)
	List(ctx context.Context) ([]supervisor.Process, error)
	Version(ctx context.Context) (string, error)
}

// SystemProber produces whole-machine snapshots for the heartbeat.
// Implemented by *sysprobe.Prober.
type SystemProber interface {
	Snapshot() sysprobe.Snapshot
}

// UsageProber samples one process's CPU and memory. Implemented by
// *usageprobe.Prober.
type UsageProber interface {
	Sample(pid int) (usageprobe.Sample, error)
	Forget(pid int)
	TotalMemoryBytes() (uint64, error)
}

// Options configures a Dashboard. Client, SystemProbe, UsageProbe,
// Tails, and the three topics are required; the rest default.
type Options struct {
	Logger *slog.Logger
	Clock  clock.Clock

	Client      SupervisorClient
	SystemProbe SystemProber
	UsageProbe  UsageProber
	Tails       TailStarter

	System  transport.Topic
	Log     transport.Topic
	Process transport.Topic

	HeartbeatInterval time.Duration
	UsageInterval     time.Duration
	DebounceWindow    time.Duration
	TailLines         int
}

// Dashboard wires supervisor state to namespace subscribers. Construct
// with New; the zero value is not usable.
type Dashboard struct {
	logger *slog.Logger
	clock  clock.Clock

	client      SupervisorClient
	systemProbe SystemProber
	usageProbe  UsageProber
	tailStarter TailStarter

	system  transport.Topic
	log     transport.Topic
	process transport.Topic

	gate *throttle.Gate

	heartbeatInterval time.Duration
	usageInterval     time.Duration
	tailLines         int

	// mu guards the supervisor-state caches below.
	mu         sync.Mutex
	procs      []supervisor.Process
	procsKnown bool
	sysCache   *sysprobe.Snapshot
	version    string

	heartbeatMu      sync.Mutex
	heartbeatRunning bool

	tailMu sync.Mutex
	tails  map[int]TailStream

	usageMu sync.Mutex
	usage   map[int]*usageEntry
}

// New builds a Dashboard and binds the namespace handlers.
func New(options Options) *Dashboard {
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clk := options.Clock
	if clk == nil {
		clk = clock.Real()
	}
	heartbeatInterval := options.HeartbeatInterval
	if heartbeatInterval <= 0 {
		heartbeatInterval = DefaultHeartbeatInterval
	}
	usageInterval := options.UsageInterval
	if usageInterval <= 0 {
		usageInterval = DefaultUsageInterval
	}
	tailLines := options.TailLines
	if tailLines <= 0 {
		tailLines = DefaultTailLines
	}

	gateOptions := []throttle.Option{throttle.WithClock(clk)}
	if options.DebounceWindow > 0 {
		gateOptions = append(gateOptions, throttle.WithWindow(options.DebounceWindow))
	}

	d := &Dashboard{
		logger:            logger,
		clock:             clk,
		client:            options.Client,
		systemProbe:       options.SystemProbe,
		usageProbe:        options.UsageProbe,
		tailStarter:       options.Tails,
		system:            options.System,
		log:               options.Log,
		process:           options.Process,
		gate:              throttle.NewGate(gateOptions...),
		heartbeatInterval: heartbeatInterval,
		usageInterval:     usageInterval,
		tailLines:         tailLines,
		version:           versionFallback,
		tails:             make(map[int]TailStream),
		usage:             make(map[int]*usageEntry),
	}
	d.bindNamespaces()
	return d
}

// broadcast delivers {event, payload} to the topic, unless the system
// namespace is empty. Presence there gates every broadcast, including
// log and process traffic: with no system viewer the dashboard is
// considered unwatched.
func (d *Dashboard) broadcast(topic transport.Topic, event string, payload any) {
	if d.system.Count() == 0 {
		d.logger.Debug("suppressing broadcast, no system subscribers", "event", event)
		return
	}
	topic.Broadcast(event, payload)
}

// Close stops the debounce gate and tears down every tail and usage
// sampler. The heartbeat chain winds down on its own once its topic
// empties.
func (d *Dashboard) Close() {
	d.gate.Stop()

	d.tailMu.Lock()
	tails := d.tails
	d.tails = make(map[int]TailStream)
	d.tailMu.Unlock()
	for _, stream := range tails {
		stream.Stop()
	}

	d.usageMu.Lock()
	entries := d.usage
	d.usage = make(map[int]*usageEntry)
	d.usageMu.Unlock()
	for pid, entry := range entries {
		entry.stop()
		d.usageProbe.Forget(pid)
	}
}
