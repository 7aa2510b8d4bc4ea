// Copyright 2026 The Procboard Authors
// SPDX-License-Identifier: Apache-2.0

package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/procboard/procboard/lib/clock"
	"github.com/procboard/procboard/lib/sysprobe"
	"github.com/procboard/procboard/lib/usageprobe"
	"github.com/procboard/procboard/supervisor"
	"github.com/procboard/procboard/transport"
)

// frameRecord is one captured Send or Broadcast.
type frameRecord struct {
	Event   string
	Payload any
}

// fakeTopic is an in-memory transport.Topic. Connection count and PID
// tags are set directly by tests; broadcasts are recorded and mirrored
// on a notification channel so tests can wait for asynchronous
// deliveries.
type fakeTopic struct {
	mu           sync.Mutex
	count        int
	pids         []int
	frames       []frameRecord
	handlers     map[string]transport.HandlerFunc
	onConnect    func(transport.Session)
	onDisconnect func(transport.Session)

	notify chan frameRecord
}

func newFakeTopic() *fakeTopic {
	return &fakeTopic{
		handlers: make(map[string]transport.HandlerFunc),
		notify:   make(chan frameRecord, 64),
	}
}

func (f *fakeTopic) Broadcast(event string, payload any) {
	record := frameRecord{Event: event, Payload: payload}
	f.mu.Lock()
	f.frames = append(f.frames, record)
	f.mu.Unlock()
	select {
	case f.notify <- record:
	default:
	}
}

func (f *fakeTopic) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.count
}

func (f *fakeTopic) PIDs() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.pids...)
}

func (f *fakeTopic) HandleFunc(event string, handler transport.HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[event] = handler
}

func (f *fakeTopic) OnConnect(callback func(transport.Session)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onConnect = callback
}

func (f *fakeTopic) OnDisconnect(callback func(transport.Session)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onDisconnect = callback
}

func (f *fakeTopic) setCount(count int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count = count
}

func (f *fakeTopic) setPIDs(pids ...int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pids = pids
}

func (f *fakeTopic) broadcasts() []frameRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]frameRecord(nil), f.frames...)
}

// connect simulates a subscriber joining: bumps the count and fires
// the connect callback.
func (f *fakeTopic) connect(session *fakeSession) {
	f.mu.Lock()
	f.count++
	callback := f.onConnect
	f.mu.Unlock()
	if callback != nil {
		callback(session)
	}
}

// disconnect simulates a subscriber leaving.
func (f *fakeTopic) disconnect(session *fakeSession) {
	f.mu.Lock()
	if f.count > 0 {
		f.count--
	}
	callback := f.onDisconnect
	f.mu.Unlock()
	if callback != nil {
		callback(session)
	}
}

// frame delivers an inbound frame to the registered handler.
func (f *fakeTopic) frame(t *testing.T, session *fakeSession, event string, payload any) {
	t.Helper()
	f.mu.Lock()
	handler := f.handlers[event]
	f.mu.Unlock()
	if handler == nil {
		t.Fatalf("no handler registered for %q", event)
	}
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("encoding %q payload: %v", event, err)
	}
	handler(session, data)
}

// fakeSession records direct sends and carries a pid tag.
type fakeSession struct {
	mu     sync.Mutex
	pid    int
	sent   []frameRecord
	notify chan frameRecord
}

func newFakeSession() *fakeSession {
	return &fakeSession{notify: make(chan frameRecord, 64)}
}

func (s *fakeSession) Send(event string, payload any) {
	s.mu.Lock()
	record := frameRecord{Event: event, Payload: payload}
	s.sent = append(s.sent, record)
	s.mu.Unlock()
	select {
	case s.notify <- record:
	default:
	}
}

func (s *fakeSession) SetPID(pid int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pid = pid
}

func (s *fakeSession) PID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pid
}

func (s *fakeSession) received() []frameRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]frameRecord(nil), s.sent...)
}

// fakeClient is a scripted SupervisorClient.
type fakeClient struct {
	mu sync.Mutex

	refresh   bool
	actionErr error
	actions   []string

	processes []supervisor.Process
	listErr   error
	listCalls int

	version    string
	versionErr error
}

func (c *fakeClient) Action(ctx context.Context, name string, id int) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.actions = append(c.actions, name)
	return c.refresh, c.actionErr
}

func (c *fakeClient) List(ctx context.Context) ([]supervisor.Process, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listCalls++
	if c.listErr != nil {
		return nil, c.listErr
	}
	return append([]supervisor.Process(nil), c.processes...), nil
}

func (c *fakeClient) Version(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.version, c.versionErr
}

func (c *fakeClient) listCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.listCalls
}

// fakeSystemProbe returns a fixed snapshot and counts calls.
type fakeSystemProbe struct {
	mu       sync.Mutex
	snapshot sysprobe.Snapshot
	calls    int
}

func (p *fakeSystemProbe) Snapshot() sysprobe.Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	return p.snapshot
}

func (p *fakeSystemProbe) snapshots() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// fakeUsageProbe serves scripted samples per pid.
type fakeUsageProbe struct {
	mu        sync.Mutex
	samples   map[int]usageprobe.Sample
	err       error
	total     uint64
	forgotten []int
}

func (p *fakeUsageProbe) Sample(pid int) (usageprobe.Sample, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return usageprobe.Sample{}, p.err
	}
	sample, ok := p.samples[pid]
	if !ok {
		return usageprobe.Sample{}, errors.New("no such process")
	}
	return sample, nil
}

func (p *fakeUsageProbe) Forget(pid int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.forgotten = append(p.forgotten, pid)
}

func (p *fakeUsageProbe) TotalMemoryBytes() (uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.total, nil
}

func (p *fakeUsageProbe) setErr(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

// fakeTailStarter hands out scripted streams and records start calls.
type fakeTailStarter struct {
	mu      sync.Mutex
	err     error
	started []string
	streams []*fakeTailStream
}

func (s *fakeTailStarter) Start(path string, lines int) (TailStream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	s.started = append(s.started, path)
	stream := &fakeTailStream{lines: make(chan string, 16), stopped: make(chan struct{})}
	s.streams = append(s.streams, stream)
	return stream, nil
}

func (s *fakeTailStarter) startCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.started)
}

func (s *fakeTailStarter) stream(index int) *fakeTailStream {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streams[index]
}

type fakeTailStream struct {
	lines    chan string
	stopOnce sync.Once
	stopped  chan struct{}
}

func (s *fakeTailStream) Lines() <-chan string { return s.lines }

func (s *fakeTailStream) Stop() {
	s.stopOnce.Do(func() {
		if s.stopped != nil {
			close(s.stopped)
		}
		close(s.lines)
	})
}

// fixture bundles a Dashboard with all its fakes.
type fixture struct {
	dashboard *Dashboard
	clock     *clock.FakeClock
	client    *fakeClient
	sysProbe  *fakeSystemProbe
	usage     *fakeUsageProbe
	tails     *fakeTailStarter
	system    *fakeTopic
	log       *fakeTopic
	process   *fakeTopic
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		clock: clock.Fake(time.Unix(1700000000, 0)),
		client: &fakeClient{
			version: "5.2.0",
			processes: []supervisor.Process{
				{PID: 101, Name: "api", ID: 0, Status: "online", LogPath: "/var/log/api.log",
					Environment: map[string]string{"USER": "alice", "node_env": "production"}},
				{PID: 202, Name: "worker", ID: 1, Status: "online", LogPath: "/var/log/worker.log"},
			},
		},
		sysProbe: &fakeSystemProbe{snapshot: sysprobe.Snapshot{Hostname: "box", CPUPercent: 12.5}},
		usage: &fakeUsageProbe{
			total:   4096,
			samples: map[int]usageprobe.Sample{101: {CPUPercent: 50, MemoryBytes: 1024}},
		},
		tails:   &fakeTailStarter{},
		system:  newFakeTopic(),
		log:     newFakeTopic(),
		process: newFakeTopic(),
	}

	f.dashboard = New(Options{
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		Clock:       f.clock,
		Client:      f.client,
		SystemProbe: f.sysProbe,
		UsageProbe:  f.usage,
		Tails:       f.tails,
		System:      f.system,
		Log:         f.log,
		Process:     f.process,
	})
	t.Cleanup(f.dashboard.Close)

	// Most tests want broadcasts delivered; individual tests drop the
	// count back to zero to exercise the presence gate.
	f.system.setCount(1)
	return f
}

// seedProcs primes the process cache without going through broadcast
// assertions.
func (f *fixture) seedProcs(t *testing.T) {
	t.Helper()
	f.dashboard.RefreshProcesses(context.Background())
}
