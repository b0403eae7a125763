// Package bridge drives the device connection: find the device, open the
// link, then stream one frame per interval until the link fails.
package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dicklesworthstone/flipper_pc_monitor/internal/clock"
	"github.com/Dicklesworthstone/flipper_pc_monitor/internal/device"
	"github.com/Dicklesworthstone/flipper_pc_monitor/internal/frame"
	"github.com/Dicklesworthstone/flipper_pc_monitor/internal/model"
)

const (
	// Backoff is the wait before rescanning after a missing device, a
	// failed open or a broken link.
	Backoff = 2 * time.Second
	// FrameInterval is the wait between frames while streaming.
	FrameInterval = time.Second
)

// State is a connection lifecycle state.
type State int

const (
	Scanning State = iota
	Connecting
	Streaming
)

func (s State) String() string {
	switch s {
	case Scanning:
		return "scanning"
	case Connecting:
		return "connecting"
	case Streaming:
		return "streaming"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Source produces one snapshot per streaming cycle.
type Source interface {
	Sample(ctx context.Context) (model.Snapshot, error)
}

// Status is what the manager reports to its observer after each step.
type Status struct {
	State      State
	Port       string
	Snapshot   model.Snapshot
	Frame      frame.Frame
	HasFrame   bool
	Sent       uint64
	Dropped    uint64
	Reconnects uint64
	LastError  string
	UpdatedAt  time.Time
}

// Manager owns the serial link for as long as it is open.
type Manager struct {
	target   device.Descriptor
	ports    device.Enumerator
	opener   device.Opener
	source   Source
	clock    clock.Clock
	logger   *slog.Logger
	observer func(Status)

	state  State
	port   string
	link   device.Link
	status Status
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock replaces the real clock.
func WithClock(c clock.Clock) Option { return func(m *Manager) { m.clock = c } }

// WithObserver registers fn to receive a Status after every step. fn runs
// on the manager's goroutine and must not block.
func WithObserver(fn func(Status)) Option { return func(m *Manager) { m.observer = fn } }

// WithTarget overrides the device descriptor to match.
func WithTarget(d device.Descriptor) Option { return func(m *Manager) { m.target = d } }

func New(ports device.Enumerator, opener device.Opener, source Source, logger *slog.Logger, opts ...Option) *Manager {
	m := &Manager{
		target: device.Target,
		ports:  ports,
		opener: opener,
		source: source,
		clock:  clock.Real(),
		logger: logger,
		state:  Scanning,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State returns the current lifecycle state.
func (m *Manager) State() State { return m.state }

// Status returns the latest status.
func (m *Manager) Status() Status { return m.status }

// Run steps the state machine until ctx ends or sampling fails. The link,
// if open, is closed before returning.
func (m *Manager) Run(ctx context.Context) error {
	m.logger.Info("bridge starting", "device", m.target.String())
	defer m.dropLink()
	for {
		if err := m.Step(ctx); err != nil {
			return err
		}
	}
}

// Step performs the work of the current state, including any wait that
// follows it, and moves to the next state.
func (m *Manager) Step(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	switch m.state {
	case Scanning:
		return m.scan(ctx)
	case Connecting:
		return m.connect(ctx)
	case Streaming:
		return m.stream(ctx)
	}
	return fmt.Errorf("bridge: invalid state %v", m.state)
}

func (m *Manager) scan(ctx context.Context) error {
	m.logger.Debug("scanning for device", "device", m.target.String())
	ports, err := m.ports.Ports()
	if err != nil {
		m.logger.Warn("serial enumeration failed", "error", err)
	}
	if p, ok := device.Find(ports, m.target); ok {
		m.logger.Info("found device", "port", p.Name)
		m.port = p.Name
		m.transition(Connecting)
		return nil
	}
	m.port = ""
	m.logger.Info("device not found, retrying", "device", m.target.String(), "backoff", Backoff)
	m.transition(Scanning)
	return clock.Sleep(ctx, m.clock, Backoff)
}

func (m *Manager) connect(ctx context.Context) error {
	link, err := m.opener.Open(m.port)
	if err != nil {
		m.logger.Error("failed to open serial port", "port", m.port, "error", err)
		m.status.LastError = err.Error()
		m.transition(Scanning)
		return clock.Sleep(ctx, m.clock, Backoff)
	}
	// Not every device needs the handshake lines.
	if err := link.SetDTR(true); err != nil {
		m.logger.Debug("assert DTR failed", "port", m.port, "error", err)
	}
	if err := link.SetRTS(true); err != nil {
		m.logger.Debug("assert RTS failed", "port", m.port, "error", err)
	}
	m.link = link
	m.logger.Info("connected", "port", m.port, "baud", device.BaudRate)
	m.transition(Streaming)
	return nil
}

func (m *Manager) stream(ctx context.Context) error {
	snap, err := m.source.Sample(ctx)
	if err != nil {
		return fmt.Errorf("sample metrics: %w", err)
	}
	f := frame.Encode(snap)
	m.status.Snapshot, m.status.Frame, m.status.HasFrame = snap, f, true

	if _, err := m.link.Write(f[:]); err != nil {
		m.status.LastError = err.Error()
		if !device.IsTimeout(err) {
			m.logger.Error("failed to write to serial port, reconnecting", "port", m.port, "error", err)
			m.dropLink()
			m.status.Reconnects++
			m.transition(Scanning)
			return clock.Sleep(ctx, m.clock, Backoff)
		}
		m.logger.Warn("timeout writing to serial port, skipping frame", "port", m.port)
		m.status.Dropped++
	} else {
		m.status.Sent++
	}
	m.transition(Streaming)
	return clock.Sleep(ctx, m.clock, FrameInterval)
}

func (m *Manager) dropLink() {
	if m.link == nil {
		return
	}
	if err := m.link.Close(); err != nil {
		m.logger.Debug("close serial port", "port", m.port, "error", err)
	}
	m.link = nil
}

func (m *Manager) transition(next State) {
	m.state = next
	m.status.State = next
	m.status.Port = m.port
	m.status.UpdatedAt = m.clock.Now()
	if m.observer != nil {
		m.observer(m.status)
	}
}
