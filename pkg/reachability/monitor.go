package reachability

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/dmdmdm-nz/reachd/internal/netmon"
	"github.com/dmdmdm-nz/reachd/internal/runtime"
)

type transition struct {
	from Status
	to   Status
	at   time.Time
}

// Monitor tracks the reachability of one target (the default route unless a
// host is given). All methods are safe for concurrent use.
type Monitor struct {
	id      uuid.UUID
	host    string
	topic   string
	watcher netmon.Watcher

	mu         sync.RWMutex
	status     Status
	started    bool
	registered bool
	closed     bool
	onChange   func(isReachable bool)
	registry   *Registry

	dispatch  *runtime.Queue[transition]
	closeOnce sync.Once
}

// New creates a Monitor and registers it with the operating system's
// connectivity notifications. Construction never waits on network I/O.
//
// If registration fails the returned Monitor is still usable and must still
// be closed: it reports NotReachable unless the watcher recovers on its own,
// and the error is a *RegistrationError.
func New(opts ...Option) (*Monitor, error) {
	o := options{
		registry: DefaultRegistry(),
		topic:    ChangeTopic,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.watcher == nil {
		o.watcher = netmon.NewWatcher(netmon.WatcherConfig{
			TargetHost:       o.host,
			CellularPrefixes: o.cellularPrefixes,
			ResolveTimeout:   o.resolveTimeout,
		})
	}
	return newMonitor(o)
}

// NewForHost creates a Monitor for the route towards host.
func NewForHost(host string) (*Monitor, error) {
	return New(WithTargetHost(host))
}

// NewWithCallback creates a default-route Monitor that calls onChange on
// every transition.
func NewWithCallback(onChange func(isReachable bool)) (*Monitor, error) {
	return New(WithOnChange(onChange))
}

func newMonitor(o options) (*Monitor, error) {
	m := &Monitor{
		id:       uuid.New(),
		host:     o.host,
		topic:    o.topic,
		watcher:  o.watcher,
		status:   NotReachable,
		onChange: o.onChange,
		registry: o.registry,
	}
	m.dispatch = runtime.NewQueue(m.deliver)

	if err := m.watcher.Register(m.handleFlags); err != nil {
		m.mu.Lock()
		m.status = NotReachable
		m.started = true
		m.mu.Unlock()

		m.logger().WithError(err).Warn("Failed to register for connectivity notifications")
		return m, &RegistrationError{Host: m.host, Err: err}
	}

	m.mu.Lock()
	m.started = true
	m.registered = true
	status := m.status
	m.mu.Unlock()

	m.logger().WithField("status", status).Info("Reachability monitor started")
	return m, nil
}

// handleFlags runs on the watcher's goroutine. It only classifies, updates
// state and queues the transition; subscribers run on the dispatch goroutine.
func (m *Monitor) handleFlags(flags netmon.Flags) {
	status := classify(flags)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}

	m.logger().WithFields(log.Fields{
		"flags":  flags.String(),
		"status": status,
	}).Trace("Connectivity report")

	// Reports that arrive before construction completes set the initial
	// status; nobody can have observed the previous one.
	if !m.started {
		m.status = status
		return
	}
	if status == m.status {
		return
	}

	prev := m.status
	m.status = status
	m.dispatch.Enqueue(transition{from: prev, to: status, at: time.Now()})
}

func (m *Monitor) deliver(t transition) {
	m.mu.RLock()
	registry, onChange := m.registry, m.onChange
	m.mu.RUnlock()

	m.logger().WithFields(log.Fields{
		"from": t.from,
		"to":   t.to,
	}).Debug("Reachability changed")

	if registry != nil {
		registry.Publish(m.topic, Event{
			Status:    t.to,
			Reachable: t.to.IsReachable(),
			Host:      m.host,
			Monitor:   m.id,
			Time:      t.at,
		})
	}
	if onChange != nil {
		onChange(t.to.IsReachable())
	}
}

// Close stops monitoring. It deregisters from the operating system, waits
// for a notification in progress to finish and releases all subscribers.
// After Close returns no further notifications are delivered and queries
// keep returning the last known status. Close is idempotent; it must not be
// called from the change callback.
func (m *Monitor) Close() error {
	var err error
	m.closeOnce.Do(func() {
		m.mu.Lock()
		m.closed = true
		registered := m.registered
		m.registered = false
		m.mu.Unlock()

		if registered {
			if derr := m.watcher.Deregister(); derr != nil {
				err = fmt.Errorf("deregister connectivity watcher: %w", derr)
			}
		}
		m.dispatch.Close()

		m.mu.Lock()
		m.onChange = nil
		m.registry = nil
		m.mu.Unlock()

		m.logger().Info("Reachability monitor stopped")
	})
	return err
}

// Status returns the most recently classified status.
func (m *Monitor) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

func (m *Monitor) IsReachable() bool {
	return m.Status().IsReachable()
}

func (m *Monitor) IsReachableViaCellular() bool {
	return m.Status() == ReachableViaCellular
}

func (m *Monitor) IsReachableViaLocalNetwork() bool {
	return m.Status() == ReachableViaLocalNetwork
}

// TargetHost returns the monitored host, or "" for the default route.
func (m *Monitor) TargetHost() string { return m.host }

// Topic returns the registry topic transitions are published to.
func (m *Monitor) Topic() string { return m.topic }

func (m *Monitor) ID() uuid.UUID { return m.id }

func (m *Monitor) logger() *log.Entry {
	host := m.host
	if host == "" {
		host = "default"
	}
	return log.WithFields(log.Fields{
		"monitor": m.id,
		"host":    host,
	})
}
