package broker

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"brokerlab/internal/logger"
	"brokerlab/internal/metrics"
	"brokerlab/internal/stats"
)

const (
	runtimeUninitialized int32 = iota
	runtimeInitializing
	runtimeInitialized
	runtimeShuttingDown
)

// Runtime orchestrates every adapter: it connects them at initialization,
// routes send and subscribe calls, fans inbound messages out to registered
// listeners, and aggregates status and health.
type Runtime struct {
	registry *Registry
	log      *logger.Logger
	metrics  *metrics.Metrics
	stats    *stats.StatsCollector

	state atomic.Int32

	mu        sync.RWMutex
	adapters  map[Kind]Adapter
	listeners []Listener
}

// NewRuntime creates an uninitialized runtime over the given registry.
// The metrics service may be nil when metrics are disabled.
func NewRuntime(registry *Registry, log *logger.Logger, m *metrics.Metrics) *Runtime {
	return &Runtime{
		registry: registry,
		log:      log,
		metrics:  m,
		stats:    stats.NewStatsCollector(),
		adapters: make(map[Kind]Adapter),
	}
}

// Initialize constructs every available adapter and attempts to connect
// each one. A connect failure is logged and leaves that adapter
// disconnected; initialization itself still succeeds so degraded broker
// sets stay observable through Status and Health. Calling Initialize on
// an initialized runtime is a no-op.
func (r *Runtime) Initialize() error {
	if !r.state.CompareAndSwap(runtimeUninitialized, runtimeInitializing) {
		r.log.Debug("runtime already initialized")
		return nil
	}

	adapters := r.registry.CreateAll()
	for kind, adapter := range adapters {
		if err := adapter.Connect(); err != nil {
			r.log.Error("failed to connect broker", "broker", kind, "error", err)
			r.safeMetrics(func(m *metrics.Metrics) { m.SetConnectionStatus(string(kind), false) })
			continue
		}
		r.log.Info("broker connected", "broker", kind)
		r.safeMetrics(func(m *metrics.Metrics) { m.SetConnectionStatus(string(kind), true) })
	}

	r.mu.Lock()
	r.adapters = adapters
	r.mu.Unlock()

	r.state.Store(runtimeInitialized)
	r.log.Info("broker runtime initialized", "brokers", len(adapters))
	return nil
}

// Initialized reports whether Initialize has completed
func (r *Runtime) Initialized() bool {
	return r.state.Load() == runtimeInitialized
}

// Send routes an outbound message to its kind's adapter
func (r *Runtime) Send(msg *OutboundMessage) (*MessageResponse, error) {
	if !r.Initialized() {
		return nil, ErrNotInitialized
	}

	adapter, err := r.adapter(msg.Kind)
	if err != nil {
		return nil, err
	}
	if !adapter.Connected() {
		return nil, fmt.Errorf("%s broker: %w", msg.Kind, ErrNotConnected)
	}

	deliveryID, err := adapter.Send(msg)
	if err != nil {
		r.stats.IncErrors()
		r.safeMetrics(func(m *metrics.Metrics) { m.IncSendErrors(string(msg.Kind)) })
		return nil, &SendError{Kind: msg.Kind, Destination: msg.Destination, Err: err}
	}

	r.stats.IncSent()
	r.safeMetrics(func(m *metrics.Metrics) { m.IncMessagesSent(string(msg.Kind)) })

	return &MessageResponse{
		Success:     true,
		Kind:        msg.Kind,
		Destination: msg.Destination,
		DeliveryID:  deliveryID,
		SentAt:      time.Now(),
	}, nil
}

// Subscribe registers an internal fan-out handler on the kind's adapter
// for the destination. Every inbound message is delivered to the
// externally registered listeners in registration order.
func (r *Runtime) Subscribe(kind Kind, destination string) error {
	if !r.Initialized() {
		return ErrNotInitialized
	}

	adapter, err := r.adapter(kind)
	if err != nil {
		return err
	}

	return adapter.Subscribe(destination, func(msg *InboundMessage) {
		r.dispatch(destination, msg)
	})
}

// Unsubscribe stops the destination's subscription on the kind's adapter
func (r *Runtime) Unsubscribe(kind Kind, destination string) error {
	if !r.Initialized() {
		return ErrNotInitialized
	}

	adapter, err := r.adapter(kind)
	if err != nil {
		return err
	}
	return adapter.Unsubscribe(destination)
}

// UnsubscribeAll stops every subscription on every adapter
func (r *Runtime) UnsubscribeAll() {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, adapter := range r.adapters {
		adapter.UnsubscribeAll()
	}
}

// AddListener appends a listener to the fan-out list. Safe to call while
// deliveries are in flight.
func (r *Runtime) AddListener(l Listener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, l)
}

// RemoveListener removes the first registered occurrence of the listener
func (r *Runtime) RemoveListener(l Listener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, registered := range r.listeners {
		if registered == l {
			r.listeners = append(r.listeners[:i], r.listeners[i+1:]...)
			return
		}
	}
}

// Status returns a snapshot of kind to connection state
func (r *Runtime) Status() map[Kind]bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	status := make(map[Kind]bool, len(r.adapters))
	for kind, adapter := range r.adapters {
		status[kind] = adapter.Connected()
	}
	return status
}

// Health returns a snapshot of kind to adapter health
func (r *Runtime) Health() map[Kind]bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	health := make(map[Kind]bool, len(r.adapters))
	for kind, adapter := range r.adapters {
		health[kind] = adapter.Healthy()
	}
	return health
}

// Stats returns the runtime's message counters
func (r *Runtime) Stats() *stats.StatsCollector {
	return r.stats
}

// Shutdown unsubscribes and disconnects every adapter, clears internal
// state, and resets the runtime to uninitialized. Only an initialized
// runtime is torn down: a call before Initialize, during one, or during
// another Shutdown is a no-op.
func (r *Runtime) Shutdown() {
	if !r.state.CompareAndSwap(runtimeInitialized, runtimeShuttingDown) {
		return
	}

	r.mu.Lock()
	adapters := r.adapters
	r.adapters = make(map[Kind]Adapter)
	r.listeners = nil
	r.mu.Unlock()

	for kind, adapter := range adapters {
		adapter.UnsubscribeAll()
		adapter.Disconnect()
		r.log.Info("broker disconnected", "broker", kind)
		r.safeMetrics(func(m *metrics.Metrics) { m.SetConnectionStatus(string(kind), false) })
	}

	r.registry.ClearCache()
	r.state.Store(runtimeUninitialized)
	r.log.Info("broker runtime shut down")
}

// dispatch fans one inbound message out to every registered listener in
// registration order. A failing listener is logged and does not block
// delivery to the rest.
func (r *Runtime) dispatch(destination string, msg *InboundMessage) {
	r.stats.IncReceived()
	r.safeMetrics(func(m *metrics.Metrics) { m.IncMessagesReceived(string(msg.Kind)) })

	r.mu.RLock()
	listeners := make([]Listener, len(r.listeners))
	copy(listeners, r.listeners)
	r.mu.RUnlock()

	for _, l := range listeners {
		if err := r.invoke(l, destination, msg); err != nil {
			r.log.Error("listener failed",
				"broker", msg.Kind,
				"destination", destination,
				"error", err)
		}
	}
}

// invoke calls one listener, converting a panic into an error
func (r *Runtime) invoke(l Listener, destination string, msg *InboundMessage) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("listener panic: %v", rec)
		}
	}()
	return l.OnMessage(destination, msg)
}

// adapter looks up the held adapter for a kind
func (r *Runtime) adapter(kind Kind) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	adapter, ok := r.adapters[kind]
	if !ok {
		return nil, fmt.Errorf("%s broker: %w", kind, ErrBrokerUnavailable)
	}
	return adapter, nil
}

// safeMetrics applies fn when metrics are enabled
func (r *Runtime) safeMetrics(fn func(*metrics.Metrics)) {
	if r.metrics != nil {
		fn(r.metrics)
	}
}
