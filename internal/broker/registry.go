package broker

import (
	"fmt"
	"sync"

	"brokerlab/config"
	"brokerlab/internal/logger"
	"brokerlab/internal/metrics"
)

// Factory constructs an adapter for one broker kind. Construction never
// connects; the runtime owns the connect step.
type Factory func(cfg *config.Config, log *logger.Logger, m *metrics.Metrics) (Adapter, error)

// Registry creates and caches adapters by kind. A kind is available when
// its configuration section is present and a factory is registered for it.
type Registry struct {
	cfg       *config.Config
	log       *logger.Logger
	metrics   *metrics.Metrics
	factories map[Kind]Factory
	cache     map[Kind]Adapter
	mu        sync.RWMutex
}

// NewRegistry creates a registry with no factories registered
func NewRegistry(cfg *config.Config, log *logger.Logger, m *metrics.Metrics) *Registry {
	return &Registry{
		cfg:       cfg,
		log:       log,
		metrics:   m,
		factories: make(map[Kind]Factory),
		cache:     make(map[Kind]Adapter),
	}
}

// Register adds a factory for a broker kind
func (r *Registry) Register(kind Kind, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[kind] = factory
}

// Available reports whether the kind is configured and has a factory.
// It only inspects configuration; the network is never probed.
func (r *Registry) Available(kind Kind) bool {
	r.mu.RLock()
	_, registered := r.factories[kind]
	r.mu.RUnlock()
	return registered && r.configured(kind)
}

// Adapter returns a cached or newly constructed adapter for the kind.
// The second return is false when the kind is unavailable or construction
// failed.
func (r *Registry) Adapter(kind Kind) (Adapter, bool) {
	r.mu.RLock()
	if a, ok := r.cache[kind]; ok {
		r.mu.RUnlock()
		return a, true
	}
	r.mu.RUnlock()

	if !r.Available(kind) {
		return nil, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.cache[kind]; ok {
		return a, true
	}

	a, err := r.factories[kind](r.cfg, r.log, r.metrics)
	if err != nil {
		r.log.Error("failed to construct adapter", "broker", kind, "error", err)
		return nil, false
	}
	r.cache[kind] = a
	return a, true
}

// CreateAll constructs every available adapter, best effort. Kinds that
// fail availability or construction are absent from the result.
func (r *Registry) CreateAll() map[Kind]Adapter {
	adapters := make(map[Kind]Adapter)
	for _, kind := range Kinds() {
		if a, ok := r.Adapter(kind); ok {
			adapters[kind] = a
		}
	}
	return adapters
}

// ClearCache drops all cached adapter instances. It does not disconnect
// them; callers holding live connections must disconnect first.
func (r *Registry) ClearCache() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache = make(map[Kind]Adapter)
}

// configured reports configuration presence for the kind
func (r *Registry) configured(kind Kind) bool {
	if r.cfg == nil {
		return false
	}
	switch kind {
	case KindQueue:
		return r.cfg.Queue != nil
	case KindAmqp:
		return r.cfg.Amqp != nil
	case KindLog:
		return r.cfg.Log != nil
	case KindSocket:
		return r.cfg.Socket != nil
	default:
		return false
	}
}

// DefaultDestination returns the configured default destination for a kind
func (r *Registry) DefaultDestination(kind Kind) (string, error) {
	if r.cfg == nil {
		return "", fmt.Errorf("no configuration loaded")
	}
	switch kind {
	case KindQueue:
		if r.cfg.Queue != nil {
			return r.cfg.Queue.DefaultDestination, nil
		}
	case KindAmqp:
		if r.cfg.Amqp != nil {
			return r.cfg.Amqp.DefaultDestination, nil
		}
	case KindLog:
		if r.cfg.Log != nil {
			return r.cfg.Log.DefaultDestination, nil
		}
	case KindSocket:
		if r.cfg.Socket != nil {
			return r.cfg.Socket.DefaultDestination, nil
		}
	}
	return "", fmt.Errorf("broker kind %q is not configured", kind)
}
