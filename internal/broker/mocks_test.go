package broker

import (
	"fmt"
	"sync"

	"brokerlab/config"
	"brokerlab/internal/logger"
	"brokerlab/internal/metrics"
)

// mockAdapter implements Adapter for testing
type mockAdapter struct {
	kind Kind

	mu          sync.Mutex
	connected   bool
	failConnect bool
	sendErr     error
	sendHook    func(n int) error // called with the 1-based send number
	sent        []*OutboundMessage
	handlers    map[string]Handler
	subscribes  int
	unsubsAll   int
	disconnects int
}

func newMockAdapter(kind Kind) *mockAdapter {
	return &mockAdapter{kind: kind, handlers: make(map[string]Handler)}
}

func (m *mockAdapter) Kind() Kind { return m.kind }

func (m *mockAdapter) Connect() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failConnect {
		return &ConnectionError{Kind: m.kind, Err: fmt.Errorf("mock connect failure")}
	}
	m.connected = true
	return nil
}

func (m *mockAdapter) Disconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = false
	m.disconnects++
}

func (m *mockAdapter) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

func (m *mockAdapter) Healthy() bool { return m.Connected() }

func (m *mockAdapter) Send(msg *OutboundMessage) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return "", ErrNotConnected
	}
	if m.sendErr != nil {
		return "", m.sendErr
	}
	m.sent = append(m.sent, msg)
	if m.sendHook != nil {
		if err := m.sendHook(len(m.sent)); err != nil {
			return "", err
		}
	}
	return fmt.Sprintf("delivery-%d", len(m.sent)), nil
}

func (m *mockAdapter) Subscribe(destination string, handler Handler) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return &SubscriptionError{Kind: m.kind, Destination: destination, Err: ErrNotConnected}
	}
	m.subscribes++
	if _, exists := m.handlers[destination]; exists {
		return nil // silent no-op, first handler stays
	}
	m.handlers[destination] = handler
	return nil
}

func (m *mockAdapter) Unsubscribe(destination string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.handlers, destination)
	return nil
}

func (m *mockAdapter) UnsubscribeAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers = make(map[string]Handler)
	m.unsubsAll++
}

// deliver simulates an inbound message arriving on a subscription worker
func (m *mockAdapter) deliver(destination string, msg *InboundMessage) {
	m.mu.Lock()
	handler := m.handlers[destination]
	m.mu.Unlock()
	if handler != nil {
		handler(msg)
	}
}

func (m *mockAdapter) sentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

// testConfig builds a config with sections present for the given kinds
func testConfig(kinds ...Kind) *config.Config {
	cfg := &config.Config{}
	for _, kind := range kinds {
		switch kind {
		case KindQueue:
			cfg.Queue = &config.QueueConfig{URLs: []string{"nats://localhost:4222"}, DefaultDestination: "events"}
		case KindAmqp:
			cfg.Amqp = &config.AmqpConfig{URI: "amqp://localhost:5672/", DefaultDestination: "events"}
		case KindLog:
			cfg.Log = &config.LogBrokerCfg{Brokers: []string{"localhost:9092"}, PollTimeout: "1s", DefaultDestination: "events"}
		case KindSocket:
			cfg.Socket = &config.SocketConfig{URL: "ws://localhost:8081/channel", HandshakeTimeout: "10s", DefaultDestination: "events"}
		}
	}
	return cfg
}

// testRegistry registers mock factories for the given kinds and returns
// the registry plus the adapters it will hand out.
func testRegistry(cfg *config.Config, kinds ...Kind) (*Registry, map[Kind]*mockAdapter) {
	reg := NewRegistry(cfg, logger.NewNop(), nil)
	adapters := make(map[Kind]*mockAdapter, len(kinds))
	for _, kind := range kinds {
		adapter := newMockAdapter(kind)
		adapters[kind] = adapter
		reg.Register(kind, func(*config.Config, *logger.Logger, *metrics.Metrics) (Adapter, error) {
			return adapter, nil
		})
	}
	return reg, adapters
}

// recordingListener appends a tag to a shared order slice on every message
type recordingListener struct {
	tag   string
	order *[]string
	mu    *sync.Mutex
	fail  bool
	panic bool
}

func (l *recordingListener) OnMessage(destination string, msg *InboundMessage) error {
	l.mu.Lock()
	*l.order = append(*l.order, l.tag)
	l.mu.Unlock()
	if l.panic {
		panic("listener exploded")
	}
	if l.fail {
		return fmt.Errorf("listener %s failed", l.tag)
	}
	return nil
}
