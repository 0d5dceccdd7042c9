package rabbit

import (
	"fmt"
	"sync"
	"sync/atomic"

	amqp "github.com/rabbitmq/amqp091-go"
)

// connectionManager owns the AMQP connection and a channel reused for
// publishing and consumer setup. The channel is closed exactly once
// during Disconnect.
type connectionManager struct {
	broker    *AmqpBroker
	conn      *amqp.Connection
	ch        *amqp.Channel
	connected atomic.Bool
	mu        sync.Mutex
}

func newConnectionManager(b *AmqpBroker) *connectionManager {
	return &connectionManager{broker: b}
}

// Connect dials the AMQP URI and opens the shared channel
func (cm *connectionManager) Connect() error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	cm.broker.log.Info("connecting to AMQP broker", "uri", redactURI(cm.broker.cfg.URI))

	conn, err := amqp.Dial(cm.broker.cfg.URI)
	if err != nil {
		return fmt.Errorf("failed to dial AMQP broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to open AMQP channel: %w", err)
	}

	if cm.broker.cfg.PrefetchCount > 0 {
		if err := ch.Qos(cm.broker.cfg.PrefetchCount, 0, false); err != nil {
			ch.Close()
			conn.Close()
			return fmt.Errorf("failed to set AMQP qos: %w", err)
		}
	}

	cm.conn = conn
	cm.ch = ch
	cm.connected.Store(true)
	cm.broker.log.Info("connected to AMQP broker")
	return nil
}

// Disconnect closes the channel then the connection; errors are logged only
func (cm *connectionManager) Disconnect() {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if !cm.connected.Load() {
		return
	}
	cm.connected.Store(false)

	cm.broker.log.Info("disconnecting from AMQP broker")
	if cm.ch != nil {
		if err := cm.ch.Close(); err != nil {
			cm.broker.log.Error("failed to close AMQP channel", "error", err)
		}
		cm.ch = nil
	}
	if cm.conn != nil {
		if err := cm.conn.Close(); err != nil {
			cm.broker.log.Error("failed to close AMQP connection", "error", err)
		}
		cm.conn = nil
	}
}

// IsConnected returns the current connection status
func (cm *connectionManager) IsConnected() bool {
	return cm.connected.Load() && cm.conn != nil && !cm.conn.IsClosed()
}

// Channel returns the shared AMQP channel
func (cm *connectionManager) Channel() *amqp.Channel {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	return cm.ch
}

// redactURI strips credentials from an AMQP URI for logging
func redactURI(uri string) string {
	parsed, err := amqp.ParseURI(uri)
	if err != nil {
		return "amqp://***"
	}
	return fmt.Sprintf("%s://%s:%d%s", parsed.Scheme, parsed.Host, parsed.Port, parsed.Vhost)
}
