package kafkalog

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/segmentio/kafka-go"
)

// connectionManager verifies cluster reachability and owns the shared
// writer. kafka-go dials per operation, so "connected" means the cluster
// answered a probe and the writer is ready; the writer is closed exactly
// once during Disconnect.
type connectionManager struct {
	broker    *LogBroker
	writer    *kafka.Writer
	connected atomic.Bool
	mu        sync.Mutex
}

func newConnectionManager(b *LogBroker) *connectionManager {
	return &connectionManager{broker: b}
}

// Connect probes the first broker address and creates the shared writer
func (cm *connectionManager) Connect() error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	cm.broker.log.Info("connecting to Kafka cluster", "brokers", cm.broker.cfg.Brokers)

	conn, err := kafka.Dial("tcp", cm.broker.cfg.Brokers[0])
	if err != nil {
		return fmt.Errorf("failed to reach Kafka broker: %w", err)
	}
	if _, err := conn.Brokers(); err != nil {
		conn.Close()
		return fmt.Errorf("failed to list Kafka brokers: %w", err)
	}
	conn.Close()

	cm.writer = &kafka.Writer{
		Addr:         kafka.TCP(cm.broker.cfg.Brokers...),
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireAll,
	}

	cm.connected.Store(true)
	cm.broker.log.Info("connected to Kafka cluster")
	return nil
}

// Disconnect flushes and closes the writer; errors are logged only
func (cm *connectionManager) Disconnect() {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if !cm.connected.Load() {
		return
	}
	cm.connected.Store(false)

	cm.broker.log.Info("disconnecting from Kafka cluster")
	if cm.writer != nil {
		if err := cm.writer.Close(); err != nil {
			cm.broker.log.Error("failed to close Kafka writer", "error", err)
		}
		cm.writer = nil
	}
}

// IsConnected returns the current connection status
func (cm *connectionManager) IsConnected() bool {
	return cm.connected.Load()
}

// Writer returns the shared writer
func (cm *connectionManager) Writer() *kafka.Writer {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	return cm.writer
}
