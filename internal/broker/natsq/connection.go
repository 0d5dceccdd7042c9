package natsq

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
)

// connectionManager implements ConnectionManager for NATS
type connectionManager struct {
	broker    *QueueBroker
	conn      *nats.Conn
	connected atomic.Bool
}

func newConnectionManager(b *QueueBroker) ConnectionManager {
	return &connectionManager{broker: b}
}

// Connect establishes the connection to the NATS server
func (cm *connectionManager) Connect() error {
	if len(cm.broker.cfg.URLs) == 0 {
		return fmt.Errorf("no NATS server URLs provided")
	}

	opts := []nats.Option{
		nats.Name(cm.broker.cfg.ClientID),
		nats.ReconnectWait(time.Second * 2),
		nats.DisconnectErrHandler(cm.handleDisconnect),
		nats.ReconnectHandler(cm.handleReconnect),
	}

	if cm.broker.cfg.Username != "" {
		opts = append(opts, nats.UserInfo(cm.broker.cfg.Username, cm.broker.cfg.Password))
	}

	cm.broker.log.Info("connecting to NATS server", "urls", cm.broker.cfg.URLs)

	conn, err := nats.Connect(cm.broker.cfg.URLs[0], opts...)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS server: %w", err)
	}

	cm.conn = conn
	cm.connected.Store(true)
	cm.broker.log.Info("connected to NATS server", "url", conn.ConnectedUrl())
	return nil
}

// Disconnect cleanly closes the connection; errors are logged only
func (cm *connectionManager) Disconnect() {
	if cm.conn != nil {
		cm.broker.log.Info("disconnecting from NATS server")
		cm.conn.Close()
		cm.connected.Store(false)
	}
}

// IsConnected returns the current connection status
func (cm *connectionManager) IsConnected() bool {
	return cm.conn != nil && cm.conn.IsConnected() && cm.connected.Load()
}

// Conn returns the native connection
func (cm *connectionManager) Conn() *nats.Conn {
	return cm.conn
}

func (cm *connectionManager) handleDisconnect(conn *nats.Conn, err error) {
	cm.broker.log.Error("disconnected from NATS server", "error", err)
	cm.connected.Store(false)
	if cm.broker.metrics != nil {
		cm.broker.metrics.SetConnectionStatus("queue", false)
	}
}

func (cm *connectionManager) handleReconnect(conn *nats.Conn) {
	cm.broker.log.Info("reconnected to NATS server", "url", conn.ConnectedUrl())
	cm.connected.Store(true)
	if cm.broker.metrics != nil {
		cm.broker.metrics.SetConnectionStatus("queue", true)
	}
}
