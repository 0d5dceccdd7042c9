package wschan

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
)

// connectionManager owns the WebSocket connection, the write lock the
// library requires for concurrent writers, and the read pump that
// dispatches remote frames into the local subscription table.
type connectionManager struct {
	broker    *SocketBroker
	conn      *websocket.Conn
	connected atomic.Bool
	writeMu   sync.Mutex
	mu        sync.Mutex
	done      chan struct{}
}

func newConnectionManager(b *SocketBroker) *connectionManager {
	return &connectionManager{broker: b}
}

// Connect dials the channel endpoint and starts the read pump
func (cm *connectionManager) Connect() error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	cm.broker.log.Info("connecting to socket channel", "url", cm.broker.cfg.URL)

	dialer := &websocket.Dialer{HandshakeTimeout: cm.broker.handshakeTimeout}
	conn, _, err := dialer.Dial(cm.broker.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("failed to dial socket channel: %w", err)
	}

	cm.conn = conn
	cm.done = make(chan struct{})
	cm.connected.Store(true)

	go cm.readPump(conn, cm.done)

	cm.broker.log.Info("connected to socket channel")
	return nil
}

// Disconnect stops the read pump and closes the socket; errors are
// logged only
func (cm *connectionManager) Disconnect() {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if !cm.connected.Load() {
		return
	}
	cm.connected.Store(false)
	close(cm.done)

	cm.broker.log.Info("disconnecting from socket channel")
	if cm.conn != nil {
		if err := cm.conn.Close(); err != nil {
			cm.broker.log.Error("failed to close socket connection", "error", err)
		}
		cm.conn = nil
	}
}

// IsConnected returns the current connection status
func (cm *connectionManager) IsConnected() bool {
	return cm.connected.Load()
}

// WriteFrame marshals and writes one frame. gorilla/websocket allows a
// single concurrent writer, hence the write lock.
func (cm *connectionManager) WriteFrame(f *frame) error {
	if !cm.connected.Load() {
		return fmt.Errorf("socket channel is not connected")
	}

	data, err := f.marshal()
	if err != nil {
		return fmt.Errorf("failed to encode frame: %w", err)
	}

	cm.writeMu.Lock()
	defer cm.writeMu.Unlock()
	if cm.conn == nil {
		return fmt.Errorf("socket channel is not connected")
	}
	return cm.conn.WriteMessage(websocket.TextMessage, data)
}

// readPump reads frames until the connection closes and dispatches each
// one to the local subscription table.
func (cm *connectionManager) readPump(conn *websocket.Conn, done chan struct{}) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-done:
				// expected during disconnect
			default:
				cm.broker.log.Error("socket read failed", "error", err)
				cm.connected.Store(false)
			}
			return
		}

		f, err := parseFrame(data)
		if err != nil {
			cm.broker.log.Error("discarding malformed frame", "error", err)
			continue
		}

		cm.broker.dispatchLocal(f, true)
	}
}
