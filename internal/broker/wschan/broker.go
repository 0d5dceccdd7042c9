// Package wschan implements the socket-broker adapter on a WebSocket
// broadcast channel. The substrate has no server-side subscription
// concept, so broker semantics are emulated with a local destination
// table: a send from this process synchronously triggers its own
// subscribed handler, and inbound frames from remote peers are dispatched
// through the same table. Callers must not assume an inbound delivery
// implies a distinct remote sender.
package wschan

import (
	"fmt"
	"time"

	"brokerlab/config"
	"brokerlab/internal/broker"
	"brokerlab/internal/logger"
	"brokerlab/internal/metrics"
)

// SocketBroker implements broker.Adapter for a WebSocket channel
type SocketBroker struct {
	cfg              *config.SocketConfig
	log              *logger.Logger
	metrics          *metrics.Metrics
	handshakeTimeout time.Duration

	state broker.StateTracker
	subs  *broker.SubscriptionSet

	conn *connectionManager
}

// Factory constructs the socket broker adapter without connecting
func Factory(cfg *config.Config, log *logger.Logger, m *metrics.Metrics) (broker.Adapter, error) {
	if cfg.Socket == nil {
		return nil, fmt.Errorf("socket broker is not configured")
	}
	return New(cfg.Socket, log, m)
}

// New creates a disconnected socket broker adapter
func New(cfg *config.SocketConfig, log *logger.Logger, m *metrics.Metrics) (*SocketBroker, error) {
	handshakeTimeout, err := time.ParseDuration(cfg.HandshakeTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid handshake timeout: %w", err)
	}

	b := &SocketBroker{
		cfg:              cfg,
		log:              log,
		metrics:          m,
		handshakeTimeout: handshakeTimeout,
		subs:             broker.NewSubscriptionSet(),
	}
	b.state.Set(broker.StateDisconnected)
	b.conn = newConnectionManager(b)
	return b, nil
}

// Kind implements broker.Adapter
func (b *SocketBroker) Kind() broker.Kind {
	return broker.KindSocket
}

// Connect implements broker.Adapter; no-op when already connected
func (b *SocketBroker) Connect() error {
	if b.state.Connected() {
		return nil
	}

	if err := b.conn.Connect(); err != nil {
		b.state.Set(broker.StateDisconnected)
		return &broker.ConnectionError{Kind: broker.KindSocket, Err: err}
	}

	b.state.Set(broker.StateConnected)
	return nil
}

// Disconnect implements broker.Adapter; never fails
func (b *SocketBroker) Disconnect() {
	b.UnsubscribeAll()
	b.conn.Disconnect()
	b.state.Set(broker.StateDisconnected)
}

// Connected implements broker.Adapter
func (b *SocketBroker) Connected() bool {
	return b.state.Connected() && b.conn.IsConnected()
}

// Healthy implements broker.Adapter
func (b *SocketBroker) Healthy() bool {
	return b.Connected()
}

// Send implements broker.Adapter. The frame is written to the socket and
// then delivered synchronously to this process's own handler for the
// destination, if one is subscribed.
func (b *SocketBroker) Send(msg *broker.OutboundMessage) (string, error) {
	if !b.Connected() {
		return "", broker.ErrNotConnected
	}

	frame := newFrame(msg.Destination, msg.Payload, msg.Headers)
	if err := b.conn.WriteFrame(frame); err != nil {
		b.log.Error("failed to write frame",
			"error", err, "destination", msg.Destination)
		return "", err
	}

	b.dispatchLocal(frame, false)
	return frame.MessageID, nil
}

// Subscribe implements broker.Adapter. Subscription is purely local: the
// destination is added to the emulation table, no network request is
// made. Re-subscribing keeps the first handler active and returns nil.
func (b *SocketBroker) Subscribe(destination string, handler broker.Handler) error {
	if !b.Connected() {
		return &broker.SubscriptionError{Kind: broker.KindSocket, Destination: destination, Err: broker.ErrNotConnected}
	}

	sub := broker.NewSubscription(destination, handler, nil)
	if !b.subs.Add(sub) {
		b.log.Debug("already subscribed, keeping existing handler",
			"broker", broker.KindSocket, "destination", destination)
		return nil
	}

	b.updateSubscriptionGauge()
	b.log.Info("subscribed", "broker", broker.KindSocket, "destination", destination)
	return nil
}

// Unsubscribe implements broker.Adapter
func (b *SocketBroker) Unsubscribe(destination string) error {
	sub := b.subs.Remove(destination)
	if sub == nil {
		return nil
	}
	sub.Stop()
	b.updateSubscriptionGauge()
	b.log.Info("unsubscribed", "broker", broker.KindSocket, "destination", destination)
	return nil
}

// UnsubscribeAll implements broker.Adapter
func (b *SocketBroker) UnsubscribeAll() {
	for _, sub := range b.subs.Drain() {
		sub.Stop()
	}
	b.updateSubscriptionGauge()
}

// dispatchLocal delivers a frame to the local handler subscribed to its
// destination, if any. remote marks frames that arrived from a peer.
func (b *SocketBroker) dispatchLocal(f *frame, remote bool) {
	sub := b.subs.Get(f.Destination)
	if sub == nil || !sub.Running() {
		return
	}
	sub.Handler(f.toInbound(remote))
}

func (b *SocketBroker) updateSubscriptionGauge() {
	if b.metrics != nil {
		b.metrics.SetActiveSubscriptions(string(broker.KindSocket), b.subs.Len())
	}
}
