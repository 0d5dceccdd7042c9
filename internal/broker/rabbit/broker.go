// Package rabbit implements the AMQP-broker adapter on RabbitMQ. The
// native client pushes deliveries over a channel per consumer; the adapter
// tracks a consumer tag per destination so unsubscribe cancels exactly
// that consumer.
package rabbit

import (
	"fmt"

	"brokerlab/config"
	"brokerlab/internal/broker"
	"brokerlab/internal/logger"
	"brokerlab/internal/metrics"
)

// AmqpBroker implements broker.Adapter for RabbitMQ
type AmqpBroker struct {
	cfg     *config.AmqpConfig
	log     *logger.Logger
	metrics *metrics.Metrics

	state broker.StateTracker
	subs  *broker.SubscriptionSet

	conn *connectionManager
	pub  *publisher
}

// Factory constructs the AMQP broker adapter without connecting
func Factory(cfg *config.Config, log *logger.Logger, m *metrics.Metrics) (broker.Adapter, error) {
	if cfg.Amqp == nil {
		return nil, fmt.Errorf("amqp broker is not configured")
	}
	return New(cfg.Amqp, log, m), nil
}

// New creates a disconnected AMQP broker adapter
func New(cfg *config.AmqpConfig, log *logger.Logger, m *metrics.Metrics) *AmqpBroker {
	b := &AmqpBroker{
		cfg:     cfg,
		log:     log,
		metrics: m,
		subs:    broker.NewSubscriptionSet(),
	}
	b.state.Set(broker.StateDisconnected)
	b.conn = newConnectionManager(b)
	b.pub = newPublisher(b)
	return b
}

// Kind implements broker.Adapter
func (b *AmqpBroker) Kind() broker.Kind {
	return broker.KindAmqp
}

// Connect implements broker.Adapter; no-op when already connected
func (b *AmqpBroker) Connect() error {
	if b.state.Connected() {
		return nil
	}

	if err := b.conn.Connect(); err != nil {
		b.state.Set(broker.StateDisconnected)
		return &broker.ConnectionError{Kind: broker.KindAmqp, Err: err}
	}

	b.state.Set(broker.StateConnected)
	return nil
}

// Disconnect implements broker.Adapter; never fails
func (b *AmqpBroker) Disconnect() {
	b.UnsubscribeAll()
	b.conn.Disconnect()
	b.state.Set(broker.StateDisconnected)
}

// Connected implements broker.Adapter
func (b *AmqpBroker) Connected() bool {
	return b.state.Connected() && b.conn.IsConnected()
}

// Healthy implements broker.Adapter
func (b *AmqpBroker) Healthy() bool {
	return b.Connected()
}

// Send implements broker.Adapter
func (b *AmqpBroker) Send(msg *broker.OutboundMessage) (string, error) {
	if !b.Connected() {
		return "", broker.ErrNotConnected
	}
	return b.pub.Publish(msg.Destination, msg.Payload, msg.Headers)
}

// Subscribe implements broker.Adapter. Re-subscribing to a subscribed
// destination keeps the first handler active and returns nil.
func (b *AmqpBroker) Subscribe(destination string, handler broker.Handler) error {
	if !b.Connected() {
		return &broker.SubscriptionError{Kind: broker.KindAmqp, Destination: destination, Err: broker.ErrNotConnected}
	}

	if b.subs.Has(destination) {
		b.log.Debug("already subscribed, keeping existing handler",
			"broker", broker.KindAmqp, "destination", destination)
		return nil
	}

	sub, err := b.subscribe(destination, handler)
	if err != nil {
		return &broker.SubscriptionError{Kind: broker.KindAmqp, Destination: destination, Err: err}
	}

	if !b.subs.Add(sub) {
		sub.Stop()
		return nil
	}

	b.updateSubscriptionGauge()
	b.log.Info("subscribed", "broker", broker.KindAmqp, "destination", destination)
	return nil
}

// Unsubscribe implements broker.Adapter
func (b *AmqpBroker) Unsubscribe(destination string) error {
	sub := b.subs.Remove(destination)
	if sub == nil {
		return nil
	}
	sub.Stop()
	b.updateSubscriptionGauge()
	b.log.Info("unsubscribed", "broker", broker.KindAmqp, "destination", destination)
	return nil
}

// UnsubscribeAll implements broker.Adapter
func (b *AmqpBroker) UnsubscribeAll() {
	for _, sub := range b.subs.Drain() {
		sub.Stop()
	}
	b.updateSubscriptionGauge()
}

func (b *AmqpBroker) updateSubscriptionGauge() {
	if b.metrics != nil {
		b.metrics.SetActiveSubscriptions(string(broker.KindAmqp), b.subs.Len())
	}
}
