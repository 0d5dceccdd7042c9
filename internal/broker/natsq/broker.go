// Package natsq implements the queue-broker adapter on NATS. Consumption
// is callback driven: the native client invokes a registered handler per
// delivered message, so no explicit poll loop exists.
package natsq

import (
	"fmt"

	"brokerlab/config"
	"brokerlab/internal/broker"
	"brokerlab/internal/logger"
	"brokerlab/internal/metrics"
)

// QueueBroker implements broker.Adapter for NATS
type QueueBroker struct {
	cfg     *config.QueueConfig
	log     *logger.Logger
	metrics *metrics.Metrics

	state broker.StateTracker
	subs  *broker.SubscriptionSet

	conn ConnectionManager
	pub  Publisher
}

// Factory constructs the queue broker adapter without connecting
func Factory(cfg *config.Config, log *logger.Logger, m *metrics.Metrics) (broker.Adapter, error) {
	if cfg.Queue == nil {
		return nil, fmt.Errorf("queue broker is not configured")
	}
	return New(cfg.Queue, log, m), nil
}

// New creates a disconnected queue broker adapter
func New(cfg *config.QueueConfig, log *logger.Logger, m *metrics.Metrics) *QueueBroker {
	b := &QueueBroker{
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
func (b *QueueBroker) Kind() broker.Kind {
	return broker.KindQueue
}

// Connect implements broker.Adapter. Calling Connect on a connected
// adapter is a no-op.
func (b *QueueBroker) Connect() error {
	if b.state.Connected() {
		return nil
	}

	if err := b.conn.Connect(); err != nil {
		b.state.Set(broker.StateDisconnected)
		return &broker.ConnectionError{Kind: broker.KindQueue, Err: err}
	}

	b.state.Set(broker.StateConnected)
	return nil
}

// Disconnect implements broker.Adapter. It never fails; teardown errors
// are logged only.
func (b *QueueBroker) Disconnect() {
	b.UnsubscribeAll()
	b.conn.Disconnect()
	b.state.Set(broker.StateDisconnected)
}

// Connected implements broker.Adapter
func (b *QueueBroker) Connected() bool {
	return b.state.Connected() && b.conn.IsConnected()
}

// Healthy implements broker.Adapter
func (b *QueueBroker) Healthy() bool {
	return b.Connected()
}

// Send implements broker.Adapter
func (b *QueueBroker) Send(msg *broker.OutboundMessage) (string, error) {
	if !b.Connected() {
		return "", broker.ErrNotConnected
	}
	return b.pub.Publish(msg.Destination, msg.Payload, msg.Headers)
}

// Subscribe implements broker.Adapter. Re-subscribing to a subscribed
// destination keeps the first handler active and returns nil.
func (b *QueueBroker) Subscribe(destination string, handler broker.Handler) error {
	if !b.Connected() {
		return &broker.SubscriptionError{Kind: broker.KindQueue, Destination: destination, Err: broker.ErrNotConnected}
	}

	if b.subs.Has(destination) {
		b.log.Debug("already subscribed, keeping existing handler",
			"broker", broker.KindQueue, "destination", destination)
		return nil
	}

	sub, err := b.subscribe(destination, handler)
	if err != nil {
		return &broker.SubscriptionError{Kind: broker.KindQueue, Destination: destination, Err: err}
	}

	if !b.subs.Add(sub) {
		// lost the race to a concurrent subscribe for the same destination
		sub.Stop()
		return nil
	}

	b.updateSubscriptionGauge()
	b.log.Info("subscribed", "broker", broker.KindQueue, "destination", destination)
	return nil
}

// Unsubscribe implements broker.Adapter
func (b *QueueBroker) Unsubscribe(destination string) error {
	sub := b.subs.Remove(destination)
	if sub == nil {
		return nil
	}
	sub.Stop()
	b.updateSubscriptionGauge()
	b.log.Info("unsubscribed", "broker", broker.KindQueue, "destination", destination)
	return nil
}

// UnsubscribeAll implements broker.Adapter
func (b *QueueBroker) UnsubscribeAll() {
	for _, sub := range b.subs.Drain() {
		sub.Stop()
	}
	b.updateSubscriptionGauge()
}

func (b *QueueBroker) updateSubscriptionGauge() {
	if b.metrics != nil {
		b.metrics.SetActiveSubscriptions(string(broker.KindQueue), b.subs.Len())
	}
}
