// Package kafkalog implements the log-broker adapter on Kafka. The native
// client is not callback driven, so each subscription runs an explicit
// poll loop on a dedicated worker; sends block until the write is
// acknowledged by the cluster.
package kafkalog

import (
	"fmt"
	"time"

	"brokerlab/config"
	"brokerlab/internal/broker"
	"brokerlab/internal/logger"
	"brokerlab/internal/metrics"
)

// LogBroker implements broker.Adapter for Kafka
type LogBroker struct {
	cfg         *config.LogBrokerCfg
	log         *logger.Logger
	metrics     *metrics.Metrics
	pollTimeout time.Duration

	state broker.StateTracker
	subs  *broker.SubscriptionSet

	conn *connectionManager
	pub  *publisher
}

// Factory constructs the log broker adapter without connecting
func Factory(cfg *config.Config, log *logger.Logger, m *metrics.Metrics) (broker.Adapter, error) {
	if cfg.Log == nil {
		return nil, fmt.Errorf("log broker is not configured")
	}
	return New(cfg.Log, log, m)
}

// New creates a disconnected log broker adapter
func New(cfg *config.LogBrokerCfg, log *logger.Logger, m *metrics.Metrics) (*LogBroker, error) {
	pollTimeout, err := time.ParseDuration(cfg.PollTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid poll timeout: %w", err)
	}

	b := &LogBroker{
		cfg:         cfg,
		log:         log,
		metrics:     m,
		pollTimeout: pollTimeout,
		subs:        broker.NewSubscriptionSet(),
	}
	b.state.Set(broker.StateDisconnected)
	b.conn = newConnectionManager(b)
	b.pub = newPublisher(b)
	return b, nil
}

// Kind implements broker.Adapter
func (b *LogBroker) Kind() broker.Kind {
	return broker.KindLog
}

// Connect implements broker.Adapter; no-op when already connected
func (b *LogBroker) Connect() error {
	if b.state.Connected() {
		return nil
	}

	if err := b.conn.Connect(); err != nil {
		b.state.Set(broker.StateDisconnected)
		return &broker.ConnectionError{Kind: broker.KindLog, Err: err}
	}

	b.state.Set(broker.StateConnected)
	return nil
}

// Disconnect implements broker.Adapter; never fails
func (b *LogBroker) Disconnect() {
	b.UnsubscribeAll()
	b.conn.Disconnect()
	b.state.Set(broker.StateDisconnected)
}

// Connected implements broker.Adapter
func (b *LogBroker) Connected() bool {
	return b.state.Connected()
}

// Healthy implements broker.Adapter
func (b *LogBroker) Healthy() bool {
	return b.Connected()
}

// Send implements broker.Adapter. The write blocks until the cluster
// acknowledges it.
func (b *LogBroker) Send(msg *broker.OutboundMessage) (string, error) {
	if !b.Connected() {
		return "", broker.ErrNotConnected
	}
	return b.pub.Publish(msg.Destination, msg.Payload, msg.Headers)
}

// Subscribe implements broker.Adapter. Re-subscribing to a subscribed
// destination keeps the first handler active and returns nil.
func (b *LogBroker) Subscribe(destination string, handler broker.Handler) error {
	if !b.Connected() {
		return &broker.SubscriptionError{Kind: broker.KindLog, Destination: destination, Err: broker.ErrNotConnected}
	}

	if b.subs.Has(destination) {
		b.log.Debug("already subscribed, keeping existing handler",
			"broker", broker.KindLog, "destination", destination)
		return nil
	}

	sub := b.subscribe(destination, handler)
	if !b.subs.Add(sub) {
		sub.Stop()
		return nil
	}

	b.updateSubscriptionGauge()
	b.log.Info("subscribed", "broker", broker.KindLog, "destination", destination)
	return nil
}

// Unsubscribe implements broker.Adapter
func (b *LogBroker) Unsubscribe(destination string) error {
	sub := b.subs.Remove(destination)
	if sub == nil {
		return nil
	}
	sub.Stop()
	b.updateSubscriptionGauge()
	b.log.Info("unsubscribed", "broker", broker.KindLog, "destination", destination)
	return nil
}

// UnsubscribeAll implements broker.Adapter
func (b *LogBroker) UnsubscribeAll() {
	for _, sub := range b.subs.Drain() {
		sub.Stop()
	}
	b.updateSubscriptionGauge()
}

func (b *LogBroker) updateSubscriptionGauge() {
	if b.metrics != nil {
		b.metrics.SetActiveSubscriptions(string(broker.KindLog), b.subs.Len())
	}
}
