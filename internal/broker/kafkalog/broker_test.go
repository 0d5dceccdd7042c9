package kafkalog

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brokerlab/config"
	"brokerlab/internal/broker"
	"brokerlab/internal/logger"
)

func newTestBroker(t *testing.T) *LogBroker {
	t.Helper()
	b, err := New(&config.LogBrokerCfg{
		Brokers:            []string{"127.0.0.1:1"},
		PollTimeout:        "250ms",
		DefaultDestination: "events",
	}, logger.NewNop(), nil)
	require.NoError(t, err)
	return b
}

func TestFactoryRequiresConfig(t *testing.T) {
	_, err := Factory(&config.Config{}, logger.NewNop(), nil)
	assert.Error(t, err)

	adapter, err := Factory(&config.Config{
		Log: &config.LogBrokerCfg{Brokers: []string{"127.0.0.1:9092"}, PollTimeout: "1s"},
	}, logger.NewNop(), nil)
	require.NoError(t, err)
	assert.Equal(t, broker.KindLog, adapter.Kind())
}

func TestNewRejectsInvalidPollTimeout(t *testing.T) {
	_, err := New(&config.LogBrokerCfg{
		Brokers:     []string{"127.0.0.1:9092"},
		PollTimeout: "not-a-duration",
	}, logger.NewNop(), nil)
	assert.Error(t, err)
}

func TestNewStartsDisconnected(t *testing.T) {
	b := newTestBroker(t)

	assert.Equal(t, broker.KindLog, b.Kind())
	assert.False(t, b.Connected())
	assert.False(t, b.Healthy())
}

func TestConnectFailureWrapsError(t *testing.T) {
	b := newTestBroker(t)

	err := b.Connect()
	require.Error(t, err)

	var connErr *broker.ConnectionError
	assert.True(t, errors.As(err, &connErr))
	assert.Equal(t, broker.KindLog, connErr.Kind)
	assert.False(t, b.Connected())
}

func TestSendWhenDisconnected(t *testing.T) {
	b := newTestBroker(t)

	_, err := b.Send(&broker.OutboundMessage{Destination: "events", Payload: "hi"})
	assert.ErrorIs(t, err, broker.ErrNotConnected)
}

func TestSubscribeWhenDisconnected(t *testing.T) {
	b := newTestBroker(t)

	err := b.Subscribe("events", func(*broker.InboundMessage) {})
	require.Error(t, err)

	var subErr *broker.SubscriptionError
	assert.True(t, errors.As(err, &subErr))
	assert.ErrorIs(t, err, broker.ErrNotConnected)
}

func TestUnsubscribeUnknownDestination(t *testing.T) {
	b := newTestBroker(t)
	assert.NoError(t, b.Unsubscribe("never-subscribed"))
}

func TestDisconnectWhenDisconnected(t *testing.T) {
	b := newTestBroker(t)
	assert.NotPanics(t, func() {
		b.Disconnect()
		b.UnsubscribeAll()
	})
	assert.False(t, b.Connected())
}
