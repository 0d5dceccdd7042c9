package kafkalog

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brokerlab/config"
	"brokerlab/internal/broker"
	"brokerlab/internal/logger"
)

// fakeConsumer hands out queued messages one per fetch, then blocks until
// the fetch context expires. Close makes further fetches return io.EOF,
// like a closed *kafka.Reader.
type fakeConsumer struct {
	mu      sync.Mutex
	queued  []kafka.Message
	commits int
	closed  bool
}

func (f *fakeConsumer) FetchMessage(ctx context.Context) (kafka.Message, error) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return kafka.Message{}, io.EOF
	}
	if len(f.queued) > 0 {
		msg := f.queued[0]
		f.queued = f.queued[1:]
		f.mu.Unlock()
		return msg, nil
	}
	f.mu.Unlock()

	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (f *fakeConsumer) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commits += len(msgs)
	return nil
}

func (f *fakeConsumer) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConsumer) commitCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.commits
}

func newPollBroker(t *testing.T, group string) *LogBroker {
	t.Helper()
	b, err := New(&config.LogBrokerCfg{
		Brokers:            []string{"127.0.0.1:9092"},
		Group:              group,
		PollTimeout:        "50ms",
		DefaultDestination: "events",
	}, logger.NewNop(), nil)
	require.NoError(t, err)
	return b
}

// collector records handler deliveries
type collector struct {
	mu   sync.Mutex
	msgs []*broker.InboundMessage
}

func (c *collector) handler(msg *broker.InboundMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, msg)
}

func (c *collector) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.msgs)
}

func (c *collector) at(i int) *broker.InboundMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.msgs[i]
}

func TestPollLoopDeliversMessages(t *testing.T) {
	b := newPollBroker(t, "workers")
	fc := &fakeConsumer{queued: []kafka.Message{
		{Partition: 2, Offset: 7, Value: []byte("first"),
			Headers: []kafka.Header{{Key: headerMessageID, Value: []byte("id-1")}}},
		{Partition: 2, Offset: 8, Value: []byte("second")},
	}}

	var c collector
	sub := b.startConsumer("events", c.handler, fc)
	defer sub.Stop()

	require.Eventually(t, func() bool { return c.count() == 2 }, 2*time.Second, 5*time.Millisecond)

	first := c.at(0)
	assert.Equal(t, broker.KindLog, first.Kind)
	assert.Equal(t, "events", first.Destination)
	assert.Equal(t, "first", first.Payload)
	assert.Equal(t, "id-1", first.MessageID)
	assert.Equal(t, "2", first.Properties["partition"])
	assert.Equal(t, "7", first.Properties["offset"])

	assert.NotEmpty(t, c.at(1).MessageID, "missing header gets a synthetic ID")
}

func TestPollLoopStopsWithinPollTimeout(t *testing.T) {
	b := newPollBroker(t, "workers")
	fc := &fakeConsumer{}
	sub := broker.NewSubscription("events", func(*broker.InboundMessage) {}, nil)

	exited := make(chan struct{})
	go func() {
		b.pollLoop(sub, fc)
		close(exited)
	}()

	time.Sleep(20 * time.Millisecond) // let the loop block inside a fetch
	sub.Stop()

	// the flag is re-checked every cycle and a fetch blocks for at most
	// one 50ms poll timeout, so exit must come well inside this window
	select {
	case <-exited:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("poll loop did not observe cancellation within the poll timeout")
	}
	assert.False(t, sub.Running())
}

func TestStartConsumerStopClosesReader(t *testing.T) {
	b := newPollBroker(t, "workers")
	fc := &fakeConsumer{}

	sub := b.startConsumer("events", func(*broker.InboundMessage) {}, fc)
	sub.Stop()

	fc.mu.Lock()
	closed := fc.closed
	fc.mu.Unlock()
	assert.True(t, closed, "Stop releases the native reader")
}

func TestPollLoopExitsWhenReaderClosed(t *testing.T) {
	b := newPollBroker(t, "workers")
	fc := &fakeConsumer{}
	fc.Close()

	exited := make(chan struct{})
	sub := broker.NewSubscription("events", func(*broker.InboundMessage) {}, nil)
	go func() {
		b.pollLoop(sub, fc)
		close(exited)
	}()

	select {
	case <-exited:
	case <-time.After(time.Second):
		t.Fatal("poll loop kept running against a closed reader")
	}
	assert.True(t, sub.Running(), "loop exit does not flip the flag; Stop does")
}

func TestPollLoopCommitsOnlyWithGroup(t *testing.T) {
	grouped := newPollBroker(t, "workers")
	fcGrouped := &fakeConsumer{queued: []kafka.Message{{Value: []byte("hi")}}}
	sub := grouped.startConsumer("events", func(*broker.InboundMessage) {}, fcGrouped)
	require.Eventually(t, func() bool { return fcGrouped.commitCount() == 1 }, 2*time.Second, 5*time.Millisecond)
	sub.Stop()

	ungrouped := newPollBroker(t, "")
	var c collector
	fcBare := &fakeConsumer{queued: []kafka.Message{{Value: []byte("hi")}}}
	sub = ungrouped.startConsumer("events", c.handler, fcBare)
	require.Eventually(t, func() bool { return c.count() == 1 }, 2*time.Second, 5*time.Millisecond)
	sub.Stop()
	assert.Equal(t, 0, fcBare.commitCount(), "no offset commit without a consumer group")
}
