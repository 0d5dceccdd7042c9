package kafkalog

import (
	"context"
	"errors"
	"io"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"brokerlab/internal/broker"
)

const headerMessageID = "brokerlab-message-id"

// subscribe creates a reader for the destination topic and starts the
// poll-loop worker. The cancel hook closes the reader, which also breaks
// a fetch blocked inside the loop.
func (b *LogBroker) subscribe(destination string, handler broker.Handler) *broker.Subscription {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: b.cfg.Brokers,
		Topic:   destination,
		GroupID: b.cfg.Group,
		MaxWait: b.pollTimeout,
	})
	return b.startConsumer(destination, handler, reader)
}

// startConsumer wraps the consumer in a subscription whose cancel hook
// closes it, and starts the poll-loop worker.
func (b *LogBroker) startConsumer(destination string, handler broker.Handler, consumer Consumer) *broker.Subscription {
	sub := broker.NewSubscription(destination, handler, func() {
		if err := consumer.Close(); err != nil {
			b.log.Error("failed to close Kafka reader",
				"destination", destination, "error", err)
		}
	})

	go b.pollLoop(sub, consumer)
	return sub
}

// pollLoop fetches messages with a bounded timeout per iteration and
// re-checks the running flag every cycle, so cancellation is observed
// within one poll timeout of Unsubscribe. Offsets are committed only when
// a consumer group is configured; kafka-go rejects commits without one.
func (b *LogBroker) pollLoop(sub *broker.Subscription, consumer Consumer) {
	for sub.Running() {
		ctx, cancel := context.WithTimeout(context.Background(), b.pollTimeout)
		msg, err := consumer.FetchMessage(ctx)
		cancel()

		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) {
				return // reader closed by Stop
			}
			if !sub.Running() {
				return
			}
			b.log.Error("fetch failed", "destination", sub.Destination, "error", err)
			continue
		}

		sub.Handler(b.toInbound(sub.Destination, msg))

		if b.cfg.Group == "" {
			continue
		}
		if err := consumer.CommitMessages(context.Background(), msg); err != nil {
			b.log.Error("failed to commit offset",
				"destination", sub.Destination, "error", err)
		}
	}
}

// toInbound converts a fetched record into the envelope shape
func (b *LogBroker) toInbound(destination string, msg kafka.Message) *broker.InboundMessage {
	messageID := ""
	props := map[string]string{
		"partition": strconv.Itoa(msg.Partition),
		"offset":    strconv.FormatInt(msg.Offset, 10),
	}
	for _, h := range msg.Headers {
		if h.Key == headerMessageID {
			messageID = string(h.Value)
		}
	}
	if messageID == "" {
		messageID = uuid.NewString()
	}

	receivedAt := msg.Time
	if receivedAt.IsZero() {
		receivedAt = time.Now()
	}

	return &broker.InboundMessage{
		Kind:        broker.KindLog,
		Destination: destination,
		Payload:     string(msg.Value),
		MessageID:   messageID,
		ReceivedAt:  receivedAt,
		Properties:  props,
	}
}
