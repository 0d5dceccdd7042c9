package natsq

import (
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"brokerlab/internal/broker"
)

const headerMessageID = "Brokerlab-Message-Id"

// subscribe registers a native message callback for the subject and wraps
// the resulting handle in a broker.Subscription whose cancel hook
// unsubscribes exactly this consumer.
func (b *QueueBroker) subscribe(destination string, handler broker.Handler) (*broker.Subscription, error) {
	var native *nats.Subscription
	sub := broker.NewSubscription(destination, handler, func() {
		if native == nil {
			return
		}
		if err := native.Unsubscribe(); err != nil {
			b.log.Error("failed to release NATS subscription",
				"destination", destination, "error", err)
		}
	})

	native, err := b.conn.Conn().Subscribe(destination, func(msg *nats.Msg) {
		if !sub.Running() {
			return
		}
		handler(b.toInbound(destination, msg))
	})
	if err != nil {
		return nil, err
	}

	return sub, nil
}

// toInbound converts a native message into the envelope shape
func (b *QueueBroker) toInbound(destination string, msg *nats.Msg) *broker.InboundMessage {
	messageID := msg.Header.Get(headerMessageID)
	if messageID == "" {
		messageID = uuid.NewString()
	}

	props := map[string]string{
		"subject": msg.Subject,
	}
	if msg.Reply != "" {
		props["reply"] = msg.Reply
	}

	return &broker.InboundMessage{
		Kind:        broker.KindQueue,
		Destination: destination,
		Payload:     string(msg.Data),
		MessageID:   messageID,
		ReceivedAt:  time.Now(),
		Properties:  props,
	}
}
