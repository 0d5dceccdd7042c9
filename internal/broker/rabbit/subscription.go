package rabbit

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"brokerlab/internal/broker"
)

// subscribe declares the destination queue, starts a native consumer with
// a unique tag, and runs one worker draining its delivery channel. The
// cancel hook calls Channel.Cancel with that tag, which closes the
// delivery channel and lets the worker exit.
func (b *AmqpBroker) subscribe(destination string, handler broker.Handler) (*broker.Subscription, error) {
	ch := b.conn.Channel()
	if ch == nil {
		return nil, fmt.Errorf("no AMQP channel available")
	}

	q, err := ch.QueueDeclare(
		destination,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to declare queue %q: %w", destination, err)
	}

	consumerTag := fmt.Sprintf("brokerlab-%s-%s", destination, uuid.NewString()[:8])
	deliveries, err := ch.Consume(
		q.Name,
		consumerTag,
		true,  // autoAck
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start consumer for %q: %w", destination, err)
	}

	sub := broker.NewSubscription(destination, handler, func() {
		if err := ch.Cancel(consumerTag, false); err != nil {
			b.log.Error("failed to cancel AMQP consumer",
				"destination", destination, "consumerTag", consumerTag, "error", err)
		}
	})

	go b.consumeLoop(sub, deliveries)
	return sub, nil
}

// consumeLoop drains the delivery channel until the consumer is cancelled
// or the channel closes.
func (b *AmqpBroker) consumeLoop(sub *broker.Subscription, deliveries <-chan amqp.Delivery) {
	for d := range deliveries {
		if !sub.Running() {
			return
		}
		sub.Handler(b.toInbound(sub.Destination, d))
	}
}

// toInbound converts a native delivery into the envelope shape
func (b *AmqpBroker) toInbound(destination string, d amqp.Delivery) *broker.InboundMessage {
	messageID := d.MessageId
	if messageID == "" {
		messageID = uuid.NewString()
	}

	receivedAt := d.Timestamp
	if receivedAt.IsZero() {
		receivedAt = time.Now()
	}

	props := map[string]string{
		"deliveryTag": strconv.FormatUint(d.DeliveryTag, 10),
		"exchange":    d.Exchange,
		"routingKey":  d.RoutingKey,
	}

	return &broker.InboundMessage{
		Kind:        broker.KindAmqp,
		Destination: destination,
		Payload:     string(d.Body),
		MessageID:   messageID,
		ReceivedAt:  receivedAt,
		Properties:  props,
	}
}
