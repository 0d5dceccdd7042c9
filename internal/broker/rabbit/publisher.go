package rabbit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// publisher sends messages over the shared channel. Publishing is
// fire-and-forget once the native call returns.
type publisher struct {
	broker *AmqpBroker
}

func newPublisher(b *AmqpBroker) *publisher {
	return &publisher{broker: b}
}

// Publish sends a message to the destination routing key on the
// configured exchange (default exchange when unset).
func (p *publisher) Publish(destination, payload string, headers map[string]string) (string, error) {
	ch := p.broker.conn.Channel()
	if ch == nil {
		return "", fmt.Errorf("no AMQP channel available")
	}

	table := amqp.Table{}
	for k, v := range headers {
		table[k] = v
	}

	deliveryID := uuid.NewString()
	pub := amqp.Publishing{
		MessageId: deliveryID,
		Timestamp: time.Now(),
		Body:      []byte(payload),
		Headers:   table,
	}

	if err := ch.PublishWithContext(context.Background(), p.broker.cfg.Exchange, destination, false, false, pub); err != nil {
		p.broker.log.Error("failed to publish message",
			"error", err, "destination", destination)
		return "", err
	}

	p.broker.log.Debug("published message",
		"destination", destination, "payloadSize", len(payload))
	return deliveryID, nil
}
