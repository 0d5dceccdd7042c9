package natsq

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// publisher implements Publisher for NATS
type publisher struct {
	broker *QueueBroker
}

func newPublisher(b *QueueBroker) Publisher {
	return &publisher{broker: b}
}

// Publish sends a message to a subject. NATS assigns no message ID, so a
// synthetic one is generated and carried as a header.
func (p *publisher) Publish(destination, payload string, headers map[string]string) (string, error) {
	if !p.broker.conn.IsConnected() {
		return "", fmt.Errorf("not connected to NATS server")
	}

	deliveryID := uuid.NewString()

	msg := nats.NewMsg(destination)
	msg.Data = []byte(payload)
	msg.Header.Set(headerMessageID, deliveryID)
	for k, v := range headers {
		msg.Header.Set(k, v)
	}

	if err := p.broker.conn.Conn().PublishMsg(msg); err != nil {
		p.broker.log.Error("failed to publish message",
			"error", err, "destination", destination)
		return "", err
	}

	p.broker.log.Debug("published message",
		"destination", destination, "payloadSize", len(payload))
	return deliveryID, nil
}
