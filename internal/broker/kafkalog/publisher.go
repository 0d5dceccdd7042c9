package kafkalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// publisher writes messages through the shared writer. WriteMessages
// blocks until the cluster acknowledges the write (RequireAll), so a nil
// return means the record is in the log.
type publisher struct {
	broker *LogBroker
}

func newPublisher(b *LogBroker) *publisher {
	return &publisher{broker: b}
}

// Publish appends a message to the destination topic
func (p *publisher) Publish(destination, payload string, headers map[string]string) (string, error) {
	w := p.broker.conn.Writer()
	if w == nil {
		return "", fmt.Errorf("no Kafka writer available")
	}

	deliveryID := uuid.NewString()
	msg := kafka.Message{
		Topic:   destination,
		Value:   []byte(payload),
		Headers: toHeaders(deliveryID, headers),
	}

	if err := w.WriteMessages(context.Background(), msg); err != nil {
		p.broker.log.Error("failed to write message",
			"error", err, "destination", destination)
		return "", err
	}

	p.broker.log.Debug("wrote message",
		"destination", destination, "payloadSize", len(payload))
	return deliveryID, nil
}

// toHeaders converts the header map plus the delivery ID to Kafka headers
func toHeaders(deliveryID string, h map[string]string) []kafka.Header {
	headers := make([]kafka.Header, 0, len(h)+1)
	headers = append(headers, kafka.Header{Key: headerMessageID, Value: []byte(deliveryID)})
	for k, v := range h {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(v)})
	}
	return headers
}
