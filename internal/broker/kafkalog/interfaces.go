package kafkalog

import (
	"context"

	"github.com/segmentio/kafka-go"
)

// Consumer is the native read side of one subscription. *kafka.Reader
// satisfies it; the poll loop depends on this interface only.
type Consumer interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}
