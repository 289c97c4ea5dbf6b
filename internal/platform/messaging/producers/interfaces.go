package producers

import (
	"context"

	"github.com/segmentio/kafka-go"
)

// AlertPublisher pushes flattened alert summaries to the external alert bus.
// Publishing is best-effort: implementations must never let a bus failure
// reach the caller of the underlying financial operation.
type AlertPublisher interface {
	Publish(ctx context.Context, key string, value interface{}) error
	Close() error
}

// KafkaWriter wraps kafka.Writer methods for testing
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}
