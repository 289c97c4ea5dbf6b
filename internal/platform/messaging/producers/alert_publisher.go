package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/meridianbank/corebank/internal/config"
	"github.com/segmentio/kafka-go"
)

// KafkaAlertPublisher publishes alert summaries to the configured bus topic
type KafkaAlertPublisher struct {
	logger *slog.Logger
	writer KafkaWriter // Interface for testability
	topic  string
}

// NewKafkaAlertPublisher creates the bus publisher and ensures the topic exists
func NewKafkaAlertPublisher(ctx context.Context, logger *slog.Logger, cfg *config.AlertBusConfig) (*KafkaAlertPublisher, error) {
	if cfg.Topic == "" {
		return nil, fmt.Errorf("alert bus topic is not configured")
	}

	conn, err := kafka.Dial("tcp", cfg.Brokers)
	if err != nil {
		return nil, fmt.Errorf("failed to dial kafka for alert publisher: %w", err)
	}
	defer conn.Close()

	err = ensureTopic(conn, cfg.Topic, cfg.NumPartitions, cfg.ReplicationFactor, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure alert topic %s exists: %w", cfg.Topic, err)
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        cfg.Topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		Async:        true, // Alerts are fire-and-forget; never block the transfer path
		WriteTimeout: cfg.WriteTimeout,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logger.Error("Failed to write alert messages asynchronously", "topic", cfg.Topic, "error", err, "count", len(messages))
			} else {
				logger.Debug("Successfully wrote alert messages asynchronously", "topic", cfg.Topic, "count", len(messages))
			}
		},
	}

	return &KafkaAlertPublisher{
		logger: logger,
		writer: writer,
		topic:  cfg.Topic,
	}, nil
}

// Publish sends one alert summary to the bus
func (p *KafkaAlertPublisher) Publish(ctx context.Context, key string, value interface{}) error {
	jsonValue, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal alert summary: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: jsonValue,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish alert summary",
			"topic", p.topic,
			"key", key,
			"error", err,
		)
		return fmt.Errorf("failed to publish alert summary to %s: %w", p.topic, err)
	}

	p.logger.Debug("Published alert summary", "topic", p.topic, "key", key)
	return nil
}

// Close shuts the underlying writer down
func (p *KafkaAlertPublisher) Close() error {
	p.logger.Info("Closing alert bus publisher", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close alert bus writer for topic %s: %w", p.topic, err)
	}
	return nil
}

// NoopAlertPublisher is selected when no alert bus is configured. Publishing
// silently succeeds so the dispatcher's code path stays uniform.
type NoopAlertPublisher struct{}

func (NoopAlertPublisher) Publish(context.Context, string, interface{}) error { return nil }
func (NoopAlertPublisher) Close() error                                       { return nil }
