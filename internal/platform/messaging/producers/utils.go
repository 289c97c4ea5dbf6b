package producers

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

const partitionReadAttempts = 5

// ensureTopic makes sure the alert topic exists before the first publish.
// Partition reads can flake while brokers settle, so it retries before
// deciding the topic is missing.
func ensureTopic(conn *kafka.Conn, topic string, partitions int, replicationFactor int, log *slog.Logger) error {
	var existing []kafka.Partition
	var readErr error

	for attempt := 1; attempt <= partitionReadAttempts; attempt++ {
		existing, readErr = conn.ReadPartitions(topic)
		if readErr == nil {
			break
		}
		log.Warn("partition read failed, retrying", "topic", topic, "attempt", attempt, "error", readErr)
		time.Sleep(2 * time.Second)
	}

	if len(existing) > 0 {
		if readErr != nil {
			log.Warn("topic exists but last partition read errored", "topic", topic, "error", readErr)
		}
		return nil
	}

	cfg := kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     partitions,
		ReplicationFactor: replicationFactor,
	}
	if cfg.NumPartitions == 0 {
		cfg.NumPartitions = 1
	}
	if cfg.ReplicationFactor == 0 {
		cfg.ReplicationFactor = 1
	}

	log.Info("creating alert topic", "topic", topic, "partitions", cfg.NumPartitions)
	if err := conn.CreateTopics(cfg); err != nil {
		return fmt.Errorf("failed to create kafka topic %s: %w", topic, err)
	}
	return nil
}
