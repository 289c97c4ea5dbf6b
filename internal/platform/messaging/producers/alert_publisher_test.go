package producers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockKafkaWriter struct {
	messages []kafka.Message
	writeErr error
	closed   bool
}

func (m *mockKafkaWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	m.messages = append(m.messages, msgs...)
	return nil
}

func (m *mockKafkaWriter) Close() error {
	m.closed = true
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func TestKafkaAlertPublisher_Publish(t *testing.T) {
	writer := &mockKafkaWriter{}
	p := &KafkaAlertPublisher{logger: testLogger(), writer: writer, topic: "risk_alerts"}

	summary := map[string]any{
		"id":       "alert-1",
		"type":     "anomalous-transaction",
		"severity": "high",
	}

	err := p.Publish(context.Background(), "alert-1", summary)
	require.NoError(t, err)
	require.Len(t, writer.messages, 1)
	assert.Equal(t, []byte("alert-1"), writer.messages[0].Key)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(writer.messages[0].Value, &decoded))
	assert.Equal(t, "high", decoded["severity"])
}

func TestKafkaAlertPublisher_PublishError(t *testing.T) {
	writer := &mockKafkaWriter{writeErr: errors.New("broker down")}
	p := &KafkaAlertPublisher{logger: testLogger(), writer: writer, topic: "risk_alerts"}

	err := p.Publish(context.Background(), "alert-1", map[string]any{})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to publish alert summary")
}

func TestKafkaAlertPublisher_Close(t *testing.T) {
	writer := &mockKafkaWriter{}
	p := &KafkaAlertPublisher{logger: testLogger(), writer: writer, topic: "risk_alerts"}

	require.NoError(t, p.Close())
	assert.True(t, writer.closed)
}

func TestNoopAlertPublisher(t *testing.T) {
	p := NoopAlertPublisher{}
	assert.NoError(t, p.Publish(context.Background(), "k", "v"))
	assert.NoError(t, p.Close())
}
