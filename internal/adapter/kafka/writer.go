package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/facility-discovery/internal/config"
	"github.com/couchcryptid/facility-discovery/internal/domain"
)

// Writer publishes user submissions to the submission topic. It is the
// remote write path the offline queue drains into; the message key is the
// submission's idempotency key so downstream consumers can deduplicate
// redeliveries.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured submission topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSubmissionTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// Send serializes and publishes one submission. It satisfies queue.SendFunc.
func (w *Writer) Send(ctx context.Context, req domain.SubmissionRequest) error {
	msg, err := serializeToMessage(req)
	if err != nil {
		return err
	}
	return w.writer.WriteMessages(ctx, msg)
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a submission into a Kafka message.
func serializeToMessage(req domain.SubmissionRequest) (kafkago.Message, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize submission: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(req.IdempotencyKey),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "category", Value: []byte(req.Category)},
			{Key: "created_at", Value: []byte(req.CreatedAt.Format(time.RFC3339))},
		},
	}, nil
}
