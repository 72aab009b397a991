package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/couchcryptid/firms-fire-etl/internal/config"
	"github.com/couchcryptid/firms-fire-etl/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer publishes rendered layers to a Kafka topic, one message per
// detection. It implements pipeline.LayerSink.
type Writer struct {
	writer messageWriter
	logger *slog.Logger
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// NewWriter creates a Kafka producer for the configured layer topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaLayerTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// ReplaceAll publishes every feature of layer in a single WriteMessages call.
// An empty layer publishes nothing.
func (w *Writer) ReplaceAll(ctx context.Context, layer domain.Layer) error {
	msgs, err := serializeLayer(layer)
	if err != nil {
		return err
	}
	if len(msgs) == 0 {
		w.logger.Debug("empty layer, nothing to publish", "cycle", layer.Cycle)
		return nil
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish layer %d: %w", layer.Cycle, err)
	}
	w.logger.Debug("layer published", "cycle", layer.Cycle, "messages", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeLayer turns each feature into a GeoJSON Feature message keyed by
// its dedupe key.
func serializeLayer(layer domain.Layer) ([]kafkago.Message, error) {
	fc := layer.GeoJSON()
	cycle := []byte(strconv.FormatUint(layer.Cycle, 10))
	generatedAt := []byte(layer.GeneratedAt.Format(time.RFC3339))

	msgs := make([]kafkago.Message, 0, len(fc.Features))
	for i, f := range fc.Features {
		data, err := json.Marshal(f)
		if err != nil {
			return nil, fmt.Errorf("serialize detection %s: %w", layer.Features[i].Key, err)
		}
		msgs = append(msgs, kafkago.Message{
			Key:   []byte(layer.Features[i].Key),
			Value: data,
			Headers: []kafkago.Header{
				{Key: "cycle", Value: cycle},
				{Key: "source", Value: []byte(layer.Features[i].Record.Source)},
				{Key: "generated_at", Value: generatedAt},
			},
		})
	}
	return msgs, nil
}
