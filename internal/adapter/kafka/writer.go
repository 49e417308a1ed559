package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/weather-production-optimizer/internal/config"
	"github.com/couchcryptid/weather-production-optimizer/internal/domain"
)

// Writer publishes optimization records and weather alerts, routing each
// message to its topic through a single shared producer.
// It implements dispatch.Publisher and pipeline.AlertPublisher.
type Writer struct {
	writer             *kafkago.Writer
	optimizationsTopic string
	alertsTopic        string
	logger             *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topics.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{
		writer:             w,
		optimizationsTopic: cfg.KafkaOptimizationsTopic,
		alertsTopic:        cfg.KafkaAlertsTopic,
		logger:             logger,
	}
}

// PublishOptimization serializes and publishes one optimization record.
func (w *Writer) PublishOptimization(ctx context.Context, record domain.OptimizationRecord) error {
	msg, err := serializeOptimization(w.optimizationsTopic, record)
	if err != nil {
		return err
	}
	return w.writer.WriteMessages(ctx, msg)
}

// PublishAlert serializes and publishes one weather alert.
func (w *Writer) PublishAlert(ctx context.Context, alert domain.WeatherAlert) error {
	msg, err := serializeAlert(w.alertsTopic, alert)
	if err != nil {
		return err
	}
	return w.writer.WriteMessages(ctx, msg)
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeOptimization marshals a record into a Kafka message keyed by
// location so per-site consumers see records in order.
func serializeOptimization(topic string, record domain.OptimizationRecord) (kafkago.Message, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize optimization record: %w", err)
	}
	return kafkago.Message{
		Topic: topic,
		Key:   []byte(record.LocationID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "priority", Value: []byte(record.Priority)},
			{Key: "emitted_at", Value: []byte(record.Timestamp.Format(time.RFC3339))},
		},
	}, nil
}

func serializeAlert(topic string, alert domain.WeatherAlert) (kafkago.Message, error) {
	data, err := json.Marshal(alert)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize weather alert: %w", err)
	}
	return kafkago.Message{
		Topic: topic,
		Key:   []byte(alert.LocationID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "alert_type", Value: []byte(alert.AlertType)},
			{Key: "severity", Value: []byte(alert.Severity.String())},
		},
	}, nil
}
