// Package kafka publishes committed emission rows to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/couchcryptid/cems-etl/internal/config"
	"github.com/couchcryptid/cems-etl/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer produces emission rows to a Kafka topic.
// It implements pipeline.Publisher.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// Publish serializes the rows of one source and writes them in a single
// WriteMessages call. Rows of a facility share a key and so a partition.
func (w *Writer) Publish(ctx context.Context, source string, rows []domain.EmissionRow) error {
	if len(rows) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(rows))
	for i := range rows {
		msg, err := serializeToMessage(source, rows[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish %s: %w", source, err)
	}
	w.logger.Debug("rows published", "source", source, "rows", len(rows), "topic", w.writer.Topic)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// emissionMessage is the published JSON body: the row plus its masses in
// kilograms.
type emissionMessage struct {
	domain.EmissionRow
	SO2Kg *float64 `json:"so2_kg,omitempty"`
	NOxKg *float64 `json:"nox_kg,omitempty"`
	CO2Kg *float64 `json:"co2_kg,omitempty"`
}

func convert(v *float64, fn func(float64) float64) *float64 {
	if v == nil {
		return nil
	}
	out := fn(*v)
	return &out
}

// serializeToMessage marshals an EmissionRow into a Kafka message keyed by
// ORISPL code.
func serializeToMessage(source string, row domain.EmissionRow) (kafkago.Message, error) {
	data, err := json.Marshal(emissionMessage{
		EmissionRow: row,
		SO2Kg:       convert(row.SO2Lbs, domain.PoundsToKilograms),
		NOxKg:       convert(row.NOxLbs, domain.PoundsToKilograms),
		CO2Kg:       convert(row.CO2ShortTons, domain.ShortTonsToKilograms),
	})
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize emission row: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(strconv.Itoa(row.ORISPL)),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "source", Value: []byte(source)},
			{Key: "time_local", Value: []byte(row.TimeLocal.Format(time.RFC3339))},
		},
	}, nil
}
