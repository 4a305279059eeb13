// Package kafka publishes normalized earthquake records to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/quake-watch/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Header keys set on every published message.
const (
	HeaderProvider  = "provider"
	HeaderFetchedAt = "fetched_at"
	HeaderFetchID   = "fetch_id"
)

// Publisher produces one message per record to a Kafka topic.
// It implements pipeline.Publisher.
type Publisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for topic.
func NewPublisher(brokers []string, topic string, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Publisher{writer: w, logger: logger}
}

// Publish writes the records of one fetch in a single WriteMessages call.
// Records are keyed by detail URL so repeats of the same event land on the
// same partition.
func (p *Publisher) Publish(ctx context.Context, summary domain.FetchSummary, records []domain.Record) error {
	if len(records) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(records))
	for i := range records {
		msg, err := serializeToMessage(summary, records[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write %d messages: %w", len(msgs), err)
	}
	p.logger.Debug("records published", "fetch_id", summary.ID, "records", len(msgs))
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// message is the JSON value of a published record.
type message struct {
	domain.Record
	Provider domain.ProviderID `json:"provider"`
	FetchID  string            `json:"fetch_id"`
}

func serializeToMessage(summary domain.FetchSummary, r domain.Record) (kafkago.Message, error) {
	data, err := json.Marshal(message{Record: r, Provider: summary.Provider, FetchID: summary.ID})
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize record: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(r.DetailURL),
		Value: data,
		Time:  summary.CompletedAt,
		Headers: []kafkago.Header{
			{Key: HeaderProvider, Value: []byte(summary.Provider.String())},
			{Key: HeaderFetchedAt, Value: []byte(summary.CompletedAt.Format(time.RFC3339))},
			{Key: HeaderFetchID, Value: []byte(summary.ID)},
		},
	}, nil
}
