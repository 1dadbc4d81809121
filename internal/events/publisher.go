package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/dustinel/risk-engine/internal/models"
)

// AlertCreated is the event type emitted once an alert is stored and dispatched.
const AlertCreated = "alert.created"

// Config holds the Kafka options for the alert event stream.
type Config struct {
	Enabled      bool
	Brokers      []string
	Topic        string
	Acks         int
	WriteTimeout time.Duration
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// AlertEvent is the JSON value written to the topic.
type AlertEvent struct {
	Type       string       `json:"type"`
	OccurredAt time.Time    `json:"occurredAt"`
	Alert      models.Alert `json:"alert"`
}

// Publisher writes alert events keyed by worker id. A disabled publisher drops events.
type Publisher struct {
	writer  messageWriter
	timeout time.Duration
	log     *slog.Logger
	now     func() time.Time
}

// NewPublisher constructs a Publisher backed by a Kafka writer.
func NewPublisher(cfg Config, log *slog.Logger) (*Publisher, error) {
	if log == nil {
		log = slog.Default()
	}
	log = log.With(slog.String("component", "alert_events"))
	if !cfg.Enabled {
		log.Info("alert event stream disabled")
		return &Publisher{log: log, now: time.Now}, nil
	}
	if strings.TrimSpace(cfg.Topic) == "" {
		return nil, fmt.Errorf("events topic must not be empty")
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		RequiredAcks:           kafka.RequiredAcks(cfg.Acks),
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: false,
	}
	return newPublisherWithWriter(writer, cfg.WriteTimeout, log), nil
}

func newPublisherWithWriter(writer messageWriter, timeout time.Duration, log *slog.Logger) *Publisher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Publisher{writer: writer, timeout: timeout, log: log, now: time.Now}
}

// Enabled reports whether events reach Kafka.
func (p *Publisher) Enabled() bool {
	return p != nil && p.writer != nil
}

// PublishAlert emits an alert.created event.
func (p *Publisher) PublishAlert(ctx context.Context, alert models.Alert) error {
	if !p.Enabled() {
		return nil
	}
	value, err := json.Marshal(AlertEvent{Type: AlertCreated, OccurredAt: p.now().UTC(), Alert: alert})
	if err != nil {
		return fmt.Errorf("marshal alert event: %w", err)
	}

	writeCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	msg := kafka.Message{
		Key:   []byte(alert.WorkerID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(AlertCreated)},
		},
	}
	if err := p.writer.WriteMessages(writeCtx, msg); err != nil {
		return fmt.Errorf("publish alert event: %w", err)
	}
	p.log.Debug("alert event published", slog.String("alert_id", alert.ID))
	return nil
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	if !p.Enabled() {
		return nil
	}
	if err := p.writer.Close(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
