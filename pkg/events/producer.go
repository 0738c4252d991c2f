package events

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl/plain"
	"go.uber.org/zap"
)

// Event types published on mutations
const (
	VendorsCreated  = "vendors.created"
	VendorsUpdated  = "vendors.updated"
	VendorsDeleted  = "vendors.deleted"
	ProfilesCreated = "profiles.created"
	ProfilesUpdated = "profiles.updated"
	ProfilesDeleted = "profiles.deleted"
)

// ChangeEvent describes a committed mutation. IDs are vendor ids for vendor
// events and enumeration ids for profile events; All marks a delete-all.
type ChangeEvent struct {
	Type       string    `json:"type"`
	IDs        []uint    `json:"ids,omitempty"`
	All        bool      `json:"all,omitempty"`
	UserID     uint      `json:"user_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher delivers change events
type Publisher interface {
	Publish(ctx context.Context, event ChangeEvent) error
	Close() error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes change events to a Kafka topic
type KafkaPublisher struct {
	writer  messageWriter
	timeout time.Duration
}

// KafkaConfig holds the producer settings
type KafkaConfig struct {
	Broker   string
	Topic    string
	Username string
	Password string
}

// NewKafkaPublisher creates a synchronous producer for cfg.Topic. SASL/TLS is
// enabled when a username is configured.
func NewKafkaPublisher(cfg KafkaConfig) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Broker),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
		WriteTimeout: 10 * time.Second,
	}
	if cfg.Username != "" {
		writer.Transport = &kafka.Transport{
			SASL: plain.Mechanism{Username: cfg.Username, Password: cfg.Password},
			TLS:  &tls.Config{},
		}
	}

	return &KafkaPublisher{writer: writer, timeout: 5 * time.Second}
}

// Publish writes event to the topic keyed by its type
func (p *KafkaPublisher) Publish(ctx context.Context, event ChangeEvent) error {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.Type),
		Value: value,
		Time:  event.OccurredAt,
	}); err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}
	return nil
}

// Close flushes and closes the writer
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NopPublisher drops events; used when no broker is configured
type NopPublisher struct {
	Logger *zap.Logger
}

func (n NopPublisher) Publish(_ context.Context, event ChangeEvent) error {
	if n.Logger != nil {
		n.Logger.Debug("Kafka producer not configured - skip publish", zap.String("type", event.Type))
	}
	return nil
}

func (NopPublisher) Close() error { return nil }

// New returns a Kafka publisher, or a NopPublisher when cfg.Broker is empty
func New(cfg KafkaConfig, logger *zap.Logger) Publisher {
	if cfg.Broker == "" {
		return NopPublisher{Logger: logger}
	}
	return NewKafkaPublisher(cfg)
}
