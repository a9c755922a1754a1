package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/doorstep-banking/internal/config"
	"github.com/doorstep-banking/internal/domain/shared"
	"github.com/segmentio/kafka-go"
)

// ServiceEventProducer publishes service request lifecycle events.
// Messages are keyed by service ID so one request's events stay ordered.
type ServiceEventProducer struct {
	logger *slog.Logger
	writer KafkaWriter
	topic  string
}

// NewServiceEventProducer creates the producer and ensures the topic exists
func NewServiceEventProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*ServiceEventProducer, error) {
	if cfg.ServiceEventTopic == "" {
		return nil, fmt.Errorf("kafka service event topic is not configured")
	}

	conn, err := kafka.DialContext(ctx, "tcp", cfg.Brokers)
	if err != nil {
		return nil, fmt.Errorf("failed to dial kafka for service event producer: %w", err)
	}
	defer conn.Close()

	err = createKafkaTopicIfNotExists(conn, cfg.ServiceEventTopic, cfg.NumPartitions, cfg.ReplicationFactor, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure service event topic %s exists: %w", cfg.ServiceEventTopic, err)
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        cfg.ServiceEventTopic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		Async:        true,
		WriteTimeout: cfg.MaxWait,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logger.Error("Failed to write service events asynchronously", "topic", cfg.ServiceEventTopic, "error", err, "count", len(messages))
			} else {
				logger.Debug("Wrote service events asynchronously", "topic", cfg.ServiceEventTopic, "count", len(messages))
			}
		},
	}

	return &ServiceEventProducer{
		logger: logger,
		writer: writer,
		topic:  cfg.ServiceEventTopic,
	}, nil
}

// Publish encodes value as JSON and writes it under key
func (p *ServiceEventProducer) Publish(ctx context.Context, key string, value interface{}) error {
	jsonValue, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal service event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: jsonValue,
	}
	if id := shared.CorrelationID(ctx); id != "" {
		msg.Headers = append(msg.Headers, kafka.Header{Key: HeaderCorrelationID, Value: []byte(id)})
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish service event",
			"topic", p.topic,
			"service_id", key,
			"error", err,
		)
		return fmt.Errorf("failed to publish service event to %s: %w", p.topic, err)
	}

	p.logger.Debug("Published service event",
		"topic", p.topic,
		"service_id", key,
	)
	return nil
}

func (p *ServiceEventProducer) Close() error {
	p.logger.Info("Closing service event producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close service event writer for topic %s: %w", p.topic, err)
	}
	return nil
}
