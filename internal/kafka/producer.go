package kafka

import (
	"context"
	"errors"
	"fmt"

	"github.com/segmentio/kafka-go"

	"ms-calendar/internal/logger"
)

// MessageWriter is the part of *kafka.Writer the producer uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// TopicCreator creates a missing topic before a publish is retried.
type TopicCreator func(ctx context.Context, topic string) error

type Producer struct {
	Writer      MessageWriter
	CreateTopic TopicCreator
	Logger      *logger.Logger
}

// NewProducer returns a producer whose topic is chosen per message.
func NewProducer(brokers []string, log *logger.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: false,
	}
	return &Producer{
		Writer: writer,
		CreateTopic: func(ctx context.Context, topic string) error {
			return CreateTopicIfNotExists(ctx, brokers, topic, log)
		},
		Logger: log,
	}
}

// Publish writes value under key. An unknown topic is created once and the
// write retried.
func (p *Producer) Publish(ctx context.Context, topic, key string, value []byte) error {
	msg := kafka.Message{Topic: topic, Key: []byte(key), Value: value}

	err := p.Writer.WriteMessages(ctx, msg)
	if err == nil {
		p.Logger.LogKafka("PUBLISH", topic, key)
		return nil
	}
	if !isUnknownTopic(err) || p.CreateTopic == nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}

	p.Logger.Warn("KAFKA", fmt.Sprintf("Topic %s missing, creating it", topic))
	if err := p.CreateTopic(ctx, topic); err != nil {
		return fmt.Errorf("create topic %s: %w", topic, err)
	}
	if err := p.Writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish to %s after topic creation: %w", topic, err)
	}
	p.Logger.LogKafka("PUBLISH", topic, key+" (after retry)")
	return nil
}

func isUnknownTopic(err error) bool {
	if errors.Is(err, kafka.UnknownTopicOrPartition) {
		return true
	}
	var writeErrs kafka.WriteErrors
	if errors.As(err, &writeErrs) {
		for _, e := range writeErrs {
			if e != nil && errors.Is(e, kafka.UnknownTopicOrPartition) {
				return true
			}
		}
	}
	return false
}

func (p *Producer) Close() error {
	return p.Writer.Close()
}
