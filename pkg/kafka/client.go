// Package kafka publishes conversation turn events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"cinebot-go/internal/config"
	"cinebot-go/internal/model"
	"cinebot-go/pkg/log"
)

// Publisher writes turn events asynchronously; delivery errors are only logged.
type Publisher struct {
	writer *kafka.Writer
}

// NewPublisher creates an async producer for cfg.Topic.
func NewPublisher(cfg config.KafkaConfig) *Publisher {
	w := &kafka.Writer{
		Addr:         kafka.TCP(strings.Split(cfg.Brokers, ",")...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		Async:        true,
		BatchTimeout: 200 * time.Millisecond,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				log.Errorf("[KafkaPublisher] failed to deliver %d turn events: %v", len(messages), err)
			}
		},
	}
	log.Infof("[KafkaPublisher] producer ready, topic: %s", cfg.Topic)
	return &Publisher{writer: w}
}

// PublishTurn enqueues e keyed by user so a user's turns stay ordered.
func (p *Publisher) PublishTurn(ctx context.Context, e model.TurnEvent) error {
	msg, err := encodeTurn(e)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, msg)
}

// Close flushes pending events.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

func encodeTurn(e model.TurnEvent) (kafka.Message, error) {
	value, err := json.Marshal(e)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal turn event: %w", err)
	}
	return kafka.Message{
		Key:   []byte(e.User),
		Value: value,
		Time:  e.Timestamp,
	}, nil
}
