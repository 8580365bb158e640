package webhook

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ashendes/commerce-api/internal/config"
	"github.com/ashendes/commerce-api/internal/models"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/twmb/franz-go/pkg/kgo"
)

// Publisher hands order status changes to whatever owns order persistence
type Publisher interface {
	Publish(ctx context.Context, event models.StatusEvent) error
	Close() error
}

// NewPublisher builds the backend selected by EVENTS_BACKEND
func NewPublisher(ctx context.Context, cfg config.EventsConfig) (Publisher, error) {
	switch cfg.Backend {
	case "kafka":
		return NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
	case "redis":
		return NewRedisPublisher(ctx, cfg.RedisAddr, cfg.RedisChannel)
	default:
		return LogPublisher{}, nil
	}
}

// LogPublisher only logs, used when no broker is attached
type LogPublisher struct{}

func (LogPublisher) Publish(_ context.Context, event models.StatusEvent) error {
	log.WithFields(log.Fields{
		"event_id":   event.EventID,
		"order_id":   event.OrderID,
		"status":     event.Status,
		"payment_id": event.PaymentID,
		"amount":     event.Amount,
	}).Info("Order status change")
	return nil
}

func (LogPublisher) Close() error { return nil }

// KafkaPublisher produces one record per status change keyed by order id
type KafkaPublisher struct {
	client *kgo.Client
	topic  string
}

func NewKafkaPublisher(brokers []string, topic string) (*KafkaPublisher, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka client: %w", err)
	}
	return &KafkaPublisher{client: client, topic: topic}, nil
}

func (p *KafkaPublisher) Publish(ctx context.Context, event models.StatusEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal status event: %w", err)
	}
	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(event.OrderID),
		Value: body,
		Headers: []kgo.RecordHeader{
			{Key: "event_id", Value: []byte(event.EventID)},
		},
	}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce to %s: %w", p.topic, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	p.client.Close()
	return nil
}

// RedisPublisher publishes status changes on a pub/sub channel
type RedisPublisher struct {
	client  *redis.Client
	channel string
}

func NewRedisPublisher(ctx context.Context, addr, channel string) (*RedisPublisher, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &RedisPublisher{client: client, channel: channel}, nil
}

func (p *RedisPublisher) Publish(ctx context.Context, event models.StatusEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal status event: %w", err)
	}
	if err := p.client.Publish(ctx, p.channel, body).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", p.channel, err)
	}
	return nil
}

func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
