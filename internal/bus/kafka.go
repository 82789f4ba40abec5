package bus

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"driftwatch/internal/config"
)

const headerEventID = "event-id"

type kafkaBus struct {
	cfg        config.BusConfig
	logger     *slog.Logger
	client     *kafka.Client
	writer     *kafka.Writer
	deliveries chan Delivery
}

func NewKafka(cfg config.BusConfig, logger *slog.Logger) (Bus, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka bus requires brokers")
	}
	b := &kafkaBus{
		cfg:        cfg,
		logger:     logger,
		client:     &kafka.Client{Addr: kafka.TCP(cfg.Brokers...)},
		deliveries: make(chan Delivery, deliveryBuffer(cfg)),
	}
	b.writer = &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		Async:        true,
		Completion:   b.onCompletion,
	}
	return b, nil
}

func (b *kafkaBus) EnsureTopic(ctx context.Context, name string) error {
	resp, err := b.client.CreateTopics(ctx, &kafka.CreateTopicsRequest{
		Topics: []kafka.TopicConfig{{
			Topic:             name,
			NumPartitions:     1,
			ReplicationFactor: 1,
		}},
	})
	if err != nil {
		return err
	}
	for _, topicErr := range resp.Errors {
		if topicErr == nil || errors.Is(topicErr, kafka.TopicAlreadyExists) {
			continue
		}
		return topicErr
	}
	if b.logger != nil {
		b.logger.Debug("topic ensured", "topic", name)
	}
	return nil
}

func (b *kafkaBus) Publish(ctx context.Context, topic string, data []byte) error {
	id := uuid.NewString()
	msg := kafka.Message{
		Topic: topic,
		Value: data,
		Headers: []kafka.Header{
			{Key: headerEventID, Value: []byte(id)},
			{Key: "content-type", Value: []byte("application/json")},
		},
	}
	return b.writer.WriteMessages(ctx, msg)
}

// onCompletion runs on the writer's internal goroutine; it translates
// the batch result into per-event delivery outcomes.
func (b *kafkaBus) onCompletion(messages []kafka.Message, err error) {
	now := time.Now().UTC()
	for _, m := range messages {
		d := Delivery{EventID: eventID(m), Topic: m.Topic, Err: err}
		if err == nil {
			d.Committed = now
		}
		sendDelivery(b.deliveries, d, b.logger)
	}
}

func (b *kafkaBus) Deliveries() <-chan Delivery {
	return b.deliveries
}

func (b *kafkaBus) Subscribe(ctx context.Context, topic string) (<-chan Event, error) {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  b.cfg.Brokers,
		Topic:    topic,
		GroupID:  b.cfg.GroupID,
		MinBytes: 1e3,
		MaxBytes: 10e6,
	})
	out := make(chan Event, deliveryBuffer(b.cfg))
	go func() {
		defer close(out)
		defer reader.Close()
		for {
			m, err := reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				if b.logger != nil {
					b.logger.Warn("kafka read error", "topic", topic, "err", err)
				}
				continue
			}
			ev := Event{
				ID:          eventID(m),
				Topic:       topic,
				Data:        m.Value,
				ContentType: "application/json",
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (b *kafkaBus) Close() error {
	return b.writer.Close()
}

func eventID(m kafka.Message) string {
	for _, h := range m.Headers {
		if h.Key == headerEventID {
			return string(h.Value)
		}
	}
	return ""
}

func deliveryBuffer(cfg config.BusConfig) int {
	if cfg.ChannelBuffer > 0 {
		return cfg.ChannelBuffer
	}
	return 1024
}
