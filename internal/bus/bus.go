// Package bus abstracts the event transport. Components never hold
// references to each other; they couple only through topic names and
// the payload schema carried by Event.
package bus

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"driftwatch/internal/config"
)

// Event is the transport envelope: a serialized payload plus a
// content-type tag. The ID travels with the message so delivery
// outcomes can name the event they refer to.
type Event struct {
	ID          string
	Topic       string
	Data        []byte
	ContentType string
}

// Delivery is the outcome of one publish: either a commit time or an
// error. Outcomes are buffered on a channel instead of fire-and-forget
// callbacks so callers may drain and inspect them without blocking
// their publish loop.
type Delivery struct {
	EventID   string
	Topic     string
	Committed time.Time
	Err       error
}

type Bus interface {
	// EnsureTopic creates the topic if absent; idempotent.
	EnsureTopic(ctx context.Context, name string) error
	// Publish enqueues data on topic and returns without waiting for
	// the broker; the outcome surfaces later on Deliveries.
	Publish(ctx context.Context, topic string, data []byte) error
	// Deliveries streams publish outcomes. The channel is buffered;
	// outcomes are dropped with a warning once it fills.
	Deliveries() <-chan Delivery
	// Subscribe returns a lazy, unbounded, order-preserving (per
	// partition) sequence of events. The channel closes when ctx is
	// cancelled or the bus is closed.
	Subscribe(ctx context.Context, topic string) (<-chan Event, error)
	Close() error
}

// New selects a driver from config, storage-layer style.
func New(cfg config.BusConfig, logger *slog.Logger) (Bus, error) {
	switch strings.ToLower(cfg.Driver) {
	case "memory":
		return NewMemory(cfg, logger), nil
	case "kafka":
		return NewKafka(cfg, logger)
	default:
		return nil, errors.New("unsupported bus driver")
	}
}

func sendDelivery(out chan Delivery, d Delivery, logger *slog.Logger) {
	select {
	case out <- d:
	default:
		if logger != nil {
			logger.Warn("delivery channel full, dropping outcome", "event_id", d.EventID, "topic", d.Topic)
		}
	}
}
