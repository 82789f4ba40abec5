package bus

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"driftwatch/internal/config"
)

// memoryBus is an in-process driver with the same contract as the
// kafka one: ordered append-only topics, replay from the beginning for
// late subscribers, immediate acks. Used by tests and local runs where
// all three components share a process.
type memoryBus struct {
	mu         sync.Mutex
	topics     map[string]*memTopic
	logger     *slog.Logger
	buffer     int
	deliveries chan Delivery
	closed     bool
}

type memTopic struct {
	mu     sync.Mutex
	cond   *sync.Cond
	events []Event
	closed bool
}

func newMemTopic() *memTopic {
	t := &memTopic{}
	t.cond = sync.NewCond(&t.mu)
	return t
}

func NewMemory(cfg config.BusConfig, logger *slog.Logger) Bus {
	return &memoryBus{
		topics:     make(map[string]*memTopic),
		logger:     logger,
		buffer:     deliveryBuffer(cfg),
		deliveries: make(chan Delivery, deliveryBuffer(cfg)),
	}
}

func (b *memoryBus) topic(name string) *memTopic {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.topics[name]
	if !ok {
		t = newMemTopic()
		b.topics[name] = t
	}
	return t
}

func (b *memoryBus) EnsureTopic(ctx context.Context, name string) error {
	b.topic(name)
	return nil
}

func (b *memoryBus) Publish(ctx context.Context, topic string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ev := Event{
		ID:          uuid.NewString(),
		Topic:       topic,
		Data:        append([]byte(nil), data...),
		ContentType: "application/json",
	}
	t := b.topic(topic)
	t.mu.Lock()
	t.events = append(t.events, ev)
	t.cond.Broadcast()
	t.mu.Unlock()
	sendDelivery(b.deliveries, Delivery{
		EventID:   ev.ID,
		Topic:     topic,
		Committed: time.Now().UTC(),
	}, b.logger)
	return nil
}

func (b *memoryBus) Deliveries() <-chan Delivery {
	return b.deliveries
}

func (b *memoryBus) Subscribe(ctx context.Context, topic string) (<-chan Event, error) {
	t := b.topic(topic)
	out := make(chan Event, b.buffer)

	// Wake the pump when the context ends; cond.Wait cannot observe
	// ctx on its own.
	go func() {
		<-ctx.Done()
		t.mu.Lock()
		t.cond.Broadcast()
		t.mu.Unlock()
	}()

	go func() {
		defer close(out)
		next := 0
		for {
			t.mu.Lock()
			for next >= len(t.events) && !t.closed && ctx.Err() == nil {
				t.cond.Wait()
			}
			if ctx.Err() != nil || (t.closed && next >= len(t.events)) {
				t.mu.Unlock()
				return
			}
			ev := t.events[next]
			next++
			t.mu.Unlock()
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (b *memoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for _, t := range b.topics {
		t.mu.Lock()
		t.closed = true
		t.cond.Broadcast()
		t.mu.Unlock()
	}
	return nil
}
