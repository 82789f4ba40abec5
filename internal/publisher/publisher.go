// Package publisher reads the labeled dataset and feeds it onto the
// input topic, one JSON event per record. It keeps no state beyond the
// in-flight delivery outcomes.
package publisher

import (
	"context"
	"log/slog"
	"sync"

	"driftwatch/internal/bus"
	"driftwatch/internal/config"
	"driftwatch/internal/model"
)

type Publisher struct {
	bus    bus.Bus
	cfg    config.Config
	logger *slog.Logger
}

func New(b bus.Bus, cfg config.Config, logger *slog.Logger) *Publisher {
	return &Publisher{bus: b, cfg: cfg, logger: logger}
}

// Run publishes every dataset record in order and returns the count.
// Delivery outcomes are drained concurrently; a nack is logged and not
// retried, retry policy belongs to the transport.
func (p *Publisher) Run(ctx context.Context) (int, error) {
	topic := p.cfg.Bus.InputTopic
	if err := p.bus.EnsureTopic(ctx, topic); err != nil {
		return 0, err
	}
	records, err := LoadDataset(p.cfg.Publisher.Dataset, p.cfg.Publisher.TextColumn, p.cfg.Publisher.LabelColumn)
	if err != nil {
		return 0, err
	}
	if p.logger != nil {
		p.logger.Info("dataset loaded", "path", p.cfg.Publisher.Dataset, "records", len(records))
	}

	drainCtx, stopDrain := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		p.drainDeliveries(drainCtx)
	}()

	published := 0
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			break
		}
		data, err := model.EncodeRecord(rec)
		if err != nil {
			if p.logger != nil {
				p.logger.Warn("skipping unencodable record", "err", err)
			}
			continue
		}
		if err := p.bus.Publish(ctx, topic, data); err != nil {
			stopDrain()
			wg.Wait()
			return published, err
		}
		published++
	}
	if p.logger != nil {
		p.logger.Info("publish complete", "topic", topic, "published", published)
	}
	stopDrain()
	wg.Wait()
	return published, nil
}

func (p *Publisher) drainDeliveries(ctx context.Context) {
	for {
		select {
		case d, ok := <-p.bus.Deliveries():
			if !ok {
				return
			}
			if d.Err != nil {
				if p.logger != nil {
					p.logger.Warn("publish not committed", "event_id", d.EventID, "topic", d.Topic, "err", d.Err)
				}
				continue
			}
			if p.logger != nil {
				p.logger.Debug("publish committed", "event_id", d.EventID, "topic", d.Topic, "committed", d.Committed)
			}
		case <-ctx.Done():
			return
		}
	}
}
