// Package learner runs the predict-then-learn cycle over the input
// topic. A single goroutine owns the model and the confusion matrix
// for the whole process lifetime; state lives in memory only and is
// rebuilt from the stream after a restart.
package learner

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"driftwatch/internal/bus"
	"driftwatch/internal/config"
	"driftwatch/internal/learn"
	"driftwatch/internal/metrics"
	"driftwatch/internal/model"
	"driftwatch/internal/storage"
)

type Learner struct {
	bus      bus.Bus
	cfg      config.Config
	logger   *slog.Logger
	pipeline *learn.Pipeline
	matrix   *metrics.Confusion
	history  *metrics.Store
	store    storage.Store
}

func New(b bus.Bus, cfg config.Config, logger *slog.Logger, history *metrics.Store, store storage.Store) *Learner {
	return &Learner{
		bus:      b,
		cfg:      cfg,
		logger:   logger,
		pipeline: learn.NewPipeline(cfg.Learner.Classes),
		matrix:   metrics.NewConfusion(cfg.Learner.Classes),
		history:  history,
		store:    store,
	}
}

// Run consumes the input topic until the stream ends or ctx is
// cancelled. Delivery outcomes for the snapshots it publishes are
// drained in the background.
func (l *Learner) Run(ctx context.Context) error {
	if err := l.bus.EnsureTopic(ctx, l.cfg.Bus.InputTopic); err != nil {
		return err
	}
	if err := l.bus.EnsureTopic(ctx, l.cfg.Bus.MetricsTopic); err != nil {
		return err
	}
	events, err := l.bus.Subscribe(ctx, l.cfg.Bus.InputTopic)
	if err != nil {
		return err
	}

	drainCtx, stopDrain := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		l.drainDeliveries(drainCtx)
	}()
	defer func() {
		stopDrain()
		wg.Wait()
	}()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if _, err := l.ProcessEvent(ctx, ev); err != nil {
				return err
			}
		case <-ctx.Done():
			return nil
		}
	}
}

// ProcessEvent runs one predict → evaluate → publish → learn cycle.
// The ordering is load-bearing: learning before predicting would leak
// the label into the prediction being scored. The returned snapshot is
// nil for cold-start events and for skipped bad payloads.
func (l *Learner) ProcessEvent(ctx context.Context, ev bus.Event) (*model.MetricSnapshot, error) {
	rec, err := model.DecodeRecord(ev.Data)
	if err != nil {
		if errors.Is(err, model.ErrBadPayload) {
			if l.logger != nil {
				l.logger.Warn("skipping bad record payload", "event_id", ev.ID, "err", err)
			}
			return nil, nil
		}
		return nil, err
	}

	var published *model.MetricSnapshot
	if yPred, ok := l.pipeline.Predict(rec.Text); ok {
		l.matrix.Update(rec.Sentiment, yPred)
		snap := l.matrix.Snapshot(l.cfg.Learner.PositiveClass)
		if l.history != nil {
			l.history.Add(snap)
		}
		data, err := model.EncodeSnapshot(snap)
		if err != nil {
			return nil, err
		}
		if err := l.bus.Publish(ctx, l.cfg.Bus.MetricsTopic, data); err != nil {
			return nil, err
		}
		if l.store != nil {
			if err := l.store.SaveSnapshot(ctx, snap); err != nil && l.logger != nil {
				l.logger.Warn("snapshot not persisted", "err", err)
			}
		}
		if l.logger != nil {
			l.logger.Debug("metrics published",
				"precision", snap.Precision,
				"recall", snap.Recall,
				"predictions", l.matrix.Total(),
			)
		}
		published = &snap
	} else if l.logger != nil {
		l.logger.Debug("cold start, no prediction", "event_id", ev.ID)
	}

	l.pipeline.Learn(rec.Text, rec.Sentiment)
	return published, nil
}

// Seen reports how many records the model has learned from.
func (l *Learner) Seen() int {
	return l.pipeline.Seen()
}

func (l *Learner) drainDeliveries(ctx context.Context) {
	for {
		select {
		case d, ok := <-l.bus.Deliveries():
			if !ok {
				return
			}
			if d.Err != nil && l.logger != nil {
				l.logger.Warn("snapshot not committed", "event_id", d.EventID, "topic", d.Topic, "err", d.Err)
			}
		case <-ctx.Done():
			return
		}
	}
}
