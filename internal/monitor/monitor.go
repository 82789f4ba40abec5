// Package monitor watches the metrics topic and raises a warning
// whenever precision or recall drops strictly below the configured
// threshold. Each snapshot is judged on its own; there is no breach
// streak or cooldown between alerts.
package monitor

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"driftwatch/internal/alerts"
	"driftwatch/internal/bus"
	"driftwatch/internal/config"
	"driftwatch/internal/model"
	"driftwatch/internal/storage"
)

type Monitor struct {
	bus    bus.Bus
	cfg    atomic.Value
	logger *slog.Logger
	alerts *alerts.Store
	store  storage.Store
}

func New(b bus.Bus, cfg *config.Config, logger *slog.Logger, alertStore *alerts.Store, store storage.Store) *Monitor {
	m := &Monitor{
		bus:    b,
		logger: logger,
		alerts: alertStore,
		store:  store,
	}
	m.cfg.Store(cfg)
	return m
}

// UpdateConfig swaps the live config; the next snapshot is judged
// against the new threshold.
func (m *Monitor) UpdateConfig(cfg *config.Config) {
	m.cfg.Store(cfg)
}

func (m *Monitor) config() *config.Config {
	if v := m.cfg.Load(); v != nil {
		return v.(*config.Config)
	}
	return config.DefaultConfig()
}

// Run consumes the metrics topic until the stream ends or ctx is
// cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	cfg := m.config()
	if err := m.bus.EnsureTopic(ctx, cfg.Bus.MetricsTopic); err != nil {
		return err
	}
	events, err := m.bus.Subscribe(ctx, cfg.Bus.MetricsTopic)
	if err != nil {
		return err
	}
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			m.CheckEvent(ev)
		case <-ctx.Done():
			return nil
		}
	}
}

// CheckEvent decodes one snapshot and returns the alerts it raised.
// Bad payloads are skipped with a warning.
func (m *Monitor) CheckEvent(ev bus.Event) []model.Alert {
	snap, err := model.DecodeSnapshot(ev.Data)
	if err != nil {
		if errors.Is(err, model.ErrBadPayload) && m.logger != nil {
			m.logger.Warn("skipping bad snapshot payload", "event_id", ev.ID, "err", err)
		}
		return nil
	}
	return m.Check(snap)
}

// Check compares precision and recall independently against the
// threshold; the comparison is strict, a value equal to the threshold
// does not alert.
func (m *Monitor) Check(snap model.MetricSnapshot) []model.Alert {
	threshold := m.config().Monitor.Threshold
	var out []model.Alert
	if snap.Precision < threshold {
		out = append(out, m.raise(model.MetricPrecision, snap.Precision, threshold))
	}
	if snap.Recall < threshold {
		out = append(out, m.raise(model.MetricRecall, snap.Recall, threshold))
	}
	return out
}

func (m *Monitor) raise(metric string, value, threshold float64) model.Alert {
	alert := model.Alert{
		Timestamp: time.Now().UTC(),
		Metric:    metric,
		Value:     value,
		Threshold: threshold,
		Severity:  severity(value, threshold),
	}
	if m.logger != nil {
		m.logger.Warn("metric below threshold",
			"metric", metric,
			"value", value,
			"threshold", threshold,
			"severity", alert.Severity,
		)
	}
	if m.alerts != nil {
		m.alerts.Add(alert)
	}
	if m.store != nil {
		if err := m.store.SaveAlert(context.Background(), alert); err != nil && m.logger != nil {
			m.logger.Warn("alert not persisted", "err", err)
		}
	}
	return alert
}

func severity(value, threshold float64) string {
	if value < threshold/2 {
		return "critical"
	}
	return "warning"
}
