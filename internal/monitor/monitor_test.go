package monitor

import (
	"testing"

	"driftwatch/internal/alerts"
	"driftwatch/internal/bus"
	"driftwatch/internal/config"
	"driftwatch/internal/model"
)

func newMonitorForTest(threshold float64, store *alerts.Store) *Monitor {
	cfg := config.DefaultConfig()
	cfg.Monitor.Threshold = threshold
	return New(nil, cfg, nil, store, nil)
}

func TestPrecisionBelowThreshold(t *testing.T) {
	mon := newMonitorForTest(0.60, nil)
	raised := mon.Check(model.MetricSnapshot{Precision: 0.55, Recall: 0.80})
	if len(raised) != 1 {
		t.Fatalf("expected exactly one alert, got %d", len(raised))
	}
	if raised[0].Metric != model.MetricPrecision || raised[0].Value != 0.55 {
		t.Fatalf("unexpected alert: %+v", raised[0])
	}
}

func TestThresholdIsStrict(t *testing.T) {
	mon := newMonitorForTest(0.60, nil)
	if raised := mon.Check(model.MetricSnapshot{Precision: 0.60, Recall: 0.60}); len(raised) != 0 {
		t.Fatalf("values equal to threshold must not alert, got %d alerts", len(raised))
	}
}

func TestBothMetricsBelowThreshold(t *testing.T) {
	store := alerts.NewStore(10)
	mon := newMonitorForTest(0.60, store)
	raised := mon.Check(model.MetricSnapshot{Precision: 0.10, Recall: 0.50})
	if len(raised) != 2 {
		t.Fatalf("expected two alerts, got %d", len(raised))
	}
	if raised[0].Metric != model.MetricPrecision || raised[1].Metric != model.MetricRecall {
		t.Fatalf("unexpected alert order: %+v", raised)
	}
	if raised[0].Severity != "critical" || raised[1].Severity != "warning" {
		t.Fatalf("unexpected severities: %s, %s", raised[0].Severity, raised[1].Severity)
	}
	if store.Count() != 2 {
		t.Fatalf("store count = %d, want 2", store.Count())
	}
}

func TestSnapshotsJudgedIndependently(t *testing.T) {
	mon := newMonitorForTest(0.60, nil)
	// A breach followed by a healthy snapshot followed by another
	// breach: each one alerts (or not) on its own.
	if got := len(mon.Check(model.MetricSnapshot{Precision: 0.5, Recall: 0.9})); got != 1 {
		t.Fatalf("first snapshot: %d alerts, want 1", got)
	}
	if got := len(mon.Check(model.MetricSnapshot{Precision: 0.9, Recall: 0.9})); got != 0 {
		t.Fatalf("healthy snapshot: %d alerts, want 0", got)
	}
	if got := len(mon.Check(model.MetricSnapshot{Precision: 0.5, Recall: 0.9})); got != 1 {
		t.Fatalf("third snapshot: %d alerts, want 1", got)
	}
}

func TestBadSnapshotPayloadSkipped(t *testing.T) {
	mon := newMonitorForTest(0.60, nil)
	if raised := mon.CheckEvent(bus.Event{Data: []byte(`{"precision":"broken"}`)}); raised != nil {
		t.Fatalf("bad payload must not alert, got %+v", raised)
	}
}

func TestUpdateConfigChangesThreshold(t *testing.T) {
	mon := newMonitorForTest(0.60, nil)
	next := config.DefaultConfig()
	next.Monitor.Threshold = 0.30
	mon.UpdateConfig(next)
	if raised := mon.Check(model.MetricSnapshot{Precision: 0.45, Recall: 0.45}); len(raised) != 0 {
		t.Fatalf("expected no alerts after lowering threshold, got %d", len(raised))
	}
}
