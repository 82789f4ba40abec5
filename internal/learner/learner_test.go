package learner

import (
	"context"
	"testing"
	"time"

	"driftwatch/internal/bus"
	"driftwatch/internal/config"
	"driftwatch/internal/metrics"
	"driftwatch/internal/model"
)

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Bus.Driver = "memory"
	return cfg
}

func newLearnerForTest(t *testing.T) (*Learner, bus.Bus) {
	t.Helper()
	cfg := testConfig()
	b := bus.NewMemory(cfg.Bus, nil)
	return New(b, *cfg, nil, metrics.NewStore(100), nil), b
}

func recordEvent(t *testing.T, text string, sentiment int) bus.Event {
	t.Helper()
	data, err := model.EncodeRecord(model.Record{Text: text, Sentiment: sentiment})
	if err != nil {
		t.Fatalf("encode record: %v", err)
	}
	return bus.Event{ID: "test", Data: data, ContentType: "application/json"}
}

func TestFirstEventColdStart(t *testing.T) {
	l, _ := newLearnerForTest(t)
	snap, err := l.ProcessEvent(context.Background(), recordEvent(t, "great food", 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap != nil {
		t.Fatalf("cold-start event must not publish a snapshot, got %+v", snap)
	}
	if l.Seen() != 1 {
		t.Fatalf("cold-start event must still train the model, seen = %d", l.Seen())
	}
}

func TestOneSnapshotPerPredictedEvent(t *testing.T) {
	l, _ := newLearnerForTest(t)
	ctx := context.Background()
	events := []bus.Event{
		recordEvent(t, "great food", 1),
		recordEvent(t, "awful service", 0),
		recordEvent(t, "really great place", 1),
		recordEvent(t, "terrible awful meal", 0),
	}
	published := 0
	for _, ev := range events {
		snap, err := l.ProcessEvent(ctx, ev)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if snap != nil {
			published++
		}
	}
	// Every event except the cold-start first one yields a snapshot.
	if published != len(events)-1 {
		t.Fatalf("published %d snapshots, want %d", published, len(events)-1)
	}
	if l.matrix.Total() != published {
		t.Fatalf("matrix total %d != snapshots %d", l.matrix.Total(), published)
	}
	if l.Seen() != len(events) {
		t.Fatalf("model learned from %d events, want %d", l.Seen(), len(events))
	}
}

func TestSnapshotsReachMetricsTopic(t *testing.T) {
	cfg := testConfig()
	b := bus.NewMemory(cfg.Bus, nil)
	l := New(b, *cfg, nil, metrics.NewStore(100), nil)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	for i, ev := range []bus.Event{
		recordEvent(t, "wonderful", 1),
		recordEvent(t, "wonderful again", 1),
		recordEvent(t, "horrid", 0),
	} {
		if _, err := l.ProcessEvent(ctx, ev); err != nil {
			t.Fatalf("event %d: %v", i, err)
		}
	}

	out, err := b.Subscribe(ctx, cfg.Bus.MetricsTopic)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	for i := 0; i < 2; i++ {
		select {
		case ev := <-out:
			snap, err := model.DecodeSnapshot(ev.Data)
			if err != nil {
				t.Fatalf("snapshot %d undecodable: %v", i, err)
			}
			if snap.Precision < 0 || snap.Precision > 1 || snap.Recall < 0 || snap.Recall > 1 {
				t.Fatalf("snapshot %d out of range: %+v", i, snap)
			}
		case <-ctx.Done():
			t.Fatalf("timed out waiting for snapshot %d", i)
		}
	}
}

func TestBadPayloadSkippedLoopSurvives(t *testing.T) {
	l, _ := newLearnerForTest(t)
	ctx := context.Background()
	if snap, err := l.ProcessEvent(ctx, bus.Event{Data: []byte(`{"broken"`)}); err != nil || snap != nil {
		t.Fatalf("bad payload: snap=%+v err=%v, want nil/nil", snap, err)
	}
	if l.Seen() != 0 {
		t.Fatalf("bad payload must not train the model, seen = %d", l.Seen())
	}
	// The loop keeps going afterwards.
	if _, err := l.ProcessEvent(ctx, recordEvent(t, "still fine", 1)); err != nil {
		t.Fatalf("unexpected error after bad payload: %v", err)
	}
	if l.Seen() != 1 {
		t.Fatalf("seen = %d, want 1", l.Seen())
	}
}

func TestRunConsumesPublishedStream(t *testing.T) {
	cfg := testConfig()
	b := bus.NewMemory(cfg.Bus, nil)
	history := metrics.NewStore(100)
	l := New(b, *cfg, nil, history, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for _, ev := range []bus.Event{
		recordEvent(t, "lovely spot", 1),
		recordEvent(t, "never coming back", 0),
		recordEvent(t, "lovely dinner", 1),
	} {
		if err := b.Publish(ctx, cfg.Bus.InputTopic, ev.Data); err != nil {
			t.Fatalf("publish: %v", err)
		}
	}

	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for history.Emitted() < 2 {
		select {
		case <-deadline:
			t.Fatalf("timed out, emitted = %d", history.Emitted())
		case <-time.After(10 * time.Millisecond):
		}
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("run returned error: %v", err)
	}
	if l.Seen() != 3 {
		t.Fatalf("seen = %d, want 3", l.Seen())
	}
}
