package metrics

import (
	"sync"
	"time"

	"driftwatch/internal/model"
)

// Store keeps a bounded history of emitted metric snapshots for the
// HTTP API. The learner's loop is the only writer.
type Store struct {
	mu        sync.RWMutex
	buf       []model.MetricSnapshot
	updatedAt time.Time
	emitted   int
	limit     int
}

func NewStore(limit int) *Store {
	if limit <= 0 {
		limit = 5000
	}
	return &Store{limit: limit}
}

func (s *Store) Add(snap model.MetricSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emitted++
	s.updatedAt = time.Now().UTC()
	if len(s.buf) < s.limit {
		s.buf = append(s.buf, snap)
		return
	}
	copy(s.buf, s.buf[1:])
	s.buf[len(s.buf)-1] = snap
}

// Latest returns the most recent snapshot, if any has been emitted.
func (s *Store) Latest() (model.MetricSnapshot, time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.buf) == 0 {
		return model.MetricSnapshot{}, time.Time{}, false
	}
	return s.buf[len(s.buf)-1], s.updatedAt, true
}

// List returns up to limit of the most recent snapshots, oldest first.
func (s *Store) List(limit int) []model.MetricSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 || limit > len(s.buf) {
		limit = len(s.buf)
	}
	out := make([]model.MetricSnapshot, 0, limit)
	for i := len(s.buf) - limit; i < len(s.buf); i++ {
		out = append(out, s.buf[i])
	}
	return out
}

// Emitted counts every snapshot ever added, including evicted ones.
func (s *Store) Emitted() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.emitted
}

func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf = nil
	s.emitted = 0
	s.updatedAt = time.Time{}
}
