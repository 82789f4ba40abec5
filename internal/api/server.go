package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"driftwatch/internal/alerts"
	"driftwatch/internal/config"
	"driftwatch/internal/metrics"
	"driftwatch/internal/model"
)

// Server exposes the in-memory snapshot history and alert buffer over
// a small JSON API. It is read-only apart from /admin/clear.
type Server struct {
	cfg     *config.Config
	history *metrics.Store
	alerts  *alerts.Store
	logger  *slog.Logger
	version string
	started time.Time
}

type statusResponse struct {
	Status       string  `json:"status"`
	Time         string  `json:"time"`
	Version      string  `json:"version"`
	UptimeSec    float64 `json:"uptime_sec"`
	BusDriver    string  `json:"bus_driver"`
	InputTopic   string  `json:"input_topic"`
	MetricsTopic string  `json:"metrics_topic"`
	Threshold    float64 `json:"threshold"`
	Snapshots    int     `json:"snapshots"`
	Alerts       int     `json:"alerts"`
}

func Start(ctx context.Context, cfg *config.Config, history *metrics.Store, alertStore *alerts.Store, logger *slog.Logger, version string) *http.Server {
	if cfg == nil || !cfg.API.Enabled {
		if logger != nil {
			logger.Info("api disabled")
		}
		return nil
	}
	if logger != nil {
		logger.Info("api enabled", "addr", cfg.API.Addr)
	}
	server := &Server{
		cfg:     cfg,
		history: history,
		alerts:  alertStore,
		logger:  logger,
		version: version,
		started: time.Now().UTC(),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/status", server.handleStatus)
	mux.HandleFunc("/metrics", server.handleMetrics)
	mux.HandleFunc("/alerts", server.handleAlerts)
	mux.HandleFunc("/admin/clear", server.handleClear)

	httpServer := &http.Server{Addr: cfg.API.Addr, Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(ctxShutdown)
	}()
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if logger != nil {
				logger.Error("api server error", "err", err)
			}
		}
	}()
	return httpServer
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	now := time.Now().UTC()
	resp := statusResponse{
		Status:       "ok",
		Time:         now.Format(time.RFC3339Nano),
		Version:      s.version,
		UptimeSec:    now.Sub(s.started).Seconds(),
		BusDriver:    s.cfg.Bus.Driver,
		InputTopic:   s.cfg.Bus.InputTopic,
		MetricsTopic: s.cfg.Bus.MetricsTopic,
		Threshold:    s.cfg.Monitor.Threshold,
	}
	if s.history != nil {
		resp.Snapshots = s.history.Emitted()
	}
	if s.alerts != nil {
		resp.Alerts = s.alerts.Count()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.history == nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	latest, updated, ok := s.history.Latest()
	resp := map[string]any{
		"emitted": s.history.Emitted(),
		"history": s.history.List(limit),
	}
	if ok {
		resp["latest"] = latest
		resp["updated_at"] = updated.Format(time.RFC3339Nano)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.alerts == nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	sinceStr := r.URL.Query().Get("since")
	var list []model.Alert
	if sinceStr != "" {
		ts, err := time.Parse(time.RFC3339, sinceStr)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		list = s.alerts.Since(ts)
	} else {
		list = s.alerts.List(limit)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"alerts": list,
		"count":  len(list),
	})
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.history != nil {
		s.history.Clear()
	}
	if s.alerts != nil {
		s.alerts.Clear()
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
