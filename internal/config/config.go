package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	LogLevel  string          `json:"log_level" yaml:"log_level"`
	LogFormat string          `json:"log_format" yaml:"log_format"`
	Bus       BusConfig       `json:"bus" yaml:"bus"`
	Publisher PublisherConfig `json:"publisher" yaml:"publisher"`
	Learner   LearnerConfig   `json:"learner" yaml:"learner"`
	Monitor   MonitorConfig   `json:"monitor" yaml:"monitor"`
	Metrics   MetricsConfig   `json:"metrics" yaml:"metrics"`
	Alerts    AlertsConfig    `json:"alerts" yaml:"alerts"`
	Storage   StorageConfig   `json:"storage" yaml:"storage"`
	API       APIConfig       `json:"api" yaml:"api"`
}

type BusConfig struct {
	Driver        string   `json:"driver" yaml:"driver"`
	Brokers       []string `json:"brokers" yaml:"brokers"`
	GroupID       string   `json:"group_id" yaml:"group_id"`
	InputTopic    string   `json:"input_topic" yaml:"input_topic"`
	MetricsTopic  string   `json:"metrics_topic" yaml:"metrics_topic"`
	ChannelBuffer int      `json:"channel_buffer" yaml:"channel_buffer"`
}

type PublisherConfig struct {
	Dataset     string `json:"dataset" yaml:"dataset"`
	TextColumn  string `json:"text_column" yaml:"text_column"`
	LabelColumn string `json:"label_column" yaml:"label_column"`
}

type LearnerConfig struct {
	Classes       []int `json:"classes" yaml:"classes"`
	PositiveClass int   `json:"positive_class" yaml:"positive_class"`
}

type MonitorConfig struct {
	Threshold float64 `json:"threshold" yaml:"threshold"`
}

type MetricsConfig struct {
	StoreLimit int `json:"store_limit" yaml:"store_limit"`
}

type AlertsConfig struct {
	StoreLimit int `json:"store_limit" yaml:"store_limit"`
}

type StorageConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Driver  string `json:"driver" yaml:"driver"`
	DSN     string `json:"dsn" yaml:"dsn"`
}

type APIConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Addr    string `json:"addr" yaml:"addr"`
}

func DefaultConfig() *Config {
	return &Config{
		LogLevel:  "info",
		LogFormat: "json",
		Bus: BusConfig{
			Driver:        "kafka",
			Brokers:       []string{"localhost:9092"},
			GroupID:       "driftwatch",
			InputTopic:    "river_pipeline",
			MetricsTopic:  "river_metrics",
			ChannelBuffer: 1024,
		},
		Publisher: PublisherConfig{
			Dataset:     "data/yelp.csv",
			TextColumn:  "text",
			LabelColumn: "sentiment",
		},
		Learner: LearnerConfig{
			Classes:       []int{0, 1},
			PositiveClass: 0,
		},
		Monitor: MonitorConfig{Threshold: 0.60},
		Metrics: MetricsConfig{StoreLimit: 5000},
		Alerts:  AlertsConfig{StoreLimit: 1000},
		Storage: StorageConfig{Enabled: false, Driver: "sqlite", DSN: "file:driftwatch.db?_pragma=busy_timeout(5000)"},
		API:     APIConfig{Enabled: false, Addr: ":8081"},
	}
}

func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()

	trimmed := strings.TrimSpace(string(content))
	if len(trimmed) == 0 {
		return nil, errors.New("config file is empty")
	}
	var decodeErr error
	if looksLikeJSON(trimmed) {
		decodeErr = json.Unmarshal([]byte(trimmed), cfg)
	} else {
		decodeErr = yaml.Unmarshal([]byte(trimmed), cfg)
	}
	if decodeErr != nil {
		return nil, decodeErr
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault falls back to the built-in defaults when no config
// file exists at path.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}
	return Load(path)
}

func looksLikeJSON(s string) bool {
	for _, ch := range s {
		if ch == '{' || ch == '[' {
			return true
		}
		if ch > ' ' {
			return false
		}
	}
	return false
}

func applyDefaults(cfg *Config) {
	if cfg.Bus.Driver == "" {
		cfg.Bus.Driver = "kafka"
	}
	if cfg.Bus.GroupID == "" {
		cfg.Bus.GroupID = "driftwatch"
	}
	if cfg.Bus.InputTopic == "" {
		cfg.Bus.InputTopic = "river_pipeline"
	}
	if cfg.Bus.MetricsTopic == "" {
		cfg.Bus.MetricsTopic = "river_metrics"
	}
	if cfg.Bus.ChannelBuffer <= 0 {
		cfg.Bus.ChannelBuffer = 1024
	}
	if cfg.Publisher.TextColumn == "" {
		cfg.Publisher.TextColumn = "text"
	}
	if cfg.Publisher.LabelColumn == "" {
		cfg.Publisher.LabelColumn = "sentiment"
	}
	if len(cfg.Learner.Classes) == 0 {
		cfg.Learner.Classes = []int{0, 1}
	}
	if cfg.Monitor.Threshold == 0 {
		cfg.Monitor.Threshold = 0.60
	}
	if cfg.Metrics.StoreLimit <= 0 {
		cfg.Metrics.StoreLimit = 5000
	}
	if cfg.Alerts.StoreLimit <= 0 {
		cfg.Alerts.StoreLimit = 1000
	}
}

func Validate(cfg *Config) error {
	switch strings.ToLower(cfg.Bus.Driver) {
	case "memory":
	case "kafka":
		if len(cfg.Bus.Brokers) == 0 {
			return errors.New("bus.brokers required when bus.driver is kafka")
		}
		if cfg.Bus.GroupID == "" {
			return errors.New("bus.group_id required when bus.driver is kafka")
		}
	default:
		return fmt.Errorf("unsupported bus.driver: %s", cfg.Bus.Driver)
	}
	if cfg.Bus.InputTopic == "" || cfg.Bus.MetricsTopic == "" {
		return errors.New("bus.input_topic and bus.metrics_topic are required")
	}
	if cfg.Bus.InputTopic == cfg.Bus.MetricsTopic {
		return errors.New("bus.input_topic and bus.metrics_topic must differ")
	}
	if cfg.Publisher.Dataset == "" {
		return errors.New("publisher.dataset is required")
	}
	if cfg.Monitor.Threshold < 0 || cfg.Monitor.Threshold > 1 {
		return errors.New("monitor.threshold must be within [0,1]")
	}
	if !containsClass(cfg.Learner.Classes, cfg.Learner.PositiveClass) {
		return errors.New("learner.positive_class must be one of learner.classes")
	}
	if cfg.API.Enabled && cfg.API.Addr == "" {
		return errors.New("api.addr required when api.enabled is true")
	}
	return nil
}

func containsClass(classes []int, class int) bool {
	for _, c := range classes {
		if c == class {
			return true
		}
	}
	return false
}

type Manager struct {
	path    string
	cfg     atomic.Value
	modTime time.Time
}

func NewManager(path string) (*Manager, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	m := &Manager{path: path}
	m.cfg.Store(cfg)
	info, err := os.Stat(path)
	if err == nil {
		m.modTime = info.ModTime()
	}
	return m, nil
}

func (m *Manager) Get() *Config {
	if v := m.cfg.Load(); v != nil {
		return v.(*Config)
	}
	return DefaultConfig()
}

func (m *Manager) Path() string {
	return m.path
}

func (m *Manager) Reload() (*Config, error) {
	cfg, err := Load(m.path)
	if err != nil {
		return nil, err
	}
	m.cfg.Store(cfg)
	if info, err := os.Stat(m.path); err == nil {
		m.modTime = info.ModTime()
	}
	return cfg, nil
}

func (m *Manager) NeedsReload() (bool, error) {
	info, err := os.Stat(m.path)
	if err != nil {
		return false, err
	}
	return info.ModTime().After(m.modTime), nil
}

func (m *Manager) Watch(interval time.Duration, onReload func(*Config), onError func(error), stop <-chan struct{}) {
	if interval <= 0 {
		interval = 3 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			needs, err := m.NeedsReload()
			if err != nil {
				if onError != nil {
					onError(err)
				}
				continue
			}
			if !needs {
				continue
			}
			cfg, err := m.Reload()
			if err != nil {
				if onError != nil {
					onError(err)
				}
				continue
			}
			if onReload != nil {
				onReload(cfg)
			}
		case <-stop:
			return
		}
	}
}
