package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrBadPayload marks a malformed or invalid event payload. Consumers
// skip the event and keep the loop alive.
var ErrBadPayload = errors.New("bad payload")

// Record is one labeled training example. Sentiment is constrained to
// {0,1}. Columns beyond text/sentiment pass through Extras untouched.
type Record struct {
	Text      string            `json:"text"`
	Sentiment int               `json:"sentiment"`
	Extras    map[string]string `json:"-"`
}

// MetricSnapshot is the metrics-topic payload: precision and recall
// derived from the cumulative confusion matrix at one point in the
// stream.
type MetricSnapshot struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
}

// Alert records a single threshold breach observed by the monitor.
type Alert struct {
	Timestamp time.Time `json:"timestamp"`
	Metric    string    `json:"metric"`
	Value     float64   `json:"value"`
	Threshold float64   `json:"threshold"`
	Severity  string    `json:"severity"`
}

const (
	MetricPrecision = "precision"
	MetricRecall    = "recall"
)

// EncodeRecord produces the input-topic wire form. Extras are flattened
// onto the top-level object; text and sentiment always win on conflict.
func EncodeRecord(r Record) ([]byte, error) {
	obj := make(map[string]any, len(r.Extras)+2)
	for k, v := range r.Extras {
		obj[k] = v
	}
	obj["text"] = r.Text
	obj["sentiment"] = r.Sentiment
	return json.Marshal(obj)
}

// DecodeRecord validates and decodes an input-topic payload. Any
// failure is wrapped in ErrBadPayload so callers can skip the event.
func DecodeRecord(data []byte) (Record, error) {
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	rawText, ok := obj["text"]
	if !ok {
		return Record{}, fmt.Errorf("%w: missing text", ErrBadPayload)
	}
	text, ok := rawText.(string)
	if !ok {
		return Record{}, fmt.Errorf("%w: text is not a string", ErrBadPayload)
	}
	rawLabel, ok := obj["sentiment"]
	if !ok {
		return Record{}, fmt.Errorf("%w: missing sentiment", ErrBadPayload)
	}
	num, ok := rawLabel.(float64)
	if !ok || (num != 0 && num != 1) {
		return Record{}, fmt.Errorf("%w: sentiment must be 0 or 1, got %v", ErrBadPayload, rawLabel)
	}
	rec := Record{Text: text, Sentiment: int(num)}
	for k, v := range obj {
		if k == "text" || k == "sentiment" {
			continue
		}
		if rec.Extras == nil {
			rec.Extras = make(map[string]string)
		}
		rec.Extras[k] = fmt.Sprint(v)
	}
	return rec, nil
}

// EncodeSnapshot produces the metrics-topic wire form.
func EncodeSnapshot(s MetricSnapshot) ([]byte, error) {
	return json.Marshal(s)
}

// DecodeSnapshot validates and decodes a metrics-topic payload.
func DecodeSnapshot(data []byte) (MetricSnapshot, error) {
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		return MetricSnapshot{}, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	var snap MetricSnapshot
	var err error
	if snap.Precision, err = floatField(obj, "precision"); err != nil {
		return MetricSnapshot{}, err
	}
	if snap.Recall, err = floatField(obj, "recall"); err != nil {
		return MetricSnapshot{}, err
	}
	return snap, nil
}

func floatField(obj map[string]any, key string) (float64, error) {
	raw, ok := obj[key]
	if !ok {
		return 0, fmt.Errorf("%w: missing %s", ErrBadPayload, key)
	}
	num, ok := raw.(float64)
	if !ok {
		return 0, fmt.Errorf("%w: %s is not a number", ErrBadPayload, key)
	}
	if num < 0 || num > 1 {
		return 0, fmt.Errorf("%w: %s out of range: %v", ErrBadPayload, key, num)
	}
	return num, nil
}
