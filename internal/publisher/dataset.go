package publisher

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"driftwatch/internal/model"
)

// LoadDataset reads the whole labeled CSV into memory as an ordered
// sequence of records. The header row names the columns; textCol and
// labelCol select the two required ones, everything else rides along
// in Extras.
func LoadDataset(path, textCol, labelCol string) ([]model.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read dataset header: %w", err)
	}
	textIdx, labelIdx := -1, -1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case strings.ToLower(textCol):
			textIdx = i
		case strings.ToLower(labelCol):
			labelIdx = i
		}
	}
	if textIdx < 0 || labelIdx < 0 {
		return nil, fmt.Errorf("dataset is missing %q or %q column", textCol, labelCol)
	}

	var records []model.Record
	line := 1
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read dataset row %d: %w", line, err)
		}
		line++
		if textIdx >= len(row) || labelIdx >= len(row) {
			return nil, fmt.Errorf("dataset row %d is short", line)
		}
		label, err := strconv.Atoi(strings.TrimSpace(row[labelIdx]))
		if err != nil || (label != 0 && label != 1) {
			return nil, fmt.Errorf("dataset row %d: label must be 0 or 1, got %q", line, row[labelIdx])
		}
		rec := model.Record{Text: row[textIdx], Sentiment: label}
		for i, v := range row {
			if i == textIdx || i == labelIdx || i >= len(header) {
				continue
			}
			if rec.Extras == nil {
				rec.Extras = make(map[string]string)
			}
			rec.Extras[strings.ToLower(strings.TrimSpace(header[i]))] = v
		}
		records = append(records, rec)
	}
	return records, nil
}
