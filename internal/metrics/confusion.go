package metrics

import "driftwatch/internal/model"

// Confusion accumulates (true label, predicted label) counts over the
// whole run. Counts only ever grow; the matrix is never reset while
// the stream is live.
type Confusion struct {
	classes []int
	counts  map[int]map[int]int
	total   int
}

func NewConfusion(classes []int) *Confusion {
	c := &Confusion{
		classes: append([]int(nil), classes...),
		counts:  make(map[int]map[int]int),
	}
	for _, t := range classes {
		c.counts[t] = make(map[int]int)
	}
	return c
}

func (c *Confusion) Update(yTrue, yPred int) {
	row, ok := c.counts[yTrue]
	if !ok {
		row = make(map[int]int)
		c.counts[yTrue] = row
	}
	row[yPred]++
	c.total++
}

// Count returns the cumulative count for one (true, predicted) cell.
func (c *Confusion) Count(yTrue, yPred int) int {
	return c.counts[yTrue][yPred]
}

// Total returns the number of predictions scored so far.
func (c *Confusion) Total() int {
	return c.total
}

// Precision is TP / (TP + FP) for the given positive class. A zero
// denominator yields 0: the value must stay finite through JSON
// encoding, and 0 keeps every emitted snapshot inside [0,1].
func (c *Confusion) Precision(pos int) float64 {
	tp := c.counts[pos][pos]
	predicted := 0
	for _, t := range c.classes {
		predicted += c.counts[t][pos]
	}
	if predicted == 0 {
		return 0
	}
	return float64(tp) / float64(predicted)
}

// Recall is TP / (TP + FN) for the given positive class; zero
// denominator yields 0, same rationale as Precision.
func (c *Confusion) Recall(pos int) float64 {
	tp := c.counts[pos][pos]
	actual := 0
	for _, p := range c.counts[pos] {
		actual += p
	}
	if actual == 0 {
		return 0
	}
	return float64(tp) / float64(actual)
}

// Snapshot derives the current precision/recall pair for pos.
func (c *Confusion) Snapshot(pos int) model.MetricSnapshot {
	return model.MetricSnapshot{
		Precision: c.Precision(pos),
		Recall:    c.Recall(pos),
	}
}
