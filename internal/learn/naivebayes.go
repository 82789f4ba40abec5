package learn

import "math"

// NaiveBayes is an incremental multinomial Naive Bayes classifier over
// a fixed label set. All counts grow one example at a time; there is no
// batch fit step.
type NaiveBayes struct {
	classes     []int
	alpha       float64
	docCounts   map[int]int
	tokenCounts map[int]map[string]int
	classTotals map[int]int
	vocabulary  map[string]struct{}
	seen        int
}

func NewNaiveBayes(classes []int) *NaiveBayes {
	nb := &NaiveBayes{
		classes:     append([]int(nil), classes...),
		alpha:       1.0,
		docCounts:   make(map[int]int),
		tokenCounts: make(map[int]map[string]int),
		classTotals: make(map[int]int),
		vocabulary:  make(map[string]struct{}),
	}
	return nb
}

// Learn folds one example into the counts.
func (nb *NaiveBayes) Learn(features map[string]int, label int) {
	nb.seen++
	nb.docCounts[label]++
	counts, ok := nb.tokenCounts[label]
	if !ok {
		counts = make(map[string]int)
		nb.tokenCounts[label] = counts
	}
	for tok, n := range features {
		counts[tok] += n
		nb.classTotals[label] += n
		nb.vocabulary[tok] = struct{}{}
	}
}

// Predict scores each class in log space and returns the argmax. The
// second return is false before any example has been learned; the
// caller must treat that as "no prediction". Ties resolve to the
// lowest label so replays stay deterministic.
func (nb *NaiveBayes) Predict(features map[string]int) (int, bool) {
	if nb.seen == 0 {
		return 0, false
	}
	best := 0
	bestScore := math.Inf(-1)
	for _, class := range nb.classes {
		score := nb.logScore(class, features)
		if score > bestScore {
			bestScore = score
			best = class
		}
	}
	return best, true
}

func (nb *NaiveBayes) logScore(class int, features map[string]int) float64 {
	prior := (float64(nb.docCounts[class]) + nb.alpha) /
		(float64(nb.seen) + nb.alpha*float64(len(nb.classes)))
	score := math.Log(prior)
	denom := float64(nb.classTotals[class]) + nb.alpha*float64(len(nb.vocabulary))
	if denom == 0 {
		return score
	}
	counts := nb.tokenCounts[class]
	for tok, n := range features {
		if _, known := nb.vocabulary[tok]; !known {
			continue
		}
		likelihood := (float64(counts[tok]) + nb.alpha) / denom
		score += float64(n) * math.Log(likelihood)
	}
	return score
}

// Seen reports how many examples the classifier has learned from.
func (nb *NaiveBayes) Seen() int {
	return nb.seen
}
