// Package learn implements the online text-classification model: a
// bag-of-words feature extractor feeding an incremental multinomial
// Naive Bayes classifier. The model is owned by a single goroutine and
// carries no locking.
package learn

// Pipeline composes the vectorizer and the classifier. Predict must be
// called before Learn for the same text; learning first would leak the
// label into the prediction it is meant to score.
type Pipeline struct {
	vec *Vectorizer
	nb  *NaiveBayes
}

func NewPipeline(classes []int) *Pipeline {
	return &Pipeline{
		vec: NewVectorizer(),
		nb:  NewNaiveBayes(classes),
	}
}

// Predict returns the predicted label for text. The second return is
// false while the model is cold (no examples learned yet).
func (p *Pipeline) Predict(text string) (int, bool) {
	return p.nb.Predict(p.vec.Transform(text))
}

// Learn updates the model with one labeled example.
func (p *Pipeline) Learn(text string, label int) {
	p.nb.Learn(p.vec.Transform(text), label)
}

// Seen reports how many examples the model has learned from.
func (p *Pipeline) Seen() int {
	return p.nb.Seen()
}
