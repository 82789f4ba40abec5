package learn

import (
	"regexp"
	"strings"
)

var reToken = regexp.MustCompile(`\w\w+`)

// Vectorizer turns raw text into lowercased bag-of-words counts.
// Tokens shorter than two characters are dropped.
type Vectorizer struct{}

func NewVectorizer() *Vectorizer {
	return &Vectorizer{}
}

func (v *Vectorizer) Transform(text string) map[string]int {
	counts := make(map[string]int)
	for _, tok := range reToken.FindAllString(strings.ToLower(text), -1) {
		counts[tok]++
	}
	return counts
}
