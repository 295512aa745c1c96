package retrieval

import (
	"strings"
	"unicode"

	"supporttriage/internal/domain"
)

// DiceScorer rates documents with the Sørensen-Dice coefficient over
// character bigrams.
type DiceScorer struct{}

func (DiceScorer) Score(query string, docs []domain.Document, limit int) []domain.ScoredMatch {
	return ScoreDocuments(query, docs, limit)
}

// ScoreDocuments ranks docs against query using Dice similarity.
func ScoreDocuments(query string, docs []domain.Document, limit int) []domain.ScoredMatch {
	if query == "" {
		return []domain.ScoredMatch{}
	}
	q := newBigramSet(strings.ToLower(query))
	ratings := make([]float64, len(docs))
	for i, doc := range docs {
		ratings[i] = q.dice(newBigramSet(documentText(doc)))
	}
	return rank(docs, ratings, limit)
}

// CompareStrings returns the Dice coefficient of a and b in [0,1].
// Whitespace is ignored; identical strings score 1.
func CompareStrings(a, b string) float64 {
	return newBigramSet(a).dice(newBigramSet(b))
}

type bigramSet struct {
	stripped string
	runes    int
	counts   map[[2]rune]int
}

func newBigramSet(s string) bigramSet {
	stripped := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	rs := []rune(stripped)
	counts := make(map[[2]rune]int, len(rs))
	for i := 0; i+1 < len(rs); i++ {
		counts[[2]rune{rs[i], rs[i+1]}]++
	}
	return bigramSet{stripped: stripped, runes: len(rs), counts: counts}
}

// dice counts the multiset intersection of bigrams: a bigram occurring
// twice in one string and once in the other contributes one match.
func (b bigramSet) dice(other bigramSet) float64 {
	if b.stripped == other.stripped {
		return 1
	}
	if b.runes < 2 || other.runes < 2 {
		return 0
	}
	intersection := 0
	for bigram, n := range other.counts {
		intersection += min(b.counts[bigram], n)
	}
	return 2 * float64(intersection) / float64(b.runes+other.runes-2)
}
