package retrieval

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"

	"supporttriage/internal/domain"
)

// DefaultLimit applies when a caller passes limit <= 0.
const DefaultLimit = 5

// Scorer ranks corpus documents against a free-text query.
//
// Implementations return matches ordered by descending rating with ties in
// corpus order, drop ratings <= 0, and return an empty slice for an empty
// query.
type Scorer interface {
	Score(query string, docs []domain.Document, limit int) []domain.ScoredMatch
}

// documentText is what a query is compared against: the document content
// followed by its serialized metadata, lower-cased.
func documentText(doc domain.Document) string {
	return strings.ToLower(doc.Content + " " + metadataJSON(doc.Metadata))
}

func metadataJSON(meta map[string]any) string {
	if len(meta) == 0 {
		return "{}"
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(meta); err != nil {
		return "{}"
	}
	return strings.TrimRight(buf.String(), "\n")
}

// rank keeps positive ratings, sorts them stably and truncates to limit.
func rank(docs []domain.Document, ratings []float64, limit int) []domain.ScoredMatch {
	if limit <= 0 {
		limit = DefaultLimit
	}
	matches := make([]domain.ScoredMatch, 0, len(docs))
	for i, doc := range docs {
		if ratings[i] > 0 {
			matches = append(matches, domain.ScoredMatch{Document: doc, Rating: ratings[i]})
		}
	}
	sort.SliceStable(matches, func(a, b int) bool {
		return matches[a].Rating > matches[b].Rating
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

// Summaries converts matches into their caller-facing form.
func Summaries(matches []domain.ScoredMatch) []domain.MatchSummary {
	out := make([]domain.MatchSummary, len(matches))
	for i, m := range matches {
		out[i] = m.Summary()
	}
	return out
}
