package retrieval

import (
	"math"
	"strings"
	"sync"
	"unicode"

	"supporttriage/internal/domain"
)

type sparseVec = map[int]float64

type tfidfIndex struct {
	vocab map[string]int
	idf   []float64
	docs  []sparseVec
}

// TFIDFScorer rates documents by cosine similarity of TF-IDF vectors. The
// index is built lazily and rebuilt whenever a different document slice is
// scored, so a corpus reload is picked up on the next query.
type TFIDFScorer struct {
	mu    sync.Mutex
	key   indexKey
	index *tfidfIndex
}

type indexKey struct {
	first *domain.Document
	n     int
}

func NewTFIDFScorer() *TFIDFScorer {
	return &TFIDFScorer{}
}

func (s *TFIDFScorer) Score(query string, docs []domain.Document, limit int) []domain.ScoredMatch {
	if query == "" || len(docs) == 0 {
		return []domain.ScoredMatch{}
	}
	idx := s.indexFor(docs)
	qvec := idx.queryVec(query)
	ratings := make([]float64, len(docs))
	if len(qvec) > 0 {
		for i, dvec := range idx.docs {
			ratings[i] = cosineSim(qvec, dvec)
		}
	}
	return rank(docs, ratings, limit)
}

func (s *TFIDFScorer) indexFor(docs []domain.Document) *tfidfIndex {
	key := indexKey{first: &docs[0], n: len(docs)}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index == nil || s.key != key {
		texts := make([]string, len(docs))
		for i, doc := range docs {
			texts[i] = documentText(doc)
		}
		s.index = buildTFIDFIndex(texts)
		s.key = key
	}
	return s.index
}

func tokenize(s string) []string {
	s = strings.ToLower(s)
	var tokens []string
	var cur strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			cur.WriteRune(r)
		} else if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}
	if cur.Len() > 0 {
		tokens = append(tokens, cur.String())
	}
	return tokens
}

func buildTFIDFIndex(texts []string) *tfidfIndex {
	vocab := make(map[string]int)
	tokenized := make([][]string, len(texts))
	for i, text := range texts {
		tokenized[i] = tokenize(text)
		for _, tok := range tokenized[i] {
			if _, ok := vocab[tok]; !ok {
				vocab[tok] = len(vocab)
			}
		}
	}

	df := make([]int, len(vocab))
	docs := make([]sparseVec, len(texts))
	for i, tokens := range tokenized {
		tf := make(map[int]int)
		for _, tok := range tokens {
			tf[vocab[tok]]++
		}
		vec := make(sparseVec, len(tf))
		for idx, count := range tf {
			vec[idx] = float64(count)
			df[idx]++
		}
		docs[i] = vec
	}

	n := float64(len(texts))
	idf := make([]float64, len(vocab))
	for i, d := range df {
		if d > 0 {
			idf[i] = math.Log(n/float64(d)) + 1.0
		}
	}
	for _, vec := range docs {
		for idx := range vec {
			vec[idx] *= idf[idx]
		}
	}

	return &tfidfIndex{vocab: vocab, idf: idf, docs: docs}
}

func (idx *tfidfIndex) queryVec(query string) sparseVec {
	tf := make(map[int]int)
	for _, tok := range tokenize(query) {
		if i, ok := idx.vocab[tok]; ok {
			tf[i]++
		}
	}
	vec := make(sparseVec, len(tf))
	for i, count := range tf {
		vec[i] = float64(count) * idx.idf[i]
	}
	return vec
}

func cosineSim(a, b sparseVec) float64 {
	var dot, normA, normB float64
	for i, va := range a {
		if vb, ok := b[i]; ok {
			dot += va * vb
		}
		normA += va * va
	}
	for _, vb := range b {
		normB += vb * vb
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
