package corpus

import (
	"sort"
	"strings"

	"supporttriage/internal/domain"
)

// Store is an immutable snapshot of the retrieval corpus, the ANS matrix,
// the metric glossary and the strategic client table. Safe for concurrent
// reads; reloads publish a new Store instead of mutating this one.
type Store struct {
	documents []domain.Document
	slaMatrix []domain.SlaRow
	metrics   map[string]string
	clients   []domain.ClientRecord
}

// NewStore builds a snapshot from already-normalized data. Slices are copied.
func NewStore(docs []domain.Document, matrix []domain.SlaRow, metrics map[string]string, clients []domain.ClientRecord) *Store {
	s := &Store{
		documents: append([]domain.Document(nil), docs...),
		slaMatrix: append([]domain.SlaRow(nil), matrix...),
		metrics:   make(map[string]string, len(metrics)),
		clients:   append([]domain.ClientRecord(nil), clients...),
	}
	for k, v := range metrics {
		s.metrics[k] = v
	}
	return s
}

// Empty returns a store with no data, used when nothing could be loaded.
func Empty() *Store {
	return NewStore(nil, nil, nil, nil)
}

func (s *Store) Documents() []domain.Document { return s.documents }

func (s *Store) SlaMatrix() []domain.SlaRow { return s.slaMatrix }

func (s *Store) Clients() []domain.ClientRecord { return s.clients }

// Metric is one glossary entry.
type Metric struct {
	Name       string `json:"name"`
	Definition string `json:"definition"`
}

// Metrics returns the glossary ordered by name.
func (s *Store) Metrics() []Metric {
	out := make([]Metric, 0, len(s.metrics))
	for k, v := range s.metrics {
		out = append(out, Metric{Name: k, Definition: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// MetricMap returns a copy of the glossary.
func (s *Store) MetricMap() map[string]string {
	out := make(map[string]string, len(s.metrics))
	for k, v := range s.metrics {
		out[k] = v
	}
	return out
}

// FindClientByName matches trimmed, lower-cased names exactly. Returns nil
// for an empty name or when no client matches; the first match wins.
func (s *Store) FindClientByName(name string) *domain.ClientRecord {
	normalized := normalizeName(name)
	if normalized == "" {
		return nil
	}
	for i := range s.clients {
		if normalizeName(s.clients[i].Name) == normalized {
			c := s.clients[i]
			return &c
		}
	}
	return nil
}

// SlaRow looks up the matrix row for impact, ignoring case.
func (s *Store) SlaRow(impact domain.Impact) (domain.SlaRow, bool) {
	for _, row := range s.slaMatrix {
		if strings.EqualFold(string(row.Impact), string(impact)) {
			return row, true
		}
	}
	return domain.SlaRow{}, false
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
