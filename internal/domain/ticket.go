package domain

import "strings"

type DocumentType string

const (
	DocumentHistoricalTicket DocumentType = "historical_ticket"
	DocumentStrategicAccount DocumentType = "strategic_account"
)

// Document is one entry of the retrieval corpus. Immutable after load.
type Document struct {
	ID       string         `json:"id"`
	Type     DocumentType   `json:"type"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Category returns the "categoria" metadata value, or "" when absent.
func (d Document) Category() string {
	if d.Metadata == nil {
		return ""
	}
	if v, ok := d.Metadata["categoria"].(string); ok {
		return v
	}
	return ""
}

// ClientRecord is the canonical strategic-account shape. Source field-name
// variants (mrr vs mrr_usd, cliente vs nombre) are resolved by the corpus loader.
type ClientRecord struct {
	ID                  string  `json:"id"`
	Name                string  `json:"nombre"`
	MRR                 float64 `json:"mrr"`
	ServiceState        string  `json:"estado_servicio"`
	AffectedUserPercent float64 `json:"porcentaje_usuarios_afectados"`
	UseCase             string  `json:"caso_uso"`
	CriticalIncidentRef string  `json:"incidente_critico"`
	BusinessImpact      string  `json:"impacto_negocio"`
}

type Impact string

const (
	ImpactCritical Impact = "Crítico"
	ImpactHigh     Impact = "Alto"
	ImpactMedium   Impact = "Medio"
	ImpactLow      Impact = "Bajo"
)

// Impacts lists the canonical impact levels from most to least severe.
var Impacts = []Impact{ImpactCritical, ImpactHigh, ImpactMedium, ImpactLow}

type Priority string

const (
	PriorityP1 Priority = "P1"
	PriorityP2 Priority = "P2"
	PriorityP3 Priority = "P3"
	PriorityP4 Priority = "P4"
)

type Urgency string

const (
	UrgencyCritical Urgency = "Crítica"
	UrgencyHigh     Urgency = "Alta"
	UrgencyMedium   Urgency = "Media"
	UrgencyLow      Urgency = "Baja"
)

// NotAvailable fills SLA time fields that could not be resolved.
const NotAvailable = "N/D"

// SlaRow holds the contractual time targets for one impact tier.
type SlaRow struct {
	Impact               Impact `json:"impacto"`
	FirstResponseTime    string `json:"tiempo_primer_respuesta"`
	AssistanceTime       string `json:"tiempo_asistencia"`
	ResolutionTargetTime string `json:"tiempo_objetivo_solucion"`
}

func (r SlaRow) Targets() SlaTargets {
	return SlaTargets{
		FirstResponseTime:    r.FirstResponseTime,
		AssistanceTime:       r.AssistanceTime,
		ResolutionTargetTime: r.ResolutionTargetTime,
	}
}

// SlaTargets is the SLA triple attached to a classification result.
type SlaTargets struct {
	FirstResponseTime    string `json:"tiempo_primer_respuesta"`
	AssistanceTime       string `json:"tiempo_asistencia"`
	ResolutionTargetTime string `json:"tiempo_objetivo_solucion"`
}

// ScoredMatch pairs a corpus document with its similarity rating in [0,1].
type ScoredMatch struct {
	Document Document
	Rating   float64
}

// MatchSummary is the caller-facing view of a ScoredMatch.
type MatchSummary struct {
	ID       string       `json:"id"`
	Type     DocumentType `json:"type"`
	Category string       `json:"categoria,omitempty"`
	Rating   float64      `json:"rating"`
}

func (m ScoredMatch) Summary() MatchSummary {
	return MatchSummary{
		ID:       m.Document.ID,
		Type:     m.Document.Type,
		Category: m.Document.Category(),
		Rating:   m.Rating,
	}
}

// Ticket is an incoming support ticket. Client and Channel are optional.
type Ticket struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Client      string `json:"client,omitempty"`
	Channel     string `json:"channel,omitempty"`
}

// Text is the query used for retrieval and for the heuristic rules.
func (t Ticket) Text() string {
	return t.Title + " " + t.Description
}

func (t Ticket) Valid() bool {
	return strings.TrimSpace(t.Title) != "" && strings.TrimSpace(t.Description) != ""
}

// ClassificationResult is built fresh for every ticket.
type ClassificationResult struct {
	Priority        Priority       `json:"prioridad"`
	Urgency         Urgency        `json:"urgencia"`
	Impact          Impact         `json:"impacto"`
	SLA             SlaTargets     `json:"sla"`
	Justification   string         `json:"justificacion"`
	Confidence      float64        `json:"confianza"`
	Recommendations []string       `json:"recomendaciones"`
	Matches         []MatchSummary `json:"matches"`
	ClientContext   *ClientRecord  `json:"clientContext"`
	ModelUsed       string         `json:"model"`
	Prompt          string         `json:"prompt,omitempty"`
}
