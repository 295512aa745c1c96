package heuristic

import (
	"regexp"
	"strings"

	"supporttriage/internal/domain"
	"supporttriage/internal/sla"
)

// Confidence is reported for every heuristic classification.
const Confidence = 0.62

const justification = "Clasificación basada en heurísticas locales (porcentaje de usuarios afectados, estado del cliente e indicadores de severidad en la descripción)."

const recommendation = "Validar clasificación con un ingeniero antes de asignar."

var serverErrorRe = regexp.MustCompile(`error\s+(500|502|503|504)`)

// DetectImpact applies the severity rules in order; the first match wins.
// text is compared lower-cased.
func DetectImpact(text string, affectedPercent float64, serviceState string) domain.Impact {
	text = strings.ToLower(text)
	switch {
	case affectedPercent >= 80 || serverErrorRe.MatchString(text) || strings.Contains(text, "producción"):
		return domain.ImpactCritical
	case affectedPercent >= 50 || strings.Contains(strings.ToLower(serviceState), "riesgo"):
		return domain.ImpactHigh
	case strings.Contains(text, "lento") || strings.Contains(text, "consulta"):
		return domain.ImpactMedium
	default:
		return domain.ImpactLow
	}
}

// Classify produces a deterministic classification without a model. client
// may be nil.
func Classify(ticket domain.Ticket, client *domain.ClientRecord, resolver sla.Resolver) domain.ClassificationResult {
	var percent float64
	var state string
	if client != nil {
		percent = client.AffectedUserPercent
		state = client.ServiceState
	}
	impact := DetectImpact(ticket.Text(), percent, state)
	mapping := sla.DefaultPriorityMapping(impact)

	return domain.ClassificationResult{
		Priority:        mapping.Priority,
		Urgency:         mapping.Urgency,
		Impact:          impact,
		SLA:             resolver.ResolveByImpact(impact).Targets(),
		Justification:   justification,
		Confidence:      Confidence,
		Recommendations: []string{recommendation},
	}
}
