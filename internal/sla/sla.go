package sla

import (
	"fmt"
	"strings"

	"supporttriage/internal/domain"
)

// PriorityMapping is the default priority/urgency pair for an impact level.
type PriorityMapping struct {
	Priority domain.Priority `json:"prioridad"`
	Urgency  domain.Urgency  `json:"urgencia"`
}

var defaultMappings = map[domain.Impact]PriorityMapping{
	domain.ImpactCritical: {Priority: domain.PriorityP1, Urgency: domain.UrgencyCritical},
	domain.ImpactHigh:     {Priority: domain.PriorityP2, Urgency: domain.UrgencyHigh},
	domain.ImpactMedium:   {Priority: domain.PriorityP3, Urgency: domain.UrgencyMedium},
	domain.ImpactLow:      {Priority: domain.PriorityP4, Urgency: domain.UrgencyLow},
}

// DefaultPriorityMapping returns the priority/urgency pair for impact.
// Unknown impacts get the Medio mapping.
func DefaultPriorityMapping(impact domain.Impact) PriorityMapping {
	if m, ok := defaultMappings[impact]; ok {
		return m
	}
	return defaultMappings[domain.ImpactMedium]
}

// Resolver maps impact levels to rows of the ANS matrix.
type Resolver struct {
	matrix []domain.SlaRow
}

func NewResolver(matrix []domain.SlaRow) Resolver {
	return Resolver{matrix: matrix}
}

// ResolveByImpact returns the matrix row whose impact equals impact exactly.
// When there is none, it returns a row for impact with every time set to
// domain.NotAvailable. A missing canonical level is a matrix data problem;
// Validate reports it at startup.
func (r Resolver) ResolveByImpact(impact domain.Impact) domain.SlaRow {
	for _, row := range r.matrix {
		if row.Impact == impact {
			return row
		}
	}
	return domain.SlaRow{
		Impact:               impact,
		FirstResponseTime:    domain.NotAvailable,
		AssistanceTime:       domain.NotAvailable,
		ResolutionTargetTime: domain.NotAvailable,
	}
}

// Validate reports canonical impact levels that have no matrix row.
func (r Resolver) Validate() error {
	var missing []string
	for _, impact := range domain.Impacts {
		found := false
		for _, row := range r.matrix {
			if row.Impact == impact {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, string(impact))
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("ANS matrix is missing impact levels: %s", strings.Join(missing, ", "))
	}
	return nil
}
