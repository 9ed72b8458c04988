package analytics

import (
	"errors"
	"fmt"

	"crm-insight/internal/models"
)

// Threshold bounds
const (
	DefaultRecencyThresholdDays   = 90
	DefaultEffectivenessThreshold = 0.80

	MinRecencyThresholdDays   = 30
	MaxRecencyThresholdDays   = 180
	MinEffectivenessThreshold = 0.50
	MaxEffectivenessThreshold = 0.95
)

// ErrInvalidThreshold is returned by Thresholds.Validate
var ErrInvalidThreshold = errors.New("invalid alert threshold")

// Thresholds configures the alert classifier
type Thresholds struct {
	RecencyDays   int     `json:"recency_days"`
	Effectiveness float64 `json:"effectiveness"`
}

// DefaultThresholds returns 90 days and 0.80
func DefaultThresholds() Thresholds {
	return Thresholds{
		RecencyDays:   DefaultRecencyThresholdDays,
		Effectiveness: DefaultEffectivenessThreshold,
	}
}

// Validate checks the thresholds against their allowed ranges
func (t Thresholds) Validate() error {
	if t.RecencyDays < MinRecencyThresholdDays || t.RecencyDays > MaxRecencyThresholdDays {
		return fmt.Errorf("%w: recency %d outside [%d, %d]",
			ErrInvalidThreshold, t.RecencyDays, MinRecencyThresholdDays, MaxRecencyThresholdDays)
	}
	// negated so NaN is rejected
	if !(t.Effectiveness >= MinEffectivenessThreshold && t.Effectiveness <= MaxEffectivenessThreshold) {
		return fmt.Errorf("%w: effectiveness %.2f outside [%.2f, %.2f]",
			ErrInvalidThreshold, t.Effectiveness, MinEffectivenessThreshold, MaxEffectivenessThreshold)
	}
	return nil
}

// Classify returns a copy of customers with the visit and effectiveness
// flags and the priority tier set
func Classify(customers []models.EnrichedCustomer, t Thresholds) []models.EnrichedCustomer {
	classified := make([]models.EnrichedCustomer, len(customers))
	for i, c := range customers {
		c.NeedsVisit = c.RecencyDays > t.RecencyDays
		c.LowEffectiveness = c.DeliveryEffectiveness < t.Effectiveness
		c.Priority = ClassifyPriority(c.NeedsVisit, c.LowEffectiveness)
		classified[i] = c
	}
	return classified
}

// ClassifyPriority combines the two alert flags into a tier
func ClassifyPriority(needsVisit, lowEffectiveness bool) models.Priority {
	switch {
	case needsVisit && lowEffectiveness:
		return models.PriorityHigh
	case needsVisit:
		return models.PriorityMedium
	case lowEffectiveness:
		return models.PriorityLow
	default:
		return models.PriorityNone
	}
}

// Alerted keeps the customers with a priority other than None
func Alerted(customers []models.EnrichedCustomer) []models.EnrichedCustomer {
	alerted := make([]models.EnrichedCustomer, 0)
	for _, c := range customers {
		if c.Priority != models.PriorityNone && c.Priority != "" {
			alerted = append(alerted, c)
		}
	}
	return alerted
}

// AlertSummary counts classified customers
type AlertSummary struct {
	Total                   int                     `json:"total"`
	NeedsVisit              int                     `json:"needs_visit"`
	LowEffectiveness        int                     `json:"low_effectiveness"`
	NeedsVisitPercent       float64                 `json:"needs_visit_percent"`
	LowEffectivenessPercent float64                 `json:"low_effectiveness_percent"`
	ByPriority              map[models.Priority]int `json:"by_priority"`
}

// SummarizeAlerts counts flags and priorities over classified customers
func SummarizeAlerts(customers []models.EnrichedCustomer) AlertSummary {
	summary := AlertSummary{
		Total:      len(customers),
		ByPriority: make(map[models.Priority]int),
	}
	for _, c := range customers {
		if c.NeedsVisit {
			summary.NeedsVisit++
		}
		if c.LowEffectiveness {
			summary.LowEffectiveness++
		}
		if c.Priority != models.PriorityNone {
			summary.ByPriority[c.Priority]++
		}
	}
	if summary.Total > 0 {
		summary.NeedsVisitPercent = round2(float64(summary.NeedsVisit) / float64(summary.Total) * 100)
		summary.LowEffectivenessPercent = round2(float64(summary.LowEffectiveness) / float64(summary.Total) * 100)
	}
	return summary
}
