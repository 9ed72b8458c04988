package analytics

import (
	"math"
	"time"

	"crm-insight/internal/models"

	"github.com/shopspring/decimal"
)

const (
	// MaxRecencyDays caps the days since the last order
	MaxRecencyDays = 365

	activeBelowDays     = 30
	diminishedBelowDays = 90
)

// Enrich left-joins the aggregates and delivery counts onto the customer
// dimension and derives recency, effectiveness, segment and projected value.
// Every customer yields exactly one row, in input order; a repeated customer
// id keeps its first row.
func Enrich(
	customers []models.Customer,
	aggregates []models.CustomerAggregate,
	deliveries []models.Delivery,
	now time.Time,
) []models.EnrichedCustomer {
	aggByID := make(map[string]models.CustomerAggregate, len(aggregates))
	for _, a := range aggregates {
		aggByID[a.CustomerID] = a
	}
	deliveryCounts := CountDeliveries(deliveries)

	seen := make(map[string]struct{}, len(customers))
	enriched := make([]models.EnrichedCustomer, 0, len(customers))

	for _, c := range customers {
		if _, dup := seen[c.ID]; dup {
			continue
		}
		seen[c.ID] = struct{}{}

		agg := aggByID[c.ID]
		recency := RecencyDays(now, agg.LastOrderDate)

		enriched = append(enriched, models.EnrichedCustomer{
			Customer:              c,
			LastOrderDate:         agg.LastOrderDate,
			FavoriteMonth:         agg.FavoriteMonth,
			TotalSpend:            agg.TotalSpend,
			AverageTicket:         agg.AverageTicket,
			OrderCount:            agg.OrderCount,
			DeliveryCount:         deliveryCounts[c.ID],
			RecencyDays:           recency,
			DeliveryEffectiveness: DeliveryEffectiveness(deliveryCounts[c.ID], agg.OrderCount),
			Segment:               SegmentFor(recency),
			ProjectedValue:        ProjectedValue(agg.AverageTicket, recency),
			Priority:              models.PriorityNone,
		})
	}

	return enriched
}

// RecencyDays returns the whole days between the start of now's day and the
// last order, clamped to [0, MaxRecencyDays]. A customer without orders
// (zero last order date) gets 0.
func RecencyDays(now, lastOrder time.Time) int {
	if lastOrder.IsZero() {
		return 0
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	last := time.Date(lastOrder.Year(), lastOrder.Month(), lastOrder.Day(),
		lastOrder.Hour(), lastOrder.Minute(), lastOrder.Second(), lastOrder.Nanosecond(), time.UTC)

	days := int(math.Floor(today.Sub(last).Hours() / 24))
	return clampInt(days, 0, MaxRecencyDays)
}

// DeliveryEffectiveness is deliveries over orders (floored at one order),
// clamped to [0, 1]
func DeliveryEffectiveness(deliveries, orders int) float64 {
	ratio := float64(deliveries) / float64(maxInt(orders, 1))
	return math.Min(math.Max(ratio, 0), 1)
}

// SegmentFor maps recency to a segment: [0,30) Active, [30,90) Diminished,
// [90,∞) Inactive
func SegmentFor(recencyDays int) models.Segment {
	switch {
	case recencyDays < activeBelowDays:
		return models.SegmentActive
	case recencyDays < diminishedBelowDays:
		return models.SegmentDiminished
	default:
		return models.SegmentInactive
	}
}

// ProjectedValue annualizes the average ticket by recency. Recency 0 uses a
// denominator of 1, which yields a large value for very recent buyers.
func ProjectedValue(averageTicket float64, recencyDays int) float64 {
	return round2(averageTicket * 365 / float64(maxInt(recencyDays, 1)))
}

func round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return decimal.NewFromFloat(v).RoundBank(2).InexactFloat64()
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
