package analytics

import (
	"sort"
	"strings"
	"time"

	"crm-insight/internal/models"
)

// Reference benchmarks for the vendor executive summary
const (
	ReferenceEffectiveness = 0.85
	ReferenceRecencyDays   = 45
)

// Filter narrows the customer table; empty fields match everything
type Filter struct {
	Zone    string `form:"zone" json:"zone,omitempty"`
	Segment string `form:"segment" json:"segment,omitempty"`
	// Month is YYYY-MM matched against the most frequent order month
	Month string `form:"month" json:"month,omitempty"`
}

// Apply returns the customers matching every set field
func (f Filter) Apply(customers []models.EnrichedCustomer) []models.EnrichedCustomer {
	filtered := make([]models.EnrichedCustomer, 0, len(customers))
	for _, c := range customers {
		if f.Zone != "" && c.Zone != f.Zone {
			continue
		}
		if f.Segment != "" && string(c.Segment) != f.Segment {
			continue
		}
		if f.Month != "" && c.FavoriteMonthLabel() != f.Month {
			continue
		}
		filtered = append(filtered, c)
	}
	return filtered
}

// FilterOptions lists the selectable values of each filter
type FilterOptions struct {
	Zones    []string         `json:"zones"`
	Segments []models.Segment `json:"segments"`
	Months   []string         `json:"months"`
}

// Options builds the filter option lists from the enriched table and orders
func Options(customers []models.EnrichedCustomer, orders []models.Order) FilterOptions {
	zones := make([]string, 0, len(customers))
	present := make(map[models.Segment]bool)
	for _, c := range customers {
		zones = append(zones, c.Zone)
		present[c.Segment] = true
	}

	segments := make([]models.Segment, 0, len(models.Segments))
	for _, s := range models.Segments {
		if present[s] {
			segments = append(segments, s)
		}
	}

	months := make([]string, 0)
	for _, o := range orders {
		if !o.OrderDate.IsZero() {
			months = append(months, models.MonthLabel(o.Month()))
		}
	}
	months = uniqueStrings(months)
	sort.Strings(months)

	return FilterOptions{
		Zones:    OrderByCode(uniqueStrings(zones)),
		Segments: segments,
		Months:   months,
	}
}

// SearchByCode returns the customers whose id equals code
func SearchByCode(customers []models.EnrichedCustomer, code string) []models.EnrichedCustomer {
	code = strings.TrimSpace(code)
	found := make([]models.EnrichedCustomer, 0)
	for _, c := range customers {
		if c.ID == code {
			found = append(found, c)
		}
	}
	return found
}

// SearchByName returns the customers whose name contains name, ignoring case
func SearchByName(customers []models.EnrichedCustomer, name string) []models.EnrichedCustomer {
	needle := strings.ToLower(strings.TrimSpace(name))
	found := make([]models.EnrichedCustomer, 0)
	for _, c := range customers {
		if strings.Contains(strings.ToLower(c.Name), needle) {
			found = append(found, c)
		}
	}
	return found
}

// KPIs are the headline indicators of a customer table
type KPIs struct {
	Customers          int     `json:"customers"`
	MeanTotalSpend     float64 `json:"mean_total_spend"`
	MeanRecencyDays    float64 `json:"mean_recency_days"`
	MeanProjectedValue float64 `json:"mean_projected_value"`
	MeanTicket         float64 `json:"mean_ticket"`
	MeanEffectiveness  float64 `json:"mean_effectiveness"`
	TotalSpend         float64 `json:"total_spend"`
}

// Summarize computes KPIs; an empty table yields zeros
func Summarize(customers []models.EnrichedCustomer) KPIs {
	k := KPIs{Customers: len(customers)}
	if len(customers) == 0 {
		return k
	}

	var recency, projected, ticket, effectiveness float64
	for _, c := range customers {
		k.TotalSpend += c.TotalSpend
		recency += float64(c.RecencyDays)
		projected += c.ProjectedValue
		ticket += c.AverageTicket
		effectiveness += c.DeliveryEffectiveness
	}

	n := float64(len(customers))
	k.MeanTotalSpend = round2(k.TotalSpend / n)
	k.MeanRecencyDays = round2(recency / n)
	k.MeanProjectedValue = round2(projected / n)
	k.MeanTicket = round2(ticket / n)
	k.MeanEffectiveness = effectiveness / n
	return k
}

// SegmentStats aggregates one segment
type SegmentStats struct {
	Segment    models.Segment `json:"segment"`
	Customers  int            `json:"customers"`
	TotalSpend float64        `json:"total_spend"`
}

// SegmentBreakdown returns stats for every segment present, in label order
func SegmentBreakdown(customers []models.EnrichedCustomer) []SegmentStats {
	bySegment := make(map[models.Segment]*SegmentStats)
	for _, c := range customers {
		s, ok := bySegment[c.Segment]
		if !ok {
			s = &SegmentStats{Segment: c.Segment}
			bySegment[c.Segment] = s
		}
		s.Customers++
		s.TotalSpend += c.TotalSpend
	}

	breakdown := make([]SegmentStats, 0, len(bySegment))
	for _, label := range models.Segments {
		if s, ok := bySegment[label]; ok {
			breakdown = append(breakdown, *s)
		}
	}
	return breakdown
}

// VendorStats is one row of the vendor comparison table
type VendorStats struct {
	Zone string `json:"zone"`
	KPIs
}

// CompareVendors groups the customer table by zone
func CompareVendors(customers []models.EnrichedCustomer) []VendorStats {
	byZone := make(map[string][]models.EnrichedCustomer)
	zones := make([]string, 0)
	for _, c := range customers {
		if _, ok := byZone[c.Zone]; !ok {
			zones = append(zones, c.Zone)
		}
		byZone[c.Zone] = append(byZone[c.Zone], c)
	}

	stats := make([]VendorStats, 0, len(zones))
	for _, zone := range OrderByCode(zones) {
		stats = append(stats, VendorStats{Zone: zone, KPIs: Summarize(byZone[zone])})
	}
	return stats
}

// VendorSummary compares a vendor against the reference benchmarks
type VendorSummary struct {
	Effectiveness          float64 `json:"effectiveness"`
	EffectivenessAboveRef  bool    `json:"effectiveness_above_reference"`
	RecencyDays            float64 `json:"recency_days"`
	RecencyBetterThanRef   bool    `json:"recency_better_than_reference"`
	ActiveCustomers        int     `json:"active_customers"`
	ActiveCustomersPercent float64 `json:"active_customers_percent"`
}

// SummarizeVendor builds the executive summary for one vendor's customers
func SummarizeVendor(customers []models.EnrichedCustomer) VendorSummary {
	k := Summarize(customers)
	summary := VendorSummary{
		Effectiveness:         k.MeanEffectiveness,
		EffectivenessAboveRef: k.MeanEffectiveness > ReferenceEffectiveness,
		RecencyDays:           k.MeanRecencyDays,
		RecencyBetterThanRef:  k.MeanRecencyDays < ReferenceRecencyDays,
	}
	for _, c := range customers {
		if c.Segment == models.SegmentActive {
			summary.ActiveCustomers++
		}
	}
	if len(customers) > 0 {
		summary.ActiveCustomersPercent = round2(float64(summary.ActiveCustomers) / float64(len(customers)) * 100)
	}
	return summary
}

// InSegment keeps the customers of one segment
func InSegment(customers []models.EnrichedCustomer, segment models.Segment) []models.EnrichedCustomer {
	out := make([]models.EnrichedCustomer, 0)
	for _, c := range customers {
		if c.Segment == segment {
			out = append(out, c)
		}
	}
	return out
}

// ContactCadence recommends how often to contact a customer
func ContactCadence(recencyDays int) models.Cadence {
	switch {
	case recencyDays < 15:
		return models.CadenceBiWeekly
	case recencyDays < 30:
		return models.CadenceWeekly
	default:
		return models.CadenceIntensive
	}
}

// NotAvailable marks a missing date bound
const NotAvailable = "N/A"

// DateRange holds the formatted bounds of a date column
type DateRange struct {
	Min string `json:"min"`
	Max string `json:"max"`
}

// EmptyDateRange is the range of an empty column
func EmptyDateRange() DateRange {
	return DateRange{Min: NotAvailable, Max: NotAvailable}
}

// RangeOf formats the min and max of dates as dd/mm/yyyy, ignoring zero dates
func RangeOf(dates []time.Time) DateRange {
	var lo, hi time.Time
	for _, d := range dates {
		if d.IsZero() {
			continue
		}
		if lo.IsZero() || d.Before(lo) {
			lo = d
		}
		if hi.IsZero() || d.After(hi) {
			hi = d
		}
	}
	if lo.IsZero() {
		return EmptyDateRange()
	}
	return DateRange{Min: lo.Format("02/01/2006"), Max: hi.Format("02/01/2006")}
}

// Pitch is the suggested sales approach for a customer
type Pitch struct {
	Segment         models.Segment `json:"segment"`
	DiscountPercent int            `json:"discount_percent"`
	FreeDelivery    bool           `json:"free_delivery"`
	// FeaturedProduct is empty when there is nothing to suggest
	FeaturedProduct string `json:"featured_product"`
}

// PitchFor picks the offer by segment. Active and inactive customers are
// offered the top product of their peers; diminished customers are reminded
// of their own favorite.
func PitchFor(segment models.Segment, own, recommended []models.ProductRanking) Pitch {
	p := Pitch{Segment: segment}
	featured := recommended
	switch segment {
	case models.SegmentActive:
		p.DiscountPercent = 5
	case models.SegmentDiminished:
		p.DiscountPercent = 10
		featured = own
	default:
		p.DiscountPercent = 15
		p.FreeDelivery = true
	}
	if len(featured) > 0 {
		p.FeaturedProduct = featured[0].Product
	}
	return p
}
