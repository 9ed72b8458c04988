package analytics

import (
	"math/rand"
	"testing"
	"time"

	"crm-insight/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnrichScenario(t *testing.T) {
	orders := []models.Order{
		order("C1", "Rice", 10, 100, date(2024, time.January, 1)),
		order("C1", "Beans", 5, 50, date(2024, time.February, 1)),
	}
	deliveries := []models.Delivery{{CustomerID: "C1", DeliveryDate: date(2024, time.January, 2)}}
	customers := []models.Customer{{ID: "C1", Name: "Juan"}}

	enriched := Enrich(customers, Aggregate(orders), deliveries, date(2024, time.March, 1))
	require.Len(t, enriched, 1)

	c := enriched[0]
	assert.Equal(t, "Juan", c.Name)
	assert.Equal(t, 2, c.OrderCount)
	assert.InDelta(t, 1250.0, c.TotalSpend, 1e-9)
	assert.Equal(t, 1, c.DeliveryCount)
	assert.InDelta(t, 0.5, c.DeliveryEffectiveness, 1e-9)
	assert.Equal(t, 29, c.RecencyDays)
	assert.Equal(t, models.SegmentActive, c.Segment)
	assert.InDelta(t, 7866.38, c.ProjectedValue, 1e-9)
	assert.Equal(t, "2024-01", c.FavoriteMonthLabel())
	assert.Equal(t, models.PriorityNone, c.Priority)
}

// A customer without orders gets recency 0 and therefore lands in Active.
func TestEnrichCustomerWithoutOrdersIsActive(t *testing.T) {
	customers := []models.Customer{{ID: "C1", Name: "Juan"}, {ID: "C2", Name: "Ana"}}
	orders := []models.Order{order("C1", "Rice", 1, 10, date(2023, time.January, 1))}

	enriched := Enrich(customers, Aggregate(orders), nil, date(2024, time.March, 1))
	require.Len(t, enriched, 2)

	ana := enriched[1]
	assert.Equal(t, "C2", ana.ID)
	assert.Equal(t, 0, ana.OrderCount)
	assert.Equal(t, 0, ana.RecencyDays)
	assert.Equal(t, models.SegmentActive, ana.Segment)
	assert.Zero(t, ana.TotalSpend)
	assert.Zero(t, ana.ProjectedValue)
	assert.Zero(t, ana.DeliveryEffectiveness)
	assert.True(t, ana.LastOrderDate.IsZero())
	assert.Equal(t, "", ana.FavoriteMonthLabel())

	// the old buyer is clamped at a year
	assert.Equal(t, MaxRecencyDays, enriched[0].RecencyDays)
	assert.Equal(t, models.SegmentInactive, enriched[0].Segment)
}

func TestEnrichJoinCompletenessAndRanges(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	now := date(2025, time.June, 15)

	for round := 0; round < 50; round++ {
		ds := randomDataset(rng, rng.Intn(30), rng.Intn(200), rng.Intn(300))
		enriched := Enrich(ds.Customers, Aggregate(ds.Orders), ds.Deliveries, now)

		require.Len(t, enriched, len(ds.Customers))
		seen := make(map[string]bool)
		for i, c := range enriched {
			assert.Equal(t, ds.Customers[i].ID, c.ID)
			assert.False(t, seen[c.ID], "duplicate id %s", c.ID)
			seen[c.ID] = true

			assert.GreaterOrEqual(t, c.RecencyDays, 0)
			assert.LessOrEqual(t, c.RecencyDays, MaxRecencyDays)
			assert.GreaterOrEqual(t, c.DeliveryEffectiveness, 0.0)
			assert.LessOrEqual(t, c.DeliveryEffectiveness, 1.0)
			assert.Equal(t, SegmentFor(c.RecencyDays), c.Segment)
		}
	}
}

func TestEnrichEmptyInputs(t *testing.T) {
	enriched := Enrich(nil, nil, nil, time.Now())
	assert.NotNil(t, enriched)
	assert.Empty(t, enriched)
}

func TestEnrichDuplicateCustomerKeepsFirst(t *testing.T) {
	customers := []models.Customer{{ID: "C1", Name: "first"}, {ID: "C1", Name: "second"}}
	enriched := Enrich(customers, nil, nil, time.Now())
	require.Len(t, enriched, 1)
	assert.Equal(t, "first", enriched[0].Name)
}

func TestRecencyDays(t *testing.T) {
	now := time.Date(2024, time.March, 1, 17, 45, 0, 0, time.UTC)

	assert.Equal(t, 0, RecencyDays(now, time.Time{}))
	assert.Equal(t, 0, RecencyDays(now, date(2024, time.March, 1)))
	assert.Equal(t, 29, RecencyDays(now, date(2024, time.February, 1)))
	// partial days round down
	assert.Equal(t, 28, RecencyDays(now, time.Date(2024, time.February, 1, 15, 0, 0, 0, time.UTC)))
	// future orders clamp to zero
	assert.Equal(t, 0, RecencyDays(now, date(2024, time.April, 1)))
	assert.Equal(t, 365, RecencyDays(now, date(2020, time.April, 1)))
}

func TestDeliveryEffectiveness(t *testing.T) {
	assert.InDelta(t, 0.0, DeliveryEffectiveness(0, 0), 1e-9)
	assert.InDelta(t, 1.0, DeliveryEffectiveness(3, 0), 1e-9)
	assert.InDelta(t, 1.0, DeliveryEffectiveness(5, 2), 1e-9)
	assert.InDelta(t, 0.25, DeliveryEffectiveness(1, 4), 1e-9)
}

func TestSegmentForBoundaries(t *testing.T) {
	cases := map[int]models.Segment{
		0:   models.SegmentActive,
		29:  models.SegmentActive,
		30:  models.SegmentDiminished,
		89:  models.SegmentDiminished,
		90:  models.SegmentInactive,
		365: models.SegmentInactive,
	}
	for days, want := range cases {
		assert.Equal(t, want, SegmentFor(days), "days %d", days)
	}
}

func TestSegmentPartition(t *testing.T) {
	for days := 0; days <= MaxRecencyDays; days++ {
		s := SegmentFor(days)
		matches := 0
		if days < 30 && s == models.SegmentActive {
			matches++
		}
		if days >= 30 && days < 90 && s == models.SegmentDiminished {
			matches++
		}
		if days >= 90 && s == models.SegmentInactive {
			matches++
		}
		assert.Equal(t, 1, matches, "days %d", days)
	}
}

func TestProjectedValue(t *testing.T) {
	assert.InDelta(t, 36500.0, ProjectedValue(100, 0), 1e-9)
	assert.InDelta(t, 36500.0, ProjectedValue(100, 1), 1e-9)
	assert.InDelta(t, 100.0, ProjectedValue(100, 365), 1e-9)
	assert.InDelta(t, 1216.67, ProjectedValue(100, 30), 1e-9)
	assert.Zero(t, ProjectedValue(0, 0))
}
