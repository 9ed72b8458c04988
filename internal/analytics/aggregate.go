package analytics

import (
	"time"

	"crm-insight/internal/models"
)

type customerAccumulator struct {
	last   time.Time
	months map[time.Time]int
	total  float64
	count  int
}

// Aggregate computes order metrics for every customer that appears in orders.
// The result is ordered by OrderByCode over the customer ids.
func Aggregate(orders []models.Order) []models.CustomerAggregate {
	byCustomer := make(map[string]*customerAccumulator)
	ids := make([]string, 0)

	for _, o := range orders {
		acc, ok := byCustomer[o.CustomerID]
		if !ok {
			acc = &customerAccumulator{months: make(map[time.Time]int)}
			byCustomer[o.CustomerID] = acc
			ids = append(ids, o.CustomerID)
		}

		// rows without a date still count towards spend and order count
		if !o.OrderDate.IsZero() {
			if o.OrderDate.After(acc.last) {
				acc.last = o.OrderDate
			}
			acc.months[o.Month()]++
		}
		acc.total += o.Amount()
		acc.count++
	}

	aggregates := make([]models.CustomerAggregate, 0, len(ids))
	for _, id := range OrderByCode(ids) {
		acc := byCustomer[id]
		aggregates = append(aggregates, models.CustomerAggregate{
			CustomerID:    id,
			LastOrderDate: acc.last,
			FavoriteMonth: modalMonth(acc.months),
			TotalSpend:    acc.total,
			AverageTicket: acc.total / float64(acc.count),
			OrderCount:    acc.count,
		})
	}

	return aggregates
}

// modalMonth returns the most frequent month; ties go to the earliest month
func modalMonth(months map[time.Time]int) time.Time {
	var best time.Time
	bestCount := 0
	for month, count := range months {
		if count > bestCount || (count == bestCount && month.Before(best)) {
			best = month
			bestCount = count
		}
	}
	return best
}

// CountDeliveries groups deliveries by customer id
func CountDeliveries(deliveries []models.Delivery) map[string]int {
	counts := make(map[string]int)
	for _, d := range deliveries {
		counts[d.CustomerID]++
	}
	return counts
}
