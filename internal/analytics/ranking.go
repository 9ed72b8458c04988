package analytics

import (
	"sort"

	"crm-insight/internal/models"
)

// Default ranking sizes
const (
	DefaultTopN       = 5
	DefaultVendorTopN = 10
)

// rankByQuantity groups orders by product and sorts the groups by total
// quantity, descending. Ties keep the order in which products first appear.
// Orders without a product name are skipped.
func rankByQuantity(orders []models.Order) []models.ProductRanking {
	index := make(map[string]int)
	rankings := make([]models.ProductRanking, 0)

	for _, o := range orders {
		if o.Product == "" {
			continue
		}
		i, ok := index[o.Product]
		if !ok {
			i = len(rankings)
			index[o.Product] = i
			rankings = append(rankings, models.ProductRanking{Product: o.Product})
		}
		rankings[i].TotalQuantity += o.Quantity
		rankings[i].TotalAmount += o.Amount()
	}

	sort.SliceStable(rankings, func(i, j int) bool {
		return rankings[i].TotalQuantity > rankings[j].TotalQuantity
	})
	return rankings
}

// TopN returns the n products with the highest total quantity
func TopN(orders []models.Order, n int) []models.ProductRanking {
	ranked := rankByQuantity(orders)
	if n < 0 {
		n = 0
	}
	if n < len(ranked) {
		ranked = ranked[:n]
	}
	return ranked
}

// BottomN returns the n products with the lowest total quantity, ascending.
// It reads the TopN ordering from the tail, so TopN and BottomN never share
// a product while there are more than 2n distinct products. Tied products
// therefore come out in reverse input order, and the last tied products seen
// are the ones kept when a tie straddles the cut.
func BottomN(orders []models.Order, n int) []models.ProductRanking {
	ranked := rankByQuantity(orders)
	if n < 0 {
		n = 0
	}
	if n > len(ranked) {
		n = len(ranked)
	}

	bottom := make([]models.ProductRanking, 0, n)
	for i := len(ranked) - 1; i >= len(ranked)-n; i-- {
		bottom = append(bottom, ranked[i])
	}
	return bottom
}

// Opportunities lists products present in allOrders that the customer never
// bought, in first-seen order, each with the mean unit price observed in
// allOrders. At most limit products are returned.
func Opportunities(customerOrders, allOrders []models.Order, limit int) []models.Opportunity {
	opportunities := make([]models.Opportunity, 0)
	if limit <= 0 {
		return opportunities
	}

	bought := make(map[string]struct{}, len(customerOrders))
	for _, o := range customerOrders {
		bought[o.Product] = struct{}{}
	}

	type priceAcc struct {
		sum float64
		n   int
	}
	prices := make(map[string]*priceAcc)
	candidates := make([]string, 0)

	for _, o := range allOrders {
		if o.Product == "" {
			continue
		}
		acc, ok := prices[o.Product]
		if !ok {
			acc = &priceAcc{}
			prices[o.Product] = acc
			if _, has := bought[o.Product]; !has {
				candidates = append(candidates, o.Product)
			}
		}
		acc.sum += o.UnitPrice
		acc.n++
	}

	for _, product := range candidates {
		if len(opportunities) == limit {
			break
		}
		opp := models.Opportunity{Product: product}
		if acc := prices[product]; acc.n > 0 {
			mean := acc.sum / float64(acc.n)
			opp.ReferencePrice = &mean
		}
		opportunities = append(opportunities, opp)
	}

	return opportunities
}

// SimilarCustomerPool returns the customers sharing business type and zone
func SimilarCustomerPool(customers []models.EnrichedCustomer, businessType, zone string) []models.EnrichedCustomer {
	pool := make([]models.EnrichedCustomer, 0)
	for _, c := range customers {
		if c.BusinessType == businessType && c.Zone == zone {
			pool = append(pool, c)
		}
	}
	return pool
}

// OrdersForCustomers keeps the orders placed by the given customer ids
func OrdersForCustomers(orders []models.Order, customerIDs []string) []models.Order {
	ids := make(map[string]struct{}, len(customerIDs))
	for _, id := range customerIDs {
		ids[id] = struct{}{}
	}

	filtered := make([]models.Order, 0)
	for _, o := range orders {
		if _, ok := ids[o.CustomerID]; ok {
			filtered = append(filtered, o)
		}
	}
	return filtered
}

// Recommendations ranks the products bought by a customer pool
func Recommendations(pool []models.EnrichedCustomer, orders []models.Order, n int) []models.ProductRanking {
	return TopN(OrdersForCustomers(orders, CustomerIDs(pool)), n)
}

// CustomerIDs extracts the ids of the given customers
func CustomerIDs(customers []models.EnrichedCustomer) []string {
	ids := make([]string, len(customers))
	for i, c := range customers {
		ids[i] = c.ID
	}
	return ids
}
