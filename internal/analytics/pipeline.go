package analytics

import (
	"time"

	"crm-insight/internal/models"
)

// Result is the derived output of one pipeline run
type Result struct {
	Customers      []models.EnrichedCustomer `json:"customers"`
	TopProducts    []models.ProductRanking   `json:"top_products"`
	BottomProducts []models.ProductRanking   `json:"bottom_products"`
	Orders         []models.Order            `json:"-"`
	Deliveries     []models.Delivery         `json:"-"`
	OrderDates     DateRange                 `json:"order_dates"`
	DeliveryDates  DateRange                 `json:"delivery_dates"`
}

// EmptyResult is returned alongside a load failure: empty tables and N/A
// date bounds
func EmptyResult() *Result {
	return &Result{
		Customers:      []models.EnrichedCustomer{},
		TopProducts:    []models.ProductRanking{},
		BottomProducts: []models.ProductRanking{},
		Orders:         []models.Order{},
		Deliveries:     []models.Delivery{},
		OrderDates:     EmptyDateRange(),
		DeliveryDates:  EmptyDateRange(),
	}
}

// Run derives the enriched customer table and global rankings from a dataset
func Run(ds *models.Dataset, now time.Time, topN int) *Result {
	if ds == nil {
		return EmptyResult()
	}

	orderDates := make([]time.Time, len(ds.Orders))
	for i, o := range ds.Orders {
		orderDates[i] = o.OrderDate
	}
	deliveryDates := make([]time.Time, len(ds.Deliveries))
	for i, d := range ds.Deliveries {
		deliveryDates[i] = d.DeliveryDate
	}

	return &Result{
		Customers:      Enrich(ds.Customers, Aggregate(ds.Orders), ds.Deliveries, now),
		TopProducts:    TopN(ds.Orders, topN),
		BottomProducts: BottomN(ds.Orders, topN),
		Orders:         ds.Orders,
		Deliveries:     ds.Deliveries,
		OrderDates:     RangeOf(orderDates),
		DeliveryDates:  RangeOf(deliveryDates),
	}
}

// Empty reports whether the run produced no customers
func (r *Result) Empty() bool {
	return r == nil || len(r.Customers) == 0
}
