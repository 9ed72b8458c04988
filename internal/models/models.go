package models

import "time"

// Order is one line item of the orders sheet
type Order struct {
	CustomerID string    `db:"codigo_cliente" json:"customer_id"`
	Product    string    `db:"producto" json:"product"`
	Quantity   int64     `db:"cantidad" json:"quantity"`
	UnitPrice  float64   `db:"precio_unitario" json:"unit_price"`
	OrderDate  time.Time `db:"fecha_pedido" json:"order_date"`
}

// Amount returns quantity times unit price
func (o Order) Amount() float64 {
	return float64(o.Quantity) * o.UnitPrice
}

// Month returns the order date truncated to its month
func (o Order) Month() time.Time {
	return MonthOf(o.OrderDate)
}

// Delivery represents a delivered line item
type Delivery struct {
	CustomerID   string    `db:"codigo_cliente" json:"customer_id"`
	DeliveryDate time.Time `db:"fecha_entrega" json:"delivery_date"`
}

// Customer is the customer dimension record
type Customer struct {
	ID           string `db:"codigo_cliente" json:"customer_id"`
	Name         string `db:"nombre" json:"name"`
	Phone        string `db:"telefono" json:"phone"`
	Address      string `db:"direccion" json:"address"`
	BusinessType string `db:"tipo_negocio" json:"business_type"`
	Attendant    string `db:"quien_atiende" json:"attendant"`
	Zone         string `db:"zona" json:"zone"`
}

// Dataset holds the three raw tables of a source
type Dataset struct {
	Orders     []Order    `json:"orders"`
	Deliveries []Delivery `json:"deliveries"`
	Customers  []Customer `json:"customers"`
}

// Empty reports whether the dataset has no customers
func (d *Dataset) Empty() bool {
	return d == nil || len(d.Customers) == 0
}

// CustomerAggregate holds per-customer order metrics
type CustomerAggregate struct {
	CustomerID    string    `json:"customer_id"`
	LastOrderDate time.Time `json:"last_order_date"`
	FavoriteMonth time.Time `json:"favorite_month"`
	TotalSpend    float64   `json:"total_spend"`
	AverageTicket float64   `json:"average_ticket"`
	OrderCount    int       `json:"order_count"`
}

// EnrichedCustomer is a customer joined with its order and delivery metrics
type EnrichedCustomer struct {
	Customer

	LastOrderDate         time.Time `json:"last_order_date"`
	FavoriteMonth         time.Time `json:"-"`
	TotalSpend            float64   `json:"total_spend"`
	AverageTicket         float64   `json:"average_ticket"`
	OrderCount            int       `json:"order_count"`
	DeliveryCount         int       `json:"delivery_count"`
	RecencyDays           int       `json:"recency_days"`
	DeliveryEffectiveness float64   `json:"delivery_effectiveness"`
	Segment               Segment   `json:"segment"`
	ProjectedValue        float64   `json:"projected_value"`

	NeedsVisit       bool     `json:"needs_visit"`
	LowEffectiveness bool     `json:"low_effectiveness"`
	Priority         Priority `json:"priority"`
}

// FavoriteMonthLabel returns the most frequent order month as YYYY-MM, or
// an empty string for customers without orders
func (c EnrichedCustomer) FavoriteMonthLabel() string {
	if c.FavoriteMonth.IsZero() {
		return ""
	}
	return MonthLabel(c.FavoriteMonth)
}

// ProductRanking is a product with its summed quantity and amount
type ProductRanking struct {
	Product       string  `json:"product"`
	TotalQuantity int64   `json:"total_quantity"`
	TotalAmount   float64 `json:"total_amount"`
}

// Opportunity is a product bought by others but not by the customer
type Opportunity struct {
	Product string `json:"product"`
	// ReferencePrice is nil when no price was observed
	ReferencePrice *float64 `json:"reference_price"`
}

// Segment labels
type Segment string

const (
	SegmentActive     Segment = "Active"
	SegmentDiminished Segment = "Diminished"
	SegmentInactive   Segment = "Inactive"
)

// Segments lists the segment labels in display order
var Segments = []Segment{SegmentActive, SegmentDiminished, SegmentInactive}

// Priority tiers
type Priority string

const (
	PriorityNone   Priority = "None"
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

// Contact cadences
type Cadence string

const (
	CadenceBiWeekly  Cadence = "BiWeekly"
	CadenceWeekly    Cadence = "Weekly"
	CadenceIntensive Cadence = "Intensive"
)

// MonthOf truncates t to the first day of its month in UTC
func MonthOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// MonthLabel formats a month as YYYY-MM
func MonthLabel(t time.Time) string {
	return t.Format("2006-01")
}
