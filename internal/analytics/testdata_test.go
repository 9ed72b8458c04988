package analytics

import (
	"fmt"
	"math/rand"
	"time"

	"crm-insight/internal/models"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func order(customer, product string, qty int64, price float64, at time.Time) models.Order {
	return models.Order{CustomerID: customer, Product: product, Quantity: qty, UnitPrice: price, OrderDate: at}
}

// randomDataset builds a dataset where some customers have no orders, some
// orders reference unknown customers and deliveries may exceed orders
func randomDataset(rng *rand.Rand, customers, orders, deliveries int) *models.Dataset {
	ds := &models.Dataset{}
	zones := []string{"1", "2", "Norte"}
	types := []string{"colmado", "super"}

	for i := 0; i < customers; i++ {
		ds.Customers = append(ds.Customers, models.Customer{
			ID:           fmt.Sprintf("C%d", i),
			Name:         fmt.Sprintf("Customer %d", i),
			BusinessType: types[rng.Intn(len(types))],
			Zone:         zones[rng.Intn(len(zones))],
		})
	}

	base := date(2023, time.January, 1)
	for i := 0; i < orders; i++ {
		ds.Orders = append(ds.Orders, order(
			fmt.Sprintf("C%d", rng.Intn(customers+3)),
			fmt.Sprintf("P%d", rng.Intn(15)),
			int64(rng.Intn(20)),
			float64(rng.Intn(500))/4,
			base.AddDate(0, 0, rng.Intn(900)),
		))
	}

	for i := 0; i < deliveries; i++ {
		ds.Deliveries = append(ds.Deliveries, models.Delivery{
			CustomerID:   fmt.Sprintf("C%d", rng.Intn(customers+3)),
			DeliveryDate: base.AddDate(0, 0, rng.Intn(900)),
		})
	}
	return ds
}
