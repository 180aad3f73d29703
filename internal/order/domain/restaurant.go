package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is the order-side view of a restaurant catalog entry.
type Product struct {
	ID    uuid.UUID
	Name  string
	Price decimal.Decimal
}

// Restaurant is the order-side view of the restaurant used to confirm catalog
// prices during order creation.
type Restaurant struct {
	ID       uuid.UUID
	Products []Product
	Active   bool
}

// ProductByID looks up a catalog product.
func (r *Restaurant) ProductByID(id uuid.UUID) (Product, bool) {
	for _, product := range r.Products {
		if product.ID == id {
			return product, true
		}
	}
	return Product{}, false
}

// Customer is the order-side view of a customer. Only existence matters here.
type Customer struct {
	ID uuid.UUID
}
