package model

import "time"

// Product is owned by the catalogue; this service only reads it and moves stock.
type Product struct {
	ID         string
	Title      string
	Price      int64
	Stock      int
	SalesCount int
	Active     bool
	CreatedAt  time.Time
}

type ProductVariant struct {
	ID        string
	ProductID string
	Name      string
	Price     *int64 // overrides the product price when set
	Stock     int
}

// UnitPrice resolves the price a cart line captures.
func UnitPrice(p *Product, v *ProductVariant) int64 {
	if v != nil && v.Price != nil {
		return *v.Price
	}
	return p.Price
}
