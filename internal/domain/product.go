package domain

import (
	"github.com/shopspring/decimal"

	"storefront/internal/dto"
)

type Product struct {
	ID      int64
	Name    string
	Price   decimal.Decimal
	Stock   int
	Active  bool
	Version int
}

// CanFulfil reports whether quantity units can be taken from stock.
func (p Product) CanFulfil(quantity int) bool {
	return p.Active && quantity > 0 && p.Stock >= quantity
}

func (p Product) ToDTO() dto.Product {
	return dto.Product{
		ID:     p.ID,
		Name:   p.Name,
		Price:  p.Price.InexactFloat64(),
		Stock:  p.Stock,
		Active: p.Active,
	}
}

// ProductSales is a product with the units sold across all orders.
type ProductSales struct {
	Product   Product
	TotalSold int
}

func (s ProductSales) ToDTO() dto.ProductSales {
	return dto.ProductSales{Product: s.Product.ToDTO(), TotalSold: s.TotalSold}
}
