package domain

import (
	"time"

	"github.com/shopspring/decimal"

	"storefront/internal/dto"
)

// MoneyScale is the number of decimal places kept for prices and totals.
const MoneyScale = 2

type Order struct {
	ID        int64
	CreatedAt time.Time
	Total     decimal.Decimal
	Items     []OrderItem
}

type OrderItem struct {
	ID          int64
	OrderID     int64
	ProductID   int64
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
	LineTotal   decimal.Decimal
}

// NewOrderItem prices quantity units of p at the product's current price.
func NewOrderItem(p Product, quantity int) OrderItem {
	return OrderItem{
		ProductID:   p.ID,
		ProductName: p.Name,
		Quantity:    quantity,
		UnitPrice:   p.Price,
		LineTotal:   p.Price.Mul(decimal.NewFromInt(int64(quantity))).RoundBank(MoneyScale),
	}
}

// NewOrder builds an unsaved order whose total is the sum of the line totals.
func NewOrder(createdAt time.Time, items []OrderItem) *Order {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.LineTotal)
	}
	return &Order{
		CreatedAt: createdAt,
		Total:     total.RoundBank(MoneyScale),
		Items:     items,
	}
}

func (o Order) ToDTO() dto.OrderResponse {
	items := make([]dto.OrderItemResponse, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, dto.OrderItemResponse{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice.InexactFloat64(),
			LineTotal:   item.LineTotal.InexactFloat64(),
		})
	}
	return dto.OrderResponse{
		ID:        o.ID,
		CreatedAt: o.CreatedAt,
		Total:     o.Total.InexactFloat64(),
		Items:     items,
	}
}
