package dto

import "time"

type OrderRequest struct {
	Items []OrderItemRequest `json:"items" validate:"required,min=1,max=100,dive"`
}

type OrderItemRequest struct {
	ProductID int64 `json:"productId" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"required,min=1,max=10000"`
}

type OrderResponse struct {
	ID        int64               `json:"id"`
	CreatedAt time.Time           `json:"createdAt"`
	Total     float64             `json:"total"`
	Items     []OrderItemResponse `json:"items"`
}

type OrderItemResponse struct {
	ProductID   int64   `json:"productId"`
	ProductName string  `json:"productName"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unitPrice"`
	LineTotal   float64 `json:"lineTotal"`
}

// StockError is one entry of the 409 body returned by POST /orders.
type StockError struct {
	ProductID   int64   `json:"productId"`
	Available   int     `json:"available"`
	ProductName *string `json:"productName,omitempty"`
}
