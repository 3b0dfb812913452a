package dto

import "time"

// ErrorResponse is the body of every non-validation error the server returns,
// except the 409 of POST /orders which carries []StockError.
type ErrorResponse struct {
	TraceID   string    `json:"traceId"`
	Status    int       `json:"status"`
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}
