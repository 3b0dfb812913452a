package controller

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"storefront/internal/dto"
	apperrors "storefront/internal/errors"
)

type mockPlaceOrderUseCase struct {
	called         bool
	lastRequest    dto.OrderRequest
	PlaceOrderFunc func(ctx context.Context, req dto.OrderRequest) (*dto.OrderResponse, error)
	GetOrderFunc   func(ctx context.Context, id int64) (*dto.OrderResponse, error)
}

func (m *mockPlaceOrderUseCase) PlaceOrder(ctx context.Context, req dto.OrderRequest) (*dto.OrderResponse, error) {
	m.called = true
	m.lastRequest = req
	return m.PlaceOrderFunc(ctx, req)
}

func (m *mockPlaceOrderUseCase) GetOrder(ctx context.Context, id int64) (*dto.OrderResponse, error) {
	return m.GetOrderFunc(ctx, id)
}

func sampleResponse() *dto.OrderResponse {
	return &dto.OrderResponse{
		ID:        42,
		CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Total:     21,
		Items:     []dto.OrderItemResponse{{ProductID: 5, ProductName: "Widget", Quantity: 2, UnitPrice: 10.5, LineTotal: 21}},
	}
}

func postOrder(ctrl *OrderController, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	ctrl.PlaceOrder(rec, req)
	return rec
}

func decodeValidation(t *testing.T, rec *httptest.ResponseRecorder) validationErrorResponse {
	t.Helper()
	var body validationErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestPlaceOrder_Created(t *testing.T) {
	uc := &mockPlaceOrderUseCase{
		PlaceOrderFunc: func(ctx context.Context, req dto.OrderRequest) (*dto.OrderResponse, error) {
			return sampleResponse(), nil
		},
	}
	ctrl := NewOrderController(uc, zap.NewNop())

	rec := postOrder(ctrl, `{"items":[{"productId":5,"quantity":2}]}`)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var body dto.OrderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, int64(42), body.ID)
	assert.Equal(t, 21.0, body.Total)
	assert.Equal(t, []dto.OrderItemRequest{{ProductID: 5, Quantity: 2}}, uc.lastRequest.Items)
}

func TestPlaceOrder_StockConflictBody(t *testing.T) {
	uc := &mockPlaceOrderUseCase{
		PlaceOrderFunc: func(ctx context.Context, req dto.OrderRequest) (*dto.OrderResponse, error) {
			name := "Widget"
			return nil, apperrors.NewStockConflictError([]dto.StockError{{ProductID: 5, Available: 1, ProductName: &name}})
		},
	}
	ctrl := NewOrderController(uc, zap.NewNop())

	rec := postOrder(ctrl, `{"items":[{"productId":5,"quantity":2}]}`)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.JSONEq(t, `[{"productId":5,"available":1,"productName":"Widget"}]`, rec.Body.String())
}

func TestPlaceOrder_DeadlockIsServiceUnavailable(t *testing.T) {
	uc := &mockPlaceOrderUseCase{
		PlaceOrderFunc: func(ctx context.Context, req dto.OrderRequest) (*dto.OrderResponse, error) {
			return nil, apperrors.NewDeadlockError("max retries exceeded")
		},
	}
	ctrl := NewOrderController(uc, zap.NewNop())

	rec := postOrder(ctrl, `{"items":[{"productId":5,"quantity":2}]}`)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var body dto.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "DEADLOCK", body.Code)
	assert.NotEmpty(t, body.TraceID)
}

func TestPlaceOrder_UnexpectedError(t *testing.T) {
	uc := &mockPlaceOrderUseCase{
		PlaceOrderFunc: func(ctx context.Context, req dto.OrderRequest) (*dto.OrderResponse, error) {
			return nil, errors.New("db down")
		},
	}
	ctrl := NewOrderController(uc, zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(`{"items":[{"productId":5,"quantity":2}]}`))
	req.Header.Set("X-Trace-Id", "trace-123")
	rec := httptest.NewRecorder()
	ctrl.PlaceOrder(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body dto.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "INTERNAL_ERROR", body.Code)
	assert.Equal(t, "trace-123", body.TraceID)
	assert.NotContains(t, rec.Body.String(), "db down")
}

func TestPlaceOrder_InvalidJSON(t *testing.T) {
	uc := &mockPlaceOrderUseCase{}
	ctrl := NewOrderController(uc, zap.NewNop())

	rec := postOrder(ctrl, `{"items":`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeValidation(t, rec)
	assert.Equal(t, "VALIDATION_ERROR", body.Error)
	assert.Equal(t, "body", body.Details[0].Field)
	assert.False(t, uc.called)
}

func TestPlaceOrder_Validation(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		field   string
		message string
	}{
		{"missing items", `{}`, "items", "items must not be empty"},
		{"empty items", `{"items":[]}`, "items", "items must not be empty"},
		{"zero productId", `{"items":[{"productId":0,"quantity":1}]}`, "items[0].productId", "productId must be a positive integer"},
		{"negative productId", `{"items":[{"productId":-3,"quantity":1}]}`, "items[0].productId", "productId must be a positive integer"},
		{"zero quantity", `{"items":[{"productId":1,"quantity":0}]}`, "items[0].quantity", "quantity must be between 1 and 10000"},
		{"quantity too large", `{"items":[{"productId":1,"quantity":10001}]}`, "items[0].quantity", "quantity must be between 1 and 10000"},
		{"duplicate productId", `{"items":[{"productId":1,"quantity":1},{"productId":1,"quantity":2}]}`, "items[1].productId", "productId must not be duplicated"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc := &mockPlaceOrderUseCase{}
			ctrl := NewOrderController(uc, zap.NewNop())

			rec := postOrder(ctrl, tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			body := decodeValidation(t, rec)
			require.Len(t, body.Details, 1)
			assert.Equal(t, tt.field, body.Details[0].Field)
			assert.Equal(t, tt.message, body.Details[0].Message)
			assert.False(t, uc.called)
		})
	}
}

func TestPlaceOrder_TooManyItems(t *testing.T) {
	items := make([]dto.OrderItemRequest, 101)
	for i := range items {
		items[i] = dto.OrderItemRequest{ProductID: int64(i + 1), Quantity: 1}
	}
	raw, err := json.Marshal(dto.OrderRequest{Items: items})
	require.NoError(t, err)

	uc := &mockPlaceOrderUseCase{}
	rec := postOrder(NewOrderController(uc, zap.NewNop()), string(raw))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeValidation(t, rec)
	require.Len(t, body.Details, 1)
	assert.Equal(t, "items exceeds maximum of 100", body.Details[0].Message)
}

func TestPlaceOrder_BodyTooLarge(t *testing.T) {
	uc := &mockPlaceOrderUseCase{}
	ctrl := NewOrderController(uc, zap.NewNop())

	padding := strings.Repeat(" ", MaxOrderBodyBytes)
	rec := postOrder(ctrl, `{"items":[{"productId":5,"quantity":2}]`+padding+`}`)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	var body dto.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "PAYLOAD_TOO_LARGE", body.Code)
	assert.False(t, uc.called)
}

func getOrder(ctrl *OrderController, id string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Get("/orders/{orderId}", ctrl.GetOrder)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders/"+id, nil))
	return rec
}

func TestGetOrder(t *testing.T) {
	uc := &mockPlaceOrderUseCase{
		GetOrderFunc: func(ctx context.Context, id int64) (*dto.OrderResponse, error) {
			if id == 42 {
				return sampleResponse(), nil
			}
			return nil, apperrors.NewNotFoundError("order not found")
		},
	}
	ctrl := NewOrderController(uc, zap.NewNop())

	rec := getOrder(ctrl, "42")
	assert.Equal(t, http.StatusOK, rec.Code)
	var body dto.OrderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Widget", body.Items[0].ProductName)

	rec = getOrder(ctrl, "7")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = getOrder(ctrl, "abc")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = getOrder(ctrl, "0")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
