package controller

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"storefront/internal/dto"
	apperrors "storefront/internal/errors"
)

// MaxOrderBodyBytes bounds a POST /orders body; 100 items fit well within it.
const MaxOrderBodyBytes = 1 << 20

type PlaceOrderUseCase interface {
	PlaceOrder(ctx context.Context, req dto.OrderRequest) (*dto.OrderResponse, error)
	GetOrder(ctx context.Context, id int64) (*dto.OrderResponse, error)
}

type OrderController struct {
	useCase  PlaceOrderUseCase
	validate *validator.Validate
	logger   *zap.Logger
}

func NewOrderController(useCase PlaceOrderUseCase, logger *zap.Logger) *OrderController {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	return &OrderController{
		useCase:  useCase,
		validate: validate,
		logger:   logger,
	}
}

// PlaceOrder serves POST /orders.
func (c *OrderController) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	traceID := traceIDFrom(r)
	logger := c.logger.With(zap.String("traceId", traceID))

	var req dto.OrderRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxOrderBodyBytes)).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			logger.Warn("order body too large", zap.Int64("limit", tooLarge.Limit))
			c.writeErrorResponse(w, traceID, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "request body exceeds 1 MiB")
			return
		}
		logger.Warn("invalid JSON body", zap.Error(err))
		c.writeValidationError(w, "invalid JSON body", apperrors.ValidationDetail{
			Field:   "body",
			Message: "request body must be valid JSON",
		})
		return
	}

	if err := c.validateOrderRequest(req); err != nil {
		ve, _ := apperrors.IsValidationError(err)
		logger.Debug("order request rejected", zap.Int("detailCount", len(ve.Details)))
		c.writeValidationError(w, ve.Message, ve.Details...)
		return
	}

	resp, err := c.useCase.PlaceOrder(r.Context(), req)
	if err != nil {
		c.handleUseCaseError(w, traceID, err, logger)
		return
	}

	logger.Info("order placed", zap.Int64("orderId", resp.ID), zap.Float64("total", resp.Total))
	c.writeJSON(w, http.StatusCreated, resp)
}

// GetOrder serves GET /orders/{orderId}.
func (c *OrderController) GetOrder(w http.ResponseWriter, r *http.Request) {
	traceID := traceIDFrom(r)
	logger := c.logger.With(zap.String("traceId", traceID))

	orderID, err := strconv.ParseInt(chi.URLParam(r, "orderId"), 10, 64)
	if err != nil || orderID <= 0 {
		c.writeValidationError(w, "invalid orderId", apperrors.ValidationDetail{
			Field:   "orderId",
			Message: "orderId must be a positive integer",
		})
		return
	}

	resp, err := c.useCase.GetOrder(r.Context(), orderID)
	if err != nil {
		c.handleUseCaseError(w, traceID, err, logger.With(zap.Int64("orderId", orderID)))
		return
	}

	c.writeJSON(w, http.StatusOK, resp)
}

func (c *OrderController) validateOrderRequest(req dto.OrderRequest) error {
	var details []apperrors.ValidationDetail

	if err := c.validate.Struct(req); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return apperrors.NewValidationError("validation failed", apperrors.ValidationDetail{Field: "body", Message: err.Error()})
		}
		for _, fe := range fieldErrs {
			details = append(details, apperrors.ValidationDetail{
				Field:   fieldPath(fe),
				Message: fieldMessage(fe),
			})
		}
	}

	seen := make(map[int64]bool, len(req.Items))
	for idx, item := range req.Items {
		if item.ProductID > 0 && seen[item.ProductID] {
			details = append(details, apperrors.ValidationDetail{
				Field:   "items[" + strconv.Itoa(idx) + "].productId",
				Message: "productId must not be duplicated",
			})
		}
		seen[item.ProductID] = true
	}

	if len(details) > 0 {
		return apperrors.NewValidationError("validation failed", details...)
	}
	return nil
}

// fieldPath drops the struct name from the namespace: "items[0].quantity".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Field() {
	case "items":
		if fe.Tag() == "max" {
			return "items exceeds maximum of 100"
		}
		return "items must not be empty"
	case "productId":
		return "productId must be a positive integer"
	case "quantity":
		return "quantity must be between 1 and 10000"
	}
	return fe.Field() + " is invalid"
}

func (c *OrderController) handleUseCaseError(w http.ResponseWriter, traceID string, err error, logger *zap.Logger) {
	if se, ok := apperrors.IsStockConflictError(err); ok {
		logger.Info("order rejected (insufficient stock)", zap.Int("conflictCount", len(se.Conflicts)))
		c.writeJSON(w, http.StatusConflict, se.Conflicts)
		return
	}

	if _, ok := apperrors.IsNotFoundError(err); ok {
		c.writeErrorResponse(w, traceID, http.StatusNotFound, "NOT_FOUND", err.Error())
		return
	}

	if _, ok := apperrors.IsDeadlockError(err); ok {
		logger.Warn("order abandoned after repeated deadlocks", zap.Error(err))
		c.writeErrorResponse(w, traceID, http.StatusServiceUnavailable, "DEADLOCK", err.Error())
		return
	}

	logger.Error("unexpected error", zap.Error(err))
	c.writeErrorResponse(w, traceID, http.StatusInternalServerError, "INTERNAL_ERROR", "an unexpected error occurred")
}

func traceIDFrom(r *http.Request) string {
	if id := r.Header.Get("X-Trace-Id"); id != "" {
		return id
	}
	return uuid.New().String()
}

func (c *OrderController) writeErrorResponse(w http.ResponseWriter, traceID string, statusCode int, code string, message string) {
	c.writeJSON(w, statusCode, dto.ErrorResponse{
		TraceID:   traceID,
		Status:    statusCode,
		Code:      code,
		Message:   message,
		Timestamp: time.Now().UTC(),
	})
}

type validationErrorResponse struct {
	Error   string                       `json:"error"`
	Message string                       `json:"message"`
	Details []apperrors.ValidationDetail `json:"details"`
}

func (c *OrderController) writeValidationError(w http.ResponseWriter, message string, details ...apperrors.ValidationDetail) {
	c.writeJSON(w, http.StatusBadRequest, validationErrorResponse{
		Error:   "VALIDATION_ERROR",
		Message: message,
		Details: details,
	})
}

func (c *OrderController) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		c.logger.Error("failed to encode response", zap.Error(err))
	}
}
