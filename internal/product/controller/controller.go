package controller

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"storefront/internal/dto"
	apperrors "storefront/internal/errors"
)

const (
	DefaultPage     = 0
	MaxPage         = math.MaxInt32
	DefaultSize     = 10
	MaxSize         = 100
	DefaultTopLimit = 3
	MaxTopLimit     = 50
)

type SearchUseCase interface {
	SearchProducts(ctx context.Context, q dto.ProductQuery) (*dto.ProductPage, error)
	TopSellers(ctx context.Context, limit int) ([]dto.ProductSales, error)
}

type Controller struct {
	useCase SearchUseCase
	logger  *zap.Logger
}

func NewController(useCase SearchUseCase, logger *zap.Logger) *Controller {
	return &Controller{
		useCase: useCase,
		logger:  logger,
	}
}

// HandleListProducts serves GET /products?search=&page=&size=.
func (c *Controller) HandleListProducts(w http.ResponseWriter, r *http.Request) {
	traceID := traceIDFrom(r)
	logger := c.logger.With(zap.String("traceId", traceID))

	q, err := parseProductQuery(r)
	if err != nil {
		ve, _ := apperrors.IsValidationError(err)
		c.writeValidationError(w, ve.Message, ve.Details...)
		return
	}

	page, err := c.useCase.SearchProducts(r.Context(), q)
	if err != nil {
		if ve, ok := apperrors.IsValidationError(err); ok {
			c.writeValidationError(w, ve.Message, ve.Details...)
			return
		}
		logger.Error("search products failed", zap.String("search", q.Search), zap.Int("page", q.Page), zap.Error(err))
		c.writeInternalError(w, traceID)
		return
	}

	logger.Debug("products listed", zap.String("search", q.Search), zap.Int("page", q.Page), zap.Int("count", len(page.Content)))
	c.writeJSON(w, http.StatusOK, page)
}

// HandleTopSellers serves GET /products/top-sellers?limit=.
func (c *Controller) HandleTopSellers(w http.ResponseWriter, r *http.Request) {
	traceID := traceIDFrom(r)

	limit, detail := intParam(r, "limit", DefaultTopLimit, 1, MaxTopLimit)
	if detail != nil {
		c.writeValidationError(w, "validation failed", *detail)
		return
	}

	sales, err := c.useCase.TopSellers(r.Context(), limit)
	if err != nil {
		c.logger.Error("top sellers failed", zap.String("traceId", traceID), zap.Error(err))
		c.writeInternalError(w, traceID)
		return
	}

	c.writeJSON(w, http.StatusOK, sales)
}

func parseProductQuery(r *http.Request) (dto.ProductQuery, error) {
	var details []apperrors.ValidationDetail

	page, detail := intParam(r, "page", DefaultPage, 0, MaxPage)
	if detail != nil {
		details = append(details, *detail)
	}

	size, detail := intParam(r, "size", DefaultSize, 1, MaxSize)
	if detail != nil {
		details = append(details, *detail)
	}

	if len(details) > 0 {
		return dto.ProductQuery{}, apperrors.NewValidationError("validation failed", details...)
	}

	return dto.ProductQuery{
		Search: r.URL.Query().Get("search"),
		Page:   page,
		Size:   size,
	}, nil
}

// intParam reads an optional integer query parameter. A negative hi means
// unbounded.
func intParam(r *http.Request, name string, def, lo, hi int) (int, *apperrors.ValidationDetail) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}

	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &apperrors.ValidationDetail{Field: name, Message: name + " must be an integer"}
	}

	if n < lo || (hi >= 0 && n > hi) {
		msg := name + " must be at least " + strconv.Itoa(lo)
		if hi >= 0 {
			msg = name + " must be between " + strconv.Itoa(lo) + " and " + strconv.Itoa(hi)
		}
		return 0, &apperrors.ValidationDetail{Field: name, Message: msg}
	}

	return n, nil
}

func traceIDFrom(r *http.Request) string {
	if id := r.Header.Get("X-Trace-Id"); id != "" {
		return id
	}
	return uuid.New().String()
}

type validationErrorResponse struct {
	Error   string                       `json:"error"`
	Message string                       `json:"message"`
	Details []apperrors.ValidationDetail `json:"details"`
}

func (c *Controller) writeValidationError(w http.ResponseWriter, message string, details ...apperrors.ValidationDetail) {
	c.writeJSON(w, http.StatusBadRequest, validationErrorResponse{
		Error:   "VALIDATION_ERROR",
		Message: message,
		Details: details,
	})
}

func (c *Controller) writeInternalError(w http.ResponseWriter, traceID string) {
	c.writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{
		TraceID:   traceID,
		Status:    http.StatusInternalServerError,
		Code:      "INTERNAL_ERROR",
		Message:   "an unexpected error occurred",
		Timestamp: time.Now().UTC(),
	})
}

func (c *Controller) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		c.logger.Error("failed to encode response", zap.Error(err))
	}
}
