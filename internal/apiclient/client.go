// Package apiclient talks to the catalog/order REST API.
package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"storefront/internal/dto"
	apperrors "storefront/internal/errors"
)

const TraceHeader = "X-Trace-Id"

// StatusError is a non-2xx answer the client has no structured reading for.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d", e.Op, e.StatusCode)
}

type Client struct {
	http   *resty.Client
	logger *zap.Logger
}

func New(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout).
			SetRetryCount(0).
			SetHeader("Accept", "application/json"),
		logger: logger,
	}
}

func (c *Client) FetchProducts(ctx context.Context, search string, page, size int) (*dto.ProductPage, error) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader(TraceHeader, traceID).
		SetQueryParams(map[string]string{
			"search": search,
			"page":   strconv.Itoa(page),
			"size":   strconv.Itoa(size),
		}).
		Get("/products")
	if err != nil {
		return nil, fmt.Errorf("fetching products: %w", err)
	}

	logger.Debug("products fetched",
		zap.String("search", search), zap.Int("page", page), zap.Int("status", resp.StatusCode()),
		zap.Duration("elapsed", resp.Time()))

	if !resp.IsSuccess() {
		return nil, &StatusError{Op: "fetching products", StatusCode: resp.StatusCode(), Body: resp.String()}
	}

	var result dto.ProductPage
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, fmt.Errorf("decoding product page: %w", err)
	}
	return &result, nil
}

func (c *Client) PlaceOrder(ctx context.Context, req dto.OrderRequest) (*dto.OrderResponse, error) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader(TraceHeader, traceID).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		Post("/orders")
	if err != nil {
		return nil, fmt.Errorf("placing order: %w", err)
	}

	logger.Debug("order submitted",
		zap.Int("items", len(req.Items)), zap.Int("status", resp.StatusCode()),
		zap.Duration("elapsed", resp.Time()))

	if resp.StatusCode() == http.StatusConflict {
		var conflicts []dto.StockError
		if err := json.Unmarshal(resp.Body(), &conflicts); err != nil {
			return nil, fmt.Errorf("decoding stock conflicts: %w", err)
		}
		return nil, apperrors.NewStockConflictError(conflicts)
	}

	if !resp.IsSuccess() {
		return nil, &StatusError{Op: "placing order", StatusCode: resp.StatusCode(), Body: resp.String()}
	}

	var order dto.OrderResponse
	if err := json.Unmarshal(resp.Body(), &order); err != nil {
		return nil, fmt.Errorf("decoding order: %w", err)
	}
	return &order, nil
}
