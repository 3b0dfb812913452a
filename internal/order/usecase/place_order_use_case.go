package usecase

import (
	"context"
	"errors"
	"math/rand"
	"slices"
	"time"

	"github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/dto"
	apperrors "storefront/internal/errors"
	"storefront/internal/metrics"
)

const (
	mysqlErrDeadlock        = 1213
	mysqlErrLockWaitTimeout = 1205
	retryBackoffStep        = 100 * time.Millisecond
)

type OrderService interface {
	PlaceOrder(ctx context.Context, items []dto.OrderItemRequest) (*domain.Order, error)
	GetOrder(ctx context.Context, id int64) (*domain.Order, error)
}

// CatalogInvalidator drops cached catalog pages once stock has changed.
type CatalogInvalidator interface {
	Invalidate(ctx context.Context) error
}

type PlaceOrderUseCase struct {
	orderSvc         OrderService
	catalog          CatalogInvalidator
	logger           *zap.Logger
	maxRetryAttempts int
	sleep            func(ctx context.Context, d time.Duration) error
}

func NewPlaceOrderUseCase(
	orderSvc OrderService,
	catalog CatalogInvalidator,
	logger *zap.Logger,
	maxRetryAttempts int,
) *PlaceOrderUseCase {
	if maxRetryAttempts < 1 {
		maxRetryAttempts = 1
	}
	return &PlaceOrderUseCase{
		orderSvc:         orderSvc,
		catalog:          catalog,
		logger:           logger,
		maxRetryAttempts: maxRetryAttempts,
		sleep:            sleepContext,
	}
}

func (uc *PlaceOrderUseCase) PlaceOrder(ctx context.Context, req dto.OrderRequest) (*dto.OrderResponse, error) {
	uc.logger.Info("place order started", zap.Int("itemCount", len(req.Items)))

	// Lock rows in ascending id order so concurrent orders cannot deadlock on each other.
	items := slices.Clone(req.Items)
	slices.SortFunc(items, func(a, b dto.OrderItemRequest) int {
		switch {
		case a.ProductID < b.ProductID:
			return -1
		case a.ProductID > b.ProductID:
			return 1
		}
		return 0
	})

	order, err := uc.placeOrderWithRetry(ctx, items)
	if err != nil {
		if se, ok := apperrors.IsStockConflictError(err); ok {
			metrics.OrdersTotal.WithLabelValues(metrics.OrderStatusStockConflict).Inc()
			metrics.StockConflictsTotal.Add(float64(len(se.Conflicts)))
			return nil, err
		}
		metrics.OrdersTotal.WithLabelValues(metrics.OrderStatusFailed).Inc()
		return nil, err
	}

	metrics.OrdersTotal.WithLabelValues(metrics.OrderStatusPlaced).Inc()

	if err := uc.catalog.Invalidate(ctx); err != nil {
		uc.logger.Warn("catalog cache invalidation failed", zap.Int64("orderId", order.ID), zap.Error(err))
	}

	resp := order.ToDTO()
	return &resp, nil
}

func (uc *PlaceOrderUseCase) placeOrderWithRetry(ctx context.Context, items []dto.OrderItemRequest) (*domain.Order, error) {
	for attempt := 1; attempt <= uc.maxRetryAttempts; attempt++ {
		order, err := uc.orderSvc.PlaceOrder(ctx, items)
		if err == nil {
			return order, nil
		}

		if !isDeadlockError(err) {
			return nil, err
		}

		if attempt == uc.maxRetryAttempts {
			break
		}

		metrics.DeadlockRetriesTotal.Inc()
		uc.logger.Warn("deadlock detected, retrying", zap.Int("attempt", attempt), zap.Int("maxAttempts", uc.maxRetryAttempts), zap.Error(err))
		if err := uc.sleep(ctx, backoff(attempt)); err != nil {
			return nil, err
		}
	}

	return nil, apperrors.NewDeadlockError("max retries exceeded")
}

func (uc *PlaceOrderUseCase) GetOrder(ctx context.Context, id int64) (*dto.OrderResponse, error) {
	order, err := uc.orderSvc.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := order.ToDTO()
	return &resp, nil
}

// backoff grows linearly with the attempt number, with ±20% jitter.
func backoff(attempt int) time.Duration {
	base := time.Duration(attempt) * retryBackoffStep
	jitter := 0.8 + rand.Float64()*0.4
	return time.Duration(float64(base) * jitter)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func isDeadlockError(err error) bool {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == mysqlErrDeadlock || mysqlErr.Number == mysqlErrLockWaitTimeout
	}
	return false
}
