package service

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/dto"
	apperrors "storefront/internal/errors"
)

// ProductNotFound is the name reported for requested products that do not
// exist or are inactive.
const ProductNotFound = "product not found"

type TransactionManager interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

type ProductRepository interface {
	FindActiveByIDsForUpdate(ctx context.Context, tx *sql.Tx, ids []int64) ([]domain.Product, error)
	DecrementStock(ctx context.Context, tx *sql.Tx, productID int64, quantity int) error
}

type OrderRepository interface {
	Insert(ctx context.Context, tx *sql.Tx, order *domain.Order) (int64, error)
	FindByID(ctx context.Context, id int64) (*domain.Order, error)
}

type OrderItemRepository interface {
	Insert(ctx context.Context, tx *sql.Tx, item domain.OrderItem) (int64, error)
	FindByOrderID(ctx context.Context, orderID int64) ([]domain.OrderItem, error)
}

type OrderService struct {
	db            TransactionManager
	productRepo   ProductRepository
	orderRepo     OrderRepository
	orderItemRepo OrderItemRepository
	logger        *zap.Logger
	txTimeout     time.Duration
	now           func() time.Time
}

func NewOrderService(
	db TransactionManager,
	productRepo ProductRepository,
	orderRepo OrderRepository,
	orderItemRepo OrderItemRepository,
	logger *zap.Logger,
	txTimeout time.Duration,
) *OrderService {
	return &OrderService{
		db:            db,
		productRepo:   productRepo,
		orderRepo:     orderRepo,
		orderItemRepo: orderItemRepo,
		logger:        logger,
		txTimeout:     txTimeout,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// PlaceOrder checks and takes stock for every item and records the order in a
// single transaction. Items must have distinct product ids and be sorted by
// product id. When any item cannot be served nothing is written and a
// *errors.StockConflictError lists every offending item.
func (s *OrderService) PlaceOrder(ctx context.Context, items []dto.OrderItemRequest) (*domain.Order, error) {
	txCtx, cancel := context.WithTimeout(ctx, s.txTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(txCtx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead})
	if err != nil {
		s.logger.Error("failed to begin transaction", zap.Error(err))
		return nil, err
	}
	// Rollback is a no-op once committed.
	defer tx.Rollback()

	ids := make([]int64, len(items))
	for i, item := range items {
		ids[i] = item.ProductID
	}

	products, err := s.productRepo.FindActiveByIDsForUpdate(txCtx, tx, ids)
	if err != nil {
		s.logger.Error("failed to lock products", zap.Int64s("productIds", ids), zap.Error(err))
		return nil, err
	}

	byID := make(map[int64]domain.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	if conflicts := stockConflicts(items, byID); len(conflicts) > 0 {
		s.logger.Warn("transaction rolled back (insufficient stock)", zap.Int("conflictCount", len(conflicts)))
		return nil, apperrors.NewStockConflictError(conflicts)
	}

	orderItems := make([]domain.OrderItem, 0, len(items))
	for _, item := range items {
		if err := s.productRepo.DecrementStock(txCtx, tx, item.ProductID, item.Quantity); err != nil {
			s.logger.Error("failed to decrement stock", zap.Int64("productId", item.ProductID), zap.Error(err))
			return nil, err
		}
		orderItems = append(orderItems, domain.NewOrderItem(byID[item.ProductID], item.Quantity))
	}

	order := domain.NewOrder(s.now(), orderItems)

	orderID, err := s.orderRepo.Insert(txCtx, tx, order)
	if err != nil {
		s.logger.Error("failed to insert order", zap.Error(err))
		return nil, err
	}
	order.ID = orderID

	for i := range order.Items {
		order.Items[i].OrderID = orderID
		itemID, err := s.orderItemRepo.Insert(txCtx, tx, order.Items[i])
		if err != nil {
			s.logger.Error("failed to insert order item", zap.Int64("orderId", orderID), zap.Int64("productId", order.Items[i].ProductID), zap.Error(err))
			return nil, err
		}
		order.Items[i].ID = itemID
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("failed to commit transaction", zap.Int64("orderId", orderID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("transaction committed",
		zap.Int64("orderId", orderID),
		zap.Int("itemCount", len(order.Items)),
		zap.String("total", order.Total.StringFixed(domain.MoneyScale)),
	)

	return order, nil
}

func stockConflicts(items []dto.OrderItemRequest, byID map[int64]domain.Product) []dto.StockError {
	var conflicts []dto.StockError
	for _, item := range items {
		p, ok := byID[item.ProductID]
		if !ok {
			name := ProductNotFound
			conflicts = append(conflicts, dto.StockError{ProductID: item.ProductID, Available: 0, ProductName: &name})
			continue
		}
		if !p.CanFulfil(item.Quantity) {
			name := p.Name
			conflicts = append(conflicts, dto.StockError{ProductID: p.ID, Available: p.Stock, ProductName: &name})
		}
	}
	return conflicts
}

// GetOrder loads an order with its items.
func (s *OrderService) GetOrder(ctx context.Context, id int64) (*domain.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	items, err := s.orderItemRepo.FindByOrderID(ctx, id)
	if err != nil {
		return nil, err
	}
	order.Items = items

	return order, nil
}
