package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/dto"
	apperrors "storefront/internal/errors"
)

// Mock implementations
type mockProductRepository struct {
	decremented                  map[int64]int
	FindActiveByIDsForUpdateFunc func(ctx context.Context, tx *sql.Tx, ids []int64) ([]domain.Product, error)
	DecrementStockFunc           func(ctx context.Context, tx *sql.Tx, productID int64, quantity int) error
}

func (m *mockProductRepository) FindActiveByIDsForUpdate(ctx context.Context, tx *sql.Tx, ids []int64) ([]domain.Product, error) {
	return m.FindActiveByIDsForUpdateFunc(ctx, tx, ids)
}

func (m *mockProductRepository) DecrementStock(ctx context.Context, tx *sql.Tx, productID int64, quantity int) error {
	if m.decremented == nil {
		m.decremented = map[int64]int{}
	}
	m.decremented[productID] += quantity
	if m.DecrementStockFunc != nil {
		return m.DecrementStockFunc(ctx, tx, productID, quantity)
	}
	return nil
}

type mockOrderRepository struct {
	inserted     *domain.Order
	InsertFunc   func(ctx context.Context, tx *sql.Tx, order *domain.Order) (int64, error)
	FindByIDFunc func(ctx context.Context, id int64) (*domain.Order, error)
}

func (m *mockOrderRepository) Insert(ctx context.Context, tx *sql.Tx, order *domain.Order) (int64, error) {
	m.inserted = order
	return m.InsertFunc(ctx, tx, order)
}

func (m *mockOrderRepository) FindByID(ctx context.Context, id int64) (*domain.Order, error) {
	return m.FindByIDFunc(ctx, id)
}

type mockOrderItemRepository struct {
	inserted          []domain.OrderItem
	InsertFunc        func(ctx context.Context, tx *sql.Tx, item domain.OrderItem) (int64, error)
	FindByOrderIDFunc func(ctx context.Context, orderID int64) ([]domain.OrderItem, error)
}

func (m *mockOrderItemRepository) Insert(ctx context.Context, tx *sql.Tx, item domain.OrderItem) (int64, error) {
	m.inserted = append(m.inserted, item)
	if m.InsertFunc != nil {
		return m.InsertFunc(ctx, tx, item)
	}
	return int64(len(m.inserted)), nil
}

func (m *mockOrderItemRepository) FindByOrderID(ctx context.Context, orderID int64) ([]domain.OrderItem, error) {
	return m.FindByOrderIDFunc(ctx, orderID)
}

type fixture struct {
	db        *sql.DB
	mock      sqlmock.Sqlmock
	products  *mockProductRepository
	orders    *mockOrderRepository
	items     *mockOrderItemRepository
	createdAt time.Time
}

func newFixture(t *testing.T, catalog ...domain.Product) *fixture {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return &fixture{
		db:   db,
		mock: mock,
		products: &mockProductRepository{
			FindActiveByIDsForUpdateFunc: func(ctx context.Context, tx *sql.Tx, ids []int64) ([]domain.Product, error) {
				var found []domain.Product
				for _, id := range ids {
					for _, p := range catalog {
						if p.ID == id && p.Active {
							found = append(found, p)
						}
					}
				}
				return found, nil
			},
		},
		orders: &mockOrderRepository{
			InsertFunc: func(ctx context.Context, tx *sql.Tx, order *domain.Order) (int64, error) {
				return 42, nil
			},
		},
		items:     &mockOrderItemRepository{},
		createdAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (f *fixture) service() *OrderService {
	svc := NewOrderService(f.db, f.products, f.orders, f.items, zap.NewNop(), 5*time.Second)
	svc.now = func() time.Time { return f.createdAt }
	return svc
}

func product(id int64, name, price string, stock int) domain.Product {
	return domain.Product{ID: id, Name: name, Price: decimal.RequireFromString(price), Stock: stock, Active: true}
}

// Tests

func TestPlaceOrder_Success(t *testing.T) {
	f := newFixture(t, product(5, "Widget", "10.50", 3), product(7, "Gadget", "2.25", 10))
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	order, err := f.service().PlaceOrder(context.Background(), []dto.OrderItemRequest{
		{ProductID: 5, Quantity: 2},
		{ProductID: 7, Quantity: 3},
	})

	require.NoError(t, err)
	assert.Equal(t, int64(42), order.ID)
	assert.Equal(t, f.createdAt, order.CreatedAt)
	assert.Equal(t, "27.75", order.Total.StringFixed(2))
	require.Len(t, order.Items, 2)
	assert.Equal(t, "Widget", order.Items[0].ProductName)
	assert.Equal(t, "21.00", order.Items[0].LineTotal.StringFixed(2))
	assert.Equal(t, int64(1), order.Items[0].ID)

	assert.Equal(t, map[int64]int{5: 2, 7: 3}, f.products.decremented)
	require.Len(t, f.items.inserted, 2)
	for _, item := range f.items.inserted {
		assert.Equal(t, int64(42), item.OrderID)
	}
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestPlaceOrder_StockConflictWritesNothing(t *testing.T) {
	f := newFixture(t, product(5, "Widget", "10.50", 1), product(7, "Gadget", "2.25", 10))
	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	order, err := f.service().PlaceOrder(context.Background(), []dto.OrderItemRequest{
		{ProductID: 5, Quantity: 2},
		{ProductID: 7, Quantity: 1},
		{ProductID: 9, Quantity: 1},
	})

	assert.Nil(t, order)
	se, ok := apperrors.IsStockConflictError(err)
	require.True(t, ok)
	require.Len(t, se.Conflicts, 2)

	assert.Equal(t, int64(5), se.Conflicts[0].ProductID)
	assert.Equal(t, 1, se.Conflicts[0].Available)
	assert.Equal(t, "Widget", *se.Conflicts[0].ProductName)

	assert.Equal(t, int64(9), se.Conflicts[1].ProductID)
	assert.Equal(t, 0, se.Conflicts[1].Available)
	assert.Equal(t, ProductNotFound, *se.Conflicts[1].ProductName)

	assert.Empty(t, f.products.decremented)
	assert.Nil(t, f.orders.inserted)
	assert.Empty(t, f.items.inserted)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestPlaceOrder_InactiveProductIsNotFound(t *testing.T) {
	inactive := product(5, "Widget", "10.50", 3)
	inactive.Active = false
	f := newFixture(t, inactive)
	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	_, err := f.service().PlaceOrder(context.Background(), []dto.OrderItemRequest{{ProductID: 5, Quantity: 1}})

	se, ok := apperrors.IsStockConflictError(err)
	require.True(t, ok)
	assert.Equal(t, ProductNotFound, *se.Conflicts[0].ProductName)
}

func TestPlaceOrder_BeginError(t *testing.T) {
	f := newFixture(t)
	f.mock.ExpectBegin().WillReturnError(errors.New("too many connections"))

	_, err := f.service().PlaceOrder(context.Background(), []dto.OrderItemRequest{{ProductID: 5, Quantity: 1}})

	assert.EqualError(t, err, "too many connections")
}

func TestPlaceOrder_LockError(t *testing.T) {
	f := newFixture(t)
	f.products.FindActiveByIDsForUpdateFunc = func(ctx context.Context, tx *sql.Tx, ids []int64) ([]domain.Product, error) {
		return nil, errors.New("lock wait timeout")
	}
	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	_, err := f.service().PlaceOrder(context.Background(), []dto.OrderItemRequest{{ProductID: 5, Quantity: 1}})

	assert.EqualError(t, err, "lock wait timeout")
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestPlaceOrder_DecrementErrorRollsBack(t *testing.T) {
	f := newFixture(t, product(5, "Widget", "10.50", 3))
	f.products.DecrementStockFunc = func(ctx context.Context, tx *sql.Tx, productID int64, quantity int) error {
		return apperrors.NewConflictError("stock changed")
	}
	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	_, err := f.service().PlaceOrder(context.Background(), []dto.OrderItemRequest{{ProductID: 5, Quantity: 1}})

	_, ok := apperrors.IsConflictError(err)
	assert.True(t, ok)
	assert.Nil(t, f.orders.inserted)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestPlaceOrder_ItemInsertErrorRollsBack(t *testing.T) {
	f := newFixture(t, product(5, "Widget", "10.50", 3))
	f.items.InsertFunc = func(ctx context.Context, tx *sql.Tx, item domain.OrderItem) (int64, error) {
		return 0, errors.New("fk violation")
	}
	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	_, err := f.service().PlaceOrder(context.Background(), []dto.OrderItemRequest{{ProductID: 5, Quantity: 1}})

	assert.EqualError(t, err, "fk violation")
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestPlaceOrder_CommitError(t *testing.T) {
	f := newFixture(t, product(5, "Widget", "10.50", 3))
	f.mock.ExpectBegin()
	f.mock.ExpectCommit().WillReturnError(errors.New("connection reset"))

	order, err := f.service().PlaceOrder(context.Background(), []dto.OrderItemRequest{{ProductID: 5, Quantity: 1}})

	assert.Nil(t, order)
	assert.EqualError(t, err, "connection reset")
}

func TestStockConflicts_ReportsEveryOffendingItem(t *testing.T) {
	byID := map[int64]domain.Product{
		1: product(1, "A", "1.00", 0),
		2: product(2, "B", "1.00", 5),
		3: product(3, "C", "1.00", 4),
	}

	conflicts := stockConflicts([]dto.OrderItemRequest{
		{ProductID: 1, Quantity: 1},
		{ProductID: 2, Quantity: 5},
		{ProductID: 3, Quantity: 5},
		{ProductID: 4, Quantity: 1},
	}, byID)

	require.Len(t, conflicts, 3)
	assert.Equal(t, []int64{1, 3, 4}, []int64{conflicts[0].ProductID, conflicts[1].ProductID, conflicts[2].ProductID})
	assert.Equal(t, []int{0, 4, 0}, []int{conflicts[0].Available, conflicts[1].Available, conflicts[2].Available})
}

func TestGetOrder(t *testing.T) {
	f := newFixture(t)
	f.orders.FindByIDFunc = func(ctx context.Context, id int64) (*domain.Order, error) {
		return &domain.Order{ID: id, Total: decimal.RequireFromString("21.00")}, nil
	}
	f.items.FindByOrderIDFunc = func(ctx context.Context, orderID int64) ([]domain.OrderItem, error) {
		return []domain.OrderItem{domain.NewOrderItem(product(5, "Widget", "10.50", 3), 2)}, nil
	}

	order, err := f.service().GetOrder(context.Background(), 42)

	require.NoError(t, err)
	assert.Equal(t, int64(42), order.ID)
	assert.Len(t, order.Items, 1)
}

func TestGetOrder_NotFound(t *testing.T) {
	f := newFixture(t)
	f.orders.FindByIDFunc = func(ctx context.Context, id int64) (*domain.Order, error) {
		return nil, apperrors.NewNotFoundError("order with id 42 not found")
	}

	_, err := f.service().GetOrder(context.Background(), 42)

	_, ok := apperrors.IsNotFoundError(err)
	assert.True(t, ok)
}
