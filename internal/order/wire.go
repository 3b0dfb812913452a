package order

import (
	"database/sql"

	"go.uber.org/zap"

	"storefront/internal/config"
	"storefront/internal/order/controller"
	orderrepo "storefront/internal/order/repository"
	"storefront/internal/order/service"
	"storefront/internal/order/usecase"
	productrepo "storefront/internal/product/repository"
)

func NewModule(db *sql.DB, cfg *config.Config, catalog usecase.CatalogInvalidator, logger *zap.Logger) *controller.OrderController {
	orderRepo := orderrepo.NewMySQLOrderRepository(db)
	orderItemRepo := orderrepo.NewMySQLOrderItemRepository(db)
	productRepo := productrepo.NewMySQLRepository(db)

	orderSvc := service.NewOrderService(
		db,
		productRepo,
		orderRepo,
		orderItemRepo,
		logger,
		cfg.Order.TxTimeout,
	)

	uc := usecase.NewPlaceOrderUseCase(
		orderSvc,
		catalog,
		logger,
		cfg.Order.MaxRetryAttempts,
	)

	return controller.NewOrderController(uc, logger)
}
