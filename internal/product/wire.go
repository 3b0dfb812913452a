package product

import (
	"database/sql"

	"go.uber.org/zap"

	"storefront/internal/product/controller"
	"storefront/internal/product/repository"
	"storefront/internal/product/service"
	"storefront/internal/product/usecase"
)

func NewModule(db *sql.DB, pageCache usecase.PageCache, logger *zap.Logger) *controller.Controller {
	repo := repository.NewMySQLRepository(db)
	svc := service.NewService(repo)
	uc := usecase.NewSearchUseCase(svc, pageCache, logger)
	return controller.NewController(uc, logger)
}
