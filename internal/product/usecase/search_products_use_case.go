package usecase

import (
	"context"

	"go.uber.org/zap"

	"storefront/internal/dto"
)

type Service interface {
	SearchProducts(ctx context.Context, search string, page, size int) (*dto.ProductPage, error)
	TopSellers(ctx context.Context, limit int) ([]dto.ProductSales, error)
}

// PageCache stores rendered catalog pages. An empty key disables caching for
// the request.
type PageCache interface {
	Key(ctx context.Context, search string, page, size int) (string, error)
	Get(ctx context.Context, key string) (*dto.ProductPage, error)
	Set(ctx context.Context, key string, page *dto.ProductPage) error
}

type SearchUseCase struct {
	service Service
	cache   PageCache
	logger  *zap.Logger
}

func NewSearchUseCase(service Service, cache PageCache, logger *zap.Logger) *SearchUseCase {
	return &SearchUseCase{service: service, cache: cache, logger: logger}
}

// SearchProducts serves a catalog page, from the cache when possible. Cache
// failures degrade to a database read.
func (uc *SearchUseCase) SearchProducts(ctx context.Context, q dto.ProductQuery) (*dto.ProductPage, error) {
	key, err := uc.cache.Key(ctx, q.Search, q.Page, q.Size)
	if err != nil {
		uc.logger.Warn("catalog cache unavailable", zap.Error(err))
		key = ""
	}

	if key != "" {
		cached, err := uc.cache.Get(ctx, key)
		if err != nil {
			uc.logger.Warn("reading catalog cache failed", zap.String("key", key), zap.Error(err))
		}
		if cached != nil {
			uc.logger.Debug("catalog cache hit", zap.String("key", key))
			return cached, nil
		}
	}

	page, err := uc.service.SearchProducts(ctx, q.Search, q.Page, q.Size)
	if err != nil {
		return nil, err
	}

	if key != "" {
		if err := uc.cache.Set(ctx, key, page); err != nil {
			uc.logger.Warn("writing catalog cache failed", zap.String("key", key), zap.Error(err))
		}
	}

	return page, nil
}

func (uc *SearchUseCase) TopSellers(ctx context.Context, limit int) ([]dto.ProductSales, error) {
	return uc.service.TopSellers(ctx, limit)
}
