package service

import (
	"context"
	"math"

	"storefront/internal/domain"
	"storefront/internal/dto"
	apperrors "storefront/internal/errors"
)

type Repository interface {
	Search(ctx context.Context, search string, offset, limit int) ([]domain.Product, int64, error)
	FindTopSellers(ctx context.Context, limit int) ([]domain.ProductSales, error)
}

type ProductService struct {
	repo Repository
}

func NewService(repo Repository) *ProductService {
	return &ProductService{repo: repo}
}

// SearchProducts returns page (zero-based) of the active products matching search.
func (s *ProductService) SearchProducts(ctx context.Context, search string, page, size int) (*dto.ProductPage, error) {
	if page < 0 || size < 1 || page > math.MaxInt/size {
		return nil, apperrors.NewValidationError("validation failed", apperrors.ValidationDetail{
			Field:   "page",
			Message: "page is out of range",
		})
	}

	found, total, err := s.repo.Search(ctx, search, page*size, size)
	if err != nil {
		return nil, err
	}

	content := make([]dto.Product, 0, len(found))
	for _, p := range found {
		content = append(content, p.ToDTO())
	}

	totalPages := int((total + int64(size) - 1) / int64(size))

	return &dto.ProductPage{
		Content:       content,
		Page:          page,
		Size:          size,
		TotalElements: total,
		TotalPages:    totalPages,
		First:         page == 0,
		Last:          page+1 >= totalPages,
	}, nil
}

func (s *ProductService) TopSellers(ctx context.Context, limit int) ([]dto.ProductSales, error) {
	found, err := s.repo.FindTopSellers(ctx, limit)
	if err != nil {
		return nil, err
	}

	sales := make([]dto.ProductSales, 0, len(found))
	for _, ps := range found {
		sales = append(sales, ps.ToDTO())
	}
	return sales, nil
}
