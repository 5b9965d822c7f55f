// Package services – ProductService
//
// Read-only access to the product catalog used by the listing and detail
// pages.

package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/tbourn/go-recently-viewed/internal/domain"
	"github.com/tbourn/go-recently-viewed/internal/repo"
	"github.com/tbourn/go-recently-viewed/internal/utils"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ProductService serves catalog reads.
type ProductService struct {
	DB *gorm.DB
}

// List returns one page of products ordered by ID and the catalog size.
func (s *ProductService) List(ctx context.Context, page, pageSize int) ([]domain.Product, int64, error) {
	tr := otel.Tracer("services/ProductService")
	ctx, span := tr.Start(ctx, "List",
		trace.WithAttributes(
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := utils.PageOffset(page, pageSize)

	total, err := repo.CountProducts(ctx, s.DB)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Product{}, 0, nil
	}
	items, err := repo.ListProductsPage(ctx, s.DB, offset, pageSize)
	if err != nil {
		return nil, 0, err
	}
	if items == nil {
		items = []domain.Product{}
	}
	return items, total, nil
}

// Get returns a single product or ErrProductNotFound.
func (s *ProductService) Get(ctx context.Context, id string) (*domain.Product, error) {
	tr := otel.Tracer("services/ProductService")
	ctx, span := tr.Start(ctx, "Get", trace.WithAttributes(attribute.String("product.id", id)))
	defer span.End()

	p, err := repo.GetProduct(ctx, s.DB, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrProductNotFound
	}
	return p, err
}
