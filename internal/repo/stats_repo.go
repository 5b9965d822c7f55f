// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the aggregate per-product view counters
// used to build the global top-viewed ranking, plus small recency statistics
// used for conditional responses (ETag generation) in the HTTP layer.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-recently-viewed/internal/domain"
)

// IncrementProductStat atomically adds one view to productID's global
// counter, creating the row on the product's first view.
func IncrementProductStat(ctx context.Context, db *gorm.DB, productID string, at time.Time) error {
	stat := domain.ProductStat{
		ProductID:    productID,
		ViewCount:    1,
		LastViewedAt: at,
	}
	return db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "product_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"view_count":     gorm.Expr("product_stats.view_count + 1"),
				"last_viewed_at": at,
			}),
		}).
		Create(&stat).Error
}

// GetProductStat fetches the aggregate counter of a product, or ErrNotFound.
func GetProductStat(ctx context.Context, db *gorm.DB, productID string) (*domain.ProductStat, error) {
	var stat domain.ProductStat
	if err := db.WithContext(ctx).Where("product_id = ?", productID).First(&stat).Error; err != nil {
		return nil, err
	}
	return &stat, nil
}

// TopProductStats returns up to limit counters ordered by view_count
// descending. Ties go to the most recently viewed product, then product ID.
func TopProductStats(ctx context.Context, db *gorm.DB, limit int) ([]domain.ProductStat, error) {
	var out []domain.ProductStat
	err := db.WithContext(ctx).
		Order("view_count desc, last_viewed_at desc, product_id asc").
		Limit(limit).
		Find(&out).Error
	return out, err
}
