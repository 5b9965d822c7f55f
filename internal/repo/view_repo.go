// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for ViewRecord,
// the per-(user, product) view history that backs each user's recency list.
//
// Ordering: recency lists are ordered by last_viewed_at descending with
// product_id ascending as a deterministic tie-break.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-recently-viewed/internal/domain"
)

const recencyOrder = "last_viewed_at desc, product_id asc"

// BumpViewRecord records one view of productID by userID at the given time.
// The first view inserts a row with view_count=1; later views increment the
// counter and move last_viewed_at forward in the same statement, so
// concurrent bumps of the same pair never lose an update.
func BumpViewRecord(ctx context.Context, db *gorm.DB, userID, productID string, at time.Time) error {
	rec := domain.ViewRecord{
		UserID:       userID,
		ProductID:    productID,
		ViewCount:    1,
		LastViewedAt: at,
	}
	return db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "product_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"view_count":     gorm.Expr("view_records.view_count + 1"),
				"last_viewed_at": at,
			}),
		}).
		Create(&rec).Error
}

// GetViewRecord fetches the record for a (user, product) pair, or ErrNotFound.
func GetViewRecord(ctx context.Context, db *gorm.DB, userID, productID string) (*domain.ViewRecord, error) {
	var rec domain.ViewRecord
	err := db.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		First(&rec).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListRecentViews returns the user's view records, most recent first.
// A limit <= 0 returns every record.
func ListRecentViews(ctx context.Context, db *gorm.DB, userID string, limit int) ([]domain.ViewRecord, error) {
	q := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order(recencyOrder)
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []domain.ViewRecord
	err := q.Find(&out).Error
	return out, err
}

// CountViewRecords returns how many distinct products the user has viewed
// and still retains.
func CountViewRecords(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.ViewRecord{}).
		Where("user_id = ?", userID).
		Count(&total).Error
	return total, err
}

// TrimViewRecords deletes every record of userID beyond the first keep
// entries in recency order and returns the evicted product IDs.
func TrimViewRecords(ctx context.Context, db *gorm.DB, userID string, keep int) ([]string, error) {
	all, err := ListRecentViews(ctx, db, userID, 0)
	if err != nil {
		return nil, err
	}
	if len(all) <= keep {
		return nil, nil
	}
	evicted := make([]string, 0, len(all)-keep)
	for _, rec := range all[keep:] {
		evicted = append(evicted, rec.ProductID)
	}
	err = db.WithContext(ctx).
		Where("user_id = ? AND product_id IN ?", userID, evicted).
		Delete(&domain.ViewRecord{}).Error
	if err != nil {
		return nil, err
	}
	return evicted, nil
}
