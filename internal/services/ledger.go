// Package services – RecencyLedger
//
// RecencyLedger owns the per-user bounded recency list. Recording a view
// upserts the (user, product) record, evicts the oldest records beyond the
// bound and bumps the product's global counter, all in one transaction.

package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-recently-viewed/internal/domain"
	"github.com/tbourn/go-recently-viewed/internal/repo"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultRecencyBound is the number of distinct products kept per user.
const DefaultRecencyBound = 10

// RecencyLedger records views and enforces the per-user bound.
type RecencyLedger struct {
	DB         *gorm.DB
	Bound      int
	Aggregator *RankingAggregator

	// Now is the server clock; nil means time.Now.
	Now func() time.Time
}

func (l *RecencyLedger) bound() int {
	if l.Bound > 0 {
		return l.Bound
	}
	return DefaultRecencyBound
}

func (l *RecencyLedger) now() time.Time {
	if l.Now != nil {
		return l.Now().UTC()
	}
	return time.Now().UTC()
}

// RecordView records one view of productID by userID and returns the updated
// record with its Product populated. It fails with ErrProductNotFound when
// the product does not exist and ErrTransactionFailed when the store rejects
// the write; in both cases nothing is persisted.
func (l *RecencyLedger) RecordView(ctx context.Context, userID, productID string) (*domain.ViewRecord, error) {
	tr := otel.Tracer("services/RecencyLedger")
	ctx, span := tr.Start(ctx, "RecordView",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.String("product.id", productID),
		),
	)
	defer span.End()

	product, err := repo.GetProduct(ctx, l.DB, productID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrProductNotFound
		}
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("load product: %w", err)
	}

	at := l.now()
	var rec *domain.ViewRecord
	var evicted []string
	err = l.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repo.BumpViewRecord(ctx, tx, userID, productID, at); err != nil {
			return err
		}
		var err error
		if evicted, err = repo.TrimViewRecords(ctx, tx, userID, l.bound()); err != nil {
			return err
		}
		if l.Aggregator != nil {
			if err := l.Aggregator.IncrementView(ctx, tx, productID, at); err != nil {
				return err
			}
		}
		rec, err = repo.GetViewRecord(ctx, tx, userID, productID)
		return err
	})
	if err != nil {
		err = translateStoreError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(
		attribute.Int64("view.count", rec.ViewCount),
		attribute.Int("recency.evicted", len(evicted)),
	)
	rec.Product = *product
	return rec, nil
}
