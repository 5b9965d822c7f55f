// Package services – RankingAggregator
//
// RankingAggregator owns the global per-product view counters and the
// materialized top-N ranking. Counters are bumped inside the ledger's
// transaction; the ranking is rebuilt eagerly after every committed view and
// read cache-aside.

package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-recently-viewed/internal/cache"
	"github.com/tbourn/go-recently-viewed/internal/domain"
	"github.com/tbourn/go-recently-viewed/internal/repo"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const defaultTopN = 10

// RankingAggregator maintains ProductStat counters and the top-viewed list.
type RankingAggregator struct {
	DB    *gorm.DB
	Cache Cache
	TopN  int
	TTL   time.Duration
}

func (a *RankingAggregator) limit() int {
	if a.TopN > 0 {
		return a.TopN
	}
	return defaultTopN
}

// IncrementView adds one view to productID's global counter. tx must be the
// transaction that records the view so both commit or neither does.
func (a *RankingAggregator) IncrementView(ctx context.Context, tx *gorm.DB, productID string, at time.Time) error {
	return repo.IncrementProductStat(ctx, tx, productID, at)
}

// Refresh rebuilds the ranking from the durable counters and replaces the
// cached snapshot. When the rebuild fails the cached snapshot is dropped so
// the next read retries.
func (a *RankingAggregator) Refresh(ctx context.Context) ([]domain.TopProduct, error) {
	tr := otel.Tracer("services/RankingAggregator")
	ctx, span := tr.Start(ctx, "Refresh")
	defer span.End()

	c := cacheOrNone(a.Cache)
	top, err := a.rebuild(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		log.Ctx(ctx).Warn().Err(err).Msg("ranking refresh failed; invalidating cached ranking")
		c.Delete(ctx, cache.RankingKey())
		return nil, err
	}
	c.Set(ctx, cache.RankingKey(), top, a.TTL)
	return top, nil
}

// TopViewed returns the ranking, served from cache when present.
func (a *RankingAggregator) TopViewed(ctx context.Context) ([]domain.TopProduct, error) {
	tr := otel.Tracer("services/RankingAggregator")
	ctx, span := tr.Start(ctx, "TopViewed")
	defer span.End()

	c := cacheOrNone(a.Cache)
	var top []domain.TopProduct
	if c.Get(ctx, cache.RankingKey(), &top) {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		if top == nil {
			top = []domain.TopProduct{}
		}
		return top, nil
	}
	span.SetAttributes(attribute.Bool("cache.hit", false))

	top, err := a.rebuild(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	c.Set(ctx, cache.RankingKey(), top, a.TTL)
	return top, nil
}

// rebuild reads the top counters and joins each with current product data.
// Counters whose product no longer exists are skipped.
func (a *RankingAggregator) rebuild(ctx context.Context) ([]domain.TopProduct, error) {
	ctx, span := otel.Tracer("services/RankingAggregator").Start(ctx, "rebuild",
		trace.WithAttributes(attribute.Int("ranking.limit", a.limit())),
	)
	defer span.End()

	stats, err := repo.TopProductStats(ctx, a.DB, a.limit())
	if err != nil {
		return nil, translateStoreError(fmt.Errorf("top stats: %w", err))
	}
	ids := make([]string, 0, len(stats))
	for _, s := range stats {
		ids = append(ids, s.ProductID)
	}
	products, err := repo.GetProductsByIDs(ctx, a.DB, ids)
	if err != nil {
		return nil, translateStoreError(fmt.Errorf("ranked products: %w", err))
	}

	top := make([]domain.TopProduct, 0, len(stats))
	for _, s := range stats {
		p, ok := products[s.ProductID]
		if !ok {
			continue
		}
		top = append(top, domain.TopProduct{
			ProductID:      s.ProductID,
			ViewCount:      s.ViewCount,
			ProductDetails: p.Details(),
		})
	}
	return top, nil
}
