// Package services – RecentlyViewedService
//
// This file implements the read and write paths around the ledger and the
// ranking:
//
//   - GetRecentlyViewed is cache-aside over recency:{userId}. A miss (or an
//     unreachable cache) rebuilds the list from the store and repopulates it.
//   - AddRecentlyViewed authorizes the caller, records the view, invalidates
//     recency:{userId}, refreshes ranking:top and, when the pair's view count
//     reaches the threshold, dispatches a notification in the background.
//
// Observability: public methods are OpenTelemetry-instrumented with user and
// product identifiers.

package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-recently-viewed/internal/cache"
	"github.com/tbourn/go-recently-viewed/internal/domain"
	"github.com/tbourn/go-recently-viewed/internal/notify"
	"github.com/tbourn/go-recently-viewed/internal/repo"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// RecentlyViewedService coordinates the recency read path and the view write
// path.
type RecentlyViewedService struct {
	DB      *gorm.DB
	Cache   Cache
	TTL     time.Duration
	Ledger  *RecencyLedger
	Ranking *RankingAggregator

	// Optional notification on repeated views. A threshold <= 0 disables it.
	Notifier        Dispatcher
	NotifyThreshold int64
}

// authorize enforces that callers only touch their own history.
func authorize(caller Caller, userID string) error {
	if strings.TrimSpace(caller.ID) == "" {
		return ErrUnauthorized
	}
	if caller.ID != userID {
		return ErrForbidden
	}
	return nil
}

// GetRecentlyViewed returns userID's recency list, most recent first.
func (s *RecentlyViewedService) GetRecentlyViewed(ctx context.Context, caller Caller, userID string) ([]domain.ViewEntry, error) {
	tr := otel.Tracer("services/RecentlyViewedService")
	ctx, span := tr.Start(ctx, "GetRecentlyViewed",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer span.End()

	if err := authorize(caller, userID); err != nil {
		return nil, err
	}

	c := cacheOrNone(s.Cache)
	key := cache.RecencyKey(userID)

	var entries []domain.ViewEntry
	if c.Get(ctx, key, &entries) {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		if entries == nil {
			entries = []domain.ViewEntry{}
		}
		return entries, nil
	}
	span.SetAttributes(attribute.Bool("cache.hit", false))

	entries, err := s.loadRecency(ctx, userID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	c.Set(ctx, key, entries, s.TTL)
	return entries, nil
}

// loadRecency reads the committed recency list and joins product details.
func (s *RecentlyViewedService) loadRecency(ctx context.Context, userID string) ([]domain.ViewEntry, error) {
	bound := DefaultRecencyBound
	if s.Ledger != nil {
		bound = s.Ledger.bound()
	}
	recs, err := repo.ListRecentViews(ctx, s.DB, userID, bound)
	if err != nil {
		return nil, fmt.Errorf("list recent views: %w", err)
	}
	ids := make([]string, 0, len(recs))
	for _, r := range recs {
		ids = append(ids, r.ProductID)
	}
	products, err := repo.GetProductsByIDs(ctx, s.DB, ids)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}

	entries := make([]domain.ViewEntry, 0, len(recs))
	for _, r := range recs {
		p, ok := products[r.ProductID]
		if !ok {
			continue
		}
		entries = append(entries, domain.ViewEntry{
			ProductID:      r.ProductID,
			ViewCount:      r.ViewCount,
			Timestamp:      r.LastViewedAt.UTC(),
			ProductDetails: p.Details(),
		})
	}
	return entries, nil
}

// AddRecentlyViewed records a view of productID by userID. Each call is a
// distinct view event and increments the counters.
func (s *RecentlyViewedService) AddRecentlyViewed(ctx context.Context, caller Caller, userID, productID string) (*domain.ViewRecord, error) {
	tr := otel.Tracer("services/RecentlyViewedService")
	ctx, span := tr.Start(ctx, "AddRecentlyViewed",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.String("product.id", productID),
		),
	)
	defer span.End()

	if err := authorize(caller, userID); err != nil {
		return nil, err
	}
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return nil, ErrProductIDRequired
	}

	rec, err := s.Ledger.RecordView(ctx, userID, productID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	cacheOrNone(s.Cache).Delete(ctx, cache.RecencyKey(userID))
	if s.Ranking != nil {
		// Refresh logs and invalidates on failure; the view is already committed.
		_, _ = s.Ranking.Refresh(ctx)
	}

	s.maybeNotify(ctx, caller, rec)
	return rec, nil
}

func (s *RecentlyViewedService) maybeNotify(ctx context.Context, caller Caller, rec *domain.ViewRecord) {
	if s.Notifier == nil || s.NotifyThreshold <= 0 || rec.ViewCount != s.NotifyThreshold {
		return
	}
	if caller.Email == "" {
		log.Ctx(ctx).Debug().Str("user_id", rec.UserID).Msg("notification skipped: caller has no email")
		return
	}
	s.Notifier.Dispatch(notify.Notification{
		Email:       caller.Email,
		UserID:      rec.UserID,
		ProductID:   rec.ProductID,
		ProductName: rec.Product.Name,
		Price:       rec.Product.Price,
		ViewCount:   rec.ViewCount,
		Timestamp:   rec.LastViewedAt,
	})
}

// ClearUserCache drops userID's cached recency list. The next read rebuilds
// it from the store.
func (s *RecentlyViewedService) ClearUserCache(ctx context.Context, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return ErrInvalidInput
	}
	cacheOrNone(s.Cache).Delete(ctx, cache.RecencyKey(userID))
	return nil
}

// TopViewed returns the global top-viewed ranking.
func (s *RecentlyViewedService) TopViewed(ctx context.Context) ([]domain.TopProduct, error) {
	return s.Ranking.TopViewed(ctx)
}
