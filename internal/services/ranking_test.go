package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tbourn/go-recently-viewed/internal/cache"
	"github.com/tbourn/go-recently-viewed/internal/domain"
	"github.com/tbourn/go-recently-viewed/internal/repo"
)

func TestRankingAggregator_TopViewed_CacheAside(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for pid, n := range map[string]int{"product1": 1, "product2": 4, "product3": 2} {
		for i := 0; i < n; i++ {
			if err := repo.IncrementProductStat(ctx, f.db, pid, at); err != nil {
				t.Fatalf("increment: %v", err)
			}
		}
	}

	top, err := f.ranking.TopViewed(ctx) // miss → rebuild → populate
	if err != nil {
		t.Fatalf("TopViewed: %v", err)
	}
	if len(top) != 3 || top[0].ProductID != "product2" || top[1].ProductID != "product3" || top[2].ProductID != "product1" {
		t.Fatalf("unexpected ranking: %#v", top)
	}
	if top[0].ViewCount != 4 || top[0].Name != "Smart Watch" {
		t.Fatalf("ranking not joined with product data: %#v", top[0])
	}

	// A counter change is invisible until the next refresh: reads are cached.
	_ = repo.IncrementProductStat(ctx, f.db, "product1", at)
	_ = repo.IncrementProductStat(ctx, f.db, "product1", at)
	_ = repo.IncrementProductStat(ctx, f.db, "product1", at)
	_ = repo.IncrementProductStat(ctx, f.db, "product1", at)
	cached, _ := f.ranking.TopViewed(ctx)
	if cached[0].ProductID != "product2" {
		t.Fatalf("expected cached ranking, got %#v", cached)
	}

	fresh, err := f.ranking.Refresh(ctx)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if fresh[0].ProductID != "product1" || fresh[0].ViewCount != 5 {
		t.Fatalf("refresh did not rebuild: %#v", fresh)
	}
	again, _ := f.ranking.TopViewed(ctx)
	if again[0].ProductID != "product1" {
		t.Fatalf("refresh must replace the cached snapshot")
	}
}

func TestRankingAggregator_LimitAndEmpty(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	empty, err := f.ranking.TopViewed(ctx)
	if err != nil || empty == nil || len(empty) != 0 {
		t.Fatalf("empty ranking must be []: %#v err=%v", empty, err)
	}

	f.ranking.TopN = 2
	f.cache.Delete(ctx, cache.RankingKey())
	at := time.Now().UTC()
	for _, pid := range []string{"product1", "product2", "product3"} {
		_ = repo.IncrementProductStat(ctx, f.db, pid, at)
	}
	top, err := f.ranking.Refresh(ctx)
	if err != nil || len(top) != 2 {
		t.Fatalf("limit not applied: %#v err=%v", top, err)
	}
}

func TestRankingAggregator_RefreshFailureInvalidates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.cache.Set(ctx, cache.RankingKey(), []domain.TopProduct{{ProductID: "stale"}}, time.Hour)
	if err := f.db.Migrator().DropTable(&domain.ProductStat{}); err != nil {
		t.Fatalf("drop: %v", err)
	}

	if _, err := f.ranking.Refresh(ctx); err == nil {
		t.Fatalf("expected refresh error")
	}
	var dst []domain.TopProduct
	if f.cache.Get(ctx, cache.RankingKey(), &dst) {
		t.Fatalf("stale ranking must be invalidated after a failed refresh")
	}
}

func TestRankingAggregator_ClosedStoreIsUpstreamUnavailable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sqlDB, err := f.db.DB()
	if err != nil {
		t.Fatalf("db.DB(): %v", err)
	}
	if err := sqlDB.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	for name, call := range map[string]func(context.Context) ([]domain.TopProduct, error){
		"TopViewed": f.ranking.TopViewed,
		"Refresh":   f.ranking.Refresh,
	} {
		f.cache.Delete(ctx, cache.RankingKey())
		_, err := call(ctx)
		if KindOf(err) != KindUpstreamUnavailable {
			t.Fatalf("%s: kind = %v; want upstream unavailable (err=%v)", name, KindOf(err), err)
		}
	}
}

func TestRankingAggregator_WithoutCache(t *testing.T) {
	db := newSvcDB(t)
	a := &RankingAggregator{DB: db}
	_ = repo.IncrementProductStat(context.Background(), db, "product1", time.Now().UTC())
	top, err := a.TopViewed(context.Background())
	if err != nil || len(top) != 1 {
		t.Fatalf("TopViewed: %#v err=%v", top, err)
	}
	if a.limit() != defaultTopN {
		t.Fatalf("default limit = %d", a.limit())
	}
}

func TestRecordView_FailedTransactionLeavesNoTrace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	// Break the aggregator step: the ledger write in the same transaction must roll back.
	if err := f.db.Migrator().DropTable(&domain.ProductStat{}); err != nil {
		t.Fatalf("drop: %v", err)
	}

	_, err := f.ledger.RecordView(ctx, "u1", "product1")
	if err == nil {
		t.Fatalf("expected failure")
	}
	if k := KindOf(err); k != KindTransactionFailed {
		t.Fatalf("kind = %v; want transaction_failed (err=%v)", k, err)
	}
	if _, err := repo.GetViewRecord(ctx, f.db, "u1", "product1"); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("view record must roll back, got %v", err)
	}
}
