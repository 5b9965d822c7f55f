package services

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-recently-viewed/internal/cache"
	"github.com/tbourn/go-recently-viewed/internal/notify"
	"github.com/tbourn/go-recently-viewed/internal/repo"
)

// ---------- test helpers ----------

func newSvcDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := repo.OpenSQLite(filepath.Join(t.TempDir(), "svc.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	if err := repo.SeedProducts(context.Background(), db); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return db
}

// stepClock returns strictly increasing times, one second apart.
type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func newStepClock() *stepClock {
	return &stepClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

// spyCache wraps a real adapter and records mutations.
type spyCache struct {
	inner *cache.Adapter

	mu      sync.Mutex
	sets    []string
	deletes []string
	gets    []string
}

func newSpyCache(t *testing.T) *spyCache {
	t.Helper()
	st := cache.NewMemoryStore()
	t.Cleanup(func() { _ = st.Close() })
	return &spyCache{inner: cache.NewAdapter(st, time.Hour)}
}

func (s *spyCache) Get(ctx context.Context, key string, dst any) bool {
	s.mu.Lock()
	s.gets = append(s.gets, key)
	s.mu.Unlock()
	return s.inner.Get(ctx, key, dst)
}

func (s *spyCache) Set(ctx context.Context, key string, v any, ttl time.Duration) {
	s.mu.Lock()
	s.sets = append(s.sets, key)
	s.mu.Unlock()
	s.inner.Set(ctx, key, v, ttl)
}

func (s *spyCache) Delete(ctx context.Context, key string) {
	s.mu.Lock()
	s.deletes = append(s.deletes, key)
	s.mu.Unlock()
	s.inner.Delete(ctx, key)
}

func (s *spyCache) mutations() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sets) + len(s.deletes)
}

func (s *spyCache) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sets, s.deletes, s.gets = nil, nil, nil
}

// recordingDispatcher captures dispatched notifications synchronously.
type recordingDispatcher struct {
	mu  sync.Mutex
	got []notify.Notification
}

func (d *recordingDispatcher) Dispatch(n notify.Notification) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.got = append(d.got, n)
	return true
}

func (d *recordingDispatcher) calls() []notify.Notification {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]notify.Notification, len(d.got))
	copy(out, d.got)
	return out
}

type fixture struct {
	db      *gorm.DB
	cache   *spyCache
	notes   *recordingDispatcher
	ranking *RankingAggregator
	ledger  *RecencyLedger
	svc     *RecentlyViewedService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newSvcDB(t)
	c := newSpyCache(t)
	notes := &recordingDispatcher{}
	ranking := &RankingAggregator{DB: db, Cache: c, TopN: 10, TTL: time.Hour}
	ledger := &RecencyLedger{DB: db, Bound: 10, Aggregator: ranking, Now: newStepClock().Now}
	svc := &RecentlyViewedService{
		DB:              db,
		Cache:           c,
		TTL:             time.Hour,
		Ledger:          ledger,
		Ranking:         ranking,
		Notifier:        notes,
		NotifyThreshold: 3,
	}
	return &fixture{db: db, cache: c, notes: notes, ranking: ranking, ledger: ledger, svc: svc}
}
