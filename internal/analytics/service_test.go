package analytics

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type mockRepo struct {
	mu           sync.Mutex
	summary      Summary
	summaryErr   error
	summaryCalls int
	trend        []RevenuePoint
	trendCalls   int
	statuses     []StatusCount
	statusCalls  int
	top          []ProductPerformance
	topCalls     int
	recent       []RecentOrder
	recentCalls  int
}

func (m *mockRepo) Summary(ctx context.Context, lowStock int) (Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.summaryCalls++
	return m.summary, m.summaryErr
}

func (m *mockRepo) RevenueTrend(ctx context.Context, months int) ([]RevenuePoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trendCalls++
	return m.trend, nil
}

func (m *mockRepo) StatusDistribution(ctx context.Context) ([]StatusCount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statusCalls++
	return m.statuses, nil
}

func (m *mockRepo) TopProducts(ctx context.Context, limit int) ([]ProductPerformance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.topCalls++
	return m.top, nil
}

func (m *mockRepo) RecentOrders(ctx context.Context, limit int) ([]RecentOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recentCalls++
	return m.recent, nil
}

func (m *mockRepo) calls() (int, int, int, int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.summaryCalls, m.trendCalls, m.statusCalls, m.topCalls, m.recentCalls
}

func newTestService(t *testing.T, repo Repository) *Service {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	cache := NewCache(client, time.Minute)
	return NewService(repo, cache, ServiceConfig{LowStockThreshold: 5})
}

func TestSummaryMetricsCaches(t *testing.T) {
	repo := &mockRepo{summary: Summary{
		TotalOrders:       120,
		TotalRevenue:      84250.50,
		MonthlyRevenue:    9200.00,
		AverageOrderValue: 702.09,
		TotalUsers:        340,
		NewUsersThisMonth: 18,
	}}
	svc := newTestService(t, repo)
	ctx := context.Background()

	summary, err := svc.SummaryMetrics(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.TotalOrders != 120 {
		t.Fatalf("expected 120 orders, got %d", summary.TotalOrders)
	}
	if calls, _, _, _, _ := repo.calls(); calls != 1 {
		t.Fatalf("expected 1 repo call, got %d", calls)
	}

	// Second read hits the cache.
	if _, err := svc.SummaryMetrics(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls, _, _, _, _ := repo.calls(); calls != 1 {
		t.Fatalf("expected cached result, repo called %d times", calls)
	}

	// Invalidation forces a reload.
	if err := svc.Invalidate(ctx); err != nil {
		t.Fatalf("invalidate failed: %v", err)
	}
	repo.mu.Lock()
	repo.summary.TotalOrders = 121
	repo.mu.Unlock()
	summary, err = svc.SummaryMetrics(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.TotalOrders != 121 {
		t.Fatalf("expected refreshed value 121, got %d", summary.TotalOrders)
	}
}

func TestDashboardAssemblesAllSections(t *testing.T) {
	repo := &mockRepo{
		summary:  Summary{TotalOrders: 10},
		trend:    []RevenuePoint{{Month: "2026-07", Orders: 4, Revenue: 3100}, {Month: "2026-08", Orders: 6, Revenue: 4800}},
		statuses: []StatusCount{{Status: "Placed", Count: 3}, {Status: "Delivered", Count: 7}},
		top:      []ProductPerformance{{ProductID: 1, Name: "A5 dotted notebook", SKU: "NB-001", Units: 42, Revenue: 10500}},
		recent:   []RecentOrder{{ID: 9, Reference: "PPY-1009", Status: "Placed", Total: 820}},
	}
	svc := newTestService(t, repo)

	d, err := svc.Dashboard(context.Background())
	if err != nil {
		t.Fatalf("dashboard error: %v", err)
	}
	if d.Summary.TotalOrders != 10 {
		t.Fatalf("summary missing: %+v", d.Summary)
	}
	if len(d.RevenueTrend) != 2 || len(d.StatusDistribution) != 2 || len(d.TopProducts) != 1 || len(d.RecentOrders) != 1 {
		t.Fatalf("incomplete dashboard: %+v", d)
	}

	s, tr, st, top, rec := repo.calls()
	if s != 1 || tr != 1 || st != 1 || top != 1 || rec != 1 {
		t.Fatalf("expected one repo call per section, got %d %d %d %d %d", s, tr, st, top, rec)
	}

	// Second pass is served entirely from cache.
	if _, err := svc.Dashboard(context.Background()); err != nil {
		t.Fatalf("dashboard error: %v", err)
	}
	s, tr, st, top, rec = repo.calls()
	if s != 1 || tr != 1 || st != 1 || top != 1 || rec != 1 {
		t.Fatalf("expected cached sections, got %d %d %d %d %d", s, tr, st, top, rec)
	}
}

func TestDashboardPropagatesErrors(t *testing.T) {
	repo := &mockRepo{summaryErr: errors.New("database unavailable")}
	svc := newTestService(t, repo)

	if _, err := svc.Dashboard(context.Background()); err == nil {
		t.Fatalf("expected error from failing section")
	}
}

func TestCacheVersionInitialises(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	cache := NewCache(client, time.Minute)

	ver, err := cache.Version(context.Background())
	if err != nil {
		t.Fatalf("version error: %v", err)
	}
	if ver != 1 {
		t.Fatalf("expected initial version 1, got %d", ver)
	}

	if err := cache.Bump(context.Background()); err != nil {
		t.Fatalf("bump error: %v", err)
	}
	ver, err = cache.Version(context.Background())
	if err != nil {
		t.Fatalf("version error: %v", err)
	}
	if ver != 2 {
		t.Fatalf("expected bumped version 2, got %d", ver)
	}
}

func TestCacheNilClientFallsThrough(t *testing.T) {
	cache := NewCache(nil, time.Minute)
	loads := 0
	var out Summary
	err := cache.FetchJSON(context.Background(), "k", &out, func(ctx context.Context) (any, error) {
		loads++
		return Summary{TotalOrders: 5}, nil
	})
	if err != nil {
		t.Fatalf("fetch error: %v", err)
	}
	if out.TotalOrders != 5 || loads != 1 {
		t.Fatalf("expected loader passthrough, got %+v after %d loads", out, loads)
	}
}
