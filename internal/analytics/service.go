package analytics

import (
	"context"
	"strconv"

	"golang.org/x/sync/errgroup"
)

// Defaults for dashboard sizing.
const (
	DefaultTrendMonths  = 6
	DefaultTopProducts  = 5
	DefaultRecentOrders = 8
)

// ServiceConfig tunes the dashboard queries.
type ServiceConfig struct {
	LowStockThreshold int
	TrendMonths       int
	TopProductsLimit  int
	RecentOrdersLimit int
}

// Service coordinates dashboard query execution with the cache layer.
type Service struct {
	repo  Repository
	cache *Cache
	cfg   ServiceConfig
}

// NewService wires a Repository with a Cache helper.
func NewService(repo Repository, cache *Cache, cfg ServiceConfig) *Service {
	if cfg.LowStockThreshold <= 0 {
		cfg.LowStockThreshold = 5
	}
	if cfg.TrendMonths <= 0 {
		cfg.TrendMonths = DefaultTrendMonths
	}
	if cfg.TopProductsLimit <= 0 {
		cfg.TopProductsLimit = DefaultTopProducts
	}
	if cfg.RecentOrdersLimit <= 0 {
		cfg.RecentOrdersLimit = DefaultRecentOrders
	}
	return &Service{repo: repo, cache: cache, cfg: cfg}
}

// Dashboard assembles all dashboard sections, fetching the cached slices
// in parallel.
func (s *Service) Dashboard(ctx context.Context) (Dashboard, error) {
	var d Dashboard
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		summary, err := s.SummaryMetrics(ctx)
		if err != nil {
			return err
		}
		d.Summary = summary
		return nil
	})
	g.Go(func() error {
		trend, err := s.RevenueTrend(ctx)
		if err != nil {
			return err
		}
		d.RevenueTrend = trend
		return nil
	})
	g.Go(func() error {
		dist, err := s.StatusDistribution(ctx)
		if err != nil {
			return err
		}
		d.StatusDistribution = dist
		return nil
	})
	g.Go(func() error {
		top, err := s.TopProducts(ctx)
		if err != nil {
			return err
		}
		d.TopProducts = top
		return nil
	})
	g.Go(func() error {
		recent, err := s.RecentOrders(ctx)
		if err != nil {
			return err
		}
		d.RecentOrders = recent
		return nil
	})

	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}
	return d, nil
}

// SummaryMetrics returns the headline metrics, cached.
func (s *Service) SummaryMetrics(ctx context.Context) (Summary, error) {
	key, err := s.cache.BuildKey(ctx, "dashboard", "summary")
	if err != nil {
		return Summary{}, err
	}
	var summary Summary
	err = s.cache.FetchJSON(ctx, key, &summary, func(ctx context.Context) (any, error) {
		return s.repo.Summary(ctx, s.cfg.LowStockThreshold)
	})
	return summary, err
}

// RevenueTrend returns the monthly revenue series, cached.
func (s *Service) RevenueTrend(ctx context.Context) ([]RevenuePoint, error) {
	key, err := s.cache.BuildKey(ctx, "dashboard", "revenue", strconv.Itoa(s.cfg.TrendMonths))
	if err != nil {
		return nil, err
	}
	var points []RevenuePoint
	err = s.cache.FetchJSON(ctx, key, &points, func(ctx context.Context) (any, error) {
		return s.repo.RevenueTrend(ctx, s.cfg.TrendMonths)
	})
	return points, err
}

// StatusDistribution returns order counts per status, cached.
func (s *Service) StatusDistribution(ctx context.Context) ([]StatusCount, error) {
	key, err := s.cache.BuildKey(ctx, "dashboard", "statuses")
	if err != nil {
		return nil, err
	}
	var counts []StatusCount
	err = s.cache.FetchJSON(ctx, key, &counts, func(ctx context.Context) (any, error) {
		return s.repo.StatusDistribution(ctx)
	})
	return counts, err
}

// TopProducts returns the best selling products, cached.
func (s *Service) TopProducts(ctx context.Context) ([]ProductPerformance, error) {
	key, err := s.cache.BuildKey(ctx, "dashboard", "top_products", strconv.Itoa(s.cfg.TopProductsLimit))
	if err != nil {
		return nil, err
	}
	var products []ProductPerformance
	err = s.cache.FetchJSON(ctx, key, &products, func(ctx context.Context) (any, error) {
		return s.repo.TopProducts(ctx, s.cfg.TopProductsLimit)
	})
	return products, err
}

// RecentOrders returns the latest orders, cached.
func (s *Service) RecentOrders(ctx context.Context) ([]RecentOrder, error) {
	key, err := s.cache.BuildKey(ctx, "dashboard", "recent_orders", strconv.Itoa(s.cfg.RecentOrdersLimit))
	if err != nil {
		return nil, err
	}
	var list []RecentOrder
	err = s.cache.FetchJSON(ctx, key, &list, func(ctx context.Context) (any, error) {
		return s.repo.RecentOrders(ctx, s.cfg.RecentOrdersLimit)
	})
	return list, err
}

// Invalidate bumps the cache version after a store mutation.
func (s *Service) Invalidate(ctx context.Context) error {
	return s.cache.Bump(ctx)
}
