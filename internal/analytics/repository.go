package analytics

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Excluded from revenue figures.
const revenueFilter = `status NOT IN ('Declined', 'Cancelled')`

// Repository exposes the aggregate queries the dashboard relies on.
type Repository interface {
	Summary(ctx context.Context, lowStock int) (Summary, error)
	RevenueTrend(ctx context.Context, months int) ([]RevenuePoint, error)
	StatusDistribution(ctx context.Context) ([]StatusCount, error)
	TopProducts(ctx context.Context, limit int) ([]ProductPerformance, error)
	RecentOrders(ctx context.Context, limit int) ([]RecentOrder, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository builds the postgres-backed repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) Summary(ctx context.Context, lowStock int) (Summary, error) {
	var s Summary
	err := r.db.QueryRow(ctx, `SELECT
		COUNT(*),
		COALESCE(SUM(total) FILTER (WHERE `+revenueFilter+`), 0),
		COALESCE(SUM(total) FILTER (WHERE `+revenueFilter+` AND placed_at >= date_trunc('month', NOW())), 0),
		COALESCE(AVG(total) FILTER (WHERE `+revenueFilter+`), 0)
		FROM orders`).Scan(&s.TotalOrders, &s.TotalRevenue, &s.MonthlyRevenue, &s.AverageOrderValue)
	if err != nil {
		return Summary{}, err
	}
	err = r.db.QueryRow(ctx, `SELECT COUNT(*), COUNT(*) FILTER (WHERE created_at >= date_trunc('month', NOW())) FROM users WHERE is_active`).
		Scan(&s.TotalUsers, &s.NewUsersThisMonth)
	if err != nil {
		return Summary{}, err
	}
	err = r.db.QueryRow(ctx, `SELECT COUNT(*) FROM products WHERE stock > 0 AND stock <= $1`, lowStock).Scan(&s.LowStockProducts)
	if err != nil {
		return Summary{}, err
	}
	return s, nil
}

func (r *repository) RevenueTrend(ctx context.Context, months int) ([]RevenuePoint, error) {
	rows, err := r.db.Query(ctx, `SELECT to_char(date_trunc('month', placed_at), 'YYYY-MM'), COUNT(*), COALESCE(SUM(total), 0)
		FROM orders
		WHERE `+revenueFilter+` AND placed_at >= date_trunc('month', NOW()) - make_interval(months => $1 - 1)
		GROUP BY 1 ORDER BY 1`, months)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []RevenuePoint
	for rows.Next() {
		var p RevenuePoint
		if err := rows.Scan(&p.Month, &p.Orders, &p.Revenue); err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

func (r *repository) StatusDistribution(ctx context.Context) ([]StatusCount, error) {
	rows, err := r.db.Query(ctx, `SELECT status, COUNT(*) FROM orders GROUP BY status ORDER BY COUNT(*) DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []StatusCount
	for rows.Next() {
		var c StatusCount
		if err := rows.Scan(&c.Status, &c.Count); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

func (r *repository) TopProducts(ctx context.Context, limit int) ([]ProductPerformance, error) {
	rows, err := r.db.Query(ctx, `SELECT i.product_id, i.name, i.sku, SUM(i.quantity), SUM(i.unit_price * i.quantity)
		FROM order_items i JOIN orders o ON o.id = i.order_id
		WHERE o.`+revenueFilter+`
		GROUP BY i.product_id, i.name, i.sku
		ORDER BY SUM(i.quantity) DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []ProductPerformance
	for rows.Next() {
		var p ProductPerformance
		if err := rows.Scan(&p.ProductID, &p.Name, &p.SKU, &p.Units, &p.Revenue); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (r *repository) RecentOrders(ctx context.Context, limit int) ([]RecentOrder, error) {
	rows, err := r.db.Query(ctx, `SELECT o.id, o.reference, u.name, o.status, o.total, to_char(o.placed_at, 'DD Mon YYYY')
		FROM orders o JOIN users u ON u.id = o.user_id
		ORDER BY o.placed_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []RecentOrder
	for rows.Next() {
		var o RecentOrder
		if err := rows.Scan(&o.ID, &o.Reference, &o.CustomerName, &o.Status, &o.Total, &o.PlacedAt); err != nil {
			return nil, err
		}
		list = append(list, o)
	}
	return list, rows.Err()
}
