package analytics

// Summary holds the headline store metrics shown on the dashboard.
type Summary struct {
	TotalOrders       int     `json:"total_orders"`
	TotalRevenue      float64 `json:"total_revenue"`
	MonthlyRevenue    float64 `json:"monthly_revenue"`
	AverageOrderValue float64 `json:"average_order_value"`
	TotalUsers        int     `json:"total_users"`
	NewUsersThisMonth int     `json:"new_users_this_month"`
	LowStockProducts  int     `json:"low_stock_products"`
}

// RevenuePoint is one month of the revenue trend. Declined and cancelled
// orders are excluded.
type RevenuePoint struct {
	Month   string  `json:"month"`
	Orders  int     `json:"orders"`
	Revenue float64 `json:"revenue"`
}

// StatusCount is the number of orders in one status.
type StatusCount struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

// ProductPerformance ranks a product by units sold.
type ProductPerformance struct {
	ProductID int64   `json:"product_id"`
	Name      string  `json:"name"`
	SKU       string  `json:"sku"`
	Units     int     `json:"units"`
	Revenue   float64 `json:"revenue"`
}

// RecentOrder is a dashboard row for a recently placed order.
type RecentOrder struct {
	ID           int64   `json:"id"`
	Reference    string  `json:"reference"`
	CustomerName string  `json:"customer_name"`
	Status       string  `json:"status"`
	Total        float64 `json:"total"`
	PlacedAt     string  `json:"placed_at"`
}

// Dashboard bundles everything the home page renders.
type Dashboard struct {
	Summary            Summary              `json:"summary"`
	RevenueTrend       []RevenuePoint       `json:"revenue_trend"`
	StatusDistribution []StatusCount        `json:"status_distribution"`
	TopProducts        []ProductPerformance `json:"top_products"`
	RecentOrders       []RecentOrder        `json:"recent_orders"`
}
