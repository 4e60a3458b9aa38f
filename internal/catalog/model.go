package catalog

import "time"

// Stock status labels derived from the stock level.
const (
	StockStatusIn  = "In stock"
	StockStatusLow = "Low stock"
	StockStatusOut = "Out of stock"
)

// Product represents a catalog entry managed through the console.
type Product struct {
	ID           int64
	SKU          string
	Slug         string
	Name         string
	Description  string
	Brand        string
	Category     string
	MRP          float64
	SellingPrice float64
	Stock        int
	Image        string
	Tags         []string
	ShowOnHome   bool
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time

	// StockStatus is derived, not stored.
	StockStatus string
}

// ListFilters narrows product listings.
type ListFilters struct {
	Search  string
	Stock   string // "", "instock", "lowstock", "outofstock"
	SortBy  string
	SortDir string
	Page    int
	Limit   int
}
