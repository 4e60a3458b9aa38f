package catalog

import (
	"context"
	"errors"
	"strconv"

	"github.com/papyrus-commerce/papyrus-admin/internal/shared"
)

// ServiceConfig tunes catalog behavior.
type ServiceConfig struct {
	// LowStockThreshold marks products at or below this level (but above
	// zero) as low stock.
	LowStockThreshold int
}

// Service handles catalog business logic.
type Service struct {
	repo  Repository
	audit *shared.AuditLogger
	cfg   ServiceConfig
}

// NewService builds a Service.
func NewService(repo Repository, audit *shared.AuditLogger, cfg ServiceConfig) *Service {
	if cfg.LowStockThreshold <= 0 {
		cfg.LowStockThreshold = 5
	}
	return &Service{repo: repo, audit: audit, cfg: cfg}
}

// List returns products matching the filters, with derived stock status
// and pagination metadata.
func (s *Service) List(ctx context.Context, filters ListFilters) ([]Product, shared.Pagination, error) {
	if filters.Limit <= 0 {
		filters.Limit = 20
	}
	if filters.Page <= 0 {
		filters.Page = 1
	}
	products, total, err := s.repo.List(ctx, filters, s.cfg.LowStockThreshold)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	for i := range products {
		products[i].StockStatus = s.stockStatus(products[i].Stock)
	}
	return products, shared.NewPagination(filters.Page, filters.Limit, total), nil
}

// Get fetches one product.
func (s *Service) Get(ctx context.Context, id int64) (Product, error) {
	if id <= 0 {
		return Product{}, shared.ErrNotFound
	}
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return Product{}, err
	}
	p.StockStatus = s.stockStatus(p.Stock)
	return p, nil
}

// SlugAvailable reports whether a slug can be used for the given product
// (0 for a new product).
func (s *Service) SlugAvailable(ctx context.Context, slug string, excludeID int64) (bool, error) {
	taken, err := s.repo.SlugTaken(ctx, slug, excludeID)
	return !taken, err
}

// Create inserts a new product.
func (s *Service) Create(ctx context.Context, actorID int64, p Product) (Product, error) {
	created, err := s.repo.Create(ctx, p)
	if err != nil {
		return Product{}, err
	}
	s.record(ctx, actorID, shared.AuditProductCreate, created.ID, map[string]any{"sku": created.SKU, "name": created.Name})
	return created, nil
}

// Update replaces a product.
func (s *Service) Update(ctx context.Context, actorID, id int64, p Product) error {
	if id <= 0 {
		return shared.ErrNotFound
	}
	if err := s.repo.Update(ctx, id, p); err != nil {
		return err
	}
	s.record(ctx, actorID, shared.AuditProductUpdate, id, map[string]any{"sku": p.SKU})
	return nil
}

// Delete removes a product.
func (s *Service) Delete(ctx context.Context, actorID, id int64) error {
	if id <= 0 {
		return shared.ErrNotFound
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.record(ctx, actorID, shared.AuditProductDelete, id, nil)
	return nil
}

// Bulk operations offered by the product manager UI.

// BulkRestock sets the stock of every listed product to the given level.
func (s *Service) BulkRestock(ctx context.Context, actorID int64, ids []int64, level int) (int64, error) {
	if len(ids) == 0 {
		return 0, errors.New("catalog: no products selected")
	}
	if level < 0 {
		return 0, errors.New("catalog: stock level must not be negative")
	}
	n, err := s.repo.BulkSetStock(ctx, ids, level)
	if err != nil {
		return 0, err
	}
	s.record(ctx, actorID, shared.AuditProductRestock, 0, map[string]any{"ids": ids, "level": level})
	return n, nil
}

// BulkAddStock adds the delta to every listed product, clamped at zero.
func (s *Service) BulkAddStock(ctx context.Context, actorID int64, ids []int64, delta int) (int64, error) {
	if len(ids) == 0 {
		return 0, errors.New("catalog: no products selected")
	}
	n, err := s.repo.BulkAddStock(ctx, ids, delta)
	if err != nil {
		return 0, err
	}
	s.record(ctx, actorID, shared.AuditProductAddStock, 0, map[string]any{"ids": ids, "delta": delta})
	return n, nil
}

// BulkDelete removes every listed product.
func (s *Service) BulkDelete(ctx context.Context, actorID int64, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, errors.New("catalog: no products selected")
	}
	n, err := s.repo.BulkDelete(ctx, ids)
	if err != nil {
		return 0, err
	}
	s.record(ctx, actorID, shared.AuditProductBulkDelete, 0, map[string]any{"ids": ids})
	return n, nil
}

func (s *Service) stockStatus(stock int) string {
	switch {
	case stock <= 0:
		return StockStatusOut
	case stock <= s.cfg.LowStockThreshold:
		return StockStatusLow
	default:
		return StockStatusIn
	}
}

func (s *Service) record(ctx context.Context, actorID int64, action shared.AuditAction, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	id := strconv.FormatInt(entityID, 10)
	if entityID == 0 {
		id = "bulk"
	}
	_ = s.audit.Record(ctx, shared.AuditEntry{
		ActorID:  actorID,
		Action:   action,
		Entity:   "product",
		EntityID: id,
		Meta:     meta,
	})
}
