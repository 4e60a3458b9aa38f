package orders

import (
	"context"
	"errors"
	"strconv"

	"github.com/papyrus-commerce/papyrus-admin/internal/shared"
)

// ErrIllegalTransition is returned when the requested status change is
// not allowed from the order's current status.
var ErrIllegalTransition = errors.New("orders: illegal status transition")

// Service handles order workflow logic.
type Service struct {
	repo  Repository
	audit *shared.AuditLogger
}

// NewService builds a Service.
func NewService(repo Repository, audit *shared.AuditLogger) *Service {
	return &Service{repo: repo, audit: audit}
}

// List returns orders matching the filters.
func (s *Service) List(ctx context.Context, filters ListFilters) ([]Order, shared.Pagination, error) {
	if filters.Limit <= 0 {
		filters.Limit = 20
	}
	if filters.Page <= 0 {
		filters.Page = 1
	}
	list, total, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return list, shared.NewPagination(filters.Page, filters.Limit, total), nil
}

// Get fetches one order with its line items.
func (s *Service) Get(ctx context.Context, id int64) (Order, error) {
	if id <= 0 {
		return Order{}, shared.ErrNotFound
	}
	return s.repo.Get(ctx, id)
}

// ChangeStatus moves an order through the fulfilment workflow. The move
// must be legal from the order's current status, re-checked at the
// database so a concurrent change cannot be overwritten.
func (s *Service) ChangeStatus(ctx context.Context, actorID, id int64, to string) error {
	order, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if !CanTransition(order.Status, to) {
		return ErrIllegalTransition
	}
	updated, err := s.repo.UpdateStatus(ctx, id, order.Status, to)
	if err != nil {
		return err
	}
	if !updated {
		return ErrIllegalTransition
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditEntry{
			ActorID:  actorID,
			Action:   shared.AuditOrderStatusChange,
			Entity:   "order",
			EntityID: strconv.FormatInt(id, 10),
			Meta:     map[string]any{"from": order.Status, "to": to},
		})
	}
	return nil
}
