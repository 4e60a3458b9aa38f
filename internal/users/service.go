package users

import (
	"context"
	"errors"
	"strconv"

	"github.com/papyrus-commerce/papyrus-admin/internal/shared"
)

// ErrSelfDemotion is returned when an admin tries to remove their own
// admin role; that would lock them out mid-session.
var ErrSelfDemotion = errors.New("users: cannot change your own role")

// Service handles user management business logic.
type Service struct {
	repo  RepositoryPort
	audit *shared.AuditLogger
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, audit *shared.AuditLogger) *Service {
	return &Service{repo: repo, audit: audit}
}

// List returns users matching the filters with pagination metadata.
func (s *Service) List(ctx context.Context, filters ListFilters) ([]User, shared.Pagination, error) {
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

// Get fetches one user.
func (s *Service) Get(ctx context.Context, id int64) (User, error) {
	if id <= 0 {
		return User{}, shared.ErrNotFound
	}
	return s.repo.Get(ctx, id)
}

// ChangeRole promotes or demotes a user. The acting admin cannot change
// their own role.
func (s *Service) ChangeRole(ctx context.Context, actorID, userID int64, role string) error {
	if role != RoleAdmin && role != RoleUser {
		return errors.New("users: unknown role " + role)
	}
	if actorID == userID {
		return ErrSelfDemotion
	}
	before, err := s.repo.Get(ctx, userID)
	if err != nil {
		return err
	}
	if before.Role == role {
		return nil
	}
	if err := s.repo.SetRole(ctx, userID, role); err != nil {
		return err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditEntry{
			ActorID:  actorID,
			Action:   shared.AuditUserRoleChange,
			Entity:   "user",
			EntityID: strconv.FormatInt(userID, 10),
			Meta:     map[string]any{"from": before.Role, "to": role},
		})
	}
	return nil
}

// Deactivate disables an account. The acting admin cannot disable
// themselves.
func (s *Service) Deactivate(ctx context.Context, actorID, userID int64) error {
	if actorID == userID {
		return ErrSelfDemotion
	}
	if err := s.repo.SetActive(ctx, userID, false); err != nil {
		return err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditEntry{
			ActorID:  actorID,
			Action:   shared.AuditUserDeactivate,
			Entity:   "user",
			EntityID: strconv.FormatInt(userID, 10),
		})
	}
	return nil
}
