package users

import (
	"context"
	"errors"
	"strconv"

	"github.com/papyrus-commerce/papyrus-admin/internal/guard"
	"github.com/papyrus-commerce/papyrus-admin/internal/shared"
)

// Oracle implements the guard's permission oracle on the users table.
// The user_role column is the single source of truth at evaluation time.
type Oracle struct {
	repo RepositoryPort
}

// NewOracle wraps a user repository as a guard.PermissionOracle.
func NewOracle(repo RepositoryPort) *Oracle {
	return &Oracle{repo: repo}
}

// UserRecord fetches the authoritative record for a principal ID.
func (o *Oracle) UserRecord(ctx context.Context, principalID string) (guard.UserRecord, error) {
	id, err := strconv.ParseInt(principalID, 10, 64)
	if err != nil {
		return guard.UserRecord{}, guard.ErrRecordNotFound
	}
	user, err := o.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return guard.UserRecord{}, guard.ErrRecordNotFound
		}
		return guard.UserRecord{}, err
	}
	if !user.IsActive {
		// A disabled account has no effective permissions.
		return guard.UserRecord{}, guard.ErrRecordNotFound
	}
	return guard.UserRecord{Role: user.Role, Name: user.Name, Email: user.Email}, nil
}

var _ guard.PermissionOracle = (*Oracle)(nil)
