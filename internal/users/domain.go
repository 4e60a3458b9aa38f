package users

import "time"

// Role values stored in the users table. The user_role column is the
// authoritative claim the access gate verifies on every navigation.
const (
	RoleAdmin = "Admin"
	RoleUser  = "User"
)

// User represents a storefront account as seen by the admin console.
type User struct {
	ID        int64
	Email     string
	Name      string
	Role      string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ListFilters narrows user listings.
type ListFilters struct {
	Search string
	Role   string
	Page   int
	Limit  int
}
