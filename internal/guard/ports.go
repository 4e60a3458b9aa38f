package guard

import "context"

// IdentityProvider abstracts the external identity service. CurrentPrincipal
// returns nil without error when no session exists. Subscribe delivers
// session-change notifications (nil principal on sign-out) until the
// returned unsubscribe function is called.
type IdentityProvider interface {
	CurrentPrincipal(ctx context.Context) (*Principal, error)
	Subscribe(fn func(*Principal)) (unsubscribe func())
	SignOut(ctx context.Context) error
}

// PermissionOracle fetches the authoritative permission record for a
// principal. Implementations return ErrRecordNotFound when no record
// exists; any other error is treated as a transient lookup failure.
type PermissionOracle interface {
	UserRecord(ctx context.Context, principalID string) (UserRecord, error)
}

// MirrorStore is the persistent advisory cache slot. It is shared across
// guard instances and writers treat it as last-writer-wins.
type MirrorStore interface {
	Write(ctx context.Context, entry MirrorEntry) error
	Read(ctx context.Context) (*MirrorEntry, error)
	Clear(ctx context.Context) error
}
