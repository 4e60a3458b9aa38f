package auth

import (
	"context"
	"errors"

	"github.com/papyrus-commerce/papyrus-admin/internal/guard"
	"github.com/papyrus-commerce/papyrus-admin/internal/shared"
)

// Identity adapts one admin session to the guard's identity port. The
// principal is resolved from the session registry in postgres, and the
// session-change stream is the Redis-backed Events bus filtered down to
// this session.
type Identity struct {
	sessionID string
	service   *Service
	events    *Events
	sessions  *shared.SessionManager
}

// NewIdentity binds an identity provider to a session.
func NewIdentity(sessionID string, service *Service, events *Events, sessions *shared.SessionManager) *Identity {
	return &Identity{sessionID: sessionID, service: service, events: events, sessions: sessions}
}

// CurrentPrincipal returns the principal behind the session, or nil when
// the session no longer maps to a live user.
func (i *Identity) CurrentPrincipal(ctx context.Context) (*guard.Principal, error) {
	user, err := i.service.UserBySession(ctx, i.sessionID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &guard.Principal{ID: formatUserID(user.ID), Email: user.Email, Name: user.Name}, nil
}

// Subscribe delivers session-change notifications for this session: nil
// on sign-out, the refreshed principal on sign-in.
func (i *Identity) Subscribe(fn func(*guard.Principal)) (unsubscribe func()) {
	return i.events.Subscribe(func(ev Event) {
		if ev.SessionID != i.sessionID {
			return
		}
		switch ev.Type {
		case EventSignOut:
			fn(nil)
		case EventSignIn:
			p, err := i.CurrentPrincipal(context.Background())
			if err != nil {
				return
			}
			fn(p)
		}
	})
}

// SignOut tears the session down everywhere: the postgres registry, the
// Redis session store, and (via RemoveSession) the event stream.
func (i *Identity) SignOut(ctx context.Context) error {
	if err := i.service.RemoveSession(ctx, i.sessionID); err != nil {
		return err
	}
	return i.sessions.DestroyByID(ctx, i.sessionID)
}

var _ guard.IdentityProvider = (*Identity)(nil)
