package auth

import (
	"context"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/papyrus-commerce/papyrus-admin/internal/shared"
)

// Service wraps authentication business rules.
type Service struct {
	repo   Repository
	events *Events
}

// NewService constructs a new Service.
func NewService(repo Repository, events *Events) *Service {
	return &Service{repo: repo, events: events}
}

// Authenticate validates email/password credentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}

// UserBySession resolves the principal behind a live session record.
func (s *Service) UserBySession(ctx context.Context, sessionID string) (*User, error) {
	return s.repo.FindBySession(ctx, sessionID)
}

// RegisterSession persists the session metadata in postgres and announces
// the sign-in on the event stream.
func (s *Service) RegisterSession(ctx context.Context, id string, user *User, expiresAt time.Time, ip, ua string) error {
	if err := s.repo.CreateSession(ctx, id, user.ID, expiresAt, ip, ua); err != nil {
		return err
	}
	if s.events != nil {
		s.events.Publish(ctx, Event{Type: EventSignIn, SessionID: id, UserID: formatUserID(user.ID)})
	}
	return nil
}

// RemoveSession deletes a session record from postgres and announces the
// sign-out, so other tabs and processes can drop their cached state.
func (s *Service) RemoveSession(ctx context.Context, id string) error {
	if err := s.repo.DeleteSession(ctx, id); err != nil {
		return err
	}
	if s.events != nil {
		s.events.Publish(ctx, Event{Type: EventSignOut, SessionID: id})
	}
	return nil
}

// SweepExpiredSessions removes session rows past their expiry. The IDs
// of the removed sessions are returned so the sweep job can delete
// their mirror slots as well.
func (s *Service) SweepExpiredSessions(ctx context.Context) ([]string, error) {
	return s.repo.DeleteExpiredSessions(ctx, time.Now())
}
