package shared

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// FlashMessage is a one-shot notice shown on the next rendered page.
type FlashMessage struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Claim is the role assertion stamped into the session at sign-in. It
// is advisory only: the access gate reconciles it against the users
// table on every protected navigation, so a stale or forged claim never
// grants access by itself.
type Claim struct {
	Role  string `json:"role,omitempty"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
}

// SessionManager stores admin sessions in Redis. The browser carries
// only the session ID, in an HMAC-signed cookie; a tampered cookie is
// rejected before Redis is consulted.
type SessionManager struct {
	client     *redis.Client
	cookieName string
	ttl        time.Duration
	secure     bool
	secret     []byte
}

// Session is the per-request view of one admin session. Mutations
// accumulate in memory and are persisted once by Commit.
type Session struct {
	ID        string
	userID    string
	claim     Claim
	values    map[string]string
	flashes   []FlashMessage
	isNew     bool
	dirty     bool
	destroyed bool
}

type sessionRecord struct {
	UserID  string            `json:"user_id,omitempty"`
	Claim   Claim             `json:"claim,omitempty"`
	Values  map[string]string `json:"values,omitempty"`
	Flashes []FlashMessage    `json:"flashes,omitempty"`
}

// NewSessionManager constructs a SessionManager. secret keys the cookie
// signature and must be stable across processes.
func NewSessionManager(client *redis.Client, cookieName, secret string, ttl time.Duration, secure bool) *SessionManager {
	return &SessionManager{
		client:     client,
		cookieName: cookieName,
		ttl:        ttl,
		secure:     secure,
		secret:     []byte(secret),
	}
}

// Load resolves the request's session. A missing, tampered or expired
// cookie yields a fresh anonymous session rather than an error.
func (sm *SessionManager) Load(ctx context.Context, r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(sm.cookieName)
	if err != nil {
		if errors.Is(err, http.ErrNoCookie) {
			return sm.fresh(), nil
		}
		return nil, err
	}

	id, ok := sm.verifyCookie(cookie.Value)
	if !ok {
		return sm.fresh(), nil
	}

	data, err := sm.client.Get(ctx, sm.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			sess := sm.fresh()
			sess.ID = id
			return sess, nil
		}
		return nil, err
	}

	var rec sessionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return &Session{
		ID:      id,
		userID:  rec.UserID,
		claim:   rec.Claim,
		values:  rec.Values,
		flashes: rec.Flashes,
	}, nil
}

// Commit persists pending mutations and (re)issues the signed cookie.
func (sm *SessionManager) Commit(ctx context.Context, w http.ResponseWriter, r *http.Request, sess *Session) error {
	if sess == nil {
		return nil
	}

	if sess.destroyed {
		if err := sm.client.Del(ctx, sm.key(sess.ID)).Err(); err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		http.SetCookie(w, &http.Cookie{
			Name:     sm.cookieName,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   sm.secure,
			SameSite: http.SameSiteStrictMode,
		})
		return nil
	}

	if sess.dirty || sess.isNew {
		rec := sessionRecord{
			UserID:  sess.userID,
			Claim:   sess.claim,
			Values:  sess.values,
			Flashes: sess.flashes,
		}
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		if err := sm.client.Set(ctx, sm.key(sess.ID), data, sm.ttl).Err(); err != nil {
			return err
		}
		sess.dirty = false
		sess.isNew = false
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sm.cookieName,
		Value:    sm.signCookie(sess.ID),
		Path:     "/",
		HttpOnly: true,
		Secure:   sm.secure,
		SameSite: http.SameSiteStrictMode,
		Expires:  time.Now().Add(sm.ttl),
	})
	return nil
}

// Destroy marks the session for deletion at commit time.
func (sm *SessionManager) Destroy(sess *Session) {
	if sess == nil {
		return
	}
	sess.destroyed = true
}

// DestroyByID deletes a stored session out of band, without a live
// request. Used by forced sign-outs and the session sweep job.
func (sm *SessionManager) DestroyByID(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	if err := sm.client.Del(ctx, sm.key(id)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	return nil
}

// TTL exposes the configured session lifetime.
func (sm *SessionManager) TTL() time.Duration {
	return sm.ttl
}

// CookieName returns the session cookie identifier.
func (sm *SessionManager) CookieName() string {
	return sm.cookieName
}

// CookieValue returns the signed cookie value for a session ID.
func (sm *SessionManager) CookieValue(id string) string {
	return sm.signCookie(id)
}

// Set stores an arbitrary key-value pair.
func (s *Session) Set(key, value string) {
	if s.values == nil {
		s.values = make(map[string]string)
	}
	s.values[key] = value
	s.dirty = true
}

// Get retrieves a stored value, or "" when absent.
func (s *Session) Get(key string) string {
	return s.values[key]
}

// Delete removes a stored value.
func (s *Session) Delete(key string) {
	if s.values == nil {
		return
	}
	delete(s.values, key)
	s.dirty = true
}

// SetUser marks the session authenticated as the given user ID.
func (s *Session) SetUser(id string) {
	s.userID = id
	s.dirty = true
}

// User returns the authenticated user ID, or "" for anonymous sessions.
func (s *Session) User() string {
	return s.userID
}

// SetClaim caches the role assertion established at sign-in.
func (s *Session) SetClaim(c Claim) {
	s.claim = c
	s.dirty = true
}

// Claim returns the cached role assertion.
func (s *Session) Claim() Claim {
	return s.claim
}

// AddFlash queues a flash message for the next page render.
func (s *Session) AddFlash(msg FlashMessage) {
	s.flashes = append(s.flashes, msg)
	s.dirty = true
}

// PopFlash consumes the oldest flash message, if any.
func (s *Session) PopFlash() *FlashMessage {
	if len(s.flashes) == 0 {
		return nil
	}
	msg := s.flashes[0]
	s.flashes = s.flashes[1:]
	s.dirty = true
	return &msg
}

func (sm *SessionManager) fresh() *Session {
	return &Session{
		ID:    sm.newID(),
		isNew: true,
		dirty: true,
	}
}

func (sm *SessionManager) key(id string) string {
	return "session:" + id
}

func (sm *SessionManager) newID() string {
	if id, err := uuid.NewRandom(); err == nil {
		return id.String()
	}
	b := make([]byte, 24)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}

func (sm *SessionManager) signCookie(id string) string {
	return id + "." + sm.mac(id)
}

func (sm *SessionManager) verifyCookie(value string) (string, bool) {
	id, sig, ok := strings.Cut(value, ".")
	if !ok || id == "" {
		return "", false
	}
	if !hmac.Equal([]byte(sig), []byte(sm.mac(id))) {
		return "", false
	}
	return id, true
}

func (sm *SessionManager) mac(id string) string {
	h := hmac.New(sha256.New, sm.secret)
	_, _ = h.Write([]byte(id))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}
