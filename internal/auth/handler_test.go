package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/papyrus-commerce/papyrus-admin/internal/auth"
	"github.com/papyrus-commerce/papyrus-admin/internal/shared"
	"github.com/papyrus-commerce/papyrus-admin/internal/view"
	_ "github.com/papyrus-commerce/papyrus-admin/testing"
)

type stubRepo struct {
	user     *auth.User
	sessions map[string]int64
}

func (s *stubRepo) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	if s.user == nil || s.user.Email != email {
		return nil, shared.ErrNotFound
	}
	return s.user, nil
}

func (s *stubRepo) FindBySession(ctx context.Context, sessionID string) (*auth.User, error) {
	if s.sessions == nil {
		return nil, shared.ErrNotFound
	}
	if _, ok := s.sessions[sessionID]; !ok {
		return nil, shared.ErrNotFound
	}
	return s.user, nil
}

func (s *stubRepo) CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	if s.sessions == nil {
		s.sessions = make(map[string]int64)
	}
	s.sessions[id] = userID
	return nil
}

func (s *stubRepo) DeleteSession(ctx context.Context, id string) error {
	delete(s.sessions, id)
	return nil
}

func (s *stubRepo) DeleteExpiredSessions(ctx context.Context, before time.Time) ([]string, error) {
	return nil, nil
}

func newAuthHandler(t *testing.T, repo auth.Repository) (*auth.Handler, *shared.SessionManager) {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = redisClient.Close() })
	sessionManager := shared.NewSessionManager(redisClient, "test_session", "secret", time.Hour, false)
	csrfManager := shared.NewCSRFManager("csrfsecret")
	templates, err := view.NewEngine()
	if err != nil {
		t.Fatalf("templates: %v", err)
	}
	handler := auth.NewHandler(nil, auth.NewService(repo, nil), templates, sessionManager, csrfManager, "Admin")
	return handler, sessionManager
}

// primeSession runs the GET login page to obtain a session with a CSRF
// token, mimicking a browser's first visit.
func primeSession(t *testing.T, handler *auth.Handler, sessionManager *shared.SessionManager) *shared.Session {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/auth/login", nil)
	sess, err := sessionManager.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	ctx := shared.ContextWithSession(req.Context(), sess)
	req = req.WithContext(ctx)
	res := httptest.NewRecorder()
	handler.ShowLoginForTest(res, req)
	if err := sessionManager.Commit(ctx, res, req, sess); err != nil {
		t.Fatalf("commit session: %v", err)
	}
	if res.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", res.Code)
	}
	return sess
}

func postLogin(t *testing.T, handler *auth.Handler, sessionManager *shared.SessionManager, sess *shared.Session, form url.Values) (*httptest.ResponseRecorder, *shared.Session) {
	t.Helper()
	form.Set("csrf_token", sess.Get(shared.CSRFSessionKey))
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: sessionManager.CookieName(), Value: sessionManager.CookieValue(sess.ID)})

	loaded, err := sessionManager.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("load session for post: %v", err)
	}
	ctx := shared.ContextWithSession(req.Context(), loaded)
	req = req.WithContext(ctx)
	res := httptest.NewRecorder()
	handler.HandleLoginForTest(res, req)
	if err := sessionManager.Commit(ctx, res, req, loaded); err != nil {
		t.Fatalf("commit session: %v", err)
	}
	return res, loaded
}

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return string(hashed)
}

func TestLoginPageRenders(t *testing.T) {
	handler, sessionManager := newAuthHandler(t, &stubRepo{})

	req := httptest.NewRequest(http.MethodGet, "/auth/login", nil)
	sess, err := sessionManager.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	ctx := shared.ContextWithSession(req.Context(), sess)
	req = req.WithContext(ctx)

	res := httptest.NewRecorder()
	handler.ShowLoginForTest(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", res.Code)
	}
	if !strings.Contains(res.Body.String(), "<form") {
		t.Fatalf("expected login form in body")
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	repo := &stubRepo{user: &auth.User{
		ID:           1,
		Email:        "admin@papyrus.shop",
		PasswordHash: hashPassword(t, "correctpass"),
		Role:         "Admin",
		IsActive:     true,
	}}
	handler, sessionManager := newAuthHandler(t, repo)
	sess := primeSession(t, handler, sessionManager)

	form := url.Values{}
	form.Set("email", "admin@papyrus.shop")
	form.Set("password", "wrongpass")
	res, loaded := postLogin(t, handler, sessionManager, sess, form)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
	if !strings.Contains(res.Body.String(), "Invalid email or password") {
		t.Fatalf("expected credential error in body")
	}
	if loaded.User() != "" {
		t.Fatalf("failed login must not authenticate the session")
	}
}

func TestLoginRejectsNonAdmin(t *testing.T) {
	repo := &stubRepo{user: &auth.User{
		ID:           7,
		Email:        "customer@papyrus.shop",
		PasswordHash: hashPassword(t, "correctpass"),
		Role:         "User",
		IsActive:     true,
	}}
	handler, sessionManager := newAuthHandler(t, repo)
	sess := primeSession(t, handler, sessionManager)

	form := url.Values{}
	form.Set("email", "customer@papyrus.shop")
	form.Set("password", "correctpass")
	res, loaded := postLogin(t, handler, sessionManager, sess, form)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
	if !strings.Contains(res.Body.String(), "administrators only") {
		t.Fatalf("expected admin-only message in body")
	}
	if loaded.User() != "" {
		t.Fatalf("valid non-admin credentials must never get a session")
	}
	if len(repo.sessions) != 0 {
		t.Fatalf("no session row should be registered for a rejected login")
	}
}

func TestLoginAdminSucceeds(t *testing.T) {
	repo := &stubRepo{user: &auth.User{
		ID:           1,
		Email:        "admin@papyrus.shop",
		Name:         "Priya",
		PasswordHash: hashPassword(t, "correctpass"),
		Role:         "Admin",
		IsActive:     true,
	}}
	handler, sessionManager := newAuthHandler(t, repo)
	sess := primeSession(t, handler, sessionManager)

	form := url.Values{}
	form.Set("email", "admin@papyrus.shop")
	form.Set("password", "correctpass")
	res, loaded := postLogin(t, handler, sessionManager, sess, form)

	if res.Code != http.StatusSeeOther {
		t.Fatalf("expected redirect, got %d", res.Code)
	}
	if loc := res.Header().Get("Location"); loc != "/" {
		t.Fatalf("expected redirect to /, got %q", loc)
	}
	if loaded.User() != "1" {
		t.Fatalf("expected session user 1, got %q", loaded.User())
	}
	if got := loaded.Claim().Role; got != "Admin" {
		t.Fatalf("expected cached role claim, got %q", got)
	}
	if _, ok := repo.sessions[loaded.ID]; !ok {
		t.Fatalf("expected session row registered in postgres repo")
	}
}

func TestLoginReturnsToRequestedPage(t *testing.T) {
	repo := &stubRepo{user: &auth.User{
		ID:           1,
		Email:        "admin@papyrus.shop",
		PasswordHash: hashPassword(t, "correctpass"),
		Role:         "Admin",
		IsActive:     true,
	}}
	handler, sessionManager := newAuthHandler(t, repo)

	cases := map[string]string{
		"/orders?status=Placed": "/orders?status=Placed",
		"//evil.example":        "/",
		"https://evil.example":  "/",
		"":                      "/",
	}
	for from, want := range cases {
		sess := primeSession(t, handler, sessionManager)
		form := url.Values{}
		form.Set("email", "admin@papyrus.shop")
		form.Set("password", "correctpass")
		form.Set("from", from)
		res, _ := postLogin(t, handler, sessionManager, sess, form)

		if res.Code != http.StatusSeeOther {
			t.Fatalf("from %q: expected redirect, got %d", from, res.Code)
		}
		if loc := res.Header().Get("Location"); loc != want {
			t.Fatalf("from %q: expected redirect to %q, got %q", from, want, loc)
		}
	}
}
