package shared

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) *SessionManager {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSessionManager(client, "test_session", "secret", time.Hour, false)
}

func commitSession(t *testing.T, sm *SessionManager, sess *Session) *http.Cookie {
	t.Helper()
	res := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	require.NoError(t, sm.Commit(context.Background(), res, req, sess))
	for _, c := range res.Result().Cookies() {
		if c.Name == sm.CookieName() {
			return c
		}
	}
	t.Fatal("no session cookie issued")
	return nil
}

func TestSessionRoundTripsClaim(t *testing.T) {
	sm := newTestManager(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(context.Background(), req)
	require.NoError(t, err)
	sess.SetUser("1")
	sess.SetClaim(Claim{Role: "Admin", Email: "admin@papyrus.shop", Name: "Priya"})
	cookie := commitSession(t, sm, sess)

	again := httptest.NewRequest(http.MethodGet, "/", nil)
	again.AddCookie(cookie)
	loaded, err := sm.Load(context.Background(), again)
	require.NoError(t, err)
	assert.Equal(t, "1", loaded.User())
	assert.Equal(t, "Admin", loaded.Claim().Role)
	assert.Equal(t, "Priya", loaded.Claim().Name)
}

func TestSessionRejectsTamperedCookie(t *testing.T) {
	sm := newTestManager(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(context.Background(), req)
	require.NoError(t, err)
	sess.SetUser("1")
	commitSession(t, sm, sess)

	// Right session ID, wrong signature: the stored session must not
	// resolve.
	forged := httptest.NewRequest(http.MethodGet, "/", nil)
	forged.AddCookie(&http.Cookie{Name: sm.CookieName(), Value: sess.ID + ".forged"})
	loaded, err := sm.Load(context.Background(), forged)
	require.NoError(t, err)
	assert.Empty(t, loaded.User())
	assert.NotEqual(t, sess.ID, loaded.ID)
}

func TestSessionFlashPopsOnce(t *testing.T) {
	sm := newTestManager(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(context.Background(), req)
	require.NoError(t, err)
	sess.AddFlash(FlashMessage{Kind: "success", Message: "Saved"})
	cookie := commitSession(t, sm, sess)

	second := httptest.NewRequest(http.MethodGet, "/", nil)
	second.AddCookie(cookie)
	loaded, err := sm.Load(context.Background(), second)
	require.NoError(t, err)
	flash := loaded.PopFlash()
	require.NotNil(t, flash)
	assert.Equal(t, "Saved", flash.Message)
	assert.Nil(t, loaded.PopFlash())
	commitSession(t, sm, loaded)

	third := httptest.NewRequest(http.MethodGet, "/", nil)
	third.AddCookie(cookie)
	reloaded, err := sm.Load(context.Background(), third)
	require.NoError(t, err)
	assert.Nil(t, reloaded.PopFlash(), "a popped flash must not survive the commit")
}

func TestDestroyByIDRemovesStoredSession(t *testing.T) {
	sm := newTestManager(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(context.Background(), req)
	require.NoError(t, err)
	sess.SetUser("1")
	cookie := commitSession(t, sm, sess)

	require.NoError(t, sm.DestroyByID(context.Background(), sess.ID))

	again := httptest.NewRequest(http.MethodGet, "/", nil)
	again.AddCookie(cookie)
	loaded, err := sm.Load(context.Background(), again)
	require.NoError(t, err)
	assert.Empty(t, loaded.User(), "a destroyed session comes back anonymous")
}
