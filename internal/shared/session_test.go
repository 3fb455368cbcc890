package shared_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/meridian-cms/meridian-cms/internal/shared"
	_ "github.com/meridian-cms/meridian-cms/testing"
)

func newSessionManager(t *testing.T) *shared.SessionManager {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return shared.NewSessionManager(client, "test_session", "secret", time.Hour, false)
}

func TestSessionRoundTrip(t *testing.T) {
	manager := newSessionManager(t)
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := manager.Load(ctx, req)
	require.NoError(t, err)

	sess.SetUser("42")
	sess.Set("theme", "dark")

	rec := httptest.NewRecorder()
	require.NoError(t, manager.Commit(ctx, rec, req, sess))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, "test_session", cookies[0].Name)
	require.NotEmpty(t, cookies[0].Value)

	next := httptest.NewRequest(http.MethodGet, "/", nil)
	next.AddCookie(cookies[0])
	reloaded, err := manager.Load(ctx, next)
	require.NoError(t, err)
	require.Equal(t, "42", reloaded.User())
	require.Equal(t, "dark", reloaded.Get("theme"))
}

func TestSessionDestroyClearsStateAndCookie(t *testing.T) {
	manager := newSessionManager(t)
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := manager.Load(ctx, req)
	require.NoError(t, err)
	sess.SetUser("7")

	rec := httptest.NewRecorder()
	require.NoError(t, manager.Commit(ctx, rec, req, sess))
	cookie := rec.Result().Cookies()[0]

	manager.Destroy(sess)
	rec = httptest.NewRecorder()
	require.NoError(t, manager.Commit(ctx, rec, req, sess))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, -1, cookies[0].MaxAge)

	after := httptest.NewRequest(http.MethodGet, "/", nil)
	after.AddCookie(cookie)
	fresh, err := manager.Load(ctx, after)
	require.NoError(t, err)
	require.Empty(t, fresh.User())
}

func TestSessionLoadWithStaleCookieStartsFresh(t *testing.T) {
	manager := newSessionManager(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "test_session", Value: "gone"})

	sess, err := manager.Load(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, "gone", sess.ID)
	require.Empty(t, sess.User())
}
