package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"deepfake_shield/internal/db"
	"deepfake_shield/internal/domain"
	"deepfake_shield/internal/kv"
	"deepfake_shield/internal/session"
	"deepfake_shield/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

type lookup map[uint]domain.User

func (l lookup) GetUserByID(_ context.Context, id uint) (domain.User, error) {
	u, ok := l[id]
	if !ok {
		return domain.User{}, db.ErrNotFound
	}
	return u, nil
}

type closedStore struct{}

func (closedStore) GetUserByID(context.Context, uint) (domain.User, error) {
	return domain.User{}, db.ErrUninitialized
}

var users = lookup{
	1: {ID: 1, Username: "admin", Role: domain.RoleAdmin},
	2: {ID: 2, Username: "Grandma", Role: domain.RolePlayer},
}

func loggedIn(t *testing.T, storage kv.Store, sid string, u domain.User) string {
	t.Helper()
	sess, err := session.Open(context.Background(), storage, sid)
	require.NoError(t, err)
	require.NoError(t, sess.Login(context.Background(), u))
	token, err := utils.GenerateJWT(sid, u.ID, secret)
	require.NoError(t, err)
	return token
}

func newRouter(storage kv.Store, store UserLookup) *gin.Engine {
	r := gin.New()
	auth := r.Group("/", JWTAuthMiddleware(secret, storage))
	auth.GET("/me", func(c *gin.Context) {
		sess, ok := CurrentSession(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		u, _ := sess.User()
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetUint(ContextUserID), "username": u.Username})
	})
	auth.GET("/admin", AdminOnlyMiddleware(store), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func do(r http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTAuth(t *testing.T) {
	storage := kv.NewMemory()
	r := newRouter(storage, users)
	token := loggedIn(t, storage, "sid-1", users[2])

	w := do(r, "/me", token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":2,"username":"Grandma"}`, w.Body.String())

	w = do(r, "/me?token="+token, "")
	assert.Equal(t, http.StatusOK, w.Code, "query token for event streams")

	assert.Equal(t, http.StatusUnauthorized, do(r, "/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "/me", "garbage").Code)

	other, err := utils.GenerateJWT("sid-1", 2, "other-secret")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, do(r, "/me", other).Code)
}

func TestJWTAuth_LoggedOutSession(t *testing.T) {
	storage := kv.NewMemory()
	r := newRouter(storage, users)
	token := loggedIn(t, storage, "sid-1", users[2])

	require.NoError(t, storage.Delete(context.Background(), session.UserKey("sid-1")))
	w := do(r, "/me", token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"Session expired"}`, w.Body.String())
}

func TestJWTAuth_CorruptedSession(t *testing.T) {
	storage := kv.NewMemory()
	r := newRouter(storage, users)
	token := loggedIn(t, storage, "sid-1", users[2])

	require.NoError(t, storage.Set(context.Background(), session.UserKey("sid-1"), "{not json", 0))
	assert.Equal(t, http.StatusUnauthorized, do(r, "/me", token).Code)
}

func TestJWTAuth_TokenForAnotherUser(t *testing.T) {
	storage := kv.NewMemory()
	r := newRouter(storage, users)
	loggedIn(t, storage, "sid-1", users[2])

	forged, err := utils.GenerateJWT("sid-1", 1, secret)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, do(r, "/me", forged).Code)
}

func TestAdminOnly(t *testing.T) {
	storage := kv.NewMemory()
	r := newRouter(storage, users)

	assert.Equal(t, http.StatusNoContent, do(r, "/admin", loggedIn(t, storage, "sid-a", users[1])).Code)
	assert.Equal(t, http.StatusForbidden, do(r, "/admin", loggedIn(t, storage, "sid-p", users[2])).Code)

	closed := newRouter(storage, closedStore{})
	assert.Equal(t, http.StatusServiceUnavailable, do(closed, "/admin", loggedIn(t, storage, "sid-c", users[1])).Code)
}

func TestIPRateLimiter(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	l := NewIPRateLimiter(1, 2)
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("10.0.0.1"))
	assert.True(t, l.Allow("10.0.0.1"))
	assert.False(t, l.Allow("10.0.0.1"), "burst exhausted")
	assert.True(t, l.Allow("10.0.0.2"), "limits are per IP")

	now = now.Add(time.Second)
	assert.True(t, l.Allow("10.0.0.1"), "refilled")

	now = now.Add(2 * limiterIdle)
	l.Allow("10.0.0.3")
	l.mu.Lock()
	assert.Len(t, l.clients, 1, "idle clients are evicted")
	l.mu.Unlock()
}

func TestIPRateLimiter_Middleware(t *testing.T) {
	l := NewIPRateLimiter(0.001, 1)
	r := gin.New()
	r.POST("/session", l.Middleware(), func(c *gin.Context) { c.Status(http.StatusOK) })

	post := func() int {
		req := httptest.NewRequest(http.MethodPost, "/session", nil)
		req.RemoteAddr = "192.0.2.1:1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}
	assert.Equal(t, http.StatusOK, post())
	assert.Equal(t, http.StatusTooManyRequests, post())
}
