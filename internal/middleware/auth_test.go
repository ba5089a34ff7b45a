package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go-erp-backend/internal/apperror"
	"go-erp-backend/internal/auth"
	"go-erp-backend/internal/config"
	"go-erp-backend/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

type stubUsers map[string]*models.User

func (s stubUsers) FindByUsername(_ context.Context, username string) (*models.User, error) {
	if u, ok := s[username]; ok {
		return u, nil
	}
	return nil, apperror.ErrUserNotFound
}

func newTestRouter(t *testing.T) (*gin.Engine, *auth.Authority, stubUsers) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	authority := auth.NewAuthority(config.JWTConfig{
		Secret:            "middleware-test-secret-0123456789abcdef",
		AccessExpiration:  time.Minute,
		RefreshExpiration: time.Hour,
	}, nil)
	users := stubUsers{
		"root":  {ID: 1, Username: "root", Role: models.RoleAdmin},
		"clerk": {ID: 2, Username: "clerk", Role: models.RoleUser},
	}

	r := gin.New()
	r.Use(RequestID(), Authorize(DefaultPolicy(), authority, users))
	r.POST("/api/auth/login", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/api/products", func(c *gin.Context) {
		p, ok := PrincipalFrom(c)
		require.True(t, ok)
		c.JSON(http.StatusOK, gin.H{"username": p.Username})
	})
	r.DELETE("/api/products/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	return r, authority, users
}

func doRequest(r http.Handler, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func issue(t *testing.T, a *auth.Authority, username, role string) auth.TokenPair {
	t.Helper()
	pair, err := a.IssueTokenPair(auth.Principal{Username: username, Role: role})
	require.NoError(t, err)
	return pair
}

func TestAuthorizePublicAndMissingToken(t *testing.T) {
	r, _, _ := newTestRouter(t)

	w := doRequest(r, http.MethodPost, "/api/auth/login", "")
	require.Equal(t, http.StatusNoContent, w.Code)
	require.NotEmpty(t, w.Header().Get(RequestIDHeader))

	w = doRequest(r, http.MethodGet, "/api/products", "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, int64(401), gjson.Get(w.Body.String(), "statusCode").Int())
	require.True(t, gjson.Get(w.Body.String(), "timestamp").Exists())
}

func TestAuthorizeRoles(t *testing.T) {
	r, a, _ := newTestRouter(t)
	clerk := issue(t, a, "clerk", models.RoleUser)
	root := issue(t, a, "root", models.RoleAdmin)

	w := doRequest(r, http.MethodGet, "/api/products", clerk.AccessToken)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "clerk", gjson.Get(w.Body.String(), "username").String())

	w = doRequest(r, http.MethodDelete, "/api/products/1", clerk.AccessToken)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = doRequest(r, http.MethodDelete, "/api/products/1", root.AccessToken)
	require.Equal(t, http.StatusNoContent, w.Code)
}

func TestAuthorizeUsesStoredRole(t *testing.T) {
	r, a, users := newTestRouter(t)
	// Token claims ADMIN, but the account has since been demoted.
	stale := issue(t, a, "clerk", models.RoleAdmin)

	w := doRequest(r, http.MethodDelete, "/api/products/1", stale.AccessToken)
	require.Equal(t, http.StatusForbidden, w.Code)

	delete(users, "clerk")
	w = doRequest(r, http.MethodGet, "/api/products", stale.AccessToken)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthorizeRejectsBadTokens(t *testing.T) {
	r, a, _ := newTestRouter(t)
	pair := issue(t, a, "clerk", models.RoleUser)

	w := doRequest(r, http.MethodGet, "/api/products", pair.RefreshToken)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "an access token is required", gjson.Get(w.Body.String(), "message").String())

	w = doRequest(r, http.MethodGet, "/api/products", "garbage")
	require.Equal(t, http.StatusUnauthorized, w.Code)

	a.SetClock(func() time.Time { return time.Now().Add(time.Hour) })
	w = doRequest(r, http.MethodGet, "/api/products", pair.AccessToken)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "token has expired", gjson.Get(w.Body.String(), "message").String())
}

func TestRequestIDIsPropagated(t *testing.T) {
	r, _, _ := newTestRouter(t)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}
