package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/jobassist-backend/internal/pkg/ctxutil"
	"github.com/yungbote/jobassist-backend/internal/pkg/logger"
)

func identityRouter(t *testing.T, mw *IdentityMiddleware) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(mw.RequireIdentity())
	r.GET("/whoami", func(c *gin.Context) {
		id, _ := ctxutil.GetIdentity(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"tenant": id.TenantID, "user": id.UserID})
	})
	return r
}

func signed(t *testing.T, secret string, claims Claims, method jwt.SigningMethod) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func TestIdentityFromJWT(t *testing.T) {
	mw, err := NewIdentityMiddleware(logger.Nop(), "jwt", "s3cret")
	require.NoError(t, err)
	r := identityRouter(t, mw)

	tok := signed(t, "s3cret", Claims{
		TenantID: "tenant-a",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}, jwt.SigningMethodHS256)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"tenant":"tenant-a","user":"user-1"}`, rec.Body.String())
}

func TestIdentityRejectsBadTokens(t *testing.T) {
	mw, err := NewIdentityMiddleware(logger.Nop(), "jwt", "s3cret")
	require.NoError(t, err)
	r := identityRouter(t, mw)

	expired := signed(t, "s3cret", Claims{TenantID: "t", RegisteredClaims: jwt.RegisteredClaims{
		Subject: "u", ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	}}, jwt.SigningMethodHS256)
	wrongKey := signed(t, "other", Claims{TenantID: "t", RegisteredClaims: jwt.RegisteredClaims{Subject: "u"}}, jwt.SigningMethodHS256)
	noTenant := signed(t, "s3cret", Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "u"}}, jwt.SigningMethodHS256)

	for name, header := range map[string]string{
		"missing":   "",
		"expired":   "Bearer " + expired,
		"wrong key": "Bearer " + wrongKey,
		"no tenant": "Bearer " + noTenant,
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Contains(t, rec.Body.String(), `"code":"unauthorized"`)
		})
	}
}

func TestIdentityFromHeaders(t *testing.T) {
	mw, err := NewIdentityMiddleware(logger.Nop(), "header", "")
	require.NoError(t, err)
	r := identityRouter(t, mw)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("X-Tenant-Id", "tenant-b")
	req.Header.Set("X-User-Id", "user-9")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.JSONEq(t, `{"tenant":"tenant-b","user":"user-9"}`, rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("X-Tenant-Id", "tenant-b")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestNewIdentityMiddlewareValidatesConfig(t *testing.T) {
	_, err := NewIdentityMiddleware(logger.Nop(), "jwt", "")
	assert.Error(t, err)
	_, err = NewIdentityMiddleware(logger.Nop(), "oidc", "x")
	assert.Error(t, err)
}
