package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/yungbote/jobassist-backend/internal/http/response"
	"github.com/yungbote/jobassist-backend/internal/pkg/ctxutil"
	"github.com/yungbote/jobassist-backend/internal/pkg/logger"
)

const (
	AuthModeJWT    = "jwt"
	AuthModeHeader = "header"

	headerTenantID = "X-Tenant-Id"
	headerUserID   = "X-User-Id"
)

// Claims is the access token issued by the auth service.
type Claims struct {
	TenantID string `json:"tenant_id"`
	jwt.RegisteredClaims
}

type IdentityMiddleware struct {
	log    *logger.Logger
	mode   string
	secret []byte
}

// NewIdentityMiddleware resolves callers from a bearer token (mode "jwt") or
// from headers set by a trusted gateway (mode "header").
func NewIdentityMiddleware(log *logger.Logger, mode, secret string) (*IdentityMiddleware, error) {
	mode = strings.ToLower(strings.TrimSpace(mode))
	if mode == "" {
		mode = AuthModeJWT
	}
	switch mode {
	case AuthModeJWT:
		if strings.TrimSpace(secret) == "" {
			return nil, fmt.Errorf("JWT_SECRET_KEY is required when AUTH_MODE=jwt")
		}
	case AuthModeHeader:
	default:
		return nil, fmt.Errorf("unknown AUTH_MODE %q", mode)
	}
	return &IdentityMiddleware{
		log:    log.With("Middleware", "IdentityMiddleware"),
		mode:   mode,
		secret: []byte(secret),
	}, nil
}

func (m *IdentityMiddleware) RequireIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		var (
			id  ctxutil.Identity
			err error
		)
		if m.mode == AuthModeHeader {
			id = ctxutil.Identity{
				TenantID: strings.TrimSpace(c.GetHeader(headerTenantID)),
				UserID:   strings.TrimSpace(c.GetHeader(headerUserID)),
			}
		} else {
			id, err = m.fromToken(bearerToken(c))
		}
		if err == nil && !id.Valid() {
			err = fmt.Errorf("missing tenant or user")
		}
		if err != nil {
			m.log.Debug("Rejected request identity", "error", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.NewErrorEnvelope("unauthorized", fmt.Errorf("missing or invalid credentials")))
			return
		}
		c.Request = c.Request.WithContext(ctxutil.WithIdentity(c.Request.Context(), id))
		c.Next()
	}
}

func (m *IdentityMiddleware) fromToken(token string) (ctxutil.Identity, error) {
	if token == "" {
		return ctxutil.Identity{}, fmt.Errorf("missing bearer token")
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return ctxutil.Identity{}, fmt.Errorf("parse token: %w", err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return ctxutil.Identity{}, fmt.Errorf("invalid or expired token")
	}
	return ctxutil.Identity{TenantID: claims.TenantID, UserID: claims.Subject}, nil
}

func bearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
