package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"go-erp-backend/internal/apperror"
	"go-erp-backend/internal/auth"
	"go-erp-backend/internal/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// PrincipalKey is the gin context key holding the authorized auth.Principal.
const PrincipalKey = "principal"

// Abort writes the standard error body and stops the chain.
func Abort(c *gin.Context, status int, err error) {
	c.AbortWithStatusJSON(status, apperror.NewResponse(status, err, time.Now()))
}

// Authorize enforces policy on every request. For protected routes it
// requires a Bearer access token whose subject still exists, and an ADMIN
// role where the policy asks for one.
func Authorize(policy *Policy, authority *auth.Authority, users auth.UserDirectory) gin.HandlerFunc {
	return func(c *gin.Context) {
		access := policy.Resolve(c.Request.Method, c.FullPath())
		if access == Public {
			c.Next()
			return
		}

		// 1. Get the token from the "Authorization" header
		header := c.GetHeader("Authorization")
		tokenString, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(tokenString) == "" {
			Abort(c, http.StatusUnauthorized, apperror.ErrUnauthenticated.Withf("authorization header must carry a Bearer token"))
			return
		}

		// 2. Verify signature and expiry
		claims, err := authority.Parse(tokenString)
		if err != nil {
			Abort(c, http.StatusUnauthorized, err)
			return
		}
		if claims.Type != auth.TokenAccess {
			Abort(c, http.StatusUnauthorized, apperror.ErrInvalidToken.Withf("an access token is required"))
			return
		}

		// 3. The subject must still exist; its stored role is authoritative
		principal, err := loadPrincipal(c.Request.Context(), users, claims.Subject)
		if err != nil {
			if errors.Is(err, apperror.ErrUserNotFound) {
				Abort(c, http.StatusUnauthorized, apperror.ErrInvalidToken)
				return
			}
			logger.FromContext(c.Request.Context()).Error("Failed to load token subject", zap.Error(err))
			Abort(c, http.StatusInternalServerError, err)
			return
		}
		if !authority.Validate(tokenString, auth.TokenAccess, &principal) {
			Abort(c, http.StatusUnauthorized, apperror.ErrInvalidToken)
			return
		}

		// 4. Role check
		if access == AdminOnly && !principal.IsAdmin() {
			Abort(c, http.StatusForbidden, apperror.ErrAccessDenied.Withf("administrator role required"))
			return
		}

		c.Set(PrincipalKey, principal)
		if l, ok := c.Get(logger.GinKey); ok {
			if zl, ok := l.(*zap.Logger); ok {
				scoped := zl.With(zap.String("username", principal.Username))
				c.Set(logger.GinKey, scoped)
				c.Request = c.Request.WithContext(logger.WithContext(c.Request.Context(), scoped))
			}
		}
		c.Next()
	}
}

func loadPrincipal(ctx context.Context, users auth.UserDirectory, username string) (auth.Principal, error) {
	user, err := users.FindByUsername(ctx, username)
	if err != nil {
		return auth.Principal{}, err
	}
	return auth.Principal{UserID: user.ID, Username: user.Username, Role: user.Role}, nil
}

// PrincipalFrom returns the principal set by Authorize.
func PrincipalFrom(c *gin.Context) (auth.Principal, bool) {
	v, ok := c.Get(PrincipalKey)
	if !ok {
		return auth.Principal{}, false
	}
	p, ok := v.(auth.Principal)
	return p, ok
}
