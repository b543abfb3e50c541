package middleware

import (
	"strings"

	"checkout-service/apperrors"
	"checkout-service/auth"
	"checkout-service/logger"
	"checkout-service/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Headers set by the API gateway once it has authenticated the caller.
const (
	HeaderUserID      = "X-User-ID"
	HeaderUserEmail   = "X-User-Email"
	HeaderAuthPending = "X-Auth-Pending"
)

// AuthState resolves the caller into an auth.State and stores it on the
// request context. It never rejects a request: guests are a valid state and
// the checkout flow decides what to do with them.
//
// A valid bearer token wins over gateway headers. An invalid token is
// treated as a guest.
func AuthState(parser *auth.TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		state := resolveState(c, parser)
		c.Request = c.Request.WithContext(auth.WithState(c.Request.Context(), state))
		if state.User != nil {
			c.Set("userID", state.User.UID)
		}
		c.Next()
	}
}

func resolveState(c *gin.Context, parser *auth.TokenParser) auth.State {
	if strings.EqualFold(c.GetHeader(HeaderAuthPending), "true") {
		return auth.State{Loading: true}
	}

	if token := bearerToken(c); token != "" && parser.Enabled() {
		user, err := parser.ParseUser(token)
		if err == nil {
			return auth.State{User: user}
		}
		logger.Debug(c, "bearer token rejected", zap.Error(err))
		return auth.State{}
	}

	if uid := strings.TrimSpace(c.GetHeader(HeaderUserID)); uid != "" {
		return auth.State{User: &models.User{
			UID:   uid,
			Email: strings.TrimSpace(c.GetHeader(HeaderUserEmail)),
		}}
	}
	return auth.State{}
}

func bearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	if v, err := c.Cookie("token"); err == nil {
		return v
	}
	return ""
}

// RequireUser rejects callers AuthState resolved to a guest, including
// callers whose auth is still loading.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if auth.FromContext(c.Request.Context()).User == nil {
			c.AbortWithStatusJSON(apperrors.ErrUnauthorized.Code, gin.H{"error": apperrors.ErrUnauthorized})
			return
		}
		c.Next()
	}
}
