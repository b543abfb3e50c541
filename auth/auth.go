// Package auth resolves the signed-in customer for a request and exposes it
// to the checkout and payment flows.
package auth

import (
	"context"
	"fmt"
	"strings"

	"checkout-service/models"

	"github.com/golang-jwt/jwt/v4"
)

// State is what the storefront sees of authentication: the user, if any,
// and whether resolution is still pending.
type State struct {
	User    *models.User
	Loading bool
}

// Accessor yields the auth state for the current request.
type Accessor interface {
	Current(ctx context.Context) State
}

type stateKey struct{}

// WithState stores s in ctx.
func WithState(ctx context.Context, s State) context.Context {
	return context.WithValue(ctx, stateKey{}, s)
}

// FromContext returns the state stored by WithState, or a guest state.
func FromContext(ctx context.Context) State {
	if s, ok := ctx.Value(stateKey{}).(State); ok {
		return s
	}
	return State{}
}

// ContextAccessor reads the state placed on the request context by the auth
// middleware.
type ContextAccessor struct{}

func (ContextAccessor) Current(ctx context.Context) State {
	return FromContext(ctx)
}

// TokenParser validates HMAC-signed access tokens.
type TokenParser struct {
	secret []byte
}

func NewTokenParser(secret string) *TokenParser {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return &TokenParser{}
	}
	return &TokenParser{secret: []byte(secret)}
}

// Enabled reports whether a signing secret is configured.
func (p *TokenParser) Enabled() bool {
	return p != nil && p.secret != nil
}

// ParseUser validates tokenStr and returns the user it identifies. The
// "typ" claim, when present, must be "access".
func (p *TokenParser) ParseUser(tokenStr string) (*models.User, error) {
	if !p.Enabled() {
		return nil, fmt.Errorf("JWT secret not configured")
	}

	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return p.secret, nil
	})
	if err != nil || token == nil || !token.Valid {
		return nil, fmt.Errorf("invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}
	if typ, ok := claims["typ"].(string); ok && typ != "access" {
		return nil, fmt.Errorf("invalid token type")
	}

	uid, _ := claims["user_id"].(string)
	if uid == "" {
		uid, _ = claims["sub"].(string)
	}
	if uid == "" {
		return nil, fmt.Errorf("token has no subject")
	}
	email, _ := claims["email"].(string)

	return &models.User{UID: uid, Email: email}, nil
}
