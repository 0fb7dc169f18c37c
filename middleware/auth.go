// Package middleware provides the echo middleware that guards
// protected routes with bearer access tokens.
package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	autherrors "github.com/laundryhub/laundryhub-auth/errors"
	"github.com/laundryhub/laundryhub-auth/services"
)

const (
	// ClaimsContextKey is where the middleware stores the verified
	// access claims on the request context.
	ClaimsContextKey = "auth_claims"
	// RawTokenContextKey is where the middleware stores the raw token
	// string, needed by logout and change-password.
	RawTokenContextKey = "auth_raw_token"

	legacyTokenHeader = "x-access-token"
)

// ClaimsFrom returns the claims a passing Bearer middleware stored on
// the context, or nil when the route was not guarded.
func ClaimsFrom(c echo.Context) *services.AccessClaims {
	claims, _ := c.Get(ClaimsContextKey).(*services.AccessClaims)
	return claims
}

// RawTokenFrom returns the raw token string stored by Bearer.
func RawTokenFrom(c echo.Context) string {
	token, _ := c.Get(RawTokenContextKey).(string)
	return token
}

// Bearer builds middleware that requires a valid, non-revoked access
// token. The token is read from the Authorization header or, failing
// that, the legacy x-access-token header. Every failure answers with
// the same 401 body.
func Bearer(auth *services.AuthService, tokens *services.TokenService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := extractToken(c)
			if raw == "" {
				return unauthorized(c)
			}

			claims, err := tokens.Parse(raw)
			if err != nil || claims.ExpiresAt == nil {
				return unauthorized(c)
			}

			revoked, err := auth.IsRevoked(c.Request().Context(), raw, claims.ExpiresAt.Time)
			if err != nil {
				// Revocation state unknown means the token is not
				// trusted.
				log.Error().Err(err).Msg("checking token revocation")
				return unauthorized(c)
			}
			if revoked {
				return unauthorized(c)
			}

			c.Set(ClaimsContextKey, claims)
			c.Set(RawTokenContextKey, raw)
			return next(c)
		}
	}
}

// RequireFullAccess rejects restricted password-change-only tokens.
// It must run after Bearer.
func RequireFullAccess() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims := ClaimsFrom(c)
			if claims == nil || claims.PasswordChangeOnly() {
				return unauthorized(c)
			}
			return next(c)
		}
	}
}

func extractToken(c echo.Context) string {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if header != "" {
		if strings.HasPrefix(header, "Bearer ") || strings.HasPrefix(header, "bearer ") {
			return strings.TrimSpace(header[len("Bearer "):])
		}
		return strings.TrimSpace(header)
	}
	return strings.TrimSpace(c.Request().Header.Get(legacyTokenHeader))
}

func unauthorized(c echo.Context) error {
	authErr := autherrors.NewTokenInvalid()
	return c.JSON(authErr.Status, map[string]interface{}{
		"success": false,
		"message": authErr.Message,
	})
}
