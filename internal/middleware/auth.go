package middleware // middleware provides shared request processing for handlers

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/trailhead-labs/tour-booking/internal/httperr"
	"github.com/trailhead-labs/tour-booking/internal/model"
	"github.com/trailhead-labs/tour-booking/internal/token"
)

// UserResolver is the slice of the credential store the middleware needs.
// Lookups already exclude soft-deleted users, so a deactivated account fails
// resolution even with a still-valid token.
type UserResolver interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

const userContextKey = "user"

// CurrentUser returns the user attached by Protect or IsLoggedIn.
func CurrentUser(c echo.Context) (model.User, bool) {
	u, ok := c.Get(userContextKey).(model.User)
	return u, ok
}

// extractToken prefers the Authorization bearer header and falls back to the
// jwt cookie.
func extractToken(c echo.Context) string {
	if auth := c.Request().Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	if ck, err := c.Cookie(token.CookieName); err == nil {
		return ck.Value
	}
	return ""
}

// resolveUser runs the shared verification pipeline: verify signature and
// expiry, resolve the subject, then reject tokens issued before the user's
// last password change.
func resolveUser(c echo.Context, ts *token.Service, users UserResolver, raw string) (model.User, error) {
	claims, err := ts.Verify(raw)
	if err != nil {
		if errors.Is(err, token.ErrExpired) {
			return model.User{}, httperr.TokenExpired()
		}
		return model.User{}, httperr.TokenInvalid()
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, httperr.Unauthorized("The user belonging to this token no longer exist")
		}
		return model.User{}, httperr.Wrap(err)
	}
	if u.ChangedPasswordAfter(claims.IssuedAt) {
		return model.User{}, httperr.Unauthorized("User recently changed password! login again.")
	}
	return u, nil
}

// Protect guards routes that require an authenticated user. On success the
// resolved user is attached to the request context for handlers and page
// rendering; every failure funnels into the central error handler.
func Protect(ts *token.Service, users UserResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := extractToken(c)
			if raw == "" {
				return httperr.Unauthorized("You are not logged in! Please log in to continue")
			}
			u, err := resolveUser(c, ts, users, raw)
			if err != nil {
				return err
			}
			c.Set(userContextKey, u)
			return next(c)
		}
	}
}

// IsLoggedIn runs the same pipeline as Protect for the session cookie only,
// but swallows every failure and simply proceeds without a user. Pages use it
// to render guest and member variants; it must never guard a write.
func IsLoggedIn(ts *token.Service, users UserResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ck, err := c.Cookie(token.CookieName)
			if err != nil || ck.Value == "" {
				return next(c)
			}
			if u, err := resolveUser(c, ts, users, ck.Value); err == nil {
				c.Set(userContextKey, u)
			}
			return next(c)
		}
	}
}

// RestrictTo enforces role-based access. It must run after Protect so the
// user is already resolved; a missing user is an authentication failure, a
// disallowed role is 403.
func RestrictTo(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			u, ok := CurrentUser(c)
			if !ok {
				return httperr.Unauthorized("You are not logged in! Please log in to continue")
			}
			if !allowed[u.Role] {
				return httperr.Forbidden("You do not have permission to perform this action")
			}
			return next(c)
		}
	}
}
