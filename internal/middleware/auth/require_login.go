package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/shop_api/internal/logging"
	"github.com/Skotchmaster/shop_api/internal/service"
)

const identityKey = "identity"

type IdentityResolver interface {
	ResolveIdentity(ctx context.Context, token string) (*service.Identity, error)
}

type SessionAuth struct {
	Resolver     IdentityResolver
	CookieSecure bool
}

func NewSessionAuth(resolver IdentityResolver, cookieSecure bool) *SessionAuth {
	return &SessionAuth{Resolver: resolver, CookieSecure: cookieSecure}
}

// RequireLogin stops the request with 401 unless the session cookie names a
// live session.
func (m *SessionAuth) RequireLogin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		l := logging.FromContext(ctx).With("middleware", "require_login")

		cookie, err := c.Cookie(SessionCookie)
		if err != nil || cookie.Value == "" {
			l.Warn("auth_failed", "status", 401, "reason", "missing session cookie")
			return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
		}

		id, err := m.Resolver.ResolveIdentity(ctx, cookie.Value)
		if err != nil {
			if !errors.Is(err, service.ErrUnauthorized) {
				l.Error("auth_failed", "status", 500, "error", err)
				return echo.NewHTTPError(http.StatusInternalServerError, "Internal server error")
			}
			c.SetCookie(DeleteCookie(SessionCookie, "/", m.CookieSecure))
			l.Warn("auth_failed", "status", 401, "reason", "invalid session", "error", err)
			return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
		}

		c.Set(identityKey, id)
		return next(c)
	}
}

// IdentityFrom returns the caller set by RequireLogin, or nil on public routes.
func IdentityFrom(c echo.Context) *service.Identity {
	id, _ := c.Get(identityKey).(*service.Identity)
	return id
}
