package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/shop_api/internal/logging"
	"github.com/Skotchmaster/shop_api/internal/middleware/auth"
	"github.com/Skotchmaster/shop_api/internal/service"
	"github.com/Skotchmaster/shop_api/internal/transport"
)

type AuthHTTP struct {
	Svc          *service.AuthService
	CookieSecure bool
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_login")

	var req transport.LoginRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("login_failed", "status", 401, "reason", "malformed body", "error", err)
		return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized. Invalid credentials")
	}

	res, err := h.Svc.Login(ctx, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized. Invalid credentials")
		}
		return internalError(err)
	}

	c.SetCookie(auth.CreateCookie(auth.SessionCookie, res.Token, "/", res.ExpiresAt, h.CookieSecure))
	l.Info("login_successful", "user_id", res.User.ID)

	return c.JSON(http.StatusOK, transport.MessageResponse{Message: "Logged in successfully"})
}

func (h *AuthHTTP) Logout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_logout")

	if err := h.Svc.Logout(ctx, auth.IdentityFrom(c)); err != nil {
		l.Error("logout_failed", "status", 500, "reason", "cannot revoke session", "error", err)
		return internalError(err)
	}

	c.SetCookie(auth.DeleteCookie(auth.SessionCookie, "/", h.CookieSecure))
	l.Info("logout_successful")

	return c.JSON(http.StatusOK, transport.MessageResponse{Message: "Logout successfully"})
}
