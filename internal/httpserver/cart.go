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

type CartHTTP struct {
	Svc *service.CartService
}

func (h *CartHTTP) AddToCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart_add")
	user := auth.IdentityFrom(c).User

	productID, ok := parseID(c, "product_id")
	if !ok {
		l.Warn("add_to_cart_failed", "status", 400, "reason", "bad product id", "param", c.Param("product_id"))
		return echo.NewHTTPError(http.StatusBadRequest, "Failed to add item to the cart")
	}

	if _, err := h.Svc.Add(ctx, user.ID, productID); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			l.Warn("add_to_cart_failed", "status", 400, "reason", "product not found", "product_id", productID)
			return echo.NewHTTPError(http.StatusBadRequest, "Failed to add item to the cart")
		}
		return internalError(err)
	}

	return c.JSON(http.StatusOK, transport.MessageResponse{Message: "Item added to the cart successfully"})
}

func (h *CartHTTP) RemoveFromCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart_remove")
	user := auth.IdentityFrom(c).User

	productID, ok := parseID(c, "product_id")
	if !ok {
		l.Warn("remove_from_cart_failed", "status", 400, "reason", "bad product id", "param", c.Param("product_id"))
		return echo.NewHTTPError(http.StatusBadRequest, "Failed to remove item from the cart")
	}

	if _, err := h.Svc.Remove(ctx, user.ID, productID); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			l.Warn("remove_from_cart_failed", "status", 400, "reason", "not in cart", "product_id", productID)
			return echo.NewHTTPError(http.StatusBadRequest, "Failed to remove item from the cart")
		}
		return internalError(err)
	}

	return c.JSON(http.StatusOK, transport.MessageResponse{Message: "Item removed from the cart successfully"})
}

func (h *CartHTTP) ViewCart(c echo.Context) error {
	user := auth.IdentityFrom(c).User

	lines, err := h.Svc.View(c.Request().Context(), user.ID)
	if err != nil {
		return internalError(err)
	}
	return c.JSON(http.StatusOK, lines)
}

func (h *CartHTTP) Checkout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart_checkout")
	user := auth.IdentityFrom(c).User

	cleared, err := h.Svc.Checkout(ctx, user.ID)
	if err != nil {
		l.Error("checkout_failed", "status", 500, "error", err)
		return internalError(err)
	}

	l.Info("checkout_successful", "cleared", cleared)
	return c.JSON(http.StatusOK, transport.MessageResponse{Message: "Checkout successful. Cart has been cleared."})
}
