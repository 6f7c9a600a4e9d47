package httpserver

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/shop_api/internal/middleware/auth"
)

type Deps struct {
	AuthHandler    *AuthHTTP
	ProductHandler *ProductHTTP
	CartHandler    *CartHTTP
	Auth           *auth.SessionAuth
	// Ready reports whether backing stores answer.
	Ready func(ctx context.Context) error
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		if d.Ready != nil {
			if err := d.Ready(c.Request().Context()); err != nil {
				return c.NoContent(http.StatusServiceUnavailable)
			}
		}
		return c.NoContent(http.StatusOK)
	})

	e.GET("/", func(c echo.Context) error { return c.String(http.StatusOK, "API up") })

	e.POST("/login", d.AuthHandler.Login)

	e.GET("/api/products", d.ProductHandler.ListProducts)
	e.GET("/api/products/search", d.ProductHandler.SearchProducts)
	e.GET("/api/products/:id", d.ProductHandler.GetProduct)

	// No group: group middleware also runs for unmatched paths.
	login := d.Auth.RequireLogin

	e.POST("/logout", d.AuthHandler.Logout, login)

	e.POST("/api/products/add", d.ProductHandler.AddProduct, login)
	e.DELETE("/api/products/delete/:id", d.ProductHandler.DeleteProduct, login)
	e.PUT("/api/products/update/:id", d.ProductHandler.UpdateProduct, login)

	e.POST("/api/cart/add/:product_id", d.CartHandler.AddToCart, login)
	e.DELETE("/api/cart/remove/:product_id", d.CartHandler.RemoveFromCart, login)
	e.GET("/api/cart", d.CartHandler.ViewCart, login)
	e.POST("/api/cart/checkout", d.CartHandler.Checkout, login)
}
