package httpserver

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/shop_api/internal/logging"
	"github.com/Skotchmaster/shop_api/internal/models"
	"github.com/Skotchmaster/shop_api/internal/service"
	"github.com/Skotchmaster/shop_api/internal/transport"
)

type ProductHTTP struct {
	Svc *service.CatalogService
}

var (
	errProductNotFound    = echo.NewHTTPError(http.StatusNotFound, "Product not found")
	errInvalidProductData = echo.NewHTTPError(http.StatusBadRequest, "Invalid product data")
)

// internalError keeps the cause for the request logger and hides it from the client.
func internalError(err error) error {
	return echo.NewHTTPError(http.StatusInternalServerError, "Internal server error").SetInternal(err)
}

func parseID(c echo.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 0)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func summaries(prods []models.Product) []transport.ProductSummary {
	out := make([]transport.ProductSummary, 0, len(prods))
	for _, p := range prods {
		out = append(out, transport.ProductSummary{ID: p.ID, Name: p.Name, Price: p.Price})
	}
	return out
}

func (h *ProductHTTP) AddProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product_add")

	var req transport.CreateProductRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("add_product_failed", "status", 400, "reason", "malformed body", "error", err)
		return errInvalidProductData
	}

	prod, err := h.Svc.Create(ctx, req)
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			l.Warn("add_product_failed", "status", 400, "reason", "validation", "error", err)
			return errInvalidProductData
		}
		return internalError(err)
	}

	l.Info("add_product_successful", "product_id", prod.ID)
	return c.JSON(http.StatusOK, transport.CreatedResponse{Message: "Product added successfully", ID: prod.ID})
}

func (h *ProductHTTP) DeleteProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product_delete")

	id, ok := parseID(c, "id")
	if !ok {
		return errProductNotFound
	}

	if err := h.Svc.Delete(ctx, id); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			l.Warn("delete_product_failed", "status", 404, "product_id", id)
			return errProductNotFound
		}
		return internalError(err)
	}

	l.Info("delete_product_successful", "product_id", id)
	return c.JSON(http.StatusOK, transport.MessageResponse{Message: "Product deleted successfully"})
}

func (h *ProductHTTP) GetProduct(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return errProductNotFound
	}

	prod, err := h.Svc.Get(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return errProductNotFound
		}
		return internalError(err)
	}

	return c.JSON(http.StatusOK, transport.ProductDetails{
		ID:          prod.ID,
		Name:        prod.Name,
		Price:       prod.Price,
		Description: prod.Description,
	})
}

// UpdateProduct reports a missing product before it looks at the body.
func (h *ProductHTTP) UpdateProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product_update")

	id, ok := parseID(c, "id")
	if !ok {
		return errProductNotFound
	}

	var req transport.PatchProductRequest
	if err := c.Bind(&req); err != nil {
		if _, getErr := h.Svc.Get(ctx, id); errors.Is(getErr, service.ErrNotFound) {
			return errProductNotFound
		}
		l.Warn("update_product_failed", "status", 400, "reason", "malformed body", "error", err)
		return errInvalidProductData
	}

	if _, err := h.Svc.Update(ctx, id, req); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			l.Warn("update_product_failed", "status", 404, "product_id", id)
			return errProductNotFound
		}
		if errors.Is(err, service.ErrValidation) {
			l.Warn("update_product_failed", "status", 400, "reason", "validation", "error", err)
			return errInvalidProductData
		}
		return internalError(err)
	}

	l.Info("update_product_successful", "product_id", id)
	return c.JSON(http.StatusOK, transport.MessageResponse{Message: "Product updated successfully"})
}

func (h *ProductHTTP) ListProducts(c echo.Context) error {
	prods, err := h.Svc.List(c.Request().Context())
	if err != nil {
		return internalError(err)
	}
	return c.JSON(http.StatusOK, summaries(prods))
}

func (h *ProductHTTP) SearchProducts(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product_search")

	prods, err := h.Svc.Search(ctx, c.QueryParam("q"))
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			return echo.NewHTTPError(http.StatusBadRequest, "Missing search query")
		}
		l.Error("search_failed", "status", 500, "error", err)
		return internalError(err)
	}
	return c.JSON(http.StatusOK, summaries(prods))
}
