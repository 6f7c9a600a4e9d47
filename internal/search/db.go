package search

import (
	"context"

	"github.com/Skotchmaster/shop_api/internal/models"
)

type productSearcher interface {
	SearchProducts(ctx context.Context, q string, limit int) ([]models.Product, error)
}

// DBIndex searches the products table directly. The table is the source of
// truth, so index writes are no-ops.
type DBIndex struct {
	Products productSearcher
}

func NewDBIndex(products productSearcher) *DBIndex {
	return &DBIndex{Products: products}
}

func (DBIndex) IndexProduct(context.Context, *models.Product) error { return nil }

func (DBIndex) RemoveProduct(context.Context, uint) error { return nil }

func (d *DBIndex) SearchProducts(ctx context.Context, q string, limit int) ([]models.Product, error) {
	return d.Products.SearchProducts(ctx, q, limit)
}
