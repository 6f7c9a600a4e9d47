package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/Skotchmaster/shop_api/internal/logging"
	"github.com/Skotchmaster/shop_api/internal/models"
	"github.com/Skotchmaster/shop_api/internal/repo"
	"github.com/Skotchmaster/shop_api/internal/transport"
)

const (
	SearchLimit = 50
	// MaxNameLength matches the width of the products.name column.
	MaxNameLength = 120
)

type CatalogService struct {
	Products ProductRepo
	Index    ProductIndex
	Events   EventPublisher
}

func productKey(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func notFound(err error, id uint) error {
	if errors.Is(err, repo.ErrNotFound) {
		return fmt.Errorf("product %d: %w", id, ErrNotFound)
	}
	return err
}

func (s *CatalogService) Create(ctx context.Context, req transport.CreateProductRequest) (*models.Product, error) {
	if req.Name == nil || req.Price == nil {
		return nil, fmt.Errorf("%w: name and price are required", ErrValidation)
	}
	if err := checkName(*req.Name); err != nil {
		return nil, err
	}

	prod := &models.Product{Name: *req.Name, Price: *req.Price}
	if req.Description != nil {
		prod.Description = *req.Description
	}
	if err := s.Products.CreateProduct(ctx, prod); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	s.reindex(ctx, prod)
	publish(ctx, s.Events, TopicProducts, productKey(prod.ID), Event{
		Type:      "product_created",
		ProductID: prod.ID,
		Name:      prod.Name,
		Price:     prod.Price,
	})
	return prod, nil
}

func checkName(name string) error {
	if utf8.RuneCountInString(name) > MaxNameLength {
		return fmt.Errorf("%w: name longer than %d characters", ErrValidation, MaxNameLength)
	}
	return nil
}

func (s *CatalogService) Get(ctx context.Context, id uint) (*models.Product, error) {
	prod, err := s.Products.GetProduct(ctx, id)
	if err != nil {
		return nil, notFound(err, id)
	}
	return prod, nil
}

func (s *CatalogService) List(ctx context.Context) ([]models.Product, error) {
	return s.Products.GetProducts(ctx)
}

func (s *CatalogService) Update(ctx context.Context, id uint, req transport.PatchProductRequest) (*models.Product, error) {
	if req.Name != nil {
		if err := checkName(*req.Name); err != nil {
			if _, getErr := s.Get(ctx, id); getErr != nil {
				return nil, getErr
			}
			return nil, err
		}
	}

	prod, err := s.Products.PatchProduct(ctx, id, req)
	if err != nil {
		return nil, notFound(err, id)
	}

	s.reindex(ctx, prod)
	publish(ctx, s.Events, TopicProducts, productKey(prod.ID), Event{
		Type:      "product_updated",
		ProductID: prod.ID,
		Name:      prod.Name,
		Price:     prod.Price,
	})
	return prod, nil
}

func (s *CatalogService) Delete(ctx context.Context, id uint) error {
	if err := s.Products.DeleteProduct(ctx, id); err != nil {
		return notFound(err, id)
	}

	if s.Index != nil {
		if err := s.Index.RemoveProduct(ctx, id); err != nil {
			logging.FromContext(ctx).Error("index_remove_failed", "product_id", id, "error", err)
		}
	}
	publish(ctx, s.Events, TopicProducts, productKey(id), Event{
		Type:      "product_deleted",
		ProductID: id,
	})
	return nil
}

func (s *CatalogService) Search(ctx context.Context, q string) ([]models.Product, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, fmt.Errorf("%w: empty query", ErrValidation)
	}
	if s.Index == nil {
		return make([]models.Product, 0), nil
	}

	hits, err := s.Index.SearchProducts(ctx, q, SearchLimit)
	if err != nil {
		return nil, fmt.Errorf("search products: %w", err)
	}
	if hits == nil {
		hits = make([]models.Product, 0)
	}
	return hits, nil
}

// Reindex copies every stored product into the search index, filling in
// documents missed while the index was disabled or unreachable.
func (s *CatalogService) Reindex(ctx context.Context) (int, error) {
	if s.Index == nil {
		return 0, nil
	}

	prods, err := s.Products.GetProducts(ctx)
	if err != nil {
		return 0, fmt.Errorf("reindex: list products: %w", err)
	}

	if bulk, ok := s.Index.(BulkProductIndex); ok {
		n, err := bulk.IndexProducts(ctx, prods)
		if err != nil {
			return n, fmt.Errorf("reindex: %w", err)
		}
		return n, nil
	}

	indexed := 0
	for n := range prods {
		if err := s.Index.IndexProduct(ctx, &prods[n]); err != nil {
			return indexed, fmt.Errorf("reindex product %d: %w", prods[n].ID, err)
		}
		indexed++
	}
	return indexed, nil
}

func (s *CatalogService) reindex(ctx context.Context, prod *models.Product) {
	if s.Index == nil {
		return
	}
	if err := s.Index.IndexProduct(ctx, prod); err != nil {
		logging.FromContext(ctx).Error("index_failed", "product_id", prod.ID, "error", err)
	}
}
