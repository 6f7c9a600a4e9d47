package service

import (
	"context"
	"errors"
	"time"

	"github.com/Skotchmaster/shop_api/internal/logging"
	"github.com/Skotchmaster/shop_api/internal/models"
	"github.com/Skotchmaster/shop_api/internal/transport"
)

var (
	ErrValidation         = errors.New("validation error")
	ErrNotFound           = errors.New("not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = errors.New("unauthorized")
)

const (
	TopicUsers    = "user_events"
	TopicProducts = "product_events"
	TopicCart     = "cart_events"

	publishTimeout = 5 * time.Second
)

type UserRepo interface {
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByID(ctx context.Context, id uint) (*models.User, error)
	CreateUserIfNotExists(ctx context.Context, u *models.User) error
}

type SessionStore interface {
	CreateSession(ctx context.Context, s *models.Session) error
	FindSession(ctx context.Context, id string) (*models.Session, error)
	RevokeSession(ctx context.Context, id string) error
}

type ProductRepo interface {
	GetProduct(ctx context.Context, id uint) (*models.Product, error)
	GetProducts(ctx context.Context) ([]models.Product, error)
	CreateProduct(ctx context.Context, prod *models.Product) error
	PatchProduct(ctx context.Context, id uint, req transport.PatchProductRequest) (*models.Product, error)
	DeleteProduct(ctx context.Context, id uint) error
}

type CartRepo interface {
	GetCart(ctx context.Context, userID uint) ([]models.CartLine, error)
	AddToCart(ctx context.Context, userID, productID uint) (*models.CartItem, error)
	DeleteOneFromCart(ctx context.Context, userID, productID uint) (*models.CartItem, error)
	DeleteAllFromCart(ctx context.Context, userID uint) (int64, error)
}

type EventPublisher interface {
	PublishEvent(ctx context.Context, topic, key string, event any) error
}

// ProductIndex keeps a searchable copy of the catalog.
type ProductIndex interface {
	IndexProduct(ctx context.Context, prod *models.Product) error
	RemoveProduct(ctx context.Context, id uint) error
	SearchProducts(ctx context.Context, q string, limit int) ([]models.Product, error)
}

// BulkProductIndex is a ProductIndex that can load many documents at once.
type BulkProductIndex interface {
	IndexProducts(ctx context.Context, prods []models.Product) (int, error)
}

type Event struct {
	Type      string  `json:"type"`
	UserID    uint    `json:"user_id,omitempty"`
	ProductID uint    `json:"product_id,omitempty"`
	Name      string  `json:"name,omitempty"`
	Price     float64 `json:"price,omitempty"`
	Count     int64   `json:"count,omitempty"`
	At        int64   `json:"at"`
}

// publish never fails the caller: the database already committed.
func publish(ctx context.Context, pub EventPublisher, topic, key string, ev Event) {
	if pub == nil {
		return
	}
	ev.At = time.Now().Unix()

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	if err := pub.PublishEvent(ctx, topic, key, ev); err != nil {
		logging.FromContext(ctx).Error("publish_failed", "topic", topic, "type", ev.Type, "error", err)
	}
}
