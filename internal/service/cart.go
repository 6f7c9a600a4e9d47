package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/Skotchmaster/shop_api/internal/models"
	"github.com/Skotchmaster/shop_api/internal/repo"
)

type CartService struct {
	Cart   CartRepo
	Events EventPublisher
}

func userKey(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func (s *CartService) Add(ctx context.Context, userID, productID uint) (*models.CartItem, error) {
	item, err := s.Cart.AddToCart(ctx, userID, productID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, fmt.Errorf("product %d: %w", productID, ErrNotFound)
		}
		return nil, fmt.Errorf("add to cart: %w", err)
	}

	publish(ctx, s.Events, TopicCart, userKey(userID), Event{
		Type:      "cart_item_added",
		UserID:    userID,
		ProductID: productID,
	})
	return item, nil
}

func (s *CartService) Remove(ctx context.Context, userID, productID uint) (*models.CartItem, error) {
	item, err := s.Cart.DeleteOneFromCart(ctx, userID, productID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, fmt.Errorf("cart item for product %d: %w", productID, ErrNotFound)
		}
		return nil, fmt.Errorf("remove from cart: %w", err)
	}

	publish(ctx, s.Events, TopicCart, userKey(userID), Event{
		Type:      "cart_item_removed",
		UserID:    userID,
		ProductID: productID,
	})
	return item, nil
}

func (s *CartService) View(ctx context.Context, userID uint) ([]models.CartLine, error) {
	return s.Cart.GetCart(ctx, userID)
}

// Checkout clears the cart and reports how many rows went.
func (s *CartService) Checkout(ctx context.Context, userID uint) (int64, error) {
	cleared, err := s.Cart.DeleteAllFromCart(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("checkout: %w", err)
	}

	publish(ctx, s.Events, TopicCart, userKey(userID), Event{
		Type:   "cart_checked_out",
		UserID: userID,
		Count:  cleared,
	})
	return cleared, nil
}
