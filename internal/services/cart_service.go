package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/tiendaflow/api/internal/domain"
	"github.com/tiendaflow/api/internal/repositories"
)

// CartManager implements CartService. Carts are stored whole; ReplaceItems swaps the
// full item list rather than patching individual lines.
type CartManager struct {
	carts  repositories.CartRepository
	logger func(context.Context, string, map[string]any)
}

// CartManagerDeps lists the collaborators of CartManager.
type CartManagerDeps struct {
	Carts  repositories.CartRepository
	Logger func(context.Context, string, map[string]any)
}

// NewCartManager constructs a CartManager.
func NewCartManager(deps CartManagerDeps) (*CartManager, error) {
	if deps.Carts == nil {
		return nil, fmt.Errorf("cart service: cart repository is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &CartManager{carts: deps.Carts, logger: logger}, nil
}

// Get loads the user's cart. A user with no stored cart gets an empty one.
func (m *CartManager) Get(ctx context.Context, userID string) (domain.Cart, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.Cart{}, fmt.Errorf("%w: user id is required", ErrCartInvalidInput)
	}
	cart, err := m.carts.GetCart(ctx, userID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return domain.Cart{UserID: userID}, nil
		}
		return domain.Cart{}, fmt.Errorf("load cart for %s: %w", userID, err)
	}
	return cart, nil
}

// ReplaceItems overwrites the cart with the given items. Items must already be
// validated; an empty list clears the cart.
func (m *CartManager) ReplaceItems(ctx context.Context, userID string, items []domain.CartItem) (domain.Cart, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.Cart{}, fmt.Errorf("%w: user id is required", ErrCartInvalidInput)
	}
	for i, item := range items {
		if item.ProductID == "" {
			return domain.Cart{}, fmt.Errorf("%w: item %d has no product id", ErrCartInvalidInput, i)
		}
		if item.Quantity < 1 {
			return domain.Cart{}, fmt.Errorf("%w: item %d has quantity %d", ErrCartInvalidInput, i, item.Quantity)
		}
	}

	cart, err := m.carts.ReplaceItems(ctx, userID, items)
	if err != nil {
		return domain.Cart{}, fmt.Errorf("replace cart items for %s: %w", userID, err)
	}
	m.logger(ctx, "cart_replaced", map[string]any{"user_id": userID, "items": len(items)})
	return cart, nil
}
