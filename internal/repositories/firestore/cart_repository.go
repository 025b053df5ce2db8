package firestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tiendaflow/api/internal/domain"
	pfirestore "github.com/tiendaflow/api/internal/platform/firestore"
)

const cartCollection = "carts"

// CartRepository persists per-user carts. The document ID is the user ID and the item
// list is replaced wholesale on every write.
type CartRepository struct {
	base *pfirestore.BaseRepository[cartDocument]
	now  func() time.Time
}

type cartDocument struct {
	Items     []cartItemDocument `firestore:"items"`
	UpdatedAt time.Time          `firestore:"updatedAt"`
}

type cartItemDocument struct {
	ProductID  string `firestore:"productId"`
	UnitPrice  string `firestore:"unitPrice"`
	UnitWeight string `firestore:"unitWeight,omitempty"`
	Quantity   int    `firestore:"quantity"`
}

// NewCartRepository constructs a Firestore-backed cart repository.
func NewCartRepository(provider *pfirestore.Provider) (*CartRepository, error) {
	if provider == nil {
		return nil, errors.New("cart repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[cartDocument](provider, cartCollection, nil, nil)
	return &CartRepository{base: base, now: time.Now}, nil
}

// GetCart loads the user's cart document.
func (r *CartRepository) GetCart(ctx context.Context, userID string) (domain.Cart, error) {
	doc, err := r.base.Get(ctx, userID)
	if err != nil {
		return domain.Cart{}, err
	}
	return cartFromDocument(userID, doc.Data)
}

// ReplaceItems overwrites the cart with the given items.
func (r *CartRepository) ReplaceItems(ctx context.Context, userID string, items []domain.CartItem) (domain.Cart, error) {
	doc := cartDocument{
		Items:     make([]cartItemDocument, 0, len(items)),
		UpdatedAt: r.now().UTC(),
	}
	for _, item := range items {
		line := cartItemDocument{
			ProductID: item.ProductID,
			UnitPrice: item.UnitPrice.String(),
			Quantity:  item.Quantity,
		}
		if item.UnitWeight != nil {
			line.UnitWeight = item.UnitWeight.String()
		}
		doc.Items = append(doc.Items, line)
	}

	result, err := r.base.Set(ctx, userID, doc)
	if err != nil {
		return domain.Cart{}, err
	}
	return domain.Cart{UserID: userID, Items: items, UpdatedAt: result.UpdateTime}, nil
}

func cartFromDocument(userID string, doc cartDocument) (domain.Cart, error) {
	cart := domain.Cart{UserID: userID, UpdatedAt: doc.UpdatedAt}
	for _, line := range doc.Items {
		price, err := decimal.NewFromString(line.UnitPrice)
		if err != nil {
			return domain.Cart{}, fmt.Errorf("cart %s: stored unit price %q is not a decimal", userID, line.UnitPrice)
		}
		item := domain.CartItem{
			ProductID: line.ProductID,
			UnitPrice: price,
			Quantity:  line.Quantity,
		}
		if line.UnitWeight != "" {
			weight, err := decimal.NewFromString(line.UnitWeight)
			if err != nil {
				return domain.Cart{}, fmt.Errorf("cart %s: stored unit weight %q is not a decimal", userID, line.UnitWeight)
			}
			item.UnitWeight = &weight
		}
		cart.Items = append(cart.Items, item)
	}
	return cart, nil
}
