package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrInvalidLineItem signals that a cart line item failed boundary validation.
var ErrInvalidLineItem = errors.New("domain: invalid cart line item")

// CartItem is a normalized cart line consumed by both pricing engines. Prices and
// weights are fixed-point decimals parsed once at the API or repository boundary.
type CartItem struct {
	ProductID  string
	UnitPrice  decimal.Decimal
	UnitWeight *decimal.Decimal
	Quantity   int
}

// Subtotal returns unit price multiplied by quantity.
func (i CartItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// LineWeight returns the total weight of the line, substituting fallbackPerUnit
// for items without a declared weight.
func (i CartItem) LineWeight(fallbackPerUnit decimal.Decimal) decimal.Decimal {
	weight := fallbackPerUnit
	if i.UnitWeight != nil {
		weight = *i.UnitWeight
	}
	return weight.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// NewCartItem parses the decimal-string representation used on the wire into a
// validated CartItem. Empty unitWeight means the product has no declared weight.
func NewCartItem(productID, unitPrice, unitWeight string, quantity int) (CartItem, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return CartItem{}, fmt.Errorf("%w: product id is required", ErrInvalidLineItem)
	}
	if quantity < 1 {
		return CartItem{}, fmt.Errorf("%w: quantity must be at least 1", ErrInvalidLineItem)
	}

	price, err := decimal.NewFromString(strings.TrimSpace(unitPrice))
	if err != nil {
		return CartItem{}, fmt.Errorf("%w: unit price %q is not a decimal", ErrInvalidLineItem, unitPrice)
	}
	if price.IsNegative() {
		return CartItem{}, fmt.Errorf("%w: unit price must not be negative", ErrInvalidLineItem)
	}

	item := CartItem{
		ProductID: productID,
		UnitPrice: price,
		Quantity:  quantity,
	}

	if trimmed := strings.TrimSpace(unitWeight); trimmed != "" {
		weight, err := decimal.NewFromString(trimmed)
		if err != nil {
			return CartItem{}, fmt.Errorf("%w: unit weight %q is not a decimal", ErrInvalidLineItem, unitWeight)
		}
		if weight.IsNegative() {
			return CartItem{}, fmt.Errorf("%w: unit weight must not be negative", ErrInvalidLineItem)
		}
		item.UnitWeight = &weight
	}

	return item, nil
}

// CartSubtotal sums price × quantity across all lines.
func CartSubtotal(items []CartItem) decimal.Decimal {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.Subtotal())
	}
	return subtotal
}

// CartWeight sums line weights across all lines, substituting fallbackPerUnit for
// items without a declared weight. Pass decimal.Zero to treat unknown weights as
// weightless.
func CartWeight(items []CartItem, fallbackPerUnit decimal.Decimal) decimal.Decimal {
	weight := decimal.Zero
	for _, item := range items {
		weight = weight.Add(item.LineWeight(fallbackPerUnit))
	}
	return weight
}

// Cart is the per-user cart document persisted between sessions.
type Cart struct {
	UserID    string
	Items     []CartItem
	UpdatedAt time.Time
}
