package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/tiendaflow/api/internal/domain"
)

// StoreRateEngine evaluates store-owner-configured shipping rates against a cart.
// It is a pure computation: rates are typically pre-scoped to one zone by the caller
// and the engine performs no persistence or zone matching itself.
type StoreRateEngine struct {
	logger func(context.Context, string, map[string]any)
}

// StoreRateEngineDeps collects optional collaborators for the engine.
type StoreRateEngineDeps struct {
	Logger func(context.Context, string, map[string]any)
}

// NewStoreRateEngine constructs a StoreRateEngine.
func NewStoreRateEngine(deps StoreRateEngineDeps) (*StoreRateEngine, error) {
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &StoreRateEngine{logger: logger}, nil
}

// CalculateForAll evaluates every rate against the cart, discards ineligible ones,
// and returns the remainder sorted ascending by computed cost.
func (e *StoreRateEngine) CalculateForAll(ctx context.Context, rates []domain.ShippingRate, items []domain.CartItem) ([]domain.RateQuote, error) {
	if err := validateCartItems(items); err != nil {
		return nil, err
	}

	subtotal := domain.CartSubtotal(items)
	// Unknown weights count as zero for store-defined rates.
	weight := domain.CartWeight(items, decimal.Zero)

	quotes := make([]domain.RateQuote, 0, len(rates))
	for _, rate := range rates {
		cost, eligible := evaluateRate(rate, subtotal, weight)
		if !eligible {
			continue
		}
		if cost.IsZero() && rate.Type != domain.RateTypeFree {
			e.logger(ctx, "store_rate_zero_price", map[string]any{
				"rate_id":   rate.ID,
				"rate_type": string(rate.Type),
			})
		}
		quotes = append(quotes, domain.RateQuote{Rate: rate, Cost: cost})
	}

	sort.SliceStable(quotes, func(i, j int) bool {
		return quotes[i].Cost.LessThan(quotes[j].Cost)
	})
	return quotes, nil
}

// FindCheapest returns the lowest-cost eligible rate. The boolean reports whether any
// rate was eligible; an empty result is a legitimate outcome, not an error.
func (e *StoreRateEngine) FindCheapest(ctx context.Context, rates []domain.ShippingRate, items []domain.CartItem) (domain.RateQuote, bool, error) {
	quotes, err := e.CalculateForAll(ctx, rates, items)
	if err != nil {
		return domain.RateQuote{}, false, err
	}
	if len(quotes) == 0 {
		return domain.RateQuote{}, false, nil
	}
	return quotes[0], true, nil
}

// evaluateRate applies one rate's type-specific eligibility window and returns its
// cost. Bounds are inclusive; a missing bound means 0 (lower) or unbounded (upper).
// A zero price on a non-free rate is carried through as cost zero: configuration is
// validated at the creation boundary, and documents written before that validation
// existed still have to quote.
func evaluateRate(rate domain.ShippingRate, subtotal, weight decimal.Decimal) (decimal.Decimal, bool) {
	switch rate.Type {
	case domain.RateTypeFree:
		return decimal.Zero, true
	case domain.RateTypeFlat:
		return rate.Price, true
	case domain.RateTypeWeightBased:
		if !withinBounds(weight, rate.MinWeight, rate.MaxWeight) {
			return decimal.Zero, false
		}
		return rate.Price, true
	case domain.RateTypePriceBased:
		if !withinBounds(subtotal, rate.MinPrice, rate.MaxPrice) {
			return decimal.Zero, false
		}
		return rate.Price, true
	default:
		return decimal.Zero, false
	}
}

func withinBounds(value decimal.Decimal, min, max *decimal.Decimal) bool {
	if min != nil && value.LessThan(*min) {
		return false
	}
	if max != nil && value.GreaterThan(*max) {
		return false
	}
	return true
}

func validateCartItems(items []domain.CartItem) error {
	for i, item := range items {
		if item.Quantity < 1 {
			return fmt.Errorf("%w: item %d has quantity %d", ErrShippingInvalidInput, i, item.Quantity)
		}
		if item.UnitPrice.IsNegative() {
			return fmt.Errorf("%w: item %d has negative unit price", ErrShippingInvalidInput, i)
		}
		if item.UnitWeight != nil && item.UnitWeight.IsNegative() {
			return fmt.Errorf("%w: item %d has negative unit weight", ErrShippingInvalidInput, i)
		}
	}
	return nil
}
