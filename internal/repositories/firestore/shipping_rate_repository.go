package firestore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/shopspring/decimal"

	"github.com/tiendaflow/api/internal/domain"
	pfirestore "github.com/tiendaflow/api/internal/platform/firestore"
)

const shippingRateSubcollection = "rates"

// ShippingRateRepository persists rates in the per-zone subcollection
// shipping_zones/{zoneId}/rates. Monetary and weight fields are stored as decimal
// strings; malformed stored values surface as decode errors rather than quoting as
// zero.
type ShippingRateRepository struct {
	provider *pfirestore.Provider
}

type shippingRateDocument struct {
	ZoneID        string    `firestore:"zoneId"`
	Name          string    `firestore:"name"`
	Type          string    `firestore:"type"`
	Price         string    `firestore:"price"`
	MinWeight     string    `firestore:"minWeight,omitempty"`
	MaxWeight     string    `firestore:"maxWeight,omitempty"`
	MinPrice      string    `firestore:"minPrice,omitempty"`
	MaxPrice      string    `firestore:"maxPrice,omitempty"`
	EstimatedDays *int      `firestore:"estimatedDays,omitempty"`
	Active        bool      `firestore:"active"`
	CreatedAt     time.Time `firestore:"createdAt"`
	UpdatedAt     time.Time `firestore:"updatedAt"`
}

// NewShippingRateRepository constructs a Firestore-backed rate repository.
func NewShippingRateRepository(provider *pfirestore.Provider) (*ShippingRateRepository, error) {
	if provider == nil {
		return nil, errors.New("shipping rate repository requires firestore provider")
	}
	return &ShippingRateRepository{provider: provider}, nil
}

func (r *ShippingRateRepository) zoneRates(zoneID string) *pfirestore.BaseRepository[shippingRateDocument] {
	path := fmt.Sprintf("%s/%s/%s", shippingZoneCollection, zoneID, shippingRateSubcollection)
	return pfirestore.NewBaseRepository[shippingRateDocument](r.provider, path, nil, nil)
}

// Insert creates the rate document under its zone.
func (r *ShippingRateRepository) Insert(ctx context.Context, rate domain.ShippingRate) error {
	_, err := r.zoneRates(rate.ZoneID).Create(ctx, rate.ID, rateToDocument(rate))
	return err
}

// Update overwrites an existing rate document.
func (r *ShippingRateRepository) Update(ctx context.Context, rate domain.ShippingRate) error {
	base := r.zoneRates(rate.ZoneID)
	if _, err := base.Get(ctx, rate.ID); err != nil {
		return err
	}
	_, err := base.Set(ctx, rate.ID, rateToDocument(rate))
	return err
}

// Delete removes the rate document from its zone.
func (r *ShippingRateRepository) Delete(ctx context.Context, zoneID, rateID string) error {
	base := r.zoneRates(zoneID)
	if _, err := base.Get(ctx, rateID); err != nil {
		return err
	}
	return base.Delete(ctx, rateID)
}

// FindByID loads one rate from its zone.
func (r *ShippingRateRepository) FindByID(ctx context.Context, zoneID, rateID string) (domain.ShippingRate, error) {
	doc, err := r.zoneRates(zoneID).Get(ctx, rateID)
	if err != nil {
		return domain.ShippingRate{}, err
	}
	return rateFromDocument(doc.ID, doc.Data)
}

// ListByZone returns the rates of one zone, optionally limited to active ones, ordered
// by creation time.
func (r *ShippingRateRepository) ListByZone(ctx context.Context, zoneID string, activeOnly bool) ([]domain.ShippingRate, error) {
	docs, err := r.zoneRates(zoneID).Query(ctx, func(query firestore.Query) firestore.Query {
		if activeOnly {
			query = query.Where("active", "==", true)
		}
		return query
	})
	if err != nil {
		return nil, err
	}

	rates := make([]domain.ShippingRate, 0, len(docs))
	for _, doc := range docs {
		rate, err := rateFromDocument(doc.ID, doc.Data)
		if err != nil {
			return nil, err
		}
		rates = append(rates, rate)
	}
	sort.Slice(rates, func(i, j int) bool { return rates[i].CreatedAt.Before(rates[j].CreatedAt) })
	return rates, nil
}

func rateToDocument(rate domain.ShippingRate) shippingRateDocument {
	doc := shippingRateDocument{
		ZoneID:        rate.ZoneID,
		Name:          rate.Name,
		Type:          string(rate.Type),
		Price:         rate.Price.String(),
		EstimatedDays: rate.EstimatedDays,
		Active:        rate.Active,
		CreatedAt:     rate.CreatedAt.UTC(),
		UpdatedAt:     rate.UpdatedAt.UTC(),
	}
	if rate.MinWeight != nil {
		doc.MinWeight = rate.MinWeight.String()
	}
	if rate.MaxWeight != nil {
		doc.MaxWeight = rate.MaxWeight.String()
	}
	if rate.MinPrice != nil {
		doc.MinPrice = rate.MinPrice.String()
	}
	if rate.MaxPrice != nil {
		doc.MaxPrice = rate.MaxPrice.String()
	}
	return doc
}

func rateFromDocument(id string, doc shippingRateDocument) (domain.ShippingRate, error) {
	price, err := decimal.NewFromString(doc.Price)
	if err != nil {
		return domain.ShippingRate{}, fmt.Errorf("shipping rate %s: stored price %q is not a decimal", id, doc.Price)
	}

	rate := domain.ShippingRate{
		ID:            id,
		ZoneID:        doc.ZoneID,
		Name:          doc.Name,
		Type:          domain.RateType(doc.Type),
		Price:         price,
		EstimatedDays: doc.EstimatedDays,
		Active:        doc.Active,
		CreatedAt:     doc.CreatedAt,
		UpdatedAt:     doc.UpdatedAt,
	}

	bounds := []struct {
		field string
		raw   string
		dst   **decimal.Decimal
	}{
		{"minWeight", doc.MinWeight, &rate.MinWeight},
		{"maxWeight", doc.MaxWeight, &rate.MaxWeight},
		{"minPrice", doc.MinPrice, &rate.MinPrice},
		{"maxPrice", doc.MaxPrice, &rate.MaxPrice},
	}
	for _, bound := range bounds {
		if bound.raw == "" {
			continue
		}
		value, err := decimal.NewFromString(bound.raw)
		if err != nil {
			return domain.ShippingRate{}, fmt.Errorf("shipping rate %s: stored %s %q is not a decimal", id, bound.field, bound.raw)
		}
		*bound.dst = &value
	}
	return rate, nil
}
