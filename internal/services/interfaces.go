package services

import (
	"context"
	"errors"
	"time"

	"github.com/tiendaflow/api/internal/domain"
)

var (
	// ErrShippingInvalidInput signals bad request data such as missing cart items or negative quantities.
	ErrShippingInvalidInput = errors.New("shipping: invalid input")
	// ErrShippingRateInvalid is returned when a rate configuration fails boundary validation.
	ErrShippingRateInvalid = errors.New("shipping: invalid rate configuration")
	// ErrShippingZoneNotFound signals that the referenced zone does not exist.
	ErrShippingZoneNotFound = errors.New("shipping: zone not found")
	// ErrShippingRateNotFound signals that the referenced rate does not exist.
	ErrShippingRateNotFound = errors.New("shipping: rate not found")
	// ErrShippingEstimatorDisabled is returned when the regional estimator is switched off.
	ErrShippingEstimatorDisabled = errors.New("shipping: regional estimator disabled")
	// ErrCartInvalidInput signals malformed cart mutation payloads.
	ErrCartInvalidInput = errors.New("cart: invalid input")
)

// ShippingQuoteService exposes the two read-only pricing operations consumed by checkout.
type ShippingQuoteService interface {
	QuoteStoreRates(ctx context.Context, zoneID string, items []domain.CartItem) ([]domain.RateQuote, error)
	EstimateCarriers(ctx context.Context, req CarrierEstimateRequest) (CarrierEstimate, error)
}

// ShippingAdminService manages the store-owned zone and rate configuration.
type ShippingAdminService interface {
	CreateZone(ctx context.Context, cmd ZoneCommand) (domain.ShippingZone, error)
	UpdateZone(ctx context.Context, zoneID string, cmd ZoneCommand) (domain.ShippingZone, error)
	DeleteZone(ctx context.Context, actorUID, storeID, zoneID string) error
	GetZone(ctx context.Context, storeID, zoneID string) (domain.ShippingZone, error)
	ListZones(ctx context.Context, storeID string, pager domain.Pagination) (domain.CursorPage[domain.ShippingZone], error)

	CreateRate(ctx context.Context, cmd RateCommand) (domain.ShippingRate, error)
	UpdateRate(ctx context.Context, rateID string, cmd RateCommand) (domain.ShippingRate, error)
	DeleteRate(ctx context.Context, actorUID, storeID, zoneID, rateID string) error
	GetRate(ctx context.Context, storeID, zoneID, rateID string) (domain.ShippingRate, error)
	ListRates(ctx context.Context, storeID, zoneID string) ([]domain.ShippingRate, error)
}

// CartService maintains the per-user cart consumed by the pricing engines.
type CartService interface {
	Get(ctx context.Context, userID string) (domain.Cart, error)
	ReplaceItems(ctx context.Context, userID string, items []domain.CartItem) (domain.Cart, error)
}

// AuditLogService records administrative mutations.
type AuditLogService interface {
	Record(ctx context.Context, entry AuditEntry) error
}

// AuditEntry describes one administrative mutation to be recorded.
type AuditEntry struct {
	ActorUID   string
	StoreID    string
	Action     string
	EntityKind string
	EntityID   string
	Detail     map[string]string
}

// ShippingConfigEvent is published whenever zones or rates are mutated so downstream
// caches can invalidate.
type ShippingConfigEvent struct {
	EventID    string    `json:"eventId"`
	StoreID    string    `json:"storeId"`
	EntityKind string    `json:"entityKind"`
	EntityID   string    `json:"entityId"`
	Action     string    `json:"action"`
	OccurredAt time.Time `json:"occurredAt"`
}

// ConfigEventPublisher delivers shipping configuration change events.
type ConfigEventPublisher interface {
	PublishShippingConfigEvent(ctx context.Context, event ShippingConfigEvent) (string, error)
}
