package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RateType enumerates the pricing strategies a store-defined shipping rate can use.
type RateType string

const (
	RateTypeFree        RateType = "free"
	RateTypeFlat        RateType = "flat_rate"
	RateTypeWeightBased RateType = "weight_based"
	RateTypePriceBased  RateType = "price_based"
)

// KnownRateType reports whether the type is one of the supported pricing strategies.
func KnownRateType(t RateType) bool {
	switch t {
	case RateTypeFree, RateTypeFlat, RateTypeWeightBased, RateTypePriceBased:
		return true
	}
	return false
}

// ShippingZone groups store-defined rates and carries the destination match lists.
// Matching a customer address against these lists is not implemented; callers select
// the zone and the lists are persisted untouched.
type ShippingZone struct {
	ID          string
	StoreID     string
	Name        string
	Countries   []string
	States      []string
	PostalCodes []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ShippingRate is a store-owned pricing rule scoped to a zone. Bounds are inclusive;
// a nil bound means 0 (lower) or unbounded (upper).
type ShippingRate struct {
	ID            string
	ZoneID        string
	Name          string
	Type          RateType
	Price         decimal.Decimal
	MinWeight     *decimal.Decimal
	MaxWeight     *decimal.Decimal
	MinPrice      *decimal.Decimal
	MaxPrice      *decimal.Decimal
	EstimatedDays *int
	Active        bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// RateQuote pairs an eligible rate with its computed cost for one cart.
type RateQuote struct {
	Rate ShippingRate
	Cost decimal.Decimal
}

// CarrierQuote is one regional carrier estimate, ready for JSON serialization to a
// checkout UI.
type CarrierQuote struct {
	ID             string
	CarrierCode    string
	CarrierName    string
	ServiceCode    string
	ServiceName    string
	Description    string
	Price          decimal.Decimal
	FormattedPrice string
	EstimatedDays  int
	SupportsCOD    bool
	TrackingURL    string
	Restrictions   []string
}

// AuditLogEntry records one administrative mutation for traceability.
type AuditLogEntry struct {
	ID         string
	ActorUID   string
	StoreID    string
	Action     string
	EntityKind string
	EntityID   string
	Detail     map[string]string
	CreatedAt  time.Time
}
