package firestore

import (
	"context"
	"errors"

	pfirestore "github.com/tiendaflow/api/internal/platform/firestore"
	"github.com/tiendaflow/api/internal/repositories"
)

// Registry wires the Firestore-backed repositories behind the repositories.Registry
// interface and owns the client lifecycle.
type Registry struct {
	provider *pfirestore.Provider

	zones  *ShippingZoneRepository
	rates  *ShippingRateRepository
	carts  *CartRepository
	audits *AuditLogRepository
}

var _ repositories.Registry = (*Registry)(nil)

// NewRegistry constructs the registry over a shared Firestore provider.
func NewRegistry(provider *pfirestore.Provider) (*Registry, error) {
	if provider == nil {
		return nil, errors.New("registry requires firestore provider")
	}

	zones, err := NewShippingZoneRepository(provider)
	if err != nil {
		return nil, err
	}
	rates, err := NewShippingRateRepository(provider)
	if err != nil {
		return nil, err
	}
	carts, err := NewCartRepository(provider)
	if err != nil {
		return nil, err
	}
	audits, err := NewAuditLogRepository(provider)
	if err != nil {
		return nil, err
	}

	return &Registry{
		provider: provider,
		zones:    zones,
		rates:    rates,
		carts:    carts,
		audits:   audits,
	}, nil
}

// Close releases the underlying Firestore client.
func (r *Registry) Close(ctx context.Context) error {
	return r.provider.Close(ctx)
}

// ShippingZones returns the zone repository.
func (r *Registry) ShippingZones() repositories.ShippingZoneRepository { return r.zones }

// ShippingRates returns the rate repository.
func (r *Registry) ShippingRates() repositories.ShippingRateRepository { return r.rates }

// Carts returns the cart repository.
func (r *Registry) Carts() repositories.CartRepository { return r.carts }

// AuditLogs returns the audit log repository.
func (r *Registry) AuditLogs() repositories.AuditLogRepository { return r.audits }
