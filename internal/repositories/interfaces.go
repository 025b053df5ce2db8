package repositories

import (
	"context"
	"errors"

	"github.com/tiendaflow/api/internal/domain"
)

// Registry exposes typed repository accessors and lifecycle hooks for dependency injection.
type Registry interface {
	Close(ctx context.Context) error

	ShippingZones() ShippingZoneRepository
	ShippingRates() ShippingRateRepository
	Carts() CartRepository
	AuditLogs() AuditLogRepository
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// IsNotFound reports whether the error chain categorises as a missing entity.
func IsNotFound(err error) bool {
	var repoErr RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsNotFound()
}

// IsConflict reports whether the error chain categorises as a conflicting mutation.
func IsConflict(err error) bool {
	var repoErr RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsConflict()
}

// IsUnavailable reports whether the error chain categorises as a transient outage.
func IsUnavailable(err error) bool {
	var repoErr RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsUnavailable()
}

// ShippingZoneRepository persists store-scoped shipping zones.
type ShippingZoneRepository interface {
	Insert(ctx context.Context, zone domain.ShippingZone) error
	Update(ctx context.Context, zone domain.ShippingZone) error
	Delete(ctx context.Context, zoneID string) error
	FindByID(ctx context.Context, zoneID string) (domain.ShippingZone, error)
	ListByStore(ctx context.Context, storeID string, pager domain.Pagination) (domain.CursorPage[domain.ShippingZone], error)
}

// ShippingRateRepository persists rates in the per-zone subcollection.
type ShippingRateRepository interface {
	Insert(ctx context.Context, rate domain.ShippingRate) error
	Update(ctx context.Context, rate domain.ShippingRate) error
	Delete(ctx context.Context, zoneID, rateID string) error
	FindByID(ctx context.Context, zoneID, rateID string) (domain.ShippingRate, error)
	ListByZone(ctx context.Context, zoneID string, activeOnly bool) ([]domain.ShippingRate, error)
}

// CartRepository owns per-user cart persistence.
type CartRepository interface {
	GetCart(ctx context.Context, userID string) (domain.Cart, error)
	ReplaceItems(ctx context.Context, userID string, items []domain.CartItem) (domain.Cart, error)
}

// AuditLogRepository appends administrative mutation records.
type AuditLogRepository interface {
	Append(ctx context.Context, entry domain.AuditLogEntry) error
}
