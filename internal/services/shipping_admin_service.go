package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"

	"github.com/tiendaflow/api/internal/domain"
	"github.com/tiendaflow/api/internal/repositories"
)

// ZoneCommand carries the inputs for creating or updating a shipping zone.
type ZoneCommand struct {
	ActorUID    string
	StoreID     string
	Name        string
	Countries   []string
	States      []string
	PostalCodes []string
}

// RateCommand carries the inputs for creating or updating a shipping rate. Monetary
// and weight fields arrive as decimal strings and are parsed and validated here, at
// the mutation boundary, so documents never hold malformed configuration.
type RateCommand struct {
	ActorUID      string
	StoreID       string
	ZoneID        string
	Name          string
	Type          string
	Price         string
	MinWeight     string
	MaxWeight     string
	MinPrice      string
	MaxPrice      string
	EstimatedDays *int
	Active        bool
}

// ShippingAdminManager implements ShippingAdminService against Firestore-backed
// repositories, recording every mutation in the audit log and publishing a
// configuration change event for downstream caches.
type ShippingAdminManager struct {
	zones     repositories.ShippingZoneRepository
	rates     repositories.ShippingRateRepository
	audit     AuditLogService
	publisher ConfigEventPublisher
	logger    func(context.Context, string, map[string]any)
	now       func() time.Time
	newID     func() string
}

// ShippingAdminManagerDeps lists the collaborators of ShippingAdminManager. Audit and
// Publisher are optional; Now and NewID default to wall clock and ULIDs.
type ShippingAdminManagerDeps struct {
	Zones     repositories.ShippingZoneRepository
	Rates     repositories.ShippingRateRepository
	Audit     AuditLogService
	Publisher ConfigEventPublisher
	Logger    func(context.Context, string, map[string]any)
	Now       func() time.Time
	NewID     func() string
}

// NewShippingAdminManager constructs a ShippingAdminManager.
func NewShippingAdminManager(deps ShippingAdminManagerDeps) (*ShippingAdminManager, error) {
	if deps.Zones == nil {
		return nil, fmt.Errorf("shipping admin: zone repository is required")
	}
	if deps.Rates == nil {
		return nil, fmt.Errorf("shipping admin: rate repository is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	newID := deps.NewID
	if newID == nil {
		newID = func() string { return ulid.Make().String() }
	}
	return &ShippingAdminManager{
		zones:     deps.Zones,
		rates:     deps.Rates,
		audit:     deps.Audit,
		publisher: deps.Publisher,
		logger:    logger,
		now:       now,
		newID:     newID,
	}, nil
}

// CreateZone validates and persists a new shipping zone.
func (m *ShippingAdminManager) CreateZone(ctx context.Context, cmd ZoneCommand) (domain.ShippingZone, error) {
	if err := validateZoneCommand(cmd); err != nil {
		return domain.ShippingZone{}, err
	}

	now := m.now().UTC()
	zone := domain.ShippingZone{
		ID:          m.newID(),
		StoreID:     strings.TrimSpace(cmd.StoreID),
		Name:        strings.TrimSpace(cmd.Name),
		Countries:   cmd.Countries,
		States:      cmd.States,
		PostalCodes: cmd.PostalCodes,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := m.zones.Insert(ctx, zone); err != nil {
		return domain.ShippingZone{}, fmt.Errorf("insert zone: %w", err)
	}

	m.recordMutation(ctx, cmd.ActorUID, zone.StoreID, "zone.create", "shipping_zone", zone.ID, map[string]string{"name": zone.Name})
	return zone, nil
}

// UpdateZone validates and persists changes to an existing zone.
func (m *ShippingAdminManager) UpdateZone(ctx context.Context, zoneID string, cmd ZoneCommand) (domain.ShippingZone, error) {
	if err := validateZoneCommand(cmd); err != nil {
		return domain.ShippingZone{}, err
	}

	existing, err := m.loadZone(ctx, strings.TrimSpace(cmd.StoreID), zoneID)
	if err != nil {
		return domain.ShippingZone{}, err
	}

	existing.Name = strings.TrimSpace(cmd.Name)
	existing.Countries = cmd.Countries
	existing.States = cmd.States
	existing.PostalCodes = cmd.PostalCodes
	existing.UpdatedAt = m.now().UTC()

	if err := m.zones.Update(ctx, existing); err != nil {
		return domain.ShippingZone{}, fmt.Errorf("update zone %s: %w", zoneID, err)
	}

	m.recordMutation(ctx, cmd.ActorUID, existing.StoreID, "zone.update", "shipping_zone", existing.ID, map[string]string{"name": existing.Name})
	return existing, nil
}

// DeleteZone removes a zone. Rates under the zone become unreachable and are removed
// lazily; callers listing rates for a deleted zone get a not-found error.
func (m *ShippingAdminManager) DeleteZone(ctx context.Context, actorUID, storeID, zoneID string) error {
	zone, err := m.loadZone(ctx, storeID, zoneID)
	if err != nil {
		return err
	}
	if err := m.zones.Delete(ctx, zone.ID); err != nil {
		return fmt.Errorf("delete zone %s: %w", zoneID, err)
	}
	m.recordMutation(ctx, actorUID, zone.StoreID, "zone.delete", "shipping_zone", zone.ID, nil)
	return nil
}

// GetZone loads one zone scoped to a store.
func (m *ShippingAdminManager) GetZone(ctx context.Context, storeID, zoneID string) (domain.ShippingZone, error) {
	return m.loadZone(ctx, storeID, zoneID)
}

// ListZones pages through the zones of one store.
func (m *ShippingAdminManager) ListZones(ctx context.Context, storeID string, pager domain.Pagination) (domain.CursorPage[domain.ShippingZone], error) {
	storeID = strings.TrimSpace(storeID)
	if storeID == "" {
		return domain.CursorPage[domain.ShippingZone]{}, fmt.Errorf("%w: store id is required", ErrShippingInvalidInput)
	}
	page, err := m.zones.ListByStore(ctx, storeID, pager)
	if err != nil {
		return domain.CursorPage[domain.ShippingZone]{}, fmt.Errorf("list zones for store %s: %w", storeID, err)
	}
	return page, nil
}

// CreateRate validates and persists a new rate under its zone.
func (m *ShippingAdminManager) CreateRate(ctx context.Context, cmd RateCommand) (domain.ShippingRate, error) {
	zone, err := m.loadZone(ctx, strings.TrimSpace(cmd.StoreID), strings.TrimSpace(cmd.ZoneID))
	if err != nil {
		return domain.ShippingRate{}, err
	}

	rate, err := rateFromCommand(cmd)
	if err != nil {
		return domain.ShippingRate{}, err
	}
	now := m.now().UTC()
	rate.ID = m.newID()
	rate.ZoneID = zone.ID
	rate.CreatedAt = now
	rate.UpdatedAt = now

	if err := m.rates.Insert(ctx, rate); err != nil {
		return domain.ShippingRate{}, fmt.Errorf("insert rate: %w", err)
	}

	m.recordMutation(ctx, cmd.ActorUID, zone.StoreID, "rate.create", "shipping_rate", rate.ID, map[string]string{
		"zone_id": zone.ID,
		"type":    string(rate.Type),
	})
	return rate, nil
}

// UpdateRate validates and persists changes to an existing rate.
func (m *ShippingAdminManager) UpdateRate(ctx context.Context, rateID string, cmd RateCommand) (domain.ShippingRate, error) {
	zone, err := m.loadZone(ctx, strings.TrimSpace(cmd.StoreID), strings.TrimSpace(cmd.ZoneID))
	if err != nil {
		return domain.ShippingRate{}, err
	}

	existing, err := m.loadRate(ctx, zone.ID, rateID)
	if err != nil {
		return domain.ShippingRate{}, err
	}

	updated, err := rateFromCommand(cmd)
	if err != nil {
		return domain.ShippingRate{}, err
	}
	updated.ID = existing.ID
	updated.ZoneID = existing.ZoneID
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = m.now().UTC()

	if err := m.rates.Update(ctx, updated); err != nil {
		return domain.ShippingRate{}, fmt.Errorf("update rate %s: %w", rateID, err)
	}

	m.recordMutation(ctx, cmd.ActorUID, zone.StoreID, "rate.update", "shipping_rate", updated.ID, map[string]string{
		"zone_id": zone.ID,
		"type":    string(updated.Type),
	})
	return updated, nil
}

// DeleteRate removes a rate from its zone.
func (m *ShippingAdminManager) DeleteRate(ctx context.Context, actorUID, storeID, zoneID, rateID string) error {
	zone, err := m.loadZone(ctx, storeID, zoneID)
	if err != nil {
		return err
	}
	if _, err := m.loadRate(ctx, zone.ID, rateID); err != nil {
		return err
	}
	if err := m.rates.Delete(ctx, zone.ID, rateID); err != nil {
		return fmt.Errorf("delete rate %s: %w", rateID, err)
	}
	m.recordMutation(ctx, actorUID, zone.StoreID, "rate.delete", "shipping_rate", rateID, map[string]string{"zone_id": zone.ID})
	return nil
}

// GetRate loads one rate scoped to its store and zone.
func (m *ShippingAdminManager) GetRate(ctx context.Context, storeID, zoneID, rateID string) (domain.ShippingRate, error) {
	zone, err := m.loadZone(ctx, storeID, zoneID)
	if err != nil {
		return domain.ShippingRate{}, err
	}
	return m.loadRate(ctx, zone.ID, rateID)
}

// ListRates returns every rate of a zone, active or not, for the admin UI.
func (m *ShippingAdminManager) ListRates(ctx context.Context, storeID, zoneID string) ([]domain.ShippingRate, error) {
	zone, err := m.loadZone(ctx, storeID, zoneID)
	if err != nil {
		return nil, err
	}
	rates, err := m.rates.ListByZone(ctx, zone.ID, false)
	if err != nil {
		return nil, fmt.Errorf("list rates for zone %s: %w", zoneID, err)
	}
	return rates, nil
}

func (m *ShippingAdminManager) loadZone(ctx context.Context, storeID, zoneID string) (domain.ShippingZone, error) {
	zoneID = strings.TrimSpace(zoneID)
	if zoneID == "" {
		return domain.ShippingZone{}, fmt.Errorf("%w: zone id is required", ErrShippingInvalidInput)
	}
	zone, err := m.zones.FindByID(ctx, zoneID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return domain.ShippingZone{}, fmt.Errorf("%w: %s", ErrShippingZoneNotFound, zoneID)
		}
		return domain.ShippingZone{}, fmt.Errorf("load zone %s: %w", zoneID, err)
	}
	if storeID != "" && zone.StoreID != storeID {
		return domain.ShippingZone{}, fmt.Errorf("%w: %s", ErrShippingZoneNotFound, zoneID)
	}
	return zone, nil
}

func (m *ShippingAdminManager) loadRate(ctx context.Context, zoneID, rateID string) (domain.ShippingRate, error) {
	rateID = strings.TrimSpace(rateID)
	if rateID == "" {
		return domain.ShippingRate{}, fmt.Errorf("%w: rate id is required", ErrShippingInvalidInput)
	}
	rate, err := m.rates.FindByID(ctx, zoneID, rateID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return domain.ShippingRate{}, fmt.Errorf("%w: %s", ErrShippingRateNotFound, rateID)
		}
		return domain.ShippingRate{}, fmt.Errorf("load rate %s: %w", rateID, err)
	}
	return rate, nil
}

// recordMutation writes the audit entry and publishes the configuration change event.
// Both are best effort: a persisted mutation is never rolled back over telemetry.
func (m *ShippingAdminManager) recordMutation(ctx context.Context, actorUID, storeID, action, entityKind, entityID string, detail map[string]string) {
	if m.audit != nil {
		entry := AuditEntry{
			ActorUID:   actorUID,
			StoreID:    storeID,
			Action:     action,
			EntityKind: entityKind,
			EntityID:   entityID,
			Detail:     detail,
		}
		if err := m.audit.Record(ctx, entry); err != nil {
			m.logger(ctx, "audit_record_failed", map[string]any{"action": action, "entity_id": entityID, "error": err.Error()})
		}
	}
	if m.publisher != nil {
		event := ShippingConfigEvent{
			EventID:    m.newID(),
			StoreID:    storeID,
			EntityKind: entityKind,
			EntityID:   entityID,
			Action:     action,
			OccurredAt: m.now().UTC(),
		}
		if _, err := m.publisher.PublishShippingConfigEvent(ctx, event); err != nil {
			m.logger(ctx, "config_event_publish_failed", map[string]any{"action": action, "entity_id": entityID, "error": err.Error()})
		}
	}
}

func validateZoneCommand(cmd ZoneCommand) error {
	if strings.TrimSpace(cmd.StoreID) == "" {
		return fmt.Errorf("%w: store id is required", ErrShippingInvalidInput)
	}
	if strings.TrimSpace(cmd.Name) == "" {
		return fmt.Errorf("%w: zone name is required", ErrShippingInvalidInput)
	}
	return nil
}

// rateFromCommand parses and validates a RateCommand into a domain rate. Bounds are
// only meaningful for the matching rate type and must not be inverted.
func rateFromCommand(cmd RateCommand) (domain.ShippingRate, error) {
	name := strings.TrimSpace(cmd.Name)
	if name == "" {
		return domain.ShippingRate{}, fmt.Errorf("%w: rate name is required", ErrShippingRateInvalid)
	}

	rateType := domain.RateType(strings.TrimSpace(cmd.Type))
	if !domain.KnownRateType(rateType) {
		return domain.ShippingRate{}, fmt.Errorf("%w: unknown rate type %q", ErrShippingRateInvalid, cmd.Type)
	}

	price := decimal.Zero
	if rateType != domain.RateTypeFree {
		parsed, err := parseRateDecimal("price", cmd.Price)
		if err != nil {
			return domain.ShippingRate{}, err
		}
		if parsed == nil || !parsed.IsPositive() {
			return domain.ShippingRate{}, fmt.Errorf("%w: price must be positive for %s rates", ErrShippingRateInvalid, rateType)
		}
		price = *parsed
	}

	minWeight, err := parseRateDecimal("minWeight", cmd.MinWeight)
	if err != nil {
		return domain.ShippingRate{}, err
	}
	maxWeight, err := parseRateDecimal("maxWeight", cmd.MaxWeight)
	if err != nil {
		return domain.ShippingRate{}, err
	}
	minPrice, err := parseRateDecimal("minPrice", cmd.MinPrice)
	if err != nil {
		return domain.ShippingRate{}, err
	}
	maxPrice, err := parseRateDecimal("maxPrice", cmd.MaxPrice)
	if err != nil {
		return domain.ShippingRate{}, err
	}

	if rateType != domain.RateTypeWeightBased && (minWeight != nil || maxWeight != nil) {
		return domain.ShippingRate{}, fmt.Errorf("%w: weight bounds only apply to weight_based rates", ErrShippingRateInvalid)
	}
	if rateType != domain.RateTypePriceBased && (minPrice != nil || maxPrice != nil) {
		return domain.ShippingRate{}, fmt.Errorf("%w: price bounds only apply to price_based rates", ErrShippingRateInvalid)
	}
	if minWeight != nil && maxWeight != nil && minWeight.GreaterThan(*maxWeight) {
		return domain.ShippingRate{}, fmt.Errorf("%w: minWeight exceeds maxWeight", ErrShippingRateInvalid)
	}
	if minPrice != nil && maxPrice != nil && minPrice.GreaterThan(*maxPrice) {
		return domain.ShippingRate{}, fmt.Errorf("%w: minPrice exceeds maxPrice", ErrShippingRateInvalid)
	}

	if cmd.EstimatedDays != nil && *cmd.EstimatedDays < 0 {
		return domain.ShippingRate{}, fmt.Errorf("%w: estimatedDays must not be negative", ErrShippingRateInvalid)
	}

	return domain.ShippingRate{
		Name:          name,
		Type:          rateType,
		Price:         price,
		MinWeight:     minWeight,
		MaxWeight:     maxWeight,
		MinPrice:      minPrice,
		MaxPrice:      maxPrice,
		EstimatedDays: cmd.EstimatedDays,
		Active:        cmd.Active,
	}, nil
}

func parseRateDecimal(field, raw string) (*decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %q is not a decimal", ErrShippingRateInvalid, field, raw)
	}
	if value.IsNegative() {
		return nil, fmt.Errorf("%w: %s must not be negative", ErrShippingRateInvalid, field)
	}
	return &value, nil
}
