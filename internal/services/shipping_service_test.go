package services

import (
	"context"
	"errors"
	"testing"

	"github.com/tiendaflow/api/internal/domain"
	"github.com/tiendaflow/api/internal/platform/config"
)

type notFoundError struct{ msg string }

func (e *notFoundError) Error() string       { return e.msg }
func (e *notFoundError) IsNotFound() bool    { return true }
func (e *notFoundError) IsConflict() bool    { return false }
func (e *notFoundError) IsUnavailable() bool { return false }

type fakeZoneRepo struct {
	zones  map[string]domain.ShippingZone
	listed []domain.ShippingZone
}

func newFakeZoneRepo(zones ...domain.ShippingZone) *fakeZoneRepo {
	repo := &fakeZoneRepo{zones: map[string]domain.ShippingZone{}}
	for _, z := range zones {
		repo.zones[z.ID] = z
	}
	return repo
}

func (r *fakeZoneRepo) Insert(_ context.Context, zone domain.ShippingZone) error {
	r.zones[zone.ID] = zone
	return nil
}

func (r *fakeZoneRepo) Update(_ context.Context, zone domain.ShippingZone) error {
	if _, ok := r.zones[zone.ID]; !ok {
		return &notFoundError{msg: "zone not found"}
	}
	r.zones[zone.ID] = zone
	return nil
}

func (r *fakeZoneRepo) Delete(_ context.Context, zoneID string) error {
	if _, ok := r.zones[zoneID]; !ok {
		return &notFoundError{msg: "zone not found"}
	}
	delete(r.zones, zoneID)
	return nil
}

func (r *fakeZoneRepo) FindByID(_ context.Context, zoneID string) (domain.ShippingZone, error) {
	zone, ok := r.zones[zoneID]
	if !ok {
		return domain.ShippingZone{}, &notFoundError{msg: "zone not found"}
	}
	return zone, nil
}

func (r *fakeZoneRepo) ListByStore(_ context.Context, storeID string, _ domain.Pagination) (domain.CursorPage[domain.ShippingZone], error) {
	var items []domain.ShippingZone
	for _, z := range r.zones {
		if z.StoreID == storeID {
			items = append(items, z)
		}
	}
	return domain.CursorPage[domain.ShippingZone]{Items: items}, nil
}

type fakeRateRepo struct {
	rates map[string]map[string]domain.ShippingRate
}

func newFakeRateRepo() *fakeRateRepo {
	return &fakeRateRepo{rates: map[string]map[string]domain.ShippingRate{}}
}

func (r *fakeRateRepo) Insert(_ context.Context, rate domain.ShippingRate) error {
	if r.rates[rate.ZoneID] == nil {
		r.rates[rate.ZoneID] = map[string]domain.ShippingRate{}
	}
	r.rates[rate.ZoneID][rate.ID] = rate
	return nil
}

func (r *fakeRateRepo) Update(_ context.Context, rate domain.ShippingRate) error {
	if _, ok := r.rates[rate.ZoneID][rate.ID]; !ok {
		return &notFoundError{msg: "rate not found"}
	}
	r.rates[rate.ZoneID][rate.ID] = rate
	return nil
}

func (r *fakeRateRepo) Delete(_ context.Context, zoneID, rateID string) error {
	if _, ok := r.rates[zoneID][rateID]; !ok {
		return &notFoundError{msg: "rate not found"}
	}
	delete(r.rates[zoneID], rateID)
	return nil
}

func (r *fakeRateRepo) FindByID(_ context.Context, zoneID, rateID string) (domain.ShippingRate, error) {
	rate, ok := r.rates[zoneID][rateID]
	if !ok {
		return domain.ShippingRate{}, &notFoundError{msg: "rate not found"}
	}
	return rate, nil
}

func (r *fakeRateRepo) ListByZone(_ context.Context, zoneID string, activeOnly bool) ([]domain.ShippingRate, error) {
	var out []domain.ShippingRate
	for _, rate := range r.rates[zoneID] {
		if activeOnly && !rate.Active {
			continue
		}
		out = append(out, rate)
	}
	return out, nil
}

func newTestShippingService(t *testing.T, zones *fakeZoneRepo, rates *fakeRateRepo, estimatorEnabled bool) *ShippingService {
	t.Helper()
	engine := newTestEngine(t)
	estimator := newTestEstimator(t)
	svc, err := NewShippingService(ShippingServiceDeps{
		Zones:     zones,
		Rates:     rates,
		Engine:    engine,
		Estimator: estimator,
		Shipping: config.ShippingConfig{
			DefaultOriginCity:      "BOG",
			DefaultDestinationCity: "MED",
			EstimatorEnabled:       estimatorEnabled,
		},
	})
	if err != nil {
		t.Fatalf("NewShippingService: %v", err)
	}
	return svc
}

func TestQuoteStoreRatesFiltersInactive(t *testing.T) {
	zones := newFakeZoneRepo(domain.ShippingZone{ID: "z1", StoreID: "s1", Name: "Nacional"})
	rates := newFakeRateRepo()
	active := flatRate("active", "10.00")
	active.ZoneID = "z1"
	inactive := flatRate("inactive", "1.00")
	inactive.ZoneID = "z1"
	inactive.Active = false
	_ = rates.Insert(context.Background(), active)
	_ = rates.Insert(context.Background(), inactive)

	svc := newTestShippingService(t, zones, rates, true)
	items := []domain.CartItem{mustItem(t, "p1", "20.00", "", 1)}

	quotes, err := svc.QuoteStoreRates(context.Background(), "z1", items)
	if err != nil {
		t.Fatalf("QuoteStoreRates: %v", err)
	}
	if len(quotes) != 1 || quotes[0].Rate.ID != "active" {
		t.Fatalf("expected only the active rate, got %+v", quotes)
	}
}

func TestQuoteStoreRatesUnknownZone(t *testing.T) {
	svc := newTestShippingService(t, newFakeZoneRepo(), newFakeRateRepo(), true)
	items := []domain.CartItem{mustItem(t, "p1", "20.00", "", 1)}

	_, err := svc.QuoteStoreRates(context.Background(), "missing", items)
	if !errors.Is(err, ErrShippingZoneNotFound) {
		t.Fatalf("err = %v, want ErrShippingZoneNotFound", err)
	}
}

func TestQuoteStoreRatesEmptyCart(t *testing.T) {
	zones := newFakeZoneRepo(domain.ShippingZone{ID: "z1", StoreID: "s1"})
	svc := newTestShippingService(t, zones, newFakeRateRepo(), true)

	_, err := svc.QuoteStoreRates(context.Background(), "z1", nil)
	if !errors.Is(err, ErrShippingInvalidInput) {
		t.Fatalf("err = %v, want ErrShippingInvalidInput", err)
	}
}

func TestQuoteStoreRatesNoEligibleRates(t *testing.T) {
	zones := newFakeZoneRepo(domain.ShippingZone{ID: "z1", StoreID: "s1"})
	svc := newTestShippingService(t, zones, newFakeRateRepo(), true)
	items := []domain.CartItem{mustItem(t, "p1", "20.00", "", 1)}

	quotes, err := svc.QuoteStoreRates(context.Background(), "z1", items)
	if err != nil {
		t.Fatalf("QuoteStoreRates: %v", err)
	}
	if len(quotes) != 0 {
		t.Fatalf("expected no quotes, got %d", len(quotes))
	}
}

func TestEstimateCarriersAppliesConfiguredDefaults(t *testing.T) {
	zones := newFakeZoneRepo()
	svc := newTestShippingService(t, zones, newFakeRateRepo(), true)
	items := []domain.CartItem{mustItem(t, "p1", "20.00", "1.0", 1)}

	estimate, err := svc.EstimateCarriers(context.Background(), CarrierEstimateRequest{Items: items})
	if err != nil {
		t.Fatalf("EstimateCarriers: %v", err)
	}
	if estimate.OriginCity != "BOG" || estimate.DestinationCity != "MED" {
		t.Fatalf("route = %s->%s, want BOG->MED", estimate.OriginCity, estimate.DestinationCity)
	}
}

func TestEstimateCarriersDisabled(t *testing.T) {
	svc := newTestShippingService(t, newFakeZoneRepo(), newFakeRateRepo(), false)
	items := []domain.CartItem{mustItem(t, "p1", "20.00", "1.0", 1)}

	_, err := svc.EstimateCarriers(context.Background(), CarrierEstimateRequest{Items: items})
	if !errors.Is(err, ErrShippingEstimatorDisabled) {
		t.Fatalf("err = %v, want ErrShippingEstimatorDisabled", err)
	}
}
