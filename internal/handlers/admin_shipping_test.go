package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/tiendaflow/api/internal/domain"
	"github.com/tiendaflow/api/internal/platform/auth"
	"github.com/tiendaflow/api/internal/services"
)

type fakeAdminService struct {
	zones map[string]domain.ShippingZone
	rates map[string]domain.ShippingRate

	lastZoneCmd services.ZoneCommand
	lastRateCmd services.RateCommand
}

func newFakeAdminService() *fakeAdminService {
	return &fakeAdminService{
		zones: map[string]domain.ShippingZone{},
		rates: map[string]domain.ShippingRate{},
	}
}

func (f *fakeAdminService) CreateZone(_ context.Context, cmd services.ZoneCommand) (domain.ShippingZone, error) {
	f.lastZoneCmd = cmd
	if strings.TrimSpace(cmd.Name) == "" {
		return domain.ShippingZone{}, fmt.Errorf("%w: zone name is required", services.ErrShippingInvalidInput)
	}
	zone := domain.ShippingZone{
		ID:        fmt.Sprintf("z%d", len(f.zones)+1),
		StoreID:   cmd.StoreID,
		Name:      cmd.Name,
		CreatedAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
	f.zones[zone.ID] = zone
	return zone, nil
}

func (f *fakeAdminService) UpdateZone(_ context.Context, zoneID string, cmd services.ZoneCommand) (domain.ShippingZone, error) {
	f.lastZoneCmd = cmd
	zone, ok := f.zones[zoneID]
	if !ok {
		return domain.ShippingZone{}, fmt.Errorf("%w: %s", services.ErrShippingZoneNotFound, zoneID)
	}
	zone.Name = cmd.Name
	f.zones[zoneID] = zone
	return zone, nil
}

func (f *fakeAdminService) DeleteZone(_ context.Context, _, _, zoneID string) error {
	if _, ok := f.zones[zoneID]; !ok {
		return fmt.Errorf("%w: %s", services.ErrShippingZoneNotFound, zoneID)
	}
	delete(f.zones, zoneID)
	return nil
}

func (f *fakeAdminService) GetZone(_ context.Context, _, zoneID string) (domain.ShippingZone, error) {
	zone, ok := f.zones[zoneID]
	if !ok {
		return domain.ShippingZone{}, fmt.Errorf("%w: %s", services.ErrShippingZoneNotFound, zoneID)
	}
	return zone, nil
}

func (f *fakeAdminService) ListZones(_ context.Context, storeID string, _ domain.Pagination) (domain.CursorPage[domain.ShippingZone], error) {
	page := domain.CursorPage[domain.ShippingZone]{}
	for _, zone := range f.zones {
		if zone.StoreID == storeID {
			page.Items = append(page.Items, zone)
		}
	}
	return page, nil
}

func (f *fakeAdminService) CreateRate(_ context.Context, cmd services.RateCommand) (domain.ShippingRate, error) {
	f.lastRateCmd = cmd
	if !domain.KnownRateType(domain.RateType(cmd.Type)) {
		return domain.ShippingRate{}, fmt.Errorf("%w: unknown rate type", services.ErrShippingRateInvalid)
	}
	rate := domain.ShippingRate{
		ID:     fmt.Sprintf("r%d", len(f.rates)+1),
		ZoneID: cmd.ZoneID,
		Name:   cmd.Name,
		Type:   domain.RateType(cmd.Type),
		Active: cmd.Active,
	}
	if cmd.Price != "" {
		rate.Price = decimal.RequireFromString(cmd.Price)
	}
	f.rates[rate.ID] = rate
	return rate, nil
}

func (f *fakeAdminService) UpdateRate(_ context.Context, rateID string, cmd services.RateCommand) (domain.ShippingRate, error) {
	f.lastRateCmd = cmd
	rate, ok := f.rates[rateID]
	if !ok {
		return domain.ShippingRate{}, fmt.Errorf("%w: %s", services.ErrShippingRateNotFound, rateID)
	}
	rate.Name = cmd.Name
	f.rates[rateID] = rate
	return rate, nil
}

func (f *fakeAdminService) DeleteRate(_ context.Context, _, _, _, rateID string) error {
	if _, ok := f.rates[rateID]; !ok {
		return fmt.Errorf("%w: %s", services.ErrShippingRateNotFound, rateID)
	}
	delete(f.rates, rateID)
	return nil
}

func (f *fakeAdminService) GetRate(_ context.Context, _, _, rateID string) (domain.ShippingRate, error) {
	rate, ok := f.rates[rateID]
	if !ok {
		return domain.ShippingRate{}, fmt.Errorf("%w: %s", services.ErrShippingRateNotFound, rateID)
	}
	return rate, nil
}

func (f *fakeAdminService) ListRates(_ context.Context, _, zoneID string) ([]domain.ShippingRate, error) {
	var out []domain.ShippingRate
	for _, rate := range f.rates {
		if rate.ZoneID == zoneID {
			out = append(out, rate)
		}
	}
	return out, nil
}

func newAdminRouter(svc services.ShippingAdminService, role string) chi.Router {
	verifier := &stubVerifier{uid: "staff-1", claims: map[string]interface{}{"role": role}}
	authn := auth.NewAuthenticator(verifier)
	r := chi.NewRouter()
	NewAdminShippingHandlers(authn, svc).Routes(r)
	return r
}

func adminRequest(method, path, body string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	req.Header.Set("Authorization", "Bearer token")
	return req
}

func TestAdminRoutesRejectPlainUsers(t *testing.T) {
	router := newAdminRouter(newFakeAdminService(), "user")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, adminRequest(http.MethodGet, "/stores/s1/shipping/zones/", ""))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestCreateZoneEndpoint(t *testing.T) {
	svc := newFakeAdminService()
	router := newAdminRouter(svc, "admin")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, adminRequest(http.MethodPost, "/stores/s1/shipping/zones/", `{"name":"Nacional","countries":["CO"]}`))

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if svc.lastZoneCmd.StoreID != "s1" || svc.lastZoneCmd.ActorUID != "staff-1" {
		t.Fatalf("command = %+v", svc.lastZoneCmd)
	}

	var resp zoneResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.ID == "" || resp.Name != "Nacional" {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestZoneLifecycleEndpoints(t *testing.T) {
	svc := newFakeAdminService()
	router := newAdminRouter(svc, "staff")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, adminRequest(http.MethodPost, "/stores/s1/shipping/zones/", `{"name":"Nacional"}`))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, adminRequest(http.MethodPut, "/stores/s1/shipping/zones/z1/", `{"name":"Renombrada"}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, adminRequest(http.MethodGet, "/stores/s1/shipping/zones/", ""))
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	var list zoneListResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(list.Zones) != 1 || list.Zones[0].Name != "Renombrada" {
		t.Fatalf("list = %+v", list)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, adminRequest(http.MethodDelete, "/stores/s1/shipping/zones/z1/", ""))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}
}

func TestRateEndpoints(t *testing.T) {
	svc := newFakeAdminService()
	router := newAdminRouter(svc, "admin")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, adminRequest(http.MethodPost, "/stores/s1/shipping/zones/", `{"name":"Nacional"}`))
	if rec.Code != http.StatusCreated {
		t.Fatalf("zone create status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	body := `{"name":"Por peso","type":"weight_based","price":"9.00","minWeight":"2","maxWeight":"5","active":true}`
	router.ServeHTTP(rec, adminRequest(http.MethodPost, "/stores/s1/shipping/zones/z1/rates/", body))
	if rec.Code != http.StatusCreated {
		t.Fatalf("rate create status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if svc.lastRateCmd.ZoneID != "z1" || svc.lastRateCmd.MinWeight != "2" {
		t.Fatalf("command = %+v", svc.lastRateCmd)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, adminRequest(http.MethodGet, "/stores/s1/shipping/zones/z1/rates/r1/", ""))
	if rec.Code != http.StatusOK {
		t.Fatalf("rate get status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, adminRequest(http.MethodDelete, "/stores/s1/shipping/zones/z1/rates/r1/", ""))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("rate delete status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, adminRequest(http.MethodGet, "/stores/s1/shipping/zones/z1/rates/r1/", ""))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("deleted rate get status = %d", rec.Code)
	}
}

func TestCreateRateInvalidType(t *testing.T) {
	router := newAdminRouter(newFakeAdminService(), "admin")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, adminRequest(http.MethodPost, "/stores/s1/shipping/zones/z1/rates/", `{"name":"x","type":"teleport"}`))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
