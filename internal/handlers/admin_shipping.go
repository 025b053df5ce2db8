package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tiendaflow/api/internal/domain"
	"github.com/tiendaflow/api/internal/platform/auth"
	"github.com/tiendaflow/api/internal/platform/httpx"
	"github.com/tiendaflow/api/internal/platform/pagination"
	"github.com/tiendaflow/api/internal/services"
)

const maxAdminBodySize = 64 * 1024

// AdminShippingHandlers exposes the staff/admin CRUD surface for zones and rates.
type AdminShippingHandlers struct {
	authn *auth.Authenticator
	admin services.ShippingAdminService
}

// NewAdminShippingHandlers constructs the admin handlers.
func NewAdminShippingHandlers(authn *auth.Authenticator, admin services.ShippingAdminService) *AdminShippingHandlers {
	return &AdminShippingHandlers{authn: authn, admin: admin}
}

// Routes wires the store shipping configuration endpoints onto the admin router.
func (h *AdminShippingHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireFirebaseAuth(auth.RoleAdmin, auth.RoleStaff))
	}
	r.Route("/stores/{storeId}/shipping/zones", func(zones chi.Router) {
		zones.Get("/", h.listZones)
		zones.Post("/", h.createZone)
		zones.Route("/{zoneId}", func(zone chi.Router) {
			zone.Get("/", h.getZone)
			zone.Put("/", h.updateZone)
			zone.Delete("/", h.deleteZone)
			zone.Route("/rates", func(rates chi.Router) {
				rates.Get("/", h.listRates)
				rates.Post("/", h.createRate)
				rates.Route("/{rateId}", func(rate chi.Router) {
					rate.Get("/", h.getRate)
					rate.Put("/", h.updateRate)
					rate.Delete("/", h.deleteRate)
				})
			})
		})
	})
}

type zonePayload struct {
	Name        string   `json:"name"`
	Countries   []string `json:"countries,omitempty"`
	States      []string `json:"states,omitempty"`
	PostalCodes []string `json:"postalCodes,omitempty"`
}

type zoneResponse struct {
	ID          string   `json:"id"`
	StoreID     string   `json:"storeId"`
	Name        string   `json:"name"`
	Countries   []string `json:"countries,omitempty"`
	States      []string `json:"states,omitempty"`
	PostalCodes []string `json:"postalCodes,omitempty"`
	CreatedAt   string   `json:"createdAt"`
	UpdatedAt   string   `json:"updatedAt"`
}

type zoneListResponse struct {
	Zones         []zoneResponse `json:"zones"`
	NextPageToken string         `json:"nextPageToken,omitempty"`
}

type ratePayload struct {
	Name          string `json:"name"`
	Type          string `json:"type"`
	Price         string `json:"price,omitempty"`
	MinWeight     string `json:"minWeight,omitempty"`
	MaxWeight     string `json:"maxWeight,omitempty"`
	MinPrice      string `json:"minPrice,omitempty"`
	MaxPrice      string `json:"maxPrice,omitempty"`
	EstimatedDays *int   `json:"estimatedDays,omitempty"`
	Active        bool   `json:"active"`
}

type rateResponse struct {
	ID            string `json:"id"`
	ZoneID        string `json:"zoneId"`
	Name          string `json:"name"`
	Type          string `json:"type"`
	Price         string `json:"price"`
	MinWeight     string `json:"minWeight,omitempty"`
	MaxWeight     string `json:"maxWeight,omitempty"`
	MinPrice      string `json:"minPrice,omitempty"`
	MaxPrice      string `json:"maxPrice,omitempty"`
	EstimatedDays *int   `json:"estimatedDays,omitempty"`
	Active        bool   `json:"active"`
	CreatedAt     string `json:"createdAt"`
	UpdatedAt     string `json:"updatedAt"`
}

type rateListResponse struct {
	Rates []rateResponse `json:"rates"`
}

func (h *AdminShippingHandlers) listZones(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.ready(ctx, w) {
		return
	}

	params, err := pagination.FromRequest(r, pagination.Options{})
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	page, err := h.admin.ListZones(ctx, chi.URLParam(r, "storeId"), domain.Pagination{
		PageSize:  params.PageSize,
		PageToken: params.PageToken,
	})
	if err != nil {
		writeShippingError(ctx, w, err)
		return
	}

	resp := zoneListResponse{
		Zones:         make([]zoneResponse, 0, len(page.Items)),
		NextPageToken: page.NextPageToken,
	}
	for _, zone := range page.Items {
		resp.Zones = append(resp.Zones, buildZoneResponse(zone))
	}
	writeJSONResponse(w, http.StatusOK, resp)
}

func (h *AdminShippingHandlers) createZone(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.ready(ctx, w) {
		return
	}

	payload, ok := decodeZonePayload(ctx, w, r)
	if !ok {
		return
	}

	zone, err := h.admin.CreateZone(ctx, services.ZoneCommand{
		ActorUID:    actorUID(ctx),
		StoreID:     chi.URLParam(r, "storeId"),
		Name:        payload.Name,
		Countries:   payload.Countries,
		States:      payload.States,
		PostalCodes: payload.PostalCodes,
	})
	if err != nil {
		writeShippingError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, buildZoneResponse(zone))
}

func (h *AdminShippingHandlers) getZone(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.ready(ctx, w) {
		return
	}

	zone, err := h.admin.GetZone(ctx, chi.URLParam(r, "storeId"), chi.URLParam(r, "zoneId"))
	if err != nil {
		writeShippingError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildZoneResponse(zone))
}

func (h *AdminShippingHandlers) updateZone(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.ready(ctx, w) {
		return
	}

	payload, ok := decodeZonePayload(ctx, w, r)
	if !ok {
		return
	}

	zone, err := h.admin.UpdateZone(ctx, chi.URLParam(r, "zoneId"), services.ZoneCommand{
		ActorUID:    actorUID(ctx),
		StoreID:     chi.URLParam(r, "storeId"),
		Name:        payload.Name,
		Countries:   payload.Countries,
		States:      payload.States,
		PostalCodes: payload.PostalCodes,
	})
	if err != nil {
		writeShippingError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildZoneResponse(zone))
}

func (h *AdminShippingHandlers) deleteZone(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.ready(ctx, w) {
		return
	}

	err := h.admin.DeleteZone(ctx, actorUID(ctx), chi.URLParam(r, "storeId"), chi.URLParam(r, "zoneId"))
	if err != nil {
		writeShippingError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminShippingHandlers) listRates(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.ready(ctx, w) {
		return
	}

	rates, err := h.admin.ListRates(ctx, chi.URLParam(r, "storeId"), chi.URLParam(r, "zoneId"))
	if err != nil {
		writeShippingError(ctx, w, err)
		return
	}

	resp := rateListResponse{Rates: make([]rateResponse, 0, len(rates))}
	for _, rate := range rates {
		resp.Rates = append(resp.Rates, buildRateResponse(rate))
	}
	writeJSONResponse(w, http.StatusOK, resp)
}

func (h *AdminShippingHandlers) createRate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.ready(ctx, w) {
		return
	}

	payload, ok := decodeRatePayload(ctx, w, r)
	if !ok {
		return
	}

	rate, err := h.admin.CreateRate(ctx, rateCommandFromPayload(ctx, r, payload))
	if err != nil {
		writeShippingError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, buildRateResponse(rate))
}

func (h *AdminShippingHandlers) getRate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.ready(ctx, w) {
		return
	}

	rate, err := h.admin.GetRate(ctx, chi.URLParam(r, "storeId"), chi.URLParam(r, "zoneId"), chi.URLParam(r, "rateId"))
	if err != nil {
		writeShippingError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildRateResponse(rate))
}

func (h *AdminShippingHandlers) updateRate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.ready(ctx, w) {
		return
	}

	payload, ok := decodeRatePayload(ctx, w, r)
	if !ok {
		return
	}

	rate, err := h.admin.UpdateRate(ctx, chi.URLParam(r, "rateId"), rateCommandFromPayload(ctx, r, payload))
	if err != nil {
		writeShippingError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildRateResponse(rate))
}

func (h *AdminShippingHandlers) deleteRate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.ready(ctx, w) {
		return
	}

	err := h.admin.DeleteRate(ctx, actorUID(ctx), chi.URLParam(r, "storeId"), chi.URLParam(r, "zoneId"), chi.URLParam(r, "rateId"))
	if err != nil {
		writeShippingError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminShippingHandlers) ready(ctx context.Context, w http.ResponseWriter) bool {
	if h.admin == nil {
		httpx.WriteError(ctx, w, httpx.NewError("shipping_service_unavailable", "shipping admin service is unavailable", http.StatusServiceUnavailable))
		return false
	}
	return true
}

func actorUID(ctx context.Context) string {
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || identity == nil {
		return ""
	}
	return strings.TrimSpace(identity.UID)
}

func decodeZonePayload(ctx context.Context, w http.ResponseWriter, r *http.Request) (zonePayload, bool) {
	body, err := readLimitedBody(r, maxAdminBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return zonePayload{}, false
	}
	var payload zonePayload
	if err := json.Unmarshal(body, &payload); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON payload", http.StatusBadRequest))
		return zonePayload{}, false
	}
	return payload, true
}

func decodeRatePayload(ctx context.Context, w http.ResponseWriter, r *http.Request) (ratePayload, bool) {
	body, err := readLimitedBody(r, maxAdminBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return ratePayload{}, false
	}
	var payload ratePayload
	if err := json.Unmarshal(body, &payload); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON payload", http.StatusBadRequest))
		return ratePayload{}, false
	}
	return payload, true
}

func rateCommandFromPayload(ctx context.Context, r *http.Request, payload ratePayload) services.RateCommand {
	return services.RateCommand{
		ActorUID:      actorUID(ctx),
		StoreID:       chi.URLParam(r, "storeId"),
		ZoneID:        chi.URLParam(r, "zoneId"),
		Name:          payload.Name,
		Type:          payload.Type,
		Price:         payload.Price,
		MinWeight:     payload.MinWeight,
		MaxWeight:     payload.MaxWeight,
		MinPrice:      payload.MinPrice,
		MaxPrice:      payload.MaxPrice,
		EstimatedDays: payload.EstimatedDays,
		Active:        payload.Active,
	}
}

func buildZoneResponse(zone domain.ShippingZone) zoneResponse {
	return zoneResponse{
		ID:          zone.ID,
		StoreID:     zone.StoreID,
		Name:        zone.Name,
		Countries:   zone.Countries,
		States:      zone.States,
		PostalCodes: zone.PostalCodes,
		CreatedAt:   zone.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   zone.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func buildRateResponse(rate domain.ShippingRate) rateResponse {
	resp := rateResponse{
		ID:            rate.ID,
		ZoneID:        rate.ZoneID,
		Name:          rate.Name,
		Type:          string(rate.Type),
		Price:         rate.Price.String(),
		EstimatedDays: rate.EstimatedDays,
		Active:        rate.Active,
		CreatedAt:     rate.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:     rate.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if rate.MinWeight != nil {
		resp.MinWeight = rate.MinWeight.String()
	}
	if rate.MaxWeight != nil {
		resp.MaxWeight = rate.MaxWeight.String()
	}
	if rate.MinPrice != nil {
		resp.MinPrice = rate.MinPrice.String()
	}
	if rate.MaxPrice != nil {
		resp.MaxPrice = rate.MaxPrice.String()
	}
	return resp
}
