package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/tiendaflow/api/internal/domain"
	"github.com/tiendaflow/api/internal/platform/httpx"
	"github.com/tiendaflow/api/internal/services"
)

const maxShippingBodySize = 64 * 1024

// ShippingHandlers exposes the public quoting endpoints consumed by checkout.
type ShippingHandlers struct {
	quotes services.ShippingQuoteService
}

// NewShippingHandlers constructs handlers over the quote service.
func NewShippingHandlers(quotes services.ShippingQuoteService) *ShippingHandlers {
	return &ShippingHandlers{quotes: quotes}
}

// Routes wires the /shipping endpoints onto the provided router.
func (h *ShippingHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/estimates", h.postEstimates)
	r.Post("/quotes", h.postQuotes)
}

type cartItemPayload struct {
	ProductID  string `json:"productId"`
	UnitPrice  string `json:"unitPrice"`
	UnitWeight string `json:"unitWeight,omitempty"`
	Quantity   int    `json:"quantity"`
}

type estimateRequest struct {
	Items           []cartItemPayload `json:"items"`
	OriginCity      string            `json:"originCity,omitempty"`
	DestinationCity string            `json:"destinationCity,omitempty"`
	DeclaredValue   string            `json:"declaredValue,omitempty"`
	CashOnDelivery  bool              `json:"cashOnDelivery,omitempty"`
}

type quoteRequest struct {
	ZoneID string            `json:"zoneId"`
	Items  []cartItemPayload `json:"items"`
}

type carrierQuotePayload struct {
	ID             string   `json:"id"`
	CarrierCode    string   `json:"carrierCode"`
	CarrierName    string   `json:"carrierName"`
	ServiceCode    string   `json:"serviceCode"`
	ServiceName    string   `json:"serviceName"`
	Description    string   `json:"description,omitempty"`
	Price          string   `json:"price"`
	FormattedPrice string   `json:"formattedPrice"`
	EstimatedDays  int      `json:"estimatedDays"`
	SupportsCOD    bool     `json:"supportsCod"`
	TrackingURL    string   `json:"trackingUrl,omitempty"`
	Restrictions   []string `json:"restrictions,omitempty"`
}

type estimateResponse struct {
	OriginCity      string                `json:"originCity"`
	OriginZone      string                `json:"originZone"`
	DestinationCity string                `json:"destinationCity"`
	DestinationZone string                `json:"destinationZone"`
	TotalWeight     string                `json:"totalWeight"`
	Quotes          []carrierQuotePayload `json:"quotes"`
}

type rateQuotePayload struct {
	RateID        string `json:"rateId"`
	Name          string `json:"name"`
	Type          string `json:"type"`
	Cost          string `json:"cost"`
	EstimatedDays *int   `json:"estimatedDays,omitempty"`
}

type quoteResponse struct {
	Quotes []rateQuotePayload `json:"quotes"`
}

func (h *ShippingHandlers) postEstimates(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.quotes == nil {
		httpx.WriteError(ctx, w, httpx.NewError("shipping_service_unavailable", "shipping service is unavailable", http.StatusServiceUnavailable))
		return
	}

	body, err := readLimitedBody(r, maxShippingBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	var req estimateRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON payload", http.StatusBadRequest))
		return
	}

	items, err := parseCartItems(req.Items)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	estimateReq := services.CarrierEstimateRequest{
		Items:           items,
		OriginCity:      req.OriginCity,
		DestinationCity: req.DestinationCity,
		CashOnDelivery:  req.CashOnDelivery,
	}
	if trimmed := strings.TrimSpace(req.DeclaredValue); trimmed != "" {
		declared, err := decimal.NewFromString(trimmed)
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "declaredValue is not a decimal", http.StatusBadRequest))
			return
		}
		estimateReq.DeclaredValue = &declared
	}

	estimate, err := h.quotes.EstimateCarriers(ctx, estimateReq)
	if err != nil {
		writeShippingError(ctx, w, err)
		return
	}

	resp := estimateResponse{
		OriginCity:      estimate.OriginCity,
		OriginZone:      estimate.OriginZone,
		DestinationCity: estimate.DestinationCity,
		DestinationZone: estimate.DestinationZone,
		TotalWeight:     estimate.TotalWeight.String(),
		Quotes:          make([]carrierQuotePayload, 0, len(estimate.Quotes)),
	}
	for _, quote := range estimate.Quotes {
		resp.Quotes = append(resp.Quotes, carrierQuotePayload{
			ID:             quote.ID,
			CarrierCode:    quote.CarrierCode,
			CarrierName:    quote.CarrierName,
			ServiceCode:    quote.ServiceCode,
			ServiceName:    quote.ServiceName,
			Description:    quote.Description,
			Price:          quote.Price.String(),
			FormattedPrice: quote.FormattedPrice,
			EstimatedDays:  quote.EstimatedDays,
			SupportsCOD:    quote.SupportsCOD,
			TrackingURL:    quote.TrackingURL,
			Restrictions:   quote.Restrictions,
		})
	}
	writeJSONResponse(w, http.StatusOK, resp)
}

func (h *ShippingHandlers) postQuotes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.quotes == nil {
		httpx.WriteError(ctx, w, httpx.NewError("shipping_service_unavailable", "shipping service is unavailable", http.StatusServiceUnavailable))
		return
	}

	body, err := readLimitedBody(r, maxShippingBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	var req quoteRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON payload", http.StatusBadRequest))
		return
	}

	items, err := parseCartItems(req.Items)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	quotes, err := h.quotes.QuoteStoreRates(ctx, req.ZoneID, items)
	if err != nil {
		writeShippingError(ctx, w, err)
		return
	}

	resp := quoteResponse{Quotes: make([]rateQuotePayload, 0, len(quotes))}
	for _, quote := range quotes {
		resp.Quotes = append(resp.Quotes, rateQuotePayload{
			RateID:        quote.Rate.ID,
			Name:          quote.Rate.Name,
			Type:          string(quote.Rate.Type),
			Cost:          quote.Cost.String(),
			EstimatedDays: quote.Rate.EstimatedDays,
		})
	}
	writeJSONResponse(w, http.StatusOK, resp)
}

func parseCartItems(payloads []cartItemPayload) ([]domain.CartItem, error) {
	items := make([]domain.CartItem, 0, len(payloads))
	for _, payload := range payloads {
		item, err := domain.NewCartItem(payload.ProductID, payload.UnitPrice, payload.UnitWeight, payload.Quantity)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func writeBodyError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errBodyTooLarge):
		httpx.WriteError(ctx, w, httpx.NewError("payload_too_large", "request body exceeds allowed size", http.StatusRequestEntityTooLarge))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	}
}

func writeShippingError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrShippingInvalidInput), errors.Is(err, domain.ErrInvalidLineItem):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrShippingRateInvalid):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_rate", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrShippingZoneNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("zone_not_found", "shipping zone not found", http.StatusNotFound))
	case errors.Is(err, services.ErrShippingRateNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("rate_not_found", "shipping rate not found", http.StatusNotFound))
	case errors.Is(err, services.ErrShippingEstimatorDisabled):
		httpx.WriteError(ctx, w, httpx.NewError("estimator_disabled", "carrier estimates are temporarily unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "failed to compute shipping quotes", http.StatusInternalServerError))
	}
}
