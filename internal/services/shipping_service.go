package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/tiendaflow/api/internal/domain"
	"github.com/tiendaflow/api/internal/platform/config"
	"github.com/tiendaflow/api/internal/repositories"
)

// ShippingService implements ShippingQuoteService on top of the two pricing engines.
// Store rates come from Firestore; the regional estimator runs against the static
// catalog and can be switched off by configuration.
type ShippingService struct {
	zones     repositories.ShippingZoneRepository
	rates     repositories.ShippingRateRepository
	engine    *StoreRateEngine
	estimator *CarrierEstimator
	shipping  config.ShippingConfig
	logger    func(context.Context, string, map[string]any)
}

// ShippingServiceDeps lists the collaborators of ShippingService.
type ShippingServiceDeps struct {
	Zones     repositories.ShippingZoneRepository
	Rates     repositories.ShippingRateRepository
	Engine    *StoreRateEngine
	Estimator *CarrierEstimator
	Shipping  config.ShippingConfig
	Logger    func(context.Context, string, map[string]any)
}

// NewShippingService constructs a ShippingService.
func NewShippingService(deps ShippingServiceDeps) (*ShippingService, error) {
	if deps.Zones == nil {
		return nil, fmt.Errorf("shipping service: zone repository is required")
	}
	if deps.Rates == nil {
		return nil, fmt.Errorf("shipping service: rate repository is required")
	}
	if deps.Engine == nil {
		return nil, fmt.Errorf("shipping service: rate engine is required")
	}
	if deps.Estimator == nil {
		return nil, fmt.Errorf("shipping service: carrier estimator is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &ShippingService{
		zones:     deps.Zones,
		rates:     deps.Rates,
		engine:    deps.Engine,
		estimator: deps.Estimator,
		shipping:  deps.Shipping,
		logger:    logger,
	}, nil
}

// QuoteStoreRates evaluates the active rates of one zone against the cart and returns
// eligible quotes sorted ascending by cost.
func (s *ShippingService) QuoteStoreRates(ctx context.Context, zoneID string, items []domain.CartItem) ([]domain.RateQuote, error) {
	zoneID = strings.TrimSpace(zoneID)
	if zoneID == "" {
		return nil, fmt.Errorf("%w: zone id is required", ErrShippingInvalidInput)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: cart is empty", ErrShippingInvalidInput)
	}

	if _, err := s.zones.FindByID(ctx, zoneID); err != nil {
		if repositories.IsNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrShippingZoneNotFound, zoneID)
		}
		return nil, fmt.Errorf("load zone %s: %w", zoneID, err)
	}

	rates, err := s.rates.ListByZone(ctx, zoneID, true)
	if err != nil {
		return nil, fmt.Errorf("list rates for zone %s: %w", zoneID, err)
	}

	quotes, err := s.engine.CalculateForAll(ctx, rates, items)
	if err != nil {
		return nil, err
	}
	if len(quotes) == 0 {
		s.logger(ctx, "store_rates_no_match", map[string]any{"zone_id": zoneID, "rates": len(rates)})
	}
	return quotes, nil
}

// EstimateCarriers quotes the regional carrier catalog, applying the configured
// default route when the request leaves cities blank.
func (s *ShippingService) EstimateCarriers(ctx context.Context, req CarrierEstimateRequest) (CarrierEstimate, error) {
	if !s.shipping.EstimatorEnabled {
		return CarrierEstimate{}, ErrShippingEstimatorDisabled
	}
	if strings.TrimSpace(req.OriginCity) == "" {
		req.OriginCity = s.shipping.DefaultOriginCity
	}
	if strings.TrimSpace(req.DestinationCity) == "" {
		req.DestinationCity = s.shipping.DefaultDestinationCity
	}
	return s.estimator.Estimate(ctx, req)
}
