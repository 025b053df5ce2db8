package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/tiendaflow/api/internal/domain"
	"github.com/tiendaflow/api/internal/platform/currency"
)

// CarrierEstimateRequest carries the checkout inputs for a regional carrier estimate.
// Empty city codes fall back to the catalog defaults; a nil declared value defaults to
// the cart subtotal.
type CarrierEstimateRequest struct {
	Items           []domain.CartItem
	OriginCity      string
	DestinationCity string
	DeclaredValue   *decimal.Decimal
	CashOnDelivery  bool
}

// CarrierEstimate is the result of quoting the whole catalog, sorted ascending by price.
// ExpressMarker echoes the catalog's marker so the express view can match service codes.
type CarrierEstimate struct {
	OriginCity      string
	OriginZone      string
	DestinationCity string
	DestinationZone string
	TotalWeight     decimal.Decimal
	ExpressMarker   string
	Quotes          []domain.CarrierQuote
}

// Cheapest returns the lowest-priced quote. The boolean reports whether any service
// produced a quote at all.
func (e CarrierEstimate) Cheapest() (domain.CarrierQuote, bool) {
	if len(e.Quotes) == 0 {
		return domain.CarrierQuote{}, false
	}
	return e.Quotes[0], true
}

// FilterByCarrier returns the quotes belonging to one carrier, preserving price order.
func (e CarrierEstimate) FilterByCarrier(carrierCode string) []domain.CarrierQuote {
	code := strings.ToUpper(strings.TrimSpace(carrierCode))
	var out []domain.CarrierQuote
	for _, quote := range e.Quotes {
		if quote.CarrierCode == code {
			out = append(out, quote)
		}
	}
	return out
}

// ExpressOptions returns the express-like quotes: the service code carries the
// catalog's express marker, or delivery is promised next-day or faster.
func (e CarrierEstimate) ExpressOptions() []domain.CarrierQuote {
	var out []domain.CarrierQuote
	for _, quote := range e.Quotes {
		expressCoded := e.ExpressMarker != "" && strings.Contains(quote.ServiceCode, e.ExpressMarker)
		if expressCoded || quote.EstimatedDays <= 1 {
			out = append(out, quote)
		}
	}
	return out
}

// CarrierEstimator prices a cart against the static regional carrier catalog. Services
// that cannot serve a shipment are skipped with a log line rather than failing the
// whole estimate.
type CarrierEstimator struct {
	catalog CarrierCatalog
	logger  func(context.Context, string, map[string]any)
}

// CarrierEstimatorDeps collects the estimator's collaborators.
type CarrierEstimatorDeps struct {
	Catalog CarrierCatalog
	Logger  func(context.Context, string, map[string]any)
}

// NewCarrierEstimator constructs a CarrierEstimator after validating the catalog.
func NewCarrierEstimator(deps CarrierEstimatorDeps) (*CarrierEstimator, error) {
	if err := deps.Catalog.Validate(); err != nil {
		return nil, err
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &CarrierEstimator{catalog: deps.Catalog, logger: logger}, nil
}

// Estimate quotes every catalog service against the cart. An empty quote list is a
// legitimate outcome; per-service failures are logged and skipped.
func (e *CarrierEstimator) Estimate(ctx context.Context, req CarrierEstimateRequest) (CarrierEstimate, error) {
	if len(req.Items) == 0 {
		return CarrierEstimate{}, fmt.Errorf("%w: cart is empty", ErrShippingInvalidInput)
	}
	if err := validateCartItems(req.Items); err != nil {
		return CarrierEstimate{}, err
	}

	origin := req.OriginCity
	if strings.TrimSpace(origin) == "" {
		origin = e.catalog.DefaultOriginCity
	}
	destination := req.DestinationCity
	if strings.TrimSpace(destination) == "" {
		destination = e.catalog.DefaultDestinationCity
	}
	origin = strings.ToUpper(strings.TrimSpace(origin))
	destination = strings.ToUpper(strings.TrimSpace(destination))

	originZone := e.catalog.ResolveZone(origin)
	zone := e.catalog.ResolveZone(destination)
	weight := domain.CartWeight(req.Items, e.catalog.WeightFallbackPerUnit)

	declaredValue := domain.CartSubtotal(req.Items)
	if req.DeclaredValue != nil {
		if req.DeclaredValue.IsNegative() {
			return CarrierEstimate{}, fmt.Errorf("%w: declared value must not be negative", ErrShippingInvalidInput)
		}
		declaredValue = *req.DeclaredValue
	}

	estimate := CarrierEstimate{
		OriginCity:      origin,
		OriginZone:      originZone.Code,
		DestinationCity: destination,
		DestinationZone: zone.Code,
		TotalWeight:     weight,
		ExpressMarker:   e.catalog.ExpressMarker,
	}

	for _, carrier := range e.catalog.Carriers {
		for _, svc := range carrier.Services {
			quote, err := e.quoteService(carrier, svc, zone, weight, declaredValue, req.CashOnDelivery)
			if err != nil {
				e.logger(ctx, "carrier_service_skipped", map[string]any{
					"carrier": carrier.Code,
					"service": svc.Code,
					"reason":  err.Error(),
				})
				continue
			}
			estimate.Quotes = append(estimate.Quotes, quote)
		}
	}

	sort.SliceStable(estimate.Quotes, func(i, j int) bool {
		return estimate.Quotes[i].Price.LessThan(estimate.Quotes[j].Price)
	})
	return estimate, nil
}

var (
	errServiceWeightExceeded = errors.New("shipment exceeds service weight limit")
	errServiceNoCOD          = errors.New("service does not support cash on delivery")
	errServiceNoSameDay      = errors.New("same-day delivery unavailable for destination zone")
)

func (e *CarrierEstimator) quoteService(carrier Carrier, svc CarrierService, zone GeoZone, weight, declaredValue decimal.Decimal, cod bool) (domain.CarrierQuote, error) {
	if svc.MaxWeight != nil && weight.GreaterThan(*svc.MaxWeight) {
		return domain.CarrierQuote{}, errServiceWeightExceeded
	}
	if cod && !svc.SupportsCOD {
		return domain.CarrierQuote{}, errServiceNoCOD
	}
	if svc.SameDay && zone.Code != e.catalog.TopZone {
		return domain.CarrierQuote{}, errServiceNoSameDay
	}

	express := strings.Contains(svc.Code, e.catalog.ExpressMarker)

	var price decimal.Decimal
	switch svc.PricingType {
	case domain.RateTypeWeightBased:
		tier, err := e.catalog.TierFor(weight)
		if err != nil {
			return domain.CarrierQuote{}, err
		}
		price = tier.Price.Mul(zone.Multiplier)
		if express {
			price = price.Mul(e.catalog.ExpressSurcharge)
		}
		if cod {
			fee := declaredValue.Mul(e.catalog.CODRate)
			if fee.LessThan(e.catalog.MinCODFee) {
				fee = e.catalog.MinCODFee
			}
			price = price.Add(fee)
		}
	case domain.RateTypePriceBased:
		base := declaredValue.Mul(svc.BasePercentage)
		if base.LessThan(svc.MinimumFee) {
			base = svc.MinimumFee
		}
		price = base.Mul(zone.Multiplier)
		if cod {
			price = price.Add(declaredValue.Mul(svc.CODPercentage))
		}
	case domain.RateTypeFlat:
		base := e.catalog.FlatStandardBase
		if express {
			base = e.catalog.FlatExpressBase
		}
		price = base.Mul(zone.Multiplier)
	default:
		return domain.CarrierQuote{}, fmt.Errorf("unsupported pricing type %q", svc.PricingType)
	}

	if svc.SameDay {
		price = price.Mul(decimal.NewFromInt(2))
	}

	price = currency.RoundPesos(price)

	quote := domain.CarrierQuote{
		ID:             strings.ToLower(carrier.Code + "-" + svc.Code),
		CarrierCode:    carrier.Code,
		CarrierName:    carrier.Name,
		ServiceCode:    svc.Code,
		ServiceName:    svc.Name,
		Description:    svc.Description,
		Price:          price,
		FormattedPrice: currency.FormatCOP(price),
		EstimatedDays:  svc.EstimatedDays,
		SupportsCOD:    svc.SupportsCOD,
		TrackingURL:    carrier.TrackingURLTemplate,
		Restrictions:   e.restrictionNotes(svc, zone, weight, cod),
	}
	return quote, nil
}

// restrictionNotes collects the caveats shown next to a quote in checkout.
func (e *CarrierEstimator) restrictionNotes(svc CarrierService, zone GeoZone, weight decimal.Decimal, cod bool) []string {
	var notes []string
	if svc.MaxWeight != nil {
		// Warn only once the shipment exceeds 80% of the ceiling, not at the boundary.
		threshold := svc.MaxWeight.Mul(dec("0.8"))
		if weight.GreaterThan(threshold) {
			notes = append(notes, fmt.Sprintf("El envío está cerca del peso máximo del servicio (%s kg)", svc.MaxWeight))
		}
	}
	if svc.MaxDimensions != "" {
		notes = append(notes, "Dimensiones máximas: "+svc.MaxDimensions)
	}
	if svc.SameDay {
		notes = append(notes, "Entrega el mismo día sujeta a recogida antes del mediodía")
	}
	if cod && svc.SupportsCOD {
		notes = append(notes, "Incluye recaudo contra entrega")
	}
	return notes
}
