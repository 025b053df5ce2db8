package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/tiendaflow/api/internal/domain"
)

// GeoZone is one pricing zone of the regional carrier market. Multipliers are
// monotonically non-decreasing from the top tier (principal cities) outward.
type GeoZone struct {
	Code       string
	Name       string
	Multiplier decimal.Decimal
}

// WeightTier maps a weight ceiling to a base price in COP. A nil MaxWeight marks the
// unbounded final tier.
type WeightTier struct {
	MaxWeight *decimal.Decimal
	Price     decimal.Decimal
}

// CarrierService is one offering of a carrier in the static catalog.
type CarrierService struct {
	Code          string
	Name          string
	Description   string
	PricingType   domain.RateType
	EstimatedDays int
	MaxWeight     *decimal.Decimal
	MaxDimensions string
	SupportsCOD   bool
	SameDay       bool

	// price_based parameters; zero for other pricing types.
	BasePercentage decimal.Decimal
	MinimumFee     decimal.Decimal
	CODPercentage  decimal.Decimal
}

// Carrier groups the services of one regional shipping provider.
type Carrier struct {
	Code                string
	Name                string
	TrackingURLTemplate string
	Services            []CarrierService
}

// CarrierCatalog is the injectable configuration backing the regional estimator.
// Construct it explicitly (usually via DefaultCarrierCatalog) so tests can substitute
// alternate catalogs.
type CarrierCatalog struct {
	CityZones    map[string]string
	Zones        map[string]GeoZone
	TopZone      string
	FallbackZone string

	WeightTiers []WeightTier
	Carriers    []Carrier

	ExpressMarker    string
	ExpressSurcharge decimal.Decimal

	CODRate   decimal.Decimal
	MinCODFee decimal.Decimal

	FlatStandardBase decimal.Decimal
	FlatExpressBase  decimal.Decimal

	DefaultOriginCity      string
	DefaultDestinationCity string

	WeightFallbackPerUnit decimal.Decimal
}

// Validate checks the structural invariants the estimator relies on.
func (c CarrierCatalog) Validate() error {
	if len(c.Zones) == 0 {
		return errors.New("carrier catalog: zones are required")
	}
	if _, ok := c.Zones[c.FallbackZone]; !ok {
		return fmt.Errorf("carrier catalog: fallback zone %q is not defined", c.FallbackZone)
	}
	if _, ok := c.Zones[c.TopZone]; !ok {
		return fmt.Errorf("carrier catalog: top zone %q is not defined", c.TopZone)
	}
	if len(c.WeightTiers) == 0 {
		return errors.New("carrier catalog: weight tiers are required")
	}
	if c.WeightTiers[len(c.WeightTiers)-1].MaxWeight != nil {
		return errors.New("carrier catalog: final weight tier must be unbounded")
	}
	var prev *decimal.Decimal
	for i, tier := range c.WeightTiers[:len(c.WeightTiers)-1] {
		if tier.MaxWeight == nil {
			return fmt.Errorf("carrier catalog: tier %d has no ceiling but is not final", i)
		}
		if prev != nil && !tier.MaxWeight.GreaterThan(*prev) {
			return fmt.Errorf("carrier catalog: tier ceilings must ascend at tier %d", i)
		}
		prev = tier.MaxWeight
	}
	if len(c.Carriers) == 0 {
		return errors.New("carrier catalog: carriers are required")
	}
	return nil
}

// ResolveZone maps a city code to its pricing zone. Unknown codes resolve to the most
// expensive zone so quoting stays conservative instead of failing.
func (c CarrierCatalog) ResolveZone(cityCode string) GeoZone {
	code := strings.ToUpper(strings.TrimSpace(cityCode))
	if zoneCode, ok := c.CityZones[code]; ok {
		if zone, ok := c.Zones[zoneCode]; ok {
			return zone
		}
	}
	return c.Zones[c.FallbackZone]
}

// TierFor returns the lowest tier whose ceiling covers the weight. Boundary weights
// resolve to that tier, not the next one up.
func (c CarrierCatalog) TierFor(weight decimal.Decimal) (WeightTier, error) {
	for _, tier := range c.WeightTiers {
		if tier.MaxWeight == nil || weight.LessThanOrEqual(*tier.MaxWeight) {
			return tier, nil
		}
	}
	return WeightTier{}, fmt.Errorf("carrier catalog: no weight tier covers %s kg", weight)
}

func dec(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func decPtr(value string) *decimal.Decimal {
	d := dec(value)
	return &d
}

// DefaultCarrierCatalog returns the compiled-in Colombian regional carrier market.
func DefaultCarrierCatalog() CarrierCatalog {
	return CarrierCatalog{
		CityZones: map[string]string{
			// Zona 1: ciudades principales.
			"BOG": "zona1",
			"MED": "zona1",
			"CLO": "zona1",
			// Zona 2: ciudades intermedias.
			"BAQ": "zona2",
			"BGA": "zona2",
			"CTG": "zona2",
			"PEI": "zona2",
			"MZL": "zona2",
			"CUC": "zona2",
			"IBG": "zona2",
			// Zona 3: resto del país.
			"SMR": "zona3",
			"VUP": "zona3",
			"MTR": "zona3",
			"PSO": "zona3",
			"NVA": "zona3",
			"RCH": "zona3",
			"LET": "zona3",
		},
		Zones: map[string]GeoZone{
			"zona1": {Code: "zona1", Name: "Ciudades principales", Multiplier: dec("1.00")},
			"zona2": {Code: "zona2", Name: "Ciudades intermedias", Multiplier: dec("1.35")},
			"zona3": {Code: "zona3", Name: "Resto del país", Multiplier: dec("1.60")},
		},
		TopZone:      "zona1",
		FallbackZone: "zona3",

		WeightTiers: []WeightTier{
			{MaxWeight: decPtr("1"), Price: dec("9500")},
			{MaxWeight: decPtr("2"), Price: dec("11900")},
			{MaxWeight: decPtr("5"), Price: dec("16900")},
			{MaxWeight: decPtr("10"), Price: dec("24900")},
			{MaxWeight: decPtr("20"), Price: dec("39900")},
			{Price: dec("69900")},
		},

		Carriers: []Carrier{
			{
				Code:                "SERV",
				Name:                "Servientrega",
				TrackingURLTemplate: "https://www.servientrega.com/wps/portal/rastreo?guia={guide}",
				Services: []CarrierService{
					{
						Code:          "MERC",
						Name:          "Mercancía Premier",
						Description:   "Entrega terrestre puerta a puerta",
						PricingType:   domain.RateTypeWeightBased,
						EstimatedDays: 3,
						MaxWeight:     decPtr("150"),
						MaxDimensions: "120x120x120 cm",
						SupportsCOD:   true,
					},
					{
						Code:          "EXP-AER",
						Name:          "Expreso Aéreo",
						Description:   "Entrega aérea prioritaria",
						PricingType:   domain.RateTypeWeightBased,
						EstimatedDays: 1,
						MaxWeight:     decPtr("30"),
						SupportsCOD:   true,
					},
				},
			},
			{
				Code:                "COOR",
				Name:                "Coordinadora",
				TrackingURLTemplate: "https://www.coordinadora.com/portafolio/rastreo/?guia={guide}",
				Services: []CarrierService{
					{
						Code:          "STD",
						Name:          "Mercancía Estándar",
						Description:   "Cobertura nacional terrestre",
						PricingType:   domain.RateTypeWeightBased,
						EstimatedDays: 4,
						MaxWeight:     decPtr("100"),
						SupportsCOD:   true,
					},
					{
						Code:          "HOY",
						Name:          "Entrega Hoy",
						Description:   "Entrega el mismo día en ciudades principales",
						PricingType:   domain.RateTypeFlat,
						EstimatedDays: 0,
						MaxWeight:     decPtr("10"),
						SameDay:       true,
					},
				},
			},
			{
				Code:                "INTR",
				Name:                "Interrapidísimo",
				TrackingURLTemplate: "https://interrapidisimo.com/sigue-tu-envio/?guia={guide}",
				Services: []CarrierService{
					{
						Code:          "NAC",
						Name:          "Envío Nacional",
						Description:   "Paqueteo nacional",
						PricingType:   domain.RateTypeWeightBased,
						EstimatedDays: 5,
						MaxWeight:     decPtr("50"),
					},
					{
						Code:          "EXP-MSJ",
						Name:          "Mensajería Expresa",
						Description:   "Documentos y paquetes urgentes",
						PricingType:   domain.RateTypeWeightBased,
						EstimatedDays: 1,
						MaxWeight:     decPtr("5"),
						MaxDimensions: "60x40x40 cm",
					},
				},
			},
			{
				Code:                "ENVA",
				Name:                "Envía",
				TrackingURLTemplate: "https://envia.co/rastrear/?numero={guide}",
				Services: []CarrierService{
					{
						Code:          "STD",
						Name:          "Envía Estándar",
						Description:   "Tarifa plana nacional",
						PricingType:   domain.RateTypeFlat,
						EstimatedDays: 4,
					},
					{
						Code:          "EXP",
						Name:          "Envía Express",
						Description:   "Tarifa plana prioritaria",
						PricingType:   domain.RateTypeFlat,
						EstimatedDays: 1,
					},
				},
			},
			{
				Code:                "TCC",
				Name:                "TCC",
				TrackingURLTemplate: "https://www.tcc.com.co/rastreo?remesa={guide}",
				Services: []CarrierService{
					{
						Code:           "VAL",
						Name:           "Mercancía Asegurada",
						Description:    "Tarifa sobre valor declarado con seguro incluido",
						PricingType:    domain.RateTypePriceBased,
						EstimatedDays:  3,
						SupportsCOD:    true,
						BasePercentage: dec("0.012"),
						MinimumFee:     dec("12000"),
						CODPercentage:  dec("0.015"),
					},
				},
			},
		},

		ExpressMarker:    "EXP",
		ExpressSurcharge: dec("1.5"),

		CODRate:   dec("0.02"),
		MinCODFee: dec("3500"),

		FlatStandardBase: dec("12000"),
		FlatExpressBase:  dec("18000"),

		DefaultOriginCity:      "BOG",
		DefaultDestinationCity: "MED",

		WeightFallbackPerUnit: dec("0.5"),
	}
}
