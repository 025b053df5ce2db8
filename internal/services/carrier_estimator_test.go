package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/tiendaflow/api/internal/domain"
)

func newTestEstimator(t *testing.T) *CarrierEstimator {
	t.Helper()
	estimator, err := NewCarrierEstimator(CarrierEstimatorDeps{Catalog: DefaultCarrierCatalog()})
	if err != nil {
		t.Fatalf("NewCarrierEstimator: %v", err)
	}
	return estimator
}

func findQuote(t *testing.T, estimate CarrierEstimate, id string) domain.CarrierQuote {
	t.Helper()
	for _, quote := range estimate.Quotes {
		if quote.ID == id {
			return quote
		}
	}
	t.Fatalf("quote %q not present; have %d quotes", id, len(estimate.Quotes))
	return domain.CarrierQuote{}
}

func hasQuote(estimate CarrierEstimate, id string) bool {
	for _, quote := range estimate.Quotes {
		if quote.ID == id {
			return true
		}
	}
	return false
}

func TestEstimateEndToEnd(t *testing.T) {
	estimator := newTestEstimator(t)
	items := []domain.CartItem{mustItem(t, "p1", "50.00", "2.0", 2)}

	estimate, err := estimator.Estimate(context.Background(), CarrierEstimateRequest{Items: items})
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}

	if estimate.OriginCity != "BOG" || estimate.DestinationCity != "MED" {
		t.Fatalf("default route = %s->%s, want BOG->MED", estimate.OriginCity, estimate.DestinationCity)
	}
	if estimate.DestinationZone != "zona1" {
		t.Fatalf("destination zone = %s, want zona1", estimate.DestinationZone)
	}
	if estimate.OriginZone != "zona1" {
		t.Fatalf("origin zone = %s, want zona1", estimate.OriginZone)
	}
	if !estimate.TotalWeight.Equal(decimal.RequireFromString("4")) {
		t.Fatalf("total weight = %s, want 4", estimate.TotalWeight)
	}

	// 4 kg lands in the <=5 kg tier: 16900 COP at multiplier 1.00.
	quote := findQuote(t, estimate, "serv-merc")
	if !quote.Price.Equal(decimal.RequireFromString("16900")) {
		t.Fatalf("serv-merc price = %s, want 16900", quote.Price)
	}
	if quote.FormattedPrice != "$ 16.900" {
		t.Fatalf("formatted price = %q, want %q", quote.FormattedPrice, "$ 16.900")
	}
}

func TestTierBoundaryIsInclusive(t *testing.T) {
	estimator := newTestEstimator(t)

	atBoundary := []domain.CartItem{mustItem(t, "p1", "10.00", "2.0", 1)}
	estimate, err := estimator.Estimate(context.Background(), CarrierEstimateRequest{Items: atBoundary})
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}
	if got := findQuote(t, estimate, "serv-merc").Price; !got.Equal(decimal.RequireFromString("11900")) {
		t.Fatalf("2.0 kg price = %s, want 11900 (<=2 kg tier)", got)
	}

	aboveBoundary := []domain.CartItem{mustItem(t, "p1", "10.00", "2.01", 1)}
	estimate, err = estimator.Estimate(context.Background(), CarrierEstimateRequest{Items: aboveBoundary})
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}
	if got := findQuote(t, estimate, "serv-merc").Price; !got.Equal(decimal.RequireFromString("16900")) {
		t.Fatalf("2.01 kg price = %s, want 16900 (<=5 kg tier)", got)
	}
}

func TestZoneMultiplierIsMonotonic(t *testing.T) {
	estimator := newTestEstimator(t)
	items := []domain.CartItem{mustItem(t, "p1", "10.00", "1.0", 1)}

	destinations := []string{"BOG", "BAQ", "XXX"}
	var prev decimal.Decimal
	for i, dest := range destinations {
		estimate, err := estimator.Estimate(context.Background(), CarrierEstimateRequest{
			Items:           items,
			DestinationCity: dest,
		})
		if err != nil {
			t.Fatalf("Estimate(%s): %v", dest, err)
		}
		price := findQuote(t, estimate, "serv-merc").Price
		if i > 0 && price.LessThan(prev) {
			t.Fatalf("price decreased moving outward: %s then %s", prev, price)
		}
		prev = price
	}
}

func TestUnknownCityFallsBackToOuterZone(t *testing.T) {
	estimator := newTestEstimator(t)
	items := []domain.CartItem{mustItem(t, "p1", "10.00", "1.0", 1)}

	estimate, err := estimator.Estimate(context.Background(), CarrierEstimateRequest{
		Items:           items,
		DestinationCity: "ZZZ",
	})
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}
	if estimate.DestinationZone != "zona3" {
		t.Fatalf("zone = %s, want zona3", estimate.DestinationZone)
	}
	// 9500 * 1.60.
	if got := findQuote(t, estimate, "serv-merc").Price; !got.Equal(decimal.RequireFromString("15200")) {
		t.Fatalf("price = %s, want 15200", got)
	}
}

func TestCODFeeIsAdditive(t *testing.T) {
	estimator := newTestEstimator(t)
	items := []domain.CartItem{mustItem(t, "p1", "100000", "1.0", 1)}

	plain, err := estimator.Estimate(context.Background(), CarrierEstimateRequest{Items: items})
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}
	withCOD, err := estimator.Estimate(context.Background(), CarrierEstimateRequest{Items: items, CashOnDelivery: true})
	if err != nil {
		t.Fatalf("Estimate with COD: %v", err)
	}

	base := findQuote(t, plain, "serv-merc").Price
	cod := findQuote(t, withCOD, "serv-merc").Price
	// 2% of 100000 is 2000, below the 3500 floor.
	if !cod.Sub(base).Equal(decimal.RequireFromString("3500")) {
		t.Fatalf("COD delta = %s, want 3500", cod.Sub(base))
	}

	expensive := []domain.CartItem{mustItem(t, "p1", "500000", "1.0", 1)}
	plain, err = estimator.Estimate(context.Background(), CarrierEstimateRequest{Items: expensive})
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}
	withCOD, err = estimator.Estimate(context.Background(), CarrierEstimateRequest{Items: expensive, CashOnDelivery: true})
	if err != nil {
		t.Fatalf("Estimate with COD: %v", err)
	}
	base = findQuote(t, plain, "serv-merc").Price
	cod = findQuote(t, withCOD, "serv-merc").Price
	if !cod.Sub(base).Equal(decimal.RequireFromString("10000")) {
		t.Fatalf("COD delta = %s, want 10000 (2%% of declared value)", cod.Sub(base))
	}
}

func TestCODExcludesUnsupportedServices(t *testing.T) {
	estimator := newTestEstimator(t)
	items := []domain.CartItem{mustItem(t, "p1", "10.00", "1.0", 1)}

	estimate, err := estimator.Estimate(context.Background(), CarrierEstimateRequest{Items: items, CashOnDelivery: true})
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}
	if hasQuote(estimate, "intr-nac") || hasQuote(estimate, "enva-std") {
		t.Fatal("services without COD support should be skipped when COD is requested")
	}
	if !hasQuote(estimate, "serv-merc") || !hasQuote(estimate, "tcc-val") {
		t.Fatal("COD-capable services should still quote")
	}
}

func TestSameDayOnlyInPrincipalCities(t *testing.T) {
	estimator := newTestEstimator(t)
	items := []domain.CartItem{mustItem(t, "p1", "10.00", "1.0", 1)}

	principal, err := estimator.Estimate(context.Background(), CarrierEstimateRequest{Items: items, DestinationCity: "MED"})
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}
	quote := findQuote(t, principal, "coor-hoy")
	// Flat standard base 12000, multiplier 1.00, doubled for same-day urgency.
	if !quote.Price.Equal(decimal.RequireFromString("24000")) {
		t.Fatalf("same-day price = %s, want 24000", quote.Price)
	}

	intermediate, err := estimator.Estimate(context.Background(), CarrierEstimateRequest{Items: items, DestinationCity: "BAQ"})
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}
	if hasQuote(intermediate, "coor-hoy") {
		t.Fatal("same-day service should be skipped outside principal cities")
	}
}

func TestExpressSurchargeOnWeightBasedServices(t *testing.T) {
	estimator := newTestEstimator(t)
	items := []domain.CartItem{mustItem(t, "p1", "10.00", "1.0", 1)}

	estimate, err := estimator.Estimate(context.Background(), CarrierEstimateRequest{Items: items})
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}
	// 9500 * 1.00 * 1.5.
	if got := findQuote(t, estimate, "serv-exp-aer").Price; !got.Equal(decimal.RequireFromString("14250")) {
		t.Fatalf("express price = %s, want 14250", got)
	}
}

func TestFlatRateBases(t *testing.T) {
	estimator := newTestEstimator(t)
	items := []domain.CartItem{mustItem(t, "p1", "10.00", "1.0", 1)}

	estimate, err := estimator.Estimate(context.Background(), CarrierEstimateRequest{Items: items, DestinationCity: "BAQ"})
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}
	// 12000 * 1.35 and 18000 * 1.35.
	if got := findQuote(t, estimate, "enva-std").Price; !got.Equal(decimal.RequireFromString("16200")) {
		t.Fatalf("flat standard = %s, want 16200", got)
	}
	if got := findQuote(t, estimate, "enva-exp").Price; !got.Equal(decimal.RequireFromString("24300")) {
		t.Fatalf("flat express = %s, want 24300", got)
	}
}

func TestPriceBasedServiceUsesDeclaredValue(t *testing.T) {
	estimator := newTestEstimator(t)
	items := []domain.CartItem{mustItem(t, "p1", "100000", "1.0", 1)}

	estimate, err := estimator.Estimate(context.Background(), CarrierEstimateRequest{Items: items})
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}
	// 1.2% of 100000 is 1200, below the 12000 minimum fee.
	if got := findQuote(t, estimate, "tcc-val").Price; !got.Equal(decimal.RequireFromString("12000")) {
		t.Fatalf("price-based quote = %s, want 12000", got)
	}

	declared := decimal.RequireFromString("2000000")
	estimate, err = estimator.Estimate(context.Background(), CarrierEstimateRequest{Items: items, DeclaredValue: &declared})
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}
	// 1.2% of 2000000.
	if got := findQuote(t, estimate, "tcc-val").Price; !got.Equal(decimal.RequireFromString("24000")) {
		t.Fatalf("price-based quote = %s, want 24000", got)
	}
}

func TestWeightLimitSkipsService(t *testing.T) {
	estimator := newTestEstimator(t)
	items := []domain.CartItem{mustItem(t, "p1", "10.00", "6.0", 2)}

	estimate, err := estimator.Estimate(context.Background(), CarrierEstimateRequest{Items: items})
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}
	if hasQuote(estimate, "intr-exp-msj") {
		t.Fatal("12 kg shipment should skip the 5 kg service")
	}
	if hasQuote(estimate, "coor-hoy") {
		t.Fatal("12 kg shipment should skip the 10 kg same-day service")
	}
	if !hasQuote(estimate, "serv-merc") {
		t.Fatal("high-capacity services should still quote")
	}
}

func TestWeightFallbackPerUnit(t *testing.T) {
	estimator := newTestEstimator(t)
	items := []domain.CartItem{mustItem(t, "p1", "10.00", "", 4)}

	estimate, err := estimator.Estimate(context.Background(), CarrierEstimateRequest{Items: items})
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}
	// Four weightless units assume 0.5 kg each.
	if !estimate.TotalWeight.Equal(decimal.RequireFromString("2")) {
		t.Fatalf("total weight = %s, want 2", estimate.TotalWeight)
	}
}

func TestEstimateQuotesSortedAscending(t *testing.T) {
	estimator := newTestEstimator(t)
	items := []domain.CartItem{mustItem(t, "p1", "10.00", "1.0", 1)}

	estimate, err := estimator.Estimate(context.Background(), CarrierEstimateRequest{Items: items})
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}
	for i := 1; i < len(estimate.Quotes); i++ {
		if estimate.Quotes[i].Price.LessThan(estimate.Quotes[i-1].Price) {
			t.Fatalf("quotes not sorted: %s before %s", estimate.Quotes[i-1].Price, estimate.Quotes[i].Price)
		}
	}

	cheapest, ok := estimate.Cheapest()
	if !ok {
		t.Fatal("expected at least one quote")
	}
	if !cheapest.Price.Equal(estimate.Quotes[0].Price) {
		t.Fatal("Cheapest should return the head of the sorted list")
	}
}

func TestExpressOptions(t *testing.T) {
	estimator := newTestEstimator(t)
	items := []domain.CartItem{mustItem(t, "p1", "10.00", "1.0", 1)}

	estimate, err := estimator.Estimate(context.Background(), CarrierEstimateRequest{Items: items})
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}
	for _, quote := range estimate.ExpressOptions() {
		if quote.EstimatedDays > 1 && !strings.Contains(quote.ServiceCode, estimate.ExpressMarker) {
			t.Fatalf("%s promises %d days and carries no express code", quote.ID, quote.EstimatedDays)
		}
	}
}

func TestExpressOptionsIncludeExpressCodedSlowServices(t *testing.T) {
	catalog := DefaultCarrierCatalog()
	catalog.Carriers = append(catalog.Carriers, Carrier{
		Code: "LENT",
		Name: "Lentoexpress",
		Services: []CarrierService{
			{
				Code:          "EXP-TERR",
				Name:          "Expreso Terrestre",
				PricingType:   domain.RateTypeFlat,
				EstimatedDays: 3,
			},
		},
	})
	estimator, err := NewCarrierEstimator(CarrierEstimatorDeps{Catalog: catalog})
	if err != nil {
		t.Fatalf("NewCarrierEstimator: %v", err)
	}
	items := []domain.CartItem{mustItem(t, "p1", "10.00", "1.0", 1)}

	estimate, err := estimator.Estimate(context.Background(), CarrierEstimateRequest{Items: items})
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}
	for _, quote := range estimate.ExpressOptions() {
		if quote.ID == "lent-exp-terr" {
			return
		}
	}
	t.Fatal("express-coded multi-day service missing from express options")
}

func TestFilterByCarrier(t *testing.T) {
	estimator := newTestEstimator(t)
	items := []domain.CartItem{mustItem(t, "p1", "10.00", "1.0", 1)}

	estimate, err := estimator.Estimate(context.Background(), CarrierEstimateRequest{Items: items})
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}
	quotes := estimate.FilterByCarrier("serv")
	if len(quotes) != 2 {
		t.Fatalf("got %d Servientrega quotes, want 2", len(quotes))
	}
	for _, quote := range quotes {
		if quote.CarrierCode != "SERV" {
			t.Fatalf("unexpected carrier %s", quote.CarrierCode)
		}
	}
}

func TestRestrictionNotes(t *testing.T) {
	estimator := newTestEstimator(t)
	// 4.2 kg is above 80% of the 5 kg ceiling of intr-exp-msj.
	items := []domain.CartItem{mustItem(t, "p1", "10.00", "4.2", 1)}

	estimate, err := estimator.Estimate(context.Background(), CarrierEstimateRequest{Items: items})
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}
	quote := findQuote(t, estimate, "intr-exp-msj")
	if len(quote.Restrictions) == 0 {
		t.Fatal("near-limit shipment should carry a weight warning")
	}
}

func TestWeightWarningNotAtExactThreshold(t *testing.T) {
	estimator := newTestEstimator(t)
	// 4 kg is exactly 80% of the 5 kg ceiling of intr-exp-msj; no warning yet.
	items := []domain.CartItem{mustItem(t, "p1", "10.00", "4.0", 1)}

	estimate, err := estimator.Estimate(context.Background(), CarrierEstimateRequest{Items: items})
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}
	quote := findQuote(t, estimate, "intr-exp-msj")
	for _, note := range quote.Restrictions {
		if strings.Contains(note, "peso máximo") {
			t.Fatalf("boundary shipment should not warn, got %q", note)
		}
	}
}

func TestEstimateRejectsEmptyCart(t *testing.T) {
	estimator := newTestEstimator(t)

	_, err := estimator.Estimate(context.Background(), CarrierEstimateRequest{})
	if !errors.Is(err, ErrShippingInvalidInput) {
		t.Fatalf("err = %v, want ErrShippingInvalidInput", err)
	}
}

func TestEstimateRejectsNegativeDeclaredValue(t *testing.T) {
	estimator := newTestEstimator(t)
	items := []domain.CartItem{mustItem(t, "p1", "10.00", "1.0", 1)}
	declared := decimal.RequireFromString("-1")

	_, err := estimator.Estimate(context.Background(), CarrierEstimateRequest{Items: items, DeclaredValue: &declared})
	if !errors.Is(err, ErrShippingInvalidInput) {
		t.Fatalf("err = %v, want ErrShippingInvalidInput", err)
	}
}

func TestCatalogValidateRejectsBadTiers(t *testing.T) {
	catalog := DefaultCarrierCatalog()
	bounded := decimal.RequireFromString("30")
	catalog.WeightTiers[len(catalog.WeightTiers)-1].MaxWeight = &bounded

	if err := catalog.Validate(); err == nil {
		t.Fatal("a bounded final tier should fail validation")
	}
}
