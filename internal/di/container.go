package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tiendaflow/api/internal/platform/config"
	"github.com/tiendaflow/api/internal/repositories"
	"github.com/tiendaflow/api/internal/services"
)

// Services bundles the service-layer contracts that handlers rely upon. Concrete
// implementations are assembled via dependency injection in NewContainer.
type Services struct {
	Shipping      services.ShippingQuoteService
	ShippingAdmin services.ShippingAdminService
	Cart          services.CartService
	Audit         services.AuditLogService
}

// Container wires repositories and services for runtime use.
type Container struct {
	Config       config.Config
	Repositories repositories.Registry
	Services     Services
}

// ContainerDeps lists the externally constructed collaborators. Publisher, Catalog,
// and Logger are optional; the catalog defaults to the built-in regional one.
type ContainerDeps struct {
	Config       config.Config
	Repositories repositories.Registry
	Publisher    services.ConfigEventPublisher
	Catalog      *services.CarrierCatalog
	Logger       func(context.Context, string, map[string]any)
}

// NewContainer constructs the runtime dependencies. Production wiring provides the
// Firestore-backed registry, while tests can supply in-memory fakes.
func NewContainer(ctx context.Context, deps ContainerDeps) (*Container, error) {
	if deps.Repositories == nil {
		return nil, errors.New("repositories registry is required")
	}

	svc, err := buildServices(ctx, deps)
	if err != nil {
		return nil, err
	}

	return &Container{
		Config:       deps.Config,
		Repositories: deps.Repositories,
		Services:     svc,
	}, nil
}

// Close releases resources such as repository clients.
func (c *Container) Close(ctx context.Context) error {
	if c == nil || c.Repositories == nil {
		return nil
	}
	return c.Repositories.Close(ctx)
}

func buildServices(_ context.Context, deps ContainerDeps) (Services, error) {
	var svc Services
	reg := deps.Repositories

	if auditRepo := reg.AuditLogs(); auditRepo != nil {
		auditSvc, err := services.NewAuditLogRecorder(services.AuditLogRecorderDeps{
			Logs: auditRepo,
			Now:  time.Now,
		})
		if err != nil {
			return Services{}, fmt.Errorf("build audit log service: %w", err)
		}
		svc.Audit = auditSvc
	}

	if cartRepo := reg.Carts(); cartRepo != nil {
		cartSvc, err := services.NewCartManager(services.CartManagerDeps{
			Carts:  cartRepo,
			Logger: deps.Logger,
		})
		if err != nil {
			return Services{}, fmt.Errorf("build cart service: %w", err)
		}
		svc.Cart = cartSvc
	}

	engine, err := services.NewStoreRateEngine(services.StoreRateEngineDeps{
		Logger: deps.Logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build rate engine: %w", err)
	}

	catalog := services.DefaultCarrierCatalog()
	if deps.Catalog != nil {
		catalog = *deps.Catalog
	}
	estimator, err := services.NewCarrierEstimator(services.CarrierEstimatorDeps{
		Catalog: catalog,
		Logger:  deps.Logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build carrier estimator: %w", err)
	}

	zones := reg.ShippingZones()
	rates := reg.ShippingRates()
	if zones == nil || rates == nil {
		return Services{}, errors.New("shipping repositories are required")
	}

	shippingSvc, err := services.NewShippingService(services.ShippingServiceDeps{
		Zones:     zones,
		Rates:     rates,
		Engine:    engine,
		Estimator: estimator,
		Shipping:  deps.Config.Shipping,
		Logger:    deps.Logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build shipping service: %w", err)
	}
	svc.Shipping = shippingSvc

	adminSvc, err := services.NewShippingAdminManager(services.ShippingAdminManagerDeps{
		Zones:     zones,
		Rates:     rates,
		Audit:     svc.Audit,
		Publisher: deps.Publisher,
		Logger:    deps.Logger,
		Now:       time.Now,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build shipping admin service: %w", err)
	}
	svc.ShippingAdmin = adminSvc

	return svc, nil
}
