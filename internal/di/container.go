package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/balamernstackdev/thulasi-textiles-sub000/internal/domain"
	"github.com/balamernstackdev/thulasi-textiles-sub000/internal/platform/config"
	"github.com/balamernstackdev/thulasi-textiles-sub000/internal/repositories"
	"github.com/balamernstackdev/thulasi-textiles-sub000/internal/services"
)

// Services bundles the service-layer contracts that handlers rely upon. Concrete implementations
// are assembled via dependency injection in NewContainer.
type Services struct {
	Orders        services.OrderService
	Inventory     services.InventoryService
	Coupons       services.CouponService
	Notifications services.NotificationService
	Loyalty       services.LoyaltyService
	LowStock      services.LowStockMonitor
	System        services.SystemService
	Dispatcher    services.SideEffectDispatcher
}

// Dependencies carries the externally provided collaborators the container
// cannot build itself: the repository registry plus the outbound delivery
// channels backed by Pub/Sub in production and by fakes in tests.
type Dependencies struct {
	Registry  repositories.Registry
	Mailer    services.Mailer
	Messenger services.Messenger
	Build     services.BuildInfo
	Clock     func() time.Time
	Logger    func(ctx context.Context, event string, fields map[string]any)
}

// Container wires repositories, services, and background infrastructure for runtime use.
type Container struct {
	Config       config.Config
	Repositories repositories.Registry
	Services     Services
}

// NewContainer constructs the runtime dependencies. Production wiring provides the
// Firestore-backed registry and Pub/Sub delivery channels, while tests can supply
// in-memory registries and recording fakes.
func NewContainer(ctx context.Context, cfg config.Config, deps Dependencies) (*Container, error) {
	if deps.Registry == nil {
		return nil, errors.New("repositories registry is required")
	}

	svc, err := buildServices(cfg, deps)
	if err != nil {
		return nil, err
	}

	return &Container{
		Config:       cfg,
		Repositories: deps.Registry,
		Services:     svc,
	}, nil
}

// Close drains the side effect dispatcher and releases repository clients.
func (c *Container) Close(ctx context.Context) error {
	if c == nil {
		return nil
	}
	var errs []error
	if c.Services.Dispatcher != nil {
		if err := c.Services.Dispatcher.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close dispatcher: %w", err))
		}
	}
	if c.Repositories != nil {
		if err := c.Repositories.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close repositories: %w", err))
		}
	}
	return errors.Join(errs...)
}

func buildServices(cfg config.Config, deps Dependencies) (Services, error) {
	var svc Services

	reg := deps.Registry
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	dispatcher, err := services.NewSideEffectDispatcher(services.SideEffectDispatcherDeps{
		Workers:     cfg.Dispatcher.Workers,
		QueueSize:   cfg.Dispatcher.QueueSize,
		TaskTimeout: cfg.Dispatcher.TaskTimeout,
		Logger:      deps.Logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build side effect dispatcher: %w", err)
	}
	svc.Dispatcher = dispatcher

	coupons, err := services.NewCouponService(services.CouponServiceDeps{
		Coupons: reg.Coupons(),
		Clock:   clock,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build coupon service: %w", err)
	}
	svc.Coupons = coupons

	inventory, err := services.NewInventoryService(services.InventoryServiceDeps{
		Inventory:        reg.Inventory(),
		DefaultThreshold: cfg.Store.LowStockThreshold,
		Clock:            clock,
		Logger:           deps.Logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build inventory service: %w", err)
	}
	svc.Inventory = inventory

	notifications, err := services.NewNotificationService(services.NotificationServiceDeps{
		Notifications: reg.Notifications(),
		Clock:         clock,
		Logger:        deps.Logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build notification service: %w", err)
	}
	svc.Notifications = notifications

	loyalty, err := services.NewLoyaltyService(services.LoyaltyServiceDeps{
		Loyalty:        reg.Loyalty(),
		RupeesPerPoint: cfg.Store.LoyaltyRupees,
		Clock:          clock,
		Logger:         deps.Logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build loyalty service: %w", err)
	}
	svc.Loyalty = loyalty

	lowStock, err := services.NewLowStockMonitor(services.LowStockMonitorDeps{
		Inventory:     reg.Inventory(),
		Notifications: notifications,
		Mailer:        deps.Mailer,
		Threshold:     cfg.Store.LowStockThreshold,
		SupportEmail:  cfg.Store.SupportEmail,
		Clock:         clock,
		Logger:        deps.Logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build low stock monitor: %w", err)
	}
	svc.LowStock = lowStock

	orders, err := services.NewOrderService(services.OrderServiceDeps{
		Orders:        reg.Orders(),
		Inventory:     reg.Inventory(),
		Users:         reg.Users(),
		Addresses:     reg.Addresses(),
		Counters:      reg.Counters(),
		Coupons:       coupons,
		Notifications: notifications,
		Loyalty:       loyalty,
		LowStock:      lowStock,
		Mailer:        deps.Mailer,
		Messenger:     deps.Messenger,
		Dispatcher:    dispatcher,
		Shipping: domain.ShippingPolicy{
			Fee:       cfg.Store.ShippingFee,
			FreeAbove: cfg.Store.FreeShippingAbove,
		},
		OrderNumberPrefix: cfg.Store.OrderNumberPrefix,
		Clock:             clock,
		Logger:            deps.Logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build order service: %w", err)
	}
	svc.Orders = orders

	if healthRepo := reg.Health(); healthRepo != nil {
		system, err := services.NewSystemService(services.SystemServiceDeps{
			HealthRepository: healthRepo,
			Clock:            clock,
			Build:            deps.Build,
		})
		if err != nil {
			return Services{}, fmt.Errorf("build system service: %w", err)
		}
		svc.System = system
	}

	return svc, nil
}
