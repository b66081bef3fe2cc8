package firestore

import (
	"context"
	"errors"

	"cloud.google.com/go/firestore"

	"github.com/balamernstackdev/thulasi-textiles-sub000/internal/repositories"

	pfirestore "github.com/balamernstackdev/thulasi-textiles-sub000/internal/platform/firestore"
)

// Registry bundles the Firestore-backed repositories behind the
// repositories.Registry contract. All repositories share one provider so
// they reuse a single client connection.
type Registry struct {
	provider *pfirestore.Provider

	orders        *OrderRepository
	inventory     *InventoryRepository
	coupons       *CouponRepository
	notifications *NotificationRepository
	loyalty       *LoyaltyRepository
	users         *UserRepository
	addresses     *AddressRepository
	counters      *CounterRepository
	health        repositories.HealthRepository
}

var _ repositories.Registry = (*Registry)(nil)

// NewRegistry constructs every Firestore repository against the shared
// provider. The health repository is optional; pass nil when readiness
// checks are assembled elsewhere.
func NewRegistry(provider *pfirestore.Provider, health repositories.HealthRepository) (*Registry, error) {
	if provider == nil {
		return nil, errors.New("firestore registry: provider is required")
	}

	orders, err := NewOrderRepository(provider)
	if err != nil {
		return nil, err
	}
	inventory, err := NewInventoryRepository(provider)
	if err != nil {
		return nil, err
	}
	coupons, err := NewCouponRepository(provider)
	if err != nil {
		return nil, err
	}
	notifications, err := NewNotificationRepository(provider)
	if err != nil {
		return nil, err
	}
	loyalty, err := NewLoyaltyRepository(provider)
	if err != nil {
		return nil, err
	}
	users, err := NewUserRepository(provider)
	if err != nil {
		return nil, err
	}
	addresses, err := NewAddressRepository(provider)
	if err != nil {
		return nil, err
	}
	counters, err := NewCounterRepository(provider)
	if err != nil {
		return nil, err
	}

	return &Registry{
		provider:      provider,
		orders:        orders,
		inventory:     inventory,
		coupons:       coupons,
		notifications: notifications,
		loyalty:       loyalty,
		users:         users,
		addresses:     addresses,
		counters:      counters,
		health:        health,
	}, nil
}

// Close releases the underlying Firestore client.
func (r *Registry) Close(ctx context.Context) error {
	if r == nil || r.provider == nil {
		return nil
	}
	return r.provider.Close(ctx)
}

// RunInTx executes fn inside a Firestore transaction. Repositories that own
// multi-document invariants (order placement, transitions, loyalty grants)
// already run their own transactions, so this exists for callers that need
// an explicit outer boundary.
func (r *Registry) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if r == nil || r.provider == nil {
		return errors.New("firestore registry: not initialised")
	}
	return r.provider.RunTransaction(ctx, func(txCtx context.Context, _ *firestore.Transaction) error {
		return fn(txCtx)
	})
}

func (r *Registry) Orders() repositories.OrderRepository { return r.orders }

func (r *Registry) Inventory() repositories.InventoryRepository { return r.inventory }

func (r *Registry) Coupons() repositories.CouponRepository { return r.coupons }

func (r *Registry) Notifications() repositories.NotificationRepository { return r.notifications }

func (r *Registry) Loyalty() repositories.LoyaltyRepository { return r.loyalty }

func (r *Registry) Users() repositories.UserRepository { return r.users }

func (r *Registry) Addresses() repositories.AddressRepository { return r.addresses }

func (r *Registry) Counters() repositories.CounterRepository { return r.counters }

func (r *Registry) Health() repositories.HealthRepository { return r.health }
