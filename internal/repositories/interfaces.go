package repositories

import (
	"context"
	"time"

	domain "github.com/balamernstackdev/thulasi-textiles-sub000/internal/domain"
)

// Registry exposes typed repository accessors and lifecycle hooks for dependency injection.
type Registry interface {
	Close(ctx context.Context) error

	Orders() OrderRepository
	Inventory() InventoryRepository
	Coupons() CouponRepository
	Notifications() NotificationRepository
	Loyalty() LoyaltyRepository
	Users() UserRepository
	Addresses() AddressRepository
	Counters() CounterRepository
	Health() HealthRepository
	UnitOfWork
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// UnitOfWork allows grouping repository operations in a transactional boundary when supported.
type UnitOfWork interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// OrderRepository persists order documents and owns the transactional
// boundaries around placement and status transitions. Place and Transition
// mutate variant stock and coupon counters inside the same transaction as the
// order write so that either all effects commit or none do.
type OrderRepository interface {
	Place(ctx context.Context, req PlaceOrderRequest) (PlaceOrderResult, error)
	Transition(ctx context.Context, req OrderTransitionRequest) (OrderTransitionResult, error)
	FindByID(ctx context.Context, orderID string) (domain.Order, error)
	List(ctx context.Context, filter OrderListFilter) (domain.CursorPage[domain.Order], error)
}

// PlaceOrderRequest carries a fully priced order plus the stock and coupon
// effects the placement transaction must apply atomically.
type PlaceOrderRequest struct {
	Order    domain.Order
	Reserve  []StockLine
	CouponID string
	Now      time.Time
}

// StockLine names one variant decrement inside a placement transaction.
type StockLine struct {
	VariantID string
	Quantity  int
}

// PlaceOrderResult returns the persisted order and the post-decrement stock
// projection for each reserved variant.
type PlaceOrderResult struct {
	Order  domain.Order
	Stocks map[string]domain.ProductVariant
}

// OrderTransitionRequest moves an order to a target status. Courier fields
// are only consulted when the target is SHIPPED.
type OrderTransitionRequest struct {
	OrderID        string
	Target         domain.OrderStatus
	CourierName    string
	TrackingNumber string
	Now            time.Time
}

// OrderTransitionResult reports the updated order, the status it held before
// the move, and the stock restored when the move cancelled the order.
type OrderTransitionResult struct {
	Order    domain.Order
	Previous domain.OrderStatus
	NoChange bool
	Restored map[string]domain.ProductVariant
}

// OrderListFilter bounds order listings for user and admin surfaces.
type OrderListFilter struct {
	UserID     string
	Status     []domain.OrderStatus
	DateRange  domain.RangeQuery[time.Time]
	OldestOnly bool
	Pagination domain.Pagination
}

// InventoryRepository reads and adjusts variant stock outside of order
// transactions. All decrements tied to orders flow through OrderRepository.
type InventoryRepository interface {
	FindVariant(ctx context.Context, variantID string) (domain.ProductVariant, error)
	SetStock(ctx context.Context, variantID string, stock int, now time.Time) (domain.ProductVariant, error)
	ListLowStock(ctx context.Context, query LowStockQuery) (domain.CursorPage[domain.ProductVariant], error)
}

// LowStockQuery controls threshold filtering and pagination for low stock listings.
type LowStockQuery struct {
	Threshold  int
	Pagination domain.Pagination
}

// CouponRepository resolves coupon codes. Redemption counting happens inside
// the order placement transaction.
type CouponRepository interface {
	FindByCode(ctx context.Context, code string) (domain.Coupon, error)
	FindByID(ctx context.Context, couponID string) (domain.Coupon, error)
}

// NotificationRepository stores in-app notifications for users and admins.
type NotificationRepository interface {
	Insert(ctx context.Context, notification domain.Notification) error
	ListForUser(ctx context.Context, userID string, pager domain.Pagination) (domain.CursorPage[domain.Notification], error)
	ListForAdmins(ctx context.Context, pager domain.Pagination) (domain.CursorPage[domain.Notification], error)
	MarkRead(ctx context.Context, userID string, notificationID string, now time.Time) error
}

// LoyaltyRepository grants reward points. Grant is idempotent per order: a
// repeated grant for the same order is a no-op and reports Granted false.
type LoyaltyRepository interface {
	Grant(ctx context.Context, grant LoyaltyGrant) (LoyaltyGrantResult, error)
	ListByUser(ctx context.Context, userID string, pager domain.Pagination) (domain.CursorPage[domain.LoyaltyTransaction], error)
}

// LoyaltyGrant describes one points award tied to an order.
type LoyaltyGrant struct {
	UserID  string
	OrderID string
	Points  int64
	Reason  string
	Now     time.Time
}

// LoyaltyGrantResult reports whether this call created the grant and the
// user's balance after it.
type LoyaltyGrantResult struct {
	Granted     bool
	Transaction domain.LoyaltyTransaction
	Balance     int64
}

// UserRepository stores user profiles.
type UserRepository interface {
	FindByID(ctx context.Context, userID string) (domain.UserProfile, error)
}

// AddressRepository stores shipping addresses per user.
type AddressRepository interface {
	Get(ctx context.Context, userID string, addressID string) (domain.Address, error)
	List(ctx context.Context, userID string) ([]domain.Address, error)
}

// CounterRepository provides transaction-safe sequence numbers.
type CounterRepository interface {
	Next(ctx context.Context, counterID string, step int64) (int64, error)
}

// CounterConfig captures optional settings applied when configuring a counter.
type CounterConfig struct {
	Step         int64
	MaxValue     *int64
	InitialValue *int64
}

// HealthRepository exposes status of downstream dependencies for health checks.
type HealthRepository interface {
	Collect(ctx context.Context) (domain.SystemHealthReport, error)
}
