package services

import (
	"context"

	domain "github.com/balamernstackdev/thulasi-textiles-sub000/internal/domain"
	"github.com/balamernstackdev/thulasi-textiles-sub000/internal/repositories"
)

// Type aliases expose domain models to the services package without reversing dependency direction.
type (
	Pagination         = domain.Pagination
	SortOrder          = domain.SortOrder
	Order              = domain.Order
	OrderItem          = domain.OrderItem
	OrderStatus        = domain.OrderStatus
	PaymentStatus      = domain.PaymentStatus
	ProductVariant     = domain.ProductVariant
	Coupon             = domain.Coupon
	Notification       = domain.Notification
	LoyaltyTransaction = domain.LoyaltyTransaction
	UserProfile        = domain.UserProfile
	Address            = domain.Address
	SystemHealthReport = domain.SystemHealthReport
)

// OrderService orchestrates the order lifecycle: placement with atomic stock
// and coupon effects, status transitions, and fulfilment queries.
type OrderService interface {
	PlaceOrder(ctx context.Context, cmd PlaceOrderCommand) (Order, error)
	GetOrder(ctx context.Context, orderID string, opts OrderReadOptions) (Order, error)
	ListOrders(ctx context.Context, filter OrderListFilter) (domain.CursorPage[Order], error)
	TransitionStatus(ctx context.Context, cmd OrderStatusTransitionCommand) (Order, error)
	BulkTransitionStatus(ctx context.Context, cmd BulkTransitionCommand) (BulkTransitionResult, error)
	AttachTracking(ctx context.Context, cmd AttachTrackingCommand) (Order, error)
}

// InventoryService exposes stock reads and admin adjustments. Order-linked
// decrements and restores happen inside order placement and cancellation.
type InventoryService interface {
	GetVariant(ctx context.Context, variantID string) (ProductVariant, error)
	SetStock(ctx context.Context, cmd SetStockCommand) (ProductVariant, error)
	ListLowStock(ctx context.Context, filter LowStockFilter) (domain.CursorPage[ProductVariant], error)
}

// CouponService validates coupon codes against business rules before an order
// commits the redemption.
type CouponService interface {
	Validate(ctx context.Context, cmd ValidateCouponCommand) (CouponValidationResult, error)
}

// NotificationService creates and serves in-app notifications.
type NotificationService interface {
	Push(ctx context.Context, cmd PushNotificationCommand) (Notification, error)
	ListForUser(ctx context.Context, userID string, pager Pagination) (domain.CursorPage[Notification], error)
	ListForAdmins(ctx context.Context, pager Pagination) (domain.CursorPage[Notification], error)
	MarkRead(ctx context.Context, userID string, notificationID string) error
}

// LoyaltyService grants reward points for delivered orders. Grants are
// idempotent per order.
type LoyaltyService interface {
	GrantForDelivery(ctx context.Context, order Order) (LoyaltyGrantOutcome, error)
	ListTransactions(ctx context.Context, userID string, pager Pagination) (domain.CursorPage[LoyaltyTransaction], error)
}

// LowStockMonitor inspects variant stock after decrements and raises alerts
// when the level sits at or below the configured threshold.
type LowStockMonitor interface {
	CheckVariant(ctx context.Context, variantID string) error
}

// SystemService aggregates operational health signals.
type SystemService interface {
	Health(ctx context.Context) (SystemHealthReport, error)
}

// SideEffectDispatcher runs post-commit side effects on a bounded worker
// pool. Enqueue never blocks: it reports false when the queue is full and the
// task is dropped.
type SideEffectDispatcher interface {
	Enqueue(name string, task func(context.Context) error) bool
	Close(ctx context.Context) error
}

// Mailer delivers transactional email, typically by enqueuing a job for the
// email worker.
type Mailer interface {
	Send(ctx context.Context, message EmailMessage) error
}

// Messenger delivers customer WhatsApp messages via the messaging worker.
type Messenger interface {
	Send(ctx context.Context, message TextMessage) error
}

// EmailMessage is the payload handed to the email worker.
type EmailMessage struct {
	To      string            `json:"to"`
	Subject string            `json:"subject"`
	HTML    string            `json:"html"`
	Kind    string            `json:"kind"`
	OrderID string            `json:"orderId,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
}

// TextMessage is the payload handed to the messaging worker. Template names a
// pre-approved message template; Params fill its placeholders.
type TextMessage struct {
	Phone    string            `json:"phone"`
	Template string            `json:"template"`
	OrderID  string            `json:"orderId,omitempty"`
	Params   map[string]string `json:"params,omitempty"`
}

// Command and DTO definitions ------------------------------------------------

// OrderLineInput names one variant purchase within a placement command.
// UnitPrice carries the price captured when the line entered the basket; zero
// means the variant's current price applies.
type OrderLineInput struct {
	VariantID string
	Quantity  int
	UnitPrice int64
}

// PlaceOrderCommand carries everything needed to place an order.
type PlaceOrderCommand struct {
	UserID     string
	AddressID  string
	Items      []OrderLineInput
	CouponCode string
}

// OrderReadOptions scopes single-order reads. When ForUserID is set the order
// must belong to that user.
type OrderReadOptions struct {
	ForUserID string
}

// OrderListFilter mirrors the repository filter for list queries.
type OrderListFilter = repositories.OrderListFilter

// OrderStatusTransitionCommand moves one order to a target status.
type OrderStatusTransitionCommand struct {
	OrderID string
	Target  OrderStatus
	ActorID string
}

// AttachTrackingCommand records courier details and marks the order shipped.
type AttachTrackingCommand struct {
	OrderID        string
	CourierName    string
	TrackingNumber string
	ActorID        string
}

// BulkTransitionCommand applies one target status to many orders, best effort
// per order.
type BulkTransitionCommand struct {
	OrderIDs []string
	Target   OrderStatus
	ActorID  string
}

// BulkTransitionFailure reports why one order in a bulk command was skipped.
type BulkTransitionFailure struct {
	OrderID string
	Reason  string
}

// BulkTransitionResult partitions a bulk command into successes and failures.
type BulkTransitionResult struct {
	Succeeded []string
	Failed    []BulkTransitionFailure
}

// SetStockCommand sets a variant's absolute stock level.
type SetStockCommand struct {
	VariantID string
	Stock     int
	ActorID   string
}

// LowStockFilter bounds low stock listings. Threshold zero means the
// configured store threshold applies.
type LowStockFilter struct {
	Threshold  int
	Pagination Pagination
}

// ValidateCouponCommand checks a code against an order subtotal.
type ValidateCouponCommand struct {
	Code     string
	Subtotal int64
}

// CouponValidationResult returns the matched coupon and the rupee discount it
// yields on the supplied subtotal.
type CouponValidationResult struct {
	Coupon   Coupon
	Discount int64
}

// PushNotificationCommand creates one in-app notification. ForAdmins targets
// the admin audience instead of a single user.
type PushNotificationCommand struct {
	UserID    string
	ForAdmins bool
	Title     string
	Message   string
	Type      domain.NotificationType
	Link      string
}

// LoyaltyGrantOutcome reports the result of a delivery grant. Granted is
// false when the order already earned its points.
type LoyaltyGrantOutcome struct {
	Granted bool
	Points  int64
	Balance int64
}
