package domain

import (
	"time"
)

// Pagination defines standard cursor-based paging inputs for list operations.
type Pagination struct {
	PageSize  int
	PageToken string
}

// SortOrder indicates ascending or descending ordering for list queries.
type SortOrder string

const (
	// SortAsc sorts results in ascending order.
	SortAsc SortOrder = "asc"
	// SortDesc sorts results in descending order.
	SortDesc SortOrder = "desc"
)

// RangeQuery represents inclusive range filters for numeric or timestamp fields.
type RangeQuery[T comparable] struct {
	From *T
	To   *T
}

// CursorPage wraps a page of results plus the continuation token.
type CursorPage[T any] struct {
	Items         []T
	NextPageToken string
}

// OrderStatus enumerates the lifecycle states of an order. Values match the
// uppercase tokens persisted and serialised on the wire.
type OrderStatus string

const (
	// OrderStatusPending indicates the order has been placed and awaits handling.
	OrderStatusPending OrderStatus = "PENDING"
	// OrderStatusProcessing indicates the order is being picked and packed.
	OrderStatusProcessing OrderStatus = "PROCESSING"
	// OrderStatusShipped indicates the order has been handed to the courier.
	OrderStatusShipped OrderStatus = "SHIPPED"
	// OrderStatusDelivered indicates the order reached the customer. Terminal.
	OrderStatusDelivered OrderStatus = "DELIVERED"
	// OrderStatusCancelled indicates the order was cancelled and its stock restored. Terminal.
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// PaymentStatus tracks the payment outcome attached to an order.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "PENDING"
	PaymentStatusPaid    PaymentStatus = "PAID"
	PaymentStatusFailed  PaymentStatus = "FAILED"
)

// Order captures the authoritative order record. Monetary fields are whole
// rupees frozen at creation time; they are never recomputed from live catalog
// prices.
type Order struct {
	ID              string
	OrderNumber     string
	UserID          string
	AddressID       string
	ShippingAddress *Address
	Items           []OrderItem
	Subtotal        int64
	Shipping        int64
	Discount        int64
	Total           int64
	CouponID        string
	CouponCode      string
	Status          OrderStatus
	PaymentStatus   PaymentStatus
	CourierName     string
	TrackingNumber  string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	ShippedAt       *time.Time
	DeliveredAt     *time.Time
	CancelledAt     *time.Time
}

// OrderItem snapshots a purchased variant line at order time. UnitPrice is
// the price captured when the item entered the basket, decoupled from the
// variant's live price.
type OrderItem struct {
	VariantID string
	SKU       string
	Name      string
	Size      string
	Colour    string
	Quantity  int
	UnitPrice int64
	Total     int64
}

// ProductVariant is the SKU-bearing stock unit. Stock is the shared mutable
// resource of the engine and must never go negative.
type ProductVariant struct {
	ID        string
	ProductID string
	SKU       string
	Name      string
	Size      string
	Colour    string
	Material  string
	Price     int64
	Stock     int
	UpdatedAt time.Time
}

// CouponType selects between percentage and flat discount rules.
type CouponType string

const (
	CouponTypePercent CouponType = "PERCENT"
	CouponTypeFlat    CouponType = "FLAT"
)

// Coupon holds a discount rule and its redemption counter. UsedCount only
// ever increments; cancelling an order does not return the redemption.
type Coupon struct {
	ID          string
	Code        string
	Type        CouponType
	Value       int64
	MinSubtotal int64
	MaxUses     int
	UsedCount   int
	StartsAt    time.Time
	ExpiresAt   time.Time
	Active      bool
}

// NotificationType labels in-app notifications for the client UI.
type NotificationType string

const (
	NotificationTypeOrder  NotificationType = "order"
	NotificationTypeStock  NotificationType = "stock"
	NotificationTypeReward NotificationType = "reward"
)

// Notification is an in-app message targeted at one user or at the admin
// audience. Notifications are additive and never required for order
// correctness.
type Notification struct {
	ID        string
	UserID    string
	ForAdmins bool
	Title     string
	Message   string
	Type      NotificationType
	Link      string
	Read      bool
	CreatedAt time.Time
}

// LoyaltyTransaction records a points grant tied to a delivered order.
// At most one exists per order.
type LoyaltyTransaction struct {
	ID        string
	UserID    string
	OrderID   string
	Points    int64
	Reason    string
	CreatedAt time.Time
}

// UserProfile is the contact and rewards snapshot consumed by notifications
// and the loyalty engine.
type UserProfile struct {
	UID           string
	Name          string
	Email         string
	Phone         string
	LoyaltyPoints int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Address is a shipping address snapshot attached to orders and reused for
// shipping notification content.
type Address struct {
	ID      string
	Name    string
	Street  string
	City    string
	State   string
	Pincode string
	Phone   string
}
