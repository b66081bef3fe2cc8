package firestore

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	domain "github.com/balamernstackdev/thulasi-textiles-sub000/internal/domain"
	pfirestore "github.com/balamernstackdev/thulasi-textiles-sub000/internal/platform/firestore"
	"github.com/balamernstackdev/thulasi-textiles-sub000/internal/repositories"
)

const (
	ordersCollection  = "orders"
	couponsCollection = "coupons"
)

// OrderRepository persists orders and owns the transactional boundaries of the
// order lifecycle. Placement writes the order, decrements variant stock, and
// counts coupon usage in one transaction; cancellation restores stock in the
// same transaction that flips the status.
type OrderRepository struct {
	provider *pfirestore.Provider
	orders   *pfirestore.BaseRepository[orderDocument]
	variants *pfirestore.BaseRepository[variantDocument]
	coupons  *pfirestore.BaseRepository[couponDocument]
}

// NewOrderRepository constructs a Firestore-backed order repository.
func NewOrderRepository(provider *pfirestore.Provider) (*OrderRepository, error) {
	if provider == nil {
		return nil, errors.New("order repository requires firestore provider")
	}
	return &OrderRepository{
		provider: provider,
		orders:   pfirestore.NewBaseRepository[orderDocument](provider, ordersCollection, nil, nil),
		variants: pfirestore.NewBaseRepository[variantDocument](provider, variantsCollection, nil, nil),
		coupons:  pfirestore.NewBaseRepository[couponDocument](provider, couponsCollection, nil, nil),
	}, nil
}

// Place creates the order document and applies its stock and coupon effects
// atomically. Firestore requires all transactional reads before any write, so
// the variant and coupon snapshots are collected first.
func (r *OrderRepository) Place(ctx context.Context, req repositories.PlaceOrderRequest) (repositories.PlaceOrderResult, error) {
	if r == nil || r.provider == nil {
		return repositories.PlaceOrderResult{}, errors.New("order repository not initialised")
	}
	order := req.Order
	if strings.TrimSpace(order.ID) == "" {
		return repositories.PlaceOrderResult{}, repositories.NewOrderError(repositories.OrderErrorInvalidInput, "order id is required", nil)
	}
	if len(req.Reserve) == 0 {
		return repositories.PlaceOrderResult{}, repositories.NewOrderError(repositories.OrderErrorInvalidInput, "at least one stock line is required", nil)
	}

	now := req.Now.UTC()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = now
	if order.Status == "" {
		order.Status = domain.OrderStatusPending
	}

	var result repositories.PlaceOrderResult
	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		type variantUpdate struct {
			ref *firestore.DocumentRef
			doc variantDocument
		}

		updates := make([]variantUpdate, 0, len(req.Reserve))
		stocks := make(map[string]domain.ProductVariant, len(req.Reserve))
		for _, line := range req.Reserve {
			variantID := strings.TrimSpace(line.VariantID)
			if variantID == "" {
				return repositories.NewInventoryError(repositories.InventoryErrorInvalidInput, "variant id is required", nil)
			}
			if line.Quantity <= 0 {
				return repositories.NewInventoryError(repositories.InventoryErrorInvalidInput, fmt.Sprintf("quantity for %s must be > 0", variantID), nil)
			}

			ref, err := r.variants.DocumentRef(ctx, variantID)
			if err != nil {
				return err
			}
			snap, err := tx.Get(ref)
			if err != nil {
				if status.Code(err) == codes.NotFound {
					return repositories.NewInventoryError(repositories.InventoryErrorVariantNotFound, fmt.Sprintf("variant %s not found", variantID), err)
				}
				return err
			}
			doc, err := decodeVariant(snap)
			if err != nil {
				return err
			}
			if doc.Stock < line.Quantity {
				return repositories.NewInventoryError(repositories.InventoryErrorInsufficientStock, fmt.Sprintf("variant %s has %d units, requested %d", variantID, doc.Stock, line.Quantity), nil)
			}
			doc.Stock -= line.Quantity
			doc.UpdatedAt = now
			updates = append(updates, variantUpdate{ref: ref, doc: doc})
			stocks[variantID] = doc.toDomain(variantID)
		}

		var (
			couponRef *firestore.DocumentRef
			couponDoc couponDocument
		)
		if couponID := strings.TrimSpace(req.CouponID); couponID != "" {
			ref, err := r.coupons.DocumentRef(ctx, couponID)
			if err != nil {
				return err
			}
			snap, err := tx.Get(ref)
			if err != nil {
				if status.Code(err) == codes.NotFound {
					return repositories.NewCouponError(repositories.CouponErrorNotFound, fmt.Sprintf("coupon %s not found", couponID), err)
				}
				return err
			}
			if err := snap.DataTo(&couponDoc); err != nil {
				return fmt.Errorf("decode coupon %s: %w", couponID, err)
			}
			if couponDoc.MaxUses > 0 && couponDoc.UsedCount >= couponDoc.MaxUses {
				return repositories.NewCouponError(repositories.CouponErrorExhausted, fmt.Sprintf("coupon %s usage limit reached", couponDoc.Code), nil)
			}
			couponDoc.UsedCount++
			couponRef = ref
		}

		orderRef, err := r.orders.DocumentRef(ctx, order.ID)
		if err != nil {
			return err
		}

		for _, update := range updates {
			if err := tx.Set(update.ref, update.doc); err != nil {
				return err
			}
		}
		if couponRef != nil {
			if err := tx.Set(couponRef, couponDoc); err != nil {
				return err
			}
		}
		if err := tx.Create(orderRef, newOrderDocument(order)); err != nil {
			if status.Code(err) == codes.AlreadyExists {
				return repositories.NewOrderError(repositories.OrderErrorInvalidInput, fmt.Sprintf("order %s already exists", order.ID), err)
			}
			return err
		}

		result = repositories.PlaceOrderResult{Order: order, Stocks: stocks}
		return nil
	})
	if err != nil {
		return repositories.PlaceOrderResult{}, wrapOrderError("orders.place", err)
	}
	return result, nil
}

// Transition moves the order to the target status, enforcing the lifecycle
// table. Shipping requires courier and tracking details, supplied with the
// request or already recorded on the order. Cancelling restores the order's
// stock inside the same transaction; a transition to the order's current
// status is reported as NoChange without any write.
func (r *OrderRepository) Transition(ctx context.Context, req repositories.OrderTransitionRequest) (repositories.OrderTransitionResult, error) {
	if r == nil || r.provider == nil {
		return repositories.OrderTransitionResult{}, errors.New("order repository not initialised")
	}
	orderID := strings.TrimSpace(req.OrderID)
	if orderID == "" {
		return repositories.OrderTransitionResult{}, repositories.NewOrderError(repositories.OrderErrorInvalidInput, "order id is required", nil)
	}
	if !domain.ValidOrderStatus(req.Target) {
		return repositories.OrderTransitionResult{}, repositories.NewOrderError(repositories.OrderErrorInvalidInput, fmt.Sprintf("unknown status %q", req.Target), nil)
	}

	now := req.Now.UTC()
	var result repositories.OrderTransitionResult
	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		orderRef, err := r.orders.DocumentRef(ctx, orderID)
		if err != nil {
			return err
		}
		snap, err := tx.Get(orderRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return repositories.NewOrderError(repositories.OrderErrorNotFound, fmt.Sprintf("order %s not found", orderID), err)
			}
			return err
		}
		var doc orderDocument
		if err := snap.DataTo(&doc); err != nil {
			return fmt.Errorf("decode order %s: %w", orderID, err)
		}

		previous := domain.OrderStatus(doc.Status)
		if previous == req.Target {
			result = repositories.OrderTransitionResult{
				Order:    doc.toDomain(orderID),
				Previous: previous,
				NoChange: true,
			}
			return nil
		}
		if !domain.CanTransition(previous, req.Target) {
			return repositories.NewOrderError(repositories.OrderErrorInvalidTransition, fmt.Sprintf("cannot move order %s from %s to %s", orderID, previous, req.Target), nil)
		}
		if req.Target == domain.OrderStatusShipped {
			courier := strings.TrimSpace(req.CourierName)
			if courier == "" {
				courier = strings.TrimSpace(doc.CourierName)
			}
			tracking := strings.TrimSpace(req.TrackingNumber)
			if tracking == "" {
				tracking = strings.TrimSpace(doc.TrackingNumber)
			}
			if courier == "" || tracking == "" {
				return repositories.NewOrderError(repositories.OrderErrorInvalidTransition, fmt.Sprintf("order %s cannot be shipped without courier and tracking details", orderID), nil)
			}
		}

		type variantUpdate struct {
			ref *firestore.DocumentRef
			doc variantDocument
		}
		var (
			restores []variantUpdate
			restored map[string]domain.ProductVariant
		)
		if req.Target == domain.OrderStatusCancelled {
			restored = make(map[string]domain.ProductVariant, len(doc.Items))
			for _, item := range doc.Items {
				variantID := strings.TrimSpace(item.VariantID)
				if variantID == "" || item.Quantity <= 0 {
					continue
				}
				ref, err := r.variants.DocumentRef(ctx, variantID)
				if err != nil {
					return err
				}
				variantSnap, err := tx.Get(ref)
				if err != nil {
					if status.Code(err) == codes.NotFound {
						// Variant removed from the catalog after purchase;
						// nothing to restore.
						continue
					}
					return err
				}
				variantDoc, err := decodeVariant(variantSnap)
				if err != nil {
					return err
				}
				variantDoc.Stock += item.Quantity
				variantDoc.UpdatedAt = now
				restores = append(restores, variantUpdate{ref: ref, doc: variantDoc})
				restored[variantID] = variantDoc.toDomain(variantID)
			}
		}

		doc.Status = string(req.Target)
		doc.UpdatedAt = now
		switch req.Target {
		case domain.OrderStatusShipped:
			doc.ShippedAt = &now
			if courier := strings.TrimSpace(req.CourierName); courier != "" {
				doc.CourierName = courier
			}
			if tracking := strings.TrimSpace(req.TrackingNumber); tracking != "" {
				doc.TrackingNumber = tracking
			}
		case domain.OrderStatusDelivered:
			doc.DeliveredAt = &now
		case domain.OrderStatusCancelled:
			doc.CancelledAt = &now
		}

		for _, restore := range restores {
			if err := tx.Set(restore.ref, restore.doc); err != nil {
				return err
			}
		}
		if err := tx.Set(orderRef, doc); err != nil {
			return err
		}

		result = repositories.OrderTransitionResult{
			Order:    doc.toDomain(orderID),
			Previous: previous,
			Restored: restored,
		}
		return nil
	})
	if err != nil {
		return repositories.OrderTransitionResult{}, wrapOrderError("orders.transition", err)
	}
	return result, nil
}

// FindByID loads one order document.
func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	if r == nil || r.orders == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return domain.Order{}, repositories.NewOrderError(repositories.OrderErrorInvalidInput, "order id is required", nil)
	}

	doc, err := r.orders.Get(ctx, orderID)
	if err != nil {
		var repoErr *pfirestore.Error
		if errors.As(err, &repoErr) && repoErr.IsNotFound() {
			return domain.Order{}, repositories.NewOrderError(repositories.OrderErrorNotFound, fmt.Sprintf("order %s not found", orderID), err)
		}
		return domain.Order{}, wrapOrderError("orders.find", err)
	}
	return doc.Data.toDomain(doc.ID), nil
}

// List returns orders matching the filter, newest first unless OldestOnly is
// set, with cursor-based pagination on the creation timestamp.
func (r *OrderRepository) List(ctx context.Context, filter repositories.OrderListFilter) (domain.CursorPage[domain.Order], error) {
	if r == nil || r.provider == nil {
		return domain.CursorPage[domain.Order]{}, errors.New("order repository not initialised")
	}

	pageSize := filter.Pagination.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}
	if pageSize > 200 {
		pageSize = 200
	}

	client, err := r.provider.Client(ctx)
	if err != nil {
		return domain.CursorPage[domain.Order]{}, wrapOrderError("orders.list", err)
	}

	direction := firestore.Desc
	if filter.OldestOnly {
		direction = firestore.Asc
	}

	query := client.Collection(ordersCollection).Query
	if userID := strings.TrimSpace(filter.UserID); userID != "" {
		query = query.Where("userId", "==", userID)
	}
	if len(filter.Status) == 1 {
		query = query.Where("status", "==", string(filter.Status[0]))
	} else if len(filter.Status) > 1 {
		statuses := make([]string, len(filter.Status))
		for i, s := range filter.Status {
			statuses[i] = string(s)
		}
		query = query.Where("status", "in", statuses)
	}
	if filter.DateRange.From != nil {
		query = query.Where("createdAt", ">=", filter.DateRange.From.UTC())
	}
	if filter.DateRange.To != nil {
		query = query.Where("createdAt", "<=", filter.DateRange.To.UTC())
	}
	query = query.
		OrderBy("createdAt", direction).
		OrderBy("orderNumber", direction).
		Limit(pageSize + 1)

	if token := strings.TrimSpace(filter.Pagination.PageToken); token != "" {
		decoded, err := decodeOrderPageToken(token)
		if err != nil {
			return domain.CursorPage[domain.Order]{}, wrapOrderError("orders.list", err)
		}
		query = query.StartAfter(decoded.CreatedAt, decoded.Number)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	var orders []domain.Order
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return domain.CursorPage[domain.Order]{}, wrapOrderError("orders.list", err)
		}
		var doc orderDocument
		if err := snap.DataTo(&doc); err != nil {
			return domain.CursorPage[domain.Order]{}, fmt.Errorf("decode order %s: %w", snap.Ref.ID, err)
		}
		orders = append(orders, doc.toDomain(snap.Ref.ID))
	}

	hasMore := len(orders) > pageSize
	if hasMore {
		orders = orders[:pageSize]
	}
	var nextToken string
	if hasMore && len(orders) > 0 {
		last := orders[len(orders)-1]
		encoded, err := encodeOrderPageToken(orderPageToken{CreatedAt: last.CreatedAt, Number: last.OrderNumber})
		if err != nil {
			return domain.CursorPage[domain.Order]{}, wrapOrderError("orders.list", err)
		}
		nextToken = encoded
	}

	return domain.CursorPage[domain.Order]{
		Items:         orders,
		NextPageToken: nextToken,
	}, nil
}

// Helper structures ---------------------------------------------------------

type orderDocument struct {
	OrderNumber     string              `firestore:"orderNumber"`
	UserID          string              `firestore:"userId"`
	AddressID       string              `firestore:"addressId"`
	ShippingAddress *addressDocument    `firestore:"shippingAddress,omitempty"`
	Items           []orderItemDocument `firestore:"items"`
	Subtotal        int64               `firestore:"subtotal"`
	Shipping        int64               `firestore:"shipping"`
	Discount        int64               `firestore:"discount"`
	Total           int64               `firestore:"total"`
	CouponID        string              `firestore:"couponId,omitempty"`
	CouponCode      string              `firestore:"couponCode,omitempty"`
	Status          string              `firestore:"status"`
	PaymentStatus   string              `firestore:"paymentStatus"`
	CourierName     string              `firestore:"courierName,omitempty"`
	TrackingNumber  string              `firestore:"trackingNumber,omitempty"`
	CreatedAt       time.Time           `firestore:"createdAt"`
	UpdatedAt       time.Time           `firestore:"updatedAt"`
	ShippedAt       *time.Time          `firestore:"shippedAt,omitempty"`
	DeliveredAt     *time.Time          `firestore:"deliveredAt,omitempty"`
	CancelledAt     *time.Time          `firestore:"cancelledAt,omitempty"`
}

type orderItemDocument struct {
	VariantID string `firestore:"variantId"`
	SKU       string `firestore:"sku"`
	Name      string `firestore:"name"`
	Size      string `firestore:"size,omitempty"`
	Colour    string `firestore:"colour,omitempty"`
	Quantity  int    `firestore:"qty"`
	UnitPrice int64  `firestore:"unitPrice"`
	Total     int64  `firestore:"total"`
}

func newOrderDocument(order domain.Order) orderDocument {
	items := make([]orderItemDocument, len(order.Items))
	for i, item := range order.Items {
		items[i] = orderItemDocument{
			VariantID: strings.TrimSpace(item.VariantID),
			SKU:       strings.TrimSpace(item.SKU),
			Name:      strings.TrimSpace(item.Name),
			Size:      strings.TrimSpace(item.Size),
			Colour:    strings.TrimSpace(item.Colour),
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Total:     item.Total,
		}
	}
	doc := orderDocument{
		OrderNumber:    strings.TrimSpace(order.OrderNumber),
		UserID:         strings.TrimSpace(order.UserID),
		AddressID:      strings.TrimSpace(order.AddressID),
		Items:          items,
		Subtotal:       order.Subtotal,
		Shipping:       order.Shipping,
		Discount:       order.Discount,
		Total:          order.Total,
		CouponID:       strings.TrimSpace(order.CouponID),
		CouponCode:     strings.TrimSpace(order.CouponCode),
		Status:         string(order.Status),
		PaymentStatus:  string(order.PaymentStatus),
		CourierName:    strings.TrimSpace(order.CourierName),
		TrackingNumber: strings.TrimSpace(order.TrackingNumber),
		CreatedAt:      order.CreatedAt.UTC(),
		UpdatedAt:      order.UpdatedAt.UTC(),
		ShippedAt:      order.ShippedAt,
		DeliveredAt:    order.DeliveredAt,
		CancelledAt:    order.CancelledAt,
	}
	if order.ShippingAddress != nil {
		address := newAddressDocument(*order.ShippingAddress)
		doc.ShippingAddress = &address
	}
	return doc
}

func (d orderDocument) toDomain(id string) domain.Order {
	items := make([]domain.OrderItem, len(d.Items))
	for i, item := range d.Items {
		items[i] = domain.OrderItem{
			VariantID: item.VariantID,
			SKU:       item.SKU,
			Name:      item.Name,
			Size:      item.Size,
			Colour:    item.Colour,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Total:     item.Total,
		}
	}
	order := domain.Order{
		ID:             id,
		OrderNumber:    d.OrderNumber,
		UserID:         d.UserID,
		AddressID:      d.AddressID,
		Items:          items,
		Subtotal:       d.Subtotal,
		Shipping:       d.Shipping,
		Discount:       d.Discount,
		Total:          d.Total,
		CouponID:       d.CouponID,
		CouponCode:     d.CouponCode,
		Status:         domain.OrderStatus(d.Status),
		PaymentStatus:  domain.PaymentStatus(d.PaymentStatus),
		CourierName:    d.CourierName,
		TrackingNumber: d.TrackingNumber,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
		ShippedAt:      d.ShippedAt,
		DeliveredAt:    d.DeliveredAt,
		CancelledAt:    d.CancelledAt,
	}
	if d.ShippingAddress != nil {
		address := d.ShippingAddress.toDomain(d.AddressID)
		order.ShippingAddress = &address
	}
	return order
}

type orderPageToken struct {
	CreatedAt time.Time
	Number    string
}

func encodeOrderPageToken(token orderPageToken) (string, error) {
	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(token); err != nil {
		return "", fmt.Errorf("encode order page token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(bytes.TrimSpace(buf.Bytes())), nil
}

func decodeOrderPageToken(encoded string) (*orderPageToken, error) {
	data, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode order page token: %w", err)
	}
	var token orderPageToken
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("decode order page token json: %w", err)
	}
	return &token, nil
}

func wrapOrderError(op string, err error) error {
	if err == nil {
		return nil
	}
	var ordErr *repositories.OrderError
	if errors.As(err, &ordErr) {
		if ordErr.Op == "" {
			ordErr.Op = op
		}
		return ordErr
	}
	var invErr *repositories.InventoryError
	if errors.As(err, &invErr) {
		return invErr
	}
	var cpnErr *repositories.CouponError
	if errors.As(err, &cpnErr) {
		return cpnErr
	}
	return pfirestore.WrapError(op, err)
}

var _ repositories.OrderRepository = (*OrderRepository)(nil)
