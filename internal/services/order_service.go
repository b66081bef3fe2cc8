package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/balamernstackdev/thulasi-textiles-sub000/internal/domain"
	"github.com/balamernstackdev/thulasi-textiles-sub000/internal/repositories"
)

const (
	orderIDPrefix = "ord_"

	defaultOrderNumberPrefix = "TT"
)

var (
	// ErrOrderInvalidInput signals the caller provided invalid data.
	ErrOrderInvalidInput = errors.New("order: invalid input")
	// ErrOrderNotFound indicates the order could not be located.
	ErrOrderNotFound = errors.New("order: not found")
	// ErrOrderInvalidState indicates an invalid status transition was attempted.
	ErrOrderInvalidState = errors.New("order: invalid status transition")
	// ErrOrderConflict indicates concurrent writes touched the same documents.
	ErrOrderConflict = errors.New("order: conflict")
	// ErrOrderOutOfStock indicates a variant had less stock than requested.
	ErrOrderOutOfStock = errors.New("order: insufficient stock")
	// ErrOrderVariantNotFound indicates a purchased variant does not exist.
	ErrOrderVariantNotFound = errors.New("order: variant not found")
)

// OrderServiceDeps bundles collaborators required to construct the order service.
type OrderServiceDeps struct {
	Orders            repositories.OrderRepository
	Inventory         repositories.InventoryRepository
	Users             repositories.UserRepository
	Addresses         repositories.AddressRepository
	Counters          repositories.CounterRepository
	Coupons           CouponService
	Notifications     NotificationService
	Loyalty           LoyaltyService
	LowStock          LowStockMonitor
	Mailer            Mailer
	Messenger         Messenger
	Dispatcher        SideEffectDispatcher
	Shipping          domain.ShippingPolicy
	OrderNumberPrefix string
	Clock             func() time.Time
	IDGenerator       func() string
	Logger            func(ctx context.Context, event string, fields map[string]any)
}

type orderService struct {
	orders        repositories.OrderRepository
	inventory     repositories.InventoryRepository
	users         repositories.UserRepository
	addresses     repositories.AddressRepository
	counters      repositories.CounterRepository
	coupons       CouponService
	notifications NotificationService
	loyalty       LoyaltyService
	lowStock      LowStockMonitor
	mailer        Mailer
	messenger     Messenger
	dispatcher    SideEffectDispatcher
	shipping      domain.ShippingPolicy
	numberPrefix  string
	clock         func() time.Time
	newID         func() string
	logger        func(context.Context, string, map[string]any)
}

// NewOrderService wires dependencies into a concrete OrderService implementation.
func NewOrderService(deps OrderServiceDeps) (OrderService, error) {
	if deps.Orders == nil {
		return nil, errors.New("order service: order repository is required")
	}
	if deps.Inventory == nil {
		return nil, errors.New("order service: inventory repository is required")
	}
	if deps.Counters == nil {
		return nil, errors.New("order service: counter repository is required")
	}

	shipping := deps.Shipping
	if shipping.Fee == 0 && shipping.FreeAbove == 0 {
		shipping = domain.DefaultShippingPolicy()
	}

	prefix := strings.TrimSpace(deps.OrderNumberPrefix)
	if prefix == "" {
		prefix = defaultOrderNumberPrefix
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string {
			return ulid.Make().String()
		}
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &orderService{
		orders:        deps.Orders,
		inventory:     deps.Inventory,
		users:         deps.Users,
		addresses:     deps.Addresses,
		counters:      deps.Counters,
		coupons:       deps.Coupons,
		notifications: deps.Notifications,
		loyalty:       deps.Loyalty,
		lowStock:      deps.LowStock,
		mailer:        deps.Mailer,
		messenger:     deps.Messenger,
		dispatcher:    deps.Dispatcher,
		shipping:      shipping,
		numberPrefix:  prefix,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:  idGen,
		logger: logger,
	}, nil
}

func (s *orderService) PlaceOrder(ctx context.Context, cmd PlaceOrderCommand) (Order, error) {
	userID := strings.TrimSpace(cmd.UserID)
	if userID == "" {
		return Order{}, fmt.Errorf("%w: user id is required", ErrOrderInvalidInput)
	}
	if len(cmd.Items) == 0 {
		return Order{}, fmt.Errorf("%w: order must contain at least one item", ErrOrderInvalidInput)
	}
	addressID := strings.TrimSpace(cmd.AddressID)
	if addressID == "" {
		return Order{}, fmt.Errorf("%w: shipping address is required", ErrOrderInvalidInput)
	}

	seen := make(map[string]bool, len(cmd.Items))
	for _, line := range cmd.Items {
		if strings.TrimSpace(line.VariantID) == "" {
			return Order{}, fmt.Errorf("%w: variant id is required", ErrOrderInvalidInput)
		}
		if line.Quantity <= 0 {
			return Order{}, fmt.Errorf("%w: quantity must be positive for variant %s", ErrOrderInvalidInput, line.VariantID)
		}
		if line.UnitPrice < 0 {
			return Order{}, fmt.Errorf("%w: unit price cannot be negative for variant %s", ErrOrderInvalidInput, line.VariantID)
		}
		if seen[line.VariantID] {
			return Order{}, fmt.Errorf("%w: duplicate variant %s", ErrOrderInvalidInput, line.VariantID)
		}
		seen[line.VariantID] = true
	}

	now := s.now()

	address, err := s.resolveAddress(ctx, userID, addressID)
	if err != nil {
		return Order{}, err
	}

	items, reserve, err := s.buildOrderItems(ctx, cmd.Items)
	if err != nil {
		return Order{}, err
	}

	subtotal := domain.Subtotal(items)
	shipping := s.shipping.FeeFor(subtotal)

	var (
		discount   int64
		couponID   string
		couponCode string
	)
	if code := strings.TrimSpace(cmd.CouponCode); code != "" {
		if s.coupons == nil {
			return Order{}, fmt.Errorf("%w: coupons are not enabled", ErrOrderInvalidInput)
		}
		result, err := s.coupons.Validate(ctx, ValidateCouponCommand{Code: code, Subtotal: subtotal})
		if err != nil {
			return Order{}, err
		}
		discount = result.Discount
		couponID = result.Coupon.ID
		couponCode = result.Coupon.Code
	}

	number, err := s.generateOrderNumber(ctx, now)
	if err != nil {
		return Order{}, s.mapRepositoryError(err)
	}

	order := Order{
		ID:              s.nextOrderID(),
		OrderNumber:     number,
		UserID:          userID,
		AddressID:       addressID,
		ShippingAddress: address,
		Items:           items,
		Subtotal:        subtotal,
		Shipping:        shipping,
		Discount:        discount,
		Total:           subtotal + shipping - discount,
		CouponID:        couponID,
		CouponCode:      couponCode,
		Status:          domain.OrderStatusPending,
		PaymentStatus:   domain.PaymentStatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	result, err := s.orders.Place(ctx, repositories.PlaceOrderRequest{
		Order:    order,
		Reserve:  reserve,
		CouponID: couponID,
		Now:      now,
	})
	if err != nil {
		return Order{}, s.mapPlacementError(err)
	}

	s.logger(ctx, "order.placed", map[string]any{
		"order":  result.Order.ID,
		"number": result.Order.OrderNumber,
		"user":   result.Order.UserID,
		"total":  result.Order.Total,
	})

	s.afterPlacement(ctx, result)

	return result.Order, nil
}

func (s *orderService) GetOrder(ctx context.Context, orderID string, opts OrderReadOptions) (Order, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return Order{}, s.mapRepositoryError(err)
	}

	if owner := strings.TrimSpace(opts.ForUserID); owner != "" && order.UserID != owner {
		return Order{}, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}

	return order, nil
}

func (s *orderService) ListOrders(ctx context.Context, filter OrderListFilter) (domain.CursorPage[Order], error) {
	page, err := s.orders.List(ctx, filter)
	if err != nil {
		return domain.CursorPage[Order]{}, s.mapRepositoryError(err)
	}
	return page, nil
}

func (s *orderService) TransitionStatus(ctx context.Context, cmd OrderStatusTransitionCommand) (Order, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	if !domain.ValidOrderStatus(cmd.Target) {
		return Order{}, fmt.Errorf("%w: unknown status %q", ErrOrderInvalidInput, cmd.Target)
	}

	result, err := s.orders.Transition(ctx, repositories.OrderTransitionRequest{
		OrderID: orderID,
		Target:  cmd.Target,
		Now:     s.now(),
	})
	if err != nil {
		return Order{}, s.mapTransitionError(err)
	}

	if result.NoChange {
		return result.Order, nil
	}

	s.logger(ctx, "order.status.changed", map[string]any{
		"order": result.Order.ID,
		"from":  string(result.Previous),
		"to":    string(result.Order.Status),
		"actor": cmd.ActorID,
	})

	s.afterTransition(ctx, result)

	return result.Order, nil
}

func (s *orderService) BulkTransitionStatus(ctx context.Context, cmd BulkTransitionCommand) (BulkTransitionResult, error) {
	if len(cmd.OrderIDs) == 0 {
		return BulkTransitionResult{}, fmt.Errorf("%w: at least one order id is required", ErrOrderInvalidInput)
	}
	if !domain.ValidOrderStatus(cmd.Target) {
		return BulkTransitionResult{}, fmt.Errorf("%w: unknown status %q", ErrOrderInvalidInput, cmd.Target)
	}

	var result BulkTransitionResult
	for _, orderID := range cmd.OrderIDs {
		_, err := s.TransitionStatus(ctx, OrderStatusTransitionCommand{
			OrderID: orderID,
			Target:  cmd.Target,
			ActorID: cmd.ActorID,
		})
		if err != nil {
			result.Failed = append(result.Failed, BulkTransitionFailure{
				OrderID: orderID,
				Reason:  err.Error(),
			})
			continue
		}
		result.Succeeded = append(result.Succeeded, orderID)
	}

	return result, nil
}

func (s *orderService) AttachTracking(ctx context.Context, cmd AttachTrackingCommand) (Order, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	courier := strings.TrimSpace(cmd.CourierName)
	tracking := strings.TrimSpace(cmd.TrackingNumber)
	if courier == "" || tracking == "" {
		return Order{}, fmt.Errorf("%w: courier name and tracking number are required", ErrOrderInvalidInput)
	}

	result, err := s.orders.Transition(ctx, repositories.OrderTransitionRequest{
		OrderID:        orderID,
		Target:         domain.OrderStatusShipped,
		CourierName:    courier,
		TrackingNumber: tracking,
		Now:            s.now(),
	})
	if err != nil {
		return Order{}, s.mapTransitionError(err)
	}

	if !result.NoChange {
		s.logger(ctx, "order.tracking.attached", map[string]any{
			"order":    result.Order.ID,
			"courier":  courier,
			"tracking": tracking,
			"actor":    cmd.ActorID,
		})
		s.afterTransition(ctx, result)
	}

	return result.Order, nil
}

// Side effects ---------------------------------------------------------------

func (s *orderService) afterPlacement(ctx context.Context, result repositories.PlaceOrderResult) {
	order := result.Order
	s.queueEffect(ctx, "order.confirmation", func(ctx context.Context) error {
		s.sendOrderConfirmation(ctx, order)
		return nil
	})

	for variantID := range result.Stocks {
		variantID := variantID
		s.queueEffect(ctx, "stock.low.check", func(ctx context.Context) error {
			return s.checkLowStock(ctx, variantID)
		})
	}
}

func (s *orderService) afterTransition(ctx context.Context, result repositories.OrderTransitionResult) {
	order := result.Order
	switch order.Status {
	case domain.OrderStatusShipped:
		s.queueEffect(ctx, "order.shipped.notify", func(ctx context.Context) error {
			s.sendShippingUpdate(ctx, order)
			return nil
		})
	case domain.OrderStatusDelivered:
		s.queueEffect(ctx, "order.delivered.reward", func(ctx context.Context) error {
			s.grantDeliveryReward(ctx, order)
			return nil
		})
	case domain.OrderStatusCancelled:
		s.queueEffect(ctx, "order.cancelled.notify", func(ctx context.Context) error {
			s.sendCancellationNotice(ctx, order)
			return nil
		})
	default:
		s.queueEffect(ctx, "order.status.notify", func(ctx context.Context) error {
			s.sendStatusNotice(ctx, order)
			return nil
		})
	}
}

func (s *orderService) queueEffect(ctx context.Context, name string, task func(context.Context) error) {
	if s.dispatcher == nil {
		if err := task(context.WithoutCancel(ctx)); err != nil {
			s.logger(ctx, "order.effect.failed", map[string]any{
				"effect": name,
				"error":  err.Error(),
			})
		}
		return
	}
	if !s.dispatcher.Enqueue(name, task) {
		s.logger(ctx, "order.effect.dropped", map[string]any{"effect": name})
	}
}

func (s *orderService) sendOrderConfirmation(ctx context.Context, order Order) {
	if s.notifications != nil {
		if _, err := s.notifications.Push(ctx, PushNotificationCommand{
			UserID:  order.UserID,
			Title:   "Order Confirmed",
			Message: fmt.Sprintf("Your order %s for ₹%d has been placed.", order.OrderNumber, order.Total),
			Type:    domain.NotificationTypeOrder,
			Link:    "/orders/" + order.ID,
		}); err != nil {
			s.logEffectError(ctx, "order.confirmation.notification", order.ID, err)
		}

		if _, err := s.notifications.Push(ctx, PushNotificationCommand{
			ForAdmins: true,
			Title:     "New Order",
			Message:   fmt.Sprintf("Order %s placed for ₹%d.", order.OrderNumber, order.Total),
			Type:      domain.NotificationTypeOrder,
			Link:      "/admin/orders/" + order.ID,
		}); err != nil {
			s.logEffectError(ctx, "order.confirmation.admin_notification", order.ID, err)
		}
	}

	profile, err := s.lookupUser(ctx, order.UserID)
	if err != nil {
		s.logEffectError(ctx, "order.confirmation.profile", order.ID, err)
		return
	}

	if s.mailer != nil && profile.Email != "" {
		err := s.mailer.Send(ctx, EmailMessage{
			To:      profile.Email,
			Subject: fmt.Sprintf("Order Confirmed - %s", order.OrderNumber),
			HTML:    confirmationEmailBody(order, profile),
			Kind:    "order_confirmation",
			OrderID: order.ID,
		})
		if err != nil {
			s.logEffectError(ctx, "order.confirmation.email", order.ID, err)
		}
	}

	if s.messenger != nil && profile.Phone != "" {
		err := s.messenger.Send(ctx, TextMessage{
			Phone:    profile.Phone,
			Template: "order_confirmation",
			OrderID:  order.ID,
			Params: map[string]string{
				"number": order.OrderNumber,
				"total":  fmt.Sprintf("%d", order.Total),
			},
		})
		if err != nil {
			s.logEffectError(ctx, "order.confirmation.message", order.ID, err)
		}
	}
}

func (s *orderService) sendShippingUpdate(ctx context.Context, order Order) {
	if s.notifications != nil {
		message := fmt.Sprintf("Your order %s has been shipped.", order.OrderNumber)
		if order.CourierName != "" && order.TrackingNumber != "" {
			message = fmt.Sprintf("Your order %s has been shipped via %s. Tracking: %s.",
				order.OrderNumber, order.CourierName, order.TrackingNumber)
		}
		if _, err := s.notifications.Push(ctx, PushNotificationCommand{
			UserID:  order.UserID,
			Title:   "Order Shipped",
			Message: message,
			Type:    domain.NotificationTypeOrder,
			Link:    "/orders/" + order.ID,
		}); err != nil {
			s.logEffectError(ctx, "order.shipped.notification", order.ID, err)
		}
	}

	profile, err := s.lookupUser(ctx, order.UserID)
	if err != nil {
		s.logEffectError(ctx, "order.shipped.profile", order.ID, err)
		return
	}

	if s.mailer != nil && profile.Email != "" {
		err := s.mailer.Send(ctx, EmailMessage{
			To:      profile.Email,
			Subject: fmt.Sprintf("Order Shipped - %s", order.OrderNumber),
			HTML:    shippingEmailBody(order, profile),
			Kind:    "shipping_update",
			OrderID: order.ID,
		})
		if err != nil {
			s.logEffectError(ctx, "order.shipped.email", order.ID, err)
		}
	}

	if s.messenger != nil && profile.Phone != "" {
		err := s.messenger.Send(ctx, TextMessage{
			Phone:    profile.Phone,
			Template: "shipping_update",
			OrderID:  order.ID,
			Params: map[string]string{
				"number":   order.OrderNumber,
				"courier":  order.CourierName,
				"tracking": order.TrackingNumber,
			},
		})
		if err != nil {
			s.logEffectError(ctx, "order.shipped.message", order.ID, err)
		}
	}
}

func (s *orderService) grantDeliveryReward(ctx context.Context, order Order) {
	if s.notifications != nil {
		if _, err := s.notifications.Push(ctx, PushNotificationCommand{
			UserID:  order.UserID,
			Title:   "Order Delivered",
			Message: fmt.Sprintf("Your order %s has been delivered. Thank you for shopping with us!", order.OrderNumber),
			Type:    domain.NotificationTypeOrder,
			Link:    "/orders/" + order.ID,
		}); err != nil {
			s.logEffectError(ctx, "order.delivered.notification", order.ID, err)
		}
	}

	if s.loyalty == nil {
		return
	}

	outcome, err := s.loyalty.GrantForDelivery(ctx, order)
	if err != nil {
		s.logEffectError(ctx, "order.delivered.loyalty", order.ID, err)
		return
	}
	if !outcome.Granted {
		return
	}

	if s.notifications != nil {
		if _, err := s.notifications.Push(ctx, PushNotificationCommand{
			UserID:  order.UserID,
			Title:   "Reward Points Earned",
			Message: fmt.Sprintf("You earned %d points on order %s. Balance: %d points.", outcome.Points, order.OrderNumber, outcome.Balance),
			Type:    domain.NotificationTypeReward,
			Link:    "/rewards",
		}); err != nil {
			s.logEffectError(ctx, "order.delivered.reward_notification", order.ID, err)
		}
	}
}

func (s *orderService) sendCancellationNotice(ctx context.Context, order Order) {
	if s.notifications != nil {
		if _, err := s.notifications.Push(ctx, PushNotificationCommand{
			UserID:  order.UserID,
			Title:   "Order Cancelled",
			Message: fmt.Sprintf("Your order %s has been cancelled.", order.OrderNumber),
			Type:    domain.NotificationTypeOrder,
			Link:    "/orders/" + order.ID,
		}); err != nil {
			s.logEffectError(ctx, "order.cancelled.notification", order.ID, err)
		}
	}

	profile, err := s.lookupUser(ctx, order.UserID)
	if err != nil {
		s.logEffectError(ctx, "order.cancelled.profile", order.ID, err)
		return
	}

	if s.mailer != nil && profile.Email != "" {
		err := s.mailer.Send(ctx, EmailMessage{
			To:      profile.Email,
			Subject: fmt.Sprintf("Order Cancelled - %s", order.OrderNumber),
			HTML:    cancellationEmailBody(order, profile),
			Kind:    "order_cancelled",
			OrderID: order.ID,
		})
		if err != nil {
			s.logEffectError(ctx, "order.cancelled.email", order.ID, err)
		}
	}
}

func (s *orderService) sendStatusNotice(ctx context.Context, order Order) {
	if s.notifications == nil {
		return
	}
	if _, err := s.notifications.Push(ctx, PushNotificationCommand{
		UserID:  order.UserID,
		Title:   "Order Update",
		Message: fmt.Sprintf("Your order %s is now %s.", order.OrderNumber, strings.ToLower(string(order.Status))),
		Type:    domain.NotificationTypeOrder,
		Link:    "/orders/" + order.ID,
	}); err != nil {
		s.logEffectError(ctx, "order.status.notification", order.ID, err)
	}
}

func (s *orderService) checkLowStock(ctx context.Context, variantID string) error {
	if s.lowStock == nil {
		return nil
	}
	return s.lowStock.CheckVariant(ctx, variantID)
}

// Helpers --------------------------------------------------------------------

func (s *orderService) resolveAddress(ctx context.Context, userID, addressID string) (*Address, error) {
	if s.addresses == nil {
		return nil, nil
	}
	address, err := s.addresses.Get(ctx, userID, addressID)
	if err != nil {
		var repoErr repositories.RepositoryError
		if errors.As(err, &repoErr) && repoErr.IsNotFound() {
			return nil, fmt.Errorf("%w: address %s not found", ErrOrderInvalidInput, addressID)
		}
		return nil, s.mapRepositoryError(err)
	}
	return &address, nil
}

func (s *orderService) buildOrderItems(ctx context.Context, lines []OrderLineInput) ([]OrderItem, []repositories.StockLine, error) {
	items := make([]OrderItem, 0, len(lines))
	reserve := make([]repositories.StockLine, 0, len(lines))

	for _, line := range lines {
		variant, err := s.inventory.FindVariant(ctx, line.VariantID)
		if err != nil {
			var invErr *repositories.InventoryError
			if errors.As(err, &invErr) && invErr.Code == repositories.InventoryErrorVariantNotFound {
				return nil, nil, fmt.Errorf("%w: %s", ErrOrderVariantNotFound, line.VariantID)
			}
			var repoErr repositories.RepositoryError
			if errors.As(err, &repoErr) && repoErr.IsNotFound() {
				return nil, nil, fmt.Errorf("%w: %s", ErrOrderVariantNotFound, line.VariantID)
			}
			return nil, nil, s.mapRepositoryError(err)
		}

		unitPrice := line.UnitPrice
		if unitPrice == 0 {
			unitPrice = variant.Price
		}

		items = append(items, OrderItem{
			VariantID: variant.ID,
			SKU:       variant.SKU,
			Name:      variant.Name,
			Size:      variant.Size,
			Colour:    variant.Colour,
			Quantity:  line.Quantity,
			UnitPrice: unitPrice,
			Total:     unitPrice * int64(line.Quantity),
		})
		reserve = append(reserve, repositories.StockLine{
			VariantID: variant.ID,
			Quantity:  line.Quantity,
		})
	}

	return items, reserve, nil
}

func (s *orderService) lookupUser(ctx context.Context, userID string) (UserProfile, error) {
	if s.users == nil {
		return UserProfile{}, errors.New("order: user repository not configured")
	}
	return s.users.FindByID(ctx, userID)
}

func (s *orderService) mapPlacementError(err error) error {
	if err == nil {
		return nil
	}

	var invErr *repositories.InventoryError
	if errors.As(err, &invErr) {
		switch invErr.Code {
		case repositories.InventoryErrorInsufficientStock:
			return fmt.Errorf("%w: %v", ErrOrderOutOfStock, err)
		case repositories.InventoryErrorVariantNotFound:
			return fmt.Errorf("%w: %v", ErrOrderVariantNotFound, err)
		}
	}

	var couponErr *repositories.CouponError
	if errors.As(err, &couponErr) {
		switch couponErr.Code {
		case repositories.CouponErrorExhausted:
			return fmt.Errorf("%w: %v", ErrCouponExhausted, err)
		case repositories.CouponErrorNotFound:
			return fmt.Errorf("%w: %v", ErrCouponNotFound, err)
		}
	}

	return s.mapRepositoryError(err)
}

func (s *orderService) mapTransitionError(err error) error {
	if err == nil {
		return nil
	}

	var ordErr *repositories.OrderError
	if errors.As(err, &ordErr) {
		switch ordErr.Code {
		case repositories.OrderErrorInvalidTransition:
			return fmt.Errorf("%w: %v", ErrOrderInvalidState, err)
		case repositories.OrderErrorNotFound:
			return fmt.Errorf("%w: %v", ErrOrderNotFound, err)
		}
	}

	return s.mapRepositoryError(err)
}

func (s *orderService) mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}

	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrOrderNotFound, err)
		case repoErr.IsConflict():
			return fmt.Errorf("%w: %v", ErrOrderConflict, err)
		case repoErr.IsUnavailable():
			return fmt.Errorf("order: repository unavailable: %w", err)
		}
	}

	return err
}

func (s *orderService) generateOrderNumber(ctx context.Context, now time.Time) (string, error) {
	seq, err := s.counters.Next(ctx, "orders", 1)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%d-%06d", s.numberPrefix, now.Year(), seq), nil
}

func (s *orderService) now() time.Time {
	return s.clock()
}

func (s *orderService) nextOrderID() string {
	return orderIDPrefix + s.newID()
}

func (s *orderService) logEffectError(ctx context.Context, effect, orderID string, err error) {
	s.logger(ctx, "order.effect.failed", map[string]any{
		"effect": effect,
		"order":  orderID,
		"error":  err.Error(),
	})
}

func confirmationEmailBody(order Order, profile UserProfile) string {
	var b strings.Builder
	name := profile.Name
	if name == "" {
		name = "Customer"
	}
	fmt.Fprintf(&b, "<p>Dear %s,</p>", name)
	fmt.Fprintf(&b, "<p>Thank you for your order <strong>%s</strong>.</p>", order.OrderNumber)
	b.WriteString("<ul>")
	for _, item := range order.Items {
		fmt.Fprintf(&b, "<li>%s × %d — ₹%d</li>", item.Name, item.Quantity, item.Total)
	}
	b.WriteString("</ul>")
	fmt.Fprintf(&b, "<p>Subtotal: ₹%d<br>Shipping: ₹%d<br>Discount: ₹%d<br><strong>Total: ₹%d</strong></p>",
		order.Subtotal, order.Shipping, order.Discount, order.Total)
	if order.ShippingAddress != nil {
		fmt.Fprintf(&b, "<p>Shipping to: %s, %s, %s %s</p>",
			order.ShippingAddress.Street, order.ShippingAddress.City,
			order.ShippingAddress.State, order.ShippingAddress.Pincode)
	}
	return b.String()
}

func shippingEmailBody(order Order, profile UserProfile) string {
	var b strings.Builder
	name := profile.Name
	if name == "" {
		name = "Customer"
	}
	fmt.Fprintf(&b, "<p>Dear %s,</p>", name)
	fmt.Fprintf(&b, "<p>Your order <strong>%s</strong> has been shipped.</p>", order.OrderNumber)
	if order.CourierName != "" && order.TrackingNumber != "" {
		fmt.Fprintf(&b, "<p>Courier: %s<br>Tracking number: <strong>%s</strong></p>",
			order.CourierName, order.TrackingNumber)
	}
	if order.ShippingAddress != nil {
		fmt.Fprintf(&b, "<p>Delivering to: %s, %s, %s %s</p>",
			order.ShippingAddress.Street, order.ShippingAddress.City,
			order.ShippingAddress.State, order.ShippingAddress.Pincode)
	}
	return b.String()
}

func cancellationEmailBody(order Order, profile UserProfile) string {
	var b strings.Builder
	name := profile.Name
	if name == "" {
		name = "Customer"
	}
	fmt.Fprintf(&b, "<p>Dear %s,</p>", name)
	fmt.Fprintf(&b, "<p>Your order <strong>%s</strong> has been cancelled.</p>", order.OrderNumber)
	fmt.Fprintf(&b, "<p>Order total: ₹%d. If you were charged, the amount will be refunded to your original payment method.</p>", order.Total)
	return b.String()
}
