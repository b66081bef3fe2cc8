package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	domain "github.com/balamernstackdev/thulasi-textiles-sub000/internal/domain"
	"github.com/balamernstackdev/thulasi-textiles-sub000/internal/repositories"
)

type stubOrderRepo struct {
	placeFn      func(ctx context.Context, req repositories.PlaceOrderRequest) (repositories.PlaceOrderResult, error)
	transitionFn func(ctx context.Context, req repositories.OrderTransitionRequest) (repositories.OrderTransitionResult, error)
	findFn       func(ctx context.Context, orderID string) (domain.Order, error)
	listFn       func(ctx context.Context, filter repositories.OrderListFilter) (domain.CursorPage[domain.Order], error)
}

func (s *stubOrderRepo) Place(ctx context.Context, req repositories.PlaceOrderRequest) (repositories.PlaceOrderResult, error) {
	if s.placeFn != nil {
		return s.placeFn(ctx, req)
	}
	return repositories.PlaceOrderResult{Order: req.Order}, nil
}

func (s *stubOrderRepo) Transition(ctx context.Context, req repositories.OrderTransitionRequest) (repositories.OrderTransitionResult, error) {
	if s.transitionFn != nil {
		return s.transitionFn(ctx, req)
	}
	return repositories.OrderTransitionResult{}, nil
}

func (s *stubOrderRepo) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	if s.findFn != nil {
		return s.findFn(ctx, orderID)
	}
	return domain.Order{}, nil
}

func (s *stubOrderRepo) List(ctx context.Context, filter repositories.OrderListFilter) (domain.CursorPage[domain.Order], error) {
	if s.listFn != nil {
		return s.listFn(ctx, filter)
	}
	return domain.CursorPage[domain.Order]{}, nil
}

type stubUserRepo struct {
	findFn func(ctx context.Context, userID string) (domain.UserProfile, error)
}

func (s *stubUserRepo) FindByID(ctx context.Context, userID string) (domain.UserProfile, error) {
	if s.findFn != nil {
		return s.findFn(ctx, userID)
	}
	return domain.UserProfile{UID: userID}, nil
}

type stubAddressRepo struct {
	getFn func(ctx context.Context, userID, addressID string) (domain.Address, error)
}

func (s *stubAddressRepo) Get(ctx context.Context, userID, addressID string) (domain.Address, error) {
	if s.getFn != nil {
		return s.getFn(ctx, userID, addressID)
	}
	return domain.Address{ID: addressID, City: "Coimbatore", State: "Tamil Nadu", Pincode: "641001"}, nil
}

func (s *stubAddressRepo) List(ctx context.Context, userID string) ([]domain.Address, error) {
	return nil, nil
}

type stubCounterRepo struct {
	next int64
	err  error
}

func (s *stubCounterRepo) Next(ctx context.Context, counterID string, step int64) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	s.next += step
	return s.next, nil
}

type stubCouponService struct {
	validateFn func(ctx context.Context, cmd ValidateCouponCommand) (CouponValidationResult, error)
}

func (s *stubCouponService) Validate(ctx context.Context, cmd ValidateCouponCommand) (CouponValidationResult, error) {
	if s.validateFn != nil {
		return s.validateFn(ctx, cmd)
	}
	return CouponValidationResult{}, nil
}

type stubNotificationService struct {
	mu     sync.Mutex
	pushed []PushNotificationCommand
	pushFn func(ctx context.Context, cmd PushNotificationCommand) (Notification, error)
}

func (s *stubNotificationService) Push(ctx context.Context, cmd PushNotificationCommand) (Notification, error) {
	s.mu.Lock()
	s.pushed = append(s.pushed, cmd)
	s.mu.Unlock()
	if s.pushFn != nil {
		return s.pushFn(ctx, cmd)
	}
	return Notification{}, nil
}

func (s *stubNotificationService) ListForUser(ctx context.Context, userID string, pager Pagination) (domain.CursorPage[Notification], error) {
	return domain.CursorPage[Notification]{}, nil
}

func (s *stubNotificationService) ListForAdmins(ctx context.Context, pager Pagination) (domain.CursorPage[Notification], error) {
	return domain.CursorPage[Notification]{}, nil
}

func (s *stubNotificationService) MarkRead(ctx context.Context, userID, notificationID string) error {
	return nil
}

func (s *stubNotificationService) commands() []PushNotificationCommand {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]PushNotificationCommand, len(s.pushed))
	copy(out, s.pushed)
	return out
}

type stubLoyaltyService struct {
	grantFn func(ctx context.Context, order Order) (LoyaltyGrantOutcome, error)
	granted []string
}

func (s *stubLoyaltyService) GrantForDelivery(ctx context.Context, order Order) (LoyaltyGrantOutcome, error) {
	s.granted = append(s.granted, order.ID)
	if s.grantFn != nil {
		return s.grantFn(ctx, order)
	}
	return LoyaltyGrantOutcome{}, nil
}

func (s *stubLoyaltyService) ListTransactions(ctx context.Context, userID string, pager Pagination) (domain.CursorPage[LoyaltyTransaction], error) {
	return domain.CursorPage[LoyaltyTransaction]{}, nil
}

type stubLowStockMonitor struct {
	mu      sync.Mutex
	checked []string
	err     error
}

func (s *stubLowStockMonitor) CheckVariant(ctx context.Context, variantID string) error {
	s.mu.Lock()
	s.checked = append(s.checked, variantID)
	s.mu.Unlock()
	return s.err
}

func (s *stubLowStockMonitor) variants() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.checked))
	copy(out, s.checked)
	return out
}

type stubMailer struct {
	mu   sync.Mutex
	sent []EmailMessage
	err  error
}

func (s *stubMailer) Send(ctx context.Context, message EmailMessage) error {
	s.mu.Lock()
	s.sent = append(s.sent, message)
	s.mu.Unlock()
	return s.err
}

type stubMessenger struct {
	mu   sync.Mutex
	sent []TextMessage
	err  error
}

func (s *stubMessenger) Send(ctx context.Context, message TextMessage) error {
	s.mu.Lock()
	s.sent = append(s.sent, message)
	s.mu.Unlock()
	return s.err
}

var (
	_ repositories.OrderRepository   = (*stubOrderRepo)(nil)
	_ repositories.UserRepository    = (*stubUserRepo)(nil)
	_ repositories.AddressRepository = (*stubAddressRepo)(nil)
	_ repositories.CounterRepository = (*stubCounterRepo)(nil)
	_ CouponService                  = (*stubCouponService)(nil)
	_ NotificationService            = (*stubNotificationService)(nil)
	_ LoyaltyService                 = (*stubLoyaltyService)(nil)
	_ LowStockMonitor                = (*stubLowStockMonitor)(nil)
	_ Mailer                         = (*stubMailer)(nil)
	_ Messenger                      = (*stubMessenger)(nil)
)

func sareeVariants() map[string]domain.ProductVariant {
	return map[string]domain.ProductVariant{
		"var_silk": {
			ID: "var_silk", ProductID: "prd_1", SKU: "KAN-SIL-001",
			Name: "Kanchipuram Silk Saree", Size: "Free", Colour: "Maroon",
			Price: 4500, Stock: 8,
		},
		"var_cotton": {
			ID: "var_cotton", ProductID: "prd_2", SKU: "CHE-COT-014",
			Name: "Chettinad Cotton Saree", Size: "Free", Colour: "Indigo",
			Price: 950, Stock: 20,
		},
	}
}

func variantLookup(t *testing.T) *stubInventoryRepo {
	t.Helper()
	variants := sareeVariants()
	return &stubInventoryRepo{
		findFn: func(ctx context.Context, variantID string) (domain.ProductVariant, error) {
			variant, ok := variants[variantID]
			if !ok {
				return domain.ProductVariant{}, repositories.NewInventoryError(repositories.InventoryErrorVariantNotFound, "variant not found", nil)
			}
			return variant, nil
		},
	}
}

type orderServiceFixture struct {
	orders        *stubOrderRepo
	inventory     *stubInventoryRepo
	users         *stubUserRepo
	addresses     *stubAddressRepo
	counters      *stubCounterRepo
	coupons       *stubCouponService
	notifications *stubNotificationService
	loyalty       *stubLoyaltyService
	lowStock      *stubLowStockMonitor
	mailer        *stubMailer
	messenger     *stubMessenger
	events        []string
	now           time.Time
}

func newOrderFixture(t *testing.T) *orderServiceFixture {
	t.Helper()
	return &orderServiceFixture{
		orders:        &stubOrderRepo{},
		inventory:     variantLookup(t),
		users:         &stubUserRepo{},
		addresses:     &stubAddressRepo{},
		counters:      &stubCounterRepo{},
		coupons:       &stubCouponService{},
		notifications: &stubNotificationService{},
		loyalty:       &stubLoyaltyService{},
		lowStock:      &stubLowStockMonitor{},
		mailer:        &stubMailer{},
		messenger:     &stubMessenger{},
		now:           time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC),
	}
}

func (f *orderServiceFixture) service(t *testing.T) OrderService {
	t.Helper()
	svc, err := NewOrderService(OrderServiceDeps{
		Orders:        f.orders,
		Inventory:     f.inventory,
		Users:         f.users,
		Addresses:     f.addresses,
		Counters:      f.counters,
		Coupons:       f.coupons,
		Notifications: f.notifications,
		Loyalty:       f.loyalty,
		LowStock:      f.lowStock,
		Mailer:        f.mailer,
		Messenger:     f.messenger,
		Clock:         func() time.Time { return f.now },
		IDGenerator:   func() string { return "01TESTULID" },
		Logger: func(ctx context.Context, event string, fields map[string]any) {
			f.events = append(f.events, event)
		},
	})
	if err != nil {
		t.Fatalf("NewOrderService: %v", err)
	}
	return svc
}

func TestPlaceOrderComputesTotalsWithShipping(t *testing.T) {
	fixture := newOrderFixture(t)
	var placed repositories.PlaceOrderRequest
	fixture.orders.placeFn = func(ctx context.Context, req repositories.PlaceOrderRequest) (repositories.PlaceOrderResult, error) {
		placed = req
		return repositories.PlaceOrderResult{Order: req.Order}, nil
	}
	svc := fixture.service(t)

	order, err := svc.PlaceOrder(context.Background(), PlaceOrderCommand{
		UserID:    "user_1",
		AddressID: "addr_1",
		Items:     []OrderLineInput{{VariantID: "var_cotton", Quantity: 2}},
	})
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}

	if order.Subtotal != 1900 {
		t.Fatalf("expected subtotal 1900, got %d", order.Subtotal)
	}
	if order.Shipping != 99 {
		t.Fatalf("expected shipping fee 99, got %d", order.Shipping)
	}
	if order.Total != 1999 {
		t.Fatalf("expected total 1999, got %d", order.Total)
	}
	if order.Status != domain.OrderStatusPending {
		t.Fatalf("expected status PENDING, got %s", order.Status)
	}
	if order.ID != "ord_01TESTULID" {
		t.Fatalf("unexpected order id %s", order.ID)
	}
	if order.OrderNumber != "TT-2024-000001" {
		t.Fatalf("unexpected order number %s", order.OrderNumber)
	}
	if len(placed.Reserve) != 1 || placed.Reserve[0].VariantID != "var_cotton" || placed.Reserve[0].Quantity != 2 {
		t.Fatalf("unexpected reserve lines: %+v", placed.Reserve)
	}
	if len(order.Items) != 1 || order.Items[0].SKU != "CHE-COT-014" || order.Items[0].Total != 1900 {
		t.Fatalf("unexpected items: %+v", order.Items)
	}
}

func TestPlaceOrderFreeShippingAboveThreshold(t *testing.T) {
	fixture := newOrderFixture(t)
	svc := fixture.service(t)

	order, err := svc.PlaceOrder(context.Background(), PlaceOrderCommand{
		UserID:    "user_1",
		AddressID: "addr_1",
		Items:     []OrderLineInput{{VariantID: "var_silk", Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	if order.Shipping != 0 {
		t.Fatalf("expected free shipping on subtotal %d, got fee %d", order.Subtotal, order.Shipping)
	}
	if order.Total != 4500 {
		t.Fatalf("expected total 4500, got %d", order.Total)
	}
}

func TestPlaceOrderAppliesCouponDiscount(t *testing.T) {
	fixture := newOrderFixture(t)
	fixture.coupons.validateFn = func(ctx context.Context, cmd ValidateCouponCommand) (CouponValidationResult, error) {
		if cmd.Code != "WELCOME10" {
			t.Fatalf("unexpected coupon code %s", cmd.Code)
		}
		if cmd.Subtotal != 4500 {
			t.Fatalf("expected subtotal 4500, got %d", cmd.Subtotal)
		}
		return CouponValidationResult{
			Coupon:   domain.Coupon{ID: "cpn_1", Code: "WELCOME10", Type: domain.CouponTypePercent, Value: 10},
			Discount: 450,
		}, nil
	}
	var placed repositories.PlaceOrderRequest
	fixture.orders.placeFn = func(ctx context.Context, req repositories.PlaceOrderRequest) (repositories.PlaceOrderResult, error) {
		placed = req
		return repositories.PlaceOrderResult{Order: req.Order}, nil
	}
	svc := fixture.service(t)

	order, err := svc.PlaceOrder(context.Background(), PlaceOrderCommand{
		UserID:     "user_1",
		AddressID:  "addr_1",
		Items:      []OrderLineInput{{VariantID: "var_silk", Quantity: 1}},
		CouponCode: "WELCOME10",
	})
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	if order.Discount != 450 || order.Total != 4050 {
		t.Fatalf("expected discount 450 and total 4050, got %d and %d", order.Discount, order.Total)
	}
	if placed.CouponID != "cpn_1" {
		t.Fatalf("expected coupon id forwarded to placement, got %q", placed.CouponID)
	}
}

func TestPlaceOrderFreezesUnitPrice(t *testing.T) {
	fixture := newOrderFixture(t)
	svc := fixture.service(t)

	order, err := svc.PlaceOrder(context.Background(), PlaceOrderCommand{
		UserID:    "user_1",
		AddressID: "addr_1",
		Items:     []OrderLineInput{{VariantID: "var_silk", Quantity: 1, UnitPrice: 3999}},
	})
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	if order.Items[0].UnitPrice != 3999 {
		t.Fatalf("expected frozen unit price 3999, got %d", order.Items[0].UnitPrice)
	}
	if order.Subtotal != 3999 {
		t.Fatalf("expected subtotal from frozen price, got %d", order.Subtotal)
	}
}

func TestPlaceOrderValidatesInput(t *testing.T) {
	fixture := newOrderFixture(t)
	svc := fixture.service(t)

	cases := []struct {
		name string
		cmd  PlaceOrderCommand
	}{
		{"missing user", PlaceOrderCommand{AddressID: "addr_1", Items: []OrderLineInput{{VariantID: "var_silk", Quantity: 1}}}},
		{"no items", PlaceOrderCommand{UserID: "user_1", AddressID: "addr_1"}},
		{"missing address", PlaceOrderCommand{UserID: "user_1", Items: []OrderLineInput{{VariantID: "var_silk", Quantity: 1}}}},
		{"zero quantity", PlaceOrderCommand{UserID: "user_1", AddressID: "addr_1", Items: []OrderLineInput{{VariantID: "var_silk"}}}},
		{"negative price", PlaceOrderCommand{UserID: "user_1", AddressID: "addr_1", Items: []OrderLineInput{{VariantID: "var_silk", Quantity: 1, UnitPrice: -1}}}},
		{"duplicate variant", PlaceOrderCommand{UserID: "user_1", AddressID: "addr_1", Items: []OrderLineInput{
			{VariantID: "var_silk", Quantity: 1},
			{VariantID: "var_silk", Quantity: 2},
		}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.PlaceOrder(context.Background(), tc.cmd); !errors.Is(err, ErrOrderInvalidInput) {
				t.Fatalf("expected ErrOrderInvalidInput, got %v", err)
			}
		})
	}
}

func TestPlaceOrderMapsInsufficientStock(t *testing.T) {
	fixture := newOrderFixture(t)
	fixture.orders.placeFn = func(ctx context.Context, req repositories.PlaceOrderRequest) (repositories.PlaceOrderResult, error) {
		return repositories.PlaceOrderResult{}, repositories.NewInventoryError(repositories.InventoryErrorInsufficientStock, "stock 1 below requested 2", nil)
	}
	svc := fixture.service(t)

	_, err := svc.PlaceOrder(context.Background(), PlaceOrderCommand{
		UserID:    "user_1",
		AddressID: "addr_1",
		Items:     []OrderLineInput{{VariantID: "var_cotton", Quantity: 2}},
	})
	if !errors.Is(err, ErrOrderOutOfStock) {
		t.Fatalf("expected ErrOrderOutOfStock, got %v", err)
	}
}

func TestPlaceOrderMapsUnknownVariant(t *testing.T) {
	fixture := newOrderFixture(t)
	svc := fixture.service(t)

	_, err := svc.PlaceOrder(context.Background(), PlaceOrderCommand{
		UserID:    "user_1",
		AddressID: "addr_1",
		Items:     []OrderLineInput{{VariantID: "var_missing", Quantity: 1}},
	})
	if !errors.Is(err, ErrOrderVariantNotFound) {
		t.Fatalf("expected ErrOrderVariantNotFound, got %v", err)
	}
}

func TestPlaceOrderSendsConfirmationEffects(t *testing.T) {
	fixture := newOrderFixture(t)
	fixture.users.findFn = func(ctx context.Context, userID string) (domain.UserProfile, error) {
		return domain.UserProfile{UID: userID, Name: "Meena", Email: "meena@example.in", Phone: "+919876543210"}, nil
	}
	fixture.orders.placeFn = func(ctx context.Context, req repositories.PlaceOrderRequest) (repositories.PlaceOrderResult, error) {
		return repositories.PlaceOrderResult{
			Order: req.Order,
			Stocks: map[string]domain.ProductVariant{
				"var_cotton": {ID: "var_cotton", Stock: 18},
			},
		}, nil
	}
	svc := fixture.service(t)

	if _, err := svc.PlaceOrder(context.Background(), PlaceOrderCommand{
		UserID:    "user_1",
		AddressID: "addr_1",
		Items:     []OrderLineInput{{VariantID: "var_cotton", Quantity: 2}},
	}); err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}

	pushed := fixture.notifications.commands()
	if len(pushed) != 2 {
		t.Fatalf("expected user and admin notifications, got %d", len(pushed))
	}
	if pushed[0].UserID != "user_1" || pushed[1].ForAdmins != true {
		t.Fatalf("unexpected notification targets: %+v", pushed)
	}
	if len(fixture.mailer.sent) != 1 || fixture.mailer.sent[0].Kind != "order_confirmation" {
		t.Fatalf("expected one confirmation email, got %+v", fixture.mailer.sent)
	}
	if !strings.Contains(fixture.mailer.sent[0].HTML, "Meena") {
		t.Fatalf("expected email body addressed to customer, got %s", fixture.mailer.sent[0].HTML)
	}
	if len(fixture.messenger.sent) != 1 || fixture.messenger.sent[0].Template != "order_confirmation" {
		t.Fatalf("expected one confirmation message, got %+v", fixture.messenger.sent)
	}
	if got := fixture.lowStock.variants(); len(got) != 1 || got[0] != "var_cotton" {
		t.Fatalf("expected low stock check for var_cotton, got %v", got)
	}
}

func TestPlaceOrderSucceedsWhenEffectsFail(t *testing.T) {
	fixture := newOrderFixture(t)
	fixture.notifications.pushFn = func(ctx context.Context, cmd PushNotificationCommand) (Notification, error) {
		return Notification{}, errors.New("notification store down")
	}
	fixture.mailer.err = errors.New("topic unavailable")
	fixture.messenger.err = errors.New("topic unavailable")
	svc := fixture.service(t)

	order, err := svc.PlaceOrder(context.Background(), PlaceOrderCommand{
		UserID:    "user_1",
		AddressID: "addr_1",
		Items:     []OrderLineInput{{VariantID: "var_cotton", Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("expected placement to survive side effect failures, got %v", err)
	}
	if order.ID == "" {
		t.Fatalf("expected placed order")
	}

	var failures int
	for _, event := range fixture.events {
		if event == "order.effect.failed" {
			failures++
		}
	}
	if failures == 0 {
		t.Fatalf("expected failed effects to be logged, events: %v", fixture.events)
	}
}

func TestGetOrderScopedToOwner(t *testing.T) {
	fixture := newOrderFixture(t)
	fixture.orders.findFn = func(ctx context.Context, orderID string) (domain.Order, error) {
		return domain.Order{ID: orderID, UserID: "user_1"}, nil
	}
	svc := fixture.service(t)

	if _, err := svc.GetOrder(context.Background(), "ord_1", OrderReadOptions{ForUserID: "user_1"}); err != nil {
		t.Fatalf("GetOrder: %v", err)
	}

	if _, err := svc.GetOrder(context.Background(), "ord_1", OrderReadOptions{ForUserID: "user_2"}); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound for foreign order, got %v", err)
	}
}

func TestTransitionStatusRejectsUnknownStatus(t *testing.T) {
	fixture := newOrderFixture(t)
	svc := fixture.service(t)

	_, err := svc.TransitionStatus(context.Background(), OrderStatusTransitionCommand{
		OrderID: "ord_1",
		Target:  domain.OrderStatus("RETURNED"),
	})
	if !errors.Is(err, ErrOrderInvalidInput) {
		t.Fatalf("expected ErrOrderInvalidInput, got %v", err)
	}
}

func TestTransitionStatusMapsInvalidTransition(t *testing.T) {
	fixture := newOrderFixture(t)
	fixture.orders.transitionFn = func(ctx context.Context, req repositories.OrderTransitionRequest) (repositories.OrderTransitionResult, error) {
		return repositories.OrderTransitionResult{}, repositories.NewOrderError(repositories.OrderErrorInvalidTransition, "DELIVERED is terminal", nil)
	}
	svc := fixture.service(t)

	_, err := svc.TransitionStatus(context.Background(), OrderStatusTransitionCommand{
		OrderID: "ord_1",
		Target:  domain.OrderStatusShipped,
	})
	if !errors.Is(err, ErrOrderInvalidState) {
		t.Fatalf("expected ErrOrderInvalidState, got %v", err)
	}
}

func TestTransitionStatusNoChangeSkipsEffects(t *testing.T) {
	fixture := newOrderFixture(t)
	fixture.orders.transitionFn = func(ctx context.Context, req repositories.OrderTransitionRequest) (repositories.OrderTransitionResult, error) {
		return repositories.OrderTransitionResult{
			Order:    domain.Order{ID: req.OrderID, Status: req.Target},
			Previous: req.Target,
			NoChange: true,
		}, nil
	}
	svc := fixture.service(t)

	order, err := svc.TransitionStatus(context.Background(), OrderStatusTransitionCommand{
		OrderID: "ord_1",
		Target:  domain.OrderStatusProcessing,
	})
	if err != nil {
		t.Fatalf("TransitionStatus: %v", err)
	}
	if order.Status != domain.OrderStatusProcessing {
		t.Fatalf("expected PROCESSING, got %s", order.Status)
	}
	if pushed := fixture.notifications.commands(); len(pushed) != 0 {
		t.Fatalf("expected no notifications on a no-op transition, got %+v", pushed)
	}
}

func TestTransitionToShippedEmailsCustomer(t *testing.T) {
	fixture := newOrderFixture(t)
	fixture.users.findFn = func(ctx context.Context, userID string) (domain.UserProfile, error) {
		return domain.UserProfile{UID: userID, Name: "Meena", Email: "meena@example.in", Phone: "+919876543210"}, nil
	}
	fixture.orders.transitionFn = func(ctx context.Context, req repositories.OrderTransitionRequest) (repositories.OrderTransitionResult, error) {
		return repositories.OrderTransitionResult{
			Order: domain.Order{
				ID: req.OrderID, OrderNumber: "TT-2024-000005", UserID: "user_1",
				Status: domain.OrderStatusShipped, CourierName: "DTDC", TrackingNumber: "DT123456789IN",
			},
			Previous: domain.OrderStatusProcessing,
		}, nil
	}
	svc := fixture.service(t)

	if _, err := svc.TransitionStatus(context.Background(), OrderStatusTransitionCommand{
		OrderID: "ord_1",
		Target:  domain.OrderStatusShipped,
	}); err != nil {
		t.Fatalf("TransitionStatus: %v", err)
	}

	if len(fixture.mailer.sent) != 1 || fixture.mailer.sent[0].Kind != "shipping_update" {
		t.Fatalf("expected one shipping email, got %+v", fixture.mailer.sent)
	}
	if !strings.Contains(fixture.mailer.sent[0].HTML, "DT123456789IN") {
		t.Fatalf("expected tracking number in email body, got %s", fixture.mailer.sent[0].HTML)
	}
	if len(fixture.messenger.sent) != 1 || fixture.messenger.sent[0].Template != "shipping_update" {
		t.Fatalf("expected shipping update message, got %+v", fixture.messenger.sent)
	}
	pushed := fixture.notifications.commands()
	if len(pushed) != 1 || pushed[0].Title != "Order Shipped" {
		t.Fatalf("expected shipped notification, got %+v", pushed)
	}
}

func TestTransitionToDeliveredGrantsLoyalty(t *testing.T) {
	fixture := newOrderFixture(t)
	fixture.orders.transitionFn = func(ctx context.Context, req repositories.OrderTransitionRequest) (repositories.OrderTransitionResult, error) {
		return repositories.OrderTransitionResult{
			Order: domain.Order{
				ID: req.OrderID, OrderNumber: "TT-2024-000042",
				UserID: "user_1", Total: 4050, Status: domain.OrderStatusDelivered,
			},
			Previous: domain.OrderStatusShipped,
		}, nil
	}
	fixture.loyalty.grantFn = func(ctx context.Context, order Order) (LoyaltyGrantOutcome, error) {
		return LoyaltyGrantOutcome{Granted: true, Points: 40, Balance: 120}, nil
	}
	svc := fixture.service(t)

	if _, err := svc.TransitionStatus(context.Background(), OrderStatusTransitionCommand{
		OrderID: "ord_1",
		Target:  domain.OrderStatusDelivered,
	}); err != nil {
		t.Fatalf("TransitionStatus: %v", err)
	}

	if len(fixture.loyalty.granted) != 1 || fixture.loyalty.granted[0] != "ord_1" {
		t.Fatalf("expected one loyalty grant for ord_1, got %v", fixture.loyalty.granted)
	}

	pushed := fixture.notifications.commands()
	if len(pushed) != 2 {
		t.Fatalf("expected delivered plus reward notifications, got %d", len(pushed))
	}
	if pushed[1].Type != domain.NotificationTypeReward {
		t.Fatalf("expected reward notification, got %+v", pushed[1])
	}
}

func TestTransitionToCancelledNotifiesCustomer(t *testing.T) {
	fixture := newOrderFixture(t)
	fixture.users.findFn = func(ctx context.Context, userID string) (domain.UserProfile, error) {
		return domain.UserProfile{UID: userID, Name: "Meena", Email: "meena@example.in"}, nil
	}
	fixture.orders.transitionFn = func(ctx context.Context, req repositories.OrderTransitionRequest) (repositories.OrderTransitionResult, error) {
		return repositories.OrderTransitionResult{
			Order: domain.Order{
				ID: req.OrderID, OrderNumber: "TT-2024-000007",
				UserID: "user_1", Status: domain.OrderStatusCancelled,
			},
			Previous: domain.OrderStatusPending,
			Restored: map[string]domain.ProductVariant{
				"var_cotton": {ID: "var_cotton", Stock: 22},
			},
		}, nil
	}
	svc := fixture.service(t)

	if _, err := svc.TransitionStatus(context.Background(), OrderStatusTransitionCommand{
		OrderID: "ord_1",
		Target:  domain.OrderStatusCancelled,
	}); err != nil {
		t.Fatalf("TransitionStatus: %v", err)
	}

	pushed := fixture.notifications.commands()
	if len(pushed) != 1 || pushed[0].Title != "Order Cancelled" {
		t.Fatalf("expected cancellation notification, got %+v", pushed)
	}
	if len(fixture.mailer.sent) != 1 || fixture.mailer.sent[0].Kind != "order_cancelled" {
		t.Fatalf("expected one cancellation email, got %+v", fixture.mailer.sent)
	}
	if !strings.Contains(fixture.mailer.sent[0].HTML, "TT-2024-000007") {
		t.Fatalf("expected order number in email body, got %s", fixture.mailer.sent[0].HTML)
	}
}

func TestBulkTransitionCollectsFailures(t *testing.T) {
	fixture := newOrderFixture(t)
	fixture.orders.transitionFn = func(ctx context.Context, req repositories.OrderTransitionRequest) (repositories.OrderTransitionResult, error) {
		if req.OrderID == "ord_bad" {
			return repositories.OrderTransitionResult{}, repositories.NewOrderError(repositories.OrderErrorInvalidTransition, "CANCELLED is terminal", nil)
		}
		return repositories.OrderTransitionResult{
			Order:    domain.Order{ID: req.OrderID, Status: req.Target},
			Previous: domain.OrderStatusPending,
		}, nil
	}
	svc := fixture.service(t)

	result, err := svc.BulkTransitionStatus(context.Background(), BulkTransitionCommand{
		OrderIDs: []string{"ord_1", "ord_bad", "ord_2"},
		Target:   domain.OrderStatusProcessing,
	})
	if err != nil {
		t.Fatalf("BulkTransitionStatus: %v", err)
	}
	if len(result.Succeeded) != 2 {
		t.Fatalf("expected two successes, got %v", result.Succeeded)
	}
	if len(result.Failed) != 1 || result.Failed[0].OrderID != "ord_bad" {
		t.Fatalf("expected one failure for ord_bad, got %+v", result.Failed)
	}
}

func TestAttachTrackingRequiresCourierDetails(t *testing.T) {
	fixture := newOrderFixture(t)
	svc := fixture.service(t)

	_, err := svc.AttachTracking(context.Background(), AttachTrackingCommand{OrderID: "ord_1", CourierName: "DTDC"})
	if !errors.Is(err, ErrOrderInvalidInput) {
		t.Fatalf("expected ErrOrderInvalidInput, got %v", err)
	}
}

func TestAttachTrackingShipsOrder(t *testing.T) {
	fixture := newOrderFixture(t)
	fixture.users.findFn = func(ctx context.Context, userID string) (domain.UserProfile, error) {
		return domain.UserProfile{UID: userID, Phone: "+919876543210"}, nil
	}
	var req repositories.OrderTransitionRequest
	fixture.orders.transitionFn = func(ctx context.Context, r repositories.OrderTransitionRequest) (repositories.OrderTransitionResult, error) {
		req = r
		return repositories.OrderTransitionResult{
			Order: domain.Order{
				ID: r.OrderID, OrderNumber: "TT-2024-000003", UserID: "user_1",
				Status: domain.OrderStatusShipped, CourierName: r.CourierName, TrackingNumber: r.TrackingNumber,
			},
			Previous: domain.OrderStatusProcessing,
		}, nil
	}
	svc := fixture.service(t)

	order, err := svc.AttachTracking(context.Background(), AttachTrackingCommand{
		OrderID:        "ord_1",
		CourierName:    "DTDC",
		TrackingNumber: "DT123456789IN",
	})
	if err != nil {
		t.Fatalf("AttachTracking: %v", err)
	}
	if req.Target != domain.OrderStatusShipped {
		t.Fatalf("expected SHIPPED target, got %s", req.Target)
	}
	if order.CourierName != "DTDC" || order.TrackingNumber != "DT123456789IN" {
		t.Fatalf("unexpected courier details: %+v", order)
	}
	if len(fixture.messenger.sent) != 1 || fixture.messenger.sent[0].Template != "shipping_update" {
		t.Fatalf("expected shipping update message, got %+v", fixture.messenger.sent)
	}
	if fixture.messenger.sent[0].Params["tracking"] != "DT123456789IN" {
		t.Fatalf("expected tracking number in message params, got %+v", fixture.messenger.sent[0].Params)
	}
}
