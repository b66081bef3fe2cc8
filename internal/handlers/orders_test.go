package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/balamernstackdev/thulasi-textiles-sub000/internal/domain"
	"github.com/balamernstackdev/thulasi-textiles-sub000/internal/platform/auth"
	"github.com/balamernstackdev/thulasi-textiles-sub000/internal/services"
)

type stubOrderService struct {
	placeFn      func(context.Context, services.PlaceOrderCommand) (services.Order, error)
	getFn        func(context.Context, string, services.OrderReadOptions) (services.Order, error)
	listFn       func(context.Context, services.OrderListFilter) (domain.CursorPage[services.Order], error)
	transitionFn func(context.Context, services.OrderStatusTransitionCommand) (services.Order, error)
	bulkFn       func(context.Context, services.BulkTransitionCommand) (services.BulkTransitionResult, error)
	trackingFn   func(context.Context, services.AttachTrackingCommand) (services.Order, error)
}

func (s *stubOrderService) PlaceOrder(ctx context.Context, cmd services.PlaceOrderCommand) (services.Order, error) {
	if s.placeFn != nil {
		return s.placeFn(ctx, cmd)
	}
	return services.Order{}, errors.New("not implemented")
}

func (s *stubOrderService) GetOrder(ctx context.Context, orderID string, opts services.OrderReadOptions) (services.Order, error) {
	if s.getFn != nil {
		return s.getFn(ctx, orderID, opts)
	}
	return services.Order{}, errors.New("not implemented")
}

func (s *stubOrderService) ListOrders(ctx context.Context, filter services.OrderListFilter) (domain.CursorPage[services.Order], error) {
	if s.listFn != nil {
		return s.listFn(ctx, filter)
	}
	return domain.CursorPage[services.Order]{}, nil
}

func (s *stubOrderService) TransitionStatus(ctx context.Context, cmd services.OrderStatusTransitionCommand) (services.Order, error) {
	if s.transitionFn != nil {
		return s.transitionFn(ctx, cmd)
	}
	return services.Order{}, errors.New("not implemented")
}

func (s *stubOrderService) BulkTransitionStatus(ctx context.Context, cmd services.BulkTransitionCommand) (services.BulkTransitionResult, error) {
	if s.bulkFn != nil {
		return s.bulkFn(ctx, cmd)
	}
	return services.BulkTransitionResult{}, errors.New("not implemented")
}

func (s *stubOrderService) AttachTracking(ctx context.Context, cmd services.AttachTrackingCommand) (services.Order, error) {
	if s.trackingFn != nil {
		return s.trackingFn(ctx, cmd)
	}
	return services.Order{}, errors.New("not implemented")
}

var _ services.OrderService = (*stubOrderService)(nil)

// decodeEnvelope parses the success envelope and unmarshals the data field
// into dst.
func decodeEnvelope(t *testing.T, body []byte, dst any) {
	t.Helper()
	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		t.Fatalf("failed to parse envelope: %v", err)
	}
	if !envelope.Success {
		t.Fatalf("expected success envelope, got %s", string(body))
	}
	if dst != nil {
		if err := json.Unmarshal(envelope.Data, dst); err != nil {
			t.Fatalf("failed to parse data: %v", err)
		}
	}
}

func decodeErrorEnvelope(t *testing.T, body []byte) string {
	t.Helper()
	var envelope struct {
		Success bool `json:"success"`
		Error   struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		t.Fatalf("failed to parse error envelope: %v", err)
	}
	if envelope.Success {
		t.Fatalf("expected error envelope, got %s", string(body))
	}
	return envelope.Error.Code
}

func authedRequest(req *http.Request, uid string, roles ...string) *http.Request {
	return req.WithContext(auth.WithIdentity(req.Context(), &auth.Identity{UID: uid, Roles: roles}))
}

func orderRouter(service services.OrderService) chi.Router {
	handler := NewOrderHandlers(nil, service)
	router := chi.NewRouter()
	router.Route("/orders", handler.Routes)
	return router
}

func sampleOrder(now time.Time) domain.Order {
	return domain.Order{
		ID:          "ord_01TEST",
		OrderNumber: "TT-2024-000042",
		UserID:      "user-1",
		Items: []domain.OrderItem{
			{
				VariantID: "var_silk",
				SKU:       "KAN-SIL-001",
				Name:      "Kanchipuram Silk Saree",
				Quantity:  1,
				UnitPrice: 4500,
				Total:     4500,
			},
		},
		Subtotal:      4500,
		Shipping:      0,
		Total:         4500,
		Status:        domain.OrderStatusPending,
		PaymentStatus: domain.PaymentStatusPending,
		CreatedAt:     now,
	}
}

func TestOrderHandlersPlaceOrder(t *testing.T) {
	now := time.Date(2024, 5, 10, 11, 0, 0, 0, time.UTC)

	var captured services.PlaceOrderCommand
	service := &stubOrderService{
		placeFn: func(ctx context.Context, cmd services.PlaceOrderCommand) (services.Order, error) {
			captured = cmd
			return sampleOrder(now), nil
		},
	}
	router := orderRouter(service)

	body := `{"address_id":"addr_home","items":[{"variant_id":"var_silk","quantity":1,"unit_price":4500}],"coupon_code":"WELCOME10"}`
	req := httptest.NewRequest(http.MethodPost, "/orders/", bytes.NewReader([]byte(body)))
	req = authedRequest(req, "user-1")

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}

	if captured.UserID != "user-1" {
		t.Fatalf("expected command user user-1, got %q", captured.UserID)
	}
	if captured.AddressID != "addr_home" {
		t.Fatalf("expected address addr_home, got %q", captured.AddressID)
	}
	if captured.CouponCode != "WELCOME10" {
		t.Fatalf("expected coupon WELCOME10, got %q", captured.CouponCode)
	}
	if len(captured.Items) != 1 || captured.Items[0].VariantID != "var_silk" || captured.Items[0].Quantity != 1 {
		t.Fatalf("unexpected items: %#v", captured.Items)
	}

	var resp orderResponse
	decodeEnvelope(t, rr.Body.Bytes(), &resp)
	if resp.Order.ID != "ord_01TEST" || resp.Order.OrderNumber != "TT-2024-000042" {
		t.Fatalf("unexpected order payload: %#v", resp.Order)
	}
	if resp.Order.Total != 4500 {
		t.Fatalf("expected total 4500, got %d", resp.Order.Total)
	}
}

func TestOrderHandlersPlaceOrderRequiresAuth(t *testing.T) {
	router := orderRouter(&stubOrderService{})

	req := httptest.NewRequest(http.MethodPost, "/orders/", bytes.NewReader([]byte(`{}`)))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rr.Code)
	}
}

func TestOrderHandlersPlaceOrderInvalidJSON(t *testing.T) {
	router := orderRouter(&stubOrderService{})

	req := httptest.NewRequest(http.MethodPost, "/orders/", bytes.NewReader([]byte(`{not-json`)))
	req = authedRequest(req, "user-1")

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
	if code := decodeErrorEnvelope(t, rr.Body.Bytes()); code != "invalid_request" {
		t.Fatalf("expected invalid_request, got %s", code)
	}
}

func TestOrderHandlersPlaceOrderErrorMapping(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		status   int
		codeWant string
	}{
		{"invalid input", services.ErrOrderInvalidInput, http.StatusBadRequest, "invalid_request"},
		{"out of stock", services.ErrOrderOutOfStock, http.StatusConflict, "insufficient_stock"},
		{"variant not found", services.ErrOrderVariantNotFound, http.StatusUnprocessableEntity, "variant_not_found"},
		{"coupon exhausted", services.ErrCouponExhausted, http.StatusConflict, "coupon_exhausted"},
		{"coupon expired", services.ErrCouponExpired, http.StatusUnprocessableEntity, "coupon_expired"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			service := &stubOrderService{
				placeFn: func(context.Context, services.PlaceOrderCommand) (services.Order, error) {
					return services.Order{}, tc.err
				},
			}
			router := orderRouter(service)

			req := httptest.NewRequest(http.MethodPost, "/orders/", bytes.NewReader([]byte(`{"address_id":"a","items":[{"variant_id":"v","quantity":1}]}`)))
			req = authedRequest(req, "user-1")

			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			if rr.Code != tc.status {
				t.Fatalf("expected status %d, got %d", tc.status, rr.Code)
			}
			if code := decodeErrorEnvelope(t, rr.Body.Bytes()); code != tc.codeWant {
				t.Fatalf("expected code %s, got %s", tc.codeWant, code)
			}
		})
	}
}

func TestOrderHandlersListOrders(t *testing.T) {
	now := time.Date(2024, 5, 10, 11, 0, 0, 0, time.UTC)
	fromExpected := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	var captured services.OrderListFilter
	service := &stubOrderService{
		listFn: func(ctx context.Context, filter services.OrderListFilter) (domain.CursorPage[services.Order], error) {
			captured = filter
			return domain.CursorPage[services.Order]{
				Items:         []services.Order{sampleOrder(now)},
				NextPageToken: "tok-next",
			}, nil
		},
	}
	router := orderRouter(service)

	req := httptest.NewRequest(http.MethodGet, "/orders/?status=pending,shipped&page_size=10&page_token=tok123&created_after=2024-05-01T00:00:00Z", nil)
	req = authedRequest(req, "user-1")

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	if captured.UserID != "user-1" {
		t.Fatalf("expected filter user user-1, got %q", captured.UserID)
	}
	if len(captured.Status) != 2 || captured.Status[0] != domain.OrderStatusPending || captured.Status[1] != domain.OrderStatusShipped {
		t.Fatalf("unexpected status filters: %#v", captured.Status)
	}
	if captured.Pagination.PageSize != 10 || captured.Pagination.PageToken != "tok123" {
		t.Fatalf("unexpected pagination: %#v", captured.Pagination)
	}
	if captured.DateRange.From == nil || !captured.DateRange.From.Equal(fromExpected) {
		t.Fatalf("unexpected date range: %#v", captured.DateRange.From)
	}

	var resp orderListResponse
	decodeEnvelope(t, rr.Body.Bytes(), &resp)
	if len(resp.Items) != 1 || resp.Items[0].OrderNumber != "TT-2024-000042" {
		t.Fatalf("unexpected items: %#v", resp.Items)
	}
	if resp.NextPageToken != "tok-next" {
		t.Fatalf("expected next page token tok-next, got %q", resp.NextPageToken)
	}
}

func TestOrderHandlersListOrdersRejectsUnknownStatus(t *testing.T) {
	router := orderRouter(&stubOrderService{})

	req := httptest.NewRequest(http.MethodGet, "/orders/?status=RETURNED", nil)
	req = authedRequest(req, "user-1")

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

func TestOrderHandlersGetOrderScopedToOwner(t *testing.T) {
	now := time.Date(2024, 5, 10, 11, 0, 0, 0, time.UTC)

	var capturedOpts services.OrderReadOptions
	service := &stubOrderService{
		getFn: func(ctx context.Context, orderID string, opts services.OrderReadOptions) (services.Order, error) {
			capturedOpts = opts
			if orderID != "ord_01TEST" {
				return services.Order{}, services.ErrOrderNotFound
			}
			return sampleOrder(now), nil
		},
	}
	router := orderRouter(service)

	req := httptest.NewRequest(http.MethodGet, "/orders/ord_01TEST", nil)
	req = authedRequest(req, "user-1")

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if capturedOpts.ForUserID != "user-1" {
		t.Fatalf("expected read scoped to user-1, got %q", capturedOpts.ForUserID)
	}

	var resp orderResponse
	decodeEnvelope(t, rr.Body.Bytes(), &resp)
	if resp.Order.ID != "ord_01TEST" {
		t.Fatalf("unexpected order: %#v", resp.Order)
	}
}

func TestOrderHandlersGetOrderNotFound(t *testing.T) {
	service := &stubOrderService{
		getFn: func(context.Context, string, services.OrderReadOptions) (services.Order, error) {
			return services.Order{}, services.ErrOrderNotFound
		},
	}
	router := orderRouter(service)

	req := httptest.NewRequest(http.MethodGet, "/orders/ord_missing", nil)
	req = authedRequest(req, "user-1")

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
	if code := decodeErrorEnvelope(t, rr.Body.Bytes()); code != "order_not_found" {
		t.Fatalf("expected order_not_found, got %s", code)
	}
}
