package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/balamernstackdev/thulasi-textiles-sub000/internal/domain"
	"github.com/balamernstackdev/thulasi-textiles-sub000/internal/platform/auth"
	"github.com/balamernstackdev/thulasi-textiles-sub000/internal/platform/httpx"
	"github.com/balamernstackdev/thulasi-textiles-sub000/internal/services"
)

const (
	defaultLowStockPageSize = 50
	maxLowStockPageSize     = 200
	maxAdminBodySize        = 16 * 1024
	maxBulkStatusOrders     = 100
)

type updateStatusRequest struct {
	Status string `json:"status"`
}

type attachTrackingRequest struct {
	CourierName    string `json:"courier_name"`
	TrackingNumber string `json:"tracking_number"`
}

type bulkStatusRequest struct {
	OrderIDs []string `json:"order_ids"`
	Status   string   `json:"status"`
}

type bulkStatusResponse struct {
	Succeeded []string                   `json:"succeeded"`
	Failed    []bulkStatusFailurePayload `json:"failed"`
}

type bulkStatusFailurePayload struct {
	OrderID string `json:"order_id"`
	Reason  string `json:"reason"`
}

type setStockRequest struct {
	Stock *int `json:"stock"`
}

type lowStockListResponse struct {
	Items         []variantPayload `json:"items"`
	NextPageToken string           `json:"next_page_token,omitempty"`
}

// AdminHandlers exposes the fulfilment dashboard: order management, stock
// adjustments, and the admin notification feed. All routes require staff or
// admin role claims.
type AdminHandlers struct {
	authn         *auth.Authenticator
	orders        services.OrderService
	inventory     services.InventoryService
	notifications services.NotificationService
}

// NewAdminHandlers constructs a new AdminHandlers instance.
func NewAdminHandlers(authn *auth.Authenticator, orders services.OrderService, inventory services.InventoryService, notifications services.NotificationService) *AdminHandlers {
	return &AdminHandlers{
		authn:         authn,
		orders:        orders,
		inventory:     inventory,
		notifications: notifications,
	}
}

// Routes registers the /admin endpoints.
func (h *AdminHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireFirebaseAuth(auth.RoleAdmin, auth.RoleStaff))
	}
	r.Get("/orders", h.listOrders)
	r.Get("/orders/fulfillment-queue", h.fulfillmentQueue)
	r.Get("/orders/{orderID}", h.getOrder)
	r.Patch("/orders/{orderID}/status", h.updateStatus)
	r.Post("/orders/{orderID}/tracking", h.attachTracking)
	r.Post("/orders/bulk-status", h.bulkStatus)
	r.Get("/inventory/low-stock", h.listLowStock)
	r.Get("/inventory/{variantID}", h.getVariant)
	r.Put("/inventory/{variantID}/stock", h.setStock)
	r.Get("/notifications", h.listNotifications)
}

func (h *AdminHandlers) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	filter, ok := parseOrderListFilter(ctx, w, r)
	if !ok {
		return
	}
	filter.UserID = strings.TrimSpace(r.URL.Query().Get("user_id"))

	page, err := h.orders.ListOrders(ctx, filter)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	items := make([]orderSummaryPayload, 0, len(page.Items))
	for _, order := range page.Items {
		items = append(items, buildOrderSummary(order))
	}

	httpx.WriteJSON(w, http.StatusOK, orderListResponse{
		Items:         items,
		NextPageToken: strings.TrimSpace(page.NextPageToken),
	})
}

// fulfillmentQueue lists open orders oldest first so packers work the backlog
// in arrival order.
func (h *AdminHandlers) fulfillmentQueue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	query := r.URL.Query()
	pageSize, err := parsePageSize(query.Get("page_size"), defaultOrderPageSize, maxOrderPageSize)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	page, err := h.orders.ListOrders(ctx, services.OrderListFilter{
		Status:     []domain.OrderStatus{domain.OrderStatusPending, domain.OrderStatusProcessing},
		OldestOnly: true,
		Pagination: services.Pagination{
			PageSize:  pageSize,
			PageToken: strings.TrimSpace(query.Get("page_token")),
		},
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	items := make([]orderSummaryPayload, 0, len(page.Items))
	for _, order := range page.Items {
		items = append(items, buildOrderSummary(order))
	}

	httpx.WriteJSON(w, http.StatusOK, orderListResponse{
		Items:         items,
		NextPageToken: strings.TrimSpace(page.NextPageToken),
	})
}

func (h *AdminHandlers) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if orderID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order id is required", http.StatusBadRequest))
		return
	}

	order, err := h.orders.GetOrder(ctx, orderID, services.OrderReadOptions{})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order)})
}

func (h *AdminHandlers) updateStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if orderID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order id is required", http.StatusBadRequest))
		return
	}

	var req updateStatusRequest
	if !decodeAdminBody(ctx, w, r, &req) {
		return
	}

	target := domain.OrderStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
	if !domain.ValidOrderStatus(target) {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "status must be a valid order status", http.StatusBadRequest))
		return
	}

	order, err := h.orders.TransitionStatus(ctx, services.OrderStatusTransitionCommand{
		OrderID: orderID,
		Target:  target,
		ActorID: adminActorID(ctx),
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order)})
}

func (h *AdminHandlers) attachTracking(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if orderID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order id is required", http.StatusBadRequest))
		return
	}

	var req attachTrackingRequest
	if !decodeAdminBody(ctx, w, r, &req) {
		return
	}

	if strings.TrimSpace(req.CourierName) == "" || strings.TrimSpace(req.TrackingNumber) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "courier_name and tracking_number are required", http.StatusBadRequest))
		return
	}

	order, err := h.orders.AttachTracking(ctx, services.AttachTrackingCommand{
		OrderID:        orderID,
		CourierName:    strings.TrimSpace(req.CourierName),
		TrackingNumber: strings.TrimSpace(req.TrackingNumber),
		ActorID:        adminActorID(ctx),
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order)})
}

func (h *AdminHandlers) bulkStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	var req bulkStatusRequest
	if !decodeAdminBody(ctx, w, r, &req) {
		return
	}

	if len(req.OrderIDs) == 0 {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order_ids must not be empty", http.StatusBadRequest))
		return
	}
	if len(req.OrderIDs) > maxBulkStatusOrders {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order_ids exceeds the bulk limit of "+strconv.Itoa(maxBulkStatusOrders), http.StatusBadRequest))
		return
	}

	target := domain.OrderStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
	if !domain.ValidOrderStatus(target) {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "status must be a valid order status", http.StatusBadRequest))
		return
	}

	result, err := h.orders.BulkTransitionStatus(ctx, services.BulkTransitionCommand{
		OrderIDs: req.OrderIDs,
		Target:   target,
		ActorID:  adminActorID(ctx),
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	failed := make([]bulkStatusFailurePayload, 0, len(result.Failed))
	for _, failure := range result.Failed {
		failed = append(failed, bulkStatusFailurePayload{
			OrderID: failure.OrderID,
			Reason:  failure.Reason,
		})
	}

	succeeded := result.Succeeded
	if succeeded == nil {
		succeeded = []string{}
	}

	httpx.WriteJSON(w, http.StatusOK, bulkStatusResponse{
		Succeeded: succeeded,
		Failed:    failed,
	})
}

func (h *AdminHandlers) listLowStock(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.inventory == nil {
		httpx.WriteError(ctx, w, httpx.NewError("inventory_service_unavailable", "inventory service unavailable", http.StatusServiceUnavailable))
		return
	}

	query := r.URL.Query()
	pageSize, err := parsePageSize(query.Get("page_size"), defaultLowStockPageSize, maxLowStockPageSize)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	threshold := 0
	if raw := strings.TrimSpace(query.Get("threshold")); raw != "" {
		threshold, err = strconv.Atoi(raw)
		if err != nil || threshold < 0 {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "threshold must be a non-negative integer", http.StatusBadRequest))
			return
		}
	}

	page, err := h.inventory.ListLowStock(ctx, services.LowStockFilter{
		Threshold: threshold,
		Pagination: services.Pagination{
			PageSize:  pageSize,
			PageToken: strings.TrimSpace(query.Get("page_token")),
		},
	})
	if err != nil {
		writeInventoryError(ctx, w, err)
		return
	}

	items := make([]variantPayload, 0, len(page.Items))
	for _, variant := range page.Items {
		items = append(items, buildVariantPayload(variant))
	}

	httpx.WriteJSON(w, http.StatusOK, lowStockListResponse{
		Items:         items,
		NextPageToken: strings.TrimSpace(page.NextPageToken),
	})
}

func (h *AdminHandlers) getVariant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.inventory == nil {
		httpx.WriteError(ctx, w, httpx.NewError("inventory_service_unavailable", "inventory service unavailable", http.StatusServiceUnavailable))
		return
	}

	variantID := strings.TrimSpace(chi.URLParam(r, "variantID"))
	if variantID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "variant id is required", http.StatusBadRequest))
		return
	}

	variant, err := h.inventory.GetVariant(ctx, variantID)
	if err != nil {
		writeInventoryError(ctx, w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, buildVariantPayload(variant))
}

func (h *AdminHandlers) setStock(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.inventory == nil {
		httpx.WriteError(ctx, w, httpx.NewError("inventory_service_unavailable", "inventory service unavailable", http.StatusServiceUnavailable))
		return
	}

	variantID := strings.TrimSpace(chi.URLParam(r, "variantID"))
	if variantID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "variant id is required", http.StatusBadRequest))
		return
	}

	var req setStockRequest
	if !decodeAdminBody(ctx, w, r, &req) {
		return
	}
	if req.Stock == nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "stock is required", http.StatusBadRequest))
		return
	}

	variant, err := h.inventory.SetStock(ctx, services.SetStockCommand{
		VariantID: variantID,
		Stock:     *req.Stock,
		ActorID:   adminActorID(ctx),
	})
	if err != nil {
		writeInventoryError(ctx, w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, buildVariantPayload(variant))
}

func (h *AdminHandlers) listNotifications(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.notifications == nil {
		httpx.WriteError(ctx, w, httpx.NewError("notification_service_unavailable", "notification service unavailable", http.StatusServiceUnavailable))
		return
	}

	query := r.URL.Query()
	pageSize, err := parsePageSize(query.Get("page_size"), defaultNotificationPageSize, maxNotificationPageSize)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	page, err := h.notifications.ListForAdmins(ctx, services.Pagination{
		PageSize:  pageSize,
		PageToken: strings.TrimSpace(query.Get("page_token")),
	})
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "failed to list notifications", http.StatusInternalServerError))
		return
	}

	items := make([]notificationPayload, 0, len(page.Items))
	for _, n := range page.Items {
		items = append(items, buildNotificationPayload(n))
	}

	httpx.WriteJSON(w, http.StatusOK, notificationListResponse{
		Items:         items,
		NextPageToken: strings.TrimSpace(page.NextPageToken),
	})
}

// decodeAdminBody reads and unmarshals a bounded JSON request body. It writes
// the error response itself and reports false on failure.
func decodeAdminBody(ctx context.Context, w http.ResponseWriter, r *http.Request, dst any) bool {
	body, err := readLimitedBody(r, maxAdminBodySize)
	if err != nil {
		switch {
		case errors.Is(err, errBodyTooLarge):
			httpx.WriteError(ctx, w, httpx.NewError("payload_too_large", "request body exceeds allowed size", http.StatusRequestEntityTooLarge))
		default:
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		}
		return false
	}
	if len(body) == 0 {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body is required", http.StatusBadRequest))
		return false
	}
	if err := json.Unmarshal(body, dst); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON body", http.StatusBadRequest))
		return false
	}
	return true
}

func adminActorID(ctx context.Context) string {
	if identity, ok := auth.IdentityFromContext(ctx); ok && identity != nil {
		return strings.TrimSpace(identity.UID)
	}
	return ""
}

func writeInventoryError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrInventoryInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "inventory request is invalid", http.StatusBadRequest))
	case errors.Is(err, services.ErrInventoryVariantNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("variant_not_found", "variant not found", http.StatusNotFound))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "failed to process inventory request", http.StatusInternalServerError))
	}
}
