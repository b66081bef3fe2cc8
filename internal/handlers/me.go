package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/balamernstackdev/thulasi-textiles-sub000/internal/platform/auth"
	"github.com/balamernstackdev/thulasi-textiles-sub000/internal/platform/httpx"
	"github.com/balamernstackdev/thulasi-textiles-sub000/internal/services"
)

const (
	defaultNotificationPageSize = 20
	maxNotificationPageSize     = 100

	defaultLoyaltyPageSize = 20
	maxLoyaltyPageSize     = 100
)

type notificationListResponse struct {
	Items         []notificationPayload `json:"items"`
	NextPageToken string                `json:"next_page_token,omitempty"`
}

type loyaltyListResponse struct {
	Items         []loyaltyTransactionPayload `json:"items"`
	NextPageToken string                      `json:"next_page_token,omitempty"`
}

// MeHandlers exposes the authenticated customer's notification inbox and
// loyalty history.
type MeHandlers struct {
	authn         *auth.Authenticator
	notifications services.NotificationService
	loyalty       services.LoyaltyService
}

// NewMeHandlers constructs a new MeHandlers instance.
func NewMeHandlers(authn *auth.Authenticator, notifications services.NotificationService, loyalty services.LoyaltyService) *MeHandlers {
	return &MeHandlers{
		authn:         authn,
		notifications: notifications,
		loyalty:       loyalty,
	}
}

// Routes registers the /me endpoints.
func (h *MeHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireFirebaseAuth())
	}
	r.Get("/notifications", h.listNotifications)
	r.Post("/notifications/{notificationID}/read", h.markNotificationRead)
	r.Get("/loyalty/transactions", h.listLoyaltyTransactions)
}

func (h *MeHandlers) listNotifications(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.notifications == nil {
		httpx.WriteError(ctx, w, httpx.NewError("notification_service_unavailable", "notification service unavailable", http.StatusServiceUnavailable))
		return
	}

	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || identity == nil || strings.TrimSpace(identity.UID) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return
	}

	query := r.URL.Query()
	pageSize, err := parsePageSize(query.Get("page_size"), defaultNotificationPageSize, maxNotificationPageSize)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	page, err := h.notifications.ListForUser(ctx, strings.TrimSpace(identity.UID), services.Pagination{
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

func (h *MeHandlers) markNotificationRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.notifications == nil {
		httpx.WriteError(ctx, w, httpx.NewError("notification_service_unavailable", "notification service unavailable", http.StatusServiceUnavailable))
		return
	}

	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || identity == nil || strings.TrimSpace(identity.UID) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return
	}

	notificationID := strings.TrimSpace(chi.URLParam(r, "notificationID"))
	if notificationID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "notification id is required", http.StatusBadRequest))
		return
	}

	err := h.notifications.MarkRead(ctx, strings.TrimSpace(identity.UID), notificationID)
	switch {
	case err == nil:
		httpx.WriteJSON(w, http.StatusOK, map[string]any{"id": notificationID, "read": true})
	case errors.Is(err, services.ErrNotificationNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("notification_not_found", "notification not found", http.StatusNotFound))
	case errors.Is(err, services.ErrNotificationInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "notification request is invalid", http.StatusBadRequest))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "failed to mark notification read", http.StatusInternalServerError))
	}
}

func (h *MeHandlers) listLoyaltyTransactions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.loyalty == nil {
		httpx.WriteError(ctx, w, httpx.NewError("loyalty_service_unavailable", "loyalty service unavailable", http.StatusServiceUnavailable))
		return
	}

	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || identity == nil || strings.TrimSpace(identity.UID) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return
	}

	query := r.URL.Query()
	pageSize, err := parsePageSize(query.Get("page_size"), defaultLoyaltyPageSize, maxLoyaltyPageSize)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	page, err := h.loyalty.ListTransactions(ctx, strings.TrimSpace(identity.UID), services.Pagination{
		PageSize:  pageSize,
		PageToken: strings.TrimSpace(query.Get("page_token")),
	})
	if err != nil {
		if errors.Is(err, services.ErrLoyaltyInvalidInput) {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "loyalty request is invalid", http.StatusBadRequest))
			return
		}
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "failed to list loyalty transactions", http.StatusInternalServerError))
		return
	}

	items := make([]loyaltyTransactionPayload, 0, len(page.Items))
	for _, tx := range page.Items {
		items = append(items, buildLoyaltyTransactionPayload(tx))
	}

	httpx.WriteJSON(w, http.StatusOK, loyaltyListResponse{
		Items:         items,
		NextPageToken: strings.TrimSpace(page.NextPageToken),
	})
}
