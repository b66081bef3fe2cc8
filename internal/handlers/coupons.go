package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/balamernstackdev/thulasi-textiles-sub000/internal/platform/auth"
	"github.com/balamernstackdev/thulasi-textiles-sub000/internal/platform/httpx"
	"github.com/balamernstackdev/thulasi-textiles-sub000/internal/services"
)

const (
	maxCouponBodySize = 4 * 1024

	couponRateLimit  = 10
	couponRateWindow = time.Minute
)

type validateCouponRequest struct {
	Code     string `json:"code"`
	Subtotal int64  `json:"subtotal"`
}

type couponValidationResponse struct {
	Code        string `json:"code"`
	Type        string `json:"type"`
	Value       int64  `json:"value"`
	Discount    int64  `json:"discount"`
	MinSubtotal int64  `json:"min_subtotal,omitempty"`
}

// CouponHandlers exposes coupon validation for the checkout flow. Validation
// is rate limited per user to slow down brute-force probing of codes.
type CouponHandlers struct {
	authn   *auth.Authenticator
	coupons services.CouponService
	limiter rateLimiter
}

// NewCouponHandlers constructs a new CouponHandlers instance.
func NewCouponHandlers(authn *auth.Authenticator, coupons services.CouponService) *CouponHandlers {
	return &CouponHandlers{
		authn:   authn,
		coupons: coupons,
		limiter: newSimpleRateLimiter(couponRateLimit, couponRateWindow, time.Now),
	}
}

// Routes registers the /coupons endpoints.
func (h *CouponHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireFirebaseAuth())
	}
	r.Post("/validate", h.validateCoupon)
}

func (h *CouponHandlers) validateCoupon(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.coupons == nil {
		httpx.WriteError(ctx, w, httpx.NewError("coupon_service_unavailable", "coupon service unavailable", http.StatusServiceUnavailable))
		return
	}

	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || identity == nil || strings.TrimSpace(identity.UID) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return
	}

	if h.limiter != nil && !h.limiter.Allow(identity.UID) {
		httpx.WriteError(ctx, w, httpx.NewError("rate_limited", "too many coupon validation attempts", http.StatusTooManyRequests))
		return
	}

	body, err := readLimitedBody(r, maxCouponBodySize)
	if err != nil {
		switch {
		case errors.Is(err, errBodyTooLarge):
			httpx.WriteError(ctx, w, httpx.NewError("payload_too_large", "request body exceeds allowed size", http.StatusRequestEntityTooLarge))
		default:
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		}
		return
	}

	var req validateCouponRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON body", http.StatusBadRequest))
		return
	}

	result, err := h.coupons.Validate(ctx, services.ValidateCouponCommand{
		Code:     strings.TrimSpace(req.Code),
		Subtotal: req.Subtotal,
	})
	if err != nil {
		writeCouponError(ctx, w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, couponValidationResponse{
		Code:        result.Coupon.Code,
		Type:        string(result.Coupon.Type),
		Value:       result.Coupon.Value,
		Discount:    result.Discount,
		MinSubtotal: result.Coupon.MinSubtotal,
	})
}

func writeCouponError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrCouponInvalidCode):
		httpx.WriteError(ctx, w, httpx.NewError("coupon_invalid_code", "coupon code is missing or malformed", http.StatusBadRequest))
	case errors.Is(err, services.ErrCouponNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("coupon_not_found", "coupon not found", http.StatusNotFound))
	case errors.Is(err, services.ErrCouponInactive):
		httpx.WriteError(ctx, w, httpx.NewError("coupon_inactive", "coupon is no longer active", http.StatusUnprocessableEntity))
	case errors.Is(err, services.ErrCouponNotStarted):
		httpx.WriteError(ctx, w, httpx.NewError("coupon_not_started", "coupon is not yet valid", http.StatusUnprocessableEntity))
	case errors.Is(err, services.ErrCouponExpired):
		httpx.WriteError(ctx, w, httpx.NewError("coupon_expired", "coupon has expired", http.StatusUnprocessableEntity))
	case errors.Is(err, services.ErrCouponExhausted):
		httpx.WriteError(ctx, w, httpx.NewError("coupon_exhausted", "coupon usage limit reached", http.StatusConflict))
	case errors.Is(err, services.ErrCouponMinSubtotal):
		httpx.WriteError(ctx, w, httpx.NewError("coupon_min_subtotal", "order subtotal is below the coupon minimum", http.StatusUnprocessableEntity))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "failed to validate coupon", http.StatusInternalServerError))
	}
}
