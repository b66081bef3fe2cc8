package handlers

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/go-chi/chi/v5"

	domain "github.com/balamernstackdev/thulasi-textiles-sub000/internal/domain"
	"github.com/balamernstackdev/thulasi-textiles-sub000/internal/services"
)

type stubCouponService struct {
	validateFn func(context.Context, services.ValidateCouponCommand) (services.CouponValidationResult, error)
}

func (s *stubCouponService) Validate(ctx context.Context, cmd services.ValidateCouponCommand) (services.CouponValidationResult, error) {
	if s.validateFn != nil {
		return s.validateFn(ctx, cmd)
	}
	return services.CouponValidationResult{}, errors.New("not implemented")
}

var _ services.CouponService = (*stubCouponService)(nil)

func couponRouter(coupons services.CouponService) chi.Router {
	handler := NewCouponHandlers(nil, coupons)
	router := chi.NewRouter()
	router.Route("/coupons", handler.Routes)
	return router
}

func TestCouponHandlersValidate(t *testing.T) {
	var captured services.ValidateCouponCommand
	coupons := &stubCouponService{
		validateFn: func(ctx context.Context, cmd services.ValidateCouponCommand) (services.CouponValidationResult, error) {
			captured = cmd
			return services.CouponValidationResult{
				Coupon: services.Coupon{
					Code:  "WELCOME10",
					Type:  domain.CouponTypePercent,
					Value: 10,
				},
				Discount: 450,
			}, nil
		},
	}
	router := couponRouter(coupons)

	req := httptest.NewRequest(http.MethodPost, "/coupons/validate", bytes.NewReader([]byte(`{"code":"WELCOME10","subtotal":4500}`)))
	req = authedRequest(req, "user-1")

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if captured.Code != "WELCOME10" || captured.Subtotal != 4500 {
		t.Fatalf("unexpected command: %#v", captured)
	}

	var resp couponValidationResponse
	decodeEnvelope(t, rr.Body.Bytes(), &resp)
	if resp.Discount != 450 || resp.Code != "WELCOME10" {
		t.Fatalf("unexpected response: %#v", resp)
	}
}

func TestCouponHandlersValidateErrorMapping(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		status   int
		codeWant string
	}{
		{"not found", services.ErrCouponNotFound, http.StatusNotFound, "coupon_not_found"},
		{"expired", services.ErrCouponExpired, http.StatusUnprocessableEntity, "coupon_expired"},
		{"exhausted", services.ErrCouponExhausted, http.StatusConflict, "coupon_exhausted"},
		{"min subtotal", services.ErrCouponMinSubtotal, http.StatusUnprocessableEntity, "coupon_min_subtotal"},
		{"invalid code", services.ErrCouponInvalidCode, http.StatusBadRequest, "coupon_invalid_code"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			coupons := &stubCouponService{
				validateFn: func(context.Context, services.ValidateCouponCommand) (services.CouponValidationResult, error) {
					return services.CouponValidationResult{}, tc.err
				},
			}
			router := couponRouter(coupons)

			req := httptest.NewRequest(http.MethodPost, "/coupons/validate", bytes.NewReader([]byte(`{"code":"X","subtotal":100}`)))
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

func TestCouponHandlersValidateRateLimited(t *testing.T) {
	coupons := &stubCouponService{
		validateFn: func(context.Context, services.ValidateCouponCommand) (services.CouponValidationResult, error) {
			return services.CouponValidationResult{Coupon: services.Coupon{Code: "FEST500"}}, nil
		},
	}
	router := couponRouter(coupons)

	var lastCode int
	for i := 0; i <= couponRateLimit; i++ {
		body := `{"code":"FEST500","subtotal":` + strconv.Itoa(1000+i) + `}`
		req := httptest.NewRequest(http.MethodPost, "/coupons/validate", bytes.NewReader([]byte(body)))
		req = authedRequest(req, "user-1")

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		lastCode = rr.Code
	}

	if lastCode != http.StatusTooManyRequests {
		t.Fatalf("expected final request to be rate limited, got %d", lastCode)
	}
}

func TestCouponHandlersValidateRequiresAuth(t *testing.T) {
	router := couponRouter(&stubCouponService{})

	req := httptest.NewRequest(http.MethodPost, "/coupons/validate", bytes.NewReader([]byte(`{"code":"X"}`)))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rr.Code)
	}
}
