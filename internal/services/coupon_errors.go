package services

import "errors"

var (
	// ErrCouponRepositoryMissing indicates the coupon repository dependency is absent.
	ErrCouponRepositoryMissing = errors.New("coupon service: repository is not configured")
	// ErrCouponInvalidCode signals the supplied coupon code is missing or malformed.
	ErrCouponInvalidCode = errors.New("coupon service: invalid coupon code")
	// ErrCouponNotFound indicates no coupon exists for the provided code.
	ErrCouponNotFound = errors.New("coupon service: coupon not found")
	// ErrCouponInactive indicates the coupon has been disabled.
	ErrCouponInactive = errors.New("coupon service: coupon inactive")
	// ErrCouponNotStarted indicates the coupon validity window has not opened yet.
	ErrCouponNotStarted = errors.New("coupon service: coupon not yet valid")
	// ErrCouponExpired indicates the coupon validity window has closed.
	ErrCouponExpired = errors.New("coupon service: coupon expired")
	// ErrCouponMinSubtotal indicates the order subtotal is below the coupon minimum.
	ErrCouponMinSubtotal = errors.New("coupon service: subtotal below coupon minimum")
	// ErrCouponExhausted indicates the coupon reached its usage limit.
	ErrCouponExhausted = errors.New("coupon service: coupon usage limit reached")
)
