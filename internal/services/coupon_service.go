package services

import (
	"context"
	"strings"
	"time"

	"github.com/balamernstackdev/thulasi-textiles-sub000/internal/repositories"
)

// CouponServiceDeps bundles dependencies required to construct a CouponService implementation.
type CouponServiceDeps struct {
	Coupons repositories.CouponRepository
	Clock   func() time.Time
}

type couponService struct {
	repo  repositories.CouponRepository
	clock func() time.Time
}

// NewCouponService wires a CouponService backed by the provided repository.
func NewCouponService(deps CouponServiceDeps) (CouponService, error) {
	if deps.Coupons == nil {
		return nil, ErrCouponRepositoryMissing
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &couponService{
		repo:  deps.Coupons,
		clock: func() time.Time { return clock().UTC() },
	}, nil
}

// Validate checks the code's rules against the supplied subtotal. The usage
// limit is checked here for early feedback; the authoritative check happens
// inside the order placement transaction.
func (s *couponService) Validate(ctx context.Context, cmd ValidateCouponCommand) (CouponValidationResult, error) {
	if s == nil || s.repo == nil {
		return CouponValidationResult{}, ErrCouponRepositoryMissing
	}

	normalized := strings.ToUpper(strings.TrimSpace(cmd.Code))
	if normalized == "" {
		return CouponValidationResult{}, ErrCouponInvalidCode
	}
	if cmd.Subtotal < 0 {
		return CouponValidationResult{}, ErrCouponInvalidCode
	}

	coupon, err := s.repo.FindByCode(ctx, normalized)
	if err != nil {
		if repoErr, ok := err.(repositories.RepositoryError); ok && repoErr.IsNotFound() {
			return CouponValidationResult{}, ErrCouponNotFound
		}
		return CouponValidationResult{}, err
	}

	if !coupon.Active {
		return CouponValidationResult{}, ErrCouponInactive
	}

	now := s.clock()
	if !coupon.StartsAt.IsZero() && now.Before(coupon.StartsAt) {
		return CouponValidationResult{}, ErrCouponNotStarted
	}
	if !coupon.ExpiresAt.IsZero() && now.After(coupon.ExpiresAt) {
		return CouponValidationResult{}, ErrCouponExpired
	}
	if coupon.MaxUses > 0 && coupon.UsedCount >= coupon.MaxUses {
		return CouponValidationResult{}, ErrCouponExhausted
	}
	if coupon.MinSubtotal > 0 && cmd.Subtotal < coupon.MinSubtotal {
		return CouponValidationResult{}, ErrCouponMinSubtotal
	}

	return CouponValidationResult{
		Coupon:   coupon,
		Discount: coupon.DiscountFor(cmd.Subtotal),
	}, nil
}
