package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/api/iterator"

	domain "github.com/balamernstackdev/thulasi-textiles-sub000/internal/domain"
	pfirestore "github.com/balamernstackdev/thulasi-textiles-sub000/internal/platform/firestore"
	"github.com/balamernstackdev/thulasi-textiles-sub000/internal/repositories"
)

// CouponRepository resolves coupon documents. Usage counting happens inside
// OrderRepository.Place so redemption stays atomic with the order write.
type CouponRepository struct {
	provider *pfirestore.Provider
	coupons  *pfirestore.BaseRepository[couponDocument]
}

// NewCouponRepository constructs a Firestore-backed coupon repository.
func NewCouponRepository(provider *pfirestore.Provider) (*CouponRepository, error) {
	if provider == nil {
		return nil, errors.New("coupon repository requires firestore provider")
	}
	return &CouponRepository{
		provider: provider,
		coupons:  pfirestore.NewBaseRepository[couponDocument](provider, couponsCollection, nil, nil),
	}, nil
}

// FindByCode resolves a coupon by its uppercase code.
func (r *CouponRepository) FindByCode(ctx context.Context, code string) (domain.Coupon, error) {
	if r == nil || r.provider == nil {
		return domain.Coupon{}, errors.New("coupon repository not initialised")
	}
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return domain.Coupon{}, repositories.NewCouponError(repositories.CouponErrorNotFound, "coupon code is required", nil)
	}

	client, err := r.provider.Client(ctx)
	if err != nil {
		return domain.Coupon{}, wrapCouponError("coupons.findByCode", err)
	}

	iter := client.Collection(couponsCollection).Query.
		Where("code", "==", code).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	snap, err := iter.Next()
	if errors.Is(err, iterator.Done) {
		return domain.Coupon{}, repositories.NewCouponError(repositories.CouponErrorNotFound, fmt.Sprintf("coupon %s not found", code), nil)
	}
	if err != nil {
		return domain.Coupon{}, wrapCouponError("coupons.findByCode", err)
	}

	var doc couponDocument
	if err := snap.DataTo(&doc); err != nil {
		return domain.Coupon{}, fmt.Errorf("decode coupon %s: %w", snap.Ref.ID, err)
	}
	return doc.toDomain(snap.Ref.ID), nil
}

// FindByID loads one coupon document.
func (r *CouponRepository) FindByID(ctx context.Context, couponID string) (domain.Coupon, error) {
	if r == nil || r.coupons == nil {
		return domain.Coupon{}, errors.New("coupon repository not initialised")
	}
	couponID = strings.TrimSpace(couponID)
	if couponID == "" {
		return domain.Coupon{}, repositories.NewCouponError(repositories.CouponErrorNotFound, "coupon id is required", nil)
	}

	doc, err := r.coupons.Get(ctx, couponID)
	if err != nil {
		var repoErr *pfirestore.Error
		if errors.As(err, &repoErr) && repoErr.IsNotFound() {
			return domain.Coupon{}, repositories.NewCouponError(repositories.CouponErrorNotFound, fmt.Sprintf("coupon %s not found", couponID), err)
		}
		return domain.Coupon{}, wrapCouponError("coupons.find", err)
	}
	return doc.Data.toDomain(doc.ID), nil
}

// Helper structures ---------------------------------------------------------

type couponDocument struct {
	Code        string    `firestore:"code"`
	Type        string    `firestore:"type"`
	Value       int64     `firestore:"value"`
	MinSubtotal int64     `firestore:"minSubtotal"`
	MaxUses     int       `firestore:"maxUses"`
	UsedCount   int       `firestore:"usedCount"`
	StartsAt    time.Time `firestore:"startsAt"`
	ExpiresAt   time.Time `firestore:"expiresAt"`
	Active      bool      `firestore:"active"`
}

func (d couponDocument) toDomain(id string) domain.Coupon {
	return domain.Coupon{
		ID:          id,
		Code:        strings.ToUpper(strings.TrimSpace(d.Code)),
		Type:        domain.CouponType(d.Type),
		Value:       d.Value,
		MinSubtotal: d.MinSubtotal,
		MaxUses:     d.MaxUses,
		UsedCount:   d.UsedCount,
		StartsAt:    d.StartsAt,
		ExpiresAt:   d.ExpiresAt,
		Active:      d.Active,
	}
}

func wrapCouponError(op string, err error) error {
	if err == nil {
		return nil
	}
	var cpnErr *repositories.CouponError
	if errors.As(err, &cpnErr) {
		if cpnErr.Op == "" {
			cpnErr.Op = op
		}
		return cpnErr
	}
	return pfirestore.WrapError(op, err)
}

var _ repositories.CouponRepository = (*CouponRepository)(nil)
