package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/balamernstackdev/thulasi-textiles-sub000/internal/domain"
	"github.com/balamernstackdev/thulasi-textiles-sub000/internal/repositories"
)

var (
	// ErrLoyaltyInvalidInput signals the caller provided invalid data.
	ErrLoyaltyInvalidInput = errors.New("loyalty: invalid input")
)

// LoyaltyServiceDeps bundles collaborators for the loyalty reward engine.
type LoyaltyServiceDeps struct {
	Loyalty repositories.LoyaltyRepository
	// RupeesPerPoint converts order totals to points: one point per this many
	// rupees spent. Zero applies the standard rate of 100.
	RupeesPerPoint int64
	Clock          func() time.Time
	Logger         func(ctx context.Context, event string, fields map[string]any)
}

type loyaltyService struct {
	repo   repositories.LoyaltyRepository
	rate   int64
	clock  func() time.Time
	logger func(context.Context, string, map[string]any)
}

// NewLoyaltyService wires dependencies into a concrete LoyaltyService implementation.
func NewLoyaltyService(deps LoyaltyServiceDeps) (LoyaltyService, error) {
	if deps.Loyalty == nil {
		return nil, errors.New("loyalty service: loyalty repository is required")
	}

	rate := deps.RupeesPerPoint
	if rate <= 0 {
		rate = 100
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &loyaltyService{
		repo: deps.Loyalty,
		rate: rate,
		clock: func() time.Time {
			return clock().UTC()
		},
		logger: logger,
	}, nil
}

// GrantForDelivery awards points for a delivered order. The repository keys
// grants by order, so repeat calls for the same order report Granted false
// without changing the balance.
func (s *loyaltyService) GrantForDelivery(ctx context.Context, order Order) (LoyaltyGrantOutcome, error) {
	if strings.TrimSpace(order.ID) == "" || strings.TrimSpace(order.UserID) == "" {
		return LoyaltyGrantOutcome{}, fmt.Errorf("%w: order id and user id are required", ErrLoyaltyInvalidInput)
	}

	points := order.Total / s.rate
	if points <= 0 {
		return LoyaltyGrantOutcome{}, nil
	}

	result, err := s.repo.Grant(ctx, repositories.LoyaltyGrant{
		UserID:  order.UserID,
		OrderID: order.ID,
		Points:  points,
		Reason:  fmt.Sprintf("Order %s delivered", order.OrderNumber),
		Now:     s.clock(),
	})
	if err != nil {
		return LoyaltyGrantOutcome{}, err
	}

	if result.Granted {
		s.logger(ctx, "loyalty.granted", map[string]any{
			"user":    order.UserID,
			"order":   order.ID,
			"points":  points,
			"balance": result.Balance,
		})
	}

	return LoyaltyGrantOutcome{
		Granted: result.Granted,
		Points:  points,
		Balance: result.Balance,
	}, nil
}

func (s *loyaltyService) ListTransactions(ctx context.Context, userID string, pager Pagination) (domain.CursorPage[LoyaltyTransaction], error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.CursorPage[LoyaltyTransaction]{}, fmt.Errorf("%w: user id is required", ErrLoyaltyInvalidInput)
	}
	return s.repo.ListByUser(ctx, userID, pager)
}
