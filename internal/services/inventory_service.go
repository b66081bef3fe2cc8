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
	// ErrInventoryInvalidInput signals the caller provided invalid arguments.
	ErrInventoryInvalidInput = errors.New("inventory: invalid input")
	// ErrInventoryVariantNotFound indicates the variant could not be located.
	ErrInventoryVariantNotFound = errors.New("inventory: variant not found")
)

// InventoryServiceDeps bundles the collaborators required to construct an inventory service.
type InventoryServiceDeps struct {
	Inventory        repositories.InventoryRepository
	DefaultThreshold int
	Clock            func() time.Time
	Logger           func(ctx context.Context, event string, fields map[string]any)
}

type inventoryService struct {
	repo      repositories.InventoryRepository
	threshold int
	clock     func() time.Time
	logger    func(context.Context, string, map[string]any)
}

// NewInventoryService wires dependencies into a concrete InventoryService implementation.
func NewInventoryService(deps InventoryServiceDeps) (InventoryService, error) {
	if deps.Inventory == nil {
		return nil, errors.New("inventory service: inventory repository is required")
	}

	threshold := deps.DefaultThreshold
	if threshold <= 0 {
		threshold = 5
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &inventoryService{
		repo:      deps.Inventory,
		threshold: threshold,
		clock: func() time.Time {
			return clock().UTC()
		},
		logger: logger,
	}, nil
}

func (s *inventoryService) GetVariant(ctx context.Context, variantID string) (ProductVariant, error) {
	variantID = strings.TrimSpace(variantID)
	if variantID == "" {
		return ProductVariant{}, fmt.Errorf("%w: variant id is required", ErrInventoryInvalidInput)
	}

	variant, err := s.repo.FindVariant(ctx, variantID)
	if err != nil {
		return ProductVariant{}, s.mapRepositoryError(err)
	}
	return variant, nil
}

func (s *inventoryService) SetStock(ctx context.Context, cmd SetStockCommand) (ProductVariant, error) {
	variantID := strings.TrimSpace(cmd.VariantID)
	if variantID == "" {
		return ProductVariant{}, fmt.Errorf("%w: variant id is required", ErrInventoryInvalidInput)
	}
	if cmd.Stock < 0 {
		return ProductVariant{}, fmt.Errorf("%w: stock cannot be negative", ErrInventoryInvalidInput)
	}

	variant, err := s.repo.SetStock(ctx, variantID, cmd.Stock, s.now())
	if err != nil {
		return ProductVariant{}, s.mapRepositoryError(err)
	}

	s.logger(ctx, "inventory.stock.set", map[string]any{
		"variant": variant.ID,
		"stock":   variant.Stock,
		"actor":   cmd.ActorID,
	})

	return variant, nil
}

func (s *inventoryService) ListLowStock(ctx context.Context, filter LowStockFilter) (domain.CursorPage[ProductVariant], error) {
	threshold := filter.Threshold
	if threshold <= 0 {
		threshold = s.threshold
	}

	page, err := s.repo.ListLowStock(ctx, repositories.LowStockQuery{
		Threshold:  threshold,
		Pagination: filter.Pagination,
	})
	if err != nil {
		return domain.CursorPage[ProductVariant]{}, s.mapRepositoryError(err)
	}
	return page, nil
}

func (s *inventoryService) now() time.Time {
	return s.clock()
}

func (s *inventoryService) mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}

	var invErr *repositories.InventoryError
	if errors.As(err, &invErr) {
		switch invErr.Code {
		case repositories.InventoryErrorVariantNotFound:
			return fmt.Errorf("%w: %v", ErrInventoryVariantNotFound, err)
		case repositories.InventoryErrorInvalidInput:
			return fmt.Errorf("%w: %v", ErrInventoryInvalidInput, err)
		}
	}

	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) && repoErr.IsNotFound() {
		return fmt.Errorf("%w: %v", ErrInventoryVariantNotFound, err)
	}

	return err
}
