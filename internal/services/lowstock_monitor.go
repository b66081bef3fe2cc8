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

// LowStockMonitorDeps bundles collaborators for the low stock monitor.
type LowStockMonitorDeps struct {
	Inventory     repositories.InventoryRepository
	Notifications NotificationService
	Mailer        Mailer
	Threshold     int
	SupportEmail  string
	Clock         func() time.Time
	Logger        func(ctx context.Context, event string, fields map[string]any)
}

type lowStockMonitor struct {
	inventory     repositories.InventoryRepository
	notifications NotificationService
	mailer        Mailer
	threshold     int
	supportEmail  string
	clock         func() time.Time
	logger        func(context.Context, string, map[string]any)
}

// NewLowStockMonitor wires dependencies into a concrete LowStockMonitor implementation.
func NewLowStockMonitor(deps LowStockMonitorDeps) (LowStockMonitor, error) {
	if deps.Inventory == nil {
		return nil, errors.New("low stock monitor: inventory repository is required")
	}

	threshold := deps.Threshold
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

	return &lowStockMonitor{
		inventory:     deps.Inventory,
		notifications: deps.Notifications,
		mailer:        deps.Mailer,
		threshold:     threshold,
		supportEmail:  strings.TrimSpace(deps.SupportEmail),
		clock:         func() time.Time { return clock().UTC() },
		logger:        logger,
	}, nil
}

// CheckVariant reads the variant's current stock and raises an alert when it
// sits at or below the threshold. Every qualifying check alerts; there is no
// deduplication window.
func (m *lowStockMonitor) CheckVariant(ctx context.Context, variantID string) error {
	variantID = strings.TrimSpace(variantID)
	if variantID == "" {
		return errors.New("low stock monitor: variant id is required")
	}

	variant, err := m.inventory.FindVariant(ctx, variantID)
	if err != nil {
		return err
	}

	if variant.Stock > m.threshold {
		return nil
	}

	m.logger(ctx, "stock.low", map[string]any{
		"variant":   variant.ID,
		"sku":       variant.SKU,
		"stock":     variant.Stock,
		"threshold": m.threshold,
	})

	if m.notifications != nil {
		_, err := m.notifications.Push(ctx, PushNotificationCommand{
			ForAdmins: true,
			Title:     "Low Stock Alert",
			Message:   fmt.Sprintf("%s (%s) is down to %d units.", variant.Name, variant.SKU, variant.Stock),
			Type:      domain.NotificationTypeStock,
			Link:      "/admin/inventory/" + variant.ID,
		})
		if err != nil {
			m.logger(ctx, "stock.low.notification.failed", map[string]any{
				"variant": variant.ID,
				"error":   err.Error(),
			})
		}
	}

	if m.mailer != nil && m.supportEmail != "" {
		err := m.mailer.Send(ctx, EmailMessage{
			To:      m.supportEmail,
			Subject: fmt.Sprintf("Low Stock: %s (%s)", variant.Name, variant.SKU),
			HTML: fmt.Sprintf("<p>Variant <strong>%s</strong> (%s) has %d units left, at or below the threshold of %d.</p>",
				variant.Name, variant.SKU, variant.Stock, m.threshold),
			Kind: "low_stock_alert",
		})
		if err != nil {
			m.logger(ctx, "stock.low.email.failed", map[string]any{
				"variant": variant.ID,
				"error":   err.Error(),
			})
		}
	}

	return nil
}
