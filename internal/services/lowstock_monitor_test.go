package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	domain "github.com/balamernstackdev/thulasi-textiles-sub000/internal/domain"
)

func newLowStockMonitor(t *testing.T, deps LowStockMonitorDeps) LowStockMonitor {
	t.Helper()
	monitor, err := NewLowStockMonitor(deps)
	if err != nil {
		t.Fatalf("NewLowStockMonitor: %v", err)
	}
	return monitor
}

func lowStockInventory(stock int) *stubInventoryRepo {
	return &stubInventoryRepo{
		findFn: func(ctx context.Context, variantID string) (domain.ProductVariant, error) {
			return domain.ProductVariant{
				ID: variantID, SKU: "KAN-SIL-001", Name: "Kanchipuram Silk Saree", Stock: stock,
			}, nil
		},
	}
}

func TestLowStockMonitorAlertsAtThreshold(t *testing.T) {
	notifications := &stubNotificationService{}
	mailer := &stubMailer{}
	var events []string
	monitor := newLowStockMonitor(t, LowStockMonitorDeps{
		Inventory:     lowStockInventory(5),
		Notifications: notifications,
		Mailer:        mailer,
		SupportEmail:  "support@thulasitextiles.in",
		Logger: func(ctx context.Context, event string, fields map[string]any) {
			events = append(events, event)
		},
	})

	if err := monitor.CheckVariant(context.Background(), "var_silk"); err != nil {
		t.Fatalf("CheckVariant: %v", err)
	}

	if len(events) != 1 || events[0] != "stock.low" {
		t.Fatalf("expected stock.low event, got %v", events)
	}
	pushed := notifications.commands()
	if len(pushed) != 1 {
		t.Fatalf("expected one admin notification, got %d", len(pushed))
	}
	if !pushed[0].ForAdmins || pushed[0].Type != domain.NotificationTypeStock {
		t.Fatalf("unexpected notification: %+v", pushed[0])
	}
	if pushed[0].Link != "/admin/inventory/var_silk" {
		t.Fatalf("unexpected link %s", pushed[0].Link)
	}
	if len(mailer.sent) != 1 || mailer.sent[0].Kind != "low_stock_alert" {
		t.Fatalf("expected low stock email, got %+v", mailer.sent)
	}
	if mailer.sent[0].To != "support@thulasitextiles.in" {
		t.Fatalf("unexpected recipient %s", mailer.sent[0].To)
	}
	if !strings.Contains(mailer.sent[0].Subject, "KAN-SIL-001") {
		t.Fatalf("expected SKU in subject, got %s", mailer.sent[0].Subject)
	}
}

func TestLowStockMonitorSilentAboveThreshold(t *testing.T) {
	notifications := &stubNotificationService{}
	mailer := &stubMailer{}
	monitor := newLowStockMonitor(t, LowStockMonitorDeps{
		Inventory:     lowStockInventory(6),
		Notifications: notifications,
		Mailer:        mailer,
		SupportEmail:  "support@thulasitextiles.in",
	})

	if err := monitor.CheckVariant(context.Background(), "var_silk"); err != nil {
		t.Fatalf("CheckVariant: %v", err)
	}
	if len(notifications.commands()) != 0 || len(mailer.sent) != 0 {
		t.Fatalf("expected no alerts above threshold")
	}
}

func TestLowStockMonitorCustomThreshold(t *testing.T) {
	notifications := &stubNotificationService{}
	monitor := newLowStockMonitor(t, LowStockMonitorDeps{
		Inventory:     lowStockInventory(9),
		Notifications: notifications,
		Threshold:     10,
	})

	if err := monitor.CheckVariant(context.Background(), "var_silk"); err != nil {
		t.Fatalf("CheckVariant: %v", err)
	}
	if len(notifications.commands()) != 1 {
		t.Fatalf("expected alert below custom threshold")
	}
}

func TestLowStockMonitorAlertsRepeatedly(t *testing.T) {
	notifications := &stubNotificationService{}
	monitor := newLowStockMonitor(t, LowStockMonitorDeps{
		Inventory:     lowStockInventory(2),
		Notifications: notifications,
	})

	for i := 0; i < 3; i++ {
		if err := monitor.CheckVariant(context.Background(), "var_silk"); err != nil {
			t.Fatalf("CheckVariant: %v", err)
		}
	}
	if got := len(notifications.commands()); got != 3 {
		t.Fatalf("expected an alert per check, got %d", got)
	}
}

func TestLowStockMonitorSwallowsAlertFailures(t *testing.T) {
	notifications := &stubNotificationService{
		pushFn: func(ctx context.Context, cmd PushNotificationCommand) (Notification, error) {
			return Notification{}, errors.New("notification store down")
		},
	}
	var events []string
	monitor := newLowStockMonitor(t, LowStockMonitorDeps{
		Inventory:     lowStockInventory(1),
		Notifications: notifications,
		Logger: func(ctx context.Context, event string, fields map[string]any) {
			events = append(events, event)
		},
	})

	if err := monitor.CheckVariant(context.Background(), "var_silk"); err != nil {
		t.Fatalf("expected failures to be swallowed, got %v", err)
	}

	var logged bool
	for _, event := range events {
		if event == "stock.low.notification.failed" {
			logged = true
		}
	}
	if !logged {
		t.Fatalf("expected failure logged, events: %v", events)
	}
}
