package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	domain "github.com/balamernstackdev/thulasi-textiles-sub000/internal/domain"
)

var errBodyTooLarge = errors.New("request body too large")

// readLimitedBody drains the request body up to limit bytes and rejects
// anything larger.
func readLimitedBody(r *http.Request, limit int64) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	defer func() {
		_ = r.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > limit {
		return nil, errBodyTooLarge
	}
	return body, nil
}

func parsePageSize(raw string, fallback, max int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	size, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New("page_size must be an integer")
	}
	switch {
	case size <= 0:
		return fallback, nil
	case size > max:
		return max, nil
	default:
		return size, nil
	}
}

func parseTimeParam(raw string) (time.Time, error) {
	return time.Parse(time.RFC3339, strings.TrimSpace(raw))
}

func formatTime(ts time.Time) string {
	return ts.UTC().Format(time.RFC3339)
}

func formatTimePtr(ts *time.Time) string {
	if ts == nil {
		return ""
	}
	return formatTime(*ts)
}

type orderListResponse struct {
	Items         []orderSummaryPayload `json:"items"`
	NextPageToken string                `json:"next_page_token,omitempty"`
}

type orderSummaryPayload struct {
	ID          string `json:"id"`
	OrderNumber string `json:"order_number"`
	Status      string `json:"status"`
	ItemCount   int    `json:"item_count"`
	Total       int64  `json:"total"`
	CreatedAt   string `json:"created_at"`
}

type orderResponse struct {
	Order orderPayload `json:"order"`
}

type orderPayload struct {
	ID              string             `json:"id"`
	OrderNumber     string             `json:"order_number"`
	UserID          string             `json:"user_id"`
	Status          string             `json:"status"`
	PaymentStatus   string             `json:"payment_status,omitempty"`
	Items           []orderItemPayload `json:"items"`
	Subtotal        int64              `json:"subtotal"`
	Shipping        int64              `json:"shipping"`
	Discount        int64              `json:"discount"`
	Total           int64              `json:"total"`
	CouponCode      string             `json:"coupon_code,omitempty"`
	ShippingAddress *addressPayload    `json:"shipping_address,omitempty"`
	CourierName     string             `json:"courier_name,omitempty"`
	TrackingNumber  string             `json:"tracking_number,omitempty"`
	CreatedAt       string             `json:"created_at"`
	ShippedAt       string             `json:"shipped_at,omitempty"`
	DeliveredAt     string             `json:"delivered_at,omitempty"`
	CancelledAt     string             `json:"cancelled_at,omitempty"`
}

type orderItemPayload struct {
	VariantID string `json:"variant_id"`
	SKU       string `json:"sku"`
	Name      string `json:"name"`
	Size      string `json:"size,omitempty"`
	Colour    string `json:"colour,omitempty"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
	Total     int64  `json:"total"`
}

type addressPayload struct {
	Name    string `json:"name"`
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	Pincode string `json:"pincode"`
	Phone   string `json:"phone,omitempty"`
}

func buildOrderSummary(order domain.Order) orderSummaryPayload {
	return orderSummaryPayload{
		ID:          order.ID,
		OrderNumber: order.OrderNumber,
		Status:      string(order.Status),
		ItemCount:   len(order.Items),
		Total:       order.Total,
		CreatedAt:   formatTime(order.CreatedAt),
	}
}

func buildOrderPayload(order domain.Order) orderPayload {
	items := make([]orderItemPayload, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, orderItemPayload{
			VariantID: item.VariantID,
			SKU:       item.SKU,
			Name:      item.Name,
			Size:      item.Size,
			Colour:    item.Colour,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Total:     item.Total,
		})
	}

	payload := orderPayload{
		ID:             order.ID,
		OrderNumber:    order.OrderNumber,
		UserID:         order.UserID,
		Status:         string(order.Status),
		PaymentStatus:  string(order.PaymentStatus),
		Items:          items,
		Subtotal:       order.Subtotal,
		Shipping:       order.Shipping,
		Discount:       order.Discount,
		Total:          order.Total,
		CouponCode:     order.CouponCode,
		CourierName:    order.CourierName,
		TrackingNumber: order.TrackingNumber,
		CreatedAt:      formatTime(order.CreatedAt),
		ShippedAt:      formatTimePtr(order.ShippedAt),
		DeliveredAt:    formatTimePtr(order.DeliveredAt),
		CancelledAt:    formatTimePtr(order.CancelledAt),
	}
	if order.ShippingAddress != nil {
		payload.ShippingAddress = &addressPayload{
			Name:    order.ShippingAddress.Name,
			Street:  order.ShippingAddress.Street,
			City:    order.ShippingAddress.City,
			State:   order.ShippingAddress.State,
			Pincode: order.ShippingAddress.Pincode,
			Phone:   order.ShippingAddress.Phone,
		}
	}
	return payload
}

type variantPayload struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id,omitempty"`
	SKU       string `json:"sku"`
	Name      string `json:"name"`
	Size      string `json:"size,omitempty"`
	Colour    string `json:"colour,omitempty"`
	Material  string `json:"material,omitempty"`
	Price     int64  `json:"price"`
	Stock     int    `json:"stock"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

func buildVariantPayload(variant domain.ProductVariant) variantPayload {
	payload := variantPayload{
		ID:        variant.ID,
		ProductID: variant.ProductID,
		SKU:       variant.SKU,
		Name:      variant.Name,
		Size:      variant.Size,
		Colour:    variant.Colour,
		Material:  variant.Material,
		Price:     variant.Price,
		Stock:     variant.Stock,
	}
	if !variant.UpdatedAt.IsZero() {
		payload.UpdatedAt = formatTime(variant.UpdatedAt)
	}
	return payload
}

type notificationPayload struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	Type      string `json:"type"`
	Link      string `json:"link,omitempty"`
	Read      bool   `json:"read"`
	CreatedAt string `json:"created_at"`
}

func buildNotificationPayload(n domain.Notification) notificationPayload {
	return notificationPayload{
		ID:        n.ID,
		Title:     n.Title,
		Message:   n.Message,
		Type:      string(n.Type),
		Link:      n.Link,
		Read:      n.Read,
		CreatedAt: formatTime(n.CreatedAt),
	}
}

type loyaltyTransactionPayload struct {
	ID        string `json:"id"`
	OrderID   string `json:"order_id"`
	Points    int64  `json:"points"`
	Reason    string `json:"reason,omitempty"`
	CreatedAt string `json:"created_at"`
}

func buildLoyaltyTransactionPayload(tx domain.LoyaltyTransaction) loyaltyTransactionPayload {
	return loyaltyTransactionPayload{
		ID:        tx.ID,
		OrderID:   tx.OrderID,
		Points:    tx.Points,
		Reason:    tx.Reason,
		CreatedAt: formatTime(tx.CreatedAt),
	}
}
