package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"storefront-service/internal/models"
	"storefront-service/internal/notify"
	"storefront-service/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// NotFoundMessage is returned for both unknown orders and failed verification
const NotFoundMessage = "Order not found or verification failed"

// TrackingService serves the public order lookup
type TrackingService struct {
	orders      OrderRepository
	strictPhone bool
	logger      *zap.Logger
}

// NewTrackingService creates a tracking service. With strictPhone the phone
// must equal the stored number after +94 normalization instead of being a substring of it.
func NewTrackingService(orders OrderRepository, strictPhone bool) *TrackingService {
	return &TrackingService{
		orders:      orders,
		strictPhone: strictPhone,
		logger:      util.GetLogger(),
	}
}

// TrackRequest is the lookup input
type TrackRequest struct {
	OrderNumber string `json:"orderNumber" form:"orderNumber"`
	Email       string `json:"email" form:"email"`
	Phone       string `json:"phone" form:"phone"`
}

// TrackedItem is a line of a tracked order
type TrackedItem struct {
	ProductName   string          `json:"productName"`
	Quantity      int             `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unitPrice"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	SelectedSize  string          `json:"selectedSize,omitempty"`
	SelectedColor string          `json:"selectedColor,omitempty"`
}

// Shipment fields are null until the order ships
type Shipment struct {
	TrackingNumber    *string    `json:"trackingNumber"`
	Courier           *string    `json:"courier"`
	EstimatedDelivery *time.Time `json:"estimatedDelivery"`
	ActualDelivery    *time.Time `json:"actualDelivery"`
}

// TrackedOrder is the public view of an order. It has no address, contact or note fields.
type TrackedOrder struct {
	ID            int64           `json:"id"`
	OrderNumber   string          `json:"orderNumber"`
	CustomerName  string          `json:"customerName"`
	OrderStatus   string          `json:"orderStatus"`
	PaymentStatus string          `json:"paymentStatus"`
	OrderTotal    decimal.Decimal `json:"orderTotal"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
	OrderItems    []TrackedItem   `json:"orderItems"`
	Shipping      Shipment        `json:"shipping"`
}

// TrackResult is the lookup outcome. Not found is not an error.
type TrackResult struct {
	Found   bool
	Order   *TrackedOrder
	Message string
}

// Track looks an order up by number, gated on email or phone when either is given
func (s *TrackingService) Track(ctx context.Context, req TrackRequest) (*TrackResult, error) {
	ctx, span := util.StartSpan(ctx, "TrackingService.Track")
	defer span.End()

	orderNumber := strings.ToUpper(strings.TrimSpace(req.OrderNumber))
	if orderNumber == "" {
		return nil, invalid("orderNumber", "Order number is required")
	}

	order, err := s.orders.GetOrderByNumber(ctx, orderNumber)
	if err != nil {
		util.TrackingLookupsTotal.WithLabelValues("error").Inc()
		util.RecordError(span, err)
		return nil, fmt.Errorf("failed to look up order: %w", err)
	}

	if order == nil {
		util.TrackingLookupsTotal.WithLabelValues("not_found").Inc()
		return &TrackResult{Message: NotFoundMessage}, nil
	}

	if !s.verify(order, req.Email, req.Phone) {
		util.TrackingLookupsTotal.WithLabelValues("verification_failed").Inc()
		s.logger.Info("Order tracking verification failed", zap.String("order_number", orderNumber))
		return &TrackResult{Message: NotFoundMessage}, nil
	}

	util.TrackingLookupsTotal.WithLabelValues("found").Inc()
	return &TrackResult{Found: true, Order: redact(order)}, nil
}

// verify passes when neither field is given, or when either given field matches
func (s *TrackingService) verify(order *models.Order, email, phone string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	phone = strings.TrimSpace(phone)

	if email == "" && phone == "" {
		return true
	}

	if email != "" && strings.ToLower(order.CustomerEmail) == email {
		return true
	}

	if phone != "" {
		return s.phoneMatches(order.CustomerPhone, phone)
	}
	return false
}

func (s *TrackingService) phoneMatches(stored, supplied string) bool {
	if s.strictPhone {
		return notify.FormatSriLankanPhone(stored) == notify.FormatSriLankanPhone(supplied)
	}

	// stored numbers are +94 form, so a local trunk 0 would never be a substring
	needle := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "").Replace(supplied)
	if len(needle) > 1 && strings.HasPrefix(needle, "0") {
		needle = needle[1:]
	}
	return needle != "" && strings.Contains(stored, needle)
}

func redact(order *models.Order) *TrackedOrder {
	items := make([]TrackedItem, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, TrackedItem{
			ProductName:   item.ProductName,
			Quantity:      item.Quantity,
			UnitPrice:     item.UnitPrice,
			Subtotal:      item.Subtotal,
			SelectedSize:  item.SelectedSize,
			SelectedColor: item.SelectedColor,
		})
	}

	return &TrackedOrder{
		ID:            order.ID,
		OrderNumber:   order.OrderNumber,
		CustomerName:  order.CustomerName,
		OrderStatus:   order.OrderStatus,
		PaymentStatus: order.PaymentStatus,
		OrderTotal:    order.Total,
		CreatedAt:     order.CreatedAt,
		UpdatedAt:     order.UpdatedAt,
		OrderItems:    items,
		Shipping: Shipment{
			TrackingNumber:    optional(order.TrackingNumber),
			Courier:           optional(order.Courier),
			EstimatedDelivery: order.EstimatedDelivery,
			ActualDelivery:    order.ActualDelivery,
		},
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
