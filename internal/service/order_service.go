package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"storefront-service/internal/cart"
	"storefront-service/internal/models"
	"storefront-service/internal/notify"
	"storefront-service/internal/pricing"
	"storefront-service/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// OrderService handles order business logic
type OrderService struct {
	orders         OrderRepository
	customers      *CustomerService
	publisher      EventPublisher
	idempotency    IdempotencyStore
	policy         pricing.Policy
	whatsAppNumber string
	idempotencyTTL time.Duration
	now            func() time.Time
	logger         *zap.Logger
}

// OrderServiceConfig holds the order settings taken from configuration
type OrderServiceConfig struct {
	Policy         pricing.Policy
	WhatsAppNumber string
	IdempotencyTTL time.Duration
}

// NewOrderService creates a new order service. idempotency may be nil.
func NewOrderService(
	orders OrderRepository,
	customers *CustomerService,
	publisher EventPublisher,
	idempotency IdempotencyStore,
	cfg OrderServiceConfig,
) *OrderService {
	return &OrderService{
		orders:         orders,
		customers:      customers,
		publisher:      publisher,
		idempotency:    idempotency,
		policy:         cfg.Policy,
		whatsAppNumber: cfg.WhatsAppNumber,
		idempotencyTTL: cfg.IdempotencyTTL,
		now:            time.Now,
		logger:         util.GetLogger(),
	}
}

// OrderCustomerInput is the checkout contact form
type OrderCustomerInput struct {
	FullName            string       `json:"fullName"`
	Email               string       `json:"email"`
	Phone               string       `json:"phone"`
	SecondaryPhone      string       `json:"secondaryPhone,omitempty"`
	Address             AddressInput `json:"address"`
	SpecialInstructions string       `json:"specialInstructions,omitempty"`
	MarketingOptIn      *bool        `json:"marketingOptIn,omitempty"`
}

// OrderPricingInput is the pricing the client showed at checkout
type OrderPricingInput struct {
	Subtotal     decimal.Decimal `json:"subtotal"`
	Shipping     decimal.Decimal `json:"shipping"`
	Tax          decimal.Decimal `json:"tax"`
	Total        decimal.Decimal `json:"total"`
	ExchangeRate decimal.Decimal `json:"exchangeRate"`
	Currency     string          `json:"currency"`
}

// CreateOrderRequest represents a request to create an order
type CreateOrderRequest struct {
	OrderID             string             `json:"orderId,omitempty"`
	Customer            OrderCustomerInput `json:"customer"`
	Items               []cart.LineItem    `json:"items"`
	Pricing             OrderPricingInput  `json:"pricing"`
	SpecialInstructions string             `json:"specialInstructions,omitempty"`
	OrderSource         string             `json:"orderSource,omitempty"`
	IdempotencyKey      string             `json:"idempotencyKey,omitempty"`
}

// CreateOrderResponse represents the response after creating an order
type CreateOrderResponse struct {
	OrderNumber string          `json:"orderNumber"`
	ID          int64           `json:"id"`
	Status      string          `json:"status"`
	Total       decimal.Decimal `json:"total"`
	Currency    string          `json:"currency"`
	CreatedAt   time.Time       `json:"createdAt"`
	WhatsAppURL string          `json:"whatsappUrl"`
	Replayed    bool            `json:"-"`
}

// CreateOrder upserts the customer, then persists the order with its items.
// Analytics and events after the write are best effort.
func (s *OrderService) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*CreateOrderResponse, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.CreateOrder")
	defer span.End()

	start := time.Now()
	defer func() {
		util.OrderCreateLatency.Observe(time.Since(start).Seconds())
	}()

	orderNumber, err := s.validateOrderRequest(req)
	if err != nil {
		util.OrdersFailedTotal.WithLabelValues("validation").Inc()
		return nil, err
	}

	claimed, existing, err := s.claimIdempotencyKey(ctx, req.IdempotencyKey, orderNumber)
	if err != nil {
		util.OrdersFailedTotal.WithLabelValues("idempotency").Inc()
		return nil, err
	}
	if existing != nil {
		util.OrdersReplayedTotal.Inc()
		s.logger.Info("Duplicate order request detected",
			zap.String("idempotency_key", req.IdempotencyKey),
			zap.String("order_number", existing.OrderNumber))
		resp := s.buildResponse(existing, s.handoffLink(existing))
		resp.Replayed = true
		return resp, nil
	}
	written := false
	if claimed {
		// freed again if no order gets written under it
		defer func() {
			if !written {
				s.releaseIdempotencyKey(ctx, req.IdempotencyKey)
			}
		}()
	}

	// Step 1: customer must exist before any order is written
	upserted, err := s.customers.Upsert(ctx, CustomerInput{
		Name:           req.Customer.FullName,
		Email:          req.Customer.Email,
		Phone:          req.Customer.Phone,
		SecondaryPhone: req.Customer.SecondaryPhone,
		Address:        &req.Customer.Address,
		MarketingOptIn: req.Customer.MarketingOptIn,
	})
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			util.OrdersFailedTotal.WithLabelValues("validation").Inc()
		} else {
			util.OrdersFailedTotal.WithLabelValues("customer").Inc()
		}
		util.RecordError(span, err)
		return nil, err
	}
	customer := upserted.Customer

	// Step 2
	items := s.mapLineItems(req.Items)
	s.checkPricingDrift(req, orderNumber)

	instructions := strings.TrimSpace(req.SpecialInstructions)
	if instructions == "" {
		instructions = strings.TrimSpace(req.Customer.SpecialInstructions)
	}

	source := strings.TrimSpace(req.OrderSource)
	if source == "" {
		source = models.OrderSourceWebsite
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Pricing.Currency))
	if currency == "" {
		currency = models.CurrencyLKR
	}

	// Step 3
	order := &models.Order{
		OrderNumber:            orderNumber,
		CustomerID:             customer.ID,
		CustomerName:           strings.TrimSpace(req.Customer.FullName),
		CustomerEmail:          customer.Email,
		CustomerPhone:          notify.FormatSriLankanPhone(req.Customer.Phone),
		CustomerSecondaryPhone: notify.FormatSriLankanPhone(req.Customer.SecondaryPhone),
		DeliveryAddress:        req.Customer.Address.Format(),
		SpecialInstructions:    instructions,
		Subtotal:               req.Pricing.Subtotal,
		ShippingCost:           req.Pricing.Shipping,
		Discount:               decimal.Zero,
		Total:                  req.Pricing.Total,
		Currency:               currency,
		ExchangeRate:           s.effectiveRate(req.Pricing.ExchangeRate),
		OrderStatus:            models.OrderStatusPending,
		PaymentStatus:          models.PaymentStatusPending,
		PaymentMethod:          models.PaymentMethodCOD,
		OrderSource:            source,
		MessageSent:            false,
		MessageTemplate:        models.TemplateOrderConfirmation,
		Items:                  items,
	}

	if err := s.orders.CreateOrder(ctx, order); err != nil {
		util.OrdersFailedTotal.WithLabelValues("db_error").Inc()
		util.RecordError(span, err)
		s.logger.Error("Failed to create order",
			zap.String("order_number", orderNumber),
			zap.Error(err))
		return nil, &OrderPersistenceError{Err: err}
	}
	written = true

	util.OrdersCreatedTotal.Inc()
	s.logger.Info("Order created",
		zap.Int64("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.Int64("customer_id", customer.ID))

	// Step 4
	s.recordProductStats(ctx, order.Items)

	message := s.HandoffMessage(order)
	link := notify.DeepLink(s.whatsAppNumber, message)
	s.publishOrderEvents(ctx, order, message, link)

	return s.buildResponse(order, link), nil
}

func (s *OrderService) validateOrderRequest(req *CreateOrderRequest) (string, error) {
	c := req.Customer
	if strings.TrimSpace(c.FullName) == "" {
		return "", invalid("customer.fullName", "is required")
	}
	if strings.TrimSpace(c.Email) == "" {
		return "", invalid("customer.email", "is required")
	}
	if strings.TrimSpace(c.Phone) == "" {
		return "", invalid("customer.phone", "is required")
	}
	if strings.TrimSpace(c.Address.Street) == "" || strings.TrimSpace(c.Address.City) == "" {
		return "", invalid("customer.address", "street and city are required")
	}

	if len(req.Items) == 0 {
		return "", invalid("items", "at least one item is required")
	}
	for _, item := range req.Items {
		if err := item.Validate(); err != nil {
			return "", invalid("items", err.Error())
		}
	}

	p := req.Pricing
	if !p.Total.IsPositive() {
		return "", invalid("pricing.total", "must be positive")
	}
	if p.Subtotal.IsNegative() || p.Shipping.IsNegative() || p.Tax.IsNegative() {
		return "", invalid("pricing", "amounts must not be negative")
	}
	switch strings.ToUpper(strings.TrimSpace(p.Currency)) {
	case "", pricing.DisplayCurrency, pricing.BaseCurrency:
	default:
		return "", invalid("pricing.currency", "unsupported currency")
	}

	if strings.TrimSpace(req.OrderID) == "" {
		return notify.GenerateOrderNumber(s.now()), nil
	}
	orderNumber, ok := notify.NormalizeOrderNumber(req.OrderID)
	if !ok {
		return "", invalid("orderId", "must be 4-32 letters, digits or dashes")
	}
	return orderNumber, nil
}

// mapLineItems turns cart lines into order lines. Subtotal is always computed.
func (s *OrderService) mapLineItems(lines []cart.LineItem) []models.OrderItem {
	items := make([]models.OrderItem, 0, len(lines))
	for _, line := range lines {
		item := models.OrderItem{
			ProductID:     line.Product.ID,
			ProductName:   line.Product.Title,
			ProductSKU:    line.Product.SKU,
			UnitPrice:     line.UnitPrice(),
			Quantity:      line.Quantity,
			SelectedSize:  line.Size,
			SelectedColor: line.Color,
			Subtotal:      line.LineTotal(),
		}

		if item.ProductID == "" || item.ProductSKU == "" || item.ProductName == "" {
			s.logger.Warn("Cart line missing product identity, using placeholders",
				zap.String("product_id", item.ProductID),
				zap.String("product_sku", item.ProductSKU))
		}
		if item.ProductID == "" {
			item.ProductID = models.UnknownProductID
		}
		if item.ProductName == "" {
			item.ProductName = models.UnknownProductName
		}
		if item.ProductSKU == "" {
			item.ProductSKU = models.UnknownProductSKU
		}

		items = append(items, item)
	}
	return items
}

// checkPricingDrift re-quotes the cart and logs a mismatch. The client total
// is still the one stored.
func (s *OrderService) checkPricingDrift(req *CreateOrderRequest, orderNumber string) {
	if strings.EqualFold(req.Pricing.Currency, pricing.BaseCurrency) {
		return
	}

	base := cart.Cart{Items: req.Items}.Subtotal()
	quote := s.policy.Quote(base, s.effectiveRate(req.Pricing.ExchangeRate))

	if !quote.Total.Equal(req.Pricing.Total) {
		util.PricingDriftTotal.Inc()
		s.logger.Warn("Client pricing differs from server quote",
			zap.String("order_number", orderNumber),
			zap.String("client_total", req.Pricing.Total.String()),
			zap.String("server_total", quote.Total.String()))
	}
}

func (s *OrderService) effectiveRate(rate decimal.Decimal) decimal.Decimal {
	if rate.IsPositive() {
		return rate
	}
	return s.policy.FallbackRate
}

// claimIdempotencyKey binds key to orderNumber before anything is written, so
// concurrent requests with the same key cannot both create an order. When the
// key is already bound it returns the order created under it, or
// ErrOrderInProgress while that order is still being written. A cache outage
// degrades to no idempotency rather than failing the checkout.
func (s *OrderService) claimIdempotencyKey(ctx context.Context, key, orderNumber string) (bool, *models.Order, error) {
	if key == "" || s.idempotency == nil {
		return false, nil, nil
	}

	claimed, err := s.idempotency.SetIdempotencyKey(ctx, key, orderNumber, s.idempotencyTTL)
	if err != nil {
		s.logger.Warn("Failed to claim idempotency key", zap.String("idempotency_key", key), zap.Error(err))
		return false, nil, nil
	}
	if claimed {
		return true, nil, nil
	}

	bound, err := s.idempotency.GetIdempotencyKey(ctx, key)
	if err != nil {
		s.logger.Warn("Idempotency lookup failed", zap.String("idempotency_key", key), zap.Error(err))
		return false, nil, nil
	}
	if bound == "" {
		// expired between the two calls
		return false, nil, nil
	}

	order, err := s.orders.GetOrderByNumber(ctx, bound)
	if err != nil {
		return false, nil, &OrderPersistenceError{Err: err}
	}
	if order == nil {
		return false, nil, ErrOrderInProgress
	}
	return false, order, nil
}

func (s *OrderService) releaseIdempotencyKey(ctx context.Context, key string) {
	if err := s.idempotency.DeleteIdempotencyKey(ctx, key); err != nil {
		s.logger.Warn("Failed to release idempotency key", zap.String("idempotency_key", key), zap.Error(err))
	}
}

func (s *OrderService) recordProductStats(ctx context.Context, items []models.OrderItem) {
	for _, item := range items {
		if item.ProductID == models.UnknownProductID {
			continue
		}
		if err := s.orders.IncrementProductOrderCount(ctx, item.ProductID, item.Quantity); err != nil {
			util.AnalyticsFailuresTotal.Inc()
			s.logger.Warn("Failed to update product order count",
				zap.String("product_id", item.ProductID),
				zap.Error(err))
		}
	}
}

// HandoffMessage renders the WhatsApp confirmation for a stored order
func (s *OrderService) HandoffMessage(order *models.Order) string {
	lines := make([]notify.MessageLine, 0, len(order.Items))
	for _, item := range order.Items {
		lines = append(lines, notify.MessageLine{
			Title:       item.ProductName,
			VariantName: variantLabel(item.SelectedSize, item.SelectedColor),
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
		})
	}

	tax := order.Total.Sub(order.Subtotal).Sub(order.ShippingCost).Add(order.Discount)
	if tax.IsNegative() {
		tax = decimal.Zero
	}

	return notify.FormatOrderMessage(notify.OrderSummary{
		OrderNumber: order.OrderNumber,
		Customer: notify.CustomerDetails{
			FullName:            order.CustomerName,
			Email:               order.CustomerEmail,
			Phone:               order.CustomerPhone,
			Address:             order.DeliveryAddress,
			SpecialInstructions: order.SpecialInstructions,
		},
		Lines: lines,
		Pricing: pricing.Quote{
			Subtotal:     order.Subtotal,
			Shipping:     order.ShippingCost,
			Tax:          tax,
			Total:        order.Total,
			ExchangeRate: s.effectiveRate(order.ExchangeRate),
			Currency:     order.Currency,
		},
	}, order.CreatedAt)
}

func variantLabel(size, color string) string {
	parts := make([]string, 0, 2)
	for _, p := range []string{size, color} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " / ")
}

func (s *OrderService) handoffLink(order *models.Order) string {
	return notify.DeepLink(s.whatsAppNumber, s.HandoffMessage(order))
}

func (s *OrderService) buildResponse(order *models.Order, whatsAppURL string) *CreateOrderResponse {
	return &CreateOrderResponse{
		OrderNumber: order.OrderNumber,
		ID:          order.ID,
		Status:      order.OrderStatus,
		Total:       order.Total,
		Currency:    order.Currency,
		CreatedAt:   order.CreatedAt,
		WhatsAppURL: whatsAppURL,
	}
}

func (s *OrderService) publishOrderEvents(ctx context.Context, order *models.Order, message, deepLink string) {
	if s.publisher == nil {
		return
	}

	itemData := make([]models.OrderItemData, 0, len(order.Items))
	for _, item := range order.Items {
		itemData = append(itemData, models.OrderItemData{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}

	placed := &models.OrderPlacedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderPlaced,
			Timestamp: time.Now(),
		},
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		CustomerID:  order.CustomerID,
		Total:       order.Total,
		Currency:    order.Currency,
		OrderSource: order.OrderSource,
		Items:       itemData,
	}

	if err := s.publisher.PublishOrderPlaced(ctx, placed); err != nil {
		s.logger.Error("Failed to publish OrderPlaced event", zap.Error(err))
	}

	intent := &models.NotificationIntentEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeNotificationIntent,
			Timestamp: time.Now(),
		},
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		Channel:     models.ChannelWhatsApp,
		Template:    order.MessageTemplate,
		Recipient:   s.whatsAppNumber,
		DeepLink:    deepLink,
		Message:     message,
	}

	if err := s.publisher.PublishNotificationIntent(ctx, intent); err != nil {
		s.logger.Error("Failed to publish NotificationIntent event", zap.Error(err))
	}
}
