package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event types
const (
	EventTypeOrderPlaced        = "ORDER_PLACED"
	EventTypeCustomerUpserted   = "CUSTOMER_UPSERTED"
	EventTypeNotificationIntent = "NOTIFICATION_INTENT"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderPlacedEvent published when an order is persisted
type OrderPlacedEvent struct {
	BaseEvent
	OrderID     int64           `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	CustomerID  int64           `json:"customer_id"`
	Total       decimal.Decimal `json:"total"`
	Currency    string          `json:"currency"`
	OrderSource string          `json:"order_source"`
	Items       []OrderItemData `json:"items"`
}

// CustomerUpsertedEvent published after a customer create or merge-update
type CustomerUpsertedEvent struct {
	BaseEvent
	CustomerID int64  `json:"customer_id"`
	Email      string `json:"email"`
	Created    bool   `json:"created"`
}

// NotificationIntentEvent is the outbound hand-off of an order confirmation.
// There is no acknowledgement for it.
type NotificationIntentEvent struct {
	BaseEvent
	OrderID     int64  `json:"order_id"`
	OrderNumber string `json:"order_number"`
	Channel     string `json:"channel"`
	Template    string `json:"template"`
	Recipient   string `json:"recipient"`
	DeepLink    string `json:"deep_link"`
	Message     string `json:"message"`
}

// OrderItemData represents item data in events
type OrderItemData struct {
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}
