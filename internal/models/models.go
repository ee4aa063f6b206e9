package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Address is one entry of a customer's address book
type Address struct {
	Type      string `json:"type"`
	Address   string `json:"address"`
	IsDefault bool   `json:"isDefault"`
}

// Addresses is stored as a JSONB array
type Addresses []Address

// Value implements driver.Valuer
func (a Addresses) Value() (driver.Value, error) {
	if a == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(a)
}

// Scan implements sql.Scanner
func (a *Addresses) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*a = Addresses{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported addresses type %T", src)
	}
	return json.Unmarshal(data, a)
}

// Contains reports whether an entry with the same formatted address exists
func (a Addresses) Contains(formatted string) bool {
	for _, addr := range a {
		if addr.Address == formatted {
			return true
		}
	}
	return false
}

// Customer represents a storefront customer keyed by email
type Customer struct {
	ID                  int64     `db:"id" json:"id"`
	Email               string    `db:"email" json:"email"`
	Name                string    `db:"name" json:"name"`
	PrimaryPhone        string    `db:"primary_phone" json:"primaryPhone"`
	SecondaryPhone      string    `db:"secondary_phone" json:"secondaryPhone,omitempty"`
	Addresses           Addresses `db:"addresses" json:"addresses"`
	CommunicationMethod string    `db:"communication_method" json:"communicationMethod"`
	Language            string    `db:"language" json:"language"`
	MarketingOptIn      bool      `db:"marketing_opt_in" json:"marketingOptIn"`
	WhatsAppVerified    bool      `db:"whatsapp_verified" json:"whatsappVerified"`
	Status              string    `db:"status" json:"status"`
	CustomerType        string    `db:"customer_type" json:"customerType"`
	Version             int64     `db:"version" json:"-"`
	CreatedAt           time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt           time.Time `db:"updated_at" json:"updatedAt"`
}

// Order is a checkout submission. Customer fields are a snapshot taken at order time.
type Order struct {
	ID                     int64           `db:"id" json:"id"`
	OrderNumber            string          `db:"order_number" json:"orderNumber"`
	CustomerID             int64           `db:"customer_id" json:"customerId"`
	CustomerName           string          `db:"customer_name" json:"customerName"`
	CustomerEmail          string          `db:"customer_email" json:"customerEmail"`
	CustomerPhone          string          `db:"customer_phone" json:"customerPhone"`
	CustomerSecondaryPhone string          `db:"customer_secondary_phone" json:"customerSecondaryPhone,omitempty"`
	DeliveryAddress        string          `db:"delivery_address" json:"deliveryAddress"`
	SpecialInstructions    string          `db:"special_instructions" json:"specialInstructions,omitempty"`
	InternalNotes          string          `db:"internal_notes" json:"internalNotes,omitempty"`
	Subtotal               decimal.Decimal `db:"order_subtotal" json:"orderSubtotal"`
	ShippingCost           decimal.Decimal `db:"shipping_cost" json:"shippingCost"`
	Discount               decimal.Decimal `db:"discount" json:"discount"`
	Total                  decimal.Decimal `db:"order_total" json:"orderTotal"`
	Currency               string          `db:"currency" json:"currency"`
	ExchangeRate           decimal.Decimal `db:"exchange_rate" json:"exchangeRate"`
	OrderStatus            string          `db:"order_status" json:"orderStatus"`
	PaymentStatus          string          `db:"payment_status" json:"paymentStatus"`
	PaymentMethod          string          `db:"payment_method" json:"paymentMethod"`
	OrderSource            string          `db:"order_source" json:"orderSource"`
	MessageSent            bool            `db:"whatsapp_message_sent" json:"whatsappMessageSent"`
	MessageTemplate        string          `db:"whatsapp_message_template" json:"whatsappMessageTemplate"`
	TrackingNumber         string          `db:"tracking_number" json:"trackingNumber,omitempty"`
	Courier                string          `db:"courier" json:"courier,omitempty"`
	EstimatedDelivery      *time.Time      `db:"estimated_delivery" json:"estimatedDelivery,omitempty"`
	ActualDelivery         *time.Time      `db:"actual_delivery" json:"actualDelivery,omitempty"`
	CreatedAt              time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt              time.Time       `db:"updated_at" json:"updatedAt"`

	Items []OrderItem `db:"-" json:"orderItems"`
}

// OrderItem is a line of an order
type OrderItem struct {
	ID            int64           `db:"id" json:"id"`
	OrderID       int64           `db:"order_id" json:"orderId"`
	ProductID     string          `db:"product_id" json:"productId"`
	ProductName   string          `db:"product_name" json:"productName"`
	ProductSKU    string          `db:"product_sku" json:"productSku"`
	UnitPrice     decimal.Decimal `db:"unit_price" json:"unitPrice"`
	Quantity      int             `db:"quantity" json:"quantity"`
	SelectedSize  string          `db:"selected_size" json:"selectedSize,omitempty"`
	SelectedColor string          `db:"selected_color" json:"selectedColor,omitempty"`
	Subtotal      decimal.Decimal `db:"subtotal" json:"subtotal"`
}

// NotificationIntent records that a hand-off message was prepared for an order.
// It says nothing about delivery.
type NotificationIntent struct {
	ID          int64     `db:"id" json:"id"`
	EventID     string    `db:"event_id" json:"eventId"`
	OrderNumber string    `db:"order_number" json:"orderNumber"`
	Channel     string    `db:"channel" json:"channel"`
	Template    string    `db:"template" json:"template"`
	DeepLink    string    `db:"deep_link" json:"deepLink"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}

// Order statuses
const (
	OrderStatusPending    = "pending"
	OrderStatusConfirmed  = "confirmed"
	OrderStatusProcessing = "processing"
	OrderStatusShipped    = "shipped"
	OrderStatusDelivered  = "delivered"
	OrderStatusCancelled  = "cancelled"
)

// Payment defaults
const (
	PaymentStatusPending = "pending"
	PaymentMethodCOD     = "cod"
)

// Customer defaults
const (
	CustomerStatusActive      = "active"
	CustomerStatusInactive    = "inactive"
	CustomerTypeRegular       = "regular"
	CommunicationWhatsApp     = "whatsapp"
	DefaultLanguage           = "english"
	AddressTypeHome           = "home"
	OrderSourceWebsite        = "website"
	CurrencyLKR               = "LKR"
	ChannelWhatsApp           = "whatsapp"
	TemplateOrderConfirmation = "order-confirmation"
)

// Placeholders for line items whose product identity is missing
const (
	UnknownProductID   = "unknown"
	UnknownProductSKU  = "unknown"
	UnknownProductName = "Unknown Product"
)

// ProcessedEvent for idempotency
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}
