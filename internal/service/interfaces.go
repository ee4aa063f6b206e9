package service

import (
	"context"
	"time"

	"storefront-service/internal/models"
	"storefront-service/internal/pricing"
)

// CustomerRepository is the customer side of the store
type CustomerRepository interface {
	FindCustomerByEmail(ctx context.Context, email string) (*models.Customer, error)
	CreateCustomer(ctx context.Context, customer *models.Customer) error
	UpdateCustomer(ctx context.Context, customer *models.Customer) error
}

// OrderRepository is the order side of the store
type OrderRepository interface {
	CreateOrder(ctx context.Context, order *models.Order) error
	GetOrderByNumber(ctx context.Context, orderNumber string) (*models.Order, error)
	IncrementProductOrderCount(ctx context.Context, productID string, quantity int) error
}

// IntentRepository records hand-off intents exactly once per event
type IntentRepository interface {
	IsEventProcessed(ctx context.Context, eventID string) (bool, error)
	MarkEventProcessed(ctx context.Context, eventID, eventType string) error
	CreateNotificationIntent(ctx context.Context, intent *models.NotificationIntent) error
}

// EventPublisher publishes domain events
type EventPublisher interface {
	PublishOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error
	PublishCustomerUpserted(ctx context.Context, event *models.CustomerUpsertedEvent) error
	PublishNotificationIntent(ctx context.Context, event *models.NotificationIntentEvent) error
}

// IdempotencyStore maps idempotency keys to order numbers
type IdempotencyStore interface {
	GetIdempotencyKey(ctx context.Context, key string) (string, error)
	SetIdempotencyKey(ctx context.Context, key, orderNumber string, ttl time.Duration) (bool, error)
	DeleteIdempotencyKey(ctx context.Context, key string) error
}

// RateProvider returns the current exchange rate
type RateProvider interface {
	Rate(ctx context.Context) pricing.ExchangeRate
}
