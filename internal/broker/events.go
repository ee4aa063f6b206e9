package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"storefront-service/internal/models"
	"storefront-service/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// EventPublisher handles publishing domain events
type EventPublisher struct {
	producer EventWriter
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer EventWriter) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishOrderPlaced publishes ORDER_PLACED
func (ep *EventPublisher) PublishOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error {
	return ep.publish(ctx, orderKey(event.OrderNumber), event.EventType, event)
}

// PublishCustomerUpserted publishes CUSTOMER_UPSERTED
func (ep *EventPublisher) PublishCustomerUpserted(ctx context.Context, event *models.CustomerUpsertedEvent) error {
	return ep.publish(ctx, fmt.Sprintf("customer-%d", event.CustomerID), event.EventType, event)
}

// PublishNotificationIntent publishes NOTIFICATION_INTENT
func (ep *EventPublisher) PublishNotificationIntent(ctx context.Context, event *models.NotificationIntentEvent) error {
	return ep.publish(ctx, orderKey(event.OrderNumber), event.EventType, event)
}

func (ep *EventPublisher) publish(ctx context.Context, key, eventType string, event interface{}) error {
	if err := ep.producer.PublishEvent(ctx, key, event); err != nil {
		util.EventsPublishFailedTotal.WithLabelValues(eventType).Inc()
		return err
	}
	return nil
}

// Events for one order land on one partition
func orderKey(orderNumber string) string {
	return "order-" + orderNumber
}

// EventHandler handles incoming events
type EventHandler struct {
	onNotificationIntent func(context.Context, *models.NotificationIntentEvent) error
	logger               *zap.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{logger: util.Named("kafka.handler")}
}

// OnNotificationIntent registers a handler for NOTIFICATION_INTENT events
func (eh *EventHandler) OnNotificationIntent(handler func(context.Context, *models.NotificationIntentEvent) error) {
	eh.onNotificationIntent = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	eh.logger.Debug("Handling event",
		zap.String("event_type", baseEvent.EventType),
		zap.String("event_id", baseEvent.EventID))

	switch baseEvent.EventType {
	case models.EventTypeNotificationIntent:
		if eh.onNotificationIntent != nil {
			var event models.NotificationIntentEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal NotificationIntent event: %w", err)
			}
			return eh.onNotificationIntent(ctx, &event)
		}

	case models.EventTypeOrderPlaced, models.EventTypeCustomerUpserted:
		// consumed by downstream services

	default:
		eh.logger.Debug("Unhandled event type", zap.String("event_type", baseEvent.EventType))
	}

	return nil
}
