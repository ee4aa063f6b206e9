package service

import (
	"context"
	"fmt"

	"storefront-service/internal/models"
	"storefront-service/internal/util"

	"go.uber.org/zap"
)

// HandoffService records notification intents for operators. Recording an
// intent never marks the order's message as sent.
type HandoffService struct {
	repo   IntentRepository
	logger *zap.Logger
}

// NewHandoffService creates a new hand-off service
func NewHandoffService(repo IntentRepository) *HandoffService {
	return &HandoffService{
		repo:   repo,
		logger: util.GetLogger(),
	}
}

// HandleNotificationIntent stores the intent once per event id
func (hs *HandoffService) HandleNotificationIntent(ctx context.Context, event *models.NotificationIntentEvent) error {
	ctx, span := util.StartSpan(ctx, "HandoffService.HandleNotificationIntent")
	defer span.End()

	processed, err := hs.repo.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return fmt.Errorf("failed to check event processed: %w", err)
	}
	if processed {
		hs.logger.Info("Event already processed", zap.String("event_id", event.EventID))
		return nil
	}

	intent := &models.NotificationIntent{
		EventID:     event.EventID,
		OrderNumber: event.OrderNumber,
		Channel:     event.Channel,
		Template:    event.Template,
		DeepLink:    event.DeepLink,
	}

	if err := hs.repo.CreateNotificationIntent(ctx, intent); err != nil {
		util.RecordError(span, err)
		return fmt.Errorf("failed to record notification intent: %w", err)
	}

	util.NotificationIntentsTotal.Inc()

	if err := hs.repo.MarkEventProcessed(ctx, event.EventID, event.EventType); err != nil {
		hs.logger.Error("Failed to mark event processed", zap.Error(err))
	}

	hs.logger.Info("Notification intent recorded",
		zap.String("order_number", event.OrderNumber),
		zap.String("channel", event.Channel))
	return nil
}
