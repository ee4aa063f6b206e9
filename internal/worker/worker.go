package worker

import (
	"context"

	"storefront-service/internal/broker"
	"storefront-service/internal/service"
	"storefront-service/internal/util"

	"go.uber.org/zap"
)

// HandoffWorker consumes NOTIFICATION_INTENT events and records them
type HandoffWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	logger       *zap.Logger
}

// NewHandoffWorker creates a new hand-off worker
func NewHandoffWorker(consumer *broker.Consumer, handoff *service.HandoffService) *HandoffWorker {
	eventHandler := broker.NewEventHandler()
	eventHandler.OnNotificationIntent(handoff.HandleNotificationIntent)

	return &HandoffWorker{
		consumer:     consumer,
		eventHandler: eventHandler,
		logger:       util.Named("worker.handoff"),
	}
}

// Start blocks until ctx is cancelled
func (w *HandoffWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting hand-off worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *HandoffWorker) Stop() error {
	w.logger.Info("Stopping hand-off worker")
	return w.consumer.Close()
}
