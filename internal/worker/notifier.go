package worker

import (
	"context"
	"log"

	"auction-service/internal/broker"
	"auction-service/internal/service"
)

// NotificationWorker consumes the auction event stream and hands outcomes to
// the notification service
type NotificationWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
}

// NewNotificationWorker creates a new notification worker
func NewNotificationWorker(consumer *broker.Consumer, notifications *service.NotificationService) *NotificationWorker {
	eventHandler := broker.NewEventHandler()

	eventHandler.OnAuctionEnded(notifications.HandleAuctionEnded)
	eventHandler.OnSellerDecision(notifications.HandleSellerDecision)
	eventHandler.OnCounterOfferResponse(notifications.HandleCounterOfferResponse)

	return &NotificationWorker{
		consumer:     consumer,
		eventHandler: eventHandler,
	}
}

// Start starts the worker
func (w *NotificationWorker) Start(ctx context.Context) error {
	log.Println("Starting notification worker...")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *NotificationWorker) Stop() error {
	log.Println("Stopping notification worker...")
	return w.consumer.Close()
}
