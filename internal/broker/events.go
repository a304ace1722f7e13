package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"auction-service/internal/models"

	"github.com/segmentio/kafka-go"
)

// AuctionTopic is the logical pub/sub topic for one auction's room
func AuctionTopic(auctionID string) string {
	return fmt.Sprintf("auction:%s", auctionID)
}

// UserTopic is the logical pub/sub topic for one user's personal channel
func UserTopic(userID string) string {
	return fmt.Sprintf("user:%s", userID)
}

// EventPublisher publishes the auction domain events. The logical topic is the
// message key, which keeps per-auction delivery ordered.
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishAuctionStarted publishes auctionStarted to the auction topic
func (ep *EventPublisher) PublishAuctionStarted(ctx context.Context, event *models.AuctionStartedEvent) error {
	return ep.producer.PublishEvent(ctx, AuctionTopic(event.AuctionID), event)
}

// PublishNewBid publishes newBid to the auction topic
func (ep *EventPublisher) PublishNewBid(ctx context.Context, event *models.NewBidEvent) error {
	return ep.producer.PublishEvent(ctx, AuctionTopic(event.AuctionID), event)
}

// PublishOutbid publishes outbid to the displaced bidder's user topic
func (ep *EventPublisher) PublishOutbid(ctx context.Context, userID string, event *models.OutbidEvent) error {
	return ep.producer.PublishEvent(ctx, UserTopic(userID), event)
}

// PublishNewBidOnAuction publishes newBidOnAuction to the seller's user topic
func (ep *EventPublisher) PublishNewBidOnAuction(ctx context.Context, sellerID string, event *models.NewBidOnAuctionEvent) error {
	return ep.producer.PublishEvent(ctx, UserTopic(sellerID), event)
}

// PublishAuctionEnded publishes auctionEnded to the auction topic
func (ep *EventPublisher) PublishAuctionEnded(ctx context.Context, event *models.AuctionEndedEvent) error {
	return ep.producer.PublishEvent(ctx, AuctionTopic(event.AuctionID), event)
}

// PublishAuctionEndedSeller publishes auctionEndedSeller to the seller's user topic
func (ep *EventPublisher) PublishAuctionEndedSeller(ctx context.Context, sellerID string, event *models.AuctionEndedSellerEvent) error {
	return ep.producer.PublishEvent(ctx, UserTopic(sellerID), event)
}

// PublishAuctionWon publishes auctionWon to the winner's user topic
func (ep *EventPublisher) PublishAuctionWon(ctx context.Context, winnerID string, event *models.AuctionWonEvent) error {
	return ep.producer.PublishEvent(ctx, UserTopic(winnerID), event)
}

// PublishSellerDecision publishes sellerDecision to the auction topic
func (ep *EventPublisher) PublishSellerDecision(ctx context.Context, event *models.SellerDecisionEvent) error {
	return ep.producer.PublishEvent(ctx, AuctionTopic(event.AuctionID), event)
}

// PublishCounterOfferResponse publishes counterOfferResponse to the auction topic
func (ep *EventPublisher) PublishCounterOfferResponse(ctx context.Context, event *models.CounterOfferResponseEvent) error {
	return ep.producer.PublishEvent(ctx, AuctionTopic(event.AuctionID), event)
}

// EventHandler routes consumed auction events to registered callbacks
type EventHandler struct {
	onAuctionEnded         func(context.Context, *models.AuctionEndedEvent) error
	onSellerDecision       func(context.Context, *models.SellerDecisionEvent) error
	onCounterOfferResponse func(context.Context, *models.CounterOfferResponseEvent) error
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{}
}

// OnAuctionEnded registers a handler for auctionEnded events
func (eh *EventHandler) OnAuctionEnded(handler func(context.Context, *models.AuctionEndedEvent) error) {
	eh.onAuctionEnded = handler
}

// OnSellerDecision registers a handler for sellerDecision events
func (eh *EventHandler) OnSellerDecision(handler func(context.Context, *models.SellerDecisionEvent) error) {
	eh.onSellerDecision = handler
}

// OnCounterOfferResponse registers a handler for counterOfferResponse events
func (eh *EventHandler) OnCounterOfferResponse(handler func(context.Context, *models.CounterOfferResponseEvent) error) {
	eh.onCounterOfferResponse = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	switch baseEvent.EventType {
	case models.EventTypeAuctionEnded:
		if eh.onAuctionEnded != nil {
			var event models.AuctionEndedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal auctionEnded event: %w", err)
			}
			return eh.onAuctionEnded(ctx, &event)
		}

	case models.EventTypeSellerDecision:
		if eh.onSellerDecision != nil {
			var event models.SellerDecisionEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal sellerDecision event: %w", err)
			}
			return eh.onSellerDecision(ctx, &event)
		}

	case models.EventTypeCounterOfferResponse:
		if eh.onCounterOfferResponse != nil {
			var event models.CounterOfferResponseEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal counterOfferResponse event: %w", err)
			}
			return eh.onCounterOfferResponse(ctx, &event)
		}

	default:
		log.Printf("Unhandled event type: %s", baseEvent.EventType)
	}

	return nil
}
