package service

import (
	"context"
	"time"

	"auction-service/internal/broker"
	"auction-service/internal/models"
	"auction-service/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// NoticePublisher publishes notification messages for the external
// email/invoice service
type NoticePublisher interface {
	PublishEvent(ctx context.Context, key string, event interface{}) error
}

// Notice kinds consumed by the email/invoice collaborator
const (
	NoticeAuctionEnded = "auction_ended"
	NoticeInvoice      = "invoice"
)

// Notice is the message handed to the notification collaborator. It carries
// everything the email/PDF side needs without a callback into this service.
type Notice struct {
	NoticeID    string           `json:"notice_id"`
	Kind        string           `json:"kind"`
	AuctionID   string           `json:"auction_id"`
	ItemName    string           `json:"item_name"`
	SellerID    string           `json:"seller_id"`
	WinnerID    *string          `json:"winner_id,omitempty"`
	FinalPrice  *decimal.Decimal `json:"final_price,omitempty"`
	RecipientID string           `json:"recipient_id"`
	IssuedAt    time.Time        `json:"issued_at"`
}

// NotificationService turns auction outcomes into fire-and-forget messages
// for the external email/invoice collaborator. Failures are logged and never
// propagated, so a broken mailer cannot hold up a lifecycle transition.
type NotificationService struct {
	registry Registry
	notices  NoticePublisher
	logger   *zap.Logger
}

// NewNotificationService creates a new notification service
func NewNotificationService(registry Registry, notices NoticePublisher) *NotificationService {
	return &NotificationService{
		registry: registry,
		notices:  notices,
		logger:   util.GetLogger(),
	}
}

// HandleAuctionEnded notifies the seller, and the winner when one exists,
// that bidding has closed.
func (ns *NotificationService) HandleAuctionEnded(ctx context.Context, event *models.AuctionEndedEvent) error {
	auction, err := ns.registry.GetAuctionByID(ctx, event.AuctionID)
	if err != nil {
		ns.logger.Error("Failed to load auction for end notice",
			zap.String("auction_id", event.AuctionID),
			zap.Error(err))
		return nil
	}

	ns.send(ctx, auction, NoticeAuctionEnded, auction.SellerID)
	if auction.WinnerID != nil {
		ns.send(ctx, auction, NoticeAuctionEnded, *auction.WinnerID)
	}
	return nil
}

// HandleSellerDecision issues invoices when the seller accepts the winning bid
func (ns *NotificationService) HandleSellerDecision(ctx context.Context, event *models.SellerDecisionEvent) error {
	if event.Decision != models.SellerDecisionAccepted {
		return nil
	}
	return ns.invoice(ctx, event.AuctionID)
}

// HandleCounterOfferResponse issues invoices when the winner accepts a counter
func (ns *NotificationService) HandleCounterOfferResponse(ctx context.Context, event *models.CounterOfferResponseEvent) error {
	if event.Response != models.CounterOfferAccepted {
		return nil
	}
	return ns.invoice(ctx, event.AuctionID)
}

func (ns *NotificationService) invoice(ctx context.Context, auctionID string) error {
	auction, err := ns.registry.GetAuctionByID(ctx, auctionID)
	if err != nil {
		ns.logger.Error("Failed to load auction for invoice",
			zap.String("auction_id", auctionID),
			zap.Error(err))
		return nil
	}
	if auction.Status != models.AuctionStatusCompleted || auction.WinnerID == nil {
		return nil
	}

	ns.send(ctx, auction, NoticeInvoice, auction.SellerID)
	ns.send(ctx, auction, NoticeInvoice, *auction.WinnerID)
	return nil
}

func (ns *NotificationService) send(ctx context.Context, auction *models.Auction, kind, recipientID string) {
	notice := &Notice{
		NoticeID:    uuid.New().String(),
		Kind:        kind,
		AuctionID:   auction.ID,
		ItemName:    auction.ItemName,
		SellerID:    auction.SellerID,
		WinnerID:    auction.WinnerID,
		FinalPrice:  auction.FinalPrice,
		RecipientID: recipientID,
		IssuedAt:    time.Now(),
	}

	if err := ns.notices.PublishEvent(ctx, broker.UserTopic(recipientID), notice); err != nil {
		util.NotificationsFailedTotal.Inc()
		ns.logger.Error("Failed to publish notice",
			zap.String("auction_id", auction.ID),
			zap.String("kind", kind),
			zap.Error(err))
		return
	}
	util.NotificationsPublishedTotal.Inc()
}
