package service

import (
	"context"
	"time"

	"auction-service/internal/models"

	"github.com/shopspring/decimal"
)

// Registry is the auction side of the durable store
type Registry interface {
	CreateAuction(ctx context.Context, auction *models.Auction) error
	GetAuctionByID(ctx context.Context, id string) (*models.Auction, error)
	ListAuctions(ctx context.Context) ([]models.Auction, error)
	ListAuctionsBySeller(ctx context.Context, sellerID string) ([]models.Auction, error)
	ListAuctionsByWinner(ctx context.Context, winnerID string) ([]models.Auction, error)
	ListOpenAuctions(ctx context.Context) ([]models.Auction, error)
	OverrideStatus(ctx context.Context, auctionID, status string) error
	AcceptSellerDecision(ctx context.Context, auctionID string) (bool, error)
	RejectSellerDecision(ctx context.Context, auctionID string) (bool, error)
	RecordCounterOffer(ctx context.Context, auctionID string, amount decimal.Decimal) (bool, error)
	AcceptCounterOffer(ctx context.Context, auctionID string) (bool, error)
	RejectCounterOffer(ctx context.Context, auctionID string) (bool, error)
}

// Ledger is the bid side of the durable store
type Ledger interface {
	CommitBid(ctx context.Context, bid *models.Bid) error
	GetHighestBid(ctx context.Context, auctionID string) (*models.Bid, error)
	ListBidsByAuction(ctx context.Context, auctionID string, limit, offset int) ([]models.Bid, error)
	ListBidsByBidder(ctx context.Context, bidderID string) ([]models.Bid, error)
}

// Cache is the highest-bid cache plus the per-auction commit lock
type Cache interface {
	GetHighestBid(ctx context.Context, auctionID string) (*models.HighestBid, error)
	CommitHighestBid(ctx context.Context, auctionID string, amount, increment, startingPrice decimal.Decimal, bidderID string, ts time.Time) (bool, decimal.Decimal, error)
	SetHighestBid(ctx context.Context, auctionID string, amount decimal.Decimal, bidderID string, ts time.Time) error
	DeleteHighestBid(ctx context.Context, auctionID string) error
	AcquireAuctionLock(ctx context.Context, auctionID string, ttl time.Duration) (bool, error)
	ReleaseAuctionLock(ctx context.Context, auctionID string) error
}

// Publisher fans auction events out to topic subscribers
type Publisher interface {
	PublishAuctionStarted(ctx context.Context, event *models.AuctionStartedEvent) error
	PublishNewBid(ctx context.Context, event *models.NewBidEvent) error
	PublishOutbid(ctx context.Context, userID string, event *models.OutbidEvent) error
	PublishNewBidOnAuction(ctx context.Context, sellerID string, event *models.NewBidOnAuctionEvent) error
	PublishAuctionEnded(ctx context.Context, event *models.AuctionEndedEvent) error
	PublishAuctionEndedSeller(ctx context.Context, sellerID string, event *models.AuctionEndedSellerEvent) error
	PublishAuctionWon(ctx context.Context, winnerID string, event *models.AuctionWonEvent) error
	PublishSellerDecision(ctx context.Context, event *models.SellerDecisionEvent) error
	PublishCounterOfferResponse(ctx context.Context, event *models.CounterOfferResponseEvent) error
}
