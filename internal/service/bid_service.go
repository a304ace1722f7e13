package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"auction-service/internal/models"
	"auction-service/internal/store"
	"auction-service/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const lockRetryInterval = 25 * time.Millisecond

// BidService is the bid arbiter: it validates bid proposals against the
// highest-bid cache and commits accepted bids atomically per auction.
type BidService struct {
	registry  Registry
	ledger    Ledger
	cache     Cache
	publisher Publisher
	lockWait  time.Duration
	lockTTL   time.Duration
	logger    *zap.Logger
}

// NewBidService creates a new bid service
func NewBidService(registry Registry, ledger Ledger, cache Cache, publisher Publisher, lockWait, lockTTL time.Duration) *BidService {
	return &BidService{
		registry:  registry,
		ledger:    ledger,
		cache:     cache,
		publisher: publisher,
		lockWait:  lockWait,
		lockTTL:   lockTTL,
		logger:    util.GetLogger(),
	}
}

// PlaceBid validates and commits a bid proposal. Business rejections come
// back as *BidRejection; only infrastructure faults are plain errors.
func (s *BidService) PlaceBid(ctx context.Context, auctionID, bidderID string, amount decimal.Decimal) (*models.Bid, error) {
	ctx, span := util.StartSpan(ctx, "BidService.PlaceBid")
	defer span.End()

	start := time.Now()
	defer func() {
		util.BidCommitLatency.Observe(time.Since(start).Seconds())
	}()

	auction, err := s.registry.GetAuctionByID(ctx, auctionID)
	if err != nil {
		if errors.Is(err, store.ErrAuctionNotFound) {
			return nil, s.reject(&BidRejection{Reason: RejectNotFound})
		}
		return nil, fmt.Errorf("failed to load auction: %w", err)
	}

	now := time.Now()
	if !auction.IsBiddingOpen(now) {
		return nil, s.reject(&BidRejection{
			Reason:       RejectNotActive,
			CurrentPrice: auction.CurrentHighestBid,
		})
	}

	if bidderID == auction.SellerID {
		return nil, s.reject(&BidRejection{
			Reason:       RejectSellerCannotBid,
			CurrentPrice: auction.CurrentHighestBid,
		})
	}

	current := s.currentPrice(ctx, auction)
	minimum := models.MinimumNextBid(current, auction.BidIncrement)
	if amount.LessThan(minimum) {
		return nil, s.reject(&BidRejection{
			Reason:       RejectBidTooLow,
			CurrentPrice: current,
			MinimumBid:   minimum,
		})
	}

	// Per-auction serialization point. A proposal that cannot acquire it
	// within the bounded wait is rejected rather than queued.
	if !s.acquireLock(ctx, auctionID) {
		return nil, s.reject(&BidRejection{
			Reason:       RejectTryAgain,
			CurrentPrice: current,
			MinimumBid:   minimum,
		})
	}
	defer func() {
		if err := s.cache.ReleaseAuctionLock(ctx, auctionID); err != nil {
			s.logger.Error("Failed to release auction lock",
				zap.String("auction_id", auctionID),
				zap.Error(err))
		}
	}()

	// Snapshot the leader we are about to displace, for the outbid event.
	previous, err := s.cache.GetHighestBid(ctx, auctionID)
	if err != nil {
		s.logger.Warn("Failed to read previous leader from cache",
			zap.String("auction_id", auctionID),
			zap.Error(err))
	}

	committed, liveCurrent, err := s.cache.CommitHighestBid(ctx, auctionID,
		amount, auction.BidIncrement, auction.StartingPrice, bidderID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to arbitrate bid: %w", err)
	}
	if !committed {
		// A concurrent proposal won the race between validation and commit.
		return nil, s.reject(&BidRejection{
			Reason:       RejectBidTooLow,
			CurrentPrice: liveCurrent,
			MinimumBid:   models.MinimumNextBid(liveCurrent, auction.BidIncrement),
		})
	}

	bid := &models.Bid{
		ID:        uuid.New().String(),
		AuctionID: auctionID,
		BidderID:  bidderID,
		Amount:    amount,
	}

	if err := s.ledger.CommitBid(ctx, bid); err != nil {
		// The cache now leads the ledger. Drop the entry so the next read
		// rebuilds it from the ledger, which stays the source of truth.
		if derr := s.cache.DeleteHighestBid(ctx, auctionID); derr != nil {
			s.logger.Error("Failed to drop stale cache entry",
				zap.String("auction_id", auctionID),
				zap.Error(derr))
		}
		if errors.Is(err, store.ErrBiddingClosed) {
			// The auction ended between validation and commit. The ledger
			// transaction rolled back, so no late bid was recorded.
			return nil, s.reject(&BidRejection{
				Reason:       RejectNotActive,
				CurrentPrice: current,
			})
		}
		return nil, fmt.Errorf("failed to commit bid: %w", err)
	}

	util.BidsAcceptedTotal.Inc()
	s.logger.Info("Bid accepted",
		zap.String("auction_id", auctionID),
		zap.String("bid_id", bid.ID),
		zap.String("amount", amount.StringFixed(2)))

	s.publishBidEvents(ctx, auction, bid, previous)
	return bid, nil
}

// currentPrice reads the leading amount from the cache, falling back to the
// ledger and finally the starting price. The cache is never trusted to exist.
func (s *BidService) currentPrice(ctx context.Context, auction *models.Auction) decimal.Decimal {
	entry, err := s.cache.GetHighestBid(ctx, auction.ID)
	if err == nil && entry != nil {
		return entry.Amount
	}
	if err != nil {
		s.logger.Warn("Cache read failed, falling back to ledger",
			zap.String("auction_id", auction.ID),
			zap.Error(err))
	}

	highest, err := s.ledger.GetHighestBid(ctx, auction.ID)
	if err == nil {
		return highest.Amount
	}
	return auction.StartingPrice
}

func (s *BidService) acquireLock(ctx context.Context, auctionID string) bool {
	deadline := time.Now().Add(s.lockWait)
	for {
		ok, err := s.cache.AcquireAuctionLock(ctx, auctionID, s.lockTTL)
		if err != nil {
			s.logger.Error("Failed to acquire auction lock",
				zap.String("auction_id", auctionID),
				zap.Error(err))
			return false
		}
		if ok {
			return true
		}
		if time.Now().After(deadline) || ctx.Err() != nil {
			return false
		}
		time.Sleep(lockRetryInterval)
	}
}

func (s *BidService) publishBidEvents(ctx context.Context, auction *models.Auction, bid *models.Bid, previous *models.HighestBid) {
	newBid := &models.NewBidEvent{
		BaseEvent: newBaseEvent(models.EventTypeNewBid),
		AuctionID: auction.ID,
		BidID:     bid.ID,
		BidderID:  bid.BidderID,
		Amount:    bid.Amount,
	}
	if err := s.publisher.PublishNewBid(ctx, newBid); err != nil {
		s.logger.Error("Failed to publish newBid event", zap.Error(err))
	}

	if previous != nil && previous.BidderID != "" && previous.BidderID != bid.BidderID {
		outbid := &models.OutbidEvent{
			BaseEvent:    newBaseEvent(models.EventTypeOutbid),
			AuctionID:    auction.ID,
			ItemName:     auction.ItemName,
			NewBidAmount: bid.Amount,
		}
		if err := s.publisher.PublishOutbid(ctx, previous.BidderID, outbid); err != nil {
			s.logger.Error("Failed to publish outbid event", zap.Error(err))
		}
	}

	sellerEvent := &models.NewBidOnAuctionEvent{
		BaseEvent: newBaseEvent(models.EventTypeNewBidOnAuction),
		AuctionID: auction.ID,
		ItemName:  auction.ItemName,
		BidderID:  bid.BidderID,
		Amount:    bid.Amount,
	}
	if err := s.publisher.PublishNewBidOnAuction(ctx, auction.SellerID, sellerEvent); err != nil {
		s.logger.Error("Failed to publish newBidOnAuction event", zap.Error(err))
	}
}

func (s *BidService) reject(rejection *BidRejection) error {
	util.BidsRejectedTotal.WithLabelValues(string(rejection.Reason)).Inc()
	return rejection
}

func newBaseEvent(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now(),
	}
}
