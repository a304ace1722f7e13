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

// AuctionService handles auction listing and read-side operations
type AuctionService struct {
	registry Registry
	ledger   Ledger
	cache    Cache
	logger   *zap.Logger
}

// NewAuctionService creates a new auction service
func NewAuctionService(registry Registry, ledger Ledger, cache Cache) *AuctionService {
	return &AuctionService{
		registry: registry,
		ledger:   ledger,
		cache:    cache,
		logger:   util.GetLogger(),
	}
}

// CreateAuctionRequest represents a request to list an item
type CreateAuctionRequest struct {
	ItemName        string          `json:"item_name" binding:"required"`
	Description     string          `json:"description"`
	StartingPrice   decimal.Decimal `json:"starting_price" binding:"required"`
	BidIncrement    decimal.Decimal `json:"bid_increment" binding:"required"`
	GoLiveDate      time.Time       `json:"go_live_date" binding:"required"`
	DurationMinutes int             `json:"duration_minutes" binding:"required"`
}

// AuctionDetail is an auction together with its bid history and live price
type AuctionDetail struct {
	Auction       *models.Auction `json:"auction"`
	Bids          []models.Bid    `json:"bids"`
	CurrentPrice  decimal.Decimal `json:"current_price"`
	HighestBidder string          `json:"highest_bidder,omitempty"`
}

// CreateAuction validates and persists a new pending auction, seeding its
// highest-bid cache entry at the starting price.
func (s *AuctionService) CreateAuction(ctx context.Context, sellerID string, req *CreateAuctionRequest) (*models.Auction, error) {
	ctx, span := util.StartSpan(ctx, "AuctionService.CreateAuction")
	defer span.End()

	if err := validateCreateRequest(req); err != nil {
		return nil, err
	}

	now := time.Now()
	auction := &models.Auction{
		ID:                uuid.New().String(),
		ItemName:          req.ItemName,
		Description:       req.Description,
		StartingPrice:     req.StartingPrice,
		BidIncrement:      req.BidIncrement,
		CurrentHighestBid: req.StartingPrice,
		GoLiveDate:        req.GoLiveDate,
		DurationMinutes:   req.DurationMinutes,
		EndDate:           req.GoLiveDate.Add(time.Duration(req.DurationMinutes) * time.Minute),
		Status:            models.AuctionStatusPending,
		SellerID:          sellerID,
	}

	if err := s.registry.CreateAuction(ctx, auction); err != nil {
		return nil, fmt.Errorf("failed to create auction: %w", err)
	}

	if err := s.cache.SetHighestBid(ctx, auction.ID, auction.StartingPrice, "", now); err != nil {
		s.logger.Warn("Failed to seed highest-bid cache entry",
			zap.String("auction_id", auction.ID),
			zap.Error(err))
	}

	util.AuctionsCreatedTotal.Inc()
	s.logger.Info("Auction created",
		zap.String("auction_id", auction.ID),
		zap.String("seller_id", sellerID))
	return auction, nil
}

func validateCreateRequest(req *CreateAuctionRequest) error {
	switch {
	case req.ItemName == "":
		return fmt.Errorf("%w: item name is required", ErrInvalidInput)
	case !req.StartingPrice.IsPositive():
		return fmt.Errorf("%w: starting price must be positive", ErrInvalidInput)
	case !req.BidIncrement.IsPositive():
		return fmt.Errorf("%w: bid increment must be positive", ErrInvalidInput)
	case req.DurationMinutes <= 0:
		return fmt.Errorf("%w: duration must be positive", ErrInvalidInput)
	case req.GoLiveDate.IsZero():
		return fmt.Errorf("%w: go-live date is required", ErrInvalidInput)
	}
	return nil
}

// GetAuction retrieves an auction with its bid history, overlaying the live
// price from the cache.
func (s *AuctionService) GetAuction(ctx context.Context, auctionID string) (*AuctionDetail, error) {
	auction, err := s.registry.GetAuctionByID(ctx, auctionID)
	if err != nil {
		return nil, err
	}

	bids, err := s.ledger.ListBidsByAuction(ctx, auctionID, 50, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to load bids: %w", err)
	}

	detail := &AuctionDetail{
		Auction:      auction,
		Bids:         bids,
		CurrentPrice: auction.CurrentHighestBid,
	}

	if entry, err := s.cache.GetHighestBid(ctx, auctionID); err == nil && entry != nil {
		detail.CurrentPrice = entry.Amount
		detail.HighestBidder = entry.BidderID
	}

	return detail, nil
}

// GetHighestBid resolves the current leading bid: cache first, then the
// ledger, then the starting price when no bid was ever placed.
func (s *AuctionService) GetHighestBid(ctx context.Context, auctionID string) (*models.HighestBid, error) {
	entry, err := s.cache.GetHighestBid(ctx, auctionID)
	if err != nil {
		s.logger.Warn("Cache read failed, falling back to ledger",
			zap.String("auction_id", auctionID),
			zap.Error(err))
	}
	if entry != nil {
		return entry, nil
	}

	highest, err := s.ledger.GetHighestBid(ctx, auctionID)
	if err == nil {
		return &models.HighestBid{
			AuctionID: auctionID,
			Amount:    highest.Amount,
			BidderID:  highest.BidderID,
			Timestamp: highest.Timestamp,
			Source:    models.HighestBidSourceLedger,
		}, nil
	}
	if !errors.Is(err, store.ErrNoBids) {
		return nil, err
	}

	auction, err := s.registry.GetAuctionByID(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	return &models.HighestBid{
		AuctionID: auctionID,
		Amount:    auction.StartingPrice,
		Source:    models.HighestBidSourceStartingPrice,
	}, nil
}

// ListAuctions returns all auctions, newest first
func (s *AuctionService) ListAuctions(ctx context.Context) ([]models.Auction, error) {
	return s.registry.ListAuctions(ctx)
}

// ListSellingAuctions returns the auctions a seller has listed
func (s *AuctionService) ListSellingAuctions(ctx context.Context, sellerID string) ([]models.Auction, error) {
	return s.registry.ListAuctionsBySeller(ctx, sellerID)
}

// ListWonAuctions returns the auctions a user has won
func (s *AuctionService) ListWonAuctions(ctx context.Context, winnerID string) ([]models.Auction, error) {
	return s.registry.ListAuctionsByWinner(ctx, winnerID)
}

// ListBidsForAuction returns a page of an auction's bids
func (s *AuctionService) ListBidsForAuction(ctx context.Context, auctionID string, limit, offset int) ([]models.Bid, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.ledger.ListBidsByAuction(ctx, auctionID, limit, offset)
}

// ListUserBids returns all bids placed by a user
func (s *AuctionService) ListUserBids(ctx context.Context, bidderID string) ([]models.Bid, error) {
	return s.ledger.ListBidsByBidder(ctx, bidderID)
}

// CancelAuction applies the administrative cancellation override
func (s *AuctionService) CancelAuction(ctx context.Context, auctionID, actorID, role string) (*models.Auction, error) {
	auction, err := s.registry.GetAuctionByID(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	if auction.SellerID != actorID && role != models.RoleAdmin {
		return nil, ErrNotAuthorized
	}

	if err := s.registry.OverrideStatus(ctx, auctionID, models.AuctionStatusCancelled); err != nil {
		return nil, err
	}
	return s.registry.GetAuctionByID(ctx, auctionID)
}

// SyncHighestBids rebuilds missing cache entries for non-terminal auctions
// from the ledger. Run at startup; the cache is derived state.
func (s *AuctionService) SyncHighestBids(ctx context.Context) error {
	auctions, err := s.registry.ListOpenAuctions(ctx)
	if err != nil {
		return fmt.Errorf("failed to list open auctions: %w", err)
	}

	synced := 0
	for i := range auctions {
		auction := &auctions[i]

		entry, err := s.cache.GetHighestBid(ctx, auction.ID)
		if err != nil {
			return fmt.Errorf("failed to probe cache for auction %s: %w", auction.ID, err)
		}
		if entry != nil {
			continue
		}

		amount, bidder, ts := auction.StartingPrice, "", auction.CreatedAt
		if highest, err := s.ledger.GetHighestBid(ctx, auction.ID); err == nil {
			amount, bidder, ts = highest.Amount, highest.BidderID, highest.Timestamp
		} else if !errors.Is(err, store.ErrNoBids) {
			return fmt.Errorf("failed to read ledger for auction %s: %w", auction.ID, err)
		}

		if err := s.cache.SetHighestBid(ctx, auction.ID, amount, bidder, ts); err != nil {
			s.logger.Error("Failed to rebuild cache entry",
				zap.String("auction_id", auction.ID),
				zap.Error(err))
			continue
		}
		synced++
	}

	s.logger.Info("Highest-bid cache sync completed",
		zap.Int("open_auctions", len(auctions)),
		zap.Int("rebuilt", synced))
	return nil
}
