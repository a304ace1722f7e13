package worker

import (
	"context"
	"errors"
	"time"

	"auction-service/internal/models"
	"auction-service/internal/service"
	"auction-service/internal/store"
	"auction-service/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// endLockTTL bounds how long a crashed sweep can hold an auction's lock.
const endLockTTL = 3 * time.Second

// SchedulerStore is the slice of the registry and ledger the sweep needs
type SchedulerStore interface {
	ListDuePendingAuctions(ctx context.Context, now time.Time) ([]models.Auction, error)
	ListDueActiveAuctions(ctx context.Context, now time.Time) ([]models.Auction, error)
	MarkActive(ctx context.Context, auctionID string) (bool, error)
	MarkEnded(ctx context.Context, auctionID string, winnerID *string, finalPrice *decimal.Decimal, sellerDecision *string) (bool, error)
	GetHighestBid(ctx context.Context, auctionID string) (*models.Bid, error)
}

// AuctionLocker is the per-auction lock shared with the bid arbiter. The end
// transition takes it so reading the winning bid and flipping the row cannot
// interleave with a bid commit on the same auction.
type AuctionLocker interface {
	AcquireAuctionLock(ctx context.Context, auctionID string, ttl time.Duration) (bool, error)
	ReleaseAuctionLock(ctx context.Context, auctionID string) error
}

// LifecycleScheduler sweeps the registry on a fixed cadence and drives the
// timed transitions. Every transition is a compare-and-set on the auction
// row, so overlapping sweeps and extra service instances are no-ops.
type LifecycleScheduler struct {
	store     SchedulerStore
	locks     AuctionLocker
	publisher service.Publisher
	interval  time.Duration
	logger    *zap.Logger
}

// NewLifecycleScheduler creates a new lifecycle scheduler
func NewLifecycleScheduler(store SchedulerStore, locks AuctionLocker, publisher service.Publisher, interval time.Duration) *LifecycleScheduler {
	return &LifecycleScheduler{
		store:     store,
		locks:     locks,
		publisher: publisher,
		interval:  interval,
		logger:    util.GetLogger(),
	}
}

// Run sweeps once immediately, then on every tick until the context is
// cancelled. The immediate sweep catches deadlines that passed while the
// process was down.
func (ls *LifecycleScheduler) Run(ctx context.Context) error {
	ls.logger.Info("Lifecycle scheduler started",
		zap.Duration("interval", ls.interval))

	ls.Sweep(ctx, time.Now())

	ticker := time.NewTicker(ls.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			ls.logger.Info("Lifecycle scheduler stopped")
			return ctx.Err()
		case now := <-ticker.C:
			ls.Sweep(ctx, now)
		}
	}
}

// Sweep runs one pass: start due pending auctions, end due active ones
func (ls *LifecycleScheduler) Sweep(ctx context.Context, now time.Time) {
	util.SweepRunsTotal.Inc()
	start := time.Now()
	defer func() {
		util.SweepLatency.Observe(time.Since(start).Seconds())
	}()

	ls.startDueAuctions(ctx, now)
	ls.endDueAuctions(ctx, now)
}

func (ls *LifecycleScheduler) startDueAuctions(ctx context.Context, now time.Time) {
	due, err := ls.store.ListDuePendingAuctions(ctx, now)
	if err != nil {
		util.SweepTransitionErrors.WithLabelValues("start").Inc()
		ls.logger.Error("Failed to list due pending auctions", zap.Error(err))
		return
	}

	for i := range due {
		auction := &due[i]

		fired, err := ls.store.MarkActive(ctx, auction.ID)
		if err != nil {
			util.SweepTransitionErrors.WithLabelValues("start").Inc()
			ls.logger.Error("Failed to activate auction",
				zap.String("auction_id", auction.ID),
				zap.Error(err))
			continue
		}
		if !fired {
			// Another sweep won the compare-and-set.
			continue
		}

		util.AuctionsStartedTotal.Inc()
		ls.logger.Info("Auction started", zap.String("auction_id", auction.ID))

		event := &models.AuctionStartedEvent{
			BaseEvent: baseEvent(models.EventTypeAuctionStarted),
			AuctionID: auction.ID,
			ItemName:  auction.ItemName,
		}
		if err := ls.publisher.PublishAuctionStarted(ctx, event); err != nil {
			ls.logger.Error("Failed to publish auctionStarted event", zap.Error(err))
		}
	}
}

func (ls *LifecycleScheduler) endDueAuctions(ctx context.Context, now time.Time) {
	due, err := ls.store.ListDueActiveAuctions(ctx, now)
	if err != nil {
		util.SweepTransitionErrors.WithLabelValues("end").Inc()
		ls.logger.Error("Failed to list due active auctions", zap.Error(err))
		return
	}

	for i := range due {
		ls.endAuction(ctx, &due[i])
	}
}

func (ls *LifecycleScheduler) endAuction(ctx context.Context, auction *models.Auction) {
	locked, err := ls.locks.AcquireAuctionLock(ctx, auction.ID, endLockTTL)
	if err != nil {
		util.SweepTransitionErrors.WithLabelValues("end").Inc()
		ls.logger.Error("Failed to acquire auction lock for end transition",
			zap.String("auction_id", auction.ID),
			zap.Error(err))
		return
	}
	if !locked {
		// A bid commit holds the auction. The next sweep ends it.
		return
	}
	defer func() {
		if err := ls.locks.ReleaseAuctionLock(ctx, auction.ID); err != nil {
			ls.logger.Error("Failed to release auction lock",
				zap.String("auction_id", auction.ID),
				zap.Error(err))
		}
	}()

	var (
		winnerID       *string
		finalPrice     *decimal.Decimal
		sellerDecision *string
	)

	highest, err := ls.store.GetHighestBid(ctx, auction.ID)
	switch {
	case err == nil:
		winnerID = &highest.BidderID
		finalPrice = &highest.Amount
		pending := models.SellerDecisionPending
		sellerDecision = &pending
	case errors.Is(err, store.ErrNoBids):
		// No bids: the auction ends with no winner and no decision owed.
	default:
		util.SweepTransitionErrors.WithLabelValues("end").Inc()
		ls.logger.Error("Failed to look up winning bid",
			zap.String("auction_id", auction.ID),
			zap.Error(err))
		return
	}

	fired, err := ls.store.MarkEnded(ctx, auction.ID, winnerID, finalPrice, sellerDecision)
	if err != nil {
		util.SweepTransitionErrors.WithLabelValues("end").Inc()
		ls.logger.Error("Failed to end auction",
			zap.String("auction_id", auction.ID),
			zap.Error(err))
		return
	}
	if !fired {
		return
	}

	util.AuctionsEndedTotal.Inc()
	ls.logger.Info("Auction ended",
		zap.String("auction_id", auction.ID),
		zap.Bool("has_winner", winnerID != nil))

	ended := &models.AuctionEndedEvent{
		BaseEvent:  baseEvent(models.EventTypeAuctionEnded),
		AuctionID:  auction.ID,
		ItemName:   auction.ItemName,
		WinnerID:   winnerID,
		FinalPrice: finalPrice,
	}
	if err := ls.publisher.PublishAuctionEnded(ctx, ended); err != nil {
		ls.logger.Error("Failed to publish auctionEnded event", zap.Error(err))
	}

	sellerEvent := &models.AuctionEndedSellerEvent{
		BaseEvent:  baseEvent(models.EventTypeAuctionEndedSeller),
		AuctionID:  auction.ID,
		ItemName:   auction.ItemName,
		FinalPrice: finalPrice,
		HasWinner:  winnerID != nil,
	}
	if err := ls.publisher.PublishAuctionEndedSeller(ctx, auction.SellerID, sellerEvent); err != nil {
		ls.logger.Error("Failed to publish auctionEndedSeller event", zap.Error(err))
	}

	if winnerID != nil {
		won := &models.AuctionWonEvent{
			BaseEvent:  baseEvent(models.EventTypeAuctionWon),
			AuctionID:  auction.ID,
			ItemName:   auction.ItemName,
			FinalPrice: *finalPrice,
		}
		if err := ls.publisher.PublishAuctionWon(ctx, *winnerID, won); err != nil {
			ls.logger.Error("Failed to publish auctionWon event", zap.Error(err))
		}
	}
}

func baseEvent(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now(),
	}
}
