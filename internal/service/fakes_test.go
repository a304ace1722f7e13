package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"auction-service/internal/models"
	"auction-service/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// fakeRegistry is an in-memory Registry honoring the same compare-and-set
// semantics as the SQL store.
type fakeRegistry struct {
	mu       sync.Mutex
	auctions map[string]*models.Auction
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{auctions: make(map[string]*models.Auction)}
}

func (r *fakeRegistry) put(a *models.Auction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *a
	r.auctions[a.ID] = &cp
}

func (r *fakeRegistry) CreateAuction(_ context.Context, auction *models.Auction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	auction.CreatedAt = time.Now()
	auction.UpdatedAt = auction.CreatedAt
	cp := *auction
	r.auctions[auction.ID] = &cp
	return nil
}

func (r *fakeRegistry) GetAuctionByID(_ context.Context, id string) (*models.Auction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.auctions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", store.ErrAuctionNotFound, id)
	}
	cp := *a
	return &cp, nil
}

func (r *fakeRegistry) ListAuctions(_ context.Context) ([]models.Auction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Auction, 0, len(r.auctions))
	for _, a := range r.auctions {
		out = append(out, *a)
	}
	return out, nil
}

func (r *fakeRegistry) ListAuctionsBySeller(_ context.Context, sellerID string) ([]models.Auction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Auction
	for _, a := range r.auctions {
		if a.SellerID == sellerID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (r *fakeRegistry) ListAuctionsByWinner(_ context.Context, winnerID string) ([]models.Auction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Auction
	for _, a := range r.auctions {
		if a.WinnerID != nil && *a.WinnerID == winnerID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (r *fakeRegistry) ListOpenAuctions(_ context.Context) ([]models.Auction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Auction
	for _, a := range r.auctions {
		if a.Status == models.AuctionStatusPending || a.Status == models.AuctionStatusActive {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (r *fakeRegistry) OverrideStatus(_ context.Context, auctionID, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.auctions[auctionID]
	if !ok {
		return fmt.Errorf("%w: %s", store.ErrAuctionNotFound, auctionID)
	}
	a.Status = status
	return nil
}

func (r *fakeRegistry) AcceptSellerDecision(_ context.Context, auctionID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.auctions[auctionID]
	if !ok || a.Status != models.AuctionStatusEnded ||
		a.SellerDecision == nil || *a.SellerDecision != models.SellerDecisionPending {
		return false, nil
	}
	accepted := models.SellerDecisionAccepted
	price := a.CurrentHighestBid
	a.Status = models.AuctionStatusCompleted
	a.SellerDecision = &accepted
	a.FinalPrice = &price
	return true, nil
}

func (r *fakeRegistry) RejectSellerDecision(_ context.Context, auctionID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.auctions[auctionID]
	if !ok || a.Status != models.AuctionStatusEnded ||
		a.SellerDecision == nil || *a.SellerDecision != models.SellerDecisionPending {
		return false, nil
	}
	rejected := models.SellerDecisionRejected
	a.SellerDecision = &rejected
	return true, nil
}

func (r *fakeRegistry) RecordCounterOffer(_ context.Context, auctionID string, amount decimal.Decimal) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.auctions[auctionID]
	if !ok || a.Status != models.AuctionStatusEnded ||
		a.SellerDecision == nil || *a.SellerDecision != models.SellerDecisionPending {
		return false, nil
	}
	countered := models.SellerDecisionCounterOffered
	pending := models.CounterOfferPending
	a.SellerDecision = &countered
	a.CounterOfferAmount = &amount
	a.CounterOfferStatus = &pending
	return true, nil
}

func (r *fakeRegistry) AcceptCounterOffer(_ context.Context, auctionID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.auctions[auctionID]
	if !ok || !a.HasPendingCounterOffer() {
		return false, nil
	}
	accepted := models.CounterOfferAccepted
	a.Status = models.AuctionStatusCompleted
	a.CounterOfferStatus = &accepted
	a.FinalPrice = a.CounterOfferAmount
	return true, nil
}

func (r *fakeRegistry) RejectCounterOffer(_ context.Context, auctionID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.auctions[auctionID]
	if !ok || !a.HasPendingCounterOffer() {
		return false, nil
	}
	rejected := models.CounterOfferRejected
	a.CounterOfferStatus = &rejected
	return true, nil
}

// fakeLedger is an in-memory bid ledger. When it carries a registry reference
// it refuses commits on non-active auctions, like the conditional update in
// the SQL transaction.
type fakeLedger struct {
	mu       sync.Mutex
	bids     []models.Bid
	failTx   bool
	registry *fakeRegistry
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{}
}

func (l *fakeLedger) CommitBid(ctx context.Context, bid *models.Bid) error {
	if l.registry != nil {
		auction, err := l.registry.GetAuctionByID(ctx, bid.AuctionID)
		if err != nil {
			return err
		}
		if auction.Status != models.AuctionStatusActive {
			return fmt.Errorf("%w: %s", store.ErrBiddingClosed, bid.AuctionID)
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failTx {
		return fmt.Errorf("ledger unavailable")
	}
	bid.Timestamp = time.Now()
	bid.IsHighest = true
	for i := range l.bids {
		if l.bids[i].AuctionID == bid.AuctionID {
			l.bids[i].IsHighest = false
		}
	}
	l.bids = append(l.bids, *bid)
	return nil
}

func (l *fakeLedger) GetHighestBid(_ context.Context, auctionID string) (*models.Bid, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := len(l.bids) - 1; i >= 0; i-- {
		if l.bids[i].AuctionID == auctionID && l.bids[i].IsHighest {
			cp := l.bids[i]
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", store.ErrNoBids, auctionID)
}

func (l *fakeLedger) ListBidsByAuction(_ context.Context, auctionID string, limit, offset int) ([]models.Bid, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []models.Bid
	for i := len(l.bids) - 1; i >= 0; i-- {
		if l.bids[i].AuctionID == auctionID {
			out = append(out, l.bids[i])
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (l *fakeLedger) ListBidsByBidder(_ context.Context, bidderID string) ([]models.Bid, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []models.Bid
	for i := len(l.bids) - 1; i >= 0; i-- {
		if l.bids[i].BidderID == bidderID {
			out = append(out, l.bids[i])
		}
	}
	return out, nil
}

// fakeCache mirrors the Redis cache semantics, including the atomic
// compare-and-set commit and the SetNX lock.
type fakeCache struct {
	mu        sync.Mutex
	entries   map[string]*models.HighestBid
	locks     map[string]bool
	lockBusy  bool
	readErr   error
	commitErr error
}

func newFakeCache() *fakeCache {
	return &fakeCache{
		entries: make(map[string]*models.HighestBid),
		locks:   make(map[string]bool),
	}
}

func (c *fakeCache) GetHighestBid(_ context.Context, auctionID string) (*models.HighestBid, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.readErr != nil {
		return nil, c.readErr
	}
	entry, ok := c.entries[auctionID]
	if !ok {
		return nil, nil
	}
	cp := *entry
	return &cp, nil
}

func (c *fakeCache) CommitHighestBid(_ context.Context, auctionID string, amount, increment, startingPrice decimal.Decimal, bidderID string, ts time.Time) (bool, decimal.Decimal, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.commitErr != nil {
		return false, decimal.Zero, c.commitErr
	}
	current := startingPrice
	if entry, ok := c.entries[auctionID]; ok {
		current = entry.Amount
	}
	if amount.LessThan(current.Add(increment)) {
		return false, current, nil
	}
	c.entries[auctionID] = &models.HighestBid{
		AuctionID: auctionID,
		Amount:    amount,
		BidderID:  bidderID,
		Timestamp: ts,
		Source:    models.HighestBidSourceCache,
	}
	return true, amount, nil
}

func (c *fakeCache) SetHighestBid(_ context.Context, auctionID string, amount decimal.Decimal, bidderID string, ts time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[auctionID] = &models.HighestBid{
		AuctionID: auctionID,
		Amount:    amount,
		BidderID:  bidderID,
		Timestamp: ts,
		Source:    models.HighestBidSourceCache,
	}
	return nil
}

func (c *fakeCache) DeleteHighestBid(_ context.Context, auctionID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, auctionID)
	return nil
}

func (c *fakeCache) AcquireAuctionLock(_ context.Context, auctionID string, _ time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lockBusy || c.locks[auctionID] {
		return false, nil
	}
	c.locks[auctionID] = true
	return true, nil
}

func (c *fakeCache) ReleaseAuctionLock(_ context.Context, auctionID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.locks, auctionID)
	return nil
}

// fakePublisher records every published event in order
type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

type publishedEvent struct {
	eventType string
	topic     string
	payload   interface{}
}

func newFakePublisher() *fakePublisher {
	return &fakePublisher{}
}

func (p *fakePublisher) record(eventType, topic string, payload interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{eventType: eventType, topic: topic, payload: payload})
}

func (p *fakePublisher) byType(eventType string) []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []publishedEvent
	for _, e := range p.events {
		if e.eventType == eventType {
			out = append(out, e)
		}
	}
	return out
}

func (p *fakePublisher) PublishAuctionStarted(_ context.Context, event *models.AuctionStartedEvent) error {
	p.record(event.EventType, "auction:"+event.AuctionID, event)
	return nil
}

func (p *fakePublisher) PublishNewBid(_ context.Context, event *models.NewBidEvent) error {
	p.record(event.EventType, "auction:"+event.AuctionID, event)
	return nil
}

func (p *fakePublisher) PublishOutbid(_ context.Context, userID string, event *models.OutbidEvent) error {
	p.record(event.EventType, "user:"+userID, event)
	return nil
}

func (p *fakePublisher) PublishNewBidOnAuction(_ context.Context, sellerID string, event *models.NewBidOnAuctionEvent) error {
	p.record(event.EventType, "user:"+sellerID, event)
	return nil
}

func (p *fakePublisher) PublishAuctionEnded(_ context.Context, event *models.AuctionEndedEvent) error {
	p.record(event.EventType, "auction:"+event.AuctionID, event)
	return nil
}

func (p *fakePublisher) PublishAuctionEndedSeller(_ context.Context, sellerID string, event *models.AuctionEndedSellerEvent) error {
	p.record(event.EventType, "user:"+sellerID, event)
	return nil
}

func (p *fakePublisher) PublishAuctionWon(_ context.Context, winnerID string, event *models.AuctionWonEvent) error {
	p.record(event.EventType, "user:"+winnerID, event)
	return nil
}

func (p *fakePublisher) PublishSellerDecision(_ context.Context, event *models.SellerDecisionEvent) error {
	p.record(event.EventType, "auction:"+event.AuctionID, event)
	return nil
}

func (p *fakePublisher) PublishCounterOfferResponse(_ context.Context, event *models.CounterOfferResponseEvent) error {
	p.record(event.EventType, "auction:"+event.AuctionID, event)
	return nil
}

// activeAuction builds an auction currently open for bidding
func activeAuction(sellerID string, startingPrice, increment int64) *models.Auction {
	now := time.Now()
	return &models.Auction{
		ID:                uuid.New().String(),
		ItemName:          "vintage camera",
		StartingPrice:     decimal.NewFromInt(startingPrice),
		BidIncrement:      decimal.NewFromInt(increment),
		CurrentHighestBid: decimal.NewFromInt(startingPrice),
		GoLiveDate:        now.Add(-time.Minute),
		DurationMinutes:   10,
		EndDate:           now.Add(9 * time.Minute),
		Status:            models.AuctionStatusActive,
		SellerID:          sellerID,
		CreatedAt:         now.Add(-2 * time.Minute),
	}
}

// endedAuction builds an auction awaiting the seller's decision
func endedAuction(sellerID, winnerID string, highestBid int64) *models.Auction {
	now := time.Now()
	pending := models.SellerDecisionPending
	price := decimal.NewFromInt(highestBid)
	return &models.Auction{
		ID:                uuid.New().String(),
		ItemName:          "vintage camera",
		StartingPrice:     decimal.NewFromInt(100),
		BidIncrement:      decimal.NewFromInt(10),
		CurrentHighestBid: price,
		GoLiveDate:        now.Add(-time.Hour),
		DurationMinutes:   10,
		EndDate:           now.Add(-50 * time.Minute),
		Status:            models.AuctionStatusEnded,
		SellerID:          sellerID,
		WinnerID:          &winnerID,
		FinalPrice:        &price,
		SellerDecision:    &pending,
		CreatedAt:         now.Add(-2 * time.Hour),
	}
}
