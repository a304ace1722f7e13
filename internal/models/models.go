package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Auction represents a timed auction listing
type Auction struct {
	ID                 string           `db:"id" json:"id"`
	ItemName           string           `db:"item_name" json:"item_name"`
	Description        string           `db:"description" json:"description"`
	StartingPrice      decimal.Decimal  `db:"starting_price" json:"starting_price"`
	BidIncrement       decimal.Decimal  `db:"bid_increment" json:"bid_increment"`
	CurrentHighestBid  decimal.Decimal  `db:"current_highest_bid" json:"current_highest_bid"`
	GoLiveDate         time.Time        `db:"go_live_date" json:"go_live_date"`
	DurationMinutes    int              `db:"duration_minutes" json:"duration_minutes"`
	EndDate            time.Time        `db:"end_date" json:"end_date"`
	Status             string           `db:"status" json:"status"`
	SellerID           string           `db:"seller_id" json:"seller_id"`
	WinnerID           *string          `db:"winner_id" json:"winner_id,omitempty"`
	FinalPrice         *decimal.Decimal `db:"final_price" json:"final_price,omitempty"`
	SellerDecision     *string          `db:"seller_decision" json:"seller_decision,omitempty"`
	CounterOfferAmount *decimal.Decimal `db:"counter_offer_amount" json:"counter_offer_amount,omitempty"`
	CounterOfferStatus *string          `db:"counter_offer_status" json:"counter_offer_status,omitempty"`
	CreatedAt          time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time        `db:"updated_at" json:"updated_at"`
}

// Bid represents a single accepted bid in the ledger
type Bid struct {
	ID        string          `db:"id" json:"id"`
	AuctionID string          `db:"auction_id" json:"auction_id"`
	BidderID  string          `db:"bidder_id" json:"bidder_id"`
	Amount    decimal.Decimal `db:"amount" json:"amount"`
	IsHighest bool            `db:"is_highest" json:"is_highest"`
	Timestamp time.Time       `db:"timestamp" json:"timestamp"`
}

// HighestBid is the cached leading-bid view for one auction. It is derived
// state: the ledger plus the starting price can always rebuild it.
type HighestBid struct {
	AuctionID string          `json:"auction_id"`
	Amount    decimal.Decimal `json:"amount"`
	BidderID  string          `json:"bidder_id,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Source    string          `json:"source,omitempty"`
}

// Auction statuses
const (
	AuctionStatusPending   = "pending"
	AuctionStatusActive    = "active"
	AuctionStatusEnded     = "ended"
	AuctionStatusCompleted = "completed"
	AuctionStatusCancelled = "cancelled"
)

// Seller decisions
const (
	SellerDecisionPending        = "pending"
	SellerDecisionAccepted       = "accepted"
	SellerDecisionRejected       = "rejected"
	SellerDecisionCounterOffered = "counter_offered"
)

// Counter-offer statuses
const (
	CounterOfferPending  = "pending"
	CounterOfferAccepted = "accepted"
	CounterOfferRejected = "rejected"
)

// User roles, trusted from the identity collaborator
const (
	RoleBuyer  = "buyer"
	RoleSeller = "seller"
	RoleAdmin  = "admin"
)

// Highest-bid sources reported by the highest-bid lookup
const (
	HighestBidSourceCache         = "cache"
	HighestBidSourceLedger        = "ledger"
	HighestBidSourceStartingPrice = "starting_price"
)

// IsBiddingOpen reports whether a bid may be accepted at the given instant.
func (a *Auction) IsBiddingOpen(now time.Time) bool {
	return a.Status == AuctionStatusActive &&
		!now.Before(a.GoLiveDate) && !now.After(a.EndDate)
}

// HasPendingCounterOffer reports whether the winner still owes a response.
func (a *Auction) HasPendingCounterOffer() bool {
	return a.SellerDecision != nil && *a.SellerDecision == SellerDecisionCounterOffered &&
		a.CounterOfferStatus != nil && *a.CounterOfferStatus == CounterOfferPending
}

// MinimumNextBid is the lowest amount the arbiter may accept given the
// current leading amount.
func MinimumNextBid(current, increment decimal.Decimal) decimal.Decimal {
	return current.Add(increment)
}
