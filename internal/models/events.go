package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event types
const (
	EventTypeAuctionStarted       = "auctionStarted"
	EventTypeNewBid               = "newBid"
	EventTypeOutbid               = "outbid"
	EventTypeNewBidOnAuction      = "newBidOnAuction"
	EventTypeAuctionEnded         = "auctionEnded"
	EventTypeAuctionEndedSeller   = "auctionEndedSeller"
	EventTypeAuctionWon           = "auctionWon"
	EventTypeSellerDecision       = "sellerDecision"
	EventTypeCounterOfferResponse = "counterOfferResponse"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// AuctionStartedEvent published when a pending auction goes live
type AuctionStartedEvent struct {
	BaseEvent
	AuctionID string `json:"auction_id"`
	ItemName  string `json:"item_name"`
}

// NewBidEvent published to the auction topic on every accepted bid
type NewBidEvent struct {
	BaseEvent
	AuctionID string          `json:"auction_id"`
	BidID     string          `json:"bid_id"`
	BidderID  string          `json:"bidder_id"`
	Amount    decimal.Decimal `json:"amount"`
}

// OutbidEvent published to the previous leading bidder's user topic
type OutbidEvent struct {
	BaseEvent
	AuctionID    string          `json:"auction_id"`
	ItemName     string          `json:"item_name"`
	NewBidAmount decimal.Decimal `json:"new_bid_amount"`
}

// NewBidOnAuctionEvent published to the seller's user topic
type NewBidOnAuctionEvent struct {
	BaseEvent
	AuctionID string          `json:"auction_id"`
	ItemName  string          `json:"item_name"`
	BidderID  string          `json:"bidder_id"`
	Amount    decimal.Decimal `json:"amount"`
}

// AuctionEndedEvent published to the auction topic when bidding closes
type AuctionEndedEvent struct {
	BaseEvent
	AuctionID  string           `json:"auction_id"`
	ItemName   string           `json:"item_name"`
	WinnerID   *string          `json:"winner_id,omitempty"`
	FinalPrice *decimal.Decimal `json:"final_price,omitempty"`
}

// AuctionEndedSellerEvent published to the seller's user topic when bidding closes
type AuctionEndedSellerEvent struct {
	BaseEvent
	AuctionID  string           `json:"auction_id"`
	ItemName   string           `json:"item_name"`
	FinalPrice *decimal.Decimal `json:"final_price,omitempty"`
	HasWinner  bool             `json:"has_winner"`
}

// AuctionWonEvent published to the winner's user topic
type AuctionWonEvent struct {
	BaseEvent
	AuctionID  string          `json:"auction_id"`
	ItemName   string          `json:"item_name"`
	FinalPrice decimal.Decimal `json:"final_price"`
}

// SellerDecisionEvent published to the auction topic after the seller decides
type SellerDecisionEvent struct {
	BaseEvent
	AuctionID          string           `json:"auction_id"`
	Decision           string           `json:"decision"`
	CounterOfferAmount *decimal.Decimal `json:"counter_offer_amount,omitempty"`
}

// CounterOfferResponseEvent published to the auction topic after the winner responds
type CounterOfferResponseEvent struct {
	BaseEvent
	AuctionID  string           `json:"auction_id"`
	Response   string           `json:"response"`
	FinalPrice *decimal.Decimal `json:"final_price,omitempty"`
}
