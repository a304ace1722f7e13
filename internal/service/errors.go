package service

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// RejectReason is the machine-readable code attached to a bid rejection
type RejectReason string

const (
	RejectNotFound        RejectReason = "not_found"
	RejectNotActive       RejectReason = "not_active"
	RejectSellerCannotBid RejectReason = "seller_cannot_bid"
	RejectBidTooLow       RejectReason = "bid_too_low"
	RejectTryAgain        RejectReason = "try_again"
)

// BidRejection is a business rejection of a bid proposal. CurrentPrice and
// MinimumBid carry the state the caller needs to resubmit without a refetch.
type BidRejection struct {
	Reason       RejectReason
	CurrentPrice decimal.Decimal
	MinimumBid   decimal.Decimal
}

func (r *BidRejection) Error() string {
	switch r.Reason {
	case RejectBidTooLow:
		return fmt.Sprintf("bid rejected (%s): minimum bid is %s", r.Reason, r.MinimumBid.StringFixed(2))
	default:
		return fmt.Sprintf("bid rejected (%s)", r.Reason)
	}
}

// StateConflictError reports an action that is invalid for the auction's
// current lifecycle state, with that state disclosed.
type StateConflictError struct {
	Op      string
	Current string
}

func (e *StateConflictError) Error() string {
	return fmt.Sprintf("%s not allowed: auction is %s", e.Op, e.Current)
}

// Authorization and validation errors
var (
	ErrNotSeller     = errors.New("actor is not the auction's seller")
	ErrNotWinner     = errors.New("actor is not the auction's winner")
	ErrNotAuthorized = errors.New("actor is not authorized")
	ErrInvalidInput  = errors.New("invalid input")
)
