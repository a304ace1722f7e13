package service

import (
	"context"
	"fmt"

	"auction-service/internal/models"
	"auction-service/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// NegotiationService coordinates the post-auction seller decision and the
// winner's counter-offer response. Every mutation is a conditional update
// keyed on the expected prior state, so a conflicting call changes nothing.
type NegotiationService struct {
	registry  Registry
	publisher Publisher
	logger    *zap.Logger
}

// NewNegotiationService creates a new negotiation service
func NewNegotiationService(registry Registry, publisher Publisher) *NegotiationService {
	return &NegotiationService{
		registry:  registry,
		publisher: publisher,
		logger:    util.GetLogger(),
	}
}

// RecordSellerDecision applies the seller's accept/reject/counter decision on
// an ended auction.
func (s *NegotiationService) RecordSellerDecision(ctx context.Context, auctionID, actorID, role, decision string, counterAmount *decimal.Decimal) (*models.Auction, error) {
	ctx, span := util.StartSpan(ctx, "NegotiationService.RecordSellerDecision")
	defer span.End()

	auction, err := s.registry.GetAuctionByID(ctx, auctionID)
	if err != nil {
		return nil, err
	}

	if auction.SellerID != actorID && role != models.RoleAdmin {
		return nil, ErrNotSeller
	}
	if auction.Status != models.AuctionStatusEnded {
		return nil, &StateConflictError{Op: "seller decision", Current: auction.Status}
	}

	var applied bool
	switch decision {
	case models.SellerDecisionAccepted:
		applied, err = s.registry.AcceptSellerDecision(ctx, auctionID)
		if applied {
			util.AuctionsCompletedTotal.Inc()
		}
	case models.SellerDecisionRejected:
		applied, err = s.registry.RejectSellerDecision(ctx, auctionID)
	case models.SellerDecisionCounterOffered:
		if counterAmount == nil || !counterAmount.IsPositive() {
			return nil, fmt.Errorf("%w: counter offer requires a positive amount", ErrInvalidInput)
		}
		applied, err = s.registry.RecordCounterOffer(ctx, auctionID, *counterAmount)
	default:
		return nil, fmt.Errorf("%w: unknown decision %q", ErrInvalidInput, decision)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to record seller decision: %w", err)
	}
	if !applied {
		// The row no longer matched the expected state: either no winner was
		// ever recorded or a decision already landed.
		return nil, &StateConflictError{Op: "seller decision", Current: describeDecision(auction)}
	}

	updated, err := s.registry.GetAuctionByID(ctx, auctionID)
	if err != nil {
		return nil, err
	}

	event := &models.SellerDecisionEvent{
		BaseEvent:          newBaseEvent(models.EventTypeSellerDecision),
		AuctionID:          auctionID,
		Decision:           decision,
		CounterOfferAmount: counterAmount,
	}
	if err := s.publisher.PublishSellerDecision(ctx, event); err != nil {
		s.logger.Error("Failed to publish sellerDecision event", zap.Error(err))
	}

	s.logger.Info("Seller decision recorded",
		zap.String("auction_id", auctionID),
		zap.String("decision", decision))
	return updated, nil
}

// RecordCounterResponse applies the winner's response to a pending
// counter-offer.
func (s *NegotiationService) RecordCounterResponse(ctx context.Context, auctionID, actorID, response string) (*models.Auction, error) {
	ctx, span := util.StartSpan(ctx, "NegotiationService.RecordCounterResponse")
	defer span.End()

	auction, err := s.registry.GetAuctionByID(ctx, auctionID)
	if err != nil {
		return nil, err
	}

	if auction.WinnerID == nil || *auction.WinnerID != actorID {
		return nil, ErrNotWinner
	}
	if !auction.HasPendingCounterOffer() {
		return nil, &StateConflictError{Op: "counter-offer response", Current: describeDecision(auction)}
	}

	var applied bool
	switch response {
	case models.CounterOfferAccepted:
		applied, err = s.registry.AcceptCounterOffer(ctx, auctionID)
		if applied {
			util.AuctionsCompletedTotal.Inc()
		}
	case models.CounterOfferRejected:
		applied, err = s.registry.RejectCounterOffer(ctx, auctionID)
	default:
		return nil, fmt.Errorf("%w: unknown response %q", ErrInvalidInput, response)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to record counter response: %w", err)
	}
	if !applied {
		return nil, &StateConflictError{Op: "counter-offer response", Current: describeDecision(auction)}
	}

	updated, err := s.registry.GetAuctionByID(ctx, auctionID)
	if err != nil {
		return nil, err
	}

	event := &models.CounterOfferResponseEvent{
		BaseEvent:  newBaseEvent(models.EventTypeCounterOfferResponse),
		AuctionID:  auctionID,
		Response:   response,
		FinalPrice: updated.FinalPrice,
	}
	if err := s.publisher.PublishCounterOfferResponse(ctx, event); err != nil {
		s.logger.Error("Failed to publish counterOfferResponse event", zap.Error(err))
	}

	s.logger.Info("Counter-offer response recorded",
		zap.String("auction_id", auctionID),
		zap.String("response", response))
	return updated, nil
}

func describeDecision(auction *models.Auction) string {
	state := auction.Status
	if auction.SellerDecision != nil {
		state = fmt.Sprintf("%s (seller decision %s)", state, *auction.SellerDecision)
	}
	if auction.CounterOfferStatus != nil {
		state = fmt.Sprintf("%s (counter offer %s)", state, *auction.CounterOfferStatus)
	}
	return state
}
