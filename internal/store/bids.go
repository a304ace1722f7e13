package store

import (
	"context"
	"database/sql"
	"fmt"

	"auction-service/internal/models"
)

// CommitBid writes an accepted bid as one transaction: insert the new leading
// bid, clear the highest flag on every other bid of the auction, and bump the
// auction's current highest amount. The auction update only matches an active
// row, so a bid racing the end transition rolls back with ErrBiddingClosed
// instead of landing in the ledger after a winner was recorded.
func (s *Store) CommitBid(ctx context.Context, bid *models.Bid) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	row := tx.QueryRowxContext(ctx, `
		INSERT INTO bids (id, auction_id, bidder_id, amount, is_highest)
		VALUES ($1, $2, $3, $4, TRUE)
		RETURNING timestamp`,
		bid.ID, bid.AuctionID, bid.BidderID, bid.Amount)
	if err := row.Scan(&bid.Timestamp); err != nil {
		return fmt.Errorf("failed to insert bid: %w", err)
	}
	bid.IsHighest = true

	_, err = tx.ExecContext(ctx,
		"UPDATE bids SET is_highest = FALSE WHERE auction_id = $1 AND id <> $2",
		bid.AuctionID, bid.ID)
	if err != nil {
		return fmt.Errorf("failed to clear previous highest flag: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		"UPDATE auctions SET current_highest_bid = $1, updated_at = NOW() WHERE id = $2 AND status = $3",
		bid.Amount, bid.AuctionID, models.AuctionStatusActive)
	if err != nil {
		return fmt.Errorf("failed to update auction highest bid: %w", err)
	}
	stillActive, err := oneRowChanged(res)
	if err != nil {
		return err
	}
	if !stillActive {
		return fmt.Errorf("%w: %s", ErrBiddingClosed, bid.AuctionID)
	}

	return tx.Commit()
}

// GetHighestBid retrieves the current leading bid from the ledger
func (s *Store) GetHighestBid(ctx context.Context, auctionID string) (*models.Bid, error) {
	var bid models.Bid
	err := s.db.GetContext(ctx, &bid, `
		SELECT * FROM bids
		WHERE auction_id = $1 AND is_highest = TRUE
		ORDER BY timestamp DESC LIMIT 1`, auctionID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrNoBids, auctionID)
	}
	if err != nil {
		return nil, err
	}
	return &bid, nil
}

// ListBidsByAuction retrieves bids for an auction, newest first
func (s *Store) ListBidsByAuction(ctx context.Context, auctionID string, limit, offset int) ([]models.Bid, error) {
	var bids []models.Bid
	err := s.db.SelectContext(ctx, &bids, `
		SELECT * FROM bids
		WHERE auction_id = $1
		ORDER BY timestamp DESC LIMIT $2 OFFSET $3`, auctionID, limit, offset)
	return bids, err
}

// ListBidsByBidder retrieves all bids placed by a user, newest first
func (s *Store) ListBidsByBidder(ctx context.Context, bidderID string) ([]models.Bid, error) {
	var bids []models.Bid
	err := s.db.SelectContext(ctx, &bids,
		"SELECT * FROM bids WHERE bidder_id = $1 ORDER BY timestamp DESC", bidderID)
	return bids, err
}
