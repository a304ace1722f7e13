package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"auction-service/internal/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
)

var (
	ErrAuctionNotFound = errors.New("auction not found")
	ErrNoBids          = errors.New("no bids for auction")
	ErrBiddingClosed   = errors.New("auction is no longer accepting bids")
)

type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *Store) GetDB() *sqlx.DB {
	return s.db
}

// CreateAuction inserts a new auction row
func (s *Store) CreateAuction(ctx context.Context, auction *models.Auction) error {
	query := `
		INSERT INTO auctions (
			id, item_name, description, starting_price, bid_increment,
			current_highest_bid, go_live_date, duration_minutes, end_date,
			status, seller_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at`

	row := s.db.QueryRowxContext(ctx, query,
		auction.ID, auction.ItemName, auction.Description,
		auction.StartingPrice, auction.BidIncrement, auction.CurrentHighestBid,
		auction.GoLiveDate, auction.DurationMinutes, auction.EndDate,
		auction.Status, auction.SellerID)
	return row.Scan(&auction.CreatedAt, &auction.UpdatedAt)
}

// GetAuctionByID retrieves an auction by ID
func (s *Store) GetAuctionByID(ctx context.Context, id string) (*models.Auction, error) {
	var auction models.Auction
	err := s.db.GetContext(ctx, &auction, "SELECT * FROM auctions WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrAuctionNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &auction, nil
}

// ListAuctions retrieves all auctions, newest first
func (s *Store) ListAuctions(ctx context.Context) ([]models.Auction, error) {
	var auctions []models.Auction
	err := s.db.SelectContext(ctx, &auctions,
		"SELECT * FROM auctions ORDER BY created_at DESC")
	return auctions, err
}

// ListAuctionsBySeller retrieves auctions listed by a seller
func (s *Store) ListAuctionsBySeller(ctx context.Context, sellerID string) ([]models.Auction, error) {
	var auctions []models.Auction
	err := s.db.SelectContext(ctx, &auctions,
		"SELECT * FROM auctions WHERE seller_id = $1 ORDER BY created_at DESC", sellerID)
	return auctions, err
}

// ListAuctionsByWinner retrieves auctions won by a user
func (s *Store) ListAuctionsByWinner(ctx context.Context, winnerID string) ([]models.Auction, error) {
	var auctions []models.Auction
	err := s.db.SelectContext(ctx, &auctions,
		"SELECT * FROM auctions WHERE winner_id = $1 ORDER BY created_at DESC", winnerID)
	return auctions, err
}

// ListDuePendingAuctions retrieves pending auctions whose go-live time has passed
func (s *Store) ListDuePendingAuctions(ctx context.Context, now time.Time) ([]models.Auction, error) {
	var auctions []models.Auction
	err := s.db.SelectContext(ctx, &auctions,
		"SELECT * FROM auctions WHERE status = $1 AND go_live_date <= $2",
		models.AuctionStatusPending, now)
	return auctions, err
}

// ListDueActiveAuctions retrieves active auctions whose end time has passed
func (s *Store) ListDueActiveAuctions(ctx context.Context, now time.Time) ([]models.Auction, error) {
	var auctions []models.Auction
	err := s.db.SelectContext(ctx, &auctions,
		"SELECT * FROM auctions WHERE status = $1 AND end_date <= $2",
		models.AuctionStatusActive, now)
	return auctions, err
}

// ListOpenAuctions retrieves auctions still accepting or awaiting bids
func (s *Store) ListOpenAuctions(ctx context.Context) ([]models.Auction, error) {
	var auctions []models.Auction
	err := s.db.SelectContext(ctx, &auctions,
		"SELECT * FROM auctions WHERE status IN ($1, $2)",
		models.AuctionStatusPending, models.AuctionStatusActive)
	return auctions, err
}

// MarkActive transitions pending -> active. Returns true only for the caller
// whose update actually flipped the row, so the transition fires exactly once
// under concurrent sweeps.
func (s *Store) MarkActive(ctx context.Context, auctionID string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE auctions SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3",
		models.AuctionStatusActive, auctionID, models.AuctionStatusPending)
	if err != nil {
		return false, err
	}
	return oneRowChanged(res)
}

// MarkEnded transitions active -> ended, recording the winner and final price
// when a leading bid exists. Same compare-and-set discipline as MarkActive.
func (s *Store) MarkEnded(ctx context.Context, auctionID string, winnerID *string, finalPrice *decimal.Decimal, sellerDecision *string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE auctions
		SET status = $1, winner_id = $2, final_price = $3, seller_decision = $4, updated_at = NOW()
		WHERE id = $5 AND status = $6`,
		models.AuctionStatusEnded, winnerID, finalPrice, sellerDecision,
		auctionID, models.AuctionStatusActive)
	if err != nil {
		return false, err
	}
	return oneRowChanged(res)
}

// AcceptSellerDecision finalizes an ended auction at the current highest bid.
func (s *Store) AcceptSellerDecision(ctx context.Context, auctionID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE auctions
		SET status = $1, seller_decision = $2, final_price = current_highest_bid, updated_at = NOW()
		WHERE id = $3 AND status = $4 AND seller_decision = $5`,
		models.AuctionStatusCompleted, models.SellerDecisionAccepted,
		auctionID, models.AuctionStatusEnded, models.SellerDecisionPending)
	if err != nil {
		return false, err
	}
	return oneRowChanged(res)
}

// RejectSellerDecision records a rejection; the auction stays ended.
func (s *Store) RejectSellerDecision(ctx context.Context, auctionID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE auctions
		SET seller_decision = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3 AND seller_decision = $4`,
		models.SellerDecisionRejected,
		auctionID, models.AuctionStatusEnded, models.SellerDecisionPending)
	if err != nil {
		return false, err
	}
	return oneRowChanged(res)
}

// RecordCounterOffer records a counter-offer awaiting the winner's response.
func (s *Store) RecordCounterOffer(ctx context.Context, auctionID string, amount decimal.Decimal) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE auctions
		SET seller_decision = $1, counter_offer_amount = $2, counter_offer_status = $3, updated_at = NOW()
		WHERE id = $4 AND status = $5 AND seller_decision = $6`,
		models.SellerDecisionCounterOffered, amount, models.CounterOfferPending,
		auctionID, models.AuctionStatusEnded, models.SellerDecisionPending)
	if err != nil {
		return false, err
	}
	return oneRowChanged(res)
}

// AcceptCounterOffer finalizes an ended auction at the counter-offer amount.
func (s *Store) AcceptCounterOffer(ctx context.Context, auctionID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE auctions
		SET status = $1, counter_offer_status = $2, final_price = counter_offer_amount, updated_at = NOW()
		WHERE id = $3 AND status = $4 AND seller_decision = $5 AND counter_offer_status = $6`,
		models.AuctionStatusCompleted, models.CounterOfferAccepted,
		auctionID, models.AuctionStatusEnded, models.SellerDecisionCounterOffered,
		models.CounterOfferPending)
	if err != nil {
		return false, err
	}
	return oneRowChanged(res)
}

// RejectCounterOffer records the winner's rejection; the auction stays ended.
func (s *Store) RejectCounterOffer(ctx context.Context, auctionID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE auctions
		SET counter_offer_status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3 AND seller_decision = $4 AND counter_offer_status = $5`,
		models.CounterOfferRejected,
		auctionID, models.AuctionStatusEnded, models.SellerDecisionCounterOffered,
		models.CounterOfferPending)
	if err != nil {
		return false, err
	}
	return oneRowChanged(res)
}

// OverrideStatus applies an administrative status change unconditionally
func (s *Store) OverrideStatus(ctx context.Context, auctionID, status string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE auctions SET status = $1, updated_at = NOW() WHERE id = $2",
		status, auctionID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrAuctionNotFound, auctionID)
	}
	return nil
}

func oneRowChanged(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
