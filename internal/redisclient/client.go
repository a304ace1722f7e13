package redisclient

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"auction-service/internal/models"

	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
)

//go:embed scripts/commit_highest_bid.lua
var commitHighestBidScript string

type Client struct {
	rdb          *redis.Client
	commitScript *redis.Script
}

// NewClient creates a new Redis client with the commit script loaded
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{
		rdb:          rdb,
		commitScript: redis.NewScript(commitHighestBidScript),
	}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func highestBidKey(auctionID string) string {
	return fmt.Sprintf("auction:%s:highest_bid", auctionID)
}

// Amounts are stored as integer cents so the script's numeric comparison is
// exact rather than floating point.
func toCents(amount decimal.Decimal) string {
	return amount.Shift(2).String()
}

func fromCents(cents string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(cents)
	if err != nil {
		return decimal.Zero, err
	}
	return d.Shift(-2), nil
}

// CommitHighestBid atomically installs a new leading bid for an auction.
// The Lua script re-validates the proposal against the live cache value, so a
// proposal that lost a concurrent race comes back with ok=false and the amount
// it lost to.
func (c *Client) CommitHighestBid(ctx context.Context, auctionID string, amount, increment, startingPrice decimal.Decimal, bidderID string, ts time.Time) (bool, decimal.Decimal, error) {
	key := highestBidKey(auctionID)

	result, err := c.commitScript.Run(ctx, c.rdb, []string{key},
		toCents(amount), toCents(increment), toCents(startingPrice),
		bidderID, ts.UTC().Format(time.RFC3339Nano)).Result()
	if err != nil {
		return false, decimal.Zero, fmt.Errorf("commit highest bid script failed: %w", err)
	}

	reply, ok := result.([]interface{})
	if !ok || len(reply) != 2 {
		return false, decimal.Zero, fmt.Errorf("unexpected script result: %v", result)
	}

	committed, ok := reply[0].(int64)
	if !ok {
		return false, decimal.Zero, fmt.Errorf("unexpected script result type: %T", reply[0])
	}

	current, err := fromCents(fmt.Sprintf("%v", reply[1]))
	if err != nil {
		return false, decimal.Zero, fmt.Errorf("bad amount in script result: %w", err)
	}

	return committed == 1, current, nil
}

// GetHighestBid retrieves the cached leading bid for an auction.
// Returns (nil, nil) when no cache entry exists.
func (c *Client) GetHighestBid(ctx context.Context, auctionID string) (*models.HighestBid, error) {
	result, err := c.rdb.HGetAll(ctx, highestBidKey(auctionID)).Result()
	if err != nil {
		return nil, err
	}
	if len(result) == 0 {
		return nil, nil
	}

	amount, err := fromCents(result["amount_cents"])
	if err != nil {
		return nil, fmt.Errorf("bad cached amount for auction %s: %w", auctionID, err)
	}

	entry := &models.HighestBid{
		AuctionID: auctionID,
		Amount:    amount,
		BidderID:  result["bidder_id"],
		Source:    models.HighestBidSourceCache,
	}
	if ts, err := time.Parse(time.RFC3339Nano, result["ts"]); err == nil {
		entry.Timestamp = ts
	}
	return entry, nil
}

// SetHighestBid overwrites the cache entry. Used to seed a new auction at its
// starting price (empty bidder) and to rebuild a lost entry from the ledger.
func (c *Client) SetHighestBid(ctx context.Context, auctionID string, amount decimal.Decimal, bidderID string, ts time.Time) error {
	key := highestBidKey(auctionID)

	pipe := c.rdb.Pipeline()
	pipe.HSet(ctx, key, "amount_cents", toCents(amount))
	pipe.HSet(ctx, key, "bidder_id", bidderID)
	pipe.HSet(ctx, key, "ts", ts.UTC().Format(time.RFC3339Nano))

	_, err := pipe.Exec(ctx)
	return err
}

// DeleteHighestBid drops the cache entry. The cache is derived state, so a
// dropped entry is rebuilt from the ledger on the next lookup.
func (c *Client) DeleteHighestBid(ctx context.Context, auctionID string) error {
	return c.rdb.Del(ctx, highestBidKey(auctionID)).Err()
}

// AcquireAuctionLock acquires the per-auction commit lock
func (c *Client) AcquireAuctionLock(ctx context.Context, auctionID string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, fmt.Sprintf("lock:auction:%s", auctionID), "1", ttl).Result()
}

// ReleaseAuctionLock releases the per-auction commit lock
func (c *Client) ReleaseAuctionLock(ctx context.Context, auctionID string) error {
	return c.rdb.Del(ctx, fmt.Sprintf("lock:auction:%s", auctionID)).Err()
}
