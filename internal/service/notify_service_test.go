package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"auction-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNoticePublisher struct {
	mu      sync.Mutex
	notices []*Notice
	keys    []string
	fail    bool
}

func (p *fakeNoticePublisher) PublishEvent(_ context.Context, key string, event interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return fmt.Errorf("broker unavailable")
	}
	p.notices = append(p.notices, event.(*Notice))
	p.keys = append(p.keys, key)
	return nil
}

func (p *fakeNoticePublisher) forRecipient(recipientID string) []*Notice {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []*Notice
	for _, n := range p.notices {
		if n.RecipientID == recipientID {
			out = append(out, n)
		}
	}
	return out
}

func TestAuctionEndedNoticesSellerAndWinner(t *testing.T) {
	registry := newFakeRegistry()
	notices := &fakeNoticePublisher{}
	auction := endedAuction("seller-1", "buyer-1", 120)
	registry.put(auction)

	svc := NewNotificationService(registry, notices)
	err := svc.HandleAuctionEnded(context.Background(), &models.AuctionEndedEvent{AuctionID: auction.ID})
	require.NoError(t, err)

	require.Len(t, notices.notices, 2)
	seller := notices.forRecipient("seller-1")
	require.Len(t, seller, 1)
	assert.Equal(t, NoticeAuctionEnded, seller[0].Kind)
	winner := notices.forRecipient("buyer-1")
	require.Len(t, winner, 1)
	assert.Contains(t, notices.keys, "user:seller-1")
	assert.Contains(t, notices.keys, "user:buyer-1")
}

func TestAuctionEndedWithoutWinnerNoticesSellerOnly(t *testing.T) {
	registry := newFakeRegistry()
	notices := &fakeNoticePublisher{}
	auction := endedAuction("seller-1", "buyer-1", 120)
	auction.WinnerID = nil
	auction.SellerDecision = nil
	registry.put(auction)

	svc := NewNotificationService(registry, notices)
	require.NoError(t, svc.HandleAuctionEnded(context.Background(), &models.AuctionEndedEvent{AuctionID: auction.ID}))

	require.Len(t, notices.notices, 1)
	assert.Equal(t, "seller-1", notices.notices[0].RecipientID)
}

func TestAcceptedDecisionIssuesInvoices(t *testing.T) {
	registry := newFakeRegistry()
	notices := &fakeNoticePublisher{}
	auction := endedAuction("seller-1", "buyer-1", 120)
	accepted := models.SellerDecisionAccepted
	auction.Status = models.AuctionStatusCompleted
	auction.SellerDecision = &accepted
	registry.put(auction)

	svc := NewNotificationService(registry, notices)
	err := svc.HandleSellerDecision(context.Background(), &models.SellerDecisionEvent{
		AuctionID: auction.ID,
		Decision:  models.SellerDecisionAccepted,
	})
	require.NoError(t, err)

	require.Len(t, notices.notices, 2)
	for _, n := range notices.notices {
		assert.Equal(t, NoticeInvoice, n.Kind)
		require.NotNil(t, n.FinalPrice)
	}
}

func TestRejectedDecisionIssuesNothing(t *testing.T) {
	registry := newFakeRegistry()
	notices := &fakeNoticePublisher{}
	auction := endedAuction("seller-1", "buyer-1", 120)
	registry.put(auction)

	svc := NewNotificationService(registry, notices)
	err := svc.HandleSellerDecision(context.Background(), &models.SellerDecisionEvent{
		AuctionID: auction.ID,
		Decision:  models.SellerDecisionRejected,
	})
	require.NoError(t, err)
	assert.Empty(t, notices.notices)
}

func TestCounterAcceptedIssuesInvoices(t *testing.T) {
	registry := newFakeRegistry()
	notices := &fakeNoticePublisher{}
	auction := endedAuction("seller-1", "buyer-1", 120)
	countered := models.SellerDecisionCounterOffered
	accepted := models.CounterOfferAccepted
	auction.Status = models.AuctionStatusCompleted
	auction.SellerDecision = &countered
	auction.CounterOfferStatus = &accepted
	registry.put(auction)

	svc := NewNotificationService(registry, notices)
	err := svc.HandleCounterOfferResponse(context.Background(), &models.CounterOfferResponseEvent{
		AuctionID: auction.ID,
		Response:  models.CounterOfferAccepted,
	})
	require.NoError(t, err)
	assert.Len(t, notices.notices, 2)
}

func TestPublishFailureIsSwallowed(t *testing.T) {
	registry := newFakeRegistry()
	notices := &fakeNoticePublisher{fail: true}
	auction := endedAuction("seller-1", "buyer-1", 120)
	registry.put(auction)

	svc := NewNotificationService(registry, notices)
	err := svc.HandleAuctionEnded(context.Background(), &models.AuctionEndedEvent{AuctionID: auction.ID})
	assert.NoError(t, err)
}

func TestMissingAuctionDoesNotFailHandler(t *testing.T) {
	svc := NewNotificationService(newFakeRegistry(), &fakeNoticePublisher{})
	err := svc.HandleAuctionEnded(context.Background(), &models.AuctionEndedEvent{AuctionID: "missing"})
	assert.NoError(t, err)
}
