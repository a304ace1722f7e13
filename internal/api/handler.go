package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"auction-service/internal/models"
	"auction-service/internal/service"
	"auction-service/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

// Handler contains HTTP handlers
type Handler struct {
	auctions     *service.AuctionService
	bids         *service.BidService
	negotiations *service.NegotiationService
}

// NewHandler creates a new HTTP handler
func NewHandler(auctions *service.AuctionService, bids *service.BidService, negotiations *service.NegotiationService) *Handler {
	return &Handler{
		auctions:     auctions,
		bids:         bids,
		negotiations: negotiations,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())
	router.Use(identityMiddleware())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/auctions", h.listAuctions)
		v1.POST("/auctions", requireIdentity(), requireRole(models.RoleSeller, models.RoleAdmin), h.createAuction)
		v1.GET("/auctions/:id", h.getAuction)
		v1.POST("/auctions/:id/cancel", requireIdentity(), h.cancelAuction)
		v1.POST("/auctions/:id/decision", requireIdentity(), requireRole(models.RoleSeller, models.RoleAdmin), h.sellerDecision)
		v1.POST("/auctions/:id/counter-offer-response", requireIdentity(), h.counterOfferResponse)
		v1.GET("/auctions/:id/bids", h.listBids)
		v1.GET("/auctions/:id/bids/highest", h.getHighestBid)

		v1.POST("/bids", requireIdentity(), h.placeBid)

		v1.GET("/users/me/selling", requireIdentity(), h.listSelling)
		v1.GET("/users/me/won", requireIdentity(), h.listWon)
		v1.GET("/users/me/bids", requireIdentity(), h.listUserBids)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// createAuction handles auction creation
func (h *Handler) createAuction(c *gin.Context) {
	var req service.CreateAuctionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	auction, err := h.auctions.CreateAuction(c.Request.Context(), c.GetString(ctxUserID), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, auction)
}

// listAuctions handles listing all auctions
func (h *Handler) listAuctions(c *gin.Context) {
	auctions, err := h.auctions.ListAuctions(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, auctions)
}

// getAuction handles get auction by ID, including bids and live price
func (h *Handler) getAuction(c *gin.Context) {
	detail, err := h.auctions.GetAuction(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// cancelAuction handles the administrative cancellation override
func (h *Handler) cancelAuction(c *gin.Context) {
	auction, err := h.auctions.CancelAuction(c.Request.Context(),
		c.Param("id"), c.GetString(ctxUserID), c.GetString(ctxUserRole))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, auction)
}

type placeBidRequest struct {
	AuctionID string          `json:"auction_id" binding:"required"`
	Amount    decimal.Decimal `json:"amount" binding:"required"`
}

// placeBid handles bid submission
func (h *Handler) placeBid(c *gin.Context) {
	var req placeBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	bid, err := h.bids.PlaceBid(c.Request.Context(), req.AuctionID, c.GetString(ctxUserID), req.Amount)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Bid placed successfully",
		"bid":     bid,
	})
}

// listBids handles listing an auction's bids with pagination
func (h *Handler) listBids(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	bids, err := h.auctions.ListBidsForAuction(c.Request.Context(), c.Param("id"), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, bids)
}

// getHighestBid handles the current-price lookup
func (h *Handler) getHighestBid(c *gin.Context) {
	highest, err := h.auctions.GetHighestBid(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, highest)
}

type sellerDecisionRequest struct {
	Decision           string           `json:"decision" binding:"required"`
	CounterOfferAmount *decimal.Decimal `json:"counter_offer_amount,omitempty"`
}

// sellerDecision handles the seller's post-end decision
func (h *Handler) sellerDecision(c *gin.Context) {
	var req sellerDecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	auction, err := h.negotiations.RecordSellerDecision(c.Request.Context(),
		c.Param("id"), c.GetString(ctxUserID), c.GetString(ctxUserRole),
		req.Decision, req.CounterOfferAmount)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, auction)
}

type counterResponseRequest struct {
	Response string `json:"response" binding:"required"`
}

// counterOfferResponse handles the winner's response to a counter-offer
func (h *Handler) counterOfferResponse(c *gin.Context) {
	var req counterResponseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	auction, err := h.negotiations.RecordCounterResponse(c.Request.Context(),
		c.Param("id"), c.GetString(ctxUserID), req.Response)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, auction)
}

// listSelling handles the seller's own auctions
func (h *Handler) listSelling(c *gin.Context) {
	auctions, err := h.auctions.ListSellingAuctions(c.Request.Context(), c.GetString(ctxUserID))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, auctions)
}

// listWon handles the user's won auctions
func (h *Handler) listWon(c *gin.Context) {
	auctions, err := h.auctions.ListWonAuctions(c.Request.Context(), c.GetString(ctxUserID))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, auctions)
}

// listUserBids handles the user's own bid history
func (h *Handler) listUserBids(c *gin.Context) {
	bids, err := h.auctions.ListUserBids(c.Request.Context(), c.GetString(ctxUserID))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, bids)
}

// respondError maps service errors to HTTP responses. Bid rejections carry
// their reason code and current price so the client can retry immediately.
func respondError(c *gin.Context, err error) {
	var rejection *service.BidRejection
	if errors.As(err, &rejection) {
		body := gin.H{
			"error":  rejection.Error(),
			"reason": string(rejection.Reason),
		}
		if rejection.Reason != service.RejectNotFound {
			body["current_price"] = rejection.CurrentPrice
			body["minimum_bid"] = rejection.MinimumBid
		}
		c.JSON(rejectionStatus(rejection.Reason), body)
		return
	}

	var conflict *service.StateConflictError
	switch {
	case errors.Is(err, store.ErrAuctionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Auction not found"})
	case errors.As(err, &conflict):
		c.JSON(http.StatusConflict, gin.H{
			"error": conflict.Error(),
			"state": conflict.Current,
		})
	case errors.Is(err, service.ErrNotSeller),
		errors.Is(err, service.ErrNotWinner),
		errors.Is(err, service.ErrNotAuthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Internal server error",
			"details": err.Error(),
		})
	}
}

func rejectionStatus(reason service.RejectReason) int {
	switch reason {
	case service.RejectNotFound:
		return http.StatusNotFound
	case service.RejectTryAgain:
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadRequest
	}
}
