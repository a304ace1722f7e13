package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"auction-service/internal/models"
	"auction-service/internal/service"
	"auction-service/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func respondWith(t *testing.T, err error) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)

	respondError(c, err)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

func TestRespondErrorMapsBidRejections(t *testing.T) {
	cases := []struct {
		reason service.RejectReason
		status int
	}{
		{service.RejectNotFound, http.StatusNotFound},
		{service.RejectNotActive, http.StatusBadRequest},
		{service.RejectSellerCannotBid, http.StatusBadRequest},
		{service.RejectBidTooLow, http.StatusBadRequest},
		{service.RejectTryAgain, http.StatusServiceUnavailable},
	}

	for _, tc := range cases {
		t.Run(string(tc.reason), func(t *testing.T) {
			rejection := &service.BidRejection{
				Reason:       tc.reason,
				CurrentPrice: decimal.NewFromInt(110),
				MinimumBid:   decimal.NewFromInt(120),
			}

			rec, body := respondWith(t, rejection)

			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, string(tc.reason), body["reason"])
			if tc.reason != service.RejectNotFound {
				assert.Contains(t, body, "current_price")
				assert.Contains(t, body, "minimum_bid")
			}
		})
	}
}

func TestRespondErrorMapsDomainErrors(t *testing.T) {
	rec, _ := respondWith(t, fmt.Errorf("load: %w", store.ErrAuctionNotFound))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, body := respondWith(t, &service.StateConflictError{Op: "seller decision", Current: models.AuctionStatusActive})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, models.AuctionStatusActive, body["state"])

	for _, err := range []error{service.ErrNotSeller, service.ErrNotWinner, service.ErrNotAuthorized} {
		rec, _ = respondWith(t, err)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	}

	rec, _ = respondWith(t, fmt.Errorf("%w: duration must be positive", service.ErrInvalidInput))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = respondWith(t, fmt.Errorf("connection reset"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func identityRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(identityMiddleware())
	router.GET("/open", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user": c.GetString(ctxUserID)})
	})
	router.GET("/me", requireIdentity(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user": c.GetString(ctxUserID)})
	})
	router.GET("/admin", requireIdentity(), requireRole(models.RoleAdmin), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user": c.GetString(ctxUserID)})
	})
	return router
}

func TestIdentityMiddleware(t *testing.T) {
	router := identityRouter()

	req := httptest.NewRequest(http.MethodGet, "/open", nil)
	req.Header.Set("X-User-ID", "user-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "user-1")

	// Anonymous requests pass open routes but not identity-gated ones.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/open", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRole(t *testing.T) {
	router := identityRouter()

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("X-User-ID", "user-1")
	req.Header.Set("X-User-Role", models.RoleBuyer)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req.Header.Set("X-User-Role", models.RoleAdmin)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
