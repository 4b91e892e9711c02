package http_api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/coinlaunch/launchbot/internal/models"
)

// defaultListLimit caps a token listing without an explicit limit.
const defaultListLimit = 50

// ClaimRequest represents the JSON body for a fee claim
type ClaimRequest struct {
	Destination string `json:"destination" binding:"required"`
}

// ClaimResponse represents the success response for a fee claim
type ClaimResponse struct {
	Success bool   `json:"success"`
	TxHash  string `json:"tx_hash"`
	Amount  string `json:"amount"`
}

// FeesResponse represents the escrow wallet fee state of a requester
type FeesResponse struct {
	Username      string `json:"username"`
	Address       string `json:"address"`
	Balance       string `json:"balance"`
	FeesCollected string `json:"fees_collected"`
}

// health is a handler for the /healthz endpoint.
func (s *HTTPServer) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":        "ok",
		"authenticated": s.social.Authenticated(),
	})
}

// listTokens is a handler for the /api/v1/tokens endpoint. It returns intents
// filtered by status (default COMMENTED) and optionally by requester.
func (s *HTTPServer) listTokens(c *gin.Context) {
	status := models.IntentStatus(c.DefaultQuery("status", string(models.StatusCommented)))

	limit := defaultListLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = parsed
	}

	var (
		intents []*models.Intent
		err     error
	)
	if username := c.Query("username"); username != "" {
		intents, err = s.repo.IntentsByRequester(username, status)
	} else {
		intents, err = s.repo.IntentsByStatus(status, limit)
	}
	if err != nil {
		s.logger.Error("Failed to list intents", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list tokens"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"tokens": intents})
}

// authLogin is a handler for the /api/v1/auth/x/login endpoint. It redirects
// the operator to the platform's authorization page.
func (s *HTTPServer) authLogin(c *gin.Context) {
	url, state, err := s.social.AuthURL()
	if err != nil {
		if errors.Is(err, models.ErrUnconfigured) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "oauth client not configured"})
			return
		}
		s.logger.Error("Failed to build authorization URL", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start authorization"})
		return
	}

	s.logger.Info("Starting posting-account authorization", "state", state)
	c.Redirect(http.StatusTemporaryRedirect, url)
}

// authCallback is a handler for the /api/v1/auth/x/callback endpoint.
func (s *HTTPServer) authCallback(c *gin.Context) {
	code := c.Query("code")
	state := c.Query("state")
	if code == "" || state == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "code and state are required"})
		return
	}

	if err := s.social.ExchangeCode(c.Request.Context(), code, state); err != nil {
		s.logger.Error("Failed to complete authorization", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "authorization failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Posting account authorized successfully",
	})
}

// feesInfo is a handler for the /api/v1/fees/:username endpoint. It returns
// the requester's escrow wallet address, balance and cumulative claimed fees.
func (s *HTTPServer) feesInfo(c *gin.Context) {
	username := c.Param("username")

	wallet, err := s.repo.GetEscrowWallet(username)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no escrow wallet for this user"})
			return
		}
		s.logger.Error("Failed to get escrow wallet", "error", err, "username", username)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get escrow wallet"})
		return
	}

	balance, err := s.chain.BalanceAt(c.Request.Context(), wallet.Address)
	if err != nil {
		s.logger.Error("Failed to get escrow balance", "error", err, "address", wallet.Address)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get balance"})
		return
	}

	c.JSON(http.StatusOK, FeesResponse{
		Username:      username,
		Address:       wallet.Address,
		Balance:       balance.String(),
		FeesCollected: wallet.FeesCollected,
	})
}

// feesClaim is a handler for the /api/v1/fees/:username/claim endpoint. It
// sweeps the requester's escrow balance to the destination address.
func (s *HTTPServer) feesClaim(c *gin.Context) {
	username := c.Param("username")

	var req ClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.logger.Debug("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid request body: " + err.Error(),
		})
		return
	}

	txHash, amount, err := s.minter.ClaimFees(c.Request.Context(), username, req.Destination)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error":   "no escrow wallet for this user",
			})
			return
		}
		s.logger.Error("Failed to claim fees", "error", err, "username", username)
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, ClaimResponse{
		Success: true,
		TxHash:  txHash,
		Amount:  amount.String(),
	})
}
