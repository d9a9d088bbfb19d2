package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"solana-sniper-bot/internal/auth"
	"solana-sniper-bot/internal/market"
	"solana-sniper-bot/internal/router"
)

// handleHealth returns server health status
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// handleLogin authenticates the operator and returns a token pair
func (s *Server) handleLogin(c *gin.Context) {
	if !s.authEnabled {
		errorResponse(c, http.StatusNotFound, "Authentication is disabled")
		return
	}

	var req auth.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "Username and password are required")
		return
	}

	pair, err := s.authService.Login(req.Username, req.Password)
	if err != nil {
		errorResponse(c, http.StatusUnauthorized, "Invalid username or password")
		return
	}

	successResponse(c, pair)
}

// handleBotStatus returns the current bot status
func (s *Server) handleBotStatus(c *gin.Context) {
	successResponse(c, s.botAPI.GetStatus())
}

// handleGetPositions returns all open positions
func (s *Server) handleGetPositions(c *gin.Context) {
	successResponse(c, s.botAPI.OpenPositions())
}

// handleGetPositionHistory returns recently closed positions
func (s *Server) handleGetPositionHistory(c *gin.Context) {
	successResponse(c, s.botAPI.ClosedPositions())
}

// handleClosePosition forces a full exit on an open position
func (s *Server) handleClosePosition(c *gin.Context) {
	mint := c.Param("mint")
	if err := market.ValidateMint(mint); err != nil {
		errorResponse(c, http.StatusBadRequest, "Invalid mint address")
		return
	}

	if err := s.botAPI.ClosePosition(c.Request.Context(), mint); err != nil {
		errorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	successResponse(c, gin.H{"message": "Position closed"})
}

// handleGetSignals returns recent accepted signals
func (s *Server) handleGetSignals(c *gin.Context) {
	successResponse(c, s.botAPI.RecentSignals())
}

// handleGetThresholds returns the active threshold set
func (s *Server) handleGetThresholds(c *gin.Context) {
	successResponse(c, s.botAPI.CurrentThresholds())
}

// handleGetThresholdHistory returns applied optimizer changes
func (s *Server) handleGetThresholdHistory(c *gin.Context) {
	successResponse(c, s.botAPI.ThresholdHistory())
}

// handleGetFunnel returns the current funnel window counters
func (s *Server) handleGetFunnel(c *gin.Context) {
	successResponse(c, s.botAPI.FunnelSnapshot())
}

// handleGetCircuitBreaker returns circuit breaker state and counters
func (s *Server) handleGetCircuitBreaker(c *gin.Context) {
	successResponse(c, s.botAPI.BreakerStats())
}

// handleResetCircuitBreaker manually resets a tripped breaker
func (s *Server) handleResetCircuitBreaker(c *gin.Context) {
	s.botAPI.ResetBreaker()
	successResponse(c, gin.H{"message": "Circuit breaker reset"})
}

type addKOLWalletRequest struct {
	Wallet string `json:"wallet" binding:"required"`
	Tier   string `json:"tier" binding:"required"`
}

// handleAddKOLWallet registers a tracked wallet
func (s *Server) handleAddKOLWallet(c *gin.Context) {
	var req addKOLWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "Wallet and tier are required")
		return
	}

	switch router.KOLTier(req.Tier) {
	case router.KOLTierS, router.KOLTierA, router.KOLTierB, router.KOLTierC:
	default:
		errorResponse(c, http.StatusBadRequest, "Tier must be one of S, A, B, C")
		return
	}

	if err := s.botAPI.AddKOLWallet(req.Wallet, req.Tier); err != nil {
		errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	successResponse(c, gin.H{"message": "Wallet registered"})
}
