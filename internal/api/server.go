package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"solana-sniper-bot/internal/auth"
	"solana-sniper-bot/internal/positions"
	"solana-sniper-bot/internal/router"
	"solana-sniper-bot/internal/thresholds"
)

// RateLimiter provides simple in-memory rate limiting per endpoint
type RateLimiter struct {
	requests map[string][]time.Time
	mu       sync.Mutex
	limit    int
	window   time.Duration
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
	}
}

// Allow checks if a request is allowed for the given key
func (r *RateLimiter) Allow(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	windowStart := now.Add(-r.window)

	var recent []time.Time
	for _, t := range r.requests[key] {
		if t.After(windowStart) {
			recent = append(recent, t)
		}
	}

	if len(recent) >= r.limit {
		r.requests[key] = recent
		return false
	}

	r.requests[key] = append(recent, now)
	return true
}

// BotAPI defines the bot surface the server exposes to operators
type BotAPI interface {
	GetStatus() map[string]interface{}
	OpenPositions() []positions.Position
	ClosedPositions() []positions.Position
	RecentSignals() []router.Signal
	CurrentThresholds() *thresholds.ThresholdSet
	ThresholdHistory() []thresholds.Change
	FunnelSnapshot() router.FunnelSnapshot
	BreakerStats() map[string]interface{}
	ResetBreaker()
	ClosePosition(ctx context.Context, mint string) error
	AddKOLWallet(wallet string, tier string) error
}

// Server represents the HTTP API server
type Server struct {
	router      *gin.Engine
	httpServer  *http.Server
	botAPI      BotAPI
	config      ServerConfig
	authService *auth.Service
	jwtManager  *auth.JWTManager
	authEnabled bool
	rateLimiter *RateLimiter
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host           string
	Port           int
	AllowedOrigins string
	ProductionMode bool
}

// NewServer creates a new API server
func NewServer(
	config ServerConfig,
	botAPI BotAPI,
	authService *auth.Service, // Can be nil if auth is disabled
	jwtManager *auth.JWTManager, // Can be nil if auth is disabled
) *Server {
	if config.ProductionMode {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Logger())
	engine.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if config.AllowedOrigins == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = strings.Split(config.AllowedOrigins, ",")
		corsConfig.AllowCredentials = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	engine.Use(cors.New(corsConfig))

	server := &Server{
		router:      engine,
		botAPI:      botAPI,
		config:      config,
		authService: authService,
		jwtManager:  jwtManager,
		authEnabled: authService != nil && jwtManager != nil,
		rateLimiter: NewRateLimiter(120, time.Minute),
	}

	server.setupRoutes()
	return server
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	// Auth routes (public)
	s.router.POST("/api/auth/login", s.handleLogin)
	s.router.GET("/api/auth/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"auth_enabled": s.authEnabled})
	})

	api := s.router.Group("/api")
	api.Use(s.rateLimitMiddleware())
	if s.authEnabled {
		api.Use(auth.Middleware(s.jwtManager))
	}
	{
		// Bot status
		api.GET("/bot/status", s.handleBotStatus)

		// Position endpoints
		api.GET("/positions", s.handleGetPositions)
		api.GET("/positions/history", s.handleGetPositionHistory)
		api.POST("/positions/:mint/close", s.handleClosePosition)

		// Signal endpoints
		api.GET("/signals", s.handleGetSignals)

		// Threshold endpoints
		api.GET("/thresholds", s.handleGetThresholds)
		api.GET("/thresholds/history", s.handleGetThresholdHistory)

		// Funnel observability
		api.GET("/funnel", s.handleGetFunnel)

		// Circuit breaker endpoints
		api.GET("/circuit-breaker", s.handleGetCircuitBreaker)
		api.POST("/circuit-breaker/reset", s.handleResetCircuitBreaker)

		// KOL wallet registry
		api.POST("/kol-wallets", s.handleAddKOLWallet)
	}
}

// rateLimitMiddleware limits requests per endpoint
func (s *Server) rateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		if !s.rateLimiter.Allow(path) {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":   true,
				"message": "Rate limit exceeded",
				"path":    path,
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// Start starts the HTTP server. Blocks until shutdown.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Printf("[API] Starting HTTP server on %s", addr)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("[API] Shutting down HTTP server...")
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// Handler exposes the router, for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// errorResponse is a helper to send error responses
func errorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, gin.H{
		"error":   true,
		"message": message,
	})
}

// successResponse is a helper to send success responses
func successResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
	})
}
