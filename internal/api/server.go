package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/riftwatch/riftwatch/internal/config"
	"github.com/riftwatch/riftwatch/internal/dispatch"
	"github.com/riftwatch/riftwatch/internal/events"
	intnet "github.com/riftwatch/riftwatch/internal/network"
	"github.com/riftwatch/riftwatch/internal/publish"
	"github.com/riftwatch/riftwatch/internal/world"
)

// Deps are the runtime components the API reads from. Dispatcher, Pipeline
// and Bus may be nil; their counters are then omitted.
type Deps struct {
	World      *world.Registry
	Dispatcher *dispatch.Dispatcher
	Pipeline   *publish.Pipeline
	Bus        *events.EventBus
	Identity   config.IdentityConfig
	LogDir     string
}

// Server is the read-only REST API over the world registry.
type Server struct {
	cfg    config.APIConfig
	deps   Deps
	logger zerolog.Logger

	httpServer *http.Server
	router     *gin.Engine
}

// NewServer creates a new API server.
func NewServer(cfg config.APIConfig, logLevel string, deps Deps) *Server {
	// Set Gin mode based on log level
	if logLevel == "debug" || logLevel == "trace" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		cfg:    cfg,
		deps:   deps,
		logger: log.With().Str("component", "api").Logger(),
	}
	s.router = s.buildRouter()
	return s
}

// Handler returns the HTTP handler with all routes and middleware.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves the API until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// SO_REUSEADDR allows immediate rebinding after restart.
	ln, err := intnet.ListenTCP(ctx, addr)
	if err != nil {
		return fmt.Errorf("API server error: %w", err)
	}

	s.logger.Info().Str("addr", addr).Msg("REST API server starting")

	// Graceful shutdown
	go func() {
		<-ctx.Done()
		if err := s.Stop(); err != nil {
			s.logger.Warn().Err(err).Msg("API shutdown")
		}
	}()

	if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("API server error: %w", err)
	}
	return nil
}

// buildRouter creates the Gin router with all routes and middleware.
func (s *Server) buildRouter() *gin.Engine {
	router := gin.New()

	// Global middleware
	router.Use(Recovery())
	router.Use(RequestLogger())
	router.Use(SecurityHeaders())

	allowedOrigins := s.cfg.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false, // Must be false when AllowOrigins is "*"
		MaxAge:           12 * time.Hour,
	}))

	rateLimiter := NewRateLimiter(s.cfg.RateLimitRPS)
	router.Use(rateLimiter.Middleware())

	public := router.Group("/api/public")
	{
		public.GET("/ping", s.handlePing)
		public.GET("/info", s.handleInfo)
	}

	w := router.Group("/api/world")
	{
		w.GET("/location", s.handleLocation)
		w.GET("/counts", s.handleCounts)
		w.GET("/players", s.handlePlayers)
		w.GET("/players/:id", s.handlePlayer)
		w.GET("/mobs", s.handleMobs)
		w.GET("/dungeons", s.handleDungeons)
		w.GET("/wisps", s.handleWisps)
		w.GET("/movements", s.handleMovements)
	}

	router.GET("/api/stats", s.handleStats)
	router.GET("/api/logs", s.handleLogEntries)

	router.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.JSON(http.StatusNotFound, gin.H{"error": "endpoint not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Riftwatch API is running."})
	})

	return router
}

// Stop gracefully stops the API server.
func (s *Server) Stop() error {
	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
