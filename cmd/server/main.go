package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/botwatch/botwatch-api/internal/auth"
	"github.com/botwatch/botwatch-api/internal/config"
	"github.com/botwatch/botwatch-api/internal/database"
	"github.com/botwatch/botwatch-api/internal/ledger"
	"github.com/botwatch/botwatch-api/internal/monitor"
	"github.com/botwatch/botwatch-api/internal/positions"
	"github.com/botwatch/botwatch-api/internal/stats"
	"github.com/botwatch/botwatch-api/internal/ticker"
	"github.com/botwatch/botwatch-api/pkg/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// init configures the application logging based on environment settings
// In development mode, it enables pretty printing with timestamps
// Debug logging can be enabled via DEBUG environment variable
func init() {
	// Configure pretty logging for development
	if os.Getenv("ENV") != "production" {
		output := zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
		zlog.Logger = zerolog.New(output).With().Timestamp().Logger()
	}

	// Set global log level
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if os.Getenv("DEBUG") == "true" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}

// main initializes and runs the monitoring API server with graceful shutdown
// support. It wires the ledger reader, live price cache, aggregation services
// and API routes.
func main() {
	cfg := config.Load()

	// Initialize database
	db, err := database.NewDatabase(cfg.DBPath)
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to initialize database")
	}

	// Initialize router
	router := gin.New()
	router.Use(gin.Logger())

	// Initialize services and handlers
	authService := auth.NewService(cfg.JWTSecret)
	authHandlers := auth.NewGinHandlers(authService)
	if key, secret := os.Getenv("API_KEY"), os.Getenv("API_SECRET"); key != "" && secret != "" {
		authService.RegisterAPICredentials(key, secret)
	}

	ledgerDB := ledger.NewDatabase(db)
	priceCache := ticker.NewCache(ticker.NewClient(cfg.TickerBaseURL), cfg.CacheTTL)
	positionService := positions.NewService(ledgerDB, priceCache, cfg.Symbols)
	statsService := stats.NewService(ledgerDB)

	monitorService := monitor.NewService(ledgerDB, positionService, statsService)
	monitorHandlers := monitor.NewGinHandlers(monitorService)

	// Setup middleware
	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery())
	router.Use(middleware.RateLimit())

	// Setup API routes
	setupRoutes(router, cfg, authHandlers, monitorHandlers)

	// Create server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Graceful shutdown setup
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal().Err(err).Msg("listen")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zlog.Info().Msg("Shutting down server...")

	// Give outstanding operations 5 seconds to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	zlog.Info().Msg("Server exiting")
}

// setupRoutes configures all API endpoints and their handlers:
// - Auth routes: token issuance for dashboard clients
// - Dashboard route: single action-dispatched endpoint, optionally behind JWT
// - Operational routes: health and Prometheus metrics
func setupRoutes(
	router *gin.Engine,
	cfg *config.Config,
	authHandlers *auth.GinHandlers,
	monitorHandlers *monitor.GinHandlers,
) {
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		// Auth routes
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/token", authHandlers.GenerateTokenHandler())
		}

		v1.GET("/health", monitorHandlers.HealthHandler())

		// Dashboard route
		dashboard := v1.Group("/dashboard")
		if cfg.AuthRequired {
			dashboard.Use(middleware.JWTAuth(cfg.JWTSecret))
		}
		{
			dashboard.GET("", monitorHandlers.DashboardHandler())
		}
	}
}
