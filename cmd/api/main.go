package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"delivery-tracking/internal/api"
	"delivery-tracking/internal/config"
	"delivery-tracking/internal/hub"
	"delivery-tracking/internal/modules/deliveries"
	"delivery-tracking/internal/modules/drivers"
	"delivery-tracking/internal/modules/tracking"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
)

func main() {
	// 1. --- Configuration ---
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()

	e := echo.New()
	e.HideBanner = true

	// 2. --- Middleware ---
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{cfg.ClientOrigin},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	// 3. --- Database Connection ---
	dbConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("unable to parse database configuration")
	}

	dbPool, err := pgxpool.NewWithConfig(context.Background(), dbConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("unable to create connection pool")
	}
	defer dbPool.Close()

	if err := dbPool.Ping(context.Background()); err != nil {
		logger.Fatal().Err(err).Msg("unable to ping database")
	}
	logger.Info().Msg("connected to the database")

	// 4. --- Dependency Injection (wiring everything up) ---
	// --- Broadcast Hub ---
	broadcastHub := hub.New(cfg.HubBuffer, logger.With().Str("component", "hub").Logger())

	// --- Drivers Module ---
	driverRepo := drivers.NewRepository(dbPool)
	driverService := drivers.NewService(driverRepo)
	driverHandler := drivers.NewHandler(driverService)

	// --- Deliveries Module ---
	deliveryRepo := deliveries.NewRetryingRepository(
		deliveries.NewRepository(dbPool),
		cfg.StoreRetry,
		logger.With().Str("component", "delivery_store").Logger(),
	)
	deliveryService := deliveries.NewService(
		deliveryRepo,
		driverRepo,
		broadcastHub,
		cfg.DeliveryHorizon,
		logger.With().Str("component", "deliveries").Logger(),
	)
	deliveryHandler := deliveries.NewHandler(deliveryService)

	// --- Tracking Module ---
	trackingRepo := tracking.NewRetryingRepository(
		tracking.NewRepository(dbPool),
		cfg.StoreRetry,
		logger.With().Str("component", "tracking_store").Logger(),
	)
	trackingService := tracking.NewService(trackingRepo, broadcastHub, logger.With().Str("component", "tracking").Logger())
	trackingHandler := tracking.NewHandler(trackingService, deliveryService, broadcastHub, logger.With().Str("component", "watch").Logger())

	// 5. --- Initialize Router ---
	api.SetupRoutes(e, cfg.JWTSecret,
		deliveryHandler,
		driverHandler,
		trackingHandler,
	)

	// 6. --- Start Server with graceful shutdown logic ---
	go func() {
		if err := e.Start(":" + cfg.ServerPort); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("shutting down the server, an error occurred")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("server forced to shutdown")
	}
	logger.Info().Msg("server exiting")
}
