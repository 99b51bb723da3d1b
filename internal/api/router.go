package api

import (
	"net/http"

	"delivery-tracking/internal/api/middleware"
	"delivery-tracking/internal/modules/deliveries"
	"delivery-tracking/internal/modules/drivers"
	"delivery-tracking/internal/modules/tracking"

	"github.com/labstack/echo/v4"
)

// SetupRoutes sets up all the API endpoints for the delivery tracking service.
func SetupRoutes(
	e *echo.Echo,
	jwtSecret string,
	deliveryHandler *deliveries.Handler,
	driverHandler *drivers.Handler,
	trackingHandler *tracking.Handler,
) {
	authMiddleware := middleware.JWTAuth(jwtSecret)
	adminRequired := middleware.AdminRequired()

	// --- Public Routes ---
	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"message": "Delivery Tracking Service"})
	})
	e.GET("/healthz", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	// --- Assignment ---
	// The order service calls this once an order is accepted.
	e.POST("/orders/:orderId/delivery", deliveryHandler.Assign, authMiddleware)

	// --- Delivery Routes ---
	deliveryGroup := e.Group("/deliveries", authMiddleware)
	{
		deliveryGroup.GET("/:deliveryId", deliveryHandler.Get)
		deliveryGroup.GET("/:deliveryId/status", deliveryHandler.GetStatus)
		deliveryGroup.PATCH("/:deliveryId/status", deliveryHandler.UpdateStatus)
		deliveryGroup.DELETE("/:deliveryId", deliveryHandler.Delete, adminRequired)
	}

	// --- Driver Routes ---
	driverGroup := e.Group("/drivers", authMiddleware)
	{
		driverGroup.POST("", driverHandler.Register)
		driverGroup.GET("", driverHandler.List)
		driverGroup.GET("/:driverId", driverHandler.Get)
		driverGroup.POST("/:driverId/location", trackingHandler.ReportLocation)
	}

	// --- Live Tracking ---
	e.GET("/ws/deliveries/:deliveryId/track", trackingHandler.Watch, authMiddleware)
}
