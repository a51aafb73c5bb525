package app

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"fleet/internal/handler"
	"fleet/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	VehicleHandler     *handler.VehicleHandler
	ReservationHandler *handler.ReservationHandler
	QuoteHandler       *handler.QuoteHandler
	WebhookHandler     *handler.WebhookHandler
	RedisClient        *redis.Client
	NewRelicApp        *newrelic.Application
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORSMiddleware())

	// Add New Relic middleware if enabled.
	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	if deps.RedisClient != nil {
		router.Use(middleware.IdempotencyMiddleware(deps.RedisClient))
	}

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// API v1 routes.
	v1 := router.Group("/v1")
	{
		// Vehicle routes.
		vehicles := v1.Group("/vehicles")
		{
			vehicles.POST("", deps.VehicleHandler.CreateVehicle)
			vehicles.GET("", deps.VehicleHandler.GetAll)
			vehicles.GET("/:id", deps.VehicleHandler.GetVehicle)
			vehicles.PATCH("/:id/status", deps.VehicleHandler.UpdateStatus)
		}

		// Reservation routes.
		reservations := v1.Group("/reservations")
		{
			reservations.POST("", deps.ReservationHandler.CreateReservation)
			reservations.GET("", deps.ReservationHandler.GetAll)
			reservations.GET("/:id", deps.ReservationHandler.GetReservation)
			reservations.POST("/:id/cancel", deps.ReservationHandler.Cancel)
			reservations.POST("/:id/transition", deps.ReservationHandler.Transition)
			reservations.DELETE("/:id", deps.ReservationHandler.DeleteDraft)
		}

		// Quote routes.
		v1.POST("/quotes", deps.QuoteHandler.Quote)

		// Gateway webhook routes.
		v1.POST("/webhooks/payment", deps.WebhookHandler.HandlePaymentEvent)
	}

	return router
}
