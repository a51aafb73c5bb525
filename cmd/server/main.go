package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"fleet/internal/app"
	"fleet/internal/config"
	"fleet/internal/handler"
	"fleet/internal/queue"
	internalRedis "fleet/internal/redis"
	"fleet/internal/repository/postgres"
	"fleet/internal/service"
)

func main() {
	// Load configuration.
	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize New Relic FIRST (before database so we can instrument DB).
	var nrApp *newrelic.Application
	var err error
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			log.Printf("failed to initialize New Relic: %v", err)
		} else {
			log.Printf("New Relic enabled: app=%s (with DB instrumentation)", cfg.NewRelic.AppName)
		}
	}

	// Initialize database with New Relic instrumentation.
	db, err := app.NewDatabase(ctx, cfg.Database, nrApp)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Connected to PostgreSQL")

	// Initialize Redis with New Relic instrumentation.
	redisClient, err := app.NewRedisClient(ctx, cfg.Redis, nrApp)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Connected to Redis")

	// Notification delivery over RabbitMQ is optional; records are
	// durable in PostgreSQL either way.
	var publisher *queue.Publisher
	if cfg.Queue.Enabled {
		publisher, err = queue.Dial(cfg.Queue.URL)
		if err != nil {
			log.Printf("failed to connect to rabbitmq, notifications stay log-only: %v", err)
		} else {
			defer publisher.Close()
			log.Println("Connected to RabbitMQ")
		}
	}

	// Wire dependencies.
	server := wireServer(db, redisClient, publisher, nrApp, cfg)

	// Start server in goroutine.
	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

// wireServer wires all dependencies and returns the HTTP server.
func wireServer(db *sql.DB, redisClient *redis.Client, publisher *queue.Publisher, nrApp *newrelic.Application, cfg *config.Config) *http.Server {
	// Initialize Redis stores.
	lockStore := internalRedis.NewLockStore(redisClient)
	cacheStore := internalRedis.NewCacheStore(redisClient)

	// Initialize repositories.
	store := postgres.NewStore(db)
	vehicleRepo := postgres.NewVehicleRepository(db)
	reservationRepo := postgres.NewReservationRepository(db)
	paymentRepo := postgres.NewPaymentRepository(db)

	// Initialize services.
	pricingCfg := service.DefaultPricingConfig()
	pricingCfg.TaxPercent = cfg.Pricing.TaxPercent
	pricingCfg.PeakMultiplier = cfg.Pricing.PeakMultiplier
	pricingCfg.OccupancyThresholdPercent = cfg.Pricing.OccupancyThresholdPercent
	pricingCfg.OccupancySurchargePercent = cfg.Pricing.OccupancySurchargePercent
	pricingCfg.Currency = cfg.Pricing.Currency

	var notificationPublisher service.NotificationPublisher
	if publisher != nil {
		notificationPublisher = publisher
	}

	notificationService := service.NewNotificationService(notificationPublisher)
	stateMachine := service.NewStateMachine()
	pricingEngine := service.NewPricingEngine(pricingCfg)
	demandEstimator := service.NewDemandEstimator(vehicleRepo, reservationRepo, cacheStore)
	gateway := service.NewMockGateway()
	routeEstimator := service.NewHaversineEstimator()

	vehicleService := service.NewVehicleService(vehicleRepo, cacheStore)
	reservationService := service.NewReservationService(
		store, vehicleRepo, reservationRepo, paymentRepo,
		pricingEngine, demandEstimator, stateMachine,
		gateway, routeEstimator, notificationService, cacheStore,
	)
	synchronizer := service.NewPaymentSynchronizer(store, stateMachine, notificationService, lockStore)
	decoder := service.NewWebhookDecoder(cfg.Gateway.WebhookSecret)

	// Initialize handlers.
	vehicleHandler := handler.NewVehicleHandler(vehicleService)
	reservationHandler := handler.NewReservationHandler(reservationService)
	quoteHandler := handler.NewQuoteHandler(reservationService)
	webhookHandler := handler.NewWebhookHandler(decoder, synchronizer)

	// Create router.
	router := app.NewRouter(app.RouterDeps{
		VehicleHandler:     vehicleHandler,
		ReservationHandler: reservationHandler,
		QuoteHandler:       quoteHandler,
		WebhookHandler:     webhookHandler,
		RedisClient:        redisClient,
		NewRelicApp:        nrApp,
	})

	// Create HTTP server.
	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
}
