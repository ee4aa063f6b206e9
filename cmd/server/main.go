package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront-service/config"
	"storefront-service/internal/api"
	"storefront-service/internal/broker"
	"storefront-service/internal/pricing"
	"storefront-service/internal/redisclient"
	"storefront-service/internal/service"
	"storefront-service/internal/store"
	"storefront-service/internal/util"
	"storefront-service/internal/worker"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const serviceName = "storefront-service"

type stopper interface {
	Stop() error
}

func stopWorker(logger *zap.Logger, w stopper) {
	if err := w.Stop(); err != nil {
		logger.Error("Error stopping hand-off worker", zap.Error(err))
	}
}

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env, serviceName); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting storefront service", zap.String("env", cfg.Server.Env))

	tp, err := util.InitTracer(serviceName, cfg.Server.Env, cfg.Observ.JaegerEndpoint)
	if err != nil {
		logger.Fatal("Failed to initialize tracer", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			logger.Error("Error shutting down tracer", zap.Error(err))
		}
	}()

	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	logger.Info("Database connected")

	if cfg.Database.RunMigrations {
		if err := db.Migrate(); err != nil {
			logger.Fatal("Failed to run migrations", zap.Error(err))
		}
		logger.Info("Migrations applied")
	}

	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	logger.Info("Redis connected")

	var producer broker.EventWriter
	if cfg.Kafka.Enabled {
		producer = broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrder)
		logger.Info("Kafka producer initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
	} else {
		producer = broker.NewNopProducer()
		logger.Warn("Kafka disabled, events will not be published")
	}
	defer producer.Close()

	eventPublisher := broker.NewEventPublisher(producer)

	policy := pricing.Policy{
		FreeShippingThreshold: cfg.Business.FreeShippingThreshold,
		ShippingFee:           cfg.Business.ShippingFee,
		TaxRate:               cfg.Business.TaxRate,
		FallbackRate:          cfg.Business.FallbackExchangeRate,
	}

	rateService := pricing.NewRateService(
		pricing.NewHTTPRateFetcher(cfg.Business.ExchangeRateURL, cfg.Business.ExchangeRateTimeout),
		redisClient,
		cfg.Business.ExchangeRateTTL,
		cfg.Business.FallbackExchangeRate,
	)

	customerService := service.NewCustomerService(db, eventPublisher)
	orderService := service.NewOrderService(db, customerService, eventPublisher, redisClient, service.OrderServiceConfig{
		Policy:         policy,
		WhatsAppNumber: cfg.Business.WhatsAppNumber,
		IdempotencyTTL: cfg.Business.IdempotencyTTL,
	})
	trackingService := service.NewTrackingService(db, cfg.Business.StrictTrackingPhone)
	handoffService := service.NewHandoffService(db)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	var handoffWorker *worker.HandoffWorker
	if cfg.Kafka.Enabled {
		handoffConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrder, cfg.Kafka.ConsumerGroup)
		handoffWorker = worker.NewHandoffWorker(handoffConsumer, handoffService)
		go func() {
			if err := handoffWorker.Start(workerCtx); err != nil {
				logger.Error("Hand-off worker error", zap.Error(err))
			}
		}()
	}

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(api.Dependencies{
		Orders:    orderService,
		Customers: customerService,
		Tracking:  trackingService,
		Rates:     rateService,
		Policy:    policy,
		Checks: map[string]api.Pinger{
			"database": db,
			"redis":    redisClient,
		},
		CORSOrigins: cfg.Server.CORSOrigins,
	})
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	workerCancel()
	if handoffWorker != nil {
		stopWorker(logger, handoffWorker)
	}

	logger.Info("Server exited")
}
