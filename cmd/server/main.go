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

	"checkout-service/config"
	"checkout-service/internal/api"
	"checkout-service/internal/broker"
	"checkout-service/internal/redisclient"
	"checkout-service/internal/service"
	"checkout-service/internal/store"
	"checkout-service/internal/util"
	"checkout-service/internal/worker"

	"github.com/gin-gonic/gin"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting checkout service")

	tp, err := util.InitTracer("checkout-service", cfg.Observ.JaegerEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down tracer: %v", err)
		}
	}()

	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Database connected")

	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Redis connected")

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicCheckout)
	defer producer.Close()
	log.Println("Kafka producer initialized")

	eventPublisher := broker.NewEventPublisher(producer)

	taxPolicy, err := service.NewFlatRate(cfg.Checkout.TaxRate)
	if err != nil {
		log.Fatalf("Invalid tax rate: %v", err)
	}

	gatewayTimeout := time.Duration(cfg.Checkout.GatewayTimeoutSeconds) * time.Second
	var provider service.PaymentProvider
	if cfg.Payment.BaseURL != "" {
		provider = service.NewHTTPProvider(cfg.Payment.BaseURL, cfg.Payment.SecretKey, gatewayTimeout)
	} else {
		log.Println("No payment provider URL configured, using simulated provider")
		provider = service.NewSimulatedProvider()
	}

	gateway := service.NewGateway(provider, cfg.Payment.Enabled(), cfg.Payment.Currency,
		gatewayTimeout, cfg.Payment.WebhookSecret)
	pricer := service.NewPriceAuthority(db, taxPolicy)

	sessionTTL := time.Duration(cfg.Checkout.SessionTTLSeconds) * time.Second
	idempotencyTTL := time.Duration(cfg.Checkout.IdempotencyTTLSeconds) * time.Second

	checkoutService := service.NewCheckoutService(redisClient, pricer, gateway, eventPublisher,
		sessionTTL, idempotencyTTL)
	sagaOrchestrator := service.NewSagaOrchestrator(db, redisClient, eventPublisher, sessionTTL)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	checkoutConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicCheckout, cfg.Kafka.ConsumerGroup)
	checkoutWorker := worker.NewCheckoutWorker(checkoutConsumer, sagaOrchestrator)
	go func() {
		if err := checkoutWorker.Start(workerCtx); err != nil {
			log.Printf("Checkout worker error: %v", err)
		}
	}()

	reconcileConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicCheckout, "checkout-reconciliation-group")
	reconcileWorker := worker.NewReconciliationWorker(reconcileConsumer, sagaOrchestrator)
	go func() {
		if err := reconcileWorker.Start(workerCtx); err != nil {
			log.Printf("Reconciliation worker error: %v", err)
		}
	}()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(checkoutService, gateway, db, eventPublisher)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	workerCancel()
	checkoutWorker.Stop()
	reconcileWorker.Stop()

	log.Println("Server exited")
}
