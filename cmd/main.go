package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	c "github.com/mikbell/forever/internal/cache"
	"github.com/mikbell/forever/internal/catalog"
	"github.com/mikbell/forever/internal/config"
	"github.com/mikbell/forever/internal/health"
	h "github.com/mikbell/forever/internal/http"
	"github.com/mikbell/forever/internal/logger"
	"github.com/mikbell/forever/internal/payment"
	"github.com/mikbell/forever/internal/poller"
	"github.com/mikbell/forever/internal/publisher"
	"github.com/mikbell/forever/internal/reaper"
	"github.com/mikbell/forever/internal/repository"
	s "github.com/mikbell/forever/internal/service"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "forever: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	ctx := context.Background()

	// Cart store
	mongoDB, err := repository.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
	if err != nil {
		return err
	}
	defer func() { _ = mongoDB.Client().Disconnect(context.Background()) }()
	cartRepo := repository.NewMongoRepository(mongoDB)
	log.Info("connected to MongoDB", zap.String("database", cfg.MongoDBName))

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis connection failed: %w", err)
	}
	cartCache := c.NewRedisCache(redisClient)
	log.Info("redis ping succeeded", zap.String("addr", cfg.RedisAddr))

	// Order store
	creds := &repository.Credentials{
		Host:              cfg.DBHost,
		Port:              cfg.DBPort,
		User:              cfg.DBUser,
		Password:          cfg.DBPassword,
		DBName:            cfg.DBName,
		MigrationsDirPath: cfg.MigrationsPath,
	}
	db, err := repository.OpenPostgres(ctx, creds)
	if err != nil {
		return err
	}
	orderRepo := repository.NewPostgresRepository(db)
	defer orderRepo.Close()
	if err := orderRepo.RunMigrations(creds.MigrationsDirPath); err != nil {
		return fmt.Errorf("order migrations: %w", err)
	}
	log.Info("order database migrations completed")

	// Catalog
	products, err := catalog.NewRepository(cfg.CatalogDBPath)
	if err != nil {
		return err
	}
	defer products.Close()
	if err := products.RunMigrations(cfg.CatalogMigrationsPath); err != nil {
		return fmt.Errorf("catalog migrations: %w", err)
	}

	// Services
	cartService := s.NewCartService(cartRepo, cartCache, products, cfg.DeliveryCharge, log)
	bridge := payment.NewBridge(
		payment.NewStripeProvider(cfg.StripeSecretKey, cfg.StripeAPIURL),
		payment.BridgeConfig{FrontendURL: cfg.FrontendURL, Timeout: cfg.PaymentTimeout},
		log)
	orderService := s.NewOrderService(cartService, products, orderRepo, bridge, s.OrderConfig{
		DeliveryCharge:  cfg.DeliveryCharge,
		Currency:        cfg.Currency,
		PaymentDeadline: cfg.PaymentDeadline,
	}, log)
	reconciler := s.NewWebhookReconciler(payment.NewStripeVerifier(cfg.StripeWebhookSecret),
		orderRepo, cartService, cfg.PaymentDeadline, log)

	// Background loops
	outbox := publisher.NewOutboxPublisher(orderRepo, log, cfg.KafkaTopic, cfg.KafkaBrokers...)
	cartClearer := poller.NewPoller(cartService, log, cfg.KafkaTopic, cfg.KafkaBrokers...)
	sweeper := reaper.New(orderRepo, cfg.PaymentDeadline, cfg.ReaperInterval, log)
	ops := health.NewServer([]health.Check{
		{Name: "mongo", Pinger: health.PingFunc(func(ctx context.Context) error {
			return mongoDB.Client().Ping(ctx, readpref.Primary())
		})},
		{Name: "redis", Pinger: cartCache},
		{Name: "postgres", Pinger: orderRepo},
		{Name: "catalog", Pinger: products},
	}, cfg.HealthCheckInterval, log)

	bgCtx, stopBackground := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	for _, loop := range []func(context.Context){outbox.Run, cartClearer.Run, sweeper.Run, ops.Run} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			loop(bgCtx)
		}()
	}

	// Servers
	router := h.NewRouter(h.Handlers{
		Cart:     h.NewCartHandler(cartService, log),
		Orders:   h.NewOrdersHandler(orderService, log),
		Webhook:  h.NewWebhookHandler(reconciler, cfg.MaxRequestBodySize, log),
		Products: h.NewProductHandler(products, log),
	}, cfg.RequestTimeout)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		stopBackground()
		return fmt.Errorf("listen on gRPC port: %w", err)
	}

	serverErr := make(chan error, 2)
	go func() {
		log.Info("HTTP API listening", zap.String("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- fmt.Errorf("http server: %w", err)
		}
	}()
	go func() {
		log.Info("gRPC health endpoint listening", zap.String("port", cfg.GRPCPort))
		if err := ops.Serve(lis); err != nil {
			serverErr <- fmt.Errorf("grpc server: %w", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		log.Info("shutting down", zap.String("signal", sig.String()))
	case err = <-serverErr:
		log.Error("server failed, shutting down", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http server forced to shutdown", zap.Error(err))
	}
	ops.GracefulStop()

	stopBackground()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-shutdownCtx.Done():
		log.Warn("background workers did not stop in time")
	}

	cartClearer.Close()
	if err := outbox.Close(); err != nil {
		log.Warn("closing kafka writer", zap.Error(err))
	}

	log.Info("forever stopped")
	return err
}
