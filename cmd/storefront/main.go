package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fjod/storefront/internal/cache"
	"github.com/fjod/storefront/internal/config"
	"github.com/fjod/storefront/internal/gateway"
	storegrpc "github.com/fjod/storefront/internal/grpc"
	h "github.com/fjod/storefront/internal/http"
	"github.com/fjod/storefront/internal/logger"
	"github.com/fjod/storefront/internal/notify"
	"github.com/fjod/storefront/internal/repository"
	"github.com/fjod/storefront/internal/service"
	"github.com/fjod/storefront/internal/webhook"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg := config.Load()
	log := logger.New(os.Stdout, cfg.LogLevel)

	if err := run(cfg, log); err != nil {
		log.Error("storefront stopped", "error", err)
		os.Exit(1)
	}
}

type store interface {
	repository.Repository
	Ping(ctx context.Context) error
}

func openStore(cfg *config.Config, log *slog.Logger) (store, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		repo := repository.NewMemoryRepository()
		if cfg.StoreSeedFile == "" {
			log.Warn("memory store has no seed file, catalog is empty")
			return repo, nil
		}
		f, err := os.Open(cfg.StoreSeedFile)
		if err != nil {
			return nil, fmt.Errorf("failed to open seed file: %w", err)
		}
		defer f.Close()
		seed, err := repo.LoadSeed(f)
		if err != nil {
			return nil, err
		}
		log.Warn("using the memory store, data is lost on exit",
			"customers", len(seed.Customers), "products", len(seed.Products))
		return repo, nil

	case config.StoreDriverPostgres:
		repo, err := repository.NewRepository(&repository.Credentials{
			Host:     cfg.DBHost,
			Port:     cfg.DBPort,
			User:     cfg.DBUser,
			Password: cfg.DBPassword,
			DBName:   cfg.DBName,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		if err := repo.RunMigrations(); err != nil {
			repo.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		log.Info("connected to postgres", "host", cfg.DBHost, "db", cfg.DBName)
		return repo, nil
	}
	return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx := context.Background()

	repo, err := openStore(cfg, log)
	if err != nil {
		return err
	}
	defer repo.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis connection failed: %w", err)
	}
	log.Info("redis ping succeeded", "addr", cfg.RedisAddr)
	store := cache.NewRedisCache(redisClient)

	var notifier notify.Notifier
	if len(cfg.KafkaBrokers) > 0 {
		kafkaNotifier := notify.NewKafkaNotifier(cfg.NotifyTopic, cfg.KafkaBrokers...)
		defer kafkaNotifier.Close()
		notifier = kafkaNotifier
		log.Info("order notifications go to kafka", "topic", cfg.NotifyTopic, "brokers", cfg.KafkaBrokers)
	} else {
		notifier = notify.NewLogNotifier(log)
		log.Warn("KAFKA_BROKERS not set, order notifications are only logged")
	}

	gw := gateway.NewStripeGateway(gateway.StripeConfig{
		APIKey:     cfg.Gateway.APIKey,
		BaseURL:    cfg.Gateway.BaseURL,
		Timeout:    cfg.Gateway.Timeout,
		MaxRetries: cfg.Gateway.MaxRetries,
	}, log)

	carts := service.NewCartService(repo, store, log)
	checkout := service.NewCheckoutService(repo, gw, store, service.CheckoutConfig{
		SuccessURL: cfg.Gateway.SuccessURL,
		CancelURL:  cfg.Gateway.CancelURL,
		Currency:   cfg.Gateway.Currency,
	}, log)
	orders := service.NewOrderService(repo, store, log)
	reconciler := service.NewReconciler(repo, notifier, store, log)

	if cfg.Gateway.WebhookSecret == "" {
		log.Warn("GATEWAY_WEBHOOK_SECRET not set, webhook signatures are not verified")
	}
	dispatcher := webhook.NewDispatcher(reconciler, cfg.Gateway.WebhookSecret, cfg.WebhookTimeout, log)

	router := h.NewRouter(h.Handlers{
		Cart:     h.NewCartHandler(carts, cfg.RequestTimeout, log),
		Checkout: h.NewCheckoutHandler(checkout, cfg.RequestTimeout, log),
		Webhook:  h.NewWebhookHandler(dispatcher, log),
		Orders:   h.NewOrdersHandler(orders, cfg.RequestTimeout, log),
	}, cfg.RequestTimeout, log)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	probes := storegrpc.NewServer(map[string]storegrpc.Check{
		cfg.StoreDriver: repo.Ping,
		"redis":    func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
	}, log)
	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		return fmt.Errorf("failed to listen on grpc port: %w", err)
	}

	probeCtx, stopProbes := context.WithCancel(ctx)
	defer stopProbes()
	go probes.RunProbes(probeCtx, cfg.HealthInterval)

	errCh := make(chan error, 2)
	go func() {
		log.Info("grpc health server starting", "port", cfg.GRPCPort)
		if err := probes.Serve(lis); err != nil {
			errCh <- fmt.Errorf("grpc server error: %w", err)
		}
	}()
	go func() {
		log.Info("storefront starting", "port", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	var serveErr error
	select {
	case sig := <-quit:
		log.Info("shutting down", "signal", sig.String())
	case serveErr = <-errCh:
	}

	stopProbes()
	probes.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info("storefront exited")
	return serveErr
}
