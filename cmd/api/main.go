package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"storefront/internal/cache"
	"storefront/internal/config"
	"storefront/internal/db"
	"storefront/internal/events"
	"storefront/internal/httpserver"
	"storefront/internal/migrate"
	brandrepo "storefront/internal/repository/brand"
	categoryrepo "storefront/internal/repository/category"
	orderrepo "storefront/internal/repository/order"
	productrepo "storefront/internal/repository/product"
	userrepo "storefront/internal/repository/user"
	voucherrepo "storefront/internal/repository/voucher"
	categorysvc "storefront/internal/service/category"
	"storefront/internal/service/checkout"
	ordersvc "storefront/internal/service/order"
	productsvc "storefront/internal/service/product"
	usersvc "storefront/internal/service/user"
	vouchersvc "storefront/internal/service/voucher"
)

type eventPublisher interface {
	checkout.EventPublisher
	ordersvc.Publisher
	Close() error
}

func main() {
	cfg := config.FromEnv()
	logger := log.New(os.Stdout, "[api] ", log.LstdFlags|log.LUTC|log.Lshortfile)

	ctx := context.Background()
	dbpool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Fatalf("connect to db: %v", err)
	}
	defer dbpool.Close()

	if err := migrate.Apply(ctx, dbpool); err != nil {
		logger.Fatalf("apply migrations: %v", err)
	}

	var publisher eventPublisher = events.Noop{}
	if len(cfg.KafkaBrokers) > 0 {
		kp, err := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaOrderTopic, logger)
		if err != nil {
			logger.Fatalf("connect to kafka: %v", err)
		}
		publisher = kp
		logger.Printf("publishing order events to topic %s", cfg.KafkaOrderTopic)
	}
	defer publisher.Close()

	probes := []httpserver.Probe{{Name: "postgres", Ping: dbpool.Ping}}

	var orderCache *cache.OrderCache
	if cfg.RedisAddr != "" {
		client, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			logger.Fatalf("connect to redis: %v", err)
		}
		defer client.Close()
		orderCache = cache.NewOrderCache(client, cfg.OrderCacheTTL, logger)
		probes = append(probes, httpserver.Probe{Name: "redis", Ping: func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		}})
	}

	userRepo := userrepo.NewPostgres(dbpool, logger)
	productRepo := productrepo.NewPostgres(dbpool, logger)
	voucherRepo := voucherrepo.NewPostgres(dbpool, logger)
	orderRepo := orderrepo.NewPostgres(dbpool, logger)
	categoryRepo := categoryrepo.NewPostgres(dbpool)
	brandRepo := brandrepo.NewPostgres(dbpool)

	// Typed nils must not leak into the interfaces the services nil-check.
	var (
		checkoutCache checkout.CacheInvalidator
		ordersCache   ordersvc.Cache
	)
	if orderCache != nil {
		checkoutCache = orderCache
		ordersCache = orderCache
	}

	checkoutService := checkout.New(checkout.NewPostgresTx(dbpool, logger), publisher, checkoutCache, logger)
	orderService := ordersvc.New(orderRepo, ordersCache, publisher, logger)
	productService := productsvc.New(productRepo, brandRepo, categoryRepo, logger)
	voucherService := vouchersvc.New(voucherRepo, categoryRepo, productRepo, logger)
	categoryService := categorysvc.New(categoryRepo)
	userService := usersvc.New(userRepo)

	srv, err := httpserver.New(cfg.HTTPAddr, logger, probes, httpserver.Deps{
		CheckoutSvc: checkoutService,
		OrderSvc:    orderService,
		ProductSvc:  productService,
		VoucherSvc:  voucherService,
		CategorySvc: categoryService,
		UserSvc:     userService,
	}, cfg.AllowedOrigins)
	if err != nil {
		logger.Fatalf("init server: %v", err)
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Printf("starting http server on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		logger.Printf("received signal %s, shutting down", sig)
	case err := <-serverErr:
		logger.Printf("server error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Printf("graceful shutdown failed: %v", err)
	} else {
		logger.Printf("server stopped")
	}
}
