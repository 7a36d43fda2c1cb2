package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/issouf7507-dev/codeqr-sub000/internal/cart"
	"github.com/issouf7507-dev/codeqr-sub000/internal/catalog"
	"github.com/issouf7507-dev/codeqr-sub000/internal/config"
	"github.com/issouf7507-dev/codeqr-sub000/internal/db"
	"github.com/issouf7507-dev/codeqr-sub000/internal/events"
	httpapi "github.com/issouf7507-dev/codeqr-sub000/internal/http"
	"github.com/issouf7507-dev/codeqr-sub000/internal/inventory"
	"github.com/issouf7507-dev/codeqr-sub000/internal/logging"
	"github.com/issouf7507-dev/codeqr-sub000/internal/metrics"
	"github.com/issouf7507-dev/codeqr-sub000/internal/order"
	"github.com/issouf7507-dev/codeqr-sub000/internal/qrcode"
	"github.com/issouf7507-dev/codeqr-sub000/internal/user"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("storefront stopped", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- DB ---
	if cfg.RunMigrations {
		if err := db.RunMigrations(cfg.DatabaseDSN, logger); err != nil {
			return fmt.Errorf("db migrate: %w", err)
		}
	}
	pool, err := db.NewPool(ctx, cfg.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("db connect: %w", err)
	}
	defer pool.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return err
	}

	store, closeStore, err := newCartStore(ctx, cfg, pool)
	if err != nil {
		return err
	}
	defer closeStore()
	carts := cart.NewCarts(cart.NewPersistence(store, logger.Named("cart"), m))

	// --- domain ---
	outbox := events.NewOutbox(pool)
	stockRepo := inventory.NewPostgresRepository(pool)
	userRepo := user.NewPostgresRepository(pool, 0)

	orders := order.NewService(pool, order.NewRepository(pool), stockRepo, cat, outbox, logger, m)
	qrcodes := qrcode.NewService(pool, qrcode.NewPostgresRepository(pool), userRepo, outbox, logger, m, qrcode.Config{
		ActivationURL:     cfg.ActivationURL,
		MinPasswordLength: cfg.MinPasswordLength,
	})
	users := user.NewService(userRepo, pool, cfg.MinPasswordLength)

	// --- events ---
	var conn *amqp.Connection
	if cfg.HasSink(config.EventSinkRabbitMQ) || cfg.ConsumePayment {
		conn, err = events.Dial(cfg.RabbitMQURL)
		if err != nil {
			return err
		}
		defer conn.Close()
	}

	var wg sync.WaitGroup
	sqlDB, err := db.Open(cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	pub, err := newPublisher(cfg, conn, logger)
	if err != nil {
		return err
	}
	if pub != nil {
		defer pub.Close()
		relay := events.NewRelay(outbox, events.NewSequenceRepository(sqlDB), pub, logger, m, cfg.OutboxInterval, cfg.OutboxBatch)
		wg.Add(1)
		go func() {
			defer wg.Done()
			relay.Run(ctx)
		}()
	}

	var consumerDone <-chan struct{}
	if cfg.ConsumePayment {
		consumer := events.NewPaymentConsumer(orders, events.NewDedupRepository(sqlDB), logger)
		consumerDone, err = consumer.Start(ctx, conn)
		if err != nil {
			return fmt.Errorf("start payment consumer: %w", err)
		}
	}

	// --- HTTP ---
	probes := []httpapi.HealthProbe{{Name: "postgres", Check: pool.Ping}}
	if conn != nil {
		probes = append(probes, httpapi.HealthProbe{Name: "rabbitmq", Check: func(context.Context) error {
			if conn.IsClosed() {
				return errors.New("connection closed")
			}
			return nil
		}})
	}

	router := httpapi.NewRouter(httpapi.Deps{
		Logger:           logger,
		Metrics:          m,
		CORSAllowOrigins: cfg.CORSAllowOrigins,
		AdminToken:       cfg.AdminToken,
		RequestTimeout:   cfg.RequestTimeout,
		Catalog:          cat,
		Carts:            carts,
		Stock:            inventory.NewService(stockRepo, cat),
		Orders:           orders,
		QRCodes:          qrcodes,
		Users:            users,
		Probes:           probes,
	})
	if cfg.AdminToken == "" {
		logger.Warn("ADMIN_TOKEN not set, admin api disabled")
	}

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listening", zap.String("addr", cfg.HTTPAddr), zap.String("cart_store", store.Name()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// --- graceful shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal", zap.String("signal", sig.String()))
	case runErr = <-errCh:
		logger.Error("http server failed", zap.Error(runErr))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	_ = httpServer.Shutdown(shutdownCtx)
	cancel()
	wg.Wait()
	if consumerDone != nil {
		<-consumerDone
	}

	logger.Info("shutdown complete")
	return runErr
}

func newCartStore(ctx context.Context, cfg config.Config, pool *pgxpool.Pool) (cart.Store, func(), error) {
	noop := func() {}
	switch cfg.CartStore {
	case config.CartStoreMemory:
		return cart.NewMemoryStore(), noop, nil
	case config.CartStoreFile:
		s, err := cart.NewFileStore(cfg.CartDir)
		return s, noop, err
	case config.CartStoreSQLite:
		s, err := cart.OpenSQLiteStore(ctx, cfg.CartSQLitePath)
		if err != nil {
			return nil, noop, err
		}
		return s, func() { _ = s.Close() }, nil
	default:
		return cart.NewPostgresStore(pool), noop, nil
	}
}

// newPublisher builds the configured sinks. It returns nil when events stay
// in the outbox.
func newPublisher(cfg config.Config, conn *amqp.Connection, logger *zap.Logger) (events.Publisher, error) {
	var pubs events.Multi
	for _, sink := range cfg.EventSinks {
		switch sink {
		case config.EventSinkRabbitMQ:
			p, err := events.NewRabbitPublisher(conn)
			if err != nil {
				return nil, err
			}
			pubs = append(pubs, p)
		case config.EventSinkKafka:
			pubs = append(pubs, events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic))
		case config.EventSinkLog:
			pubs = append(pubs, events.NewLogPublisher(logger.Named("events")))
		}
	}
	switch len(pubs) {
	case 0:
		return nil, nil
	case 1:
		return pubs[0], nil
	}
	return pubs, nil
}
