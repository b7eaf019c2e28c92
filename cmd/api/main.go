package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/example/restaurant-orders/internal/api"
	"github.com/example/restaurant-orders/internal/auth"
	"github.com/example/restaurant-orders/internal/command"
	"github.com/example/restaurant-orders/internal/config"
	"github.com/example/restaurant-orders/internal/domain/catalog"
	"github.com/example/restaurant-orders/internal/domain/order"
	"github.com/example/restaurant-orders/internal/infrastructure/cache"
	"github.com/example/restaurant-orders/internal/infrastructure/kafka"
	"github.com/example/restaurant-orders/internal/infrastructure/store"
	"github.com/example/restaurant-orders/internal/logger"
	"github.com/example/restaurant-orders/internal/notify"
	"github.com/example/restaurant-orders/internal/query"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

func main() {
	_ = godotenv.Load()

	cfg := config.MustLoad(os.Getenv("CONFIG_PATH"))
	log := logger.New(cfg.App.LogLevel, cfg.App.Name)

	// Money goes over the wire as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true

	if err := run(cfg, log); err != nil {
		log.Error("api stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := store.ConnectPostgres(cfg.Postgres.DSN, cfg.Postgres.MaxOpenConns, cfg.Postgres.MaxIdleConns, cfg.Postgres.MaxConnLifetime)
	if err != nil {
		return fmt.Errorf("connecting to postgres: %w", err)
	}
	defer db.Close()

	if cfg.Postgres.EnsureSchema {
		if err := store.EnsureSchema(ctx, db); err != nil {
			return fmt.Errorf("ensuring schema: %w", err)
		}
	}

	orders, err := orderRepository(ctx, cfg, db)
	if err != nil {
		return err
	}

	meals := store.NewPostgresCatalog(db)
	var menu catalog.Reader = meals
	if cfg.Redis.Enabled {
		menu = cache.NewCatalogCache(menu, cache.NewRedisCache(cfg.Redis.Addr, cfg.App.Name), cfg.Redis.CatalogTTL, log)
	}

	pricing, err := cfg.Pricing.Policy()
	if err != nil {
		return err
	}
	orderSvc := order.NewService(orders, menu, order.WithPricing(pricing), order.WithLogger(log))

	// With DynamoDB the table stream feeds the notifier, so nothing is
	// published from here.
	var publisher command.Publisher
	if cfg.Kafka.Enabled && cfg.Store.Backend == config.BackendPostgres {
		producer := kafka.NewProducer(cfg.Kafka.BrokerList(), cfg.Kafka.Topic)
		defer producer.Close()
		publisher = producer
	}

	hub := notify.NewHub(notify.WithSendTimeout(cfg.Notify.SendTimeout), notify.WithLogger(log))
	dispatcher := notify.NewDispatcher(hub, cfg.Notify.QueueSize, cfg.Notify.Workers, log)

	jwtService, err := auth.NewJWTService(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenExpiry)
	if err != nil {
		return err
	}

	handlers := api.NewHandlers(
		command.NewHandler(orderSvc, dispatcher, publisher, cfg.Orders.NumberRetries, log),
		query.NewHandler(orders, meals, log),
		log,
	)
	router := api.NewRouter(handlers, api.NewWebSocketHandlers(hub, cfg.HTTP.AllowedOrigins, log), jwtService, log)

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return dispatcher.Run(gctx)
	})
	g.Go(func() error {
		log.Info("http server listening", "addr", cfg.HTTP.Addr, "store", cfg.Store.Backend)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		hub.Close()
		return server.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	if dropped := dispatcher.Dropped(); dropped > 0 {
		log.Warn("notifications dropped during run", "count", dropped)
	}
	return err
}

func orderRepository(ctx context.Context, cfg *config.Config, db *sql.DB) (order.Repository, error) {
	switch cfg.Store.Backend {
	case config.BackendDynamoDB:
		client, err := store.NewDynamoClient(ctx, cfg.DynamoDB.Region, cfg.DynamoDB.Endpoint)
		if err != nil {
			return nil, fmt.Errorf("creating dynamodb client: %w", err)
		}
		return store.NewDynamoOrderStore(client, cfg.DynamoDB.OrdersTable), nil
	default:
		return store.NewPostgresOrderStore(db), nil
	}
}
