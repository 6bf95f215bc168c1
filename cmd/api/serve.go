package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/furima/checkout/internal/app"
	"github.com/furima/checkout/internal/clock"
	"github.com/furima/checkout/internal/config"
	"github.com/furima/checkout/internal/events"
	"github.com/furima/checkout/internal/payment/payjp"
	"github.com/furima/checkout/internal/storage/postgres"
	redisstore "github.com/furima/checkout/internal/storage/redis"
	transporthttp "github.com/furima/checkout/internal/transport/http"
	"github.com/furima/checkout/migrations"
)

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the checkout HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, logger)
		},
	}
}

func serve(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	logger.Info("starting", "config", cfg.Redacted())

	startupCtx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()

	pool, err := openPool(startupCtx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer pool.Close()

	applied, err := migrations.Apply(startupCtx, pool)
	if err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	if len(applied) > 0 {
		logger.Info("migrations applied", "names", applied)
	}

	clk := clock.NewSystem()
	opts := []app.PlacementServiceOption{
		app.WithLogger(logger),
		app.WithRetryBackoff(cfg.Payment.RetryBackoff),
		app.WithCommitTimeout(cfg.Database.CommitTimeout),
	}

	if cfg.Redis.URL != "" {
		ledger, closeLedger, err := newTokenLedger(startupCtx, cfg.Redis)
		if err != nil {
			return err
		}
		defer closeLedger()
		opts = append(opts, app.WithTokenLedger(ledger))
		logger.Info("captured-token ledger enabled")
	}

	publisher, closePublisher, err := newPublisher(cfg.AMQP, logger, clk)
	if err != nil {
		return err
	}
	defer closePublisher()
	opts = append(opts, app.WithEventPublisher(publisher))

	items := postgres.NewItemRepository(pool)
	orders := postgres.NewOrderRepository(pool)
	gateway := payjp.New(cfg.Payment.SecretKey,
		payjp.WithBaseURL(cfg.Payment.BaseURL),
		payjp.WithTimeout(cfg.Payment.Timeout),
	)
	placement := app.NewPlacementService(items, orders, gateway, clk, opts...)
	query := app.NewOrderQueryService(orders, items)

	server := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: newHandler(cfg, logger, pool, placement, query),
	}

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(sigCtx)
	g.Go(func() error {
		logger.Info("api listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown signal received, stopping server")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	})

	err = g.Wait()
	logger.Info("server stopped")
	return err
}

func newHandler(cfg config.Config, logger *slog.Logger, pool *pgxpool.Pool, placement *app.PlacementService, query *app.OrderQueryService) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/health", transporthttp.HandleHealth(pool))
	mux.Handle("/checkout/config", transporthttp.HandleCheckoutConfig(cfg.Payment.PublicKey))
	mux.Handle("/items/", transporthttp.RequireUser(transporthttp.HandlePlaceOrder(placement, logger)))
	mux.Handle("/orders/", transporthttp.RequireUser(transporthttp.HandleGetOrder(query)))
	mux.Handle("/", transporthttp.NotFoundHandler())

	return transporthttp.RequestLogger(transporthttp.CORS(cfg.Server.CORSOrigins, mux), logger)
}

func newTokenLedger(ctx context.Context, cfg config.RedisConfig) (*redisstore.TokenLedger, func(), error) {
	opt, err := goredis.ParseURL(cfg.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := goredis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("redis ping: %w", err)
	}
	return redisstore.NewTokenLedger(client, cfg.LedgerTTL), func() { _ = client.Close() }, nil
}

func newPublisher(cfg config.AMQPConfig, logger *slog.Logger, clk clock.Clock) (app.EventPublisher, func(), error) {
	if cfg.URL == "" {
		logger.Info("AMQP_URL not set, publishing events to the log")
		return events.NewLogPublisher(logger, clk), func() {}, nil
	}
	conn, ch, err := events.Connect(cfg.URL, logger)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		_ = ch.Close()
		_ = conn.Close()
	}
	return events.NewRabbitPublisher(ch, clk), closeFn, nil
}
