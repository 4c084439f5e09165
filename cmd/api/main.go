package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"

	"github.com/baharkarakas/franchise-backend/internal/api"
	"github.com/baharkarakas/franchise-backend/internal/auth"
	"github.com/baharkarakas/franchise-backend/internal/cache"
	"github.com/baharkarakas/franchise-backend/internal/config"
	"github.com/baharkarakas/franchise-backend/internal/db"
	"github.com/baharkarakas/franchise-backend/internal/events"
	"github.com/baharkarakas/franchise-backend/internal/logger"
	"github.com/baharkarakas/franchise-backend/internal/metrics"
	"github.com/baharkarakas/franchise-backend/internal/payments"
	"github.com/baharkarakas/franchise-backend/internal/repository/postgres"
	"github.com/baharkarakas/franchise-backend/internal/scheduler"
	"github.com/baharkarakas/franchise-backend/internal/services"
	"github.com/baharkarakas/franchise-backend/internal/worker"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New(cfg.Env, cfg.LogLevel)
	slog.SetDefault(log)
	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	if cfg.Migrate {
		if err := db.RunMigrations(ctx, pool); err != nil {
			return err
		}
	}
	store := postgres.NewStore(pool)
	clock := clockwork.NewRealClock()

	var bg sync.WaitGroup
	var (
		kv  cache.Cache
		bus events.Bus
	)
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return err
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return err
		}
		kv = cache.NewRedis(rdb, "franchise:")
		rbus := events.NewRedisBus(rdb)
		bus = rbus
		bg.Add(1)
		go func() {
			defer bg.Done()
			if err := rbus.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("event relay stopped", "err", err)
			}
		}()
		log.Info("redis enabled", "addr", opts.Addr)
	} else {
		mem := cache.NewMemory(clock)
		kv = mem
		bus = events.NewHub()
		bg.Add(1)
		go func() {
			defer bg.Done()
			mem.RunJanitor(ctx, cfg.CacheTTL)
		}()
	}
	loader := cache.NewLoader(kv, cfg.CacheTTL)

	var gw payments.Gateway
	switch cfg.PaymentProvider {
	case "stripe":
		gw = payments.NewStripe(payments.StripeConfig{
			SecretKey:     cfg.StripeSecretKey,
			WebhookSecret: cfg.StripeWebhookSecret,
			SuccessURL:    cfg.CheckoutSuccessURL,
			CancelURL:     cfg.CheckoutCancelURL,
		})
	default:
		secret := cfg.StripeWebhookSecret
		if secret == "" {
			secret = "whsec_dev"
			log.Warn("fake payments without STRIPE_WEBHOOK_SECRET, using a development secret")
		}
		gw = payments.NewFake(cfg.CheckoutSuccessURL, secret)
	}
	gw = payments.WithBreaker(gw, payments.DefaultBreakerSettings())

	wp := worker.NewPool(cfg.WorkerCount, 256)
	defer wp.Stop()

	tm := auth.NewTokenManager(cfg.JWTAccessSecret, cfg.JWTRefreshSecret, cfg.JWTIssuer, cfg.JWTAccessTTL, cfg.JWTRefreshTTL)
	notifications := services.NewNotificationService(store, bus, wp, clock)
	balances := services.NewBalanceService(store, notifications)
	franchises := services.NewFranchiseService(store, loader)
	users := services.NewUserService(store, tm, franchises, loader)
	bookings := services.NewBookingService(store, balances, notifications, clock, cfg.BookingLockTTL)
	paymentSvc := services.NewPaymentService(store, gw, balances, notifications)

	sweeper := scheduler.NewSweeper(bookings, clock, scheduler.Config{
		Interval: cfg.LockSweepInterval,
		Batch:    cfg.LockSweepBatch,
		Backoff:  cfg.LockSweepRetryBackoff,
	})
	bg.Add(1)
	go func() {
		defer bg.Done()
		sweeper.Run(ctx)
	}()

	// Shutdown does not cancel in-flight requests, so SSE streams get their own signal.
	streams, stopStreams := context.WithCancel(context.Background())
	defer stopStreams()

	srv := &http.Server{
		Addr: cfg.HTTPAddress(),
		Handler: api.NewRouter(api.RouterDeps{
			Cfg:           cfg,
			Clock:         clock,
			Tokens:        tm,
			DB:            store,
			Users:         users,
			Franchises:    franchises,
			Balances:      balances,
			Bookings:      bookings,
			Payments:      paymentSvc,
			Notifications: notifications,
			StreamsDone:   streams.Done(),
		}),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	srv.RegisterOnShutdown(stopStreams)

	errc := make(chan error, 1)
	go func() {
		log.Info("server starting", "addr", srv.Addr, "env", cfg.Env, "payments", gw.Name())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		stop()
		bg.Wait()
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", "err", err)
	}
	bg.Wait()
	return nil
}
