package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/srgjo27/wellness_booking/internal/adapter/cache"
	"github.com/srgjo27/wellness_booking/internal/adapter/handler"
	"github.com/srgjo27/wellness_booking/internal/adapter/messaging"
	"github.com/srgjo27/wellness_booking/internal/adapter/payment"
	"github.com/srgjo27/wellness_booking/internal/adapter/repository/postgres"
	"github.com/srgjo27/wellness_booking/internal/core/ports"
	"github.com/srgjo27/wellness_booking/internal/core/services"
	"github.com/srgjo27/wellness_booking/internal/platform/config"
	"github.com/srgjo27/wellness_booking/internal/platform/database"
	"github.com/srgjo27/wellness_booking/internal/platform/httpx"
	"github.com/srgjo27/wellness_booking/internal/platform/logger"
	"github.com/srgjo27/wellness_booking/internal/platform/telemetry"
)

const maxBodyBytes = 1 << 20

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.ServiceName, cfg.LogLevel)

	if err := run(cfg, log); err != nil {
		log.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	otelShutdown, err := telemetry.Setup(ctx, telemetry.Config{
		Enabled:      cfg.OTelEnabled,
		ServiceName:  cfg.ServiceName,
		OTLPEndpoint: cfg.OTelEndpoint,
		SampleRatio:  cfg.OTelSampleRatio,
	})
	if err != nil {
		log.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	policy, err := cfg.Policy()
	if err != nil {
		return err
	}

	db, err := database.NewPostgresDB(ctx, database.Config{
		DSN:      cfg.DB.DSN(),
		MaxConns: cfg.DB.MaxConns,
	}, log)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		return err
	}

	log.Info("connecting to redis", "addr", cfg.Redis.Addr)
	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Addr,
		DB:   cfg.Redis.DB,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		return err
	}

	var gateway ports.PaymentGateway = payment.DisabledGateway{}
	if cfg.StripeSecretKey != "" {
		gateway = payment.NewStripeGateway(payment.StripeConfig{
			SecretKey:  cfg.StripeSecretKey,
			BaseURL:    cfg.StripeBaseURL,
			MaxRetries: 2,
		})
	} else {
		log.Warn("STRIPE_SECRET_KEY not set; paid services cannot be booked")
	}

	var publisher ports.EventPublisher = messaging.NoopPublisher{}
	if brokers := messaging.SplitBrokers(cfg.KafkaBrokers); len(brokers) > 0 {
		kp := messaging.NewKafkaPublisher(brokers, cfg.KafkaTopicPrefix, log)
		defer kp.Close()
		publisher = kp
	}

	serviceRepo := postgres.NewServiceRepository(db)
	bookingRepo := postgres.NewBookingRepository(db)
	paymentRepo := postgres.NewPaymentRepository(db)
	disputeRepo := postgres.NewDisputeRepository(db)

	clock := ports.SystemClock{}

	availabilityService := services.NewAvailabilityService(serviceRepo, bookingRepo, policy, clock)
	catalogService := services.NewCatalogService(serviceRepo, clock, log, cfg.Currency)
	bookingService := services.NewBookingService(services.BookingDeps{
		Services:     serviceRepo,
		Bookings:     bookingRepo,
		Payments:     paymentRepo,
		Gateway:      gateway,
		Publisher:    publisher,
		Idempotency:  cache.NewIdempotencyStore(redisClient),
		Availability: availabilityService,
		Clock:        clock,
		Logger:       log,
	}, services.BookingConfig{
		CommitTimeout:  cfg.Booking.CommitTimeout,
		PendingTTL:     cfg.Booking.PendingTTL,
		IdempotencyTTL: cfg.Booking.IdempotencyTTL,
	})
	disputeService := services.NewDisputeService(disputeRepo, bookingRepo, serviceRepo, paymentRepo, gateway, publisher, clock, log)

	go bookingService.RunBackgroundSweeper(ctx, cfg.Booking.SweepInterval)

	limiter := httpx.NewRedisRateLimiter(redisClient, cfg.Booking.CommitRateLimit, time.Minute, "rl:commit")

	router := handler.NewRouter(
		handler.RouterConfig{
			JWTSecret:   cfg.JWTSecret,
			CommitLimit: limiter.Middleware(log, true),
		},
		handler.NewServiceHandler(catalogService, availabilityService, log),
		handler.NewBookingHandler(bookingService, policy.Location, log),
		handler.NewDisputeHandler(disputeService, log),
	)

	httpHandler := httpx.Chain(router,
		httpx.WithRequestID,
		httpx.WithAccessLog(log),
		httpx.WithBodyLimit(maxBodyBytes),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, cfg.ServiceName)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.Booking.CommitTimeout + 10*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	log.Info("http server stopped")
	return nil
}
