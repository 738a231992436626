package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"event-tickets/internal/assets"
	"event-tickets/internal/client"
	"event-tickets/internal/config"
	"event-tickets/internal/logger"
	"event-tickets/internal/ratelimit"
	"event-tickets/internal/repository"
	"event-tickets/internal/server"
	"event-tickets/internal/service"
	"event-tickets/internal/ticketcode"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// load .env into os.Environ
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found (ok in prod)")
	}

	cfg := &config.Config{}
	if err := env.Parse(cfg); err != nil {
		fmt.Printf("Failed to parse config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log.Level, cfg.Environment.Name)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}

	os.Exit(exitCode(log, run(cfg, log)))
}

// exitCode flushes the logger before the process exits, since deferred
// calls do not run past os.Exit.
func exitCode(log *zap.Logger, err error) int {
	code := 0
	if err != nil {
		log.Error("api exited", zap.Error(err))
		code = 1
	}
	_ = log.Sync()
	return code
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx := context.Background()

	scheme, err := ticketcode.ParseScheme(cfg.Ticket.CodeScheme)
	if err != nil {
		return err
	}
	generator, err := ticketcode.NewGenerator(cfg.Ticket.CodeLength, scheme)
	if err != nil {
		return err
	}

	db, err := client.InitDatabase(cfg.Database)
	if err != nil {
		return err
	}

	rdb, err := client.InitRedisClient(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if rdb == nil {
		log.Warn("REDIS_ADDR not set, scanner rate limiting disabled")
	} else {
		defer func() { _ = rdb.Close() }()
	}

	posters, err := posterCache(cfg, log)
	if err != nil {
		return err
	}
	_ = posters.EnsureLoaded(ctx)

	stripeClient := client.NewStripeClient(&cfg.Stripe)
	mailer := client.NewResendClient(&cfg.Resend)

	purchaseRepo := repository.NewPurchaseRepository(db)
	ticketRepo := repository.NewTicketRepository(db)
	sequenceRepo := repository.NewSequenceRepository(db)
	webhookEventRepo := repository.NewWebhookEventRepository(db)

	var limiter *ratelimit.Limiter
	if rdb != nil {
		limiter = ratelimit.NewLimiter(repository.NewRateWindowRepository(rdb), cfg.Redis.ScannerLimitPerMinute)
	}

	issuer := service.NewTicketIssuer(db, generator, purchaseRepo, ticketRepo, sequenceRepo, log)
	notifier := service.NewNotificationService(mailer, posters, ticketRepo, cfg.Resend.EventName, log)
	redemptionService := service.NewRedemptionService(db, ticketRepo, log)
	ticketService := service.NewTicketService(service.TicketServiceConfig{
		MaxManualQuantity: cfg.Ticket.MaxManualQuantity,
		DefaultCurrency:   cfg.Ticket.DefaultCurrency,
	}, issuer, ticketRepo, notifier, log)
	webhookService := service.NewWebhookService(stripeClient, issuer, webhookEventRepo, notifier, log)

	if cfg.AdminAPIKey == "" {
		log.Warn("ADMIN_API_KEY not set, admin routes are open")
	}

	srv := server.NewServer(server.Options{
		Environment:    cfg.Environment.Name,
		AdminAPIKey:    cfg.AdminAPIKey,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
	}, log, limiter, ticketService, redemptionService, webhookService)

	serverAddr := cfg.HTTP.Host + ":" + cfg.HTTP.Port

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting HTTP server", zap.String("addr", serverAddr), zap.String("code_scheme", string(generator.Scheme())))
		if err := srv.Start(serverAddr); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case sig := <-sigChan:
		log.Info("signal received, starting graceful shutdown", zap.String("signal", sig.String()))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info("shutdown complete")
	return nil
}

func posterCache(cfg *config.Config, log *zap.Logger) (*assets.Cache, error) {
	switch {
	case cfg.Assets.PosterObjectKey != "" && cfg.S3.Endpoint != "":
		s3Client, err := client.NewS3Client(cfg.S3)
		if err != nil {
			return nil, err
		}
		return assets.NewCache(assets.NewObjectSource(s3Client, cfg.S3.Bucket, cfg.Assets.PosterObjectKey), log), nil
	case cfg.Assets.PosterPath != "":
		return assets.NewCache(assets.NewFileSource(cfg.Assets.PosterPath), log), nil
	default:
		return assets.NewCache(nil, log), nil
	}
}
