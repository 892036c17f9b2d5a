package main

import (
	"context"
	"crypto/tls"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/harborview-health/patient-portal/cmd/mainconfig"
	"github.com/harborview-health/patient-portal/internal/api/router"
	"github.com/harborview-health/patient-portal/internal/appointments"
	"github.com/harborview-health/patient-portal/internal/booking"
	appconfig "github.com/harborview-health/patient-portal/internal/config"
	"github.com/harborview-health/patient-portal/internal/directory"
	"github.com/harborview-health/patient-portal/internal/http/handlers"
	"github.com/harborview-health/patient-portal/internal/notify"
	"github.com/harborview-health/patient-portal/internal/observability/metrics"
	"github.com/harborview-health/patient-portal/internal/slots"
	"github.com/harborview-health/patient-portal/pkg/logging"
)

func main() {
	// Local development convenience; a missing .env is fine.
	_ = godotenv.Load()

	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting patient-portal API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}

	ctx := context.Background()

	// PostgreSQL: provider directory, appointments, audit trail.
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create postgres pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	auditDB, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to open audit database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = auditDB.Close() }()

	// Redis: workflow sessions and slot holds.
	redisOpts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOpts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	redisClient := redis.NewClient(redisOpts)
	defer func() { _ = redisClient.Close() }()

	// AWS: SQS notification queue and SES email, unless running fully local.
	var awsCfg aws.Config
	needAWS := !cfg.UseMemoryQueue || cfg.EmailProvider == "ses"
	if needAWS {
		awsCfg, err = mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			logger.Error("failed to load AWS config", "error", err)
			os.Exit(1)
		}
	}

	// Slot occupancy: the simulated checker stands in for the scheduling
	// backend outside production.
	var checker slots.ReservationChecker
	if cfg.Env == "production" {
		checker = slots.NewRedisChecker(redisClient, cfg.SessionTTL)
	} else {
		checker = slots.NewSimulatedChecker(cfg.SlotBaseAvailability, cfg.SlotRaceChance, time.Now().UnixNano())
		logger.Info("using simulated slot occupancy",
			"base_availability", cfg.SlotBaseAvailability,
			"race_chance", cfg.SlotRaceChance,
		)
	}

	engine := slots.NewEngine(slots.Config{
		OpenHour:        cfg.SlotOpenHour,
		CloseHour:       cfg.SlotCloseHour,
		LunchHour:       cfg.SlotLunchHour,
		SuggestionDays:  cfg.SuggestionWindowDays,
		SuggestionLimit: cfg.SuggestionLimit,
	}, checker, logger)

	// Notification channels.
	var emailSender notify.EmailSender = notify.NewStubEmailSender(logger)
	switch cfg.EmailProvider {
	case "ses":
		if sender := notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
			FromEmail: cfg.SESFromEmail,
			FromName:  cfg.SESFromName,
		}, logger); sender != nil {
			emailSender = sender
		}
	case "sendgrid":
		if sender := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger); sender != nil {
			emailSender = sender
		}
	}
	smsSender := notify.NewStubSMSSender(logger)

	var publisher *notify.Publisher
	var worker *notify.Worker
	if cfg.UseMemoryQueue {
		queue := notify.NewMemoryQueue(128)
		publisher = notify.NewPublisher(queue, logger)
		worker = notify.NewWorker(queue, emailSender, smsSender, logger, notify.WithWorkerCount(cfg.WorkerCount))
	} else {
		queue := notify.NewSQSQueue(sqs.NewFromConfig(awsCfg), cfg.NotifyQueueURL)
		publisher = notify.NewPublisher(queue, logger)
		worker = notify.NewWorker(queue, emailSender, smsSender, logger, notify.WithWorkerCount(cfg.WorkerCount))
	}

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()
	worker.Start(workerCtx)

	// Workflow wiring.
	bookingMetrics := metrics.NewBookingMetrics(nil)
	dirRepo := directory.NewPostgresRepository(pool)
	controller := booking.NewController(booking.Config{
		Store:     booking.NewSessionStore(redisClient, cfg.SessionTTL),
		Directory: dirRepo,
		Engine:    engine,
		Submitter: appointments.NewPostgresRepository(pool),
		Audit:     appointments.NewAuditStore(auditDB),
		Notifier:  publisher,
		Metrics:   bookingMetrics,
		Logger:    logger,
	})

	r := router.New(&router.Config{
		Logger:    logger,
		Booking:   handlers.NewBookingHandler(controller, logger),
		Directory: handlers.NewDirectoryHandler(dirRepo, logger),
		Health: handlers.NewHealthHandler(map[string]handlers.Pinger{
			"postgres": pool,
			"redis":    redisPinger{client: redisClient},
		}),
		MetricsHandler:     promhttp.Handler(),
		PatientJWTSecret:   cfg.PatientJWTSecret,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitPerSecond: cfg.RateLimitPerSecond,
		RateLimitBurst:     cfg.RateLimitBurst,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	stopWorkers()
	worker.Wait()

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

type redisPinger struct {
	client *redis.Client
}

func (p redisPinger) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}
