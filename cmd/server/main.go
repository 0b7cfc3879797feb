package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"finance_users/internal/api"
	"finance_users/internal/app/service"
	"finance_users/internal/app/worker"
	"finance_users/internal/common/security"
	"finance_users/internal/domain/repository"
	"finance_users/internal/platform/config"
	"finance_users/internal/platform/database"
	"finance_users/internal/platform/lock"
	"finance_users/internal/platform/logging"
	"finance_users/internal/platform/mailer"
	"finance_users/internal/platform/metrics"
	"finance_users/internal/platform/queue"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	// 1. Load Configuration
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel, os.Stdout)
	logger.Info("Configuration loaded.")

	ctx := context.Background()

	// 2. Initialize Database
	db, err := database.Connect(ctx, cfg.DBConnStr)
	if err != nil {
		logger.WithError(err).Fatal("Database connection failed")
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		logger.WithError(err).Fatal("Database migration failed")
	}
	logger.Info("Database connected.")

	// 3. Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	// 4. Repositories and mail transport
	userRepo := repository.NewPgUserRepository(db)

	var mail service.Mailer
	if cfg.SMTPTransport != "" {
		smtp, err := mailer.NewSMTPMailer(cfg.SMTPTransport, cfg.MailFrom)
		if err != nil {
			logger.WithError(err).Fatal("Invalid SMTP transport")
		}
		mail = smtp
	} else {
		logger.Warn("SMTP_TRANSPORT not set, verification emails will fail")
		mail = unconfiguredMailer{}
	}

	// 5. Services
	issuer := security.NewTokenIssuer(cfg.JWTKey, cfg.JWTExp)
	emailService := service.NewEmailService(userRepo, mail, logger, m)
	authService := service.NewAuthService(userRepo, issuer, logger, m)
	userOpts := []service.UserServiceOption{service.WithMetrics(m), service.WithDeleteMode(cfg.DeleteMode)}
	bootstrapper := service.NewBootstrapper(userRepo, service.AdminSeed{
		Username: cfg.AdminUsername,
		Email:    cfg.AdminEmail,
		Password: cfg.AdminPassword,
	}, logger)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	workerDone := make(chan struct{})
	close(workerDone)

	// 6. Optional Redis: bootstrap lock and verification mail queue
	if cfg.RedisEnabled() {
		rdb, err := queue.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			logger.WithError(err).Fatal("Redis connection failed")
		}
		defer rdb.Close()
		logger.Info("Redis connected.")

		bootstrapper.WithLock(lock.NewRedisLocker(rdb), cfg.BootstrapLockKey, cfg.BootstrapLockTTL())

		mailQueue := queue.NewMailQueue(rdb, cfg.MailQueueName)
		userOpts = append(userOpts, service.WithVerificationQueue(mailQueue))

		mailWorker := worker.NewMailWorker(mailQueue, emailService, logger)
		workerDone = make(chan struct{})
		go func() {
			defer close(workerDone)
			mailWorker.Start(workerCtx)
		}()
	}
	userService := service.NewUserService(userRepo, logger, userOpts...)

	if err := bootstrapper.EnsureAdmin(ctx); err != nil {
		logger.WithError(err).Fatal("Admin bootstrap failed")
	}

	// 7. Router & HTTP Server
	router := api.NewRouter(api.Dependencies{
		Users:   userService,
		Auth:    authService,
		Emails:  emailService,
		Issuer:  issuer,
		Metrics: m,
		Logger:  logger,
	})

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// 8. Graceful Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.WithField("port", cfg.APIPort).Info("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatalf("Could not listen on %s", cfg.APIPort)
		}
	}()

	<-stop

	logger.Info("Shutting down server...")
	workerCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server shutdown failed")
	}
	select {
	case <-workerDone:
	case <-shutdownCtx.Done():
		logger.Warn("Mail worker did not stop before shutdown deadline")
	}

	logger.Info("Server and worker stopped gracefully.")
}

type unconfiguredMailer struct{}

func (unconfiguredMailer) Send(ctx context.Context, to, subject, text, html string) error {
	return errors.New("no SMTP transport configured")
}
