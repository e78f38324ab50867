package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/schoolbell/schoolbell-auth/internal/auth"
	"github.com/schoolbell/schoolbell-auth/internal/config"
	httpserver "github.com/schoolbell/schoolbell-auth/internal/http"
	"github.com/schoolbell/schoolbell-auth/internal/httputil"
	"github.com/schoolbell/schoolbell-auth/internal/notification"
	"github.com/schoolbell/schoolbell-auth/internal/repository"
)

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	// Setup logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Connect to database
	db, err := repository.NewDB(repository.Config{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		DBName:   cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	})
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	logger.Info("connected to database")

	// Initialize repositories
	usersRepo := repository.NewUsersRepository(db)
	tokensRepo := repository.NewTokensRepository(db)
	sessionsRepo := repository.NewSessionsRepository(db)

	// Initialize services
	otpService := auth.NewOTPService(auth.OTPConfig{
		TTL:         cfg.OTPTTL,
		MaxAttempts: cfg.OTPMaxAttempts,
	}, tokensRepo, usersRepo)

	sessionService := auth.NewSessionService(auth.SessionConfig{
		AnonymousTTL: cfg.AnonymousSessionTTL,
	}, sessionsRepo)

	verificationService := auth.NewVerificationService(auth.VerificationConfig{
		SigningKey: []byte(cfg.LinkSigningKey),
		Issuer:     cfg.LinkIssuer,
		AppBaseURL: cfg.AppBaseURL,
	}, tokensRepo, usersRepo)

	continuation := auth.NewContinuation(sessionsRepo, cfg.DefaultRedirectPath)

	// Initialize delivery channels if configured
	var emailChannel notification.Channel
	if cfg.HasSMTP() {
		emailChannel = notification.NewEmailService(notification.EmailConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			User:     cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
			FromName: cfg.SMTPFromName,
		})
		logger.Info("email channel enabled")
	}

	var smsChannel notification.Channel
	if cfg.HasSMS() {
		smsChannel = notification.NewSMSService(notification.SMSConfig{
			APIURL: cfg.SMSAPIURL,
			APIKey: cfg.SMSAPIKey,
			Sender: cfg.SMSSender,
			DryRun: cfg.SMSDryRun,
		}, logger)
		logger.Info("sms channel enabled", "dry_run", cfg.SMSDryRun)
	}

	cookies := httputil.DefaultCookieConfig()
	cookies.Secure = cfg.CookieSecure
	cookies.Domain = cfg.CookieDomain

	// Create router
	router := httpserver.NewRouter(httpserver.RouterConfig{
		Logger:                logger,
		SessionService:        sessionService,
		OTPService:            otpService,
		VerificationService:   verificationService,
		Continuation:          continuation,
		Users:                 usersRepo,
		EmailChannel:          emailChannel,
		SMSChannel:            smsChannel,
		Cookies:               cookies,
		AnonymousSessionTTL:   cfg.AnonymousSessionTTL,
		ActivityTouchInterval: cfg.ActivityTouchInterval,
		RateLimit:             cfg.RateLimit,
		SecurityHeaders:       cfg.SecurityHeaders,
		MaxRequestBodySize:    cfg.MaxRequestBodySize,
	})

	// Periodic cleanup of expired tokens and sessions
	cleanupCtx, stopCleanup := context.WithCancel(context.Background())
	defer stopCleanup()
	go runCleanup(cleanupCtx, logger, cfg.CleanupEvery, otpService, sessionService)

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.ServerAddr, cfg.ServerPort)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting server", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	logger.Info("server stopped")
}

// runCleanup deletes expired verification tokens and sessions on a fixed
// interval until ctx is cancelled.
func runCleanup(ctx context.Context, logger *slog.Logger, every time.Duration, otp *auth.OTPService, sessions *auth.SessionService) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := otp.CleanupExpired(ctx); err != nil {
				logger.Error("token cleanup failed", "error", err)
			} else if n > 0 {
				logger.Info("expired tokens deleted", "count", n)
			}
			if n, err := sessions.CleanupExpired(ctx); err != nil {
				logger.Error("session cleanup failed", "error", err)
			} else if n > 0 {
				logger.Info("expired sessions deleted", "count", n)
			}
		}
	}
}
