package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/schoolbell/schoolbell-auth/internal/auth"
	"github.com/schoolbell/schoolbell-auth/internal/config"
	"github.com/schoolbell/schoolbell-auth/internal/http/features/me"
	"github.com/schoolbell/schoolbell-auth/internal/http/features/signin"
	"github.com/schoolbell/schoolbell-auth/internal/http/features/verify"
	"github.com/schoolbell/schoolbell-auth/internal/http/middleware"
	"github.com/schoolbell/schoolbell-auth/internal/httputil"
	"github.com/schoolbell/schoolbell-auth/internal/notification"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Logger                *slog.Logger
	SessionService        *auth.SessionService
	OTPService            *auth.OTPService
	VerificationService   *auth.VerificationService
	Continuation          *auth.Continuation
	Users                 auth.UserStore
	EmailChannel          notification.Channel
	SMSChannel            notification.Channel
	Cookies               httputil.CookieConfig
	AnonymousSessionTTL   time.Duration
	ActivityTouchInterval time.Duration
	RateLimit             config.RateLimitConfig
	SecurityHeaders       config.SecurityHeadersConfig
	MaxRequestBodySize    int64
}

// NewRouter creates a new HTTP router with all routes registered.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Apply global middleware
	r.Use(middleware.Recover(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))
	r.Use(middleware.SecurityHeaders(cfg.SecurityHeaders))
	r.Use(middleware.RequestSizeLimit(cfg.MaxRequestBodySize))
	r.Use(middleware.SessionLoad(cfg.SessionService))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	rateLimiters := middleware.CreateRateLimiters(cfg.RateLimit, cfg.Logger)

	signinHandler := signin.NewHandler(
		cfg.Logger,
		cfg.SessionService,
		cfg.OTPService,
		cfg.Continuation,
		cfg.Users,
		cfg.EmailChannel,
		cfg.SMSChannel,
		cfg.Cookies,
		cfg.AnonymousSessionTTL,
	)
	r.Get("/v1/auth/signin", signinHandler.Start)
	r.Group(func(r chi.Router) {
		r.Use(rateLimiters["request_code"])
		r.Post("/v1/auth/otp/request", signinHandler.RequestCode)
	})
	r.Group(func(r chi.Router) {
		r.Use(rateLimiters["verify_code"])
		r.Post("/v1/auth/otp/verify", signinHandler.VerifyCode)
	})
	r.Post("/v1/auth/logout", signinHandler.Logout)

	verifyHandler := verify.NewHandler(
		cfg.Logger,
		cfg.VerificationService,
		cfg.Users,
		cfg.EmailChannel,
		cfg.SMSChannel,
	)
	r.Group(func(r chi.Router) {
		r.Use(rateLimiters["verify_link"])
		r.Get("/v1/auth/verify-email", verifyHandler.VerifyEmail)
		r.Post("/v1/auth/verify-phone", verifyHandler.VerifyPhone)
	})

	// Authenticated surface. The session policy keeps classification and
	// activity bookkeeping current on every request that lands here.
	policy := middleware.NewSessionPolicy(
		cfg.SessionService,
		cfg.Users,
		cfg.ActivityTouchInterval,
		cfg.Logger,
	)
	meHandler := me.NewHandler(cfg.Logger, cfg.Users)
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth())
		r.Use(policy.Handler)
		r.Get("/v1/me", meHandler.GetMe)
		r.With(rateLimiters["verify_link"]).Post("/v1/me/verify-email/request", verifyHandler.RequestEmailVerification)
		r.With(rateLimiters["verify_link"]).Post("/v1/me/verify-phone/request", verifyHandler.RequestPhoneVerification)
	})

	return r
}
