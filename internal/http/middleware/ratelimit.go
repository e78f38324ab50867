package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/httprate"
	"github.com/schoolbell/schoolbell-auth/internal/config"
	"github.com/schoolbell/schoolbell-auth/internal/httputil"
)

// RateLimitConfig holds rate limiting configuration for one endpoint class.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
	Logger   *slog.Logger
}

// RateLimit creates an IP-based rate limiter middleware with logging.
func RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return httprate.Limit(
		cfg.Requests,
		cfg.Window,
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			if cfg.Logger != nil {
				cfg.Logger.Warn("rate limit exceeded",
					"ip", r.RemoteAddr,
					"path", r.URL.Path,
					"method", r.Method,
				)
			}
			httputil.Error(w, http.StatusTooManyRequests, "too many requests, please try again later")
		}),
	)
}

// NoRateLimit returns a no-op middleware when rate limiting is disabled.
func NoRateLimit() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return next
	}
}

// CreateRateLimiters creates the per-endpoint-class limiters. Code
// issuance is the tightest class: it both sends messages and resets the
// guess counter, so churning it must be expensive.
func CreateRateLimiters(cfg config.RateLimitConfig, logger *slog.Logger) map[string]func(http.Handler) http.Handler {
	if !cfg.Enabled {
		noOp := NoRateLimit()
		return map[string]func(http.Handler) http.Handler{
			"request_code": noOp,
			"verify_code":  noOp,
			"verify_link":  noOp,
		}
	}

	return map[string]func(http.Handler) http.Handler{
		"request_code": RateLimit(RateLimitConfig{
			Requests: cfg.RequestCodePerWindow,
			Window:   time.Duration(cfg.RequestCodeWindowMinutes) * time.Minute,
			Logger:   logger,
		}),
		"verify_code": RateLimit(RateLimitConfig{
			Requests: cfg.VerifyCodePerWindow,
			Window:   time.Duration(cfg.VerifyCodeWindowMinutes) * time.Minute,
			Logger:   logger,
		}),
		"verify_link": RateLimit(RateLimitConfig{
			Requests: cfg.VerifyLinkPerWindow,
			Window:   time.Duration(cfg.VerifyLinkWindowMinutes) * time.Minute,
			Logger:   logger,
		}),
	}
}
