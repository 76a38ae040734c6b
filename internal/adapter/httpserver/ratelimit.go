package httpserver

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pscheid92/livepoll/internal/app"
	"github.com/pscheid92/livepoll/internal/domain"
	apperrors "github.com/pscheid92/livepoll/internal/platform/errors"
	"golang.org/x/time/rate"
)

const (
	rateLimiterExpiry = 5 * time.Minute

	voterTokenHeader = "X-User-Fingerprint"
)

func rateLimitExceeded() *apperrors.Error {
	return apperrors.RateLimitedError("rate limit exceeded")
}

// newRateLimiter is the per-IP token bucket guarding the presenter API.
func newRateLimiter(ratePerSecond float64, burst int) echo.MiddlewareFunc {
	store := middleware.NewRateLimiterMemoryStoreWithConfig(
		middleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(ratePerSecond),
			Burst:     burst,
			ExpiresIn: rateLimiterExpiry,
		},
	)
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		Store: store,
		DenyHandler: func(c echo.Context, _ string, _ error) error {
			return c.JSON(http.StatusTooManyRequests, rateLimitExceeded().ToResponse())
		},
	})
}

// voteAdmissionKey keys a vote request by its origin, qualified by the voter
// token header when one is sent.
func voteAdmissionKey(c echo.Context) domain.RateLimitKey {
	return domain.RateLimitKey{
		Origin:     c.RealIP(),
		VoterToken: app.SanitizeInput(c.Request().Header.Get(voterTokenHeader)),
	}
}

// voteAdmission applies the fixed-window limiter to the vote route. A limiter
// failure admits the request.
func (s *Server) voteAdmission(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		key := voteAdmissionKey(c)
		now := s.clock.Now()

		decision, err := s.limiter.Admit(ctx, key, now)
		if err != nil {
			slog.WarnContext(ctx, "Rate limiter unavailable, admitting request", "origin", key.Origin, "error", err)
			if s.rateLimitMetrics != nil {
				s.rateLimitMetrics.Errors.Inc()
			}
			return next(c)
		}

		s.recordAdmission(key, decision)
		setRateLimitHeaders(c.Response().Header(), decision)

		if !decision.Allowed {
			c.Response().Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(decision.ResetAt, now)))
			return rateLimitExceeded().
				WithField("limit", decision.Limit).
				WithField("reset_at", decision.ResetAt.UTC().Format(time.RFC3339))
		}

		return next(c)
	}
}

func (s *Server) recordAdmission(key domain.RateLimitKey, decision domain.RateLimitDecision) {
	if s.rateLimitMetrics == nil {
		return
	}
	scope := "origin"
	if key.PerVoter() {
		scope = "voter"
	}
	outcome := "allowed"
	if !decision.Allowed {
		outcome = "rejected"
	}
	s.rateLimitMetrics.Decisions.WithLabelValues(scope, outcome).Inc()
}

func setRateLimitHeaders(h http.Header, decision domain.RateLimitDecision) {
	h.Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining()))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(decision.ResetAt.Unix(), 10))
}

// retryAfterSeconds rounds the time to the window reset up to whole seconds,
// never below one.
func retryAfterSeconds(resetAt, now time.Time) int {
	secs := int(math.Ceil(resetAt.Sub(now).Seconds()))
	return max(secs, 1)
}
