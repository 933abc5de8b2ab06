package middleware

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/DrynaaCode/vegedex-v2-tsc/internal/core/port"
	appLogger "github.com/DrynaaCode/vegedex-v2-tsc/internal/infra/logger"
)

const rateLimitedMessage = "too many attempts, please try again later"

// IdentifierFunc extracts the identifier a limit is scoped to.
type IdentifierFunc func(*gin.Context) (string, bool)

// RateLimitRule caps the attempts one identifier may make on a route within a
// sliding window.
type RateLimitRule struct {
	Name       string
	Limit      int
	Window     time.Duration
	Identifier IdentifierFunc
}

func (r RateLimitRule) usable() bool {
	return r.Identifier != nil && r.Limit > 0 && r.Window > 0
}

// RateLimiter guards the credential endpoints. Store failures let the request
// through.
type RateLimiter struct {
	store  port.RateLimitStore
	logger *zap.Logger
	now    func() time.Time
}

// ProblemDetails is the RFC 9457 body of a 429 response. Message carries the
// same text as every other error body of the API.
type ProblemDetails struct {
	Type       string `json:"type"`
	Title      string `json:"title"`
	Status     int    `json:"status"`
	Detail     string `json:"detail"`
	Instance   string `json:"instance"`
	RetryAfter int    `json:"retryAfter"`
	Message    string `json:"message"`
}

// NewRateLimiter builds a limiter over store.
func NewRateLimiter(store port.RateLimitStore, logger *zap.Logger) *RateLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RateLimiter{store: store, logger: logger, now: time.Now}
}

// WithClock overrides the time source.
func (rl *RateLimiter) WithClock(now func() time.Time) *RateLimiter {
	if now != nil {
		rl.now = now
	}
	return rl
}

// ClientIPIdentifier scopes a limit to the client IP.
func ClientIPIdentifier() IdentifierFunc {
	return func(c *gin.Context) (string, bool) {
		ip := c.ClientIP()
		return ip, ip != ""
	}
}

// attemptWindow is one identifier's window once the current attempt is counted.
type attemptWindow struct {
	limit   int
	used    int
	resetAt time.Time
	full    bool
}

func (w attemptWindow) remaining() int {
	return max(w.limit-w.used, 0)
}

func (w attemptWindow) retryAfter(now time.Time) int {
	return max(int(math.Ceil(w.resetAt.Sub(now).Seconds())), 0)
}

// RateLimit counts the request against rule and answers 429 once the window is
// full. A rule without identifier, limit or window is a no-op.
func (rl *RateLimiter) RateLimit(rule RateLimitRule) gin.HandlerFunc {
	if !rule.usable() || rl.store == nil {
		return func(c *gin.Context) { c.Next() }
	}
	if rule.Name == "" {
		rule.Name = "default"
	}

	return func(c *gin.Context) {
		identifier, ok := rule.Identifier(c)
		if !ok {
			c.Next()
			return
		}

		now := rl.now()
		window, err := rl.take(c.Request.Context(), rule, rule.Name+":"+identifier, now)
		if err != nil {
			rl.logger.Warn("rate limit check failed",
				zap.String("rule", rule.Name),
				zap.String("identifier", appLogger.MaskIP(identifier)),
				zap.Error(err),
			)
			c.Next()
			return
		}

		header := c.Writer.Header()
		header.Set("X-RateLimit-Limit", strconv.Itoa(window.limit))
		header.Set("X-RateLimit-Remaining", strconv.Itoa(window.remaining()))
		header.Set("X-RateLimit-Reset", strconv.FormatInt(window.resetAt.Unix(), 10))

		if window.full {
			rl.reject(c, window.retryAfter(now))
			return
		}
		c.Next()
	}
}

// take trims expired attempts and records the current one unless the window
// is already full. A rejected attempt is not recorded.
func (rl *RateLimiter) take(ctx context.Context, rule RateLimitRule, key string, now time.Time) (attemptWindow, error) {
	if err := rl.store.TrimWindow(ctx, key, rule.Window, now); err != nil {
		return attemptWindow{}, fmt.Errorf("trim window: %w", err)
	}
	used, err := rl.store.CountAttempts(ctx, key, rule.Window, now)
	if err != nil {
		return attemptWindow{}, fmt.Errorf("count attempts: %w", err)
	}
	oldest, found, err := rl.store.OldestAttempt(ctx, key, rule.Window, now)
	if err != nil {
		return attemptWindow{}, fmt.Errorf("oldest attempt: %w", err)
	}

	window := attemptWindow{limit: rule.Limit, used: used, resetAt: now.Add(rule.Window)}
	if found {
		window.resetAt = oldest.Add(rule.Window)
	}
	if used >= rule.Limit {
		window.full = true
		return window, nil
	}

	if err := rl.store.RecordAttempt(ctx, key, now); err != nil {
		return attemptWindow{}, fmt.Errorf("record attempt: %w", err)
	}
	window.used++
	return window, nil
}

func (rl *RateLimiter) reject(c *gin.Context, retryAfter int) {
	instance := c.FullPath()
	if instance == "" {
		instance = c.Request.URL.Path
	}

	c.Header("Retry-After", strconv.Itoa(retryAfter))
	c.AbortWithStatusJSON(http.StatusTooManyRequests, ProblemDetails{
		Type:       "about:blank",
		Title:      http.StatusText(http.StatusTooManyRequests),
		Status:     http.StatusTooManyRequests,
		Detail:     fmt.Sprintf("retry in %d seconds", retryAfter),
		Instance:   instance,
		RetryAfter: retryAfter,
		Message:    rateLimitedMessage,
	})
}
