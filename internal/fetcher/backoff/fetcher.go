// Package backoff wraps a crawler.Fetcher with rate-limit aware retries.
package backoff

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/JakeFAU/manager-records-crawler/internal/crawler"
	"github.com/JakeFAU/manager-records-crawler/internal/metrics"
)

// DefaultCooldown is applied when a 429 response carries no usable Retry-After hint.
const DefaultCooldown = 15 * time.Second

// ErrRetryExhausted is returned when MaxRetries rate-limited attempts were spent.
var ErrRetryExhausted = errors.New("rate limit retries exhausted")

// Config controls the retry policy.
type Config struct {
	// DefaultCooldown is used when the server sends no Retry-After hint.
	DefaultCooldown time.Duration
	// MaxRetries caps retries after 429 responses; 0 retries forever.
	MaxRetries int
}

// Fetcher retries the wrapped fetcher whenever the server answers HTTP 429,
// sleeping for the server's Retry-After hint between attempts. Every other
// error is returned unchanged.
type Fetcher struct {
	next   crawler.Fetcher
	clock  crawler.Clock
	cfg    Config
	logger *zap.Logger
}

// New wraps next.
func New(next crawler.Fetcher, clock crawler.Clock, cfg Config, logger *zap.Logger) *Fetcher {
	if cfg.DefaultCooldown <= 0 {
		cfg.DefaultCooldown = DefaultCooldown
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{
		next:   next,
		clock:  clock,
		cfg:    cfg,
		logger: logger,
	}
}

// Fetch implements crawler.Fetcher.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*goquery.Document, error) {
	for attempt := 1; ; attempt++ {
		doc, err := f.next.Fetch(ctx, rawURL)
		if err == nil {
			if attempt > 1 {
				f.logger.Info("request succeeded after rate limiting",
					zap.String("url", rawURL),
					zap.Int("attempt", attempt),
				)
			}
			return doc, nil
		}

		var httpErr *crawler.HTTPError
		if !errors.As(err, &httpErr) || !httpErr.IsRateLimited() {
			return nil, err
		}
		if f.cfg.MaxRetries > 0 && attempt > f.cfg.MaxRetries {
			return nil, fmt.Errorf("%w after %d attempts: %v", ErrRetryExhausted, attempt, err)
		}

		cooldown := f.cooldown(httpErr.RetryAfter)
		metrics.ObserveRateLimit(cooldown)
		f.logger.Warn("rate limited; cooling down",
			zap.String("url", rawURL),
			zap.Int("attempt", attempt),
			zap.String("retry_after", httpErr.RetryAfter),
			zap.Duration("cooldown", cooldown),
		)
		if err := f.clock.Sleep(ctx, cooldown); err != nil {
			return nil, fmt.Errorf("rate limit cooldown: %w", err)
		}
	}
}

// cooldown interprets a Retry-After value given in (possibly fractional)
// seconds or as an HTTP date.
func (f *Fetcher) cooldown(retryAfter string) time.Duration {
	retryAfter = strings.TrimSpace(retryAfter)
	if retryAfter == "" {
		return f.cfg.DefaultCooldown
	}
	if secs, err := strconv.ParseFloat(retryAfter, 64); err == nil {
		if secs < 0 || math.IsNaN(secs) || math.IsInf(secs, 0) {
			return f.cfg.DefaultCooldown
		}
		return time.Duration(secs * float64(time.Second))
	}
	if at, err := http.ParseTime(retryAfter); err == nil {
		if d := at.Sub(f.clock.Now()); d > 0 {
			return d
		}
		return 0
	}
	return f.cfg.DefaultCooldown
}
