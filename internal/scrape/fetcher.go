package scrape

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"trueneutral/internal/metrics"
)

// DefaultUserAgent is a desktop browser string; listing sites reject the Go default.
const DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/80.0.3987.87 Safari/537.36"

const maxPageSize = 8 << 20

// StatusError is returned for non-200 responses.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: status %d", e.URL, e.Code)
}

// FetcherConfig configures page fetching.
type FetcherConfig struct {
	UserAgent string
	// Delay is the minimum spacing between uncached requests across all workers.
	Delay   time.Duration
	Timeout time.Duration
	// BreakerFailures consecutive failures open the circuit; zero disables the breaker.
	BreakerFailures uint32
	// BreakerCooldown is how long the circuit stays open.
	BreakerCooldown time.Duration
	Cache           *PageCache
	Client          *http.Client
}

// Fetcher downloads pages politely: one shared rate limit, a user agent, an optional
// page cache and a circuit breaker that stops a run against a failing site.
type Fetcher struct {
	client    *http.Client
	userAgent string
	limiter   *rate.Limiter
	breaker   *gobreaker.CircuitBreaker[[]byte]
	cache     *PageCache
	logger    zerolog.Logger
}

func NewFetcher(cfg FetcherConfig, logger zerolog.Logger) *Fetcher {
	client := cfg.Client
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	limit := rate.Inf
	if cfg.Delay > 0 {
		limit = rate.Every(cfg.Delay)
	}
	f := &Fetcher{
		client:    client,
		userAgent: cfg.UserAgent,
		limiter:   rate.NewLimiter(limit, 1),
		cache:     cfg.Cache,
		logger:    logger,
	}
	if cfg.BreakerFailures > 0 {
		cooldown := cfg.BreakerCooldown
		if cooldown <= 0 {
			cooldown = time.Minute
		}
		threshold := cfg.BreakerFailures
		f.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
			Name:        "scrape",
			MaxRequests: 1,
			Timeout:     cooldown,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= threshold
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
			},
		})
	}
	return f
}

// Fetch returns the body of url. Cached pages skip the rate limit.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if f.cache != nil {
		body, ok, err := f.cache.Get(url)
		if err != nil {
			f.logger.Warn().Err(err).Str("url", url).Msg("page cache read failed")
		} else if ok {
			metrics.RecordFetch("cached", 0)
			return body, nil
		}
	}

	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	var body []byte
	var err error
	if f.breaker != nil {
		body, err = f.breaker.Execute(func() ([]byte, error) { return f.get(ctx, url) })
	} else {
		body, err = f.get(ctx, url)
	}
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.RecordFetch("breaker_open", 0)
		return nil, fmt.Errorf("GET %s: %w", url, err)
	case err != nil:
		metrics.RecordFetch("error", time.Since(start))
		return nil, err
	}
	metrics.RecordFetch("ok", time.Since(start))

	if f.cache != nil {
		if err := f.cache.Put(url, body); err != nil {
			f.logger.Warn().Err(err).Str("url", url).Msg("page cache write failed")
		}
	}
	return body, nil
}

func (f *Fetcher) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{URL: url, Code: resp.StatusCode}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageSize))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}
	return body, nil
}
