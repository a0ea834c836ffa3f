// Package oracle talks to the external pricing oracle that publishes the
// authoritative boost rate. The client retries transient failures with
// exponential backoff, caches the last good quote, and degrades explicitly:
// a quote older than the staleness threshold flips the returned policy into
// recovery mode (zero tolerance), and with no quote at all the caller gets an
// error rather than a guess.
package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/oxum-market/go-boost-backend/internal/domain"
)

var (
	// oracleFetches counts fetch attempts by outcome (ok, error, bad_status,
	// bad_payload).
	oracleFetches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oracle_fetch_attempts_total",
			Help: "Total number of price oracle fetch attempts.",
		},
		[]string{"outcome"},
	)

	// oracleQuoteAge gauges the age of the cached quote in seconds, updated on
	// every Policy call.
	oracleQuoteAge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "oracle_quote_age_seconds",
			Help: "Age of the most recent cached oracle quote in seconds.",
		},
	)

	// oracleRecovery gauges whether the client is serving recovery-mode
	// policies (1) or fresh ones (0).
	oracleRecovery = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "oracle_recovery_mode",
			Help: "1 when the oracle quote is stale beyond the recovery threshold.",
		},
	)
)

func init() {
	prometheus.MustRegister(oracleFetches, oracleQuoteAge, oracleRecovery)
}

// ErrNoQuote is returned when the oracle cannot be reached and no cached
// quote exists. Callers must treat it as a hard validation failure.
var ErrNoQuote = errors.New("no oracle quote available")

// PriceSource is the read side of the oracle consumed by the validator. The
// returned bool reports whether the policy was served from a stale cache.
type PriceSource interface {
	Policy(ctx context.Context) (domain.PricePolicy, bool, error)
}

// Options configures a Client. Zero values fall back to conservative
// defaults; only Endpoint is mandatory.
type Options struct {
	Endpoint       string
	APIKey         string
	Tolerance      domain.Money
	MaxAttempts    int
	AttemptTimeout time.Duration
	BackoffBase    time.Duration
	StaleAfter     time.Duration
	HTTPClient     *http.Client
}

// quote is one cached oracle observation.
type quote struct {
	rate      domain.Money
	fetchedAt time.Time
}

// Client fetches boost prices over HTTP and serves them as PricePolicy
// snapshots. Safe for concurrent use.
type Client struct {
	client         *http.Client
	endpoint       *url.URL
	apiKey         string
	tolerance      domain.Money
	maxAttempts    int
	attemptTimeout time.Duration
	backoffBase    time.Duration
	staleAfter     time.Duration
	log            zerolog.Logger
	now            func() time.Time

	mu   sync.RWMutex
	last *quote
}

// NewClient constructs a Client from Options.
func NewClient(opts Options, log zerolog.Logger) (*Client, error) {
	endpoint := strings.TrimSpace(opts.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("oracle endpoint required")
	}
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse oracle endpoint: %w", err)
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.AttemptTimeout <= 0 {
		opts.AttemptTimeout = 2 * time.Second
	}
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = 100 * time.Millisecond
	}
	if opts.StaleAfter <= 0 {
		opts.StaleAfter = 5 * time.Minute
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: opts.AttemptTimeout}
	}
	return &Client{
		client:         opts.HTTPClient,
		endpoint:       parsed,
		apiKey:         strings.TrimSpace(opts.APIKey),
		tolerance:      opts.Tolerance,
		maxAttempts:    opts.MaxAttempts,
		attemptTimeout: opts.AttemptTimeout,
		backoffBase:    opts.BackoffBase,
		staleAfter:     opts.StaleAfter,
		log:            log,
		now:            time.Now,
	}, nil
}

// Policy returns the current price policy. A cached quote younger than the
// staleness threshold is served directly; the oracle is only contacted on a
// cache miss or once the quote has aged out. When that fetch fails the aged
// quote is served with the stale flag set and recovery mode (zero tolerance)
// raised. With no cache at all, ErrNoQuote.
func (c *Client) Policy(ctx context.Context) (domain.PricePolicy, bool, error) {
	c.mu.RLock()
	cached := c.last
	c.mu.RUnlock()

	if cached != nil {
		if age := c.now().Sub(cached.fetchedAt); age <= c.staleAfter {
			oracleQuoteAge.Set(age.Seconds())
			oracleRecovery.Set(0)
			return domain.PricePolicy{
				GlobalRate: cached.rate,
				Tolerance:  c.tolerance,
				AsOf:       cached.fetchedAt,
			}, false, nil
		}
	}

	q, err := c.fetchWithRetry(ctx)
	if err == nil {
		c.store(q)
		oracleQuoteAge.Set(0)
		oracleRecovery.Set(0)
		return domain.PricePolicy{
			GlobalRate: q.rate,
			Tolerance:  c.tolerance,
			AsOf:       q.fetchedAt,
		}, false, nil
	}

	if cached == nil {
		return domain.PricePolicy{}, false, fmt.Errorf("%w: %v", ErrNoQuote, err)
	}

	age := c.now().Sub(cached.fetchedAt)
	oracleQuoteAge.Set(age.Seconds())
	recovery := age > c.staleAfter
	if recovery {
		oracleRecovery.Set(1)
	} else {
		oracleRecovery.Set(0)
	}
	c.log.Warn().
		Err(err).
		Dur("quote_age", age).
		Bool("recovery_mode", recovery).
		Msg("oracle unreachable, serving cached quote")

	return domain.PricePolicy{
		GlobalRate:   cached.rate,
		Tolerance:    c.tolerance,
		RecoveryMode: recovery,
		AsOf:         cached.fetchedAt,
	}, true, nil
}

// Refresh fetches a fresh quote and caches it. Used by the background
// refresher so hot-path Policy calls mostly hit a warm cache.
func (c *Client) Refresh(ctx context.Context) error {
	q, err := c.fetchWithRetry(ctx)
	if err != nil {
		return err
	}
	c.store(q)
	return nil
}

func (c *Client) store(q quote) {
	c.mu.Lock()
	c.last = &q
	c.mu.Unlock()
}

// fetchWithRetry runs up to maxAttempts fetches with exponential backoff and
// jitter between attempts. The context bounds the whole sequence.
func (c *Client) fetchWithRetry(ctx context.Context) (quote, error) {
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		q, err := c.fetchOnce(ctx)
		if err == nil {
			return q, nil
		}
		lastErr = err
		c.log.Debug().
			Err(err).
			Int("attempt", attempt).
			Int("max_attempts", c.maxAttempts).
			Msg("oracle fetch attempt failed")

		if attempt == c.maxAttempts {
			break
		}
		backoff := c.backoffBase << (attempt - 1)
		backoff += time.Duration(rand.Int63n(int64(backoff)/2 + 1))
		select {
		case <-ctx.Done():
			return quote{}, ctx.Err()
		case <-time.After(backoff):
		}
	}
	return quote{}, lastErr
}

func (c *Client) fetchOnce(ctx context.Context) (quote, error) {
	ctx, cancel := context.WithTimeout(ctx, c.attemptTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint.String(), nil)
	if err != nil {
		oracleFetches.WithLabelValues("error").Inc()
		return quote{}, fmt.Errorf("build oracle request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		oracleFetches.WithLabelValues("error").Inc()
		return quote{}, fmt.Errorf("oracle request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		oracleFetches.WithLabelValues("bad_status").Inc()
		return quote{}, fmt.Errorf("oracle status %d", resp.StatusCode)
	}

	var payload struct {
		RateCents int64 `json:"rate_cents"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		oracleFetches.WithLabelValues("bad_payload").Inc()
		return quote{}, fmt.Errorf("decode oracle response: %w", err)
	}
	if payload.RateCents <= 0 {
		oracleFetches.WithLabelValues("bad_payload").Inc()
		return quote{}, fmt.Errorf("oracle returned non-positive rate %d", payload.RateCents)
	}

	oracleFetches.WithLabelValues("ok").Inc()
	return quote{rate: domain.Money(payload.RateCents), fetchedAt: c.now().UTC()}, nil
}
