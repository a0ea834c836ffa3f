// Package ledger is the engine's gateway to the external money ledger. The
// engine never moves funds itself: once a purchase passes validation the
// debit is delegated here, and a boost only activates after the ledger
// confirms the money moved.
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/oxum-market/go-boost-backend/internal/domain"
)

// ErrInsufficientBalance is returned when the ledger rejects a debit because
// the actor's balance cannot cover the amount.
var ErrInsufficientBalance = errors.New("ledger: insufficient balance")

// Gateway debits actor accounts. Reference is an idempotency key: the ledger
// must treat two debits with the same reference as one.
type Gateway interface {
	Debit(ctx context.Context, actorID string, amount domain.Money, reference string) error
}

// HTTPClient talks to the ledger service over HTTP.
type HTTPClient struct {
	client   *http.Client
	endpoint *url.URL
	apiKey   string
	log      zerolog.Logger
}

// NewHTTPClient constructs a ledger client for the given endpoint.
func NewHTTPClient(client *http.Client, endpoint, apiKey string, log zerolog.Logger) (*HTTPClient, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("ledger endpoint required")
	}
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse ledger endpoint: %w", err)
	}
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &HTTPClient{
		client:   client,
		endpoint: parsed,
		apiKey:   strings.TrimSpace(apiKey),
		log:      log,
	}, nil
}

// Debit posts a debit to the ledger. A 402 response maps to
// ErrInsufficientBalance; any other non-2xx response is an opaque failure and
// the caller must not activate the purchase.
func (c *HTTPClient) Debit(ctx context.Context, actorID string, amount domain.Money, reference string) error {
	body, err := json.Marshal(struct {
		ActorID     string `json:"actor_id"`
		AmountCents int64  `json:"amount_cents"`
		Reference   string `json:"reference"`
	}{ActorID: actorID, AmountCents: int64(amount), Reference: reference})
	if err != nil {
		return fmt.Errorf("encode debit: %w", err)
	}

	debitURL := c.endpoint.JoinPath("debits")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, debitURL.String(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build debit request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", reference)
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("debit request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		c.log.Info().
			Str("actor_id", actorID).
			Int64("amount_cents", int64(amount)).
			Str("reference", reference).
			Msg("ledger debit confirmed")
		return nil
	case resp.StatusCode == http.StatusPaymentRequired:
		return ErrInsufficientBalance
	default:
		return fmt.Errorf("ledger debit status %d", resp.StatusCode)
	}
}
