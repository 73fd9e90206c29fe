// Package ledger provides a client for the external DID registry. The
// registry anchors decentralized identifiers for hospitals and
// policyholders; the API server only calls it during provisioning, and
// all request/verification flows treat DIDs as opaque strings.
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/verimed/insure/internal/platform/apperr"
)

// Client talks to the DID registry over HTTP.
type Client struct {
	baseURL    string
	method     string
	timeout    time.Duration
	httpClient *http.Client
	logger     zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client (used in tests).
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// NewClient creates a registry client. baseURL is the registry root
// (e.g. http://localhost:4000), method is the DID method segment used
// when minting identifiers (e.g. "hlf" for did:hlf:...), and timeout
// bounds every registry call.
func NewClient(baseURL, method string, timeout time.Duration, logger zerolog.Logger, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		method:     method,
		timeout:    timeout,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With().Str("component", "ledger").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type registerRequest struct {
	Name   string `json:"name"`
	Method string `json:"method"`
}

type registerResponse struct {
	DID string `json:"did"`
}

// RegisterDID anchors a new identifier for the given display name and
// returns the minted DID. A registry deadline or unreachable registry
// maps to an upstream-timeout error so callers can surface a 504
// instead of hanging.
func (c *Client) RegisterDID(ctx context.Context, name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", apperr.InvalidInput("name is required")
	}

	body, err := json.Marshal(registerRequest{Name: name, Method: c.method})
	if err != nil {
		return "", apperr.Storage(err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/dids", bytes.NewReader(body))
	if err != nil {
		return "", apperr.Storage(err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			c.logger.Warn().Err(err).Dur("elapsed", time.Since(start)).Msg("registry call timed out")
			return "", apperr.UpstreamTimeout("did registry did not respond in time")
		}
		c.logger.Error().Err(err).Msg("registry call failed")
		return "", apperr.UpstreamTimeout("did registry unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Error().Int("status", resp.StatusCode).Str("body", string(snippet)).Msg("registry rejected registration")
		return "", apperr.Wrap(apperr.CodeStorage, fmt.Errorf("registry status %d", resp.StatusCode), "did registration failed")
	}

	var out registerResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", apperr.Wrap(apperr.CodeStorage, err, "decoding registry response")
	}
	if out.DID == "" {
		return "", apperr.New(apperr.CodeStorage, "registry returned empty did")
	}

	c.logger.Info().Str("did", out.DID).Dur("elapsed", time.Since(start)).Msg("did registered")
	return out.DID, nil
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}
