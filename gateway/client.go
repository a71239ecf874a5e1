// Package gateway is the client for the backend's two auth endpoints. Both
// operations collapse transport failures, non-2xx statuses and schema-invalid
// bodies to a nil result: callers never see an error, only presence or
// absence, and the failure detail goes to the log.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/recipevault/go-client-auth/users"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	initPath     = "/api/account/mobile-auth-init"
	completePath = "/api/account/mobile-auth-complete"

	contentTypeJSON = "application/json; charset=utf-8"
	defaultTimeout  = 15 * time.Second
)

// InitResult is the payload of a successful auth initialization.
type InitResult struct {
	AuthURL string `json:"authUrl"`
	State   string `json:"state"`
}

func (r *InitResult) valid() bool {
	if r.State == "" {
		return false
	}
	u, err := url.Parse(r.AuthURL)
	return err == nil && u.Scheme != "" && u.Host != ""
}

// CompleteRequest carries the authorization code exchange parameters.
type CompleteRequest struct {
	Code        string `json:"code"`
	State       string `json:"state"`
	RedirectURI string `json:"redirectUri"`
}

// CompleteResult is the payload of a successful code exchange.
type CompleteResult struct {
	User      users.Profile `json:"user"`
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expiresAt"`
}

func (r *CompleteResult) valid() bool {
	if r.Token == "" || r.ExpiresAt.IsZero() {
		return false
	}
	return r.User.Validate() == nil
}

// Client talks to the backend auth endpoints. It is stateless and safe to
// reuse; it never retries.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger overrides the client logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.log = logger
	}
}

// New creates a Client for the backend at baseURL.
func New(baseURL string, options ...Option) *Client {
	client := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		log:        log.Logger,
	}
	for _, opt := range options {
		opt(client)
	}
	return client
}

// Initialize asks the backend to start an authorization attempt and returns
// the external authorization URL plus the anti-CSRF state, or nil on any
// failure.
func (c *Client) Initialize(ctx context.Context, redirectURI string) *InitResult {
	body := struct {
		RedirectURI string `json:"redirectUri"`
	}{RedirectURI: redirectURI}

	var result InitResult
	if !c.postJSON(ctx, initPath, body, &result) {
		return nil
	}
	if !result.valid() {
		c.log.Warn().Str("path", initPath).Msg("Auth init response failed schema validation")
		return nil
	}
	return &result
}

// Complete exchanges the authorization code for a session, or nil on any
// failure.
func (c *Client) Complete(ctx context.Context, req CompleteRequest) *CompleteResult {
	var result CompleteResult
	if !c.postJSON(ctx, completePath, req, &result) {
		return nil
	}
	if !result.valid() {
		c.log.Warn().Str("path", completePath).Msg("Auth complete response failed schema validation")
		return nil
	}
	return &result
}

// postJSON posts body and decodes a 2xx response into out. Reports false on
// transport failure, non-2xx status or an undecodable body.
func (c *Client) postJSON(ctx context.Context, path string, body, out any) bool {
	payload, err := json.Marshal(body)
	if err != nil {
		c.log.Err(err).Str("path", path).Msg("Failed to encode auth request")
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		c.log.Err(err).Str("path", path).Msg("Failed to build auth request")
		return false
	}
	req.Header.Set("Content-Type", contentTypeJSON)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Err(err).Str("path", path).Msg("Auth request failed")
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		c.log.Warn().Str("path", path).Int("status", resp.StatusCode).Msg("Auth request returned non-success status")
		return false
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		c.log.Err(err).Str("path", path).Int("status", resp.StatusCode).Msg("Failed to decode auth response")
		return false
	}
	return true
}
