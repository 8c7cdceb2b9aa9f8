package etims

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/Checker-Finance/etims-adapter/internal/httpclient"
	"github.com/Checker-Finance/etims-adapter/internal/metrics"
)

// requestTimeout bounds every outbound call, token requests included.
var requestTimeout = 30 * time.Second

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the outbound HTTP client (tests, custom transports).
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithClock overrides the time source used for token expiry.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// WithSingleFlight makes concurrent callers that find the token stale share
// one token request instead of each issuing their own.
func WithSingleFlight() Option {
	return func(c *Client) {
		c.refreshGroup = &singleflight.Group{}
	}
}

// Client is a token-cached HTTP client for the eTims OSCU API.
//
// Every call to an endpoint other than TokenEndpoint first checks the cached
// token and, when it is missing or within five minutes of expiry, obtains a
// new one synchronously. The mutex only protects the token fields: it is never
// held across network I/O, so without WithSingleFlight two callers racing on a
// stale token may both authenticate.
type Client struct {
	baseURL      string
	logger       *zap.Logger
	httpClient   *http.Client
	exec         *httpclient.Executor
	now          func() time.Time
	refreshGroup *singleflight.Group

	mu    sync.RWMutex
	creds Credentials
	token Token
}

// NewClient creates a Client for baseURL using creds for token requests.
func NewClient(baseURL string, creds Credentials, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		logger:     zap.NewNop(),
		httpClient: &http.Client{Timeout: requestTimeout},
		now:        time.Now,
		creds:      creds,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.exec = httpclient.New(c.logger, c.httpClient, "etims")
	return c
}

// BaseURL returns the remote base URL the client targets.
func (c *Client) BaseURL() string { return c.baseURL }

// Credentials returns the credentials used for token requests.
func (c *Client) Credentials() Credentials {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.creds
}

// SetCredentials replaces the credentials used by later token requests.
// The cached token is kept until it expires.
func (c *Client) SetCredentials(creds Credentials) {
	c.mu.Lock()
	c.creds = creds
	c.mu.Unlock()
}

// Token returns the cached token, which may be empty or stale.
func (c *Client) Token() Token {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// IsTokenValid reports whether a token is held and is not within five
// minutes of its expiry.
func (c *Client) IsTokenValid() bool {
	return c.Token().validAt(c.now())
}

// Authenticate requests a new token with the client credentials and caches
// it. On any failure the previously cached token is left untouched.
func (c *Client) Authenticate(ctx context.Context) (Token, error) {
	creds := c.Credentials()
	c.logger.Info("etims.auth.requesting_token", zap.String("username", creds.Username))

	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	endpoint := c.baseURL + TokenEndpoint + "?" + url.Values{"grant_type": {"client_credentials"}}.Encode()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, endpoint, nil)
	if err != nil {
		return Token{}, c.authFailed(err)
	}
	req.SetBasicAuth(creds.Username, creds.Password)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	res, err := c.exec.Do(req)
	if err != nil {
		return Token{}, c.authFailed(err)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return Token{}, c.authFailed(fmt.Errorf("token endpoint returned status %d", res.StatusCode))
	}

	var tr tokenResponse
	if err := json.Unmarshal(res.Body, &tr); err != nil {
		return Token{}, c.authFailed(fmt.Errorf("decode token response: %w", err))
	}
	if tr.AccessToken == "" {
		return Token{}, c.authFailed(errors.New("invalid authentication response"))
	}

	tok := Token{Value: tr.AccessToken, ExpiresAt: c.now().Add(tr.ttl())}
	c.mu.Lock()
	c.token = tok
	c.mu.Unlock()

	metrics.IncTokenRefresh("ok")
	c.logger.Info("etims.auth.token_refreshed",
		zap.String("username", creds.Username),
		zap.Time("expires_at", tok.ExpiresAt))
	return tok, nil
}

func (c *Client) authFailed(err error) error {
	metrics.IncTokenRefresh("error")
	c.logger.Error("etims.auth.failed", zap.Error(err))
	return &AuthenticationError{Message: "Failed to authenticate with KRA eTims API", Err: err}
}

// ensureToken is the pre-call hook run by Request. A shared refresh is
// detached from the caller that started it, so one cancelled caller does not
// fail the others; Authenticate still bounds it with requestTimeout.
func (c *Client) ensureToken(ctx context.Context) error {
	if c.IsTokenValid() {
		return nil
	}
	if c.refreshGroup == nil {
		_, err := c.Authenticate(ctx)
		return err
	}
	_, err, _ := c.refreshGroup.Do(c.Credentials().Username, func() (any, error) {
		if c.IsTokenValid() {
			return c.Token(), nil
		}
		return c.Authenticate(context.WithoutCancel(ctx))
	})
	return err
}

// Request sends one call to endpoint and normalizes the response.
//
// Error statuses are not failures by themselves: the body of every response
// goes through NormalizeResponse. Transport failures (network, timeout,
// cancelled context) are returned wrapped and unclassified.
func (c *Client) Request(ctx context.Context, method, endpoint string, body any, headers map[string]string) (json.RawMessage, error) {
	path, _, _ := strings.Cut(endpoint, "?")
	if path != TokenEndpoint {
		if err := c.ensureToken(ctx); err != nil {
			return nil, err
		}
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode %s body: %w", endpoint, err)
		}
		reader = bytes.NewReader(data)
	}

	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", endpoint, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		if v != "" {
			req.Header.Set(k, v)
		}
	}
	if tok := c.Token(); tok.Value != "" {
		req.Header.Set("Authorization", "Bearer "+tok.Value)
	}

	c.logger.Debug("etims.request", zap.String("method", method), zap.String("endpoint", endpoint))
	res, err := c.exec.Do(req)
	if err != nil {
		return nil, fmt.Errorf("etims %s %s: %w", method, endpoint, err)
	}
	return NormalizeResponse(res.StatusCode, res.Body)
}

// Get sends a GET with params encoded in the query string.
func (c *Client) Get(ctx context.Context, endpoint string, params map[string]string, headers map[string]string) (json.RawMessage, error) {
	if len(params) > 0 {
		q := url.Values{}
		for k, v := range params {
			q.Set(k, v)
		}
		sep := "?"
		if strings.Contains(endpoint, "?") {
			sep = "&"
		}
		endpoint += sep + q.Encode()
	}
	return c.Request(ctx, http.MethodGet, endpoint, nil, headers)
}

// Post sends a POST with body encoded as JSON. A nil body is sent as {}.
func (c *Client) Post(ctx context.Context, endpoint string, body any, headers map[string]string) (json.RawMessage, error) {
	if body == nil {
		body = map[string]any{}
	}
	return c.Request(ctx, http.MethodPost, endpoint, body, headers)
}
