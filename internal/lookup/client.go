// Package lookup queries the third-party lookup APIs and renders their JSON
// replies as chat messages.
package lookup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"

	apperrors "github.com/Proton-105/gatekeeper-bot/internal/errors"
)

const (
	// QueryPlaceholder is replaced by the escaped user input in endpoint templates.
	QueryPlaceholder = "{query}"

	defaultTimeout = 10 * time.Second
	maxBodyBytes   = 1 << 20
)

var errInvalidJSON = errors.New("response is not valid json")

// Observer is notified about every finished API call.
type Observer func(api, outcome string, elapsed time.Duration)

// Client performs GET requests against the lookup APIs, one circuit breaker
// per API name.
type Client struct {
	http     *http.Client
	log      *slog.Logger
	observer Observer

	mu       sync.Mutex
	breakers map[string]*apperrors.CircuitBreaker
	onTrip   func(name string, from, to apperrors.State)
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithObserver reports call outcomes to o.
func WithObserver(o Observer) ClientOption {
	return func(c *Client) { c.observer = o }
}

// WithBreakerListener reports circuit breaker state changes to fn.
func WithBreakerListener(fn func(name string, from, to apperrors.State)) ClientOption {
	return func(c *Client) { c.onTrip = fn }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

// NewClient creates a Client whose calls are bounded by timeout.
func NewClient(timeout time.Duration, log *slog.Logger, opts ...ClientOption) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if log == nil {
		log = slog.Default()
	}

	c := &Client{
		http:     &http.Client{Timeout: timeout},
		log:      log,
		observer: func(string, string, time.Duration) {},
		breakers: make(map[string]*apperrors.CircuitBreaker),
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Expand fills the query placeholder of an endpoint template.
func Expand(template, query string) string {
	return strings.ReplaceAll(template, QueryPlaceholder, url.QueryEscape(query))
}

// GetJSON fetches endpoint and returns the parsed body. attempts bounds the
// number of tries for retryable failures.
func (c *Client) GetJSON(ctx context.Context, api, endpoint string, attempts int) (gjson.Result, error) {
	var result gjson.Result

	err := apperrors.WithRetry(ctx, attempts, func() error {
		return c.breaker(api).Call(func() error {
			res, callErr := c.get(ctx, api, endpoint)
			if callErr == nil {
				result = res
			}
			return callErr
		})
	})
	if err != nil {
		return gjson.Result{}, breakerRejection(api, err)
	}

	return result, nil
}

// breakerRejection turns a call the breaker refused into a lookup failure.
func breakerRejection(api string, err error) error {
	if apperrors.IsCircuitRejection(err) {
		return apperrors.NewLookupError(api, err)
	}
	return err
}

func (c *Client) get(ctx context.Context, api, endpoint string) (gjson.Result, error) {
	start := time.Now()
	outcome := "error"
	defer func() { c.observer(api, outcome, time.Since(start)) }()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return gjson.Result{}, apperrors.NewInputError(fmt.Sprintf("build %s request: %v", api, err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("lookup request failed", slog.String("api", api), slog.Any("error", err))
		return gjson.Result{}, apperrors.NewLookupError(api, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		outcome = "status"
		c.log.Warn("lookup api returned unexpected status", slog.String("api", api), slog.Int("status", resp.StatusCode))
		return gjson.Result{}, apperrors.NewLookupStatusError(api, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return gjson.Result{}, apperrors.NewLookupError(api, err)
	}

	if !gjson.ValidBytes(body) {
		outcome = "invalid"
		return gjson.Result{}, apperrors.NewLookupError(api, errInvalidJSON)
	}

	outcome = "ok"
	return gjson.ParseBytes(body), nil
}

func (c *Client) breaker(api string) *apperrors.CircuitBreaker {
	c.mu.Lock()
	defer c.mu.Unlock()

	cb, ok := c.breakers[api]
	if !ok {
		cb = apperrors.NewCircuitBreaker(api, c.onTrip)
		c.breakers[api] = cb
	}
	return cb
}
