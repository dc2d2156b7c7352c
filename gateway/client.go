package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/mento-client/authevents"
	"github.com/jrsteele09/mento-client/credentials"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultRequestTimeout = 30 * time.Second
	DefaultRefreshTimeout = 15 * time.Second

	// RequestIDHeader correlates an original request with its replay.
	RequestIDHeader = "X-Request-ID"

	refreshKey = "refresh"
)

// Client sends requests with the stored access token and recovers from an
// expired access token with a single shared refresh.
type Client struct {
	creds          *credentials.Manager
	refreshURL     string
	httpClient     *http.Client
	requestTimeout time.Duration
	refreshTimeout time.Duration
	bus            *authevents.Bus
	observer       Observer
	meter          metric.Meter
	metrics        *metrics

	flight singleflight.Group
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func WithRequestTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.requestTimeout = d
	}
}

func WithRefreshTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.refreshTimeout = d
	}
}

// WithMeter records gateway counters on meter. The default is a no-op meter.
func WithMeter(meter metric.Meter) Option {
	return func(c *Client) {
		c.meter = meter
	}
}

// WithEventBus publishes logout events to bus instead of authevents.Default.
func WithEventBus(bus *authevents.Bus) Option {
	return func(c *Client) {
		c.bus = bus
	}
}

func WithObserver(observer Observer) Option {
	return func(c *Client) {
		c.observer = observer
	}
}

// New creates a Client that refreshes access tokens at refreshURL.
func New(creds *credentials.Manager, refreshURL string, options ...Option) *Client {
	c := &Client{
		creds:          creds,
		refreshURL:     refreshURL,
		requestTimeout: DefaultRequestTimeout,
		refreshTimeout: DefaultRefreshTimeout,
	}
	for _, opt := range options {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{}
	}
	if c.requestTimeout <= 0 {
		c.requestTimeout = DefaultRequestTimeout
	}
	if c.refreshTimeout <= 0 {
		c.refreshTimeout = DefaultRefreshTimeout
	}
	if c.bus == nil {
		c.bus = authevents.Default
	}
	if c.observer == nil {
		c.observer = nopObserver{}
	}
	if c.meter == nil {
		c.meter = noop.NewMeterProvider().Meter("")
	}
	c.metrics = newMetrics(c.meter)
	return c
}

// Credentials returns the credential manager the client reads tokens from.
func (c *Client) Credentials() *credentials.Manager {
	return c.creds
}

// Do sends req with the current access token.
//
// Responses other than 401 and 403 are returned unchanged. On 401/403 the
// session is either ended, returning a *SessionEndedError after calling
// onUnauthorized, or the access token is refreshed and req is replayed once.
// The replay's response is returned whatever its status.
func (c *Client) Do(req *http.Request, onUnauthorized func()) (*http.Response, error) {
	ctx := req.Context()
	req = req.Clone(ctx)
	if err := makeReplayable(req); err != nil {
		return nil, err
	}
	if req.Header.Get(RequestIDHeader) == "" {
		req.Header.Set(RequestIDHeader, uuid.NewString())
	}
	c.metrics.request(ctx)

	sentToken := c.creds.AccessToken(ctx)
	resp, err := c.attempt(req, sentToken)
	if err != nil {
		return nil, err
	}
	if !isAuthFailure(resp.StatusCode) {
		return resp, nil
	}

	logger := log.With().
		Str("requestId", req.Header.Get(RequestIDHeader)).
		Str("method", req.Method).
		Str("path", req.URL.Path).
		Int("status", resp.StatusCode).
		Logger()
	logger.Debug().Msg("Request unauthorized")

	if body := drain(resp); parseInactive(body) {
		return nil, c.endSession(ctx, authevents.ReasonInactive, nil, onUnauthorized)
	}

	if c.creds.IsRefreshTokenExpired(ctx) {
		return nil, c.endSession(ctx, authevents.ReasonRefreshTokenExpired, nil, onUnauthorized)
	}

	accessToken, err := c.awaitRefresh(ctx, sentToken)
	if err != nil {
		if _, ended := ReasonOf(err); ended && onUnauthorized != nil {
			onUnauthorized()
		}
		return nil, err
	}

	logger.Debug().Msg("Replaying request after refresh")
	c.metrics.replay(ctx)
	return c.attempt(req, accessToken)
}

// Get issues an authenticated GET.
func (c *Client) Get(ctx context.Context, url string, onUnauthorized func()) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "Client.Get")
	}
	return c.Do(req, onUnauthorized)
}

// PostJSON issues an authenticated POST with body encoded as JSON.
func (c *Client) PostJSON(ctx context.Context, url string, body any, onUnauthorized func()) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, errors.Wrap(err, "Client.PostJSON encode")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Wrap(err, "Client.PostJSON")
	}
	req.Header.Set("Content-Type", "application/json")
	return c.Do(req, onUnauthorized)
}

// endSession forces a logout on behalf of a single caller.
func (c *Client) endSession(ctx context.Context, reason authevents.Reason, cause error, onUnauthorized func()) error {
	err := c.forceLogout(ctx, reason, cause)
	if onUnauthorized != nil {
		onUnauthorized()
	}
	return err
}

// forceLogout clears the session and publishes reason. It runs even when the
// caller's context is cancelled.
func (c *Client) forceLogout(ctx context.Context, reason authevents.Reason, cause error) error {
	ctx = context.WithoutCancel(ctx)
	log.Warn().Str("reason", string(reason)).Msg("Ending session")

	// Clear logs its own failure; the logout still goes ahead.
	_ = c.creds.Clear(ctx)
	c.metrics.forcedLogout(ctx, reason)
	c.bus.Publish(reason)
	return &SessionEndedError{Reason: reason, Cause: cause}
}
