// Package bootstrap assembles the client core from configuration.
package bootstrap

import (
	"context"
	"net/http"

	"github.com/jrsteele09/mento-client/apimodel"
	"github.com/jrsteele09/mento-client/authevents"
	"github.com/jrsteele09/mento-client/credentials"
	"github.com/jrsteele09/mento-client/gateway"
	"github.com/jrsteele09/mento-client/internal/config"
	"github.com/jrsteele09/mento-client/login"
	"github.com/jrsteele09/mento-client/profile"
	"github.com/jrsteele09/mento-client/session"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/metric"
)

// App holds one wired instance of every component.
type App struct {
	Config      config.Config
	Endpoints   apimodel.Endpoints
	Bus         *authevents.Bus
	Credentials *credentials.Manager
	Lifecycle   *session.Lifecycle
	Gateway     *gateway.Client
	Login       *login.Service
	Profile     *profile.Orchestrator

	closers []func() error
}

type options struct {
	store      credentials.Store
	httpClient *http.Client
	meter      metric.Meter
	locate     profile.LocationFunc
	onChange   func(from, to session.State)
}

type Option func(*options)

// WithStore skips the configured backend and uses store.
func WithStore(store credentials.Store) Option {
	return func(o *options) {
		o.store = store
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(o *options) {
		o.httpClient = httpClient
	}
}

func WithMeter(meter metric.Meter) Option {
	return func(o *options) {
		o.meter = meter
	}
}

func WithLocationProvider(fn profile.LocationFunc) Option {
	return func(o *options) {
		o.locate = fn
	}
}

// WithSessionChange observes session state transitions.
func WithSessionChange(fn func(from, to session.State)) Option {
	return func(o *options) {
		o.onChange = fn
	}
}

// New wires the app. Each App gets its own event bus.
func New(ctx context.Context, c config.Config, opts ...Option) (*App, error) {
	o := &options{httpClient: http.DefaultClient}
	for _, opt := range opts {
		opt(o)
	}

	app := &App{
		Config:    c,
		Endpoints: apimodel.NewEndpoints(c.GetBaseURL(), c.GetRefreshPath()),
		Bus:       authevents.NewBus(),
	}

	store := o.store
	if store == nil {
		opened, closeStore, err := NewStore(ctx, c)
		if err != nil {
			return nil, err
		}
		store = opened
		app.closers = append(app.closers, closeStore)
	}
	app.Credentials = credentials.NewManager(store, c.GetRefreshTokenMaxAge())

	var lifecycleOptions []session.Option
	if o.onChange != nil {
		lifecycleOptions = append(lifecycleOptions, session.WithOnChange(o.onChange))
	}
	app.Lifecycle = session.NewLifecycle(initialState(ctx, app.Credentials), lifecycleOptions...)
	app.closers = append(app.closers, noError(app.Lifecycle.Attach(app.Bus)))

	gatewayOptions := []gateway.Option{
		gateway.WithHTTPClient(o.httpClient),
		gateway.WithRequestTimeout(c.GetRequestTimeout()),
		gateway.WithRefreshTimeout(c.GetRefreshTimeout()),
		gateway.WithEventBus(app.Bus),
		gateway.WithObserver(app.Lifecycle),
	}
	if o.meter != nil {
		gatewayOptions = append(gatewayOptions, gateway.WithMeter(o.meter))
	}
	app.Gateway = gateway.New(app.Credentials, app.Endpoints.Refresh(), gatewayOptions...)

	app.Login = login.NewService(app.Credentials, app.Endpoints,
		login.WithHTTPClient(o.httpClient),
		login.WithTimeout(c.GetRequestTimeout()),
		login.WithLifecycle(app.Lifecycle),
		login.WithEventBus(app.Bus),
	)

	profileOptions := []profile.Option{profile.WithEventBus(app.Bus)}
	if o.locate != nil {
		profileOptions = append(profileOptions, profile.WithLocationProvider(o.locate))
	}
	app.Profile = profile.NewOrchestrator(app.Gateway, app.Credentials, app.Endpoints, profileOptions...)
	app.closers = append(app.closers, noError(app.Profile.Close))

	return app, nil
}

// Close releases the store and detaches every bus listener. The first error is returned.
func (a *App) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	if n := a.Bus.Len(); n > 0 {
		log.Warn().Int("listeners", n).Msg("Event bus still has listeners after close")
	}
	return first
}

// initialState treats stored, unexpired credentials as a live session.
func initialState(ctx context.Context, creds *credentials.Manager) session.State {
	refresh, err := creds.RefreshToken(ctx)
	if err != nil || refresh == "" || creds.IsRefreshTokenExpired(ctx) {
		return session.StateAnonymous
	}
	return session.StateAuthenticated
}

func noError(fn func()) func() error {
	return func() error {
		fn()
		return nil
	}
}
