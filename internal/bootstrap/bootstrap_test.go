package bootstrap_test

import (
	"bytes"
	"context"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/jrsteele09/mento-client/authevents"
	"github.com/jrsteele09/mento-client/credentials"
	"github.com/jrsteele09/mento-client/credentials/filestore"
	"github.com/jrsteele09/mento-client/credentials/memstore"
	"github.com/jrsteele09/mento-client/credentials/redisstore"
	"github.com/jrsteele09/mento-client/credentials/sqlitestore"
	"github.com/jrsteele09/mento-client/internal/bootstrap"
	"github.com/jrsteele09/mento-client/internal/config"
	internalerrors "github.com/jrsteele09/mento-client/internal/errors"
	"github.com/jrsteele09/mento-client/internal/fakebackend"
	"github.com/jrsteele09/mento-client/profile"
	"github.com/jrsteele09/mento-client/session"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/require"
)

func storeConfig(backend string, edit func(v *config.FileValues)) config.Config {
	values := &config.FileValues{}
	values.Session.Store.Backend = backend
	if edit != nil {
		edit(values)
	}
	return config.FromFile(values)
}

func TestNewStoreBackends(t *testing.T) {
	dir := t.TempDir()
	redisServer := miniredis.RunT(t)

	tests := []struct {
		name    string
		config  config.Config
		isType  any
		closing bool
	}{
		{"memory", storeConfig(config.StoreBackendMemory, nil), &memstore.MemStore{}, false},
		{"file", storeConfig(config.StoreBackendFile, func(v *config.FileValues) {
			v.Session.Store.Path = filepath.Join(dir, "creds.json")
		}), &filestore.FileStore{}, false},
		{"sealed file", storeConfig(config.StoreBackendFile, func(v *config.FileValues) {
			v.Session.Store.Path = filepath.Join(dir, "sealed.json")
			v.Session.Store.Passphrase = "correct horse"
		}), &filestore.FileStore{}, false},
		{"sqlite", storeConfig(config.StoreBackendSQLite, func(v *config.FileValues) {
			v.Session.Store.SQLitePath = filepath.Join(dir, "nested", "creds.db")
		}), &sqlitestore.SQLiteStore{}, true},
		{"redis", storeConfig(config.StoreBackendRedis, func(v *config.FileValues) {
			v.Session.Store.RedisURL = "redis://" + redisServer.Addr() + "/0"
		}), &redisstore.RedisStore{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store, closeStore, err := bootstrap.NewStore(ctx, tt.config)
			require.NoError(t, err)
			require.NotNil(t, closeStore)
			require.IsType(t, tt.isType, store)

			require.NoError(t, store.Set(ctx, credentials.KeyAccessToken, "a"))
			got, err := store.Get(ctx, credentials.KeyAccessToken)
			require.NoError(t, err)
			require.Equal(t, "a", *got)
			require.NoError(t, closeStore())
		})
	}
}

func TestNewStoreUnknownBackend(t *testing.T) {
	_, _, err := bootstrap.NewStore(context.Background(), storeConfig("etcd", nil))
	require.ErrorIs(t, err, internalerrors.ErrUnknownBackend)
}

func TestSetupLogging(t *testing.T) {
	defer func(level zerolog.Level, logger zerolog.Logger) {
		zerolog.SetGlobalLevel(level)
		log.Logger = logger
	}(zerolog.GlobalLevel(), log.Logger)

	var buf bytes.Buffer
	bootstrap.SetupLogging("PROD", "warn", &buf)
	require.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())

	log.Info().Msg("hidden")
	log.Warn().Msg("shown")
	require.NotContains(t, buf.String(), "hidden")
	require.Contains(t, buf.String(), `"message":"shown"`)

	bootstrap.SetupLogging("DEV", "not-a-level", &buf)
	require.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}

func newApp(t *testing.T, opts ...bootstrap.Option) (*bootstrap.App, *fakebackend.Backend, *memstore.MemStore) {
	t.Helper()
	backend := fakebackend.New()
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	values := &config.FileValues{}
	values.API.BaseURL = srv.URL + fakebackend.BasePath
	store := memstore.New()

	opts = append([]bootstrap.Option{bootstrap.WithStore(store), bootstrap.WithHTTPClient(srv.Client())}, opts...)
	app, err := bootstrap.New(context.Background(), config.FromFile(values), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, app.Close()) })
	return app, backend, store
}

func TestAppCloseDetachesListeners(t *testing.T) {
	app, _, _ := newApp(t)
	require.Positive(t, app.Bus.Len())

	require.NoError(t, app.Close())
	require.Zero(t, app.Bus.Len())
}

func TestAppSessionLifecycle(t *testing.T) {
	var transitions []session.State
	app, backend, store := newApp(t, bootstrap.WithSessionChange(func(_, to session.State) {
		transitions = append(transitions, to)
	}))
	ctx := context.Background()
	const mobile = "7000000001"

	require.Equal(t, session.StateAnonymous, app.Lifecycle.State())

	_, err := app.Login.SendOTP(ctx, mobile, "")
	require.NoError(t, err)
	_, err = app.Login.VerifyOTP(ctx, mobile, fakebackend.DefaultOTP)
	require.NoError(t, err)
	require.Equal(t, session.StateAuthenticated, app.Lifecycle.State())

	backend.ExpireAccessTokens()
	require.NoError(t, app.Profile.Load(ctx))
	require.Equal(t, profile.FlowKYCRequired, app.Profile.State().FlowState)
	require.Equal(t, session.StateAuthenticated, app.Lifecycle.State())
	require.Equal(t, int64(1), backend.RefreshCalls())

	require.NoError(t, app.Login.Logout(ctx))
	require.Equal(t, session.StateLoggedOut, app.Lifecycle.State())
	require.Equal(t, authevents.ReasonManual, app.Lifecycle.LogoutReason())
	require.Empty(t, store.Keys())
	require.Nil(t, app.Profile.State().User)

	require.Equal(t, []session.State{
		session.StateAuthenticating,
		session.StateAuthenticated,
		session.StateRefreshing,
		session.StateAuthenticated,
		session.StateLoggedOut,
	}, transitions)
}

func TestAppRestoresStoredSession(t *testing.T) {
	store := memstore.New()
	creds := credentials.NewManager(store, credentials.DefaultRefreshTokenMaxAge)
	require.NoError(t, creds.SaveLogin(context.Background(), "access", "refresh"))

	values := &config.FileValues{}
	app, err := bootstrap.New(context.Background(), config.FromFile(values), bootstrap.WithStore(store))
	require.NoError(t, err)
	defer app.Close()

	require.Equal(t, session.StateAuthenticated, app.Lifecycle.State())
}

func TestAppForcedLogout(t *testing.T) {
	app, backend, _ := newApp(t)
	ctx := context.Background()
	const mobile = "7000000002"

	var notices []authevents.Notice
	unsubscribe := app.Bus.Subscribe(func(r authevents.Reason) { notices = append(notices, authevents.NoticeFor(r)) })
	defer unsubscribe()

	_, err := app.Login.SendOTP(ctx, mobile, "")
	require.NoError(t, err)
	_, err = app.Login.VerifyOTP(ctx, mobile, fakebackend.DefaultOTP)
	require.NoError(t, err)

	require.NoError(t, backend.SetInactive(mobile, true))
	require.Error(t, app.Profile.Load(ctx))

	require.Equal(t, session.StateLoggedOut, app.Lifecycle.State())
	require.Equal(t, authevents.ReasonInactive, app.Lifecycle.LogoutReason())
	require.Len(t, notices, 1)
	require.Equal(t, "Account Inactive", notices[0].Title)
}
