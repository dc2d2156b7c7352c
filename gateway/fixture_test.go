package gateway_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jrsteele09/mento-client/apimodel"
	"github.com/jrsteele09/mento-client/authevents"
	"github.com/jrsteele09/mento-client/credentials"
	"github.com/jrsteele09/mento-client/credentials/memstore"
	"github.com/jrsteele09/mento-client/gateway"
	"github.com/stretchr/testify/require"
)

const (
	maxAge          = 30 * 24 * time.Hour
	protectedPath   = "/protected"
	refreshPath     = "/auth/refresh"
	initialAccess   = "A1"
	initialRefresh  = "R1"
	rotatedAccess   = "A2"
	tokenExpiredMsg = `{"success":false,"message":"Token expired"}`
)

var now = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type countingObserver struct {
	started  atomic.Int32
	finished atomic.Int32
}

func (o *countingObserver) RefreshStarted()       { o.started.Add(1) }
func (o *countingObserver) RefreshFinished(error) { o.finished.Add(1) }

// testFixture is a protected backend plus a client with a fresh credential store.
type testFixture struct {
	t        *testing.T
	clock    *clock
	store    *memstore.MemStore
	creds    *credentials.Manager
	bus      *authevents.Bus
	observer *countingObserver
	server   *httptest.Server
	client   *gateway.Client

	// protected and refresh replace the default handlers when set before traffic starts.
	protected http.HandlerFunc
	refresh   http.HandlerFunc

	mu             sync.Mutex
	validToken     string
	seenAuth       []string
	refreshBodies  []apimodel.RefreshRequest
	events         []authevents.Reason
	refreshCalls   atomic.Int32
	protectedCalls atomic.Int32
}

func newTestFixture(t *testing.T, options ...gateway.Option) *testFixture {
	t.Helper()

	f := &testFixture{
		t:          t,
		clock:      &clock{now: now},
		store:      memstore.New(),
		bus:        authevents.NewBus(),
		observer:   &countingObserver{},
		validToken: rotatedAccess,
	}
	f.creds = credentials.NewManager(f.store, maxAge, credentials.WithNowFunc(f.clock.Now))
	f.bus.Subscribe(func(r authevents.Reason) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.events = append(f.events, r)
	})

	mux := http.NewServeMux()
	mux.HandleFunc(protectedPath, func(w http.ResponseWriter, r *http.Request) {
		f.protectedCalls.Add(1)
		f.mu.Lock()
		f.seenAuth = append(f.seenAuth, r.Header.Get("Authorization"))
		f.mu.Unlock()
		if f.protected != nil {
			f.protected(w, r)
			return
		}
		f.defaultProtected(w, r)
	})
	mux.HandleFunc(refreshPath, func(w http.ResponseWriter, r *http.Request) {
		f.refreshCalls.Add(1)
		var body apimodel.RefreshRequest
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		f.refreshBodies = append(f.refreshBodies, body)
		f.mu.Unlock()
		if f.refresh != nil {
			f.refresh(w, r)
			return
		}
		f.defaultRefresh(w, body)
	})
	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)

	opts := append([]gateway.Option{
		gateway.WithEventBus(f.bus),
		gateway.WithObserver(f.observer),
		gateway.WithHTTPClient(f.server.Client()),
	}, options...)
	f.client = gateway.New(f.creds, f.server.URL+refreshPath, opts...)
	return f
}

func (f *testFixture) defaultProtected(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	valid := f.validToken
	f.mu.Unlock()
	if r.Header.Get("Authorization") != "Bearer "+valid {
		writeJSON(w, http.StatusUnauthorized, tokenExpiredMsg)
		return
	}
	writeJSON(w, http.StatusOK, `{"success":true,"data":{"ok":true}}`)
}

func (f *testFixture) defaultRefresh(w http.ResponseWriter, body apimodel.RefreshRequest) {
	if body.RefreshToken != initialRefresh {
		writeJSON(w, http.StatusUnauthorized, `{"success":false,"message":"Invalid refresh token"}`)
		return
	}
	writeJSON(w, http.StatusOK, `{"success":true,"data":{"accessToken":"`+rotatedAccess+`"}}`)
}

// login stores A1/R1 issued age ago.
func (f *testFixture) login(age time.Duration) {
	f.t.Helper()
	f.clock.Set(now.Add(-age))
	require.NoError(f.t, f.creds.SaveLogin(context.Background(), initialAccess, initialRefresh))
	f.clock.Set(now)
}

func (f *testFixture) url() string {
	return f.server.URL + protectedPath
}

func (f *testFixture) get(onUnauthorized func()) (*http.Response, error) {
	return f.client.Get(context.Background(), f.url(), onUnauthorized)
}

func (f *testFixture) recordedEvents() []authevents.Reason {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]authevents.Reason(nil), f.events...)
}

func (f *testFixture) recordedAuth() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.seenAuth...)
}

func (f *testFixture) requireCleared() {
	f.t.Helper()
	require.Empty(f.t, f.store.Keys())
}

func (f *testFixture) storedValue(key string) string {
	f.t.Helper()
	v, err := f.store.Get(context.Background(), key)
	require.NoError(f.t, err)
	if v == nil {
		return ""
	}
	return *v
}

// unauthorizedUntil answers 401 to token until n requests carrying it have
// arrived, so that all n callers see their 401 together.
func unauthorizedUntil(n int, token string, next http.HandlerFunc) http.HandlerFunc {
	var arrived sync.WaitGroup
	arrived.Add(n)
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "Bearer "+token {
			arrived.Done()
			arrived.Wait()
			writeJSON(w, http.StatusUnauthorized, tokenExpiredMsg)
			return
		}
		next(w, r)
	}
}

func delayed(d time.Duration, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(d):
		case <-r.Context().Done():
			return
		}
		next(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(data)
}
