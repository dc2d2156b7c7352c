// Package fakebackend is an in-process stand-in for the Mento API. It issues
// real signed tokens and exposes knobs to expire, revoke or break them.
package fakebackend

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/jrsteele09/mento-client/apimodel"
	"github.com/jrsteele09/mento-client/internal/utils"
	"github.com/jrsteele09/mento-client/profile"
	"github.com/pkg/errors"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

const (
	BasePath          = "/api/v1"
	DefaultOTP        = "1234"
	DefaultAccessTTL  = 15 * time.Minute
	DefaultRefreshTTL = 30 * 24 * time.Hour
)

var ErrUnknownUser = errors.New("unknown user")

// User is everything the fake backend stores about one account.
type User struct {
	Profile   profile.UserProfile
	Worker    *profile.WorkerProfile
	JobSeeker *profile.JobSeekerProfile
	Inactive  bool
	Locations []apimodel.Coordinates
}

type Backend struct {
	env        string
	secret     []byte
	otp        string
	accessTTL  time.Duration
	refreshTTL time.Duration
	router     *mux.Router

	mu            sync.Mutex
	usersByMobile map[string]*User
	usersByID     map[string]*User
	pendingOTPs   map[string]string
	generation    int
	failRefresh   bool
	refreshDelay  time.Duration

	refreshCalls atomic.Int64
	profileCalls atomic.Int64
}

type Option func(*Backend)

// WithEnv enables request logging when env is "DEV".
func WithEnv(env string) Option {
	return func(b *Backend) {
		b.env = env
	}
}

func WithSecret(secret string) Option {
	return func(b *Backend) {
		b.secret = []byte(secret)
	}
}

func WithOTP(otp string) Option {
	return func(b *Backend) {
		b.otp = otp
	}
}

func WithAccessTTL(d time.Duration) Option {
	return func(b *Backend) {
		b.accessTTL = d
	}
}

func New(options ...Option) *Backend {
	b := &Backend{
		otp:           DefaultOTP,
		accessTTL:     DefaultAccessTTL,
		refreshTTL:    DefaultRefreshTTL,
		usersByMobile: make(map[string]*User),
		usersByID:     make(map[string]*User),
		pendingOTPs:   make(map[string]string),
	}
	for _, opt := range options {
		opt(b)
	}
	if len(b.secret) == 0 {
		b.secret = []byte(uuid.NewString())
	}
	b.router = mux.NewRouter()
	b.initRoutes()
	return b
}

func (b *Backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.router.ServeHTTP(w, r)
}

// ExpireAccessTokens invalidates every access token issued so far.
func (b *Backend) ExpireAccessTokens() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.generation++
}

// SetInactive deactivates or reactivates the account with mobile.
func (b *Backend) SetInactive(mobile string, inactive bool) error {
	return b.UpdateUser(mobile, func(u *User) { u.Inactive = inactive })
}

// FailRefresh makes the refresh endpoint answer 500 while set.
func (b *Backend) FailRefresh(fail bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failRefresh = fail
}

func (b *Backend) SetRefreshDelay(d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refreshDelay = d
}

func (b *Backend) RefreshCalls() int64 {
	return b.refreshCalls.Load()
}

func (b *Backend) ProfileCalls() int64 {
	return b.profileCalls.Load()
}

// PendingOTP returns the code last sent to mobile.
func (b *Backend) PendingOTP(mobile string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pendingOTPs[mobile]
}

// AddUser registers an account without going through OTP login.
func (b *Backend) AddUser(mobile string) *User {
	b.mu.Lock()
	defer b.mu.Unlock()
	u, _ := b.findOrCreate(mobile)
	return u
}

// UpdateUser applies fn to the stored account.
func (b *Backend) UpdateUser(mobile string, fn func(u *User)) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	u, ok := b.usersByMobile[mobile]
	if !ok {
		return errors.Wrap(ErrUnknownUser, mobile)
	}
	fn(u)
	return nil
}

// Locations returns the positions posted for mobile.
func (b *Backend) Locations(mobile string) []apimodel.Coordinates {
	b.mu.Lock()
	defer b.mu.Unlock()
	u, ok := b.usersByMobile[mobile]
	if !ok {
		return nil
	}
	return append([]apimodel.Coordinates(nil), u.Locations...)
}

// findOrCreate must be called with mu held. The bool reports whether the user is new.
func (b *Backend) findOrCreate(mobile string) (*User, bool) {
	if u, ok := b.usersByMobile[mobile]; ok {
		return u, false
	}
	pending := profile.KYCPending
	u := &User{
		Profile: profile.UserProfile{
			ID:        uuid.NewString(),
			Mobile:    mobile,
			KYCStatus: utils.Ptr(pending),
		},
	}
	b.usersByMobile[mobile] = u
	b.usersByID[u.Profile.ID] = u
	return u, true
}
