package credentials

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jrsteele09/mento-client/internal/utils"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// DefaultRefreshTokenMaxAge is used when a Manager is built without a lifetime.
const DefaultRefreshTokenMaxAge = 30 * 24 * time.Hour

// ErrSessionChanged is returned by RotateAccessToken when the session the new
// access token belongs to was cleared or replaced in the meantime.
var ErrSessionChanged = errors.New("session changed during refresh")

// Manager applies the credential lifecycle rules on top of a Store.
type Manager struct {
	store   Store
	maxAge  time.Duration
	nowFunc func() time.Time

	// writeLock serialises SaveLogin, RotateAccessToken and Clear.
	writeLock sync.Mutex
}

type ManagerOption func(*Manager)

func WithNowFunc(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowFunc = now
	}
}

// NewManager creates a Manager. maxRefreshAge is the locally enforced refresh
// token lifetime; zero selects DefaultRefreshTokenMaxAge.
func NewManager(store Store, maxRefreshAge time.Duration, options ...ManagerOption) *Manager {
	m := &Manager{
		store:  store,
		maxAge: maxRefreshAge,
	}
	for _, opt := range options {
		opt(m)
	}
	if m.maxAge <= 0 {
		m.maxAge = DefaultRefreshTokenMaxAge
	}
	if m.nowFunc == nil {
		m.nowFunc = func() time.Time { return NowTimeFunc() }
	}
	return m
}

// Store returns the underlying store.
func (m *Manager) Store() Store {
	return m.store
}

// MaxAge returns the refresh token lifetime.
func (m *Manager) MaxAge() time.Duration {
	return m.maxAge
}

// SaveLogin persists a freshly issued token pair and stamps the refresh token
// issuance time. This is the only place the timestamp is written.
func (m *Manager) SaveLogin(ctx context.Context, accessToken, refreshToken string) error {
	m.writeLock.Lock()
	defer m.writeLock.Unlock()

	if err := m.store.Set(ctx, KeyAccessToken, accessToken); err != nil {
		return errors.Wrap(err, "Manager.SaveLogin access token")
	}
	if err := m.store.Set(ctx, KeyRefreshToken, refreshToken); err != nil {
		return errors.Wrap(err, "Manager.SaveLogin refresh token")
	}
	issuedAt := strconv.FormatInt(m.nowFunc().UnixMilli(), 10)
	if err := m.store.Set(ctx, KeyRefreshTokenIssuedAt, issuedAt); err != nil {
		return errors.Wrap(err, "Manager.SaveLogin issued at")
	}
	return nil
}

// RotateAccessToken replaces the access token only, and only while refreshToken,
// the token it was minted from, is still the stored one. Otherwise nothing is
// written and ErrSessionChanged is returned.
func (m *Manager) RotateAccessToken(ctx context.Context, refreshToken, accessToken string) error {
	m.writeLock.Lock()
	defer m.writeLock.Unlock()

	current, err := m.store.Get(ctx, KeyRefreshToken)
	if err != nil {
		return errors.Wrap(err, "Manager.RotateAccessToken read")
	}
	if utils.Value(current) == "" || *current != refreshToken {
		return ErrSessionChanged
	}
	if err := m.store.Set(ctx, KeyAccessToken, accessToken); err != nil {
		return errors.Wrap(err, "Manager.RotateAccessToken")
	}
	return nil
}

// AccessToken returns the stored access token, or "" when absent.
// Read failures are logged and reported as absent.
func (m *Manager) AccessToken(ctx context.Context) string {
	value, err := m.store.Get(ctx, KeyAccessToken)
	if err != nil {
		log.Err(err).Str("key", KeyAccessToken).Msg("Failed to read credential")
		return ""
	}
	return utils.Value(value)
}

// LookupAccessToken is AccessToken with the read error returned to the caller.
func (m *Manager) LookupAccessToken(ctx context.Context) (string, error) {
	value, err := m.store.Get(ctx, KeyAccessToken)
	if err != nil {
		return "", errors.Wrap(err, "Manager.LookupAccessToken")
	}
	return utils.Value(value), nil
}

// RefreshToken returns the stored refresh token, or "" when absent.
func (m *Manager) RefreshToken(ctx context.Context) (string, error) {
	value, err := m.store.Get(ctx, KeyRefreshToken)
	if err != nil {
		return "", errors.Wrap(err, "Manager.RefreshToken")
	}
	return utils.Value(value), nil
}

// IssuedAt returns the refresh token issuance time and whether a valid one is stored.
func (m *Manager) IssuedAt(ctx context.Context) (time.Time, bool) {
	value, err := m.store.Get(ctx, KeyRefreshTokenIssuedAt)
	if err != nil {
		log.Err(err).Str("key", KeyRefreshTokenIssuedAt).Msg("Failed to read credential")
		return time.Time{}, false
	}
	if value == nil {
		return time.Time{}, false
	}
	millis, err := strconv.ParseInt(strings.TrimSpace(*value), 10, 64)
	if err != nil {
		log.Warn().Str("key", KeyRefreshTokenIssuedAt).Msg("Ignoring unparseable issuance timestamp")
		return time.Time{}, false
	}
	return time.UnixMilli(millis), true
}

// IsRefreshTokenExpired reports whether the refresh token is older than the
// configured lifetime. A missing timestamp counts as expired.
func (m *Manager) IsRefreshTokenExpired(ctx context.Context) bool {
	issuedAt, ok := m.IssuedAt(ctx)
	if !ok {
		return true
	}
	return m.nowFunc().Sub(issuedAt) > m.maxAge
}

// Load reads the whole credential record. Absent values are left empty.
func (m *Manager) Load(ctx context.Context) (*Session, error) {
	access, err := m.LookupAccessToken(ctx)
	if err != nil {
		return nil, err
	}
	refresh, err := m.RefreshToken(ctx)
	if err != nil {
		return nil, err
	}
	issuedAt, _ := m.IssuedAt(ctx)
	return &Session{
		AccessToken:  access,
		RefreshToken: refresh,
		IssuedAt:     issuedAt,
	}, nil
}

// SaveUser caches the logged in user's id and raw profile blob.
func (m *Manager) SaveUser(ctx context.Context, userID string, userData []byte) error {
	if err := m.store.Set(ctx, KeyUserID, userID); err != nil {
		return errors.Wrap(err, "Manager.SaveUser id")
	}
	if len(userData) > 0 {
		if err := m.store.Set(ctx, KeyUserData, string(userData)); err != nil {
			return errors.Wrap(err, "Manager.SaveUser data")
		}
	}
	return nil
}

// UserID returns the cached user id. When none is cached it falls back to the
// subject of the stored access token.
func (m *Manager) UserID(ctx context.Context) string {
	value, err := m.store.Get(ctx, KeyUserID)
	if err != nil {
		log.Err(err).Str("key", KeyUserID).Msg("Failed to read credential")
	}
	if id := utils.Value(value); id != "" {
		return id
	}

	access := m.AccessToken(ctx)
	if access == "" {
		return ""
	}
	info, err := InspectToken(access)
	if err != nil {
		return ""
	}
	return info.Subject
}

// Clear removes every session key. A storage failure is logged and returned but
// not retried; clearing an already empty store succeeds.
func (m *Manager) Clear(ctx context.Context) error {
	m.writeLock.Lock()
	defer m.writeLock.Unlock()

	if err := m.store.RemoveAll(ctx, SessionKeys); err != nil {
		log.Err(err).Msg("Failed to clear session credentials")
		return errors.Wrap(err, "Manager.Clear")
	}
	return nil
}
