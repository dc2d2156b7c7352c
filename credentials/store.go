package credentials

import (
	"context"
	"time"
)

// Storage keys shared with the rest of the client.
const (
	KeyAccessToken             = "access_token"
	KeyRefreshToken            = "refresh_token"
	KeyRefreshTokenIssuedAt    = "refresh_token_issued_at"
	KeyUserID                  = "userId"
	KeyUserData                = "user_data"
	KeyWorkerProfileID         = "worker_profile_id"
	KeySubscriptionID          = "subscription_id"
	KeyJobSeekerProfileID      = "job_seeker_profile_id"
	KeyJobSeekerSubscriptionID = "job_seeker_subscription_id"
)

// SessionKeys is everything removed when a session ends.
var SessionKeys = []string{
	KeyAccessToken,
	KeyRefreshToken,
	KeyRefreshTokenIssuedAt,
	KeyUserID,
	KeyUserData,
	KeyWorkerProfileID,
	KeySubscriptionID,
	KeyJobSeekerProfileID,
	KeyJobSeekerSubscriptionID,
}

// Store is device-local key/value persistence.
// Get returns nil without an error when the key is absent. Remove and RemoveAll
// treat absent keys as already removed.
type Store interface {
	Get(ctx context.Context, key string) (*string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	RemoveAll(ctx context.Context, keys []string) error
}

// Session is the credential record of a logged in user.
// IssuedAt is the zero time when no issuance timestamp is stored.
type Session struct {
	AccessToken  string
	RefreshToken string
	IssuedAt     time.Time
}
