package credentials

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// TokenInfo holds the unverified claims of a JWT access token.
type TokenInfo struct {
	Subject   string
	Mobile    string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Expired reports whether the token's exp claim is before now.
func (t *TokenInfo) Expired(now time.Time) bool {
	return !t.ExpiresAt.IsZero() && now.After(t.ExpiresAt)
}

// InspectToken decodes a JWT without verifying its signature. The client never
// holds the signing key; the result is only used for display and to recover a
// cached user id.
func InspectToken(raw string) (*TokenInfo, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil, errors.Wrap(err, "InspectToken")
	}

	info := &TokenInfo{}
	info.Subject, _ = claims.GetSubject()
	info.Mobile, _ = claims["mobile"].(string)
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		info.IssuedAt = iat.Time
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		info.ExpiresAt = exp.Time
	}
	return info, nil
}
