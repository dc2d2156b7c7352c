package fakebackend

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

var errTokenRevoked = errors.New("token revoked")

type tokenClaims struct {
	Mobile     string `json:"mobile"`
	Type       string `json:"typ"`
	Generation int    `json:"gen,omitempty"`
	jwt.RegisteredClaims
}

// issue must be called with mu held.
func (b *Backend) issue(u *User, tokenType string) (string, error) {
	ttl := b.accessTTL
	if tokenType == tokenTypeRefresh {
		ttl = b.refreshTTL
	}
	now := NowTimeFunc()
	claims := tokenClaims{
		Mobile:     u.Profile.Mobile,
		Type:       tokenType,
		Generation: b.generation,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.Profile.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(b.secret)
	if err != nil {
		return "", errors.Wrap(err, "failed to sign token")
	}
	return signed, nil
}

// verify checks signature, expiry and type, and returns the token's user.
// It must be called with mu held.
func (b *Backend) verify(raw, tokenType string) (*User, error) {
	claims := &tokenClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return b.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(NowTimeFunc))
	if err != nil {
		return nil, err
	}
	if claims.Type != tokenType {
		return nil, errors.Errorf("expected %s token", tokenType)
	}
	if tokenType == tokenTypeAccess && claims.Generation < b.generation {
		return nil, errTokenRevoked
	}
	u, ok := b.usersByID[claims.Subject]
	if !ok {
		return nil, ErrUnknownUser
	}
	return u, nil
}
