package gateway

import (
	"errors"
	"fmt"

	"github.com/jrsteele09/mento-client/authevents"
)

var (
	// ErrSessionEnded matches every error that forced a logout.
	ErrSessionEnded        = errors.New("session ended")
	ErrAccountInactive     = errors.New("account is inactive")
	ErrRefreshTokenExpired = errors.New("refresh token expired")
	ErrNoRefreshToken      = errors.New("no refresh token")
	ErrRefreshFailed       = errors.New("token refresh failed")

	// ErrTimeout is returned when an attempt or a refresh exceeds its budget.
	ErrTimeout = errors.New("request timed out")
)

var reasonErrors = map[authevents.Reason]error{
	authevents.ReasonInactive:            ErrAccountInactive,
	authevents.ReasonRefreshTokenExpired: ErrRefreshTokenExpired,
	authevents.ReasonNoRefreshToken:      ErrNoRefreshToken,
	authevents.ReasonRefreshFailed:       ErrRefreshFailed,
}

// SessionEndedError is returned when the gateway cleared the session.
// errors.Is matches ErrSessionEnded and the sentinel for Reason.
type SessionEndedError struct {
	Reason authevents.Reason
	Cause  error
}

func (e *SessionEndedError) Error() string {
	msg := "session ended"
	if sentinel, ok := reasonErrors[e.Reason]; ok {
		msg = sentinel.Error()
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *SessionEndedError) Unwrap() error {
	return e.Cause
}

func (e *SessionEndedError) Is(target error) bool {
	if target == ErrSessionEnded {
		return true
	}
	sentinel, ok := reasonErrors[e.Reason]
	return ok && target == sentinel
}

// ReasonOf returns the logout reason carried by err.
func ReasonOf(err error) (authevents.Reason, bool) {
	var ended *SessionEndedError
	if errors.As(err, &ended) {
		return ended.Reason, true
	}
	return authevents.ReasonUnspecified, false
}

func timeoutError(err error) error {
	return fmt.Errorf("%w: %w", ErrTimeout, err)
}
