package login

import "errors"

var (
	ErrInvalidMobile = errors.New("invalid mobile number")
	ErrInvalidOTP    = errors.New("invalid otp")
	// ErrRejected is returned when the backend answers a login call with a non-2xx status.
	ErrRejected = errors.New("login rejected")
)
