package apimodel

import "encoding/json"

// RefreshRequest is the body posted to the refresh endpoint.
type RefreshRequest struct {
	// RefreshToken is the long lived token issued at login.
	// Security: Never logged.
	RefreshToken string `json:"refresh_token"`
}

// RefreshData is the payload of a successful refresh. Only the access token
// rotates; the refresh token is reused until it ages out.
type RefreshData struct {
	AccessToken string `json:"accessToken"`
}

// SendOTPRequest asks the backend to send a one time password by SMS.
// Email is required by the backend but unused for delivery.
type SendOTPRequest struct {
	Mobile string `json:"mobile"`
	Email  string `json:"email"`
}

// VerifyOTPRequest exchanges an OTP for a token pair.
type VerifyOTPRequest struct {
	Mobile string `json:"mobile"`
	OTP    string `json:"otp"`
}

// VerifyOTPData is the payload of a successful OTP verification.
type VerifyOTPData struct {
	// Message is "Login successful" or "Registration successful".
	Message string `json:"message"`

	// IsNewUser is true when the mobile number was seen for the first time.
	IsNewUser bool `json:"isNewUser"`

	// User is kept raw so it can be cached verbatim as user data.
	User json.RawMessage `json:"user"`

	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// LoginUser is the subset of the user document the client reads after login.
type LoginUser struct {
	ID     string `json:"id"`
	Mobile string `json:"mobile"`
}

// MessageData is the payload of endpoints that only acknowledge.
type MessageData struct {
	Message string `json:"message"`
}

// Coordinates is posted to the worker location endpoint.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}
