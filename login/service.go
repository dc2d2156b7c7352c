// Package login runs the OTP sign in exchange and the manual logout.
package login

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"regexp"
	"time"

	"github.com/jrsteele09/mento-client/apimodel"
	"github.com/jrsteele09/mento-client/authevents"
	"github.com/jrsteele09/mento-client/credentials"
	"github.com/jrsteele09/mento-client/gateway"
	"github.com/jrsteele09/mento-client/session"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	DefaultTimeout = 30 * time.Second
	otpLength      = 4
	tempEmailHost  = "@temp.com"
)

var (
	mobilePattern = regexp.MustCompile(`^[6-9]\d{9}$`)
	otpPattern    = regexp.MustCompile(`^\d{4}$`)
)

// Result is what a successful VerifyOTP returns.
type Result struct {
	IsNewUser bool
	User      apimodel.LoginUser
	UserData  json.RawMessage
	Message   string
}

// Service talks to the unauthenticated auth endpoints. It does not go through
// the gateway: a 401 here means a wrong code, not an expired session.
type Service struct {
	httpClient *http.Client
	endpoints  apimodel.Endpoints
	creds      *credentials.Manager
	lifecycle  *session.Lifecycle
	bus        *authevents.Bus
	timeout    time.Duration
}

type Option func(*Service)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(s *Service) {
		s.httpClient = httpClient
	}
}

// WithLifecycle lets the service drive the session state during VerifyOTP.
func WithLifecycle(lifecycle *session.Lifecycle) Option {
	return func(s *Service) {
		s.lifecycle = lifecycle
	}
}

func WithEventBus(bus *authevents.Bus) Option {
	return func(s *Service) {
		s.bus = bus
	}
}

func WithTimeout(d time.Duration) Option {
	return func(s *Service) {
		s.timeout = d
	}
}

func NewService(creds *credentials.Manager, endpoints apimodel.Endpoints, options ...Option) *Service {
	s := &Service{
		httpClient: http.DefaultClient,
		endpoints:  endpoints,
		creds:      creds,
		timeout:    DefaultTimeout,
	}
	for _, opt := range options {
		opt(s)
	}
	if s.bus == nil {
		s.bus = authevents.Default
	}
	return s
}

// SendOTP asks the backend to text a login code to mobile. An empty email is
// replaced by a placeholder derived from the number.
func (s *Service) SendOTP(ctx context.Context, mobile, email string) (string, error) {
	return s.requestOTP(ctx, s.endpoints.SendOTP(), mobile, email)
}

func (s *Service) ResendOTP(ctx context.Context, mobile, email string) (string, error) {
	return s.requestOTP(ctx, s.endpoints.ResendOTP(), mobile, email)
}

func (s *Service) requestOTP(ctx context.Context, url, mobile, email string) (string, error) {
	if !mobilePattern.MatchString(mobile) {
		return "", errors.Wrap(ErrInvalidMobile, "expected a 10-digit mobile number")
	}
	if email == "" {
		email = mobile + tempEmailHost
	}

	body, err := s.post(ctx, url, apimodel.SendOTPRequest{Mobile: mobile, Email: email})
	if err != nil {
		return "", err
	}
	data, err := apimodel.DecodeEnvelope[apimodel.MessageData](bytes.NewReader(body))
	if err != nil {
		// Older backends answer without data.
		return "", nil
	}
	return data.Message, nil
}

// VerifyOTP exchanges the code for a session and stores it.
func (s *Service) VerifyOTP(ctx context.Context, mobile, otp string) (*Result, error) {
	if !mobilePattern.MatchString(mobile) {
		return nil, errors.Wrap(ErrInvalidMobile, "expected a 10-digit mobile number")
	}
	if !otpPattern.MatchString(otp) {
		return nil, errors.Wrapf(ErrInvalidOTP, "expected a %d-digit code", otpLength)
	}

	s.transition(session.StateAuthenticating)
	result, err := s.verify(ctx, mobile, otp)
	if err != nil {
		s.transition(session.StateAnonymous)
		return nil, err
	}
	s.transition(session.StateAuthenticated)
	return result, nil
}

func (s *Service) verify(ctx context.Context, mobile, otp string) (*Result, error) {
	body, err := s.post(ctx, s.endpoints.VerifyOTP(), apimodel.VerifyOTPRequest{Mobile: mobile, OTP: otp})
	if err != nil {
		return nil, err
	}
	data, err := apimodel.DecodeEnvelope[apimodel.VerifyOTPData](bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	if data.AccessToken == "" || data.RefreshToken == "" {
		return nil, errors.Wrap(ErrRejected, "response carried no tokens")
	}

	var user apimodel.LoginUser
	if len(data.User) > 0 {
		if err := json.Unmarshal(data.User, &user); err != nil {
			return nil, errors.Wrap(err, "Service.VerifyOTP user")
		}
	}

	if err := s.creds.SaveLogin(ctx, data.AccessToken, data.RefreshToken); err != nil {
		return nil, err
	}
	if err := s.creds.SaveUser(ctx, user.ID, data.User); err != nil {
		log.Err(err).Msg("Failed to cache user data")
	}
	log.Info().Str("userId", user.ID).Bool("newUser", data.IsNewUser).Msg("Logged in")

	return &Result{
		IsNewUser: data.IsNewUser,
		User:      user,
		UserData:  data.User,
		Message:   data.Message,
	}, nil
}

// Logout ends the local session. Listeners hear ReasonManual only when a
// session was actually stored, so repeated calls are harmless.
func (s *Service) Logout(ctx context.Context) error {
	current, err := s.creds.Load(ctx)
	hadSession := err != nil || current.AccessToken != "" || current.RefreshToken != ""

	if err := s.creds.Clear(ctx); err != nil {
		return err
	}
	if hadSession {
		s.bus.Publish(authevents.ReasonManual)
	}
	return nil
}

func (s *Service) transition(to session.State) {
	if s.lifecycle == nil {
		return
	}
	if err := s.lifecycle.Transition(to); err != nil {
		log.Debug().Err(err).Msg("Ignoring session transition")
	}
}

// post sends body as JSON and returns the response body of a 2xx answer.
func (s *Service) post(ctx context.Context, url string, body any) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, errors.Wrap(err, "Service.post encode")
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Wrap(err, "Service.post")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, errors.Wrap(gateway.ErrTimeout, err.Error())
		}
		return nil, errors.Wrap(err, "Service.post")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, errors.Wrap(err, "Service.post read")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, rejection(resp.StatusCode, respBody)
	}
	return respBody, nil
}

func rejection(status int, body []byte) error {
	parsed := apimodel.ParseErrorBody(body)
	if parsed.IsAccountInactive() {
		return &gateway.SessionEndedError{Reason: authevents.ReasonInactive}
	}
	message := parsed.Message
	if message == "" {
		message = http.StatusText(status)
	}
	return errors.Wrapf(ErrRejected, "%d %s", status, message)
}
