package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/jrsteele09/mento-client/apimodel"
	"github.com/jrsteele09/mento-client/authevents"
	"github.com/jrsteele09/mento-client/credentials"
	internalerrors "github.com/jrsteele09/mento-client/internal/errors"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrProfileRejected  = errors.New("profile request rejected")
	// ErrSessionEnded is returned by Load when the session ended before the load finished.
	ErrSessionEnded = errors.New("session ended during profile load")
)

// Requester sends authenticated requests. *gateway.Client satisfies it.
type Requester interface {
	Get(ctx context.Context, url string, onUnauthorized func()) (*http.Response, error)
	PostJSON(ctx context.Context, url string, body any, onUnauthorized func()) (*http.Response, error)
}

// LocationFunc returns the device position, or nil when it is unavailable.
type LocationFunc func(ctx context.Context) (*apimodel.Coordinates, error)

// State is a snapshot of what the orchestrator knows about the current user.
type State struct {
	Loading      bool
	Refreshing   bool
	User         *UserProfile
	Worker       *WorkerProfile
	JobSeeker    *JobSeekerProfile
	FlowState    FlowState
	JobFlowState JobFlowState
}

func initialState() State {
	return State{FlowState: FlowLoading, JobFlowState: JobFlowLoading}
}

// Orchestrator loads the user's profile through the gateway and derives the
// onboarding flow states from it. It never retries.
type Orchestrator struct {
	requester Requester
	creds     *credentials.Manager
	endpoints apimodel.Endpoints
	onLogout  func()
	locate    LocationFunc
	bus       *authevents.Bus

	mu    sync.RWMutex
	state State
	// epoch changes on every reset; a load only writes state for the epoch it began in.
	epoch       uint64
	unsubscribe func()
}

type Option func(*Orchestrator)

// WithOnLogout is called whenever the orchestrator ends the local session.
func WithOnLogout(fn func()) Option {
	return func(o *Orchestrator) {
		o.onLogout = fn
	}
}

func WithLocationProvider(fn LocationFunc) Option {
	return func(o *Orchestrator) {
		o.locate = fn
	}
}

// WithEventBus listens on bus instead of authevents.Default.
func WithEventBus(bus *authevents.Bus) Option {
	return func(o *Orchestrator) {
		o.bus = bus
	}
}

func NewOrchestrator(requester Requester, creds *credentials.Manager, endpoints apimodel.Endpoints, options ...Option) *Orchestrator {
	o := &Orchestrator{
		requester: requester,
		creds:     creds,
		endpoints: endpoints,
		state:     initialState(),
	}
	for _, opt := range options {
		opt(o)
	}
	if o.bus == nil {
		o.bus = authevents.Default
	}
	o.unsubscribe = o.bus.Subscribe(func(reason authevents.Reason) {
		log.Debug().Str("reason", string(reason)).Msg("Resetting profile state after logout")
		o.resetState()
	})
	return o
}

// Close stops listening for logout events.
func (o *Orchestrator) Close() {
	o.unsubscribe()
}

func (o *Orchestrator) State() State {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.state
}

func (o *Orchestrator) resetState() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state = initialState()
	o.epoch++
}

// beginLoad flags the state as loading and returns the current epoch.
func (o *Orchestrator) beginLoad() uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state.Loading = true
	return o.epoch
}

// updateIn applies fn only if no reset happened since epoch.
func (o *Orchestrator) updateIn(epoch uint64, fn func(s *State)) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.epoch != epoch {
		return false
	}
	fn(&o.state)
	return true
}

func (o *Orchestrator) ended(epoch uint64) bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.epoch != epoch
}

func sessionEnded(cause error) error {
	if cause == nil {
		return ErrSessionEnded
	}
	return fmt.Errorf("%w: %w", ErrSessionEnded, cause)
}

func (o *Orchestrator) update(fn func(s *State)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	fn(&o.state)
}

// HandleUnauthorized ends the local session: credentials are cleared, local
// state is reset and onLogout is called. Calling it again is harmless.
func (o *Orchestrator) HandleUnauthorized() {
	if err := o.creds.Clear(context.Background()); err != nil {
		log.Err(err).Msg("Error during unauthorized logout")
	}
	o.resetState()
	if o.onLogout != nil {
		o.onLogout()
	}
}

// Refresh reloads the profile, flagging the state as refreshing meanwhile.
func (o *Orchestrator) Refresh(ctx context.Context) error {
	o.update(func(s *State) { s.Refreshing = true })
	return o.Load(ctx)
}

// Load fetches the user profile and any worker or job seeker profile it
// references, then recomputes both flow states. If the session ends part way
// through, Load stops and returns ErrSessionEnded without touching the reset state.
func (o *Orchestrator) Load(ctx context.Context) error {
	epoch := o.beginLoad()
	defer o.update(func(s *State) {
		s.Loading = false
		s.Refreshing = false
	})

	if o.creds.AccessToken(ctx) == "" {
		o.HandleUnauthorized()
		return ErrNotAuthenticated
	}

	resp, err := o.requester.Get(ctx, o.endpoints.UserProfile(), o.HandleUnauthorized)
	if err != nil {
		return errors.Wrap(err, "load user profile")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		o.HandleUnauthorized()
		return errors.Wrap(ErrProfileRejected, fmt.Sprintf("status %d", resp.StatusCode))
	}

	user, err := apimodel.DecodeEnvelope[UserProfile](resp.Body)
	if err != nil {
		log.Err(err).Msg("Failed to load profile data")
		return err
	}

	Normalize(user)
	if !o.updateIn(epoch, func(s *State) {
		s.User = user
		s.FlowState = DetermineFlowState(user)
	}) {
		return sessionEnded(nil)
	}

	if nonEmpty(user.WorkerProfileID) {
		worker, err := o.FetchWorkerProfile(ctx, *user.WorkerProfileID)
		if o.ended(epoch) {
			return sessionEnded(err)
		}
		if err == nil && worker != nil {
			o.UpdateWorkerLocation(ctx)
			if o.ended(epoch) {
				return sessionEnded(nil)
			}
		}
	}

	if nonEmpty(user.JobSeekerProfileID) {
		jobSeeker, err := o.FetchJobSeekerProfile(ctx)
		if o.ended(epoch) {
			return sessionEnded(err)
		}
		if user.JobSeekerIsVerified == nil && jobSeeker != nil && jobSeeker.IsVerified {
			user.JobSeekerIsVerified = NewFlag(true)
		}
	}

	if !o.updateIn(epoch, func(s *State) {
		s.User = user
		s.JobFlowState = DetermineJobFlowState(user)
	}) {
		return sessionEnded(nil)
	}
	return nil
}

// FetchWorkerProfile loads a worker profile. Failures return nil.
func (o *Orchestrator) FetchWorkerProfile(ctx context.Context, workerID string) (*WorkerProfile, error) {
	worker, err := fetch[WorkerProfile](ctx, o, o.endpoints.WorkerProfile(workerID))
	if err != nil {
		log.Err(err).Str("workerId", workerID).Msg("Error fetching worker profile")
		return nil, err
	}
	o.update(func(s *State) { s.Worker = worker })
	return worker, nil
}

// FetchJobSeekerProfile loads the current user's job seeker profile. Failures return nil.
func (o *Orchestrator) FetchJobSeekerProfile(ctx context.Context) (*JobSeekerProfile, error) {
	jobSeeker, err := fetch[JobSeekerProfile](ctx, o, o.endpoints.JobSeekerProfile())
	if err != nil {
		log.Err(err).Msg("Error fetching job seeker profile")
		return nil, err
	}
	o.update(func(s *State) { s.JobSeeker = jobSeeker })
	return jobSeeker, nil
}

func fetch[T any](ctx context.Context, o *Orchestrator, url string) (*T, error) {
	resp, err := o.requester.Get(ctx, url, o.HandleUnauthorized)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, internalerrors.Wrapf(internalerrors.ErrRequestFailed, "status %d", resp.StatusCode)
	}
	var env apimodel.Envelope[T]
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, internalerrors.Wrapf(internalerrors.ErrInvalidResponse, "decode: %v", err)
	}
	if !env.Success || env.Data == nil {
		return nil, internalerrors.ErrInvalidResponse
	}
	return env.Data, nil
}

// UpdateWorkerLocation posts the device position for a loaded worker profile.
// Every failure is logged and otherwise ignored.
func (o *Orchestrator) UpdateWorkerLocation(ctx context.Context) {
	if o.State().Worker == nil || o.locate == nil {
		return
	}
	coords, err := o.locate(ctx)
	if err != nil || coords == nil {
		if err != nil {
			log.Debug().Err(err).Msg("Location unavailable")
		}
		return
	}

	resp, err := o.requester.PostJSON(ctx, o.endpoints.WorkerLocation(), coords, o.HandleUnauthorized)
	if err != nil {
		log.Debug().Err(err).Msg("Failed to update location (silent)")
		return
	}
	resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Debug().Int("status", resp.StatusCode).Msg("Failed to update location (silent)")
	}
}
