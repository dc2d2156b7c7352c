package session

import (
	"fmt"
	"sync"

	"github.com/jrsteele09/mento-client/authevents"
	"github.com/jrsteele09/mento-client/gateway"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// State is a stage of a session's life.
type State string

const (
	StateAnonymous      State = "anonymous"
	StateAuthenticating State = "authenticating"
	StateAuthenticated  State = "authenticated"
	StateRefreshing     State = "refreshing"
	StateLoggedOut      State = "logged_out"
)

var ErrInvalidTransition = errors.New("invalid session transition")

// transitions lists the allowed moves. Any state may move to StateLoggedOut.
var transitions = map[State][]State{
	StateAnonymous:      {StateAuthenticating},
	StateAuthenticating: {StateAuthenticated, StateAnonymous},
	StateAuthenticated:  {StateRefreshing},
	StateRefreshing:     {StateAuthenticated},
	StateLoggedOut:      {StateAuthenticating},
}

var _ gateway.Observer = (*Lifecycle)(nil)

// Lifecycle tracks the current session state.
type Lifecycle struct {
	mu       sync.RWMutex
	state    State
	reason   authevents.Reason
	onChange func(from, to State)
}

type Option func(*Lifecycle)

// WithOnChange is called after every successful transition, outside the lock.
func WithOnChange(fn func(from, to State)) Option {
	return func(l *Lifecycle) {
		l.onChange = fn
	}
}

// NewLifecycle starts in initial, usually StateAnonymous or StateAuthenticated
// when credentials were restored from storage.
func NewLifecycle(initial State, options ...Option) *Lifecycle {
	l := &Lifecycle{state: initial}
	for _, opt := range options {
		opt(l)
	}
	return l
}

func (l *Lifecycle) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// LogoutReason is the reason of the last logout, if any.
func (l *Lifecycle) LogoutReason() authevents.Reason {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.reason
}

func allowed(from, to State) bool {
	if to == StateLoggedOut {
		return true
	}
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Transition moves to next or returns ErrInvalidTransition.
func (l *Lifecycle) Transition(next State) error {
	l.mu.Lock()
	from := l.state
	if !allowed(from, next) {
		l.mu.Unlock()
		return errors.Wrap(ErrInvalidTransition, fmt.Sprintf("%s -> %s", from, next))
	}
	l.state = next
	if next == StateAuthenticating {
		l.reason = authevents.ReasonUnspecified
	}
	l.mu.Unlock()

	log.Debug().Str("from", string(from)).Str("to", string(next)).Msg("Session transition")
	if l.onChange != nil {
		l.onChange(from, next)
	}
	return nil
}

// LogOut records reason and moves to StateLoggedOut.
func (l *Lifecycle) LogOut(reason authevents.Reason) {
	l.mu.Lock()
	l.reason = reason
	l.mu.Unlock()
	_ = l.Transition(StateLoggedOut)
}

// RefreshStarted moves an authenticated session into refreshing. Other states are left alone.
func (l *Lifecycle) RefreshStarted() {
	if l.State() == StateAuthenticated {
		_ = l.Transition(StateRefreshing)
	}
}

// RefreshFinished returns to authenticated after a successful rotation. A
// failed refresh is reported through the event bus, which Attach listens to.
func (l *Lifecycle) RefreshFinished(err error) {
	if err == nil && l.State() == StateRefreshing {
		_ = l.Transition(StateAuthenticated)
	}
}

// Attach logs the session out on every event published on bus.
// The returned function detaches it.
func (l *Lifecycle) Attach(bus *authevents.Bus) func() {
	return bus.Subscribe(l.LogOut)
}
