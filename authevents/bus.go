// Package authevents is the process-wide logout channel. Any component that ends a
// session publishes a Reason; UI-facing code subscribes to show a notice and reset
// its own state.
package authevents

import "sync"

// Reason describes why a session ended.
type Reason string

const (
	ReasonUnspecified         Reason = ""
	ReasonInactive            Reason = "inactive"
	ReasonRefreshTokenExpired Reason = "refresh_token_expired"
	ReasonNoRefreshToken      Reason = "no_refresh_token"
	ReasonRefreshFailed       Reason = "refresh_failed"
	ReasonManual              Reason = "manual"
)

// Listener is invoked synchronously for every published logout.
type Listener func(reason Reason)

type registration struct {
	id       uint64
	listener Listener
}

// Bus is an in-memory publish/subscribe channel for logout events.
// The zero value is ready to use.
type Bus struct {
	mu        sync.Mutex
	nextID    uint64
	listeners []registration
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers listener and returns a function that removes it.
// The returned function may be called more than once.
func (b *Bus) Subscribe(listener Listener) (unsubscribe func()) {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.listeners = append(b.listeners, registration{id: id, listener: listener})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(id) })
	}
}

func (b *Bus) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, r := range b.listeners {
		if r.id == id {
			b.listeners = append(b.listeners[:i:i], b.listeners[i+1:]...)
			return
		}
	}
}

// Publish invokes every listener registered at the time of the call, in
// registration order. Listeners run outside the bus lock, so they may subscribe or
// unsubscribe; such changes take effect from the next Publish.
func (b *Bus) Publish(reason Reason) {
	b.mu.Lock()
	snapshot := make([]registration, len(b.listeners))
	copy(snapshot, b.listeners)
	b.mu.Unlock()

	for _, r := range snapshot {
		r.listener(reason)
	}
}

// Len returns the number of registered listeners.
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.listeners)
}

// Default is the process-wide bus.
var Default = NewBus()

// Subscribe registers listener on the Default bus.
func Subscribe(listener Listener) func() {
	return Default.Subscribe(listener)
}

// Publish publishes reason on the Default bus.
func Publish(reason Reason) {
	Default.Publish(reason)
}
