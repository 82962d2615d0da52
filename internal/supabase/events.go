package supabase

import (
	"sync"

	"github.com/ivalora-gadget/console/internal/account"
)

// Event names a session change
type Event string

const (
	EventSignedIn         Event = "SIGNED_IN"
	EventSignedOut        Event = "SIGNED_OUT"
	EventTokenRefreshed   Event = "TOKEN_REFRESHED"
	EventUserUpdated      Event = "USER_UPDATED"
	EventPasswordRecovery Event = "PASSWORD_RECOVERY"
)

// Listener receives session changes. session is nil after sign-out.
type Listener func(event Event, session *account.Session)

// Subscription is the handle returned by OnAuthStateChange
type Subscription interface {
	// Unsubscribe stops delivery to the listener. Safe to call more than once.
	Unsubscribe()
}

type subscription struct {
	client *Client
	id     uint64
	once   sync.Once
}

func (s *subscription) Unsubscribe() {
	s.once.Do(func() {
		s.client.lmu.Lock()
		delete(s.client.listeners, s.id)
		s.client.lmu.Unlock()
	})
}

// OnAuthStateChange registers fn for every later session change.
//
// Listeners run synchronously while the client holds its session lock. A
// listener must not call back into the client (GetSession, FetchStatus, ...)
// before returning, or it deadlocks; schedule that work elsewhere instead.
func (c *Client) OnAuthStateChange(fn Listener) Subscription {
	c.lmu.Lock()
	defer c.lmu.Unlock()

	c.nextID++
	c.listeners[c.nextID] = fn

	return &subscription{client: c, id: c.nextID}
}

// emitLocked must be called with c.mu held
func (c *Client) emitLocked(event Event, session *account.Session) {
	c.lmu.Lock()
	listeners := make([]Listener, 0, len(c.listeners))
	for _, fn := range c.listeners {
		listeners = append(listeners, fn)
	}
	c.lmu.Unlock()

	c.logger.Debug().Str("event", string(event)).Msg("Session changed")

	for _, fn := range listeners {
		fn(event, session.Clone())
	}
}
