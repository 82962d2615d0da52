// Package session keeps one process-wide view of who is signed in and what
// their account status and role are, in step with the hosted auth service.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ivalora-gadget/console/internal/account"
	"github.com/ivalora-gadget/console/internal/supabase"
)

// DefaultFetchTimeout bounds one status/role lookup
const DefaultFetchTimeout = 15 * time.Second

var (
	ErrClosed         = errors.New("session synchronizer is closed")
	ErrAlreadyStarted = errors.New("session synchronizer already started")
)

// Backend is the part of the hosted client the synchronizer depends on.
// *supabase.Client satisfies it.
type Backend interface {
	GetSession(ctx context.Context) (*account.Session, error)
	OnAuthStateChange(fn supabase.Listener) supabase.Subscription
	SignOut(ctx context.Context) error
	SignOutLocal()
	FetchStatus(ctx context.Context, userID string) (account.Status, error)
	FetchRole(ctx context.Context, userID string) (account.Role, error)
}

// Option configures a Synchronizer
type Option func(*Synchronizer)

// WithLogger sets the logger
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Synchronizer) {
		s.logger = logger.With().Str("component", "session").Logger()
	}
}

// WithFetchTimeout bounds each status/role lookup
func WithFetchTimeout(d time.Duration) Option {
	return func(s *Synchronizer) {
		if d > 0 {
			s.fetchTimeout = d
		}
	}
}

// WithScheduler replaces how detail fetches triggered by change events are
// run. fn must not be run on the calling goroutine.
func WithScheduler(schedule func(fn func())) Option {
	return func(s *Synchronizer) {
		if schedule != nil {
			s.schedule = schedule
		}
	}
}

// Synchronizer mirrors the hosted session and the account details that go
// with it. Readers take copies with View; writers are the change listener
// and the detail fetches it schedules.
type Synchronizer struct {
	backend      Backend
	logger       zerolog.Logger
	fetchTimeout time.Duration
	schedule     func(fn func())

	mu         sync.Mutex
	view       View
	started    bool
	closed     bool
	alive      bool
	superseded bool
	sub        supabase.Subscription

	ready     chan struct{}
	readyOnce sync.Once

	wmu      sync.Mutex
	watchers map[chan struct{}]struct{}
}

// New creates a synchronizer in the loading state. Call Start to populate it.
func New(backend Backend, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		backend:      backend,
		logger:       zerolog.Nop(),
		fetchTimeout: DefaultFetchTimeout,
		schedule:     func(fn func()) { go fn() },
		view:         View{Loading: true},
		ready:        make(chan struct{}),
		watchers:     make(map[chan struct{}]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start subscribes to session changes, then resolves the initial session and,
// if there is one, its account details. Loading is cleared when Start
// returns, whether or not it failed.
func (s *Synchronizer) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.started {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.started = true
	s.alive = true
	s.mu.Unlock()

	defer s.finishLoading()

	// Subscribe first so no change between the read and the subscription is lost
	sub := s.backend.OnAuthStateChange(s.handleChange)

	s.mu.Lock()
	if !s.alive {
		s.mu.Unlock()
		sub.Unsubscribe()
		return ErrClosed
	}
	s.sub = sub
	s.mu.Unlock()

	current, err := s.backend.GetSession(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Initial session check failed")
		return fmt.Errorf("failed to read initial session: %w", err)
	}

	s.mu.Lock()
	if !s.alive {
		s.mu.Unlock()
		return nil
	}
	if s.superseded {
		// A change event already delivered a newer session
		s.logger.Debug().Msg("Initial session superseded by change event")
	} else {
		s.setSessionLocked(current)
	}
	var userID string
	if s.view.User != nil {
		userID = s.view.User.ID
	}
	s.mu.Unlock()
	s.notify()

	if userID != "" {
		s.loadDetails(ctx, userID)
	}

	return nil
}

// handleChange runs inside the backend's notification, which holds the
// backend's session lock. It only records the new session; the detail fetch
// calls back into the backend and is therefore scheduled elsewhere.
func (s *Synchronizer) handleChange(event supabase.Event, current *account.Session) {
	s.mu.Lock()
	if !s.alive {
		s.mu.Unlock()
		return
	}
	s.superseded = true
	s.setSessionLocked(current)
	var userID string
	if s.view.User != nil {
		userID = s.view.User.ID
	}
	s.mu.Unlock()

	s.logger.Debug().
		Str("event", string(event)).
		Str("user_id", userID).
		Msg("Session changed")
	s.notify()

	if userID != "" {
		s.schedule(func() {
			s.loadDetails(context.Background(), userID)
		})
	}
}

// setSessionLocked replaces session and identity. Account details are dropped
// on sign-out and whenever the identity changes.
func (s *Synchronizer) setSessionLocked(current *account.Session) {
	var prevID string
	if s.view.User != nil {
		prevID = s.view.User.ID
	}

	s.view.Session = current.Clone()
	if current == nil {
		s.view.User = nil
		s.view.Status = account.StatusUnknown
		s.view.Role = account.RoleNone
		s.view.DetailsPending = false
		return
	}

	user := current.User
	s.view.User = &user
	if user.ID != prevID {
		s.view.Status = account.StatusUnknown
		s.view.Role = account.RoleNone
		s.view.DetailsPending = user.ID != ""
	}
}

// loadDetails reads status and role for userID and applies them if that
// identity is still current.
func (s *Synchronizer) loadDetails(ctx context.Context, userID string) {
	if !s.isAlive() {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	status, role, err := s.fetchDetails(ctx, userID)

	s.mu.Lock()
	if !s.alive || s.view.User == nil || s.view.User.ID != userID {
		s.mu.Unlock()
		s.logger.Debug().Str("user_id", userID).Msg("Discarding account details for stale identity")
		return
	}
	if err != nil {
		s.view.Status = account.StatusUnknown
		s.view.Role = account.RoleNone
	} else {
		s.view.Status = status
		s.view.Role = role
	}
	s.view.DetailsPending = false
	s.mu.Unlock()

	if err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("Failed to load account details")
	}
	s.notify()
}

// fetchDetails reads status and role concurrently. A missing profile leaves
// the status unknown; a missing role means no role.
func (s *Synchronizer) fetchDetails(ctx context.Context, userID string) (account.Status, account.Role, error) {
	var (
		wg        sync.WaitGroup
		status    account.Status
		role      account.Role
		statusErr error
		roleErr   error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		status, statusErr = s.backend.FetchStatus(ctx, userID)
	}()
	go func() {
		defer wg.Done()
		role, roleErr = s.backend.FetchRole(ctx, userID)
	}()
	wg.Wait()

	if errors.Is(statusErr, supabase.ErrNoRows) {
		status, statusErr = account.StatusUnknown, nil
	}
	if statusErr != nil {
		return "", "", fmt.Errorf("failed to fetch status: %w", statusErr)
	}
	if roleErr != nil {
		return "", "", fmt.Errorf("failed to fetch role: %w", roleErr)
	}

	return status, role, nil
}

func (s *Synchronizer) finishLoading() {
	s.mu.Lock()
	changed := s.alive && s.view.Loading
	if changed {
		s.view.Loading = false
	}
	s.mu.Unlock()

	s.readyOnce.Do(func() { close(s.ready) })
	if changed {
		s.notify()
	}
}

func (s *Synchronizer) isAlive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.alive
}

// View returns a copy of the current state
func (s *Synchronizer) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view.clone()
}

// WaitReady blocks until the initial session check has settled
func (s *Synchronizer) WaitReady(ctx context.Context) error {
	select {
	case <-s.ready:
		if !s.isAlive() {
			return ErrClosed
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SignOut asks the backend to end the session. State follows from the
// resulting change event; backend errors are returned as-is.
func (s *Synchronizer) SignOut(ctx context.Context) error {
	return s.backend.SignOut(ctx)
}

// Terminate ends the session of an account the status gate denied. When the
// remote revoke fails the backend still drops the session locally, and the
// revoke error is returned. State follows from the change event either way.
func (s *Synchronizer) Terminate(ctx context.Context) error {
	err := s.backend.SignOut(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Revoke failed, dropping session locally")
		s.backend.SignOutLocal()
	}
	return err
}

// Refresh re-reads status and role for the current identity. It does nothing
// while signed out.
func (s *Synchronizer) Refresh(ctx context.Context) error {
	s.mu.Lock()
	if !s.alive {
		s.mu.Unlock()
		return ErrClosed
	}
	var userID string
	if s.view.User != nil {
		userID = s.view.User.ID
	}
	s.mu.Unlock()

	if userID == "" {
		return nil
	}
	s.loadDetails(ctx, userID)
	return nil
}

// Changes returns a channel that receives a signal after every state change,
// coalescing bursts, and a func that stops delivery. The channel is closed
// when the synchronizer closes.
func (s *Synchronizer) Changes() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	s.wmu.Lock()
	if s.watchers == nil {
		s.wmu.Unlock()
		close(ch)
		return ch, func() {}
	}
	s.watchers[ch] = struct{}{}
	s.wmu.Unlock()

	return ch, func() {
		s.wmu.Lock()
		defer s.wmu.Unlock()
		if _, ok := s.watchers[ch]; ok {
			delete(s.watchers, ch)
			close(ch)
		}
	}
}

func (s *Synchronizer) notify() {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	for ch := range s.watchers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Close stops listening for changes. Fetches still in flight complete without
// touching state. Safe to call more than once.
func (s *Synchronizer) Close() {
	s.mu.Lock()
	s.closed = true
	wasAlive := s.alive
	s.alive = false
	sub := s.sub
	s.sub = nil
	s.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}
	s.readyOnce.Do(func() { close(s.ready) })

	s.wmu.Lock()
	for ch := range s.watchers {
		close(ch)
	}
	s.watchers = nil
	s.wmu.Unlock()

	if wasAlive {
		s.logger.Debug().Msg("Session synchronizer closed")
	}
}
