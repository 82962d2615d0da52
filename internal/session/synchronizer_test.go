package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivalora-gadget/console/internal/account"
	"github.com/ivalora-gadget/console/internal/supabase"
)

// fakeBackend behaves like the hosted client: listeners run while its
// session lock is held, and every read takes that same lock.
type fakeBackend struct {
	mu        sync.Mutex
	session   *account.Session
	listeners map[int]supabase.Listener
	nextID    int

	statuses map[string]account.Status
	roles    map[string]account.Role
	fetchErr error

	// getSession, when set, replaces the initial read (called without the lock)
	getSession func(ctx context.Context) (*account.Session, error)
	// gate, when set, blocks detail fetches until closed
	gate chan struct{}

	signOutErr    error
	signOutCalls  int
	localSignOuts int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		listeners: make(map[int]supabase.Listener),
		statuses:  make(map[string]account.Status),
		roles:     make(map[string]account.Role),
	}
}

type fakeSubscription struct {
	backend *fakeBackend
	id      int
}

func (s *fakeSubscription) Unsubscribe() {
	s.backend.mu.Lock()
	delete(s.backend.listeners, s.id)
	s.backend.mu.Unlock()
}

func (f *fakeBackend) OnAuthStateChange(fn supabase.Listener) supabase.Subscription {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.listeners[f.nextID] = fn
	return &fakeSubscription{backend: f, id: f.nextID}
}

func (f *fakeBackend) GetSession(ctx context.Context) (*account.Session, error) {
	if f.getSession != nil {
		return f.getSession(ctx)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.session.Clone(), nil
}

// emit delivers a change the way the client does: under its lock
func (f *fakeBackend) emit(event supabase.Event, session *account.Session) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.session = session.Clone()
	for _, fn := range f.listeners {
		fn(event, session.Clone())
	}
}

func (f *fakeBackend) SignOut(ctx context.Context) error {
	f.mu.Lock()
	f.signOutCalls++
	err := f.signOutErr
	f.mu.Unlock()
	if err != nil {
		return err
	}
	f.emit(supabase.EventSignedOut, nil)
	return nil
}

func (f *fakeBackend) SignOutLocal() {
	f.mu.Lock()
	f.localSignOuts++
	f.mu.Unlock()
	f.emit(supabase.EventSignedOut, nil)
}

func (f *fakeBackend) waitGate(ctx context.Context) error {
	f.mu.Lock()
	gate := f.gate
	f.mu.Unlock()
	if gate == nil {
		return nil
	}
	select {
	case <-gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeBackend) FetchStatus(ctx context.Context, userID string) (account.Status, error) {
	if err := f.waitGate(ctx); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return "", f.fetchErr
	}
	status, ok := f.statuses[userID]
	if !ok {
		return "", supabase.ErrNoRows
	}
	return status, nil
}

func (f *fakeBackend) FetchRole(ctx context.Context, userID string) (account.Role, error) {
	if err := f.waitGate(ctx); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.roles[userID], nil
}

func (f *fakeBackend) listenerCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.listeners)
}

func testSession(userID string) *account.Session {
	return &account.Session{
		AccessToken:  "token-" + userID,
		RefreshToken: "refresh-" + userID,
		TokenType:    "bearer",
		ExpiresAt:    time.Now().Add(time.Hour),
		User:         account.Identity{ID: userID, Email: userID + "@ivalora.id"},
	}
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, 5*time.Millisecond)
}

func TestStart_ResolvesSessionAndDetailsBeforeReady(t *testing.T) {
	backend := newFakeBackend()
	backend.session = testSession("user-a")
	backend.statuses["user-a"] = account.StatusActive
	backend.roles["user-a"] = account.RoleSuperAdmin

	s := New(backend)
	defer s.Close()

	assert.True(t, s.View().Loading)

	require.NoError(t, s.Start(context.Background()))

	view := s.View()
	assert.False(t, view.Loading)
	require.NotNil(t, view.User)
	assert.Equal(t, "user-a", view.User.ID)
	assert.Equal(t, account.StatusActive, view.Status)
	assert.Equal(t, account.RoleSuperAdmin, view.Role)
	assert.True(t, view.IsAdmin())

	select {
	case <-s.ready:
	default:
		t.Fatal("ready channel not closed after Start")
	}
}

func TestStart_NoSession(t *testing.T) {
	backend := newFakeBackend()
	s := New(backend)
	defer s.Close()

	require.NoError(t, s.Start(context.Background()))

	view := s.View()
	assert.False(t, view.Loading)
	assert.False(t, view.SignedIn())
	assert.Nil(t, view.User)
	assert.Equal(t, account.StatusUnknown, view.Status)
	assert.Equal(t, account.RoleNone, view.Role)
}

func TestStart_InitialErrorStillClearsLoading(t *testing.T) {
	backend := newFakeBackend()
	backend.getSession = func(ctx context.Context) (*account.Session, error) {
		return nil, errors.New("network down")
	}

	s := New(backend)
	defer s.Close()

	err := s.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "network down")

	assert.False(t, s.View().Loading)
	require.NoError(t, s.WaitReady(context.Background()))
}

func TestStart_Twice(t *testing.T) {
	s := New(newFakeBackend())
	defer s.Close()

	require.NoError(t, s.Start(context.Background()))
	assert.ErrorIs(t, s.Start(context.Background()), ErrAlreadyStarted)
}

func TestStart_AfterClose(t *testing.T) {
	backend := newFakeBackend()
	s := New(backend)
	s.Close()

	assert.ErrorIs(t, s.Start(context.Background()), ErrClosed)
	assert.Equal(t, 0, backend.listenerCount())
	assert.ErrorIs(t, s.WaitReady(context.Background()), ErrClosed)
}

func TestSignedOutEventClearsAccountDetails(t *testing.T) {
	backend := newFakeBackend()
	backend.session = testSession("user-a")
	backend.statuses["user-a"] = account.StatusActive
	backend.roles["user-a"] = account.RoleAdmin

	s := New(backend)
	defer s.Close()
	require.NoError(t, s.Start(context.Background()))
	require.Equal(t, account.StatusActive, s.View().Status)

	backend.emit(supabase.EventSignedOut, nil)

	view := s.View()
	assert.Nil(t, view.Session)
	assert.Nil(t, view.User)
	assert.Equal(t, account.StatusUnknown, view.Status)
	assert.Equal(t, account.RoleNone, view.Role)
}

func TestLoadingClearsOnlyOnce(t *testing.T) {
	backend := newFakeBackend()
	release := make(chan struct{})
	backend.getSession = func(ctx context.Context) (*account.Session, error) {
		<-release
		return nil, nil
	}

	s := New(backend)
	defer s.Close()

	done := make(chan error, 1)
	go func() { done <- s.Start(context.Background()) }()

	eventually(t, func() bool { return backend.listenerCount() == 1 })
	assert.True(t, s.View().Loading)

	// An event during startup does not end loading
	backend.statuses["user-b"] = account.StatusActive
	backend.emit(supabase.EventSignedIn, testSession("user-b"))
	assert.True(t, s.View().Loading)

	close(release)
	require.NoError(t, <-done)
	assert.False(t, s.View().Loading)

	backend.emit(supabase.EventSignedOut, nil)
	backend.emit(supabase.EventSignedIn, testSession("user-b"))
	assert.False(t, s.View().Loading)
}

func TestStaleInitialSessionDoesNotOverwriteChangeEvent(t *testing.T) {
	backend := newFakeBackend()
	backend.statuses["user-a"] = account.StatusActive
	backend.statuses["user-b"] = account.StatusPending

	release := make(chan struct{})
	backend.getSession = func(ctx context.Context) (*account.Session, error) {
		<-release
		return testSession("user-a"), nil
	}

	s := New(backend)
	defer s.Close()

	done := make(chan error, 1)
	go func() { done <- s.Start(context.Background()) }()

	eventually(t, func() bool { return backend.listenerCount() == 1 })
	backend.emit(supabase.EventSignedIn, testSession("user-b"))

	close(release)
	require.NoError(t, <-done)

	eventually(t, func() bool { return s.View().Status == account.StatusPending })
	view := s.View()
	require.NotNil(t, view.User)
	assert.Equal(t, "user-b", view.User.ID)
	assert.Equal(t, "token-user-b", view.Session.AccessToken)
}

func TestChangeEventFetchesDetailsOffTheListener(t *testing.T) {
	backend := newFakeBackend()
	backend.statuses["user-a"] = account.StatusActive
	backend.roles["user-a"] = account.RoleAdmin

	s := New(backend)
	defer s.Close()
	require.NoError(t, s.Start(context.Background()))

	// The fake's fetches take the lock emit holds, so an inline fetch would hang
	emitted := make(chan struct{})
	go func() {
		backend.emit(supabase.EventSignedIn, testSession("user-a"))
		close(emitted)
	}()

	select {
	case <-emitted:
	case <-time.After(2 * time.Second):
		t.Fatal("listener blocked on a detail fetch")
	}

	eventually(t, func() bool { return s.View().Status == account.StatusActive })
	assert.Equal(t, account.RoleAdmin, s.View().Role)
}

func TestFetchFailureResetsStatusAndRole(t *testing.T) {
	backend := newFakeBackend()
	backend.session = testSession("user-a")
	backend.statuses["user-a"] = account.StatusActive
	backend.roles["user-a"] = account.RoleAdmin

	s := New(backend)
	defer s.Close()
	require.NoError(t, s.Start(context.Background()))
	require.Equal(t, account.StatusActive, s.View().Status)

	backend.mu.Lock()
	backend.fetchErr = errors.New("relation does not exist")
	backend.mu.Unlock()

	require.NoError(t, s.Refresh(context.Background()))

	view := s.View()
	require.NotNil(t, view.User)
	assert.Equal(t, account.StatusUnknown, view.Status)
	assert.Equal(t, account.RoleNone, view.Role)
}

func TestMissingProfileKeepsRole(t *testing.T) {
	backend := newFakeBackend()
	backend.session = testSession("user-a")
	backend.roles["user-a"] = account.RoleAdmin

	s := New(backend)
	defer s.Close()
	require.NoError(t, s.Start(context.Background()))

	view := s.View()
	assert.Equal(t, account.StatusUnknown, view.Status)
	assert.Equal(t, account.RoleAdmin, view.Role)
}

func TestSwitchingIdentityDropsPreviousDetails(t *testing.T) {
	backend := newFakeBackend()
	backend.session = testSession("user-a")
	backend.statuses["user-a"] = account.StatusActive
	backend.roles["user-a"] = account.RoleSuperAdmin
	backend.statuses["user-b"] = account.StatusSuspended

	s := New(backend)
	defer s.Close()
	require.NoError(t, s.Start(context.Background()))

	backend.mu.Lock()
	backend.gate = make(chan struct{})
	gate := backend.gate
	backend.mu.Unlock()

	backend.emit(supabase.EventSignedIn, testSession("user-b"))

	view := s.View()
	assert.Equal(t, "user-b", view.User.ID)
	assert.Equal(t, account.StatusUnknown, view.Status)
	assert.Equal(t, account.RoleNone, view.Role)

	close(gate)
	eventually(t, func() bool { return s.View().Status == account.StatusSuspended })
	assert.Equal(t, account.RoleNone, s.View().Role)
}

func TestTokenRefreshKeepsDetails(t *testing.T) {
	backend := newFakeBackend()
	backend.session = testSession("user-a")
	backend.statuses["user-a"] = account.StatusActive
	backend.roles["user-a"] = account.RoleAdmin

	var scheduled []func()
	var smu sync.Mutex
	s := New(backend, WithScheduler(func(fn func()) {
		smu.Lock()
		scheduled = append(scheduled, fn)
		smu.Unlock()
	}))
	defer s.Close()
	require.NoError(t, s.Start(context.Background()))

	refreshed := testSession("user-a")
	refreshed.AccessToken = "token-user-a-2"
	backend.emit(supabase.EventTokenRefreshed, refreshed)

	view := s.View()
	assert.Equal(t, "token-user-a-2", view.Session.AccessToken)
	assert.Equal(t, account.StatusActive, view.Status)
	assert.Equal(t, account.RoleAdmin, view.Role)

	smu.Lock()
	assert.Len(t, scheduled, 1)
	smu.Unlock()
}

func TestStaleFetchIsDiscardedAfterSignOut(t *testing.T) {
	backend := newFakeBackend()
	backend.statuses["user-a"] = account.StatusActive

	var pending []func()
	var smu sync.Mutex
	s := New(backend, WithScheduler(func(fn func()) {
		smu.Lock()
		pending = append(pending, fn)
		smu.Unlock()
	}))
	defer s.Close()
	require.NoError(t, s.Start(context.Background()))

	backend.emit(supabase.EventSignedIn, testSession("user-a"))
	backend.emit(supabase.EventSignedOut, nil)

	smu.Lock()
	require.Len(t, pending, 1)
	fetch := pending[0]
	smu.Unlock()

	fetch()

	view := s.View()
	assert.Nil(t, view.User)
	assert.Equal(t, account.StatusUnknown, view.Status)
}

func TestNoMutationAfterClose(t *testing.T) {
	backend := newFakeBackend()
	backend.session = testSession("user-a")
	backend.statuses["user-a"] = account.StatusActive

	var pending []func()
	var smu sync.Mutex
	s := New(backend, WithScheduler(func(fn func()) {
		smu.Lock()
		pending = append(pending, fn)
		smu.Unlock()
	}))
	require.NoError(t, s.Start(context.Background()))

	// A fetch scheduled before teardown completes after it
	backend.statuses["user-a"] = account.StatusSuspended
	backend.emit(supabase.EventUserUpdated, testSession("user-a"))

	before := s.View()
	s.Close()
	assert.Equal(t, 0, backend.listenerCount())

	smu.Lock()
	for _, fn := range pending {
		fn()
	}
	smu.Unlock()

	backend.emit(supabase.EventSignedOut, nil)

	after := s.View()
	assert.Equal(t, before, after)
	assert.Equal(t, account.StatusActive, after.Status)
	assert.ErrorIs(t, s.Refresh(context.Background()), ErrClosed)

	// Close is idempotent
	s.Close()
}

func TestSignOutDelegatesAndPropagatesErrors(t *testing.T) {
	backend := newFakeBackend()
	backend.session = testSession("user-a")
	backend.statuses["user-a"] = account.StatusActive

	s := New(backend)
	defer s.Close()
	require.NoError(t, s.Start(context.Background()))

	failure := errors.New("service unavailable")
	backend.signOutErr = failure

	err := s.SignOut(context.Background())
	assert.ErrorIs(t, err, failure)
	assert.True(t, s.View().SignedIn(), "failed sign-out must not touch state")

	backend.signOutErr = nil
	require.NoError(t, s.SignOut(context.Background()))
	assert.False(t, s.View().SignedIn())
	assert.Equal(t, 2, backend.signOutCalls)
}

func TestTerminateDropsSessionLocallyWhenRevokeFails(t *testing.T) {
	backend := newFakeBackend()
	backend.session = testSession("user-a")
	backend.statuses["user-a"] = account.StatusSuspended

	s := New(backend)
	defer s.Close()
	require.NoError(t, s.Start(context.Background()))

	failure := errors.New("bad gateway")
	backend.signOutErr = failure

	err := s.Terminate(context.Background())
	assert.ErrorIs(t, err, failure)
	assert.False(t, s.View().SignedIn())
	assert.Equal(t, 1, backend.localSignOuts)

	// A successful revoke needs no local fallback
	backend.signOutErr = nil
	backend.emit(supabase.EventSignedIn, testSession("user-a"))
	require.NoError(t, s.Terminate(context.Background()))
	assert.False(t, s.View().SignedIn())
	assert.Equal(t, 1, backend.localSignOuts)
}

func TestDetailsPendingUntilFetchSettles(t *testing.T) {
	backend := newFakeBackend()
	backend.statuses["user-a"] = account.StatusSuspended

	s := New(backend)
	defer s.Close()
	require.NoError(t, s.Start(context.Background()))
	assert.False(t, s.View().DetailsPending)

	gate := make(chan struct{})
	backend.mu.Lock()
	backend.gate = gate
	backend.mu.Unlock()

	backend.emit(supabase.EventSignedIn, testSession("user-a"))

	view := s.View()
	assert.True(t, view.DetailsPending)
	assert.Equal(t, account.StatusUnknown, view.Status)

	close(gate)
	eventually(t, func() bool { return !s.View().DetailsPending })
	assert.Equal(t, account.StatusSuspended, s.View().Status)

	// Token refresh for the same identity keeps the resolved details
	backend.emit(supabase.EventTokenRefreshed, testSession("user-a"))
	assert.False(t, s.View().DetailsPending)

	backend.emit(supabase.EventSignedOut, nil)
	assert.False(t, s.View().DetailsPending)
}

func TestRefreshWithoutIdentityIsNoop(t *testing.T) {
	backend := newFakeBackend()
	backend.fetchErr = errors.New("should not be called")

	s := New(backend)
	defer s.Close()
	require.NoError(t, s.Start(context.Background()))

	require.NoError(t, s.Refresh(context.Background()))
	assert.Equal(t, account.StatusUnknown, s.View().Status)
}

func TestChangesSignalsAndClosesOnClose(t *testing.T) {
	backend := newFakeBackend()
	s := New(backend)

	changes, stop := s.Changes()
	defer stop()

	require.NoError(t, s.Start(context.Background()))

	select {
	case <-changes:
	case <-time.After(time.Second):
		t.Fatal("no change signal after start")
	}

	s.Close()

	eventually(t, func() bool {
		select {
		case _, ok := <-changes:
			return !ok
		default:
			return false
		}
	})

	// After close new watchers get a closed channel
	late, lateStop := s.Changes()
	lateStop()
	_, ok := <-late
	assert.False(t, ok)
}

func TestViewIsACopy(t *testing.T) {
	backend := newFakeBackend()
	backend.session = testSession("user-a")

	s := New(backend)
	defer s.Close()
	require.NoError(t, s.Start(context.Background()))

	view := s.View()
	view.Session.AccessToken = "mutated"
	view.User.Email = "mutated"

	fresh := s.View()
	assert.Equal(t, "token-user-a", fresh.Session.AccessToken)
	assert.Equal(t, "user-a@ivalora.id", fresh.User.Email)
}

func TestViewJSON(t *testing.T) {
	data, err := json.Marshal(View{Loading: true})
	require.NoError(t, err)
	assert.JSONEq(t, `{"session":null,"user":null,"status":null,"role":null,"is_loading":true,"details_pending":false}`, string(data))

	data, err = json.Marshal(View{
		User:   &account.Identity{ID: "u1", Email: "a@ivalora.id"},
		Status: account.StatusPending,
		Role:   account.RoleAdmin,
	})
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "pending", decoded["status"])
	assert.Equal(t, "admin", decoded["role"])
	assert.Equal(t, false, decoded["is_loading"])
}
