package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jerardpelaez/wedding-calendar/internal/core"
	"github.com/jerardpelaez/wedding-calendar/internal/remote"
)

type fakeAuth struct {
	mu         sync.Mutex
	session    *remote.AuthSession
	getErr     error
	signInErr  error
	signOutErr error
	gate       chan struct{}
	// hold parks GetSession after it has read the session; entered is
	// closed once it is parked.
	hold      chan struct{}
	entered   chan struct{}
	calls     atomic.Int32
	listeners map[int]func(remote.AuthEvent, *remote.AuthSession)
	next      int
}

func newFakeAuth() *fakeAuth {
	return &fakeAuth{listeners: map[int]func(remote.AuthEvent, *remote.AuthSession){}}
}

func (f *fakeAuth) GetSession(context.Context) (*remote.AuthSession, error) {
	f.calls.Add(1)
	if f.gate != nil {
		<-f.gate
	}
	if f.hold != nil {
		f.mu.Lock()
		sess, err := f.session, f.getErr
		f.mu.Unlock()
		close(f.entered)
		<-f.hold
		return sess, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.session, f.getErr
}

func (f *fakeAuth) SignInWithPassword(_ context.Context, email, _ string) (*remote.AuthSession, error) {
	if f.signInErr != nil {
		return nil, f.signInErr
	}
	s := &remote.AuthSession{UserID: "u-" + email, Email: email}
	f.mu.Lock()
	f.session = s
	f.mu.Unlock()
	f.emit(remote.AuthSignedIn, s)
	return s, nil
}

func (f *fakeAuth) SignOut(context.Context) error {
	if f.signOutErr != nil {
		return f.signOutErr
	}
	f.mu.Lock()
	f.session = nil
	f.mu.Unlock()
	f.emit(remote.AuthSignedOut, nil)
	return nil
}

func (f *fakeAuth) OnAuthStateChange(fn func(remote.AuthEvent, *remote.AuthSession)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.next
	f.next++
	f.listeners[id] = fn
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.listeners, id)
	}
}

func (f *fakeAuth) listenerCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.listeners)
}

func (f *fakeAuth) emit(ev remote.AuthEvent, s *remote.AuthSession) {
	f.mu.Lock()
	var fns []func(remote.AuthEvent, *remote.AuthSession)
	for _, fn := range f.listeners {
		fns = append(fns, fn)
	}
	f.mu.Unlock()
	for _, fn := range fns {
		fn(ev, s)
	}
}

type fakeDirectory struct {
	members map[string]core.Membership
	err     error
}

func (d fakeDirectory) MembershipForUser(_ context.Context, userID string) (core.Membership, error) {
	if d.err != nil {
		return core.Membership{}, d.err
	}
	m, ok := d.members[userID]
	if !ok {
		return core.Membership{}, core.ErrNotFound
	}
	return m, nil
}

var anna = core.Membership{CoupleID: "c1", UserID: "u-anna@example.com", DisplayName: "Anna"}

func directory() fakeDirectory {
	return fakeDirectory{members: map[string]core.Membership{anna.UserID: anna}}
}

func TestInitializeUnresolvedUntilCalled(t *testing.T) {
	r := NewResolver(newFakeAuth(), directory(), nil)
	s := r.State()
	assert.True(t, s.IsLoading)
	assert.False(t, s.IsAuthenticated)
	assert.Equal(t, InitNotStarted, r.InitState())
}

func TestInitializeWithStoredSession(t *testing.T) {
	auth := newFakeAuth()
	auth.session = &remote.AuthSession{UserID: anna.UserID}
	r := NewResolver(auth, directory(), nil)

	require.NoError(t, r.Initialize(context.Background()))
	s := r.State()
	assert.False(t, s.IsLoading)
	assert.True(t, s.IsAuthenticated)
	assert.Equal(t, "c1", s.CoupleID)
	assert.Equal(t, "Anna", s.DisplayName)
	assert.Equal(t, InitResolved, r.InitState())

	require.NoError(t, r.Initialize(context.Background()))
	assert.EqualValues(t, 1, auth.calls.Load(), "resolved initializer must not refetch")
	assert.Equal(t, 1, auth.listenerCount())
}

func TestInitializeIsSingleFlight(t *testing.T) {
	auth := newFakeAuth()
	auth.gate = make(chan struct{})
	r := NewResolver(auth, directory(), nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, r.Initialize(context.Background()))
		}()
	}
	require.Eventually(t, func() bool { return auth.calls.Load() > 0 }, time.Second, time.Millisecond)
	close(auth.gate)
	wg.Wait()

	assert.EqualValues(t, 1, auth.calls.Load())
	assert.Equal(t, InitResolved, r.InitState())
	assert.False(t, r.State().IsLoading)
	assert.Equal(t, 1, auth.listenerCount())
}

func TestInitializeFailureIsRetried(t *testing.T) {
	auth := newFakeAuth()
	auth.getErr = errors.New("network down")
	r := NewResolver(auth, directory(), nil)

	require.Error(t, r.Initialize(context.Background()))
	assert.Equal(t, InitFailed, r.InitState())
	assert.False(t, r.State().IsLoading, "loading ends regardless of outcome")

	auth.mu.Lock()
	auth.getErr = nil
	auth.session = &remote.AuthSession{UserID: anna.UserID}
	auth.mu.Unlock()

	require.NoError(t, r.Initialize(context.Background()))
	assert.True(t, r.State().IsAuthenticated)
	assert.Equal(t, 1, auth.listenerCount())
}

func TestUserWithoutCoupleStaysUnauthenticated(t *testing.T) {
	auth := newFakeAuth()
	auth.session = &remote.AuthSession{UserID: "u-stranger"}
	r := NewResolver(auth, directory(), nil)

	require.NoError(t, r.Initialize(context.Background()))
	s := r.State()
	assert.False(t, s.IsAuthenticated)
	assert.Equal(t, "u-stranger", s.UserID)
	assert.True(t, s.Valid())
}

func TestSignInAndOutThroughListener(t *testing.T) {
	auth := newFakeAuth()
	r := NewResolver(auth, directory(), nil)
	require.NoError(t, r.Initialize(context.Background()))
	assert.False(t, r.State().IsAuthenticated)

	var seen []core.Session
	stop := r.Watch(func(s core.Session) { seen = append(seen, s) })
	defer stop()

	require.NoError(t, r.SignIn(context.Background(), "anna@example.com", "pw"))
	s := r.State()
	assert.True(t, s.IsAuthenticated)
	assert.Equal(t, "c1", s.CoupleID)

	require.NoError(t, r.SignOut(context.Background()))
	assert.Equal(t, core.Session{}, r.State())

	require.Len(t, seen, 2)
	for _, s := range seen {
		assert.True(t, s.Valid())
	}
}

func TestSignInFailureCarriesMessage(t *testing.T) {
	auth := newFakeAuth()
	auth.signInErr = errors.New("Invalid login credentials")
	r := NewResolver(auth, directory(), nil)

	err := r.SignIn(context.Background(), "anna@example.com", "bad")
	var authErr *core.AuthenticationError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "Invalid login credentials", authErr.Message)

	auth.signOutErr = errors.New("offline")
	assert.ErrorContains(t, r.SignOut(context.Background()), "offline")
}

func TestCloseRemovesListener(t *testing.T) {
	auth := newFakeAuth()
	r := NewResolver(auth, directory(), nil)
	require.NoError(t, r.Initialize(context.Background()))
	require.Equal(t, 1, auth.listenerCount())
	r.Close()
	r.Close()
	assert.Equal(t, 0, auth.listenerCount())
}

func TestSignInDuringInitializeIsKept(t *testing.T) {
	auth := newFakeAuth()
	auth.hold = make(chan struct{})
	auth.entered = make(chan struct{})
	r := NewResolver(auth, directory(), nil)

	done := make(chan error, 1)
	go func() { done <- r.Initialize(context.Background()) }()
	<-auth.entered

	require.NoError(t, r.SignIn(context.Background(), "anna@example.com", "pw"))
	require.True(t, r.State().IsAuthenticated)

	close(auth.hold)
	require.NoError(t, <-done)

	s := r.State()
	assert.True(t, s.IsAuthenticated, "stored session read before sign-in must not win")
	assert.Equal(t, "c1", s.CoupleID)
	assert.False(t, s.IsLoading)
	assert.Equal(t, InitResolved, r.InitState())
}

func TestSignOutDuringFailingInitializeIsKept(t *testing.T) {
	auth := newFakeAuth()
	auth.session = &remote.AuthSession{UserID: anna.UserID}
	auth.getErr = errors.New("network down")
	auth.hold = make(chan struct{})
	auth.entered = make(chan struct{})
	r := NewResolver(auth, directory(), nil)

	done := make(chan error, 1)
	go func() { done <- r.Initialize(context.Background()) }()
	<-auth.entered

	require.NoError(t, r.SignOut(context.Background()))
	close(auth.hold)
	require.NoError(t, <-done)

	assert.Equal(t, core.Session{}, r.State())
	assert.Equal(t, InitResolved, r.InitState())
}
