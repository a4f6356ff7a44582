// Package session resolves who is signed in and which couple they plan for.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/jerardpelaez/wedding-calendar/internal/core"
	applog "github.com/jerardpelaez/wedding-calendar/internal/log"
	"github.com/jerardpelaez/wedding-calendar/internal/remote"
)

// InitState is the lifecycle of the one-time session resolution.
type InitState int

const (
	InitNotStarted InitState = iota
	InitInFlight
	InitResolved
	InitFailed
)

func (s InitState) String() string {
	switch s {
	case InitNotStarted:
		return "not_started"
	case InitInFlight:
		return "in_flight"
	case InitResolved:
		return "resolved"
	case InitFailed:
		return "failed"
	default:
		return fmt.Sprintf("InitState(%d)", int(s))
	}
}

// membershipTimeout bounds lookups triggered by auth events, which carry no context.
const membershipTimeout = 10 * time.Second

type Resolver struct {
	auth   remote.AuthProvider
	dir    remote.CoupleDirectory
	logger *applog.Logger
	group  singleflight.Group

	mu    sync.RWMutex
	state core.Session
	init  InitState
	// gen counts state changes; a resolution started at an older gen is stale.
	gen         uint64
	unsubscribe func()
	watchers    map[int]func(core.Session)
	nextWatch   int
}

func NewResolver(auth remote.AuthProvider, dir remote.CoupleDirectory, logger *applog.Logger) *Resolver {
	if logger == nil {
		logger = applog.Discard()
	}
	return &Resolver{
		auth:     auth,
		dir:      dir,
		logger:   logger.WithComponent(applog.ComponentSession),
		state:    core.UnresolvedSession(),
		watchers: map[int]func(core.Session){},
	}
}

// State returns a copy of the current session.
func (r *Resolver) State() core.Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

func (r *Resolver) InitState() InitState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.init
}

// Initialize resolves the stored session and its couple. Concurrent callers
// share a single resolution; once resolved it returns immediately, after a
// failure the next call tries again.
func (r *Resolver) Initialize(ctx context.Context) error {
	if r.InitState() == InitResolved {
		return nil
	}
	_, err, shared := r.group.Do("initialize", func() (any, error) {
		return nil, r.resolve(ctx)
	})
	if shared {
		r.logger.DebugContext(ctx, "Joined in-flight session resolution")
	}
	return err
}

func (r *Resolver) resolve(ctx context.Context) error {
	r.mu.Lock()
	if r.init == InitResolved {
		r.mu.Unlock()
		return nil
	}
	r.init = InitInFlight
	if r.unsubscribe == nil {
		r.unsubscribe = r.auth.OnAuthStateChange(r.onAuthEvent)
	}
	gen := r.gen
	r.mu.Unlock()

	next, err := r.lookup(ctx)
	if err != nil {
		if !r.commit(&gen, func(s *core.Session) { *s = next }, InitFailed) {
			r.logger.DebugContext(ctx, "Auth event superseded failed resolution", applog.FieldError, err)
			return nil
		}
		r.logger.WarnContext(ctx, "Session resolution failed", applog.FieldError, err)
		return err
	}
	if !r.commit(&gen, func(s *core.Session) { *s = next }, InitResolved) {
		r.logger.DebugContext(ctx, "Auth event superseded session resolution")
		return nil
	}
	r.logger.InfoContext(ctx, "Session resolved",
		"authenticated", next.IsAuthenticated,
		applog.FieldCoupleID, next.CoupleID)
	return nil
}

// lookup builds the session for the stored auth session. IsLoading is
// always false in the result, including on error.
func (r *Resolver) lookup(ctx context.Context) (core.Session, error) {
	sess, err := r.auth.GetSession(ctx)
	if err != nil {
		return core.Session{}, fmt.Errorf("get session: %w", err)
	}
	if sess == nil {
		return core.Session{}, nil
	}
	return r.forUser(ctx, sess.UserID)
}

func (r *Resolver) forUser(ctx context.Context, userID string) (core.Session, error) {
	m, err := r.dir.MembershipForUser(ctx, userID)
	if errors.Is(err, core.ErrNotFound) {
		r.logger.WarnContext(ctx, "Signed-in user has no couple", applog.FieldUserID, userID)
		return core.Session{UserID: userID}, nil
	}
	if err != nil {
		return core.Session{UserID: userID}, fmt.Errorf("resolve couple: %w", err)
	}
	return core.Authenticated(m), nil
}

func (r *Resolver) onAuthEvent(ev remote.AuthEvent, sess *remote.AuthSession) {
	ctx, cancel := context.WithTimeout(context.Background(), membershipTimeout)
	defer cancel()

	switch ev {
	case remote.AuthSignedIn, remote.AuthTokenRefreshed:
		if sess == nil {
			return
		}
		next, err := r.forUser(ctx, sess.UserID)
		if err != nil {
			r.logger.WarnContext(ctx, "Couple lookup after auth change failed",
				"event", string(ev), applog.FieldError, err)
		}
		r.swap(func(s *core.Session) { *s = next }, InitResolved)
	case remote.AuthSignedOut:
		r.swap(func(s *core.Session) { *s = core.Session{} }, InitResolved)
	}
	r.logger.DebugContext(ctx, "Auth state changed", "event", string(ev))
}

// swap replaces the whole session under the lock, then notifies watchers.
func (r *Resolver) swap(fn func(*core.Session), init InitState) {
	r.commit(nil, fn, init)
}

// commit is swap that gives up, reporting false, when since is set and the
// state changed after it was read.
func (r *Resolver) commit(since *uint64, fn func(*core.Session), init InitState) bool {
	r.mu.Lock()
	if since != nil && *since != r.gen {
		r.mu.Unlock()
		return false
	}
	r.gen++
	next := r.state
	fn(&next)
	next.IsLoading = false
	r.state = next
	if r.init != InitResolved || init == InitResolved {
		r.init = init
	}
	watchers := make([]func(core.Session), 0, len(r.watchers))
	for _, w := range r.watchers {
		watchers = append(watchers, w)
	}
	r.mu.Unlock()

	for _, w := range watchers {
		w(next)
	}
	return true
}

// Watch registers fn to receive every new session state.
func (r *Resolver) Watch(fn func(core.Session)) (stop func()) {
	r.mu.Lock()
	id := r.nextWatch
	r.nextWatch++
	r.watchers[id] = fn
	r.mu.Unlock()
	return func() {
		r.mu.Lock()
		delete(r.watchers, id)
		r.mu.Unlock()
	}
}

// SignIn exchanges credentials. The session state is updated by the auth
// listener, not by this call.
func (r *Resolver) SignIn(ctx context.Context, email, password string) error {
	_, err := r.auth.SignInWithPassword(ctx, email, password)
	if err == nil {
		return nil
	}
	var authErr *core.AuthenticationError
	if errors.As(err, &authErr) {
		return authErr
	}
	return &core.AuthenticationError{Message: err.Error(), Err: err}
}

func (r *Resolver) SignOut(ctx context.Context) error {
	if err := r.auth.SignOut(ctx); err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	return nil
}

// Close removes the auth listener.
func (r *Resolver) Close() {
	r.mu.Lock()
	unsubscribe := r.unsubscribe
	r.unsubscribe = nil
	r.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
}
