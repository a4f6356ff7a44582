// Package auth is the password authentication provider: bcrypt hashed
// credentials, HS256 session tokens and auth state listeners.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/jerardpelaez/wedding-calendar/internal/core"
	applog "github.com/jerardpelaez/wedding-calendar/internal/log"
	"github.com/jerardpelaez/wedding-calendar/internal/remote"
)

const (
	MinPasswordLength = 8
	DefaultSessionTTL = 7 * 24 * time.Hour

	msgInvalidCredentials = "Invalid login credentials"
)

var (
	ErrWeakPassword = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	ErrEmailExists  = errors.New("email already registered")
	ErrInvalidEmail = errors.New("invalid email address")
	ErrNoSession    = errors.New("no active session")
)

type Options struct {
	Users      remote.UserStore
	Tokens     TokenStore
	SigningKey []byte
	TTL        time.Duration
	Logger     *applog.Logger
	Now        func() time.Time
	// Cost is the bcrypt cost for new hashes; 0 means bcrypt.DefaultCost.
	Cost int
}

type Provider struct {
	users  remote.UserStore
	tokens TokenStore
	key    []byte
	ttl    time.Duration
	now    func() time.Time
	cost   int
	logger *applog.Logger

	mu        sync.Mutex
	listeners map[int]func(remote.AuthEvent, *remote.AuthSession)
	nextID    int
}

var _ remote.AuthProvider = (*Provider)(nil)

type sessionClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

func NewProvider(opts Options) (*Provider, error) {
	if opts.Users == nil || opts.Tokens == nil {
		return nil, errors.New("auth: user store and token store are required")
	}
	if len(opts.SigningKey) == 0 {
		return nil, errors.New("auth: signing key is required")
	}
	p := &Provider{
		users:     opts.Users,
		tokens:    opts.Tokens,
		key:       opts.SigningKey,
		ttl:       opts.TTL,
		now:       opts.Now,
		cost:      opts.Cost,
		logger:    opts.Logger,
		listeners: map[int]func(remote.AuthEvent, *remote.AuthSession){},
	}
	if p.ttl <= 0 {
		p.ttl = DefaultSessionTTL
	}
	if p.now == nil {
		p.now = time.Now
	}
	if p.cost == 0 {
		p.cost = bcrypt.DefaultCost
	}
	if p.logger == nil {
		p.logger = applog.Discard()
	}
	p.logger = p.logger.WithComponent(applog.ComponentAuth)
	return p, nil
}

// Register creates a user with a hashed password.
func (p *Provider) Register(ctx context.Context, email, password string) (core.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !strings.Contains(email, "@") {
		return core.User{}, ErrInvalidEmail
	}
	if len(password) < MinPasswordLength {
		return core.User{}, ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		return core.User{}, fmt.Errorf("hash password: %w", err)
	}
	u, err := p.users.CreateUser(ctx, email, string(hash))
	if errors.Is(err, core.ErrConflict) {
		return core.User{}, ErrEmailExists
	}
	if err != nil {
		return core.User{}, fmt.Errorf("create user: %w", err)
	}
	p.logger.InfoContext(ctx, "User registered", applog.FieldUserID, u.ID)
	return u, nil
}

// GetSession returns the stored session, or nil when there is none or it has expired.
func (p *Provider) GetSession(ctx context.Context) (*remote.AuthSession, error) {
	token, err := p.tokens.Load(ctx)
	if err != nil {
		return nil, err
	}
	if token == "" {
		return nil, nil
	}
	sess, err := p.parse(token)
	if err != nil {
		p.logger.DebugContext(ctx, "Discarding stored session", applog.FieldError, err)
		return nil, nil
	}
	if _, err := p.users.GetUserByID(ctx, sess.UserID); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load session user: %w", err)
	}
	return sess, nil
}

func (p *Provider) SignInWithPassword(ctx context.Context, email, password string) (*remote.AuthSession, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := p.users.GetUserByEmail(ctx, email)
	if errors.Is(err, core.ErrNotFound) {
		return nil, &core.AuthenticationError{Message: msgInvalidCredentials}
	}
	if err != nil {
		return nil, &core.AuthenticationError{Message: err.Error(), Err: err}
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		p.logger.WarnContext(ctx, "Password rejected", applog.FieldUserID, u.ID)
		return nil, &core.AuthenticationError{Message: msgInvalidCredentials, Err: err}
	}
	sess, err := p.issue(ctx, u.ID, u.Email)
	if err != nil {
		return nil, &core.AuthenticationError{Message: err.Error(), Err: err}
	}
	p.logger.InfoContext(ctx, "Signed in", applog.FieldUserID, u.ID)
	p.emit(remote.AuthSignedIn, sess)
	return sess, nil
}

// RefreshSession reissues the current token with a fresh expiry.
func (p *Provider) RefreshSession(ctx context.Context) (*remote.AuthSession, error) {
	cur, err := p.GetSession(ctx)
	if err != nil {
		return nil, err
	}
	if cur == nil {
		return nil, ErrNoSession
	}
	sess, err := p.issue(ctx, cur.UserID, cur.Email)
	if err != nil {
		return nil, err
	}
	p.emit(remote.AuthTokenRefreshed, sess)
	return sess, nil
}

func (p *Provider) SignOut(ctx context.Context) error {
	if err := p.tokens.Clear(ctx); err != nil {
		return err
	}
	p.logger.InfoContext(ctx, "Signed out")
	p.emit(remote.AuthSignedOut, nil)
	return nil
}

func (p *Provider) OnAuthStateChange(fn func(remote.AuthEvent, *remote.AuthSession)) func() {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.listeners[id] = fn
	p.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.listeners, id)
			p.mu.Unlock()
		})
	}
}

// emit calls listeners synchronously outside the lock so they may unsubscribe.
func (p *Provider) emit(ev remote.AuthEvent, sess *remote.AuthSession) {
	p.mu.Lock()
	fns := make([]func(remote.AuthEvent, *remote.AuthSession), 0, len(p.listeners))
	for _, fn := range p.listeners {
		fns = append(fns, fn)
	}
	p.mu.Unlock()
	for _, fn := range fns {
		var cp *remote.AuthSession
		if sess != nil {
			s := *sess
			cp = &s
		}
		fn(ev, cp)
	}
}

func (p *Provider) issue(ctx context.Context, userID, email string) (*remote.AuthSession, error) {
	now := p.now()
	exp := now.Add(p.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})
	signed, err := token.SignedString(p.key)
	if err != nil {
		return nil, fmt.Errorf("sign session token: %w", err)
	}
	if err := p.tokens.Save(ctx, signed); err != nil {
		return nil, err
	}
	return &remote.AuthSession{
		UserID:      userID,
		Email:       email,
		AccessToken: signed,
		ExpiresAt:   time.Unix(exp.Unix(), 0),
	}, nil
}

func (p *Provider) parse(token string) (*remote.AuthSession, error) {
	var claims sessionClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return p.key, nil
	}, jwt.WithTimeFunc(p.now), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}
	return &remote.AuthSession{
		UserID:      claims.Subject,
		Email:       claims.Email,
		AccessToken: token,
		ExpiresAt:   claims.ExpiresAt.Time,
	}, nil
}
