// Package memory keeps every planning table in process memory. It serves
// the memory backend and the tests of the layers above storage.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jerardpelaez/wedding-calendar/internal/core"
	"github.com/jerardpelaez/wedding-calendar/internal/remote"
)

type Store struct {
	mu          sync.Mutex
	now         func() time.Time
	users       map[string]core.User
	couples     map[string]core.Couple
	memberships map[string]core.Membership // by user id
	budgets     map[string]core.Budget     // by couple id
	categories  map[string]core.CategoryAllocation
	expenses    map[string]core.Expense
	events      map[string]core.Event
	photos      map[string]core.Photo
}

var (
	_ remote.CoupleDirectory = (*Store)(nil)
	_ remote.BudgetStore     = (*Store)(nil)
	_ remote.EventStore      = (*Store)(nil)
	_ remote.PhotoStore      = (*Store)(nil)
	_ remote.UserStore       = (*Store)(nil)
	_ remote.Admin           = (*Store)(nil)
)

func New() *Store {
	return &Store{
		now:         time.Now,
		users:       map[string]core.User{},
		couples:     map[string]core.Couple{},
		memberships: map[string]core.Membership{},
		budgets:     map[string]core.Budget{},
		categories:  map[string]core.CategoryAllocation{},
		expenses:    map[string]core.Expense{},
		events:      map[string]core.Event{},
		photos:      map[string]core.Photo{},
	}
}

// WithClock replaces the timestamp source.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
	return s
}

func (s *Store) stamp() time.Time { return s.now().UTC() }

func (s *Store) MembershipForUser(_ context.Context, userID string) (core.Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.memberships[userID]
	if !ok {
		return core.Membership{}, fmt.Errorf("membership for user %s: %w", userID, core.ErrNotFound)
	}
	return m, nil
}

func (s *Store) CreateUser(_ context.Context, email, passwordHash string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range s.users {
		if u.Email == email {
			return core.User{}, fmt.Errorf("create user %s: %w", email, core.ErrConflict)
		}
	}
	u := core.User{ID: uuid.NewString(), Email: email, PasswordHash: passwordHash, CreatedAt: s.stamp()}
	s.users[u.ID] = u
	return u, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return core.User{}, fmt.Errorf("get user: %w", core.ErrNotFound)
}

func (s *Store) GetUserByID(_ context.Context, id string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return core.User{}, fmt.Errorf("get user: %w", core.ErrNotFound)
	}
	return u, nil
}

func (s *Store) CreateCouple(_ context.Context, name string) (core.Couple, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := core.Couple{ID: uuid.NewString(), Name: strings.TrimSpace(name), CreatedAt: s.stamp()}
	s.couples[c.ID] = c
	return c, nil
}

func (s *Store) ListCouples(_ context.Context) ([]core.Couple, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Couple, 0, len(s.couples))
	for _, c := range s.couples {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) AddMember(_ context.Context, coupleID, userID, displayName string) (core.Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.couples[coupleID]; !ok {
		return core.Membership{}, fmt.Errorf("add member: couple %s: %w", coupleID, core.ErrNotFound)
	}
	if _, ok := s.users[userID]; !ok {
		return core.Membership{}, fmt.Errorf("add member: user %s: %w", userID, core.ErrNotFound)
	}
	if _, ok := s.memberships[userID]; ok {
		return core.Membership{}, fmt.Errorf("add member %s: %w", userID, core.ErrConflict)
	}
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return core.Membership{}, fmt.Errorf("add member: empty display name")
	}
	m := core.Membership{CoupleID: coupleID, UserID: userID, DisplayName: displayName}
	s.memberships[userID] = m
	return m, nil
}
