package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jerardpelaez/wedding-calendar/internal/core"
	"github.com/jerardpelaez/wedding-calendar/internal/remote"
)

var errBackend = errors.New("backend unavailable")

type fakeSession struct {
	mu sync.Mutex
	s  core.Session
}

func signedIn(couple, user string) *fakeSession {
	return &fakeSession{s: core.Authenticated(core.Membership{CoupleID: couple, UserID: user, DisplayName: "Anna"})}
}

func (f *fakeSession) State() core.Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.s
}

func (f *fakeSession) set(s core.Session) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.s = s
}

func ticking() func() time.Time {
	var mu sync.Mutex
	t := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Second)
		return t
	}
}

type flakyBudget struct {
	remote.BudgetStore
	failExpenses   atomic.Bool
	failCategories atomic.Bool
}

func (f *flakyBudget) ListCategories(ctx context.Context, coupleID string) ([]core.CategoryAllocation, error) {
	if f.failCategories.Load() {
		return nil, errBackend
	}
	return f.BudgetStore.ListCategories(ctx, coupleID)
}

func (f *flakyBudget) ListExpenses(ctx context.Context, coupleID string) ([]core.Expense, error) {
	if f.failExpenses.Load() {
		return nil, errBackend
	}
	return f.BudgetStore.ListExpenses(ctx, coupleID)
}

type flakyEvents struct {
	remote.EventStore
	failList atomic.Bool
}

func (f *flakyEvents) ListEvents(ctx context.Context, coupleID string, from, to core.Date) ([]core.Event, error) {
	if f.failList.Load() {
		return nil, errBackend
	}
	return f.EventStore.ListEvents(ctx, coupleID, from, to)
}

type flakyPhotos struct {
	remote.PhotoStore
	failInsert atomic.Bool
	failList   atomic.Bool
	failDates  atomic.Bool
}

func (f *flakyPhotos) ListPhotos(ctx context.Context, coupleID string, date core.Date) ([]core.Photo, error) {
	if f.failList.Load() {
		return nil, errBackend
	}
	return f.PhotoStore.ListPhotos(ctx, coupleID, date)
}

func (f *flakyPhotos) PhotoDates(ctx context.Context, coupleID string, from, to core.Date) ([]core.Date, error) {
	if f.failDates.Load() {
		return nil, errBackend
	}
	return f.PhotoStore.PhotoDates(ctx, coupleID, from, to)
}

func (f *flakyPhotos) InsertPhoto(ctx context.Context, coupleID, uploadedBy string, rec remote.PhotoRecord) (core.Photo, error) {
	if f.failInsert.Load() {
		return core.Photo{}, errBackend
	}
	return f.PhotoStore.InsertPhoto(ctx, coupleID, uploadedBy, rec)
}

// fakeObjects is an in-memory object store.
type fakeObjects struct {
	mu         sync.Mutex
	objects    map[string][]byte
	signs      int
	failRemove bool
	failSign   bool
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{objects: map[string][]byte{}}
}

func (f *fakeObjects) Upload(_ context.Context, path string, body io.Reader, _ string) error {
	b, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[path] = b
	return nil
}

func (f *fakeObjects) Remove(_ context.Context, paths ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failRemove {
		return errBackend
	}
	for _, p := range paths {
		delete(f.objects, p)
	}
	return nil
}

func (f *fakeObjects) CreateSignedURL(_ context.Context, path string, _ time.Duration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signs++
	if f.failSign {
		return "", errBackend
	}
	return "https://objects.test/sign/" + path, nil
}

func (f *fakeObjects) has(path string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[path]
	return ok
}

func (f *fakeObjects) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.objects)
}

func (f *fakeObjects) signCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.signs
}

func jpeg() io.Reader { return bytes.NewReader([]byte{0xff, 0xd8, 0xff}) }
