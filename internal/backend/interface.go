package backend

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/jerardpelaez/wedding-calendar/internal/auth"
	"github.com/jerardpelaez/wedding-calendar/internal/cache"
	"github.com/jerardpelaez/wedding-calendar/internal/core"
	applog "github.com/jerardpelaez/wedding-calendar/internal/log"
	"github.com/jerardpelaez/wedding-calendar/internal/metrics"
	"github.com/jerardpelaez/wedding-calendar/internal/objectstore"
	"github.com/jerardpelaez/wedding-calendar/internal/remote"
	"github.com/jerardpelaez/wedding-calendar/internal/services"
)

// Store is everything a table backend provides: the planning ports plus
// the account tables used by auth and admin bootstrap.
type Store interface {
	remote.CoupleDirectory
	remote.BudgetStore
	remote.EventStore
	remote.PhotoStore
	remote.UserStore
	remote.Admin
}

// Feed carries change notifications both ways.
type Feed interface {
	remote.ChangeFeed
	remote.Publisher
	io.Closer
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// Backend bundles the remote collaborators of one process.
type Backend struct {
	Type BackendType

	// Store is the raw table backend. Writes through it publish nothing;
	// synchronizers use the notifying Budget, Events and Photos views.
	Store  Store
	Budget remote.BudgetStore
	Events remote.EventStore
	Photos remote.PhotoStore

	Feed     Feed
	Objects  *objectstore.Bucket
	Auth     *auth.Provider
	Metrics  *metrics.Metrics
	Caches   *cache.Manager
	URLCache *cache.LRUCache[string]
	Calendar core.Calendar

	signedURLTTL time.Duration
	logger       *applog.Logger
	ping         func(context.Context) error
	cleanup      []CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend creates a backend instance based on the provided config
	CreateBackend(ctx context.Context, config Config) (*Backend, error)
}

// Deps is the synchronizer wiring for a session source.
func (b *Backend) Deps(session services.SessionSource) services.Deps {
	return services.Deps{
		Session: session,
		Feed:    b.Feed,
		Logger:  b.logger,
		Metrics: b.Metrics,
	}
}

func (b *Backend) NewBudgetSynchronizer(session services.SessionSource) *services.BudgetSynchronizer {
	return services.NewBudgetSynchronizer(b.Budget, b.Deps(session))
}

func (b *Backend) NewEventsSynchronizer(session services.SessionSource) *services.EventsSynchronizer {
	return services.NewEventsSynchronizer(b.Events, b.Calendar, b.Deps(session))
}

// NewPhotosSynchronizer shares the backend's swept URL cache.
func (b *Backend) NewPhotosSynchronizer(session services.SessionSource) *services.PhotosSynchronizer {
	return services.NewPhotosSynchronizer(b.Photos, b.Objects, b.Deps(session), services.PhotoOptions{
		SignedURLTTL: b.signedURLTTL,
		URLCache:     b.URLCache,
	})
}

// Ready reports whether the table backend is reachable.
func (b *Backend) Ready(ctx context.Context) error {
	if b.ping == nil {
		return nil
	}
	return b.ping(ctx)
}

// Close releases resources in reverse order of acquisition.
func (b *Backend) Close() error {
	var errs []error
	for i := len(b.cleanup) - 1; i >= 0; i-- {
		if err := b.cleanup[i](); err != nil {
			errs = append(errs, err)
		}
	}
	b.cleanup = nil
	return errors.Join(errs...)
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
	MemoryBackend   BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, PostgresBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
