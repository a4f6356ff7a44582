package backend

import (
	"context"
	"fmt"

	"github.com/jerardpelaez/wedding-calendar/internal/amqp"
	"github.com/jerardpelaez/wedding-calendar/internal/auth"
	"github.com/jerardpelaez/wedding-calendar/internal/cache"
	"github.com/jerardpelaez/wedding-calendar/internal/feed"
	applog "github.com/jerardpelaez/wedding-calendar/internal/log"
	"github.com/jerardpelaez/wedding-calendar/internal/metrics"
	"github.com/jerardpelaez/wedding-calendar/internal/objectstore"
	"github.com/jerardpelaez/wedding-calendar/internal/services"
	"github.com/jerardpelaez/wedding-calendar/internal/storage"
	"github.com/jerardpelaez/wedding-calendar/internal/storage/memory"
)

const urlCacheSize = 1024

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *applog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *applog.Logger) Factory {
	if logger == nil {
		logger = applog.Discard()
	}
	return &DefaultFactory{
		logger: logger.WithComponent(applog.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend. On error every resource
// acquired so far is released.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (_ *Backend, err error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	b := &Backend{
		Type:         config.Type,
		Metrics:      metrics.New(config.Registry),
		Calendar:     config.Calendar,
		signedURLTTL: config.SignedURLTTL,
		logger:       f.logger,
	}
	defer func() {
		if err != nil {
			_ = b.Close()
		}
	}()

	if err := f.openStore(ctx, config, b); err != nil {
		return nil, err
	}
	if err := f.openFeed(ctx, config, b); err != nil {
		return nil, err
	}

	notifier := feed.NewNotifier(b.Feed, f.logger)
	b.Budget = notifier.Budget(b.Store)
	b.Events = notifier.Events(b.Store)
	b.Photos = notifier.Photos(b.Store)

	b.Objects, err = objectstore.New(objectstore.Config{
		Dir:        config.ObjectStoreDir,
		Bucket:     config.ObjectStoreBucket,
		BaseURL:    config.PublicBaseURL,
		SigningKey: config.SigningKey,
	}, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize object store: %w", err)
	}

	var tokens auth.TokenStore = auth.NewMemoryTokenStore()
	if config.SessionFile != "" {
		tokens = auth.NewFileTokenStore(config.SessionFile)
	}
	b.Auth, err = auth.NewProvider(auth.Options{
		Users:      b.Store,
		Tokens:     tokens,
		SigningKey: config.SigningKey,
		TTL:        config.SessionTTL,
		Logger:     f.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize auth provider: %w", err)
	}

	ttl := config.SignedURLTTL
	if ttl <= 0 {
		ttl = services.DefaultSignedURLTTL
	}
	b.URLCache = cache.NewLRUCache[string](urlCacheSize, ttl/2)
	b.Caches = cache.NewManager(f.logger)
	b.Caches.Register(b.URLCache)
	if config.CacheSweepInterval > 0 {
		b.Caches.StartCleanup(config.CacheSweepInterval)
		b.cleanup = append(b.cleanup, func() error {
			b.Caches.Stop()
			return nil
		})
	}

	f.logger.InfoContext(ctx, "Initialized backend",
		"backend", config.Type.String(),
		"amqp_enabled", config.AMQPURL != "",
		"bucket", config.ObjectStoreBucket)

	return b, nil
}

func (f *DefaultFactory) openStore(ctx context.Context, config Config, b *Backend) error {
	switch config.Type {
	case SQLiteBackend:
		return f.openSQL(ctx, b, storage.DialectSQLite, config.SQLiteDBPath)
	case PostgresBackend:
		return f.openSQL(ctx, b, storage.DialectPostgres, config.DatabaseURL)
	case MemoryBackend:
		b.Store = memory.New()
		f.logger.InfoContext(ctx, "Initialized memory backend")
		return nil
	default:
		return fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) openSQL(ctx context.Context, b *Backend, dialect storage.Dialect, dsn string) error {
	repo, err := storage.Open(ctx, storage.Options{Dialect: dialect, DSN: dsn, Logger: f.logger})
	if err != nil {
		return fmt.Errorf("failed to initialize %s repository: %w", dialect, err)
	}
	b.Store = repo
	b.ping = repo.Ping
	b.cleanup = append(b.cleanup, repo.Close)
	return nil
}

func (f *DefaultFactory) openFeed(ctx context.Context, config Config, b *Backend) error {
	if config.AMQPURL == "" {
		broker := feed.NewBroker(feed.DefaultQueueSize, b.Metrics, f.logger)
		b.Feed = broker
		b.cleanup = append(b.cleanup, broker.Close)
		return nil
	}

	client, err := amqp.Dial(ctx, config.AMQPURL, config.AMQPExchange, f.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize AMQP client: %w", err)
	}
	f.logger.InfoContext(ctx, "Initialized AMQP client", "exchange", config.AMQPExchange)
	b.Feed = client
	b.cleanup = append(b.cleanup, client.Close)
	return nil
}
