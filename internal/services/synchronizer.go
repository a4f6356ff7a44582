// Package services holds the domain synchronizers. Each keeps a local
// mirror of one couple's records, applies its own writes to it, and can
// refetch on realtime change notifications.
package services

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/jerardpelaez/wedding-calendar/internal/core"
	applog "github.com/jerardpelaez/wedding-calendar/internal/log"
	"github.com/jerardpelaez/wedding-calendar/internal/metrics"
	"github.com/jerardpelaez/wedding-calendar/internal/remote"
)

// SessionSource reports the current session; *session.Resolver satisfies it.
type SessionSource interface {
	State() core.Session
}

// Deps are the collaborators shared by every synchronizer.
type Deps struct {
	Session SessionSource
	// Feed may be nil, in which case Subscribe is a no-op.
	Feed    remote.ChangeFeed
	Logger  *applog.Logger
	Metrics *metrics.Metrics
	Tracer  metrics.Tracer
}

// Status is the read-path state: whether a fetch is running and the
// message of the last failed one.
type Status struct {
	Loading bool
	Err     string
}

type base struct {
	component string
	session   SessionSource
	logger    *applog.Logger
	metrics   *metrics.Metrics
	tracer    metrics.Tracer
	channel   *channel

	statusMu sync.RWMutex
	status   Status
}

func newBase(component string, d Deps, tables ...core.Table) *base {
	logger := d.Logger
	if logger == nil {
		logger = applog.Discard()
	}
	logger = logger.WithComponent(component)
	b := &base{
		component: component,
		session:   d.Session,
		logger:    logger,
		metrics:   d.Metrics,
		tracer:    d.Tracer,
	}
	if d.Feed != nil {
		b.channel = &channel{feed: d.Feed, tables: tables, logger: logger, metrics: d.Metrics}
	}
	return b
}

// couple returns the resolved tenant, "" when there is none.
func (b *base) couple() string {
	s := b.session.State()
	if !s.IsAuthenticated {
		return ""
	}
	return s.CoupleID
}

// writer returns the tenant and user a write is attributed to.
func (b *base) writer() (coupleID, userID string, err error) {
	s := b.session.State()
	if !s.IsAuthenticated || s.CoupleID == "" || s.UserID == "" {
		return "", "", core.ErrNotAuthenticated
	}
	return s.CoupleID, s.UserID, nil
}

// Status returns the read-path state.
func (b *base) Status() Status {
	b.statusMu.RLock()
	defer b.statusMu.RUnlock()
	return b.status
}

func (b *base) beginRead() {
	b.statusMu.Lock()
	b.status = Status{Loading: true}
	b.statusMu.Unlock()
}

// endRead records a read outcome; failures are logged, never returned.
func (b *base) endRead(ctx context.Context, op string, err error) {
	b.statusMu.Lock()
	b.status.Loading = false
	if err != nil {
		b.status.Err = err.Error()
	}
	b.statusMu.Unlock()
	if err != nil {
		b.logger.WarnContext(ctx, "Fetch failed", applog.FieldOperation, op, applog.FieldError, err)
	}
}

// observe runs one remote operation inside a span and records its metrics.
func (b *base) observe(ctx context.Context, op string, fn func(context.Context) error) error {
	start := time.Now()
	ctx, end := b.tracer.Start(ctx, b.component+"."+op,
		attribute.String("component", b.component),
		attribute.String("operation", op))
	err := fn(ctx)
	end(err)
	b.metrics.ObserveRemote(b.component, op, start, err)
	return err
}

// Subscribe opens the realtime channel for the current couple and calls
// onChange for every change. Without a couple it does nothing. A second
// call replaces the previous channel.
func (b *base) Subscribe(ctx context.Context, onChange func()) error {
	couple := b.couple()
	if couple == "" || b.channel == nil {
		return nil
	}
	return b.observe(ctx, applog.OpSubscribe, func(ctx context.Context) error {
		return b.channel.open(ctx, couple, onChange)
	})
}

// Unsubscribe releases the realtime channel; calling it again is a no-op.
func (b *base) Unsubscribe() error {
	if b.channel == nil {
		return nil
	}
	return b.channel.close()
}

// Subscribed reports whether a realtime channel is open.
func (b *base) Subscribed() bool {
	return b.channel != nil && b.channel.active()
}
