// Package feed delivers row change notifications inside one process and
// decorates the store ports so every successful write emits one.
package feed

import (
	"context"
	"slices"
	"sync"

	"github.com/jerardpelaez/wedding-calendar/internal/core"
	applog "github.com/jerardpelaez/wedding-calendar/internal/log"
	"github.com/jerardpelaez/wedding-calendar/internal/metrics"
	"github.com/jerardpelaez/wedding-calendar/internal/remote"
)

const DefaultQueueSize = 16

// Broker is an in-process ChangeFeed. Each subscription has its own
// delivery goroutine and bounded queue; a change arriving at a full queue
// is dropped since the queued ones already trigger a refetch.
type Broker struct {
	mu        sync.RWMutex
	subs      map[*brokerSub]struct{}
	queueSize int
	metrics   *metrics.Metrics
	logger    *applog.Logger
}

var (
	_ remote.ChangeFeed = (*Broker)(nil)
	_ remote.Publisher  = (*Broker)(nil)
)

func NewBroker(queueSize int, m *metrics.Metrics, logger *applog.Logger) *Broker {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if logger == nil {
		logger = applog.Discard()
	}
	return &Broker{
		subs:      make(map[*brokerSub]struct{}),
		queueSize: queueSize,
		metrics:   m,
		logger:    logger.WithComponent(applog.ComponentFeed),
	}
}

type brokerSub struct {
	broker   *Broker
	coupleID string
	tables   []core.Table
	queue    chan remote.Change
	quit     chan struct{}
	once     sync.Once
}

func (s *brokerSub) matches(c remote.Change) bool {
	return s.coupleID == c.CoupleID && slices.Contains(s.tables, c.Table)
}

func (s *brokerSub) run(handler func(remote.Change)) {
	for {
		select {
		case <-s.quit:
			return
		case c := <-s.queue:
			select {
			case <-s.quit:
				return
			default:
			}
			handler(c)
		}
	}
}

// Close stops delivery; it is idempotent.
func (s *brokerSub) Close() error {
	s.once.Do(func() {
		s.broker.mu.Lock()
		delete(s.broker.subs, s)
		s.broker.mu.Unlock()
		close(s.quit)
	})
	return nil
}

func (b *Broker) Subscribe(_ context.Context, coupleID string, tables []core.Table, handler func(remote.Change)) (remote.Subscription, error) {
	sub := &brokerSub{
		broker:   b,
		coupleID: coupleID,
		tables:   slices.Clone(tables),
		queue:    make(chan remote.Change, b.queueSize),
		quit:     make(chan struct{}),
	}
	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()

	go sub.run(handler)
	return sub, nil
}

// Publish fans the change out to matching subscriptions without blocking.
func (b *Broker) Publish(_ context.Context, c remote.Change) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for sub := range b.subs {
		if !sub.matches(c) {
			continue
		}
		select {
		case sub.queue <- c:
			b.metrics.Notification(string(c.Table), "delivered")
		default:
			b.metrics.Notification(string(c.Table), "dropped")
			b.logger.Debug("Subscriber queue full, change dropped",
				applog.FieldTable, string(c.Table), applog.FieldCoupleID, c.CoupleID)
		}
	}
	return nil
}

// Subscribers returns the number of live subscriptions.
func (b *Broker) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close ends every subscription.
func (b *Broker) Close() error {
	b.mu.RLock()
	subs := make([]*brokerSub, 0, len(b.subs))
	for s := range b.subs {
		subs = append(subs, s)
	}
	b.mu.RUnlock()
	for _, s := range subs {
		s.Close()
	}
	return nil
}
