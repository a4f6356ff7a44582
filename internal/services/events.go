package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/jerardpelaez/wedding-calendar/internal/core"
	applog "github.com/jerardpelaez/wedding-calendar/internal/log"
	"github.com/jerardpelaez/wedding-calendar/internal/remote"
)

// dateRange is an inclusive span of dates.
type dateRange struct {
	from, to core.Date
}

func (r dateRange) contains(d core.Date) bool {
	return !d.Before(r.from.Time) && !d.After(r.to.Time)
}

// EventsSynchronizer mirrors the events of the last fetched date range.
type EventsSynchronizer struct {
	*base
	store    remote.EventStore
	calendar core.Calendar
	events   *Mirror[core.Event]

	scopeMu sync.RWMutex
	scope   *dateRange
}

func NewEventsSynchronizer(store remote.EventStore, cal core.Calendar, d Deps) *EventsSynchronizer {
	return &EventsSynchronizer{
		base:     newBase(applog.ComponentEvents, d, core.TableEvents),
		store:    store,
		calendar: cal,
		events:   NewMirror(func(e core.Event) string { return e.ID }, core.EventLess),
	}
}

func (s *EventsSynchronizer) FetchByDate(ctx context.Context, date core.Date) []core.Event {
	return s.fetch(ctx, dateRange{from: date, to: date})
}

// FetchMonth fetches one month; year <= 0 means the planning year.
func (s *EventsSynchronizer) FetchMonth(ctx context.Context, month, year int) []core.Event {
	from, to := s.calendar.MonthRange(month, year)
	return s.fetch(ctx, dateRange{from: from, to: to})
}

func (s *EventsSynchronizer) FetchYear(ctx context.Context, year int) []core.Event {
	from, _ := s.calendar.MonthRange(1, year)
	_, to := s.calendar.MonthRange(12, year)
	return s.fetch(ctx, dateRange{from: from, to: to})
}

func (s *EventsSynchronizer) fetch(ctx context.Context, r dateRange) []core.Event {
	couple := s.couple()
	if couple == "" {
		return nil
	}
	s.beginRead()
	var events []core.Event
	err := s.observe(ctx, applog.OpFetch, func(ctx context.Context) error {
		var err error
		events, err = s.store.ListEvents(ctx, couple, r.from, r.to)
		return err
	})
	if err != nil {
		s.endRead(ctx, applog.OpFetch, fmt.Errorf("fetch events %s..%s: %w", r.from, r.to, err))
		return s.events.Items(couple)
	}
	s.events.Replace(couple, events)
	s.scopeMu.Lock()
	s.scope = &r
	s.scopeMu.Unlock()
	s.endRead(ctx, applog.OpFetch, nil)
	return s.events.Items(couple)
}

func (s *EventsSynchronizer) Events() []core.Event {
	return s.events.Items(s.couple())
}

// EventsOn returns the mirrored events of one date.
func (s *EventsSynchronizer) EventsOn(date core.Date) []core.Event {
	var out []core.Event
	for _, e := range s.Events() {
		if e.Date.Equal(date.Time) {
			out = append(out, e)
		}
	}
	return out
}

func (s *EventsSynchronizer) inScope(d core.Date) bool {
	s.scopeMu.RLock()
	defer s.scopeMu.RUnlock()
	return s.scope != nil && s.scope.contains(d)
}

func (s *EventsSynchronizer) Create(ctx context.Context, e core.NewEvent) (core.Event, error) {
	created, err := s.CreateBulk(ctx, []core.NewEvent{e})
	if err != nil {
		return core.Event{}, err
	}
	return created[0], nil
}

// CreateBulk inserts the events in one request. Only those dated within the
// fetched range enter the mirror.
func (s *EventsSynchronizer) CreateBulk(ctx context.Context, events []core.NewEvent) ([]core.Event, error) {
	couple, user, err := s.writer()
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, nil
	}
	for i, e := range events {
		if err := e.Validate(); err != nil {
			return nil, fmt.Errorf("event %d: %w", i, err)
		}
	}
	var created []core.Event
	err = s.observe(ctx, applog.OpCreate, func(ctx context.Context) error {
		created, err = s.store.InsertEvents(ctx, couple, user, events)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create events: %w", err)
	}
	for _, e := range created {
		if s.inScope(e.Date) {
			s.events.Insert(couple, e)
		}
	}
	s.logger.InfoContext(ctx, "Events created", applog.FieldCoupleID, couple, applog.FieldCount, len(created))
	return created, nil
}

func (s *EventsSynchronizer) Update(ctx context.Context, id string, p core.EventPatch) (core.Event, error) {
	couple, _, err := s.writer()
	if err != nil {
		return core.Event{}, err
	}
	if err := p.Validate(); err != nil {
		return core.Event{}, err
	}
	var updated core.Event
	err = s.observe(ctx, applog.OpUpdate, func(ctx context.Context) error {
		updated, err = s.store.UpdateEvent(ctx, couple, id, p)
		return err
	})
	if err != nil {
		return core.Event{}, fmt.Errorf("update event %s: %w", id, err)
	}
	s.events.Update(couple, updated)
	return updated, nil
}

func (s *EventsSynchronizer) Remove(ctx context.Context, id string) error {
	couple, _, err := s.writer()
	if err != nil {
		return err
	}
	err = s.observe(ctx, applog.OpDelete, func(ctx context.Context) error {
		return s.store.DeleteEvent(ctx, couple, id)
	})
	if err != nil {
		return fmt.Errorf("remove event %s: %w", id, err)
	}
	s.events.Remove(couple, id)
	return nil
}
