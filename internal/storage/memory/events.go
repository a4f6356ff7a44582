package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/jerardpelaez/wedding-calendar/internal/core"
)

func (s *Store) ListEvents(_ context.Context, coupleID string, from, to core.Date) ([]core.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []core.Event{}
	for _, e := range s.events {
		if e.CoupleID != coupleID || e.Date.Before(from.Time) || e.Date.After(to.Time) {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool { return core.EventLess(out[i], out[j]) })
	return out, nil
}

func (s *Store) InsertEvents(_ context.Context, coupleID, createdBy string, events []core.NewEvent) ([]core.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.stamp()
	out := make([]core.Event, 0, len(events))
	for _, ne := range events {
		e := core.Event{
			ID: uuid.NewString(), CoupleID: coupleID, Date: ne.Date, Title: ne.Title,
			Description: ne.Description, TimeStart: ne.TimeStart, TimeEnd: ne.TimeEnd,
			Category: ne.Category, CreatedBy: createdBy, CreatedAt: now, UpdatedAt: now,
		}
		out = append(out, e)
	}
	for _, e := range out {
		s.events[e.ID] = e
	}
	return out, nil
}

func (s *Store) UpdateEvent(_ context.Context, coupleID, id string, p core.EventPatch) (core.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok || e.CoupleID != coupleID {
		return core.Event{}, fmt.Errorf("update event %s: %w", id, core.ErrNotFound)
	}
	e = p.Apply(e)
	e.UpdatedAt = s.stamp()
	s.events[id] = e
	return e, nil
}

func (s *Store) DeleteEvent(_ context.Context, coupleID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok || e.CoupleID != coupleID {
		return fmt.Errorf("delete event %s: %w", id, core.ErrNotFound)
	}
	delete(s.events, id)
	return nil
}
