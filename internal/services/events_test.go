package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jerardpelaez/wedding-calendar/internal/core"
	"github.com/jerardpelaez/wedding-calendar/internal/storage/memory"
)

func titles(events []core.Event) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.Title)
	}
	return out
}

func newEvents(t *testing.T) (*EventsSynchronizer, *flakyEvents) {
	t.Helper()
	store := &flakyEvents{EventStore: memory.New().WithClock(ticking())}
	cal := core.Calendar{Year: 2026}
	return NewEventsSynchronizer(store, cal, Deps{Session: signedIn("c1", "u1")}), store
}

func TestEventsFetchMonthOrdering(t *testing.T) {
	ctx := context.Background()
	s, _ := newEvents(t)

	_, err := s.CreateBulk(ctx, []core.NewEvent{
		{Date: core.MustDate("2026-06-20"), Title: "Dinner", Category: core.EventCelebration},
		{Date: core.MustDate("2026-06-20"), Title: "Ceremony", TimeStart: "16:00", Category: core.EventCelebration},
		{Date: core.MustDate("2026-06-20"), Title: "Hair", TimeStart: "09:30", Category: core.EventAppointment},
		{Date: core.MustDate("2026-06-01"), Title: "RSVP", Category: core.EventDeadline},
		{Date: core.MustDate("2026-07-01"), Title: "Honeymoon", Category: core.EventTravel},
	})
	require.NoError(t, err)

	got := s.FetchMonth(ctx, 6, 0)
	assert.Equal(t, []string{"RSVP", "Hair", "Ceremony", "Dinner"}, titles(got))
	assert.Len(t, s.FetchYear(ctx, 2026), 5)
	assert.Equal(t, []string{"Honeymoon"}, titles(s.FetchByDate(ctx, core.MustDate("2026-07-01"))))
}

func TestEventsCreateRespectsScope(t *testing.T) {
	ctx := context.Background()
	s, _ := newEvents(t)
	s.FetchMonth(ctx, 6, 2026)

	inside, err := s.Create(ctx, core.NewEvent{Date: core.MustDate("2026-06-20"), Title: "Ceremony", TimeStart: "16:00", Category: core.EventCelebration})
	require.NoError(t, err)
	_, err = s.Create(ctx, core.NewEvent{Date: core.MustDate("2026-06-02"), Title: "Cake tasting", Category: core.EventAppointment})
	require.NoError(t, err)
	_, err = s.Create(ctx, core.NewEvent{Date: core.MustDate("2026-08-01"), Title: "Thank-you cards", Category: core.EventPersonal})
	require.NoError(t, err)

	assert.Equal(t, []string{"Cake tasting", "Ceremony"}, titles(s.Events()), "inserted by declared order, out-of-range dropped")
	assert.Len(t, s.EventsOn(core.MustDate("2026-06-20")), 1)

	title := "Civil ceremony"
	updated, err := s.Update(ctx, inside.ID, core.EventPatch{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, title, updated.Title)
	assert.Equal(t, []string{"Cake tasting", "Civil ceremony"}, titles(s.Events()))

	require.NoError(t, s.Remove(ctx, inside.ID))
	assert.Equal(t, []string{"Cake tasting"}, titles(s.Events()))
	assert.ErrorIs(t, s.Remove(ctx, inside.ID), core.ErrNotFound)
}

func TestEventsFetchFailureKeepsMirror(t *testing.T) {
	ctx := context.Background()
	s, store := newEvents(t)
	_, err := s.Create(ctx, core.NewEvent{Date: core.MustDate("2026-06-20"), Title: "Ceremony", Category: core.EventCelebration})
	require.NoError(t, err)
	require.Len(t, s.FetchMonth(ctx, 6, 2026), 1)

	store.failList.Store(true)
	got := s.FetchMonth(ctx, 7, 2026)
	assert.Len(t, got, 1, "previous mirror is kept")
	assert.Contains(t, s.Status().Err, errBackend.Error())
}

func TestEventsValidationAndTenant(t *testing.T) {
	ctx := context.Background()
	s, _ := newEvents(t)

	_, err := s.Create(ctx, core.NewEvent{Date: core.MustDate("2026-06-20"), Title: " ", Category: core.EventCelebration})
	assert.ErrorIs(t, err, core.ErrEmptyTitle)
	_, err = s.Create(ctx, core.NewEvent{Date: core.MustDate("2026-06-20"), Title: "x", TimeStart: "25:00", Category: core.EventCelebration})
	assert.ErrorIs(t, err, core.ErrInvalidTime)

	anon := NewEventsSynchronizer(nil, core.Calendar{}, Deps{Session: &fakeSession{}})
	assert.Empty(t, anon.FetchMonth(ctx, 6, 2026))
	_, err = anon.Create(ctx, core.NewEvent{Date: core.MustDate("2026-06-20"), Title: "x", Category: core.EventCelebration})
	assert.ErrorIs(t, err, core.ErrNotAuthenticated)
	_, err = anon.Update(ctx, "e1", core.EventPatch{})
	assert.ErrorIs(t, err, core.ErrNotAuthenticated)
	assert.ErrorIs(t, anon.Remove(ctx, "e1"), core.ErrNotAuthenticated)
}
