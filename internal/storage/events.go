package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/jerardpelaez/wedding-calendar/internal/core"
)

const eventColumns = "id, couple_id, date, title, description, time_start, time_end, category, created_by, created_at, updated_at"

func scanEvent(row rowScanner) (core.Event, error) {
	var (
		e                  core.Event
		timeStart, timeEnd sql.NullString
		category           string
	)
	err := row.Scan(&e.ID, &e.CoupleID, &e.Date, &e.Title, &e.Description, &timeStart, &timeEnd,
		&category, &e.CreatedBy, timeText{&e.CreatedAt}, timeText{&e.UpdatedAt})
	e.TimeStart = timeStart.String
	e.TimeEnd = timeEnd.String
	e.Category = core.EventCategory(category)
	return e, err
}

func (r *Repository) ListEvents(ctx context.Context, coupleID string, from, to core.Date) ([]core.Event, error) {
	rows, err := r.db.QueryContext(ctx, r.q("SELECT "+eventColumns+` FROM events
		WHERE couple_id = ? AND date >= ? AND date <= ?
		ORDER BY date ASC, time_start IS NULL, time_start ASC, created_at ASC`),
		coupleID, from.String(), to.String())
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	out := []core.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// InsertEvents stores all events in one transaction.
func (r *Repository) InsertEvents(ctx context.Context, coupleID, createdBy string, events []core.NewEvent) ([]core.Event, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin insert events: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, r.q(`INSERT INTO events
		(id, couple_id, date, title, description, time_start, time_end, category, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING `+eventColumns))
	if err != nil {
		return nil, fmt.Errorf("prepare insert events: %w", err)
	}
	defer stmt.Close()

	now := r.timestamp()
	out := make([]core.Event, 0, len(events))
	for _, ne := range events {
		e, err := scanEvent(stmt.QueryRowContext(ctx,
			uuid.NewString(), coupleID, ne.Date.String(), ne.Title, ne.Description,
			nullable(ne.TimeStart), nullable(ne.TimeEnd), string(ne.Category), createdBy, now, now))
		if err != nil {
			return nil, fmt.Errorf("insert event %q: %w", ne.Title, mapError(err))
		}
		out = append(out, e)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit insert events: %w", err)
	}
	return out, nil
}

func (r *Repository) UpdateEvent(ctx context.Context, coupleID, id string, p core.EventPatch) (core.Event, error) {
	var (
		sets []string
		args []any
	)
	if p.Title != nil {
		sets, args = append(sets, "title = ?"), append(args, *p.Title)
	}
	if p.Description != nil {
		sets, args = append(sets, "description = ?"), append(args, *p.Description)
	}
	if p.TimeStart != nil {
		sets, args = append(sets, "time_start = ?"), append(args, nullable(*p.TimeStart))
	}
	if p.TimeEnd != nil {
		sets, args = append(sets, "time_end = ?"), append(args, nullable(*p.TimeEnd))
	}
	if p.Category != nil {
		sets, args = append(sets, "category = ?"), append(args, string(*p.Category))
	}
	sets, args = append(sets, "updated_at = ?"), append(args, r.timestamp())
	args = append(args, id, coupleID)

	row := r.db.QueryRowContext(ctx, r.q("UPDATE events SET "+strings.Join(sets, ", ")+
		" WHERE id = ? AND couple_id = ? RETURNING "+eventColumns), args...)
	e, err := scanEvent(row)
	if err != nil {
		return core.Event{}, fmt.Errorf("update event %s: %w", id, mapError(err))
	}
	return e, nil
}

func (r *Repository) DeleteEvent(ctx context.Context, coupleID, id string) error {
	return r.deleteRow(ctx, "events", coupleID, id)
}
