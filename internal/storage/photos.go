package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jerardpelaez/wedding-calendar/internal/core"
	"github.com/jerardpelaez/wedding-calendar/internal/remote"
)

const photoColumns = "id, couple_id, date, storage_path, caption, uploaded_by, created_at"

func scanPhoto(row rowScanner) (core.Photo, error) {
	var p core.Photo
	err := row.Scan(&p.ID, &p.CoupleID, &p.Date, &p.StoragePath, &p.Caption, &p.UploadedBy, timeText{&p.CreatedAt})
	return p, err
}

func (r *Repository) ListPhotos(ctx context.Context, coupleID string, date core.Date) ([]core.Photo, error) {
	rows, err := r.db.QueryContext(ctx, r.q("SELECT "+photoColumns+
		" FROM photos WHERE couple_id = ? AND date = ? ORDER BY created_at DESC, id DESC"), coupleID, date.String())
	if err != nil {
		return nil, fmt.Errorf("list photos: %w", err)
	}
	defer rows.Close()

	out := []core.Photo{}
	for rows.Next() {
		p, err := scanPhoto(rows)
		if err != nil {
			return nil, fmt.Errorf("scan photo: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repository) PhotoDates(ctx context.Context, coupleID string, from, to core.Date) ([]core.Date, error) {
	rows, err := r.db.QueryContext(ctx, r.q(`SELECT DISTINCT date FROM photos
		WHERE couple_id = ? AND date >= ? AND date <= ? ORDER BY date ASC`), coupleID, from.String(), to.String())
	if err != nil {
		return nil, fmt.Errorf("list photo dates: %w", err)
	}
	defer rows.Close()

	out := []core.Date{}
	for rows.Next() {
		var d core.Date
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scan photo date: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *Repository) InsertPhoto(ctx context.Context, coupleID, uploadedBy string, rec remote.PhotoRecord) (core.Photo, error) {
	row := r.db.QueryRowContext(ctx, r.q(`INSERT INTO photos (id, couple_id, date, storage_path, caption, uploaded_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING `+photoColumns),
		uuid.NewString(), coupleID, rec.Date.String(), rec.StoragePath, rec.Caption, uploadedBy, r.timestamp())
	p, err := scanPhoto(row)
	if err != nil {
		return core.Photo{}, fmt.Errorf("insert photo: %w", mapError(err))
	}
	return p, nil
}

func (r *Repository) DeletePhoto(ctx context.Context, coupleID, id string) error {
	return r.deleteRow(ctx, "photos", coupleID, id)
}
