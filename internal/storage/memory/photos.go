package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/jerardpelaez/wedding-calendar/internal/core"
	"github.com/jerardpelaez/wedding-calendar/internal/remote"
)

func (s *Store) ListPhotos(_ context.Context, coupleID string, date core.Date) ([]core.Photo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []core.Photo{}
	for _, p := range s.photos {
		if p.CoupleID == coupleID && p.Date.Equal(date.Time) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return core.PhotoLess(out[i], out[j]) })
	return out, nil
}

func (s *Store) PhotoDates(_ context.Context, coupleID string, from, to core.Date) ([]core.Date, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := map[string]core.Date{}
	for _, p := range s.photos {
		if p.CoupleID != coupleID || p.Date.Before(from.Time) || p.Date.After(to.Time) {
			continue
		}
		seen[p.Date.String()] = p.Date
	}
	out := make([]core.Date, 0, len(seen))
	for _, d := range seen {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j].Time) })
	return out, nil
}

func (s *Store) InsertPhoto(_ context.Context, coupleID, uploadedBy string, rec remote.PhotoRecord) (core.Photo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.photos {
		if p.StoragePath == rec.StoragePath {
			return core.Photo{}, fmt.Errorf("insert photo %s: %w", rec.StoragePath, core.ErrConflict)
		}
	}
	p := core.Photo{
		ID: uuid.NewString(), CoupleID: coupleID, Date: rec.Date, StoragePath: rec.StoragePath,
		Caption: rec.Caption, UploadedBy: uploadedBy, CreatedAt: s.stamp(),
	}
	s.photos[p.ID] = p
	return p, nil
}

func (s *Store) DeletePhoto(_ context.Context, coupleID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.photos[id]
	if !ok || p.CoupleID != coupleID {
		return fmt.Errorf("delete photo %s: %w", id, core.ErrNotFound)
	}
	delete(s.photos, id)
	return nil
}
