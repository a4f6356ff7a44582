package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jerardpelaez/wedding-calendar/internal/cache"
	"github.com/jerardpelaez/wedding-calendar/internal/core"
	applog "github.com/jerardpelaez/wedding-calendar/internal/log"
	"github.com/jerardpelaez/wedding-calendar/internal/remote"
)

const (
	DefaultSignedURLTTL = time.Hour
	signConcurrency     = 8
	urlCacheSize        = 512
)

var (
	ErrInvalidFilename = errors.New("invalid photo filename")
	// ErrForeignObject is a storage path outside the couple's prefix.
	ErrForeignObject = errors.New("object belongs to another couple")
)

// PhotoUpload is one file to add to a date's gallery.
type PhotoUpload struct {
	Date        core.Date
	Filename    string
	ContentType string
	Caption     string
	Body        io.Reader
}

type PhotoOptions struct {
	// SignedURLTTL is the validity of retrieval URLs; 0 means DefaultSignedURLTTL.
	SignedURLTTL time.Duration
	// URLCache holds signed URLs by storage path. Entries must expire before
	// the URLs do; nil gets an LRU keeping them for half their validity.
	URLCache cache.Cache[string]
	Now      func() time.Time
}

// PhotosSynchronizer mirrors the photos of one date and keeps their
// objects in storage in step with the rows.
type PhotosSynchronizer struct {
	*base
	store   remote.PhotoStore
	objects remote.ObjectStore
	photos  *Mirror[core.Photo]
	urls    cache.Cache[string]
	ttl     time.Duration
	now     func() time.Time

	uploading atomic.Int32

	scopeMu sync.RWMutex
	scope   *core.Date
}

func NewPhotosSynchronizer(store remote.PhotoStore, objects remote.ObjectStore, d Deps, opts PhotoOptions) *PhotosSynchronizer {
	if opts.SignedURLTTL <= 0 {
		opts.SignedURLTTL = DefaultSignedURLTTL
	}
	if opts.URLCache == nil {
		opts.URLCache = cache.NewLRUCache[string](urlCacheSize, opts.SignedURLTTL/2)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &PhotosSynchronizer{
		base:    newBase(applog.ComponentPhotos, d, core.TablePhotos),
		store:   store,
		objects: objects,
		photos:  NewMirror(func(p core.Photo) string { return p.ID }, core.PhotoLess),
		urls:    opts.URLCache,
		ttl:     opts.SignedURLTTL,
		now:     opts.Now,
	}
}

// FetchByDate replaces the mirror with the photos of date, each carrying a
// signed URL. A photo whose URL cannot be signed keeps an empty URL.
func (s *PhotosSynchronizer) FetchByDate(ctx context.Context, date core.Date) []core.Photo {
	couple := s.couple()
	if couple == "" {
		return nil
	}
	s.beginRead()
	var photos []core.Photo
	err := s.observe(ctx, applog.OpFetch, func(ctx context.Context) error {
		var err error
		photos, err = s.store.ListPhotos(ctx, couple, date)
		return err
	})
	if err != nil {
		s.endRead(ctx, applog.OpFetch, fmt.Errorf("fetch photos %s: %w", date, err))
		return s.photos.Items(couple)
	}
	s.signAll(ctx, photos)
	s.photos.Replace(couple, photos)
	s.scopeMu.Lock()
	s.scope = &date
	s.scopeMu.Unlock()
	s.endRead(ctx, applog.OpFetch, nil)
	return s.photos.Items(couple)
}

func (s *PhotosSynchronizer) signAll(ctx context.Context, photos []core.Photo) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(signConcurrency)
	for i := range photos {
		g.Go(func() error {
			photos[i].URL = s.signedURL(ctx, photos[i].StoragePath)
			return nil
		})
	}
	_ = g.Wait()
}

// signedURL returns a cached URL or signs a new one; "" on failure.
func (s *PhotosSynchronizer) signedURL(ctx context.Context, storagePath string) string {
	if u, ok := s.urls.Get(storagePath); ok {
		return u
	}
	var u string
	err := s.observe(ctx, applog.OpSign, func(ctx context.Context) error {
		var err error
		u, err = s.objects.CreateSignedURL(ctx, storagePath, s.ttl)
		return err
	})
	if err != nil {
		s.logger.WarnContext(ctx, "Signing photo URL failed",
			applog.FieldObjectPath, storagePath, applog.FieldError, err)
		return ""
	}
	s.urls.Set(storagePath, u)
	return u
}

func (s *PhotosSynchronizer) Photos() []core.Photo {
	return s.photos.Items(s.couple())
}

// PhotoDates returns the dates in [from, to] with at least one photo. A
// failure is logged and yields no dates; the gallery status is untouched.
func (s *PhotosSynchronizer) PhotoDates(ctx context.Context, from, to core.Date) []core.Date {
	couple := s.couple()
	if couple == "" {
		return nil
	}
	var dates []core.Date
	err := s.observe(ctx, "photo_dates", func(ctx context.Context) error {
		var err error
		dates, err = s.store.PhotoDates(ctx, couple, from, to)
		return err
	})
	if err != nil {
		s.logger.WarnContext(ctx, "Fetch photo dates failed",
			applog.FieldOperation, "photo_dates", applog.FieldError, err)
		return nil
	}
	return dates
}

// Uploading reports whether an upload is in progress.
func (s *PhotosSynchronizer) Uploading() bool {
	return s.uploading.Load() > 0
}

// ObjectPath builds <couple>/<date>/<unix-ms>-<filename>.
func ObjectPath(coupleID string, date core.Date, at time.Time, filename string) (string, error) {
	name := path.Base(strings.ReplaceAll(strings.TrimSpace(filename), "\\", "/"))
	if name == "" || name == "." || name == ".." || name == "/" {
		return "", fmt.Errorf("%w: %q", ErrInvalidFilename, filename)
	}
	return fmt.Sprintf("%s/%s/%d-%s", coupleID, date, at.UnixMilli(), name), nil
}

// Upload stores the object, then the row. When the row insert fails the
// object is removed again on a best-effort basis.
func (s *PhotosSynchronizer) Upload(ctx context.Context, up PhotoUpload) (core.Photo, error) {
	couple, user, err := s.writer()
	if err != nil {
		return core.Photo{}, err
	}
	if err := up.Date.Validate(); err != nil {
		return core.Photo{}, err
	}
	if up.Body == nil {
		return core.Photo{}, errors.New("photo upload has no body")
	}
	objectPath, err := ObjectPath(couple, up.Date, s.now(), up.Filename)
	if err != nil {
		return core.Photo{}, err
	}

	s.uploading.Add(1)
	defer s.uploading.Add(-1)

	err = s.observe(ctx, applog.OpUpload, func(ctx context.Context) error {
		return s.objects.Upload(ctx, objectPath, up.Body, up.ContentType)
	})
	if err != nil {
		return core.Photo{}, fmt.Errorf("upload photo object: %w", err)
	}

	var photo core.Photo
	err = s.observe(ctx, applog.OpCreate, func(ctx context.Context) error {
		photo, err = s.store.InsertPhoto(ctx, couple, user, remote.PhotoRecord{
			Date:        up.Date,
			StoragePath: objectPath,
			Caption:     up.Caption,
		})
		return err
	})
	if err != nil {
		if rmErr := s.objects.Remove(ctx, objectPath); rmErr != nil {
			s.logger.ErrorContext(ctx, "Orphaned photo object after failed insert",
				applog.FieldObjectPath, objectPath, applog.FieldError, rmErr)
		}
		return core.Photo{}, fmt.Errorf("record photo: %w", err)
	}

	photo.URL = s.signedURL(ctx, photo.StoragePath)
	if s.inScope(photo.Date) {
		s.photos.Insert(couple, photo)
	}
	s.logger.InfoContext(ctx, "Photo uploaded",
		applog.FieldRecordID, photo.ID,
		applog.FieldObjectPath, objectPath,
		applog.FieldDate, photo.Date.String())
	return photo, nil
}

func (s *PhotosSynchronizer) inScope(d core.Date) bool {
	s.scopeMu.RLock()
	defer s.scopeMu.RUnlock()
	return s.scope != nil && s.scope.Equal(d.Time)
}

// Remove deletes a mirrored photo: the object first, and if that fails the
// row is kept. A row delete failing after the object is gone is returned
// as is. Photos not in the mirror are not found.
func (s *PhotosSynchronizer) Remove(ctx context.Context, id string) error {
	couple, _, err := s.writer()
	if err != nil {
		return err
	}
	photo, ok := s.photos.Find(couple, id)
	if !ok {
		return fmt.Errorf("remove photo %s: %w", id, core.ErrNotFound)
	}
	if !strings.HasPrefix(photo.StoragePath, couple+"/") {
		return fmt.Errorf("remove photo %s: %w: %q", id, ErrForeignObject, photo.StoragePath)
	}

	err = s.observe(ctx, "remove_object", func(ctx context.Context) error {
		return s.objects.Remove(ctx, photo.StoragePath)
	})
	if err != nil {
		return fmt.Errorf("remove photo object: %w", err)
	}
	s.urls.Delete(photo.StoragePath)

	err = s.observe(ctx, applog.OpDelete, func(ctx context.Context) error {
		return s.store.DeletePhoto(ctx, couple, id)
	})
	if err != nil {
		return fmt.Errorf("remove photo %s: %w", id, err)
	}
	s.photos.Remove(couple, id)
	return nil
}
