// Package objectstore keeps photo objects in a directory-backed bucket and
// hands out time-limited signed retrieval URLs.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	applog "github.com/jerardpelaez/wedding-calendar/internal/log"
	"github.com/jerardpelaez/wedding-calendar/internal/remote"
)

var (
	ErrInvalidPath  = errors.New("invalid object path")
	ErrInvalidToken = errors.New("invalid or expired signature")
	ErrNotFound     = errors.New("object not found")
)

// SignPrefix is the route under which signed objects are served.
const SignPrefix = "/storage/v1/object/sign/"

type Config struct {
	Dir        string
	Bucket     string
	BaseURL    string
	SigningKey []byte
}

type Bucket struct {
	dir     string
	name    string
	baseURL string
	key     []byte
	now     func() time.Time
	logger  *applog.Logger
}

var _ remote.ObjectStore = (*Bucket)(nil)

type objectClaims struct {
	Bucket string `json:"bucket"`
	jwt.RegisteredClaims
}

func New(cfg Config, logger *applog.Logger) (*Bucket, error) {
	if cfg.Dir == "" || cfg.Bucket == "" {
		return nil, errors.New("objectstore: directory and bucket are required")
	}
	if len(cfg.SigningKey) == 0 {
		return nil, errors.New("objectstore: signing key is required")
	}
	root := filepath.Join(cfg.Dir, cfg.Bucket)
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create bucket directory: %w", err)
	}
	if logger == nil {
		logger = applog.Discard()
	}
	return &Bucket{
		dir:     root,
		name:    cfg.Bucket,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		key:     cfg.SigningKey,
		now:     time.Now,
		logger:  logger.WithComponent(applog.ComponentObjects),
	}, nil
}

// WithClock replaces the time source used for signing and verification.
func (b *Bucket) WithClock(now func() time.Time) *Bucket {
	b.now = now
	return b
}

func (b *Bucket) Name() string { return b.name }

// cleanPath rejects absolute paths and any ".." segment.
func cleanPath(p string) (string, error) {
	if p == "" || strings.HasPrefix(p, "/") || strings.Contains(p, "\\") {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, p)
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." || seg == "." || seg == "" {
			return "", fmt.Errorf("%w: %q", ErrInvalidPath, p)
		}
	}
	return path.Clean(p), nil
}

func (b *Bucket) file(p string) (string, error) {
	clean, err := cleanPath(p)
	if err != nil {
		return "", err
	}
	return filepath.Join(b.dir, filepath.FromSlash(clean)), nil
}

// Upload writes the object atomically: a temp file renamed into place.
func (b *Bucket) Upload(ctx context.Context, p string, body io.Reader, contentType string) error {
	target, err := b.file(p)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create object directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(target), ".upload-*")
	if err != nil {
		return fmt.Errorf("create temp object: %w", err)
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("write object %s: %w", p, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("store object %s: %w", p, err)
	}
	b.logger.DebugContext(ctx, "Object stored", applog.FieldObjectPath, p, "bytes", n, "content_type", contentType)
	return nil
}

// Remove deletes the objects; missing ones are skipped.
func (b *Bucket) Remove(ctx context.Context, paths ...string) error {
	for _, p := range paths {
		target, err := b.file(p)
		if err != nil {
			return err
		}
		if err := os.Remove(target); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove object %s: %w", p, err)
		}
		b.logger.DebugContext(ctx, "Object removed", applog.FieldObjectPath, p)
	}
	return nil
}

// CreateSignedURL returns <base>/storage/v1/object/sign/<bucket>/<path>?token=<jwt>.
func (b *Bucket) CreateSignedURL(_ context.Context, p string, ttl time.Duration) (string, error) {
	clean, err := cleanPath(p)
	if err != nil {
		return "", err
	}
	if ttl <= 0 {
		return "", errors.New("signed url ttl must be positive")
	}
	now := b.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, objectClaims{
		Bucket: b.name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   clean,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	signed, err := token.SignedString(b.key)
	if err != nil {
		return "", fmt.Errorf("sign object url: %w", err)
	}
	u := b.baseURL + SignPrefix + url.PathEscape(b.name) + "/" + escapePath(clean) + "?token=" + url.QueryEscape(signed)
	return u, nil
}

func escapePath(p string) string {
	segs := strings.Split(p, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return strings.Join(segs, "/")
}

// Verify checks that token signs path in this bucket and has not expired.
func (b *Bucket) Verify(p, token string) error {
	clean, err := cleanPath(p)
	if err != nil {
		return err
	}
	var claims objectClaims
	_, err = jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenUnverifiable
		}
		return b.key, nil
	}, jwt.WithTimeFunc(b.now), jwt.WithExpirationRequired())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject != clean || claims.Bucket != b.name {
		return fmt.Errorf("%w: token does not match object", ErrInvalidToken)
	}
	return nil
}

// Open verifies the token and opens the object for reading.
func (b *Bucket) Open(p, token string) (*os.File, fs.FileInfo, error) {
	if err := b.Verify(p, token); err != nil {
		return nil, nil, err
	}
	target, err := b.file(p)
	if err != nil {
		return nil, nil, err
	}
	f, err := os.Open(target)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil, fmt.Errorf("%w: %s", ErrNotFound, p)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("open object %s: %w", p, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("stat object %s: %w", p, err)
	}
	return f, info, nil
}
