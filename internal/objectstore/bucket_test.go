package objectstore

import (
	"context"
	"io"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBucket(t *testing.T, now *time.Time) *Bucket {
	t.Helper()
	b, err := New(Config{Dir: t.TempDir(), Bucket: "photos", BaseURL: "http://localhost:8080/", SigningKey: []byte("secret")}, nil)
	require.NoError(t, err)
	return b.WithClock(func() time.Time { return *now })
}

func tokenOf(t *testing.T, raw string) (string, string) {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	p, err := url.PathUnescape(strings.TrimPrefix(u.EscapedPath(), SignPrefix+"photos/"))
	require.NoError(t, err)
	return p, u.Query().Get("token")
}

func TestUploadSignOpen(t *testing.T) {
	now := time.Date(2026, 6, 20, 12, 0, 0, 0, time.UTC)
	b := newBucket(t, &now)
	ctx := context.Background()
	objPath := "c1/2026-06-20/1781956800000-first dance.jpg"

	require.NoError(t, b.Upload(ctx, objPath, strings.NewReader("jpeg bytes"), "image/jpeg"))

	signed, err := b.CreateSignedURL(ctx, objPath, time.Hour)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(signed, "http://localhost:8080/storage/v1/object/sign/photos/c1/2026-06-20/"))

	p, token := tokenOf(t, signed)
	assert.Equal(t, objPath, p)

	f, info, err := b.Open(p, token)
	require.NoError(t, err)
	defer f.Close()
	body, _ := io.ReadAll(f)
	assert.Equal(t, "jpeg bytes", string(body))
	assert.Equal(t, int64(len(body)), info.Size())

	assert.ErrorIs(t, b.Verify("c1/other.jpg", token), ErrInvalidToken)

	now = now.Add(time.Hour + time.Second)
	_, _, err = b.Open(p, token)
	assert.ErrorIs(t, err, ErrInvalidToken, "expired signature")
}

func TestRejectsTraversal(t *testing.T) {
	now := time.Now()
	b := newBucket(t, &now)
	ctx := context.Background()
	for _, p := range []string{"../escape.jpg", "/abs.jpg", "a/../../b", "a//b", ""} {
		assert.ErrorIs(t, b.Upload(ctx, p, strings.NewReader("x"), ""), ErrInvalidPath, p)
		_, err := b.CreateSignedURL(ctx, p, time.Minute)
		assert.ErrorIs(t, err, ErrInvalidPath, p)
	}
}

func TestRemoveMissingIsNotAnError(t *testing.T) {
	now := time.Now()
	b := newBucket(t, &now)
	ctx := context.Background()
	require.NoError(t, b.Upload(ctx, "c1/a.jpg", strings.NewReader("x"), "image/jpeg"))
	require.NoError(t, b.Remove(ctx, "c1/a.jpg", "c1/never.jpg"))

	signed, err := b.CreateSignedURL(ctx, "c1/a.jpg", time.Minute)
	require.NoError(t, err)
	p, token := tokenOf(t, signed)
	_, _, err = b.Open(p, token)
	assert.ErrorIs(t, err, ErrNotFound)
}
