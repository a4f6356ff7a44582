package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/jerardpelaez/wedding-calendar/internal/metrics"
	"github.com/jerardpelaez/wedding-calendar/internal/objectstore"
)

func newBucket(t *testing.T) *objectstore.Bucket {
	t.Helper()
	b, err := objectstore.New(objectstore.Config{
		Dir:        t.TempDir(),
		Bucket:     "wedding-photos",
		BaseURL:    "http://planner.test",
		SigningKey: []byte("server-test-signing-key-0123456789"),
	}, nil)
	if err != nil {
		t.Fatalf("objectstore.New: %v", err)
	}
	return b
}

// requestPath strips the public base so the URL can be served by a recorder.
func requestPath(t *testing.T, signed string) string {
	t.Helper()
	u, err := url.Parse(signed)
	if err != nil {
		t.Fatalf("parse signed url: %v", err)
	}
	return u.RequestURI()
}

func TestHealthAndReady(t *testing.T) {
	srv := NewServer(":0", Options{})
	defer srv.Shutdown(context.Background())

	for path, want := range map[string]string{"/healthz": "ok", "/readyz": "ready"} {
		rr := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
		if rr.Body.String() != want {
			t.Fatalf("%s body=%q, want %q", path, rr.Body.String(), want)
		}
	}
}

func TestReadyReportsBackendFailure(t *testing.T) {
	srv := NewServer(":0", Options{Ready: func(context.Context) error { return errors.New("db down") }})
	defer srv.Shutdown(context.Background())

	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d, want 503", rr.Code)
	}
}

func TestSignedObjectRoundTrip(t *testing.T) {
	ctx := context.Background()
	bucket := newBucket(t)
	m := metrics.New(nil)
	srv := NewServer(":0", Options{Objects: bucket, Metrics: m})
	defer srv.Shutdown(ctx)

	path := "couple-1/2026-06-20/1718000000000-first dance.jpg"
	if err := bucket.Upload(ctx, path, strings.NewReader("jpeg-bytes"), "image/jpeg"); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	signed, err := bucket.CreateSignedURL(ctx, path, time.Hour)
	if err != nil {
		t.Fatalf("CreateSignedURL: %v", err)
	}

	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, requestPath(t, signed), nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%q", rr.Code, rr.Body.String())
	}
	body, _ := io.ReadAll(rr.Body)
	if string(body) != "jpeg-bytes" {
		t.Fatalf("body=%q", body)
	}
	if got := rr.Header().Get("Content-Type"); got != "image/jpeg" {
		t.Fatalf("Content-Type=%q, want image/jpeg", got)
	}
	if got := rr.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("X-Content-Type-Options=%q", got)
	}
}

func TestSignedObjectRejections(t *testing.T) {
	ctx := context.Background()
	bucket := newBucket(t)
	srv := NewServer(":0", Options{Objects: bucket})
	defer srv.Shutdown(ctx)

	path := "couple-1/2026-06-20/cake.jpg"
	if err := bucket.Upload(ctx, path, strings.NewReader("cake"), "image/jpeg"); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	signed, err := bucket.CreateSignedURL(ctx, path, time.Hour)
	if err != nil {
		t.Fatalf("CreateSignedURL: %v", err)
	}
	valid := requestPath(t, signed)
	token := valid[strings.Index(valid, "?"):]

	tests := []struct {
		name   string
		target string
		want   int
	}{
		{"missing token", objectstore.SignPrefix + "wedding-photos/" + path, http.StatusForbidden},
		{"token for another object", objectstore.SignPrefix + "wedding-photos/couple-1/2026-06-20/other.jpg" + token, http.StatusForbidden},
		{"unknown bucket", objectstore.SignPrefix + "other-bucket/" + path + token, http.StatusNotFound},
		{"tampered token", valid + "x", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, tt.target, nil))
			if rr.Code != tt.want {
				t.Fatalf("status=%d, want %d", rr.Code, tt.want)
			}
		})
	}
}

func TestSignedObjectDeletedAfterSigning(t *testing.T) {
	ctx := context.Background()
	bucket := newBucket(t)
	srv := NewServer(":0", Options{Objects: bucket})
	defer srv.Shutdown(ctx)

	path := "couple-1/2026-06-20/gone.jpg"
	if err := bucket.Upload(ctx, path, strings.NewReader("x"), "image/jpeg"); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	signed, _ := bucket.CreateSignedURL(ctx, path, time.Hour)
	if err := bucket.Remove(ctx, path); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, requestPath(t, signed), nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status=%d, want 404", rr.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	m := metrics.New(nil)
	m.ObjectServed("ok")
	srv := NewServer(":0", Options{Metrics: m})
	defer srv.Shutdown(context.Background())

	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `objects_served_total{status="ok"} 1`) {
		t.Fatalf("metrics body missing objects_served_total")
	}
}

func TestExtractClientIP(t *testing.T) {
	tests := []struct {
		name   string
		remote string
		xff    string
		want   string
	}{
		{"direct peer", "203.0.113.7:5000", "198.51.100.1", "203.0.113.7"},
		{"trusted proxy", "10.0.0.2:5000", "198.51.100.1, 10.0.0.2", "198.51.100.1"},
		{"trusted proxy with garbage header", "10.0.0.2:5000", "not-an-ip", "10.0.0.2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			r.Header.Set("X-Forwarded-For", tt.xff)
			if got := extractClientIP(r); got != tt.want {
				t.Fatalf("extractClientIP()=%q, want %q", got, tt.want)
			}
		})
	}
}
