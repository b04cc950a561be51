package services

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

type memBucket struct {
	objects map[string][]byte
	failing bool
}

func newMemBucket() *memBucket { return &memBucket{objects: map[string][]byte{}} }

func (b *memBucket) Upload(_ context.Context, key, _ string, data io.Reader) error {
	if b.failing {
		return errors.New("bucket unavailable")
	}
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	b.objects[key] = raw
	return nil
}

func (b *memBucket) GetPublicURL(key string) string { return "https://storage.test/" + key }

func (b *memBucket) Close() error { return nil }

func TestPersistURLRetriesOnce(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("png-bytes"))
	}))
	defer srv.Close()

	bucket := newMemBucket()
	svc, err := NewAssetService(testLogger(t), bucket)
	if err != nil {
		t.Fatalf("NewAssetService: %v", err)
	}

	url, err := svc.PersistURL(context.Background(), srv.URL, "posts/abc123def456")
	if err != nil {
		t.Fatalf("PersistURL: %v", err)
	}
	if hits.Load() != 2 {
		t.Fatalf("expected one retry (2 requests), got %d", hits.Load())
	}
	if url != "https://storage.test/posts/abc123def456.png" {
		t.Fatalf("extension must follow content type, got %q", url)
	}
	if string(bucket.objects["posts/abc123def456.png"]) != "png-bytes" {
		t.Fatalf("payload was not stored")
	}
}

func TestPersistURLGivesUpAfterTwoAttempts(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	svc, err := NewAssetService(testLogger(t), newMemBucket())
	if err != nil {
		t.Fatalf("NewAssetService: %v", err)
	}

	_, err = svc.PersistURL(context.Background(), srv.URL, "posts/key")
	if !errors.Is(err, ErrPersistFailed) {
		t.Fatalf("expected ErrPersistFailed, got %v", err)
	}
	if hits.Load() != 2 {
		t.Fatalf("expected exactly 2 attempts, got %d", hits.Load())
	}
}

func TestPersistBytesRejectsEmptyPayload(t *testing.T) {
	svc, err := NewAssetService(testLogger(t), newMemBucket())
	if err != nil {
		t.Fatalf("NewAssetService: %v", err)
	}
	if _, err := svc.PersistBytes(context.Background(), nil, "image/png", "posts/k.png"); !errors.Is(err, ErrPersistFailed) {
		t.Fatalf("expected ErrPersistFailed, got %v", err)
	}
}

func TestPersistBytesWrapsBucketFailure(t *testing.T) {
	bucket := newMemBucket()
	bucket.failing = true
	svc, err := NewAssetService(testLogger(t), bucket)
	if err != nil {
		t.Fatalf("NewAssetService: %v", err)
	}
	if _, err := svc.PersistBytes(context.Background(), []byte("x"), "image/png", "posts/k.png"); !errors.Is(err, ErrPersistFailed) {
		t.Fatalf("expected ErrPersistFailed, got %v", err)
	}
}

func TestAssetKeyStable(t *testing.T) {
	a := AssetKey("audio", "gravity|an apple falling")
	b := AssetKey("audio", "gravity|an apple falling")
	if a != b {
		t.Fatalf("identical contexts must map to identical keys: %q vs %q", a, b)
	}
	if !strings.HasPrefix(a, "audio/") || len(a) != len("audio/")+12 {
		t.Fatalf("unexpected key shape %q", a)
	}
	if AssetKey("audio", "other context") == a {
		t.Fatalf("different contexts must not collide")
	}
}

func TestExtForContentType(t *testing.T) {
	cases := map[string]string{
		"image/png":                ".png",
		"image/gif":                ".gif",
		"image/webp":               ".webp",
		"audio/mpeg":               ".mp3",
		"image/jpeg":               ".jpg",
		"application/octet-stream": ".jpg",
	}
	for contentType, want := range cases {
		if got := extForContentType(contentType); got != want {
			t.Fatalf("extForContentType(%q) = %q, want %q", contentType, got, want)
		}
	}
}
