package services

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"gorm.io/gorm"

	"github.com/quicklyapp/quickly-backend/internal/logger"
	"github.com/quicklyapp/quickly-backend/internal/types"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("dev")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return log
}

// fakeProvider is a scripted AssetProvider.
type fakeProvider struct {
	name  string
	asset *RawAsset
	err   error
	calls int
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Resolve(_ context.Context, _ string) (*RawAsset, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.asset, nil
}

// fakeAI is a scripted openai.Client.
type fakeAI struct {
	mu        sync.Mutex
	text      string
	textErr   error
	textCalls int
	image     []byte
	imageErr  error
	speech    []byte
	speechErr error
}

func (f *fakeAI) GenerateText(_ context.Context, _ string, _ int64, _ float64) (string, error) {
	f.mu.Lock()
	f.textCalls++
	f.mu.Unlock()
	return f.text, f.textErr
}

func (f *fakeAI) GenerateImage(_ context.Context, _ string) ([]byte, error) {
	return f.image, f.imageErr
}

func (f *fakeAI) SynthesizeSpeech(_ context.Context, _ string) ([]byte, error) {
	return f.speech, f.speechErr
}

func (f *fakeAI) textCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.textCalls
}

// fakeAssets persists nothing and returns deterministic URLs.
type fakeAssets struct {
	mu       sync.Mutex
	bytesErr error
	urlErr   error
	keys     []string
}

func (f *fakeAssets) PersistBytes(_ context.Context, data []byte, _, key string) (string, error) {
	if f.bytesErr != nil {
		return "", f.bytesErr
	}
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty payload", ErrPersistFailed)
	}
	f.mu.Lock()
	f.keys = append(f.keys, key)
	f.mu.Unlock()
	return "https://cdn.test/" + key, nil
}

func (f *fakeAssets) PersistURL(_ context.Context, _, keyBase string) (string, error) {
	if f.urlErr != nil {
		return "", f.urlErr
	}
	key := keyBase + ".jpg"
	f.mu.Lock()
	f.keys = append(f.keys, key)
	f.mu.Unlock()
	return "https://cdn.test/" + key, nil
}

// fakePostRepo records writes and serves a canned public pool.
type fakePostRepo struct {
	mu      sync.Mutex
	created []*types.Post
	public  []*types.Post
	listErr error
}

func (f *fakePostRepo) Create(_ context.Context, _ *gorm.DB, posts []*types.Post) ([]*types.Post, error) {
	f.mu.Lock()
	f.created = append(f.created, posts...)
	f.mu.Unlock()
	return posts, nil
}

func (f *fakePostRepo) ListPublic(_ context.Context, _ *gorm.DB) ([]*types.Post, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.public, nil
}

func (f *fakePostRepo) GetByFingerprint(_ context.Context, _ *gorm.DB, fingerprint string) ([]*types.Post, error) {
	var out []*types.Post
	for _, p := range f.public {
		if p.FeedFingerprint == fingerprint {
			out = append(out, p)
		}
	}
	return out, nil
}
