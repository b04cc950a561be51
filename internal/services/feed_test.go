package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/quicklyapp/quickly-backend/internal/recovery"
)

const planJSON = `{"posts":[{"caption":"C","flashcard":{"question":"Q","answer":"A"},"image_prompt":"leaf"}]}`

func newTestFeed(t *testing.T, planner PlannerService, image AssetProvider, cache Cache, posts *fakePostRepo) FeedService {
	t.Helper()
	log := testLogger(t)
	images := NewFallbackResolver(log, "image", time.Second, image)
	speechProvider := &fakeProvider{name: "tts", asset: &RawAsset{Kind: "audio", Bytes: []byte("mp3"), Mime: "audio/mpeg"}}
	speech := NewFallbackResolver(log, "speech", time.Second, speechProvider)
	assets := &fakeAssets{}

	narration, err := NewNarrationService(log, speech, assets)
	if err != nil {
		t.Fatalf("NewNarrationService: %v", err)
	}
	svc, err := NewFeedService(log, planner, images, assets, narration, cache, posts, nil, FeedConfig{})
	if err != nil {
		t.Fatalf("NewFeedService: %v", err)
	}
	return svc
}

func newTestPlanner(t *testing.T, ai *fakeAI) PlannerService {
	t.Helper()
	p, err := NewPlannerService(testLogger(t), ai)
	if err != nil {
		t.Fatalf("NewPlannerService: %v", err)
	}
	return p
}

func TestBuildSinglePostFeed(t *testing.T) {
	ai := &fakeAI{text: planJSON}
	image := &fakeProvider{name: "stock", asset: &RawAsset{Kind: "image", SourceURL: "https://img.test/leaf.jpg"}}
	posts := &fakePostRepo{}

	svc := newTestFeed(t, newTestPlanner(t, ai), image, NewMemoryCache(), posts)

	feed, err := svc.Build(context.Background(), "Photosynthesis", 1)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if feed.Fingerprint != "photosynthesis" {
		t.Fatalf("unexpected fingerprint %q", feed.Fingerprint)
	}
	if len(feed.Posts) != 1 {
		t.Fatalf("expected 1 post, got %d", len(feed.Posts))
	}
	post := feed.Posts[0]
	if post.Position != 0 || post.Caption != "C" {
		t.Fatalf("unexpected post %+v", post)
	}
	if post.Flashcard == nil || post.Flashcard.Question != "Q" || post.Flashcard.Answer != "A" {
		t.Fatalf("flashcard not carried through: %+v", post.Flashcard)
	}
	if !strings.HasPrefix(post.ImageURL, "https://cdn.test/posts/") {
		t.Fatalf("image was not persisted: %q", post.ImageURL)
	}
	if post.HasAudio || post.AudioURL != nil {
		t.Fatalf("single-post feed must not be narrated")
	}
	if len(posts.created) != 1 {
		t.Fatalf("expected 1 persisted row, got %d", len(posts.created))
	}
	if !posts.created[0].Public || posts.created[0].FeedFingerprint != "photosynthesis" {
		t.Fatalf("persisted row not publishable: %+v", posts.created[0])
	}
}

func TestBuildServesSecondCallFromCache(t *testing.T) {
	ai := &fakeAI{text: planJSON}
	image := &fakeProvider{name: "stock", asset: &RawAsset{Kind: "image", SourceURL: "https://img.test/leaf.jpg"}}
	svc := newTestFeed(t, newTestPlanner(t, ai), image, NewMemoryCache(), &fakePostRepo{})

	first, err := svc.Build(context.Background(), "gravity", 1)
	if err != nil {
		t.Fatalf("first Build: %v", err)
	}
	second, err := svc.Build(context.Background(), "  GRAVITY ", 1)
	if err != nil {
		t.Fatalf("second Build: %v", err)
	}
	if ai.textCallCount() != 1 {
		t.Fatalf("second build must hit the cache, planner ran %d times", ai.textCallCount())
	}
	if second.Fingerprint != first.Fingerprint || len(second.Posts) != len(first.Posts) {
		t.Fatalf("cached feed differs from built feed")
	}
}

// blockingPlanner holds every Plan call until released so concurrent builds
// overlap deterministically.
type blockingPlanner struct {
	mu      sync.Mutex
	calls   int
	release chan struct{}
}

func (p *blockingPlanner) Plan(_ context.Context, _ string, _ int) ([]recovery.PostDraft, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	<-p.release
	return []recovery.PostDraft{{Caption: "C", ImagePrompt: "leaf"}}, nil
}

func TestConcurrentBuildsCollapse(t *testing.T) {
	planner := &blockingPlanner{release: make(chan struct{})}
	image := &fakeProvider{name: "stock", asset: &RawAsset{Kind: "image", SourceURL: "https://img.test/leaf.jpg"}}
	svc := newTestFeed(t, planner, image, NewMemoryCache(), &fakePostRepo{})

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = svc.Build(context.Background(), "entropy", 1)
		}()
	}

	// Give both goroutines time to reach the singleflight barrier.
	time.Sleep(50 * time.Millisecond)
	close(planner.release)
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("Build %d: %v", i, err)
		}
	}
	if planner.calls != 1 {
		t.Fatalf("concurrent builds must share one plan, got %d", planner.calls)
	}
}

func TestBuildFailsWhenNoPostSurvives(t *testing.T) {
	ai := &fakeAI{text: planJSON}
	image := &fakeProvider{name: "stock", err: errors.New("provider down")}
	svc := newTestFeed(t, newTestPlanner(t, ai), image, NewMemoryCache(), &fakePostRepo{})

	_, err := svc.Build(context.Background(), "gravity", 1)
	if !errors.Is(err, ErrFeedBuildFailed) {
		t.Fatalf("expected ErrFeedBuildFailed, got %v", err)
	}
}

func TestBuildRejectsBlankTopic(t *testing.T) {
	ai := &fakeAI{text: planJSON}
	image := &fakeProvider{name: "stock", asset: &RawAsset{Kind: "image", SourceURL: "u"}}
	svc := newTestFeed(t, newTestPlanner(t, ai), image, NewMemoryCache(), &fakePostRepo{})

	if _, err := svc.Build(context.Background(), "   ", 1); !errors.Is(err, ErrInvalidTopic) {
		t.Fatalf("expected ErrInvalidTopic, got %v", err)
	}
}

func TestBuildRenumbersDroppedPosts(t *testing.T) {
	// Three drafts; the middle image prompt fails resolution, so positions
	// must compact to 0..1.
	planner := plannerFunc(func(context.Context, string, int) ([]recovery.PostDraft, error) {
		return []recovery.PostDraft{
			{Caption: "first", ImagePrompt: "ok-1"},
			{Caption: "second", ImagePrompt: "fail"},
			{Caption: "third", ImagePrompt: "ok-2"},
		}, nil
	})
	image := providerFunc{"selective", func(_ context.Context, query string) (*RawAsset, error) {
		if query == "fail" {
			return nil, errors.New("no results")
		}
		return &RawAsset{Kind: "image", SourceURL: "https://img.test/" + query + ".jpg"}, nil
	}}
	svc := newTestFeed(t, planner, image, NewMemoryCache(), &fakePostRepo{})

	feed, err := svc.Build(context.Background(), "waves", 3)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(feed.Posts) != 2 {
		t.Fatalf("expected 2 surviving posts, got %d", len(feed.Posts))
	}
	if feed.Posts[0].Caption != "first" || feed.Posts[1].Caption != "third" {
		t.Fatalf("draft order not preserved: %q, %q", feed.Posts[0].Caption, feed.Posts[1].Caption)
	}
	if feed.Posts[0].Position != 0 || feed.Posts[1].Position != 1 {
		t.Fatalf("positions not dense: %d, %d", feed.Posts[0].Position, feed.Posts[1].Position)
	}
}

func TestFingerprintNormalization(t *testing.T) {
	cases := map[string]string{
		"Photosynthesis":       "photosynthesis",
		"  The WATER  Cycle  ": "the water cycle",
		"black\tholes\n":       "black holes",
		"   ":                  "",
	}
	for in, want := range cases {
		if got := Fingerprint(in); got != want {
			t.Fatalf("Fingerprint(%q) = %q, want %q", in, got, want)
		}
	}
}

type plannerFunc func(ctx context.Context, topic string, count int) ([]recovery.PostDraft, error)

func (f plannerFunc) Plan(ctx context.Context, topic string, count int) ([]recovery.PostDraft, error) {
	return f(ctx, topic, count)
}

type providerFunc struct {
	name string
	fn   func(ctx context.Context, query string) (*RawAsset, error)
}

func (p providerFunc) Name() string { return p.name }

func (p providerFunc) Resolve(ctx context.Context, query string) (*RawAsset, error) {
	return p.fn(ctx, query)
}
