package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"gorm.io/datatypes"

	"github.com/quicklyapp/quickly-backend/internal/logger"
	"github.com/quicklyapp/quickly-backend/internal/recovery"
	"github.com/quicklyapp/quickly-backend/internal/repos"
	"github.com/quicklyapp/quickly-backend/internal/types"
)

// ErrFeedBuildFailed is returned when no post survived asset resolution.
var ErrFeedBuildFailed = errors.New("feed build failed: no posts survived asset resolution")

// ErrInvalidTopic is returned for blank topics.
var ErrInvalidTopic = errors.New("topic must not be empty")

// FeedConfig bounds one feed build.
type FeedConfig struct {
	// DefaultCount is the number of posts requested when the caller does
	// not specify one.
	DefaultCount int
	// Concurrency bounds per-post asset resolution within a build.
	Concurrency int
	// CacheTTL is how long an assembled feed stays servable from cache.
	CacheTTL time.Duration
}

func (c FeedConfig) withDefaults() FeedConfig {
	if c.DefaultCount <= 0 {
		c.DefaultCount = 5
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 4
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = time.Hour
	}
	return c
}

// FeedService assembles, caches, and persists topic feeds.
type FeedService interface {
	Build(ctx context.Context, topic string, count int) (*types.Feed, error)
}

type feedService struct {
	log       *logger.Logger
	planner   PlannerService
	images    *FallbackResolver
	assets    AssetService
	narration NarrationService
	cache     Cache
	posts     repos.PostRepo
	queryLogs repos.QueryLogRepo
	cfg       FeedConfig

	// inflight collapses concurrent builds for one fingerprint into a
	// single underlying build; late callers wait and share the result.
	inflight singleflight.Group
}

func NewFeedService(
	log *logger.Logger,
	planner PlannerService,
	images *FallbackResolver,
	assets AssetService,
	narration NarrationService,
	cache Cache,
	posts repos.PostRepo,
	queryLogs repos.QueryLogRepo,
	cfg FeedConfig,
) (FeedService, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if planner == nil || images == nil || assets == nil || narration == nil {
		return nil, fmt.Errorf("planner, image resolver, asset service and narration service required")
	}
	if cache == nil {
		return nil, fmt.Errorf("cache required")
	}
	return &feedService{
		log:       log.With("service", "FeedService"),
		planner:   planner,
		images:    images,
		assets:    assets,
		narration: narration,
		cache:     cache,
		posts:     posts,
		queryLogs: queryLogs,
		cfg:       cfg.withDefaults(),
	}, nil
}

// Fingerprint normalizes a topic into its cache/build key: lower-cased with
// whitespace runs collapsed to single spaces.
func Fingerprint(topic string) string {
	return strings.Join(strings.Fields(strings.ToLower(topic)), " ")
}

func feedCacheKey(fingerprint string) string { return "feed:" + fingerprint }

func (s *feedService) Build(ctx context.Context, topic string, count int) (*types.Feed, error) {
	fingerprint := Fingerprint(topic)
	if fingerprint == "" {
		return nil, ErrInvalidTopic
	}
	if count <= 0 {
		count = s.cfg.DefaultCount
	}

	if feed, ok := s.cachedFeed(ctx, fingerprint); ok {
		return feed, nil
	}

	v, err, _ := s.inflight.Do(fingerprint, func() (any, error) {
		// A build that finished while this caller was queued is reused.
		if feed, ok := s.cachedFeed(ctx, fingerprint); ok {
			return feed, nil
		}
		return s.build(ctx, fingerprint, strings.TrimSpace(topic), count)
	})
	if err != nil {
		return nil, err
	}
	return v.(*types.Feed), nil
}

func (s *feedService) cachedFeed(ctx context.Context, fingerprint string) (*types.Feed, bool) {
	var cached types.Feed
	ok, err := s.cache.Get(ctx, feedCacheKey(fingerprint), &cached)
	if err != nil {
		s.log.Warn("Feed cache read failed", "fingerprint", fingerprint, "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	return &cached, true
}

func (s *feedService) build(ctx context.Context, fingerprint, topic string, count int) (*types.Feed, error) {
	started := time.Now()

	drafts, err := s.planner.Plan(ctx, topic, count)
	if err != nil {
		return nil, err
	}

	batchSize := len(drafts)
	results := make([]*types.FeedPost, batchSize)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for i, draft := range drafts {
		g.Go(func() error {
			// Per-post failures drop the post, never the batch.
			results[i] = s.resolvePost(gctx, topic, i, batchSize, draft)
			return nil
		})
	}
	_ = g.Wait()

	// Survivors keep their draft order and are renumbered densely.
	posts := make([]types.FeedPost, 0, batchSize)
	for _, p := range results {
		if p == nil {
			continue
		}
		p.Position = len(posts)
		posts = append(posts, *p)
	}
	if len(posts) == 0 {
		return nil, fmt.Errorf("%w (topic %q)", ErrFeedBuildFailed, topic)
	}

	feed := &types.Feed{
		Fingerprint: fingerprint,
		Posts:       posts,
		CreatedAt:   time.Now().UTC(),
		TTLSeconds:  int(s.cfg.CacheTTL.Seconds()),
	}

	s.persistPosts(ctx, fingerprint, feed)
	if err := s.cache.Set(ctx, feedCacheKey(fingerprint), feed, s.cfg.CacheTTL); err != nil {
		s.log.Warn("Feed cache write failed", "fingerprint", fingerprint, "error", err)
	}

	s.log.Info("Feed assembled",
		"fingerprint", fingerprint,
		"requested", count,
		"drafts", batchSize,
		"posts", len(posts),
		"took", time.Since(started).String(),
	)
	return feed, nil
}

// resolvePost turns one draft into a finished post. Returns nil when the
// image cannot be resolved; the post is then dropped from the feed.
func (s *feedService) resolvePost(ctx context.Context, topic string, index, batchSize int, draft recovery.PostDraft) *types.FeedPost {
	asset, err := s.images.Resolve(ctx, draft.ImagePrompt)
	if err != nil {
		s.log.Warn("Dropping post: image resolution failed",
			"topic", topic, "index", index, "error", err)
		return nil
	}

	imageURL, err := s.persistImage(ctx, draft.ImagePrompt, asset)
	if err != nil {
		if asset.SourceURL == "" {
			s.log.Warn("Dropping post: image persist failed and no source URL to fall back to",
				"topic", topic, "index", index, "error", err)
			return nil
		}
		// Persistence is best-effort when the provider gave us a URL.
		s.log.Warn("Image persist failed, serving provider URL",
			"topic", topic, "index", index, "error", err)
		imageURL = asset.SourceURL
	}

	post := &types.FeedPost{
		Position:    index,
		Caption:     draft.Caption,
		ImagePrompt: draft.ImagePrompt,
		ImageURL:    imageURL,
	}
	if draft.Flashcard != nil {
		post.Flashcard = &types.Flashcard{
			Question: draft.Flashcard.Question,
			Answer:   draft.Flashcard.Answer,
		}
	}

	if s.narration.ShouldNarrate(index, batchSize) {
		audioURL, err := s.narration.Narrate(ctx, topic, draft.ImagePrompt, draft.Caption)
		if err != nil {
			s.log.Warn("Narration failed, post ships without audio",
				"topic", topic, "index", index, "error", err)
		} else {
			post.AudioURL = &audioURL
			post.HasAudio = true
		}
	}
	return post
}

func (s *feedService) persistImage(ctx context.Context, prompt string, asset *RawAsset) (string, error) {
	if len(asset.Bytes) > 0 {
		key := AssetKey("posts", prompt) + extForContentType(asset.Mime)
		return s.assets.PersistBytes(ctx, asset.Bytes, asset.Mime, key)
	}
	return s.assets.PersistURL(ctx, asset.SourceURL, AssetKey("posts", prompt+"|"+asset.SourceURL))
}

// persistPosts writes the assembled posts for the public listing. Best-effort:
// storage trouble must not fail a build that already has servable content.
func (s *feedService) persistPosts(ctx context.Context, fingerprint string, feed *types.Feed) {
	if s.posts == nil {
		return
	}
	rows := make([]*types.Post, 0, len(feed.Posts))
	for _, p := range feed.Posts {
		row := &types.Post{
			FeedFingerprint: fingerprint,
			Position:        p.Position,
			Caption:         p.Caption,
			ImagePrompt:     p.ImagePrompt,
			ImageURL:        p.ImageURL,
			AudioURL:        p.AudioURL,
			HasAudio:        p.HasAudio,
			Public:          true,
		}
		if p.Flashcard != nil {
			if raw := recovery.MarshalFlashcard(&recovery.FlashcardDraft{
				Question: p.Flashcard.Question,
				Answer:   p.Flashcard.Answer,
			}); raw != nil {
				row.Flashcard = datatypes.JSON(raw)
			}
		}
		rows = append(rows, row)
	}
	if _, err := s.posts.Create(ctx, nil, rows); err != nil {
		s.log.Warn("Persisting feed posts failed", "fingerprint", fingerprint, "error", err)
	}
	s.logQuery(ctx, fingerprint, feed)
}

func marshalFeedSnapshot(feed *types.Feed) (datatypes.JSON, error) {
	raw, err := json.Marshal(feed)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

func (s *feedService) logQuery(ctx context.Context, fingerprint string, feed *types.Feed) {
	if s.queryLogs == nil {
		return
	}
	raw, err := marshalFeedSnapshot(feed)
	if err != nil {
		return
	}
	if _, err := s.queryLogs.Create(ctx, nil, &types.QueryLog{
		Query:    fingerprint,
		Response: raw,
	}); err != nil {
		s.log.Debug("Query log write failed", "fingerprint", fingerprint, "error", err)
	}
}
