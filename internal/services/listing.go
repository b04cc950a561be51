package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/quicklyapp/quickly-backend/internal/logger"
	"github.com/quicklyapp/quickly-backend/internal/repos"
	"github.com/quicklyapp/quickly-backend/internal/types"
)

const (
	listingCacheKey = "public_feed:posts"
	listingCacheTTL = 5 * time.Minute
	listingMaxLimit = 50
)

// ListingService pages through the persisted public post pool, optionally
// shuffled by a caller-supplied seed so a session sees a stable order.
type ListingService interface {
	List(ctx context.Context, limit, offset int, seed *int64) (*types.Page, error)
}

type listingService struct {
	log   *logger.Logger
	posts repos.PostRepo
	cache Cache
}

func NewListingService(log *logger.Logger, posts repos.PostRepo, cache Cache) (ListingService, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if posts == nil {
		return nil, fmt.Errorf("post repo required")
	}
	if cache == nil {
		return nil, fmt.Errorf("cache required")
	}
	return &listingService{
		log:   log.With("service", "ListingService"),
		posts: posts,
		cache: cache,
	}, nil
}

func (s *listingService) List(ctx context.Context, limit, offset int, seed *int64) (*types.Page, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > listingMaxLimit {
		limit = listingMaxLimit
	}
	if offset < 0 {
		offset = 0
	}

	pool, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	// The same seed over the same snapshot always yields the same order, so
	// successive pages of one session partition the pool without overlap.
	shuffled := make([]types.FeedPost, len(pool))
	copy(shuffled, pool)
	var src int64
	if seed != nil {
		src = *seed
	} else {
		src = time.Now().UnixNano()
	}
	r := rand.New(rand.NewSource(src))
	r.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	total := len(shuffled)
	start := offset
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	page := shuffled[start:end]
	for i := range page {
		page[i].Position = start + i
	}

	return &types.Page{
		Posts:   page,
		Total:   total,
		HasMore: end < total,
	}, nil
}

// snapshot returns the public pool, served from a short-lived cache so the
// database is not hit on every page flip.
func (s *listingService) snapshot(ctx context.Context) ([]types.FeedPost, error) {
	var cached []types.FeedPost
	if ok, err := s.cache.Get(ctx, listingCacheKey, &cached); err == nil && ok {
		return cached, nil
	}

	rows, err := s.posts.ListPublic(ctx, nil)
	if err != nil {
		return nil, err
	}

	pool := make([]types.FeedPost, 0, len(rows))
	for _, row := range rows {
		post := types.FeedPost{
			Caption:     row.Caption,
			ImagePrompt: row.ImagePrompt,
			ImageURL:    row.ImageURL,
			AudioURL:    row.AudioURL,
			HasAudio:    row.HasAudio,
		}
		if len(row.Flashcard) > 0 {
			var card types.Flashcard
			if err := json.Unmarshal(row.Flashcard, &card); err == nil && card.Question != "" {
				post.Flashcard = &card
			}
		}
		pool = append(pool, post)
	}

	if err := s.cache.Set(ctx, listingCacheKey, pool, listingCacheTTL); err != nil {
		s.log.Warn("Listing snapshot cache write failed", "error", err)
	}
	return pool, nil
}
