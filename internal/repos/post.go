package repos

import (
	"context"

	"gorm.io/gorm"

	"github.com/quicklyapp/quickly-backend/internal/logger"
	"github.com/quicklyapp/quickly-backend/internal/types"
)

type PostRepo interface {
	Create(ctx context.Context, tx *gorm.DB, posts []*types.Post) ([]*types.Post, error)
	ListPublic(ctx context.Context, tx *gorm.DB) ([]*types.Post, error)
	GetByFingerprint(ctx context.Context, tx *gorm.DB, fingerprint string) ([]*types.Post, error)
}

type postRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPostRepo(db *gorm.DB, baseLog *logger.Logger) PostRepo {
	return &postRepo{db: db, log: baseLog.With("repo", "PostRepo")}
}

func (r *postRepo) Create(ctx context.Context, tx *gorm.DB, posts []*types.Post) ([]*types.Post, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(posts) == 0 {
		return []*types.Post{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

// ListPublic returns every public, non-deleted post in a stable order so that
// seeded shuffles over the result are reproducible while the data is unchanged.
func (r *postRepo) ListPublic(ctx context.Context, tx *gorm.DB) ([]*types.Post, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Post
	if err := transaction.WithContext(ctx).
		Where("public = ?", true).
		Order("created_at ASC, id ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *postRepo) GetByFingerprint(ctx context.Context, tx *gorm.DB, fingerprint string) ([]*types.Post, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Post
	if err := transaction.WithContext(ctx).
		Where("feed_fingerprint = ?", fingerprint).
		Order("position ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
