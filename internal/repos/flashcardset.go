package repos

import (
	"context"

	"gorm.io/gorm"

	"github.com/quicklyapp/quickly-backend/internal/logger"
	"github.com/quicklyapp/quickly-backend/internal/types"
)

type FlashcardSetRepo interface {
	Create(ctx context.Context, tx *gorm.DB, set *types.FlashcardSet) (*types.FlashcardSet, error)
}

type flashcardSetRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewFlashcardSetRepo(db *gorm.DB, baseLog *logger.Logger) FlashcardSetRepo {
	return &flashcardSetRepo{db: db, log: baseLog.With("repo", "FlashcardSetRepo")}
}

func (r *flashcardSetRepo) Create(ctx context.Context, tx *gorm.DB, set *types.FlashcardSet) (*types.FlashcardSet, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(set).Error; err != nil {
		return nil, err
	}
	return set, nil
}
