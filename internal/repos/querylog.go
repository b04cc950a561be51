package repos

import (
	"context"

	"gorm.io/gorm"

	"github.com/quicklyapp/quickly-backend/internal/logger"
	"github.com/quicklyapp/quickly-backend/internal/types"
)

type QueryLogRepo interface {
	Create(ctx context.Context, tx *gorm.DB, entry *types.QueryLog) (*types.QueryLog, error)
}

type queryLogRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewQueryLogRepo(db *gorm.DB, baseLog *logger.Logger) QueryLogRepo {
	return &queryLogRepo{db: db, log: baseLog.With("repo", "QueryLogRepo")}
}

func (r *queryLogRepo) Create(ctx context.Context, tx *gorm.DB, entry *types.QueryLog) (*types.QueryLog, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(entry).Error; err != nil {
		return nil, err
	}
	return entry, nil
}
