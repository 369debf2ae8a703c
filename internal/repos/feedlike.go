package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hejz/hejz-backend/internal/logger"
	"github.com/hejz/hejz-backend/internal/types"
)

type FeedLikeRepo interface {
	Create(ctx context.Context, tx *gorm.DB, like *types.FeedLike) error
	Delete(ctx context.Context, tx *gorm.DB, feedID int64, userID uuid.UUID) (bool, error)
	Exists(ctx context.Context, tx *gorm.DB, feedID int64, userID uuid.UUID) (bool, error)
	ListByFeed(ctx context.Context, tx *gorm.DB, feedID int64) ([]*types.FeedLike, error)
	ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.FeedLike, error)
	CountByFeedIDs(ctx context.Context, tx *gorm.DB, feedIDs []int64) (map[int64]int64, error)
}

type feedLikeRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewFeedLikeRepo(db *gorm.DB, baseLog *logger.Logger) FeedLikeRepo {
	repoLog := baseLog.With("repo", "FeedLikeRepo")
	return &feedLikeRepo{db: db, log: repoLog}
}

func (lr *feedLikeRepo) Create(ctx context.Context, tx *gorm.DB, like *types.FeedLike) error {
	transaction := tx
	if transaction == nil {
		transaction = lr.db
	}
	return transaction.WithContext(ctx).Create(like).Error
}

func (lr *feedLikeRepo) Delete(ctx context.Context, tx *gorm.DB, feedID int64, userID uuid.UUID) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = lr.db
	}
	res := transaction.WithContext(ctx).
		Where("feed_id = ? AND user_id = ?", feedID, userID).
		Delete(&types.FeedLike{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (lr *feedLikeRepo) Exists(ctx context.Context, tx *gorm.DB, feedID int64, userID uuid.UUID) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = lr.db
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.FeedLike{}).
		Where("feed_id = ? AND user_id = ?", feedID, userID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (lr *feedLikeRepo) ListByFeed(ctx context.Context, tx *gorm.DB, feedID int64) ([]*types.FeedLike, error) {
	transaction := tx
	if transaction == nil {
		transaction = lr.db
	}
	var results []*types.FeedLike
	if err := transaction.WithContext(ctx).
		Where("feed_id = ?", feedID).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (lr *feedLikeRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.FeedLike, error) {
	transaction := tx
	if transaction == nil {
		transaction = lr.db
	}
	var results []*types.FeedLike
	if err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (lr *feedLikeRepo) CountByFeedIDs(ctx context.Context, tx *gorm.DB, feedIDs []int64) (map[int64]int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = lr.db
	}
	counts := make(map[int64]int64, len(feedIDs))
	if len(feedIDs) == 0 {
		return counts, nil
	}
	var rows []struct {
		FeedID int64
		N      int64
	}
	if err := transaction.WithContext(ctx).
		Model(&types.FeedLike{}).
		Select("feed_id, COUNT(*) AS n").
		Where("feed_id IN ?", feedIDs).
		Group("feed_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, r := range rows {
		counts[r.FeedID] = r.N
	}
	return counts, nil
}
