package repos

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/hejz/hejz-backend/internal/logger"
	"github.com/hejz/hejz-backend/internal/types"
)

type CommentRepo interface {
	Create(ctx context.Context, tx *gorm.DB, comment *types.Comment) (*types.Comment, error)
	GetByID(ctx context.Context, tx *gorm.DB, commentID int64) (*types.Comment, error)
	// FeedWindow pages a feed's comments with the same keyset contract as feeds.
	FeedWindow(ctx context.Context, tx *gorm.DB, feedID int64, cursorCreatedAt *time.Time, cursorID *int64, limit int) ([]*types.Comment, error)
	SoftDelete(ctx context.Context, tx *gorm.DB, commentID int64) error
	CountByFeedIDs(ctx context.Context, tx *gorm.DB, feedIDs []int64) (map[int64]int64, error)
}

type commentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCommentRepo(db *gorm.DB, baseLog *logger.Logger) CommentRepo {
	repoLog := baseLog.With("repo", "CommentRepo")
	return &commentRepo{db: db, log: repoLog}
}

func (cr *commentRepo) Create(ctx context.Context, tx *gorm.DB, comment *types.Comment) (*types.Comment, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}
	if err := transaction.WithContext(ctx).Create(comment).Error; err != nil {
		return nil, err
	}
	return comment, nil
}

func (cr *commentRepo) GetByID(ctx context.Context, tx *gorm.DB, commentID int64) (*types.Comment, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}
	var comment types.Comment
	if err := transaction.WithContext(ctx).
		Where("id = ?", commentID).
		First(&comment).Error; err != nil {
		return nil, err
	}
	return &comment, nil
}

func (cr *commentRepo) FeedWindow(ctx context.Context, tx *gorm.DB, feedID int64, cursorCreatedAt *time.Time, cursorID *int64, limit int) ([]*types.Comment, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}
	var results []*types.Comment
	q := transaction.WithContext(ctx).
		Where("feed_id = ? AND is_deleted = ?", feedID, false)
	q = keyset(q, cursorCreatedAt, cursorID)
	if err := q.
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (cr *commentRepo) SoftDelete(ctx context.Context, tx *gorm.DB, commentID int64) error {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}
	return transaction.WithContext(ctx).
		Model(&types.Comment{}).
		Where("id = ?", commentID).
		Update("is_deleted", true).Error
}

func (cr *commentRepo) CountByFeedIDs(ctx context.Context, tx *gorm.DB, feedIDs []int64) (map[int64]int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
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
		Model(&types.Comment{}).
		Select("feed_id, COUNT(*) AS n").
		Where("feed_id IN ? AND is_deleted = ?", feedIDs, false).
		Group("feed_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, r := range rows {
		counts[r.FeedID] = r.N
	}
	return counts, nil
}
