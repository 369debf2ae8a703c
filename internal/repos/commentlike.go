package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hejz/hejz-backend/internal/logger"
	"github.com/hejz/hejz-backend/internal/types"
)

type CommentLikeRepo interface {
	Create(ctx context.Context, tx *gorm.DB, like *types.CommentLike) error
	Delete(ctx context.Context, tx *gorm.DB, commentID int64, userID uuid.UUID) (bool, error)
	Exists(ctx context.Context, tx *gorm.DB, commentID int64, userID uuid.UUID) (bool, error)
	CountByCommentIDs(ctx context.Context, tx *gorm.DB, commentIDs []int64) (map[int64]int64, error)
}

type commentLikeRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCommentLikeRepo(db *gorm.DB, baseLog *logger.Logger) CommentLikeRepo {
	repoLog := baseLog.With("repo", "CommentLikeRepo")
	return &commentLikeRepo{db: db, log: repoLog}
}

func (cr *commentLikeRepo) Create(ctx context.Context, tx *gorm.DB, like *types.CommentLike) error {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}
	return transaction.WithContext(ctx).Create(like).Error
}

func (cr *commentLikeRepo) Delete(ctx context.Context, tx *gorm.DB, commentID int64, userID uuid.UUID) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}
	res := transaction.WithContext(ctx).
		Where("comment_id = ? AND user_id = ?", commentID, userID).
		Delete(&types.CommentLike{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (cr *commentLikeRepo) Exists(ctx context.Context, tx *gorm.DB, commentID int64, userID uuid.UUID) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.CommentLike{}).
		Where("comment_id = ? AND user_id = ?", commentID, userID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (cr *commentLikeRepo) CountByCommentIDs(ctx context.Context, tx *gorm.DB, commentIDs []int64) (map[int64]int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}
	counts := make(map[int64]int64, len(commentIDs))
	if len(commentIDs) == 0 {
		return counts, nil
	}
	var rows []struct {
		CommentID int64
		N         int64
	}
	if err := transaction.WithContext(ctx).
		Model(&types.CommentLike{}).
		Select("comment_id, COUNT(*) AS n").
		Where("comment_id IN ?", commentIDs).
		Group("comment_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, r := range rows {
		counts[r.CommentID] = r.N
	}
	return counts, nil
}
