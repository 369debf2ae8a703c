package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hejz/hejz-backend/internal/logger"
	"github.com/hejz/hejz-backend/internal/types"
)

type FeedRepo interface {
	Create(ctx context.Context, tx *gorm.DB, feed *types.Feed, media []*types.FeedMedia) (*types.Feed, error)
	GetByID(ctx context.Context, tx *gorm.DB, feedID int64) (*types.Feed, error)
	// TimelineWindow returns up to limit non-deleted rows visible to userID
	// (their own posts plus posts by authors they follow), strictly after the
	// keyset cursor when one is given, ordered created_at DESC, id DESC.
	TimelineWindow(ctx context.Context, tx *gorm.DB, userID uuid.UUID, cursorCreatedAt *time.Time, cursorID *int64, limit int) ([]*types.Feed, error)
	// AuthorWindow is the profile-feed variant: one author, same keyset order.
	AuthorWindow(ctx context.Context, tx *gorm.DB, authorID uuid.UUID, cursorCreatedAt *time.Time, cursorID *int64, limit int) ([]*types.Feed, error)
	SoftDelete(ctx context.Context, tx *gorm.DB, feedID int64) error
	MediaByFeedIDs(ctx context.Context, tx *gorm.DB, feedIDs []int64) ([]*types.FeedMedia, error)
}

type feedRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewFeedRepo(db *gorm.DB, baseLog *logger.Logger) FeedRepo {
	repoLog := baseLog.With("repo", "FeedRepo")
	return &feedRepo{db: db, log: repoLog}
}

func (fr *feedRepo) Create(ctx context.Context, tx *gorm.DB, feed *types.Feed, media []*types.FeedMedia) (*types.Feed, error) {
	transaction := tx
	if transaction == nil {
		transaction = fr.db
	}
	if err := transaction.WithContext(ctx).Create(feed).Error; err != nil {
		return nil, err
	}
	for _, m := range media {
		m.FeedID = feed.ID
	}
	if len(media) > 0 {
		if err := transaction.WithContext(ctx).Create(&media).Error; err != nil {
			return nil, err
		}
	}
	return feed, nil
}

func (fr *feedRepo) GetByID(ctx context.Context, tx *gorm.DB, feedID int64) (*types.Feed, error) {
	transaction := tx
	if transaction == nil {
		transaction = fr.db
	}
	var feed types.Feed
	err := transaction.WithContext(ctx).
		Where("id = ?", feedID).
		First(&feed).Error
	if err != nil {
		return nil, err
	}
	return &feed, nil
}

// keyset applies the strict pagination predicate: everything not strictly
// "before" the cursor in (created_at DESC, id DESC) order is excluded, so
// pages never re-show or skip rows even when new rows land between fetches.
func keyset(q *gorm.DB, cursorCreatedAt *time.Time, cursorID *int64) *gorm.DB {
	if cursorCreatedAt == nil || cursorID == nil {
		return q
	}
	return q.Where("(created_at < ? OR (created_at = ? AND id < ?))", *cursorCreatedAt, *cursorCreatedAt, *cursorID)
}

func (fr *feedRepo) TimelineWindow(ctx context.Context, tx *gorm.DB, userID uuid.UUID, cursorCreatedAt *time.Time, cursorID *int64, limit int) ([]*types.Feed, error) {
	transaction := tx
	if transaction == nil {
		transaction = fr.db
	}
	followees := transaction.
		Model(&types.Follow{}).
		Select("followee_id").
		Where("follower_id = ?", userID)

	var results []*types.Feed
	q := transaction.WithContext(ctx).
		Where("is_deleted = ?", false).
		Where("(author_id = ? OR author_id IN (?))", userID, followees)
	q = keyset(q, cursorCreatedAt, cursorID)
	if err := q.
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (fr *feedRepo) AuthorWindow(ctx context.Context, tx *gorm.DB, authorID uuid.UUID, cursorCreatedAt *time.Time, cursorID *int64, limit int) ([]*types.Feed, error) {
	transaction := tx
	if transaction == nil {
		transaction = fr.db
	}
	var results []*types.Feed
	q := transaction.WithContext(ctx).
		Where("author_id = ? AND is_deleted = ?", authorID, false)
	q = keyset(q, cursorCreatedAt, cursorID)
	if err := q.
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (fr *feedRepo) SoftDelete(ctx context.Context, tx *gorm.DB, feedID int64) error {
	transaction := tx
	if transaction == nil {
		transaction = fr.db
	}
	return transaction.WithContext(ctx).
		Model(&types.Feed{}).
		Where("id = ?", feedID).
		Update("is_deleted", true).Error
}

func (fr *feedRepo) MediaByFeedIDs(ctx context.Context, tx *gorm.DB, feedIDs []int64) ([]*types.FeedMedia, error) {
	transaction := tx
	if transaction == nil {
		transaction = fr.db
	}
	var results []*types.FeedMedia
	if len(feedIDs) == 0 {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("feed_id IN ?", feedIDs).
		Order("feed_id ASC, ord ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
