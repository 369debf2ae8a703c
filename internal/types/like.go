package types

import (
	"time"

	"github.com/google/uuid"
)

type FeedLike struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	FeedID    int64     `gorm:"not null;uniqueIndex:uk_feed_like,priority:1;column:feed_id" json:"feed_id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_feed_like,priority:2;index;column:user_id" json:"user_id"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (FeedLike) TableName() string {
	return "feed_likes"
}

type CommentLike struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	CommentID int64     `gorm:"not null;uniqueIndex:uk_comment_like,priority:1;column:comment_id" json:"comment_id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_comment_like,priority:2;column:user_id" json:"user_id"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (CommentLike) TableName() string {
	return "comment_likes"
}
