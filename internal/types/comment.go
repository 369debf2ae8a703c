package types

import (
	"time"

	"github.com/google/uuid"
)

// Comment pages use the same (created_at, id) keyset as feeds.
type Comment struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	FeedID    int64     `gorm:"not null;index:idx_comment_feed_keyset,priority:1;column:feed_id" json:"feed_id"`
	AuthorID  uuid.UUID `gorm:"type:uuid;not null;column:author_id" json:"author_id"`
	Content   string    `gorm:"size:500;not null;column:content" json:"content"`
	IsDeleted bool      `gorm:"not null;default:false;index:idx_comment_feed_keyset,priority:2;column:is_deleted" json:"-"`
	CreatedAt time.Time `gorm:"not null;index:idx_comment_feed_keyset,priority:3,sort:desc" json:"created_at"`
}

func (Comment) TableName() string {
	return "comments"
}
