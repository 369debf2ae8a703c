package types

import (
	"time"

	"github.com/google/uuid"
)

// Feed is the post row the ranking engine consumes. The ordering key across
// the whole read path is (created_at DESC, id DESC): created_at is truncated
// to whole seconds on write, so collisions inside one second are expected and
// the monotonic id breaks them.
type Feed struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	AuthorID  uuid.UUID `gorm:"type:uuid;not null;index:idx_feed_author_keyset,priority:1;column:author_id" json:"author_id"`
	Content   string    `gorm:"size:255;not null;column:content" json:"content"`
	SongID    *int64    `gorm:"column:song_id" json:"song_id,omitempty"`
	Genre     *string   `gorm:"size:50;column:genre" json:"genre,omitempty"`
	Emotion   *string   `gorm:"size:50;column:emotion" json:"emotion,omitempty"`
	IsDeleted bool      `gorm:"not null;default:false;index:idx_feed_author_keyset,priority:2;column:is_deleted" json:"-"`
	CreatedAt time.Time `gorm:"not null;index:idx_feed_author_keyset,priority:3,sort:desc" json:"created_at"`
}

func (Feed) TableName() string {
	return "feeds"
}

type MediaType string

const (
	MediaTypeImage MediaType = "IMAGE"
	MediaTypeVideo MediaType = "VIDEO"
)

type FeedMedia struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	FeedID       int64     `gorm:"not null;index;column:feed_id" json:"feed_id"`
	URL          string    `gorm:"not null;column:url" json:"url"`
	Ord          int       `gorm:"not null;column:ord" json:"ord"`
	Type         MediaType `gorm:"size:10;not null;default:IMAGE;column:type" json:"type"`
	ThumbnailURL string    `gorm:"column:thumbnail_url" json:"thumbnail_url,omitempty"`
	DurationMs   *int64    `gorm:"column:duration_ms" json:"duration_ms,omitempty"`
	MimeType     string    `gorm:"size:100;column:mime_type" json:"mime_type,omitempty"`
}

func (FeedMedia) TableName() string {
	return "feed_media"
}
