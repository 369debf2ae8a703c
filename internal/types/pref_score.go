package types

import (
	"time"

	"github.com/google/uuid"
)

// UserPrefScore is an accumulated affinity weight for one (user, feature) pair.
// Keys look like "author:<uuid>", "genre:Pop", "emotion:JOY". Rows are created
// lazily on the first delta and never deleted; only the recency term decays,
// never the stored weight.
type UserPrefScore struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_user_pref,priority:1;index:idx_user_pref_score,priority:1;column:user_id" json:"user_id"`
	Key       string    `gorm:"size:100;not null;uniqueIndex:uk_user_pref,priority:2;column:pref_key" json:"key"`
	Score     float64   `gorm:"not null;default:0;index:idx_user_pref_score,priority:2,sort:desc;column:score" json:"score"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (UserPrefScore) TableName() string {
	return "user_pref_score"
}
