package types

import (
	"time"

	"github.com/google/uuid"
)

type Follow struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	FollowerID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_follow_pair,priority:1;index;column:follower_id" json:"follower_id"`
	FolloweeID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_follow_pair,priority:2;index;column:followee_id" json:"followee_id"`
	CreatedAt  time.Time `gorm:"not null" json:"created_at"`
}

func (Follow) TableName() string {
	return "follows"
}
