package types

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Username        string    `gorm:"uniqueIndex;size:30;not null;column:username" json:"username"`
	Email           string    `gorm:"uniqueIndex;size:100;not null;column:email" json:"email"`
	Password        string    `gorm:"not null;column:password" json:"-"`
	Nickname        string    `gorm:"size:50;not null;column:nickname" json:"nickname"`
	Bio             string    `gorm:"size:500;column:bio" json:"bio"`
	AvatarBucketKey string    `gorm:"column:avatar_bucket_key" json:"-"`
	ProfileImageURL string    `gorm:"column:profile_image_url" json:"profile_image_url"`
	CreatedAt       time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time `gorm:"not null" json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}
