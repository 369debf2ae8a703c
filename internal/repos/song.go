package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hejz/hejz-backend/internal/logger"
	"github.com/hejz/hejz-backend/internal/types"
)

type SavedSongRepo interface {
	Create(ctx context.Context, tx *gorm.DB, songs []*types.SavedSong) ([]*types.SavedSong, error)
	GetByID(ctx context.Context, tx *gorm.DB, songID int64) (*types.SavedSong, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, songIDs []int64) ([]*types.SavedSong, error)
	GetByTaskID(ctx context.Context, tx *gorm.DB, taskID string) ([]*types.SavedSong, error)
	ListByOwner(ctx context.Context, tx *gorm.DB, ownerID uuid.UUID) ([]*types.SavedSong, error)
}

type savedSongRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSavedSongRepo(db *gorm.DB, baseLog *logger.Logger) SavedSongRepo {
	repoLog := baseLog.With("repo", "SavedSongRepo")
	return &savedSongRepo{db: db, log: repoLog}
}

func (sr *savedSongRepo) Create(ctx context.Context, tx *gorm.DB, songs []*types.SavedSong) ([]*types.SavedSong, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}
	if len(songs) == 0 {
		return []*types.SavedSong{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&songs).Error; err != nil {
		return nil, err
	}
	return songs, nil
}

func (sr *savedSongRepo) GetByID(ctx context.Context, tx *gorm.DB, songID int64) (*types.SavedSong, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}
	var song types.SavedSong
	if err := transaction.WithContext(ctx).
		Where("id = ?", songID).
		First(&song).Error; err != nil {
		return nil, err
	}
	return &song, nil
}

func (sr *savedSongRepo) GetByIDs(ctx context.Context, tx *gorm.DB, songIDs []int64) ([]*types.SavedSong, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}
	var results []*types.SavedSong
	if len(songIDs) == 0 {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("id IN ?", songIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (sr *savedSongRepo) GetByTaskID(ctx context.Context, tx *gorm.DB, taskID string) ([]*types.SavedSong, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}
	var results []*types.SavedSong
	if err := transaction.WithContext(ctx).
		Where("task_id = ?", taskID).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (sr *savedSongRepo) ListByOwner(ctx context.Context, tx *gorm.DB, ownerID uuid.UUID) ([]*types.SavedSong, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}
	var results []*types.SavedSong
	if err := transaction.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
