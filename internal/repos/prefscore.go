package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hejz/hejz-backend/internal/logger"
	"github.com/hejz/hejz-backend/internal/types"
)

type PrefScoreRepo interface {
	// IncrementExisting adds delta to the row's score inside the database
	// (score = score + delta) and reports whether a row existed.
	IncrementExisting(ctx context.Context, tx *gorm.DB, userID uuid.UUID, key string, delta float64) (bool, error)
	Create(ctx context.Context, tx *gorm.DB, row *types.UserPrefScore) error
	GetByUserAndKey(ctx context.Context, tx *gorm.DB, userID uuid.UUID, key string) (*types.UserPrefScore, error)
	GetByUserAndKeys(ctx context.Context, tx *gorm.DB, userID uuid.UUID, keys []string) ([]*types.UserPrefScore, error)
	TopKByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, k int) ([]*types.UserPrefScore, error)
}

type prefScoreRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPrefScoreRepo(db *gorm.DB, baseLog *logger.Logger) PrefScoreRepo {
	repoLog := baseLog.With("repo", "PrefScoreRepo")
	return &prefScoreRepo{db: db, log: repoLog}
}

func (pr *prefScoreRepo) IncrementExisting(ctx context.Context, tx *gorm.DB, userID uuid.UUID, key string, delta float64) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}
	res := transaction.WithContext(ctx).
		Model(&types.UserPrefScore{}).
		Where("user_id = ? AND pref_key = ?", userID, key).
		Update("score", gorm.Expr("score + ?", delta))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (pr *prefScoreRepo) Create(ctx context.Context, tx *gorm.DB, row *types.UserPrefScore) error {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}
	return transaction.WithContext(ctx).Create(row).Error
}

func (pr *prefScoreRepo) GetByUserAndKey(ctx context.Context, tx *gorm.DB, userID uuid.UUID, key string) (*types.UserPrefScore, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}
	var row types.UserPrefScore
	err := transaction.WithContext(ctx).
		Where("user_id = ? AND pref_key = ?", userID, key).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (pr *prefScoreRepo) GetByUserAndKeys(ctx context.Context, tx *gorm.DB, userID uuid.UUID, keys []string) ([]*types.UserPrefScore, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}
	var results []*types.UserPrefScore
	if len(keys) == 0 {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("user_id = ? AND pref_key IN ?", userID, keys).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (pr *prefScoreRepo) TopKByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, k int) ([]*types.UserPrefScore, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}
	if k <= 0 {
		k = 20
	}
	var results []*types.UserPrefScore
	if err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("score DESC").
		Limit(k).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
