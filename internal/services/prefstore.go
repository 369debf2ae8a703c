package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/hejz/hejz-backend/internal/logger"
	"github.com/hejz/hejz-backend/internal/repos"
	"github.com/hejz/hejz-backend/internal/types"
)

// PrefStoreService owns the accumulated per-user preference weights. Writes
// come only from the preference listener; ranking reads them with no
// isolation requirement beyond "eventually reflects applied deltas".
type PrefStoreService interface {
	// Add applies a signed delta to (userID, key), creating the row lazily.
	Add(ctx context.Context, userID uuid.UUID, key string, delta float64) error
	// Get returns the current weight, 0.0 when the row does not exist.
	Get(ctx context.Context, userID uuid.UUID, key string) (float64, error)
	// BatchGet loads every requested key in one round trip; absent keys are
	// simply missing from the result map.
	BatchGet(ctx context.Context, userID uuid.UUID, keys []string) (map[string]float64, error)
	// TopK returns the user's highest-weighted keys.
	TopK(ctx context.Context, userID uuid.UUID, k int) ([]*types.UserPrefScore, error)
}

type prefStoreService struct {
	db   *gorm.DB
	log  *logger.Logger
	repo repos.PrefScoreRepo
}

func NewPrefStoreService(db *gorm.DB, log *logger.Logger, repo repos.PrefScoreRepo) PrefStoreService {
	serviceLog := log.With("service", "PrefStoreService")
	return &prefStoreService{db: db, log: serviceLog, repo: repo}
}

// Add increments in SQL when the row exists. When it does not, it inserts the
// row carrying the delta; if two writers race on the insert, the loser hits
// the (user_id, pref_key) uniqueness constraint and falls back to one more
// in-place increment against the row the winner created. Each delta lands
// exactly once either way.
func (ps *prefStoreService) Add(ctx context.Context, userID uuid.UUID, key string, delta float64) error {
	updated, err := ps.repo.IncrementExisting(ctx, nil, userID, key, delta)
	if err != nil {
		return fmt.Errorf("increment pref score: %w", err)
	}
	if updated {
		return nil
	}

	now := time.Now()
	createErr := ps.repo.Create(ctx, nil, &types.UserPrefScore{
		UserID:    userID,
		Key:       key,
		Score:     delta,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if createErr == nil {
		return nil
	}
	if !isUniqueViolation(createErr) {
		return fmt.Errorf("create pref score: %w", createErr)
	}

	// Lost the creation race; the row exists now.
	updated, err = ps.repo.IncrementExisting(ctx, nil, userID, key, delta)
	if err != nil {
		return fmt.Errorf("increment pref score after create conflict: %w", err)
	}
	if !updated {
		return fmt.Errorf("pref score row vanished after create conflict: user=%s key=%s", userID, key)
	}
	return nil
}

func (ps *prefStoreService) Get(ctx context.Context, userID uuid.UUID, key string) (float64, error) {
	row, err := ps.repo.GetByUserAndKey(ctx, nil, userID, key)
	if err != nil {
		return 0, err
	}
	if row == nil {
		return 0, nil
	}
	return row.Score, nil
}

func (ps *prefStoreService) BatchGet(ctx context.Context, userID uuid.UUID, keys []string) (map[string]float64, error) {
	rows, err := ps.repo.GetByUserAndKeys(ctx, nil, userID, keys)
	if err != nil {
		return nil, err
	}
	scores := make(map[string]float64, len(rows))
	for _, r := range rows {
		scores[r.Key] = r.Score
	}
	return scores, nil
}

func (ps *prefStoreService) TopK(ctx context.Context, userID uuid.UUID, k int) ([]*types.UserPrefScore, error) {
	return ps.repo.TopKByUser(ctx, nil, userID, k)
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
