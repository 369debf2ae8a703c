package services

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hejz/hejz-backend/internal/logger"
	"github.com/hejz/hejz-backend/internal/types"
)

// fakePrefScoreRepo keeps rows in a mutex-guarded map, mirroring the
// database's atomicity per statement. It can also simulate losing the insert
// race on demand: the first Create after createConflicts is armed fails with
// a duplicate-key error while still materializing the row.
type fakePrefScoreRepo struct {
	mu              sync.Mutex
	rows            map[string]*types.UserPrefScore
	createConflicts int
	createCalls     int
	incrementCalls  int
}

func newFakePrefScoreRepo() *fakePrefScoreRepo {
	return &fakePrefScoreRepo{rows: map[string]*types.UserPrefScore{}}
}

func prefRowKey(userID uuid.UUID, key string) string {
	return userID.String() + "|" + key
}

func (f *fakePrefScoreRepo) IncrementExisting(_ context.Context, _ *gorm.DB, userID uuid.UUID, key string, delta float64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.incrementCalls++
	row, ok := f.rows[prefRowKey(userID, key)]
	if !ok {
		return false, nil
	}
	row.Score += delta
	return true, nil
}

func (f *fakePrefScoreRepo) Create(_ context.Context, _ *gorm.DB, row *types.UserPrefScore) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	k := prefRowKey(row.UserID, row.Key)
	if f.createConflicts > 0 {
		f.createConflicts--
		// The racing writer's row is now present, but without our delta.
		f.rows[k] = &types.UserPrefScore{UserID: row.UserID, Key: row.Key, Score: 0}
		return gorm.ErrDuplicatedKey
	}
	if _, ok := f.rows[k]; ok {
		return gorm.ErrDuplicatedKey
	}
	cp := *row
	f.rows[k] = &cp
	return nil
}

func (f *fakePrefScoreRepo) GetByUserAndKey(_ context.Context, _ *gorm.DB, userID uuid.UUID, key string) (*types.UserPrefScore, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[prefRowKey(userID, key)]
	if !ok {
		return nil, nil
	}
	return row, nil
}

func (f *fakePrefScoreRepo) GetByUserAndKeys(_ context.Context, _ *gorm.DB, userID uuid.UUID, keys []string) ([]*types.UserPrefScore, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*types.UserPrefScore
	for _, k := range keys {
		if row, ok := f.rows[prefRowKey(userID, k)]; ok {
			out = append(out, row)
		}
	}
	return out, nil
}

func (f *fakePrefScoreRepo) TopKByUser(_ context.Context, _ *gorm.DB, userID uuid.UUID, k int) ([]*types.UserPrefScore, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*types.UserPrefScore
	for _, row := range f.rows {
		if row.UserID == userID {
			out = append(out, row)
		}
	}
	if k > 0 && len(out) > k {
		out = out[:k]
	}
	return out, nil
}

func newTestPrefStore(t *testing.T, repo *fakePrefScoreRepo) PrefStoreService {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return NewPrefStoreService(nil, log, repo)
}

func TestPrefStoreAddCreatesThenIncrements(t *testing.T) {
	repo := newFakePrefScoreRepo()
	store := newTestPrefStore(t, repo)
	ctx := context.Background()
	user := uuid.New()

	if err := store.Add(ctx, user, "genre:Pop", 0.7); err != nil {
		t.Fatalf("first add: %v", err)
	}
	if err := store.Add(ctx, user, "genre:Pop", 0.7); err != nil {
		t.Fatalf("second add: %v", err)
	}
	score, err := store.Get(ctx, user, "genre:Pop")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if score != 1.4 {
		t.Fatalf("score=%v, want 1.4", score)
	}
	if repo.createCalls != 1 {
		t.Fatalf("createCalls=%d, want 1", repo.createCalls)
	}
}

func TestPrefStoreAddRecoversFromCreateRace(t *testing.T) {
	repo := newFakePrefScoreRepo()
	repo.createConflicts = 1
	store := newTestPrefStore(t, repo)
	ctx := context.Background()
	user := uuid.New()

	if err := store.Add(ctx, user, "emotion:JOY", 0.4); err != nil {
		t.Fatalf("add through conflict: %v", err)
	}
	score, err := store.Get(ctx, user, "emotion:JOY")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	// The delta must land exactly once on the winner's row.
	if score != 0.4 {
		t.Fatalf("score=%v, want 0.4", score)
	}
	if repo.incrementCalls != 2 {
		t.Fatalf("incrementCalls=%d, want 2 (miss, then retry)", repo.incrementCalls)
	}
}

func TestPrefStoreAddConcurrentDeltas(t *testing.T) {
	repo := newFakePrefScoreRepo()
	store := newTestPrefStore(t, repo)
	ctx := context.Background()
	user := uuid.New()

	const writers = 8
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- store.Add(ctx, user, "author:x", 1.0)
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("add: %v", err)
		}
	}

	score, err := store.Get(ctx, user, "author:x")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	// One writer creates the row, the rest lose the insert race and must
	// fall back to incrementing it. No delta may be lost or double-applied.
	if score != float64(writers) {
		t.Fatalf("score=%v, want %v", score, float64(writers))
	}
}

func TestPrefStoreAddNegativeDelta(t *testing.T) {
	repo := newFakePrefScoreRepo()
	store := newTestPrefStore(t, repo)
	ctx := context.Background()
	user := uuid.New()

	if err := store.Add(ctx, user, "author:x", 1.0); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := store.Add(ctx, user, "author:x", -1.0); err != nil {
		t.Fatalf("negative add: %v", err)
	}
	score, err := store.Get(ctx, user, "author:x")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if score != 0 {
		t.Fatalf("score=%v, want 0 after like/unlike pair", score)
	}
}

func TestPrefStoreGetMissingKeyIsZero(t *testing.T) {
	store := newTestPrefStore(t, newFakePrefScoreRepo())

	score, err := store.Get(context.Background(), uuid.New(), "genre:Jazz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if score != 0 {
		t.Fatalf("score=%v, want 0 for missing row", score)
	}
}

func TestPrefStoreBatchGetSkipsMissing(t *testing.T) {
	repo := newFakePrefScoreRepo()
	store := newTestPrefStore(t, repo)
	ctx := context.Background()
	user := uuid.New()

	if err := store.Add(ctx, user, "genre:Pop", 0.7); err != nil {
		t.Fatalf("add: %v", err)
	}
	scores, err := store.BatchGet(ctx, user, []string{"genre:Pop", "genre:Rock"})
	if err != nil {
		t.Fatalf("batch get: %v", err)
	}
	if len(scores) != 1 {
		t.Fatalf("scores=%v, want only the existing key", scores)
	}
	if scores["genre:Pop"] != 0.7 {
		t.Fatalf("genre:Pop=%v, want 0.7", scores["genre:Pop"])
	}
}
