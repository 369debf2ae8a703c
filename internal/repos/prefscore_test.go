package repos

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/hejz/hejz-backend/internal/types"
)

func TestIncrementExistingReportsRowPresence(t *testing.T) {
	db, log := openTestDB(t)
	repo := NewPrefScoreRepo(db, log)
	ctx := context.Background()
	user := uuid.New()

	updated, err := repo.IncrementExisting(ctx, nil, user, "genre:Pop", 0.7)
	if err != nil {
		t.Fatalf("increment missing row: %v", err)
	}
	if updated {
		t.Fatal("increment reported success with no row")
	}

	now := time.Now()
	err = repo.Create(ctx, nil, &types.UserPrefScore{
		UserID: user, Key: "genre:Pop", Score: 0.7, CreatedAt: now, UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	updated, err = repo.IncrementExisting(ctx, nil, user, "genre:Pop", 0.7)
	if err != nil {
		t.Fatalf("increment existing row: %v", err)
	}
	if !updated {
		t.Fatal("increment missed the existing row")
	}
	row, err := repo.GetByUserAndKey(ctx, nil, user, "genre:Pop")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if row == nil || row.Score != 1.4 {
		t.Fatalf("row=%+v, want score 1.4", row)
	}
}

func TestCreateEnforcesUserKeyUniqueness(t *testing.T) {
	db, log := openTestDB(t)
	repo := NewPrefScoreRepo(db, log)
	ctx := context.Background()
	user := uuid.New()
	now := time.Now()

	row := &types.UserPrefScore{UserID: user, Key: "author:x", Score: 1, CreatedAt: now, UpdatedAt: now}
	if err := repo.Create(ctx, nil, row); err != nil {
		t.Fatalf("create: %v", err)
	}
	dup := &types.UserPrefScore{UserID: user, Key: "author:x", Score: 1, CreatedAt: now, UpdatedAt: now}
	if err := repo.Create(ctx, nil, dup); err == nil {
		t.Fatal("duplicate (user, key) insert succeeded")
	}
	// Same key under a different user is a distinct row.
	other := &types.UserPrefScore{UserID: uuid.New(), Key: "author:x", Score: 1, CreatedAt: now, UpdatedAt: now}
	if err := repo.Create(ctx, nil, other); err != nil {
		t.Fatalf("create for second user: %v", err)
	}
}

func TestGetByUserAndKeyMissingIsNil(t *testing.T) {
	db, log := openTestDB(t)
	repo := NewPrefScoreRepo(db, log)

	row, err := repo.GetByUserAndKey(context.Background(), nil, uuid.New(), "genre:Jazz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if row != nil {
		t.Fatalf("row=%+v, want nil for missing key", row)
	}
}

func TestGetByUserAndKeysScopesToUser(t *testing.T) {
	db, log := openTestDB(t)
	repo := NewPrefScoreRepo(db, log)
	ctx := context.Background()
	user := uuid.New()
	other := uuid.New()
	now := time.Now()

	seed := []*types.UserPrefScore{
		{UserID: user, Key: "genre:Pop", Score: 0.7, CreatedAt: now, UpdatedAt: now},
		{UserID: user, Key: "emotion:JOY", Score: 0.4, CreatedAt: now, UpdatedAt: now},
		{UserID: other, Key: "genre:Pop", Score: 9, CreatedAt: now, UpdatedAt: now},
	}
	for _, r := range seed {
		if err := repo.Create(ctx, nil, r); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	rows, err := repo.GetByUserAndKeys(ctx, nil, user, []string{"genre:Pop", "emotion:JOY", "genre:Rock"})
	if err != nil {
		t.Fatalf("batch get: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	for _, r := range rows {
		if r.UserID != user {
			t.Fatalf("row for wrong user: %+v", r)
		}
		if r.Score == 9 {
			t.Fatal("other user's score leaked")
		}
	}

	none, err := repo.GetByUserAndKeys(ctx, nil, user, nil)
	if err != nil {
		t.Fatalf("batch get empty keys: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("got %d rows for empty key list", len(none))
	}
}

func TestTopKByUserOrdersByScore(t *testing.T) {
	db, log := openTestDB(t)
	repo := NewPrefScoreRepo(db, log)
	ctx := context.Background()
	user := uuid.New()
	now := time.Now()

	for _, r := range []*types.UserPrefScore{
		{UserID: user, Key: "genre:Pop", Score: 2.1, CreatedAt: now, UpdatedAt: now},
		{UserID: user, Key: "genre:Rock", Score: 0.7, CreatedAt: now, UpdatedAt: now},
		{UserID: user, Key: "emotion:JOY", Score: 4.0, CreatedAt: now, UpdatedAt: now},
	} {
		if err := repo.Create(ctx, nil, r); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	rows, err := repo.TopKByUser(ctx, nil, user, 2)
	if err != nil {
		t.Fatalf("topk: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[0].Key != "emotion:JOY" || rows[1].Key != "genre:Pop" {
		t.Fatalf("order = [%s %s], want highest scores first", rows[0].Key, rows[1].Key)
	}
}
