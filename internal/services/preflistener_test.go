package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/hejz/hejz-backend/internal/logger"
	"github.com/hejz/hejz-backend/internal/types"
)

type recordedDelta struct {
	userID uuid.UUID
	key    string
	delta  float64
}

// fakePrefStore records every Add and signals applied on each one so tests
// can wait for the worker goroutine without sleeping.
type fakePrefStore struct {
	mu      sync.Mutex
	adds    []recordedDelta
	applied chan struct{}
}

func newFakePrefStore() *fakePrefStore {
	return &fakePrefStore{applied: make(chan struct{}, 64)}
}

func (f *fakePrefStore) Add(_ context.Context, userID uuid.UUID, key string, delta float64) error {
	f.mu.Lock()
	f.adds = append(f.adds, recordedDelta{userID: userID, key: key, delta: delta})
	f.mu.Unlock()
	f.applied <- struct{}{}
	return nil
}

func (f *fakePrefStore) Get(context.Context, uuid.UUID, string) (float64, error) {
	return 0, nil
}

func (f *fakePrefStore) BatchGet(context.Context, uuid.UUID, []string) (map[string]float64, error) {
	return map[string]float64{}, nil
}

func (f *fakePrefStore) TopK(context.Context, uuid.UUID, int) ([]*types.UserPrefScore, error) {
	return nil, nil
}

func (f *fakePrefStore) recorded() []recordedDelta {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]recordedDelta, len(f.adds))
	copy(out, f.adds)
	return out
}

func newTestListener(t *testing.T, store PrefStoreService) *prefListenerService {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return NewPrefListenerService(log, store).(*prefListenerService)
}

func waitApplied(t *testing.T, store *fakePrefStore, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-store.applied:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for delta %d of %d", i+1, n)
		}
	}
}

func TestPrefListenerLikeAppliesAllDeltas(t *testing.T) {
	store := newFakePrefStore()
	pl := newTestListener(t, store)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pl.StartWorker(ctx)

	user := uuid.New()
	author := uuid.New()
	feed := &types.Feed{ID: 1, AuthorID: author, Genre: strptr("Pop"), Emotion: strptr("JOY")}

	pl.FeedLiked(user, feed)
	waitApplied(t, store, 3)

	adds := store.recorded()
	want := map[string]float64{
		authorPrefKey(author): 1.0,
		"genre:Pop":           0.7,
		"emotion:JOY":         0.4,
	}
	if len(adds) != len(want) {
		t.Fatalf("got %d deltas, want %d: %+v", len(adds), len(want), adds)
	}
	for _, a := range adds {
		if a.userID != user {
			t.Fatalf("delta for wrong user: %+v", a)
		}
		if want[a.key] != a.delta {
			t.Fatalf("key %q delta=%v, want %v", a.key, a.delta, want[a.key])
		}
	}
}

func TestPrefListenerUnlikeNegatesDeltas(t *testing.T) {
	store := newFakePrefStore()
	pl := newTestListener(t, store)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pl.StartWorker(ctx)

	user := uuid.New()
	author := uuid.New()
	feed := &types.Feed{ID: 2, AuthorID: author, Genre: strptr("Rock")}

	pl.FeedUnliked(user, feed)
	waitApplied(t, store, 2)

	for _, a := range store.recorded() {
		if a.delta >= 0 {
			t.Fatalf("unlike delta not negated: %+v", a)
		}
	}
}

func TestPrefListenerSkipsUnsetAttributes(t *testing.T) {
	store := newFakePrefStore()
	pl := newTestListener(t, store)

	user := uuid.New()
	author := uuid.New()
	empty := ""
	pl.apply(context.Background(), PrefEvent{
		UserID:   user,
		AuthorID: author,
		Genre:    &empty,
	})

	adds := store.recorded()
	if len(adds) != 1 {
		t.Fatalf("got %d deltas, want author only: %+v", len(adds), adds)
	}
	if adds[0].key != authorPrefKey(author) || adds[0].delta != 1.0 {
		t.Fatalf("unexpected delta %+v", adds[0])
	}
}

func TestPrefListenerDropsWhenQueueFull(t *testing.T) {
	store := newFakePrefStore()
	pl := newTestListener(t, store)
	// No worker running: fill the buffer, then one more must not block.
	feed := &types.Feed{ID: 3, AuthorID: uuid.New()}
	for i := 0; i < cap(pl.events)+1; i++ {
		pl.FeedLiked(uuid.New(), feed)
	}
	if len(pl.events) != cap(pl.events) {
		t.Fatalf("queue len=%d, want full at %d", len(pl.events), cap(pl.events))
	}
}
