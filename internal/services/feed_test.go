package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hejz/hejz-backend/internal/logger"
	"github.com/hejz/hejz-backend/internal/pkg/apperrors"
	"github.com/hejz/hejz-backend/internal/types"
)

// fakeFeedRepo serves keyset windows from an in-memory slice held in
// (created_at DESC, id DESC) order, the same contract the SQL repo honors.
type fakeFeedRepo struct {
	feeds  []*types.Feed
	nextID int64
}

func (f *fakeFeedRepo) Create(_ context.Context, _ *gorm.DB, feed *types.Feed, _ []*types.FeedMedia) (*types.Feed, error) {
	f.nextID++
	feed.ID = f.nextID
	f.feeds = append(f.feeds, feed)
	return feed, nil
}

func (f *fakeFeedRepo) GetByID(_ context.Context, _ *gorm.DB, feedID int64) (*types.Feed, error) {
	for _, fd := range f.feeds {
		if fd.ID == feedID {
			return fd, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func afterCursor(fd *types.Feed, cursorCreatedAt *time.Time, cursorID *int64) bool {
	if cursorCreatedAt == nil || cursorID == nil {
		return true
	}
	if fd.CreatedAt.Before(*cursorCreatedAt) {
		return true
	}
	return fd.CreatedAt.Equal(*cursorCreatedAt) && fd.ID < *cursorID
}

func (f *fakeFeedRepo) TimelineWindow(_ context.Context, _ *gorm.DB, _ uuid.UUID, cursorCreatedAt *time.Time, cursorID *int64, limit int) ([]*types.Feed, error) {
	var out []*types.Feed
	for _, fd := range f.feeds {
		if fd.IsDeleted || !afterCursor(fd, cursorCreatedAt, cursorID) {
			continue
		}
		out = append(out, fd)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeFeedRepo) AuthorWindow(_ context.Context, _ *gorm.DB, authorID uuid.UUID, cursorCreatedAt *time.Time, cursorID *int64, limit int) ([]*types.Feed, error) {
	var out []*types.Feed
	for _, fd := range f.feeds {
		if fd.IsDeleted || fd.AuthorID != authorID || !afterCursor(fd, cursorCreatedAt, cursorID) {
			continue
		}
		out = append(out, fd)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeFeedRepo) SoftDelete(_ context.Context, _ *gorm.DB, feedID int64) error {
	for _, fd := range f.feeds {
		if fd.ID == feedID {
			fd.IsDeleted = true
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (f *fakeFeedRepo) MediaByFeedIDs(_ context.Context, _ *gorm.DB, _ []int64) ([]*types.FeedMedia, error) {
	return nil, nil
}

type fakeUserRepo struct{}

func (fakeUserRepo) Create(_ context.Context, _ *gorm.DB, users []*types.User) ([]*types.User, error) {
	return users, nil
}

func (fakeUserRepo) GetByIDs(_ context.Context, _ *gorm.DB, userIDs []uuid.UUID) ([]*types.User, error) {
	out := make([]*types.User, 0, len(userIDs))
	for _, id := range userIDs {
		out = append(out, &types.User{ID: id, Username: "u-" + id.String()[:8]})
	}
	return out, nil
}

func (fakeUserRepo) GetByUsernames(context.Context, *gorm.DB, []string) ([]*types.User, error) {
	return nil, nil
}

func (fakeUserRepo) GetByEmails(context.Context, *gorm.DB, []string) ([]*types.User, error) {
	return nil, nil
}

func (fakeUserRepo) UsernameExists(context.Context, *gorm.DB, string) (bool, error) {
	return false, nil
}

func (fakeUserRepo) EmailExists(context.Context, *gorm.DB, string) (bool, error) {
	return false, nil
}

func (fakeUserRepo) SearchByUsername(context.Context, *gorm.DB, string, int) ([]*types.User, error) {
	return nil, nil
}

func (fakeUserRepo) UpdateFields(context.Context, *gorm.DB, uuid.UUID, map[string]any) error {
	return nil
}

type fakeSongRepo struct{}

func (fakeSongRepo) Create(_ context.Context, _ *gorm.DB, songs []*types.SavedSong) ([]*types.SavedSong, error) {
	return songs, nil
}

func (fakeSongRepo) GetByID(context.Context, *gorm.DB, int64) (*types.SavedSong, error) {
	return nil, gorm.ErrRecordNotFound
}

func (fakeSongRepo) GetByIDs(context.Context, *gorm.DB, []int64) ([]*types.SavedSong, error) {
	return nil, nil
}

func (fakeSongRepo) GetByTaskID(context.Context, *gorm.DB, string) ([]*types.SavedSong, error) {
	return nil, nil
}

func (fakeSongRepo) ListByOwner(context.Context, *gorm.DB, uuid.UUID) ([]*types.SavedSong, error) {
	return nil, nil
}

type fakeLikeRepo struct{}

func (fakeLikeRepo) Create(context.Context, *gorm.DB, *types.FeedLike) error { return nil }

func (fakeLikeRepo) Delete(context.Context, *gorm.DB, int64, uuid.UUID) (bool, error) {
	return false, nil
}

func (fakeLikeRepo) Exists(context.Context, *gorm.DB, int64, uuid.UUID) (bool, error) {
	return false, nil
}

func (fakeLikeRepo) ListByFeed(context.Context, *gorm.DB, int64) ([]*types.FeedLike, error) {
	return nil, nil
}

func (fakeLikeRepo) ListByUser(context.Context, *gorm.DB, uuid.UUID) ([]*types.FeedLike, error) {
	return nil, nil
}

func (fakeLikeRepo) CountByFeedIDs(context.Context, *gorm.DB, []int64) (map[int64]int64, error) {
	return map[int64]int64{}, nil
}

type fakeCommentRepo struct{}

func (fakeCommentRepo) Create(_ context.Context, _ *gorm.DB, c *types.Comment) (*types.Comment, error) {
	return c, nil
}

func (fakeCommentRepo) GetByID(context.Context, *gorm.DB, int64) (*types.Comment, error) {
	return nil, gorm.ErrRecordNotFound
}

func (fakeCommentRepo) FeedWindow(context.Context, *gorm.DB, int64, *time.Time, *int64, int) ([]*types.Comment, error) {
	return nil, nil
}

func (fakeCommentRepo) SoftDelete(context.Context, *gorm.DB, int64) error { return nil }

func (fakeCommentRepo) CountByFeedIDs(context.Context, *gorm.DB, []int64) (map[int64]int64, error) {
	return map[int64]int64{}, nil
}

// staticPrefStore hands out a fixed score map; feed tests never write.
type staticPrefStore struct {
	scores map[string]float64
}

func (s staticPrefStore) Add(context.Context, uuid.UUID, string, float64) error { return nil }

func (s staticPrefStore) Get(_ context.Context, _ uuid.UUID, key string) (float64, error) {
	return s.scores[key], nil
}

func (s staticPrefStore) BatchGet(_ context.Context, _ uuid.UUID, keys []string) (map[string]float64, error) {
	out := make(map[string]float64, len(keys))
	for _, k := range keys {
		if v, ok := s.scores[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

func (s staticPrefStore) TopK(context.Context, uuid.UUID, int) ([]*types.UserPrefScore, error) {
	return nil, nil
}

type allowAllCatalog struct{}

func (allowAllCatalog) ValidGenre(string) bool   { return true }
func (allowAllCatalog) ValidEmotion(string) bool { return true }

func newTestFeedService(t *testing.T, repo *fakeFeedRepo, prefs PrefStoreService) FeedService {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	if prefs == nil {
		prefs = staticPrefStore{}
	}
	return NewFeedService(nil, log, allowAllCatalog{}, repo, fakeUserRepo{}, fakeSongRepo{}, fakeLikeRepo{}, fakeCommentRepo{}, prefs)
}

// seedFeeds inserts n posts by author, one second apart, newest first in the
// backing slice the way the repo returns them.
func seedFeeds(repo *fakeFeedRepo, author uuid.UUID, n int, newest time.Time) {
	for i := 0; i < n; i++ {
		repo.nextID++
		repo.feeds = append(repo.feeds, &types.Feed{
			ID:        repo.nextID,
			AuthorID:  author,
			Content:   "post",
			CreatedAt: newest.Add(-time.Duration(i) * time.Second),
		})
	}
}

func TestGetTimelineEmptyWindow(t *testing.T) {
	svc := newTestFeedService(t, &fakeFeedRepo{}, nil)

	page, err := svc.GetTimeline(context.Background(), uuid.New(), "", 20)
	if err != nil {
		t.Fatalf("timeline: %v", err)
	}
	if len(page.Items) != 0 {
		t.Fatalf("items=%d, want 0", len(page.Items))
	}
	if page.NextCursor != nil {
		t.Fatalf("next cursor=%q, want nil at end of feed", *page.NextCursor)
	}
}

func TestGetTimelineInvalidCursor(t *testing.T) {
	svc := newTestFeedService(t, &fakeFeedRepo{}, nil)

	_, err := svc.GetTimeline(context.Background(), uuid.New(), "not-a-cursor", 20)
	if !errors.Is(err, apperrors.ErrInvalidCursor) {
		t.Fatalf("err=%v, want ErrInvalidCursor", err)
	}
}

func TestGetTimelineZeroPrefsKeepsKeysetOrder(t *testing.T) {
	repo := &fakeFeedRepo{}
	author := uuid.New()
	newest := time.Now().UTC().Truncate(time.Second)
	seedFeeds(repo, author, 5, newest)
	svc := newTestFeedService(t, repo, nil)

	page, err := svc.GetTimeline(context.Background(), uuid.New(), "", 5)
	if err != nil {
		t.Fatalf("timeline: %v", err)
	}
	if len(page.Items) != 5 {
		t.Fatalf("items=%d, want 5", len(page.Items))
	}
	for i := 1; i < len(page.Items); i++ {
		prev, cur := page.Items[i-1].Feed, page.Items[i].Feed
		if cur.CreatedAt.After(prev.CreatedAt) {
			t.Fatalf("keyset order broken at %d: %v after %v", i, cur.CreatedAt, prev.CreatedAt)
		}
	}
	last := page.Items[len(page.Items)-1].Feed
	wantCursor := EncodeCursor(last.CreatedAt, last.ID)
	if page.NextCursor == nil || *page.NextCursor != wantCursor {
		t.Fatalf("next cursor=%v, want %q", page.NextCursor, wantCursor)
	}
}

func TestGetTimelinePreferenceBoostReorders(t *testing.T) {
	repo := &fakeFeedRepo{}
	liked := uuid.New()
	other := uuid.New()
	newest := time.Now().UTC().Truncate(time.Second)
	// Newest post is by a stranger; an hour-old post is by a heavily
	// preferred author.
	repo.feeds = []*types.Feed{
		{ID: 2, AuthorID: other, Content: "new", CreatedAt: newest},
		{ID: 1, AuthorID: liked, Content: "old", CreatedAt: newest.Add(-time.Hour)},
	}
	repo.nextID = 2
	prefs := staticPrefStore{scores: map[string]float64{authorPrefKey(liked): 5.0}}
	svc := newTestFeedService(t, repo, prefs)

	page, err := svc.GetTimeline(context.Background(), uuid.New(), "", 2)
	if err != nil {
		t.Fatalf("timeline: %v", err)
	}
	if page.Items[0].Feed.ID != 1 {
		t.Fatalf("boosted post not first, got id %d", page.Items[0].Feed.ID)
	}
	// Cursor tracks the last retained item, not keyset position.
	last := page.Items[len(page.Items)-1].Feed
	wantCursor := EncodeCursor(last.CreatedAt, last.ID)
	if page.NextCursor == nil || *page.NextCursor != wantCursor {
		t.Fatalf("next cursor=%v, want %q", page.NextCursor, wantCursor)
	}
}

func TestGetTimelinePagesWithCursor(t *testing.T) {
	repo := &fakeFeedRepo{}
	author := uuid.New()
	newest := time.Now().UTC().Truncate(time.Second)
	seedFeeds(repo, author, 6, newest)
	svc := newTestFeedService(t, repo, nil)
	ctx := context.Background()
	viewer := uuid.New()

	first, err := svc.GetTimeline(ctx, viewer, "", 3)
	if err != nil {
		t.Fatalf("page 1: %v", err)
	}
	if first.NextCursor == nil {
		t.Fatal("page 1 missing cursor")
	}
	second, err := svc.GetTimeline(ctx, viewer, *first.NextCursor, 3)
	if err != nil {
		t.Fatalf("page 2: %v", err)
	}

	seen := map[int64]bool{}
	for _, it := range first.Items {
		seen[it.Feed.ID] = true
	}
	for _, it := range second.Items {
		if seen[it.Feed.ID] {
			t.Fatalf("feed %d appeared on both pages", it.Feed.ID)
		}
		seen[it.Feed.ID] = true
	}
	if len(seen) != 6 {
		t.Fatalf("saw %d distinct feeds across pages, want 6", len(seen))
	}
}

func TestGetAuthorFeedsFiltersAndPages(t *testing.T) {
	repo := &fakeFeedRepo{}
	author := uuid.New()
	stranger := uuid.New()
	newest := time.Now().UTC().Truncate(time.Second)
	seedFeeds(repo, author, 3, newest)
	seedFeeds(repo, stranger, 3, newest.Add(-time.Minute))
	svc := newTestFeedService(t, repo, nil)

	page, err := svc.GetAuthorFeeds(context.Background(), uuid.New(), author, "", 10)
	if err != nil {
		t.Fatalf("author feeds: %v", err)
	}
	if len(page.Items) != 3 {
		t.Fatalf("items=%d, want 3", len(page.Items))
	}
	for _, it := range page.Items {
		if it.Feed.AuthorID != author {
			t.Fatalf("stranger's post leaked into author page: %+v", it.Feed)
		}
	}
}

func TestCreateFeedValidation(t *testing.T) {
	svc := newTestFeedService(t, &fakeFeedRepo{}, nil)
	ctx := context.Background()
	author := uuid.New()

	cases := []struct {
		name string
		in   CreateFeedInput
	}{
		{name: "empty_content", in: CreateFeedInput{Content: ""}},
		{name: "content_too_long", in: CreateFeedInput{Content: strings.Repeat("a", maxContentLen+1)}},
		{name: "bad_media_type", in: CreateFeedInput{Content: "ok", Media: []MediaInput{{URL: "u", Type: "GIF"}}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateFeed(ctx, author, tc.in)
			if !errors.Is(err, apperrors.ErrInvalidArgument) {
				t.Fatalf("err=%v, want ErrInvalidArgument", err)
			}
		})
	}
}

func TestCreateFeedCountsRunesNotBytes(t *testing.T) {
	repo := &fakeFeedRepo{}
	svc := newTestFeedService(t, repo, nil)

	// 255 multi-byte characters is within the limit even though the byte
	// length is far over it.
	content := strings.Repeat("한", maxContentLen)
	item, err := svc.CreateFeed(context.Background(), uuid.New(), CreateFeedInput{Content: content})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if item.Feed.ID == 0 {
		t.Fatal("feed not persisted")
	}
}

func TestDeleteFeedOwnership(t *testing.T) {
	repo := &fakeFeedRepo{}
	owner := uuid.New()
	newest := time.Now().UTC().Truncate(time.Second)
	seedFeeds(repo, owner, 1, newest)
	svc := newTestFeedService(t, repo, nil)
	ctx := context.Background()

	if err := svc.DeleteFeed(ctx, uuid.New(), 1); !errors.Is(err, apperrors.ErrForbidden) {
		t.Fatalf("err=%v, want ErrForbidden for non-owner", err)
	}
	if err := svc.DeleteFeed(ctx, owner, 1); err != nil {
		t.Fatalf("owner delete: %v", err)
	}
	// Deleted posts vanish from reads.
	if _, err := svc.GetFeed(ctx, 1); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("err=%v, want ErrNotFound after delete", err)
	}
	if err := svc.DeleteFeed(ctx, owner, 1); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("double delete err=%v, want ErrNotFound", err)
	}
}
