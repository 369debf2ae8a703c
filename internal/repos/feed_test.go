package repos

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/hejz/hejz-backend/internal/logger"
	"github.com/hejz/hejz-backend/internal/types"
)

func openTestDB(t *testing.T) (*gorm.DB, *logger.Logger) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&types.User{},
		&types.Follow{},
		&types.Feed{},
		&types.FeedMedia{},
		&types.UserPrefScore{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return db, log
}

func insertFeed(t *testing.T, repo FeedRepo, author uuid.UUID, createdAt time.Time) *types.Feed {
	t.Helper()
	feed, err := repo.Create(context.Background(), nil, &types.Feed{
		AuthorID:  author,
		Content:   "post",
		CreatedAt: createdAt,
	}, nil)
	if err != nil {
		t.Fatalf("insert feed: %v", err)
	}
	return feed
}

func follow(t *testing.T, db *gorm.DB, follower, followee uuid.UUID) {
	t.Helper()
	err := db.Create(&types.Follow{
		FollowerID: follower,
		FolloweeID: followee,
		CreatedAt:  time.Now(),
	}).Error
	if err != nil {
		t.Fatalf("insert follow: %v", err)
	}
}

func TestTimelineWindowVisibility(t *testing.T) {
	db, log := openTestDB(t)
	repo := NewFeedRepo(db, log)
	ctx := context.Background()

	viewer := uuid.New()
	followed := uuid.New()
	stranger := uuid.New()
	follow(t, db, viewer, followed)

	now := time.Now().UTC().Truncate(time.Second)
	own := insertFeed(t, repo, viewer, now)
	visible := insertFeed(t, repo, followed, now.Add(-time.Second))
	insertFeed(t, repo, stranger, now.Add(-2*time.Second))

	feeds, err := repo.TimelineWindow(ctx, nil, viewer, nil, nil, 10)
	if err != nil {
		t.Fatalf("timeline window: %v", err)
	}
	if len(feeds) != 2 {
		t.Fatalf("got %d rows, want own post + followed post", len(feeds))
	}
	if feeds[0].ID != own.ID || feeds[1].ID != visible.ID {
		t.Fatalf("order = [%d %d], want [%d %d]", feeds[0].ID, feeds[1].ID, own.ID, visible.ID)
	}
}

func TestTimelineWindowExcludesDeleted(t *testing.T) {
	db, log := openTestDB(t)
	repo := NewFeedRepo(db, log)
	ctx := context.Background()

	viewer := uuid.New()
	now := time.Now().UTC().Truncate(time.Second)
	kept := insertFeed(t, repo, viewer, now)
	dropped := insertFeed(t, repo, viewer, now.Add(-time.Second))
	if err := repo.SoftDelete(ctx, nil, dropped.ID); err != nil {
		t.Fatalf("soft delete: %v", err)
	}

	feeds, err := repo.TimelineWindow(ctx, nil, viewer, nil, nil, 10)
	if err != nil {
		t.Fatalf("timeline window: %v", err)
	}
	if len(feeds) != 1 || feeds[0].ID != kept.ID {
		t.Fatalf("got %v, want only feed %d", feeds, kept.ID)
	}
}

// Paging across same-second rows while new rows land must never re-show or
// skip anything older than the cursor.
func TestTimelineWindowKeysetStability(t *testing.T) {
	db, log := openTestDB(t)
	repo := NewFeedRepo(db, log)
	ctx := context.Background()

	viewer := uuid.New()
	base := time.Now().UTC().Truncate(time.Second)
	// Three rows in one second, three in the previous: the id component of
	// the cursor has to carry the ordering inside each second.
	for i := 0; i < 3; i++ {
		insertFeed(t, repo, viewer, base)
	}
	for i := 0; i < 3; i++ {
		insertFeed(t, repo, viewer, base.Add(-time.Second))
	}

	page1, err := repo.TimelineWindow(ctx, nil, viewer, nil, nil, 2)
	if err != nil {
		t.Fatalf("page 1: %v", err)
	}
	if len(page1) != 2 {
		t.Fatalf("page 1 len=%d, want 2", len(page1))
	}

	// A newer post arrives between fetches; it must not disturb paging.
	insertFeed(t, repo, viewer, base.Add(time.Second))

	seen := map[int64]bool{page1[0].ID: true, page1[1].ID: true}
	cursor := page1[len(page1)-1]
	for {
		page, err := repo.TimelineWindow(ctx, nil, viewer, &cursor.CreatedAt, &cursor.ID, 2)
		if err != nil {
			t.Fatalf("page after id %d: %v", cursor.ID, err)
		}
		if len(page) == 0 {
			break
		}
		for _, fd := range page {
			if seen[fd.ID] {
				t.Fatalf("feed %d returned twice", fd.ID)
			}
			if fd.CreatedAt.After(cursor.CreatedAt) ||
				(fd.CreatedAt.Equal(cursor.CreatedAt) && fd.ID >= cursor.ID) {
				t.Fatalf("feed %d not strictly after cursor (%v, %d)", fd.ID, cursor.CreatedAt, cursor.ID)
			}
			seen[fd.ID] = true
		}
		cursor = page[len(page)-1]
	}
	// All six pre-cursor rows, none twice; the late arrival stays out.
	if len(seen) != 6 {
		t.Fatalf("saw %d distinct rows, want 6", len(seen))
	}
}

func TestAuthorWindowScopesToAuthor(t *testing.T) {
	db, log := openTestDB(t)
	repo := NewFeedRepo(db, log)
	ctx := context.Background()

	author := uuid.New()
	other := uuid.New()
	now := time.Now().UTC().Truncate(time.Second)
	mine := insertFeed(t, repo, author, now)
	insertFeed(t, repo, other, now)

	feeds, err := repo.AuthorWindow(ctx, nil, author, nil, nil, 10)
	if err != nil {
		t.Fatalf("author window: %v", err)
	}
	if len(feeds) != 1 || feeds[0].ID != mine.ID {
		t.Fatalf("got %v, want only feed %d", feeds, mine.ID)
	}
}

func TestMediaByFeedIDsOrdering(t *testing.T) {
	db, log := openTestDB(t)
	repo := NewFeedRepo(db, log)
	ctx := context.Background()

	author := uuid.New()
	now := time.Now().UTC().Truncate(time.Second)
	feed, err := repo.Create(ctx, nil, &types.Feed{AuthorID: author, Content: "p", CreatedAt: now}, []*types.FeedMedia{
		{URL: "b", Ord: 1, Type: types.MediaTypeImage},
		{URL: "a", Ord: 0, Type: types.MediaTypeImage},
	})
	if err != nil {
		t.Fatalf("create with media: %v", err)
	}

	media, err := repo.MediaByFeedIDs(ctx, nil, []int64{feed.ID})
	if err != nil {
		t.Fatalf("media: %v", err)
	}
	if len(media) != 2 {
		t.Fatalf("media len=%d, want 2", len(media))
	}
	if media[0].Ord != 0 || media[1].Ord != 1 {
		t.Fatalf("media not sorted by ord: %+v", media)
	}

	empty, err := repo.MediaByFeedIDs(ctx, nil, nil)
	if err != nil {
		t.Fatalf("media with no ids: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("got %d rows for empty id list", len(empty))
	}
}
