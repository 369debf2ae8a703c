package services

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/hejz/hejz-backend/internal/logger"
	"github.com/hejz/hejz-backend/internal/pkg/apperrors"
	"github.com/hejz/hejz-backend/internal/repos"
	"github.com/hejz/hejz-backend/internal/types"
)

const maxContentLen = 255

type MediaInput struct {
	URL          string          `json:"url" binding:"required"`
	Type         types.MediaType `json:"type"`
	ThumbnailURL string          `json:"thumbnail_url"`
	DurationMs   *int64          `json:"duration_ms"`
	MimeType     string          `json:"mime_type"`
}

type CreateFeedInput struct {
	Content string       `json:"content" binding:"required"`
	SongID  *int64       `json:"song_id"`
	Genre   *string      `json:"genre"`
	Emotion *string      `json:"emotion"`
	Media   []MediaInput `json:"media"`
}

// FeedItem is one hydrated post: the row itself plus everything a client
// renders alongside it.
type FeedItem struct {
	Feed         *types.Feed        `json:"feed"`
	Author       *types.User        `json:"author,omitempty"`
	Media        []*types.FeedMedia `json:"media,omitempty"`
	Song         *types.SavedSong   `json:"song,omitempty"`
	LikeCount    int64              `json:"like_count"`
	CommentCount int64              `json:"comment_count"`
}

type FeedPage struct {
	Items      []*FeedItem `json:"items"`
	NextCursor *string     `json:"next_cursor"`
}

// FeedCatalog is the tag vocabulary CreateFeed validates against.
type FeedCatalog interface {
	ValidGenre(genre string) bool
	ValidEmotion(emotion string) bool
}

type FeedService interface {
	CreateFeed(ctx context.Context, authorID uuid.UUID, in CreateFeedInput) (*FeedItem, error)
	GetFeed(ctx context.Context, feedID int64) (*FeedItem, error)
	DeleteFeed(ctx context.Context, userID uuid.UUID, feedID int64) error
	// GetTimeline is the personalized home feed: keyset window over the
	// requester's follow graph, re-ranked, truncated to limit.
	GetTimeline(ctx context.Context, userID uuid.UUID, cursor string, limit int) (*FeedPage, error)
	// GetAuthorFeeds pages one author's posts in plain keyset order.
	GetAuthorFeeds(ctx context.Context, viewerID, authorID uuid.UUID, cursor string, limit int) (*FeedPage, error)
	// TimelineScores returns the per-item score breakdown for the same window
	// GetTimeline would rank. Diagnostic surface, no hydration.
	TimelineScores(ctx context.Context, userID uuid.UUID, cursor string, limit int) ([]ScoreBreakdown, error)
	// TopPreferences exposes the user's highest accumulated affinity weights.
	TopPreferences(ctx context.Context, userID uuid.UUID, k int) ([]*types.UserPrefScore, error)
}

type feedService struct {
	db       *gorm.DB
	log      *logger.Logger
	catalog  FeedCatalog
	feeds    repos.FeedRepo
	users    repos.UserRepo
	songs    repos.SavedSongRepo
	likes    repos.FeedLikeRepo
	comments repos.CommentRepo
	prefs    PrefStoreService
}

func NewFeedService(
	db *gorm.DB,
	log *logger.Logger,
	catalog FeedCatalog,
	feeds repos.FeedRepo,
	users repos.UserRepo,
	songs repos.SavedSongRepo,
	likes repos.FeedLikeRepo,
	comments repos.CommentRepo,
	prefs PrefStoreService,
) FeedService {
	serviceLog := log.With("service", "FeedService")
	return &feedService{
		db:       db,
		log:      serviceLog,
		catalog:  catalog,
		feeds:    feeds,
		users:    users,
		songs:    songs,
		likes:    likes,
		comments: comments,
		prefs:    prefs,
	}
}

func (fs *feedService) CreateFeed(ctx context.Context, authorID uuid.UUID, in CreateFeedInput) (*FeedItem, error) {
	if in.Content == "" {
		return nil, fmt.Errorf("%w: content is required", apperrors.ErrInvalidArgument)
	}
	if utf8.RuneCountInString(in.Content) > maxContentLen {
		return nil, fmt.Errorf("%w: content exceeds %d characters", apperrors.ErrInvalidArgument, maxContentLen)
	}
	if in.Genre != nil && !fs.catalog.ValidGenre(*in.Genre) {
		return nil, fmt.Errorf("%w: unknown genre %q", apperrors.ErrInvalidArgument, *in.Genre)
	}
	if in.Emotion != nil && !fs.catalog.ValidEmotion(*in.Emotion) {
		return nil, fmt.Errorf("%w: unknown emotion %q", apperrors.ErrInvalidArgument, *in.Emotion)
	}
	var song *types.SavedSong
	if in.SongID != nil {
		s, err := fs.songs.GetByID(ctx, nil, *in.SongID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("%w: song %d", apperrors.ErrNotFound, *in.SongID)
			}
			return nil, fmt.Errorf("%w: load song: %v", apperrors.ErrUpstreamUnavailable, err)
		}
		song = s
	}

	// Whole-second timestamps keep the pagination cursor lossless.
	now := time.Now().UTC().Truncate(time.Second)
	feed := &types.Feed{
		AuthorID:  authorID,
		Content:   in.Content,
		SongID:    in.SongID,
		Genre:     in.Genre,
		Emotion:   in.Emotion,
		CreatedAt: now,
	}
	media := make([]*types.FeedMedia, 0, len(in.Media))
	for i, m := range in.Media {
		mediaType := m.Type
		if mediaType == "" {
			mediaType = types.MediaTypeImage
		}
		if mediaType != types.MediaTypeImage && mediaType != types.MediaTypeVideo {
			return nil, fmt.Errorf("%w: unknown media type %q", apperrors.ErrInvalidArgument, m.Type)
		}
		media = append(media, &types.FeedMedia{
			URL:          m.URL,
			Ord:          i,
			Type:         mediaType,
			ThumbnailURL: m.ThumbnailURL,
			DurationMs:   m.DurationMs,
			MimeType:     m.MimeType,
		})
	}

	created, err := fs.feeds.Create(ctx, nil, feed, media)
	if err != nil {
		return nil, fmt.Errorf("%w: create feed: %v", apperrors.ErrUpstreamUnavailable, err)
	}
	fs.log.Info("feed created", "feed_id", created.ID, "author_id", authorID)
	return &FeedItem{Feed: created, Media: media, Song: song}, nil
}

func (fs *feedService) GetFeed(ctx context.Context, feedID int64) (*FeedItem, error) {
	feed, err := fs.feeds.GetByID(ctx, nil, feedID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: feed %d", apperrors.ErrNotFound, feedID)
		}
		return nil, fmt.Errorf("%w: load feed: %v", apperrors.ErrUpstreamUnavailable, err)
	}
	if feed.IsDeleted {
		return nil, fmt.Errorf("%w: feed %d", apperrors.ErrNotFound, feedID)
	}
	items, err := fs.hydrate(ctx, []*types.Feed{feed})
	if err != nil {
		return nil, err
	}
	return items[0], nil
}

func (fs *feedService) DeleteFeed(ctx context.Context, userID uuid.UUID, feedID int64) error {
	feed, err := fs.feeds.GetByID(ctx, nil, feedID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: feed %d", apperrors.ErrNotFound, feedID)
		}
		return fmt.Errorf("%w: load feed: %v", apperrors.ErrUpstreamUnavailable, err)
	}
	if feed.IsDeleted {
		return fmt.Errorf("%w: feed %d", apperrors.ErrNotFound, feedID)
	}
	if feed.AuthorID != userID {
		return fmt.Errorf("%w: feed %d belongs to another user", apperrors.ErrForbidden, feedID)
	}
	if err := fs.feeds.SoftDelete(ctx, nil, feedID); err != nil {
		return fmt.Errorf("%w: delete feed: %v", apperrors.ErrUpstreamUnavailable, err)
	}
	fs.log.Info("feed deleted", "feed_id", feedID, "user_id", userID)
	return nil
}

func (fs *feedService) GetTimeline(ctx context.Context, userID uuid.UUID, cursor string, limit int) (*FeedPage, error) {
	ranked, err := fs.rankedTimelineWindow(ctx, userID, cursor, limit)
	if err != nil {
		return nil, err
	}
	return fs.buildPage(ctx, ranked)
}

func (fs *feedService) GetAuthorFeeds(ctx context.Context, viewerID, authorID uuid.UUID, cursor string, limit int) (*FeedPage, error) {
	cur, err := DecodeCursor(cursor)
	if err != nil {
		return nil, err
	}
	limit = clampLimit(limit)

	var cursorCreatedAt *time.Time
	var cursorID *int64
	if cur != nil {
		cursorCreatedAt = &cur.CreatedAt
		cursorID = &cur.ID
	}
	feeds, err := fs.feeds.AuthorWindow(ctx, nil, authorID, cursorCreatedAt, cursorID, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch author feeds: %v", apperrors.ErrUpstreamUnavailable, err)
	}
	if len(feeds) == 0 {
		return &FeedPage{Items: []*FeedItem{}}, nil
	}
	items, err := fs.hydrate(ctx, feeds)
	if err != nil {
		return nil, err
	}
	last := feeds[len(feeds)-1]
	next := EncodeCursor(last.CreatedAt, last.ID)
	return &FeedPage{Items: items, NextCursor: &next}, nil
}

func (fs *feedService) TimelineScores(ctx context.Context, userID uuid.UUID, cursor string, limit int) ([]ScoreBreakdown, error) {
	ranked, err := fs.rankedTimelineWindow(ctx, userID, cursor, limit)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	breakdowns := make([]ScoreBreakdown, 0, len(ranked))
	for _, r := range ranked {
		breakdowns = append(breakdowns, breakdownOf(r, now))
	}
	if len(breakdowns) > 0 {
		top := breakdowns[0]
		fs.log.Debug("timeline scores computed",
			"user_id", userID,
			"items", len(breakdowns),
			"top_feed_id", top.FeedID,
			"top_total", top.TotalScore,
			"top_age", formatAge(top.AgeSeconds))
	}
	return breakdowns, nil
}

func (fs *feedService) TopPreferences(ctx context.Context, userID uuid.UUID, k int) ([]*types.UserPrefScore, error) {
	rows, err := fs.prefs.TopK(ctx, userID, k)
	if err != nil {
		return nil, fmt.Errorf("%w: load top preferences: %v", apperrors.ErrUpstreamUnavailable, err)
	}
	return rows, nil
}

// rankedTimelineWindow is the shared fetch-score-sort-truncate pass behind
// the timeline and its score-debug view: decode the cursor, over-fetch the
// keyset window, load the preference weights the candidates reference, rank.
func (fs *feedService) rankedTimelineWindow(ctx context.Context, userID uuid.UUID, cursor string, limit int) ([]RankedFeed, error) {
	cur, err := DecodeCursor(cursor)
	if err != nil {
		return nil, err
	}
	limit = clampLimit(limit)

	var cursorCreatedAt *time.Time
	var cursorID *int64
	if cur != nil {
		cursorCreatedAt = &cur.CreatedAt
		cursorID = &cur.ID
	}
	window := limit * rerankWindowMultiplier
	feeds, err := fs.feeds.TimelineWindow(ctx, nil, userID, cursorCreatedAt, cursorID, window)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch timeline window: %v", apperrors.ErrUpstreamUnavailable, err)
	}
	if len(feeds) == 0 {
		return nil, nil
	}

	prefs, err := fs.prefs.BatchGet(ctx, userID, prefKeysFor(feeds))
	if err != nil {
		return nil, fmt.Errorf("%w: load preference scores: %v", apperrors.ErrUpstreamUnavailable, err)
	}
	return rankFeeds(feeds, prefs, time.Now(), limit), nil
}

func (fs *feedService) buildPage(ctx context.Context, ranked []RankedFeed) (*FeedPage, error) {
	if len(ranked) == 0 {
		return &FeedPage{Items: []*FeedItem{}}, nil
	}
	feeds := make([]*types.Feed, 0, len(ranked))
	for _, r := range ranked {
		feeds = append(feeds, r.Feed)
	}
	items, err := fs.hydrate(ctx, feeds)
	if err != nil {
		return nil, err
	}
	last := ranked[len(ranked)-1].Feed
	next := EncodeCursor(last.CreatedAt, last.ID)
	return &FeedPage{Items: items, NextCursor: &next}, nil
}

// hydrate attaches authors, media, songs and counters to a page of feeds.
// The lookups are independent, so they run concurrently.
func (fs *feedService) hydrate(ctx context.Context, feeds []*types.Feed) ([]*FeedItem, error) {
	feedIDs := make([]int64, 0, len(feeds))
	authorIDSet := make(map[uuid.UUID]struct{}, len(feeds))
	authorIDs := make([]uuid.UUID, 0, len(feeds))
	songIDSet := make(map[int64]struct{})
	songIDs := make([]int64, 0)
	for _, f := range feeds {
		feedIDs = append(feedIDs, f.ID)
		if _, ok := authorIDSet[f.AuthorID]; !ok {
			authorIDSet[f.AuthorID] = struct{}{}
			authorIDs = append(authorIDs, f.AuthorID)
		}
		if f.SongID != nil {
			if _, ok := songIDSet[*f.SongID]; !ok {
				songIDSet[*f.SongID] = struct{}{}
				songIDs = append(songIDs, *f.SongID)
			}
		}
	}

	var (
		authors       []*types.User
		media         []*types.FeedMedia
		songs         []*types.SavedSong
		likeCounts    map[int64]int64
		commentCounts map[int64]int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		authors, err = fs.users.GetByIDs(gctx, nil, authorIDs)
		return err
	})
	g.Go(func() error {
		var err error
		media, err = fs.feeds.MediaByFeedIDs(gctx, nil, feedIDs)
		return err
	})
	g.Go(func() error {
		var err error
		likeCounts, err = fs.likes.CountByFeedIDs(gctx, nil, feedIDs)
		return err
	})
	g.Go(func() error {
		var err error
		commentCounts, err = fs.comments.CountByFeedIDs(gctx, nil, feedIDs)
		return err
	})
	if len(songIDs) > 0 {
		g.Go(func() error {
			var err error
			songs, err = fs.songs.GetByIDs(gctx, nil, songIDs)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%w: hydrate feed page: %v", apperrors.ErrUpstreamUnavailable, err)
	}

	authorByID := make(map[uuid.UUID]*types.User, len(authors))
	for _, u := range authors {
		authorByID[u.ID] = u
	}
	mediaByFeed := make(map[int64][]*types.FeedMedia, len(feeds))
	for _, m := range media {
		mediaByFeed[m.FeedID] = append(mediaByFeed[m.FeedID], m)
	}
	songByID := make(map[int64]*types.SavedSong, len(songs))
	for _, s := range songs {
		songByID[s.ID] = s
	}

	items := make([]*FeedItem, 0, len(feeds))
	for _, f := range feeds {
		item := &FeedItem{
			Feed:         f,
			Author:       authorByID[f.AuthorID],
			Media:        mediaByFeed[f.ID],
			LikeCount:    likeCounts[f.ID],
			CommentCount: commentCounts[f.ID],
		}
		if f.SongID != nil {
			item.Song = songByID[*f.SongID]
		}
		items = append(items, item)
	}
	return items, nil
}
