package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/hejz/hejz-backend/internal/logger"
	"github.com/hejz/hejz-backend/internal/types"
)

// Per-feature deltas applied when a like lands. An unlike applies the same
// deltas negated, so a like immediately followed by an unlike is a no-op on
// the stored scores.
const (
	deltaAuthor  = 1.0
	deltaGenre   = 0.7
	deltaEmotion = 0.4
)

// PrefEvent is one like or unlike, captured at the moment it happened with
// the feed attributes the preference update needs. Events are applied off
// the request path; the like response never waits for score writes.
type PrefEvent struct {
	UserID   uuid.UUID
	AuthorID uuid.UUID
	Genre    *string
	Emotion  *string
	Unlike   bool
}

type PrefListenerService interface {
	FeedLiked(userID uuid.UUID, feed *types.Feed)
	FeedUnliked(userID uuid.UUID, feed *types.Feed)
	StartWorker(ctx context.Context)
}

type prefListenerService struct {
	log    *logger.Logger
	store  PrefStoreService
	events chan PrefEvent
}

func NewPrefListenerService(log *logger.Logger, store PrefStoreService) PrefListenerService {
	serviceLog := log.With("service", "PrefListenerService")
	return &prefListenerService{
		log:    serviceLog,
		store:  store,
		events: make(chan PrefEvent, 256),
	}
}

func (pl *prefListenerService) FeedLiked(userID uuid.UUID, feed *types.Feed) {
	pl.enqueue(PrefEvent{
		UserID:   userID,
		AuthorID: feed.AuthorID,
		Genre:    feed.Genre,
		Emotion:  feed.Emotion,
	})
}

func (pl *prefListenerService) FeedUnliked(userID uuid.UUID, feed *types.Feed) {
	pl.enqueue(PrefEvent{
		UserID:   userID,
		AuthorID: feed.AuthorID,
		Genre:    feed.Genre,
		Emotion:  feed.Emotion,
		Unlike:   true,
	})
}

func (pl *prefListenerService) enqueue(ev PrefEvent) {
	select {
	case pl.events <- ev:
	default:
		// Preference updates are best-effort; dropping under backpressure
		// beats blocking the like path.
		pl.log.Warn("preference event dropped, queue full", "user_id", ev.UserID)
	}
}

func (pl *prefListenerService) StartWorker(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-pl.events:
				pl.apply(ctx, ev)
			}
		}
	}()
}

func (pl *prefListenerService) apply(ctx context.Context, ev PrefEvent) {
	sign := 1.0
	if ev.Unlike {
		sign = -1.0
	}

	if err := pl.store.Add(ctx, ev.UserID, authorPrefKey(ev.AuthorID), sign*deltaAuthor); err != nil {
		pl.log.Warn("apply author preference delta failed", "user_id", ev.UserID, "error", err)
	}
	if ev.Genre != nil && *ev.Genre != "" {
		if err := pl.store.Add(ctx, ev.UserID, genrePrefKey(*ev.Genre), sign*deltaGenre); err != nil {
			pl.log.Warn("apply genre preference delta failed", "user_id", ev.UserID, "error", err)
		}
	}
	if ev.Emotion != nil && *ev.Emotion != "" {
		if err := pl.store.Add(ctx, ev.UserID, emotionPrefKey(*ev.Emotion), sign*deltaEmotion); err != nil {
			pl.log.Warn("apply emotion preference delta failed", "user_id", ev.UserID, "error", err)
		}
	}
}
