package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hejz/hejz-backend/internal/clients/redisbus"
	"github.com/hejz/hejz-backend/internal/logger"
	"github.com/hejz/hejz-backend/internal/pkg/apperrors"
	"github.com/hejz/hejz-backend/internal/repos"
	"github.com/hejz/hejz-backend/internal/types"
)

// LikeService records like/unlike actions. The write to the like table is
// synchronous; preference updates and notifications happen off the request
// path.
type LikeService interface {
	// RecordLike is idempotent: liking an already-liked feed is a no-op.
	RecordLike(ctx context.Context, userID uuid.UUID, feedID int64) error
	RecordUnlike(ctx context.Context, userID uuid.UUID, feedID int64) error
	LikeComment(ctx context.Context, userID uuid.UUID, commentID int64) error
	UnlikeComment(ctx context.Context, userID uuid.UUID, commentID int64) error
	// FeedLikers lists who liked a feed; LikedFeeds lists what a user liked.
	FeedLikers(ctx context.Context, feedID int64) ([]*types.FeedLike, error)
	LikedFeeds(ctx context.Context, userID uuid.UUID) ([]*types.FeedLike, error)
}

type likeService struct {
	db           *gorm.DB
	log          *logger.Logger
	feedRepo     repos.FeedRepo
	likeRepo     repos.FeedLikeRepo
	commentRepo  repos.CommentRepo
	commentLikes repos.CommentLikeRepo
	listener     PrefListenerService
	bus          redisbus.NotificationBus
}

func NewLikeService(
	db *gorm.DB,
	log *logger.Logger,
	feedRepo repos.FeedRepo,
	likeRepo repos.FeedLikeRepo,
	commentRepo repos.CommentRepo,
	commentLikes repos.CommentLikeRepo,
	listener PrefListenerService,
	bus redisbus.NotificationBus,
) LikeService {
	serviceLog := log.With("service", "LikeService")
	return &likeService{
		db:           db,
		log:          serviceLog,
		feedRepo:     feedRepo,
		likeRepo:     likeRepo,
		commentRepo:  commentRepo,
		commentLikes: commentLikes,
		listener:     listener,
		bus:          bus,
	}
}

func (ls *likeService) RecordLike(ctx context.Context, userID uuid.UUID, feedID int64) error {
	feed, err := ls.loadFeed(ctx, feedID)
	if err != nil {
		return err
	}
	like := &types.FeedLike{
		FeedID:    feedID,
		UserID:    userID,
		CreatedAt: time.Now(),
	}
	if err := ls.likeRepo.Create(ctx, nil, like); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil
		}
		return fmt.Errorf("create like: %w", err)
	}

	ls.listener.FeedLiked(userID, feed)
	ls.notify(ctx, redisbus.Notification{
		Type:       redisbus.NotificationFeedLiked,
		ActorID:    userID.String(),
		TargetUser: feed.AuthorID.String(),
		FeedID:     feedID,
		OccurredAt: time.Now(),
	})
	return nil
}

func (ls *likeService) RecordUnlike(ctx context.Context, userID uuid.UUID, feedID int64) error {
	feed, err := ls.loadFeed(ctx, feedID)
	if err != nil {
		return err
	}
	deleted, err := ls.likeRepo.Delete(ctx, nil, feedID, userID)
	if err != nil {
		return fmt.Errorf("delete like: %w", err)
	}
	if !deleted {
		return nil
	}
	ls.listener.FeedUnliked(userID, feed)
	return nil
}

func (ls *likeService) LikeComment(ctx context.Context, userID uuid.UUID, commentID int64) error {
	comment, err := ls.commentRepo.GetByID(ctx, nil, commentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: comment %d", apperrors.ErrNotFound, commentID)
		}
		return fmt.Errorf("load comment: %w", err)
	}
	if comment.IsDeleted {
		return fmt.Errorf("%w: comment %d", apperrors.ErrNotFound, commentID)
	}
	like := &types.CommentLike{
		CommentID: commentID,
		UserID:    userID,
		CreatedAt: time.Now(),
	}
	if err := ls.commentLikes.Create(ctx, nil, like); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil
		}
		return fmt.Errorf("create comment like: %w", err)
	}
	return nil
}

func (ls *likeService) UnlikeComment(ctx context.Context, userID uuid.UUID, commentID int64) error {
	if _, err := ls.commentLikes.Delete(ctx, nil, commentID, userID); err != nil {
		return fmt.Errorf("delete comment like: %w", err)
	}
	return nil
}

func (ls *likeService) FeedLikers(ctx context.Context, feedID int64) ([]*types.FeedLike, error) {
	if _, err := ls.loadFeed(ctx, feedID); err != nil {
		return nil, err
	}
	likes, err := ls.likeRepo.ListByFeed(ctx, nil, feedID)
	if err != nil {
		return nil, fmt.Errorf("%w: list feed likes: %v", apperrors.ErrUpstreamUnavailable, err)
	}
	return likes, nil
}

func (ls *likeService) LikedFeeds(ctx context.Context, userID uuid.UUID) ([]*types.FeedLike, error) {
	likes, err := ls.likeRepo.ListByUser(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: list user likes: %v", apperrors.ErrUpstreamUnavailable, err)
	}
	return likes, nil
}

func (ls *likeService) loadFeed(ctx context.Context, feedID int64) (*types.Feed, error) {
	feed, err := ls.feedRepo.GetByID(ctx, nil, feedID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: feed %d", apperrors.ErrNotFound, feedID)
		}
		return nil, fmt.Errorf("load feed: %w", err)
	}
	if feed.IsDeleted {
		return nil, fmt.Errorf("%w: feed %d", apperrors.ErrNotFound, feedID)
	}
	return feed, nil
}

func (ls *likeService) notify(ctx context.Context, n redisbus.Notification) {
	if ls.bus == nil {
		return
	}
	if err := ls.bus.Publish(ctx, n); err != nil {
		ls.log.Warn("publish notification failed", "type", n.Type, "error", err)
	}
}
