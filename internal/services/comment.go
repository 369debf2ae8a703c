package services

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hejz/hejz-backend/internal/clients/redisbus"
	"github.com/hejz/hejz-backend/internal/logger"
	"github.com/hejz/hejz-backend/internal/pkg/apperrors"
	"github.com/hejz/hejz-backend/internal/repos"
	"github.com/hejz/hejz-backend/internal/types"
)

const maxCommentLen = 500

// CommentView is a comment with its author and like count attached.
type CommentView struct {
	Comment   *types.Comment `json:"comment"`
	Author    *types.User    `json:"author,omitempty"`
	LikeCount int64          `json:"like_count"`
}

type CommentPage struct {
	Items      []*CommentView `json:"items"`
	NextCursor *string        `json:"next_cursor"`
}

type CommentService interface {
	AddComment(ctx context.Context, userID uuid.UUID, feedID int64, content string) (*types.Comment, error)
	DeleteComment(ctx context.Context, userID uuid.UUID, commentID int64) error
	// FeedComments pages a feed's comments with the same keyset cursor
	// contract as the timeline, without re-ranking.
	FeedComments(ctx context.Context, feedID int64, cursor string, limit int) (*CommentPage, error)
}

type commentService struct {
	db           *gorm.DB
	log          *logger.Logger
	feedRepo     repos.FeedRepo
	commentRepo  repos.CommentRepo
	commentLikes repos.CommentLikeRepo
	userRepo     repos.UserRepo
	bus          redisbus.NotificationBus
}

func NewCommentService(
	db *gorm.DB,
	log *logger.Logger,
	feedRepo repos.FeedRepo,
	commentRepo repos.CommentRepo,
	commentLikes repos.CommentLikeRepo,
	userRepo repos.UserRepo,
	bus redisbus.NotificationBus,
) CommentService {
	serviceLog := log.With("service", "CommentService")
	return &commentService{
		db:           db,
		log:          serviceLog,
		feedRepo:     feedRepo,
		commentRepo:  commentRepo,
		commentLikes: commentLikes,
		userRepo:     userRepo,
		bus:          bus,
	}
}

func (cs *commentService) AddComment(ctx context.Context, userID uuid.UUID, feedID int64, content string) (*types.Comment, error) {
	if content == "" {
		return nil, fmt.Errorf("%w: content is required", apperrors.ErrInvalidArgument)
	}
	if utf8.RuneCountInString(content) > maxCommentLen {
		return nil, fmt.Errorf("%w: content exceeds %d characters", apperrors.ErrInvalidArgument, maxCommentLen)
	}
	feed, err := cs.feedRepo.GetByID(ctx, nil, feedID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: feed %d", apperrors.ErrNotFound, feedID)
		}
		return nil, fmt.Errorf("load feed: %w", err)
	}
	if feed.IsDeleted {
		return nil, fmt.Errorf("%w: feed %d", apperrors.ErrNotFound, feedID)
	}

	comment := &types.Comment{
		FeedID:    feedID,
		AuthorID:  userID,
		Content:   content,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
	created, err := cs.commentRepo.Create(ctx, nil, comment)
	if err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}
	if cs.bus != nil {
		n := redisbus.Notification{
			Type:       redisbus.NotificationFeedCommented,
			ActorID:    userID.String(),
			TargetUser: feed.AuthorID.String(),
			FeedID:     feedID,
			CommentID:  created.ID,
			OccurredAt: time.Now(),
		}
		if err := cs.bus.Publish(ctx, n); err != nil {
			cs.log.Warn("publish comment notification failed", "error", err)
		}
	}
	return created, nil
}

func (cs *commentService) DeleteComment(ctx context.Context, userID uuid.UUID, commentID int64) error {
	comment, err := cs.commentRepo.GetByID(ctx, nil, commentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: comment %d", apperrors.ErrNotFound, commentID)
		}
		return fmt.Errorf("load comment: %w", err)
	}
	if comment.IsDeleted {
		return fmt.Errorf("%w: comment %d", apperrors.ErrNotFound, commentID)
	}
	if comment.AuthorID != userID {
		return fmt.Errorf("%w: comment %d belongs to another user", apperrors.ErrForbidden, commentID)
	}
	if err := cs.commentRepo.SoftDelete(ctx, nil, commentID); err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	return nil
}

func (cs *commentService) FeedComments(ctx context.Context, feedID int64, cursor string, limit int) (*CommentPage, error) {
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
	comments, err := cs.commentRepo.FeedWindow(ctx, nil, feedID, cursorCreatedAt, cursorID, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch comments: %v", apperrors.ErrUpstreamUnavailable, err)
	}
	if len(comments) == 0 {
		return &CommentPage{Items: []*CommentView{}}, nil
	}

	commentIDs := make([]int64, 0, len(comments))
	authorIDSet := make(map[uuid.UUID]struct{}, len(comments))
	authorIDs := make([]uuid.UUID, 0, len(comments))
	for _, c := range comments {
		commentIDs = append(commentIDs, c.ID)
		if _, ok := authorIDSet[c.AuthorID]; !ok {
			authorIDSet[c.AuthorID] = struct{}{}
			authorIDs = append(authorIDs, c.AuthorID)
		}
	}
	authors, err := cs.userRepo.GetByIDs(ctx, nil, authorIDs)
	if err != nil {
		return nil, fmt.Errorf("%w: load comment authors: %v", apperrors.ErrUpstreamUnavailable, err)
	}
	likeCounts, err := cs.commentLikes.CountByCommentIDs(ctx, nil, commentIDs)
	if err != nil {
		return nil, fmt.Errorf("%w: load comment like counts: %v", apperrors.ErrUpstreamUnavailable, err)
	}
	authorByID := make(map[uuid.UUID]*types.User, len(authors))
	for _, u := range authors {
		authorByID[u.ID] = u
	}

	items := make([]*CommentView, 0, len(comments))
	for _, c := range comments {
		items = append(items, &CommentView{
			Comment:   c,
			Author:    authorByID[c.AuthorID],
			LikeCount: likeCounts[c.ID],
		})
	}
	last := comments[len(comments)-1]
	next := EncodeCursor(last.CreatedAt, last.ID)
	return &CommentPage{Items: items, NextCursor: &next}, nil
}
