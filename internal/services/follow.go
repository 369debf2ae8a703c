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

type FollowService interface {
	Follow(ctx context.Context, followerID, followeeID uuid.UUID) error
	Unfollow(ctx context.Context, followerID, followeeID uuid.UUID) error
	Followers(ctx context.Context, userID uuid.UUID) ([]*types.User, error)
	Following(ctx context.Context, userID uuid.UUID) ([]*types.User, error)
}

type followService struct {
	db         *gorm.DB
	log        *logger.Logger
	followRepo repos.FollowRepo
	userRepo   repos.UserRepo
	bus        redisbus.NotificationBus
}

func NewFollowService(
	db *gorm.DB,
	log *logger.Logger,
	followRepo repos.FollowRepo,
	userRepo repos.UserRepo,
	bus redisbus.NotificationBus,
) FollowService {
	serviceLog := log.With("service", "FollowService")
	return &followService{
		db:         db,
		log:        serviceLog,
		followRepo: followRepo,
		userRepo:   userRepo,
		bus:        bus,
	}
}

func (fs *followService) Follow(ctx context.Context, followerID, followeeID uuid.UUID) error {
	if followerID == followeeID {
		return fmt.Errorf("%w: cannot follow yourself", apperrors.ErrInvalidArgument)
	}
	users, err := fs.userRepo.GetByIDs(ctx, nil, []uuid.UUID{followeeID})
	if err != nil {
		return fmt.Errorf("load followee: %w", err)
	}
	if len(users) == 0 {
		return fmt.Errorf("%w: user %s", apperrors.ErrNotFound, followeeID)
	}
	edge := &types.Follow{
		FollowerID: followerID,
		FolloweeID: followeeID,
		CreatedAt:  time.Now(),
	}
	if err := fs.followRepo.Create(ctx, nil, edge); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil
		}
		return fmt.Errorf("create follow edge: %w", err)
	}
	if fs.bus != nil {
		n := redisbus.Notification{
			Type:       redisbus.NotificationUserFollowed,
			ActorID:    followerID.String(),
			TargetUser: followeeID.String(),
			OccurredAt: time.Now(),
		}
		if err := fs.bus.Publish(ctx, n); err != nil {
			fs.log.Warn("publish follow notification failed", "error", err)
		}
	}
	return nil
}

func (fs *followService) Unfollow(ctx context.Context, followerID, followeeID uuid.UUID) error {
	if _, err := fs.followRepo.Delete(ctx, nil, followerID, followeeID); err != nil {
		return fmt.Errorf("delete follow edge: %w", err)
	}
	return nil
}

func (fs *followService) Followers(ctx context.Context, userID uuid.UUID) ([]*types.User, error) {
	ids, err := fs.followRepo.FollowerIDs(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("load follower ids: %w", err)
	}
	if len(ids) == 0 {
		return []*types.User{}, nil
	}
	return fs.userRepo.GetByIDs(ctx, nil, ids)
}

func (fs *followService) Following(ctx context.Context, userID uuid.UUID) ([]*types.User, error) {
	ids, err := fs.followRepo.FolloweeIDs(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("load followee ids: %w", err)
	}
	if len(ids) == 0 {
		return []*types.User{}, nil
	}
	return fs.userRepo.GetByIDs(ctx, nil, ids)
}
