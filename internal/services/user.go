package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hejz/hejz-backend/internal/logger"
	"github.com/hejz/hejz-backend/internal/pkg/apperrors"
	"github.com/hejz/hejz-backend/internal/repos"
	"github.com/hejz/hejz-backend/internal/types"
)

// UserProfile is a user row plus the counters a profile page shows.
type UserProfile struct {
	User           *types.User `json:"user"`
	FollowerCount  int         `json:"follower_count"`
	FollowingCount int         `json:"following_count"`
	FollowedByMe   bool        `json:"followed_by_me"`
}

type UpdateProfileInput struct {
	Nickname *string `json:"nickname"`
	Bio      *string `json:"bio"`
}

type UserService interface {
	GetProfile(ctx context.Context, viewerID, userID uuid.UUID) (*UserProfile, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, in UpdateProfileInput) (*types.User, error)
	UpdateAvatar(ctx context.Context, userID uuid.UUID, raw []byte) (*types.User, error)
	SearchByUsername(ctx context.Context, query string, limit int) ([]*types.User, error)
}

type userService struct {
	db            *gorm.DB
	log           *logger.Logger
	userRepo      repos.UserRepo
	followRepo    repos.FollowRepo
	avatarService AvatarService
}

func NewUserService(
	db *gorm.DB,
	log *logger.Logger,
	userRepo repos.UserRepo,
	followRepo repos.FollowRepo,
	avatarService AvatarService,
) UserService {
	serviceLog := log.With("service", "UserService")
	return &userService{
		db:            db,
		log:           serviceLog,
		userRepo:      userRepo,
		followRepo:    followRepo,
		avatarService: avatarService,
	}
}

func (us *userService) GetProfile(ctx context.Context, viewerID, userID uuid.UUID) (*UserProfile, error) {
	users, err := us.userRepo.GetByIDs(ctx, nil, []uuid.UUID{userID})
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if len(users) == 0 {
		return nil, fmt.Errorf("%w: user %s", apperrors.ErrNotFound, userID)
	}
	followers, err := us.followRepo.FollowerIDs(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("load followers: %w", err)
	}
	following, err := us.followRepo.FolloweeIDs(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("load following: %w", err)
	}
	followedByMe := false
	if viewerID != uuid.Nil && viewerID != userID {
		followedByMe, err = us.followRepo.Exists(ctx, nil, viewerID, userID)
		if err != nil {
			return nil, fmt.Errorf("check follow edge: %w", err)
		}
	}
	return &UserProfile{
		User:           users[0],
		FollowerCount:  len(followers),
		FollowingCount: len(following),
		FollowedByMe:   followedByMe,
	}, nil
}

func (us *userService) UpdateProfile(ctx context.Context, userID uuid.UUID, in UpdateProfileInput) (*types.User, error) {
	fields := map[string]any{}
	if in.Nickname != nil {
		nick := strings.TrimSpace(*in.Nickname)
		if nick == "" || len(nick) > 50 {
			return nil, fmt.Errorf("%w: nickname must be 1-50 characters", apperrors.ErrInvalidArgument)
		}
		fields["nickname"] = nick
	}
	if in.Bio != nil {
		if len(*in.Bio) > 500 {
			return nil, fmt.Errorf("%w: bio exceeds 500 characters", apperrors.ErrInvalidArgument)
		}
		fields["bio"] = *in.Bio
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: nothing to update", apperrors.ErrInvalidArgument)
	}
	fields["updated_at"] = time.Now()
	if err := us.userRepo.UpdateFields(ctx, nil, userID, fields); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	users, err := us.userRepo.GetByIDs(ctx, nil, []uuid.UUID{userID})
	if err != nil {
		return nil, fmt.Errorf("reload user: %w", err)
	}
	if len(users) == 0 {
		return nil, fmt.Errorf("%w: user %s", apperrors.ErrNotFound, userID)
	}
	return users[0], nil
}

func (us *userService) UpdateAvatar(ctx context.Context, userID uuid.UUID, raw []byte) (*types.User, error) {
	if us.avatarService == nil {
		return nil, fmt.Errorf("%w: avatar storage is not configured", apperrors.ErrUpstreamUnavailable)
	}
	users, err := us.userRepo.GetByIDs(ctx, nil, []uuid.UUID{userID})
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if len(users) == 0 {
		return nil, fmt.Errorf("%w: user %s", apperrors.ErrNotFound, userID)
	}
	user := users[0]
	if err := us.avatarService.CreateAndUploadUserAvatarFromImage(ctx, nil, user, raw); err != nil {
		return nil, fmt.Errorf("process avatar: %w", err)
	}
	fields := map[string]any{
		"avatar_bucket_key": user.AvatarBucketKey,
		"profile_image_url": user.ProfileImageURL,
		"updated_at":        time.Now(),
	}
	if err := us.userRepo.UpdateFields(ctx, nil, userID, fields); err != nil {
		return nil, fmt.Errorf("persist avatar fields: %w", err)
	}
	return user, nil
}

func (us *userService) SearchByUsername(ctx context.Context, query string, limit int) ([]*types.User, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty search query", apperrors.ErrInvalidArgument)
	}
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	return us.userRepo.SearchByUsername(ctx, nil, query, limit)
}
