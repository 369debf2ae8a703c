package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/hejz/hejz-backend/internal/clients/redisbus"
	"github.com/hejz/hejz-backend/internal/clients/suno"
	"github.com/hejz/hejz-backend/internal/logger"
	"github.com/hejz/hejz-backend/internal/pkg/apperrors"
	"github.com/hejz/hejz-backend/internal/repos"
	"github.com/hejz/hejz-backend/internal/types"
)

type GenerateSongInput struct {
	Prompt string `json:"prompt" binding:"required"`
	Style  string `json:"style"`
	Title  string `json:"title"`
	Model  string `json:"model"`
}

// SongService drives music generation: it submits tasks upstream, persists
// the tracks the provider posts back, and backfills timestamped lyrics.
type SongService interface {
	// GenerateSong submits a task and returns the provider task id. Tracks
	// arrive later through HandleCallback.
	GenerateSong(ctx context.Context, ownerID uuid.UUID, in GenerateSongInput) (string, error)
	// HandleCallback persists every track in a completed generation callback.
	HandleCallback(ctx context.Context, cb suno.Callback) ([]*types.SavedSong, error)
	// FetchLyrics pulls timestamped lyrics for a saved track and stores them.
	FetchLyrics(ctx context.Context, songID int64) (*types.SavedSong, error)
	GetSong(ctx context.Context, songID int64) (*types.SavedSong, error)
	ListSongs(ctx context.Context, ownerID uuid.UUID) ([]*types.SavedSong, error)
}

type songService struct {
	db          *gorm.DB
	log         *logger.Logger
	songRepo    repos.SavedSongRepo
	sunoClient  suno.Client
	bus         redisbus.NotificationBus
	callbackURL string

	// pendingOwners remembers which user submitted a task so the callback
	// can attribute the saved tracks. Provider callbacks carry no auth.
	pendingMu     sync.Mutex
	pendingOwners map[string]uuid.UUID
}

func NewSongService(
	db *gorm.DB,
	log *logger.Logger,
	songRepo repos.SavedSongRepo,
	sunoClient suno.Client,
	bus redisbus.NotificationBus,
	callbackURL string,
) SongService {
	serviceLog := log.With("service", "SongService")
	return &songService{
		db:            db,
		log:           serviceLog,
		songRepo:      songRepo,
		sunoClient:    sunoClient,
		bus:           bus,
		callbackURL:   callbackURL,
		pendingOwners: make(map[string]uuid.UUID),
	}
}

func (ss *songService) GenerateSong(ctx context.Context, ownerID uuid.UUID, in GenerateSongInput) (string, error) {
	if strings.TrimSpace(in.Prompt) == "" {
		return "", fmt.Errorf("%w: prompt is required", apperrors.ErrInvalidArgument)
	}
	if ss.sunoClient == nil {
		return "", fmt.Errorf("%w: music generation is not configured", apperrors.ErrUpstreamUnavailable)
	}
	model := in.Model
	if model == "" {
		model = "V4_5"
	}
	taskID, err := ss.sunoClient.Generate(ctx, suno.GenerateRequest{
		Prompt:      in.Prompt,
		Style:       in.Style,
		Title:       in.Title,
		Model:       model,
		CallBackURL: ss.callbackURL,
	})
	if err != nil {
		return "", fmt.Errorf("%w: submit generation task: %v", apperrors.ErrUpstreamUnavailable, err)
	}
	ss.pendingMu.Lock()
	ss.pendingOwners[taskID] = ownerID
	ss.pendingMu.Unlock()
	ss.log.Info("song generation submitted", "task_id", taskID, "owner_id", ownerID)
	return taskID, nil
}

func (ss *songService) HandleCallback(ctx context.Context, cb suno.Callback) ([]*types.SavedSong, error) {
	if cb.Data.CallbackType != "complete" {
		ss.log.Info("ignoring non-complete callback", "task_id", cb.Data.TaskID, "type", cb.Data.CallbackType)
		return nil, nil
	}
	if len(cb.Data.Data) == 0 {
		return nil, fmt.Errorf("%w: callback carries no audio data", apperrors.ErrInvalidArgument)
	}
	taskID := cb.Data.TaskID
	ss.pendingMu.Lock()
	ownerID := ss.pendingOwners[taskID]
	delete(ss.pendingOwners, taskID)
	ss.pendingMu.Unlock()

	songs := make([]*types.SavedSong, 0, len(cb.Data.Data))
	for _, audio := range cb.Data.Data {
		songs = append(songs, &types.SavedSong{
			OwnerID:              ownerID,
			Title:                audio.Title,
			TaskID:               taskID,
			AudioID:              audio.ID,
			AudioURL:             audio.AudioURL,
			SourceAudioURL:       audio.SourceAudioURL,
			StreamAudioURL:       audio.StreamAudioURL,
			SourceStreamAudioURL: audio.SourceStreamAudioURL,
			Prompt:               audio.Prompt,
			CreatedAt:            time.Now(),
		})
	}
	saved, err := ss.songRepo.Create(ctx, nil, songs)
	if err != nil {
		return nil, fmt.Errorf("save songs: %w", err)
	}
	ss.log.Info("songs saved from callback", "task_id", taskID, "count", len(saved))
	if ss.bus != nil && ownerID != uuid.Nil {
		n := redisbus.Notification{
			Type:       redisbus.NotificationSongReady,
			TargetUser: ownerID.String(),
			OccurredAt: time.Now(),
		}
		if err := ss.bus.Publish(ctx, n); err != nil {
			ss.log.Warn("publish song notification failed", "error", err)
		}
	}
	return saved, nil
}

func (ss *songService) FetchLyrics(ctx context.Context, songID int64) (*types.SavedSong, error) {
	song, err := ss.loadSong(ctx, songID)
	if err != nil {
		return nil, err
	}
	if ss.sunoClient == nil {
		return nil, fmt.Errorf("%w: music generation is not configured", apperrors.ErrUpstreamUnavailable)
	}
	lyrics, err := ss.sunoClient.TimestampedLyrics(ctx, song.TaskID, song.AudioID)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch lyrics: %v", apperrors.ErrUpstreamUnavailable, err)
	}
	song.LyricsJSON = datatypes.JSON(lyrics.AlignedWords)
	song.PlainLyrics = lyrics.PlainLyrics
	if err := ss.db.WithContext(ctx).
		Model(&types.SavedSong{}).
		Where("id = ?", song.ID).
		Updates(map[string]any{
			"lyrics_json":  song.LyricsJSON,
			"plain_lyrics": song.PlainLyrics,
		}).Error; err != nil {
		return nil, fmt.Errorf("persist lyrics: %w", err)
	}
	return song, nil
}

func (ss *songService) GetSong(ctx context.Context, songID int64) (*types.SavedSong, error) {
	return ss.loadSong(ctx, songID)
}

func (ss *songService) ListSongs(ctx context.Context, ownerID uuid.UUID) ([]*types.SavedSong, error) {
	return ss.songRepo.ListByOwner(ctx, nil, ownerID)
}

func (ss *songService) loadSong(ctx context.Context, songID int64) (*types.SavedSong, error) {
	song, err := ss.songRepo.GetByID(ctx, nil, songID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: song %d", apperrors.ErrNotFound, songID)
		}
		return nil, fmt.Errorf("load song: %w", err)
	}
	return song, nil
}
