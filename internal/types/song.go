package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// SavedSong is a track persisted from a music-generation callback.
type SavedSong struct {
	ID                   int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	OwnerID              uuid.UUID      `gorm:"type:uuid;index;column:owner_id" json:"owner_id"`
	Title                string         `gorm:"size:255;column:title" json:"title"`
	TaskID               string         `gorm:"index;size:100;column:task_id" json:"task_id"`
	AudioID              string         `gorm:"size:100;column:audio_id" json:"audio_id"`
	AudioURL             string         `gorm:"column:audio_url" json:"audio_url"`
	SourceAudioURL       string         `gorm:"column:source_audio_url" json:"source_audio_url"`
	StreamAudioURL       string         `gorm:"column:stream_audio_url" json:"stream_audio_url"`
	SourceStreamAudioURL string         `gorm:"column:source_stream_audio_url" json:"source_stream_audio_url"`
	Prompt               string         `gorm:"type:text;column:prompt" json:"prompt"`
	LyricsJSON           datatypes.JSON `gorm:"column:lyrics_json" json:"lyrics_json,omitempty"`
	PlainLyrics          string         `gorm:"type:text;column:plain_lyrics" json:"plain_lyrics"`
	CreatedAt            time.Time      `gorm:"not null" json:"created_at"`
}

func (SavedSong) TableName() string {
	return "saved_songs"
}
