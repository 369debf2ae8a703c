package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/hejz/hejz-backend/internal/clients/suno"
	"github.com/hejz/hejz-backend/internal/requestdata"
	"github.com/hejz/hejz-backend/internal/services"
)

type SongHandler struct {
	songService services.SongService
}

func NewSongHandler(songService services.SongService) *SongHandler {
	return &SongHandler{songService: songService}
}

func (sh *SongHandler) Generate(c *gin.Context) {
	var req services.GenerateSongInput
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	rd := requestdata.GetRequestData(c.Request.Context())
	taskID, err := sh.songService.GenerateSong(c.Request.Context(), rd.UserID, req)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"task_id": taskID})
}

// Callback receives generation results from the provider. No auth: the
// provider posts here directly.
func (sh *SongHandler) Callback(c *gin.Context) {
	var cb suno.Callback
	if err := c.ShouldBindJSON(&cb); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	songs, err := sh.songService.HandleCallback(c.Request.Context(), cb)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"saved": len(songs)})
}

func (sh *SongHandler) Get(c *gin.Context) {
	songID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	song, err := sh.songService.GetSong(c.Request.Context(), songID)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"song": song})
}

func (sh *SongHandler) FetchLyrics(c *gin.Context) {
	songID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	song, err := sh.songService.FetchLyrics(c.Request.Context(), songID)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"song": song})
}

func (sh *SongHandler) ListMine(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	songs, err := sh.songService.ListSongs(c.Request.Context(), rd.UserID)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"songs": songs})
}
