package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/hejz/hejz-backend/internal/requestdata"
	"github.com/hejz/hejz-backend/internal/services"
)

type FeedHandler struct {
	feedService services.FeedService
}

func NewFeedHandler(feedService services.FeedService) *FeedHandler {
	return &FeedHandler{feedService: feedService}
}

func (fh *FeedHandler) Create(c *gin.Context) {
	var req services.CreateFeedInput
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	rd := requestdata.GetRequestData(c.Request.Context())
	item, err := fh.feedService.CreateFeed(c.Request.Context(), rd.UserID, req)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"feed": item})
}

func (fh *FeedHandler) Get(c *gin.Context) {
	feedID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	item, err := fh.feedService.GetFeed(c.Request.Context(), feedID)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"feed": item})
}

func (fh *FeedHandler) Delete(c *gin.Context) {
	feedID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	rd := requestdata.GetRequestData(c.Request.Context())
	if err := fh.feedService.DeleteFeed(c.Request.Context(), rd.UserID, feedID); err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"status": "deleted"})
}

// Timeline is the personalized home feed. Pagination chains through the
// next_cursor field; the first page needs no cursor.
func (fh *FeedHandler) Timeline(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	page, err := fh.feedService.GetTimeline(c.Request.Context(), rd.UserID, c.Query("cursor"), pageLimit(c))
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, page)
}

func (fh *FeedHandler) TimelineScores(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	scores, err := fh.feedService.TimelineScores(c.Request.Context(), rd.UserID, c.Query("cursor"), pageLimit(c))
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"scores": scores})
}

func (fh *FeedHandler) MyPreferences(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	k, err := strconv.Atoi(c.DefaultQuery("k", "20"))
	if err != nil {
		k = 20
	}
	prefs, err := fh.feedService.TopPreferences(c.Request.Context(), rd.UserID, k)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"preferences": prefs})
}

func (fh *FeedHandler) MyFeeds(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	page, err := fh.feedService.GetAuthorFeeds(c.Request.Context(), rd.UserID, rd.UserID, c.Query("cursor"), pageLimit(c))
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, page)
}

func (fh *FeedHandler) AuthorFeeds(c *gin.Context) {
	authorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	rd := requestdata.GetRequestData(c.Request.Context())
	page, err := fh.feedService.GetAuthorFeeds(c.Request.Context(), rd.UserID, authorID, c.Query("cursor"), pageLimit(c))
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, page)
}

func pageLimit(c *gin.Context) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil {
		return 20
	}
	return limit
}
