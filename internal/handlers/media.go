package handlers

import (
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hejz/hejz-backend/internal/clients/gcs"
	"github.com/hejz/hejz-backend/internal/requestdata"
)

const maxUploadBytes = 100 << 20

// MediaHandler stores raw feed attachments in the bucket and hands the
// public URL back; the client passes it in the feed create request.
type MediaHandler struct {
	bucketService gcs.BucketService
}

func NewMediaHandler(bucketService gcs.BucketService) *MediaHandler {
	return &MediaHandler{bucketService: bucketService}
}

func (mh *MediaHandler) Upload(c *gin.Context) {
	if mh.bucketService == nil {
		RespondError(c, http.StatusServiceUnavailable, "storage_unconfigured", fmt.Errorf("media storage is not configured"))
		return
	}
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	defer file.Close()
	if header.Size > maxUploadBytes {
		RespondError(c, http.StatusBadRequest, "invalid_request", fmt.Errorf("file exceeds %d bytes", maxUploadBytes))
		return
	}

	rd := requestdata.GetRequestData(c.Request.Context())
	ext := strings.ToLower(path.Ext(header.Filename))
	key := fmt.Sprintf("feed_media/%s/%d%s", rd.UserID.String(), time.Now().UnixNano(), ext)
	if err := mh.bucketService.UploadFile(c.Request.Context(), key, file); err != nil {
		RespondError(c, http.StatusBadGateway, "upload_failed", err)
		return
	}
	RespondOK(c, gin.H{
		"key": key,
		"url": mh.bucketService.GetPublicURL(key),
	})
}
