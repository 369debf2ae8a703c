package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/hejz/hejz-backend/internal/handlers"
	"github.com/hejz/hejz-backend/internal/logger"
	"github.com/hejz/hejz-backend/internal/pkg/apperrors"
	"github.com/hejz/hejz-backend/internal/requestdata"
	"github.com/hejz/hejz-backend/internal/services"
)

// RateLimitMiddleware gates the feed read and mutation endpoints per user.
// It runs after auth, so the user id is always present.
type RateLimitMiddleware struct {
	log     *logger.Logger
	limiter services.RateLimitService
}

func NewRateLimitMiddleware(log *logger.Logger, limiter services.RateLimitService) *RateLimitMiddleware {
	middlewareLog := log.With("middleware", "RateLimitMiddleware")
	return &RateLimitMiddleware{log: middlewareLog, limiter: limiter}
}

func (rm *RateLimitMiddleware) Limit() gin.HandlerFunc {
	return func(c *gin.Context) {
		rd := requestdata.GetRequestData(c.Request.Context())
		if rd == nil || rd.UserID == uuid.Nil {
			handlers.RespondAppError(c, fmt.Errorf("%w: no authenticated user", apperrors.ErrForbidden))
			c.Abort()
			return
		}
		if !rm.limiter.Allow(rd.UserID) {
			rm.log.Debug("request rate limited", "user_id", rd.UserID)
			c.Header("Retry-After", "60")
			handlers.RespondAppError(c, fmt.Errorf("%w: retry later", apperrors.ErrRateLimited))
			c.Abort()
			return
		}
		c.Next()
	}
}
