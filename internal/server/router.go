package server

import (
	"os"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/hejz/hejz-backend/internal/handlers"
	"github.com/hejz/hejz-backend/internal/middleware"
)

type RouterConfig struct {
	AuthHandler         *handlers.AuthHandler
	AuthMiddleware      *middleware.AuthMiddleware
	RateLimitMiddleware *middleware.RateLimitMiddleware
	UserHandler         *handlers.UserHandler
	FeedHandler         *handlers.FeedHandler
	CommentHandler      *handlers.CommentHandler
	LikeHandler         *handlers.LikeHandler
	FollowHandler       *handlers.FollowHandler
	SongHandler         *handlers.SongHandler
	MediaHandler        *handlers.MediaHandler
	NotificationHandler *handlers.NotificationHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()
	router.Use(otelgin.Middleware("hejz-backend"))

	router.Use(cors.New(cors.Config{
		AllowOrigins:     corsOrigins(),
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	// Public
	router.GET("/healthcheck", handlers.HealthCheck)
	router.POST("/register", cfg.AuthHandler.Register)
	router.POST("/login", cfg.AuthHandler.Login)
	router.POST("/songs/callback", cfg.SongHandler.Callback)

	// Protected
	protected := router.Group("/")
	protected.Use(cfg.AuthMiddleware.RequireAuth())

	// Auth
	protected.POST("/refresh", cfg.AuthHandler.Refresh)
	protected.POST("/logout", cfg.AuthHandler.Logout)

	// User
	protected.GET("/user", cfg.UserHandler.GetMe)
	protected.PATCH("/user", cfg.UserHandler.UpdateMe)
	protected.PUT("/user/avatar", cfg.UserHandler.UpdateAvatar)
	protected.GET("/users/search", cfg.UserHandler.Search)
	protected.GET("/users/:id", cfg.UserHandler.GetProfile)

	// Follow graph
	protected.POST("/users/:id/follow", cfg.FollowHandler.Follow)
	protected.DELETE("/users/:id/follow", cfg.FollowHandler.Unfollow)
	protected.GET("/users/:id/followers", cfg.FollowHandler.Followers)
	protected.GET("/users/:id/following", cfg.FollowHandler.Following)

	// Feeds; reads and mutations share the per-user limiter.
	limited := cfg.RateLimitMiddleware.Limit()
	protected.POST("/feeds", limited, cfg.FeedHandler.Create)
	protected.GET("/feeds/mine", limited, cfg.FeedHandler.MyFeeds)
	protected.GET("/feeds/timeline", limited, cfg.FeedHandler.Timeline)
	protected.GET("/feeds/timeline/scores", limited, cfg.FeedHandler.TimelineScores)
	protected.GET("/feeds/:id", cfg.FeedHandler.Get)
	protected.DELETE("/feeds/:id", limited, cfg.FeedHandler.Delete)
	protected.GET("/users/:id/feeds", cfg.FeedHandler.AuthorFeeds)

	// Likes
	protected.POST("/feeds/:id/like", cfg.LikeHandler.LikeFeed)
	protected.DELETE("/feeds/:id/like", cfg.LikeHandler.UnlikeFeed)
	protected.GET("/feeds/:id/likes", cfg.LikeHandler.FeedLikers)
	protected.GET("/user/likes", cfg.LikeHandler.MyLikes)
	protected.GET("/user/preferences", cfg.FeedHandler.MyPreferences)
	protected.POST("/comments/:id/like", cfg.LikeHandler.LikeComment)
	protected.DELETE("/comments/:id/like", cfg.LikeHandler.UnlikeComment)

	// Comments
	protected.POST("/feeds/:id/comments", cfg.CommentHandler.Add)
	protected.GET("/feeds/:id/comments", cfg.CommentHandler.List)
	protected.DELETE("/comments/:id", cfg.CommentHandler.Delete)

	// Songs
	protected.POST("/songs/generate", cfg.SongHandler.Generate)
	protected.GET("/songs/mine", cfg.SongHandler.ListMine)
	protected.GET("/songs/:id", cfg.SongHandler.Get)
	protected.POST("/songs/:id/lyrics", cfg.SongHandler.FetchLyrics)

	// Media
	protected.POST("/media/upload", cfg.MediaHandler.Upload)

	// Notifications
	protected.GET("/notifications/stream", cfg.NotificationHandler.Stream)

	return router
}

func corsOrigins() []string {
	raw := strings.TrimSpace(os.Getenv("CORS_ORIGINS"))
	if raw == "" {
		return []string{"http://localhost:3000", "http://localhost:5173"}
	}
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			origins = append(origins, p)
		}
	}
	return origins
}
