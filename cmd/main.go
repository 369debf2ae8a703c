package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/hejz/hejz-backend/internal/clients/gcs"
	"github.com/hejz/hejz-backend/internal/clients/redisbus"
	"github.com/hejz/hejz-backend/internal/clients/suno"
	"github.com/hejz/hejz-backend/internal/config"
	"github.com/hejz/hejz-backend/internal/db"
	"github.com/hejz/hejz-backend/internal/handlers"
	"github.com/hejz/hejz-backend/internal/logger"
	"github.com/hejz/hejz-backend/internal/middleware"
	"github.com/hejz/hejz-backend/internal/observability"
	"github.com/hejz/hejz-backend/internal/repos"
	"github.com/hejz/hejz-backend/internal/server"
	"github.com/hejz/hejz-backend/internal/services"
	"github.com/hejz/hejz-backend/internal/utils"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Env
	log.Info("Loading environment variables from main...")
	jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
	accessTokenTTL := utils.GetEnvAsInt("ACCESS_TOKEN_TTL", 3600, log)
	refreshTokenTTL := utils.GetEnvAsInt("REFRESH_TOKEN_TTL", 86400, log)
	rateLimitMax := utils.GetEnvAsInt("TIMELINE_RATE_LIMIT", 5, log)
	rateLimitWindowSec := utils.GetEnvAsInt("TIMELINE_RATE_WINDOW_SECONDS", 60, log)
	catalogPath := utils.GetEnv("CATALOG_PATH", "", log)
	sunoCallbackURL := utils.GetEnv("SUNO_CALLBACK_URL", "", log)

	// Tracing
	otelShutdown := observability.InitOTel(context.Background(), log, observability.OtelConfig{
		ServiceName: "hejz-backend",
		Environment: utils.GetEnv("APP_ENV", "development", log),
		Version:     utils.GetEnv("APP_VERSION", "dev", log),
	})
	if otelShutdown != nil {
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(ctx)
		}()
	}

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Fatal("Postgres init failed", "error", err)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Warn("Postgres auto migration failed", "error", err)
	}
	thePG := postgresService.DB()

	// Tag vocabulary
	catalog, err := config.LoadCatalog(catalogPath, log)
	if err != nil {
		log.Fatal("Catalog load failed", "error", err)
	}

	// Repos
	log.Info("Setting up Repos from main...")
	userRepo := repos.NewUserRepo(thePG, log)
	userTokenRepo := repos.NewUserTokenRepo(thePG, log)
	feedRepo := repos.NewFeedRepo(thePG, log)
	feedLikeRepo := repos.NewFeedLikeRepo(thePG, log)
	commentRepo := repos.NewCommentRepo(thePG, log)
	commentLikeRepo := repos.NewCommentLikeRepo(thePG, log)
	followRepo := repos.NewFollowRepo(thePG, log)
	songRepo := repos.NewSavedSongRepo(thePG, log)
	prefScoreRepo := repos.NewPrefScoreRepo(thePG, log)

	// Clients
	log.Info("Setting up Clients from main...")
	bucketService, err := gcs.NewBucketService(log)
	if err != nil {
		log.Warn("Could not init BucketService", "error", err)
	}
	notificationBus, err := redisbus.NewNotificationBus(log)
	if err != nil {
		log.Warn("Could not init NotificationBus", "error", err)
	}
	sunoClient, err := suno.NewClient(log)
	if err != nil {
		log.Warn("Could not init SunoClient", "error", err)
	}

	// Services
	log.Info("Setting up Services from main...")
	var avatarService services.AvatarService
	if bucketService != nil {
		avatarService, err = services.NewAvatarService(log, bucketService)
		if err != nil {
			log.Warn("Could not init AvatarService", "error", err)
		}
	}
	authService := services.NewAuthService(thePG, log, userRepo, userTokenRepo, avatarService, jwtSecretKey,
		time.Duration(accessTokenTTL)*time.Second, time.Duration(refreshTokenTTL)*time.Second)
	userService := services.NewUserService(thePG, log, userRepo, followRepo, avatarService)
	prefStore := services.NewPrefStoreService(thePG, log, prefScoreRepo)
	prefListener := services.NewPrefListenerService(log, prefStore)
	prefListener.StartWorker(context.Background())
	rateLimiter := services.NewRateLimitService(log, rateLimitMax, time.Duration(rateLimitWindowSec)*time.Second)
	rateLimiter.StartCleanup(context.Background())
	feedService := services.NewFeedService(thePG, log, catalog, feedRepo, userRepo, songRepo, feedLikeRepo, commentRepo, prefStore)
	likeService := services.NewLikeService(thePG, log, feedRepo, feedLikeRepo, commentRepo, commentLikeRepo, prefListener, notificationBus)
	commentService := services.NewCommentService(thePG, log, feedRepo, commentRepo, commentLikeRepo, userRepo, notificationBus)
	followService := services.NewFollowService(thePG, log, followRepo, userRepo, notificationBus)
	songService := services.NewSongService(thePG, log, songRepo, sunoClient, notificationBus, sunoCallbackURL)
	notifStream := services.NewNotificationStreamService(log)
	if notificationBus != nil {
		if err := notificationBus.StartForwarder(context.Background(), notifStream.Broadcast); err != nil {
			log.Warn("Could not start notification forwarder", "error", err)
		}
	}

	// Handlers
	log.Info("Setting up handlers from main...")
	authHandler := handlers.NewAuthHandler(authService)
	userHandler := handlers.NewUserHandler(userService)
	feedHandler := handlers.NewFeedHandler(feedService)
	commentHandler := handlers.NewCommentHandler(commentService)
	likeHandler := handlers.NewLikeHandler(likeService)
	followHandler := handlers.NewFollowHandler(followService)
	songHandler := handlers.NewSongHandler(songService)
	mediaHandler := handlers.NewMediaHandler(bucketService)
	notificationHandler := handlers.NewNotificationHandler(notifStream)

	// Middleware
	log.Info("Setting up middleware from main...")
	authMiddleware := middleware.NewAuthMiddleware(log, authService)
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(log, rateLimiter)

	// Router
	log.Info("Setting up router from main...")
	router := server.NewRouter(server.RouterConfig{
		AuthHandler:         authHandler,
		AuthMiddleware:      authMiddleware,
		RateLimitMiddleware: rateLimitMiddleware,
		UserHandler:         userHandler,
		FeedHandler:         feedHandler,
		CommentHandler:      commentHandler,
		LikeHandler:         likeHandler,
		FollowHandler:       followHandler,
		SongHandler:         songHandler,
		MediaHandler:        mediaHandler,
		NotificationHandler: notificationHandler,
	})

	port := utils.GetEnv("PORT", "8080", log)
	fmt.Printf("Server listening on :%s\n", port)
	if err := router.Run(":" + port); err != nil {
		log.Warn("Server failed", "error", err)
	}
}
