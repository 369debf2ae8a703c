package redisbus

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/hejz/hejz-backend/internal/logger"
)

// Notification is one fan-out event: a like, comment or follow that another
// user should hear about.
type Notification struct {
	Type       string    `json:"type"`
	ActorID    string    `json:"actor_id"`
	TargetUser string    `json:"target_user"`
	FeedID     int64     `json:"feed_id,omitempty"`
	CommentID  int64     `json:"comment_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

const (
	NotificationFeedLiked     = "feed_liked"
	NotificationFeedCommented = "feed_commented"
	NotificationUserFollowed  = "user_followed"
	NotificationSongReady     = "song_ready"
)

// NotificationBus fans notifications out through redis pub/sub so every API
// instance can deliver them to its connected clients.
type NotificationBus interface {
	Publish(ctx context.Context, n Notification) error
	StartForwarder(ctx context.Context, onMsg func(n Notification)) error
	Close() error
}

type notificationBus struct {
	log     *logger.Logger
	rdb     *goredis.Client
	channel string
}

// NewNotificationBus connects to REDIS_ADDR. When the env var is unset the
// caller gets (nil, nil) and should treat the bus as disabled; every method
// on a nil bus is a safe no-op.
func NewNotificationBus(log *logger.Logger) (NotificationBus, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, nil
	}
	ch := strings.TrimSpace(os.Getenv("REDIS_CHANNEL"))
	if ch == "" {
		ch = "notifications"
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &notificationBus{
		log:     log.With("client", "NotificationBus"),
		rdb:     rdb,
		channel: ch,
	}, nil
}

func (b *notificationBus) Publish(ctx context.Context, n Notification) error {
	if b == nil || b.rdb == nil {
		return nil
	}
	raw, err := json.Marshal(n)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, b.channel, raw).Err()
}

func (b *notificationBus) StartForwarder(ctx context.Context, onMsg func(n Notification)) error {
	if b == nil || b.rdb == nil {
		return nil
	}
	if onMsg == nil {
		return fmt.Errorf("onMsg callback required")
	}

	sub := b.rdb.Subscribe(ctx, b.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	go func() {
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					_ = sub.Close()
					return
				}
				var n Notification
				if err := json.Unmarshal([]byte(m.Payload), &n); err != nil {
					b.log.Warn("bad notification payload", "error", err)
					continue
				}
				onMsg(n)
			}
		}
	}()
	return nil
}

func (b *notificationBus) Close() error {
	if b == nil || b.rdb == nil {
		return nil
	}
	return b.rdb.Close()
}
