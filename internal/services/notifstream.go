package services

import (
	"sync"

	"github.com/google/uuid"

	"github.com/hejz/hejz-backend/internal/clients/redisbus"
	"github.com/hejz/hejz-backend/internal/logger"
)

const notifStreamBuffer = 8

// NotificationStreamService is the in-process end of the notification fan-out:
// the redis forwarder hands every bus message to Broadcast, and each connected
// client holds a Subscribe channel for its own user id.
type NotificationStreamService interface {
	// Subscribe returns a receive channel for the user's notifications and a
	// cancel func that must be called when the client disconnects.
	Subscribe(userID uuid.UUID) (<-chan redisbus.Notification, func())
	// Broadcast routes one notification to every live subscriber of its
	// target user. Safe to pass directly as the forwarder callback.
	Broadcast(n redisbus.Notification)
}

type notificationStreamService struct {
	log  *logger.Logger
	mu   sync.Mutex
	subs map[uuid.UUID]map[chan redisbus.Notification]struct{}
}

func NewNotificationStreamService(log *logger.Logger) NotificationStreamService {
	serviceLog := log.With("service", "NotificationStreamService")
	return &notificationStreamService{
		log:  serviceLog,
		subs: make(map[uuid.UUID]map[chan redisbus.Notification]struct{}),
	}
}

func (ns *notificationStreamService) Subscribe(userID uuid.UUID) (<-chan redisbus.Notification, func()) {
	ch := make(chan redisbus.Notification, notifStreamBuffer)

	ns.mu.Lock()
	set := ns.subs[userID]
	if set == nil {
		set = make(map[chan redisbus.Notification]struct{})
		ns.subs[userID] = set
	}
	set[ch] = struct{}{}
	ns.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			ns.mu.Lock()
			if set, ok := ns.subs[userID]; ok {
				delete(set, ch)
				if len(set) == 0 {
					delete(ns.subs, userID)
				}
			}
			ns.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

func (ns *notificationStreamService) Broadcast(n redisbus.Notification) {
	target, err := uuid.Parse(n.TargetUser)
	if err != nil {
		ns.log.Warn("notification with bad target dropped", "type", n.Type, "target", n.TargetUser)
		return
	}

	ns.mu.Lock()
	defer ns.mu.Unlock()
	for ch := range ns.subs[target] {
		select {
		case ch <- n:
		default:
			// Slow consumer; the client still has the persisted state to
			// fall back on.
			ns.log.Warn("notification dropped, subscriber buffer full", "user_id", target, "type", n.Type)
		}
	}
}
