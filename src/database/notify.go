package database

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"motifcore/src/utils/errors"
)

// AllObjects subscribes to every object on a channel.
const AllObjects = "*"

// NotificationManager listens for journal notifications and fans them out to subscribers.
type NotificationManager struct {
	listener    *pq.Listener
	subscribers map[string]map[string]map[string]chan<- string
	mu          sync.RWMutex
}

func NewNotificationManager(connStr string) (*NotificationManager, error) {
	listener := pq.NewListener(connStr, 10*time.Second, time.Minute, func(event pq.ListenerEventType, err error) {
		if err != nil {
			slog.Warn("Journal listener event", "event", event, "error", err)
		}
	})
	nm := newNotificationManager(listener)
	go nm.listen()
	return nm, nil
}

func newNotificationManager(listener *pq.Listener) *NotificationManager {
	return &NotificationManager{
		listener:    listener,
		subscribers: make(map[string]map[string]map[string]chan<- string), // channel -> objectID -> subscriberID -> chan
	}
}

func (nm *NotificationManager) listen() {
	for notification := range nm.listener.Notify {
		if notification == nil {
			continue
		}
		nm.handleNotification(notification.Channel, notification.Extra)
	}
}

// handleNotification delivers "objectID;message" payloads. Subscribers to
// AllObjects receive the whole payload.
func (nm *NotificationManager) handleNotification(channel, payload string) {
	nm.mu.RLock()
	defer nm.mu.RUnlock()

	objectId, msg, ok := strings.Cut(payload, ";")
	if !ok {
		slog.Error("Invalid payload format", "payload", payload)

		return
	}

	subs, ok := nm.subscribers[channel]
	if !ok {
		return
	}
	deliver := func(objSubs map[string]chan<- string, text string) {
		for _, ch := range objSubs {
			select {
			case ch <- text:
			default:
				slog.Warn("Notification channel is full, skipping", "channel", channel)
			}
		}
	}
	deliver(subs[objectId], msg)
	deliver(subs[AllObjects], channel+";"+payload)
}

func (nm *NotificationManager) Subscribe(subscriberID string, channel string, objectID string) (<-chan string, error) {
	nm.mu.Lock()
	defer nm.mu.Unlock()

	if _, ok := nm.subscribers[channel]; !ok {
		if nm.listener != nil {
			if err := nm.listener.Listen(channel); err != nil {
				return nil, errors.Wrapf(err, "failed to listen on channel %s", channel)
			}
		}
		nm.subscribers[channel] = make(map[string]map[string]chan<- string)
	}

	if nm.subscribers[channel][objectID] == nil {
		nm.subscribers[channel][objectID] = make(map[string]chan<- string)
	}

	ch := make(chan string, 10)
	nm.subscribers[channel][objectID][subscriberID] = ch

	slog.Debug("Subscribed to channel", "channel", channel, "objectID", objectID, "subscriberID", subscriberID)
	return ch, nil
}

func (nm *NotificationManager) NewSubscriber() string {
	return uuid.NewString()
}

func (nm *NotificationManager) Unsubscribe(channel string, subscriberID string, objectIDs ...string) error {
	nm.mu.Lock()
	defer nm.mu.Unlock()

	subs, ok := nm.subscribers[channel]
	if !ok {
		return errors.Newf("no subscribers for channel %s", channel)
	}

	for _, objectID := range objectIDs {
		if objSubs, ok := subs[objectID]; ok {
			if ch, exists := objSubs[subscriberID]; exists {
				close(ch)
				delete(objSubs, subscriberID)
			}

			if len(objSubs) == 0 {
				delete(subs, objectID)
			}
		}
	}

	if len(subs) == 0 {
		if nm.listener != nil {
			if err := nm.listener.Unlisten(channel); err != nil {
				return errors.Wrapf(err, "failed to unlisten on channel %s", channel)
			}
		}
		delete(nm.subscribers, channel)
	}

	return nil
}

func (nm *NotificationManager) Close() error {
	if nm.listener == nil {
		return nil
	}
	_ = nm.listener.UnlistenAll()
	return nm.listener.Close()
}

func Notify(db *gorm.DB, channel string, objectID string, payload string) error {
	msg := objectID + ";" + payload
	if err := db.Exec("SELECT pg_notify(?, ?)", channel, msg).Error; err != nil {
		return errors.Wrapf(err, "failed to send notification")
	}
	return nil
}

func FanIn(ctx context.Context, channels ...<-chan string) <-chan string {
	out := make(chan string) // Output channel
	var wg sync.WaitGroup

	for _, ch := range channels {
		if ch == nil { // Skip nil channels
			continue
		}
		wg.Add(1)
		go func(c <-chan string) {
			defer wg.Done()
			for {
				select {
				case n, ok := <-c:
					if !ok {
						return
					}
					select {
					case out <- n:
					case <-ctx.Done():
						return
					}
				case <-ctx.Done():
					return
				}
			}
		}(ch)
	}

	go func() {
		wg.Wait()
		close(out)
	}()

	return out
}
