package notification

import (
	"context"
	"sync"
	"time"

	"ChurchLedger/internal/logger"
)

const DefaultMaxRecent = 100

// Sender delivers a text message to a chat.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

type Notification struct {
	Message string    `json:"message"`
	SentAt  time.Time `json:"sent_at"`
	Err     string    `json:"error,omitempty"`
}

type NotificationService struct {
	mu            sync.Mutex
	notifications []Notification
	maxRecent     int
	sender        Sender
	chatID        int64
	now           func() time.Time
}

// NewNotificationService keeps up to maxRecent notifications. When sender is
// nil or chatID is zero the notifications are only recorded.
func NewNotificationService(sender Sender, chatID int64, maxRecent int) *NotificationService {
	if maxRecent <= 0 {
		maxRecent = DefaultMaxRecent
	}
	return &NotificationService{
		notifications: make([]Notification, 0),
		maxRecent:     maxRecent,
		sender:        sender,
		chatID:        chatID,
		now:           time.Now,
	}
}

// Notify records msg and pushes it to the owner chat. Failures are logged.
func (ns *NotificationService) Notify(ctx context.Context, msg string) {
	n := Notification{Message: msg, SentAt: ns.now()}
	if ns.sender != nil && ns.chatID != 0 {
		if err := ns.sender.SendMessage(ctx, ns.chatID, msg); err != nil {
			logger.Error("notification to chat %d failed: %v", ns.chatID, err)
			n.Err = err.Error()
		}
	}
	ns.AddNotification(n)
}

func (ns *NotificationService) AddNotification(n Notification) {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	ns.notifications = append(ns.notifications, n)
	if over := len(ns.notifications) - ns.maxRecent; over > 0 {
		ns.notifications = append([]Notification(nil), ns.notifications[over:]...)
	}
}

func (ns *NotificationService) GetNotifications() []Notification {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	out := make([]Notification, len(ns.notifications))
	copy(out, ns.notifications)
	return out
}

func (ns *NotificationService) ClearNotifications() {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	ns.notifications = []Notification{}
}
