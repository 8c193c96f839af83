package stores

import (
	"context"
	"fmt"

	"github.com/socialhub/client/internal/cache"
	"github.com/socialhub/client/internal/collection"
	"github.com/socialhub/client/internal/models"
)

// NotificationStore serves the user's activity notifications.
type NotificationStore struct {
	base
	list *cache.Cache[[]models.Notification]
}

const notificationsSub = "mine"

func newNotificationStore(api API, s settings) *NotificationStore {
	return &NotificationStore{
		base: newBase(api, s),
		list: newCache[[]models.Notification](s, cache.Notifications),
	}
}

// List returns the notifications.
func (n *NotificationStore) List(ctx context.Context, force bool) ([]models.Notification, error) {
	return n.list.Read(ctx, notificationsSub, force, func(ctx context.Context) ([]models.Notification, error) {
		var out []models.Notification
		if err := n.api.Get(ctx, "/notifications/", nil, &out); err != nil {
			return nil, fmt.Errorf("fetch notifications: %w", err)
		}
		return out, nil
	})
}

// UnreadCount counts unread notifications among those loaded.
func (n *NotificationStore) UnreadCount() int {
	items, _ := n.list.Peek(notificationsSub)
	return len(collection.Filter(items, func(item models.Notification) bool { return !item.IsRead }))
}

// MarkAllRead marks every notification read.
func (n *NotificationStore) MarkAllRead(ctx context.Context) error {
	if err := n.api.Post(ctx, "/notifications/mark-read/", nil, nil); err != nil {
		return fmt.Errorf("mark notifications read: %w", err)
	}
	n.list.Mutate(notificationsSub, func(items []models.Notification) []models.Notification {
		return collection.UpdateAll(items, markRead)
	})
	return nil
}

// MarkRead marks one notification read.
func (n *NotificationStore) MarkRead(ctx context.Context, id int64) error {
	if err := n.api.Post(ctx, idPath("/notifications/", id, "mark-read/"), nil, nil); err != nil {
		return fmt.Errorf("mark notification %d read: %w", id, err)
	}
	collection.ApplyAll(id, markRead, n.list)
	return nil
}

// Clear deletes every notification.
func (n *NotificationStore) Clear(ctx context.Context) error {
	if err := n.api.Post(ctx, "/notifications/clear/", nil, nil); err != nil {
		return fmt.Errorf("clear notifications: %w", err)
	}
	n.list.Mutate(notificationsSub, func([]models.Notification) []models.Notification {
		return []models.Notification{}
	})
	return nil
}

func markRead(item models.Notification) models.Notification {
	item.IsRead = true
	return item
}

func (n *NotificationStore) reset() {
	n.list.Reset()
}
