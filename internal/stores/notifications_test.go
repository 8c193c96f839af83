package stores

import (
	"context"
	"net/http"
	"testing"

	"github.com/socialhub/client/internal/models"
)

func TestNotificationsReadState(t *testing.T) {
	api := newFakeAPI(t)
	api.reply(http.MethodGet, "/notifications/", http.StatusOK, []models.Notification{
		{ID: 1, Type: "like", IsRead: false},
		{ID: 2, Type: "friend_request", IsRead: false},
		{ID: 3, Type: "invite", IsRead: true},
	})
	api.reply(http.MethodPost, "/notifications/2/mark-read/", http.StatusOK, nil)
	api.reply(http.MethodPost, "/notifications/mark-read/", http.StatusOK, nil)
	api.reply(http.MethodPost, "/notifications/clear/", http.StatusOK, nil)
	reg := newTestRegistry(t, api.client(t), nil, nil)
	ctx := context.Background()

	if got := reg.Notifications.UnreadCount(); got != 0 {
		t.Fatalf("expected 0 unread before load got %d", got)
	}
	if _, err := reg.Notifications.List(ctx, false); err != nil {
		t.Fatalf("list: %v", err)
	}
	if got := reg.Notifications.UnreadCount(); got != 2 {
		t.Fatalf("expected 2 unread got %d", got)
	}

	if err := reg.Notifications.MarkRead(ctx, 2); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if got := reg.Notifications.UnreadCount(); got != 1 {
		t.Fatalf("expected 1 unread got %d", got)
	}

	if err := reg.Notifications.MarkAllRead(ctx); err != nil {
		t.Fatalf("mark all read: %v", err)
	}
	if got := reg.Notifications.UnreadCount(); got != 0 {
		t.Fatalf("expected 0 unread got %d", got)
	}

	if err := reg.Notifications.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	items, err := reg.Notifications.List(ctx, false)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected cleared list got %+v", items)
	}
	if got := api.count(http.MethodGet, "/notifications/"); got != 1 {
		t.Fatalf("expected local updates only got %d fetches", got)
	}
}
