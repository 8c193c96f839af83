package stores

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/socialhub/client/internal/cache"
	"github.com/socialhub/client/internal/models"
)

// FriendStore serves the friend list, pending requests, suggestions and
// per-user friend counts.
type FriendStore struct {
	base
	friends     *cache.Cache[models.Friends]
	suggestions *cache.Cache[[]models.User]
	counts      *cache.Cache[int]
}

const friendsSub = "me"

func newFriendStore(api API, s settings) *FriendStore {
	return &FriendStore{
		base:        newBase(api, s),
		friends:     newCache[models.Friends](s, cache.Friends),
		suggestions: newCache[[]models.User](s, cache.FriendSuggestions),
		counts:      newCache[int](s, cache.FriendCount),
	}
}

// Friends returns accepted friends together with pending requests.
func (f *FriendStore) Friends(ctx context.Context, force bool) (models.Friends, error) {
	done := f.loading.begin("friends")
	defer done()

	return f.friends.Read(ctx, friendsSub, force, func(ctx context.Context) (models.Friends, error) {
		var out models.Friends
		if err := f.api.Get(ctx, "/friends/friends/", nil, &out.Friends); err != nil {
			return models.Friends{}, fmt.Errorf("fetch friends: %w", err)
		}
		if err := f.api.Get(ctx, "/friends/requests/", nil, &out.Pending); err != nil {
			return models.Friends{}, fmt.Errorf("fetch friend requests: %w", err)
		}
		return out, nil
	})
}

// Suggestions returns suggested users. Failures are logged and the last known
// list is returned.
func (f *FriendStore) Suggestions(ctx context.Context, force bool) ([]models.User, error) {
	users, err := f.suggestions.ReadOrStale(ctx, friendsSub, force, func(ctx context.Context) ([]models.User, error) {
		var out []models.User
		if err := f.api.Get(ctx, "/friends/suggestions/", nil, &out); err != nil {
			return nil, fmt.Errorf("fetch friend suggestions: %w", err)
		}
		return out, nil
	})
	return users, f.degrade(ctx, "friend suggestions", err)
}

// SendRequest asks username to become a friend.
func (f *FriendStore) SendRequest(ctx context.Context, username string) error {
	if err := f.api.Post(ctx, "/friends/send/", map[string]string{"to_username": username}, nil); err != nil {
		return fmt.Errorf("send friend request to %s: %w", username, err)
	}
	f.friends.Invalidate(friendsSub)
	f.suggestions.Invalidate(friendsSub)
	return nil
}

// CancelRequest withdraws an outgoing request to username.
func (f *FriendStore) CancelRequest(ctx context.Context, username string) error {
	if err := f.api.Post(ctx, "/friends/cancel/", map[string]string{"username": username}, nil); err != nil {
		return fmt.Errorf("cancel friend request to %s: %w", username, err)
	}
	f.friends.Invalidate(friendsSub)
	f.suggestions.Invalidate(friendsSub)
	return nil
}

// Accept accepts the request sent by username and refetches the friend list.
func (f *FriendStore) Accept(ctx context.Context, username string) error {
	if err := f.api.Post(ctx, "/friends/accept/", map[string]string{"from_username": username}, nil); err != nil {
		return fmt.Errorf("accept friend request from %s: %w", username, err)
	}
	return f.refetch(ctx, username)
}

// Reject declines the request sent by username and refetches the friend list.
func (f *FriendStore) Reject(ctx context.Context, username string) error {
	if err := f.api.Post(ctx, "/friends/reject/", map[string]string{"from_username": username}, nil); err != nil {
		return fmt.Errorf("reject friend request from %s: %w", username, err)
	}
	return f.refetch(ctx, username)
}

// Remove ends the friendship with username and refetches the friend list.
func (f *FriendStore) Remove(ctx context.Context, username string) error {
	if err := f.api.Post(ctx, "/friends/remove/", map[string]string{"username": username}, nil); err != nil {
		return fmt.Errorf("remove friend %s: %w", username, err)
	}
	return f.refetch(ctx, username)
}

// Search finds users matching query. A blank query returns nothing without a
// request.
func (f *FriendStore) Search(ctx context.Context, query string) ([]models.User, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []models.User{}, nil
	}

	done := f.loading.begin("search")
	defer done()

	var out []models.User
	if err := f.api.Get(ctx, "/users/search/", url.Values{"q": {query}}, &out); err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	return out, nil
}

// FriendCount returns how many friends username has. Failures are not cached.
func (f *FriendStore) FriendCount(ctx context.Context, username string, force bool) (int, error) {
	return f.counts.Read(ctx, username, force, func(ctx context.Context) (int, error) {
		var out struct {
			FriendsCount int `json:"friends_count"`
		}
		if err := f.api.Get(ctx, namePath("/friends/", username, "count/"), nil, &out); err != nil {
			return 0, fmt.Errorf("fetch friend count of %s: %w", username, err)
		}
		return out.FriendsCount, nil
	})
}

// Loading reports whether the friend list or a search is in progress.
func (f *FriendStore) Loading() bool { return f.loading.any() }

func (f *FriendStore) refetch(ctx context.Context, username string) error {
	f.counts.Invalidate(username)
	f.suggestions.Invalidate(friendsSub)
	_, err := f.Friends(ctx, true)
	return err
}

func (f *FriendStore) reset() {
	f.friends.Reset()
	f.suggestions.Reset()
	f.counts.Reset()
}
