package stores

import (
	"github.com/socialhub/client/internal/auth"
)

// Registry owns one instance of every domain store.
type Registry struct {
	Posts         *PostStore
	Events        *EventStore
	Friends       *FriendStore
	Clubs         *ClubStore
	Messages      *MessageStore
	Invites       *InviteStore
	Notifications *NotificationStore
	User          *UserStore

	unsubscribe func()
}

// NewRegistry builds the stores over api. Every cache is dropped whenever the
// session changes hands or ends.
func NewRegistry(api API, session Session, opts ...Option) *Registry {
	s := newSettings(opts)
	r := &Registry{
		Posts:         newPostStore(api, s),
		Events:        newEventStore(api, s),
		Friends:       newFriendStore(api, s),
		Clubs:         newClubStore(api, s),
		Messages:      newMessageStore(api, s),
		Invites:       newInviteStore(api, s),
		Notifications: newNotificationStore(api, s),
		User:          newUserStore(api, session, s),
	}
	r.Invites.accepted = r.Clubs.membershipChanged

	r.unsubscribe = session.Subscribe(func(state auth.State) {
		r.Reset()
		if state == auth.Authenticated {
			r.User.seed()
		}
	})
	return r
}

// Reset drops every cached collection.
func (r *Registry) Reset() {
	r.Posts.reset()
	r.Events.reset()
	r.Friends.reset()
	r.Clubs.reset()
	r.Messages.reset()
	r.Invites.reset()
	r.Notifications.reset()
	r.User.reset()
}

// Close stops following session changes.
func (r *Registry) Close() {
	if r.unsubscribe != nil {
		r.unsubscribe()
	}
}
