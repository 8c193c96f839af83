package cache

import "time"

// Family names a kind of cached resource. Every family has a fixed TTL.
type Family string

// Forever marks a family whose entries stay fresh until invalidated.
const Forever time.Duration = -1

const (
	Posts             Family = "posts"
	UserPosts         Family = "userPosts"
	PostDetail        Family = "post"
	Replies           Family = "replies"
	Events            Family = "events"
	ClubEvents        Family = "clubEvents"
	SuggestedEvents   Family = "suggestedEvents"
	Friends           Family = "friends"
	FriendSuggestions Family = "friendSuggestions"
	FriendCount       Family = "friendCount"
	Clubs             Family = "clubs"
	MyClubs           Family = "myClubs"
	ClubMembers       Family = "clubMembers"
	Threads           Family = "threads"
	Messages          Family = "messages"
	Invites           Family = "invites"
	Notifications     Family = "notifications"
	CurrentUser       Family = "currentUser"
)

var policy = map[Family]time.Duration{
	Posts:             30 * time.Second,
	UserPosts:         60 * time.Second,
	PostDetail:        30 * time.Second,
	Replies:           30 * time.Second,
	Events:            30 * time.Second,
	ClubEvents:        30 * time.Second,
	SuggestedEvents:   60 * time.Second,
	Friends:           60 * time.Second,
	FriendSuggestions: 60 * time.Second,
	FriendCount:       60 * time.Second,
	Clubs:             60 * time.Second,
	MyClubs:           Forever,
	ClubMembers:       60 * time.Second,
	Threads:           5 * time.Minute,
	Messages:          Forever,
	Invites:           Forever,
	Notifications:     60 * time.Second,
	CurrentUser:       Forever,
}

// defaultTTL applies to families missing from the policy table.
const defaultTTL = 30 * time.Second

// TTL returns the trust window for the family.
func TTL(f Family) time.Duration {
	if ttl, ok := policy[f]; ok {
		return ttl
	}
	return defaultTTL
}
