package models

import "time"

// Credentials is the bearer token pair issued by the login endpoint.
type Credentials struct {
	AccessToken  string `json:"access"`
	RefreshToken string `json:"refresh"`
}

// Empty reports whether neither token is present.
func (c Credentials) Empty() bool {
	return c.AccessToken == "" && c.RefreshToken == ""
}

// User represents an account as returned by /users/me/ and search endpoints.
type User struct {
	ID             int64  `json:"id"`
	Username       string `json:"username"`
	Email          string `json:"email,omitempty"`
	FullName       string `json:"full_name,omitempty"`
	Bio            string `json:"bio,omitempty"`
	Location       string `json:"location,omitempty"`
	ProfilePicture string `json:"profile_picture,omitempty"`
}

func (u User) RecordKey() int64 { return u.ID }

// Post is a feed entry. Counters are owned by the server and only nudged locally
// after a confirmed like or repost.
type Post struct {
	ID             int64  `json:"id"`
	AuthorName     string `json:"authorName"`
	Username       string `json:"username"`
	AuthorInitials string `json:"authorInitials"`
	Content        string `json:"content"`
	TimeAgo        string `json:"timeAgo"`
	CommentCount   int    `json:"commentCount"`
	LikeCount      int    `json:"likeCount"`
	HasLiked       bool   `json:"hasLiked"`
	RepostCount    int    `json:"repostCount"`
	HasReposted    bool   `json:"hasReposted"`
	Pinned         bool   `json:"pinned"`
	Club           string `json:"club,omitempty"`
	IsAnonymous    bool   `json:"isAnonymous"`
}

func (p Post) RecordKey() int64 { return p.ID }

// Event is a scheduled event. Club is the id of the hosting club and is nil
// for personal events.
type Event struct {
	ID          int64     `json:"id"`
	Club        *int64    `json:"club"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	Date        time.Time `json:"date"`
	CreatedAt   time.Time `json:"created_at"`
	RSVPCount   int       `json:"rsvp_count"`
	HasRSVPed   bool      `json:"has_rsvped"`
	Image       string    `json:"image,omitempty"`
}

func (e Event) RecordKey() int64 { return e.ID }

// FriendRequest is a pending or resolved friendship invitation.
type FriendRequest struct {
	ID                 int64     `json:"id"`
	FromUser           int64     `json:"from_user"`
	FromUsername       string    `json:"from_username"`
	FromProfilePicture string    `json:"from_profile_picture,omitempty"`
	ToUser             int64     `json:"to_user"`
	ToUsername         string    `json:"to_username"`
	ToProfilePicture   string    `json:"to_profile_picture,omitempty"`
	Status             string    `json:"status"`
	CreatedAt          time.Time `json:"created_at"`
}

func (r FriendRequest) RecordKey() int64 { return r.ID }

// Friends groups the accepted friends list with pending requests; both are
// fetched together and cached under one entry.
type Friends struct {
	Friends []User          `json:"friends"`
	Pending []FriendRequest `json:"pending"`
}

// Club is a user community.
type Club struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Owner       *int64    `json:"owner"`
	IsPrivate   bool      `json:"is_private"`
	CreatedAt   time.Time `json:"created_at"`
}

func (c Club) RecordKey() int64 { return c.ID }

// ClubMember is a membership row shown on a club profile. User and Club are
// record ids.
type ClubMember struct {
	ID       int64     `json:"id"`
	User     *int64    `json:"user"`
	Club     *int64    `json:"club"`
	Role     string    `json:"role,omitempty"`
	JoinedAt time.Time `json:"joined_at"`
}

func (m ClubMember) RecordKey() int64 { return m.ID }

// ClubProfile is the composite view of a club and its members.
type ClubProfile struct {
	Club    Club         `json:"club"`
	Members []ClubMember `json:"members"`
}

// Invite is an invitation to join a club.
type Invite struct {
	ID        int64     `json:"id"`
	Club      int64     `json:"club"`
	ClubName  string    `json:"club_name"`
	InvitedBy string    `json:"invited_by"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

func (i Invite) RecordKey() int64 { return i.ID }

// Thread is a direct-message conversation.
type Thread struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Participants []string  `json:"participants"`
	IsGroup      bool      `json:"is_group"`
	LastMessage  string    `json:"last_message,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (t Thread) RecordKey() int64 { return t.ID }

// Message is a single direct message within a thread.
type Message struct {
	ID        int64     `json:"id"`
	Sender    string    `json:"sender"`
	Receiver  string    `json:"receiver,omitempty"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	IsRead    bool      `json:"is_read"`
	Pinned    bool      `json:"pinned"`
}

func (m Message) RecordKey() int64 { return m.ID }

// Notification is an activity notice for the current user.
type Notification struct {
	ID        int64     `json:"id"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	RelatedID *int64    `json:"related_id,omitempty"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

func (n Notification) RecordKey() int64 { return n.ID }

// Snapshot is the persisted session state restored at startup.
type Snapshot struct {
	Credentials Credentials `json:"credentials"`
	User        *User       `json:"user,omitempty"`
	SavedAt     time.Time   `json:"saved_at"`
}
