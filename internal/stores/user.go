package stores

import (
	"context"
	"fmt"

	"github.com/socialhub/client/internal/auth"
	"github.com/socialhub/client/internal/cache"
	"github.com/socialhub/client/internal/models"
)

// Session is the part of the session manager the stores rely on.
// *auth.Manager satisfies it.
type Session interface {
	CurrentUser() (models.User, bool)
	SetUser(ctx context.Context, user models.User) error
	Subscribe(fn func(auth.State)) func()
}

// ProfileUpdate carries editable profile fields. Nil fields are left as they
// are.
type ProfileUpdate struct {
	FullName *string `json:"full_name,omitempty"`
	Email    *string `json:"email,omitempty"`
	Bio      *string `json:"bio,omitempty"`
	Location *string `json:"location,omitempty"`
}

// UserStore serves the signed-in user's profile.
type UserStore struct {
	base
	session Session
	current *cache.Cache[models.User]
}

const currentSub = "me"

func newUserStore(api API, session Session, s settings) *UserStore {
	u := &UserStore{
		base:    newBase(api, s),
		session: session,
		current: newCache[models.User](s, cache.CurrentUser),
	}
	u.seed()
	return u
}

// seed loads the persisted profile so it is available before any request.
func (u *UserStore) seed() {
	if user, ok := u.session.CurrentUser(); ok {
		u.current.Put(currentSub, user)
	}
}

// CurrentUser returns the signed-in user's profile. Failures are logged and
// the persisted profile is returned.
func (u *UserStore) CurrentUser(ctx context.Context, force bool) (models.User, error) {
	user, err := u.current.ReadOrStale(ctx, currentSub, force, func(ctx context.Context) (models.User, error) {
		var out models.User
		if err := u.api.Get(ctx, "/users/me/", nil, &out); err != nil {
			return models.User{}, fmt.Errorf("fetch current user: %w", err)
		}
		if err := u.session.SetUser(ctx, out); err != nil {
			return models.User{}, err
		}
		return out, nil
	})
	return user, u.degrade(ctx, "current user", err)
}

// UpdateProfile saves profile changes and persists the server's record.
func (u *UserStore) UpdateProfile(ctx context.Context, in ProfileUpdate) (models.User, error) {
	var updated models.User
	if err := u.api.Put(ctx, "/users/me/update/", in, &updated); err != nil {
		return models.User{}, fmt.Errorf("update profile: %w", err)
	}
	if updated.ID == 0 {
		return u.CurrentUser(ctx, true)
	}
	u.current.Put(currentSub, updated)
	if err := u.session.SetUser(ctx, updated); err != nil {
		return updated, err
	}
	return updated, nil
}

func (u *UserStore) reset() {
	u.current.Reset()
}
