package stores

import (
	"context"
	"fmt"

	"github.com/socialhub/client/internal/cache"
	"github.com/socialhub/client/internal/models"
)

// InviteStore serves pending club invitations.
type InviteStore struct {
	base
	invites  *cache.Cache[[]models.Invite]
	accepted func()
}

const invitesSub = "mine"

func newInviteStore(api API, s settings) *InviteStore {
	return &InviteStore{
		base:    newBase(api, s),
		invites: newCache[[]models.Invite](s, cache.Invites),
	}
}

// Invites returns pending invitations. They are kept until an answer or a
// forced read replaces them; failures are logged and the last known list is
// returned.
func (i *InviteStore) Invites(ctx context.Context, force bool) ([]models.Invite, error) {
	invites, err := i.invites.ReadOrStale(ctx, invitesSub, force, func(ctx context.Context) ([]models.Invite, error) {
		var out []models.Invite
		if err := i.api.Get(ctx, "/clubs/invites/", nil, &out); err != nil {
			return nil, fmt.Errorf("fetch invites: %w", err)
		}
		return out, nil
	})
	return invites, i.degrade(ctx, "invites", err)
}

// Accept joins the inviting club and refetches the invitations.
func (i *InviteStore) Accept(ctx context.Context, id int64) error {
	if err := i.api.Post(ctx, idPath("/clubs/invites/", id, "accept/"), nil, nil); err != nil {
		return fmt.Errorf("accept invite %d: %w", id, err)
	}
	if i.accepted != nil {
		i.accepted()
	}
	return i.refetch(ctx)
}

// Reject declines an invitation and refetches the invitations.
func (i *InviteStore) Reject(ctx context.Context, id int64) error {
	if err := i.api.Post(ctx, idPath("/clubs/invites/", id, "reject/"), nil, nil); err != nil {
		return fmt.Errorf("reject invite %d: %w", id, err)
	}
	return i.refetch(ctx)
}

func (i *InviteStore) refetch(ctx context.Context) error {
	_, err := i.invites.Read(ctx, invitesSub, true, func(ctx context.Context) ([]models.Invite, error) {
		var out []models.Invite
		if err := i.api.Get(ctx, "/clubs/invites/", nil, &out); err != nil {
			return nil, fmt.Errorf("fetch invites: %w", err)
		}
		return out, nil
	})
	return err
}

func (i *InviteStore) reset() {
	i.invites.Reset()
}
