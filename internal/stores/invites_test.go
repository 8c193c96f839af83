package stores

import (
	"context"
	"net/http"
	"testing"

	"github.com/socialhub/client/internal/models"
)

func TestAcceptInviteRefreshesMemberships(t *testing.T) {
	api := newFakeAPI(t)
	api.reply(http.MethodGet, "/clubs/invites/", http.StatusOK, []models.Invite{{ID: 5, ClubName: "choir", Status: "pending"}})
	api.reply(http.MethodGet, "/clubs/my/", http.StatusOK, []models.Club{{ID: 1, Name: "readers"}})
	api.reply(http.MethodPost, "/clubs/invites/5/accept/", http.StatusOK, nil)
	reg := newTestRegistry(t, api.client(t), nil, nil)
	ctx := context.Background()

	if _, err := reg.Invites.Invites(ctx, false); err != nil {
		t.Fatalf("invites: %v", err)
	}
	if _, err := reg.Clubs.MyClubs(ctx, false); err != nil {
		t.Fatalf("my clubs: %v", err)
	}

	api.reply(http.MethodGet, "/clubs/invites/", http.StatusOK, []models.Invite{})
	api.reply(http.MethodGet, "/clubs/my/", http.StatusOK, []models.Club{{ID: 1, Name: "readers"}, {ID: 2, Name: "choir"}})

	if err := reg.Invites.Accept(ctx, 5); err != nil {
		t.Fatalf("accept: %v", err)
	}
	invites, _ := reg.Invites.Invites(ctx, false)
	if len(invites) != 0 {
		t.Fatalf("expected invite gone got %+v", invites)
	}
	mine, _ := reg.Clubs.MyClubs(ctx, false)
	if len(mine) != 2 {
		t.Fatalf("expected memberships refreshed got %+v", mine)
	}
}

func TestRejectInviteKeepsMemberships(t *testing.T) {
	api := newFakeAPI(t)
	api.reply(http.MethodGet, "/clubs/invites/", http.StatusOK, []models.Invite{{ID: 5}})
	api.reply(http.MethodGet, "/clubs/my/", http.StatusOK, []models.Club{{ID: 1, Name: "readers"}})
	api.reply(http.MethodPost, "/clubs/invites/5/reject/", http.StatusOK, nil)
	reg := newTestRegistry(t, api.client(t), nil, nil)
	ctx := context.Background()

	_, _ = reg.Invites.Invites(ctx, false)
	_, _ = reg.Clubs.MyClubs(ctx, false)

	if err := reg.Invites.Reject(ctx, 5); err != nil {
		t.Fatalf("reject: %v", err)
	}
	_, _ = reg.Clubs.MyClubs(ctx, false)
	if got := api.count(http.MethodGet, "/clubs/my/"); got != 1 {
		t.Fatalf("expected memberships untouched got %d fetches", got)
	}
	if got := api.count(http.MethodGet, "/clubs/invites/"); got != 2 {
		t.Fatalf("expected invites refetched got %d", got)
	}
}
