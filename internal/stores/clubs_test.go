package stores

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/socialhub/client/internal/models"
)

func sampleClubs() []models.Club {
	return []models.Club{
		{ID: 1, Name: "readers", Owner: ref(10)},
		{ID: 2, Name: "choir", Owner: ref(11)},
	}
}

func TestProfileReusesLoadedClubs(t *testing.T) {
	api := newFakeAPI(t)
	api.reply(http.MethodGet, "/clubs/", http.StatusOK, sampleClubs())
	api.reply(http.MethodGet, "/clubs/readers/profile/", http.StatusOK, map[string]any{
		"members": []models.ClubMember{{ID: 10, User: ref(10), Club: ref(1), Role: "owner"}},
	})
	reg := newTestRegistry(t, api.client(t), nil, nil)
	ctx := context.Background()

	if _, err := reg.Clubs.Clubs(ctx, false); err != nil {
		t.Fatalf("clubs: %v", err)
	}
	profile, err := reg.Clubs.Profile(ctx, "readers", false)
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if profile.Club.ID != 1 || len(profile.Members) != 1 || profile.Members[0].Role != "owner" {
		t.Fatalf("unexpected profile %+v", profile)
	}
	if got := api.count(http.MethodGet, "/clubs/"); got != 1 {
		t.Fatalf("expected directory reused got %d fetches", got)
	}
	if reg.Clubs.LoadingProfile("readers") {
		t.Fatalf("expected loading flag cleared")
	}
}

func TestProfileFetchesDirectoryOnMiss(t *testing.T) {
	api := newFakeAPI(t)
	api.reply(http.MethodGet, "/clubs/", http.StatusOK, sampleClubs())
	api.reply(http.MethodGet, "/clubs/choir/profile/", http.StatusOK, map[string]any{"members": []models.ClubMember{}})
	reg := newTestRegistry(t, api.client(t), nil, nil)

	profile, err := reg.Clubs.Profile(context.Background(), "choir", false)
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if profile.Club.ID != 2 {
		t.Fatalf("expected choir got %+v", profile.Club)
	}
	if got := api.count(http.MethodGet, "/clubs/"); got != 1 {
		t.Fatalf("expected one directory fetch got %d", got)
	}
}

func TestProfileUnknownClub(t *testing.T) {
	api := newFakeAPI(t)
	api.reply(http.MethodGet, "/clubs/", http.StatusOK, sampleClubs())
	reg := newTestRegistry(t, api.client(t), nil, nil)

	_, err := reg.Clubs.Profile(context.Background(), "chess", false)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound got %v", err)
	}
	if got := api.count(http.MethodGet, "/clubs/chess/profile/"); got != 0 {
		t.Fatalf("expected no member fetch got %d", got)
	}
	if reg.Clubs.LoadingProfile("chess") {
		t.Fatalf("expected loading flag cleared after failure")
	}
}

func TestProfileMemberFailureClearsLoading(t *testing.T) {
	api := newFakeAPI(t)
	api.reply(http.MethodGet, "/clubs/", http.StatusOK, sampleClubs())
	api.reply(http.MethodGet, "/clubs/readers/profile/", http.StatusInternalServerError, nil)
	reg := newTestRegistry(t, api.client(t), nil, nil)

	if _, err := reg.Clubs.Profile(context.Background(), "readers", false); err == nil {
		t.Fatalf("expected member fetch error")
	}
	if reg.Clubs.LoadingProfile("readers") {
		t.Fatalf("expected loading flag cleared after failure")
	}
}

func TestCreateClubPrependsToBothLists(t *testing.T) {
	api := newFakeAPI(t)
	created := models.Club{ID: 3, Name: "chess", Owner: ref(10)}
	api.reply(http.MethodGet, "/clubs/", http.StatusOK, sampleClubs())
	api.reply(http.MethodGet, "/clubs/my/", http.StatusOK, sampleClubs()[:1])
	api.reply(http.MethodPost, "/clubs/create/", http.StatusCreated, created)
	reg := newTestRegistry(t, api.client(t), nil, nil)
	ctx := context.Background()

	_, _ = reg.Clubs.Clubs(ctx, false)
	_, _ = reg.Clubs.MyClubs(ctx, false)

	if _, err := reg.Clubs.Create(ctx, NewClub{Name: "chess"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	all, _ := reg.Clubs.Clubs(ctx, false)
	mine, _ := reg.Clubs.MyClubs(ctx, false)
	if all[0].ID != 3 || mine[0].ID != 3 || len(mine) != 2 {
		t.Fatalf("expected created club first got %+v and %+v", all, mine)
	}
}

func TestJoinInvalidatesMembership(t *testing.T) {
	api := newFakeAPI(t)
	api.reply(http.MethodGet, "/clubs/", http.StatusOK, sampleClubs())
	api.reply(http.MethodGet, "/clubs/my/", http.StatusOK, sampleClubs()[:1])
	api.reply(http.MethodPost, "/clubs/choir/join/", http.StatusOK, nil)
	reg := newTestRegistry(t, api.client(t), nil, nil)
	ctx := context.Background()

	_, _ = reg.Clubs.MyClubs(ctx, false)
	api.reply(http.MethodGet, "/clubs/my/", http.StatusOK, sampleClubs())

	if err := reg.Clubs.Join(ctx, "choir"); err != nil {
		t.Fatalf("join: %v", err)
	}
	mine, _ := reg.Clubs.MyClubs(ctx, false)
	if len(mine) != 2 {
		t.Fatalf("expected refreshed memberships got %+v", mine)
	}
	if got := api.count(http.MethodGet, "/clubs/"); got != 1 {
		t.Fatalf("expected forced directory fetch got %d", got)
	}
}

func TestProfileDecodesServerShapes(t *testing.T) {
	api := newFakeAPI(t)
	api.handle(http.MethodGet, "/clubs/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id": 4, "name": "readers", "description": "", "owner": 12, "created_at": "2024-01-05T10:00:00Z"}]`))
	})
	api.handle(http.MethodGet, "/clubs/readers/profile/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"club": {"id": 4, "name": "readers", "description": "", "owner": 12, "created_at": "2024-01-05T10:00:00Z"},
			"members": [{"id": 30, "user": 12, "club": 4, "joined_at": "2024-01-05T10:00:00Z"}]
		}`))
	})
	reg := newTestRegistry(t, api.client(t), nil, nil)

	profile, err := reg.Clubs.Profile(context.Background(), "readers", false)
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if profile.Club.Owner == nil || *profile.Club.Owner != 12 {
		t.Fatalf("expected owner id 12 got %+v", profile.Club)
	}
	if len(profile.Members) != 1 {
		t.Fatalf("expected one member got %+v", profile.Members)
	}
	m := profile.Members[0]
	if m.User == nil || *m.User != 12 || m.Club == nil || *m.Club != 4 || m.JoinedAt.IsZero() {
		t.Fatalf("unexpected member %+v", m)
	}
}
