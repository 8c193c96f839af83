package stores

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/socialhub/client/internal/models"
	"github.com/socialhub/client/internal/transport"
)

func ref(id int64) *int64 { return &id }

func sampleEvents() []models.Event {
	base := time.Date(2024, 3, 1, 18, 0, 0, 0, time.UTC)
	return []models.Event{
		{ID: 1, Title: "zine swap", Club: ref(1), Date: base.Add(48 * time.Hour)},
		{ID: 2, Title: "Beach cleanup", Date: base},
		{ID: 3, Title: "able choir", Club: ref(2), Date: base.Add(24 * time.Hour)},
	}
}

func TestFilterEventsByKind(t *testing.T) {
	events := sampleEvents()

	club := Filter(events, ClubOnly)
	if len(club) != 2 || club[0].ID != 1 || club[1].ID != 3 {
		t.Fatalf("expected club events 1 and 3 got %+v", club)
	}
	personal := Filter(events, PersonalEvents)
	if len(personal) != 1 || personal[0].ID != 2 {
		t.Fatalf("expected personal event 2 got %+v", personal)
	}
	if all := Filter(events, AllEvents); len(all) != 3 {
		t.Fatalf("expected all events got %d", len(all))
	}
}

func TestSortEvents(t *testing.T) {
	events := sampleEvents()

	byDate := Sort(events, ByDate)
	if byDate[0].ID != 2 || byDate[1].ID != 3 || byDate[2].ID != 1 {
		t.Fatalf("unexpected date order %+v", byDate)
	}
	byTitle := Sort(events, ByTitle)
	if byTitle[0].ID != 3 || byTitle[1].ID != 2 || byTitle[2].ID != 1 {
		t.Fatalf("unexpected title order %+v", byTitle)
	}
	if events[0].ID != 1 {
		t.Fatalf("expected input left untouched")
	}
}

func TestCreateEventPrependsAndSendsMultipart(t *testing.T) {
	api := newFakeAPI(t)
	created := models.Event{ID: 7, Title: "Open mic", Club: ref(1)}
	api.reply(http.MethodGet, "/events/", http.StatusOK, sampleEvents())
	api.reply(http.MethodGet, "/events/club/readers/", http.StatusOK, sampleEvents()[:1])
	api.handle(http.MethodPost, "/events/create/", func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "expected multipart"})
			return
		}
		writeJSON(w, http.StatusCreated, created)
	})
	reg := newTestRegistry(t, api.client(t), nil, nil)
	ctx := context.Background()

	if _, err := reg.Events.Events(ctx, false); err != nil {
		t.Fatalf("events: %v", err)
	}
	if _, err := reg.Events.ClubEvents(ctx, "readers", false); err != nil {
		t.Fatalf("club events: %v", err)
	}

	got, err := reg.Events.Create(ctx, NewEvent{
		Title:    "Open mic",
		ClubName: "readers",
		Date:     time.Date(2024, 3, 5, 19, 0, 0, 0, time.UTC),
		Image:    &transport.File{Name: "poster.png", Content: []byte("png")},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if got.ID != 7 {
		t.Fatalf("expected created event 7 got %+v", got)
	}
	body := api.body(http.MethodPost, "/events/create/")
	if !strings.Contains(body, `name="image"; filename="poster.png"`) || !strings.Contains(body, "2024-03-05T19:00:00Z") {
		t.Fatalf("unexpected multipart body %q", body)
	}
	if !strings.Contains(body, `name="club_name"`) || strings.Contains(body, `name="club"`) {
		t.Fatalf("expected club sent as club_name got %q", body)
	}

	events, _ := reg.Events.Events(ctx, false)
	if len(events) != 4 || events[0].ID != 7 {
		t.Fatalf("expected created event first got %+v", events)
	}
	if _, err := reg.Events.ClubEvents(ctx, "readers", false); err != nil {
		t.Fatalf("club events: %v", err)
	}
	if got := api.count(http.MethodGet, "/events/club/readers/"); got != 2 {
		t.Fatalf("expected club list refetched after create got %d", got)
	}
}

func TestCreateEventRequiresTitle(t *testing.T) {
	api := newFakeAPI(t)
	reg := newTestRegistry(t, api.client(t), nil, nil)

	_, err := reg.Events.Create(context.Background(), NewEvent{Title: " "})
	if !errors.Is(err, transport.ErrValidation) {
		t.Fatalf("expected ErrValidation got %v", err)
	}
}

func TestRSVPForcesRefetch(t *testing.T) {
	api := newFakeAPI(t)
	api.reply(http.MethodGet, "/events/", http.StatusOK, sampleEvents())
	api.reply(http.MethodPost, "/events/2/rsvp/", http.StatusOK, nil)
	reg := newTestRegistry(t, api.client(t), nil, nil)
	ctx := context.Background()

	if _, err := reg.Events.Events(ctx, false); err != nil {
		t.Fatalf("events: %v", err)
	}
	rsvped := sampleEvents()
	rsvped[1].HasRSVPed = true
	rsvped[1].RSVPCount = 1
	api.reply(http.MethodGet, "/events/", http.StatusOK, rsvped)

	if err := reg.Events.RSVP(ctx, 2); err != nil {
		t.Fatalf("rsvp: %v", err)
	}
	if got := api.count(http.MethodGet, "/events/"); got != 2 {
		t.Fatalf("expected forced refetch got %d requests", got)
	}
	events, _ := reg.Events.Events(ctx, false)
	if !events[1].HasRSVPed || events[1].RSVPCount != 1 {
		t.Fatalf("expected server state after rsvp got %+v", events[1])
	}
}

func TestUpdateEventReplacesCachedCopies(t *testing.T) {
	api := newFakeAPI(t)
	api.reply(http.MethodGet, "/events/", http.StatusOK, sampleEvents())
	api.reply(http.MethodGet, "/events/club/readers/", http.StatusOK, sampleEvents()[:1])
	updated := sampleEvents()[0]
	updated.Title = "Zine swap (moved)"
	api.reply(http.MethodPut, "/events/1/update/", http.StatusOK, updated)
	reg := newTestRegistry(t, api.client(t), nil, nil)
	ctx := context.Background()

	_, _ = reg.Events.Events(ctx, false)
	_, _ = reg.Events.ClubEvents(ctx, "readers", false)

	if _, err := reg.Events.Update(ctx, 1, NewEvent{Title: updated.Title}); err != nil {
		t.Fatalf("update: %v", err)
	}
	events, _ := reg.Events.Events(ctx, false)
	club, _ := reg.Events.ClubEvents(ctx, "readers", false)
	if events[0].Title != updated.Title || club[0].Title != updated.Title {
		t.Fatalf("expected updated title everywhere got %q and %q", events[0].Title, club[0].Title)
	}
}

func TestDeleteEventRemovesEverywhere(t *testing.T) {
	api := newFakeAPI(t)
	api.reply(http.MethodGet, "/events/", http.StatusOK, sampleEvents())
	api.reply(http.MethodGet, "/events/club/choir/", http.StatusOK, sampleEvents()[2:])
	api.reply(http.MethodDelete, "/events/3/delete/", http.StatusNoContent, nil)
	reg := newTestRegistry(t, api.client(t), nil, nil)
	ctx := context.Background()

	_, _ = reg.Events.Events(ctx, false)
	_, _ = reg.Events.ClubEvents(ctx, "choir", false)

	if err := reg.Events.Delete(ctx, 3); err != nil {
		t.Fatalf("delete: %v", err)
	}
	events, _ := reg.Events.Events(ctx, false)
	club, _ := reg.Events.ClubEvents(ctx, "choir", false)
	if len(events) != 2 || len(club) != 0 {
		t.Fatalf("expected event removed got %+v and %+v", events, club)
	}
}

func TestEventsDecodeServerShapes(t *testing.T) {
	api := newFakeAPI(t)
	api.handle(http.MethodGet, "/events/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id": 1, "club": 4, "title": "Book night", "description": "", "location": "Library", "date": "2024-03-02T18:00:00Z", "created_at": "2024-02-20T09:00:00Z"},
			{"id": 2, "club": null, "title": "Run", "description": "", "location": "Park", "date": "2024-03-01T07:00:00Z", "created_at": "2024-02-21T09:00:00Z"}
		]`))
	})
	reg := newTestRegistry(t, api.client(t), nil, nil)

	events, err := reg.Events.Events(context.Background(), false)
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	if len(events) != 2 || events[0].Club == nil || *events[0].Club != 4 || events[1].Club != nil {
		t.Fatalf("expected club id 4 and a personal event got %+v", events)
	}
	if club := Filter(events, ClubOnly); len(club) != 1 || club[0].ID != 1 {
		t.Fatalf("expected club event 1 got %+v", club)
	}
	if personal := Filter(events, PersonalEvents); len(personal) != 1 || personal[0].ID != 2 {
		t.Fatalf("expected personal event 2 got %+v", personal)
	}
}

func TestClubEventsEscapesClubName(t *testing.T) {
	api := newFakeAPI(t)
	var gotRaw string
	api.handle(http.MethodGet, "/events/club/rock/roll/", func(w http.ResponseWriter, r *http.Request) {
		gotRaw = r.URL.EscapedPath()
		writeJSON(w, http.StatusOK, sampleEvents()[:1])
	})
	reg := newTestRegistry(t, api.client(t), nil, nil)

	events, err := reg.Events.ClubEvents(context.Background(), "rock/roll", false)
	if err != nil {
		t.Fatalf("club events: %v", err)
	}
	if gotRaw != "/api/events/club/rock%2Froll/" {
		t.Fatalf("expected club name sent as one segment got %q", gotRaw)
	}
	if len(events) != 1 {
		t.Fatalf("expected one event got %+v", events)
	}
}
