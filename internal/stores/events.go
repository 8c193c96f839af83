package stores

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/socialhub/client/internal/cache"
	"github.com/socialhub/client/internal/collection"
	"github.com/socialhub/client/internal/models"
	"github.com/socialhub/client/internal/transport"
)

// NewEvent is the input for creating or editing an event. ClubName hosts the
// event in a club; it is empty for a personal event.
type NewEvent struct {
	Title       string
	Description string
	Location    string
	Date        time.Time
	ClubName    string
	Image       *transport.File
}

func (e NewEvent) form() transport.Form {
	form := transport.Form{Fields: map[string]string{
		"title":       e.Title,
		"description": e.Description,
		"location":    e.Location,
		"date":        e.Date.UTC().Format(time.RFC3339),
	}}
	if e.ClubName != "" {
		form.Fields["club_name"] = e.ClubName
	}
	if e.Image != nil {
		img := *e.Image
		if img.Field == "" {
			img.Field = "image"
		}
		form.Files = append(form.Files, img)
	}
	return form
}

// EventKind narrows an event list.
type EventKind string

const (
	AllEvents      EventKind = ""
	ClubOnly       EventKind = "club"
	PersonalEvents EventKind = "personal"
)

// EventOrder sorts an event list.
type EventOrder string

const (
	ByDate  EventOrder = "date"
	ByTitle EventOrder = "title"
)

// EventStore serves upcoming, suggested and per-club events.
type EventStore struct {
	base
	upcoming  *cache.Cache[[]models.Event]
	suggested *cache.Cache[[]models.Event]
	byClub    *cache.Cache[[]models.Event]
}

const upcomingSub = "upcoming"

func newEventStore(api API, s settings) *EventStore {
	return &EventStore{
		base:      newBase(api, s),
		upcoming:  newCache[[]models.Event](s, cache.Events),
		suggested: newCache[[]models.Event](s, cache.SuggestedEvents),
		byClub:    newCache[[]models.Event](s, cache.ClubEvents),
	}
}

// Events returns upcoming events.
func (e *EventStore) Events(ctx context.Context, force bool) ([]models.Event, error) {
	done := e.loading.begin("events")
	defer done()

	return e.upcoming.Read(ctx, upcomingSub, force, func(ctx context.Context) ([]models.Event, error) {
		var out []models.Event
		if err := e.api.Get(ctx, "/events/", url.Values{"upcoming": {"true"}}, &out); err != nil {
			return nil, fmt.Errorf("fetch events: %w", err)
		}
		return out, nil
	})
}

// Suggested returns suggested events. Failures are logged and the last known
// list is returned.
func (e *EventStore) Suggested(ctx context.Context, force bool) ([]models.Event, error) {
	events, err := e.suggested.ReadOrStale(ctx, upcomingSub, force, func(ctx context.Context) ([]models.Event, error) {
		var out []models.Event
		if err := e.api.Get(ctx, "/events/suggested/", nil, &out); err != nil {
			return nil, fmt.Errorf("fetch suggested events: %w", err)
		}
		return out, nil
	})
	return events, e.degrade(ctx, "suggested events", err)
}

// ClubEvents returns the events of one club.
func (e *EventStore) ClubEvents(ctx context.Context, club string, force bool) ([]models.Event, error) {
	done := e.loading.begin("club:" + club)
	defer done()

	return e.byClub.Read(ctx, club, force, func(ctx context.Context) ([]models.Event, error) {
		var out []models.Event
		if err := e.api.Get(ctx, namePath("/events/club/", club, ""), nil, &out); err != nil {
			return nil, fmt.Errorf("fetch events of %s: %w", club, err)
		}
		return out, nil
	})
}

// Create publishes an event and prepends the server's record to the upcoming
// list.
func (e *EventStore) Create(ctx context.Context, in NewEvent) (models.Event, error) {
	if strings.TrimSpace(in.Title) == "" {
		return models.Event{}, fmt.Errorf("%w: event title is required", transport.ErrValidation)
	}

	var created models.Event
	if err := e.api.Post(ctx, "/events/create/", in.form(), &created); err != nil {
		return models.Event{}, fmt.Errorf("create event: %w", err)
	}

	e.upcoming.Mutate(upcomingSub, func(items []models.Event) []models.Event {
		return collection.Prepend(items, created)
	})
	if in.ClubName != "" {
		e.byClub.Invalidate(in.ClubName)
	}
	return created, nil
}

// Update edits an event and replaces it everywhere it is cached.
func (e *EventStore) Update(ctx context.Context, id int64, in NewEvent) (models.Event, error) {
	resp, err := e.api.Send(ctx, transport.Request{
		Method: http.MethodPut,
		Path:   idPath("/events/", id, "update/"),
		Body:   in.form(),
	})
	if err != nil {
		return models.Event{}, fmt.Errorf("update event %d: %w", id, err)
	}
	var updated models.Event
	if err := resp.Decode(&updated); err != nil {
		return models.Event{}, err
	}
	if updated.ID == 0 {
		// no body; the next read picks up the change
		e.invalidate()
		return models.Event{}, nil
	}

	collection.ApplyAll(id, func(models.Event) models.Event { return updated }, e.upcoming, e.suggested, e.byClub)
	return updated, nil
}

// RSVP registers attendance and refetches the upcoming list.
func (e *EventStore) RSVP(ctx context.Context, id int64) error {
	if err := e.api.Post(ctx, idPath("/events/", id, "rsvp/"), nil, nil); err != nil {
		return fmt.Errorf("rsvp event %d: %w", id, err)
	}
	return e.refetch(ctx)
}

// CancelRSVP withdraws attendance and refetches the upcoming list.
func (e *EventStore) CancelRSVP(ctx context.Context, id int64) error {
	if err := e.api.Post(ctx, idPath("/events/", id, "cancel-rsvp/"), nil, nil); err != nil {
		return fmt.Errorf("cancel rsvp event %d: %w", id, err)
	}
	return e.refetch(ctx)
}

// Delete removes an event once the server confirms it.
func (e *EventStore) Delete(ctx context.Context, id int64) error {
	if err := e.api.Delete(ctx, idPath("/events/", id, "delete/"), nil); err != nil {
		return fmt.Errorf("delete event %d: %w", id, err)
	}
	collection.RemoveAll(id, e.upcoming, e.suggested, e.byClub)
	return nil
}

// Loading reports whether any event list is being fetched.
func (e *EventStore) Loading() bool { return e.loading.any() }

func (e *EventStore) refetch(ctx context.Context) error {
	for _, club := range e.byClub.Subs() {
		e.byClub.Invalidate(club)
	}
	_, err := e.Events(ctx, true)
	return err
}

func (e *EventStore) invalidate() {
	e.upcoming.Invalidate(upcomingSub)
	e.suggested.Invalidate(upcomingSub)
	for _, club := range e.byClub.Subs() {
		e.byClub.Invalidate(club)
	}
}

func (e *EventStore) reset() {
	e.upcoming.Reset()
	e.suggested.Reset()
	e.byClub.Reset()
}

// Filter returns the events of the given kind.
func Filter(events []models.Event, kind EventKind) []models.Event {
	switch kind {
	case ClubOnly:
		return collection.Filter(events, func(ev models.Event) bool { return ev.Club != nil })
	case PersonalEvents:
		return collection.Filter(events, func(ev models.Event) bool { return ev.Club == nil })
	default:
		return events
	}
}

// Sort returns a sorted copy of events: by date ascending, or by title in
// locale-aware order.
func Sort(events []models.Event, order EventOrder) []models.Event {
	out := slices.Clone(events)
	if order == ByDate || order == "" {
		slices.SortStableFunc(out, func(a, b models.Event) int { return a.Date.Compare(b.Date) })
		return out
	}
	col := collate.New(language.Und, collate.IgnoreCase)
	slices.SortStableFunc(out, func(a, b models.Event) int { return col.CompareString(a.Title, b.Title) })
	return out
}
