package stores

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/socialhub/client/internal/cache"
	"github.com/socialhub/client/internal/collection"
	"github.com/socialhub/client/internal/models"
	"github.com/socialhub/client/internal/transport"
)

// ErrNotFound indicates the requested record does not exist.
var ErrNotFound = errors.New("record not found")

// NewClub is the input for creating a club.
type NewClub struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	IsPrivate   bool   `json:"is_private"`
}

// ClubStore serves the club directory, the user's memberships and club
// profiles.
type ClubStore struct {
	base
	all     *cache.Cache[[]models.Club]
	mine    *cache.Cache[[]models.Club]
	members *cache.Cache[[]models.ClubMember]
}

const clubsSub = "all"

func newClubStore(api API, s settings) *ClubStore {
	return &ClubStore{
		base:    newBase(api, s),
		all:     newCache[[]models.Club](s, cache.Clubs),
		mine:    newCache[[]models.Club](s, cache.MyClubs),
		members: newCache[[]models.ClubMember](s, cache.ClubMembers),
	}
}

// Clubs returns every visible club.
func (c *ClubStore) Clubs(ctx context.Context, force bool) ([]models.Club, error) {
	return c.all.Read(ctx, clubsSub, force, func(ctx context.Context) ([]models.Club, error) {
		var out []models.Club
		if err := c.api.Get(ctx, "/clubs/", nil, &out); err != nil {
			return nil, fmt.Errorf("fetch clubs: %w", err)
		}
		return out, nil
	})
}

// MyClubs returns the clubs the user belongs to. Failures are logged and the
// last known list is returned.
func (c *ClubStore) MyClubs(ctx context.Context, force bool) ([]models.Club, error) {
	clubs, err := c.mine.ReadOrStale(ctx, clubsSub, force, func(ctx context.Context) ([]models.Club, error) {
		var out []models.Club
		if err := c.api.Get(ctx, "/clubs/my/", nil, &out); err != nil {
			return nil, fmt.Errorf("fetch my clubs: %w", err)
		}
		return out, nil
	})
	return clubs, c.degrade(ctx, "my clubs", err)
}

// Create founds a club and prepends the server's record to both lists.
func (c *ClubStore) Create(ctx context.Context, in NewClub) (models.Club, error) {
	if strings.TrimSpace(in.Name) == "" {
		return models.Club{}, fmt.Errorf("%w: club name is required", transport.ErrValidation)
	}

	var created models.Club
	if err := c.api.Post(ctx, "/clubs/create/", in, &created); err != nil {
		return models.Club{}, fmt.Errorf("create club: %w", err)
	}
	if created.ID == 0 {
		// older servers answer with a message only
		c.all.Invalidate(clubsSub)
		c.mine.Invalidate(clubsSub)
		return models.Club{}, nil
	}

	prepend := func(items []models.Club) []models.Club { return collection.Prepend(items, created) }
	c.all.Mutate(clubsSub, prepend)
	c.mine.Mutate(clubsSub, prepend)
	return created, nil
}

// Join adds the user to a club and refetches the directory.
func (c *ClubStore) Join(ctx context.Context, name string) error {
	if err := c.api.Post(ctx, namePath("/clubs/", name, "join/"), nil, nil); err != nil {
		return fmt.Errorf("join club %s: %w", name, err)
	}
	return c.refetch(ctx, name)
}

// Leave removes the user from a club and refetches the directory.
func (c *ClubStore) Leave(ctx context.Context, name string) error {
	if err := c.api.Post(ctx, namePath("/clubs/", name, "leave/"), nil, nil); err != nil {
		return fmt.Errorf("leave club %s: %w", name, err)
	}
	return c.refetch(ctx, name)
}

// Profile returns a club with its members. The club record comes from the
// loaded directory when possible; the directory is fetched only on a miss.
func (c *ClubStore) Profile(ctx context.Context, name string, force bool) (models.ClubProfile, error) {
	done := c.loading.begin("profile:" + name)
	defer done()

	byName := func(club models.Club) bool { return club.Name == name }

	clubs, _ := c.all.Peek(clubsSub)
	club, ok := collection.Find(clubs, byName)
	if !ok {
		fetched, err := c.Clubs(ctx, true)
		if err != nil {
			return models.ClubProfile{}, err
		}
		if club, ok = collection.Find(fetched, byName); !ok {
			return models.ClubProfile{}, fmt.Errorf("club %s: %w", name, ErrNotFound)
		}
	}

	members, err := c.members.Read(ctx, name, force, func(ctx context.Context) ([]models.ClubMember, error) {
		var out struct {
			Members []models.ClubMember `json:"members"`
		}
		if err := c.api.Get(ctx, namePath("/clubs/", name, "profile/"), nil, &out); err != nil {
			return nil, fmt.Errorf("fetch members of %s: %w", name, err)
		}
		return out.Members, nil
	})
	if err != nil {
		return models.ClubProfile{}, err
	}
	return models.ClubProfile{Club: club, Members: members}, nil
}

// LoadingProfile reports whether the profile of name is being assembled.
func (c *ClubStore) LoadingProfile(name string) bool {
	return c.loading.active("profile:" + name)
}

// membershipChanged drops the user's membership list.
func (c *ClubStore) membershipChanged() {
	c.mine.Invalidate(clubsSub)
}

func (c *ClubStore) refetch(ctx context.Context, name string) error {
	c.membershipChanged()
	c.members.Invalidate(name)
	_, err := c.Clubs(ctx, true)
	return err
}

func (c *ClubStore) reset() {
	c.all.Reset()
	c.mine.Reset()
	c.members.Reset()
}
