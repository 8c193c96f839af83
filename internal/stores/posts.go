package stores

import (
	"context"
	"fmt"
	"strings"

	"github.com/socialhub/client/internal/cache"
	"github.com/socialhub/client/internal/collection"
	"github.com/socialhub/client/internal/models"
	"github.com/socialhub/client/internal/transport"
)

// NewPost is the input for creating a post or a reply.
type NewPost struct {
	Content     string `json:"content"`
	IsAnonymous bool   `json:"is_anonymous"`
	Club        *int64 `json:"club"`
	Parent      *int64 `json:"parent,omitempty"`
}

// PostStore serves the global feed, per-author feeds, single posts and reply
// threads.
type PostStore struct {
	base
	feed    *cache.Cache[[]models.Post]
	byUser  *cache.Cache[[]models.Post]
	replies *cache.Cache[[]models.Post]
	detail  *cache.Cache[models.Post]
}

const feedSub = "all"

func newPostStore(api API, s settings) *PostStore {
	return &PostStore{
		base:    newBase(api, s),
		feed:    newCache[[]models.Post](s, cache.Posts),
		byUser:  newCache[[]models.Post](s, cache.UserPosts),
		replies: newCache[[]models.Post](s, cache.Replies),
		detail:  newCache[models.Post](s, cache.PostDetail),
	}
}

// Feed returns the global feed. Failures are logged and the last known feed
// (possibly empty) is returned.
func (p *PostStore) Feed(ctx context.Context, force bool) ([]models.Post, error) {
	done := p.loading.begin("feed")
	defer done()

	posts, err := p.feed.ReadOrStale(ctx, feedSub, force, func(ctx context.Context) ([]models.Post, error) {
		var out []models.Post
		if err := p.api.Get(ctx, "/posts/", nil, &out); err != nil {
			return nil, fmt.Errorf("fetch feed: %w", err)
		}
		return out, nil
	})
	return posts, p.degrade(ctx, "feed", err)
}

// UserPosts returns the posts written by username.
func (p *PostStore) UserPosts(ctx context.Context, username string, force bool) ([]models.Post, error) {
	done := p.loading.begin("user:" + username)
	defer done()

	return p.byUser.Read(ctx, username, force, func(ctx context.Context) ([]models.Post, error) {
		var out []models.Post
		if err := p.api.Get(ctx, namePath("/posts/user/", username, ""), nil, &out); err != nil {
			return nil, fmt.Errorf("fetch posts of %s: %w", username, err)
		}
		return out, nil
	})
}

// Post returns a single post.
func (p *PostStore) Post(ctx context.Context, id int64, force bool) (models.Post, error) {
	return p.detail.Read(ctx, cache.Sub(id), force, func(ctx context.Context) (models.Post, error) {
		return p.fetchPost(ctx, id)
	})
}

func (p *PostStore) fetchPost(ctx context.Context, id int64) (models.Post, error) {
	var out models.Post
	if err := p.api.Get(ctx, idPath("/posts/", id, ""), nil, &out); err != nil {
		return models.Post{}, fmt.Errorf("fetch post %d: %w", id, err)
	}
	return out, nil
}

// Replies returns the replies to post id.
func (p *PostStore) Replies(ctx context.Context, id int64, force bool) ([]models.Post, error) {
	return p.replies.Read(ctx, cache.Sub(id), force, func(ctx context.Context) ([]models.Post, error) {
		var out []models.Post
		if err := p.api.Get(ctx, idPath("/posts/", id, "replies/"), nil, &out); err != nil {
			return nil, fmt.Errorf("fetch replies of %d: %w", id, err)
		}
		return out, nil
	})
}

// Create publishes a post and prepends the server's record to the feeds
// that show it. A reply goes to its parent's reply list instead.
func (p *PostStore) Create(ctx context.Context, in NewPost) (models.Post, error) {
	if strings.TrimSpace(in.Content) == "" {
		return models.Post{}, fmt.Errorf("%w: post content is required", transport.ErrValidation)
	}

	var created struct {
		ID int64 `json:"id"`
	}
	if err := p.api.Post(ctx, "/posts/create/", in, &created); err != nil {
		return models.Post{}, fmt.Errorf("create post: %w", err)
	}
	if created.ID == 0 {
		return models.Post{}, fmt.Errorf("create post: %w: response carried no id", transport.ErrServer)
	}

	post, err := p.fetchPost(ctx, created.ID)
	if err != nil {
		return models.Post{}, err
	}
	p.detail.Put(cache.Sub(post.ID), post)

	prepend := func(items []models.Post) []models.Post { return collection.Prepend(items, post) }
	if in.Parent != nil {
		parent := *in.Parent
		p.replies.Mutate(cache.Sub(parent), prepend)
		p.apply(parent, func(q models.Post) models.Post {
			q.CommentCount++
			return q
		})
		return post, nil
	}

	p.feed.Mutate(feedSub, prepend)
	if post.Username != "" {
		p.byUser.Mutate(post.Username, prepend)
	}
	return post, nil
}

// Delete removes a post once the server confirms it.
func (p *PostStore) Delete(ctx context.Context, id int64) error {
	if err := p.api.Delete(ctx, idPath("/posts/", id, "delete/"), nil); err != nil {
		return fmt.Errorf("delete post %d: %w", id, err)
	}
	collection.RemoveAll(id, p.feed, p.byUser, p.replies)
	p.detail.Invalidate(cache.Sub(id))
	return nil
}

// Like marks the post as liked everywhere it is cached.
func (p *PostStore) Like(ctx context.Context, id int64) error {
	if err := p.api.Post(ctx, idPath("/posts/", id, "like/"), nil, nil); err != nil {
		return fmt.Errorf("like post %d: %w", id, err)
	}
	p.apply(id, func(q models.Post) models.Post {
		if !q.HasLiked {
			q.HasLiked = true
			q.LikeCount++
		}
		return q
	})
	return nil
}

// Unlike clears the like everywhere the post is cached.
func (p *PostStore) Unlike(ctx context.Context, id int64) error {
	if err := p.api.Post(ctx, idPath("/posts/", id, "unlike/"), nil, nil); err != nil {
		return fmt.Errorf("unlike post %d: %w", id, err)
	}
	p.apply(id, func(q models.Post) models.Post {
		if q.HasLiked {
			q.HasLiked = false
			q.LikeCount = collection.Decrement(q.LikeCount)
		}
		return q
	})
	return nil
}

// Repost reposts the post and bumps its counter everywhere it is cached.
func (p *PostStore) Repost(ctx context.Context, id int64) error {
	if err := p.api.Post(ctx, idPath("/posts/", id, "repost/"), nil, nil); err != nil {
		return fmt.Errorf("repost post %d: %w", id, err)
	}
	p.apply(id, func(q models.Post) models.Post {
		if !q.HasReposted {
			q.HasReposted = true
			q.RepostCount++
		}
		return q
	})
	return nil
}

// UndoRepost withdraws a repost.
func (p *PostStore) UndoRepost(ctx context.Context, id int64) error {
	if err := p.api.Delete(ctx, idPath("/posts/", id, "undo_repost/"), nil); err != nil {
		return fmt.Errorf("undo repost %d: %w", id, err)
	}
	p.apply(id, func(q models.Post) models.Post {
		if q.HasReposted {
			q.HasReposted = false
			q.RepostCount = collection.Decrement(q.RepostCount)
		}
		return q
	})
	return nil
}

// Loading reports whether the feed or any author feed is being fetched.
func (p *PostStore) Loading() bool { return p.loading.any() }

func (p *PostStore) apply(id int64, fn func(models.Post) models.Post) {
	collection.ApplyAll(id, fn, p.feed, p.byUser, p.replies)
	p.detail.Mutate(cache.Sub(id), fn)
}

func (p *PostStore) reset() {
	p.feed.Reset()
	p.byUser.Reset()
	p.replies.Reset()
	p.detail.Reset()
}
