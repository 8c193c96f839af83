package app

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/socialhub/client/internal/models"
	"github.com/socialhub/client/internal/stores"
)

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", arg)
	}
	return id, nil
}

func (c *cli) feedCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "feed",
		Short: "Show the global feed",
		Args:  cobra.NoArgs,
		RunE: c.guarded("/main", func(ctx context.Context, deps Dependencies, _ []string) error {
			posts, err := deps.Stores.Posts.Feed(ctx, c.force)
			if err != nil {
				return err
			}
			return c.print(posts)
		}),
	}
}

func (c *cli) postsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "posts <username>",
		Short: "Show the posts of a user",
		Args:  cobra.ExactArgs(1),
		RunE: c.guarded("/profile/:username", func(ctx context.Context, deps Dependencies, args []string) error {
			posts, err := deps.Stores.Posts.UserPosts(ctx, args[0], c.force)
			if err != nil {
				return err
			}
			return c.print(posts)
		}),
	}
}

func (c *cli) postCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "post",
		Short: "Show, publish and react to posts",
	}

	var replies bool
	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a post",
		Args:  cobra.ExactArgs(1),
		RunE: c.guarded("/posts/:id", func(ctx context.Context, deps Dependencies, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if replies {
				out, err := deps.Stores.Posts.Replies(ctx, id, c.force)
				if err != nil {
					return err
				}
				return c.print(out)
			}
			post, err := deps.Stores.Posts.Post(ctx, id, c.force)
			if err != nil {
				return err
			}
			return c.print(post)
		}),
	}
	show.Flags().BoolVar(&replies, "replies", false, "show the replies instead of the post")

	var in stores.NewPost
	var club, parent int64
	create := &cobra.Command{
		Use:   "create <content>",
		Short: "Publish a post or a reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: c.guarded("/main", func(ctx context.Context, deps Dependencies, args []string) error {
			in.Content = strings.Join(args, " ")
			if club > 0 {
				in.Club = &club
			}
			if parent > 0 {
				in.Parent = &parent
			}
			post, err := deps.Stores.Posts.Create(ctx, in)
			if err != nil {
				return err
			}
			return c.print(post)
		}),
	}
	create.Flags().BoolVar(&in.IsAnonymous, "anonymous", false, "hide the author")
	create.Flags().Int64Var(&club, "club", 0, "publish in the club with this id")
	create.Flags().Int64Var(&parent, "reply-to", 0, "reply to the post with this id")

	cmd.AddCommand(show, create,
		c.postAction("delete", "Delete a post", (*stores.PostStore).Delete),
		c.postAction("like", "Like a post", (*stores.PostStore).Like),
		c.postAction("unlike", "Remove a like", (*stores.PostStore).Unlike),
		c.postAction("repost", "Repost a post", (*stores.PostStore).Repost),
		c.postAction("unrepost", "Withdraw a repost", (*stores.PostStore).UndoRepost),
	)
	return cmd
}

func (c *cli) postAction(use, short string, action func(*stores.PostStore, context.Context, int64) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: c.guarded("/posts/:id", func(ctx context.Context, deps Dependencies, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := action(deps.Stores.Posts, ctx, id); err != nil {
				return err
			}
			return c.print(map[string]any{"id": id, "action": use, "status": "ok"})
		}),
	}
}

func (c *cli) eventsCommand() *cobra.Command {
	var kind, order, club string
	var suggested bool

	cmd := &cobra.Command{
		Use:   "events",
		Short: "List upcoming events",
		Args:  cobra.NoArgs,
		RunE: c.guarded("/events", func(ctx context.Context, deps Dependencies, _ []string) error {
			var (
				events []models.Event
				err    error
			)
			switch {
			case club != "":
				events, err = deps.Stores.Events.ClubEvents(ctx, club, c.force)
			case suggested:
				events, err = deps.Stores.Events.Suggested(ctx, c.force)
			default:
				events, err = deps.Stores.Events.Events(ctx, c.force)
			}
			if err != nil {
				return err
			}
			events = stores.Filter(events, stores.EventKind(kind))
			return c.print(stores.Sort(events, stores.EventOrder(order)))
		}),
	}
	cmd.Flags().StringVar(&kind, "kind", "", "only club or personal events")
	cmd.Flags().StringVar(&order, "sort", string(stores.ByDate), "sort by date or title")
	cmd.Flags().StringVar(&club, "club", "", "events of one club")
	cmd.Flags().BoolVar(&suggested, "suggested", false, "suggested events")

	var cancel bool
	rsvp := &cobra.Command{
		Use:   "rsvp <id>",
		Short: "Attend an event",
		Args:  cobra.ExactArgs(1),
		RunE: c.guarded("/events/:eventId", func(ctx context.Context, deps Dependencies, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if cancel {
				err = deps.Stores.Events.CancelRSVP(ctx, id)
			} else {
				err = deps.Stores.Events.RSVP(ctx, id)
			}
			if err != nil {
				return err
			}
			return c.print(map[string]any{"id": id, "attending": !cancel})
		}),
	}
	rsvp.Flags().BoolVar(&cancel, "cancel", false, "withdraw attendance")

	remove := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an event",
		Args:  cobra.ExactArgs(1),
		RunE: c.guarded("/events/:eventId", func(ctx context.Context, deps Dependencies, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := deps.Stores.Events.Delete(ctx, id); err != nil {
				return err
			}
			return c.print(map[string]any{"id": id, "status": "deleted"})
		}),
	}

	cmd.AddCommand(rsvp, remove)
	return cmd
}

func (c *cli) friendsCommand() *cobra.Command {
	var suggestions bool

	cmd := &cobra.Command{
		Use:   "friends",
		Short: "List friends and pending requests",
		Args:  cobra.NoArgs,
		RunE: c.guarded("/friends", func(ctx context.Context, deps Dependencies, _ []string) error {
			if suggestions {
				users, err := deps.Stores.Friends.Suggestions(ctx, c.force)
				if err != nil {
					return err
				}
				return c.print(users)
			}
			friends, err := deps.Stores.Friends.Friends(ctx, c.force)
			if err != nil {
				return err
			}
			return c.print(friends)
		}),
	}
	cmd.Flags().BoolVar(&suggestions, "suggestions", false, "show suggested users instead")

	search := &cobra.Command{
		Use:   "search <query>",
		Short: "Search users",
		Args:  cobra.MinimumNArgs(1),
		RunE: c.guarded("/friends", func(ctx context.Context, deps Dependencies, args []string) error {
			users, err := deps.Stores.Friends.Search(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
			return c.print(users)
		}),
	}

	count := &cobra.Command{
		Use:   "count <username>",
		Short: "Show how many friends a user has",
		Args:  cobra.ExactArgs(1),
		RunE: c.guarded("/profile/:username", func(ctx context.Context, deps Dependencies, args []string) error {
			n, err := deps.Stores.Friends.FriendCount(ctx, args[0], c.force)
			if err != nil {
				return err
			}
			return c.print(map[string]any{"username": args[0], "friends_count": n})
		}),
	}

	cmd.AddCommand(search, count,
		c.friendAction("add", "Send a friend request", (*stores.FriendStore).SendRequest),
		c.friendAction("cancel", "Withdraw a friend request", (*stores.FriendStore).CancelRequest),
		c.friendAction("accept", "Accept a friend request", (*stores.FriendStore).Accept),
		c.friendAction("reject", "Reject a friend request", (*stores.FriendStore).Reject),
		c.friendAction("remove", "Remove a friend", (*stores.FriendStore).Remove),
	)
	return cmd
}

func (c *cli) friendAction(use, short string, action func(*stores.FriendStore, context.Context, string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <username>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: c.guarded("/friends", func(ctx context.Context, deps Dependencies, args []string) error {
			if err := action(deps.Stores.Friends, ctx, args[0]); err != nil {
				return err
			}
			return c.print(map[string]string{"username": args[0], "action": use, "status": "ok"})
		}),
	}
}

func (c *cli) clubsCommand() *cobra.Command {
	var mine bool

	cmd := &cobra.Command{
		Use:   "clubs",
		Short: "List clubs",
		Args:  cobra.NoArgs,
		RunE: c.guarded("/clubs", func(ctx context.Context, deps Dependencies, _ []string) error {
			list := deps.Stores.Clubs.Clubs
			if mine {
				list = deps.Stores.Clubs.MyClubs
			}
			clubs, err := list(ctx, c.force)
			if err != nil {
				return err
			}
			return c.print(clubs)
		}),
	}
	cmd.Flags().BoolVar(&mine, "mine", false, "only clubs you belong to")

	var in stores.NewClub
	create := &cobra.Command{
		Use:   "create <name>",
		Short: "Found a club",
		Args:  cobra.ExactArgs(1),
		RunE: c.guarded("/clubs", func(ctx context.Context, deps Dependencies, args []string) error {
			in.Name = args[0]
			club, err := deps.Stores.Clubs.Create(ctx, in)
			if err != nil {
				return err
			}
			return c.print(club)
		}),
	}
	create.Flags().StringVar(&in.Description, "description", "", "club description")
	create.Flags().BoolVar(&in.IsPrivate, "private", false, "require an invitation to join")

	join := &cobra.Command{
		Use:   "join <name>",
		Short: "Join a club",
		Args:  cobra.ExactArgs(1),
		RunE: c.guarded("/clubs/:clubName", func(ctx context.Context, deps Dependencies, args []string) error {
			if err := deps.Stores.Clubs.Join(ctx, args[0]); err != nil {
				return err
			}
			return c.print(map[string]string{"club": args[0], "status": "joined"})
		}),
	}
	leave := &cobra.Command{
		Use:   "leave <name>",
		Short: "Leave a club",
		Args:  cobra.ExactArgs(1),
		RunE: c.guarded("/clubs/:clubName", func(ctx context.Context, deps Dependencies, args []string) error {
			if err := deps.Stores.Clubs.Leave(ctx, args[0]); err != nil {
				return err
			}
			return c.print(map[string]string{"club": args[0], "status": "left"})
		}),
	}

	cmd.AddCommand(create, join, leave)
	return cmd
}

func (c *cli) clubCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "club <name>",
		Short: "Show a club with its members",
		Args:  cobra.ExactArgs(1),
		RunE: c.guarded("/clubs/:clubName", func(ctx context.Context, deps Dependencies, args []string) error {
			profile, err := deps.Stores.Clubs.Profile(ctx, args[0], c.force)
			if err != nil {
				return err
			}
			return c.print(profile)
		}),
	}
}

func (c *cli) threadsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "threads",
		Short: "List conversations",
		Args:  cobra.NoArgs,
		RunE: c.guarded("/messages", func(ctx context.Context, deps Dependencies, _ []string) error {
			threads, err := deps.Stores.Messages.Threads(ctx, c.force)
			if err != nil {
				return err
			}
			return c.print(threads)
		}),
	}

	start := &cobra.Command{
		Use:   "start <username>...",
		Short: "Start a conversation",
		Args:  cobra.MinimumNArgs(1),
		RunE: c.guarded("/messages", func(ctx context.Context, deps Dependencies, args []string) error {
			thread, err := deps.Stores.Messages.StartGroupThread(ctx, args)
			if err != nil {
				return err
			}
			return c.print(thread)
		}),
	}
	cmd.AddCommand(start)
	return cmd
}

func (c *cli) messagesCommand() *cobra.Command {
	var pinned bool

	cmd := &cobra.Command{
		Use:   "messages <thread-id>",
		Short: "Show the messages of a conversation",
		Args:  cobra.ExactArgs(1),
		RunE: c.guarded("/messages", func(ctx context.Context, deps Dependencies, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if pinned {
				msgs, err := deps.Stores.Messages.Pinned(ctx, id)
				if err != nil {
					return err
				}
				return c.print(msgs)
			}
			msgs, err := deps.Stores.Messages.Messages(ctx, id, c.force)
			if err != nil {
				return err
			}
			return c.print(msgs)
		}),
	}
	cmd.Flags().BoolVar(&pinned, "pinned", false, "only pinned messages")

	pin := &cobra.Command{
		Use:   "pin <thread-id> <message-id>",
		Short: "Pin or unpin a message",
		Args:  cobra.ExactArgs(2),
		RunE: c.guarded("/messages", func(ctx context.Context, deps Dependencies, args []string) error {
			thread, err := parseID(args[0])
			if err != nil {
				return err
			}
			msg, err := parseID(args[1])
			if err != nil {
				return err
			}
			if err := deps.Stores.Messages.TogglePin(ctx, thread, msg); err != nil {
				return err
			}
			return c.print(map[string]any{"thread": thread, "message": msg, "status": "toggled"})
		}),
	}
	cmd.AddCommand(pin)
	return cmd
}

func (c *cli) sendCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "send <thread-id> <text>",
		Short: "Send a message",
		Args:  cobra.MinimumNArgs(2),
		RunE: c.guarded("/messages", func(ctx context.Context, deps Dependencies, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := deps.Stores.Messages.Send(ctx, id, strings.Join(args[1:], " ")); err != nil {
				return err
			}
			msgs, err := deps.Stores.Messages.Messages(ctx, id, false)
			if err != nil {
				return err
			}
			return c.print(msgs)
		}),
	}
}

func (c *cli) invitesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "invites",
		Short: "List pending club invitations",
		Args:  cobra.NoArgs,
		RunE: c.guarded("/clubs", func(ctx context.Context, deps Dependencies, _ []string) error {
			invites, err := deps.Stores.Invites.Invites(ctx, c.force)
			if err != nil {
				return err
			}
			return c.print(invites)
		}),
	}

	answer := func(use, short string, action func(*stores.InviteStore, context.Context, int64) error) *cobra.Command {
		return &cobra.Command{
			Use:   use + " <id>",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: c.guarded("/clubs", func(ctx context.Context, deps Dependencies, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				if err := action(deps.Stores.Invites, ctx, id); err != nil {
					return err
				}
				return c.print(map[string]any{"id": id, "action": use, "status": "ok"})
			}),
		}
	}
	cmd.AddCommand(
		answer("accept", "Accept an invitation", (*stores.InviteStore).Accept),
		answer("reject", "Decline an invitation", (*stores.InviteStore).Reject),
	)
	return cmd
}

func (c *cli) notificationsCommand() *cobra.Command {
	var markAll, clearAll bool
	var read int64

	cmd := &cobra.Command{
		Use:   "notifications",
		Short: "List notifications",
		Args:  cobra.NoArgs,
		RunE: c.guarded("/main", func(ctx context.Context, deps Dependencies, _ []string) error {
			n := deps.Stores.Notifications
			if _, err := n.List(ctx, c.force); err != nil {
				return err
			}

			var err error
			switch {
			case clearAll:
				err = n.Clear(ctx)
			case markAll:
				err = n.MarkAllRead(ctx)
			case read > 0:
				err = n.MarkRead(ctx, read)
			}
			if err != nil {
				return err
			}

			items, err := n.List(ctx, false)
			if err != nil {
				return err
			}
			return c.print(map[string]any{"unread": n.UnreadCount(), "notifications": items})
		}),
	}
	cmd.Flags().BoolVar(&markAll, "mark-read", false, "mark every notification read")
	cmd.Flags().Int64Var(&read, "read", 0, "mark the notification with this id read")
	cmd.Flags().BoolVar(&clearAll, "clear", false, "delete every notification")
	return cmd
}
