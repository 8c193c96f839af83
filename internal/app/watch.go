package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/socialhub/client/internal/httpserver"
	"github.com/socialhub/client/internal/refresher"
	"github.com/socialhub/client/internal/stores"
)

func (c *cli) watchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Keep the cached collections fresh until interrupted",
		Long: `Revalidate the feed, notifications, invitations, conversations and club
memberships on a fixed interval. When watch.metrics_addr is set, /healthz and
/metrics are served on that address.`,
		Args: cobra.NoArgs,
		RunE: c.guarded("/main", func(ctx context.Context, deps Dependencies, _ []string) error {
			return watch(ctx, deps)
		}),
	}
}

func watch(ctx context.Context, deps Dependencies) error {
	cfg := deps.Config.Watch
	logger := deps.Logger.With("component", "watch")

	r := refresher.New(refresher.Config{
		QueueSize: cfg.QueueSize,
		Workers:   cfg.Workers,
	}, deps.Metrics, logger)

	var srv *httpserver.Server
	srvErr := make(chan error, 1)
	if cfg.MetricsAddr != "" {
		srv = httpserver.New(cfg.MetricsAddr, httpserver.Routes(deps.Registry, httpserver.HealthHandler{
			State: deps.Session.State,
		}))
		logger.Info("starting metrics server", "addr", cfg.MetricsAddr)
		go func() {
			srvErr <- srv.Start()
		}()
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	everyErr := make(chan error, 1)
	go func() {
		everyErr <- r.Every(runCtx, cfg.Interval, revalidationJobs(deps.Stores)...)
	}()

	logger.Info("watching", "interval", cfg.Interval, "workers", cfg.Workers)

	var err error
	select {
	case <-ctx.Done():
		logger.Info("context canceled, stopping")
	case err = <-srvErr:
		if err != nil {
			err = fmt.Errorf("metrics server: %w", err)
		}
	case err = <-everyErr:
		if errors.Is(err, context.Canceled) {
			err = nil
		}
	}
	cancel()

	shutdownCtx, done := context.WithTimeout(context.WithoutCancel(ctx), httpserver.ShutdownTimeout)
	defer done()

	if srv != nil {
		if serr := srv.Shutdown(shutdownCtx); serr != nil && err == nil {
			err = serr
		}
	}
	if rerr := r.Shutdown(shutdownCtx); rerr != nil && err == nil {
		err = rerr
	}
	return err
}

// revalidationJobs forces a refetch of every collection a signed-in user
// keeps open.
func revalidationJobs(s *stores.Registry) []refresher.Job {
	return []refresher.Job{
		{Name: "feed", Run: func(ctx context.Context) error {
			_, err := s.Posts.Feed(ctx, true)
			return err
		}},
		{Name: "notifications", Run: func(ctx context.Context) error {
			_, err := s.Notifications.List(ctx, true)
			return err
		}},
		{Name: "invites", Run: func(ctx context.Context) error {
			_, err := s.Invites.Invites(ctx, true)
			return err
		}},
		{Name: "threads", Run: func(ctx context.Context) error {
			_, err := s.Messages.Threads(ctx, true)
			return err
		}},
		{Name: "my_clubs", Run: func(ctx context.Context) error {
			_, err := s.Clubs.MyClubs(ctx, true)
			return err
		}},
	}
}
