// Package app implements the socialhub command line client.
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/socialhub/client/internal/config"
	"github.com/socialhub/client/internal/nav"
)

// Run executes the socialhub command line with args.
func Run(ctx context.Context, args []string) error {
	root := newRootCommand(os.Stdout, os.Stderr)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// cli carries state shared by every command.
type cli struct {
	configPath string
	force      bool
	out        io.Writer
	logOut     io.Writer
}

func newRootCommand(out, logOut io.Writer) *cobra.Command {
	c := &cli{out: out, logOut: logOut}

	root := &cobra.Command{
		Use:   "socialhub",
		Short: "socialhub - command line client for the socialhub API",
		Long: `socialhub talks to the socialhub API on behalf of a signed-in user.

Configuration:
  Config is loaded from socialhub.yaml in the current directory or in
  $HOME/.socialhub/. Environment variables override config values with the
  SOCIALHUB_ prefix, e.g. SOCIALHUB_API_BASE_URL=https://example.com/api/.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.SetErr(logOut)
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default: ./socialhub.yaml)")
	root.PersistentFlags().BoolVar(&c.force, "force", false, "bypass cached data")

	root.AddCommand(
		c.loginCommand(),
		c.signupCommand(),
		c.logoutCommand(),
		c.statusCommand(),
		c.feedCommand(),
		c.postsCommand(),
		c.postCommand(),
		c.eventsCommand(),
		c.friendsCommand(),
		c.clubsCommand(),
		c.clubCommand(),
		c.threadsCommand(),
		c.messagesCommand(),
		c.sendCommand(),
		c.invitesCommand(),
		c.notificationsCommand(),
		c.watchCommand(),
		c.migrateCommand(),
	)
	return root
}

// loadConfig reads the configuration selected by --config.
func (c *cli) loadConfig() (config.Config, error) {
	return config.Load(c.configPath)
}

// withDeps wraps fn with dependency construction and cleanup.
func (c *cli) withDeps(fn func(ctx context.Context, deps Dependencies, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := c.loadConfig()
		if err != nil {
			return err
		}
		logger := newLogger(cfg, c.logOut)
		ctx := cmd.Context()

		deps, cleanup, err := buildDependencies(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer func() {
			if err := cleanup(context.WithoutCancel(ctx)); err != nil {
				logger.Warn("cleanup", "error", err)
			}
		}()
		return fn(ctx, deps, args)
	}
}

// guarded is withDeps for commands that show the screen at pattern, with
// parameters filled from the positional arguments. A protected screen
// requires a signed-in session.
func (c *cli) guarded(pattern string, fn func(ctx context.Context, deps Dependencies, args []string) error) func(*cobra.Command, []string) error {
	return c.withDeps(func(ctx context.Context, deps Dependencies, args []string) error {
		d, err := deps.Router.Navigate(screenPath(pattern, args))
		if err != nil {
			return err
		}
		if d.Redirect == nav.LoginPath {
			return errNotSignedIn
		}
		return fn(ctx, deps, args)
	})
}

func screenPath(pattern string, args []string) string {
	segs := strings.Split(pattern, "/")
	next := 0
	for i, seg := range segs {
		if strings.HasPrefix(seg, ":") && next < len(args) {
			segs[i] = args[next]
			next++
		}
	}
	return strings.Join(segs, "/")
}

func (c *cli) print(v any) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
