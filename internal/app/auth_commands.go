package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/socialhub/client/internal/auth"
	"github.com/socialhub/client/internal/models"
	"github.com/socialhub/client/internal/nav"
)

// sessionStatus is the output of login and status.
type sessionStatus struct {
	State     string       `json:"state"`
	User      *models.User `json:"user,omitempty"`
	ExpiresAt *time.Time   `json:"expires_at,omitempty"`
	Expired   bool         `json:"expired,omitempty"`
	Home      string       `json:"home"`
}

func (c *cli) loginCommand() *cobra.Command {
	var username, password, access, refresh string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with a username and password or an issued token pair",
		Long: `Sign in and persist the session.

With --access-token the token pair returned by an external sign-in flow is
adopted instead of calling the login endpoint. Without --password the password
is read from the first line of standard input.`,
	}
	cmd.Flags().StringVar(&username, "username", "", "account username")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	cmd.Flags().StringVar(&access, "access-token", "", "adopt this access token")
	cmd.Flags().StringVar(&refresh, "refresh-token", "", "refresh token to adopt with --access-token")

	cmd.RunE = c.withDeps(func(ctx context.Context, deps Dependencies, _ []string) error {
		if access != "" {
			if _, err := deps.Router.Navigate("/auth/callback"); err != nil {
				return err
			}
			if err := deps.Session.Adopt(ctx, models.Credentials{AccessToken: access, RefreshToken: refresh}); err != nil {
				return err
			}
		} else {
			if password == "" {
				line, err := readLine(cmd.InOrStdin())
				if err != nil {
					return err
				}
				password = line
			}
			if err := deps.Session.Login(ctx, username, password); err != nil {
				return err
			}
		}

		// a failed profile fetch still leaves a usable session
		_, _ = deps.Stores.User.CurrentUser(ctx, true)
		return c.print(status(deps))
	})
	return cmd
}

func (c *cli) signupCommand() *cobra.Command {
	var input auth.SignupInput

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Register a new account",
	}
	cmd.Flags().StringVar(&input.Username, "username", "", "account username")
	cmd.Flags().StringVar(&input.Email, "email", "", "account email")
	cmd.Flags().StringVar(&input.Password, "password", "", "account password")

	cmd.RunE = c.withDeps(func(ctx context.Context, deps Dependencies, _ []string) error {
		if _, err := deps.Router.Navigate("/signup"); err != nil {
			return err
		}
		if err := input.Validate(); err != nil {
			return err
		}
		if err := deps.Session.Signup(ctx, input); err != nil {
			return err
		}
		return c.print(map[string]string{"status": "registered", "next": nav.LoginPath})
	})
	return cmd
}

func (c *cli) logoutCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the persisted session",
	}
	cmd.RunE = c.withDeps(func(ctx context.Context, deps Dependencies, _ []string) error {
		deps.Session.Logout(ctx)
		return c.print(status(deps))
	})
	return cmd
}

func (c *cli) statusCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the session state and access token expiry",
	}
	cmd.RunE = c.withDeps(func(_ context.Context, deps Dependencies, _ []string) error {
		return c.print(status(deps))
	})
	return cmd
}

func status(deps Dependencies) sessionStatus {
	out := sessionStatus{State: deps.Session.State().String()}
	if user, ok := deps.Session.CurrentUser(); ok {
		out.User = &user
	}
	if claims, err := deps.Session.Claims(); err == nil && !claims.ExpiresAt.IsZero() {
		expires := claims.ExpiresAt
		out.ExpiresAt = &expires
		out.Expired = claims.Expired(time.Now())
	}
	if d, err := nav.Resolve(nav.HomePath, deps.Session.State()); err == nil && d.Redirect != "" {
		out.Home = d.Redirect
	} else {
		out.Home = nav.HomePath
	}
	return out
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
