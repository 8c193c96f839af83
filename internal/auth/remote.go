package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/socialhub/client/internal/models"
	"github.com/socialhub/client/internal/transport"
)

// Endpoints are the API paths of the authentication flows.
type Endpoints struct {
	Login   string
	Signup  string
	Refresh string
}

// DefaultEndpoints returns the paths served by the API.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		Login:   "/users/login/",
		Signup:  "/users/signup/",
		Refresh: "/token/refresh/",
	}
}

// SignupInput is the payload of the signup endpoint.
type SignupInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate checks required fields.
func (in SignupInput) Validate() error {
	switch {
	case strings.TrimSpace(in.Username) == "":
		return errors.New("username is required")
	case !strings.Contains(in.Email, "@"):
		return errors.New("a valid email is required")
	case len(in.Password) < 8:
		return errors.New("password must be at least 8 characters")
	}
	return nil
}

// RemoteAuthenticator calls the authentication endpoints through an
// unauthenticated client.
type RemoteAuthenticator struct {
	client    *transport.Client
	endpoints Endpoints
}

// NewRemoteAuthenticator constructs an Authenticator. Empty endpoint paths
// fall back to the defaults.
func NewRemoteAuthenticator(client *transport.Client, endpoints Endpoints) *RemoteAuthenticator {
	def := DefaultEndpoints()
	if endpoints.Login == "" {
		endpoints.Login = def.Login
	}
	if endpoints.Signup == "" {
		endpoints.Signup = def.Signup
	}
	if endpoints.Refresh == "" {
		endpoints.Refresh = def.Refresh
	}
	return &RemoteAuthenticator{client: client, endpoints: endpoints}
}

// Login implements Authenticator.
func (a *RemoteAuthenticator) Login(ctx context.Context, username, password string) (models.Credentials, error) {
	var creds models.Credentials
	body := map[string]string{"username": username, "password": password}
	if err := a.client.Post(ctx, a.endpoints.Login, body, &creds); err != nil {
		return models.Credentials{}, err
	}
	if creds.AccessToken == "" || creds.RefreshToken == "" {
		return models.Credentials{}, errors.New("login response missing tokens")
	}
	return creds, nil
}

// Signup implements Authenticator.
func (a *RemoteAuthenticator) Signup(ctx context.Context, input SignupInput) error {
	if err := input.Validate(); err != nil {
		return fmt.Errorf("%w: %v", transport.ErrValidation, err)
	}
	return a.client.Post(ctx, a.endpoints.Signup, input, nil)
}

// Refresh implements Authenticator. Rotated refresh tokens in the reply are
// ignored; the refresh token is only replaced by a new login.
func (a *RemoteAuthenticator) Refresh(ctx context.Context, refreshToken string) (string, error) {
	var reply struct {
		Access string `json:"access"`
	}
	if err := a.client.Post(ctx, a.endpoints.Refresh, map[string]string{"refresh": refreshToken}, &reply); err != nil {
		return "", err
	}
	return reply.Access, nil
}
