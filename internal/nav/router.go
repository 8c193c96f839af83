package nav

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/socialhub/client/internal/auth"
)

// Decision is the outcome of resolving a path. Redirect is empty when the
// route may be entered as requested.
type Decision struct {
	Match
	Redirect string
}

// Resolve applies the route guards for state: protected routes send a
// signed-out user to the login page and the home page sends a signed-in user
// to the main feed.
func Resolve(path string, state auth.State) (Decision, error) {
	m, ok := Lookup(path)
	if !ok {
		return Decision{}, fmt.Errorf("%s: %w", path, ErrUnknownRoute)
	}
	d := Decision{Match: m}
	switch {
	case m.Route.RequiresAuth && state != auth.Authenticated:
		d.Redirect = LoginPath
	case m.Route.Pattern == HomePath && state == auth.Authenticated:
		d.Redirect = MainPath
	}
	return d, nil
}

// StateSource exposes the authentication state. *auth.Manager satisfies it.
type StateSource interface {
	State() auth.State
	Subscribe(fn func(auth.State)) func()
}

// Router tracks the current location and sends the user to the login page
// when the session ends while a protected route is shown.
type Router struct {
	session  StateSource
	redirect func(path string)
	logger   *slog.Logger

	mu      sync.Mutex
	current string

	unsubscribe func()
}

// NewRouter follows session and calls redirect whenever the router moves on
// its own.
func NewRouter(session StateSource, redirect func(path string), logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	if redirect == nil {
		redirect = func(string) {}
	}
	r := &Router{session: session, redirect: redirect, logger: logger, current: HomePath}
	r.unsubscribe = session.Subscribe(r.onStateChange)
	return r
}

// Navigate resolves path against the current state and moves to wherever
// the guards allow.
func (r *Router) Navigate(path string) (Decision, error) {
	d, err := Resolve(path, r.session.State())
	if err != nil {
		return Decision{}, err
	}
	to := path
	if d.Redirect != "" {
		to = d.Redirect
	}
	r.mu.Lock()
	r.current = to
	r.mu.Unlock()
	return d, nil
}

// Current returns the path the router last moved to.
func (r *Router) Current() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Close stops following the session.
func (r *Router) Close() {
	if r.unsubscribe != nil {
		r.unsubscribe()
	}
}

func (r *Router) onStateChange(state auth.State) {
	if state == auth.Authenticated {
		return
	}

	r.mu.Lock()
	from := r.current
	m, ok := Lookup(from)
	if ok && !m.Route.RequiresAuth {
		r.mu.Unlock()
		return
	}
	r.current = LoginPath
	r.mu.Unlock()

	r.logger.Info("session ended, redirecting", "from", from, "to", LoginPath)
	r.redirect(LoginPath)
}
