package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/socialhub/client/internal/logging"
	"github.com/socialhub/client/internal/models"
)

var (
	// ErrNoSession indicates the session store holds no persisted session.
	ErrNoSession = errors.New("no persisted session")
	// ErrNotAuthenticated indicates an operation requires credentials that are not held.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrNoRefreshToken indicates a refresh was attempted without a refresh token.
	ErrNoRefreshToken = errors.New("no refresh token")
	// ErrRefreshFailed indicates the refresh endpoint did not issue a new access token.
	ErrRefreshFailed = errors.New("session refresh failed")
)

// SessionStore persists the session snapshot so it survives process restarts.
type SessionStore interface {
	// Load returns ErrNoSession when nothing is stored.
	Load(ctx context.Context) (models.Snapshot, error)
	Save(ctx context.Context, snapshot models.Snapshot) error
	Clear(ctx context.Context) error
}

// Authenticator talks to the remote authentication endpoints.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (models.Credentials, error)
	Signup(ctx context.Context, input SignupInput) error
	Refresh(ctx context.Context, refreshToken string) (string, error)
}

// RefreshRecorder observes refresh outcomes. *metrics.Metrics satisfies it.
type RefreshRecorder interface {
	RefreshResult(result string)
}

// State is the authentication state of the session.
type State int

const (
	Unauthenticated State = iota
	Authenticated
)

func (s State) String() string {
	if s == Authenticated {
		return "authenticated"
	}
	return "unauthenticated"
}

type observer struct {
	id int
	fn func(State)
}

// Manager owns the credential pair. It is the only writer of the access token,
// and refreshes are single-flight: concurrent callers share one call to the
// refresh endpoint.
type Manager struct {
	authn   Authenticator
	store   SessionStore
	logger  *slog.Logger
	now     func() time.Time
	metrics RefreshRecorder

	mu        sync.RWMutex
	creds     models.Credentials
	user      *models.User
	state     State
	observers []observer
	nextID    int

	refresh singleflight.Group
}

// Option customises a Manager.
type Option func(*Manager)

// WithLogger sets the manager's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithClock overrides the time source used for snapshots.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithMetrics records refresh outcomes.
func WithMetrics(r RefreshRecorder) Option {
	return func(m *Manager) {
		m.metrics = r
	}
}

// NewManager constructs a Manager and restores the persisted session, if any.
func NewManager(ctx context.Context, authn Authenticator, store SessionStore, opts ...Option) *Manager {
	if store == nil {
		panic("auth: session store must not be nil")
	}
	if authn == nil {
		panic("auth: authenticator must not be nil")
	}
	m := &Manager{
		authn:  authn,
		store:  store,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}

	snapshot, err := store.Load(ctx)
	switch {
	case errors.Is(err, ErrNoSession):
	case err != nil:
		m.logger.Warn("load persisted session", "error", err)
	default:
		m.creds = snapshot.Credentials
		m.user = snapshot.User
		if m.creds.AccessToken != "" {
			m.state = Authenticated
		}
	}
	return m
}

// State returns the current authentication state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Authenticated reports whether credentials are held.
func (m *Manager) Authenticated() bool {
	return m.State() == Authenticated
}

// AccessToken returns the current access token or "".
func (m *Manager) AccessToken() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.creds.AccessToken
}

// Credentials returns a copy of the held credential pair.
func (m *Manager) Credentials() models.Credentials {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.creds
}

// CurrentUser returns the persisted profile of the signed-in user.
func (m *Manager) CurrentUser() (models.User, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.user == nil {
		return models.User{}, false
	}
	return *m.user, true
}

// Login exchanges username and password for a credential pair.
func (m *Manager) Login(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return errors.New("username and password must be provided")
	}
	creds, err := m.authn.Login(ctx, username, password)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	return m.Adopt(ctx, creds)
}

// Signup registers a new account. It does not sign the user in.
func (m *Manager) Signup(ctx context.Context, input SignupInput) error {
	if err := m.authn.Signup(ctx, input); err != nil {
		return fmt.Errorf("signup: %w", err)
	}
	return nil
}

// Adopt installs a credential pair obtained outside the login form, such as an
// OAuth callback. Observers are notified even when a session was already held
// since the account may have changed.
func (m *Manager) Adopt(ctx context.Context, creds models.Credentials) error {
	if creds.AccessToken == "" {
		return fmt.Errorf("adopt credentials: %w", ErrNotAuthenticated)
	}

	m.mu.Lock()
	m.creds = creds
	m.user = nil
	m.state = Authenticated
	snapshot := m.snapshotLocked()
	m.mu.Unlock()

	m.persist(ctx, snapshot)
	m.loggerFor(ctx).Info("session established")
	m.notify(Authenticated)
	return nil
}

// SetUser stores the signed-in user's profile alongside the credentials.
func (m *Manager) SetUser(ctx context.Context, user models.User) error {
	m.mu.Lock()
	if m.state != Authenticated {
		m.mu.Unlock()
		return ErrNotAuthenticated
	}
	m.user = &user
	snapshot := m.snapshotLocked()
	m.mu.Unlock()

	m.persist(ctx, snapshot)
	return nil
}

// Refresh obtains a new access token. Concurrent callers share one refresh.
// Any failure ends the session.
func (m *Manager) Refresh(ctx context.Context) (string, error) {
	ch := m.refresh.DoChan("refresh", func() (any, error) {
		return m.doRefresh(context.WithoutCancel(ctx))
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

// Renew implements transport.TokenSource. When the rejected token was already
// replaced by another caller's refresh the current token is returned without
// contacting the server.
func (m *Manager) Renew(ctx context.Context, rejected string) (string, error) {
	if current := m.AccessToken(); current != "" && current != rejected {
		return current, nil
	}
	return m.Refresh(ctx)
}

// Expire ends the session after the server kept rejecting a refreshed token.
func (m *Manager) Expire(ctx context.Context, cause error) {
	m.loggerFor(ctx).Warn("session expired", "error", cause)
	m.teardown(ctx, "")
}

// Logout clears the credentials and the persisted session.
func (m *Manager) Logout(ctx context.Context) {
	m.teardown(ctx, "")
	m.loggerFor(ctx).Info("logged out")
}

// Subscribe registers fn to be called on every state transition. The returned
// function removes the registration.
func (m *Manager) Subscribe(fn func(State)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	id := m.nextID
	m.observers = append(m.observers, observer{id: id, fn: fn})
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		for i, o := range m.observers {
			if o.id == id {
				m.observers = append(m.observers[:i:i], m.observers[i+1:]...)
				return
			}
		}
	}
}

func (m *Manager) doRefresh(ctx context.Context) (string, error) {
	logger := m.loggerFor(ctx)

	m.mu.RLock()
	refreshToken := m.creds.RefreshToken
	m.mu.RUnlock()

	if refreshToken == "" {
		m.record("missing")
		m.teardown(ctx, "")
		return "", fmt.Errorf("%w: %w", ErrRefreshFailed, ErrNoRefreshToken)
	}

	access, err := m.authn.Refresh(ctx, refreshToken)
	if err == nil && access == "" {
		err = errors.New("empty access token")
	}
	if err != nil {
		m.record("failure")
		logger.Warn("refresh failed", "error", err)
		m.teardown(ctx, refreshToken)
		return "", fmt.Errorf("%w: %w", ErrRefreshFailed, err)
	}

	m.mu.Lock()
	if m.creds.RefreshToken != refreshToken {
		// a new login replaced the session while refreshing
		current := m.creds.AccessToken
		m.mu.Unlock()
		m.record("superseded")
		return current, nil
	}
	m.creds.AccessToken = access
	snapshot := m.snapshotLocked()
	m.mu.Unlock()

	m.persist(ctx, snapshot)
	m.record("success")
	logger.Info("access token refreshed")
	return access, nil
}

// teardown clears the session. When refreshToken is set the session is only
// cleared if it still holds that refresh token.
func (m *Manager) teardown(ctx context.Context, refreshToken string) {
	m.mu.Lock()
	if refreshToken != "" && m.creds.RefreshToken != refreshToken {
		m.mu.Unlock()
		return
	}
	prev := m.state
	m.creds = models.Credentials{}
	m.user = nil
	m.state = Unauthenticated
	m.mu.Unlock()

	if err := m.store.Clear(ctx); err != nil {
		m.loggerFor(ctx).Error("clear persisted session", "error", err)
	}
	if prev != Unauthenticated {
		m.notify(Unauthenticated)
	}
}

func (m *Manager) snapshotLocked() models.Snapshot {
	var user *models.User
	if m.user != nil {
		u := *m.user
		user = &u
	}
	return models.Snapshot{Credentials: m.creds, User: user, SavedAt: m.now().UTC()}
}

func (m *Manager) persist(ctx context.Context, snapshot models.Snapshot) {
	if err := m.store.Save(ctx, snapshot); err != nil {
		m.loggerFor(ctx).Error("persist session", "error", err)
	}
}

func (m *Manager) notify(state State) {
	m.mu.RLock()
	observers := make([]observer, len(m.observers))
	copy(observers, m.observers)
	m.mu.RUnlock()

	for _, o := range observers {
		o.fn(state)
	}
}

func (m *Manager) record(result string) {
	if m.metrics != nil {
		m.metrics.RefreshResult(result)
	}
}

func (m *Manager) loggerFor(ctx context.Context) *slog.Logger {
	return logging.FromContext(logging.WithFallback(ctx, m.logger))
}
