package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/goleak"

	"github.com/socialhub/client/internal/models"
	"github.com/socialhub/client/internal/transport"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreAnyFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreAnyFunction("net/http.(*persistConn).writeLoop"),
	)
}

type stubAuthenticator struct {
	mu         sync.Mutex
	creds      models.Credentials
	loginErr   error
	access     string
	refreshErr error
	refreshes  atomic.Int32
	gate       chan struct{}
}

func (s *stubAuthenticator) Login(context.Context, string, string) (models.Credentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.creds, s.loginErr
}

func (s *stubAuthenticator) Signup(context.Context, SignupInput) error { return nil }

func (s *stubAuthenticator) Refresh(context.Context, string) (string, error) {
	s.refreshes.Add(1)
	if s.gate != nil {
		<-s.gate
	}
	if s.refreshErr != nil {
		return "", s.refreshErr
	}
	return s.access, nil
}

type stateLog struct {
	mu     sync.Mutex
	states []State
}

func (l *stateLog) record(s State) {
	l.mu.Lock()
	l.states = append(l.states, s)
	l.mu.Unlock()
}

func (l *stateLog) snapshot() []State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]State(nil), l.states...)
}

func loggedIn(t *testing.T, authn *stubAuthenticator, store SessionStore) *Manager {
	t.Helper()
	ctx := context.Background()
	if err := store.Save(ctx, models.Snapshot{Credentials: models.Credentials{AccessToken: "a1", RefreshToken: "r1"}}); err != nil {
		t.Fatalf("seed store: %v", err)
	}
	return NewManager(ctx, authn, store)
}

func TestNewManagerRestoresSnapshot(t *testing.T) {
	store := NewInMemorySessionStore()
	user := models.User{ID: 3, Username: "alice"}
	_ = store.Save(context.Background(), models.Snapshot{
		Credentials: models.Credentials{AccessToken: "a1", RefreshToken: "r1"},
		User:        &user,
	})

	m := NewManager(context.Background(), &stubAuthenticator{}, store)

	if !m.Authenticated() {
		t.Fatalf("expected restored session to be authenticated")
	}
	if m.AccessToken() != "a1" {
		t.Fatalf("expected restored access token got %q", m.AccessToken())
	}
	got, ok := m.CurrentUser()
	if !ok || got.Username != "alice" {
		t.Fatalf("expected restored user got %+v", got)
	}

	empty := NewManager(context.Background(), &stubAuthenticator{}, NewInMemorySessionStore())
	if empty.Authenticated() {
		t.Fatalf("expected empty store to start unauthenticated")
	}
}

func TestLoginPersistsAndNotifies(t *testing.T) {
	store := NewInMemorySessionStore()
	authn := &stubAuthenticator{creds: models.Credentials{AccessToken: "a1", RefreshToken: "r1"}}
	m := NewManager(context.Background(), authn, store)

	var log stateLog
	cancel := m.Subscribe(log.record)
	defer cancel()

	if err := m.Login(context.Background(), "alice", "secret"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if !m.Authenticated() || !store.Has() {
		t.Fatalf("expected authenticated and persisted session")
	}
	if states := log.snapshot(); len(states) != 1 || states[0] != Authenticated {
		t.Fatalf("expected one authenticated notification got %v", states)
	}

	if err := m.Login(context.Background(), "", ""); err == nil {
		t.Fatalf("expected validation error for empty credentials")
	}

	authn.loginErr = transport.ErrValidation
	if err := m.Login(context.Background(), "alice", "wrong"); !errors.Is(err, transport.ErrValidation) {
		t.Fatalf("expected validation error got %v", err)
	}
}

func TestConcurrentRefreshIsSingleFlight(t *testing.T) {
	store := NewInMemorySessionStore()
	authn := &stubAuthenticator{access: "a2", gate: make(chan struct{})}
	m := loggedIn(t, authn, store)

	const callers = 8
	var wg sync.WaitGroup
	tokens := make([]string, callers)
	errs := make([]error, callers)
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func(i int) {
			defer wg.Done()
			tokens[i], errs[i] = m.Refresh(context.Background())
		}(i)
	}

	deadline := time.Now().Add(time.Second)
	for authn.refreshes.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	time.Sleep(20 * time.Millisecond)
	close(authn.gate)
	wg.Wait()

	if got := authn.refreshes.Load(); got != 1 {
		t.Fatalf("expected one refresh call got %d", got)
	}
	for i := range tokens {
		if errs[i] != nil || tokens[i] != "a2" {
			t.Fatalf("caller %d got %q %v", i, tokens[i], errs[i])
		}
	}
	snap, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if snap.Credentials.AccessToken != "a2" || snap.Credentials.RefreshToken != "r1" {
		t.Fatalf("expected refreshed access token persisted got %+v", snap.Credentials)
	}
}

func TestRefreshFailureEndsSession(t *testing.T) {
	store := NewInMemorySessionStore()
	authn := &stubAuthenticator{refreshErr: transport.ErrAuthorizationExpired}
	m := loggedIn(t, authn, store)

	var log stateLog
	m.Subscribe(log.record)

	_, err := m.Refresh(context.Background())
	if !errors.Is(err, ErrRefreshFailed) {
		t.Fatalf("expected refresh failed got %v", err)
	}
	if m.Authenticated() || m.AccessToken() != "" {
		t.Fatalf("expected credentials cleared")
	}
	if m.Credentials().RefreshToken != "" {
		t.Fatalf("expected refresh token cleared")
	}
	if store.Has() {
		t.Fatalf("expected persisted session wiped")
	}
	if states := log.snapshot(); len(states) != 1 || states[0] != Unauthenticated {
		t.Fatalf("expected unauthenticated notification got %v", states)
	}

	if _, err := m.Refresh(context.Background()); !errors.Is(err, ErrNoRefreshToken) {
		t.Fatalf("expected missing refresh token got %v", err)
	}
	if states := log.snapshot(); len(states) != 1 {
		t.Fatalf("expected no further notifications got %v", states)
	}
}

func TestRenewSkipsNetworkWhenTokenAlreadyReplaced(t *testing.T) {
	authn := &stubAuthenticator{access: "a2"}
	m := loggedIn(t, authn, NewInMemorySessionStore())

	token, err := m.Renew(context.Background(), "a1")
	if err != nil || token != "a2" {
		t.Fatalf("renew: %q %v", token, err)
	}

	token, err = m.Renew(context.Background(), "a1")
	if err != nil || token != "a2" {
		t.Fatalf("second renew: %q %v", token, err)
	}
	if got := authn.refreshes.Load(); got != 1 {
		t.Fatalf("expected a single refresh got %d", got)
	}
}

func TestRefreshCallerCancellationDoesNotAbortRefresh(t *testing.T) {
	authn := &stubAuthenticator{access: "a2", gate: make(chan struct{})}
	m := loggedIn(t, authn, NewInMemorySessionStore())

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := m.Refresh(ctx)
		errCh <- err
	}()
	for authn.refreshes.Load() == 0 {
		time.Sleep(time.Millisecond)
	}
	cancel()
	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled got %v", err)
	}

	close(authn.gate)
	deadline := time.Now().Add(time.Second)
	for m.AccessToken() != "a2" && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if m.AccessToken() != "a2" {
		t.Fatalf("expected detached refresh to complete")
	}
}

func TestLogoutClearsSession(t *testing.T) {
	store := NewInMemorySessionStore()
	m := loggedIn(t, &stubAuthenticator{}, store)
	if err := m.SetUser(context.Background(), models.User{ID: 1, Username: "alice"}); err != nil {
		t.Fatalf("set user: %v", err)
	}

	m.Logout(context.Background())

	if m.Authenticated() || store.Has() {
		t.Fatalf("expected logout to clear memory and storage")
	}
	if _, ok := m.CurrentUser(); ok {
		t.Fatalf("expected current user cleared")
	}
	if err := m.SetUser(context.Background(), models.User{ID: 1}); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected not authenticated got %v", err)
	}
}

func TestSubscribeCancel(t *testing.T) {
	m := loggedIn(t, &stubAuthenticator{}, NewInMemorySessionStore())
	var calls atomic.Int32
	cancel := m.Subscribe(func(State) { calls.Add(1) })
	cancel()
	m.Logout(context.Background())
	if calls.Load() != 0 {
		t.Fatalf("expected cancelled observer not to be called")
	}
}

func TestParseClaims(t *testing.T) {
	exp := time.Now().Add(5 * time.Minute).Truncate(time.Second)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":    42,
		"exp":        exp.Unix(),
		"token_type": "access",
	}).SignedString([]byte("server-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	claims, err := ParseClaims(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID != 42 || !claims.ExpiresAt.Equal(exp) {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if claims.Expired(time.Now()) || !claims.Expired(exp.Add(time.Second)) {
		t.Fatalf("unexpected expiry evaluation")
	}

	if _, err := ParseClaims("not-a-jwt"); err == nil {
		t.Fatalf("expected parse error")
	}
}

// Three requests rejected with the same expired token trigger one refresh and
// are all replayed with the new token.
func TestTransportSharesOneRefreshAcrossRequests(t *testing.T) {
	var refreshCalls, apiCalls atomic.Int32
	release := make(chan struct{})
	mux := http.NewServeMux()
	mux.HandleFunc("/api/token/refresh/", func(w http.ResponseWriter, r *http.Request) {
		refreshCalls.Add(1)
		<-release
		_ = json.NewEncoder(w).Encode(map[string]string{"access": "fresh"})
	})
	mux.HandleFunc("/api/posts/", func(w http.ResponseWriter, r *http.Request) {
		apiCalls.Add(1)
		if r.Header.Get("Authorization") != "Bearer fresh" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`[]`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	base, err := transport.New(srv.URL + "/api/")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	store := NewInMemorySessionStore()
	_ = store.Save(context.Background(), models.Snapshot{Credentials: models.Credentials{AccessToken: "stale", RefreshToken: "r1"}})
	m := NewManager(context.Background(), NewRemoteAuthenticator(base, Endpoints{}), store)
	client := base.Authenticated(m)

	var wg sync.WaitGroup
	errs := make([]error, 3)
	wg.Add(3)
	for i := 0; i < 3; i++ {
		go func(i int) {
			defer wg.Done()
			errs[i] = client.Get(context.Background(), "/posts/", nil, nil)
		}(i)
	}

	deadline := time.Now().Add(time.Second)
	for (refreshCalls.Load() == 0 || apiCalls.Load() < 3) && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
	}
	if got := refreshCalls.Load(); got != 1 {
		t.Fatalf("expected one refresh call got %d", got)
	}
	if got := apiCalls.Load(); got != 6 {
		t.Fatalf("expected each request replayed once got %d api calls", got)
	}
}
