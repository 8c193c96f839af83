package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/socialhub/client/internal/auth"
	"github.com/socialhub/client/internal/config"
	"github.com/socialhub/client/internal/db"
	"github.com/socialhub/client/internal/metrics"
	"github.com/socialhub/client/internal/middleware"
	"github.com/socialhub/client/internal/nav"
	"github.com/socialhub/client/internal/repositories"
	"github.com/socialhub/client/internal/storage"
	"github.com/socialhub/client/internal/stores"
	"github.com/socialhub/client/internal/transport"
)

// Dependencies aggregates the collaborators the commands use.
type Dependencies struct {
	Config   config.Config
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
	Registry *prometheus.Registry
	Session  *auth.Manager
	API      *transport.Client
	Stores   *stores.Registry
	Router   *nav.Router
}

// cleanupFunc releases what buildDependencies opened.
type cleanupFunc func(ctx context.Context) error

const limiterTTL = 10 * time.Minute

// buildDependencies wires together the concrete implementations used by the
// commands.
func buildDependencies(ctx context.Context, cfg config.Config, logger *slog.Logger) (Dependencies, cleanupFunc, error) {
	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics(reg)

	store, closeStore, err := newSessionStore(ctx, cfg, logger)
	if err != nil {
		return Dependencies{}, nil, err
	}

	base, err := transport.New(cfg.API.BaseURL,
		transport.WithHTTPClient(newHTTPClient(cfg.API, logger)),
		transport.WithLogger(logger),
		transport.WithMetrics(m),
		transport.WithUserAgent(cfg.API.UserAgent),
	)
	if err != nil {
		_ = closeStore(ctx)
		return Dependencies{}, nil, err
	}

	authn := auth.NewRemoteAuthenticator(base, auth.Endpoints{
		Login:   cfg.API.LoginPath,
		Signup:  cfg.API.SignupPath,
		Refresh: cfg.API.RefreshPath,
	})
	session := auth.NewManager(ctx, authn, store, auth.WithLogger(logger), auth.WithMetrics(m))
	api := base.Authenticated(session)

	registry := stores.NewRegistry(api, session, stores.WithLogger(logger), stores.WithMetrics(m))
	router := nav.NewRouter(session, func(to string) {
		logger.Warn("session ended, sign in again", "redirect", to)
	}, logger)

	deps := Dependencies{
		Config:   cfg,
		Logger:   logger,
		Metrics:  m,
		Registry: reg,
		Session:  session,
		API:      api,
		Stores:   registry,
		Router:   router,
	}
	cleanup := func(ctx context.Context) error {
		router.Close()
		registry.Close()
		return closeStore(ctx)
	}
	return deps, cleanup, nil
}

func newHTTPClient(cfg config.APIConfig, logger *slog.Logger) *http.Client {
	var limiter middleware.RateLimiter
	if cfg.RateLimit.Requests > 0 {
		limiter = middleware.NewHostRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window, cfg.RateLimit.Burst, limiterTTL)
	}
	return &http.Client{
		Timeout: cfg.Timeout,
		Transport: middleware.Chain(http.DefaultTransport,
			middleware.RequestLogger(logger),
			middleware.RateLimit(limiter),
		),
	}
}

// newSessionStore opens the configured session backend.
func newSessionStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (auth.SessionStore, cleanupFunc, error) {
	noop := func(context.Context) error { return nil }
	sealer := storage.NewSealer(cfg.Session.Passphrase)

	switch cfg.Session.Backend {
	case "memory":
		return auth.NewInMemorySessionStore(), noop, nil
	case "file", "":
		return storage.NewFileSessionStore(cfg.Session.Path, sealer, logger), noop, nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		store := storage.NewRedisSessionStore(client, cfg.Session.Profile, cfg.Redis.TTL, sealer)
		return store, func(context.Context) error { return client.Close() }, nil
	case "postgres":
		pool, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		store := repositories.NewPostgresSessionStore(pool, cfg.Session.Profile)
		return store, func(context.Context) error { pool.Close(); return nil }, nil
	case "s3":
		client, err := storage.NewS3Client(ctx, cfg.ObjectStore)
		if err != nil {
			return nil, nil, err
		}
		store, err := storage.NewS3SessionStore(client, cfg.ObjectStore, cfg.Session.Profile, sealer)
		if err != nil {
			return nil, nil, err
		}
		return store, noop, nil
	default:
		return nil, nil, fmt.Errorf("unknown session backend %q", cfg.Session.Backend)
	}
}

// newLogger builds the process logger from the configured level and format.
func newLogger(cfg config.Config, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(cfg.LogLevel))); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

var errNotSignedIn = errors.New("not signed in, run `socialhub login` first")
