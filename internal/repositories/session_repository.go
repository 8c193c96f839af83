package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	crdbpgxv5 "github.com/cockroachdb/cockroach-go/v2/crdb/crdbpgxv5"
	"github.com/jackc/pgx/v5"

	"github.com/socialhub/client/internal/auth"
	"github.com/socialhub/client/internal/db"
	"github.com/socialhub/client/internal/models"
)

// PostgresSessionStore persists one session snapshot per profile.
type PostgresSessionStore struct {
	pool    db.Pool
	profile string
}

// NewPostgresSessionStore constructs a session store backed by PostgreSQL or
// CockroachDB.
func NewPostgresSessionStore(pool db.Pool, profile string) *PostgresSessionStore {
	return &PostgresSessionStore{pool: pool, profile: profile}
}

// Save stores or replaces the profile's snapshot.
func (s *PostgresSessionStore) Save(ctx context.Context, snapshot models.Snapshot) error {
	var userData []byte
	if snapshot.User != nil {
		data, err := json.Marshal(snapshot.User)
		if err != nil {
			return fmt.Errorf("encode session user: %w", err)
		}
		userData = data
	}
	savedAt := snapshot.SavedAt
	if savedAt.IsZero() {
		savedAt = time.Now()
	}

	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	err = crdbpgxv5.ExecuteTx(ctx, conn, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
            INSERT INTO client_sessions (profile, access_token, refresh_token, user_data, saved_at)
            VALUES ($1, $2, $3, $4, $5)
            ON CONFLICT (profile)
            DO UPDATE SET access_token = EXCLUDED.access_token,
                          refresh_token = EXCLUDED.refresh_token,
                          user_data = EXCLUDED.user_data,
                          saved_at = EXCLUDED.saved_at
        `, s.profile, snapshot.Credentials.AccessToken, snapshot.Credentials.RefreshToken, userData, savedAt.UTC())
		return err
	})
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}

	return nil
}

// Load returns auth.ErrNoSession when the profile has no snapshot.
func (s *PostgresSessionStore) Load(ctx context.Context) (models.Snapshot, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT access_token, refresh_token, user_data, saved_at
        FROM client_sessions
        WHERE profile = $1
    `, s.profile)

	var (
		snapshot models.Snapshot
		userData []byte
		savedAt  time.Time
	)
	if err := row.Scan(&snapshot.Credentials.AccessToken, &snapshot.Credentials.RefreshToken, &userData, &savedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Snapshot{}, auth.ErrNoSession
		}
		return models.Snapshot{}, fmt.Errorf("select session: %w", err)
	}

	if len(userData) > 0 {
		var user models.User
		if err := json.Unmarshal(userData, &user); err != nil {
			return models.Snapshot{}, fmt.Errorf("decode session user: %w", err)
		}
		snapshot.User = &user
	}
	snapshot.SavedAt = savedAt.UTC()
	return snapshot, nil
}

// Clear removes the profile's snapshot. A missing row is not an error.
func (s *PostgresSessionStore) Clear(ctx context.Context) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, `
        DELETE FROM client_sessions
        WHERE profile = $1
    `, s.profile); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	return nil
}
