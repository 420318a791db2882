package session

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SQLiteStore is a [Store] backed by SQLite, for deployments that want sessions
// to survive a restart. Schema is applied through shared.RunMigrations before
// the store is constructed.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a store over an open database connection.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// PutChallenge implements [Store].
func (s *SQLiteStore) PutChallenge(ctx context.Context, state string, c Challenge) error {
	query := `
		INSERT INTO challenges (state, code_verifier, created_at, expires_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(state) DO UPDATE SET code_verifier = excluded.code_verifier,
			created_at = excluded.created_at, expires_at = excluded.expires_at
	`
	if _, err := s.db.ExecContext(ctx, query, state, c.CodeVerifier, c.CreatedAt, c.ExpiresAt); err != nil {
		return fmt.Errorf("failed to insert challenge: %w", err)
	}
	return nil
}

// TakeChallenge implements [Store]. The select and delete run in one
// transaction so a state is single-use even under concurrent callbacks.
func (s *SQLiteStore) TakeChallenge(ctx context.Context, state string) (*Challenge, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var c Challenge
	query := `SELECT code_verifier, created_at, expires_at FROM challenges WHERE state = ?`
	err = tx.QueryRowContext(ctx, query, state).Scan(&c.CodeVerifier, &c.CreatedAt, &c.ExpiresAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query challenge: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM challenges WHERE state = ?", state); err != nil {
		return nil, fmt.Errorf("failed to delete challenge: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit challenge take: %w", err)
	}

	if !time.Now().Before(c.ExpiresAt) {
		return nil, ErrNotFound
	}
	return &c, nil
}

// PutSession implements [Store].
func (s *SQLiteStore) PutSession(ctx context.Context, id string, sess Session) error {
	query := `
		INSERT INTO sessions (id, access_token, refresh_token, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET access_token = excluded.access_token,
			refresh_token = excluded.refresh_token, created_at = excluded.created_at,
			expires_at = excluded.expires_at
	`
	if _, err := s.db.ExecContext(ctx, query, id, sess.AccessToken, sess.RefreshToken, sess.CreatedAt, sess.ExpiresAt); err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

// GetSession implements [Store].
func (s *SQLiteStore) GetSession(ctx context.Context, id string) (*Session, error) {
	var sess Session
	query := `SELECT access_token, refresh_token, created_at, expires_at FROM sessions WHERE id = ?`
	err := s.db.QueryRowContext(ctx, query, id).Scan(&sess.AccessToken, &sess.RefreshToken, &sess.CreatedAt, &sess.ExpiresAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}
	return &sess, nil
}

// DeleteSession implements [Store].
func (s *SQLiteStore) DeleteSession(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// Sweep implements [Store].
func (s *SQLiteStore) Sweep(ctx context.Context, now time.Time) (int, error) {
	evicted := 0
	for _, table := range []string{"challenges", "sessions"} {
		res, err := s.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE expires_at < ?", table), now)
		if err != nil {
			return evicted, fmt.Errorf("failed to sweep %s: %w", table, err)
		}
		if rows, err := res.RowsAffected(); err == nil {
			evicted += int(rows)
		}
	}
	return evicted, nil
}

// ActiveSessions implements [Store].
func (s *SQLiteStore) ActiveSessions(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sessions").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count sessions: %w", err)
	}
	return count, nil
}
