package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"ems/internal/domain"
)

// SessionRepo implements domain.SessionStore on the sessions table.
type SessionRepo struct {
	db  *DB
	ttl time.Duration
	now func() time.Time
}

// NewSessionRepo wraps a DB as a session store whose sessions live for ttl.
func NewSessionRepo(db *DB, ttl time.Duration) *SessionRepo {
	return &SessionRepo{db: db, ttl: ttl, now: time.Now}
}

// Create starts a new session and returns its token.
func (r *SessionRepo) Create(ctx context.Context, identity string, role domain.Role, subjectID int64) (string, error) {
	token, err := domain.NewToken()
	if err != nil {
		return "", err
	}
	now := r.now().UTC()
	_, err = r.db.sql.ExecContext(ctx,
		"INSERT INTO sessions (token, identity, role, subject_id, expires_at, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		token, identity, string(role), subjectID, now.Add(r.ttl), now)
	if err != nil {
		return "", err
	}
	return token, nil
}

// Get retrieves a live session by token.
func (r *SessionRepo) Get(ctx context.Context, token string) (*domain.Session, error) {
	var s domain.Session
	var role string
	err := r.db.sql.QueryRowContext(ctx,
		"SELECT token, identity, role, subject_id, expires_at, created_at FROM sessions WHERE token = ?",
		token,
	).Scan(&s.Token, &s.Identity, &role, &s.SubjectID, &s.ExpiresAt, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if s.Expired(r.now()) {
		return nil, nil
	}
	s.Role = domain.Role(role)
	return &s, nil
}

// Destroy deletes a session by token.
func (r *SessionRepo) Destroy(ctx context.Context, token string) error {
	_, err := r.db.sql.ExecContext(ctx, "DELETE FROM sessions WHERE token = ?", token)
	return err
}

// DeleteExpired deletes all expired sessions.
func (r *SessionRepo) DeleteExpired(ctx context.Context) error {
	_, err := r.db.sql.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at < ?", r.now().UTC())
	return err
}
