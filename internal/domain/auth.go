// Package domain contains the core business entities and interfaces.
package domain

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"
)

// ErrUserExists is returned by UserRepository.Create for a taken username.
var ErrUserExists = errors.New("user already exists")

// User is a credential record in the directory. EmployeeID links the login
// to the employee row it may view as its own profile; zero means none.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	Role         Role
	EmployeeID   int64
	CreatedAt    time.Time
}

// Session represents an authenticated client.
type Session struct {
	Token     string
	Identity  string
	Role      Role
	SubjectID int64
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired reports whether the session is past its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// UserRepository defines the port for the credential directory.
// GetByUsername and GetByID return (nil, nil) when no record matches.
type UserRepository interface {
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByID(ctx context.Context, id int64) (*User, error)
	Create(ctx context.Context, username, passwordHash string, role Role, employeeID int64) (*User, error)
	Delete(ctx context.Context, username string) (bool, error)
	Count(ctx context.Context) (int, error)
}

// SessionStore defines the port for session state.
//
// Get returns (nil, nil) for an unknown, malformed, tampered or expired
// token. A non-nil error always means the backing store itself failed.
type SessionStore interface {
	Create(ctx context.Context, identity string, role Role, subjectID int64) (string, error)
	Get(ctx context.Context, token string) (*Session, error)
	Destroy(ctx context.Context, token string) error
}

// SessionSweeper is implemented by stores that purge expired sessions on demand.
type SessionSweeper interface {
	DeleteExpired(ctx context.Context) error
}

// NewToken returns a random URL-safe session token.
func NewToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
