// Package signed implements a client-held domain.SessionStore. The token is
// an HS256 JWT carrying the session itself; the server only remembers tokens
// that were destroyed before their natural expiry.
package signed

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"ems/internal/domain"
)

// Issuer is set on and required of every token.
const Issuer = "ems"

// MinSecretLength is the shortest accepted HMAC key.
const MinSecretLength = 32

// ErrWeakSecret is returned by NewSessionStore for a short signing key.
var ErrWeakSecret = errors.New("session secret must be at least 32 bytes")

var (
	_ domain.SessionStore   = (*SessionStore)(nil)
	_ domain.SessionSweeper = (*SessionStore)(nil)
)

type claims struct {
	Role      string `json:"role"`
	SubjectID int64  `json:"sid,omitempty"`
	jwt.RegisteredClaims
}

// SessionStore signs sessions into tokens and keeps a revocation list.
type SessionStore struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
	parser *jwt.Parser

	mu      sync.Mutex
	revoked map[string]time.Time // jti -> token expiry
}

// NewSessionStore returns a store signing with secret whose sessions live for ttl.
func NewSessionStore(secret []byte, ttl time.Duration) (*SessionStore, error) {
	if len(secret) < MinSecretLength {
		return nil, ErrWeakSecret
	}
	s := &SessionStore{
		secret:  secret,
		ttl:     ttl,
		now:     time.Now,
		revoked: make(map[string]time.Time),
	}
	s.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return s.now() }),
	)
	return s, nil
}

// Create signs a new session token.
func (s *SessionStore) Create(ctx context.Context, identity string, role domain.Role, subjectID int64) (string, error) {
	now := s.now()
	c := claims{
		Role:      string(role),
		SubjectID: subjectID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   identity,
			Issuer:    Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
}

// Get verifies token and returns the session it carries. Tokens that fail
// verification read as absent.
func (s *SessionStore) Get(ctx context.Context, token string) (*domain.Session, error) {
	c, ok := s.parse(token)
	if !ok {
		return nil, nil
	}

	s.mu.Lock()
	_, revoked := s.revoked[c.ID]
	s.mu.Unlock()
	if revoked {
		return nil, nil
	}

	sess := &domain.Session{
		Token:     token,
		Identity:  c.Subject,
		Role:      domain.Role(c.Role),
		SubjectID: c.SubjectID,
		ExpiresAt: c.ExpiresAt.Time,
	}
	if c.IssuedAt != nil {
		sess.CreatedAt = c.IssuedAt.Time
	}
	return sess, nil
}

// Destroy revokes token until it would have expired anyway.
func (s *SessionStore) Destroy(ctx context.Context, token string) error {
	c, ok := s.parse(token)
	if !ok {
		return nil
	}
	s.mu.Lock()
	s.revoked[c.ID] = c.ExpiresAt.Time
	s.mu.Unlock()
	return nil
}

// DeleteExpired drops revocations whose tokens have expired.
func (s *SessionStore) DeleteExpired(ctx context.Context) error {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, exp := range s.revoked {
		if now.After(exp) {
			delete(s.revoked, id)
		}
	}
	return nil
}

func (s *SessionStore) parse(token string) (*claims, bool) {
	if token == "" {
		return nil, false
	}
	var c claims
	t, err := s.parser.ParseWithClaims(token, &c, func(*jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil || !t.Valid || c.ID == "" || c.Subject == "" {
		return nil, false
	}
	return &c, true
}
