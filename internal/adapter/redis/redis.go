// Package redis implements domain.SessionStore on Redis. Each session is a
// JSON value whose key expires together with the session.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"ems/internal/domain"
)

// KeyPrefix namespaces session keys.
const KeyPrefix = "ems:session:"

var _ domain.SessionStore = (*SessionStore)(nil)

type sessionData struct {
	Identity  string    `json:"identity"`
	Role      string    `json:"role"`
	SubjectID int64     `json:"subjectId"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// SessionStore keeps sessions in Redis.
type SessionStore struct {
	client goredis.UniversalClient
	ttl    time.Duration
}

// Options configures Dial.
type Options struct {
	Addr     string
	Username string
	Password string
	DB       int
}

// Dial connects to Redis and verifies the connection.
func Dial(ctx context.Context, opts Options) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Username: opts.Username,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

// NewSessionStore wraps client as a session store whose sessions live for ttl.
func NewSessionStore(client goredis.UniversalClient, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

// Create starts a new session and returns its token.
func (s *SessionStore) Create(ctx context.Context, identity string, role domain.Role, subjectID int64) (string, error) {
	token, err := domain.NewToken()
	if err != nil {
		return "", err
	}
	now := time.Now().UTC()
	data, err := json.Marshal(sessionData{
		Identity:  identity,
		Role:      string(role),
		SubjectID: subjectID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	})
	if err != nil {
		return "", err
	}
	// SetNX never overwrites an existing session.
	ok, err := s.client.SetNX(ctx, KeyPrefix+token, data, s.ttl).Result()
	if err != nil {
		return "", err
	}
	if !ok {
		return "", errors.New("session token collision")
	}
	return token, nil
}

// Get retrieves a session by token.
func (s *SessionStore) Get(ctx context.Context, token string) (*domain.Session, error) {
	raw, err := s.client.Get(ctx, KeyPrefix+token).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var sd sessionData
	if err := json.Unmarshal(raw, &sd); err != nil {
		return nil, nil
	}
	sess := &domain.Session{
		Token:     token,
		Identity:  sd.Identity,
		Role:      domain.Role(sd.Role),
		SubjectID: sd.SubjectID,
		CreatedAt: sd.CreatedAt,
		ExpiresAt: sd.ExpiresAt,
	}
	if sess.Expired(time.Now()) {
		return nil, nil
	}
	return sess, nil
}

// Destroy deletes a session.
func (s *SessionStore) Destroy(ctx context.Context, token string) error {
	return s.client.Del(ctx, KeyPrefix+token).Err()
}
