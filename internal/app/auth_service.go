// Package app holds the application services and business logic.
package app

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"sync"

	"ems/internal/domain"

	"golang.org/x/crypto/bcrypt"
)

// InvalidLoginMessage is the only text shown to a user whose login was denied.
const InvalidLoginMessage = "Invalid Login"

// MinPasswordLength is the shortest password CreateUser accepts.
const MinPasswordLength = 8

var (
	// ErrInvalidCredentials indicates that the provided username or password was incorrect.
	// It deliberately does not say which.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrDirectoryUnavailable indicates that the credential directory could not be queried.
	ErrDirectoryUnavailable = errors.New("credential directory unavailable")
	// ErrUsersExist is returned by CreateInitialUser once any user exists.
	ErrUsersExist = errors.New("users already exist")
	// ErrInvalidUser is returned when CreateUser input fails validation.
	ErrInvalidUser = errors.New("invalid user")
)

// Principal is what a successful verification yields: the fields the caller
// installs into a new session.
type Principal struct {
	Identity  string
	Role      domain.Role
	SubjectID int64
}

// AuthService verifies credentials and manages the session lifecycle.
type AuthService struct {
	users    domain.UserRepository
	sessions domain.SessionStore
}

// NewAuthService creates a new authentication service.
func NewAuthService(users domain.UserRepository, sessions domain.SessionStore) *AuthService {
	return &AuthService{
		users:    users,
		sessions: sessions,
	}
}

// dummyHash is compared against when the identity does not exist so that
// unknown users and wrong passwords take the same time.
var dummyHash = sync.OnceValue(func() []byte {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	h, err := bcrypt.GenerateFromPassword(b, bcrypt.DefaultCost)
	if err != nil {
		panic(err)
	}
	return h
})

// Verify checks a username/password pair against the directory.
func (s *AuthService) Verify(ctx context.Context, username, password string) (*Principal, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDirectoryUnavailable, err)
	}

	hash := dummyHash()
	if user != nil {
		hash = []byte(user.PasswordHash)
	}
	cmpErr := bcrypt.CompareHashAndPassword(hash, []byte(password))
	if user == nil || cmpErr != nil || !user.Role.Valid() {
		return nil, ErrInvalidCredentials
	}

	return &Principal{Identity: user.Username, Role: user.Role, SubjectID: user.EmployeeID}, nil
}

// Login verifies credentials and creates a session, returning its token.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, error) {
	p, err := s.Verify(ctx, username, password)
	if err != nil {
		return "", err
	}
	return s.startSession(ctx, p)
}

// LoginWithUser creates a session for an identity already authenticated
// elsewhere (e.g. via SSO). The identity must exist in the directory, since
// its role cannot be inferred.
func (s *AuthService) LoginWithUser(ctx context.Context, username string) (string, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrDirectoryUnavailable, err)
	}
	if user == nil || !user.Role.Valid() {
		return "", ErrInvalidCredentials
	}
	return s.startSession(ctx, &Principal{Identity: user.Username, Role: user.Role, SubjectID: user.EmployeeID})
}

func (s *AuthService) startSession(ctx context.Context, p *Principal) (string, error) {
	token, err := s.sessions.Create(ctx, p.Identity, p.Role, p.SubjectID)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrSessionUnavailable, err)
	}
	return token, nil
}

// Logout invalidates a session. Unknown tokens are ignored.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.sessions.Destroy(ctx, token)
}

// CreateUser hashes password and adds a credential record.
func (s *AuthService) CreateUser(ctx context.Context, username, password string, role domain.Role, employeeID int64) (*domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("%w: username is required", ErrInvalidUser)
	}
	if !role.Valid() {
		return nil, fmt.Errorf("%w: %w", ErrInvalidUser, domain.ErrUnknownRole)
	}
	if len(password) < MinPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidUser, MinPasswordLength)
	}
	if employeeID < 0 {
		return nil, fmt.Errorf("%w: employee id must not be negative", ErrInvalidUser)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidUser, err)
	}
	return s.users.Create(ctx, username, string(hash), role, employeeID)
}

// CreateInitialUser creates the first Admin if no users exist.
func (s *AuthService) CreateInitialUser(ctx context.Context, username, password string) error {
	count, err := s.users.Count(ctx)
	if err != nil {
		return err
	}

	if count > 0 {
		return ErrUsersExist
	}

	_, err = s.CreateUser(ctx, username, password, domain.RoleAdmin, 0)
	return err
}

// DeleteUser removes a credential record. Sessions already issued for it
// stay valid until they expire or log out.
func (s *AuthService) DeleteUser(ctx context.Context, username string) (bool, error) {
	return s.users.Delete(ctx, username)
}

// ConstantTimeCompare performs a constant-time comparison of two strings.
func ConstantTimeCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
