package app

import (
	"context"
	"errors"
	"fmt"

	"ems/internal/domain"
)

var (
	// ErrUnauthenticated indicates that the caller has no valid session.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden indicates a valid session whose role is not allowed.
	ErrForbidden = errors.New("forbidden")
	// ErrSessionUnavailable indicates that the session store could not be reached.
	ErrSessionUnavailable = errors.New("session store unavailable")
)

// Decision is the outcome of an access check for one request.
type Decision int

// Access check outcomes. Unchecked is the state before Decide runs; the other
// three are terminal.
const (
	Unchecked Decision = iota
	Unauthenticated
	Forbidden
	Authorized
)

func (d Decision) String() string {
	switch d {
	case Unauthenticated:
		return "unauthenticated"
	case Forbidden:
		return "forbidden"
	case Authorized:
		return "authorized"
	default:
		return "unchecked"
	}
}

// Decide maps a looked-up session (nil when absent) and an allowed role set
// to a decision. A session with a missing or unknown role is Forbidden.
func Decide(sess *domain.Session, allowed domain.RoleSet) Decision {
	if sess == nil {
		return Unauthenticated
	}
	if !allowed.Contains(sess.Role) {
		return Forbidden
	}
	return Authorized
}

// AccessGuard gates protected operations on the caller's session role.
type AccessGuard struct {
	sessions domain.SessionStore
}

// NewAccessGuard creates a guard that reads sessions from store.
func NewAccessGuard(store domain.SessionStore) *AccessGuard {
	return &AccessGuard{sessions: store}
}

// Check resolves token and tests its role against allowed. It returns the
// session when authorized, ErrUnauthenticated or ErrForbidden when not, and
// an error wrapping ErrSessionUnavailable when the store fails.
func (g *AccessGuard) Check(ctx context.Context, token string, allowed domain.RoleSet) (*domain.Session, error) {
	if allowed.Empty() {
		// unreachable through MustRoleSet; refuse rather than admit
		return nil, ErrForbidden
	}

	var sess *domain.Session
	if token != "" {
		var err error
		sess, err = g.sessions.Get(ctx, token)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrSessionUnavailable, err)
		}
	}

	switch Decide(sess, allowed) {
	case Unauthenticated:
		return nil, ErrUnauthenticated
	case Forbidden:
		return nil, ErrForbidden
	default:
		return sess, nil
	}
}

// Guarded runs op only if token is authorized for allowed, passing op's
// result through unchanged. op never starts on denial.
func Guarded[T any](ctx context.Context, g *AccessGuard, token string, allowed domain.RoleSet, op func(context.Context, *domain.Session) (T, error)) (T, error) {
	sess, err := g.Check(ctx, token, allowed)
	if err != nil {
		var zero T
		return zero, err
	}
	return op(ctx, sess)
}
