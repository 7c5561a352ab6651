package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Role is the access level attached to an authenticated identity.
type Role string

// Known roles.
const (
	RoleEmployee Role = "Employee"
	RoleHR       Role = "HR"
	RoleManager  Role = "Manager"
	RoleAdmin    Role = "Admin"
)

// ErrUnknownRole is returned when a role label is not one of the known roles.
var ErrUnknownRole = errors.New("unknown role")

// ErrEmptyRoleSet is returned when a RoleSet is built without any roles.
var ErrEmptyRoleSet = errors.New("role set must not be empty")

// Roles lists every known role in ascending privilege order.
func Roles() []Role {
	return []Role{RoleEmployee, RoleHR, RoleManager, RoleAdmin}
}

// ParseRole resolves a role label case-insensitively.
func ParseRole(s string) (Role, error) {
	for _, r := range Roles() {
		if strings.EqualFold(string(r), strings.TrimSpace(s)) {
			return r, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
}

// Valid reports whether r is exactly one of the known roles.
func (r Role) Valid() bool {
	for _, k := range Roles() {
		if k == r {
			return true
		}
	}
	return false
}

// RoleSet is the fixed set of roles allowed to invoke an operation. The zero
// value contains no roles and admits nobody.
type RoleSet struct {
	members map[Role]struct{}
}

// NewRoleSet builds a RoleSet. It fails if roles is empty or holds an
// unknown role.
func NewRoleSet(roles ...Role) (RoleSet, error) {
	if len(roles) == 0 {
		return RoleSet{}, ErrEmptyRoleSet
	}
	m := make(map[Role]struct{}, len(roles))
	for _, r := range roles {
		if !r.Valid() {
			return RoleSet{}, fmt.Errorf("%w: %q", ErrUnknownRole, r)
		}
		m[r] = struct{}{}
	}
	return RoleSet{members: m}, nil
}

// MustRoleSet is like NewRoleSet but panics on error. It is meant for route
// registration, where a bad set is a programming error.
func MustRoleSet(roles ...Role) RoleSet {
	s, err := NewRoleSet(roles...)
	if err != nil {
		panic(err)
	}
	return s
}

// Contains reports whether r is a member of the set.
func (s RoleSet) Contains(r Role) bool {
	_, ok := s.members[r]
	return ok
}

// Empty reports whether the set admits nobody.
func (s RoleSet) Empty() bool {
	return len(s.members) == 0
}

// Roles returns the members in ascending privilege order.
func (s RoleSet) Roles() []Role {
	out := make([]Role, 0, len(s.members))
	for _, r := range Roles() {
		if s.Contains(r) {
			out = append(out, r)
		}
	}
	return out
}

func (s RoleSet) String() string {
	parts := make([]string, 0, len(s.members))
	for _, r := range s.Roles() {
		parts = append(parts, string(r))
	}
	return "{" + strings.Join(parts, ",") + "}"
}
