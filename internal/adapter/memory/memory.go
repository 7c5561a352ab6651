// Package memory implements an in-memory repository for development and testing.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"ems/internal/domain"
)

// DB implements an in-memory database storage.
type DB struct {
	mu        sync.Mutex
	employees []domain.Employee
	users     []*domain.User

	employeeIDCounter int64
	userIDCounter     int64
}

// New creates a new in-memory database.
func New() *DB {
	return &DB{}
}

// Ensure interfaces are met.
var _ domain.EmployeeRepository = (*DB)(nil)
var _ domain.UserRepository = (*DB)(nil)
var _ domain.SessionStore = (*SessionRepo)(nil)
var _ domain.SessionSweeper = (*SessionRepo)(nil)

// --- EmployeeRepository ---

// AddEmployee stores a new employee and returns its id.
func (db *DB) AddEmployee(ctx context.Context, e domain.Employee) (int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.employeeIDCounter++
	e.ID = db.employeeIDCounter
	e.CreatedAt = e.CreatedAt.UTC()
	db.employees = append(db.employees, e)
	return e.ID, nil
}

// GetEmployee retrieves an employee by id.
func (db *DB) GetEmployee(ctx context.Context, id int64) (*domain.Employee, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if i := db.employeeIndex(id); i >= 0 {
		e := db.employees[i]
		return &e, nil
	}
	return nil, nil
}

// ListEmployees returns every employee ordered by id.
func (db *DB) ListEmployees(ctx context.Context) ([]domain.Employee, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	result := make([]domain.Employee, len(db.employees))
	copy(result, db.employees)
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// SearchEmployees matches query case-insensitively against name, email and department.
func (db *DB) SearchEmployees(ctx context.Context, query string) ([]domain.Employee, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	q := strings.ToLower(query)
	var result []domain.Employee
	for _, e := range db.employees {
		if strings.Contains(strings.ToLower(e.Name), q) ||
			strings.Contains(strings.ToLower(e.Email), q) ||
			strings.Contains(strings.ToLower(e.Department), q) {
			result = append(result, e)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// UpdateEmployee replaces the stored row with the same id.
func (db *DB) UpdateEmployee(ctx context.Context, e domain.Employee) (bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	i := db.employeeIndex(e.ID)
	if i < 0 {
		return false, nil
	}
	e.CreatedAt = db.employees[i].CreatedAt
	db.employees[i] = e
	return true, nil
}

// DeleteEmployee removes an employee by id.
func (db *DB) DeleteEmployee(ctx context.Context, id int64) (bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	i := db.employeeIndex(id)
	if i < 0 {
		return false, nil
	}
	db.employees = append(db.employees[:i], db.employees[i+1:]...)
	return true, nil
}

// employeeIndex must be called with mu held.
func (db *DB) employeeIndex(id int64) int {
	for i, e := range db.employees {
		if e.ID == id {
			return i
		}
	}
	return -1
}

// --- UserRepository ---

// GetByUsername retrieves a user by username.
func (db *DB) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, u := range db.users {
		if u.Username == username {
			c := *u
			return &c, nil
		}
	}
	// Return nil if not found
	return nil, nil
}

// GetByID retrieves a user by ID.
func (db *DB) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, u := range db.users {
		if u.ID == id {
			c := *u
			return &c, nil
		}
	}
	return nil, nil
}

// Create creates a new user.
func (db *DB) Create(ctx context.Context, username, passwordHash string, role domain.Role, employeeID int64) (*domain.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, u := range db.users {
		if u.Username == username {
			return nil, domain.ErrUserExists
		}
	}

	db.userIDCounter++
	u := &domain.User{
		ID:           db.userIDCounter,
		Username:     username,
		PasswordHash: passwordHash,
		Role:         role,
		EmployeeID:   employeeID,
		CreatedAt:    time.Now().UTC(),
	}
	db.users = append(db.users, u)
	c := *u
	return &c, nil
}

// Delete removes a user by username.
func (db *DB) Delete(ctx context.Context, username string) (bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for i, u := range db.users {
		if u.Username == username {
			db.users = append(db.users[:i], db.users[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// Count returns the total number of users.
func (db *DB) Count(ctx context.Context) (int, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return len(db.users), nil
}

// --- SessionStore ---

// SessionRepo keeps sessions in a sync.Map keyed by token. Each operation
// touches a single key, so concurrent requests for different tokens never
// contend on a shared lock.
type SessionRepo struct {
	sessions sync.Map
	ttl      time.Duration
	now      func() time.Time
}

// NewSessionRepo creates a session store whose sessions live for ttl.
func NewSessionRepo(ttl time.Duration) *SessionRepo {
	return &SessionRepo{ttl: ttl, now: time.Now}
}

// Create starts a new session and returns its token.
func (r *SessionRepo) Create(ctx context.Context, identity string, role domain.Role, subjectID int64) (string, error) {
	token, err := domain.NewToken()
	if err != nil {
		return "", err
	}
	now := r.now().UTC()
	r.sessions.Store(token, &domain.Session{
		Token:     token,
		Identity:  identity,
		Role:      role,
		SubjectID: subjectID,
		ExpiresAt: now.Add(r.ttl),
		CreatedAt: now,
	})
	return token, nil
}

// Get retrieves a session by token.
func (r *SessionRepo) Get(ctx context.Context, token string) (*domain.Session, error) {
	v, ok := r.sessions.Load(token)
	if !ok {
		return nil, nil
	}
	s := v.(*domain.Session)
	if s.Expired(r.now()) {
		r.sessions.CompareAndDelete(token, v)
		return nil, nil
	}
	c := *s
	return &c, nil
}

// Destroy deletes a session.
func (r *SessionRepo) Destroy(ctx context.Context, token string) error {
	r.sessions.Delete(token)
	return nil
}

// DeleteExpired deletes all expired sessions.
func (r *SessionRepo) DeleteExpired(ctx context.Context) error {
	now := r.now()
	r.sessions.Range(func(k, v any) bool {
		if v.(*domain.Session).Expired(now) {
			r.sessions.CompareAndDelete(k, v)
		}
		return true
	})
	return nil
}
