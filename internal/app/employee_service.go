package app

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/mail"
	"sort"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"ems/internal/domain"
)

const maxFieldLength = 120

var (
	// ErrEmployeeNotFound indicates that no employee has the requested id.
	ErrEmployeeNotFound = errors.New("employee not found")
	// ErrInvalidEmployee is returned when employee input fails validation.
	ErrInvalidEmployee = errors.New("invalid employee")
	// ErrNoProfile is returned when the session is not linked to an employee.
	ErrNoProfile = errors.New("no employee profile linked to this login")
)

// EmployeeService encapsulates employee record use cases.
type EmployeeService struct {
	repo   domain.EmployeeRepository
	policy *bluemonday.Policy
}

// NewEmployeeService creates an EmployeeService backed by the given repository.
func NewEmployeeService(repo domain.EmployeeRepository) *EmployeeService {
	return &EmployeeService{repo: repo, policy: bluemonday.StrictPolicy()}
}

// Add validates and stores a new employee.
func (s *EmployeeService) Add(ctx context.Context, e domain.Employee) (int64, error) {
	e, err := s.clean(e)
	if err != nil {
		return 0, err
	}
	e.CreatedAt = time.Now().UTC()
	return s.repo.AddEmployee(ctx, e)
}

// Get returns one employee or ErrEmployeeNotFound.
func (s *EmployeeService) Get(ctx context.Context, id int64) (*domain.Employee, error) {
	e, err := s.repo.GetEmployee(ctx, id)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, ErrEmployeeNotFound
	}
	return e, nil
}

// List returns all employees ordered by id.
func (s *EmployeeService) List(ctx context.Context) ([]domain.Employee, error) {
	return s.repo.ListEmployees(ctx)
}

// Search matches query case-insensitively against name, email and department.
// An empty query lists everything.
func (s *EmployeeService) Search(ctx context.Context, query string) ([]domain.Employee, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return s.repo.ListEmployees(ctx)
	}
	return s.repo.SearchEmployees(ctx, query)
}

// Update replaces the editable fields of employee id. The stored photo is
// kept when e.Photo is empty.
func (s *EmployeeService) Update(ctx context.Context, id int64, e domain.Employee) (*domain.Employee, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	e, err = s.clean(e)
	if err != nil {
		return nil, err
	}
	e.ID = id
	e.CreatedAt = current.CreatedAt
	if e.Photo == "" {
		e.Photo = current.Photo
	}
	ok, err := s.repo.UpdateEmployee(ctx, e)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrEmployeeNotFound
	}
	return &e, nil
}

// Delete removes employee id and returns the removed row so callers can
// clean up its photo.
func (s *EmployeeService) Delete(ctx context.Context, id int64) (*domain.Employee, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	ok, err := s.repo.DeleteEmployee(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrEmployeeNotFound
	}
	return current, nil
}

// Profile returns the employee linked to the session's subject.
func (s *EmployeeService) Profile(ctx context.Context, sess *domain.Session) (*domain.Employee, error) {
	if sess == nil || sess.SubjectID <= 0 {
		return nil, ErrNoProfile
	}
	e, err := s.Get(ctx, sess.SubjectID)
	if errors.Is(err, ErrEmployeeNotFound) {
		return nil, ErrNoProfile
	}
	return e, err
}

// DepartmentStat aggregates employees of one department.
type DepartmentStat struct {
	Department string  `json:"department"`
	Headcount  int     `json:"headcount"`
	AvgSalary  float64 `json:"avgSalary"`
}

// Summary is the dashboard overview.
type Summary struct {
	Headcount   int              `json:"headcount"`
	TotalSalary float64          `json:"totalSalary"`
	Departments []DepartmentStat `json:"departments"`
}

// Summarize computes headcount and salary figures per department.
func (s *EmployeeService) Summarize(ctx context.Context) (*Summary, error) {
	employees, err := s.repo.ListEmployees(ctx)
	if err != nil {
		return nil, err
	}

	sum := &Summary{Headcount: len(employees)}
	byDept := map[string]*DepartmentStat{}
	for _, e := range employees {
		sum.TotalSalary += e.Salary
		name := e.Department
		if name == "" {
			name = "Unassigned"
		}
		d, ok := byDept[name]
		if !ok {
			d = &DepartmentStat{Department: name}
			byDept[name] = d
		}
		d.Headcount++
		d.AvgSalary += e.Salary
	}
	for _, d := range byDept {
		d.AvgSalary /= float64(d.Headcount)
		sum.Departments = append(sum.Departments, *d)
	}
	sort.Slice(sum.Departments, func(i, j int) bool {
		return sum.Departments[i].Department < sum.Departments[j].Department
	})
	return sum, nil
}

func (s *EmployeeService) clean(e domain.Employee) (domain.Employee, error) {
	e.Name = s.text(e.Name)
	e.Email = strings.TrimSpace(e.Email)
	e.Department = s.text(e.Department)
	e.Designation = s.text(e.Designation)

	if e.Name == "" {
		return e, fmt.Errorf("%w: name is required", ErrInvalidEmployee)
	}
	for field, v := range map[string]string{"name": e.Name, "email": e.Email, "department": e.Department, "designation": e.Designation} {
		if len(v) > maxFieldLength {
			return e, fmt.Errorf("%w: %s is longer than %d characters", ErrInvalidEmployee, field, maxFieldLength)
		}
	}
	if e.Email != "" {
		addr, err := mail.ParseAddress(e.Email)
		if err != nil || addr.Address != e.Email {
			return e, fmt.Errorf("%w: invalid email %q", ErrInvalidEmployee, e.Email)
		}
	}
	if e.Salary < 0 {
		return e, fmt.Errorf("%w: salary must not be negative", ErrInvalidEmployee)
	}
	return e, nil
}

// text strips markup; templates escape on output, so entities are decoded
// back to plain characters before storage.
func (s *EmployeeService) text(v string) string {
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(v)))
}
