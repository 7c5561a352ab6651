package domain

import (
	"context"
	"time"
)

// Employee is a row of the employees table.
type Employee struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Department  string    `json:"department"`
	Designation string    `json:"designation"`
	Salary      float64   `json:"salary"`
	Photo       string    `json:"photo,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// EmployeeRepository is the port for employee persistence.
// GetEmployee returns (nil, nil) when no row matches.
type EmployeeRepository interface {
	AddEmployee(ctx context.Context, e Employee) (int64, error)
	GetEmployee(ctx context.Context, id int64) (*Employee, error)
	ListEmployees(ctx context.Context) ([]Employee, error)
	SearchEmployees(ctx context.Context, query string) ([]Employee, error)
	UpdateEmployee(ctx context.Context, e Employee) (bool, error)
	DeleteEmployee(ctx context.Context, id int64) (bool, error)
}
