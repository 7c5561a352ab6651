package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"ems/internal/spreadsheet"
)

// ReportsService exports and imports employee spreadsheets.
type ReportsService struct {
	employees *EmployeeService
}

// NewReportsService creates a ReportsService on top of the employee use cases.
func NewReportsService(employees *EmployeeService) *ReportsService {
	return &ReportsService{employees: employees}
}

// Export writes every employee to w as an .xlsx workbook.
func (s *ReportsService) Export(ctx context.Context, w io.Writer) error {
	list, err := s.employees.List(ctx)
	if err != nil {
		return err
	}
	return spreadsheet.WriteEmployees(w, list)
}

// ImportResult reports the outcome of an Import.
type ImportResult struct {
	Imported int                    `json:"imported"`
	Skipped  []spreadsheet.RowError `json:"skipped"`
}

// Import reads employees from an uploaded workbook and adds each valid row.
// Rows rejected by validation are reported rather than aborting the import.
// A storage failure stops the import; rows added before it stay stored and
// the partial result is returned with the error.
func (s *ReportsService) Import(ctx context.Context, filename string, r io.Reader) (*ImportResult, error) {
	rows, skipped, err := spreadsheet.ReadEmployees(filename, r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidEmployee, err)
	}

	res := &ImportResult{Skipped: skipped}
	for _, rec := range rows {
		_, err := s.employees.Add(ctx, rec.Employee)
		if errors.Is(err, ErrInvalidEmployee) {
			res.Skipped = append(res.Skipped, spreadsheet.RowError{Row: rec.Row, Reason: err.Error()})
			continue
		}
		if err != nil {
			return res, err
		}
		res.Imported++
	}
	return res, nil
}
