package app

import (
	"context"
	"io"

	"ems/internal/chart"
	"ems/internal/domain"
)

// maxChartBars caps the bars drawn; beyond that labels become unreadable.
const maxChartBars = 40

// ChartsService encapsulates chart rendering use cases.
type ChartsService struct {
	repo domain.EmployeeRepository
}

// NewChartsService creates a ChartsService backed by the given repository.
func NewChartsService(repo domain.EmployeeRepository) *ChartsService {
	return &ChartsService{repo: repo}
}

// SalaryBars returns one bar per employee, in id order, capped at maxChartBars.
func (s *ChartsService) SalaryBars(ctx context.Context) ([]chart.Bar, error) {
	employees, err := s.repo.ListEmployees(ctx)
	if err != nil {
		return nil, err
	}
	if len(employees) > maxChartBars {
		employees = employees[:maxChartBars]
	}
	bars := make([]chart.Bar, 0, len(employees))
	for _, e := range employees {
		bars = append(bars, chart.Bar{Label: e.Name, Value: e.Salary})
	}
	return bars, nil
}

// WriteSalaryChart renders the salary bar chart as PNG into w.
func (s *ChartsService) WriteSalaryChart(ctx context.Context, w io.Writer) error {
	bars, err := s.SalaryBars(ctx)
	if err != nil {
		return err
	}
	return chart.RenderPNG(w, bars, chart.Options{Title: "Employee Salaries"})
}
