package app_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/png"
	"testing"

	"ems/internal/app"
	"ems/internal/domain"
)

func TestSalaryBars(t *testing.T) {
	repo := &mockEmployeeRepo{
		listFn: func(ctx context.Context) ([]domain.Employee, error) {
			return []domain.Employee{{Name: "A", Salary: 10}, {Name: "B", Salary: 20}}, nil
		},
	}
	svc := app.NewChartsService(repo)

	bars, err := svc.SalaryBars(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(bars) != 2 || bars[1].Label != "B" || bars[1].Value != 20 {
		t.Errorf("unexpected bars %+v", bars)
	}
}

func TestSalaryBars_Capped(t *testing.T) {
	repo := &mockEmployeeRepo{
		listFn: func(ctx context.Context) ([]domain.Employee, error) {
			out := make([]domain.Employee, 100)
			for i := range out {
				out[i] = domain.Employee{Name: fmt.Sprint(i), Salary: float64(i)}
			}
			return out, nil
		},
	}
	bars, err := app.NewChartsService(repo).SalaryBars(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(bars) != 40 {
		t.Errorf("expected 40 bars, got %d", len(bars))
	}
}

func TestWriteSalaryChart(t *testing.T) {
	repo := &mockEmployeeRepo{
		listFn: func(ctx context.Context) ([]domain.Employee, error) {
			return []domain.Employee{{Name: "A", Salary: 10}}, nil
		},
	}
	var buf bytes.Buffer
	if err := app.NewChartsService(repo).WriteSalaryChart(context.Background(), &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := png.Decode(&buf); err != nil {
		t.Fatalf("expected a PNG, got %v", err)
	}
}

func TestWriteSalaryChart_RepoError(t *testing.T) {
	boom := errors.New("db down")
	repo := &mockEmployeeRepo{
		listFn: func(ctx context.Context) ([]domain.Employee, error) { return nil, boom },
	}
	var buf bytes.Buffer
	if err := app.NewChartsService(repo).WriteSalaryChart(context.Background(), &buf); !errors.Is(err, boom) {
		t.Fatalf("expected repo error, got %v", err)
	}
	if buf.Len() != 0 {
		t.Error("nothing should be written on error")
	}
}
