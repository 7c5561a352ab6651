package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/spf13/cobra"

	"ems/internal/app"
	"ems/internal/domain"
)

var departments = []string{
	"Engineering", "Finance", "Human Resources", "Marketing", "Operations", "Sales", "Support",
}

const (
	minSalary = 30000
	maxSalary = 180000
)

func seedCommand() *cobra.Command {
	var (
		count int
		seed  uint64
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert fake employees",
		Long:  "Adds randomly generated employees to the configured database. Useful for local development.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (runErr error) {
			if count < 1 {
				return errors.New("--count must be positive")
			}
			if seed == 0 {
				seed = uint64(time.Now().UnixNano()) //nolint:gosec // any value is a valid seed
			}
			cfg, err := configFrom(cmd.Context())
			if err != nil {
				return err
			}
			logger := slog.Default()
			b, err := openPersistentBackend(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer func() {
				if err := b.Close(); err != nil {
					runErr = errors.Join(runErr, err)
				}
			}()

			n, err := seedEmployees(cmd.Context(), app.NewEmployeeService(b.employees), gofakeit.New(seed), count)
			logger.InfoContext(cmd.Context(), "seeded employees", slog.Int("count", n), slog.Uint64("seed", seed))
			return err
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 25, "number of employees to add")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "random seed; 0 picks one from the clock")
	return cmd
}

func seedEmployees(ctx context.Context, svc *app.EmployeeService, faker *gofakeit.Faker, count int) (int, error) {
	for i := range count {
		if _, err := svc.Add(ctx, fakeEmployee(faker)); err != nil {
			return i, fmt.Errorf("add employee %d: %w", i+1, err)
		}
	}
	return count, nil
}

func fakeEmployee(faker *gofakeit.Faker) domain.Employee {
	first, last := faker.FirstName(), faker.LastName()
	return domain.Employee{
		Name:        first + " " + last,
		Email:       localPart(first) + "." + localPart(last) + "@" + faker.DomainName(),
		Department:  departments[faker.IntN(len(departments))],
		Designation: faker.JobTitle(),
		Salary:      math.Round(faker.Float64Range(minSalary, maxSalary)/100) * 100,
	}
}

func localPart(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + 'a' - 'A'
		}
		return -1
	}, name)
}
