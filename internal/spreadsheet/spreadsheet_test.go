package spreadsheet

import (
	"bytes"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"ems/internal/domain"
)

func TestWriteEmployeesLayout(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	err := WriteEmployees(&buf, []domain.Employee{
		{ID: 7, Name: "Alice", Email: "alice@example.com", Department: "HR", Designation: "Lead", Salary: 5200, CreatedAt: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
	})
	require.NoError(t, err)

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, Header, rows[0])
	assert.Equal(t, []string{"7", "Alice", "alice@example.com", "HR", "Lead", "5200", "2024-03-01"}, rows[1])
}

func TestReadEmployeesFromExport(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteEmployees(&buf, []domain.Employee{
		{ID: 1, Name: "Alice", Department: "HR", Salary: 5000},
		{ID: 2, Name: "Bob", Department: "Engineering", Salary: 7000},
	}))

	got, skipped, err := ReadEmployees("employees.xlsx", &buf)
	require.NoError(t, err)
	assert.Empty(t, skipped)
	require.Len(t, got, 2)
	assert.Equal(t, 3, got[1].Row)
	assert.Equal(t, "Bob", got[1].Employee.Name)
	assert.Equal(t, "Engineering", got[1].Employee.Department)
	assert.InDelta(t, 7000, got[1].Employee.Salary, 0.001)
	assert.Zero(t, got[1].Employee.ID, "ids are assigned by the repository")
}

func workbook(t *testing.T, rows [][]any) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return &buf
}

func TestReadEmployeesSkipsBadRows(t *testing.T) {
	t.Parallel()

	buf := workbook(t, [][]any{
		{" NAME ", "Salary", "Department"},
		{"Carol", "1,200", "Ops"},
		{"", "300", "Ops"},
		{"Dave", "lots", "Ops"},
		{"", "", ""},
	})

	got, skipped, err := ReadEmployees("upload.xlsx", buf)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 2, got[0].Row)
	assert.Equal(t, "Carol", got[0].Employee.Name)
	assert.InDelta(t, 1200, got[0].Employee.Salary, 0.001)

	require.Len(t, skipped, 2)
	assert.Equal(t, 3, skipped[0].Row)
	assert.Equal(t, 4, skipped[1].Row)
	assert.True(t, strings.Contains(skipped[1].Error(), "invalid salary"))
}

func TestReadEmployeesRequiresNameColumn(t *testing.T) {
	t.Parallel()

	buf := workbook(t, [][]any{{"Email"}, {"x@example.com"}})
	_, _, err := ReadEmployees("upload.xlsx", buf)
	assert.ErrorIs(t, err, ErrMissingNameColumn)
}

func TestReadEmployeesRejectsGarbage(t *testing.T) {
	t.Parallel()

	_, _, err := ReadEmployees("upload.xlsx", strings.NewReader("not a zip"))
	assert.Error(t, err)
}

func TestReadRowsRejectsOversizedSheet(t *testing.T) {
	t.Parallel()

	rows := [][]any{{"Name"}}
	for i := range 4 {
		rows = append(rows, []any{"Employee " + strconv.Itoa(i)})
	}

	got, err := readRows("upload.xlsx", workbook(t, rows), 4)
	require.NoError(t, err)
	assert.Len(t, got, 5)

	_, err = readRows("upload.xlsx", workbook(t, rows), 3)
	assert.ErrorIs(t, err, ErrTooManyRows)
}

func TestReadRowsKeepsRowNumbersAcrossGaps(t *testing.T) {
	t.Parallel()

	buf := workbook(t, [][]any{
		{"Name"},
		{"Erin"},
		{},
		{"Frank"},
		{},
		{},
	})
	got, err := readRows("upload.xlsx", buf, maxImportRows)
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.Equal(t, []string{"Frank"}, got[3])
}
