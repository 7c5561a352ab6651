package spreadsheet

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"

	"ems/internal/domain"
)

const maxImportRows = 10000

var (
	// ErrNoWorksheet is returned when the workbook has no readable sheet.
	ErrNoWorksheet = errors.New("no worksheet found")
	// ErrEmptyWorksheet is returned when the first sheet has no rows.
	ErrEmptyWorksheet = errors.New("worksheet is empty")
	// ErrMissingNameColumn is returned when the header row has no Name column.
	ErrMissingNameColumn = errors.New("header row has no name column")
	// ErrTooManyRows is returned when a sheet has more data rows than an
	// import accepts.
	ErrTooManyRows = fmt.Errorf("worksheet has more than %d data rows", maxImportRows)
)

// RowError describes a data row that could not be imported. Row is 1-based
// as displayed by spreadsheet programs.
type RowError struct {
	Row    int
	Reason string
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %s", e.Row, e.Reason)
}

// Record is an employee parsed from a sheet together with its 1-based row.
type Record struct {
	Row      int
	Employee domain.Employee
}

// ReadEmployees parses an .xlsx or legacy .xls workbook. Columns are matched
// by header name, case-insensitively; an ID column is ignored. Rows that
// cannot be parsed are reported and skipped.
func ReadEmployees(filename string, r io.Reader) ([]Record, []RowError, error) {
	rows, err := readRows(filename, r, maxImportRows)
	if err != nil {
		return nil, nil, err
	}

	cols := map[string]int{}
	for i, h := range rows[0] {
		cols[normalizeHeader(h)] = i
	}
	nameIdx, ok := cols["name"]
	if !ok {
		return nil, nil, ErrMissingNameColumn
	}

	var (
		out     []Record
		skipped []RowError
	)
	for i, row := range rows[1:] {
		rowNum := i + 2
		if blank(row) {
			continue
		}
		e := domain.Employee{
			Name:        cellValue(row, nameIdx),
			Email:       cellValue(row, lookup(cols, "email")),
			Department:  cellValue(row, lookup(cols, "department")),
			Designation: cellValue(row, lookup(cols, "designation")),
		}
		if e.Name == "" {
			skipped = append(skipped, RowError{Row: rowNum, Reason: "name is required"})
			continue
		}
		if raw := cellValue(row, lookup(cols, "salary")); raw != "" {
			salary, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", ""), 64)
			if err != nil {
				skipped = append(skipped, RowError{Row: rowNum, Reason: fmt.Sprintf("invalid salary %q", raw)})
				continue
			}
			e.Salary = salary
		}
		out = append(out, Record{Row: rowNum, Employee: e})
	}
	return out, skipped, nil
}

// readRows returns the first sheet's rows, header included. A sheet with
// more than limit data rows is rejected before its cells are collected.
func readRows(filename string, r io.Reader, limit int) ([][]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var rows [][]string
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xls":
		workbook, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
		if err != nil {
			return nil, err
		}
		sheet := workbook.GetSheet(0)
		if sheet == nil {
			return nil, ErrNoWorksheet
		}
		// MaxRow is the last row index, so the sheet holds MaxRow+1 rows.
		n := int(sheet.MaxRow) + 1
		if n > limit+1 {
			return nil, ErrTooManyRows
		}
		rows = workbook.ReadAllCells(n)
	default:
		if rows, err = readXLSXRows(data, limit); err != nil {
			return nil, err
		}
	}
	if len(rows) == 0 {
		return nil, ErrEmptyWorksheet
	}
	return rows, nil
}

// readXLSXRows streams the first sheet. Blank rows between filled ones are
// kept so row numbers match the sheet; trailing blank rows are dropped.
func readXLSXRows(data []byte, limit int) ([][]string, error) {
	file, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()

	sheetName := file.GetSheetName(0)
	if sheetName == "" {
		return nil, ErrNoWorksheet
	}
	iter, err := file.Rows(sheetName)
	if err != nil {
		return nil, err
	}
	defer func() { _ = iter.Close() }()

	var (
		rows   [][]string
		filled int
		cur    int
	)
	for iter.Next() {
		cur++
		row, err := iter.Columns()
		if err != nil {
			return nil, err
		}
		if len(row) == 0 {
			continue
		}
		if cur > limit+1 {
			return nil, ErrTooManyRows
		}
		if gap := cur - filled - 1; gap > 0 {
			rows = append(rows, make([][]string, gap)...)
		}
		rows = append(rows, row)
		filled = cur
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}
	return rows, nil
}

func normalizeHeader(header string) string {
	return strings.ToLower(strings.TrimSpace(header))
}

func lookup(cols map[string]int, name string) int {
	if idx, ok := cols[name]; ok {
		return idx
	}
	return -1
}

func cellValue(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
