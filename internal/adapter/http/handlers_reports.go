package adapthttp

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"ems/internal/app"
	"ems/internal/spreadsheet"
)

const maxImportBytes = 10 << 20

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := s.reports.Export(r.Context(), &buf); err != nil {
		s.serverError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", spreadsheet.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="employees.xlsx"`)
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, formStatus(err), err)
		return
	}
	defer file.Close() //nolint:errcheck

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if ext != ".xlsx" && ext != ".xls" {
		http.Error(w, "expected an .xlsx or .xls file", http.StatusUnsupportedMediaType)
		return
	}

	res, err := s.reports.Import(r.Context(), header.Filename, file)
	switch {
	case err == nil:
	case errors.Is(err, app.ErrInvalidEmployee):
		writeError(w, http.StatusBadRequest, err)
		return
	case res != nil:
		// rows added before the failure stay stored
		s.logger.ErrorContext(r.Context(), "import stopped",
			slog.Int("imported", res.Imported), slog.Any("error", err))
		s.render(w, r, http.StatusInternalServerError, "import.html", page{
			Title: "Import",
			Error: fmt.Sprintf("Import stopped by a storage error after %d employees were saved.", res.Imported),
			Data:  res,
		})
		return
	default:
		s.serverError(w, r, err)
		return
	}

	s.logger.InfoContext(r.Context(), "employees imported",
		slog.String("by", sessionFromContext(r).Identity),
		slog.Int("imported", res.Imported),
		slog.Int("skipped", len(res.Skipped)))
	s.render(w, r, http.StatusOK, "import.html", page{Title: "Import", Flash: flashMessages["imported"], Data: res})
}
