package adapthttp

import (
	"errors"
	"log/slog"
	"net/http"

	"ems/internal/app"
	"ems/internal/domain"
	"ems/internal/photo"
)

// maxFormBytes bounds a multipart employee form, photo included.
const maxFormBytes = photo.MaxUploadBytes + 1<<20

type employeeList struct {
	Query     string
	Employees []domain.Employee
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	summary, err := s.employees.Summarize(r.Context())
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "dashboard.html", page{Title: "Dashboard", Flash: flashFrom(r), Data: summary})
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	list, err := s.employees.List(r.Context())
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "employees.html", page{
		Title: "Employees",
		Flash: flashFrom(r),
		Data:  employeeList{Employees: list},
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.PostFormValue("query")
	list, err := s.employees.Search(r.Context(), query)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "employees.html", page{
		Title: "Search results",
		Data:  employeeList{Query: query, Employees: list},
	})
}

func (s *Server) handleAdd(w http.ResponseWriter, r *http.Request) {
	e, ok := s.readEmployeeForm(w, r)
	if !ok {
		return
	}
	if _, err := s.employees.Add(r.Context(), e); err != nil {
		s.discardPhoto(r, e.Photo)
		s.employeeError(w, r, err)
		return
	}
	s.logger.InfoContext(r.Context(), "employee added",
		slog.String("by", sessionFromContext(r).Identity), slog.String("name", e.Name))
	http.Redirect(w, r, "/view?flash=added", http.StatusSeeOther)
}

func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	e, err := s.employees.Get(r.Context(), id)
	if err != nil {
		s.employeeError(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "edit.html", page{Title: "Edit " + e.Name, Data: e})
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	e, ok := s.readEmployeeForm(w, r)
	if !ok {
		return
	}

	var previous string
	if e.Photo != "" {
		if current, err := s.employees.Get(r.Context(), id); err == nil {
			previous = current.Photo
		}
	}
	if _, err := s.employees.Update(r.Context(), id, e); err != nil {
		s.discardPhoto(r, e.Photo)
		s.employeeError(w, r, err)
		return
	}
	s.discardPhoto(r, previous)

	s.logger.InfoContext(r.Context(), "employee updated",
		slog.String("by", sessionFromContext(r).Identity), slog.Int64("id", id))
	http.Redirect(w, r, "/view?flash=updated", http.StatusSeeOther)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	removed, err := s.employees.Delete(r.Context(), id)
	if err != nil {
		s.employeeError(w, r, err)
		return
	}
	s.discardPhoto(r, removed.Photo)

	s.logger.InfoContext(r.Context(), "employee deleted",
		slog.String("by", sessionFromContext(r).Identity), slog.Int64("id", id))
	http.Redirect(w, r, "/view?flash=deleted", http.StatusSeeOther)
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	e, err := s.employees.Profile(r.Context(), sessionFromContext(r))
	if errors.Is(err, app.ErrNoProfile) {
		s.render(w, r, http.StatusNotFound, "profile.html", page{Title: "My profile", Error: "No employee record is linked to this login."})
		return
	}
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "profile.html", page{Title: "My profile", Data: e})
}

// readEmployeeForm parses an employee form, storing an attached photo. It
// answers the request itself and reports false on failure.
func (s *Server) readEmployeeForm(w http.ResponseWriter, r *http.Request) (domain.Employee, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseMultipartForm(maxFormBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		writeError(w, formStatus(err), err)
		return domain.Employee{}, false
	}
	e, err := employeeForm(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return e, false
	}

	file, _, err := r.FormFile("photo")
	switch {
	case isMissingFile(err), errors.Is(err, http.ErrNotMultipart):
		return e, true
	case err != nil:
		writeError(w, http.StatusBadRequest, err)
		return e, false
	}
	defer file.Close() //nolint:errcheck

	name, err := s.photos.Save(file)
	switch {
	case errors.Is(err, photo.ErrTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, err)
		return e, false
	case errors.Is(err, photo.ErrUnsupported):
		writeError(w, http.StatusUnsupportedMediaType, err)
		return e, false
	case err != nil:
		s.serverError(w, r, err)
		return e, false
	}
	e.Photo = name
	return e, true
}

func (s *Server) discardPhoto(r *http.Request, name string) {
	if name == "" {
		return
	}
	if err := s.photos.Remove(name); err != nil {
		s.logger.WarnContext(r.Context(), "photo cleanup failed", slog.String("photo", name), slog.Any("error", err))
	}
}

func (s *Server) employeeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, app.ErrEmployeeNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, app.ErrInvalidEmployee):
		writeError(w, http.StatusBadRequest, err)
	default:
		s.serverError(w, r, err)
	}
}
