package adapthttp

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"

	"ems/internal/domain"
)

const sessionCookie = "session"

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	http.Error(w, err.Error(), status)
}

// serverError logs err and answers with a generic 500.
func (s *Server) serverError(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.ErrorContext(r.Context(), "request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func sessionToken(r *http.Request) string {
	c, err := r.Cookie(sessionCookie)
	if err != nil {
		return ""
	}
	return c.Value
}

func (s *Server) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(s.sessionTTL.Seconds()),
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

// page is the data every template receives.
type page struct {
	Title   string
	Session *domain.Session
	Flash   string
	Error   string
	SSO     bool
	Data    any
}

var templateFuncs = template.FuncMap{
	"canEdit":   func(s *domain.Session) bool { return s != nil && editors.Contains(s.Role) },
	"canView":   func(s *domain.Session) bool { return s != nil && viewers.Contains(s.Role) },
	"canDelete": func(s *domain.Session) bool { return s != nil && admins.Contains(s.Role) },
	"hasProfile": func(s *domain.Session) bool {
		return s != nil && profileRoles.Contains(s.Role)
	},
	"money":         func(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) },
	"blankEmployee": func() domain.Employee { return domain.Employee{} },
}

// render executes the named template into a buffer first so a template
// error never leaves a half-written page.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, p page) {
	if p.Session == nil {
		p.Session = sessionFromContext(r)
	}
	p.SSO = s.oidc != nil
	var buf bytes.Buffer
	if err := s.pages.ExecuteTemplate(&buf, name, p); err != nil {
		s.serverError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

var flashMessages = map[string]string{
	"added":    "Employee added.",
	"updated":  "Employee updated.",
	"deleted":  "Employee deleted.",
	"imported": "Import finished.",
}

func flashFrom(r *http.Request) string {
	return flashMessages[r.URL.Query().Get("flash")]
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", r.PathValue("id"))
	}
	return id, nil
}

// employeeForm reads the employee fields of a submitted form.
func employeeForm(r *http.Request) (domain.Employee, error) {
	e := domain.Employee{
		Name:        r.FormValue("name"),
		Email:       r.FormValue("email"),
		Department:  r.FormValue("department"),
		Designation: r.FormValue("designation"),
	}
	if v := strings.TrimSpace(r.FormValue("salary")); v != "" {
		salary, err := strconv.ParseFloat(strings.ReplaceAll(v, ",", ""), 64)
		if err != nil {
			return e, fmt.Errorf("invalid salary %q", v)
		}
		e.Salary = salary
	}
	return e, nil
}

// noListing serves files but never directory indexes.
type noListing struct {
	fs http.FileSystem
}

func (n noListing) Open(name string) (http.File, error) {
	f, err := n.fs.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if info.IsDir() {
		_ = f.Close()
		return nil, os.ErrNotExist
	}
	return f, nil
}

// formStatus maps a form parsing error to a response status.
func formStatus(err error) int {
	var tooBig *http.MaxBytesError
	if errors.As(err, &tooBig) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}

func isMissingFile(err error) bool {
	return errors.Is(err, http.ErrMissingFile)
}
