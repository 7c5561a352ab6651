package adapthttp

import (
	"embed"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"ems/internal/app"
	"ems/internal/domain"
	"ems/internal/photo"
)

//go:embed templates/*.html
var templateFS embed.FS

// Role sets per route, fixed at registration.
var (
	everyone     = domain.MustRoleSet(domain.RoleEmployee, domain.RoleHR, domain.RoleManager, domain.RoleAdmin)
	editors      = domain.MustRoleSet(domain.RoleHR, domain.RoleAdmin)
	viewers      = domain.MustRoleSet(domain.RoleHR, domain.RoleManager, domain.RoleAdmin)
	admins       = domain.MustRoleSet(domain.RoleAdmin)
	profileRoles = domain.MustRoleSet(domain.RoleEmployee, domain.RoleHR, domain.RoleAdmin)
)

// Options wires a Server to the application services.
type Options struct {
	Logger       *slog.Logger
	Auth         *app.AuthService
	Guard        *app.AccessGuard
	Employees    *app.EmployeeService
	Charts       *app.ChartsService
	Reports      *app.ReportsService
	Photos       *photo.Store
	OIDC         *OIDCConfig // nil disables SSO
	SessionTTL   time.Duration
	CookieSecure bool
}

// Server is the driving HTTP adapter that routes requests to application
// services.
type Server struct {
	logger       *slog.Logger
	auth         *app.AuthService
	access       *app.AccessGuard
	employees    *app.EmployeeService
	charts       *app.ChartsService
	reports      *app.ReportsService
	photos       *photo.Store
	oidc         *OIDCConfig
	sessionTTL   time.Duration
	cookieSecure bool
	pages        *template.Template
}

// New creates a Server wired to the given application services.
func New(opts Options) (*Server, error) {
	if opts.Auth == nil || opts.Guard == nil || opts.Employees == nil ||
		opts.Charts == nil || opts.Reports == nil || opts.Photos == nil {
		return nil, errors.New("adapthttp: every service except OIDC is required")
	}
	pages, err := template.New("").Funcs(templateFuncs).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		logger:       logger,
		auth:         opts.Auth,
		access:       opts.Guard,
		employees:    opts.Employees,
		charts:       opts.Charts,
		reports:      opts.Reports,
		photos:       opts.Photos,
		oidc:         opts.OIDC,
		sessionTTL:   opts.SessionTTL,
		cookieSecure: opts.CookieSecure,
		pages:        pages,
	}, nil
}

// Handler returns the root http.Handler for the application.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	mux.HandleFunc("GET /{$}", s.handleHome)
	mux.HandleFunc("GET /login", s.handleLoginForm)
	mux.HandleFunc("POST /login", s.handleLogin)
	mux.HandleFunc("GET /logout", s.handleLogout)
	mux.HandleFunc("POST /logout", s.handleLogout)
	if s.oidc != nil {
		mux.HandleFunc("GET /sso/login", s.handleSSOLogin)
		mux.HandleFunc("GET /sso/callback", s.handleSSOCallback)
	}

	mux.Handle("GET /dashboard", s.guard(everyone, s.handleDashboard))
	mux.Handle("POST /add", s.guard(editors, s.handleAdd))
	mux.Handle("GET /view", s.guard(viewers, s.handleView))
	mux.Handle("POST /search", s.guard(viewers, s.handleSearch))
	mux.Handle("GET /delete/{id}", s.guard(admins, s.handleDelete))
	mux.Handle("POST /delete/{id}", s.guard(admins, s.handleDelete))
	mux.Handle("GET /edit/{id}", s.guard(editors, s.handleEdit))
	mux.Handle("POST /update/{id}", s.guard(editors, s.handleUpdate))
	mux.Handle("GET /export", s.guard(editors, s.handleExport))
	mux.Handle("POST /import", s.guard(editors, s.handleImport))
	mux.Handle("GET /salary_chart", s.guard(viewers, s.handleSalaryChart))
	mux.Handle("GET /my_profile", s.guard(profileRoles, s.handleProfile))

	uploads := http.StripPrefix("/uploads/", http.FileServer(noListing{http.Dir(s.photos.Dir())}))
	mux.Handle("GET /uploads/", s.guard(everyone, uploads.ServeHTTP))

	return s.loggingMiddleware(withSecurityHeaders(withNoCache(mux)))
}
