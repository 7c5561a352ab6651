package adapthttp_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	adapthttp "ems/internal/adapter/http"
	"ems/internal/adapter/memory"
	"ems/internal/app"
	"ems/internal/domain"
	"ems/internal/photo"
	"ems/internal/spreadsheet"
)

// ---------------------------------------------------------------------------
// Mock repositories (function-fields pattern)
// ---------------------------------------------------------------------------

type mockSessionStore struct {
	createFn  func(ctx context.Context, identity string, role domain.Role, subjectID int64) (string, error)
	getFn     func(ctx context.Context, token string) (*domain.Session, error)
	destroyFn func(ctx context.Context, token string) error
}

func (m *mockSessionStore) Create(ctx context.Context, identity string, role domain.Role, subjectID int64) (string, error) {
	if m.createFn != nil {
		return m.createFn(ctx, identity, role, subjectID)
	}
	return "token", nil
}

func (m *mockSessionStore) Get(ctx context.Context, token string) (*domain.Session, error) {
	if m.getFn != nil {
		return m.getFn(ctx, token)
	}
	return nil, nil
}

func (m *mockSessionStore) Destroy(ctx context.Context, token string) error {
	if m.destroyFn != nil {
		return m.destroyFn(ctx, token)
	}
	return nil
}

type failingUserRepo struct {
	domain.UserRepository
}

func (failingUserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return nil, errors.New("directory offline")
}

// fullDiskRepo accepts room employees and then fails every insert.
type fullDiskRepo struct {
	*memory.DB
	room int
}

func (r *fullDiskRepo) AddEmployee(ctx context.Context, e domain.Employee) (int64, error) {
	if r.room == 0 {
		return 0, errors.New("disk full")
	}
	r.room--
	return r.DB.AddEmployee(ctx, e)
}

// ---------------------------------------------------------------------------
// Test-server helper
// ---------------------------------------------------------------------------

const testPassword = "correct-horse"

type fixture struct {
	ts      *httptest.Server
	handler http.Handler
	db      *memory.DB
	photos  *photo.Store
}

type fixtureOpts struct {
	sessions  domain.SessionStore
	users     domain.UserRepository
	employees func(*memory.DB) domain.EmployeeRepository
}

func newFixture(t *testing.T, opts fixtureOpts) *fixture {
	t.Helper()

	db := memory.New()
	if opts.sessions == nil {
		opts.sessions = memory.NewSessionRepo(time.Hour)
	}
	seedAuth := app.NewAuthService(db, opts.sessions)
	if opts.users == nil {
		opts.users = db
	}

	ctx := context.Background()
	aliceID, err := db.AddEmployee(ctx, domain.Employee{Name: "Alice", Department: "HR", Email: "alice@example.com", Salary: 5000})
	if err != nil {
		t.Fatal(err)
	}
	eveID, _ := db.AddEmployee(ctx, domain.Employee{Name: "Eve", Department: "Engineering", Salary: 4000})

	for _, u := range []struct {
		name string
		role domain.Role
		emp  int64
	}{
		{"alice", domain.RoleHR, aliceID},
		{"eve", domain.RoleEmployee, eveID},
		{"mona", domain.RoleManager, 0},
		{"root", domain.RoleAdmin, 0},
	} {
		if _, err := seedAuth.CreateUser(ctx, u.name, testPassword, u.role, u.emp); err != nil {
			t.Fatal(err)
		}
	}

	photos, err := photo.NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	var repo domain.EmployeeRepository = db
	if opts.employees != nil {
		repo = opts.employees(db)
	}
	employees := app.NewEmployeeService(repo)
	srv, err := adapthttp.New(adapthttp.Options{
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		Auth:       app.NewAuthService(opts.users, opts.sessions),
		Guard:      app.NewAccessGuard(opts.sessions),
		Employees:  employees,
		Charts:     app.NewChartsService(repo),
		Reports:    app.NewReportsService(employees),
		Photos:     photos,
		SessionTTL: time.Hour,
	})
	if err != nil {
		t.Fatal(err)
	}
	handler := srv.Handler()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return &fixture{ts: ts, handler: handler, db: db, photos: photos}
}

// client returns a cookie-keeping client that does not follow redirects.
func (f *fixture) client(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func (f *fixture) login(t *testing.T, username string) *http.Client {
	t.Helper()
	c := f.client(t)
	resp, err := c.PostForm(f.ts.URL+"/login", url.Values{"username": {username}, "password": {testPassword}})
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("login %s: expected 303, got %d", username, resp.StatusCode)
	}
	return c
}

func do(t *testing.T, c *http.Client, method, target string, body io.Reader, contentType string) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(method, target, body)
	if err != nil {
		t.Fatal(err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := c.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close() //nolint:errcheck
	b, _ := io.ReadAll(resp.Body)
	return resp, string(b)
}

func multipartBody(t *testing.T, fields map[string]string, fileField, fileName string, file []byte) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		_ = mw.WriteField(k, v)
	}
	if fileField != "" {
		fw, err := mw.CreateFormFile(fileField, fileName)
		if err != nil {
			t.Fatal(err)
		}
		_, _ = fw.Write(file)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, mw.FormDataContentType()
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(1, 1, color.RGBA{R: 200, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestHealthEndpoint(t *testing.T) {
	f := newFixture(t, fixtureOpts{})

	resp, err := http.Get(f.ts.URL + "/health")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["ok"] != true {
		t.Fatalf("expected ok=true, got %v", body["ok"])
	}
	if resp.Header.Get("X-Request-Id") == "" {
		t.Error("expected a request id header")
	}
}

func TestHomeIsPublic(t *testing.T) {
	f := newFixture(t, fixtureOpts{})
	resp, body := do(t, f.client(t), http.MethodGet, f.ts.URL+"/", nil, "")
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, "Employee Management System") {
		t.Fatalf("unexpected home response %d", resp.StatusCode)
	}
}

func TestUnauthenticatedRedirectsToLogin(t *testing.T) {
	f := newFixture(t, fixtureOpts{})
	c := f.client(t)

	for _, path := range []string{"/dashboard", "/view", "/export", "/salary_chart", "/my_profile", "/edit/1", "/delete/1"} {
		resp, _ := do(t, c, http.MethodGet, f.ts.URL+path, nil, "")
		if resp.StatusCode != http.StatusSeeOther {
			t.Errorf("%s: expected 303, got %d", path, resp.StatusCode)
			continue
		}
		if loc := resp.Header.Get("Location"); loc != "/login" {
			t.Errorf("%s: expected redirect to /login, got %q", path, loc)
		}
	}
}

func TestForgedCookieIsUnauthenticated(t *testing.T) {
	f := newFixture(t, fixtureOpts{})
	req, _ := http.NewRequest(http.MethodGet, f.ts.URL+"/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: "session", Value: "forged"})
	resp, err := f.client(t).Do(req)
	if err != nil {
		t.Fatal(err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", resp.StatusCode)
	}
}

func TestLoginDenialsAreIndistinguishable(t *testing.T) {
	f := newFixture(t, fixtureOpts{})

	wrong, wrongBody := do(t, f.client(t), http.MethodPost, f.ts.URL+"/login",
		strings.NewReader(url.Values{"username": {"alice"}, "password": {"wrongpass"}}.Encode()),
		"application/x-www-form-urlencoded")
	unknown, unknownBody := do(t, f.client(t), http.MethodPost, f.ts.URL+"/login",
		strings.NewReader(url.Values{"username": {"nobody"}, "password": {"x"}}.Encode()),
		"application/x-www-form-urlencoded")

	for _, resp := range []*http.Response{wrong, unknown} {
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", resp.StatusCode)
		}
		if len(resp.Cookies()) != 0 {
			t.Error("a denied login must not set a cookie")
		}
	}
	if !strings.Contains(wrongBody, "Invalid Login") || wrongBody != unknownBody {
		t.Error("denial pages must be identical and say Invalid Login")
	}
}

func TestLoginAndLogout(t *testing.T) {
	f := newFixture(t, fixtureOpts{})
	c := f.login(t, "alice")

	resp, body := do(t, c, http.MethodGet, f.ts.URL+"/dashboard", nil, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if !strings.Contains(body, "alice (HR)") {
		t.Error("expected dashboard to show the logged in identity")
	}

	resp, _ = do(t, c, http.MethodPost, f.ts.URL+"/logout", nil, "")
	if resp.StatusCode != http.StatusSeeOther || resp.Header.Get("Location") != "/" {
		t.Fatalf("unexpected logout response %d %q", resp.StatusCode, resp.Header.Get("Location"))
	}

	resp, _ = do(t, c, http.MethodGet, f.ts.URL+"/dashboard", nil, "")
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("expected redirect after logout, got %d", resp.StatusCode)
	}
}

func TestRoleMatrix(t *testing.T) {
	f := newFixture(t, fixtureOpts{})
	clients := map[string]*http.Client{
		"eve":   f.login(t, "eve"),
		"alice": f.login(t, "alice"),
		"mona":  f.login(t, "mona"),
		"root":  f.login(t, "root"),
	}

	tests := []struct {
		path    string
		allowed map[string]bool
	}{
		{"/dashboard", map[string]bool{"eve": true, "alice": true, "mona": true, "root": true}},
		{"/view", map[string]bool{"alice": true, "mona": true, "root": true}},
		{"/salary_chart", map[string]bool{"alice": true, "mona": true, "root": true}},
		{"/export", map[string]bool{"alice": true, "root": true}},
		{"/edit/1", map[string]bool{"alice": true, "root": true}},
		{"/my_profile", map[string]bool{"eve": true, "alice": true, "root": true}},
	}
	for _, tc := range tests {
		for user, c := range clients {
			want := http.StatusForbidden
			if tc.allowed[user] {
				want = http.StatusOK
			}
			if tc.path == "/my_profile" && user == "root" {
				// Admitted, but no employee is linked to this login.
				want = http.StatusNotFound
			}

			resp, body := do(t, c, http.MethodGet, f.ts.URL+tc.path, nil, "")
			if resp.StatusCode != want {
				t.Errorf("%s %s: expected %d, got %d", user, tc.path, want, resp.StatusCode)
			}
			if want == http.StatusForbidden && strings.TrimSpace(body) != "Access Denied" {
				t.Errorf("%s %s: expected Access Denied, got %q", user, tc.path, body)
			}
		}
	}
}

func TestProfileShowsOwnRecord(t *testing.T) {
	f := newFixture(t, fixtureOpts{})
	resp, body := do(t, f.login(t, "eve"), http.MethodGet, f.ts.URL+"/my_profile", nil, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if !strings.Contains(body, "Eve") || strings.Contains(body, "Alice") {
		t.Error("profile must show only the linked employee")
	}
}

func TestDeleteOnlyRunsForAdmin(t *testing.T) {
	f := newFixture(t, fixtureOpts{})
	ctx := context.Background()

	resp, _ := do(t, f.login(t, "alice"), http.MethodPost, f.ts.URL+"/delete/2", nil, "")
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for HR, got %d", resp.StatusCode)
	}
	if e, _ := f.db.GetEmployee(ctx, 2); e == nil {
		t.Fatal("a forbidden delete must not remove the row")
	}

	resp, _ = do(t, f.login(t, "root"), http.MethodPost, f.ts.URL+"/delete/2", nil, "")
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("expected 303 for Admin, got %d", resp.StatusCode)
	}
	if e, _ := f.db.GetEmployee(ctx, 2); e != nil {
		t.Fatal("expected row to be deleted")
	}

	resp, _ = do(t, f.login(t, "root"), http.MethodGet, f.ts.URL+"/delete/2", nil, "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for a missing row, got %d", resp.StatusCode)
	}
}

func TestAddWithPhotoAndServeUpload(t *testing.T) {
	f := newFixture(t, fixtureOpts{})
	c := f.login(t, "alice")

	body, ct := multipartBody(t, map[string]string{
		"name": "Carol", "email": "carol@example.com", "department": "Sales", "salary": "3,500",
	}, "photo", "carol.png", pngBytes(t, 600, 300))
	resp, _ := do(t, c, http.MethodPost, f.ts.URL+"/add", body, ct)
	if resp.StatusCode != http.StatusSeeOther || resp.Header.Get("Location") != "/view?flash=added" {
		t.Fatalf("unexpected add response %d %q", resp.StatusCode, resp.Header.Get("Location"))
	}

	list, _ := f.db.SearchEmployees(context.Background(), "carol")
	if len(list) != 1 || list[0].Salary != 3500 || list[0].Photo == "" {
		t.Fatalf("unexpected stored rows %+v", list)
	}

	resp, img := do(t, f.login(t, "eve"), http.MethodGet, f.ts.URL+"/uploads/"+list[0].Photo, nil, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected upload to be served, got %d", resp.StatusCode)
	}
	cfg, err := png.DecodeConfig(strings.NewReader(img))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Width != photo.MaxEdge {
		t.Errorf("expected resized width %d, got %d", photo.MaxEdge, cfg.Width)
	}

	resp, _ = do(t, f.client(t), http.MethodGet, f.ts.URL+"/uploads/"+list[0].Photo, nil, "")
	if resp.StatusCode != http.StatusSeeOther {
		t.Errorf("uploads must be guarded, got %d", resp.StatusCode)
	}
	resp, _ = do(t, c, http.MethodGet, f.ts.URL+"/uploads/", nil, "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("upload directory must not be listed, got %d", resp.StatusCode)
	}
}

func TestAddValidation(t *testing.T) {
	f := newFixture(t, fixtureOpts{})
	c := f.login(t, "root")

	tests := []struct {
		name   string
		fields url.Values
		want   int
	}{
		{"missing name", url.Values{"email": {"x@example.com"}}, http.StatusBadRequest},
		{"bad salary", url.Values{"name": {"X"}, "salary": {"lots"}}, http.StatusBadRequest},
		{"bad email", url.Values{"name": {"X"}, "email": {"nope"}}, http.StatusBadRequest},
		{"urlencoded ok", url.Values{"name": {"Xavier"}}, http.StatusSeeOther},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp, _ := do(t, c, http.MethodPost, f.ts.URL+"/add",
				strings.NewReader(tc.fields.Encode()), "application/x-www-form-urlencoded")
			if resp.StatusCode != tc.want {
				t.Errorf("expected %d, got %d", tc.want, resp.StatusCode)
			}
		})
	}

	body, ct := multipartBody(t, map[string]string{"name": "Y"}, "photo", "y.txt", []byte("not an image"))
	resp, _ := do(t, c, http.MethodPost, f.ts.URL+"/add", body, ct)
	if resp.StatusCode != http.StatusUnsupportedMediaType {
		t.Errorf("expected 415 for a non-image photo, got %d", resp.StatusCode)
	}
}

func TestEditAndUpdate(t *testing.T) {
	f := newFixture(t, fixtureOpts{})
	c := f.login(t, "alice")

	resp, body := do(t, c, http.MethodGet, f.ts.URL+"/edit/2", nil, "")
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, `value="Eve"`) {
		t.Fatalf("unexpected edit form %d", resp.StatusCode)
	}

	form := url.Values{"name": {"Eve"}, "department": {"Platform"}, "designation": {"SRE"}, "salary": {"4200"}}
	resp, _ = do(t, c, http.MethodPost, f.ts.URL+"/update/2",
		strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", resp.StatusCode)
	}
	e, _ := f.db.GetEmployee(context.Background(), 2)
	if e.Department != "Platform" || e.Salary != 4200 {
		t.Errorf("unexpected row after update %+v", e)
	}

	resp, _ = do(t, c, http.MethodPost, f.ts.URL+"/update/99",
		strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
	resp, _ = do(t, c, http.MethodGet, f.ts.URL+"/edit/abc", nil, "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 for a bad id, got %d", resp.StatusCode)
	}
}

func TestSearch(t *testing.T) {
	f := newFixture(t, fixtureOpts{})
	resp, body := do(t, f.login(t, "mona"), http.MethodPost, f.ts.URL+"/search",
		strings.NewReader(url.Values{"query": {"engin"}}.Encode()), "application/x-www-form-urlencoded")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if !strings.Contains(body, "Eve") || strings.Contains(body, "alice@example.com") {
		t.Error("expected only Eve in results")
	}
}

func TestExportImportAndChart(t *testing.T) {
	f := newFixture(t, fixtureOpts{})
	c := f.login(t, "root")

	resp, xlsx := do(t, c, http.MethodGet, f.ts.URL+"/export", nil, "")
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != spreadsheet.ContentType {
		t.Fatalf("unexpected export response %d %q", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
	wb, err := excelize.OpenReader(strings.NewReader(xlsx))
	if err != nil {
		t.Fatal(err)
	}
	rows, _ := wb.GetRows(spreadsheet.SheetName)
	if len(rows) != 3 {
		t.Errorf("expected header and 2 rows, got %d", len(rows))
	}

	body, ct := multipartBody(t, nil, "file", "employees.xlsx", []byte(xlsx))
	resp, page := do(t, c, http.MethodPost, f.ts.URL+"/import", body, ct)
	if resp.StatusCode != http.StatusOK || !strings.Contains(page, "2 employees imported") {
		t.Fatalf("unexpected import response %d", resp.StatusCode)
	}
	all, _ := f.db.ListEmployees(context.Background())
	if len(all) != 4 {
		t.Errorf("expected 4 employees after import, got %d", len(all))
	}

	body, ct = multipartBody(t, nil, "file", "employees.csv", []byte("a,b"))
	resp, _ = do(t, c, http.MethodPost, f.ts.URL+"/import", body, ct)
	if resp.StatusCode != http.StatusUnsupportedMediaType {
		t.Errorf("expected 415 for csv, got %d", resp.StatusCode)
	}

	resp, chart := do(t, c, http.MethodGet, f.ts.URL+"/salary_chart", nil, "")
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "image/png" {
		t.Fatalf("unexpected chart response %d", resp.StatusCode)
	}
	if _, err := png.Decode(strings.NewReader(chart)); err != nil {
		t.Errorf("chart is not a PNG: %v", err)
	}
}

func TestImportStorageFailureReportsSavedRows(t *testing.T) {
	f := newFixture(t, fixtureOpts{employees: func(db *memory.DB) domain.EmployeeRepository {
		return &fullDiskRepo{DB: db, room: 1}
	}})
	c := f.login(t, "alice")

	var xlsx bytes.Buffer
	if err := spreadsheet.WriteEmployees(&xlsx, []domain.Employee{{Name: "Gina"}, {Name: "Hank"}, {Name: "Ivy"}}); err != nil {
		t.Fatal(err)
	}
	body, ct := multipartBody(t, nil, "file", "employees.xlsx", xlsx.Bytes())
	resp, page := do(t, c, http.MethodPost, f.ts.URL+"/import", body, ct)
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.StatusCode)
	}
	if !strings.Contains(page, "after 1 employees were saved") {
		t.Errorf("expected the saved count in the page, got %q", page)
	}
	all, _ := f.db.ListEmployees(context.Background())
	if len(all) != 3 {
		t.Errorf("expected the first row kept, got %d employees", len(all))
	}
}

func TestImportBodyTooLarge(t *testing.T) {
	f := newFixture(t, fixtureOpts{})
	c := f.login(t, "alice")
	target, _ := url.Parse(f.ts.URL + "/import")

	body, ct := multipartBody(t, nil, "file", "employees.xlsx", bytes.Repeat([]byte{'x'}, 11<<20))
	req := httptest.NewRequest(http.MethodPost, "/import", body)
	req.Header.Set("Content-Type", ct)
	for _, cookie := range c.Jar.Cookies(target) {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", rec.Code)
	}
	all, _ := f.db.ListEmployees(context.Background())
	if len(all) != 2 {
		t.Errorf("expected no import, got %d employees", len(all))
	}
}

func TestSessionStoreFailureIsServiceUnavailable(t *testing.T) {
	store := &mockSessionStore{
		getFn: func(ctx context.Context, token string) (*domain.Session, error) {
			return nil, errors.New("store offline")
		},
	}
	f := newFixture(t, fixtureOpts{sessions: store})

	req, _ := http.NewRequest(http.MethodGet, f.ts.URL+"/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: "session", Value: "anything"})
	resp, err := f.client(t).Do(req)
	if err != nil {
		t.Fatal(err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}
}

func TestMissingRoleIsForbidden(t *testing.T) {
	store := &mockSessionStore{
		getFn: func(ctx context.Context, token string) (*domain.Session, error) {
			return &domain.Session{Token: token, Identity: "ghost"}, nil
		},
	}
	f := newFixture(t, fixtureOpts{sessions: store})

	req, _ := http.NewRequest(http.MethodGet, f.ts.URL+"/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: "session", Value: "t"})
	resp, err := f.client(t).Do(req)
	if err != nil {
		t.Fatal(err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
}

func TestDirectoryFailureOnLogin(t *testing.T) {
	f := newFixture(t, fixtureOpts{users: failingUserRepo{}})
	resp, body := do(t, f.client(t), http.MethodPost, f.ts.URL+"/login",
		strings.NewReader(url.Values{"username": {"alice"}, "password": {testPassword}}.Encode()),
		"application/x-www-form-urlencoded")
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}
	if strings.Contains(body, "Invalid Login") {
		t.Error("an outage must not look like bad credentials")
	}
}

func TestSecurityHeaders(t *testing.T) {
	f := newFixture(t, fixtureOpts{})
	resp, _ := do(t, f.client(t), http.MethodGet, f.ts.URL+"/login", nil, "")
	for h, want := range map[string]string{
		"Cache-Control":          "no-store",
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
	} {
		if got := resp.Header.Get(h); got != want {
			t.Errorf("%s: expected %q, got %q", h, want, got)
		}
	}
}

func TestNewRequiresServices(t *testing.T) {
	if _, err := adapthttp.New(adapthttp.Options{}); err == nil {
		t.Fatal("expected an error for missing services")
	}
}
