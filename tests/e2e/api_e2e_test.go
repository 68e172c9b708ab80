package e2e

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/healthportal/internal/db"
	"github.com/healthportal/internal/handler"
	"github.com/healthportal/internal/metrics"
	"github.com/healthportal/internal/router"
	"github.com/healthportal/internal/service"
	"github.com/healthportal/internal/session"
	"github.com/healthportal/internal/storage"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const baseURL = "http://portal.test"

type e2eSuite struct {
	handler  http.Handler
	admin    *localClient
	reporter *localClient
	location *db.Location
}

type localClient struct {
	handler http.Handler
	jar     http.CookieJar
}

type result struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newLocalClient(handler http.Handler) *localClient {
	jar, _ := cookiejar.New(nil)
	return &localClient{handler: handler, jar: jar}
}

func (c *localClient) Do(req *http.Request) *http.Response {
	for _, cookie := range c.jar.Cookies(req.URL) {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	c.handler.ServeHTTP(w, req)
	resp := w.Result()
	c.jar.SetCookies(req.URL, resp.Cookies())
	return resp
}

func (c *localClient) get(t *testing.T, path string, accept string) (*http.Response, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, baseURL+path, nil)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	resp := c.Do(req)
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, string(body)
}

func (c *localClient) postForm(t *testing.T, path string, form url.Values) (*http.Response, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, baseURL+path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	resp := c.Do(req)
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, string(body)
}

func decode(t *testing.T, body string) result {
	t.Helper()
	var r result
	if err := json.Unmarshal([]byte(body), &r); err != nil {
		t.Fatalf("failed to decode %q: %v", body, err)
	}
	return r
}

func TestE2E_ReportingLifecycle(t *testing.T) {
	suite := newE2ESuite(t)

	t.Run("public pages", suite.testPublicPages)
	t.Run("register and approve", suite.testRegisterAndApprove)
	t.Run("daily report", suite.testDailyReport)
	t.Run("dashboard", suite.testDashboard)
}

func newE2ESuite(t *testing.T) *e2eSuite {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:e2e-%d?mode=memory&cache=shared", time.Now().UnixNano())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}
	t.Cleanup(func() { _ = db.Close(gdb) })

	locations := service.NewLocationService(gdb)
	loc, err := locations.FindOrCreate(service.LocationRow{Province: "เชียงใหม่", District: "เมือง", SubDistrict: "ศรีภูมิ"})
	if err != nil {
		t.Fatalf("failed to seed location: %v", err)
	}
	if _, err := service.NewAuthService(gdb, locations).CreateAdmin("admin", "e2e-secret-1", "Admin", loc.ID); err != nil {
		t.Fatalf("failed to seed admin: %v", err)
	}

	uploadDir := t.TempDir()
	store, err := storage.NewFilesystem(uploadDir, "/uploads")
	if err != nil {
		t.Fatalf("failed to open storage: %v", err)
	}
	sessions, err := session.NewManager("e2e-session-secret", time.Hour, false)
	if err != nil {
		t.Fatalf("failed to create session manager: %v", err)
	}
	quiet := logrus.New()
	quiet.SetOutput(io.Discard)
	m := metrics.New(nil)

	api := handler.NewAPI(handler.Options{
		DB:              gdb,
		Sessions:        sessions,
		Store:           store,
		Logger:          quiet,
		Metrics:         m,
		UploadMaxBytes:  1 << 20,
		DefaultLanguage: "en",
	})
	engine := router.SetupRouter(api, router.Options{
		SessionSecret: "e2e-flash-secret",
		TemplateGlob:  "../../web/template/*.html",
		StaticDir:     "../../web/static",
		UploadDir:     uploadDir,
		UploadURLPath: "/uploads",
		Metrics:       m.Handler(),
		Logger:        quiet,
	})

	return &e2eSuite{
		handler:  engine,
		admin:    newLocalClient(engine),
		reporter: newLocalClient(engine),
		location: loc,
	}
}

func (s *e2eSuite) login(t *testing.T, client *localClient, username, password string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, baseURL+"/login", strings.NewReader(url.Values{
		"username": {username},
		"password": {password},
	}.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return client.Do(req)
}

func (s *e2eSuite) testPublicPages(t *testing.T) {
	anon := newLocalClient(s.handler)

	resp, body := anon.get(t, "/login?lang=th", "")
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, `lang="th"`) || !strings.Contains(body, "เข้าสู่ระบบ") {
		t.Fatalf("expected thai login page, got %d", resp.StatusCode)
	}

	resp, body = anon.get(t, "/register", "")
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, "เชียงใหม่") {
		t.Fatalf("expected registration page listing provinces, got %d", resp.StatusCode)
	}

	resp, _ = anon.get(t, "/dashboard", "")
	if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != "/login?next=%2Fdashboard" {
		t.Fatalf("expected redirect to login, got %d %q", resp.StatusCode, resp.Header.Get("Location"))
	}

	resp, body = anon.get(t, fmt.Sprintf("/api/locations/subdistricts?province=%s&district=%s",
		url.QueryEscape("เชียงใหม่"), url.QueryEscape("เมือง")), "application/json")
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, "ศรีภูมิ") {
		t.Fatalf("expected sub-district listing, got %d %s", resp.StatusCode, body)
	}

	resp, _ = anon.get(t, "/static/css/app.css", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected static asset, got %d", resp.StatusCode)
	}

	resp, body = anon.get(t, "/missing-page", "")
	if resp.StatusCode != http.StatusNotFound || !strings.Contains(body, "404") {
		t.Fatalf("expected rendered 404 page, got %d", resp.StatusCode)
	}
}

func (s *e2eSuite) testRegisterAndApprove(t *testing.T) {
	resp, body := s.reporter.postForm(t, "/register", url.Values{
		"username":        {"pcu-srip"},
		"password":        {"reporter-pass"},
		"confirmPassword": {"reporter-pass"},
		"name":            {"Reporter"},
		"orgName":         {"PCU Si Phum"},
		"role":            {"PCU"},
		"locationId":      {fmt.Sprint(s.location.ID)},
	})
	if resp.StatusCode != http.StatusOK || !decode(t, body).Success {
		t.Fatalf("register failed: %d %s", resp.StatusCode, body)
	}
	var created struct {
		ID uint `json:"id"`
	}
	if err := json.Unmarshal(decode(t, body).Data, &created); err != nil || created.ID == 0 {
		t.Fatalf("expected created id in %s", body)
	}

	if resp := s.login(t, s.reporter, "pcu-srip", "reporter-pass"); resp.StatusCode != http.StatusForbidden {
		t.Fatalf("pending account should not log in, got %d", resp.StatusCode)
	}

	if resp := s.login(t, s.admin, "admin", "e2e-secret-1"); resp.StatusCode != http.StatusFound {
		t.Fatalf("admin login failed: %d", resp.StatusCode)
	}
	resp, body = s.admin.get(t, "/admin/users", "")
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, "pcu-srip") {
		t.Fatalf("pending user should be listed, got %d", resp.StatusCode)
	}
	resp, body = s.admin.postForm(t, fmt.Sprintf("/admin/users/%d/approve", created.ID), url.Values{})
	if resp.StatusCode != http.StatusOK || !decode(t, body).Success {
		t.Fatalf("approve failed: %d %s", resp.StatusCode, body)
	}

	if resp := s.login(t, s.reporter, "pcu-srip", "reporter-pass"); resp.StatusCode != http.StatusFound {
		t.Fatalf("approved account should log in, got %d", resp.StatusCode)
	}
	if resp, _ := s.reporter.get(t, "/admin/users", ""); resp.StatusCode != http.StatusForbidden {
		t.Fatalf("pcu must not reach user approval, got %d", resp.StatusCode)
	}
}

func (s *e2eSuite) testDailyReport(t *testing.T) {
	resp, body := s.reporter.get(t, "/reports/inventory?date=2024-03-01", "")
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, `name="item_n95_mask"`) {
		t.Fatalf("expected inventory form, got %d", resp.StatusCode)
	}

	resp, body = s.reporter.postForm(t, "/reports/inventory", url.Values{
		"date":                 {"2024-03-01"},
		"item_n95_mask":        {"1,200"},
		"room_school_count":    {"2"},
		"room_school_capacity": {"60"},
	})
	if resp.StatusCode != http.StatusOK || !decode(t, body).Success {
		t.Fatalf("save failed: %d %s", resp.StatusCode, body)
	}

	resp, body = s.reporter.postForm(t, "/reports/inventory", url.Values{
		"date":          {"2024-03-01"},
		"item_n95_mask": {"-5"},
	})
	if resp.StatusCode != http.StatusBadRequest || decode(t, body).Success {
		t.Fatalf("negative counts must be rejected, got %d", resp.StatusCode)
	}

	resp, body = s.reporter.get(t, "/reports/inventory/data?date=2024-03-01", "application/json")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("data failed: %d %s", resp.StatusCode, body)
	}
	var data struct {
		Values map[string]string `json:"values"`
	}
	if err := json.Unmarshal(decode(t, body).Data, &data); err != nil {
		t.Fatalf("decode values: %v", err)
	}
	if data.Values["item_n95_mask"] != "1200" || data.Values["room_school_capacity"] != "60" {
		t.Fatalf("unexpected saved values %+v", data.Values)
	}

	resp, body = s.reporter.get(t, "/reports/inventory/history", "application/json")
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, "2024-03-01") {
		t.Fatalf("expected history to list the report date, got %s", body)
	}

	resp, body = s.reporter.postForm(t, "/reports/inventory/delete", url.Values{"date": {"2024-03-01"}})
	if resp.StatusCode != http.StatusOK || !decode(t, body).Success {
		t.Fatalf("delete failed: %d %s", resp.StatusCode, body)
	}
	resp, body = s.reporter.get(t, "/reports/inventory/history", "application/json")
	if strings.Contains(body, "2024-03-01") {
		t.Fatalf("history should be empty after delete, got %s", body)
	}

	resp, body = s.reporter.postForm(t, "/reports/incidents", url.Values{
		"date":                     {"2024-03-02"},
		"incident_assault_injured": {"3"},
	})
	if resp.StatusCode != http.StatusOK || !decode(t, body).Success {
		t.Fatalf("incident save failed: %d %s", resp.StatusCode, body)
	}
}

func (s *e2eSuite) testDashboard(t *testing.T) {
	resp, body := s.admin.get(t, "/dashboard?lang=en&from=2024-03-01&to=2024-03-31", "")
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, "Assault") {
		t.Fatalf("expected dashboard with incident panel, got %d", resp.StatusCode)
	}

	resp, body = s.admin.get(t, "/dashboard/export.xlsx?from=2024-03-01", "")
	if resp.StatusCode != http.StatusOK || !strings.HasPrefix(body, "PK") {
		t.Fatalf("expected xlsx archive, got %d", resp.StatusCode)
	}

	resp, body = s.admin.get(t, "/healthz", "")
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, "ok") {
		t.Fatalf("unexpected health response %d %s", resp.StatusCode, body)
	}

	logout := httptest.NewRequest(http.MethodPost, baseURL+"/logout", nil)
	if resp := s.admin.Do(logout); resp.StatusCode != http.StatusFound {
		t.Fatalf("logout should redirect, got %d", resp.StatusCode)
	}
	if resp, _ := s.admin.get(t, "/dashboard", ""); resp.StatusCode != http.StatusFound {
		t.Fatalf("dashboard should require login again, got %d", resp.StatusCode)
	}
}
