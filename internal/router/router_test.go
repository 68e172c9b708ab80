package router

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/healthportal/internal/db"
	"github.com/healthportal/internal/handler"
	"github.com/healthportal/internal/metrics"
	"github.com/healthportal/internal/session"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupRouterForTest(t *testing.T, uploadDir string, origins ...string) (*gin.Engine, *metrics.Metrics) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:router-%d?mode=memory&cache=shared", time.Now().UnixNano())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	t.Cleanup(func() { _ = db.Close(gdb) })

	sessionManager, err := session.NewManager("router-test-secret", time.Hour, false)
	if err != nil {
		t.Fatalf("NewManager returned error: %v", err)
	}
	quiet := logrus.New()
	quiet.SetOutput(io.Discard)
	m := metrics.New(nil)

	api := handler.NewAPI(handler.Options{DB: gdb, Sessions: sessionManager, Logger: quiet, Metrics: m, LoginAttemptsPerMinute: 1})
	r := SetupRouter(api, Options{
		SessionSecret: "router-test-flash",
		TemplateGlob:  "../../web/template/*.html",
		UploadDir:     uploadDir,
		UploadURLPath: "/uploads",
		Metrics:       m.Handler(),
		Logger:        quiet,

		CORSAllowedOrigins: origins,
	})
	return r, m
}

func TestSetupRouterServesUploads(t *testing.T) {
	uploadDir := t.TempDir()
	fileContent := []byte("%PDF-1.4 test")
	if err := os.MkdirAll(filepath.Join(uploadDir, "pheoc"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(uploadDir, "pheoc", "report.pdf"), fileContent, 0o644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}

	r, _ := setupRouterForTest(t, uploadDir)

	req := httptest.NewRequest(http.MethodGet, "/uploads/pheoc/report.pdf", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	if rr.Body.String() != string(fileContent) {
		t.Fatalf("unexpected body, got %q", rr.Body.String())
	}
}

func TestSetupRouterOperationalEndpoints(t *testing.T) {
	r, m := setupRouterForTest(t, "")
	m.ObserveLogin(metrics.ResultOK)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected healthz 200, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "healthportal_logins_total") {
		t.Fatalf("expected metrics exposition, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/locations/provinces", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected public province list, got %d %s", rr.Code, rr.Body.String())
	}

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/dashboard/summary", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for anonymous summary, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	req.Header.Set("Accept", "application/json")
	r.ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestTemplateFuncs(t *testing.T) {
	funcs := TemplateFuncs()
	join := funcs["join"].(func([]string, string) string)
	if got := join([]string{"a", "b"}, ","); got != "a,b" {
		t.Fatalf("unexpected join result %q", got)
	}
	add := funcs["add"].(func(int, int) int)
	if add(2, 3) != 5 {
		t.Fatal("add should sum")
	}
}

func TestSetupRouterCORS(t *testing.T) {
	r, _ := setupRouterForTest(t, "", "https://dashboard.example")

	req := httptest.NewRequest(http.MethodOptions, "/dashboard/summary", nil)
	req.Header.Set("Origin", "https://dashboard.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	if rr.Header().Get("Access-Control-Allow-Origin") != "https://dashboard.example" {
		t.Fatalf("expected allowed origin header, got %q", rr.Header().Get("Access-Control-Allow-Origin"))
	}
	if rr.Header().Get("Access-Control-Allow-Credentials") != "true" {
		t.Fatal("expected credentials to be allowed")
	}

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "https://evil.example")
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("unknown origin should be refused, got %d", rr.Code)
	}
}

func TestLoginIsThrottled(t *testing.T) {
	r, m := setupRouterForTest(t, "")

	post := func() int {
		req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader("username=ghost&password=whatever-1"))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.RemoteAddr = "192.0.2.10:4321"
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)
		return rr.Code
	}

	if code := post(); code != http.StatusUnauthorized {
		t.Fatalf("first attempt should reach the handler, got %d", code)
	}
	if code := post(); code != http.StatusTooManyRequests {
		t.Fatalf("second attempt should be throttled, got %d", code)
	}
	if got := testutil.ToFloat64(m.Logins.WithLabelValues(metrics.ResultThrottled)); got != 1 {
		t.Fatalf("expected one throttled login, got %v", got)
	}
}
