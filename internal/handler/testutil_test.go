package handler

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"
	"github.com/healthportal/internal/access"
	"github.com/healthportal/internal/db"
	"github.com/healthportal/internal/metrics"
	"github.com/healthportal/internal/session"
	"github.com/healthportal/internal/storage"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type stubHTMLRender struct {
	last *stubHTMLInstance
}

type stubHTMLInstance struct {
	name string
	data interface{}
}

func (r *stubHTMLRender) Instance(name string, data interface{}) render.Render {
	r.last = &stubHTMLInstance{name: name, data: data}
	return r.last
}

func (r *stubHTMLInstance) Render(http.ResponseWriter) error {
	return nil
}

func (r *stubHTMLInstance) WriteContentType(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
}

func (r *stubHTMLRender) payload(t *testing.T) gin.H {
	t.Helper()
	if r.last == nil {
		t.Fatal("expected a template to be rendered")
	}
	data, ok := r.last.data.(gin.H)
	if !ok {
		t.Fatalf("unexpected template payload %T", r.last.data)
	}
	return data
}

var testDBSeq atomic.Int64

type testEnv struct {
	api      *API
	router   *gin.Engine
	html     *stubHTMLRender
	gdb      *gorm.DB
	metrics  *metrics.Metrics
	location db.Location
}

func setupHandlerTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:handler-%d?mode=memory&cache=shared", testDBSeq.Add(1))
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("failed to migrate test db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close(gdb) })
	return gdb
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gdb := setupHandlerTestDB(t)
	sessionManager, err := session.NewManager("handler-test-secret-0123456789abcdef", time.Hour, false)
	if err != nil {
		t.Fatalf("NewManager returned error: %v", err)
	}
	quiet := logrus.New()
	quiet.SetOutput(io.Discard)
	m := metrics.New(nil)
	store, err := storage.NewFilesystem(t.TempDir(), "/uploads")
	if err != nil {
		t.Fatalf("NewFilesystem returned error: %v", err)
	}

	api := NewAPI(Options{
		DB:              gdb,
		Sessions:        sessionManager,
		Store:           store,
		Logger:          quiet,
		Metrics:         m,
		UploadMaxBytes:  1024,
		DefaultLanguage: "en",
	})

	html := &stubHTMLRender{}
	router := gin.New()
	router.HTMLRender = html
	router.Use(sessions.Sessions(FlashSessionName, cookie.NewStore([]byte("handler-test-flash"))))
	router.Use(api.LocaleMiddleware(), api.LoadSession())

	router.GET("/login", api.ShowLogin)
	router.POST("/login", api.Login)
	router.POST("/logout", api.Logout)
	router.POST("/register", api.Register)
	router.GET("/healthz", api.Health)

	pages := router.Group("/", api.RequireAuth())
	pages.GET("/dashboard", api.RequireCapability(access.DashboardView), api.ShowDashboard)
	pages.GET("/reports/:feature", api.ShowReport)
	pages.GET("/admin/users", api.RequireCapability(access.UserApprove), api.ShowUsers)

	jsonAPI := router.Group("/", api.RequireAuthJSON())
	jsonAPI.GET("/dashboard/summary", api.DashboardSummary)
	jsonAPI.GET("/dashboard/export.xlsx", api.ExportDashboard)
	jsonAPI.GET("/reports/:feature/data", api.ReportData)
	jsonAPI.GET("/reports/:feature/history", api.ReportHistory)
	jsonAPI.POST("/reports/:feature", api.SaveReport)
	jsonAPI.POST("/reports/:feature/delete", api.DeleteReport)
	jsonAPI.POST("/reports/:feature/upload", api.UploadAttachment)
	jsonAPI.POST("/admin/users/:id/approve", api.ApproveUser)

	loc := db.Location{ProvinceName: "เชียงใหม่", DistrictName: "เมือง", SubDistrict: "ศรีภูมิ"}
	if err := gdb.Create(&loc).Error; err != nil {
		t.Fatalf("seed location: %v", err)
	}

	return &testEnv{api: api, router: router, html: html, gdb: gdb, metrics: m, location: loc}
}

// seedUser 直接写入已审批账号并返回其会话 cookie。
func (e *testEnv) seedUser(t *testing.T, username string, role access.Role, locationID uint) *http.Cookie {
	t.Helper()
	user := db.User{
		Username:     username,
		PasswordHash: "unused",
		Name:         username,
		Role:         string(role),
		LocationID:   locationID,
		IsApproved:   true,
	}
	if err := e.gdb.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	token, expires, err := e.api.sessions.Issue(user.ID)
	if err != nil {
		t.Fatalf("issue session: %v", err)
	}
	recorder := httptest.NewRecorder()
	e.api.sessions.SetCookie(recorder, token, expires)
	cookies := recorder.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("expected session cookie")
	}
	return cookies[0]
}

func (e *testEnv) do(method, target string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	request := httptest.NewRequest(method, target, body)
	if form != nil {
		request.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	for _, c := range cookies {
		request.AddCookie(c)
	}
	recorder := httptest.NewRecorder()
	e.router.ServeHTTP(recorder, request)
	return recorder
}
