package router

import (
	"html/template"
	"net/http"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/healthportal/internal/access"
	"github.com/healthportal/internal/handler"
	"github.com/healthportal/internal/logging"
	"github.com/sirupsen/logrus"
)

// Options 路由层所需的静态资源与会话配置。
type Options struct {
	SessionSecret string
	SecureCookies bool
	TemplateGlob  string
	StaticDir     string
	// UploadDir 非空时以 UploadURLPath 对外提供本地上传文件。
	UploadDir     string
	UploadURLPath string
	Metrics       http.Handler
	Logger        *logrus.Logger
	// CORSAllowedOrigins 非空时允许这些来源携带 cookie 调用 JSON 接口。
	CORSAllowedOrigins []string
}

// TemplateFuncs 模板中可用的辅助函数。
func TemplateFuncs() template.FuncMap {
	return template.FuncMap{
		"add": func(a, b int) int {
			return a + b
		},
		"join": strings.Join,
		"eqs": func(a, b interface{}) bool {
			return a == b
		},
	}
}

// SetupRouter 配置 Gin 引擎和路由
func SetupRouter(api *handler.API, opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if opts.Logger != nil {
		r.Use(logging.RequestLogger(opts.Logger))
	}

	if len(opts.CORSAllowedOrigins) > 0 {
		corsConfig := cors.DefaultConfig()
		corsConfig.AllowOrigins = opts.CORSAllowedOrigins
		corsConfig.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodOptions}
		corsConfig.AddAllowHeaders("Accept", "Accept-Language")
		corsConfig.AddExposeHeaders("Content-Disposition", "Content-Language")
		corsConfig.AllowCredentials = true
		r.Use(cors.New(corsConfig))
	}

	// 一次性提示使用独立的 cookie 会话，登录态由签名令牌承载
	store := cookie.NewStore([]byte(opts.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		HttpOnly: true,
		Secure:   opts.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(handler.FlashSessionName, store))
	r.Use(api.LocaleMiddleware(), api.LoadSession())

	r.SetFuncMap(TemplateFuncs())
	if opts.TemplateGlob != "" {
		r.LoadHTMLGlob(opts.TemplateGlob)
	}

	if opts.StaticDir != "" {
		r.Static("/static", opts.StaticDir)
	}
	if opts.UploadDir != "" {
		urlPath := opts.UploadURLPath
		if urlPath == "" {
			urlPath = "/uploads"
		}
		r.Static(urlPath, opts.UploadDir)
	}

	r.GET("/healthz", api.Health)
	if opts.Metrics != nil {
		r.GET("/metrics", gin.WrapH(opts.Metrics))
	}

	r.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/dashboard")
	})
	r.GET("/login", api.ShowLogin)
	r.POST("/login", api.LimitLogin(), api.Login)
	r.POST("/logout", api.Logout)
	r.GET("/register", api.ShowRegister)
	r.POST("/register", api.Register)

	// 注册页的级联下拉无需登录
	locations := r.Group("/api/locations")
	{
		locations.GET("/provinces", api.ListProvinces)
		locations.GET("/districts", api.ListDistricts)
		locations.GET("/subdistricts", api.ListSubDistricts)
	}

	pages := r.Group("/", api.RequireAuth())
	{
		pages.GET("/dashboard", api.RequireCapability(access.DashboardView), api.ShowDashboard)
		pages.GET("/reports/:feature", api.RequireCapability(access.ReportRead), api.ShowReport)
		pages.GET("/admin/users", api.RequireCapability(access.UserApprove), api.ShowUsers)
	}

	// JSON 接口，未登录返回 401
	data := r.Group("/", api.RequireAuthJSON())
	{
		data.GET("/dashboard/summary", api.DashboardSummary)
		data.GET("/dashboard/export.xlsx", api.ExportDashboard)

		data.GET("/reports/:feature/data", api.ReportData)
		data.GET("/reports/:feature/history", api.ReportHistory)
		data.POST("/reports/:feature", api.SaveReport)
		data.POST("/reports/:feature/delete", api.DeleteReport)
		data.POST("/reports/:feature/upload", api.UploadAttachment)

		data.POST("/admin/users/:id/approve", api.ApproveUser)
	}

	r.NoRoute(api.NotFound)

	return r
}
