package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/healthportal/internal/locale"
	"github.com/healthportal/internal/metrics"
	"github.com/healthportal/internal/service"
	"github.com/healthportal/internal/session"
	"github.com/healthportal/internal/storage"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Options 构造 API 所需的外部依赖，均由 main 创建后注入。
type Options struct {
	DB              *gorm.DB
	Sessions        *session.Manager
	Store           storage.Store
	Logger          *logrus.Logger
	Metrics         *metrics.Metrics
	UploadMaxBytes  int64
	DefaultLanguage string
	SecureCookies   bool
	// LoginAttemptsPerMinute 为 0 时不限制登录频率。
	LoginAttemptsPerMinute int
}

// API bundles shared dependencies for HTTP handlers.
type API struct {
	db              *gorm.DB
	sessions        *session.Manager
	logger          *logrus.Logger
	metrics         *metrics.Metrics
	locations       *service.LocationService
	auth            *service.AuthService
	dashboard       *service.DashboardService
	inventory       *service.InventoryReportService
	vulnerable      *service.VulnerableReportService
	activeCare      *service.ActiveCareService
	operations      *service.OperationsReportService
	incidents       *service.IncidentReportService
	measures        *service.MeasureService
	pheoc           *service.PheocReportService
	features        map[string]*reportFeature
	featureOrder    []string
	defaultLanguage string
	secureCookies   bool
	loginLimiter    *loginLimiter
}

// NewAPI constructs a handler set with shared services.
func NewAPI(opts Options) *API {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	locations := service.NewLocationService(opts.DB)

	a := &API{
		db:              opts.DB,
		sessions:        opts.Sessions,
		logger:          logger,
		metrics:         opts.Metrics,
		locations:       locations,
		auth:            service.NewAuthService(opts.DB, locations),
		dashboard:       service.NewDashboardService(opts.DB),
		inventory:       service.NewInventoryReportService(opts.DB, logger),
		vulnerable:      service.NewVulnerableReportService(opts.DB, logger),
		activeCare:      service.NewActiveCareService(opts.DB, logger),
		operations:      service.NewOperationsReportService(opts.DB, logger),
		incidents:       service.NewIncidentReportService(opts.DB, logger),
		measures:        service.NewMeasureService(opts.DB, logger),
		pheoc:           service.NewPheocReportService(opts.DB, logger, opts.Store, opts.UploadMaxBytes),
		defaultLanguage: locale.NormalizeLanguage(opts.DefaultLanguage),
		secureCookies:   opts.SecureCookies,
		loginLimiter:    newLoginLimiter(opts.LoginAttemptsPerMinute),
	}
	a.registerFeatures()
	return a
}

// DB exposes the underlying gorm instance for health checks.
func (a *API) DB() *gorm.DB {
	return a.db
}

// Features 返回按菜单顺序排列的日报功能名。
func (a *API) Features() []string {
	return append([]string(nil), a.featureOrder...)
}

func (a *API) renderHTML(c *gin.Context, status int, template string, data gin.H) {
	payload := gin.H{}
	for key, value := range data {
		payload[key] = value
	}

	pref := a.requestLocale(c)
	if _, exists := payload["lang"]; !exists {
		payload["lang"] = pref.Language
	}
	if _, exists := payload["htmlLang"]; !exists {
		payload["htmlLang"] = pref.HTMLLang
	}
	if _, exists := payload["languageSwitch"]; !exists {
		payload["languageSwitch"] = buildLanguageSwitch(c)
	}
	if _, exists := payload["siteName"]; !exists {
		payload["siteName"] = a.text(c, msgSiteName)
	}
	if p := currentPrincipal(c); p != nil {
		payload["principal"] = p
		payload["features"] = a.menu(c, p)
	}
	if _, exists := payload["flash"]; !exists {
		if flash := popFlash(c); flash != nil {
			payload["flash"] = flash
		}
	}

	c.HTML(status, template, payload)
}
