package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/healthportal/internal/access"
	"github.com/healthportal/internal/logging"
	"github.com/healthportal/internal/reconcile"
	"github.com/healthportal/internal/service"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var panelTitles = map[string][2]string{
	"Inventory":    {"Supplies in stock", "เวชภัณฑ์คงคลัง"},
	"CleanRooms":   {"Clean rooms", "ห้องปลอดฝุ่น"},
	"Vulnerable":   {"Vulnerable groups", "กลุ่มเปราะบาง"},
	"ActiveCare":   {"Active care", "การดูแลเชิงรุก"},
	"Incidents":    {"Staff incidents", "เหตุการณ์ที่เกิดกับเจ้าหน้าที่"},
	"Operations":   {"Operations", "การดำเนินงาน"},
	"LocalSupport": {"Local administration support", "การสนับสนุนจาก อปท."},
	"Measures":     {"Public measures", "มาตรการ"},
	"Situation":    {"Provincial response levels", "ระดับการตอบโต้รายจังหวัด"},
}

type dashboardPanel struct {
	Key     string
	Title   string
	Headers []any
	Rows    [][]any
}

func dashboardFilter(c *gin.Context) (service.Filter, error) {
	from, err := parseOptionalDate(c.Query("from"))
	if err != nil {
		return service.Filter{}, err
	}
	to, err := parseOptionalDate(c.Query("to"))
	if err != nil {
		return service.Filter{}, err
	}
	return service.Filter{
		Province:    strings.TrimSpace(c.Query("province")),
		District:    strings.TrimSpace(c.Query("district")),
		SubDistrict: strings.TrimSpace(c.Query("subDistrict")),
		From:        from,
		To:          to,
	}, nil
}

func (a *API) loadSummary(c *gin.Context) (*service.Summary, error) {
	filter, err := dashboardFilter(c)
	if err != nil {
		return nil, err
	}
	summary, err := a.dashboard.Summary(currentPrincipal(c), filter)
	if err != nil && statusForError(err) == http.StatusInternalServerError {
		logging.LogError(a.logger, "handler", "loadSummary", "dashboard summary", c.Request.URL.RawQuery, err)
	}
	return summary, err
}

func dateValue(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return reconcile.FormatCalendarDate(t)
}

// ShowDashboard 渲染仪表盘页面。
func (a *API) ShowDashboard(c *gin.Context) {
	summary, err := a.loadSummary(c)
	if err != nil {
		message := a.errorMessage(c, err)
		if statusForError(err) == http.StatusInternalServerError {
			message = a.text(c, msgLoadFailed)
		}
		a.renderError(c, statusForError(err), message)
		return
	}

	lang := a.language(c)
	tables := service.SummaryTables(summary, lang)
	panels := make([]dashboardPanel, 0, len(service.ExportSheets)-1)
	for _, key := range service.ExportSheets[1:] {
		rows := tables[key]
		panel := dashboardPanel{Key: key, Title: pickPair(lang, panelTitles[key])}
		if len(rows) > 0 {
			panel.Headers = rows[0]
			panel.Rows = rows[1:]
		}
		panels = append(panels, panel)
	}

	provinces, err := a.locations.ListProvinces()
	if err != nil {
		logging.LogError(a.logger, "handler", "ShowDashboard", "list provinces", nil, err)
	}

	p := currentPrincipal(c)
	a.renderHTML(c, http.StatusOK, "dashboard.html", gin.H{
		"title":        pickPair(lang, [2]string{"Dashboard", "แดชบอร์ด"}),
		"summary":      summary,
		"panels":       panels,
		"provinces":    provinces,
		"filter":       summary.Filter,
		"from":         dateValue(summary.Filter.From),
		"to":           dateValue(summary.Filter.To),
		"canFilter":    access.Can(p.Role, access.AnyLocation),
		"canApprove":   access.Can(p.Role, access.UserApprove),
		"exportURL":    "/dashboard/export.xlsx?" + c.Request.URL.RawQuery,
		"pendingUsers": summary.PendingUsers,
	})
}

// DashboardSummary 返回仪表盘 JSON。
func (a *API) DashboardSummary(c *gin.Context) {
	summary, err := a.loadSummary(c)
	if err != nil {
		if statusForError(err) == http.StatusInternalServerError {
			c.JSON(http.StatusInternalServerError, Result{Success: false, Message: a.text(c, msgLoadFailed)})
			return
		}
		a.respondFailure(c, err)
		return
	}
	respondOK(c, "", gin.H{
		"filter": gin.H{
			"province":    summary.Filter.Province,
			"district":    summary.Filter.District,
			"subDistrict": summary.Filter.SubDistrict,
			"from":        dateValue(summary.Filter.From),
			"to":          dateValue(summary.Filter.To),
		},
		"summary": summary,
	})
}

// ExportDashboard 下载 xlsx。
func (a *API) ExportDashboard(c *gin.Context) {
	summary, err := a.loadSummary(c)
	if err != nil {
		a.respondFailure(c, err)
		return
	}

	var buf bytes.Buffer
	if err := service.WriteSummaryXLSX(&buf, summary, a.language(c)); err != nil {
		logging.LogError(a.logger, "handler", "ExportDashboard", "write xlsx", c.Request.URL.RawQuery, err)
		c.JSON(http.StatusInternalServerError, Result{Success: false, Message: a.text(c, msgLoadFailed)})
		return
	}

	filename := fmt.Sprintf("dashboard-%s.xlsx", time.Now().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
