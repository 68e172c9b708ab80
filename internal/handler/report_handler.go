package handler

import (
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/healthportal/internal/access"
	"github.com/healthportal/internal/db"
	"github.com/healthportal/internal/logging"
	"github.com/healthportal/internal/metrics"
	"github.com/healthportal/internal/reconcile"
	"github.com/healthportal/internal/service"
	"github.com/sirupsen/logrus"
)

func (a *API) lookupFeature(c *gin.Context) (*reportFeature, bool) {
	f, ok := a.features[c.Param("feature")]
	if !ok {
		a.NotFound(c)
		return nil, false
	}
	return f, true
}

// reportTarget 解析 locationId 与 date；locationId 为空时使用当前用户所属地点。
func reportTarget(p *access.Principal, raw func(string) string, defaultToday bool) (uint, time.Time, error) {
	locationID, err := parseOptionalUint(raw("locationId"))
	if err != nil {
		return 0, time.Time{}, err
	}
	if locationID == 0 && p != nil {
		locationID = p.LocationID
	}
	date, err := parseOptionalDate(raw("date"))
	if err != nil {
		return 0, time.Time{}, err
	}
	if date.IsZero() {
		if !defaultToday {
			return 0, time.Time{}, reconcile.ErrInvalidDate
		}
		date = reconcile.NormalizeToCalendarDate(time.Now())
	}
	return locationID, date, nil
}

func saveResult(err error) string {
	switch {
	case err == nil:
		return metrics.ResultOK
	case errors.Is(err, access.ErrForbidden), errors.Is(err, access.ErrUnauthenticated):
		return metrics.ResultDenied
	case isUserError(err):
		return metrics.ResultInvalid
	default:
		return metrics.ResultError
	}
}

// ShowReport 渲染日报表单并预填当天已保存的数据。
func (a *API) ShowReport(c *gin.Context) {
	f, ok := a.lookupFeature(c)
	if !ok {
		return
	}
	p := currentPrincipal(c)
	locationID, date, err := reportTarget(p, c.Query, true)
	if err != nil {
		a.renderError(c, statusForError(err), a.errorMessage(c, err))
		return
	}

	data, values, err := f.load(p, locationID, date)
	if err != nil {
		status := statusForError(err)
		if status == http.StatusInternalServerError {
			a.logReportError(f, "ShowReport", "load report", locationID, date, err)
			a.renderError(c, status, a.text(c, msgLoadFailed))
			return
		}
		a.renderError(c, status, a.errorMessage(c, err))
		return
	}
	history, err := f.store.History(p, locationID)
	if err != nil {
		a.logReportError(f, "ShowReport", "load history", locationID, 0, err)
	}
	location, err := a.locations.Get(locationID)
	if err != nil {
		a.logReportError(f, "ShowReport", "load location", locationID, date, err)
		location = &db.Location{}
	}

	lang := a.language(c)
	historyDates := make([]string, 0, len(history))
	for _, d := range history {
		historyDates = append(historyDates, reconcile.FormatCalendarDate(d))
	}

	a.renderHTML(c, http.StatusOK, "report_form.html", gin.H{
		"title":         pickPair(lang, f.title),
		"feature":       f.name,
		"sections":      fill(f.sections(lang), values),
		"date":          reconcile.FormatCalendarDate(date),
		"locationId":    locationID,
		"locationLabel": location.Label(),
		"history":       historyDates,
		"canWrite":      access.Authorize(p, f.writeCap, locationID) == nil,
		"anyLocation":   access.Can(p.Role, access.AnyLocation),
		"canUpload":     f.name == "pheoc",
		"summaryHtml":   summaryPreview(data),
	})
}

// summaryPreview 取出已清洗的摘要 HTML，没有摘要的报表返回空串。
func summaryPreview(data any) template.HTML {
	if h, ok := data.(gin.H); ok {
		if html, ok := h["summaryHtml"].(template.HTML); ok {
			return html
		}
	}
	return ""
}

// ReportData 返回某地点某天的已保存数据。
func (a *API) ReportData(c *gin.Context) {
	f, ok := a.lookupFeature(c)
	if !ok {
		return
	}
	p := currentPrincipal(c)
	locationID, date, err := reportTarget(p, c.Query, false)
	if err != nil {
		a.respondFailure(c, err)
		return
	}
	data, values, err := f.load(p, locationID, date)
	if err != nil {
		if statusForError(err) == http.StatusInternalServerError {
			a.logReportError(f, "ReportData", "load report", locationID, date, err)
			c.JSON(http.StatusInternalServerError, Result{Success: false, Message: a.text(c, msgLoadFailed)})
			return
		}
		a.respondFailure(c, err)
		return
	}
	respondOK(c, "", gin.H{"report": data, "values": values})
}

// SaveReport 保存日报。未填写的分类按 0 覆盖。
func (a *API) SaveReport(c *gin.Context) {
	f, ok := a.lookupFeature(c)
	if !ok {
		return
	}
	p := currentPrincipal(c)
	locationID, date, err := reportTarget(p, c.PostForm, false)
	if err == nil {
		var outcome reconcile.Outcome
		outcome, err = f.save(c, p, locationID, date)
		if err == nil {
			a.metrics.ObserveSave(f.name, metrics.ResultOK)
			a.logger.WithFields(logrus.Fields{
				"feature":     f.name,
				"user_id":     p.UserID,
				"location_id": locationID,
				"record_date": reconcile.FormatCalendarDate(date),
				"written":     outcome.Written,
				"removed":     outcome.Removed,
			}).Info("report saved")
			respondOK(c, a.text(c, msgSaved), outcome)
			return
		}
	}

	a.metrics.ObserveSave(f.name, saveResult(err))
	a.respondFailure(c, err)
}

// DeleteReport 删除某地点某天该功能的全部数据。
func (a *API) DeleteReport(c *gin.Context) {
	f, ok := a.lookupFeature(c)
	if !ok {
		return
	}
	p := currentPrincipal(c)
	feature := f.name + ".delete"
	locationID, date, err := reportTarget(p, c.PostForm, false)
	if err != nil {
		a.metrics.ObserveSave(feature, saveResult(err))
		a.respondFailure(c, err)
		return
	}

	removed, err := f.store.Delete(p, locationID, date)
	a.metrics.ObserveSave(feature, saveResult(err))
	if err != nil {
		a.respondFailure(c, err)
		return
	}
	a.logger.WithFields(logrus.Fields{
		"feature":     f.name,
		"user_id":     p.UserID,
		"location_id": locationID,
		"record_date": reconcile.FormatCalendarDate(date),
		"removed":     removed,
	}).Info("report deleted")
	respondOK(c, a.text(c, msgDeleted), gin.H{"removed": removed})
}

// ReportHistory 返回已有数据的日期，最近的在前。
func (a *API) ReportHistory(c *gin.Context) {
	f, ok := a.lookupFeature(c)
	if !ok {
		return
	}
	p := currentPrincipal(c)
	locationID, err := parseOptionalUint(c.Query("locationId"))
	if err != nil {
		a.respondFailure(c, err)
		return
	}
	if locationID == 0 {
		locationID = p.LocationID
	}
	dates, err := f.store.History(p, locationID)
	if err != nil {
		if statusForError(err) == http.StatusInternalServerError {
			a.logReportError(f, "ReportHistory", "load history", locationID, 0, err)
		}
		a.respondFailure(c, err)
		return
	}
	formatted := make([]string, 0, len(dates))
	for _, d := range dates {
		formatted = append(formatted, reconcile.FormatCalendarDate(d))
	}
	respondOK(c, "", formatted)
}

// UploadAttachment 接收 PHEOC 的 PDF 附件，返回可填入表单的 URL。
func (a *API) UploadAttachment(c *gin.Context) {
	f, ok := a.lookupFeature(c)
	if !ok {
		return
	}
	if f.name != "pheoc" {
		a.NotFound(c)
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		a.respondFailure(c, fmt.Errorf("%w: missing file", service.ErrValidation))
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		logging.LogError(a.logger, "handler", "UploadAttachment", "open upload", fileHeader.Filename, err)
		a.respondFailure(c, err)
		return
	}
	defer file.Close()

	url, err := a.pheoc.Upload(c.Request.Context(), currentPrincipal(c), fileHeader.Filename, fileHeader.Size, file)
	if err != nil {
		a.respondFailure(c, err)
		return
	}
	respondOK(c, a.text(c, msgUploaded), gin.H{"url": url})
}

func (a *API) logReportError(f *reportFeature, fn, context string, locationID uint, date any, err error) {
	logging.LogError(a.logger, "handler", fn, context, logrus.Fields{
		"feature":     f.name,
		"location_id": locationID,
		"record_date": date,
	}, err)
}
