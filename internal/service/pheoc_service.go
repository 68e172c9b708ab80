package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/healthportal/internal/access"
	"github.com/healthportal/internal/db"
	"github.com/healthportal/internal/logging"
	"github.com/healthportal/internal/reconcile"
	"github.com/healthportal/internal/storage"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	// DefaultUploadMaxBytes 附件大小上限的默认值
	DefaultUploadMaxBytes int64 = 10 << 20
	pdfContentType              = "application/pdf"
	summaryLimit                = 20000
	attachmentURLLimit          = 500
)

var (
	ErrUploadTooLarge = errors.New("upload exceeds size limit")
	ErrUploadNotPDF   = errors.New("upload must be a PDF document")
)

// PheocInput PHEOC 日报表单
type PheocInput struct {
	Status          string
	AlertLevel      string
	ResponseLevel   string
	ActivatedGroups []string
	Summary         string
	AttachmentURL   string
}

// PheocReportService 应急指挥中心状态，每个地点每天一行，附带 PDF 附件
type PheocReportService struct {
	reportBase
	store    storage.Store
	maxBytes int64
	now      func() time.Time
}

// NewPheocReportService 构造 PheocReportService，maxBytes<=0 时使用默认上限
func NewPheocReportService(gdb *gorm.DB, logger *logrus.Logger, store storage.Store, maxBytes int64) *PheocReportService {
	if maxBytes <= 0 {
		maxBytes = DefaultUploadMaxBytes
	}
	return &PheocReportService{
		reportBase: newReportBase(gdb, logger, "pheoc", access.ReportWrite, pheocTable),
		store:      store,
		maxBytes:   maxBytes,
		now:        time.Now,
	}
}

// Save upsert 当天唯一的一行
func (s *PheocReportService) Save(p *access.Principal, locationID uint, date time.Time, input PheocInput) (reconcile.Outcome, error) {
	for _, check := range []struct {
		catalog Catalog
		value   string
	}{
		{PheocStatuses, input.Status},
		{AlertLevels, input.AlertLevel},
		{ResponseLevels, input.ResponseLevel},
	} {
		if err := checkOption(check.catalog, check.value); err != nil {
			return reconcile.Outcome{}, err
		}
	}

	groups := make([]string, 0, len(input.ActivatedGroups))
	for _, g := range input.ActivatedGroups {
		if g = strings.TrimSpace(g); g != "" {
			groups = append(groups, g)
		}
	}
	if err := checkCategories(PheocGroups, groups); err != nil {
		return reconcile.Outcome{}, err
	}

	attachment := strings.TrimSpace(input.AttachmentURL)
	if attachment != "" && (len(attachment) > attachmentURLLimit ||
		!(strings.HasPrefix(attachment, "/") || strings.HasPrefix(attachment, "https://") || strings.HasPrefix(attachment, "http://"))) {
		return reconcile.Outcome{}, fmt.Errorf("%w: attachment url", ErrInvalidOption)
	}

	summary := strings.TrimSpace(input.Summary)
	if len([]rune(summary)) > summaryLimit {
		summary = string([]rune(summary)[:summaryLimit])
	}

	row := db.PheocReport{
		Status:          input.Status,
		AlertLevel:      input.AlertLevel,
		ResponseLevel:   input.ResponseLevel,
		ActivatedGroups: datatypes.JSONSlice[string](groups),
		Summary:         summary,
		AttachmentURL:   attachment,
	}
	return s.write(p, locationID, date, func(tx *gorm.DB, scope reconcile.Scope) (reconcile.Outcome, error) {
		return reconcile.Save(tx, pheocTable, scope, []db.PheocReport{row})
	})
}

// Get 读取某天的报告，没有时返回 nil
func (s *PheocReportService) Get(p *access.Principal, locationID uint, date time.Time) (*db.PheocReport, error) {
	scope, err := s.resolveScope(p, access.ReportRead, locationID, date)
	if err != nil {
		return nil, err
	}
	rows, err := reconcile.Load[db.PheocReport](s.db, pheocTable, scope)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// Upload 校验并保存 PDF 附件，返回可写入报告的 URL。
// size 为客户端声明的大小，实际读取时仍按上限截断判断。
func (s *PheocReportService) Upload(ctx context.Context, p *access.Principal, filename string, size int64, r io.Reader) (string, error) {
	if err := access.Authorize(p, access.ReportWrite, 0); err != nil {
		return "", err
	}
	if s.store == nil {
		return "", errors.New("upload storage not configured")
	}
	if size > s.maxBytes {
		return "", ErrUploadTooLarge
	}

	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > s.maxBytes {
		return "", ErrUploadTooLarge
	}
	if len(data) == 0 || http.DetectContentType(data) != pdfContentType {
		return "", ErrUploadNotPDF
	}

	key := storage.ObjectKey("pheoc", s.now(), filename)
	url, err := s.store.Put(ctx, key, bytes.NewReader(data), pdfContentType)
	if err != nil {
		logging.LogError(s.logger, "service", "pheoc.Upload", key,
			map[string]any{"userId": p.UserID, "size": len(data), "driver": s.store.Driver()}, err)
		return "", fmt.Errorf("store upload: %w", err)
	}
	return url, nil
}
