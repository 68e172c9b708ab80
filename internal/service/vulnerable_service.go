package service

import (
	"time"

	"github.com/healthportal/internal/access"
	"github.com/healthportal/internal/db"
	"github.com/healthportal/internal/reconcile"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// VulnerableReportService 脆弱人群人数日报
type VulnerableReportService struct {
	reportBase
}

// NewVulnerableReportService 构造 VulnerableReportService
func NewVulnerableReportService(gdb *gorm.DB, logger *logrus.Logger) *VulnerableReportService {
	return &VulnerableReportService{
		reportBase: newReportBase(gdb, logger, "vulnerable", access.ReportWrite, vulnerableTable),
	}
}

func vulnerableRows(counts map[string]int) ([]db.VulnerableData, error) {
	if err := checkMapKeys(VulnerableGroups, counts); err != nil {
		return nil, err
	}
	rows := make([]db.VulnerableData, 0, len(VulnerableGroups))
	for _, cat := range VulnerableGroups {
		n := counts[cat.Key]
		if err := checkNonNegative(n); err != nil {
			return nil, err
		}
		rows = append(rows, db.VulnerableData{GroupType: cat.Key, Count: n})
	}
	return rows, nil
}

// Save 按人群分类 upsert
func (s *VulnerableReportService) Save(p *access.Principal, locationID uint, date time.Time, counts map[string]int) (reconcile.Outcome, error) {
	rows, err := vulnerableRows(counts)
	if err != nil {
		return reconcile.Outcome{}, err
	}
	return s.write(p, locationID, date, func(tx *gorm.DB, scope reconcile.Scope) (reconcile.Outcome, error) {
		return reconcile.Save(tx, vulnerableTable, scope, rows)
	})
}

// Get 读取某天的人群数据
func (s *VulnerableReportService) Get(p *access.Principal, locationID uint, date time.Time) ([]db.VulnerableData, error) {
	scope, err := s.resolveScope(p, access.ReportRead, locationID, date)
	if err != nil {
		return nil, err
	}
	return reconcile.Load[db.VulnerableData](s.db, vulnerableTable, scope)
}
