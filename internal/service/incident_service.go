package service

import (
	"time"

	"github.com/healthportal/internal/access"
	"github.com/healthportal/internal/db"
	"github.com/healthportal/internal/reconcile"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// detailLimit 事件/措施说明的最大字符数
const detailLimit = 2000

// IncidentInput 某类事件的受伤与死亡人数
type IncidentInput struct {
	Injured int
	Deaths  int
	Details string
}

// IncidentReportService 工作人员事件日报
type IncidentReportService struct {
	reportBase
}

// NewIncidentReportService 构造 IncidentReportService
func NewIncidentReportService(gdb *gorm.DB, logger *logrus.Logger) *IncidentReportService {
	return &IncidentReportService{
		reportBase: newReportBase(gdb, logger, "incidents", access.ReportWrite, incidentTable),
	}
}

// Save 按事件类型 upsert
func (s *IncidentReportService) Save(p *access.Principal, locationID uint, date time.Time, input map[string]IncidentInput) (reconcile.Outcome, error) {
	if err := checkMapKeys(IncidentTypes, input); err != nil {
		return reconcile.Outcome{}, err
	}
	rows := make([]db.StaffIncident, 0, len(IncidentTypes))
	for _, cat := range IncidentTypes {
		v := input[cat.Key]
		if err := checkNonNegative(v.Injured, v.Deaths); err != nil {
			return reconcile.Outcome{}, err
		}
		rows = append(rows, db.StaffIncident{
			IncidentType: cat.Key,
			Injured:      v.Injured,
			Deaths:       v.Deaths,
			Details:      CleanText(v.Details, detailLimit),
		})
	}

	return s.write(p, locationID, date, func(tx *gorm.DB, scope reconcile.Scope) (reconcile.Outcome, error) {
		return reconcile.Save(tx, incidentTable, scope, rows)
	})
}

// Get 读取某天的事件
func (s *IncidentReportService) Get(p *access.Principal, locationID uint, date time.Time) ([]db.StaffIncident, error) {
	scope, err := s.resolveScope(p, access.ReportRead, locationID, date)
	if err != nil {
		return nil, err
	}
	return reconcile.Load[db.StaffIncident](s.db, incidentTable, scope)
}
